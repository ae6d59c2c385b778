package integrations

import (
    "io"

    "showplan/internal/model"
)

// VenueSource defines the minimal interface for adapters that feed
// venue records into the planner's cache from external feeds.
type VenueSource interface {
    Name() string
    Load(r io.Reader) ([]model.VenueRecord, error)
}

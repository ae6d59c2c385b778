package plan

import (
    "context"

    "showplan/internal/model"
)

// Coord is a WGS84 latitude/longitude pair.
type Coord struct {
    Lat float64
    Lng float64
}

// Leg is the distance/duration answer from a directions provider.
type Leg struct {
    DistanceMeters  int
    DurationSeconds int
    Polyline        string
    Steps           []model.RouteStep
    // Estimated is set when the leg was derived from a straight-line
    // fallback rather than provider data.
    Estimated bool
}

// DirectionsProvider answers travel queries between two coordinates.
// Implementations must be safe for sequential reuse within a run.
type DirectionsProvider interface {
    Route(ctx context.Context, origin, dest Coord, mode string) (Leg, error)
}

// VenueFinder resolves a free-text venue query to a canonical record.
// The second return is false when nothing matched.
type VenueFinder interface {
    FindVenue(ctx context.Context, query, near string) (model.VenueRecord, bool, error)
}

// PlanSource is the external generator: prompt in, itinerary-shaped JSON or
// error out. Refine receives the prior candidate plus formatted verifier
// feedback and must return a complete corrected itinerary.
type PlanSource interface {
    Generate(ctx context.Context, req model.PlanRequest) (model.Itinerary, error)
    Refine(ctx context.Context, req model.PlanRequest, prior model.Itinerary, feedback string) (model.Itinerary, error)
}

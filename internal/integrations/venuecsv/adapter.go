// Package venuecsv loads venue seed records from CSV feeds. Expected
// columns are name, address, latitude, longitude and an optional
// place_id, with a header row in any column order.
package venuecsv

import (
    "encoding/csv"
    "fmt"
    "io"
    "strconv"
    "strings"

    "showplan/internal/integrations"
    "showplan/internal/model"
)

type Adapter struct{}

var _ integrations.VenueSource = Adapter{}

func (Adapter) Name() string { return "venue-csv" }

func (Adapter) Load(r io.Reader) ([]model.VenueRecord, error) {
    cr := csv.NewReader(r)
    cr.TrimLeadingSpace = true
    header, err := cr.Read()
    if err != nil {
        return nil, fmt.Errorf("read header: %w", err)
    }
    cols := map[string]int{}
    for i, name := range header {
        cols[strings.ToLower(strings.TrimSpace(name))] = i
    }
    for _, required := range []string{"name", "latitude", "longitude"} {
        if _, ok := cols[required]; !ok {
            return nil, fmt.Errorf("missing column %q", required)
        }
    }
    var out []model.VenueRecord
    for line := 2; ; line++ {
        row, err := cr.Read()
        if err == io.EOF {
            break
        }
        if err != nil {
            return nil, fmt.Errorf("line %d: %w", line, err)
        }
        field := func(name string) string {
            i, ok := cols[name]
            if !ok || i >= len(row) {
                return ""
            }
            return strings.TrimSpace(row[i])
        }
        lat, err := strconv.ParseFloat(field("latitude"), 64)
        if err != nil {
            return nil, fmt.Errorf("line %d: latitude: %w", line, err)
        }
        lng, err := strconv.ParseFloat(field("longitude"), 64)
        if err != nil {
            return nil, fmt.Errorf("line %d: longitude: %w", line, err)
        }
        name := field("name")
        if name == "" {
            return nil, fmt.Errorf("line %d: empty name", line)
        }
        out = append(out, model.VenueRecord{
            Name:      name,
            Address:   field("address"),
            Latitude:  lat,
            Longitude: lng,
            PlaceID:   field("place_id"),
        })
    }
    return out, nil
}

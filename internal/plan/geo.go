package plan

import (
    "fmt"
    "math"

    "showplan/internal/model"
)

// Travel modes understood by the planner and the directions provider.
const (
    ModeWalking   = "walking"
    ModeBicycling = "bicycling"
    ModeTransit   = "transit"
    ModeDriving   = "driving"
)

// Average urban speeds in meters per second, used for straight-line
// duration estimates when no provider answer is available.
var modeSpeeds = map[string]float64{
    ModeWalking:   1.4,
    ModeBicycling: 4.2,
    ModeTransit:   8.3,
    ModeDriving:   13.9,
}

// ModeSpeed returns the estimation speed for a travel mode, defaulting to
// walking for unknown modes.
func ModeSpeed(mode string) float64 {
    if s, ok := modeSpeeds[mode]; ok {
        return s
    }
    return modeSpeeds[ModeWalking]
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b Coord) float64 {
    const r = 6371000.0
    dLat := (b.Lat - a.Lat) * math.Pi / 180
    dLon := (b.Lng - a.Lng) * math.Pi / 180
    h := math.Sin(dLat/2)*math.Sin(dLat/2) +
        math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
    c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
    return r * c
}

// EstimateLeg builds a straight-line fallback leg between two points.
func EstimateLeg(origin, dest Coord, mode string) Leg {
    dist := HaversineMeters(origin, dest)
    dur := dist / ModeSpeed(mode)
    return Leg{
        DistanceMeters:  int(dist),
        DurationSeconds: int(dur),
        Steps: []model.RouteStep{{
            Instruction:     fmt.Sprintf("Travel from origin to destination via %s (estimate)", mode),
            DistanceMeters:  int(dist),
            DurationSeconds: int(dur),
        }},
        Estimated: true,
    }
}

package plan

import (
    "time"

    "showplan/internal/model"
)

// improveVisitOrder runs a 2-opt pass over the events' venue coordinates
// and returns the visit order with the lowest total straight-line
// distance. The first and last events stay pinned so the day still
// starts and ends where the draft put it; with fewer than four events
// the order is returned unchanged.
func improveVisitOrder(it *model.Itinerary, events []model.Event, iterations int) []int {
    if iterations <= 0 {
        iterations = 1
    }
    coords := make([]Coord, len(events))
    for i, ev := range events {
        if v, ok := it.VenueByName(ev.VenueName); ok {
            coords[i] = Coord{Lat: v.Latitude, Lng: v.Longitude}
        }
    }
    best := make([]int, len(events))
    for i := range best {
        best[i] = i
    }
    bestDist := pathDistance(coords, best)
    n := len(best)
    for pass := 0; pass < iterations; pass++ {
        improved := false
        for i := 1; i < n-2; i++ {
            for k := i + 1; k < n-1; k++ {
                cand := twoOptSwap(best, i, k)
                if d := pathDistance(coords, cand); d+1e-3 < bestDist {
                    best = cand
                    bestDist = d
                    improved = true
                }
            }
        }
        if !improved {
            break
        }
    }
    return best
}

func twoOptSwap(ord []int, i, k int) []int {
    out := make([]int, len(ord))
    copy(out, ord[:i])
    pos := i
    for j := k; j >= i; j-- {
        out[pos] = ord[j]
        pos++
    }
    copy(out[pos:], ord[k+1:])
    return out
}

func pathDistance(coords []Coord, order []int) float64 {
    total := 0.0
    for i := 0; i < len(order)-1; i++ {
        total += HaversineMeters(coords[order[i]], coords[order[i+1]])
    }
    return total
}

func isIdentityOrder(order []int) bool {
    for i, v := range order {
        if v != i {
            return false
        }
    }
    return true
}

// reslotEvents reassigns the schedule's time slots to the reordered
// events: the event visited p-th starts when the p-th slot originally
// started and keeps its own duration.
func reslotEvents(events []model.Event, order []int) []model.Event {
    starts := make([]time.Time, len(events))
    for i, ev := range events {
        starts[i], _ = parseEventTime(ev.StartTime)
    }
    out := make([]model.Event, len(events))
    for p, idx := range order {
        ev := events[idx]
        start, err1 := parseEventTime(ev.StartTime)
        end, err2 := parseEventTime(ev.EndTime)
        if err1 == nil && err2 == nil {
            dur := end.Sub(start)
            ev.StartTime = formatEventTime(starts[p])
            ev.EndTime = formatEventTime(starts[p].Add(dur))
        }
        out[p] = ev
    }
    return out
}

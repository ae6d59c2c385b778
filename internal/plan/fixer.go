package plan

import (
    "fmt"
    "time"

    "showplan/internal/config"
    "showplan/internal/model"
)

// Fixer applies local, rule-based repairs to an itinerary using a
// verification report. It never calls external providers; travel estimates
// come from the straight-line speed model. Repairs are best-effort: an item
// that cannot be repaired (say, unparseable opening hours) is skipped and
// left for the next verification pass to report.
type Fixer struct {
    cfg config.Planner
}

func NewFixer(cfg config.Planner) *Fixer { return &Fixer{cfg: cfg} }

// Fix returns a repaired copy of the itinerary. Categories are repaired in
// a fixed order (format, venue hours, travel times, buffer times), each only
// when the report flagged it; afterwards events are re-sorted and routes
// regenerated from scratch.
func (f *Fixer) Fix(it model.Itinerary, report model.VerificationReport) model.Itinerary {
    fixed := it.Clone()
    if hasIssues(report, model.CategoryFormat) {
        f.fixFormat(&fixed)
    }
    if hasIssues(report, model.CategoryVenueHours) {
        f.fixVenueHours(&fixed)
    }
    if hasIssues(report, model.CategoryTravelTimes) {
        f.fixTravelTimes(&fixed)
    }
    if hasIssues(report, model.CategoryBufferTimes) {
        f.fixBufferTimes(&fixed)
    }
    fixed.Events = sortedEvents(fixed.Events)
    f.regenerateRoutes(&fixed)
    return fixed
}

func hasIssues(report model.VerificationReport, category string) bool {
    res, ok := report.Details[category]
    return ok && len(res.Issues) > 0
}

// fixFormat backfills every required field with a placeholder so a
// subsequent format check passes: identifiers, descriptions, costs, default
// times, an anchor-offset coordinate grid for venues without coordinates,
// generous default hours, and venue relinking for dangling references.
func (f *Fixer) fixFormat(it *model.Itinerary) {
    if it.Name == "" {
        it.Name = "Untitled Itinerary"
    }
    if it.Description == "" {
        it.Description = "Generated itinerary"
    }
    for i := range it.Venues {
        ven := &it.Venues[i]
        if ven.Name == "" {
            ven.Name = fmt.Sprintf("Venue %d", i+1)
        }
        if ven.Address == "" {
            ven.Address = "123 Example St, New York, NY 10001"
        }
        if ven.Latitude == 0 && ven.Longitude == 0 {
            ven.Latitude = f.cfg.AnchorLat + float64(i)*0.005
            ven.Longitude = f.cfg.AnchorLng + float64(i)*0.005
        }
        if ven.PlaceID == "" {
            ven.PlaceID = fmt.Sprintf("place_%d", i+1)
        }
        if ven.OpeningHours == "" {
            ven.OpeningHours = "9:00 AM - 11:00 PM"
        }
    }
    base := time.Now().UTC().Truncate(24 * time.Hour).Add(12 * time.Hour)
    for i := range it.Events {
        ev := &it.Events[i]
        if ev.ID == "" {
            ev.ID = fmt.Sprintf("event%d", i+1)
        }
        if ev.Name == "" {
            ev.Name = fmt.Sprintf("Event %d", i+1)
        }
        if ev.Description == "" {
            ev.Description = fmt.Sprintf("Description for %s", ev.Name)
        }
        if ev.Cost < 0 {
            ev.Cost = 0
        }
        _, startErr := parseEventTime(ev.StartTime)
        _, endErr := parseEventTime(ev.EndTime)
        if ev.StartTime == "" || startErr != nil || ev.EndTime == "" || endErr != nil {
            start := base.Add(time.Duration(i) * 3 * time.Hour)
            ev.StartTime = formatEventTime(start)
            ev.EndTime = formatEventTime(start.Add(2 * time.Hour))
        }
        if _, ok := it.VenueByName(ev.VenueName); !ok && len(it.Venues) > 0 {
            ev.VenueName = it.Venues[0].Name
        }
    }
}

// fixVenueHours clamps flagged events into their venue's open window,
// shifting the whole interval and preserving duration where it fits;
// otherwise the event is truncated to the window.
func (f *Fixer) fixVenueHours(it *model.Itinerary) {
    for i := range it.Events {
        ev := &it.Events[i]
        venue, ok := it.VenueByName(ev.VenueName)
        if !ok {
            continue
        }
        hours := ParseHours(venue.OpeningHours)
        if hours.Kind != HoursRange {
            continue
        }
        start, err1 := parseEventTime(ev.StartTime)
        end, err2 := parseEventTime(ev.EndTime)
        if err1 != nil || err2 != nil {
            continue
        }
        opens, closes := hours.Window(start)
        duration := end.Sub(start)
        if maxFit := closes.Sub(opens); duration > maxFit {
            duration = maxFit
        }
        if start.Before(opens) {
            start = opens
            end = start.Add(duration)
        }
        if end.After(closes) {
            end = closes
            start = end.Add(-duration)
            if start.Before(opens) {
                start = opens
            }
        }
        ev.StartTime = formatEventTime(start)
        ev.EndTime = formatEventTime(end)
    }
}

// fixTravelTimes first tries to shorten the day by reordering the visit
// sequence (2-opt over venue coordinates, endpoints pinned), then walks
// the schedule and pushes each later event forward until the gap covers
// the estimated travel time between different venues.
func (f *Fixer) fixTravelTimes(it *model.Itinerary) {
    events := sortedEvents(it.Events)
    if order := improveVisitOrder(it, events, 4); !isIdentityOrder(order) {
        events = reslotEvents(events, order)
    }
    for i := 1; i < len(events); i++ {
        prev, cur := &events[i-1], &events[i]
        if prev.VenueName == cur.VenueName {
            continue
        }
        from, okFrom := it.VenueByName(prev.VenueName)
        to, okTo := it.VenueByName(cur.VenueName)
        if !okFrom || !okTo {
            continue
        }
        prevEnd, err1 := parseEventTime(prev.EndTime)
        curStart, err2 := parseEventTime(cur.StartTime)
        curEnd, err3 := parseEventTime(cur.EndTime)
        if err1 != nil || err2 != nil || err3 != nil {
            continue
        }
        origin := Coord{Lat: from.Latitude, Lng: from.Longitude}
        dest := Coord{Lat: to.Latitude, Lng: to.Longitude}
        mode := ModeWalking
        if HaversineMeters(origin, dest) > f.cfg.TransitThresholdMeters {
            mode = ModeTransit
        }
        travel := time.Duration(EstimateLeg(origin, dest, mode).DurationSeconds) * time.Second
        if curStart.Sub(prevEnd) >= travel {
            continue
        }
        duration := curEnd.Sub(curStart)
        newStart := prevEnd.Add(travel)
        cur.StartTime = formatEventTime(newStart)
        cur.EndTime = formatEventTime(newStart.Add(duration))
    }
    it.Events = events
}

// fixBufferTimes removes overlaps and too-short gaps by starting the later
// event a minimum buffer after the earlier one ends, preserving its duration.
func (f *Fixer) fixBufferTimes(it *model.Itinerary) {
    events := sortedEvents(it.Events)
    buffer := time.Duration(f.cfg.MinGapMinutes) * time.Minute
    for i := 1; i < len(events); i++ {
        prev, cur := &events[i-1], &events[i]
        prevEnd, err1 := parseEventTime(prev.EndTime)
        curStart, err2 := parseEventTime(cur.StartTime)
        curEnd, err3 := parseEventTime(cur.EndTime)
        if err1 != nil || err2 != nil || err3 != nil {
            continue
        }
        if curStart.Sub(prevEnd) >= buffer {
            continue
        }
        duration := curEnd.Sub(curStart)
        newStart := prevEnd.Add(buffer)
        cur.StartTime = formatEventTime(newStart)
        cur.EndTime = formatEventTime(newStart.Add(duration))
    }
    it.Events = events
}

// regenerateRoutes rebuilds the route list from scratch for the sorted
// schedule using estimated legs only. Multi-venue schedules get a leading
// walking leg from the user's position to the first venue.
func (f *Fixer) regenerateRoutes(it *model.Itinerary) {
    it.Routes = nil
    events := sortedEvents(it.Events)
    if len(it.Venues) >= 2 && len(events) > 0 {
        if first, ok := it.VenueByName(events[0].VenueName); ok {
            it.Routes = append(it.Routes, model.Route{
                From:            model.CurrentLocation,
                To:              first.Name,
                TravelMode:      ModeWalking,
                DistanceMeters:  1000,
                DurationSeconds: 600,
                Steps: []model.RouteStep{{
                    Instruction:     fmt.Sprintf("Walk from your location to %s", first.Name),
                    DistanceMeters:  1000,
                    DurationSeconds: 600,
                }},
            })
        }
    }
    for i := 1; i < len(events); i++ {
        prev, cur := events[i-1], events[i]
        if prev.VenueName == cur.VenueName || hasRoute(it.Routes, prev.VenueName, cur.VenueName) {
            continue
        }
        from, okFrom := it.VenueByName(prev.VenueName)
        to, okTo := it.VenueByName(cur.VenueName)
        if !okFrom || !okTo {
            continue
        }
        origin := Coord{Lat: from.Latitude, Lng: from.Longitude}
        dest := Coord{Lat: to.Latitude, Lng: to.Longitude}
        mode := ModeWalking
        if HaversineMeters(origin, dest) > f.cfg.TransitThresholdMeters {
            mode = ModeTransit
        }
        leg := EstimateLeg(origin, dest, mode)
        it.Routes = append(it.Routes, model.Route{
            From:            prev.VenueName,
            To:              cur.VenueName,
            TravelMode:      mode,
            DistanceMeters:  leg.DistanceMeters,
            DurationSeconds: leg.DurationSeconds,
            Steps:           leg.Steps,
        })
    }
}

func formatEventTime(t time.Time) string { return t.Format("2006-01-02T15:04:05") }

package plan

import (
    "context"
    "fmt"
    "log"
    "math"
    "sort"
    "time"

    "showplan/internal/config"
    "showplan/internal/model"
)

// Verifier runs the six-pass rule set over an itinerary. Checks return
// typed results; recover is reserved for genuinely unexpected faults, which
// degrade a single category instead of aborting the pass.
type Verifier struct {
    directions DirectionsProvider
    cfg        config.Planner
}

func NewVerifier(directions DirectionsProvider, cfg config.Planner) *Verifier {
    return &Verifier{directions: directions, cfg: cfg}
}

// Verify produces a VerificationReport for the itinerary. As a side effect
// it synthesizes missing routes for consecutive different-venue events and
// refreshes the derived total duration and cost. A report is always
// returned, even if every category blows up.
func (v *Verifier) Verify(ctx context.Context, it *model.Itinerary) (report model.VerificationReport) {
    defer func() {
        if r := recover(); r != nil {
            log.Printf("plan: verification panic: %v", r)
            report = model.VerificationReport{Details: map[string]model.CheckResult{
                "verification_error": {IsFeasible: false, Issues: []string{fmt.Sprintf("Verification error: %v", r)}},
            }}
            report.Aggregate()
        }
    }()

    report = model.VerificationReport{Details: map[string]model.CheckResult{}}
    report.Details[model.CategoryFormat] = safeCheck(model.CategoryFormat, func() model.CheckResult {
        return v.checkFormat(it)
    })
    report.Details[model.CategoryVenueHours] = safeCheck(model.CategoryVenueHours, func() model.CheckResult {
        return v.checkVenueHours(it)
    })
    report.Details[model.CategoryTravelTimes] = safeCheck(model.CategoryTravelTimes, func() model.CheckResult {
        return v.checkTravelTimes(ctx, it)
    })
    report.Details[model.CategoryActivityDurations] = safeCheck(model.CategoryActivityDurations, func() model.CheckResult {
        return v.checkActivityDurations(it)
    })
    report.Details[model.CategoryBufferTimes] = safeCheck(model.CategoryBufferTimes, func() model.CheckResult {
        return v.checkBufferTimes(it)
    })
    report.Details[model.CategoryOverallTiming] = safeCheck(model.CategoryOverallTiming, func() model.CheckResult {
        return v.checkOverallTiming(it)
    })

    v.updateTotals(it)
    report.Aggregate()
    return report
}

// safeCheck converts a panic inside one category into a single synthetic
// issue so the remaining categories still run.
func safeCheck(name string, fn func() model.CheckResult) (res model.CheckResult) {
    defer func() {
        if r := recover(); r != nil {
            log.Printf("plan: %s check panic: %v", name, r)
            res = model.CheckResult{IsFeasible: false, Issues: []string{fmt.Sprintf("%s verification error: %v", name, r)}}
        }
    }()
    return fn()
}

func (v *Verifier) checkFormat(it *model.Itinerary) model.CheckResult {
    res := model.OK()
    flag := func(format string, args ...any) {
        res.IsFeasible = false
        res.Issues = append(res.Issues, fmt.Sprintf(format, args...))
    }
    if it.Name == "" {
        flag("Missing required field: name")
    }
    if it.Description == "" {
        flag("Missing required field: description")
    }
    if len(it.Events) == 0 {
        flag("Missing required field: events")
    }
    if len(it.Venues) == 0 {
        flag("Missing required field: venues")
    }
    for i, ev := range it.Events {
        n := i + 1
        if ev.ID == "" {
            flag("Event %d missing required field: id", n)
        }
        if ev.Name == "" {
            flag("Event %d missing required field: name", n)
        }
        if ev.Description == "" {
            flag("Event %d missing required field: description", n)
        }
        if ev.VenueName == "" {
            flag("Event %d missing required field: venue_name", n)
        } else if _, ok := it.VenueByName(ev.VenueName); !ok {
            // dangling reference is an issue, not a hard failure
            flag("Event %d references unknown venue: %s", n, ev.VenueName)
        }
        if ev.StartTime == "" {
            flag("Event %d missing required field: start_time", n)
        } else if _, err := parseEventTime(ev.StartTime); err != nil {
            flag("Event %d has invalid start_time format: %s", n, ev.StartTime)
        }
        if ev.EndTime == "" {
            flag("Event %d missing required field: end_time", n)
        } else if _, err := parseEventTime(ev.EndTime); err != nil {
            flag("Event %d has invalid end_time format: %s", n, ev.EndTime)
        }
        if ev.Cost < 0 {
            flag("Event %d has negative cost: %.2f", n, ev.Cost)
        }
    }
    for i, ven := range it.Venues {
        n := i + 1
        if ven.Name == "" {
            flag("Venue %d missing required field: name", n)
        }
        if ven.Address == "" {
            flag("Venue %d missing required field: address", n)
        }
        if ven.Latitude == 0 && ven.Longitude == 0 {
            flag("Venue %d missing coordinates", n)
        }
    }
    return res
}

func (v *Verifier) checkVenueHours(it *model.Itinerary) model.CheckResult {
    res := model.OK()
    for _, ev := range it.Events {
        venue, ok := it.VenueByName(ev.VenueName)
        if !ok {
            continue
        }
        hours := ParseHours(venue.OpeningHours)
        if hours.Kind != HoursRange {
            continue
        }
        start, err := parseEventTime(ev.StartTime)
        if err != nil {
            continue
        }
        end, err := parseEventTime(ev.EndTime)
        if err != nil {
            continue
        }
        opens, closes := hours.Window(start)
        if start.Before(opens) {
            res.IsFeasible = false
            res.Issues = append(res.Issues, fmt.Sprintf("%s is not open at the planned start time. Opens at %s", venue.Name, opens.Format("3:04 PM")))
        }
        if end.After(closes) {
            res.IsFeasible = false
            res.Issues = append(res.Issues, fmt.Sprintf("%s will be closed before the event ends. Closes at %s", venue.Name, closes.Format("3:04 PM")))
        }
    }
    return res
}

func (v *Verifier) checkTravelTimes(ctx context.Context, it *model.Itinerary) model.CheckResult {
    res := model.OK()
    events := sortedEvents(it.Events)
    for i := 0; i+1 < len(events); i++ {
        cur, next := events[i], events[i+1]
        if cur.VenueName == next.VenueName {
            continue
        }
        from, okFrom := it.VenueByName(cur.VenueName)
        to, okTo := it.VenueByName(next.VenueName)
        if !okFrom || !okTo {
            continue
        }
        curEnd, err1 := parseEventTime(cur.EndTime)
        nextStart, err2 := parseEventTime(next.StartTime)
        if err1 != nil || err2 != nil {
            continue
        }
        available := nextStart.Sub(curEnd)

        origin := Coord{Lat: from.Latitude, Lng: from.Longitude}
        dest := Coord{Lat: to.Latitude, Lng: to.Longitude}
        mode := ModeWalking
        if HaversineMeters(origin, dest) > v.cfg.TransitThresholdMeters {
            mode = ModeTransit
        }
        leg := v.route(ctx, origin, dest, mode)
        required := time.Duration(leg.DurationSeconds)*time.Second +
            time.Duration(v.cfg.TravelBufferMinutes)*time.Minute
        feasible := available >= required
        if !feasible {
            res.IsFeasible = false
            res.Issues = append(res.Issues, fmt.Sprintf(
                "Insufficient travel time from %s to %s. Need %.1f minutes, but only %.1f minutes available.",
                cur.VenueName, next.VenueName, required.Minutes(), available.Minutes()))
        }
        if !hasRoute(it.Routes, cur.VenueName, next.VenueName) {
            it.Routes = append(it.Routes, model.Route{
                From:            cur.VenueName,
                To:              next.VenueName,
                TravelMode:      mode,
                Verified:        feasible,
                DistanceMeters:  leg.DistanceMeters,
                DurationSeconds: leg.DurationSeconds,
                Polyline:        leg.Polyline,
                Steps:           leg.Steps,
            })
        }
    }
    return res
}

// route asks the directions provider, falling back to a straight-line
// estimate on any provider failure.
func (v *Verifier) route(ctx context.Context, origin, dest Coord, mode string) Leg {
    if v.directions != nil {
        leg, err := v.directions.Route(ctx, origin, dest, mode)
        if err == nil {
            return leg
        }
        log.Printf("plan: directions provider failed (%v), using estimate", err)
    }
    return EstimateLeg(origin, dest, mode)
}

func (v *Verifier) checkActivityDurations(it *model.Itinerary) model.CheckResult {
    res := model.OK()
    for _, ev := range it.Events {
        start, err1 := parseEventTime(ev.StartTime)
        end, err2 := parseEventTime(ev.EndTime)
        if err1 != nil || err2 != nil {
            continue
        }
        minutes := end.Sub(start).Minutes()
        if minutes < float64(v.cfg.MinEventMinutes) {
            res.IsFeasible = false
            res.Issues = append(res.Issues, fmt.Sprintf("%s has a very short duration (%.1f minutes)", ev.Name, minutes))
        }
        if minutes > float64(v.cfg.MaxEventMinutes) {
            res.IsFeasible = false
            res.Issues = append(res.Issues, fmt.Sprintf("%s has a very long duration (%.1f hours)", ev.Name, minutes/60))
        }
    }
    return res
}

func (v *Verifier) checkBufferTimes(it *model.Itinerary) model.CheckResult {
    res := model.OK()
    events := sortedEvents(it.Events)
    for i := 0; i+1 < len(events); i++ {
        cur, next := events[i], events[i+1]
        curEnd, err1 := parseEventTime(cur.EndTime)
        nextStart, err2 := parseEventTime(next.StartTime)
        if err1 != nil || err2 != nil {
            continue
        }
        gap := nextStart.Sub(curEnd).Minutes()
        switch {
        case gap < 0:
            res.IsFeasible = false
            res.Issues = append(res.Issues, fmt.Sprintf(
                "Events '%s' and '%s' overlap by %.1f minutes", cur.Name, next.Name, -gap))
        case gap > 0 && gap < float64(v.cfg.MinGapMinutes):
            res.IsFeasible = false
            res.Issues = append(res.Issues, fmt.Sprintf(
                "Very short buffer (%.1f minutes) between '%s' and '%s'", gap, cur.Name, next.Name))
        }
    }
    return res
}

func (v *Verifier) checkOverallTiming(it *model.Itinerary) model.CheckResult {
    res := model.OK()
    var first, last time.Time
    for _, ev := range it.Events {
        start, err1 := parseEventTime(ev.StartTime)
        end, err2 := parseEventTime(ev.EndTime)
        if err1 != nil || err2 != nil {
            continue
        }
        if first.IsZero() || start.Before(first) {
            first = start
        }
        if last.IsZero() || end.After(last) {
            last = end
        }
    }
    if first.IsZero() || last.IsZero() {
        return res
    }
    totalHours := last.Sub(first).Hours()
    if totalHours > v.cfg.LongDayHours {
        // warning only, still feasible
        res.Issues = append(res.Issues, fmt.Sprintf(
            "Itinerary is very long (%.2f hours). Consider splitting across multiple days.", totalHours))
    }
    if first.Hour() < v.cfg.EarliestStartHour {
        res.IsFeasible = false
        res.Issues = append(res.Issues, fmt.Sprintf("Itinerary starts very early (%s)", first.Format("15:04")))
    }
    if last.Hour() >= v.cfg.LatestEndHour {
        res.IsFeasible = false
        res.Issues = append(res.Issues, fmt.Sprintf("Itinerary ends very late (%s)", last.Format("15:04")))
    }
    return res
}

// updateTotals refreshes the derived span and cost fields.
func (v *Verifier) updateTotals(it *model.Itinerary) {
    var first, last time.Time
    total := 0.0
    for _, ev := range it.Events {
        total += ev.Cost
        start, err1 := parseEventTime(ev.StartTime)
        end, err2 := parseEventTime(ev.EndTime)
        if err1 != nil || err2 != nil {
            continue
        }
        if first.IsZero() || start.Before(first) {
            first = start
        }
        if last.IsZero() || end.After(last) {
            last = end
        }
    }
    it.TotalCost = round2(total)
    if !first.IsZero() && !last.IsZero() {
        it.TotalDurationHours = round2(last.Sub(first).Hours())
    }
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func hasRoute(routes []model.Route, from, to string) bool {
    for _, r := range routes {
        if r.From == from && r.To == to {
            return true
        }
    }
    return false
}

// sortedEvents returns events ordered by start time; events with
// unparseable starts sort last, preserving their relative order.
func sortedEvents(events []model.Event) []model.Event {
    out := append([]model.Event(nil), events...)
    sort.SliceStable(out, func(i, j int) bool {
        ti, erri := parseEventTime(out[i].StartTime)
        tj, errj := parseEventTime(out[j].StartTime)
        if erri != nil {
            return false
        }
        if errj != nil {
            return true
        }
        return ti.Before(tj)
    })
    return out
}

package plan

import (
    "context"
    "testing"
    "time"

    "showplan/internal/config"
    "showplan/internal/model"
)

func newTestFixer() *Fixer { return NewFixer(config.Default().Planner) }

func TestFixFormatClosure(t *testing.T) {
    it := model.Itinerary{
        Events: []model.Event{
            {StartTime: "whenever", VenueName: "Nowhere"},
            {},
        },
        Venues: []model.Venue{{OpeningHours: ""}},
    }
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    if report.Details[model.CategoryFormat].IsFeasible {
        t.Fatal("fixture should fail the format check")
    }

    fixed := newTestFixer().Fix(it, report)
    after := v.Verify(context.Background(), &fixed)
    if res := after.Details[model.CategoryFormat]; !res.IsFeasible {
        t.Fatalf("format issues survived repair: %v", res.Issues)
    }
    if fixed.Events[0].ID == "" || fixed.Events[0].VenueName != fixed.Venues[0].Name {
        t.Errorf("event not backfilled: %+v", fixed.Events[0])
    }
}

func TestFixVenueHoursClamp(t *testing.T) {
    it := broadwayItinerary()
    it.Events[0].StartTime = ts(8, 0)
    it.Events[0].EndTime = ts(10, 0)
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    if report.Details[model.CategoryVenueHours].IsFeasible {
        t.Fatal("fixture should fail the venue hours check")
    }

    fixed := newTestFixer().Fix(it, report)
    ev := fixed.Events[0]
    if ev.StartTime != ts(11, 0) || ev.EndTime != ts(13, 0) {
        t.Errorf("clamp = %s - %s, want %s - %s", ev.StartTime, ev.EndTime, ts(11, 0), ts(13, 0))
    }
    after := v.Verify(context.Background(), &fixed)
    if res := after.Details[model.CategoryVenueHours]; !res.IsFeasible {
        t.Errorf("venue hours issues survived repair: %v", res.Issues)
    }
}

func TestFixBufferOverlap(t *testing.T) {
    it := broadwayItinerary()
    it.Events[0].StartTime = ts(13, 0)
    it.Events[0].EndTime = ts(14, 0)
    it.Events[1].StartTime = ts(13, 45)
    it.Events[1].EndTime = ts(15, 0)
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)

    fixed := newTestFixer().Fix(it, report)
    later := fixed.Events[1]
    if later.StartTime != ts(14, 15) {
        t.Errorf("later event starts at %s, want %s", later.StartTime, ts(14, 15))
    }
    if later.EndTime != ts(15, 30) {
        t.Errorf("duration not preserved: ends at %s, want %s", later.EndTime, ts(15, 30))
    }
}

func TestFixTravelTimes(t *testing.T) {
    it := broadwayItinerary()
    // Theater far uptown, curtain two minutes after dinner ends.
    it.Venues[1].Latitude = 40.83
    it.Events[1].StartTime = ts(18, 32)
    it.Events[1].EndTime = ts(21, 2)
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    if report.Details[model.CategoryTravelTimes].IsFeasible {
        t.Fatal("fixture should fail the travel time check")
    }

    fixed := newTestFixer().Fix(it, report)
    prevEnd, _ := parseEventTime(fixed.Events[0].EndTime)
    curStart, _ := parseEventTime(fixed.Events[1].StartTime)
    curEnd, _ := parseEventTime(fixed.Events[1].EndTime)
    origin := Coord{Lat: fixed.Venues[0].Latitude, Lng: fixed.Venues[0].Longitude}
    dest := Coord{Lat: fixed.Venues[1].Latitude, Lng: fixed.Venues[1].Longitude}
    travel := EstimateLeg(origin, dest, ModeTransit).DurationSeconds
    if got := int(curStart.Sub(prevEnd).Seconds()); got < travel {
        t.Errorf("gap %ds does not cover estimated travel %ds", got, travel)
    }
    if curEnd.Sub(curStart) != 150*time.Minute {
        t.Errorf("duration not preserved: %v", curEnd.Sub(curStart))
    }
}

func TestFixRegeneratesRoutes(t *testing.T) {
    it := broadwayItinerary()
    it.Routes = []model.Route{{From: "Stale", To: "Entry", TravelMode: ModeDriving}}
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)

    fixed := newTestFixer().Fix(it, report)
    if len(fixed.Routes) != 2 {
        t.Fatalf("routes = %d, want 2", len(fixed.Routes))
    }
    if r := fixed.Routes[0]; r.From != model.CurrentLocation || r.To != "Carmine's" || r.TravelMode != ModeWalking {
        t.Errorf("unexpected leading route: %+v", r)
    }
    if r := fixed.Routes[1]; r.From != "Carmine's" || r.To != "Majestic Theatre" {
        t.Errorf("unexpected route: %+v", r)
    }
}

func TestFixDoesNotMutateInput(t *testing.T) {
    it := broadwayItinerary()
    it.Events[1].StartTime = ts(18, 35)
    it.Events[1].EndTime = ts(21, 5)
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    before := it.Events[1].StartTime

    newTestFixer().Fix(it, report)
    if it.Events[1].StartTime != before {
        t.Errorf("input itinerary mutated: %s", it.Events[1].StartTime)
    }
}

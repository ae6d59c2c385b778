package plan

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "testing"

    "showplan/internal/config"
    "showplan/internal/model"
)

func ts(hour, min int) string {
    return fmt.Sprintf("2026-09-12T%02d:%02d:00", hour, min)
}

// broadwayItinerary is a feasible dinner-and-a-show plan in the Theater
// District. Tests mutate copies of it to trigger individual checks.
func broadwayItinerary() model.Itinerary {
    return model.Itinerary{
        Name:        "Broadway Evening",
        Description: "Dinner and a show in the Theater District",
        Venues: []model.Venue{
            {Name: "Carmine's", Address: "200 W 44th St, New York, NY", Latitude: 40.7561, Longitude: -73.9870, OpeningHours: "11:00 AM - 11:00 PM"},
            {Name: "Majestic Theatre", Address: "245 W 44th St, New York, NY", Latitude: 40.7588, Longitude: -73.9875, OpeningHours: "Varies by event"},
        },
        Events: []model.Event{
            {ID: "event1", Name: "Dinner at Carmine's", Description: "Family-style Italian", StartTime: ts(17, 0), EndTime: ts(18, 30), VenueName: "Carmine's", Cost: 85},
            {ID: "event2", Name: "Evening Show", Description: "Broadway performance", StartTime: ts(20, 0), EndTime: ts(22, 30), VenueName: "Majestic Theatre", Cost: 150},
        },
    }
}

func newTestVerifier(p DirectionsProvider) *Verifier {
    return NewVerifier(p, config.Default().Planner)
}

func TestVerifyFeasibleItinerary(t *testing.T) {
    it := broadwayItinerary()
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    if !report.IsFeasible {
        t.Fatalf("expected feasible, got issues: %v", report.AllIssues)
    }
    if report.TotalIssues != 0 {
        t.Errorf("TotalIssues = %d, want 0", report.TotalIssues)
    }
    for _, cat := range model.Categories() {
        if _, ok := report.Details[cat]; !ok {
            t.Errorf("missing category %q in details", cat)
        }
    }
    if len(it.Routes) != 1 {
        t.Fatalf("routes = %d, want 1", len(it.Routes))
    }
    r := it.Routes[0]
    if r.From != "Carmine's" || r.To != "Majestic Theatre" || r.TravelMode != ModeWalking || !r.Verified {
        t.Errorf("unexpected route: %+v", r)
    }
    if it.TotalCost != 235 {
        t.Errorf("TotalCost = %v, want 235", it.TotalCost)
    }
    if it.TotalDurationHours != 5.5 {
        t.Errorf("TotalDurationHours = %v, want 5.5", it.TotalDurationHours)
    }
}

func TestRound2HalfAwayFromZero(t *testing.T) {
    if got := round2(4.625); got != 4.63 {
        t.Errorf("round2(4.625) = %v, want 4.63", got)
    }
    if got := round2(-4.625); got != -4.63 {
        t.Errorf("round2(-4.625) = %v, want -4.63", got)
    }
}

func TestVerifyTotalsWithNegativeCosts(t *testing.T) {
    it := broadwayItinerary()
    it.Events[0].Cost = -4.625
    it.Events[1].Cost = 0
    v := newTestVerifier(nil)
    v.Verify(context.Background(), &it)
    if it.TotalCost != -4.63 {
        t.Errorf("TotalCost = %v, want -4.63", it.TotalCost)
    }
}

func TestVerifyIdempotent(t *testing.T) {
    it := broadwayItinerary()
    v := newTestVerifier(nil)
    first := v.Verify(context.Background(), &it)
    second := v.Verify(context.Background(), &it)
    if first.IsFeasible != second.IsFeasible || first.TotalIssues != second.TotalIssues {
        t.Errorf("verify not idempotent: %+v vs %+v", first, second)
    }
    if len(it.Routes) != 1 {
        t.Errorf("routes duplicated on re-verify: %d", len(it.Routes))
    }
}

func TestVerifyFormatIssues(t *testing.T) {
    it := model.Itinerary{
        Events: []model.Event{
            {StartTime: "lunchtime", EndTime: ts(14, 0), VenueName: "Nowhere", Cost: -5},
        },
        Venues: []model.Venue{{}},
    }
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    res := report.Details[model.CategoryFormat]
    if res.IsFeasible {
        t.Fatal("expected format check to fail")
    }
    for _, want := range []string{
        "Missing required field: name",
        "Missing required field: description",
        "Event 1 missing required field: id",
        "Event 1 references unknown venue: Nowhere",
        "Event 1 has invalid start_time format: lunchtime",
        "Event 1 has negative cost: -5.00",
        "Venue 1 missing required field: name",
        "Venue 1 missing coordinates",
    } {
        if !containsIssue(res.Issues, want) {
            t.Errorf("missing issue %q in %v", want, res.Issues)
        }
    }
}

func TestVerifyVenueHours(t *testing.T) {
    it := broadwayItinerary()
    it.Events[0].StartTime = ts(10, 0)
    it.Events[0].EndTime = ts(11, 30)
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    res := report.Details[model.CategoryVenueHours]
    if res.IsFeasible {
        t.Fatal("expected venue hours check to fail")
    }
    if !containsIssue(res.Issues, "Carmine's is not open at the planned start time. Opens at 11:00 AM") {
        t.Errorf("unexpected issues: %v", res.Issues)
    }

    it = broadwayItinerary()
    it.Events[0].StartTime = ts(21, 30)
    it.Events[0].EndTime = ts(23, 30)
    it.Events[1].StartTime = ts(13, 0)
    it.Events[1].EndTime = ts(15, 30)
    report = v.Verify(context.Background(), &it)
    res = report.Details[model.CategoryVenueHours]
    if !containsIssue(res.Issues, "Carmine's will be closed before the event ends. Closes at 11:00 PM") {
        t.Errorf("unexpected issues: %v", res.Issues)
    }
}

type fixedDirections struct {
    leg Leg
    err error
}

func (f fixedDirections) Route(context.Context, Coord, Coord, string) (Leg, error) {
    return f.leg, f.err
}

func TestVerifyTravelTimes(t *testing.T) {
    it := broadwayItinerary()
    it.Events[1].StartTime = ts(19, 0) // 30 minutes after dinner ends
    it.Events[1].EndTime = ts(21, 30)
    // 5 km at walking pace is roughly an hour; 30 minutes cannot cover it.
    v := newTestVerifier(fixedDirections{leg: Leg{DistanceMeters: 5000, DurationSeconds: 3570}})
    report := v.Verify(context.Background(), &it)
    res := report.Details[model.CategoryTravelTimes]
    if res.IsFeasible {
        t.Fatal("expected travel time check to fail")
    }
    want := "Insufficient travel time from Carmine's to Majestic Theatre. Need 69.5 minutes, but only 30.0 minutes available."
    if !containsIssue(res.Issues, want) {
        t.Errorf("issues = %v, want %q", res.Issues, want)
    }
    if len(it.Routes) != 1 || it.Routes[0].Verified {
        t.Errorf("expected one unverified route, got %+v", it.Routes)
    }
}

func TestVerifyTravelProviderFallback(t *testing.T) {
    it := broadwayItinerary()
    v := newTestVerifier(fixedDirections{err: errors.New("quota exceeded")})
    report := v.Verify(context.Background(), &it)
    if !report.Details[model.CategoryTravelTimes].IsFeasible {
        t.Errorf("estimate fallback should keep the plan feasible: %v", report.AllIssues)
    }
    if len(it.Routes) != 1 || it.Routes[0].DurationSeconds == 0 {
        t.Errorf("expected estimated route, got %+v", it.Routes)
    }
}

func TestVerifyTravelModeSelection(t *testing.T) {
    it := broadwayItinerary()
    // Move the theater far enough uptown that walking is off the table.
    it.Venues[1].Latitude = 40.83
    v := newTestVerifier(nil)
    v.Verify(context.Background(), &it)
    if len(it.Routes) != 1 || it.Routes[0].TravelMode != ModeTransit {
        t.Errorf("expected transit route, got %+v", it.Routes)
    }
}

func TestVerifyActivityDurations(t *testing.T) {
    it := broadwayItinerary()
    it.Events[0].EndTime = ts(17, 10)
    it.Events[1].EndTime = "2026-09-13T01:00:00"
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    res := report.Details[model.CategoryActivityDurations]
    if res.IsFeasible {
        t.Fatal("expected activity duration check to fail")
    }
    if !containsIssue(res.Issues, "Dinner at Carmine's has a very short duration (10.0 minutes)") {
        t.Errorf("missing short-duration issue: %v", res.Issues)
    }
    if !containsIssue(res.Issues, "Evening Show has a very long duration (5.0 hours)") {
        t.Errorf("missing long-duration issue: %v", res.Issues)
    }
}

func TestVerifyBufferTimes(t *testing.T) {
    it := broadwayItinerary()
    it.Events[1].StartTime = ts(18, 15) // starts before dinner ends
    it.Events[1].EndTime = ts(20, 45)
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    res := report.Details[model.CategoryBufferTimes]
    if !containsIssue(res.Issues, "Events 'Dinner at Carmine's' and 'Evening Show' overlap by 15.0 minutes") {
        t.Errorf("missing overlap issue: %v", res.Issues)
    }

    it = broadwayItinerary()
    it.Events[1].StartTime = ts(18, 35) // five minute gap
    it.Events[1].EndTime = ts(21, 5)
    report = v.Verify(context.Background(), &it)
    res = report.Details[model.CategoryBufferTimes]
    if !containsIssue(res.Issues, "Very short buffer (5.0 minutes) between 'Dinner at Carmine's' and 'Evening Show'") {
        t.Errorf("missing short-buffer issue: %v", res.Issues)
    }
}

func TestVerifyOverallTiming(t *testing.T) {
    it := broadwayItinerary()
    it.Events[0].StartTime = ts(6, 0)
    it.Events[0].EndTime = ts(7, 30)
    it.Events[1].StartTime = ts(21, 30)
    it.Events[1].EndTime = ts(23, 30)
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    res := report.Details[model.CategoryOverallTiming]
    if res.IsFeasible {
        t.Fatal("expected overall timing check to fail")
    }
    if !containsIssue(res.Issues, "Itinerary starts very early (06:00)") {
        t.Errorf("missing early-start issue: %v", res.Issues)
    }
    if !containsIssue(res.Issues, "Itinerary ends very late (23:30)") {
        t.Errorf("missing late-end issue: %v", res.Issues)
    }
    if !containsIssue(res.Issues, "Itinerary is very long (17.50 hours). Consider splitting across multiple days.") {
        t.Errorf("missing long-day warning: %v", res.Issues)
    }
}

func TestVerifyLongDayIsWarningOnly(t *testing.T) {
    it := broadwayItinerary()
    it.Events[0].StartTime = ts(8, 0)
    it.Events[0].EndTime = ts(9, 30)
    v := newTestVerifier(nil)
    report := v.Verify(context.Background(), &it)
    res := report.Details[model.CategoryOverallTiming]
    if !res.IsFeasible {
        t.Fatalf("long day should stay feasible: %v", res.Issues)
    }
    if len(res.Issues) != 1 || !strings.Contains(res.Issues[0], "very long") {
        t.Errorf("expected a single long-day warning, got %v", res.Issues)
    }
}

func TestSafeCheckRecoversPanic(t *testing.T) {
    res := safeCheck("travel_times", func() model.CheckResult {
        panic("boom")
    })
    if res.IsFeasible {
        t.Fatal("panicking check must be infeasible")
    }
    if len(res.Issues) != 1 || !strings.Contains(res.Issues[0], "boom") {
        t.Errorf("unexpected issues: %v", res.Issues)
    }
}

func containsIssue(issues []string, want string) bool {
    for _, s := range issues {
        if s == want {
            return true
        }
    }
    return false
}

package model

// Core domain types. The itinerary-shaped structs use the snake_case wire
// schema the plan source is asked to emit; request/response wrappers follow
// the API's camelCase convention.

// PlanRequest is the user's natural-language planning request plus
// structured preferences.
type PlanRequest struct {
    RouteName        string         `json:"routeName,omitempty"`
    Theme            string         `json:"theme,omitempty"`
    TransportModes   []string       `json:"transportModes,omitempty"`
    MeasurementType  string         `json:"measurementType,omitempty"`
    MeasurementValue float64        `json:"measurementValue,omitempty"`
    Budget           *Budget        `json:"budget,omitempty"`
    CustomPrompt     string         `json:"customPrompt,omitempty"`
    MaxAttempts      int            `json:"maxAttempts,omitempty"`
    Attributes       map[string]any `json:"attributes,omitempty"`
}

type Budget struct {
    Max float64 `json:"max"`
}

// Itinerary is the unit of work: the full candidate plan under
// verification and refinement.
type Itinerary struct {
    Name               string  `json:"name"`
    Description        string  `json:"description"`
    Events             []Event `json:"events"`
    Venues             []Venue `json:"venues"`
    Routes             []Route `json:"routes,omitempty"`
    TotalDurationHours float64 `json:"total_duration_hours,omitempty"`
    TotalCost          float64 `json:"total_cost,omitempty"`
}

// Clone returns a deep copy. Repair passes work on clones so the caller's
// itinerary is never mutated in place.
func (it Itinerary) Clone() Itinerary {
    out := it
    out.Events = append([]Event(nil), it.Events...)
    out.Venues = append([]Venue(nil), it.Venues...)
    out.Routes = make([]Route, len(it.Routes))
    for i, r := range it.Routes {
        out.Routes[i] = r
        out.Routes[i].Steps = append([]RouteStep(nil), r.Steps...)
    }
    return out
}

// VenueByName returns the venue with the given name, if present.
func (it Itinerary) VenueByName(name string) (Venue, bool) {
    for _, v := range it.Venues {
        if v.Name == name {
            return v, true
        }
    }
    return Venue{}, false
}

type Venue struct {
    Name         string  `json:"name"`
    Address      string  `json:"address"`
    Latitude     float64 `json:"latitude"`
    Longitude    float64 `json:"longitude"`
    OpeningHours string  `json:"opening_hours,omitempty"`
    PlaceID      string  `json:"place_id,omitempty"`
}

type Event struct {
    ID          string  `json:"id"`
    Name        string  `json:"name"`
    Description string  `json:"description"`
    StartTime   string  `json:"start_time"`
    EndTime     string  `json:"end_time"`
    VenueName   string  `json:"venue_name"`
    Cost        float64 `json:"cost"`
}

// CurrentLocation is the sentinel origin for routes that start at the
// user's position rather than a named venue.
const CurrentLocation = "Current Location"

// Route is derived, never user-authored. Routes are keyed by (From, To).
type Route struct {
    From            string      `json:"from"`
    To              string      `json:"to"`
    TravelMode      string      `json:"travel_mode"`
    Verified        bool        `json:"verified"`
    DistanceMeters  int         `json:"distance_meters"`
    DurationSeconds int         `json:"duration_seconds"`
    Polyline        string      `json:"polyline,omitempty"`
    Steps           []RouteStep `json:"steps,omitempty"`
}

type RouteStep struct {
    Instruction     string `json:"instruction"`
    DistanceMeters  int    `json:"distance_meters"`
    DurationSeconds int    `json:"duration_seconds"`
}

// Verification categories, in fix order.
const (
    CategoryFormat            = "format"
    CategoryVenueHours        = "venue_hours"
    CategoryTravelTimes       = "travel_times"
    CategoryActivityDurations = "activity_durations"
    CategoryBufferTimes       = "buffer_times"
    CategoryOverallTiming     = "overall_timing"
)

// Categories returns the verification categories in fix order.
func Categories() []string {
    return []string{
        CategoryFormat,
        CategoryVenueHours,
        CategoryTravelTimes,
        CategoryActivityDurations,
        CategoryBufferTimes,
        CategoryOverallTiming,
    }
}

// CheckResult is the outcome of a single verification category.
type CheckResult struct {
    IsFeasible bool     `json:"is_feasible"`
    Issues     []string `json:"issues"`
}

// OK is a passing check with no issues.
func OK() CheckResult { return CheckResult{IsFeasible: true, Issues: []string{}} }

// VerificationReport aggregates all category results. It is both the
// machine-checked outcome and the text fed back into the next prompt.
type VerificationReport struct {
    IsFeasible  bool                   `json:"is_feasible"`
    TotalIssues int                    `json:"total_issues"`
    AllIssues   []string               `json:"all_issues"`
    Details     map[string]CheckResult `json:"details"`
}

// Aggregate recomputes the top-level fields from Details: feasibility is the
// AND of every category, TotalIssues the sum, AllIssues the concatenation in
// category fix order.
func (r *VerificationReport) Aggregate() {
    r.IsFeasible = true
    r.AllIssues = []string{}
    seen := map[string]bool{}
    appendCat := func(name string) {
        res, ok := r.Details[name]
        if !ok {
            return
        }
        seen[name] = true
        if !res.IsFeasible {
            r.IsFeasible = false
        }
        r.AllIssues = append(r.AllIssues, res.Issues...)
    }
    for _, name := range Categories() {
        appendCat(name)
    }
    // synthetic categories (e.g. verification_error) land after the fixed set
    for name := range r.Details {
        if !seen[name] {
            appendCat(name)
        }
    }
    r.TotalIssues = len(r.AllIssues)
}

// Attempt records one generate/verify cycle within a run.
type Attempt struct {
    Attempt      int                `json:"attempt"`
    Itinerary    Itinerary          `json:"itinerary"`
    Verification VerificationReport `json:"verification"`
}

// RunResult is what the iteration controller returns: the best itinerary
// found, its report, and the full attempt history.
type RunResult struct {
    FinalItinerary Itinerary          `json:"final_itinerary"`
    Verification   VerificationReport `json:"verification"`
    IsValid        bool               `json:"is_valid"`
    Attempts       []Attempt          `json:"attempts"`
    TotalAttempts  int                `json:"total_attempts"`
}

// PlanRun is a persisted planning run.
type PlanRun struct {
    ID        string      `json:"id"`
    TenantID  string      `json:"tenantId"`
    Status    string      `json:"status"` // running, completed, infeasible, failed
    Request   PlanRequest `json:"request"`
    Result    *RunResult  `json:"result,omitempty"`
    CreatedAt string      `json:"createdAt,omitempty"`
    UpdatedAt string      `json:"updatedAt,omitempty"`
}

// VenueRecord is a canonical venue resolved by the lookup provider.
type VenueRecord struct {
    Name      string  `json:"name"`
    Address   string  `json:"address"`
    Latitude  float64 `json:"latitude"`
    Longitude float64 `json:"longitude"`
    PlaceID   string  `json:"placeId"`
}

type SubscriptionRequest struct {
    TenantID string   `json:"tenantId"`
    URL      string   `json:"url"`
    Events   []string `json:"events"`
    Secret   string   `json:"secret"`
}

type Subscription struct {
    ID       string   `json:"id"`
    TenantID string   `json:"tenantId"`
    URL      string   `json:"url"`
    Events   []string `json:"events"`
    Secret   string   `json:"secret,omitempty"`
}

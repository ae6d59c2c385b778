package maps

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "regexp"
    "strconv"
    "strings"
    "sync"
    "time"

    "golang.org/x/time/rate"

    "showplan/internal/config"
    "showplan/internal/model"
    "showplan/internal/plan"
)

// ErrNoAPIKey is returned when the client is constructed without a key;
// callers are expected to fall back to estimates.
var ErrNoAPIKey = errors.New("maps: no API key configured")

const (
    defaultRoutesURL = "https://routes.googleapis.com/directions/v2:computeRoutes"
    defaultPlacesURL = "https://places.googleapis.com/v1/places:searchText"
)

// Client talks to the Google Routes and Places APIs. Route results are
// cached per (origin, destination, mode) for the lifetime of the client and
// all outbound calls share one rate limiter.
type Client struct {
    apiKey    string
    routesURL string
    placesURL string
    httpc     *http.Client
    limiter   *rate.Limiter

    mu    sync.Mutex
    cache map[string]plan.Leg
}

func NewClient(cfg config.Google) *Client {
    rps := cfg.RateLimitPerSec
    if rps <= 0 {
        rps = 10
    }
    burst := int(rps)
    if burst < 1 {
        burst = 1
    }
    timeout := cfg.Timeout
    if timeout <= 0 {
        timeout = 10 * time.Second
    }
    return &Client{
        apiKey:    cfg.APIKey,
        routesURL: defaultRoutesURL,
        placesURL: defaultPlacesURL,
        httpc:     &http.Client{Timeout: timeout},
        limiter:   rate.NewLimiter(rate.Limit(rps), burst),
        cache:     map[string]plan.Leg{},
    }
}

var travelModes = map[string]string{
    plan.ModeWalking:   "WALK",
    plan.ModeBicycling: "BICYCLE",
    plan.ModeTransit:   "TRANSIT",
    plan.ModeDriving:   "DRIVE",
}

type latLng struct {
    Latitude  float64 `json:"latitude"`
    Longitude float64 `json:"longitude"`
}

type waypoint struct {
    Location struct {
        LatLng latLng `json:"latLng"`
    } `json:"location"`
}

type computeRoutesRequest struct {
    Origin                   waypoint `json:"origin"`
    Destination              waypoint `json:"destination"`
    TravelMode               string   `json:"travelMode"`
    ComputeAlternativeRoutes bool     `json:"computeAlternativeRoutes"`
}

type computeRoutesResponse struct {
    Routes []struct {
        Duration       string `json:"duration"`
        DistanceMeters int    `json:"distanceMeters"`
        Polyline       struct {
            EncodedPolyline string `json:"encodedPolyline"`
        } `json:"polyline"`
        Legs []struct {
            Steps []struct {
                NavigationInstruction struct {
                    Instructions string `json:"instructions"`
                } `json:"navigationInstruction"`
                DistanceMeters int    `json:"distanceMeters"`
                StaticDuration string `json:"staticDuration"`
            } `json:"steps"`
        } `json:"legs"`
    } `json:"routes"`
}

// Route implements plan.DirectionsProvider.
func (c *Client) Route(ctx context.Context, origin, dest plan.Coord, mode string) (plan.Leg, error) {
    if c.apiKey == "" {
        return plan.Leg{}, ErrNoAPIKey
    }
    key := fmt.Sprintf("%.5f,%.5f|%.5f,%.5f|%s", origin.Lat, origin.Lng, dest.Lat, dest.Lng, mode)
    c.mu.Lock()
    leg, ok := c.cache[key]
    c.mu.Unlock()
    if ok {
        return leg, nil
    }

    apiMode, ok := travelModes[mode]
    if !ok {
        return plan.Leg{}, fmt.Errorf("maps: unsupported travel mode %q", mode)
    }
    reqBody := computeRoutesRequest{TravelMode: apiMode}
    reqBody.Origin.Location.LatLng = latLng{Latitude: origin.Lat, Longitude: origin.Lng}
    reqBody.Destination.Location.LatLng = latLng{Latitude: dest.Lat, Longitude: dest.Lng}

    var resp computeRoutesResponse
    fieldMask := "routes.duration,routes.distanceMeters,routes.polyline.encodedPolyline,routes.legs.steps"
    if err := c.post(ctx, c.routesURL, fieldMask, reqBody, &resp); err != nil {
        return plan.Leg{}, err
    }
    if len(resp.Routes) == 0 {
        return plan.Leg{}, errors.New("maps: no route found")
    }
    r := resp.Routes[0]
    leg = plan.Leg{
        DistanceMeters:  r.DistanceMeters,
        DurationSeconds: parseSeconds(r.Duration),
        Polyline:        r.Polyline.EncodedPolyline,
    }
    for _, l := range r.Legs {
        for _, s := range l.Steps {
            leg.Steps = append(leg.Steps, model.RouteStep{
                Instruction:     stripTags(s.NavigationInstruction.Instructions),
                DistanceMeters:  s.DistanceMeters,
                DurationSeconds: parseSeconds(s.StaticDuration),
            })
        }
    }

    c.mu.Lock()
    c.cache[key] = leg
    c.mu.Unlock()
    return leg, nil
}

type searchTextRequest struct {
    TextQuery string `json:"textQuery"`
}

type searchTextResponse struct {
    Places []struct {
        ID          string `json:"id"`
        DisplayName struct {
            Text string `json:"text"`
        } `json:"displayName"`
        FormattedAddress string `json:"formattedAddress"`
        Location         latLng `json:"location"`
    } `json:"places"`
}

// FindVenue implements plan.VenueFinder via Places text search. The near
// hint is appended to the query; Broadway queries resolve fine without it.
func (c *Client) FindVenue(ctx context.Context, query, near string) (model.VenueRecord, bool, error) {
    if c.apiKey == "" {
        return model.VenueRecord{}, false, ErrNoAPIKey
    }
    if near != "" {
        query = query + " near " + near
    }
    var resp searchTextResponse
    fieldMask := "places.id,places.displayName,places.formattedAddress,places.location"
    if err := c.post(ctx, c.placesURL, fieldMask, searchTextRequest{TextQuery: query}, &resp); err != nil {
        return model.VenueRecord{}, false, err
    }
    if len(resp.Places) == 0 {
        return model.VenueRecord{}, false, nil
    }
    p := resp.Places[0]
    return model.VenueRecord{
        Name:      p.DisplayName.Text,
        Address:   p.FormattedAddress,
        Latitude:  p.Location.Latitude,
        Longitude: p.Location.Longitude,
        PlaceID:   p.ID,
    }, true, nil
}

func (c *Client) post(ctx context.Context, url, fieldMask string, in, out any) error {
    if err := c.limiter.Wait(ctx); err != nil {
        return err
    }
    body, err := json.Marshal(in)
    if err != nil {
        return fmt.Errorf("maps: marshal request: %w", err)
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Goog-Api-Key", c.apiKey)
    req.Header.Set("X-Goog-FieldMask", fieldMask)
    resp, err := c.httpc.Do(req)
    if err != nil {
        return fmt.Errorf("maps: request failed: %w", err)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        return fmt.Errorf("maps: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
    }
    return json.NewDecoder(resp.Body).Decode(out)
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// stripTags removes markup some instruction payloads carry.
func stripTags(s string) string { return tagPattern.ReplaceAllString(s, "") }

// parseSeconds decodes protobuf-style duration strings like "3600s".
func parseSeconds(s string) int {
    s = strings.TrimSuffix(s, "s")
    if s == "" {
        return 0
    }
    f, err := strconv.ParseFloat(s, 64)
    if err != nil {
        return 0
    }
    return int(f)
}

// Package config loads planner configuration from an optional YAML file
// with environment-variable overrides for secrets and deployment knobs.
package config

import (
    "os"
    "strconv"
    "time"

    "gopkg.in/yaml.v3"
)

// Planner holds the verification and repair thresholds. Zero values are
// replaced by defaults in Load.
type Planner struct {
    // MaxAttempts bounds the generate/verify/refine loop.
    MaxAttempts int `yaml:"max_attempts"`
    // TravelBufferMinutes is added on top of provider travel time when
    // checking gaps between events.
    TravelBufferMinutes int `yaml:"travel_buffer_minutes"`
    // MinGapMinutes is the minimum buffer between consecutive events.
    MinGapMinutes int `yaml:"min_gap_minutes"`
    // MinEventMinutes / MaxEventMinutes bound sane activity durations.
    MinEventMinutes int `yaml:"min_event_minutes"`
    MaxEventMinutes int `yaml:"max_event_minutes"`
    // LongDayHours triggers a split-the-day warning (not infeasible).
    LongDayHours float64 `yaml:"long_day_hours"`
    // EarliestStartHour / LatestEndHour bound the overall schedule.
    EarliestStartHour int `yaml:"earliest_start_hour"`
    LatestEndHour     int `yaml:"latest_end_hour"`
    // TransitThresholdMeters switches the travel mode from walking to
    // transit for longer hops.
    TransitThresholdMeters float64 `yaml:"transit_threshold_meters"`
    // AnchorLat/AnchorLng seed default coordinates for venues missing
    // them (Times Square).
    AnchorLat float64 `yaml:"anchor_lat"`
    AnchorLng float64 `yaml:"anchor_lng"`
}

type OpenAI struct {
    APIKey  string `yaml:"api_key"`
    Model   string `yaml:"model"`
    BaseURL string `yaml:"base_url"`
}

type Google struct {
    APIKey string `yaml:"api_key"`
    // RateLimitPerSec throttles outbound Routes/Places calls; 0 means
    // no limiter.
    RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
    Timeout         time.Duration `yaml:"timeout"`
}

type Config struct {
    Planner Planner `yaml:"planner"`
    OpenAI  OpenAI  `yaml:"openai"`
    Google  Google  `yaml:"google"`
}

// Default returns the configuration matching the planner's built-in rules.
func Default() *Config {
    return &Config{
        Planner: Planner{
            MaxAttempts:            3,
            TravelBufferMinutes:    10,
            MinGapMinutes:          15,
            MinEventMinutes:        15,
            MaxEventMinutes:        240,
            LongDayHours:           12,
            EarliestStartHour:      7,
            LatestEndHour:          23,
            TransitThresholdMeters: 5000,
            AnchorLat:              40.7580,
            AnchorLng:              -73.9855,
        },
        OpenAI: OpenAI{Model: "gpt-4o"},
        Google: Google{RateLimitPerSec: 10, Timeout: 10 * time.Second},
    }
}

// Load reads the YAML file at path (skipped when path is empty or missing)
// and then applies environment overrides.
func Load(path string) (*Config, error) {
    cfg := Default()
    if path != "" {
        data, err := os.ReadFile(path)
        if err != nil {
            if !os.IsNotExist(err) {
                return nil, err
            }
        } else if err := yaml.Unmarshal(data, cfg); err != nil {
            return nil, err
        }
    }
    cfg.applyEnv()
    cfg.applyDefaults()
    return cfg, nil
}

// FromEnv loads the config path from SHOWPLAN_CONFIG.
func FromEnv() (*Config, error) { return Load(os.Getenv("SHOWPLAN_CONFIG")) }

func (c *Config) applyEnv() {
    if v := os.Getenv("OPENAI_API_KEY"); v != "" {
        c.OpenAI.APIKey = v
    }
    if v := os.Getenv("OPENAI_MODEL_NAME"); v != "" {
        c.OpenAI.Model = v
    }
    if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
        c.OpenAI.BaseURL = v
    }
    if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
        c.Google.APIKey = v
    }
    if v := os.Getenv("PLAN_MAX_ATTEMPTS"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            c.Planner.MaxAttempts = n
        }
    }
}

func (c *Config) applyDefaults() {
    d := Default()
    if c.Planner.MaxAttempts <= 0 {
        c.Planner.MaxAttempts = d.Planner.MaxAttempts
    }
    if c.Planner.TravelBufferMinutes <= 0 {
        c.Planner.TravelBufferMinutes = d.Planner.TravelBufferMinutes
    }
    if c.Planner.MinGapMinutes <= 0 {
        c.Planner.MinGapMinutes = d.Planner.MinGapMinutes
    }
    if c.Planner.MinEventMinutes <= 0 {
        c.Planner.MinEventMinutes = d.Planner.MinEventMinutes
    }
    if c.Planner.MaxEventMinutes <= 0 {
        c.Planner.MaxEventMinutes = d.Planner.MaxEventMinutes
    }
    if c.Planner.LongDayHours <= 0 {
        c.Planner.LongDayHours = d.Planner.LongDayHours
    }
    if c.Planner.EarliestStartHour <= 0 {
        c.Planner.EarliestStartHour = d.Planner.EarliestStartHour
    }
    if c.Planner.LatestEndHour <= 0 {
        c.Planner.LatestEndHour = d.Planner.LatestEndHour
    }
    if c.Planner.TransitThresholdMeters <= 0 {
        c.Planner.TransitThresholdMeters = d.Planner.TransitThresholdMeters
    }
    if c.Planner.AnchorLat == 0 && c.Planner.AnchorLng == 0 {
        c.Planner.AnchorLat = d.Planner.AnchorLat
        c.Planner.AnchorLng = d.Planner.AnchorLng
    }
    if c.OpenAI.Model == "" {
        c.OpenAI.Model = d.OpenAI.Model
    }
    if c.Google.Timeout <= 0 {
        c.Google.Timeout = d.Google.Timeout
    }
}

package plan

import (
    "testing"
    "time"
)

func TestParseHours(t *testing.T) {
    cases := []struct {
        in    string
        kind  HoursKind
        open  time.Duration
        close time.Duration
    }{
        {"24 hours", HoursAlways, 0, 0},
        {"Open 24 Hours", HoursAlways, 0, 0},
        {"Varies by event", HoursVaries, 0, 0},
        {"hours vary", HoursVaries, 0, 0},
        {"", HoursUnknown, 0, 0},
        {"call for hours", HoursUnknown, 0, 0},
        {"9:00 AM - 11:00 PM", HoursRange, 9 * time.Hour, 23 * time.Hour},
        {"11:30 AM - 10:00 PM", HoursRange, 11*time.Hour + 30*time.Minute, 22 * time.Hour},
        {"09:00-17:00", HoursRange, 9 * time.Hour, 17 * time.Hour},
        {"Mon-Fri: 9:00 AM - 5:00 PM", HoursRange, 9 * time.Hour, 17 * time.Hour},
        {"10 AM - 6 PM", HoursRange, 10 * time.Hour, 18 * time.Hour},
    }
    for _, tc := range cases {
        got := ParseHours(tc.in)
        if got.Kind != tc.kind {
            t.Errorf("ParseHours(%q) kind = %v, want %v", tc.in, got.Kind, tc.kind)
            continue
        }
        if tc.kind == HoursRange && (got.Open != tc.open || got.Close != tc.close) {
            t.Errorf("ParseHours(%q) = %v-%v, want %v-%v", tc.in, got.Open, got.Close, tc.open, tc.close)
        }
    }
}

func TestHoursWindow(t *testing.T) {
    h := ParseHours("9:00 AM - 11:00 PM")
    day := time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)
    opens, closes := h.Window(day)
    if want := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC); !opens.Equal(want) {
        t.Errorf("opens = %v, want %v", opens, want)
    }
    if want := time.Date(2026, 9, 12, 23, 0, 0, 0, time.UTC); !closes.Equal(want) {
        t.Errorf("closes = %v, want %v", closes, want)
    }
}

func TestParseEventTime(t *testing.T) {
    got, err := parseEventTime("2026-09-12T19:30:00")
    if err != nil {
        t.Fatalf("parseEventTime: %v", err)
    }
    if got.Location() != time.UTC {
        t.Errorf("bare timestamp location = %v, want UTC", got.Location())
    }

    got, err = parseEventTime("2026-09-12T19:30:00-05:00")
    if err != nil {
        t.Fatalf("parseEventTime rfc3339: %v", err)
    }
    if _, offset := got.Zone(); offset != -5*3600 {
        t.Errorf("offset = %d, want %d", offset, -5*3600)
    }

    if _, err := parseEventTime("7:30 PM"); err == nil {
        t.Error("expected error for non-ISO timestamp")
    }
}

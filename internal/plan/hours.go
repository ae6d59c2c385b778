package plan

import (
    "strings"
    "time"
)

// HoursKind tags the result of parsing a venue's free-text opening hours.
type HoursKind int

const (
    // HoursUnknown marks strings the parser could not make sense of;
    // callers skip hour checks for these rather than failing.
    HoursUnknown HoursKind = iota
    // HoursAlways is round-the-clock ("24 hours").
    HoursAlways
    // HoursVaries covers venues whose hours depend on the event
    // ("varies by event").
    HoursVaries
    // HoursRange is a concrete open/close window within one day.
    HoursRange
)

// Hours is the normalized form of an opening-hours string. Open and Close
// are offsets from midnight and only meaningful for HoursRange.
type Hours struct {
    Kind  HoursKind
    Open  time.Duration
    Close time.Duration
}

var dayTokens = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// ParseHours normalizes the opening-hours encodings tolerated by the
// planner: "9:00 AM - 11:00 PM", "09:00-17:00", "24 hours",
// "varies by event", and day-prefixed ranges like "Mon-Sat: 12 PM - 5 PM".
func ParseHours(s string) Hours {
    s = strings.TrimSpace(s)
    if s == "" {
        return Hours{Kind: HoursUnknown}
    }
    lower := strings.ToLower(s)
    if strings.Contains(lower, "24 hours") {
        return Hours{Kind: HoursAlways}
    }
    if strings.Contains(lower, "varies") || strings.Contains(lower, "vary") {
        return Hours{Kind: HoursVaries}
    }

    // Strip a leading day range ("Mon-Sat: ...") if present.
    timePart := s
    if idx := strings.Index(s, ":"); idx > 0 && containsDayToken(lower[:idx]) {
        timePart = strings.TrimSpace(s[idx+1:])
    }

    var parts []string
    if strings.Contains(timePart, " - ") {
        parts = strings.SplitN(timePart, " - ", 2)
    } else {
        parts = strings.SplitN(timePart, "-", 2)
    }
    if len(parts) != 2 {
        return Hours{Kind: HoursUnknown}
    }
    open, ok := parseClock(parts[0])
    if !ok {
        return Hours{Kind: HoursUnknown}
    }
    close_, ok := parseClock(parts[1])
    if !ok {
        return Hours{Kind: HoursUnknown}
    }
    return Hours{Kind: HoursRange, Open: open, Close: close_}
}

func containsDayToken(s string) bool {
    for _, d := range dayTokens {
        if strings.Contains(s, d) {
            return true
        }
    }
    return false
}

// parseClock accepts "9:00 AM", "9 PM", and 24-hour "17:00".
func parseClock(s string) (time.Duration, bool) {
    s = strings.ToUpper(strings.TrimSpace(s))
    for _, layout := range []string{"3:04 PM", "3 PM", "15:04"} {
        if t, err := time.Parse(layout, s); err == nil {
            return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, true
        }
    }
    return 0, false
}

// Window projects the open/close offsets onto the given day.
func (h Hours) Window(day time.Time) (time.Time, time.Time) {
    midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
    return midnight.Add(h.Open), midnight.Add(h.Close)
}

// parseEventTime parses an itinerary timestamp. RFC 3339 offsets are
// honored; bare local timestamps are interpreted as UTC (the planner does
// not infer timezones from addresses).
func parseEventTime(s string) (time.Time, error) {
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, nil
    }
    return time.Parse("2006-01-02T15:04:05", s)
}

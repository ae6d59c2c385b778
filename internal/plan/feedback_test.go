package plan

import (
    "strings"
    "testing"

    "showplan/internal/model"
)

func TestFormatFeedback(t *testing.T) {
    report := model.VerificationReport{Details: map[string]model.CheckResult{
        model.CategoryFormat:     model.OK(),
        model.CategoryVenueHours: {IsFeasible: false, Issues: []string{"Carmine's is not open at the planned start time. Opens at 11:00 AM"}},
        model.CategoryBufferTimes: {IsFeasible: false, Issues: []string{
            "Very short buffer (5.0 minutes) between 'Dinner at Carmine's' and 'Evening Show'",
        }},
    }}
    report.Aggregate()
    got := FormatFeedback(report)

    for _, want := range []string{
        "VENUE HOURS ISSUES:",
        "- Carmine's is not open at the planned start time. Opens at 11:00 AM",
        "BUFFER TIME ISSUES:",
        "REQUIRED SCHEMA",
        `"venue_name": "string (must match a venue name below)"`,
        "BROADWAY PLANNING GUIDANCE:",
        "at least 90 minutes before curtain",
        "at least 30 minutes of buffer",
    } {
        if !strings.Contains(got, want) {
            t.Errorf("feedback missing %q", want)
        }
    }
    if strings.Contains(got, "FORMAT ISSUES") {
        t.Error("passing category should not get a section")
    }
    hoursIdx := strings.Index(got, "VENUE HOURS ISSUES")
    bufferIdx := strings.Index(got, "BUFFER TIME ISSUES")
    if hoursIdx > bufferIdx {
        t.Error("sections out of category order")
    }
}

func TestFormatFeedbackSyntheticCategory(t *testing.T) {
    report := model.VerificationReport{Details: map[string]model.CheckResult{
        "verification_error": {IsFeasible: false, Issues: []string{"Verification error: boom"}},
    }}
    report.Aggregate()
    got := FormatFeedback(report)
    if !strings.Contains(got, "VERIFICATION_ERROR:") || !strings.Contains(got, "- Verification error: boom") {
        t.Errorf("synthetic category not rendered:\n%s", got)
    }
}

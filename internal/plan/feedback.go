package plan

import (
    "strings"

    "showplan/internal/model"
)

var categoryTitles = map[string]string{
    model.CategoryFormat:            "FORMAT ISSUES",
    model.CategoryVenueHours:        "VENUE HOURS ISSUES",
    model.CategoryTravelTimes:       "TRAVEL TIME ISSUES",
    model.CategoryActivityDurations: "ACTIVITY DURATION ISSUES",
    model.CategoryBufferTimes:       "BUFFER TIME ISSUES",
    model.CategoryOverallTiming:     "OVERALL TIMING ISSUES",
}

var categoryAdvice = map[string]string{
    model.CategoryFormat:            "Ensure every event and venue carries all required fields with valid values.",
    model.CategoryVenueHours:        "Move events so they fall entirely within each venue's opening hours.",
    model.CategoryTravelTimes:       "Leave enough time between venues to cover travel plus a safety margin.",
    model.CategoryActivityDurations: "Give each activity a realistic duration, neither rushed nor padded.",
    model.CategoryBufferTimes:       "Keep at least a short buffer between consecutive events.",
    model.CategoryOverallTiming:     "Keep the full day within a reasonable window, not too early or too late.",
}

const requiredSchema = `REQUIRED SCHEMA (return exactly this JSON structure):
{
  "name": "string",
  "description": "string",
  "events": [
    {
      "id": "string",
      "name": "string",
      "description": "string",
      "start_time": "YYYY-MM-DDTHH:MM:SS",
      "end_time": "YYYY-MM-DDTHH:MM:SS",
      "venue_name": "string (must match a venue name below)",
      "cost": 0.0
    }
  ],
  "venues": [
    {
      "name": "string",
      "address": "string",
      "latitude": 0.0,
      "longitude": 0.0,
      "opening_hours": "string"
    }
  ]
}`

const broadwayGuidance = `BROADWAY PLANNING GUIDANCE:
- Evening shows typically start between 7:00 PM and 8:00 PM.
- A Broadway show runs about 2.5 to 3 hours including intermission.
- Schedule pre-show dining to end at least 90 minutes before curtain.
- Allow at least 30 minutes of buffer between activities in Manhattan.`

// RequestGuidance returns the output schema and domain guidance attached
// to every generation prompt.
func RequestGuidance() string {
    return requiredSchema + "\n\n" + broadwayGuidance
}

// FormatFeedback renders a verification report as corrective instructions
// for the plan source. Only failing categories get a section; each issue is
// listed verbatim followed by category-level advice, then the required
// output schema and domain guidance.
func FormatFeedback(report model.VerificationReport) string {
    var b strings.Builder
    b.WriteString("The itinerary failed verification. Fix the following issues:\n")
    for _, category := range model.Categories() {
        res, ok := report.Details[category]
        if !ok || len(res.Issues) == 0 {
            continue
        }
        title, ok := categoryTitles[category]
        if !ok {
            title = strings.ToUpper(category) + " ISSUES"
        }
        b.WriteString("\n" + title + ":\n")
        for _, issue := range res.Issues {
            b.WriteString("- " + issue + "\n")
        }
        if advice, ok := categoryAdvice[category]; ok {
            b.WriteString("Fix: " + advice + "\n")
        }
    }
    for category, res := range report.Details {
        if _, known := categoryTitles[category]; known || len(res.Issues) == 0 {
            continue
        }
        b.WriteString("\n" + strings.ToUpper(category) + ":\n")
        for _, issue := range res.Issues {
            b.WriteString("- " + issue + "\n")
        }
    }
    b.WriteString("\n" + requiredSchema + "\n\n" + broadwayGuidance + "\n")
    return b.String()
}

package llm

import (
    "context"
    "errors"
    "strings"
    "testing"

    einomodel "github.com/cloudwego/eino/components/model"
    "github.com/cloudwego/eino/schema"

    "showplan/internal/model"
)

type fakeChatModel struct {
    reply string
    err   error
    msgs  []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
    f.msgs = input
    if f.err != nil {
        return nil, f.err
    }
    return schema.AssistantMessage(f.reply, nil), nil
}

const goodReply = "```json\n" + `{
  "name": "Broadway Evening",
  "description": "Dinner and a show",
  "events": [
    {"id": "event1", "name": "Dinner", "description": "Pre-show meal",
     "start_time": "2026-09-12T17:00:00", "end_time": "2026-09-12T18:30:00",
     "venue_name": "Carmine's", "cost": 85}
  ],
  "venues": [
    {"name": "Carmine's", "address": "200 W 44th St", "latitude": 40.7561,
     "longitude": -73.987, "opening_hours": "11:00 AM - 11:00 PM"}
  ]
}` + "\n```"

func TestGenerateParsesFencedJSON(t *testing.T) {
    cm := &fakeChatModel{reply: goodReply}
    src := NewWithModel(cm)
    it, err := src.Generate(context.Background(), model.PlanRequest{Theme: "broadway night"})
    if err != nil {
        t.Fatalf("Generate: %v", err)
    }
    if it.Name != "Broadway Evening" || len(it.Events) != 1 || len(it.Venues) != 1 {
        t.Errorf("unexpected itinerary: %+v", it)
    }
    if len(cm.msgs) != 2 || cm.msgs[0].Role != schema.System {
        t.Fatalf("expected system+user messages, got %d", len(cm.msgs))
    }
    if !strings.Contains(cm.msgs[1].Content, "Theme: broadway night") {
        t.Errorf("user prompt missing preferences:\n%s", cm.msgs[1].Content)
    }
}

func TestGeneratePromptIncludesBudgetAndCustomPrompt(t *testing.T) {
    cm := &fakeChatModel{reply: goodReply}
    src := NewWithModel(cm)
    _, err := src.Generate(context.Background(), model.PlanRequest{
        Budget:       &model.Budget{Max: 400},
        CustomPrompt: "We want to see Hadestown.",
    })
    if err != nil {
        t.Fatalf("Generate: %v", err)
    }
    prompt := cm.msgs[1].Content
    if !strings.Contains(prompt, "Total budget: $400.00") {
        t.Errorf("prompt missing budget:\n%s", prompt)
    }
    if !strings.Contains(prompt, "We want to see Hadestown.") {
        t.Errorf("prompt missing custom text:\n%s", prompt)
    }
}

func TestRefinePromptCarriesPriorAndFeedback(t *testing.T) {
    cm := &fakeChatModel{reply: goodReply}
    src := NewWithModel(cm)
    prior := model.Itinerary{Name: "Draft Plan"}
    _, err := src.Refine(context.Background(), model.PlanRequest{}, prior, "BUFFER TIME ISSUES:\n- too tight")
    if err != nil {
        t.Fatalf("Refine: %v", err)
    }
    prompt := cm.msgs[1].Content
    if !strings.Contains(prompt, `"name": "Draft Plan"`) {
        t.Errorf("prompt missing prior itinerary:\n%s", prompt)
    }
    if !strings.Contains(prompt, "BUFFER TIME ISSUES") {
        t.Errorf("prompt missing feedback:\n%s", prompt)
    }
}

func TestGenerateBadResponse(t *testing.T) {
    cm := &fakeChatModel{reply: "Sorry, I cannot plan that."}
    src := NewWithModel(cm)
    _, err := src.Generate(context.Background(), model.PlanRequest{})
    if !errors.Is(err, ErrBadResponse) {
        t.Fatalf("err = %v, want ErrBadResponse", err)
    }
}

func TestGenerateModelError(t *testing.T) {
    boom := errors.New("rate limited")
    cm := &fakeChatModel{err: boom}
    src := NewWithModel(cm)
    _, err := src.Generate(context.Background(), model.PlanRequest{})
    if !errors.Is(err, boom) {
        t.Fatalf("err = %v, want wrapped model error", err)
    }
}

func TestParseItinerary(t *testing.T) {
    cases := []struct {
        name string
        in   string
        ok   bool
    }{
        {"bare object", `{"name":"x","description":"y"}`, true},
        {"prose around object", `Here you go: {"name":"x"} enjoy!`, true},
        {"plain fence", "```\n{\"name\":\"x\"}\n```", true},
        {"empty", "", false},
        {"truncated", `{"name": "x"`, false},
    }
    for _, tc := range cases {
        _, err := parseItinerary(tc.in)
        if ok := err == nil; ok != tc.ok {
            t.Errorf("%s: err = %v, want ok=%v", tc.name, err, tc.ok)
        }
    }
}

package llm

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"

    "github.com/cloudwego/eino-ext/components/model/openai"
    einomodel "github.com/cloudwego/eino/components/model"
    "github.com/cloudwego/eino/schema"

    "showplan/internal/config"
    "showplan/internal/model"
    "showplan/internal/plan"
)

// ErrBadResponse indicates the model replied with something that is not a
// parseable itinerary. The controller treats it like any generation failure
// and retries.
var ErrBadResponse = errors.New("llm: response is not a valid itinerary")

// ChatModel is the slice of eino's chat model interface the source needs.
// Tests inject a scripted implementation.
type ChatModel interface {
    Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// Source turns plan requests into candidate itineraries via a chat model.
type Source struct {
    cm ChatModel
}

// New builds a Source backed by an OpenAI-compatible endpoint.
func New(ctx context.Context, cfg config.OpenAI) (*Source, error) {
    cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
        BaseURL: cfg.BaseURL,
        APIKey:  cfg.APIKey,
        Model:   cfg.Model,
    })
    if err != nil {
        return nil, fmt.Errorf("llm: create chat model: %w", err)
    }
    return &Source{cm: cm}, nil
}

// NewWithModel wraps an existing chat model.
func NewWithModel(cm ChatModel) *Source { return &Source{cm: cm} }

const systemPrompt = `You are an expert New York City itinerary planner specializing in Broadway shows and evening entertainment. You respond with a single JSON object and nothing else: no prose, no markdown outside the JSON. The JSON must follow the schema the user provides. Every event must reference a venue from the venues list by exact name. All times use the format YYYY-MM-DDTHH:MM:SS.`

// Generate asks the model for a fresh itinerary for the request.
func (s *Source) Generate(ctx context.Context, req model.PlanRequest) (model.Itinerary, error) {
    return s.ask(ctx, []*schema.Message{
        schema.SystemMessage(systemPrompt),
        schema.UserMessage(buildRequestPrompt(req) + "\n" + plan.RequestGuidance()),
    })
}

// Refine asks the model to rework a prior itinerary using verification
// feedback. The prior plan is included verbatim so the model can keep what
// already works.
func (s *Source) Refine(ctx context.Context, req model.PlanRequest, prior model.Itinerary, feedback string) (model.Itinerary, error) {
    priorJSON, err := json.MarshalIndent(prior, "", "  ")
    if err != nil {
        return model.Itinerary{}, fmt.Errorf("llm: marshal prior itinerary: %w", err)
    }
    var b strings.Builder
    b.WriteString(buildRequestPrompt(req))
    b.WriteString("\n\nYour previous itinerary:\n```json\n")
    b.Write(priorJSON)
    b.WriteString("\n```\n\n")
    b.WriteString(feedback)
    b.WriteString("\nReturn the corrected itinerary as JSON. Keep everything that was not flagged.")
    return s.ask(ctx, []*schema.Message{
        schema.SystemMessage(systemPrompt),
        schema.UserMessage(b.String()),
    })
}

func (s *Source) ask(ctx context.Context, msgs []*schema.Message) (model.Itinerary, error) {
    out, err := s.cm.Generate(ctx, msgs)
    if err != nil {
        return model.Itinerary{}, fmt.Errorf("llm: generate: %w", err)
    }
    it, err := parseItinerary(out.Content)
    if err != nil {
        return model.Itinerary{}, err
    }
    return it, nil
}

func buildRequestPrompt(req model.PlanRequest) string {
    var b strings.Builder
    b.WriteString("Plan an itinerary with these preferences:\n")
    if req.RouteName != "" {
        b.WriteString(fmt.Sprintf("- Name: %s\n", req.RouteName))
    }
    if req.Theme != "" {
        b.WriteString(fmt.Sprintf("- Theme: %s\n", req.Theme))
    }
    if len(req.TransportModes) > 0 {
        b.WriteString(fmt.Sprintf("- Preferred transport: %s\n", strings.Join(req.TransportModes, ", ")))
    }
    if req.MeasurementType != "" && req.MeasurementValue > 0 {
        b.WriteString(fmt.Sprintf("- Target %s: %g\n", req.MeasurementType, req.MeasurementValue))
    }
    if req.Budget != nil && req.Budget.Max > 0 {
        b.WriteString(fmt.Sprintf("- Total budget: $%.2f\n", req.Budget.Max))
    }
    for k, v := range req.Attributes {
        b.WriteString(fmt.Sprintf("- %s: %v\n", k, v))
    }
    if req.CustomPrompt != "" {
        b.WriteString("\n" + req.CustomPrompt + "\n")
    }
    return b.String()
}

// parseItinerary extracts the JSON payload from a model reply. Fenced
// blocks and surrounding prose are tolerated.
func parseItinerary(content string) (model.Itinerary, error) {
    payload := strings.TrimSpace(content)
    if idx := strings.Index(payload, "```json"); idx >= 0 {
        payload = payload[idx+len("```json"):]
        if end := strings.Index(payload, "```"); end >= 0 {
            payload = payload[:end]
        }
    } else if idx := strings.Index(payload, "```"); idx >= 0 {
        payload = payload[idx+3:]
        if end := strings.Index(payload, "```"); end >= 0 {
            payload = payload[:end]
        }
    }
    start := strings.Index(payload, "{")
    end := strings.LastIndex(payload, "}")
    if start < 0 || end <= start {
        return model.Itinerary{}, fmt.Errorf("%w: no JSON object found", ErrBadResponse)
    }
    var it model.Itinerary
    if err := json.Unmarshal([]byte(payload[start:end+1]), &it); err != nil {
        return model.Itinerary{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
    }
    return it, nil
}

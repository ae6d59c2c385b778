package api

import (
    "context"
    "log"
    "net/http"
    "os"
    "strings"

    "showplan/internal/auth"
    "showplan/internal/config"
    "showplan/internal/integrations/venuecsv"
    "showplan/internal/llm"
    "showplan/internal/maps"
    "showplan/internal/model"
    "showplan/internal/plan"
    "showplan/internal/store"
    "showplan/internal/webhooks"
)

type Server struct {
    Cfg      *config.Config
    Store    store.Store
    Pub      *webhooks.Publisher
    Auth     *auth.Verifier
    Broker   EventBroker
    Source   plan.PlanSource
    Finder   plan.VenueFinder
    Verifier *plan.Verifier
    Fixer    *plan.Fixer
    Progress *ProgressCache
}

// NewServer wires the full service. If DATABASE_URL is unset, uses the
// in-memory store; if GOOGLE_MAPS_API_KEY is unset, travel times fall back
// to straight-line estimates; if OPENAI_API_KEY is unset, plan generation
// endpoints return 503 while verify/fix keep working.
func NewServer(ctx context.Context) (*Server, error) {
    cfg, err := config.FromEnv()
    if err != nil {
        return nil, err
    }
    dsn := os.Getenv("DATABASE_URL")
    var s store.Store
    if strings.TrimSpace(dsn) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(dsn)
        if err != nil {
            return nil, err
        }
        // Run migrations (dev helper)
        if os.Getenv("DB_MIGRATE") != "false" {
            _ = sp.MigrateDir("db/migrations")
        }
        s = sp
    }
    // Broker selection
    var broker EventBroker
    if os.Getenv("REDIS_URL") != "" {
        if rb, err := NewRedisBroker(); err == nil { broker = rb } else { broker = NewBroker() }
    } else {
        broker = NewBroker()
    }
    srv := &Server{
        Cfg:      cfg,
        Store:    s,
        Pub:      webhooks.NewPublisher(s),
        Auth:     auth.NewVerifierFromEnv(),
        Broker:   broker,
        Fixer:    plan.NewFixer(cfg.Planner),
        Progress: NewProgressCache(),
    }
    var directions plan.DirectionsProvider
    if cfg.Google.APIKey != "" {
        mc := maps.NewClient(cfg.Google)
        directions = mc
        srv.Finder = mc
    }
    srv.Verifier = plan.NewVerifier(directions, cfg.Planner)
    if cfg.OpenAI.APIKey != "" {
        src, err := llm.New(ctx, cfg.OpenAI)
        if err != nil {
            return nil, err
        }
        srv.Source = src
    }
    if path := os.Getenv("VENUE_SEED_FILE"); path != "" {
        if err := seedVenues(ctx, s, path); err != nil {
            log.Printf("venue seed: %v", err)
        }
    }
    return srv, nil
}

// seedVenues preloads the venue cache from a CSV feed so lookups hit
// the store before the places provider.
func seedVenues(ctx context.Context, s store.Store, path string) error {
    f, err := os.Open(path)
    if err != nil {
        return err
    }
    defer func() { _ = f.Close() }()
    recs, err := venuecsv.Adapter{}.Load(f)
    if err != nil {
        return err
    }
    tenant := os.Getenv("VENUE_SEED_TENANT")
    if tenant == "" {
        tenant = "t_demo"
    }
    for _, rec := range recs {
        if err := s.SaveVenue(ctx, tenant, rec); err != nil {
            return err
        }
    }
    log.Printf("seeded %d venues from %s", len(recs), path)
    return nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
    // For now, get tenant from header; in production decode from JWT.
    tenant := r.Header.Get("X-Tenant-Id")
    if tenant == "" { tenant = "t_demo" }
    tenant = s.normalizeTenantID(tenant)
    ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
    return ctx, tenant
}

type ctxKeyTenant struct{}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store)
}

// controller builds the iteration controller for one run, publishing attempt
// progress on the broker as it goes.
func (s *Server) controller(runID string) *plan.Controller {
    c := &plan.Controller{
        Source:      s.Source,
        Verifier:    s.Verifier,
        Fixer:       s.Fixer,
        MaxAttempts: s.Cfg.Planner.MaxAttempts,
    }
    if runID != "" {
        c.OnAttempt = func(a model.Attempt) {
            s.Progress.Record(runID, a)
            s.Broker.Publish(runID, SSEEvent{Type: "plan.attempt", Data: map[string]any{
                "runId":       runID,
                "attempt":     a.Attempt,
                "isFeasible":  a.Verification.IsFeasible,
                "totalIssues": a.Verification.TotalIssues,
            }})
        }
    }
    return c
}

package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "showplan/internal/metrics"
    "showplan/internal/model"
    "showplan/internal/store"
    "showplan/internal/webhooks"
)

// PlansHandler handles POST/GET /v1/plans
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        p := s.getPrincipal(r)
        if !(p.IsAdmin() || p.Role == "planner") { writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path); return }
        if s.Source == nil {
            writeProblem(w, http.StatusServiceUnavailable, "Planner unavailable", "no plan source configured; set OPENAI_API_KEY", r.URL.Path)
            return
        }
        var req model.PlanRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := validatePlanRequest(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
            return
        }
        run, err := s.Store.CreatePlanRun(r.Context(), p.Tenant, req)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create plan run failed", err.Error(), r.URL.Path)
            return
        }
        if wait := r.URL.Query().Get("wait"); strings.EqualFold(wait, "true") || wait == "1" {
            run = s.executeRun(r.Context(), p.Tenant, run)
            writeJSON(w, http.StatusOK, run)
            return
        }
        go func() {
            ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
            defer cancel()
            s.executeRun(ctx, p.Tenant, run)
        }()
        writeJSON(w, http.StatusAccepted, run)
    case http.MethodGet:
        _, tenant := s.withTenant(r)
        status := r.URL.Query().Get("status")
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListPlanRuns(r.Context(), tenant, status, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List plan runs failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// executeRun drives the controller for one persisted run and records the
// outcome: store status, Prometheus counters, broker event, webhooks.
func (s *Server) executeRun(ctx context.Context, tenant string, run model.PlanRun) model.PlanRun {
    start := time.Now()
    ctrl := s.controller(run.ID)
    res, err := ctrl.Run(ctx, run.Request)
    metrics.PlanDuration.Observe(time.Since(start).Seconds())

    status := "completed"
    event := webhooks.EventPlanCompleted
    var result *model.RunResult
    switch {
    case err != nil:
        status = "failed"
        event = webhooks.EventPlanFailed
        metrics.PlanAttempts.WithLabelValues("failed").Inc()
    case !res.IsValid:
        status = "infeasible"
        event = webhooks.EventPlanInfeasible
        result = &res
        metrics.PlanAttempts.WithLabelValues("infeasible").Inc()
    default:
        result = &res
        metrics.PlanAttempts.WithLabelValues("completed").Inc()
    }
    if result != nil {
        for cat, cr := range result.Verification.Details {
            if n := len(cr.Issues); n > 0 {
                metrics.PlanIssues.WithLabelValues(cat).Add(float64(n))
            }
        }
    }

    updated, uerr := s.Store.CompletePlanRun(ctx, tenant, run.ID, status, result)
    if uerr != nil { updated = run; updated.Status = status; updated.Result = result }

    data := map[string]any{"id": run.ID, "status": status}
    if result != nil {
        data["isValid"] = result.IsValid
        data["totalAttempts"] = result.TotalAttempts
        data["totalIssues"] = result.Verification.TotalIssues
    }
    if err != nil { data["error"] = err.Error() }
    s.Broker.Publish(run.ID, SSEEvent{Type: "plan.finished", Data: data})
    s.Pub.Emit(ctx, tenant, event, data)
    return updated
}

// PlanByIDHandler handles GET /v1/plans/{id} and the subresources
// /v1/plans/{id}/progress and /v1/plans/{id}/events/stream.
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
    path := r.URL.Path
    rest := strings.TrimPrefix(path, "/v1/plans/")
    if rest == path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
        return
    }
    parts := strings.Split(rest, "/")
    id := parts[0]
    if len(parts) > 1 && parts[1] == "events" && len(parts) > 2 && parts[2] == "stream" {
        s.streamPlanEvents(w, r, id)
        return
    }
    if len(parts) > 1 && parts[1] == "progress" {
        if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
        _, tenant := s.withTenant(r)
        if _, err := s.Store.GetPlanRun(r.Context(), tenant, id); err != nil {
            writeProblem(w, http.StatusNotFound, "Plan run not found", err.Error(), r.URL.Path)
            return
        }
        att, ok := s.Progress.Latest(id)
        if !ok { writeJSON(w, http.StatusOK, map[string]any{"id": id, "attempts": 0}); return }
        writeJSON(w, http.StatusOK, map[string]any{
            "id":          id,
            "attempts":    att.Attempt,
            "isFeasible":  att.Verification.IsFeasible,
            "totalIssues": att.Verification.TotalIssues,
            "issues":      att.Verification.AllIssues,
        })
        return
    }
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    run, err := s.Store.GetPlanRun(r.Context(), tenant, id)
    if err != nil {
        if errors.Is(err, store.ErrNotFound) {
            writeProblem(w, http.StatusNotFound, "Plan run not found", "", r.URL.Path)
            return
        }
        writeProblem(w, http.StatusInternalServerError, "Get plan run failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, run)
}

// streamPlanEvents serves SSE progress for one run.
func (s *Server) streamPlanEvents(w http.ResponseWriter, r *http.Request, id string) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    if _, err := s.Store.GetPlanRun(r.Context(), tenant, id); err != nil {
        writeProblem(w, 404, "Plan run not found", err.Error(), r.URL.Path)
        return
    }
    flusher, ok := w.(http.Flusher)
    if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    ch := s.Broker.Subscribe(id)
    defer s.Broker.Unsubscribe(id, ch)
    fmt.Fprintf(w, "event: heartbeat\n")
    fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
    flusher.Flush()
    notify := r.Context().Done()
    for {
        select {
        case <-notify:
            return
        case evt := <-ch:
            b, _ := json.Marshal(evt.Data)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", string(b))
            flusher.Flush()
        case <-time.After(15 * time.Second):
            fmt.Fprintf(w, "event: heartbeat\n")
            fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
            flusher.Flush()
        }
    }
}

// VerifyHandler handles POST /v1/verify: run all checks against a candidate
// itinerary without generating anything.
func (s *Server) VerifyHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var it model.Itinerary
    if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    report := s.Verifier.Verify(r.Context(), &it)
    writeJSON(w, http.StatusOK, map[string]any{"itinerary": it, "verification": report})
}

// FixHandler handles POST /v1/fix: apply heuristic repairs to a candidate
// itinerary and re-verify. A verification report may be supplied; if absent
// the itinerary is verified first.
func (s *Server) FixHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req struct {
        Itinerary    model.Itinerary           `json:"itinerary"`
        Verification *model.VerificationReport `json:"verification,omitempty"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    report := model.VerificationReport{}
    if req.Verification != nil {
        report = *req.Verification
    } else {
        report = s.Verifier.Verify(r.Context(), &req.Itinerary)
    }
    fixed := s.Fixer.Fix(req.Itinerary, report)
    after := s.Verifier.Verify(r.Context(), &fixed)
    writeJSON(w, http.StatusOK, map[string]any{"itinerary": fixed, "verification": after})
}

// VenuesHandler handles GET /v1/venues?query=...&near=... with a store-level
// cache in front of the places provider.
func (s *Server) VenuesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    query := strings.TrimSpace(r.URL.Query().Get("query"))
    if query == "" {
        writeProblem(w, http.StatusBadRequest, "Missing query", "", r.URL.Path)
        return
    }
    _, tenant := s.withTenant(r)
    if rec, ok, err := s.Store.GetVenue(r.Context(), tenant, query); err == nil && ok {
        writeJSON(w, http.StatusOK, map[string]any{"venue": rec, "cached": true})
        return
    }
    if s.Finder == nil {
        writeProblem(w, http.StatusServiceUnavailable, "Venue lookup unavailable", "no places provider configured; set GOOGLE_MAPS_API_KEY", r.URL.Path)
        return
    }
    rec, found, err := s.Finder.FindVenue(r.Context(), query, r.URL.Query().Get("near"))
    if err != nil {
        metrics.ProviderCalls.WithLabelValues("places", "error").Inc()
        writeProblem(w, http.StatusBadGateway, "Venue lookup failed", err.Error(), r.URL.Path)
        return
    }
    metrics.ProviderCalls.WithLabelValues("places", "ok").Inc()
    if !found {
        writeProblem(w, http.StatusNotFound, "Venue not found", query, r.URL.Path)
        return
    }
    rec.Name = query
    _ = s.Store.SaveVenue(r.Context(), tenant, rec)
    writeJSON(w, http.StatusOK, map[string]any{"venue": rec, "cached": false})
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        p := s.getPrincipal(r)
        if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.TenantID == "" { req.TenantID = p.Tenant }
        if req.URL == "" || len(req.Events) == 0 {
            writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events required", r.URL.Path)
            return
        }
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        // Admin list
        p := s.getPrincipal(r)
        if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
        if err != nil { writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// Subscription delete (admin)
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodDelete { w.WriteHeader(405); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil {
        if errors.Is(err, store.ErrNotFound) { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
        writeProblem(w, 500, "Delete subscription failed", err.Error(), r.URL.Path)
        return
    }
    w.WriteHeader(204)
}

// Admin: webhook deliveries list and retry
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/admin/webhook-deliveries" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(405); return }
    status := r.URL.Query().Get("status")
    cursor := r.URL.Query().Get("cursor")
    limit := 100
    if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    items, next, err := s.Store.ListWebhookDeliveries(r.Context(), p.Tenant, status, cursor, limit)
    if err != nil { writeProblem(w, 500, "List deliveries failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/") || !strings.HasSuffix(r.URL.Path, "/retry") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodPost { w.WriteHeader(405); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/"), "/retry")
    if err := s.Store.RetryWebhookDelivery(r.Context(), p.Tenant, id); err != nil {
        if errors.Is(err, store.ErrNotFound) { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
        writeProblem(w, 500, "Retry delivery failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, 202, map[string]int{"accepted": 1})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}

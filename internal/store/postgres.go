package store

import (
    "context"
    "crypto/sha256"
    "database/sql"
    "encoding/hex"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "showplan/internal/model"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies every .sql file in dir in lexical order. Migrations are
// written to be idempotent, so re-running on startup is safe.
func (p *Postgres) MigrateDir(dir string) error {
    entries, err := os.ReadDir(dir)
    if err != nil { return err }
    var files []string
    for _, e := range entries {
        if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") { files = append(files, e.Name()) }
    }
    sort.Strings(files)
    for _, name := range files {
        b, err := os.ReadFile(filepath.Join(dir, name))
        if err != nil { return err }
        if _, err := p.db.Exec(string(b)); err != nil {
            return fmt.Errorf("migrate %s: %w", name, err)
        }
    }
    return nil
}

// CreatePlanRun inserts a run in status running with the request stored as JSONB.
func (p *Postgres) CreatePlanRun(ctx context.Context, tenantID string, req model.PlanRequest) (model.PlanRun, error) {
    id := uuid.New().String()
    reqJSON, err := json.Marshal(req)
    if err != nil { return model.PlanRun{}, err }
    _, err = p.db.ExecContext(ctx, `INSERT INTO plan_runs (id, tenant_id, status, request) VALUES ($1,$2,'running',$3)`, id, tenantID, reqJSON)
    if err != nil { return model.PlanRun{}, err }
    return p.GetPlanRun(ctx, tenantID, id)
}

func (p *Postgres) GetPlanRun(ctx context.Context, tenantID, id string) (model.PlanRun, error) {
    row := p.db.QueryRowContext(ctx, `SELECT id::text, status, request, result, created_at, updated_at FROM plan_runs WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    run, err := scanPlanRun(row)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.PlanRun{}, ErrNotFound }
        return model.PlanRun{}, err
    }
    run.TenantID = tenantID
    return run, nil
}

func (p *Postgres) ListPlanRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.PlanRun, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    q := `SELECT id::text, status, request, result, created_at, updated_at FROM plan_runs WHERE tenant_id=$1`
    args := []any{tenantID}
    if status != "" {
        q += fmt.Sprintf(` AND status=$%d`, len(args)+1)
        args = append(args, status)
    }
    if cursor != "" {
        q += fmt.Sprintf(` AND id::text > $%d`, len(args)+1)
        args = append(args, cursor)
    }
    q += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args)+1)
    args = append(args, limit)
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.PlanRun{}
    var last string
    for rows.Next() {
        run, err := scanPlanRun(rows)
        if err != nil { return nil, "", err }
        run.TenantID = tenantID
        out = append(out, run)
        last = run.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) CompletePlanRun(ctx context.Context, tenantID, id, status string, result *model.RunResult) (model.PlanRun, error) {
    var resJSON any
    if result != nil {
        b, err := json.Marshal(result)
        if err != nil { return model.PlanRun{}, err }
        resJSON = b
    }
    res, err := p.db.ExecContext(ctx, `UPDATE plan_runs SET status=$1, result=$2, updated_at=now() WHERE tenant_id=$3 AND id=$4`, status, resJSON, tenantID, id)
    if err != nil { return model.PlanRun{}, err }
    if n, _ := res.RowsAffected(); n == 0 { return model.PlanRun{}, ErrNotFound }
    return p.GetPlanRun(ctx, tenantID, id)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanPlanRun(row rowScanner) (model.PlanRun, error) {
    var run model.PlanRun
    var reqJSON, resJSON []byte
    var created, updated time.Time
    if err := row.Scan(&run.ID, &run.Status, &reqJSON, &resJSON, &created, &updated); err != nil {
        return model.PlanRun{}, err
    }
    if len(reqJSON) > 0 { _ = json.Unmarshal(reqJSON, &run.Request) }
    if len(resJSON) > 0 {
        var res model.RunResult
        if json.Unmarshal(resJSON, &res) == nil { run.Result = &res }
    }
    run.CreatedAt = created.UTC().Format(time.RFC3339)
    run.UpdatedAt = updated.UTC().Format(time.RFC3339)
    return run, nil
}

func (p *Postgres) SaveVenue(ctx context.Context, tenantID string, rec model.VenueRecord) error {
    _, err := p.db.ExecContext(ctx, `INSERT INTO venues (tenant_id, name, address, lat, lng, place_id, updated_at) VALUES ($1,$2,$3,$4,$5,$6,now())
        ON CONFLICT (tenant_id, name) DO UPDATE SET address=EXCLUDED.address, lat=EXCLUDED.lat, lng=EXCLUDED.lng, place_id=EXCLUDED.place_id, updated_at=now()`,
        tenantID, rec.Name, nullIfEmpty(rec.Address), rec.Latitude, rec.Longitude, nullIfEmpty(rec.PlaceID))
    return err
}

func (p *Postgres) GetVenue(ctx context.Context, tenantID, name string) (model.VenueRecord, bool, error) {
    var rec model.VenueRecord
    var address, placeID sql.NullString
    row := p.db.QueryRowContext(ctx, `SELECT name, address, lat, lng, place_id FROM venues WHERE tenant_id=$1 AND name=$2`, tenantID, name)
    if err := row.Scan(&rec.Name, &address, &rec.Latitude, &rec.Longitude, &placeID); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.VenueRecord{}, false, nil }
        return model.VenueRecord{}, false, err
    }
    rec.Address = address.String
    rec.PlaceID = placeID.String
    return rec, true, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    id := uuid.New().String()
    ev, err := json.Marshal(req.Events)
    if err != nil { return model.Subscription{}, err }
    _, err = p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`, id, req.TenantID, req.URL, ev, nullIfEmpty(req.Secret))
    if err != nil { return model.Subscription{}, err }
    return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    filter, _ := json.Marshal([]string{eventType})
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, COALESCE(secret,''), events FROM subscriptions WHERE tenant_id=$1 AND events @> $2::jsonb`, tenantID, filter)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Subscription{}
    for rows.Next() {
        var s model.Subscription
        var events []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &events); err != nil { return nil, err }
        s.TenantID = tenantID
        _ = json.Unmarshal(events, &s.Events)
        out = append(out, s)
    }
    return out, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, COALESCE(secret,''), events FROM subscriptions WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, COALESCE(secret,''), events FROM subscriptions WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Subscription{}
    var last string
    for rows.Next() {
        var s model.Subscription
        var ev []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, "", err }
        s.TenantID = tenantID
        _ = json.Unmarshal(ev, &s.Events)
        out = append(out, s)
        last = s.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

// EnqueueWebhook inserts a pending delivery. Duplicate payloads for the same
// (tenant, event, url) collapse via dedup_key.
func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    id := uuid.New().String()
    dk := computeDedupKey(payload)
    _, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now(),$8)
        ON CONFLICT (tenant_id, event_type, url, dedup_key) DO NOTHING`,
        id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, dk)
    if err != nil { return "", err }
    return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    if limit <= 0 { limit = 50 }
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []WebhookDelivery{}
    for rows.Next() {
        var d WebhookDelivery
        if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil { return nil, err }
        out = append(out, d)
    }
    return out, nil
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    if success {
        _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
        return err
    }
    if nextAttemptAt == nil {
        t := time.Now().Add(time.Minute)
        nextAttemptAt = &t
    }
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`, id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
    return err
}

// FailWebhookDelivery marks a delivery failed and copies it to the dead letter
// table for operator inspection.
func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer tx.Rollback()
    _, err = tx.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs)
    if err != nil { return err }
    _, err = tx.ExecContext(ctx, `INSERT INTO webhook_dlq (id, tenant_id, subscription_id, event_type, url, payload, attempts, last_error)
        SELECT id, tenant_id, subscription_id, event_type, url, payload, attempts, last_error FROM webhook_deliveries WHERE id=$1
        ON CONFLICT (id) DO NOTHING`, id)
    if err != nil { return err }
    return tx.Commit()
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    q := `SELECT id::text, event_type, url, status, attempts, next_attempt_at, COALESCE(last_error,''), response_code, latency_ms FROM webhook_deliveries WHERE tenant_id=$1`
    args := []any{tenantID}
    if status != "" {
        q += fmt.Sprintf(` AND status=$%d`, len(args)+1)
        args = append(args, status)
    }
    if cursor != "" {
        q += fmt.Sprintf(` AND id::text > $%d`, len(args)+1)
        args = append(args, cursor)
    }
    q += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args)+1)
    args = append(args, limit)
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []map[string]any{}
    var last string
    for rows.Next() {
        var id, typ, url, st, lastErr string
        var attempts int
        var nextAt sql.NullTime
        var code, latency sql.NullInt64
        if err := rows.Scan(&id, &typ, &url, &st, &attempts, &nextAt, &lastErr, &code, &latency); err != nil { return nil, "", err }
        m := map[string]any{"id": id, "eventType": typ, "url": url, "status": st, "attempts": attempts}
        if nextAt.Valid { m["nextAttemptAt"] = nextAt.Time.UTC().Format(time.RFC3339) }
        if lastErr != "" { m["lastError"] = lastErr }
        if code.Valid { m["responseCode"] = int(code.Int64) }
        if latency.Valid { m["latencyMs"] = int(latency.Int64) }
        out = append(out, m)
        last = id
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
    res, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='pending', next_attempt_at=now(), updated_at=now() WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

// computeDedupKey prefers the payload's own id field so retried publishes of
// the same event collapse. Otherwise a content hash is used.
func computeDedupKey(payload []byte) string {
    var probe struct {
        ID string `json:"id"`
    }
    if err := json.Unmarshal(payload, &probe); err == nil && probe.ID != "" {
        return probe.ID
    }
    sum := sha256.Sum256(payload)
    return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) any {
    if s == "" { return nil }
    return s
}

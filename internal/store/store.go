package store

import (
    "context"
    "errors"
    "time"

    "showplan/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
    // Plan runs
    CreatePlanRun(ctx context.Context, tenantID string, req model.PlanRequest) (model.PlanRun, error)
    GetPlanRun(ctx context.Context, tenantID, id string) (model.PlanRun, error)
    ListPlanRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.PlanRun, string, error)
    CompletePlanRun(ctx context.Context, tenantID, id, status string, result *model.RunResult) (model.PlanRun, error)

    // Venue lookup cache
    SaveVenue(ctx context.Context, tenantID string, rec model.VenueRecord) error
    GetVenue(ctx context.Context, tenantID, name string) (model.VenueRecord, bool, error)

    // Subscriptions
    CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
    GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
    ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
    DeleteSubscription(ctx context.Context, tenantID, id string) error

    // Webhook deliveries
    EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
    ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)
    RetryWebhookDelivery(ctx context.Context, tenantID, id string) error
}

var ErrNotFound = errors.New("not found")

package metrics

import (
    "sync"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // PlanAttempts counts generate/verify cycles by final disposition
    PlanAttempts = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "plan_attempts_total", Help: "Plan generation attempts by outcome."},
        []string{"outcome"},
    )
    // PlanIssues counts verification issues by category
    PlanIssues = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "plan_verification_issues_total", Help: "Verification issues found, by category."},
        []string{"category"},
    )
    // PlanDuration tracks end-to-end planning run duration in seconds
    PlanDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "plan_run_duration_seconds", Help: "End-to-end planning run duration in seconds.", Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120}},
    )
    // ProviderCalls counts outbound provider calls by provider and result
    ProviderCalls = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "provider_calls_total", Help: "Outbound LLM and maps provider calls."},
        []string{"provider", "result"},
    )

    // WebhookDeliveries counts webhook delivery outcomes by event type and status
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
        []string{"event_type", "status"},
    )
    // WebhookLatency tracks webhook delivery latencies in milliseconds
    WebhookLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
        []string{"event_type", "status"},
    )
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(PlanAttempts)
        Registry.MustRegister(PlanIssues)
        Registry.MustRegister(PlanDuration)
        Registry.MustRegister(ProviderCalls)
        Registry.MustRegister(WebhookDeliveries)
        Registry.MustRegister(WebhookLatency)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once

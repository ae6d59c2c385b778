package store

import (
    "context"
    "testing"

    "showplan/internal/model"
)

func TestMemoryPlanRunLifecycle(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    run, err := m.CreatePlanRun(ctx, "t_demo", model.PlanRequest{RouteName: "Broadway Night"})
    if err != nil { t.Fatalf("CreatePlanRun: %v", err) }
    if run.ID == "" || run.Status != "running" { t.Fatalf("unexpected run: %+v", run) }

    got, err := m.GetPlanRun(ctx, "t_demo", run.ID)
    if err != nil { t.Fatalf("GetPlanRun: %v", err) }
    if got.Request.RouteName != "Broadway Night" { t.Fatalf("request not stored: %+v", got.Request) }

    if _, err := m.GetPlanRun(ctx, "t_other", run.ID); err != ErrNotFound {
        t.Fatalf("cross-tenant read should be ErrNotFound, got %v", err)
    }

    res := &model.RunResult{IsValid: true, TotalAttempts: 2}
    done, err := m.CompletePlanRun(ctx, "t_demo", run.ID, "completed", res)
    if err != nil { t.Fatalf("CompletePlanRun: %v", err) }
    if done.Status != "completed" || done.Result == nil || !done.Result.IsValid {
        t.Fatalf("unexpected completed run: %+v", done)
    }
}

func TestMemoryListPlanRunsPagination(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    for i := 0; i < 5; i++ {
        if _, err := m.CreatePlanRun(ctx, "t_demo", model.PlanRequest{}); err != nil { t.Fatalf("create: %v", err) }
    }
    page1, next, err := m.ListPlanRuns(ctx, "t_demo", "", "", 2)
    if err != nil { t.Fatalf("list: %v", err) }
    if len(page1) != 2 || next == "" { t.Fatalf("expected full page with cursor, got %d %q", len(page1), next) }
    page2, _, err := m.ListPlanRuns(ctx, "t_demo", "", next, 10)
    if err != nil { t.Fatalf("list page 2: %v", err) }
    if len(page2) != 3 { t.Fatalf("expected 3 remaining, got %d", len(page2)) }
    if page2[0].ID == page1[1].ID { t.Fatalf("cursor did not advance") }
}

func TestMemoryVenueCache(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    rec := model.VenueRecord{Name: "Majestic Theatre", Address: "245 W 44th St", Latitude: 40.7588, Longitude: -73.9875, PlaceID: "ChIJ123"}
    if err := m.SaveVenue(ctx, "t_demo", rec); err != nil { t.Fatalf("SaveVenue: %v", err) }
    got, ok, err := m.GetVenue(ctx, "t_demo", "Majestic Theatre")
    if err != nil || !ok { t.Fatalf("GetVenue: ok=%v err=%v", ok, err) }
    if got.PlaceID != "ChIJ123" { t.Fatalf("wrong record: %+v", got) }
    if _, ok, _ := m.GetVenue(ctx, "t_other", "Majestic Theatre"); ok {
        t.Fatalf("venue should be tenant scoped")
    }
}

func TestMemoryWebhookQueue(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    id, err := m.EnqueueWebhook(ctx, "t_demo", "", "plan.completed", "https://example.com/hook", "s3cret", []byte(`{"id":"run_1"}`))
    if err != nil { t.Fatalf("EnqueueWebhook: %v", err) }

    due, err := m.FetchDueWebhookDeliveries(ctx, 10)
    if err != nil { t.Fatalf("FetchDue: %v", err) }
    if len(due) != 1 || due[0].ID != id { t.Fatalf("expected 1 due delivery, got %+v", due) }

    if err := m.MarkWebhookDelivery(ctx, id, false, nil, "503", 503, 42); err != nil { t.Fatalf("mark retry: %v", err) }
    items, _, err := m.ListWebhookDeliveries(ctx, "t_demo", "retry", "", 10)
    if err != nil { t.Fatalf("list: %v", err) }
    if len(items) != 1 { t.Fatalf("expected retry delivery listed, got %d", len(items)) }

    if err := m.RetryWebhookDelivery(ctx, "t_demo", id); err != nil { t.Fatalf("retry: %v", err) }
    due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
    if len(due) != 1 { t.Fatalf("retried delivery should be due again") }

    if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 18); err != nil { t.Fatalf("mark delivered: %v", err) }
    due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
    if len(due) != 0 { t.Fatalf("delivered webhook should not be due") }
}

func TestMemoryNotFoundErrors(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    if err := m.DeleteSubscription(ctx, "t_demo", "missing"); err != ErrNotFound {
        t.Errorf("DeleteSubscription(missing) = %v, want ErrNotFound", err)
    }
    if err := m.RetryWebhookDelivery(ctx, "t_demo", "missing"); err != ErrNotFound {
        t.Errorf("RetryWebhookDelivery(missing) = %v, want ErrNotFound", err)
    }
    id, err := m.EnqueueWebhook(ctx, "t_demo", "", "plan.completed", "https://example.com/hook", "", nil)
    if err != nil { t.Fatalf("EnqueueWebhook: %v", err) }
    if err := m.RetryWebhookDelivery(ctx, "t_other", id); err != ErrNotFound {
        t.Errorf("cross-tenant retry = %v, want ErrNotFound", err)
    }
}

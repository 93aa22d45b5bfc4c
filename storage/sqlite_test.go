package storage

import (
	"context"
	"math"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *Store) int64 {
	t.Helper()
	id, err := store.CreateUser(context.Background(), "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestAISettingsDefaultsDisabled(t *testing.T) {
	store := newTestStore(t)

	settings, err := store.AISettings(context.Background())
	if err != nil {
		t.Fatalf("AISettings: %v", err)
	}
	if settings != nil {
		t.Errorf("fresh database must report AI disabled, got %+v", settings)
	}
}

func TestAISettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveSettings(ctx, AdminSettings{
		AIEnabled:             true,
		AIProvider:            "claude",
		APIKey:                "sk-ant-test",
		FeatureChat:           true,
		InternetAccessEnabled: true,
		SearchMethod:          "free_scraping",
		ToolCallingEnabled:    true,
	})
	if err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	settings, err := store.AISettings(ctx)
	if err != nil {
		t.Fatalf("AISettings: %v", err)
	}
	if settings == nil {
		t.Fatal("enabled settings should be returned")
	}
	if settings.AIProvider != "claude" || settings.APIKey != "sk-ant-test" {
		t.Errorf("provider fields: %+v", settings)
	}
	if !settings.FeatureChat || settings.FeatureAnalysis {
		t.Errorf("feature flags: %+v", settings)
	}
}

func TestAISettingsHardDisabledVariants(t *testing.T) {
	cases := []struct {
		name     string
		settings AdminSettings
	}{
		{"ai disabled", AdminSettings{AIEnabled: false, AIProvider: "claude", APIKey: "k"}},
		{"no credential", AdminSettings{AIEnabled: true, AIProvider: "claude", APIKey: ""}},
		{"provider none", AdminSettings{AIEnabled: true, AIProvider: "none", APIKey: "k"}},
	}
	for _, tc := range cases {
		store := newTestStore(t)
		ctx := context.Background()
		if err := store.SaveSettings(ctx, tc.settings); err != nil {
			t.Fatalf("%s: SaveSettings: %v", tc.name, err)
		}
		got, err := store.AISettings(ctx)
		if err != nil {
			t.Fatalf("%s: AISettings: %v", tc.name, err)
		}
		if got != nil {
			t.Errorf("%s: expected nil settings, got %+v", tc.name, got)
		}
	}
}

func TestSubscriptionCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, store)

	id, err := store.CreateSubscription(ctx, Subscription{
		UserID:      userID,
		Name:        "Netflix",
		Cost:        15.49,
		RenewalDate: "2026-09-01",
		Category:    "streaming",
	})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	sub, err := store.GetSubscription(ctx, id, userID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub == nil {
		t.Fatal("subscription not found")
	}
	if sub.BillingCycle != CycleMonthly || sub.Status != StatusActive {
		t.Errorf("defaults not applied: %+v", sub)
	}

	sub.Cost = 17.99
	sub.Status = StatusPaused
	if err := store.UpdateSubscription(ctx, *sub); err != nil {
		t.Fatalf("UpdateSubscription: %v", err)
	}
	updated, err := store.GetSubscription(ctx, id, userID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Cost != 17.99 || updated.Status != StatusPaused {
		t.Errorf("update not persisted: %+v", updated)
	}

	// Scoped to the owner.
	other, err := store.GetSubscription(ctx, id, userID+1)
	if err != nil {
		t.Fatal(err)
	}
	if other != nil {
		t.Error("subscription visible to the wrong user")
	}

	if err := store.DeleteSubscription(ctx, id, userID); err != nil {
		t.Fatalf("DeleteSubscription: %v", err)
	}
	gone, err := store.GetSubscription(ctx, id, userID)
	if err != nil {
		t.Fatal(err)
	}
	if gone != nil {
		t.Error("subscription not deleted")
	}
}

func TestActiveSubscriptionsFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, store)

	subs := []Subscription{
		{UserID: userID, Name: "Netflix", Cost: 15, RenewalDate: "2026-09-01"},
		{UserID: userID, Name: "Hulu", Cost: 8, RenewalDate: "2026-09-02", Status: StatusCancelled},
	}
	for _, sub := range subs {
		if _, err := store.CreateSubscription(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}

	active, err := store.ActiveSubscriptions(ctx, userID)
	if err != nil {
		t.Fatalf("ActiveSubscriptions: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Netflix" {
		t.Errorf("active filter: %v", active)
	}

	all, err := store.ListSubscriptions(ctx, userID)
	if err != nil {
		t.Fatalf("ListSubscriptions: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 subscriptions, got %d", len(all))
	}
}

func TestDashboardNormalizesCosts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, store)

	subs := []Subscription{
		{UserID: userID, Name: "Netflix", Cost: 12, BillingCycle: CycleMonthly, RenewalDate: "2026-12-01", Category: "streaming"},
		{UserID: userID, Name: "Prime", Cost: 120, BillingCycle: CycleYearly, RenewalDate: "2026-12-01", Category: "shopping"},
		{UserID: userID, Name: "Paper", Cost: 2, BillingCycle: CycleWeekly, RenewalDate: "2026-12-01", Category: "news"},
		{UserID: userID, Name: "Old", Cost: 99, BillingCycle: CycleMonthly, RenewalDate: "2026-12-01", Status: StatusCancelled},
	}
	for _, sub := range subs {
		if _, err := store.CreateSubscription(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.Dashboard(ctx, userID)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if stats.TotalSubscriptions != 3 {
		t.Errorf("total: got %d, want 3", stats.TotalSubscriptions)
	}
	// 12 + 120/12 + 2*4.33
	if want := 12 + 10 + 8.66; !almostEqual(stats.MonthlyCost, want) {
		t.Errorf("monthly cost: got %v, want %v", stats.MonthlyCost, want)
	}
	// 12*12 + 120 + 2*52
	if want := 144.0 + 120 + 104; !almostEqual(stats.YearlyCost, want) {
		t.Errorf("yearly cost: got %v, want %v", stats.YearlyCost, want)
	}
	if len(stats.Categories) != 3 {
		t.Errorf("categories: %v", stats.Categories)
	}
}

func TestChatHistoryKeepsLastTurns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, store)

	sessionID := "session-1"
	if err := store.EnsureChatSession(ctx, sessionID, userID); err != nil {
		t.Fatalf("EnsureChatSession: %v", err)
	}
	// Idempotent.
	if err := store.EnsureChatSession(ctx, sessionID, userID); err != nil {
		t.Fatalf("EnsureChatSession repeat: %v", err)
	}

	for i := 0; i < 6; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if err := store.AppendChatMessage(ctx, sessionID, role, string(rune('a'+i))); err != nil {
			t.Fatalf("AppendChatMessage: %v", err)
		}
	}

	history, err := store.ChatHistory(ctx, sessionID, 4)
	if err != nil {
		t.Fatalf("ChatHistory: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(history))
	}
	if history[0].Content != "c" || history[3].Content != "f" {
		t.Errorf("wrong window or order: %v", history)
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("roles: %v", history)
	}

	all, err := store.ChatHistory(ctx, sessionID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 6 {
		t.Errorf("unlimited history: got %d turns", len(all))
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/idan2025/subscription-tracker/llm"
	"github.com/idan2025/subscription-tracker/storage"
)

// scriptedProvider returns a fixed reply and records which generation path
// was taken.
type scriptedProvider struct {
	reply         string
	plainCalls    int
	toolCalls     int
	lastPrompt    string
	lastContext   string
	supportsTools bool
}

func (p *scriptedProvider) Name() string              { return "Scripted" }
func (p *scriptedProvider) Model() string             { return "scripted" }
func (p *scriptedProvider) SupportsToolCalling() bool { return p.supportsTools }

func (p *scriptedProvider) TestConnection(ctx context.Context) llm.ConnectionProbe {
	return llm.ConnectionProbe{Success: true, Message: "ok", Provider: p.Name()}
}

func (p *scriptedProvider) GenerateResponse(ctx context.Context, prompt, sysContext string) (string, error) {
	p.plainCalls++
	p.lastPrompt, p.lastContext = prompt, sysContext
	return p.reply, nil
}

func (p *scriptedProvider) GenerateResponseWithTools(ctx context.Context, prompt, sysContext string, tools []llm.ToolDefinition, exec llm.ToolRunner) (string, error) {
	p.toolCalls++
	p.lastPrompt, p.lastContext = prompt, sysContext
	return p.reply, nil
}

type noopRunner struct{}

func (noopRunner) ExecuteTool(ctx context.Context, name string, input map[string]any) llm.ToolOutcome {
	return llm.ToolOutcome{Success: true, Result: "ok", ToolName: name}
}

type fixture struct {
	svc      *Service
	store    *storage.Store
	provider *scriptedProvider
	built    int // provider constructions
	userID   int64
	subID    int64
}

func enabledSettings() storage.AdminSettings {
	return storage.AdminSettings{
		AIEnabled:              true,
		AIProvider:             "claude",
		APIKey:                 "sk-ant-test",
		FeatureAlternatives:    true,
		FeatureChat:            true,
		FeatureAnalysis:        true,
		FeatureRecommendations: true,
		SearchMethod:           "free_scraping",
		ToolCallingEnabled:     true,
	}
}

func newFixture(t *testing.T, settings storage.AdminSettings, reply string) *fixture {
	t.Helper()
	store, err := storage.NewInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	if err := store.SaveSettings(ctx, settings); err != nil {
		t.Fatal(err)
	}
	userID, err := store.CreateUser(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	subID, err := store.CreateSubscription(ctx, storage.Subscription{
		UserID:      userID,
		Name:        "Netflix",
		Cost:        15.49,
		RenewalDate: "2026-09-01",
		Category:    "streaming",
	})
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		store:    store,
		provider: &scriptedProvider{reply: reply, supportsTools: true},
		userID:   userID,
		subID:    subID,
	}
	f.svc = &Service{
		store: store,
		newProvider: func(kind, credential, model string) (llm.Provider, error) {
			f.built++
			return f.provider, nil
		},
		newExecutor: func(method, apiKey string) (llm.ToolRunner, error) {
			return noopRunner{}, nil
		},
	}
	return f
}

func TestFindAlternativesParsesJSONArray(t *testing.T) {
	reply := `Here you go:
[{"name": "Hulu", "description": "Streaming", "price": "$7.99/month", "differences": "Ads"}]`
	f := newFixture(t, enabledSettings(), reply)

	result, err := f.svc.FindAlternatives(context.Background(), f.subID, f.userID)
	if err != nil {
		t.Fatalf("FindAlternatives: %v", err)
	}
	if result.Status != 200 || result.Source != "ai" {
		t.Errorf("envelope: %+v", result)
	}
	if len(result.Alternatives) != 1 || result.Alternatives[0].Name != "Hulu" {
		t.Errorf("alternatives: %v", result.Alternatives)
	}
}

func TestFindAlternativesWrapsProseReply(t *testing.T) {
	f := newFixture(t, enabledSettings(), "I'd suggest trying Hulu or Disney+, both are cheaper.")

	result, err := f.svc.FindAlternatives(context.Background(), f.subID, f.userID)
	if err != nil {
		t.Fatalf("FindAlternatives: %v", err)
	}
	if result.Status != 200 {
		t.Errorf("status: %d", result.Status)
	}
	if len(result.Alternatives) != 1 {
		t.Fatalf("expected a single synthesized alternative, got %v", result.Alternatives)
	}
	alt := result.Alternatives[0]
	if alt.Name != "AI Suggestions" || alt.Price != "Varies" {
		t.Errorf("synthesized alternative: %+v", alt)
	}
	if !strings.Contains(alt.Description, "Hulu or Disney+") {
		t.Errorf("raw reply not preserved: %q", alt.Description)
	}
}

func TestFindAlternativesUnknownSubscription(t *testing.T) {
	f := newFixture(t, enabledSettings(), "[]")

	_, err := f.svc.FindAlternatives(context.Background(), f.subID+99, f.userID)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Status != 404 || reqErr.Message != "Subscription not found" {
		t.Errorf("got %+v", reqErr)
	}
}

func TestGatingAIDisabled(t *testing.T) {
	settings := enabledSettings()
	settings.AIEnabled = false
	f := newFixture(t, settings, "[]")

	_, err := f.svc.FindAlternatives(context.Background(), f.subID, f.userID)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Status != 403 || reqErr.Message != "AI features are disabled" {
		t.Errorf("got %+v", reqErr)
	}
	if f.built != 0 {
		t.Error("provider must not be constructed when AI is disabled")
	}
}

func TestGatingChatFeatureDisabled(t *testing.T) {
	settings := enabledSettings()
	settings.FeatureChat = false
	f := newFixture(t, settings, "hi")

	_, err := f.svc.Chat(context.Background(), "hello", f.userID, nil)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Status != 403 || reqErr.Message != "Chat feature is disabled" {
		t.Errorf("got %+v", reqErr)
	}
	if f.built != 0 {
		t.Error("provider must not be constructed when the feature is disabled")
	}
}

func TestInternetAccessOffUsesPlainPath(t *testing.T) {
	settings := enabledSettings()
	settings.InternetAccessEnabled = false
	f := newFixture(t, settings, `[{"name": "Hulu", "description": "d", "price": "$1", "differences": "x"}]`)

	result, err := f.svc.FindAlternatives(context.Background(), f.subID, f.userID)
	if err != nil {
		t.Fatalf("FindAlternatives: %v", err)
	}
	if f.provider.toolCalls != 0 {
		t.Error("tool path taken despite internet access being off")
	}
	if f.provider.plainCalls != 1 {
		t.Errorf("plain calls: %d", f.provider.plainCalls)
	}
	if result.Source != "ai" {
		t.Errorf("source: %q", result.Source)
	}
}

func TestInternetAccessOnUsesToolPath(t *testing.T) {
	settings := enabledSettings()
	settings.InternetAccessEnabled = true
	f := newFixture(t, settings, "[]")

	if _, err := f.svc.FindAlternatives(context.Background(), f.subID, f.userID); err != nil {
		t.Fatal(err)
	}
	if f.provider.toolCalls != 1 || f.provider.plainCalls != 0 {
		t.Errorf("path: tool=%d plain=%d", f.provider.toolCalls, f.provider.plainCalls)
	}
}

func TestSpendingAnalysisEmptyPortfolio(t *testing.T) {
	f := newFixture(t, enabledSettings(), "unused")
	ctx := context.Background()

	// Remove the seeded subscription.
	if err := f.store.DeleteSubscription(ctx, f.subID, f.userID); err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.SpendingAnalysis(ctx, f.userID)
	if err != nil {
		t.Fatalf("SpendingAnalysis: %v", err)
	}
	if len(result.Insights) != 1 || result.Insights[0].Title != "No Subscriptions Yet" {
		t.Errorf("canned payload: %v", result.Insights)
	}
	if f.built != 0 {
		t.Error("provider must not be constructed for an empty portfolio")
	}
}

func TestSpendingAnalysisParsesInsights(t *testing.T) {
	reply := `{"insights": [{"title": "High streaming spend", "description": "Most spend is streaming."}]}`
	f := newFixture(t, enabledSettings(), reply)

	result, err := f.svc.SpendingAnalysis(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("SpendingAnalysis: %v", err)
	}
	if len(result.Insights) != 1 || result.Insights[0].Title != "High streaming spend" {
		t.Errorf("insights: %v", result.Insights)
	}
	if !strings.Contains(f.provider.lastPrompt, "User's Subscription Portfolio:") {
		t.Errorf("portfolio missing from prompt: %q", f.provider.lastPrompt)
	}
	if !strings.Contains(f.provider.lastPrompt, "- Netflix: $15.49/monthly (streaming)") {
		t.Errorf("subscription line missing: %q", f.provider.lastPrompt)
	}
}

func TestRecommendationsEmptyPortfolio(t *testing.T) {
	f := newFixture(t, enabledSettings(), "unused")
	ctx := context.Background()
	if err := f.store.DeleteSubscription(ctx, f.subID, f.userID); err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.Recommendations(ctx, f.userID)
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if len(result.Recommendations) != 1 || result.Recommendations[0].Title != "Start Adding Subscriptions" {
		t.Errorf("canned payload: %v", result.Recommendations)
	}
	if result.Recommendations[0].Priority != "low" {
		t.Errorf("priority: %q", result.Recommendations[0].Priority)
	}
}

func TestRecommendationsWrapsProseReply(t *testing.T) {
	f := newFixture(t, enabledSettings(), "Cancel what you don't use.")

	result, err := f.svc.Recommendations(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if len(result.Recommendations) != 1 {
		t.Fatalf("recommendations: %v", result.Recommendations)
	}
	rec := result.Recommendations[0]
	if rec.Title != "AI Recommendations" || rec.Savings != "Varies" || rec.Priority != "medium" {
		t.Errorf("synthesized recommendation: %+v", rec)
	}
}

func TestChatFoldsHistoryIntoPrompt(t *testing.T) {
	settings := enabledSettings()
	settings.InternetAccessEnabled = false
	f := newFixture(t, settings, "Sure, here's a summary.")

	history := []storage.ChatTurn{
		{Role: "user", Content: "What do I pay for streaming?"},
		{Role: "assistant", Content: "About $15 a month."},
	}
	result, err := f.svc.Chat(context.Background(), "And yearly?", f.userID, history)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result.Response != "Sure, here's a summary." {
		t.Errorf("response: %q", result.Response)
	}

	prompt := f.provider.lastPrompt
	if !strings.Contains(prompt, "Conversation history:") {
		t.Errorf("history header missing: %q", prompt)
	}
	if !strings.Contains(prompt, "User: What do I pay for streaming?") {
		t.Errorf("history turn missing: %q", prompt)
	}
	if !strings.Contains(prompt, "Assistant: About $15 a month.") {
		t.Errorf("assistant turn missing: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "\nUser: And yearly?\nAssistant:") {
		t.Errorf("prompt tail: %q", prompt)
	}
}

func TestChatToolPathPassesBareMessage(t *testing.T) {
	settings := enabledSettings()
	settings.InternetAccessEnabled = true
	f := newFixture(t, settings, "answer")

	if _, err := f.svc.Chat(context.Background(), "Is Netflix raising prices?", f.userID, nil); err != nil {
		t.Fatal(err)
	}
	if f.provider.toolCalls != 1 {
		t.Fatalf("tool path not taken")
	}
	if f.provider.lastPrompt != "Is Netflix raising prices?" {
		t.Errorf("prompt should be the bare message: %q", f.provider.lastPrompt)
	}
	if !strings.Contains(f.provider.lastContext, "real-time web search") {
		t.Errorf("system context: %q", f.provider.lastContext)
	}
}

func TestChatSessionPersistsExchange(t *testing.T) {
	settings := enabledSettings()
	settings.InternetAccessEnabled = false
	f := newFixture(t, settings, "Hello!")
	ctx := context.Background()

	result, err := f.svc.ChatSession(ctx, "", "Hi there", f.userID)
	if err != nil {
		t.Fatalf("ChatSession: %v", err)
	}
	if result.SessionID == "" {
		t.Fatal("session id not assigned")
	}

	history, err := f.store.ChatHistory(ctx, result.SessionID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 stored turns, got %d", len(history))
	}
	if history[0].Role != "user" || history[0].Content != "Hi there" {
		t.Errorf("user turn: %+v", history[0])
	}
	if history[1].Role != "assistant" || history[1].Content != "Hello!" {
		t.Errorf("assistant turn: %+v", history[1])
	}

	// Second message in the same session carries the history forward.
	if _, err := f.svc.ChatSession(ctx, result.SessionID, "Thanks", f.userID); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.provider.lastPrompt, "User: Hi there") {
		t.Errorf("prior turn not in prompt: %q", f.provider.lastPrompt)
	}
}

func TestTestConnection(t *testing.T) {
	f := newFixture(t, enabledSettings(), "")

	probe, err := f.svc.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if !probe.Success || probe.Provider != "Scripted" {
		t.Errorf("probe: %+v", probe)
	}
}

// Probe and error-relabeling tests against stub HTTP servers. Each server
// speaks just enough of the vendor's error wire format for the SDK to
// surface a structured error.
package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
)

func newClaudeProviderForTest(baseURL string) *ClaudeProvider {
	return &ClaudeProvider{
		client: anthropic.NewClient(
			option.WithAPIKey("sk-ant-bad"),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
		model:     defaultClaudeModel,
		maxTokens: 2000,
	}
}

func newOpenAIProviderForTest(baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig("sk-bad")
	cfg.BaseURL = baseURL + "/v1"
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     defaultOpenAIModel,
		maxTokens: 2000,
	}
}

func anthropicAuthErrorServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
}

func openAIErrorServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestClaudeProbeAuthFailure(t *testing.T) {
	srv := anthropicAuthErrorServer()
	defer srv.Close()

	probe := newClaudeProviderForTest(srv.URL).TestConnection(context.Background())
	if probe.Success {
		t.Fatal("probe should fail on authentication error")
	}
	if !strings.Contains(probe.Message, "API key") {
		t.Errorf("probe message should mention the API key: %q", probe.Message)
	}
	if probe.Provider != "Claude" {
		t.Errorf("provider name: got %q", probe.Provider)
	}
}

func TestClaudeGenerateRelabelsAuthFailure(t *testing.T) {
	srv := anthropicAuthErrorServer()
	defer srv.Close()

	_, err := newClaudeProviderForTest(srv.URL).GenerateResponse(context.Background(), "Hi", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != msgAuthFailed {
		t.Errorf("auth failure not relabeled: %v", err)
	}
}

func TestOpenAIProbeAuthFailure(t *testing.T) {
	srv := openAIErrorServer(http.StatusUnauthorized,
		`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
	defer srv.Close()

	probe := newOpenAIProviderForTest(srv.URL).TestConnection(context.Background())
	if probe.Success {
		t.Fatal("probe should fail on authentication error")
	}
	if !strings.Contains(probe.Message, "API key") {
		t.Errorf("probe message should mention the API key: %q", probe.Message)
	}
	if probe.Provider != "OpenAI" {
		t.Errorf("provider name: got %q", probe.Provider)
	}
}

func TestOpenAIProbeRateLimited(t *testing.T) {
	srv := openAIErrorServer(http.StatusTooManyRequests,
		`{"error":{"message":"Rate limit reached","type":"rate_limit_error"}}`)
	defer srv.Close()

	probe := newOpenAIProviderForTest(srv.URL).TestConnection(context.Background())
	if probe.Success {
		t.Fatal("probe should fail when rate limited")
	}
	if !strings.Contains(probe.Message, "Rate limit") {
		t.Errorf("probe message: %q", probe.Message)
	}
}

func TestOpenAIGenerateRelabelsRateLimit(t *testing.T) {
	srv := openAIErrorServer(http.StatusTooManyRequests,
		`{"error":{"message":"Rate limit reached","type":"rate_limit_error"}}`)
	defer srv.Close()

	_, err := newOpenAIProviderForTest(srv.URL).GenerateResponse(context.Background(), "Hi", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != msgRateLimited {
		t.Errorf("rate limit not relabeled: %v", err)
	}
}

func TestOllamaProbeModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama3.2' not found"}`))
	}))
	defer srv.Close()

	provider, err := NewOllamaProvider(srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	probe := provider.TestConnection(context.Background())
	if probe.Success {
		t.Fatal("probe should fail when the model is missing")
	}
	if !strings.Contains(probe.Message, "ollama pull") {
		t.Errorf("probe message should suggest pulling the model: %q", probe.Message)
	}
	if probe.Provider != "Ollama" {
		t.Errorf("provider name: got %q", probe.Provider)
	}
}

func TestOllamaProbeConnectionRefused(t *testing.T) {
	// Reserve a port and close the listener so the connection is refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	provider, err := NewOllamaProvider(addr, "")
	if err != nil {
		t.Fatal(err)
	}
	probe := provider.TestConnection(context.Background())
	if probe.Success {
		t.Fatal("probe should fail when the server is unreachable")
	}
	if !strings.Contains(probe.Message, "Cannot connect") {
		t.Errorf("probe message: %q", probe.Message)
	}
}

func TestOllamaProbeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.2","response":"Hi there","done":true}`))
	}))
	defer srv.Close()

	provider, err := NewOllamaProvider(srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	probe := provider.TestConnection(context.Background())
	if !probe.Success {
		t.Fatalf("probe should succeed: %q", probe.Message)
	}
	if !strings.Contains(probe.Message, srv.URL) {
		t.Errorf("probe message should include the server URL: %q", probe.Message)
	}
}

package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/idan2025/subscription-tracker/llm"
)

// Search method identifiers as stored in admin settings.
const (
	MethodFreeScraping = "free_scraping"
	MethodSerpAPI      = "serpapi"
	MethodGoogleCustom = "google_custom"
)

// Executor dispatches tool calls from the AI tool loop to a search backend.
// Failures are reported inside the ToolOutcome, never as Go errors, so the
// loop can feed them back to the model.
type Executor struct {
	method  string
	backend SearchBackend
}

// NewExecutor builds an executor for the configured search method. Paid
// methods fail fast when no API key is configured.
func NewExecutor(method, apiKey string, limiter *RateLimiter) (*Executor, error) {
	switch method {
	case MethodFreeScraping:
		return &Executor{method: method, backend: NewFreeScraper(limiter)}, nil
	case MethodSerpAPI:
		if apiKey == "" {
			return nil, errors.New("SerpAPI requires an API key")
		}
		return &Executor{method: method, backend: NewSerpAPIBackend(apiKey, limiter)}, nil
	case MethodGoogleCustom:
		if apiKey == "" {
			return nil, errors.New("Google Custom Search requires an API key")
		}
		return &Executor{method: method, backend: NewGoogleCustomBackend(apiKey, "", limiter)}, nil
	default:
		return nil, fmt.Errorf("unknown search method: %s", method)
	}
}

// NewExecutorWithBackend wires a caller-supplied backend. Used by tests and
// by callers that manage backend construction themselves.
func NewExecutorWithBackend(method string, backend SearchBackend) *Executor {
	return &Executor{method: method, backend: backend}
}

// SearchMethod reports which backend the executor was built with.
func (e *Executor) SearchMethod() string {
	return e.method
}

// ExecuteTool runs one named tool with the given input and returns a
// structured outcome with timing.
func (e *Executor) ExecuteTool(ctx context.Context, name string, input map[string]any) llm.ToolOutcome {
	start := time.Now()
	result, err := e.dispatch(ctx, name, input)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return llm.ToolOutcome{
			Success:         false,
			Error:           err.Error(),
			ExecutionTimeMs: elapsed,
			ToolName:        name,
		}
	}
	return llm.ToolOutcome{
		Success:         true,
		Result:          result,
		ExecutionTimeMs: elapsed,
		ToolName:        name,
	}
}

func (e *Executor) dispatch(ctx context.Context, name string, input map[string]any) (any, error) {
	switch name {
	case "search_web":
		return e.backend.SearchWeb(ctx, strArg(input, "query", ""), intArg(input, "max_results", 5))
	case "get_subscription_pricing":
		return e.backend.GetSubscriptionPricing(ctx, strArg(input, "service_name", ""), strArg(input, "region", "US"))
	case "find_alternatives":
		return e.backend.FindAlternatives(ctx, strArg(input, "service_name", ""), strArg(input, "category", ""))
	case "check_price_changes":
		return e.backend.CheckPriceChanges(ctx, strArg(input, "service_name", ""))
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func strArg(input map[string]any, key, fallback string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// intArg reads an integer argument. JSON decoding yields float64, so both
// numeric kinds are accepted.
func intArg(input map[string]any, key string, fallback int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// Package tools provides the web tools invoked by the AI tool loop.
//
// Information Hiding:
// - Search backend selection hidden behind the SearchBackend interface
// - HTTP plumbing and result parsing hidden in implementations
// - Rate limiting applied uniformly before every outbound request
package tools

import (
	"context"
	"fmt"
	"regexp"
)

// SearchResult is one ranked result from a web search.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// PricingInfo is the result of a pricing lookup for one service.
// EstimatedPrice is best-effort and only populated by the free-scraping
// backend; the paid backends omit it.
type PricingInfo struct {
	Service        string         `json:"service"`
	Region         string         `json:"region"`
	Sources        []SearchResult `json:"sources"`
	EstimatedPrice string         `json:"estimated_price,omitempty"`
	LastUpdated    string         `json:"last_updated"`
}

// AlternativeResult is one candidate alternative service.
type AlternativeResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url"`
}

// PriceChangeReport summarizes recent price-change news for a service.
type PriceChangeReport struct {
	Service          string         `json:"service"`
	HasRecentChanges bool           `json:"has_recent_changes"`
	News             []SearchResult `json:"news"`
	CheckedAt        string         `json:"checked_at"`
}

// SearchBackend is the uniform capability contract across the free-scraping
// and paid search implementations.
type SearchBackend interface {
	SearchWeb(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
	GetSubscriptionPricing(ctx context.Context, serviceName, region string) (PricingInfo, error)
	FindAlternatives(ctx context.Context, serviceName, category string) ([]AlternativeResult, error)
	CheckPriceChanges(ctx context.Context, serviceName string) (PriceChangeReport, error)
}

// ExecutionError is the single uniform failure type for tool execution.
// Transport and backend failures are wrapped into it so vendor-specific
// error shapes never leak upward.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func execErr(op string, err error) error {
	return &ExecutionError{Op: op, Err: err}
}

// pricePattern matches currency amounts like "$9.99 per month" or "$15.49".
var pricePattern = regexp.MustCompile(`(?i)\$\d+\.?\d*\s*(?:per\s+)?(?:month|year|week)?`)

// extractPriceFromResults scans result text for the first currency amount.
// Returns "" when no match is found.
func extractPriceFromResults(results []SearchResult) string {
	for _, r := range results {
		text := r.Title + " " + r.Snippet
		if match := pricePattern.FindString(text); match != "" {
			return match
		}
	}
	return ""
}

// Query templates shared by all backends.

func pricingQuery(serviceName, region string) string {
	return fmt.Sprintf("%s subscription pricing %s 2026", serviceName, region)
}

func alternativesQuery(serviceName, category string) string {
	return fmt.Sprintf("alternatives to %s %s subscription 2026", serviceName, category)
}

func priceChangeQuery(serviceName string) string {
	return fmt.Sprintf("%s price increase 2025 2026", serviceName)
}

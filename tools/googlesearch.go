package tools

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const googleCustomSearchBaseURL = "https://www.googleapis.com/customsearch/v1"

// GoogleCustomBackend searches via the Google Custom Search JSON API.
type GoogleCustomBackend struct {
	apiKey         string
	searchEngineID string
	baseURL        string
	httpClient     *http.Client
	limiter        *RateLimiter
}

// NewGoogleCustomBackend builds the Google Custom Search backend. An empty
// engine ID falls back to "default".
func NewGoogleCustomBackend(apiKey, searchEngineID string, limiter *RateLimiter) *GoogleCustomBackend {
	if searchEngineID == "" {
		searchEngineID = "default"
	}
	return &GoogleCustomBackend{
		apiKey:         apiKey,
		searchEngineID: searchEngineID,
		baseURL:        googleCustomSearchBaseURL,
		httpClient:     &http.Client{Timeout: searchTimeout},
		limiter:        limiter,
	}
}

func (g *GoogleCustomBackend) SearchWeb(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	g.limiter.Wait()

	// The API caps num at 10.
	num := maxResults
	if num > 10 {
		num = 10
	}
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.searchEngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))

	var payload struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := getJSON(ctx, g.httpClient, g.baseURL+"?"+params.Encode(), &payload); err != nil {
		return nil, execErr("Google Custom Search", err)
	}

	results := []SearchResult{}
	for _, item := range payload.Items {
		if len(results) >= maxResults {
			break
		}
		results = append(results, SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}

func (g *GoogleCustomBackend) GetSubscriptionPricing(ctx context.Context, serviceName, region string) (PricingInfo, error) {
	return pricingFromSearch(ctx, g, serviceName, region, false)
}

func (g *GoogleCustomBackend) FindAlternatives(ctx context.Context, serviceName, category string) ([]AlternativeResult, error) {
	return alternativesFromSearch(ctx, g, serviceName, category)
}

func (g *GoogleCustomBackend) CheckPriceChanges(ctx context.Context, serviceName string) (PriceChangeReport, error) {
	return priceChangesFromSearch(ctx, g, serviceName)
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const serpAPIBaseURL = "https://serpapi.com/search"

// SerpAPIBackend searches via the SerpAPI paid service.
type SerpAPIBackend struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
}

// NewSerpAPIBackend builds the SerpAPI backend. The key is validated by the
// executor before construction.
func NewSerpAPIBackend(apiKey string, limiter *RateLimiter) *SerpAPIBackend {
	return &SerpAPIBackend{
		apiKey:     apiKey,
		baseURL:    serpAPIBaseURL,
		httpClient: &http.Client{Timeout: searchTimeout},
		limiter:    limiter,
	}
}

func (s *SerpAPIBackend) SearchWeb(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	s.limiter.Wait()

	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(maxResults))

	var payload struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := getJSON(ctx, s.httpClient, s.baseURL+"?"+params.Encode(), &payload); err != nil {
		return nil, execErr("SerpAPI search", err)
	}

	results := []SearchResult{}
	for _, item := range payload.OrganicResults {
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

func (s *SerpAPIBackend) GetSubscriptionPricing(ctx context.Context, serviceName, region string) (PricingInfo, error) {
	return pricingFromSearch(ctx, s, serviceName, region, false)
}

func (s *SerpAPIBackend) FindAlternatives(ctx context.Context, serviceName, category string) ([]AlternativeResult, error) {
	return alternativesFromSearch(ctx, s, serviceName, category)
}

func (s *SerpAPIBackend) CheckPriceChanges(ctx context.Context, serviceName string) (PriceChangeReport, error) {
	return priceChangesFromSearch(ctx, s, serviceName)
}

// getJSON performs a GET and decodes a JSON body, treating non-2xx statuses
// as errors.
func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

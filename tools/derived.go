package tools

import (
	"context"
	"time"
)

// webSearcher is the primitive every derived operation is built on.
type webSearcher interface {
	SearchWeb(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// pricingFromSearch runs a focused pricing query and packages the results.
// withEstimate enables best-effort price extraction from snippets; only the
// free-scraping backend opts in.
func pricingFromSearch(ctx context.Context, s webSearcher, serviceName, region string, withEstimate bool) (PricingInfo, error) {
	results, err := s.SearchWeb(ctx, pricingQuery(serviceName, region), 3)
	if err != nil {
		return PricingInfo{}, err
	}
	info := PricingInfo{
		Service:     serviceName,
		Region:      region,
		Sources:     results,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}
	if withEstimate {
		info.EstimatedPrice = extractPriceFromResults(results)
	}
	return info, nil
}

func alternativesFromSearch(ctx context.Context, s webSearcher, serviceName, category string) ([]AlternativeResult, error) {
	results, err := s.SearchWeb(ctx, alternativesQuery(serviceName, category), 5)
	if err != nil {
		return nil, err
	}
	alternatives := make([]AlternativeResult, 0, len(results))
	for _, r := range results {
		alternatives = append(alternatives, AlternativeResult{
			Title:       r.Title,
			Description: r.Snippet,
			SourceURL:   r.URL,
		})
	}
	return alternatives, nil
}

func priceChangesFromSearch(ctx context.Context, s webSearcher, serviceName string) (PriceChangeReport, error) {
	results, err := s.SearchWeb(ctx, priceChangeQuery(serviceName), 3)
	if err != nil {
		return PriceChangeReport{}, err
	}
	return PriceChangeReport{
		Service:          serviceName,
		HasRecentChanges: len(results) > 0,
		News:             results,
		CheckedAt:        time.Now().UTC().Format(time.RFC3339),
	}, nil
}

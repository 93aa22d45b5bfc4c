package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	duckDuckGoBaseURL = "https://html.duckduckgo.com"
	scraperUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	searchTimeout     = 10 * time.Second
)

// FreeScraper searches the web by scraping the DuckDuckGo HTML endpoint.
// It needs no API key and is the default backend.
type FreeScraper struct {
	httpClient *http.Client
	baseURL    string
	limiter    *RateLimiter
}

// NewFreeScraper builds the free-scraping backend.
func NewFreeScraper(limiter *RateLimiter) *FreeScraper {
	return &FreeScraper{
		httpClient: &http.Client{Timeout: searchTimeout},
		baseURL:    duckDuckGoBaseURL,
		limiter:    limiter,
	}
}

func (f *FreeScraper) SearchWeb(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	f.limiter.Wait()

	endpoint := f.baseURL + "/html/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, execErr("Web search", err)
	}
	req.Header.Set("User-Agent", scraperUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, execErr("Web search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, execErr("Web search", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, execErr("Web search", err)
	}
	return parseDuckDuckGoResults(doc, maxResults), nil
}

func (f *FreeScraper) GetSubscriptionPricing(ctx context.Context, serviceName, region string) (PricingInfo, error) {
	return pricingFromSearch(ctx, f, serviceName, region, true)
}

func (f *FreeScraper) FindAlternatives(ctx context.Context, serviceName, category string) ([]AlternativeResult, error) {
	return alternativesFromSearch(ctx, f, serviceName, category)
}

func (f *FreeScraper) CheckPriceChanges(ctx context.Context, serviceName string) (PriceChangeReport, error) {
	return priceChangesFromSearch(ctx, f, serviceName)
}

// parseDuckDuckGoResults walks the document for div.result blocks, reading
// the title/href from a.result__a and the snippet from a.result__snippet.
func parseDuckDuckGoResults(doc *html.Node, maxResults int) []SearchResult {
	results := []SearchResult{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if r, ok := parseResultBlock(n); ok {
				results = append(results, r)
			}
			// result blocks do not nest; no need to descend
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

func parseResultBlock(block *html.Node) (SearchResult, bool) {
	var result SearchResult
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				result.Title = strings.TrimSpace(nodeText(n))
				result.URL = attrValue(n, "href")
				found = true
			case hasClass(n, "result__snippet"):
				result.Snippet = strings.TrimSpace(nodeText(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(block)
	return result, found
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

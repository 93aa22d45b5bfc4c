package tools

import "github.com/idan2025/subscription-tracker/llm"

// Definitions returns the canonical tool catalog in a stable order. The
// schemas are provider-neutral JSON Schema; each provider adapter converts
// them to its vendor wire shape.
func Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "search_web",
			Description: "Search the web for current information about subscriptions, pricing, or alternatives. Use this when you need up-to-date information that may have changed since your knowledge cutoff.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query. Be specific and include keywords like 'subscription pricing 2026' or 'alternative to Netflix'",
					},
					"max_results": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results to return (1-10)",
						"default":     5,
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "get_subscription_pricing",
			Description: "Get current pricing information for a specific subscription service. More focused than general web search.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"service_name": map[string]any{
						"type":        "string",
						"description": "Name of the subscription service (e.g., 'Netflix', 'Spotify Premium')",
					},
					"region": map[string]any{
						"type":        "string",
						"description": "Region/country for pricing (e.g., 'US', 'UK')",
						"default":     "US",
					},
				},
				"required": []string{"service_name"},
			},
		},
		{
			Name:        "find_alternatives",
			Description: "Find alternative subscription services in a specific category. Returns real current alternatives with pricing.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"service_name": map[string]any{
						"type":        "string",
						"description": "Current subscription service name",
					},
					"category": map[string]any{
						"type":        "string",
						"description": "Service category (e.g., 'streaming', 'music', 'productivity')",
					},
				},
				"required": []string{"service_name", "category"},
			},
		},
		{
			Name:        "check_price_changes",
			Description: "Check if a subscription service has had recent price changes or increases.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"service_name": map[string]any{
						"type":        "string",
						"description": "Name of the subscription service",
					},
				},
				"required": []string{"service_name"},
			},
		},
	}
}

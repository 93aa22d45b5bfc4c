// Package service implements the AI-backed subscription features:
// alternatives finding, spending analysis, recommendations, and chat.
//
// Information Hiding:
// - Provider and executor construction hidden behind injectable factories
// - Gating rules (admin settings, feature flags) encapsulated here
// - Lenient response parsing keeps malformed model output a 200, not an error
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	jsonx "github.com/idan2025/subscription-tracker/internal/json"
	"github.com/idan2025/subscription-tracker/llm"
	"github.com/idan2025/subscription-tracker/storage"
	"github.com/idan2025/subscription-tracker/tools"
)

const chatHistoryWindow = 10

// Service wires storage, provider construction, and tool execution behind
// the feature operations.
type Service struct {
	store       *storage.Store
	newProvider func(kind, credential, model string) (llm.Provider, error)
	newExecutor func(method, apiKey string) (llm.ToolRunner, error)
}

// New builds a Service with the real provider factory and a shared search
// rate limiter. Non-positive searchCallsPerMin falls back to the default.
func New(store *storage.Store, searchCallsPerMin int) *Service {
	limiter := tools.NewRateLimiter(searchCallsPerMin)
	return &Service{
		store:       store,
		newProvider: llm.NewProvider,
		newExecutor: func(method, apiKey string) (llm.ToolRunner, error) {
			return tools.NewExecutor(method, apiKey, limiter)
		},
	}
}

// aiSettings loads and gates on the admin settings. Returns a RequestError
// when AI features are unavailable.
func (s *Service) aiSettings(ctx context.Context) (*storage.AdminSettings, error) {
	settings, err := s.store.AISettings(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	if settings == nil {
		return nil, disabled("AI features are disabled")
	}
	return settings, nil
}

func (s *Service) buildProvider(settings *storage.AdminSettings) (llm.Provider, error) {
	model := ""
	if strings.EqualFold(settings.AIProvider, "ollama") {
		model = settings.OllamaModel
	}
	provider, err := s.newProvider(settings.AIProvider, settings.APIKey, model)
	if err != nil {
		return nil, unavailable(err)
	}
	return provider, nil
}

// useTools reports whether the tool-calling path applies: internet access on,
// tool calling not disabled, and the provider capable.
func useTools(settings *storage.AdminSettings, provider llm.Provider) bool {
	return settings.InternetAccessEnabled && settings.ToolCallingEnabled && provider.SupportsToolCalling()
}

func (s *Service) buildExecutor(settings *storage.AdminSettings) (llm.ToolRunner, error) {
	exec, err := s.newExecutor(settings.SearchMethod, settings.SearchAPIKey)
	if err != nil {
		return nil, unavailable(err)
	}
	return exec, nil
}

// TestConnection probes the configured provider.
func (s *Service) TestConnection(ctx context.Context) (*llm.ConnectionProbe, error) {
	settings, err := s.aiSettings(ctx)
	if err != nil {
		return nil, err
	}
	provider, err := s.buildProvider(settings)
	if err != nil {
		return nil, err
	}
	probe := provider.TestConnection(ctx)
	return &probe, nil
}

// FindAlternatives suggests cheaper or better-value replacements for one
// subscription.
func (s *Service) FindAlternatives(ctx context.Context, subscriptionID, userID int64) (*AlternativesResult, error) {
	settings, err := s.aiSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.FeatureAlternatives {
		return nil, disabled("Alternatives finder feature is disabled")
	}

	sub, err := s.store.GetSubscription(ctx, subscriptionID, userID)
	if err != nil {
		return nil, unavailable(err)
	}
	if sub == nil {
		return nil, notFound("Subscription not found")
	}

	provider, err := s.buildProvider(settings)
	if err != nil {
		return nil, err
	}

	category := sub.Category
	if category == "" {
		category = "Unknown"
	}

	var response string
	if useTools(settings, provider) {
		exec, err := s.buildExecutor(settings)
		if err != nil {
			return nil, err
		}

		prompt := fmt.Sprintf(`The user has a subscription to: %s
Current cost: $%s per %s
Category: %s

Find 3-5 cheaper or better-value alternatives. Use the available tools to search for current pricing and real alternatives.

After gathering information, respond with a JSON array in this format:
[
    {
        "name": "Alternative Service Name",
        "description": "Brief description",
        "price": "$X.XX/month",
        "differences": "Key differences"
    }
]`, sub.Name, formatCost(sub.Cost), sub.BillingCycle, category)

		sysContext := "You are a subscription cost optimization assistant with access to real-time web search. Use the tools to find current, accurate information about alternatives and pricing."

		response, err = provider.GenerateResponseWithTools(ctx, prompt, sysContext, tools.Definitions(), exec)
		if err != nil {
			return nil, unavailable(err)
		}
	} else {
		prompt := fmt.Sprintf(`You are a subscription cost optimization assistant.

The user has a subscription to: %s
Current cost: $%s per %s
Category: %s

Please suggest 3-5 cheaper or better-value alternatives. For each alternative, provide:
1. Name of the service
2. Brief description (1-2 sentences)
3. Pricing information
4. Key differences from the original service

IMPORTANT: Respond ONLY with a valid JSON array. No other text.
Format your response exactly like this:
[
    {
        "name": "Alternative Service Name",
        "description": "Brief description of what this service offers",
        "price": "$9.99/month",
        "differences": "Key differences from %s"
    }
]`, sub.Name, formatCost(sub.Cost), sub.BillingCycle, category, sub.Name)

		response, err = provider.GenerateResponse(ctx, prompt, "")
		if err != nil {
			return nil, unavailable(err)
		}
	}

	var alternatives []Alternative
	if err := jsonx.ExtractArray(response, &alternatives); err != nil {
		// Prose answer: wrap it as a single suggestion rather than failing.
		alternatives = []Alternative{{
			Name:        "AI Suggestions",
			Description: response,
			Price:       "Varies",
			Differences: "See AI response for alternatives",
		}}
	}
	return &AlternativesResult{Alternatives: alternatives, Source: "ai", Status: 200}, nil
}

// SpendingAnalysis produces insights on the user's portfolio.
func (s *Service) SpendingAnalysis(ctx context.Context, userID int64) (*AnalysisResult, error) {
	settings, err := s.aiSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.FeatureAnalysis {
		return nil, disabled("Analysis feature is disabled")
	}

	portfolio, err := portfolioContext(ctx, s.store, userID)
	if err != nil {
		return nil, unavailable(err)
	}
	if portfolio == "" || strings.Contains(portfolio, emptyPortfolioMarker) {
		return &AnalysisResult{
			Insights: []Insight{{
				Title:       "No Subscriptions Yet",
				Description: "Add some subscriptions to get AI-powered insights on your spending patterns.",
			}},
			Status: 200,
		}, nil
	}

	provider, err := s.buildProvider(settings)
	if err != nil {
		return nil, err
	}

	var response string
	if useTools(settings, provider) {
		exec, err := s.buildExecutor(settings)
		if err != nil {
			return nil, err
		}

		prompt := portfolio + `

Analyze this user's subscription spending and provide 3-5 key insights. Use tools to check if any services have had recent price increases.

Respond with JSON:
{
    "insights": [
        {
            "title": "Brief insight title",
            "description": "Detailed explanation"
        }
    ]
}`
		sysContext := "You are a subscription spending analyst with access to real-time price change information. Use tools when needed."

		response, err = provider.GenerateResponseWithTools(ctx, prompt, sysContext, tools.Definitions(), exec)
		if err != nil {
			return nil, unavailable(err)
		}
	} else {
		prompt := portfolio + `

Analyze this user's subscription spending and provide 3-5 key insights about their spending patterns, potential areas for cost reduction, and any concerning trends.

IMPORTANT: Respond ONLY with a valid JSON object. No other text.
Format your response exactly like this:
{
    "insights": [
        {
            "title": "Brief insight title",
            "description": "Detailed explanation of the insight"
        }
    ]
}`
		response, err = provider.GenerateResponse(ctx, prompt, "")
		if err != nil {
			return nil, unavailable(err)
		}
	}

	var payload struct {
		Insights []Insight `json:"insights"`
	}
	if err := jsonx.ExtractObject(response, &payload); err != nil {
		return &AnalysisResult{
			Insights: []Insight{{Title: "AI Analysis", Description: response}},
			Status:   200,
		}, nil
	}
	if payload.Insights == nil {
		payload.Insights = []Insight{}
	}
	return &AnalysisResult{Insights: payload.Insights, Status: 200}, nil
}

// Recommendations produces personalized cost-optimization suggestions.
func (s *Service) Recommendations(ctx context.Context, userID int64) (*RecommendationsResult, error) {
	settings, err := s.aiSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.FeatureRecommendations {
		return nil, disabled("Recommendations feature is disabled")
	}

	portfolio, err := portfolioContext(ctx, s.store, userID)
	if err != nil {
		return nil, unavailable(err)
	}
	if portfolio == "" || strings.Contains(portfolio, emptyPortfolioMarker) {
		return &RecommendationsResult{
			Recommendations: []Recommendation{{
				Title:       "Start Adding Subscriptions",
				Description: "Add your subscriptions to get personalized AI recommendations for optimizing your spending.",
				Savings:     "N/A",
				Priority:    "low",
			}},
			Status: 200,
		}, nil
	}

	provider, err := s.buildProvider(settings)
	if err != nil {
		return nil, err
	}

	var response string
	if useTools(settings, provider) {
		exec, err := s.buildExecutor(settings)
		if err != nil {
			return nil, err
		}

		prompt := portfolio + `

Provide 3-5 personalized recommendations to help reduce costs and optimize value. Use tools to find current deals or pricing.

Respond with JSON:
{
    "recommendations": [
        {
            "title": "Recommendation title",
            "description": "Detailed explanation",
            "savings": "$10/month",
            "priority": "high"
        }
    ]
}`
		sysContext := "You are a subscription optimization advisor with access to real-time pricing and deals. Use tools when helpful."

		response, err = provider.GenerateResponseWithTools(ctx, prompt, sysContext, tools.Definitions(), exec)
		if err != nil {
			return nil, unavailable(err)
		}
	} else {
		prompt := portfolio + `

Based on this subscription portfolio, provide 3-5 personalized recommendations to help the user:
1. Reduce costs
2. Optimize value
3. Consolidate services
4. Cancel underused subscriptions

For each recommendation, include:
- title: Brief title
- description: Detailed explanation
- savings: Estimated savings (if applicable, e.g., "$10/month" or "N/A")
- priority: high, medium, or low

IMPORTANT: Respond ONLY with a valid JSON object. No other text.
Format your response exactly like this:
{
    "recommendations": [
        {
            "title": "Recommendation title",
            "description": "Detailed explanation",
            "savings": "$10/month",
            "priority": "high"
        }
    ]
}`
		response, err = provider.GenerateResponse(ctx, prompt, "")
		if err != nil {
			return nil, unavailable(err)
		}
	}

	var payload struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := jsonx.ExtractObject(response, &payload); err != nil {
		return &RecommendationsResult{
			Recommendations: []Recommendation{{
				Title:       "AI Recommendations",
				Description: response,
				Savings:     "Varies",
				Priority:    "medium",
			}},
			Status: 200,
		}, nil
	}
	if payload.Recommendations == nil {
		payload.Recommendations = []Recommendation{}
	}
	return &RecommendationsResult{Recommendations: payload.Recommendations, Status: 200}, nil
}

// Chat answers a free-form question about the user's subscriptions, with the
// last turns of conversation history folded in.
func (s *Service) Chat(ctx context.Context, message string, userID int64, history []storage.ChatTurn) (*ChatResult, error) {
	settings, err := s.aiSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.FeatureChat {
		return nil, disabled("Chat feature is disabled")
	}

	portfolio, err := portfolioContext(ctx, s.store, userID)
	if err != nil {
		return nil, unavailable(err)
	}

	provider, err := s.buildProvider(settings)
	if err != nil {
		return nil, err
	}

	var response string
	if useTools(settings, provider) {
		exec, err := s.buildExecutor(settings)
		if err != nil {
			return nil, err
		}

		sysContext := fmt.Sprintf(`You are a helpful subscription management assistant with access to real-time web search.

%s

You can use the available tools to search for current pricing, alternatives, and price changes. Answer the user's questions about their subscriptions, help them optimize costs, suggest alternatives, and provide insights. Be concise, friendly, and helpful.`, portfolio)

		response, err = provider.GenerateResponseWithTools(ctx, message, sysContext, tools.Definitions(), exec)
		if err != nil {
			return nil, unavailable(err)
		}
	} else {
		sysContext := fmt.Sprintf(`You are a helpful subscription management assistant.

%s

Answer the user's questions about their subscriptions, help them optimize costs, suggest alternatives, and provide insights. Be concise, friendly, and helpful.`, portfolio)

		prompt := buildChatPrompt(sysContext, message, history)
		response, err = provider.GenerateResponse(ctx, prompt, "")
		if err != nil {
			return nil, unavailable(err)
		}
	}

	return &ChatResult{Response: response, Status: 200}, nil
}

// ChatSession runs Chat with persisted history. An empty sessionID starts a
// new session. Both halves of the exchange are stored.
func (s *Service) ChatSession(ctx context.Context, sessionID, message string, userID int64) (*ChatResult, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := s.store.EnsureChatSession(ctx, sessionID, userID); err != nil {
		return nil, unavailable(err)
	}

	history, err := s.store.ChatHistory(ctx, sessionID, chatHistoryWindow)
	if err != nil {
		return nil, unavailable(err)
	}

	result, err := s.Chat(ctx, message, userID, history)
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendChatMessage(ctx, sessionID, "user", message); err != nil {
		return nil, unavailable(err)
	}
	if err := s.store.AppendChatMessage(ctx, sessionID, "assistant", result.Response); err != nil {
		return nil, unavailable(err)
	}

	result.SessionID = sessionID
	return result, nil
}

// buildChatPrompt concatenates the system context, the trailing history
// window, and the new message into a single prompt.
func buildChatPrompt(sysContext, message string, history []storage.ChatTurn) string {
	var sb strings.Builder
	sb.WriteString(sysContext)

	if len(history) > 0 {
		sb.WriteString("\n\nConversation history:\n")
		start := 0
		if len(history) > chatHistoryWindow {
			start = len(history) - chatHistoryWindow
		}
		for _, turn := range history[start:] {
			role := turn.Role
			if role == "" {
				role = "user"
			}
			fmt.Fprintf(&sb, "%s: %s\n", capitalize(role), turn.Content)
		}
	}

	fmt.Fprintf(&sb, "\nUser: %s\nAssistant:", message)
	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

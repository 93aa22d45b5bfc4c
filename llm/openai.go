// OpenAI provider implementation using the go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for the Chat Completions API
// - tool_calls / role:tool message protocol

package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: 2000,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "OpenAI"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// SupportsToolCalling reports tool-calling capability.
func (p *OpenAIProvider) SupportsToolCalling() bool {
	return true
}

// TestConnection sends a minimal completion to verify the API key.
func (p *OpenAIProvider) TestConnection(ctx context.Context) ConnectionProbe {
	ctx, cancel := context.WithTimeout(ctx, connectionTestTimeout)
	defer cancel()

	_, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: 10,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	})
	if err == nil {
		return ConnectionProbe{Success: true, Message: "Successfully connected to OpenAI API", Provider: p.Name()}
	}

	switch classifyError(err) {
	case ErrorInvalidCredential, ErrorPermissionDenied:
		return ConnectionProbe{Message: "Invalid API key. Please check your OpenAI API key.", Provider: p.Name()}
	case ErrorRateLimited:
		return ConnectionProbe{Message: "Rate limit exceeded. Please try again later.", Provider: p.Name()}
	default:
		return ConnectionProbe{Message: fmt.Sprintf("Connection failed: %v", err), Provider: p.Name()}
	}
}

// GenerateResponse generates a response. Context, when present, becomes a
// dedicated system-role message (OpenAI convention).
func (p *OpenAIProvider) GenerateResponse(ctx context.Context, prompt, sysContext string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if sysContext != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sysContext,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", relabelError(err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateResponseWithTools runs the tool loop against the Chat Completions API.
func (p *OpenAIProvider) GenerateResponseWithTools(ctx context.Context, prompt, sysContext string, tools []ToolDefinition, exec ToolRunner) (string, error) {
	return generateWithTools(ctx, p, p, prompt, sysContext, tools, exec)
}

// chatWithTools makes one tool-loop turn against the Chat Completions API.
func (p *OpenAIProvider) chatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (turn, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages:  convertToOpenAIMessages(messages),
		Tools:     convertToOpenAITools(tools),
	})
	if err != nil {
		return turn{}, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return turn{}, nil
	}

	choice := resp.Choices[0]
	t := turn{Text: choice.Message.Content}

	// finish_reason != tool_calls means the conversation is complete.
	if choice.FinishReason != openai.FinishReasonToolCalls {
		return t, nil
	}
	for _, tc := range choice.Message.ToolCalls {
		t.ToolCalls = append(t.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		})
	}
	return t, nil
}

// convertToOpenAIMessages converts ChatMessages to OpenAI format, carrying
// assistant tool calls and role:tool results with their tool_call_id.
func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		if msg.ToolCallID != "" {
			oaiMsg.ToolCallID = msg.ToolCallID
		}
		result[i] = oaiMsg
	}
	return result
}

// convertToOpenAITools renders canonical tool definitions into OpenAI's
// {type:"function", function:{...}} wire shape.
func convertToOpenAITools(tools []ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
var _ toolChatter = (*OpenAIProvider)(nil)

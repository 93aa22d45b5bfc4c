// Claude provider implementation using the official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for the Anthropic Messages API
// - tool_use / tool_result block protocol

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeModel = "claude-3-5-sonnet-20241022"

// ClaudeProvider implements the Provider interface for Anthropic Claude.
type ClaudeProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeProvider creates a new Claude provider.
func NewClaudeProvider(apiKey, model string) *ClaudeProvider {
	if model == "" {
		model = defaultClaudeModel
	}
	return &ClaudeProvider{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: 2000,
	}
}

// Name returns the provider name.
func (p *ClaudeProvider) Name() string {
	return "Claude"
}

// Model returns the current model.
func (p *ClaudeProvider) Model() string {
	return p.model
}

// SupportsToolCalling reports tool-calling capability.
func (p *ClaudeProvider) SupportsToolCalling() bool {
	return true
}

// TestConnection sends a minimal message to verify the API key.
func (p *ClaudeProvider) TestConnection(ctx context.Context) ConnectionProbe {
	ctx, cancel := context.WithTimeout(ctx, connectionTestTimeout)
	defer cancel()

	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 10,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Hi")),
		},
	})
	if err == nil {
		return ConnectionProbe{Success: true, Message: "Successfully connected to Claude API", Provider: p.Name()}
	}

	switch classifyError(err) {
	case ErrorInvalidCredential:
		return ConnectionProbe{Message: "Invalid API key. Please check your Anthropic API key.", Provider: p.Name()}
	case ErrorPermissionDenied:
		return ConnectionProbe{Message: "Permission denied. Check your API key permissions.", Provider: p.Name()}
	case ErrorRateLimited:
		return ConnectionProbe{Message: "Rate limit exceeded. Please try again later.", Provider: p.Name()}
	default:
		return ConnectionProbe{Message: fmt.Sprintf("Connection failed: %v", err), Provider: p.Name()}
	}
}

// GenerateResponse generates a response. Context, when present, is
// concatenated into the prompt text (Claude convention in this app).
func (p *ClaudeProvider) GenerateResponse(ctx context.Context, prompt, sysContext string) (string, error) {
	fullPrompt := prompt
	if sysContext != "" {
		fullPrompt = sysContext + "\n\n" + prompt
	}

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fullPrompt)),
		},
	})
	if err != nil {
		return "", relabelError(err)
	}

	return claudeText(message), nil
}

// GenerateResponseWithTools runs the tool loop against the Messages API.
func (p *ClaudeProvider) GenerateResponseWithTools(ctx context.Context, prompt, sysContext string, tools []ToolDefinition, exec ToolRunner) (string, error) {
	return generateWithTools(ctx, p, p, prompt, sysContext, tools, exec)
}

// chatWithTools makes one tool-loop turn against the Messages API.
func (p *ClaudeProvider) chatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (turn, error) {
	claudeMessages, systemPrompt := convertToClaudeMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  claudeMessages,
		Tools:     convertToClaudeTools(tools),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return turn{}, fmt.Errorf("claude message failed: %w", err)
	}

	t := turn{Text: claudeText(message)}
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.ToolUseBlock:
			inputJSON, _ := json.Marshal(variant.Input)
			t.ToolCalls = append(t.ToolCalls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: inputJSON,
			})
		}
	}

	// The vendor signals completion through stop_reason; anything other
	// than tool_use means no further tool rounds.
	if message.StopReason != "tool_use" {
		t.ToolCalls = nil
	}
	return t, nil
}

// claudeText concatenates the text blocks of a message.
func claudeText(message *anthropic.Message) string {
	content := ""
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		}
	}
	return content
}

// convertToClaudeMessages converts ChatMessages to Anthropic format.
// The system message is extracted and returned separately; tool results
// become tool_result blocks tagged with the originating tool_use id.
func convertToClaudeMessages(messages []ChatMessage) ([]anthropic.MessageParam, string) {
	var claudeMessages []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemPrompt = msg.Content
		case "user":
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				content := &anthropic.MessageParam{
					Role: anthropic.MessageParamRoleAssistant,
				}
				if msg.Content != "" {
					content.Content = append(content.Content, anthropic.NewTextBlock(msg.Content))
				}
				for _, tc := range msg.ToolCalls {
					var input map[string]interface{}
					_ = json.Unmarshal(tc.Arguments, &input)
					content.Content = append(content.Content, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							ID:    tc.ID,
							Name:  tc.Name,
							Input: input,
						},
					})
				}
				claudeMessages = append(claudeMessages, *content)
			} else {
				claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
					anthropic.NewTextBlock(msg.Content),
				))
			}
		case "tool":
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.ToolError),
			))
		}
	}

	return claudeMessages, systemPrompt
}

// convertToClaudeTools renders canonical tool definitions into Anthropic's
// {name, description, input_schema} wire shape.
func convertToClaudeTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		properties, _ := t.Parameters["properties"].(map[string]interface{})
		required, _ := t.Parameters["required"].([]string)

		toolParam := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		}
		result[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
	}
	return result
}

// connectionTestTimeout bounds a single connectivity probe.
const connectionTestTimeout = 10 * time.Second

// Verify ClaudeProvider implements Provider
var _ Provider = (*ClaudeProvider)(nil)
var _ toolChatter = (*ClaudeProvider)(nil)

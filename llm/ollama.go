// Ollama (self-hosted) provider implementation using the official
// ollama api client.
//
// Information Hiding:
// - Server URL handling and request plumbing
// - /api/generate vs /api/chat endpoint selection
// - Tool call protocol (no correlation ids; results are matched by order)

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const defaultOllamaModel = "llama3.2"

// ollamaGenerateTimeout bounds a single generation against a self-hosted
// server, which can be slow on modest hardware.
const ollamaGenerateTimeout = 60 * time.Second

// OllamaProvider implements the Provider interface for a self-hosted
// Ollama server. The credential is the server URL; no API key is involved.
type OllamaProvider struct {
	client    *api.Client
	serverURL string
	model     string
}

// NewOllamaProvider creates a new Ollama provider for the given server URL.
func NewOllamaProvider(serverURL, model string) (*OllamaProvider, error) {
	serverURL = strings.TrimRight(serverURL, "/")
	if model == "" {
		model = defaultOllamaModel
	}

	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama server URL: %w", err)
	}

	return &OllamaProvider{
		client:    api.NewClient(parsed, http.DefaultClient),
		serverURL: serverURL,
		model:     model,
	}, nil
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return "Ollama"
}

// Model returns the current model.
func (p *OllamaProvider) Model() string {
	return p.model
}

// SupportsToolCalling reports tool-calling capability.
func (p *OllamaProvider) SupportsToolCalling() bool {
	return true
}

// TestConnection sends a minimal generation to verify the server and model.
func (p *OllamaProvider) TestConnection(ctx context.Context) ConnectionProbe {
	ctx, cancel := context.WithTimeout(ctx, connectionTestTimeout)
	defer cancel()

	err := p.generate(ctx, "Hi", nil)
	if err == nil {
		return ConnectionProbe{
			Success:  true,
			Message:  fmt.Sprintf("Successfully connected to Ollama server at %s", p.serverURL),
			Provider: p.Name(),
		}
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == 404 {
			return ConnectionProbe{
				Message:  fmt.Sprintf("Model '%s' not found. Please pull the model first: ollama pull %s", p.model, p.model),
				Provider: p.Name(),
			}
		}
		return ConnectionProbe{
			Message:  fmt.Sprintf("Server returned status code %d", statusErr.StatusCode),
			Provider: p.Name(),
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
			return ConnectionProbe{
				Message:  "Connection timeout. Ollama server is not responding.",
				Provider: p.Name(),
			}
		}
		return ConnectionProbe{
			Message:  fmt.Sprintf("Cannot connect to Ollama server at %s. Is Ollama running?", p.serverURL),
			Provider: p.Name(),
		}
	}

	return ConnectionProbe{Message: fmt.Sprintf("Connection failed: %v", err), Provider: p.Name()}
}

// GenerateResponse generates a response via /api/generate. Context, when
// present, is concatenated into the prompt text.
func (p *OllamaProvider) GenerateResponse(ctx context.Context, prompt, sysContext string) (string, error) {
	fullPrompt := prompt
	if sysContext != "" {
		fullPrompt = sysContext + "\n\n" + prompt
	}

	ctx, cancel := context.WithTimeout(ctx, ollamaGenerateTimeout)
	defer cancel()

	var response strings.Builder
	err := p.generate(ctx, fullPrompt, func(resp api.GenerateResponse) {
		response.WriteString(resp.Response)
	})
	if err != nil {
		return "", relabelOllamaError(err)
	}
	return response.String(), nil
}

// GenerateResponseWithTools runs the tool loop against /api/chat.
func (p *OllamaProvider) GenerateResponseWithTools(ctx context.Context, prompt, sysContext string, tools []ToolDefinition, exec ToolRunner) (string, error) {
	return generateWithTools(ctx, p, p, prompt, sysContext, tools, exec)
}

// chatWithTools makes one tool-loop turn against /api/chat.
func (p *OllamaProvider) chatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (turn, error) {
	ctx, cancel := context.WithTimeout(ctx, ollamaGenerateTimeout)
	defer cancel()

	stream := false
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: convertToOllamaMessages(messages),
		Tools:    convertToOllamaTools(tools),
		Stream:   &stream,
	}

	var t turn
	var text strings.Builder
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		for _, call := range resp.Message.ToolCalls {
			args, err := json.Marshal(call.Function.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			// Ollama supplies no correlation id; ID stays empty and
			// results are appended in call order.
			t.ToolCalls = append(t.ToolCalls, ToolCall{
				Name:      call.Function.Name,
				Arguments: args,
			})
		}
		return nil
	})
	if err != nil {
		return turn{}, fmt.Errorf("ollama chat failed: %w", err)
	}

	t.Text = text.String()
	return t, nil
}

// generate runs a non-streaming /api/generate call, feeding each response
// chunk to fn when provided.
func (p *OllamaProvider) generate(ctx context.Context, prompt string, fn func(api.GenerateResponse)) error {
	stream := false
	req := &api.GenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: &stream,
	}
	return p.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		if fn != nil {
			fn(resp)
		}
		return nil
	})
}

// relabelOllamaError maps server failures onto the normalized messages,
// with transport cases worded for a self-hosted server.
func relabelOllamaError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return errors.New("Ollama request timed out. The model may be taking too long to respond.")
		}
		return errors.New("Cannot connect to Ollama server. Please check if Ollama is running.")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("Ollama request timed out. The model may be taking too long to respond.")
	}
	return fmt.Errorf("Ollama service error: %v", err)
}

// convertToOllamaMessages converts ChatMessages to Ollama format. Tool
// results become role:tool messages with no id, in call order.
func convertToOllamaMessages(messages []ChatMessage) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		m := api.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
		for _, tc := range msg.ToolCalls {
			var args api.ToolCallFunctionArguments
			_ = json.Unmarshal(tc.Arguments, &args)
			m.ToolCalls = append(m.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      tc.Name,
					Arguments: args,
				},
			})
		}
		result[i] = m
	}
	return result
}

// convertToOllamaTools renders canonical tool definitions into Ollama's
// {type:"function", function:{...}} wire shape (identical to OpenAI's).
func convertToOllamaTools(tools []ToolDefinition) []api.Tool {
	result := make([]api.Tool, len(tools))
	for i, t := range tools {
		params := api.ToolFunctionParameters{
			Properties: map[string]api.ToolProperty{},
		}
		if typ, ok := t.Parameters["type"].(string); ok {
			params.Type = typ
		}
		if required, ok := t.Parameters["required"].([]string); ok {
			params.Required = required
		}
		if properties, ok := t.Parameters["properties"].(map[string]any); ok {
			for name, raw := range properties {
				prop, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				toolProp := api.ToolProperty{}
				if typ, ok := prop["type"].(string); ok {
					toolProp.Type = api.PropertyType{typ}
				}
				if desc, ok := prop["description"].(string); ok {
					toolProp.Description = desc
				}
				params.Properties[name] = toolProp
			}
		}

		result[i] = api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		}
	}
	return result
}

// Verify OllamaProvider implements Provider
var _ Provider = (*OllamaProvider)(nil)
var _ toolChatter = (*OllamaProvider)(nil)

// Package llm provides shared data models for AI providers.
package llm

import "encoding/json"

// ChatMessage represents one turn in a tool-loop conversation.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // For assistant messages with tool calls
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool result messages
	ToolError  bool       `json:"-"`                      // Marks a failed tool result (Claude is_error flag)
}

// ToolCall represents a tool invocation requested by the model.
// ID is the vendor-supplied correlation id; Ollama omits it and results
// are matched back by order instead.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition is the canonical, provider-agnostic description of a tool.
// Parameters holds a JSON-Schema-like object; each adapter renders it into
// its vendor's wire shape.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolOutcome is the uniform result shape produced by a ToolRunner for both
// successful and failed invocations. It is serialized verbatim into the
// vendor's tool-result message.
type ToolOutcome struct {
	Success         bool   `json:"success"`
	Result          any    `json:"result,omitempty"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	ToolName        string `json:"tool_name"`
}

// ConnectionProbe is the result of a connectivity test. Probes are always
// returned, never raised: failures are classified into Message.
type ConnectionProbe struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

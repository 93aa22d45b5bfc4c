// Package llm provides the AI provider abstraction.
//
// Provider interface - the abstract interface for AI providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling
// - Tool-calling wire protocol details

package llm

import (
	"context"
)

// Provider defines the abstract interface for AI providers.
// Implementations hide provider-specific details while exposing
// a consistent interface for response generation and tool calling.
type Provider interface {
	// Name returns the provider name (for probes and logging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// TestConnection sends a minimal request to verify connectivity and
	// credentials. It never returns an error; failures are classified into
	// the probe's message.
	TestConnection(ctx context.Context) ConnectionProbe

	// GenerateResponse generates a plain text response. sysContext, when
	// non-empty, is injected according to the vendor's convention.
	GenerateResponse(ctx context.Context, prompt, sysContext string) (string, error)

	// GenerateResponseWithTools runs the multi-round tool loop against the
	// vendor's native protocol. With no tools or no executor it behaves
	// exactly like GenerateResponse. A failure inside the loop machinery
	// degrades to plain generation rather than surfacing an error.
	GenerateResponseWithTools(ctx context.Context, prompt, sysContext string, tools []ToolDefinition, exec ToolRunner) (string, error)

	// SupportsToolCalling reports whether this provider can drive the tool
	// loop. Kept as a capability query so lower-capability backends can
	// opt out without type checks at call sites.
	SupportsToolCalling() bool
}

// ToolRunner executes a named tool invocation on behalf of a provider's
// tool loop. Implementations must not panic; failures are reported in the
// outcome so the model can react to them.
type ToolRunner interface {
	ExecuteTool(ctx context.Context, name string, input map[string]any) ToolOutcome
}

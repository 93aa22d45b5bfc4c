// Shared tool loop.
//
// The multi-round conversation cycle (model requests tool, tool executes,
// result fed back, model continues) is one algorithm; only the wire protocol
// differs per vendor. Each provider adapts its protocol behind the
// toolChatter interface and the loop itself lives here, testable against a
// fake implementation.

package llm

import (
	"context"
	"encoding/json"
	"log"
)

// maxToolRounds bounds the number of model turns in one tool loop. The
// vendor is expected to stop requesting tools on its own; the cap protects
// latency and cost when a vendor or tool misbehaves.
const maxToolRounds = 8

// turn is one normalized model reply inside the tool loop.
type turn struct {
	Text      string
	ToolCalls []ToolCall
}

// toolChatter sends a full conversation plus the tool catalog to the vendor
// and normalizes the reply. Implementations translate messages and tool
// definitions into their vendor's wire shapes.
type toolChatter interface {
	chatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (turn, error)
}

// runToolLoop drives the conversation until the vendor stops requesting
// tools or the round cap is reached. Tool failures are fed back to the model
// as error-tagged results; only loop machinery failures return an error.
func runToolLoop(ctx context.Context, tc toolChatter, prompt, sysContext string, tools []ToolDefinition, exec ToolRunner) (string, error) {
	var messages []ChatMessage
	if sysContext != "" {
		messages = append(messages, SystemMessage(sysContext))
	}
	messages = append(messages, UserMessage(prompt))

	lastText := ""
	for round := 0; round < maxToolRounds; round++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		reply, err := tc.chatWithTools(ctx, messages, tools)
		if err != nil {
			return "", err
		}

		if len(reply.ToolCalls) == 0 {
			if reply.Text == "" {
				return noResponsePlaceholder, nil
			}
			return reply.Text, nil
		}
		if reply.Text != "" {
			lastText = reply.Text
		}

		messages = append(messages, ChatMessage{
			Role:      "assistant",
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		})

		// Execute sequentially, in the order the vendor listed them.
		for _, call := range reply.ToolCalls {
			outcome := exec.ExecuteTool(ctx, call.Name, decodeArguments(call.Arguments))
			payload, err := json.Marshal(outcome)
			if err != nil {
				payload = []byte(`{"success":false,"error":"failed to serialize tool result"}`)
			}
			messages = append(messages, ChatMessage{
				Role:       "tool",
				Content:    string(payload),
				ToolCallID: call.ID,
				ToolError:  !outcome.Success,
			})
		}
	}

	// Round cap hit: return the best text seen so far.
	if lastText != "" {
		return lastText, nil
	}
	return noResponsePlaceholder, nil
}

// decodeArguments parses the model-supplied argument JSON. Malformed
// arguments become an empty input so the failure surfaces from the tool
// itself rather than aborting the loop.
func decodeArguments(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return map[string]any{}
	}
	return input
}

// generateWithTools wraps runToolLoop with the shared degradation contract:
// no tools or no executor means plain generation, and a loop failure logs
// and falls back to plain generation instead of surfacing an error.
func generateWithTools(ctx context.Context, p Provider, tc toolChatter, prompt, sysContext string, tools []ToolDefinition, exec ToolRunner) (string, error) {
	if len(tools) == 0 || exec == nil {
		return p.GenerateResponse(ctx, prompt, sysContext)
	}

	text, err := runToolLoop(ctx, tc, prompt, sysContext, tools, exec)
	if err != nil {
		log.Printf("llm: tool loop failed for %s, falling back to plain generation: %v", p.Name(), err)
		return p.GenerateResponse(ctx, prompt, sysContext)
	}
	return text, nil
}

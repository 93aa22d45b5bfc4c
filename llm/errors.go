// Error classification for AI providers.
//
// Vendor SDK failures are classified from structured status codes where the
// SDK exposes them; substring matching on the error text is a last-resort
// fallback and a known fragility, not a contract.

package llm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind classifies a provider failure.
type ErrorKind int

const (
	ErrorUnknown ErrorKind = iota
	ErrorInvalidCredential
	ErrorPermissionDenied
	ErrorRateLimited
	ErrorTransport
)

// Stable user-facing messages. Callers never see raw vendor error text for
// authentication or rate-limit failures.
const (
	msgAuthFailed  = "AI authentication failed. Please check API key in admin settings."
	msgRateLimited = "AI rate limit reached. Please try again later."

	// noResponsePlaceholder is returned when a vendor reply carries no text.
	noResponsePlaceholder = "No response generated."
)

// statusCodeOf extracts an HTTP status code from a vendor SDK error.
func statusCodeOf(err error) (int, bool) {
	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return anthErr.StatusCode, true
	}
	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return oaiErr.HTTPStatusCode, true
	}
	var oaiReqErr *openai.RequestError
	if errors.As(err, &oaiReqErr) {
		return oaiReqErr.HTTPStatusCode, true
	}
	var ollamaErr api.StatusError
	if errors.As(err, &ollamaErr) {
		return ollamaErr.StatusCode, true
	}
	return 0, false
}

// classifyError maps a vendor failure onto the error taxonomy, preferring
// structured status codes over message text.
func classifyError(err error) ErrorKind {
	if code, ok := statusCodeOf(err); ok {
		switch code {
		case 401:
			return ErrorInvalidCredential
		case 403:
			return ErrorPermissionDenied
		case 429:
			return ErrorRateLimited
		}
		return ErrorUnknown
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ErrorTransport
	}

	// Fallback: classify from the message text.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "authentication") || strings.Contains(msg, "api_key") ||
		strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized"):
		return ErrorInvalidCredential
	case strings.Contains(msg, "permission denied") || strings.Contains(msg, "forbidden"):
		return ErrorPermissionDenied
	case strings.Contains(msg, "rate") || strings.Contains(msg, "limit"):
		return ErrorRateLimited
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "no such host"):
		return ErrorTransport
	}
	return ErrorUnknown
}

// relabelError converts a vendor failure into one of the small set of
// normalized messages surfaced to callers.
func relabelError(err error) error {
	switch classifyError(err) {
	case ErrorInvalidCredential, ErrorPermissionDenied:
		return errors.New(msgAuthFailed)
	case ErrorRateLimited:
		return errors.New(msgRateLimited)
	default:
		return fmt.Errorf("AI service error: %v", err)
	}
}

package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
)

func TestClassifyErrorFromStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"openai 401", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, ErrorInvalidCredential},
		{"openai 403", &openai.APIError{HTTPStatusCode: 403, Message: "forbidden"}, ErrorPermissionDenied},
		{"openai 429", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, ErrorRateLimited},
		{"openai 500", &openai.APIError{HTTPStatusCode: 500, Message: "oops"}, ErrorUnknown},
		{"ollama 401", api.StatusError{StatusCode: 401, ErrorMessage: "unauthorized"}, ErrorInvalidCredential},
	}
	for _, tc := range cases {
		if got := classifyError(tc.err); got != tc.want {
			t.Errorf("%s: classifyError = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestClassifyErrorTextFallback(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorKind
	}{
		{"invalid api_key supplied", ErrorInvalidCredential},
		{"authentication required", ErrorInvalidCredential},
		{"rate exceeded, retry later", ErrorRateLimited},
		{"dial tcp: connection refused", ErrorTransport},
		{"something exploded", ErrorUnknown},
	}
	for _, tc := range cases {
		if got := classifyError(errors.New(tc.msg)); got != tc.want {
			t.Errorf("classifyError(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestRelabelError(t *testing.T) {
	if got := relabelError(&openai.APIError{HTTPStatusCode: 401}); got.Error() != msgAuthFailed {
		t.Errorf("401: %v", got)
	}
	if got := relabelError(&openai.APIError{HTTPStatusCode: 429}); got.Error() != msgRateLimited {
		t.Errorf("429: %v", got)
	}
	got := relabelError(errors.New("boom"))
	if !strings.HasPrefix(got.Error(), "AI service error:") {
		t.Errorf("generic: %v", got)
	}
	if strings.Contains(got.Error(), "sk-") {
		t.Errorf("unexpected credential material in %v", got)
	}
}

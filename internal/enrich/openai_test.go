package enrich

import (
	"errors"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestClassifyOpenAIError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "rate limited", err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, transient: true},
		{name: "server error", err: &openai.APIError{HTTPStatusCode: http.StatusBadGateway}, transient: true},
		{name: "bad request", err: &openai.APIError{HTTPStatusCode: http.StatusBadRequest}, transient: false},
		{name: "auth failure", err: &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}, transient: false},
		{name: "transport failure", err: errors.New("dial tcp: connection refused"), transient: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.transient, IsTransient(classifyOpenAIError(tc.err)))
		})
	}
}

func TestHeaderCount(t *testing.T) {
	h := http.Header{}
	h.Set("x-ratelimit-remaining-requests", "4999")
	h.Set("x-ratelimit-remaining-tokens", "not-a-number")

	assert.Equal(t, int64(4999), headerCount(h, "x-ratelimit-remaining-requests"))
	assert.Equal(t, int64(-1), headerCount(h, "x-ratelimit-remaining-tokens"))
	assert.Equal(t, int64(-1), headerCount(h, "absent"))
}

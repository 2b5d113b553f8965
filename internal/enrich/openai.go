package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to an OpenAI-compatible chat completion endpoint.
// The x-ratelimit-remaining-* response headers feed the queue's adaptive
// concurrency throttle.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Enrich(ctx context.Context, req Request) (*Result, Headroom, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(req),
			},
		},
		MaxCompletionTokens: 1500,
	})
	if err != nil {
		return nil, unknownHeadroom(), classifyOpenAIError(err)
	}

	headroom := Headroom{
		RemainingRequests: headerCount(resp.Header(), "x-ratelimit-remaining-requests"),
		RemainingTokens:   headerCount(resp.Header(), "x-ratelimit-remaining-tokens"),
	}

	if len(resp.Choices) == 0 {
		return nil, headroom, transient(fmt.Errorf("empty completion"))
	}

	result, err := parseLabelled(resp.Choices[0].Message.Content)
	if err != nil {
		// A well-formed call with an unparsable answer will not improve on
		// retry with the same input.
		return nil, headroom, err
	}
	return result, headroom, nil
}

// classifyOpenAIError maps rate limits, 5xx and transport failures to the
// transient class; other API errors (bad request, auth) are permanent.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return transient(err)
		}
		return err
	}
	// Timeouts and connection failures arrive as plain transport errors.
	return transient(err)
}

func headerCount(h http.Header, key string) int64 {
	v := h.Get(key)
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

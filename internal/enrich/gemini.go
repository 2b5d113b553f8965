package enrich

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider is the fallback text-generation provider. The SDK exposes
// no rate-limit headers, so headroom stays unknown and the queue keeps a
// fixed concurrency when this provider serves.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: "gemini-1.5-flash"}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

func (p *GeminiProvider) Enrich(ctx context.Context, req Request) (*Result, Headroom, error) {
	model := p.client.GenerativeModel(p.model)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(req)))
	if err != nil {
		return nil, unknownHeadroom(), transient(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, unknownHeadroom(), transient(fmt.Errorf("no response from gemini"))
	}

	text := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	result, err := parseLabelled(text)
	if err != nil {
		return nil, unknownHeadroom(), err
	}
	return result, unknownHeadroom(), nil
}

package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request is one translate+summarize call to a text-generation provider.
type Request struct {
	Title          string
	Description    string
	FullText       string // scraped body, may be empty
	SourceLanguage string
	TargetLanguage string
	WantDetail     bool
}

// Result mirrors article.Enriched but stays provider-local.
type Result struct {
	TranslatedTitle       string   `json:"translatedTitle"`
	TranslatedDescription string   `json:"translatedDescription"`
	SummaryBullets        []string `json:"summaryBullets"`
	DetailedSummary       string   `json:"detailedSummary,omitempty"`
}

// Headroom reports the provider's remaining quota as read from rate-limit
// response headers. -1 means the provider gave no signal.
type Headroom struct {
	RemainingRequests int64
	RemainingTokens   int64
}

func unknownHeadroom() Headroom {
	return Headroom{RemainingRequests: -1, RemainingTokens: -1}
}

// Provider is a downstream text-generation service.
type Provider interface {
	Name() string
	Enrich(ctx context.Context, req Request) (*Result, Headroom, error)
}

// errTransient marks failures worth retrying (rate limits, 5xx, timeouts);
// everything else dead-letters immediately.
var errTransient = errors.New("transient enrichment failure")

func transient(err error) error {
	return fmt.Errorf("%w: %w", errTransient, err)
}

func IsTransient(err error) bool {
	return errors.Is(err, errTransient)
}

// buildPrompt asks for a strictly labelled response so parsing stays
// format-driven rather than model-driven.
func buildPrompt(req Request) string {
	content := req.Description
	if req.FullText != "" {
		content = req.FullText
	}

	var b strings.Builder
	b.WriteString("You are a news desk assistant. Translate and summarize the article below.\n\n")
	fmt.Fprintf(&b, "Target language: %s\n", languageName(req.TargetLanguage))
	fmt.Fprintf(&b, "ARTICLE TITLE: %s\n", req.Title)
	fmt.Fprintf(&b, "ARTICLE BODY: %s\n\n", content)
	b.WriteString("Respond with exactly these labelled sections:\n")
	b.WriteString("TITLE: <translated title>\n")
	b.WriteString("DESCRIPTION: <translated one-paragraph description>\n")
	b.WriteString("BULLETS:\n- <key point 1>\n- <key point 2>\n- <key point 3>\n")
	if req.WantDetail {
		b.WriteString("DETAIL: <detailed multi-sentence summary in the target language>\n")
	}
	b.WriteString("\nDo not translate proper nouns of brands or organizations. No preamble, no commentary.")
	return b.String()
}

func languageName(code string) string {
	switch code {
	case "ko":
		return "Korean"
	case "ja":
		return "Japanese"
	case "en":
		return "English"
	}
	return code
}

// parseLabelled extracts the TITLE/DESCRIPTION/BULLETS/DETAIL sections.
// Continuation lines attach to the current section; missing title or
// description means the response is unusable.
func parseLabelled(response string) (*Result, error) {
	res := &Result{}
	current := ""

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "TITLE:"):
			current = "title"
			res.TranslatedTitle = strings.TrimSpace(strings.TrimPrefix(line, "TITLE:"))
		case strings.HasPrefix(line, "DESCRIPTION:"):
			current = "description"
			res.TranslatedDescription = strings.TrimSpace(strings.TrimPrefix(line, "DESCRIPTION:"))
		case strings.HasPrefix(line, "BULLETS:"):
			current = "bullets"
		case strings.HasPrefix(line, "DETAIL:"):
			current = "detail"
			res.DetailedSummary = strings.TrimSpace(strings.TrimPrefix(line, "DETAIL:"))
		case strings.HasPrefix(line, "- ") && current == "bullets":
			res.SummaryBullets = append(res.SummaryBullets, strings.TrimSpace(strings.TrimPrefix(line, "- ")))
		default:
			switch current {
			case "title":
				res.TranslatedTitle += " " + line
			case "description":
				res.TranslatedDescription += " " + line
			case "detail":
				if res.DetailedSummary != "" {
					res.DetailedSummary += " "
				}
				res.DetailedSummary += line
			}
		}
	}

	res.TranslatedTitle = strings.TrimSpace(res.TranslatedTitle)
	res.TranslatedDescription = strings.TrimSpace(res.TranslatedDescription)

	if res.TranslatedTitle == "" && res.TranslatedDescription == "" {
		return nil, fmt.Errorf("no labelled sections in response")
	}
	return res, nil
}

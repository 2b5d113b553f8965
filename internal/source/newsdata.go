package source

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/yhun1542/emarknews-stable/internal/article"
)

// NewsData queries a newsdata.io-style regional latest-news endpoint.
type NewsData struct {
	name    string
	baseURL string
	apiKey  string
	query   string
	country string
	http    *http.Client
}

func NewNewsData(apiKey, query, country string) *NewsData {
	return &NewsData{
		name:    "newsdata",
		baseURL: "https://newsdata.io/api/1/latest",
		apiKey:  apiKey,
		query:   query,
		country: country,
		http:    newHTTPClient(),
	}
}

func (n *NewsData) Name() string { return n.name }
func (n *NewsData) Kind() Kind   { return KindAPI }

// SetBaseURL points the adapter at a different endpoint, used in tests.
func (n *NewsData) SetBaseURL(u string) { n.baseURL = u }

type newsDataResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
		PubDate     string `json:"pubDate"`
		SourceID    string `json:"source_id"`
		Language    string `json:"language"`
	} `json:"results"`
}

func (n *NewsData) Fetch(ctx context.Context) ([]article.Article, error) {
	params := url.Values{}
	params.Set("apikey", n.apiKey)
	if n.query != "" {
		params.Set("q", n.query)
	}
	if n.country != "" {
		params.Set("country", n.country)
	}

	var resp newsDataResponse
	if err := getJSON(ctx, n.http, n.name, n.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]article.Article, 0, len(resp.Results))
	for _, item := range resp.Results {
		a := article.Article{
			Title:        item.Title,
			Description:  item.Description,
			CanonicalURL: item.Link,
			ImageURL:     item.ImageURL,
			PublishedAt:  parseLooseTime(item.PubDate),
			SourceName:   item.SourceID,
			Language:     normalizeLanguage(item.Language),
		}
		if !a.Normalize() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// parseLooseTime handles the "2006-01-02 15:04:05" shape newsdata uses,
// falling back to RFC3339. Unparsable values become the zero time.
func parseLooseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

// normalizeLanguage maps provider language names ("korean") to ISO 639-1
// codes where recognizable; unknown values pass through.
func normalizeLanguage(lang string) string {
	switch lang {
	case "korean":
		return "ko"
	case "english":
		return "en"
	case "japanese":
		return "ja"
	}
	if len(lang) == 2 {
		return lang
	}
	return lang
}

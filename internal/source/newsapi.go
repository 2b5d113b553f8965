package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yhun1542/emarknews-stable/internal/article"
)

// NewsAPI queries a NewsAPI-style "everything" search endpoint: keyword
// OR-groups, optional domain filters, a sliding time window and a language.
type NewsAPI struct {
	name     string
	baseURL  string
	apiKey   string
	query    string
	language string
	domains  string
	exclude  string
	window   time.Duration
	pageSize int
	http     *http.Client
}

type NewsAPIOption func(*NewsAPI)

func WithNewsAPIDomains(domains, exclude string) NewsAPIOption {
	return func(n *NewsAPI) {
		n.domains = domains
		n.exclude = exclude
	}
}

func WithNewsAPIBaseURL(baseURL string) NewsAPIOption {
	return func(n *NewsAPI) { n.baseURL = baseURL }
}

func NewNewsAPI(apiKey, query, language string, opts ...NewsAPIOption) *NewsAPI {
	n := &NewsAPI{
		name:     "newsapi",
		baseURL:  "https://newsapi.org/v2/everything",
		apiKey:   apiKey,
		query:    query,
		language: language,
		window:   24 * time.Hour,
		pageSize: 50,
		http:     newHTTPClient(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *NewsAPI) Name() string { return n.name }
func (n *NewsAPI) Kind() Kind   { return KindAPI }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func (n *NewsAPI) Fetch(ctx context.Context) ([]article.Article, error) {
	params := url.Values{}
	params.Set("q", n.query)
	params.Set("language", n.language)
	params.Set("from", time.Now().Add(-n.window).UTC().Format(time.RFC3339))
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(n.pageSize))
	params.Set("apiKey", n.apiKey)
	if n.domains != "" {
		params.Set("domains", n.domains)
	}
	if n.exclude != "" {
		params.Set("excludeDomains", n.exclude)
	}

	var resp newsAPIResponse
	if err := getJSON(ctx, n.http, n.name, n.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]article.Article, 0, len(resp.Articles))
	for _, item := range resp.Articles {
		a := article.Article{
			Title:        item.Title,
			Description:  item.Description,
			CanonicalURL: item.URL,
			ImageURL:     item.URLToImage,
			PublishedAt:  parseRFC3339(item.PublishedAt),
			SourceName:   item.Source.Name,
			Language:     n.language,
		}
		if !a.Normalize() {
			continue // missing title or URL
		}
		out = append(out, a)
	}
	return out, nil
}

// parseRFC3339 is lenient: an unparsable timestamp yields the zero time,
// which ranking treats as very old.
func parseRFC3339(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

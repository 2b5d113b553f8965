package source

import (
	"context"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/yhun1542/emarknews-stable/internal/article"
)

var naverTagRE = regexp.MustCompile(`<[^>]*>`)

// Naver queries the Naver news search API (the local-language source).
// Authentication uses client id/secret headers; titles arrive with
// highlight markup that must be stripped.
type Naver struct {
	name         string
	baseURL      string
	clientID     string
	clientSecret string
	query        string
	display      int
	http         *http.Client
}

func NewNaver(clientID, clientSecret, query string) *Naver {
	return &Naver{
		name:         "naver",
		baseURL:      "https://openapi.naver.com/v1/search/news.json",
		clientID:     clientID,
		clientSecret: clientSecret,
		query:        query,
		display:      50,
		http:         newHTTPClient(),
	}
}

func (n *Naver) Name() string { return n.name }
func (n *Naver) Kind() Kind   { return KindAPI }

func (n *Naver) SetBaseURL(u string) { n.baseURL = u }

type naverResponse struct {
	Items []struct {
		Title        string `json:"title"`
		OriginalLink string `json:"originallink"`
		Link         string `json:"link"`
		Description  string `json:"description"`
		PubDate      string `json:"pubDate"`
	} `json:"items"`
}

func (n *Naver) Fetch(ctx context.Context) ([]article.Article, error) {
	params := url.Values{}
	params.Set("query", n.query)
	params.Set("display", strconv.Itoa(n.display))
	params.Set("sort", "date")

	headers := map[string]string{
		"X-Naver-Client-Id":     n.clientID,
		"X-Naver-Client-Secret": n.clientSecret,
	}

	var resp naverResponse
	if err := getJSON(ctx, n.http, n.name, n.baseURL+"?"+params.Encode(), headers, &resp); err != nil {
		return nil, err
	}

	out := make([]article.Article, 0, len(resp.Items))
	for _, item := range resp.Items {
		link := item.OriginalLink
		if link == "" {
			link = item.Link
		}
		a := article.Article{
			Title:        stripNaverMarkup(item.Title),
			Description:  stripNaverMarkup(item.Description),
			CanonicalURL: link,
			PublishedAt:  parseNaverTime(item.PubDate),
			SourceName:   "naver",
			Language:     "ko",
		}
		if !a.Normalize() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func stripNaverMarkup(s string) string {
	return html.UnescapeString(naverTagRE.ReplaceAllString(s, ""))
}

// parseNaverTime parses the RFC1123Z timestamps Naver emits.
func parseNaverTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC1123Z, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC1123, value); err == nil {
		return t
	}
	return time.Time{}
}

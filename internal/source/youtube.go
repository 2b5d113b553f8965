package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yhun1542/emarknews-stable/internal/article"
)

// YouTube lists the platform's most-popular videos for a region. Engagement
// sums the available counters (likes + comments); view count stands in for
// audience size.
type YouTube struct {
	name       string
	baseURL    string
	apiKey     string
	regionCode string
	maxResults int
	http       *http.Client
}

func NewYouTube(apiKey, regionCode string) *YouTube {
	return &YouTube{
		name:       "youtube",
		baseURL:    "https://www.googleapis.com/youtube/v3/videos",
		apiKey:     apiKey,
		regionCode: regionCode,
		maxResults: 25,
		http:       newHTTPClient(),
	}
}

func (y *YouTube) Name() string { return y.name }
func (y *YouTube) Kind() Kind   { return KindVideo }

func (y *YouTube) SetBaseURL(u string) { y.baseURL = u }

type youTubeResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			PublishedAt  string `json:"publishedAt"`
			ChannelTitle string `json:"channelTitle"`
			Language     string `json:"defaultAudioLanguage"`
			Thumbnails   struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (y *YouTube) Fetch(ctx context.Context) ([]article.Article, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("chart", "mostPopular")
	params.Set("regionCode", y.regionCode)
	params.Set("maxResults", strconv.Itoa(y.maxResults))
	params.Set("key", y.apiKey)

	var resp youTubeResponse
	if err := getJSON(ctx, y.http, y.name, y.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]article.Article, 0, len(resp.Items))
	for _, item := range resp.Items {
		likes := parseCount(item.Statistics.LikeCount)
		comments := parseCount(item.Statistics.CommentCount)
		// The videos endpoint has no subscriber statistics; views stand
		// in as the audience figure.
		views := parseCount(item.Statistics.ViewCount)

		language := item.Snippet.Language
		if len(language) > 2 {
			language = language[:2]
		}

		a := article.Article{
			Title:           item.Snippet.Title,
			Description:     item.Snippet.Description,
			CanonicalURL:    "https://www.youtube.com/watch?v=" + item.ID,
			ImageURL:        item.Snippet.Thumbnails.High.URL,
			PublishedAt:     parseRFC3339(item.Snippet.PublishedAt),
			SourceName:      item.Snippet.ChannelTitle,
			SourceDomain:    "youtube.com",
			Language:        language,
			EngagementCount: likes + comments,
			AudienceSize:    views,
		}
		if item.ID == "" || !a.Normalize() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

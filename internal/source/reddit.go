package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yhun1542/emarknews-stable/internal/article"
)

// Reddit maps a subreddit hot listing into articles. Engagement is the sum
// of the available reaction counters (ups + comments); audience is the
// subreddit subscriber count.
type Reddit struct {
	name      string
	baseURL   string
	subreddit string
	limit     int
	http      *http.Client
}

func NewReddit(subreddit string) *Reddit {
	return &Reddit{
		name:      "reddit/" + subreddit,
		baseURL:   "https://www.reddit.com",
		subreddit: subreddit,
		limit:     25,
		http:      newHTTPClient(),
	}
}

func (r *Reddit) Name() string { return r.name }
func (r *Reddit) Kind() Kind   { return KindSocial }

func (r *Reddit) SetBaseURL(u string) { r.baseURL = u }

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title                string  `json:"title"`
				SelfText             string  `json:"selftext"`
				Permalink            string  `json:"permalink"`
				URL                  string  `json:"url"`
				CreatedUTC           float64 `json:"created_utc"`
				Ups                  int64   `json:"ups"`
				NumComments          int64   `json:"num_comments"`
				Subreddit            string  `json:"subreddit"`
				SubredditSubscribers int64   `json:"subreddit_subscribers"`
				Thumbnail            string  `json:"thumbnail"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *Reddit) Fetch(ctx context.Context) ([]article.Article, error) {
	endpoint := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", r.baseURL, r.subreddit, r.limit)
	headers := map[string]string{
		"User-Agent": "emarknews/1.0",
	}

	var listing redditListing
	if err := getJSON(ctx, r.http, r.name, endpoint, headers, &listing); err != nil {
		return nil, err
	}

	out := make([]article.Article, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data

		link := post.URL
		if link == "" && post.Permalink != "" {
			link = r.baseURL + post.Permalink
		}

		image := ""
		// Reddit uses placeholder words ("self", "default") in thumbnail
		if len(post.Thumbnail) > 8 {
			image = post.Thumbnail
		}

		a := article.Article{
			Title:           post.Title,
			Description:     post.SelfText,
			CanonicalURL:    link,
			ImageURL:        image,
			PublishedAt:     time.Unix(int64(post.CreatedUTC), 0).UTC(),
			SourceName:      "r/" + post.Subreddit,
			Language:        "en",
			EngagementCount: post.Ups + post.NumComments,
			AudienceSize:    post.SubredditSubscribers,
		}
		if !a.Normalize() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

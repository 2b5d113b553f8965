package source

import (
	"context"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/yhun1542/emarknews-stable/internal/article"
)

// Feed parses one syndication feed (RSS/Atom) and keeps only the most
// recent entries to cap downstream cost.
type Feed struct {
	name       string
	url        string
	language   string
	maxEntries int
	parser     *gofeed.Parser
}

func NewFeed(name, url, language string, maxEntries int) *Feed {
	if maxEntries <= 0 {
		maxEntries = 20
	}
	return &Feed{
		name:       name,
		url:        url,
		language:   language,
		maxEntries: maxEntries,
		parser:     gofeed.NewParser(),
	}
}

func (f *Feed) Name() string { return f.name }
func (f *Feed) Kind() Kind   { return KindFeed }

func (f *Feed) Fetch(ctx context.Context) ([]article.Article, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		// Parse failure is soft: an empty contribution plus a classified
		// error the fetcher logs and tolerates.
		return nil, unavailable(f.name, err)
	}

	sourceName := f.name
	if feed.Title != "" {
		sourceName = feed.Title
	}

	language := f.language
	if feed.Language != "" && len(feed.Language) >= 2 {
		language = feed.Language[:2]
	}

	out := make([]article.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := time.Time{}
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		image := ""
		if item.Image != nil {
			image = item.Image.URL
		}

		a := article.Article{
			Title:        item.Title,
			Description:  item.Description,
			CanonicalURL: item.Link,
			ImageURL:     image,
			PublishedAt:  published,
			SourceName:   sourceName,
			Language:     language,
		}
		if !a.Normalize() {
			continue
		}
		out = append(out, a)
	}

	// Newest first, then truncate.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if len(out) > f.maxEntries {
		out = out[:f.maxEntries]
	}
	return out, nil
}

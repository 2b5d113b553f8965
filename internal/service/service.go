// Package service assembles section payloads: cache check, fan-out fetch,
// dedup/cluster, rank, enrich, cache write.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yhun1542/emarknews-stable/internal/article"
	"github.com/yhun1542/emarknews-stable/internal/cache"
	"github.com/yhun1542/emarknews-stable/internal/config"
	"github.com/yhun1542/emarknews-stable/internal/dedup"
	"github.com/yhun1542/emarknews-stable/internal/enrich"
	"github.com/yhun1542/emarknews-stable/internal/fetch"
	"github.com/yhun1542/emarknews-stable/internal/logger"
	"github.com/yhun1542/emarknews-stable/internal/metrics"
	"github.com/yhun1542/emarknews-stable/internal/rank"
	"github.com/yhun1542/emarknews-stable/internal/source"
)

var (
	ErrUnknownSection  = errors.New("unknown section")
	ErrArticleNotFound = errors.New("article not found")
)

// Payload is the assembled, cacheable response for one section.
type Payload struct {
	Section   string            `json:"section"`
	Articles  []article.Article `json:"articles"`
	Total     int               `json:"total"`
	Partial   bool              `json:"partial"`
	Timestamp time.Time         `json:"timestamp"`
}

// Aggregator owns the per-section source lists (built once at startup) and
// runs the fetch-dedup-rank-enrich pipeline.
type Aggregator struct {
	cfg     *config.Config
	fetcher *fetch.Fetcher
	cache   *cache.Tiered
	engine  *dedup.Engine
	queue   *enrich.Queue
	sources map[string][]source.Source
	log     *slog.Logger
}

func New(cfg *config.Config, fetcher *fetch.Fetcher, tiered *cache.Tiered, queue *enrich.Queue) *Aggregator {
	trust := cfg.Topology.Trust
	engine := dedup.New(cfg.SimilarityThreshold, func(domain string) float64 {
		if w, ok := trust[domain]; ok {
			return w
		}
		return 0.5
	})

	agg := &Aggregator{
		cfg:     cfg,
		fetcher: fetcher,
		cache:   tiered,
		engine:  engine,
		queue:   queue,
		sources: map[string][]source.Source{},
		log:     logger.With("service"),
	}

	for i := range cfg.Topology.Sections {
		sec := &cfg.Topology.Sections[i]
		agg.sources[sec.Name] = buildSources(cfg, sec)
	}
	return agg
}

// subreddits maps sections to their trend listing.
var subreddits = map[string]string{
	"world":    "worldnews",
	"business": "business",
	"tech":     "technology",
	"buzz":     "popular",
}

// youtubeRegions maps section locales to a most-popular region code.
var youtubeRegions = map[string]string{
	"ko": "KR",
	"ja": "JP",
	"en": "US",
}

// buildSources wires the configured adapters for one section. Adapters
// whose credentials are absent are simply not configured; the fan-out
// tolerates any subset.
func buildSources(cfg *config.Config, sec *config.Section) []source.Source {
	var out []source.Source

	for _, q := range sec.Queries {
		if sec.Locale == "ko" && cfg.NaverClientID != "" {
			out = append(out, source.NewNaver(cfg.NaverClientID, cfg.NaverClientSecret, q))
			continue
		}
		if cfg.NewsAPIKey != "" {
			out = append(out, source.NewNewsAPI(cfg.NewsAPIKey, q, sec.Locale))
		}
		if cfg.NewsDataKey != "" {
			out = append(out, source.NewNewsData(cfg.NewsDataKey, q, countryOf(sec.Locale)))
		}
	}

	for _, feedURL := range sec.Feeds {
		out = append(out, source.NewFeed("feed/"+article.Domain(feedURL), feedURL, sec.Locale, 20))
	}

	if sub, ok := subreddits[sec.Name]; ok {
		out = append(out, source.NewReddit(sub))
	}

	if cfg.YouTubeKey != "" {
		if region, ok := youtubeRegions[sec.Locale]; ok {
			out = append(out, source.NewYouTube(cfg.YouTubeKey, region))
		}
	}

	return out
}

func countryOf(locale string) string {
	switch locale {
	case "ko":
		return "kr"
	case "ja":
		return "jp"
	}
	return ""
}

func fullKey(section string) string { return section + ":full" }
func fastKey(section string) string { return section + ":fast" }

// Section serves the full-path aggregation for a section.
func (g *Aggregator) Section(ctx context.Context, name string) (*Payload, error) {
	metrics.Global.IncrementSectionRequests()

	sec := g.cfg.SectionByName(name)
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, name)
	}

	var cached Payload
	if g.cache != nil && g.cache.GetJSON(ctx, cache.LayerSection, fullKey(name), &cached) {
		metrics.Global.IncrementCacheHits()
		return &cached, nil
	}
	metrics.Global.IncrementCacheMisses()

	return g.refresh(ctx, sec), nil
}

// refresh runs a full aggregation regardless of any cached payload and
// overwrites the section's full-path cache entry.
func (g *Aggregator) refresh(ctx context.Context, sec *config.Section) *Payload {
	started := time.Now()
	arts := g.fetcher.Full(ctx, sec.Name, g.sources[sec.Name], sec.RawTTL())
	payload := g.assemble(ctx, sec, arts, false)

	if g.cache != nil {
		g.cache.SetJSON(ctx, cache.LayerSection, fullKey(sec.Name), payload, sec.PayloadTTL())
	}

	metrics.Global.RecordAggregationTime(time.Since(started))
	metrics.Global.SetLastRun()
	return payload
}

// SectionFast serves the fast path: a subset of sources under a short
// deadline, marked partial, with a detached continuation that fetches the
// rest and overwrites the cached payload.
func (g *Aggregator) SectionFast(ctx context.Context, name string) (*Payload, error) {
	metrics.Global.IncrementSectionRequests()

	sec := g.cfg.SectionByName(name)
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, name)
	}

	var cached Payload
	if g.cache != nil && g.cache.GetJSON(ctx, cache.LayerSection, fastKey(name), &cached) {
		metrics.Global.IncrementCacheHits()
		return &cached, nil
	}
	metrics.Global.IncrementCacheMisses()

	arts, remaining := g.fetcher.Fast(ctx, name, g.sources[name], sec.RawTTL())
	partial := len(remaining) > 0

	payload := g.assemble(ctx, sec, arts, partial)
	if g.cache != nil {
		g.cache.SetJSON(ctx, cache.LayerSection, fastKey(name), payload, sec.PayloadTTL())
	}

	if partial {
		g.scheduleContinuation(sec, arts, remaining)
	}
	return payload, nil
}

// scheduleContinuation runs the remaining sources in a detached task. It
// has no caller waiting on it; its only observable effect is a best-effort
// cache overwrite flipping partial to false.
func (g *Aggregator) scheduleContinuation(sec *config.Section, fastArts []article.Article, remaining []source.Source) {
	metrics.Global.IncrementBackgroundContinuations()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.log.Error("background continuation panicked", "section", sec.Name, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		rest := g.fetcher.Full(ctx, sec.Name, remaining, sec.RawTTL())
		combined := append(append([]article.Article{}, fastArts...), rest...)

		payload := g.assemble(ctx, sec, combined, false)
		if g.cache != nil {
			g.cache.SetJSON(ctx, cache.LayerSection, fastKey(sec.Name), payload, sec.PayloadTTL())
		}
		g.log.Debug("background continuation completed",
			"section", sec.Name, "articles", payload.Total)
	}()
}

// ArticleByID serves a single article from the cached section payloads; a
// miss runs one fresh aggregation, past the cached payload it just
// searched, before giving up.
func (g *Aggregator) ArticleByID(ctx context.Context, section, id string) (*article.Article, error) {
	sec := g.cfg.SectionByName(section)
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}

	if a := g.findCached(ctx, section, id); a != nil {
		return a, nil
	}

	payload := g.refresh(ctx, sec)
	for i := range payload.Articles {
		if payload.Articles[i].ID == id {
			return &payload.Articles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrArticleNotFound, section, id)
}

func (g *Aggregator) findCached(ctx context.Context, section, id string) *article.Article {
	if g.cache == nil {
		return nil
	}
	for _, key := range []string{fullKey(section), fastKey(section)} {
		var payload Payload
		if !g.cache.GetJSON(ctx, cache.LayerSection, key, &payload) {
			continue
		}
		for i := range payload.Articles {
			if payload.Articles[i].ID == id {
				return &payload.Articles[i]
			}
		}
	}
	return nil
}

// assemble runs dedup, ranking and top-N enrichment over a raw candidate
// batch and wraps the result.
func (g *Aggregator) assemble(ctx context.Context, sec *config.Section, arts []article.Article, partial bool) *Payload {
	opts := rank.Options{
		Now:         time.Now(),
		Locale:      sec.Locale,
		Tau:         g.cfg.FreshnessTau,
		Smoothing:   g.cfg.Smoothing,
		PenaltyBase: g.cfg.PenaltyBase,
		Gravity:     g.cfg.Gravity,
		Trust:       g.cfg.Topology.Trust,
		Tiers:       g.cfg.Topology.Tiers,
	}

	clustered := g.engine.Cluster(arts)

	var ranked []article.Article
	if sec.Strategy == "hot" {
		ranked = rank.Hot(clustered, opts)
	} else {
		ranked = rank.Composite(clustered, sec.Weights, opts)
	}

	if g.queue != nil && len(ranked) > 0 {
		topN := g.cfg.EnrichTopN
		if topN <= 0 || topN > len(ranked) {
			topN = len(ranked)
		}
		enriched := g.queue.Process(ctx, ranked[:topN])
		ranked = append(enriched, ranked[topN:]...)
	}

	return &Payload{
		Section:   sec.Name,
		Articles:  ranked,
		Total:     len(ranked),
		Partial:   partial,
		Timestamp: time.Now().UTC(),
	}
}

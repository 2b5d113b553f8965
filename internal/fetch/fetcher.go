// Package fetch fans a section's configured adapters out in parallel.
// Individual sources race a per-call timer; a slow or broken source
// contributes zero articles instead of failing the batch.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yhun1542/emarknews-stable/internal/article"
	"github.com/yhun1542/emarknews-stable/internal/cache"
	"github.com/yhun1542/emarknews-stable/internal/logger"
	"github.com/yhun1542/emarknews-stable/internal/metrics"
	"github.com/yhun1542/emarknews-stable/internal/retry"
	"github.com/yhun1542/emarknews-stable/internal/source"
)

type Fetcher struct {
	cache        *cache.Tiered
	fastDeadline time.Duration
	fullDeadline time.Duration
	fastSubset   int
	log          *slog.Logger
}

func New(tiered *cache.Tiered, fastDeadline, fullDeadline time.Duration, fastSubset int) *Fetcher {
	if fastDeadline <= 0 {
		fastDeadline = 800 * time.Millisecond
	}
	if fullDeadline <= 0 {
		fullDeadline = 10 * time.Second
	}
	if fastSubset <= 0 {
		fastSubset = 2
	}
	return &Fetcher{
		cache:        tiered,
		fastDeadline: fastDeadline,
		fullDeadline: fullDeadline,
		fastSubset:   fastSubset,
		log:          logger.With("fetch"),
	}
}

// Full issues every configured source with the full deadline and returns
// once all settle.
func (f *Fetcher) Full(ctx context.Context, sectionName string, sources []source.Source, rawTTL time.Duration) []article.Article {
	return f.fanOut(ctx, sectionName, sources, f.fullDeadline, rawTTL)
}

// Fast issues only a small subset per source kind with a short deadline and
// returns the remaining sources so the caller can schedule a background
// continuation.
func (f *Fetcher) Fast(ctx context.Context, sectionName string, sources []source.Source, rawTTL time.Duration) (arts []article.Article, remaining []source.Source) {
	subset, rest := splitSubset(sources, f.fastSubset)
	return f.fanOut(ctx, sectionName, subset, f.fastDeadline, rawTTL), rest
}

// splitSubset keeps the first n sources of each kind, preserving order.
func splitSubset(sources []source.Source, n int) (subset, rest []source.Source) {
	perKind := map[source.Kind]int{}
	for _, src := range sources {
		if perKind[src.Kind()] < n {
			perKind[src.Kind()]++
			subset = append(subset, src)
		} else {
			rest = append(rest, src)
		}
	}
	return subset, rest
}

func (f *Fetcher) fanOut(ctx context.Context, sectionName string, sources []source.Source, deadline, rawTTL time.Duration) []article.Article {
	results := make([][]article.Article, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src source.Source) {
			defer wg.Done()
			results[i] = f.fetchOne(ctx, sectionName, src, deadline, rawTTL)
		}(i, src)
	}
	wg.Wait()

	var merged []article.Article
	for _, batch := range results {
		merged = append(merged, batch...)
	}
	metrics.Global.AddArticlesSeen(len(merged))
	return merged
}

type fetchResult struct {
	arts []article.Article
	err  error
}

// isUnavailable limits the single retry to sources that failed to answer;
// malformed payloads will not improve on a second call.
func isUnavailable(err error) bool {
	var srcErr *source.Error
	return errors.As(err, &srcErr) && srcErr.Kind == source.Unavailable
}

// fetchOne serves one source through the raw-result cache layer. On a miss
// the adapter call races a timer; when the timer wins, the adapter's
// eventual result is discarded.
func (f *Fetcher) fetchOne(parent context.Context, sectionName string, src source.Source, deadline, rawTTL time.Duration) []article.Article {
	key := sectionName + ":" + src.Name()

	var cached []article.Article
	if f.cache != nil && f.cache.GetJSON(parent, cache.LayerSource, key, &cached) {
		metrics.Global.IncrementCacheHits()
		return cached
	}
	metrics.Global.IncrementCacheMisses()
	metrics.Global.IncrementSourceFetches()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Buffered so the adapter goroutine never blocks after losing the race.
	ch := make(chan fetchResult, 1)
	go func() {
		var arts []article.Article
		err := retry.Do(ctx, retry.Config{
			MaxAttempts: 2,
			Delay:       200 * time.Millisecond,
			Retryable:   isUnavailable,
		}, func() error {
			var fetchErr error
			arts, fetchErr = src.Fetch(ctx)
			return fetchErr
		})
		ch <- fetchResult{arts: arts, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			metrics.Global.IncrementSourceFailures()
			f.log.Warn("source degraded to empty contribution",
				"section", sectionName, "source", src.Name(), "error", res.err)
			return nil
		}
		if f.cache != nil && len(res.arts) > 0 {
			f.cache.SetJSON(parent, cache.LayerSource, key, res.arts, rawTTL)
		}
		return res.arts

	case <-timer.C:
		metrics.Global.IncrementSourceFailures()
		f.log.Warn("source timed out, result discarded",
			"section", sectionName, "source", src.Name(), "deadline", deadline)
		return nil

	case <-parent.Done():
		return nil
	}
}

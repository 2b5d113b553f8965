// Package enrich runs the bounded-concurrency enrichment queue: it calls a
// text-generation provider to translate and summarize accepted articles,
// with retry/backoff, a dead-letter path and response caching.
package enrich

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
	"github.com/yhun1542/emarknews-stable/internal/scrape"
)

type State string

const (
	StateQueued       State = "queued"
	StateRunning      State = "running"
	StateRetrying     State = "retrying"
	StateSucceeded    State = "succeeded"
	StateDeadLettered State = "dead-lettered"
)

// Task is the transient unit of work. Tasks are never persisted; a task
// that exhausts its retry budget parks on the dead-letter list.
type Task struct {
	ArticleID string `json:"articleId"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Attempts  int    `json:"attempts"`
	State     State  `json:"state"`
	LastError string `json:"lastError,omitempty"`
}

// Publisher receives dead-lettered tasks for external batch replay.
type Publisher interface {
	PublishDeadLetter(ctx context.Context, task Task) error
}

type Config struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	Floor           int
	Ceiling         int
	LowHeadroom     int64
	DetailRatingMin int
	TargetLanguage  string
	ResultTTL       time.Duration
}

// Queue enforces a dynamically adjusted concurrency limit: ample provider
// headroom grows the limit additively, scarce headroom halves it. The limit
// and dead-letter list are process-local.
type Queue struct {
	provider Provider
	fallback Provider
	cache    *cache.Tiered
	pub      Publisher
	cfg      Config
	log      *slog.Logger

	// extractFn fetches full article text for detailed summaries;
	// swappable in tests.
	extractFn func(url string) (string, error)

	mu      sync.Mutex
	cond    *sync.Cond
	limit   int
	running int
	dead    []Task
}

func NewQueue(provider, fallback Provider, tiered *cache.Tiered, pub Publisher, cfg Config) *Queue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 8 * time.Second
	}
	if cfg.Floor < 1 {
		cfg.Floor = 1
	}
	if cfg.Ceiling < cfg.Floor {
		cfg.Ceiling = cfg.Floor
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = "ko"
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 6 * time.Hour
	}

	q := &Queue{
		provider:  provider,
		fallback:  fallback,
		cache:     tiered,
		pub:       pub,
		cfg:       cfg,
		log:       logger.With("enrich"),
		extractFn: scrape.Extract,
		limit:     cfg.Floor,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Process enriches every article in the batch, preserving order. Individual
// failures pass the original content through; the batch never fails.
func (q *Queue) Process(ctx context.Context, arts []article.Article) []article.Article {
	out := make([]article.Article, len(arts))
	copy(out, arts)

	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = q.enrichOne(ctx, out[i])
		}(i)
	}
	wg.Wait()
	return out
}

func (q *Queue) enrichOne(ctx context.Context, a article.Article) article.Article {
	if q.provider == nil && q.fallback == nil {
		return a // no provider configured, pass through
	}

	// Already in the target language: skip the call entirely.
	if a.Language == q.cfg.TargetLanguage || MatchesLanguage(a.Title, q.cfg.TargetLanguage) {
		return a
	}

	cacheKey := cache.ContentKey(q.cfg.TargetLanguage, a.Title, a.Description)
	if q.cache != nil {
		var cached Result
		if q.cache.GetJSON(ctx, cache.LayerEnrichment, cacheKey, &cached) {
			metrics.Global.IncrementEnrichmentCacheHits()
			applyResult(&a, &cached)
			return a
		}
	}

	q.acquire()
	defer q.release()

	req := Request{
		Title:          a.Title,
		Description:    a.Description,
		SourceLanguage: a.Language,
		TargetLanguage: q.cfg.TargetLanguage,
		WantDetail:     a.Scores.Rating >= q.cfg.DetailRatingMin && q.cfg.DetailRatingMin > 0,
	}

	// Detailed summaries are worth a page fetch; everything else runs on
	// the feed description.
	if req.WantDetail && q.extractFn != nil {
		if text, err := q.extractFn(a.CanonicalURL); err == nil && text != "" {
			req.FullText = text
		}
	}

	task := Task{ArticleID: a.ID, Title: a.Title, URL: a.CanonicalURL, State: StateQueued}
	delay := q.cfg.BaseDelay

	for {
		task.Attempts++
		task.State = StateRunning

		result, err := q.call(ctx, req)
		if err == nil {
			task.State = StateSucceeded
			metrics.Global.IncrementEnrichmentsSucceeded()
			if q.cache != nil {
				q.cache.SetJSON(ctx, cache.LayerEnrichment, cacheKey, result, q.cfg.ResultTTL)
			}
			applyResult(&a, result)
			return a
		}

		task.LastError = err.Error()
		metrics.Global.IncrementEnrichmentsFailed()

		if !IsTransient(err) || task.Attempts >= q.cfg.MaxAttempts {
			task.State = StateDeadLettered
			q.deadLetter(ctx, task)
			return a // pass through original content
		}

		task.State = StateRetrying
		q.log.Debug("enrichment retry scheduled",
			"article", a.ID, "attempt", task.Attempts, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			task.State = StateDeadLettered
			task.LastError = ctx.Err().Error()
			q.deadLetter(ctx, task)
			return a
		case <-time.After(delay):
		}

		delay *= 2
		if delay > q.cfg.MaxDelay {
			delay = q.cfg.MaxDelay
		}
	}
}

// call tries the primary provider, falling back once per attempt. The
// primary's headroom signal drives the throttle either way.
func (q *Queue) call(ctx context.Context, req Request) (*Result, error) {
	if q.provider == nil {
		result, headroom, err := q.fallback.Enrich(ctx, req)
		q.adjustLimit(headroom, err == nil)
		return result, err
	}

	result, headroom, err := q.provider.Enrich(ctx, req)
	q.adjustLimit(headroom, err == nil)
	if err == nil {
		return result, nil
	}

	if q.fallback != nil {
		fbResult, _, fbErr := q.fallback.Enrich(ctx, req)
		if fbErr == nil {
			return fbResult, nil
		}
	}
	return nil, err
}

// adjustLimit is the AIMD throttle: halve on scarce headroom, +1 per clean
// completion, always within [floor, ceiling].
func (q *Queue) adjustLimit(headroom Headroom, success bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	low := headroom.RemainingRequests >= 0 && headroom.RemainingRequests < q.cfg.LowHeadroom ||
		headroom.RemainingTokens >= 0 && headroom.RemainingTokens < q.cfg.LowHeadroom*100

	switch {
	case low:
		q.limit /= 2
		if q.limit < q.cfg.Floor {
			q.limit = q.cfg.Floor
		}
		q.log.Debug("throttling enrichment concurrency", "limit", q.limit,
			"remainingRequests", headroom.RemainingRequests)
	case success && q.limit < q.cfg.Ceiling:
		q.limit++
	}
	q.cond.Broadcast()
}

func (q *Queue) acquire() {
	q.mu.Lock()
	for q.running >= q.limit {
		q.cond.Wait()
	}
	q.running++
	q.mu.Unlock()
}

func (q *Queue) release() {
	q.mu.Lock()
	q.running--
	q.cond.Broadcast()
	q.mu.Unlock()
}

func (q *Queue) deadLetter(ctx context.Context, task Task) {
	metrics.Global.IncrementDeadLetteredTasks()
	q.log.Warn("enrichment task dead-lettered",
		"article", task.ArticleID, "attempts", task.Attempts, "error", task.LastError)

	q.mu.Lock()
	q.dead = append(q.dead, task)
	q.mu.Unlock()

	if q.pub != nil {
		if err := q.pub.PublishDeadLetter(ctx, task); err != nil {
			q.log.Warn("dead-letter publish failed", "article", task.ArticleID, "error", err)
		}
	}
}

// Limit reports the current concurrency bound.
func (q *Queue) Limit() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.limit
}

// DeadLetters snapshots the parked tasks.
func (q *Queue) DeadLetters() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, len(q.dead))
	copy(out, q.dead)
	return out
}

// ReplayDeadLetters ships every parked task to the publisher and unparks
// it. Publishing stops at the first failure; unshipped tasks stay parked.
func (q *Queue) ReplayDeadLetters(ctx context.Context) (int, error) {
	if q.pub == nil {
		return 0, errors.New("no dead-letter publisher configured")
	}

	q.mu.Lock()
	pending := q.dead
	q.dead = nil
	q.mu.Unlock()

	for i, task := range pending {
		if err := q.pub.PublishDeadLetter(ctx, task); err != nil {
			q.mu.Lock()
			q.dead = append(pending[i:], q.dead...)
			q.mu.Unlock()
			return i, err
		}
	}

	if len(pending) > 0 {
		q.log.Info("dead letters replayed", "count", len(pending))
	}
	return len(pending), nil
}

func applyResult(a *article.Article, r *Result) {
	a.Enriched = &article.Enriched{
		TranslatedTitle:       r.TranslatedTitle,
		TranslatedDescription: r.TranslatedDescription,
		SummaryBullets:        r.SummaryBullets,
		DetailedSummary:       r.DetailedSummary,
	}
}

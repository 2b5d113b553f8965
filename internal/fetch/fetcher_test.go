package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhun1542/emarknews-stable/internal/article"
	"github.com/yhun1542/emarknews-stable/internal/cache"
	"github.com/yhun1542/emarknews-stable/internal/source"
)

// fakeSource is a scriptable adapter: it answers after delay with either
// articles or an error, and counts its calls.
type fakeSource struct {
	name  string
	kind  source.Kind
	arts  []article.Article
	err   error
	delay time.Duration
	calls int
}

func (f *fakeSource) Name() string      { return f.name }
func (f *fakeSource) Kind() source.Kind { return f.kind }

func (f *fakeSource) Fetch(ctx context.Context) ([]article.Article, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.arts, f.err
}

func arts(ids ...string) []article.Article {
	out := make([]article.Article, 0, len(ids))
	for _, id := range ids {
		a := article.Article{Title: "t " + id, CanonicalURL: "https://x.com/" + id}
		a.Normalize()
		out = append(out, a)
	}
	return out
}

func TestFullMergesAllSources(t *testing.T) {
	f := New(nil, 0, time.Second, 0)

	sources := []source.Source{
		&fakeSource{name: "a", kind: source.KindAPI, arts: arts("1", "2")},
		&fakeSource{name: "b", kind: source.KindFeed, arts: arts("3")},
	}

	got := f.Full(context.Background(), "world", sources, time.Minute)
	assert.Len(t, got, 3)
}

func TestFullToleratesFailingSource(t *testing.T) {
	f := New(nil, 0, time.Second, 0)

	sources := []source.Source{
		&fakeSource{name: "ok", kind: source.KindAPI, arts: arts("1")},
		&fakeSource{name: "down", kind: source.KindAPI, err: errors.New("connection refused")},
	}

	got := f.Full(context.Background(), "world", sources, time.Minute)

	require.Len(t, got, 1)
	assert.Equal(t, "t 1", got[0].Title)
}

func TestSlowSourceIsDiscarded(t *testing.T) {
	f := New(nil, 0, 50*time.Millisecond, 0)

	sources := []source.Source{
		&fakeSource{name: "fast", kind: source.KindAPI, arts: arts("1")},
		&fakeSource{name: "slow", kind: source.KindAPI, arts: arts("2"), delay: 500 * time.Millisecond},
	}

	start := time.Now()
	got := f.Full(context.Background(), "world", sources, time.Minute)

	assert.Len(t, got, 1)
	assert.Less(t, time.Since(start), 300*time.Millisecond,
		"the batch must settle at the deadline, not wait for the straggler")
}

func TestFastSplitsSubsetPerKind(t *testing.T) {
	a1 := &fakeSource{name: "api1", kind: source.KindAPI, arts: arts("1")}
	a2 := &fakeSource{name: "api2", kind: source.KindAPI, arts: arts("2")}
	a3 := &fakeSource{name: "api3", kind: source.KindAPI, arts: arts("3")}
	f1 := &fakeSource{name: "feed1", kind: source.KindFeed, arts: arts("4")}

	f := New(nil, time.Second, time.Second, 2)
	got, remaining := f.Fast(context.Background(), "world",
		[]source.Source{a1, a2, a3, f1}, time.Minute)

	assert.Len(t, got, 3, "two api sources plus one feed run in the fast phase")
	require.Len(t, remaining, 1)
	assert.Equal(t, "api3", remaining[0].Name())
	assert.Zero(t, a3.calls, "remaining sources must not be called yet")
}

func TestRawCacheShortCircuitsFetch(t *testing.T) {
	tiered := cache.NewTiered(cache.NewMemory(10))
	f := New(tiered, 0, time.Second, 0)

	src := &fakeSource{name: "a", kind: source.KindAPI, arts: arts("1")}
	sources := []source.Source{src}

	first := f.Full(context.Background(), "world", sources, time.Minute)
	second := f.Full(context.Background(), "world", sources, time.Minute)

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	assert.Equal(t, 1, src.calls, "second round must come from the raw cache")
}

func TestEmptyResultIsNotCached(t *testing.T) {
	tiered := cache.NewTiered(cache.NewMemory(10))
	f := New(tiered, 0, time.Second, 0)

	src := &fakeSource{name: "a", kind: source.KindAPI}
	_ = f.Full(context.Background(), "world", []source.Source{src}, time.Minute)
	_ = f.Full(context.Background(), "world", []source.Source{src}, time.Minute)

	assert.Equal(t, 2, src.calls, "an empty fetch must not poison the cache")
}

// flakySource fails with a classified unavailable error until failures run out.
type flakySource struct {
	name     string
	failures int
	calls    int
	arts     []article.Article
}

func (f *flakySource) Name() string      { return f.name }
func (f *flakySource) Kind() source.Kind { return source.KindAPI }

func (f *flakySource) Fetch(ctx context.Context) ([]article.Article, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &source.Error{Source: f.name, Kind: source.Unavailable, Err: errors.New("connection reset")}
	}
	return f.arts, nil
}

func TestUnavailableSourceRetriedOnce(t *testing.T) {
	f := New(nil, 0, 2*time.Second, 0)

	src := &flakySource{name: "flaky", failures: 1, arts: arts("1")}
	got := f.Full(context.Background(), "world", []source.Source{src}, time.Minute)

	require.Len(t, got, 1)
	assert.Equal(t, 2, src.calls)
}

func TestSplitSubsetKeepsOrder(t *testing.T) {
	srcs := []source.Source{
		&fakeSource{name: "a", kind: source.KindAPI},
		&fakeSource{name: "b", kind: source.KindFeed},
		&fakeSource{name: "c", kind: source.KindAPI},
		&fakeSource{name: "d", kind: source.KindFeed},
	}

	subset, rest := splitSubset(srcs, 1)

	require.Len(t, subset, 2)
	assert.Equal(t, "a", subset[0].Name())
	assert.Equal(t, "b", subset[1].Name())
	require.Len(t, rest, 2)
	assert.Equal(t, "c", rest[0].Name())
	assert.Equal(t, "d", rest[1].Name())
}

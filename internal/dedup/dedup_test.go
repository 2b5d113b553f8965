package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhun1542/emarknews-stable/internal/article"
)

func mk(title, url, domain string) article.Article {
	a := article.Article{Title: title, CanonicalURL: url, SourceDomain: domain}
	a.Normalize()
	return a
}

func TestClusterExactDuplicates(t *testing.T) {
	e := New(0.80, nil)

	in := []article.Article{
		mk("Fed raises rates", "https://a.com/1", "a.com"),
		mk("FED RAISES RATES", "https://a.com/1", "a.com"), // same lowered title, same url
		mk("Fed raises rates", "https://b.com/2", "b.com"), // same title, different url
	}

	out := e.Cluster(in)

	// The case-variant is an exact duplicate; the different-URL copy still
	// merges through title similarity.
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].ClusterSize)
}

func TestClusterNearDuplicatesMerge(t *testing.T) {
	e := New(0.80, nil)

	in := []article.Article{
		mk("samsung unveils new galaxy fold display tech today", "https://a.com/1", "a.com"),
		mk("samsung unveils new galaxy fold display tech today launch", "https://b.com/2", "b.com"),
		mk("apple reports record quarterly services revenue", "https://c.com/3", "c.com"),
	}

	out := e.Cluster(in)

	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0].ClusterSize)
	assert.Equal(t, 1, out[1].ClusterSize)
	assert.Equal(t, "a.com", out[0].SourceDomain, "equal trust keeps the first seen")
}

func TestClusterHigherTrustReplacesRepresentative(t *testing.T) {
	trust := func(domain string) float64 {
		if domain == "reuters.com" {
			return 0.95
		}
		return 0.3
	}
	e := New(0.80, trust)

	in := []article.Article{
		mk("central bank cuts key interest rate today", "https://blog.example/1", "blog.example"),
		mk("central bank cuts key interest rate", "https://reuters.com/2", "reuters.com"),
	}

	out := e.Cluster(in)

	require.Len(t, out, 1)
	assert.Equal(t, "reuters.com", out[0].SourceDomain)
	assert.Equal(t, 2, out[0].ClusterSize)
}

func TestClusterIdempotentAfterRepresentativeReplacement(t *testing.T) {
	trust := func(domain string) float64 {
		if domain == "reuters.com" {
			return 0.95
		}
		return 0.3
	}
	e := New(0.60, trust)

	// The third title sits within the threshold of both earlier anchors
	// (5/7 each) while the first two sit apart (3/7). When it replaces the
	// first representative it also moves that cluster's anchor next to the
	// second cluster, which must then merge in the same pass.
	in := []article.Article{
		mk("alpha beta gamma delta epsilon", "https://a.com/1", "a.com"),
		mk("gamma delta epsilon zeta eta", "https://b.com/2", "b.com"),
		mk("alpha beta gamma delta epsilon zeta eta", "https://reuters.com/3", "reuters.com"),
	}

	out := e.Cluster(in)

	require.Len(t, out, 1)
	assert.Equal(t, "reuters.com", out[0].SourceDomain)
	assert.Equal(t, 3, out[0].ClusterSize)

	again := e.Cluster(out)
	require.Equal(t, len(out), len(again), "re-clustering the output must not merge further")
	for i := range out {
		assert.Equal(t, out[i].ID, again[i].ID)
	}
}

func TestClusterDistinctTitlesSurvive(t *testing.T) {
	e := New(0.80, nil)

	in := []article.Article{
		mk("earthquake strikes northern japan coast", "https://a.com/1", "a.com"),
		mk("stock markets rally on tech earnings", "https://b.com/2", "b.com"),
		mk("new species of deep sea fish discovered", "https://c.com/3", "c.com"),
	}

	out := e.Cluster(in)
	assert.Len(t, out, 3)
}

func TestClusterDeterministic(t *testing.T) {
	e := New(0.80, nil)
	in := []article.Article{
		mk("alpha beta gamma delta epsilon", "https://a.com/1", "a.com"),
		mk("alpha beta gamma delta zeta", "https://b.com/2", "b.com"),
		mk("totally unrelated headline here now", "https://c.com/3", "c.com"),
	}

	first := e.Cluster(in)
	second := e.Cluster(in)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].ClusterSize, second[i].ClusterSize)
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Breaking: Fed Raises Rates, Again!")

	want := []string{"breaking", "fed", "raises", "rates", "again"}
	assert.Len(t, tokens, len(want))
	for _, w := range want {
		_, ok := tokens[w]
		assert.True(t, ok, "missing token %q", w)
	}

	_, ok := Tokenize("a b c")["a"]
	assert.False(t, ok, "single-rune tokens are dropped")
}

func TestJaccard(t *testing.T) {
	a := Tokenize("one two three four")
	b := Tokenize("one two three five")

	assert.InDelta(t, 3.0/5.0, jaccard(a, b), 1e-9)
	assert.Equal(t, 1.0, jaccard(a, a))
	assert.Equal(t, 0.0, jaccard(a, Tokenize("")))
}

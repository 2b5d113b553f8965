// Package dedup removes exact duplicates and merges near-duplicate articles
// into a single representative per cluster.
package dedup

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/yhun1542/emarknews-stable/internal/article"
	"github.com/yhun1542/emarknews-stable/internal/metrics"
)

// Engine clusters one batch at a time. Trust resolves a source domain to a
// weight used to pick cluster representatives; nil means every domain ties.
type Engine struct {
	Threshold float64
	Trust     func(domain string) float64
}

func New(threshold float64, trust func(string) float64) *Engine {
	if threshold <= 0 {
		threshold = 0.80
	}
	return &Engine{Threshold: threshold, Trust: trust}
}

type cluster struct {
	rep    article.Article
	tokens map[string]struct{}
	size   int
}

// Cluster runs both stages: exact dedup on (title, URL) hash, then Jaccard
// title clustering. Input order is preserved for cluster creation, so the
// output is deterministic given identical input.
func (e *Engine) Cluster(in []article.Article) []article.Article {
	seen := map[string]struct{}{}
	var clusters []*cluster

	for _, a := range in {
		key := exactKey(a.Title, a.CanonicalURL)
		if _, dup := seen[key]; dup {
			metrics.Global.IncrementDuplicatesFiltered()
			continue
		}
		seen[key] = struct{}{}

		tokens := Tokenize(a.Title)

		merged := false
		for _, c := range clusters {
			if jaccard(tokens, c.tokens) >= e.Threshold {
				c.size++
				metrics.Global.IncrementDuplicatesFiltered()
				if e.trustOf(a.SourceDomain) > e.trustOf(c.rep.SourceDomain) {
					// Higher-trust member takes over as representative,
					// including as the similarity anchor.
					c.rep = a
					c.tokens = tokens
				}
				merged = true
				break
			}
		}
		if !merged {
			clusters = append(clusters, &cluster{rep: a, tokens: tokens, size: 1})
		}
	}

	clusters = e.collapse(clusters)

	out := make([]article.Article, 0, len(clusters))
	for _, c := range clusters {
		rep := c.rep
		rep.ClusterSize = c.size
		out = append(out, rep)
	}
	return out
}

// collapse merges clusters whose anchors fall within the threshold of each
// other. A representative replacement moves a cluster's anchor, so clusters
// formed against the old anchor can end up this close; merging until stable
// makes re-clustering the output a no-op.
func (e *Engine) collapse(clusters []*cluster) []*cluster {
	for {
		merged := false
		for i := 0; i < len(clusters) && !merged; i++ {
			for j := i + 1; j < len(clusters); j++ {
				if jaccard(clusters[i].tokens, clusters[j].tokens) < e.Threshold {
					continue
				}
				c, d := clusters[i], clusters[j]
				if e.trustOf(d.rep.SourceDomain) > e.trustOf(c.rep.SourceDomain) {
					c.rep = d.rep
					c.tokens = d.tokens
				}
				c.size += d.size
				metrics.Global.IncrementDuplicatesFiltered()
				clusters = append(clusters[:j], clusters[j+1:]...)
				merged = true
				break
			}
		}
		if !merged {
			return clusters
		}
	}
}

func (e *Engine) trustOf(domain string) float64 {
	if e.Trust == nil {
		return 0.5
	}
	return e.Trust(domain)
}

// exactKey hashes a lowercased (title, URL) pair.
func exactKey(title, url string) string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(title)))
	h.Write([]byte{'|'})
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// Tokenize lowercases a title, strips punctuation and drops tokens shorter
// than two characters.
func Tokenize(title string) map[string]struct{} {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	tokens := map[string]struct{}{}
	for _, w := range strings.Fields(b.String()) {
		if len([]rune(w)) < 2 {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}

// jaccard is |intersection| / |union| of two token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}

	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

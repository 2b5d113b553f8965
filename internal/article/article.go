package article

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// Article is the canonical unit produced by source adapters. Adapters fill
// the raw fields; the ranking engine fills Scores; the enrichment queue
// fills the Enriched block.
type Article struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CanonicalURL string    `json:"url"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	PublishedAt  time.Time `json:"publishedAt"`
	SourceName   string    `json:"source"`
	SourceDomain string    `json:"sourceDomain"`
	Language     string    `json:"language"`

	EngagementCount int64 `json:"engagement"`
	AudienceSize    int64 `json:"audience"`

	// ClusterSize counts near-duplicates merged into this representative.
	ClusterSize int `json:"clusterSize,omitempty"`

	Scores   Scores    `json:"scores"`
	Enriched *Enriched `json:"enriched,omitempty"`
}

// Scores holds the derived ranking fields.
type Scores struct {
	AgeMinutes       float64 `json:"ageMinutes"`
	Freshness        float64 `json:"freshness"`
	Velocity         float64 `json:"velocity"`
	EngagementRatio  float64 `json:"engagementRatio"`
	Trust            float64 `json:"trust"`
	DiversityPenalty float64 `json:"diversityPenalty"`
	LocaleMatch      float64 `json:"localeMatch"`
	Rating           int     `json:"rating"`
	Composite        float64 `json:"composite"`
}

// Enriched carries translation and summary output.
type Enriched struct {
	TranslatedTitle       string   `json:"translatedTitle,omitempty"`
	TranslatedDescription string   `json:"translatedDescription,omitempty"`
	SummaryBullets        []string `json:"summaryBullets,omitempty"`
	DetailedSummary       string   `json:"detailedSummary,omitempty"`
}

// MakeID derives a stable content-addressed id from the canonical URL so
// cache keys and client-visible ids are reproducible across requests.
func MakeID(canonicalURL string) string {
	h := sha1.Sum([]byte(strings.TrimSpace(canonicalURL)))
	return hex.EncodeToString(h[:])[:16]
}

// Normalize fills the derived identity fields and reports whether the
// article is usable. Items without a title or URL are dropped at the
// adapter boundary rather than propagated half-formed.
func (a *Article) Normalize() bool {
	a.Title = strings.TrimSpace(a.Title)
	a.CanonicalURL = strings.TrimSpace(a.CanonicalURL)
	if a.Title == "" || a.CanonicalURL == "" {
		return false
	}
	if a.ID == "" {
		a.ID = MakeID(a.CanonicalURL)
	}
	if a.SourceDomain == "" {
		a.SourceDomain = Domain(a.CanonicalURL)
	}
	return true
}

// Domain extracts the host part of a URL without depending on a full parse
// succeeding; malformed URLs yield "unknown".
func Domain(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(strings.ToLower(s), "www.")
	if s == "" {
		return "unknown"
	}
	return s
}

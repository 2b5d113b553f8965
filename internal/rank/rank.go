// Package rank scores and orders a section's candidate articles. Two
// strategies exist: the weighted composite score (default) and the
// gravity-decay hot score for single-feed or low-signal sections.
package rank

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yhun1542/emarknews-stable/internal/article"
	"github.com/yhun1542/emarknews-stable/internal/config"
)

// Given the declared Now, ranking is fully deterministic: identical input
// and weights always produce the same order.
type Options struct {
	Now         time.Time
	Locale      string
	Tau         float64 // freshness decay constant, minutes
	Smoothing   float64 // engagement-ratio denominator smoothing
	PenaltyBase float64 // diversity penalty step
	Gravity     float64 // hot-score decay exponent
	Trust       map[string]float64
	Tiers       map[string]int
}

// ageSentinelMinutes stands in for articles with no parsable timestamp:
// effectively zero freshness.
const ageSentinelMinutes = float64(1 << 20)

const defaultTrust = 0.5

// defaultAcceptedLanguages are always counted as a locale match in addition
// to the section's own locale.
var defaultAcceptedLanguages = map[string]bool{"en": true}

func (o *Options) fill() {
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Tau <= 0 {
		o.Tau = 90
	}
	if o.Smoothing <= 0 {
		o.Smoothing = 1000
	}
	if o.PenaltyBase <= 0 {
		o.PenaltyBase = 0.25
	}
	if o.Gravity <= 0 {
		o.Gravity = 1.6
	}
}

func (o *Options) trustOf(domain string) float64 {
	if w, ok := o.Trust[domain]; ok {
		return math.Min(1, w)
	}
	return defaultTrust
}

func ageMinutes(published time.Time, now time.Time) float64 {
	if published.IsZero() {
		return ageSentinelMinutes
	}
	age := now.Sub(published).Minutes()
	if age < 0 {
		return 0
	}
	return age
}

// Composite computes the weighted multi-factor score for each article and
// returns the list sorted by score descending, ties broken by ascending age
// then descending trust.
func Composite(arts []article.Article, w config.Weights, opts Options) []article.Article {
	opts.fill()

	out := make([]article.Article, len(arts))
	copy(out, arts)

	domainSeen := map[string]int{}

	for i := range out {
		a := &out[i]
		s := &a.Scores

		s.AgeMinutes = ageMinutes(a.PublishedAt, opts.Now)
		s.Freshness = math.Exp(-s.AgeMinutes / opts.Tau)
		s.Velocity = float64(a.EngagementCount) / math.Max(1, s.AgeMinutes)
		s.EngagementRatio = float64(a.EngagementCount) / (float64(a.AudienceSize) + opts.Smoothing)
		s.Trust = opts.trustOf(a.SourceDomain)

		// Earlier articles from an over-represented domain escape the
		// penalty; later ones pay increasingly.
		before := domainSeen[a.SourceDomain]
		domainSeen[a.SourceDomain]++
		s.DiversityPenalty = math.Min(1, opts.PenaltyBase*math.Max(0, float64(before-2)))

		s.LocaleMatch = 0
		if a.Language == opts.Locale || defaultAcceptedLanguages[a.Language] {
			s.LocaleMatch = 1
		}

		s.Composite = w.Freshness*s.Freshness +
			w.Velocity*s.Velocity +
			w.Engagement*s.EngagementRatio +
			w.SourceTrust*s.Trust -
			w.Diversity*s.DiversityPenalty +
			w.Locale*s.LocaleMatch
	}

	sortRanked(out)
	return out
}

// Hot computes the simplified gravity-decay score:
// rating² / (ageHours + 2)^gravity, rating being a 1..5 importance score
// from keyword heuristics.
func Hot(arts []article.Article, opts Options) []article.Article {
	opts.fill()

	out := make([]article.Article, len(arts))
	copy(out, arts)

	for i := range out {
		a := &out[i]
		s := &a.Scores

		s.AgeMinutes = ageMinutes(a.PublishedAt, opts.Now)
		s.Freshness = math.Exp(-s.AgeMinutes / opts.Tau)
		s.Trust = opts.trustOf(a.SourceDomain)
		s.Rating = Rating(a, opts)

		ageHours := s.AgeMinutes / 60
		s.Composite = float64(s.Rating*s.Rating) / math.Pow(ageHours+2, opts.Gravity)
	}

	sortRanked(out)
	return out
}

func sortRanked(arts []article.Article) {
	sort.SliceStable(arts, func(i, j int) bool {
		si, sj := arts[i].Scores, arts[j].Scores
		if si.Composite != sj.Composite {
			return si.Composite > sj.Composite
		}
		if si.AgeMinutes != sj.AgeMinutes {
			return si.AgeMinutes < sj.AgeMinutes // newer wins
		}
		return si.Trust > sj.Trust
	})
}

// Urgency and importance cues for the hot-score rating. Mixed English and
// Korean on purpose: sections carry either.
var urgencyKeywords = []string{
	"breaking", "urgent", "alert", "just in", "live",
	"속보", "긴급", "단독",
}

var importanceKeywords = []string{
	"exclusive", "crisis", "emergency", "war", "disaster", "earthquake",
	"election", "resign", "sanctions", "record",
	"대통령", "전쟁", "재난", "사망",
}

// Rating maps keyword hits, recency and source tier into a 1..5 importance
// score.
func Rating(a *article.Article, opts Options) int {
	text := strings.ToLower(a.Title + " " + a.Description)

	rating := 1
	if containsAny(text, urgencyKeywords) {
		rating++
	}
	if containsAny(text, importanceKeywords) {
		rating++
	}
	if ageMinutes(a.PublishedAt, opts.Now) < 60 {
		rating++
	}
	rating += opts.Tiers[a.SourceDomain]

	if rating > 5 {
		rating = 5
	}
	return rating
}

// containsAny distinguishes phrases and short words so that "ai" does not
// match "said": phrases substring-match, short tokens require a word
// boundary.
func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		if len(k) <= 3 {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
			if re.MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

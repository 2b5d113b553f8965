package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Weights is a per-section scoring profile. The six weights are loaded once
// at startup and never mutated. Normalization is not enforced; operators may
// tune individual weights freely.
type Weights struct {
	Freshness   float64 `yaml:"freshness"`
	Velocity    float64 `yaml:"velocity"`
	Engagement  float64 `yaml:"engagement"`
	SourceTrust float64 `yaml:"sourceTrust"`
	Diversity   float64 `yaml:"diversity"`
	Locale      float64 `yaml:"locale"`
}

// Section describes a topical category: its sources, locale, ranking
// strategy and cache volatility.
type Section struct {
	Name     string   `yaml:"name"`
	Locale   string   `yaml:"locale"`   // preferred article language (ISO 639-1)
	Strategy string   `yaml:"strategy"` // "composite" or "hot"
	Queries  []string `yaml:"queries"`  // search terms for API adapters
	Feeds    []string `yaml:"feeds"`    // syndication feed URLs
	Weights  Weights  `yaml:"weights"`

	SectionTTL string `yaml:"sectionTtl"` // assembled payload TTL, e.g. "3m"
	SourceTTL  string `yaml:"sourceTtl"`  // raw per-source results TTL

	sectionTTL time.Duration
	sourceTTL  time.Duration
}

func (s *Section) PayloadTTL() time.Duration { return s.sectionTTL }
func (s *Section) RawTTL() time.Duration     { return s.sourceTTL }

// Sections is the static topology file: sections plus the domain trust table
// and the source tier table used by hot-score rating.
type Sections struct {
	Sections []Section          `yaml:"sections"`
	Trust    map[string]float64 `yaml:"trust"` // domain -> weight [0,1]
	Tiers    map[string]int     `yaml:"tiers"` // domain -> tier bonus (0..2)
}

type Config struct {
	// HTTP
	Addr string

	// Upstream credentials
	NewsAPIKey        string
	NewsDataKey       string
	NaverClientID     string
	NaverClientSecret string
	YouTubeKey        string
	OpenAIKey         string
	GeminiKey         string

	// Cache backend
	MongoURI        string
	MongoDBName     string
	CacheMaxEntries int

	// Dead-letter replay
	RabbitURI        string
	RabbitExchange   string
	RabbitRoutingKey string

	// Fan-out deadlines
	FastDeadline time.Duration
	FullDeadline time.Duration
	FastSubset   int // sources per kind in the fast phase

	// Dedup / ranking tunables
	SimilarityThreshold float64
	FreshnessTau        float64 // minutes
	Gravity             float64
	Smoothing           float64
	PenaltyBase         float64

	// Enrichment queue
	EnrichTopN        int
	EnrichMaxAttempts int
	EnrichBaseDelay   time.Duration
	EnrichMaxDelay    time.Duration
	EnrichFloor       int
	EnrichCeiling     int
	EnrichLowHeadroom int64
	DetailRatingMin   int
	EnrichResultTTL   time.Duration
	TargetLanguage    string

	// Paging
	DefaultLimit int

	SectionsPath string
	Debug        bool

	Topology Sections
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:        getEnvOrDefault("ADDR", ":8080"),
		MongoDBName: getEnvOrDefault("MONGO_DB_NAME", "emarknews"),

		RabbitExchange:   getEnvOrDefault("RABBIT_EXCHANGE", "enrich.deadletter"),
		RabbitRoutingKey: getEnvOrDefault("RABBIT_ROUTING_KEY", "task.failed"),

		CacheMaxEntries: getEnvIntOrDefault("CACHE_MAX_ENTRIES", 4096),

		FastDeadline: getEnvDurationOrDefault("FAST_DEADLINE", 800*time.Millisecond),
		FullDeadline: getEnvDurationOrDefault("FULL_DEADLINE", 10*time.Second),
		FastSubset:   getEnvIntOrDefault("FAST_SUBSET", 2),

		SimilarityThreshold: getEnvFloatOrDefault("SIMILARITY_THRESHOLD", 0.80),
		FreshnessTau:        getEnvFloatOrDefault("FRESHNESS_TAU_MINUTES", 90),
		Gravity:             getEnvFloatOrDefault("HOT_GRAVITY", 1.6),
		Smoothing:           getEnvFloatOrDefault("ENGAGEMENT_SMOOTHING", 1000),
		PenaltyBase:         getEnvFloatOrDefault("DIVERSITY_PENALTY_BASE", 0.25),

		EnrichTopN:        getEnvIntOrDefault("ENRICH_TOP_N", 10),
		EnrichMaxAttempts: getEnvIntOrDefault("ENRICH_MAX_ATTEMPTS", 4),
		EnrichBaseDelay:   getEnvDurationOrDefault("ENRICH_BASE_DELAY", 500*time.Millisecond),
		EnrichMaxDelay:    getEnvDurationOrDefault("ENRICH_MAX_DELAY", 8*time.Second),
		EnrichFloor:       getEnvIntOrDefault("ENRICH_FLOOR", 1),
		EnrichCeiling:     getEnvIntOrDefault("ENRICH_CEILING", 8),
		EnrichLowHeadroom: int64(getEnvIntOrDefault("ENRICH_LOW_HEADROOM", 20)),
		DetailRatingMin:   getEnvIntOrDefault("DETAIL_RATING_MIN", 4),
		EnrichResultTTL:   getEnvDurationOrDefault("ENRICH_RESULT_TTL", 6*time.Hour),
		TargetLanguage:    getEnvOrDefault("TARGET_LANGUAGE", "ko"),

		DefaultLimit: getEnvIntOrDefault("DEFAULT_LIMIT", 30),

		SectionsPath: getEnvOrDefault("SECTIONS_CONFIG", "configs/sections.yaml"),
	}

	cfg.NewsAPIKey = os.Getenv("NEWSAPI_KEY")
	cfg.NewsDataKey = os.Getenv("NEWSDATA_KEY")
	cfg.NaverClientID = os.Getenv("NAVER_CLIENT_ID")
	cfg.NaverClientSecret = os.Getenv("NAVER_CLIENT_SECRET")
	cfg.YouTubeKey = os.Getenv("YOUTUBE_API_KEY")
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.MongoURI = os.Getenv("MONGO_URI")
	cfg.RabbitURI = os.Getenv("RABBIT_URI")

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	topo, err := LoadSections(cfg.SectionsPath)
	if err != nil {
		return nil, fmt.Errorf("load sections config: %w", err)
	}
	cfg.Topology = *topo

	return cfg, cfg.Validate()
}

// LoadSections reads the YAML topology file and resolves TTL strings.
func LoadSections(path string) (*Sections, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var topo Sections
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&topo); err != nil {
		return nil, err
	}

	for i := range topo.Sections {
		sec := &topo.Sections[i]
		if sec.Strategy == "" {
			sec.Strategy = "composite"
		}
		if sec.Locale == "" {
			sec.Locale = "en"
		}
		sec.sectionTTL = parseTTL(sec.SectionTTL, 3*time.Minute)
		sec.sourceTTL = parseTTL(sec.SourceTTL, 10*time.Minute)
	}
	return &topo, nil
}

func parseTTL(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (c *Config) Validate() error {
	if len(c.Topology.Sections) == 0 {
		return fmt.Errorf("no sections configured")
	}
	seen := map[string]bool{}
	for _, sec := range c.Topology.Sections {
		if sec.Name == "" {
			return fmt.Errorf("section with empty name")
		}
		if seen[sec.Name] {
			return fmt.Errorf("duplicate section %q", sec.Name)
		}
		seen[sec.Name] = true
		if sec.Strategy != "composite" && sec.Strategy != "hot" {
			return fmt.Errorf("section %q: strategy must be 'composite' or 'hot'", sec.Name)
		}
	}
	if c.EnrichFloor < 1 || c.EnrichCeiling < c.EnrichFloor {
		return fmt.Errorf("enrichment concurrency bounds invalid: floor=%d ceiling=%d", c.EnrichFloor, c.EnrichCeiling)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0,1]")
	}
	return nil
}

// SectionByName returns the section config, or nil for unknown names.
func (c *Config) SectionByName(name string) *Section {
	for i := range c.Topology.Sections {
		if c.Topology.Sections[i].Name == name {
			return &c.Topology.Sections[i]
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

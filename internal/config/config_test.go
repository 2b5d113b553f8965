package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topologyYAML = `
sections:
  - name: world
    locale: en
    queries: ["world news"]
    feeds: ["https://feeds.bbci.co.uk/news/world/rss.xml"]
    weights:
      freshness: 0.35
      sourceTrust: 0.2
    sectionTtl: 2m
    sourceTtl: 8m
  - name: buzz
    strategy: hot
trust:
  reuters.com: 0.95
tiers:
  reuters.com: 2
`

func writeTopology(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sections.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSections(t *testing.T) {
	topo, err := LoadSections(writeTopology(t, topologyYAML))
	require.NoError(t, err)

	require.Len(t, topo.Sections, 2)

	world := topo.Sections[0]
	assert.Equal(t, "world", world.Name)
	assert.Equal(t, "composite", world.Strategy, "strategy defaults to composite")
	assert.Equal(t, 0.35, world.Weights.Freshness)
	assert.Equal(t, 2*time.Minute, world.PayloadTTL())
	assert.Equal(t, 8*time.Minute, world.RawTTL())

	buzz := topo.Sections[1]
	assert.Equal(t, "hot", buzz.Strategy)
	assert.Equal(t, "en", buzz.Locale, "locale defaults to en")
	assert.Equal(t, 3*time.Minute, buzz.PayloadTTL(), "missing ttl falls back")

	assert.Equal(t, 0.95, topo.Trust["reuters.com"])
	assert.Equal(t, 2, topo.Tiers["reuters.com"])
}

func TestLoadSectionsMissingFile(t *testing.T) {
	_, err := LoadSections(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadSectionsBadYAML(t *testing.T) {
	_, err := LoadSections(writeTopology(t, "sections: [unclosed"))
	assert.Error(t, err)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	topo, err := LoadSections(writeTopology(t, topologyYAML))
	require.NoError(t, err)
	return &Config{
		Topology:            *topo,
		EnrichFloor:         1,
		EnrichCeiling:       8,
		SimilarityThreshold: 0.8,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no sections", mutate: func(c *Config) { c.Topology.Sections = nil }},
		{name: "duplicate section names", mutate: func(c *Config) {
			c.Topology.Sections = append(c.Topology.Sections, Section{Name: "world", Strategy: "composite"})
		}},
		{name: "unknown strategy", mutate: func(c *Config) { c.Topology.Sections[0].Strategy = "trending" }},
		{name: "ceiling below floor", mutate: func(c *Config) { c.EnrichCeiling = 0 }},
		{name: "threshold out of range", mutate: func(c *Config) { c.SimilarityThreshold = 1.5 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSectionByName(t *testing.T) {
	cfg := validConfig(t)

	require.NotNil(t, cfg.SectionByName("world"))
	assert.Equal(t, "world", cfg.SectionByName("world").Name)
	assert.Nil(t, cfg.SectionByName("sports"))
}

func TestParseTTL(t *testing.T) {
	assert.Equal(t, 5*time.Minute, parseTTL("5m", time.Minute))
	assert.Equal(t, time.Minute, parseTTL("", time.Minute))
	assert.Equal(t, time.Minute, parseTTL("bogus", time.Minute))
	assert.Equal(t, time.Minute, parseTTL("-3s", time.Minute))
}

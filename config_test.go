package refdex_test

import (
	"testing"

	"github.com/fwojciec/refdex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()

	cfg := refdex.DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 40, cfg.Search.Threshold)
	assert.InDelta(t, 0.01, cfg.Search.Floor, 1e-9)
	assert.Equal(t, 1000, cfg.LLM.DescriptionLimit)
	assert.Equal(t, 4000, cfg.LLM.KeywordLimit)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*refdex.Config)
	}{
		{"empty db path", func(c *refdex.Config) { c.DBPath = "" }},
		{"zero concurrency", func(c *refdex.Config) { c.Crawl.Concurrency = 0 }},
		{"unknown extractor", func(c *refdex.Config) { c.Crawl.Extractor = "regex" }},
		{"unknown provider", func(c *refdex.Config) { c.LLM.Provider = "llama.cpp" }},
		{"missing model", func(c *refdex.Config) { c.LLM.Model = "" }},
		{"threshold out of range", func(c *refdex.Config) { c.Search.Threshold = 101 }},
		{"zero threshold", func(c *refdex.Config) { c.Search.Threshold = 0 }},
		{"zero min keywords", func(c *refdex.Config) { c.Search.MinKeywords = 0 }},
		{"zero floor", func(c *refdex.Config) { c.Search.Floor = 0 }},
		{"unknown scope", func(c *refdex.Config) { c.Search.Scope = "global" }},
		{"unknown granularity", func(c *refdex.Config) { c.Search.Granularity = "token" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := refdex.DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, refdex.EINVALID, refdex.ErrorCode(err))
		})
	}
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsFillsPipelineTunables(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	assert.Equal(t, "event-assistant", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.App.ListenAddr)
	assert.Equal(t, "events", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, "openai", cfg.GenAI.Provider)
	assert.Equal(t, 8000, cfg.GenAI.Timeout)

	p := cfg.Pipeline
	assert.InDelta(t, 0.7, p.Intent.EnhanceBelowConfidence, 1e-9)
	assert.Equal(t, 120, p.Memory.SessionTTLMinutes)
	assert.Equal(t, 10, p.Memory.SessionWindow)
	assert.Equal(t, 100, p.Memory.HistoryCap)
	assert.InDelta(t, 25, p.Retrieval.DefaultRadiusKm, 1e-9)
	assert.InDelta(t, 50, p.Retrieval.GuestRadiusKm, 1e-9)

	weightSum := p.Moderation.SpamWeight + p.Moderation.InappropriateWeight +
		p.Moderation.SuspiciousWeight + p.Moderation.AIGeneratedWeight +
		p.Moderation.ValidationWeight
	assert.InDelta(t, 1.0, weightSum, 1e-9)

	rankSum := p.Ranking.CategoryWeight + p.Ranking.LocationWeight +
		p.Ranking.TimeWeight + p.Ranking.BehaviorWeight + p.Ranking.PopularityWeight
	assert.InDelta(t, 1.0, rankSum, 1e-9)
	assert.Equal(t, 2, p.Ranking.MaxPerCategory)
	assert.Equal(t, 3, p.Ranking.MaxPerLocation)
	assert.Equal(t, 5, p.Ranking.MinResults)
	assert.Equal(t, 15, p.Ranking.MaxResults)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	var cfg Config
	cfg.Pipeline.Retrieval.DefaultRadiusKm = 10
	cfg.GenAI.Provider = "anthropic"

	applyDefaults(&cfg)

	assert.InDelta(t, 10, cfg.Pipeline.Retrieval.DefaultRadiusKm, 1e-9)
	assert.Equal(t, "anthropic", cfg.GenAI.Provider)
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		var cfg Config
		applyDefaults(&cfg)
		return &cfg
	}

	require.NoError(t, validateConfig(base()))

	cfg := base()
	cfg.GenAI.Provider = "palm"
	assert.ErrorContains(t, validateConfig(cfg), "unsupported genai provider")

	cfg = base()
	cfg.VectorIndex.Enabled = true
	cfg.VectorIndex.Index = ""
	assert.ErrorContains(t, validateConfig(cfg), "vector_index.index")

	cfg = base()
	cfg.Notifications.Enabled = true
	assert.ErrorContains(t, validateConfig(cfg), "aws_region")
}

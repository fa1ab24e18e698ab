// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges an environment-specific overlay
// (config.<env>.yaml) and applies environment variable overrides.
func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Allow overrides like DATABASE_POSTGRES_PASSWORD or GENAI_API_KEY.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // overlay is optional

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// applyDefaults fills every tunable the pipeline depends on. The scoring
// constants mirror the platform's historical values; they are defaults,
// not tuned optima.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "event-assistant"
	}
	if cfg.App.ListenAddr == "" {
		cfg.App.ListenAddr = ":8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "events"
	}

	if cfg.GenAI.Provider == "" {
		cfg.GenAI.Provider = "openai"
	}
	if cfg.GenAI.MaxTokens == 0 {
		cfg.GenAI.MaxTokens = 400
	}
	if cfg.GenAI.Timeout == 0 {
		cfg.GenAI.Timeout = 8000
	}
	if cfg.VectorIndex.EmbeddingModel == "" {
		cfg.VectorIndex.EmbeddingModel = "text-embedding-3-small"
	}

	p := &cfg.Pipeline
	if p.Intent.EnhanceBelowConfidence == 0 {
		p.Intent.EnhanceBelowConfidence = 0.7
	}
	if p.Memory.SessionTTLMinutes == 0 {
		p.Memory.SessionTTLMinutes = 120
	}
	if p.Memory.SessionWindow == 0 {
		p.Memory.SessionWindow = 10
	}
	if p.Memory.HistoryCap == 0 {
		p.Memory.HistoryCap = 100
	}
	if p.Memory.SweepIntervalSecs == 0 {
		p.Memory.SweepIntervalSecs = 300
	}
	if p.Retrieval.DefaultRadiusKm == 0 {
		p.Retrieval.DefaultRadiusKm = 25
	}
	if p.Retrieval.GuestRadiusKm == 0 {
		p.Retrieval.GuestRadiusKm = 50
	}
	if p.Retrieval.MaxResults == 0 {
		p.Retrieval.MaxResults = 50
	}
	if p.Retrieval.VectorTopK == 0 {
		p.Retrieval.VectorTopK = 5
	}
	if p.Moderation.SpamWeight == 0 {
		p.Moderation.SpamWeight = 0.3
	}
	if p.Moderation.InappropriateWeight == 0 {
		p.Moderation.InappropriateWeight = 0.3
	}
	if p.Moderation.SuspiciousWeight == 0 {
		p.Moderation.SuspiciousWeight = 0.2
	}
	if p.Moderation.AIGeneratedWeight == 0 {
		p.Moderation.AIGeneratedWeight = 0.1
	}
	if p.Moderation.ValidationWeight == 0 {
		p.Moderation.ValidationWeight = 0.1
	}
	if p.Moderation.FlaggedThreshold == 0 {
		p.Moderation.FlaggedThreshold = 0.6
	}
	if p.Moderation.ReviewThreshold == 0 {
		p.Moderation.ReviewThreshold = 0.8
	}
	if p.Moderation.RejectedThreshold == 0 {
		p.Moderation.RejectedThreshold = 0.9
	}
	if p.Moderation.DuplicateThreshold == 0 {
		p.Moderation.DuplicateThreshold = 0.85
	}
	if p.Ranking.CategoryWeight == 0 {
		p.Ranking.CategoryWeight = 0.30
	}
	if p.Ranking.LocationWeight == 0 {
		p.Ranking.LocationWeight = 0.25
	}
	if p.Ranking.TimeWeight == 0 {
		p.Ranking.TimeWeight = 0.20
	}
	if p.Ranking.BehaviorWeight == 0 {
		p.Ranking.BehaviorWeight = 0.15
	}
	if p.Ranking.PopularityWeight == 0 {
		p.Ranking.PopularityWeight = 0.10
	}
	if p.Ranking.MaxPerCategory == 0 {
		p.Ranking.MaxPerCategory = 2
	}
	if p.Ranking.MaxPerLocation == 0 {
		p.Ranking.MaxPerLocation = 3
	}
	if p.Ranking.MinResults == 0 {
		p.Ranking.MinResults = 5
	}
	if p.Ranking.MaxResults == 0 {
		p.Ranking.MaxResults = 15
	}
	if p.Governance.HighRisk == 0 {
		p.Governance.HighRisk = 0.8
	}
	if p.Governance.MediumRisk == 0 {
		p.Governance.MediumRisk = 0.6
	}
	if p.Governance.HighWaitHours == 0 {
		p.Governance.HighWaitHours = 48
	}
	if p.Governance.MediumWaitHours == 0 {
		p.Governance.MediumWaitHours = 24
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.GenAI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported genai provider: %s", cfg.GenAI.Provider)
	}

	if cfg.VectorIndex.Enabled && cfg.VectorIndex.Index == "" {
		return fmt.Errorf("vector_index.index required when vector index is enabled")
	}

	if cfg.Notifications.Enabled && cfg.Notifications.AWSRegion == "" {
		return fmt.Errorf("notifications.aws_region required when notifications are enabled")
	}

	return nil
}

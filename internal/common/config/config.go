// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	GenAI         GenAIConfig        `mapstructure:"genai"`
	VectorIndex   VectorIndexConfig  `mapstructure:"vector_index"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Pipeline      PipelineConfig     `mapstructure:"pipeline"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	ListenAddr  string `mapstructure:"listen_addr"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- External Collaborators ---

// GenAIConfig configures the hosted prose-generation service.
type GenAIConfig struct {
	Provider    string  `mapstructure:"provider"` // openai | anthropic
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

// VectorIndexConfig configures the optional semantic index. The pipeline
// is fully functional with Enabled=false.
type VectorIndexConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Index          string `mapstructure:"index"`
	Namespace      string `mapstructure:"namespace"`
	APIKey         string `mapstructure:"api_key"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// NotificationConfig configures best-effort admin notifications.
type NotificationConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	AWSRegion    string   `mapstructure:"aws_region"`
	SNSTopicARN  string   `mapstructure:"sns_topic_arn"`
	DigestFrom   string   `mapstructure:"digest_from"`
	DigestEmails []string `mapstructure:"digest_emails"`
}

// --- Pipeline Tunables ---
//
// All scoring constants are configuration defaults, not tuned values.

type PipelineConfig struct {
	Intent     IntentConfig     `mapstructure:"intent"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Governance GovernanceConfig `mapstructure:"governance"`
}

type IntentConfig struct {
	EnhanceBelowConfidence float64 `mapstructure:"enhance_below_confidence"`
}

type MemoryConfig struct {
	SessionTTLMinutes int `mapstructure:"session_ttl_minutes"`
	SessionWindow     int `mapstructure:"session_window"`
	HistoryCap        int `mapstructure:"history_cap"`
	SweepIntervalSecs int `mapstructure:"sweep_interval_seconds"`
}

type RetrievalConfig struct {
	DefaultRadiusKm float64 `mapstructure:"default_radius_km"`
	GuestRadiusKm   float64 `mapstructure:"guest_radius_km"`
	MaxResults      int     `mapstructure:"max_results"`
	VectorTopK      int     `mapstructure:"vector_top_k"`
}

type ModerationConfig struct {
	SpamWeight          float64 `mapstructure:"spam_weight"`
	InappropriateWeight float64 `mapstructure:"inappropriate_weight"`
	SuspiciousWeight    float64 `mapstructure:"suspicious_weight"`
	AIGeneratedWeight   float64 `mapstructure:"ai_generated_weight"`
	ValidationWeight    float64 `mapstructure:"validation_weight"`
	FlaggedThreshold    float64 `mapstructure:"flagged_threshold"`
	ReviewThreshold     float64 `mapstructure:"review_threshold"`
	RejectedThreshold   float64 `mapstructure:"rejected_threshold"`
	DuplicateThreshold  float64 `mapstructure:"duplicate_threshold"`
}

type RankingConfig struct {
	CategoryWeight   float64 `mapstructure:"category_weight"`
	LocationWeight   float64 `mapstructure:"location_weight"`
	TimeWeight       float64 `mapstructure:"time_weight"`
	BehaviorWeight   float64 `mapstructure:"behavior_weight"`
	PopularityWeight float64 `mapstructure:"popularity_weight"`
	MaxPerCategory   int     `mapstructure:"max_per_category"`
	MaxPerLocation   int     `mapstructure:"max_per_location"`
	MinResults       int     `mapstructure:"min_results"`
	MaxResults       int     `mapstructure:"max_results"`
}

type GovernanceConfig struct {
	HighRisk        float64 `mapstructure:"high_risk"`
	MediumRisk      float64 `mapstructure:"medium_risk"`
	HighWaitHours   int     `mapstructure:"high_wait_hours"`
	MediumWaitHours int     `mapstructure:"medium_wait_hours"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

package config

import (
	"time"

	redisclient "github.com/vietddude/fraudlens/internal/infra/redis"
	"github.com/vietddude/fraudlens/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Logging    LoggingConfig      `yaml:"logging"`
	Scoring    ScoringConfig      `yaml:"scoring"`
	Prediction PredictionConfig   `yaml:"prediction"`
	Etherscan  EtherscanConfig    `yaml:"etherscan"`
	Reports    ReportsConfig      `yaml:"reports"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ScoringConfig points at the external fraud-scoring service.
type ScoringConfig struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`    // per call
	CacheSize int           `yaml:"cache_size"` // 0 disables the prediction cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// PredictionConfig tunes the retrying fan-out against the scoring service.
type PredictionConfig struct {
	Permits        int           `yaml:"permits"`         // concurrent in-flight calls
	MaxRounds      int           `yaml:"max_rounds"`      // global round budget
	FailureCeiling int           `yaml:"failure_ceiling"` // per-address failures before abandon
	BaseDelay      time.Duration `yaml:"base_delay"`      // delay = base_delay * round
	MaxDelay       time.Duration `yaml:"max_delay"`       // 0 = uncapped
}

// EtherscanConfig holds settings for the transaction source.
type EtherscanConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// ReportsConfig controls how long stored reports are kept.
type ReportsConfig struct {
	Retention time.Duration `yaml:"retention"` // 0 keeps reports forever
}

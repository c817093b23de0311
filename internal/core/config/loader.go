package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultScoringURL   = "http://127.0.0.1:8000/analyze"
	DefaultEtherscanURL = "https://api.etherscan.io/api"
)

// Load reads configuration from a YAML file. A missing file is not an error:
// defaults plus environment overrides are enough to run.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			// Expand environment variables in the YAML content
			expandedData := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets the usual variables win over an empty YAML value.
func applyEnv(cfg *AppConfig) {
	if cfg.Etherscan.APIKey == "" {
		cfg.Etherscan.APIKey = os.Getenv("ETHERSCAN_API_KEY")
	}
	if cfg.Scoring.URL == "" {
		cfg.Scoring.URL = os.Getenv("FRAUD_API_URL")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = os.Getenv("REDIS_URL")
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8001
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Scoring.URL == "" {
		cfg.Scoring.URL = DefaultScoringURL
	}
	if cfg.Scoring.Timeout == 0 {
		cfg.Scoring.Timeout = 180 * time.Second
	}
	if cfg.Scoring.CacheSize > 0 && cfg.Scoring.CacheTTL == 0 {
		cfg.Scoring.CacheTTL = 10 * time.Minute
	}

	p := &cfg.Prediction
	if p.Permits == 0 {
		p.Permits = 4
	}
	if p.MaxRounds == 0 {
		p.MaxRounds = 5
	}
	if p.FailureCeiling == 0 {
		p.FailureCeiling = 5
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = 5 * time.Second
	}

	if cfg.Etherscan.URL == "" {
		cfg.Etherscan.URL = DefaultEtherscanURL
	}
	if cfg.Etherscan.Timeout == 0 {
		cfg.Etherscan.Timeout = 30 * time.Second
	}
}

// Validate rejects settings that would make the fetcher never run or never stop.
func (c *AppConfig) Validate() error {
	p := c.Prediction
	if p.Permits < 0 {
		return fmt.Errorf("prediction.permits must be positive, got %d", p.Permits)
	}
	if p.MaxRounds < 0 {
		return fmt.Errorf("prediction.max_rounds must be positive, got %d", p.MaxRounds)
	}
	if p.FailureCeiling < 0 {
		return fmt.Errorf("prediction.failure_ceiling must be positive, got %d", p.FailureCeiling)
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return errors.New("prediction delays must not be negative")
	}
	if c.Scoring.Timeout < 0 {
		return errors.New("scoring.timeout must not be negative")
	}
	if c.Reports.Retention < 0 {
		return errors.New("reports.retention must not be negative")
	}
	if c.Scoring.CacheSize < 0 || c.Scoring.CacheTTL < 0 {
		return errors.New("scoring cache settings must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port             int              `json:"port"`
	LogConfig        logger.LogConfig `json:"log_config"`
	Database         DatabaseConfig   `json:"database"`
	AI               AIConfig         `json:"ai"`
	Cache            CacheConfig      `json:"cache"`
	Retrieval        RetrievalConfig  `json:"retrieval"`
	EvalLogPath      string           `json:"eval_log_path"`
	RateLimitSeconds int              `json:"rate_limit_seconds"`
	CORSAllowlist    []string         `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider        string                 `json:"provider"`
	Data            map[string]interface{} `json:"data"`
	Model           string                 `json:"model"`
	EmbedProvider   string                 `json:"embed_provider"`
	EmbedData       map[string]interface{} `json:"embed_data"`
	EmbedModel      string                 `json:"embed_model"`
	EmbedDimensions int                    `json:"embed_dimensions"`
	Timeout         int                    `json:"timeout"`
	MaxInputChars   int                    `json:"max_input_chars"`
	EmbedCacheSize  int                    `json:"embed_cache_size"`
	EmbedCacheTTL   int                    `json:"embed_cache_ttl_hours"`
	Fallbacks       []AIFallbackConfig     `json:"fallbacks"`
}

// AIFallbackConfig is a secondary provider tried when the primary one
// fails. Fallback embedders must produce the same dimensionality as
// the primary, otherwise cached answers become unreachable.
type AIFallbackConfig struct {
	Provider      string                 `json:"provider"`
	Data          map[string]interface{} `json:"data"`
	Model         string                 `json:"model"`
	EmbedProvider string                 `json:"embed_provider"`
	EmbedData     map[string]interface{} `json:"embed_data"`
	EmbedModel    string                 `json:"embed_model"`
}

type CacheConfig struct {
	// Threshold is the cosine similarity above which a previously
	// generated answer is reused. Inclusive boundary.
	Threshold  float64 `json:"threshold"`
	TTLHours   int     `json:"ttl_hours"`
	MaxEntries int     `json:"max_entries"`
}

type RetrievalConfig struct {
	TopK int `json:"top_k"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.AI.Provider == "" {
		return fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedModel == "" {
		return fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	if cfg.AI.EmbedData == nil {
		cfg.AI.EmbedData = cfg.AI.Data
	}
	for i := range cfg.AI.Fallbacks {
		fb := &cfg.AI.Fallbacks[i]
		if fb.Provider == "" {
			return fmt.Errorf("ai.fallbacks[%d].provider is required", i)
		}
		if fb.EmbedProvider == "" {
			fb.EmbedProvider = fb.Provider
		}
		if fb.EmbedData == nil {
			fb.EmbedData = fb.Data
		}
	}
	if cfg.AI.EmbedDimensions == 0 {
		cfg.AI.EmbedDimensions = 1536
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.Cache.Threshold == 0 {
		cfg.Cache.Threshold = 0.95
	}
	if cfg.Cache.Threshold < 0 || cfg.Cache.Threshold > 1 {
		return fmt.Errorf("cache.threshold must be in (0, 1], got %v", cfg.Cache.Threshold)
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.TopK < 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if cfg.EvalLogPath == "" {
		cfg.EvalLogPath = ".cache/ragas_log.jsonl"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	return nil
}

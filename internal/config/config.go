// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the Frame's runtime settings. Every field has an
// environment-variable override named ARKHAM_<FIELD>, read via viper with
// AutomaticEnv; a hive.yaml (or hive.json/hive.toml) in the working
// directory or /etc/arkham/ supplies file-based defaults.
type Config struct {
	GRPCPort  int    `mapstructure:"grpc_port"`
	HTTPPort  int    `mapstructure:"http_port"`
	DBPath    string `mapstructure:"db_path"`
	WorkerCount int  `mapstructure:"worker_count"`

	QdrantAddr string `mapstructure:"qdrant_addr"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPassword string `mapstructure:"redis_password"`

	EmbedderType   string `mapstructure:"embedder_type"`
	EmbedderModel  string `mapstructure:"embedder_model"`
	EmbedBaseURL   string `mapstructure:"embed_base_url"`
	EmbedCacheSize int    `mapstructure:"embed_cache_size"`

	LLMModel  string `mapstructure:"llm_model"`
	LLMBaseURL string `mapstructure:"llm_base_url"`
	LLMAPIKey string `mapstructure:"llm_api_key"`

	StorageRoot string `mapstructure:"storage_root"`
	WatchDir    string `mapstructure:"watch_dir"`
	TemplateDir string `mapstructure:"template_dir"`
	StaticDir   string `mapstructure:"static_dir"`

	// LeaseTTLSeconds bounds how long a worker may hold a claimed job
	// before the lease is considered expired and the job is requeued.
	LeaseTTLSeconds int `mapstructure:"lease_ttl_seconds"`
	MaxRetries      int `mapstructure:"max_retries"`

	AnomalyZScoreThreshold float64 `mapstructure:"anomaly_z_score_threshold"`
	ContradictionThreshold float64 `mapstructure:"contradiction_threshold"`
	SearchRRFK             int     `mapstructure:"search_rrf_k"`

	ChunkMethod  string `mapstructure:"chunk_method"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

// Load reads configuration from hive.yaml (if present) and environment
// variables prefixed ARKHAM_, falling back to the defaults below.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("hive")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/arkham/")
	v.SetEnvPrefix("ARKHAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("grpc_port", 50051)
	v.SetDefault("http_port", 8080)
	v.SetDefault("db_path", "arkham.db")
	v.SetDefault("worker_count", 4)
	v.SetDefault("qdrant_addr", "localhost:6334")
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_password", "")
	v.SetDefault("embedder_type", "mock")
	v.SetDefault("embedder_model", "")
	v.SetDefault("embed_base_url", "http://localhost:11434")
	v.SetDefault("embed_cache_size", 2048)
	v.SetDefault("llm_model", "gpt-4o-mini")
	v.SetDefault("llm_base_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("storage_root", "./storage")
	v.SetDefault("watch_dir", "")
	v.SetDefault("template_dir", "templates")
	v.SetDefault("static_dir", "static")
	v.SetDefault("lease_ttl_seconds", 120)
	v.SetDefault("max_retries", 3)
	v.SetDefault("anomaly_z_score_threshold", 3.0)
	v.SetDefault("contradiction_threshold", 0.7)
	v.SetDefault("search_rrf_k", 60)
	v.SetDefault("chunk_method", "sentence")
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 100)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

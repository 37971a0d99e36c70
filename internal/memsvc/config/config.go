// Package config loads process-wide configuration for the memory service
// using viper: env vars prefixed MEMSVC_, an optional config file, and
// defaults for everything unset.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the process-wide knobs: LM endpoints and
// timeouts, worker pool sizing, embedding dimension, and on-disk layout.
type Config struct {
	// RouterLMURL is the local HTTP endpoint the Router posts routing
	// requests to.
	RouterLMURL string `mapstructure:"router_lm_url"`
	// TeacherLMURL is the local HTTP endpoint the Canonicalizer posts
	// teacher-invocation requests to.
	TeacherLMURL string `mapstructure:"teacher_lm_url"`
	// EmbeddingURL is the local HTTP endpoint for embed_texts/embed_query.
	EmbeddingURL string `mapstructure:"embedding_url"`

	// LMTimeout bounds Router and Teacher calls.
	LMTimeout time.Duration `mapstructure:"lm_timeout"`

	// EmbeddingDim is the embedding dimensionality (1024).
	EmbeddingDim int `mapstructure:"embedding_dim"`

	// WorkerPoolSize is the Indexing Pipeline's worker count.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
	// JobQueueCapacity bounds the FIFO job queue.
	JobQueueCapacity int `mapstructure:"job_queue_capacity"`
	// JobTelemetryRetention is how many completed job records are kept in
	// memory for status queries.
	JobTelemetryRetention int `mapstructure:"job_telemetry_retention"`

	// ProjectDBDir holds one SQLite file per project.
	ProjectDBDir string `mapstructure:"project_db_dir"`
	// AliasTableDBPath is the single global alias-table SQLite file.
	AliasTableDBPath string `mapstructure:"alias_table_db_path"`
}

// Load reads configuration from environment variables (prefixed MEMSVC_)
// and an optional config file, applying defaults for anything unset.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("memsvc")
	v.AutomaticEnv()

	v.SetDefault("router_lm_url", "http://localhost:8081/v1/ai/route")
	v.SetDefault("teacher_lm_url", "http://localhost:8081/v1/ai/teach")
	v.SetDefault("embedding_url", "http://localhost:8081/v1/ai/embed")
	v.SetDefault("lm_timeout", 30*time.Second)
	v.SetDefault("embedding_dim", 1024)
	v.SetDefault("worker_pool_size", 2)
	v.SetDefault("job_queue_capacity", 256)
	v.SetDefault("job_telemetry_retention", 1000)
	v.SetDefault("project_db_dir", "./data/projects")
	v.SetDefault("alias_table_db_path", "./data/alias_table.db")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

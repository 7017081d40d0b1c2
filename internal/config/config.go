// Package config manages YAML-based service configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds HTTP listener settings.
type Server struct {
	Addr string `yaml:"addr"`
}

// DB holds SQLite settings.
type DB struct {
	Path     string `yaml:"path"`
	MaxConns int    `yaml:"max_conns"`
}

// Embedding holds settings for the OpenAI-compatible embedding endpoint.
type Embedding struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// Cluster holds clustering engine thresholds.
type Cluster struct {
	MaxClusters   int           `yaml:"max_clusters"`
	MinPopularity int64         `yaml:"min_popularity"`
	MinCoherence  float64       `yaml:"min_coherence"`
	Window        time.Duration `yaml:"window"`
}

// Schedule holds cron expressions for the two periodic jobs and the budget
// for one reconciliation cycle.
type Schedule struct {
	IngestCron   string        `yaml:"ingest_cron"`
	PipelineCron string        `yaml:"pipeline_cron"`
	CycleTimeout time.Duration `yaml:"cycle_timeout"`
}

// Auth holds token settings.
type Auth struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// Feed describes one RSS source to poll.
type Feed struct {
	Category string `yaml:"category"`
	Source   string `yaml:"source"`
	URL      string `yaml:"url"`
}

// Config is the top-level YAML structure.
type Config struct {
	Server    Server    `yaml:"server"`
	DB        DB        `yaml:"db"`
	Embedding Embedding `yaml:"embedding"`
	Cluster   Cluster   `yaml:"cluster"`
	Schedule  Schedule  `yaml:"schedule"`
	Auth      Auth      `yaml:"auth"`
	Feeds     []Feed    `yaml:"feeds"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{Addr: ":8080"},
		DB:     DB{Path: "agora.db", MaxConns: 4},
		Embedding: Embedding{
			BaseURL:    "http://localhost:11434/v1",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		},
		Cluster: Cluster{
			MaxClusters:   4,
			MinPopularity: 2,
			MinCoherence:  0.2,
			Window:        24 * time.Hour,
		},
		Schedule: Schedule{
			IngestCron:   "@every 1m",
			PipelineCron: "@every 5m",
			CycleTimeout: 2 * time.Minute,
		},
		Auth: Auth{TokenTTL: 30 * time.Minute},
	}
}

// Load reads the YAML file at path, applying defaults for omitted fields.
// If the file does not exist, Load returns the defaults (not an error).
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be > 0")
	}
	if c.Cluster.MaxClusters < 1 {
		return fmt.Errorf("cluster.max_clusters must be >= 1")
	}
	if c.Cluster.MinCoherence < 0 || c.Cluster.MinCoherence > 1 {
		return fmt.Errorf("cluster.min_coherence must be in [0,1]")
	}
	if c.Cluster.Window <= 0 {
		return fmt.Errorf("cluster.window must be > 0")
	}
	if c.Schedule.IngestCron == "" || c.Schedule.PipelineCron == "" {
		return fmt.Errorf("schedule cron expressions must not be empty")
	}
	if c.Schedule.CycleTimeout <= 0 {
		return fmt.Errorf("schedule.cycle_timeout must be > 0")
	}
	for i, f := range c.Feeds {
		if f.URL == "" {
			return fmt.Errorf("feeds[%d].url must not be empty", i)
		}
		if f.Category == "" {
			return fmt.Errorf("feeds[%d].category must not be empty", i)
		}
	}
	return nil
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the hnswctl configuration file.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Store     StoreConfig     `yaml:"store"`
	Resources ResourcesConfig `yaml:"resources"`
	Log       LogConfig       `yaml:"log"`
}

// IndexConfig holds the graph parameters.
type IndexConfig struct {
	Space          string `yaml:"space"`
	MaxElements    int    `yaml:"max_elements"`
	M              int    `yaml:"m"`
	EfConstruction int    `yaml:"ef_construction"`
	Ef             int    `yaml:"ef"`
	Seed           int64  `yaml:"seed"`
	Threads        int    `yaml:"threads"`
	BatchSize      int    `yaml:"batch_size"`
	Compression    string `yaml:"compression"`
}

// StoreConfig selects where indexes are saved.
type StoreConfig struct {
	// Kind is one of local, s3 or minio.
	Kind      string `yaml:"kind"`
	Root      string `yaml:"root"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	// PartSize is the minio multipart chunk in bytes; 0 keeps the default.
	PartSize uint64 `yaml:"part_size"`
}

// ResourcesConfig bounds memory and I/O.
type ResourcesConfig struct {
	MemoryLimitBytes     int64 `yaml:"memory_limit_bytes"`
	IOLimitBytesPerSec   int64 `yaml:"io_limit_bytes_per_sec"`
	MaxConcurrentBatches int64 `yaml:"max_concurrent_batches"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Space:          "cosine",
			M:              16,
			EfConstruction: 200,
			Ef:             10,
			Seed:           100,
			BatchSize:      10_000,
			Compression:    "none",
		},
		Store: StoreConfig{Kind: "local", Secure: true},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Kind {
	case "local", "s3", "minio":
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Store.Kind != "local" && c.Store.Bucket == "" {
		return fmt.Errorf("store kind %s needs a bucket", c.Store.Kind)
	}
	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

package simgen

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/simgen/embedding"
	"github.com/flarexio/simgen/vector"
)

const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8080
	DefaultDatabasePath = "simgen.db"
	DefaultLimit        = 10
	DefaultMaxLimit     = 1000
)

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: vector.Config{
			Path:        DefaultDatabasePath,
			PoolSize:    4,
			BusyTimeout: 5 * time.Second,
		},
		Embedding: embedding.Config{
			Model:       embedding.DefaultModel,
			Timeout:     embedding.DefaultTimeout,
			Concurrency: embedding.DefaultConcurrency,
		},
		Search: SearchConfig{
			DefaultLimit: DefaultLimit,
			MaxLimit:     DefaultMaxLimit,
		},
	}
}

// LoadConfig reads a YAML file over the defaults. A missing or empty file
// yields the defaults; a malformed file is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}

		return cfg, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

func (cfg Config) Validate() error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}

	if cfg.Database.Path == "" {
		return errors.New("database path is required")
	}

	if cfg.Database.PoolSize <= 0 {
		return fmt.Errorf("invalid pool size %d", cfg.Database.PoolSize)
	}

	if _, _, err := embedding.ParseModel(cfg.Embedding.Model); err != nil {
		return err
	}

	if cfg.Search.DefaultLimit <= 0 || cfg.Search.MaxLimit < cfg.Search.DefaultLimit {
		return fmt.Errorf("invalid search limits: default %d, max %d",
			cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}

	return nil
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

package simgen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/flarexio/simgen/embedding"
	"github.com/flarexio/simgen/vector"
)

var (
	ErrInvalidName        = errors.New("invalid collection name")
	ErrInvalidDimension   = errors.New("invalid collection dimension")
	ErrInvalidMetric      = errors.New("unsupported distance metric")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrEmbeddingFailed    = errors.New("embedding failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

const (
	MaxNameLength = 64
	MaxDimension  = 8192
)

var (
	namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	// Suffixes of the shadow tables vec0 creates next to each collection.
	shadowPattern = regexp.MustCompile(`(?i)_(rowids|chunks|info|auxiliary|(vector_chunks|metadatachunks|metadatatext)\d+)$`)
)

// ValidateName accepts letters, digits and underscores, not starting with a
// digit. Names reserved by SQLite or by the collection registry are refused,
// as are names that could collide with the shadow tables of another collection.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxNameLength || !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "sqlite_") || strings.HasPrefix(lower, "_simgen") {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}

	if shadowPattern.MatchString(name) {
		return fmt.Errorf("%w: %q ends in a reserved suffix", ErrInvalidName, name)
	}

	return nil
}

type Collection = vector.Collection

type SearchResult struct {
	RowID      int64   `json:"rowid"`
	Key        string  `json:"key"`
	Similarity float64 `json:"similarity"`
}

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  vector.Config    `yaml:"database"`
	Embedding embedding.Config `yaml:"embedding"`
	Search    SearchConfig     `yaml:"search"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

package vector

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTableNotFound     = errors.New("table not found")
	ErrTableExists       = errors.New("table already exists")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrPoolClosed        = errors.New("pool closed")
	ErrAcquireTimeout    = errors.New("timed out waiting for a pool worker")
	ErrUnitPanicked      = errors.New("unit of work panicked")
)

type Config struct {
	Path           string        `yaml:"path"`
	PoolSize       int           `yaml:"pool_size"`
	BusyTimeout    time.Duration `yaml:"busy_timeout"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricCosine, MetricL2:
		return true
	default:
		return false
	}
}

// Similarity maps a backend-native distance onto a score where larger means
// closer. Cosine distances live in [0, 2], so the result is the cosine itself.
func (m Metric) Similarity(distance float64) float64 {
	switch m {
	case MetricL2:
		return 1 / (1 + distance)
	default:
		return 1 - distance
	}
}

type Collection struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    Metric `json:"metric"`
}

type Neighbor struct {
	RowID    int64
	Key      string
	Distance float64
}

// Conn is a single storage connection. A Conn is only ever handed to one
// unit of work at a time.
type Conn interface {
	CreateTable(ctx context.Context, collection Collection) error
	DropTable(ctx context.Context, name string) error
	Describe(ctx context.Context, name string) (Collection, error)
	Tables(ctx context.Context) ([]Collection, error)
	InsertRow(ctx context.Context, table string, key string, vector []float32) (int64, error)
	NearestNeighbors(ctx context.Context, table string, query []float32, limit int) ([]Neighbor, error)
	Ping(ctx context.Context) error
}

type UnitOfWork func(ctx context.Context, conn Conn) error

// Pool bounds concurrent access to the storage backend.
type Pool interface {
	// Run waits for a free worker and executes work on it to completion.
	Run(ctx context.Context, work UnitOfWork) error

	// Size returns the fixed number of workers.
	Size() int

	// Close stops the workers and releases their connections.
	Close() error
}

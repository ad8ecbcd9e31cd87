package simgen

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/flarexio/simgen/embedding"
	"github.com/flarexio/simgen/vector"
)

// Service defines the vector collection engine.
type Service interface {

	// Close releases the storage pool.
	Close() error

	// CreateCollection creates an empty collection with a fixed dimension and metric.
	CreateCollection(ctx context.Context, name string, dimension int, metric vector.Metric) error

	// DeleteCollection removes a collection and all of its records.
	// Deleting a collection that does not exist succeeds.
	DeleteCollection(ctx context.Context, name string) error

	// Insert embeds text and stores it in the collection, returning its rowid.
	Insert(ctx context.Context, collection string, text string) (int64, error)

	// Search embeds text and returns the nearest records, most similar first.
	Search(ctx context.Context, collection string, text string, limit ...int) ([]SearchResult, error)

	// ListCollections returns every collection with its dimension and metric.
	ListCollections(ctx context.Context) ([]Collection, error)

	// Ping checks that a storage worker can answer a trivial query.
	Ping(ctx context.Context) error
}

type ServiceMiddleware func(Service) Service

func NewService(cfg Config, pool vector.Pool, embedder embedding.Provider) (Service, error) {
	if pool == nil {
		return nil, errors.New("storage pool not set")
	}

	if embedder == nil {
		return nil, errors.New("embedding provider not set")
	}

	log := zap.L().With(
		zap.String("service", "simgen"),
	)

	return &service{
		pool:     pool,
		embedder: embedder,
		cfg:      cfg,
		log:      log,
	}, nil
}

type service struct {
	// Only path to the storage file
	pool vector.Pool

	// Bounded by embedding.Limit, safe to share
	embedder embedding.Provider

	cfg Config
	log *zap.Logger
}

func (svc *service) Close() error {
	return svc.pool.Close()
}

func (svc *service) CreateCollection(ctx context.Context, name string, dimension int, metric vector.Metric) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	if dimension <= 0 || dimension > MaxDimension {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, dimension)
	}

	if metric == "" {
		metric = vector.MetricCosine
	}

	if !metric.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
	}

	collection := Collection{
		Name:      name,
		Dimension: dimension,
		Metric:    metric,
	}

	err := svc.pool.Run(ctx, func(ctx context.Context, conn vector.Conn) error {
		return conn.CreateTable(ctx, collection)
	})

	return svc.translate("create_collection", err)
}

func (svc *service) DeleteCollection(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	err := svc.pool.Run(ctx, func(ctx context.Context, conn vector.Conn) error {
		return conn.DropTable(ctx, name)
	})

	return svc.translate("delete_collection", err)
}

func (svc *service) Insert(ctx context.Context, collection string, text string) (int64, error) {
	if err := ValidateName(collection); err != nil {
		return 0, err
	}

	vec, err := svc.embed(ctx, text)
	if err != nil {
		return 0, err
	}

	var rowid int64
	err = svc.pool.Run(ctx, func(ctx context.Context, conn vector.Conn) error {
		c, err := conn.Describe(ctx, collection)
		if err != nil {
			return err
		}

		if len(vec) != c.Dimension {
			return fmt.Errorf("%w: expected %d, got %d", vector.ErrDimensionMismatch, c.Dimension, len(vec))
		}

		rowid, err = conn.InsertRow(ctx, collection, text, vec)
		return err
	})

	if err != nil {
		return 0, svc.translate("insert", err)
	}

	return rowid, nil
}

func (svc *service) Search(ctx context.Context, collection string, text string, limit ...int) ([]SearchResult, error) {
	if err := ValidateName(collection); err != nil {
		return nil, err
	}

	n := svc.cfg.Search.DefaultLimit
	if n <= 0 {
		n = DefaultLimit
	}

	if len(limit) > 0 && limit[0] > 0 {
		n = limit[0]
	}

	if ceiling := svc.cfg.Search.MaxLimit; ceiling > 0 && n > ceiling {
		n = ceiling
	}

	vec, err := svc.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	var (
		metric    vector.Metric
		neighbors []vector.Neighbor
	)

	err = svc.pool.Run(ctx, func(ctx context.Context, conn vector.Conn) error {
		c, err := conn.Describe(ctx, collection)
		if err != nil {
			return err
		}

		if len(vec) != c.Dimension {
			return fmt.Errorf("%w: expected %d, got %d", vector.ErrDimensionMismatch, c.Dimension, len(vec))
		}

		metric = c.Metric
		neighbors, err = conn.NearestNeighbors(ctx, collection, vec, n)
		return err
	})

	if err != nil {
		return nil, svc.translate("search", err)
	}

	results := make([]SearchResult, len(neighbors))
	for i, neighbor := range neighbors {
		results[i] = SearchResult{
			RowID:      neighbor.RowID,
			Key:        neighbor.Key,
			Similarity: metric.Similarity(neighbor.Distance),
		}
	}

	slices.SortStableFunc(results, func(a, b SearchResult) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	return results, nil
}

func (svc *service) ListCollections(ctx context.Context) ([]Collection, error) {
	var collections []Collection
	err := svc.pool.Run(ctx, func(ctx context.Context, conn vector.Conn) error {
		c, err := conn.Tables(ctx)
		collections = c
		return err
	})

	if err != nil {
		return nil, svc.translate("list_collections", err)
	}

	return collections, nil
}

func (svc *service) Ping(ctx context.Context) error {
	err := svc.pool.Run(ctx, func(ctx context.Context, conn vector.Conn) error {
		return conn.Ping(ctx)
	})

	return svc.translate("ping", err)
}

// embed runs the provider on a single-element batch. It always completes
// before any storage work of the same request starts.
func (svc *service) embed(ctx context.Context, text string) ([]float32, error) {
	if timeout := svc.cfg.Embedding.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	vectors, err := svc.embedder.Embed(ctx, []string{text})
	if err != nil {
		svc.log.Error("embedding failed",
			zap.String("model", svc.embedder.Model()),
			zap.Error(err),
		)

		return nil, fmt.Errorf("%w: %s", ErrEmbeddingFailed, svc.embedder.Model())
	}

	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: provider returned %d vectors", ErrEmbeddingFailed, len(vectors))
	}

	return vectors[0], nil
}

// translate maps storage errors onto the engine taxonomy. Backend text is
// only ever logged, never returned.
func (svc *service) translate(action string, err error) error {
	switch {
	case err == nil:
		return nil

	case errors.Is(err, vector.ErrTableNotFound):
		return ErrCollectionNotFound

	case errors.Is(err, vector.ErrTableExists):
		return ErrCollectionExists

	case errors.Is(err, vector.ErrDimensionMismatch):
		return ErrDimensionMismatch
	}

	svc.log.Error("storage error",
		zap.String("action", action),
		zap.Error(err),
	)

	return fmt.Errorf("%w: %s", ErrStorageUnavailable, action)
}

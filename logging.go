package simgen

import (
	"context"

	"go.uber.org/zap"

	"github.com/flarexio/simgen/vector"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "simgen"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) CreateCollection(ctx context.Context, name string, dimension int, metric vector.Metric) error {
	log := mw.log.With(
		zap.String("action", "create_collection"),
		zap.String("collection", name),
		zap.Int("dimension", dimension),
		zap.String("metric", string(metric)),
	)

	err := mw.next.CreateCollection(ctx, name, dimension, metric)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("collection created")
	return nil
}

func (mw *loggingMiddleware) DeleteCollection(ctx context.Context, name string) error {
	log := mw.log.With(
		zap.String("action", "delete_collection"),
		zap.String("collection", name),
	)

	err := mw.next.DeleteCollection(ctx, name)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("collection deleted")
	return nil
}

func (mw *loggingMiddleware) Insert(ctx context.Context, collection string, text string) (int64, error) {
	log := mw.log.With(
		zap.String("action", "insert"),
		zap.String("collection", collection),
		zap.Int("text_length", len(text)),
	)

	rowid, err := mw.next.Insert(ctx, collection, text)
	if err != nil {
		log.Error(err.Error())
		return 0, err
	}

	log.Info("vector inserted", zap.Int64("rowid", rowid))
	return rowid, nil
}

func (mw *loggingMiddleware) Search(ctx context.Context, collection string, text string, limit ...int) ([]SearchResult, error) {
	log := mw.log.With(
		zap.String("action", "search"),
		zap.String("collection", collection),
		zap.String("text", text),
	)

	if len(limit) > 0 && limit[0] > 0 {
		log = log.With(
			zap.Int("limit", limit[0]),
		)
	}

	results, err := mw.next.Search(ctx, collection, text, limit...)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("collection searched", zap.Int("count", len(results)))
	return results, nil
}

func (mw *loggingMiddleware) ListCollections(ctx context.Context) ([]Collection, error) {
	log := mw.log.With(
		zap.String("action", "list_collections"),
	)

	collections, err := mw.next.ListCollections(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("collections listed", zap.Int("count", len(collections)))
	return collections, nil
}

func (mw *loggingMiddleware) Ping(ctx context.Context) error {
	err := mw.next.Ping(ctx)
	if err != nil {
		mw.log.Error(err.Error(), zap.String("action", "ping"))
		return err
	}

	return nil
}

package simgen

import (
	"context"
	"errors"

	"github.com/flarexio/simgen/vector"
)

func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) CreateCollection(ctx context.Context, name string, dimension int, metric vector.Metric) error {
	req := CreateCollectionRequest{
		Name:      name,
		Dimension: dimension,
		Metric:    metric,
	}

	_, err := mw.endpoints.CreateCollection(ctx, req)
	return err
}

func (mw *proxyMiddleware) DeleteCollection(ctx context.Context, name string) error {
	_, err := mw.endpoints.DeleteCollection(ctx, name)
	return err
}

func (mw *proxyMiddleware) Insert(ctx context.Context, collection string, text string) (int64, error) {
	req := InsertRequest{
		Collection: collection,
		Text:       text,
	}

	resp, err := mw.endpoints.Insert(ctx, req)
	if err != nil {
		return 0, err
	}

	result, ok := resp.(InsertResponse)
	if !ok {
		return 0, errors.New("invalid response type")
	}

	return result.RowID, nil
}

func (mw *proxyMiddleware) Search(ctx context.Context, collection string, text string, limit ...int) ([]SearchResult, error) {
	n := 0
	if len(limit) > 0 {
		n = limit[0]
	}

	req := SearchRequest{
		Collection: collection,
		Text:       text,
		Limit:      n,
	}

	resp, err := mw.endpoints.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]SearchResult)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return results, nil
}

func (mw *proxyMiddleware) ListCollections(ctx context.Context) ([]Collection, error) {
	resp, err := mw.endpoints.ListCollections(ctx, nil)
	if err != nil {
		return nil, err
	}

	collections, ok := resp.([]Collection)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return collections, nil
}

func (mw *proxyMiddleware) Ping(ctx context.Context) error {
	_, err := mw.endpoints.Ping(ctx, nil)
	return err
}

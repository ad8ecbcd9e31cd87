package simgen

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/simgen/vector"
)

type EndpointSet struct {
	CreateCollection endpoint.Endpoint
	DeleteCollection endpoint.Endpoint
	Insert           endpoint.Endpoint
	Search           endpoint.Endpoint
	ListCollections  endpoint.Endpoint
	Ping             endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		CreateCollection: CreateCollectionEndpoint(svc),
		DeleteCollection: DeleteCollectionEndpoint(svc),
		Insert:           InsertEndpoint(svc),
		Search:           SearchEndpoint(svc),
		ListCollections:  ListCollectionsEndpoint(svc),
		Ping:             PingEndpoint(svc),
	}
}

type CreateCollectionRequest struct {
	Name      string        `json:"name" binding:"required"`
	Dimension int           `json:"dimension"`
	Metric    vector.Metric `json:"metric,omitempty"`
}

func CreateCollectionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(CreateCollectionRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.CreateCollection(ctx, req.Name, req.Dimension, req.Metric)
		return nil, err
	}
}

func DeleteCollectionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		name, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.DeleteCollection(ctx, name)
		return nil, err
	}
}

type InsertRequest struct {
	Collection string `json:"collection,omitempty"`
	Text       string `json:"text" binding:"required"`
}

type InsertResponse struct {
	RowID int64 `json:"rowid"`
}

func InsertEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(InsertRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		rowid, err := svc.Insert(ctx, req.Collection, req.Text)
		if err != nil {
			return nil, err
		}

		return InsertResponse{rowid}, nil
	}
}

type SearchRequest struct {
	Collection string `json:"collection,omitempty"`
	Text       string `json:"text" binding:"required"`
	Limit      int    `json:"limit,omitempty"`
}

func SearchEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SearchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Search(ctx, req.Collection, req.Text, req.Limit)
	}
}

func ListCollectionsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.ListCollections(ctx)
	}
}

func PingEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		err := svc.Ping(ctx)
		return nil, err
	}
}

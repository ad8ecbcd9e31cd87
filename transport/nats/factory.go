package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/simgen"
)

// DefaultRequestTimeout leaves room for a remote embedding call.
const DefaultRequestTimeout = 30 * time.Second

func MakeEndpoints(nc *nats.Conn, prefix string) *simgen.EndpointSet {
	return &simgen.EndpointSet{
		CreateCollection: CreateCollectionEndpoint(nc, prefix+".create_collection"),
		DeleteCollection: DeleteCollectionEndpoint(nc, prefix+".delete_collection"),
		Insert:           InsertEndpoint(nc, prefix+".insert"),
		Search:           SearchEndpoint(nc, prefix+".search"),
		ListCollections:  ListCollectionsEndpoint(nc, prefix+".list_collections"),
		Ping:             PingEndpoint(nc, prefix+".ping"),
	}
}

func send(ctx context.Context, nc *nats.Conn, topic string, data []byte) (*nats.Msg, error) {
	timeout := DefaultRequestTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	resp, err := nc.Request(topic, data, timeout)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func CreateCollectionEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(simgen.CreateCollectionRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := send(ctx, nc, topic, data)
		if err != nil {
			return nil, err
		}

		return string(resp.Data), nil
	}
}

func DeleteCollectionEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		name, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := send(ctx, nc, topic, []byte(name))
		if err != nil {
			return nil, err
		}

		return string(resp.Data), nil
	}
}

func InsertEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(simgen.InsertRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := send(ctx, nc, topic, data)
		if err != nil {
			return nil, err
		}

		var result simgen.InsertResponse
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}

func SearchEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(simgen.SearchRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := send(ctx, nc, topic, data)
		if err != nil {
			return nil, err
		}

		var results []simgen.SearchResult
		if err := json.Unmarshal(resp.Data, &results); err != nil {
			return nil, err
		}

		return results, nil
	}
}

func ListCollectionsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := send(ctx, nc, topic, nil)
		if err != nil {
			return nil, err
		}

		var collections []simgen.Collection
		if err := json.Unmarshal(resp.Data, &collections); err != nil {
			return nil, err
		}

		return collections, nil
	}
}

func PingEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := send(ctx, nc, topic, nil)
		if err != nil {
			return nil, err
		}

		return string(resp.Data), nil
	}
}

func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return errors.New(code + ":" + description)
}

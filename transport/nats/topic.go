package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/simgen"
)

func AddEndpoints(group micro.Group, endpoints simgen.EndpointSet) {
	group.AddEndpoint("create_collection", CreateCollectionHandler(endpoints.CreateCollection))
	group.AddEndpoint("delete_collection", DeleteCollectionHandler(endpoints.DeleteCollection))
	group.AddEndpoint("insert", InsertHandler(endpoints.Insert))
	group.AddEndpoint("search", SearchHandler(endpoints.Search))
	group.AddEndpoint("list_collections", ListCollectionsHandler(endpoints.ListCollections))
	group.AddEndpoint("ping", PingHandler(endpoints.Ping))
}

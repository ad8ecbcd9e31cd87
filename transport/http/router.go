package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/simgen"

	mcpE "github.com/flarexio/simgen/mcp"
)

func AddRouters(r *gin.Engine, endpoints simgen.EndpointSet) {
	r.GET("/", PingHandler(endpoints.Ping))
	r.GET("/collections", ListCollectionsHandler(endpoints.ListCollections))

	collection := r.Group("/collection")
	{
		collection.POST("", CreateCollectionHandler(endpoints.CreateCollection))
		collection.DELETE("/:name", DeleteCollectionHandler(endpoints.DeleteCollection))
		collection.POST("/:name", InsertHandler(endpoints.Insert))
		collection.POST("/:name/search", SearchHandler(endpoints.Search))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/simgen"
	"github.com/flarexio/simgen/vector"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func ErrorResponse(id any, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(id),
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `SimGen stores text as embedding vectors in named collections and answers similarity queries.

Typical flow:
1. create_collection with a name and the dimension of the configured embedding model
2. insert_text to embed and store passages
3. search_collection to find the stored passages closest to a query

Collection names use letters, digits and underscores and must not start with a digit.`

const (
	ToolCreateCollection = "create_collection"
	ToolDeleteCollection = "delete_collection"
	ToolInsertText       = "insert_text"
	ToolSearchCollection = "search_collection"
	ToolListCollections  = "list_collections"
)

func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolCreateCollection,
			mcp.WithDescription("Create an empty collection with a fixed vector dimension"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Collection name"),
			),
			mcp.WithNumber("dimension",
				mcp.Required(),
				mcp.Description("Vector dimension, must match the embedding model"),
			),
			mcp.WithString("metric",
				mcp.Description("Distance metric, defaults to cosine"),
				mcp.Enum(string(vector.MetricCosine), string(vector.MetricL2)),
			),
		),
		mcp.NewTool(ToolDeleteCollection,
			mcp.WithDescription("Delete a collection and all of its records"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Collection name"),
			),
		),
		mcp.NewTool(ToolInsertText,
			mcp.WithDescription("Embed a text and store it in a collection"),
			mcp.WithString("collection",
				mcp.Required(),
				mcp.Description("Collection name"),
			),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Text to embed and store"),
			),
		),
		mcp.NewTool(ToolSearchCollection,
			mcp.WithDescription("Find the stored texts most similar to a query"),
			mcp.WithString("collection",
				mcp.Required(),
				mcp.Description("Collection name"),
			),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Query text"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results, defaults to 10"),
			),
		),
		mcp.NewTool(ToolListCollections,
			mcp.WithDescription("List every collection with its dimension and metric"),
		),
	}
}

func InitializeEndpoint(svc simgen.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "simgen",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc simgen.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		if err := svc.Ping(ctx); err != nil {
			return ErrorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc simgen.Service) MCPEndpoint {
	tools := Tools()

	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: tools,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

type toolArguments struct {
	Name       string        `json:"name"`
	Collection string        `json:"collection"`
	Text       string        `json:"text"`
	Dimension  int           `json:"dimension"`
	Metric     vector.Metric `json:"metric"`
	Limit      int           `json:"limit"`
}

func CallToolEndpoint(svc simgen.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		var args toolArguments
		if params.Arguments != nil {
			bs, err := json.Marshal(params.Arguments)
			if err != nil {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}

			if err := json.Unmarshal(bs, &args); err != nil {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}
		}

		var result *mcp.CallToolResult

		switch params.Name {
		case ToolCreateCollection:
			err := svc.CreateCollection(ctx, args.Name, args.Dimension, args.Metric)
			result = textResult("Collection created successfully", err)

		case ToolDeleteCollection:
			err := svc.DeleteCollection(ctx, args.Name)
			result = textResult("Collection deleted successfully", err)

		case ToolInsertText:
			rowid, err := svc.Insert(ctx, args.Collection, args.Text)
			result = textResult(fmt.Sprintf("Vector inserted successfully (rowid %d)", rowid), err)

		case ToolSearchCollection:
			results, err := svc.Search(ctx, args.Collection, args.Text, args.Limit)
			result = jsonResult(results, err)

		case ToolListCollections:
			collections, err := svc.ListCollections(ctx)
			result = jsonResult(collections, err)

		default:
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, "unknown tool: "+params.Name)
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

// Engine errors are reported inside the tool result so the model can react to them.
func textResult(text string, err error) *mcp.CallToolResult {
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	return mcp.NewToolResultText(text)
}

func jsonResult(v any, err error) *mcp.CallToolResult {
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	bs, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	return mcp.NewToolResultText(string(bs))
}

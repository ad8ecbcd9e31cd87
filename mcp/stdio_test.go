package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
)

func TestStdioServer(t *testing.T) {
	assert := assert.New(t)

	input := strings.Join([]string{
		`{"jsonrpc": "2.0", "id": 1, "method": "ping"}`,
		``,
		`{"jsonrpc": "2.0", "method": "notifications/initialized"}`,
		`{"jsonrpc": "2.0", "id": 2, "method": "resources/list"}`,
		`not json`,
	}, "\n")

	var out bytes.Buffer
	s := NewStdioServer(strings.NewReader(input), &out)

	err := s.AddEndpoint(mcp.MethodPing, func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{},
		}
	})
	assert.NoError(err)

	err = s.AddEndpoint(mcp.MethodPing, nil)
	assert.Error(err, "duplicate endpoint")

	err = s.Listen(context.Background())
	assert.NoError(err)

	var lines []map[string]any
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			assert.Fail(err.Error())
			return
		}

		lines = append(lines, line)
	}

	if !assert.Len(lines, 3) {
		return
	}

	assert.Equal(float64(1), lines[0]["id"])
	assert.Contains(lines[0], "result")

	assert.Equal(float64(2), lines[1]["id"])
	assert.Equal(float64(mcp.METHOD_NOT_FOUND), lines[1]["error"].(map[string]any)["code"])

	assert.Equal(float64(mcp.PARSE_ERROR), lines[2]["error"].(map[string]any)["code"])
}

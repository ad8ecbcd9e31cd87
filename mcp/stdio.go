package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// StdioServer answers newline-delimited JSON-RPC requests read from r,
// one at a time, and writes each response as a single line to w.
type StdioServer interface {
	AddEndpoint(method mcp.MCPMethod, endpoint MCPEndpoint) error
	Listen(ctx context.Context) error
}

func NewStdioServer(r io.Reader, w io.Writer) StdioServer {
	return &stdioServer{
		r:         r,
		w:         w,
		endpoints: make(map[mcp.MCPMethod]MCPEndpoint),
	}
}

type stdioServer struct {
	r io.Reader
	w io.Writer

	endpoints map[mcp.MCPMethod]MCPEndpoint
	sync.RWMutex
}

func (s *stdioServer) AddEndpoint(method mcp.MCPMethod, endpoint MCPEndpoint) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.endpoints[method]; ok {
		return errors.New("endpoint already exists")
	}

	s.endpoints[method] = endpoint
	return nil
}

func (s *stdioServer) Listen(ctx context.Context) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lines := make(chan []byte)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)

		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)

			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err

		case line, ok := <-lines:
			if !ok {
				return nil
			}

			if len(line) == 0 {
				continue
			}

			resp := s.handle(ctx, line)
			if resp == nil {
				continue
			}

			bs, err := json.Marshal(resp)
			if err != nil {
				return err
			}

			bs = append(bs, '\n')
			if _, err := s.w.Write(bs); err != nil {
				return err
			}
		}
	}
}

// handle returns nil for notifications, which get no response.
func (s *stdioServer) handle(ctx context.Context, line []byte) mcp.JSONRPCMessage {
	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return ErrorResponse(nil, mcp.PARSE_ERROR, err.Error())
	}

	if req.ID.IsNil() {
		return nil
	}

	s.RLock()
	endpoint, ok := s.endpoints[req.Method]
	s.RUnlock()

	if !ok {
		return ErrorResponse(req.ID, mcp.METHOD_NOT_FOUND, "method not found")
	}

	return endpoint(ctx, req)
}

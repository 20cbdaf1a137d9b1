// Package transport implements the stdio JSON-RPC transport for MCP.
// Requests arrive as one JSON object per line on stdin; responses and
// server notifications go to stdout, also line-delimited. Nothing else
// may write to stdout.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"glmcp/server/internal/jsonrpc"
	"glmcp/server/internal/middleware"
	"glmcp/server/internal/observability"
)

// RequestProcessor processes JSON-RPC requests.
// Implemented by the MCP handler.
type RequestProcessor interface {
	ProcessRequest(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error)
}

// maxLineBytes bounds a single incoming message (16 MiB).
const maxLineBytes = 16 * 1024 * 1024

// Transport reads requests from in and writes responses to out.
type Transport struct {
	in  io.Reader
	out io.Writer
	mu  sync.Mutex
}

func New(in io.Reader, out io.Writer) *Transport {
	return &Transport{in: in, out: out}
}

// Serve reads line-delimited JSON-RPC requests until EOF or ctx cancellation.
func (t *Transport) Serve(ctx context.Context, processor RequestProcessor) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonrpc.Request
		if err := json.Unmarshal(line, &req); err != nil {
			t.writeResponse(&jsonrpc.Response{
				JSONRPC: "2.0",
				Error:   &jsonrpc.Error{Code: jsonrpc.ParseError, Message: "Parse error"},
			})
			continue
		}

		t.dispatch(ctx, processor, &req)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return nil
}

// dispatch runs one request with panic recovery. A panic in a handler must
// not take down the session.
func (t *Transport) dispatch(ctx context.Context, processor RequestProcessor, req *jsonrpc.Request) {
	requestID := middleware.NewRequestID()
	ctx = middleware.WithRequestID(ctx, requestID)

	defer func() {
		if r := recover(); r != nil {
			observability.LogError(requestID, "dispatch", fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
			if req.ID != nil {
				t.writeResponse(&jsonrpc.Response{
					JSONRPC: "2.0",
					ID:      req.ID,
					Error:   &jsonrpc.Error{Code: jsonrpc.InternalError, Message: "An unexpected error occurred"},
				})
			}
		}
	}()

	observability.Logger().WithField("request_id", requestID).
		WithField("method", req.Method).Debug("request received")

	result, rpcErr := processor.ProcessRequest(ctx, req)

	// Notifications get no response.
	if req.ID == nil {
		return
	}

	if rpcErr != nil {
		t.writeResponse(&jsonrpc.Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
		return
	}
	t.writeResponse(&jsonrpc.Response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

// Notify sends a server-initiated notification to the client.
func (t *Transport) Notify(method string, params any) error {
	return t.writeMessage(&jsonrpc.Notification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

func (t *Transport) writeResponse(resp *jsonrpc.Response) {
	if err := t.writeMessage(resp); err != nil {
		observability.LogError("", "write_response", err)
	}
}

// writeMessage serializes one message as a single line. The mutex keeps
// concurrent progress notifications from interleaving with responses.
func (t *Transport) writeMessage(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}
	return nil
}

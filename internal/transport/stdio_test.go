package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"glmcp/server/internal/jsonrpc"
)

type stubProcessor struct {
	fn func(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error)
}

func (p *stubProcessor) ProcessRequest(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error) {
	return p.fn(ctx, req)
}

func serveLines(t *testing.T, input string, fn func(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error)) []jsonrpc.Response {
	t.Helper()
	var out bytes.Buffer
	tr := New(strings.NewReader(input), &out)
	if err := tr.Serve(context.Background(), &stubProcessor{fn: fn}); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}

	var responses []jsonrpc.Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp jsonrpc.Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("output line is not valid JSON: %q", line)
		}
		responses = append(responses, resp)
	}
	return responses
}

func TestServe_RequestGetsResponse(t *testing.T) {
	responses := serveLines(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n",
		func(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error) {
			return map[string]string{"pong": req.Method}, nil
		})
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	if responses[0].Error != nil {
		t.Errorf("unexpected error: %+v", responses[0].Error)
	}
}

func TestServe_NotificationGetsNoResponse(t *testing.T) {
	called := false
	responses := serveLines(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n",
		func(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error) {
			called = true
			return nil, nil
		})
	if !called {
		t.Error("processor was not invoked for the notification")
	}
	if len(responses) != 0 {
		t.Errorf("notifications must not be answered, got %d responses", len(responses))
	}
}

func TestServe_ParseError(t *testing.T) {
	responses := serveLines(t, "{not json}\n",
		func(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error) {
			t.Fatal("processor must not see unparseable input")
			return nil, nil
		})
	if len(responses) != 1 || responses[0].Error == nil || responses[0].Error.Code != jsonrpc.ParseError {
		t.Fatalf("expected a parse error response, got %+v", responses)
	}
}

func TestServe_PanicRecovered(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"boom"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"ok"}` + "\n"
	responses := serveLines(t, input,
		func(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error) {
			if req.Method == "boom" {
				panic("handler exploded")
			}
			return "fine", nil
		})
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != jsonrpc.InternalError {
		t.Errorf("panic must yield an internal error response, got %+v", responses[0])
	}
	if responses[1].Error != nil {
		t.Errorf("session must survive the panic, got %+v", responses[1])
	}
}

func TestNotify_WritesOneLine(t *testing.T) {
	var out bytes.Buffer
	tr := New(strings.NewReader(""), &out)
	if err := tr.Notify("notifications/progress", map[string]any{"progress": 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := out.String()
	if !strings.HasSuffix(line, "\n") || strings.Count(line, "\n") != 1 {
		t.Fatalf("notification must be a single line, got %q", line)
	}
	var n jsonrpc.Notification
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &n); err != nil {
		t.Fatalf("invalid notification JSON: %v", err)
	}
	if n.JSONRPC != "2.0" || n.Method != "notifications/progress" {
		t.Errorf("unexpected notification: %+v", n)
	}
}

package mappersmith

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"
)

func middlewareClient(t *testing.T, gateway Gateway, factories ...MiddlewareFactory) *Client {
	t.Helper()
	client, err := New(userManifest(), WithGateway(gateway), WithMiddleware(factories...))
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return client
}

func TestBasicAuthMiddlewareFillsCredentials(t *testing.T) {
	gateway := NewTestGateway(Stub{Status: 200})
	client := middlewareClient(t, gateway, BasicAuthMiddleware("admin", "hunter2"))

	if _, err := client.Call(context.Background(), "User", "all", Args{}); err != nil {
		t.Fatalf("Call() returned error: %v", err)
	}

	auth := gateway.Requests()[0].Auth()
	if auth["username"] != "admin" || auth["password"] != "hunter2" {
		t.Errorf("Auth = %v", auth)
	}
}

func TestBasicAuthMiddlewareKeepsCallerAuth(t *testing.T) {
	gateway := NewTestGateway(Stub{Status: 200})
	client := middlewareClient(t, gateway, BasicAuthMiddleware("admin", "hunter2"))

	args := Args{Auth: Auth{"username": "alice", "password": "own"}}
	if _, err := client.Call(context.Background(), "User", "all", args); err != nil {
		t.Fatalf("Call() returned error: %v", err)
	}

	auth := gateway.Requests()[0].Auth()
	if auth["username"] != "alice" {
		t.Errorf("Caller credentials must win, got %v", auth)
	}
}

func TestEncodeJSONMiddleware(t *testing.T) {
	gateway := NewTestGateway(Stub{Status: 200})
	client := middlewareClient(t, gateway, EncodeJSONMiddleware())

	args := Args{Body: map[string]any{"name": "ana"}}
	if _, err := client.Call(context.Background(), "User", "create", args); err != nil {
		t.Fatalf("Call() returned error: %v", err)
	}

	req := gateway.Requests()[0]
	body, ok := req.Body().([]byte)
	if !ok {
		t.Fatalf("Body should be encoded bytes, got %T", req.Body())
	}
	if string(body) != `{"name":"ana"}` {
		t.Errorf("Body = %q", body)
	}
	if req.Header("Content-Type") != jsonContentType {
		t.Errorf("Content-Type = %q", req.Header("Content-Type"))
	}
}

func TestEncodeJSONMiddlewarePassthrough(t *testing.T) {
	gateway := NewTestGateway(Stub{Status: 200})
	client := middlewareClient(t, gateway, EncodeJSONMiddleware())

	args := Args{Body: "raw payload", Headers: Headers{"Content-Type": "text/plain"}}
	if _, err := client.Call(context.Background(), "User", "create", args); err != nil {
		t.Fatalf("Call() returned error: %v", err)
	}

	req := gateway.Requests()[0]
	if req.Body() != "raw payload" {
		t.Errorf("String bodies must pass through, got %v", req.Body())
	}
	if req.Header("Content-Type") != "text/plain" {
		t.Errorf("Explicit Content-Type must survive, got %q", req.Header("Content-Type"))
	}
}

func TestEncodeJSONMiddlewareRejectsUnencodable(t *testing.T) {
	gateway := NewTestGateway(Stub{Status: 200})
	client := middlewareClient(t, gateway, EncodeJSONMiddleware())

	args := Args{Body: map[string]any{"fn": func() {}}}
	_, err := client.Call(context.Background(), "User", "create", args)
	if err == nil || !strings.Contains(err.Error(), "not JSON-encodable") {
		t.Errorf("Expected encoding failure, got %v", err)
	}
	if gateway.CallCount() != 0 {
		t.Errorf("A failed request hook must not dispatch, got %d calls", gateway.CallCount())
	}
}

func TestTimeoutMiddlewareAppliesDefault(t *testing.T) {
	gateway := NewTestGateway(Stub{Status: 200})
	client := middlewareClient(t, gateway, TimeoutMiddleware(3*time.Second))

	if _, err := client.Call(context.Background(), "User", "all", Args{}); err != nil {
		t.Fatalf("Call() returned error: %v", err)
	}
	if got := gateway.Requests()[0].Timeout(); got != 3*time.Second {
		t.Errorf("Timeout = %v, want the default", got)
	}
}

func TestTimeoutMiddlewareKeepsExplicitTimeout(t *testing.T) {
	gateway := NewTestGateway(Stub{Status: 200})
	client := middlewareClient(t, gateway, TimeoutMiddleware(3*time.Second))

	if _, err := client.Call(context.Background(), "User", "all", Args{Timeout: time.Second}); err != nil {
		t.Fatalf("Call() returned error: %v", err)
	}
	if got := gateway.Requests()[0].Timeout(); got != time.Second {
		t.Errorf("Explicit timeout must win, got %v", got)
	}
}

func TestDurationMiddlewareStampsHeaders(t *testing.T) {
	gateway := NewTestGateway(Stub{Status: 200})
	client := middlewareClient(t, gateway, DurationMiddleware())

	before := time.Now().UnixMilli()
	resp, err := client.Call(context.Background(), "User", "all", Args{})
	if err != nil {
		t.Fatalf("Call() returned error: %v", err)
	}
	after := time.Now().UnixMilli()

	started, err := strconv.ParseInt(resp.Header(StartedAtHeader), 10, 64)
	if err != nil {
		t.Fatalf("Bad %s header: %v", StartedAtHeader, err)
	}
	ended, err := strconv.ParseInt(resp.Header(EndedAtHeader), 10, 64)
	if err != nil {
		t.Fatalf("Bad %s header: %v", EndedAtHeader, err)
	}
	duration, err := strconv.ParseInt(resp.Header(DurationHeader), 10, 64)
	if err != nil {
		t.Fatalf("Bad %s header: %v", DurationHeader, err)
	}

	if started < before || started > after {
		t.Errorf("Started-at %d outside call window [%d, %d]", started, before, after)
	}
	if ended < started {
		t.Errorf("Ended-at %d precedes started-at %d", ended, started)
	}
	if duration != ended-started {
		t.Errorf("Duration %d != ended-started %d", duration, ended-started)
	}
}

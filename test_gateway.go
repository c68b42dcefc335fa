package mappersmith

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stub describes one canned exchange for the test gateway. Method matches
// case-insensitively (empty matches any verb); URL matches the fully built
// request URL exactly, or Path matches the resolved path ignoring host and
// query. Status defaults to 200. Err, when set, makes the stub reject.
type Stub struct {
	Method  string
	URL     string
	Path    string
	Status  int
	Headers Headers
	Body    any
	Err     error
}

// TestGateway is the in-memory gateway used in tests: stubs answer matching
// requests in registration order, every dispatched Request is recorded, and
// unmatched requests fail with ErrNoStub. Safe for concurrent use.
type TestGateway struct {
	mu       sync.Mutex
	stubs    []Stub
	requests []*Request
}

// NewTestGateway returns a gateway preloaded with the given stubs.
func NewTestGateway(stubs ...Stub) *TestGateway {
	return &TestGateway{stubs: stubs}
}

// Stub registers an additional stub.
func (g *TestGateway) Stub(stub Stub) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stubs = append(g.stubs, stub)
}

// Requests returns every Request dispatched so far, in order.
func (g *TestGateway) Requests() []*Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Request(nil), g.requests...)
}

// CallCount returns how many requests were dispatched.
func (g *TestGateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// Reset drops recorded requests and registered stubs.
func (g *TestGateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stubs = nil
	g.requests = nil
}

// Call implements Gateway.
func (g *TestGateway) Call(ctx context.Context, req *Request, _ GatewayConfig) (*Response, error) {
	if err := ctx.Err(); err != nil {
		errorType := ErrorTypeNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			errorType = ErrorTypeTimeout
		}
		return nil, &ClientError{
			Type:      errorType,
			Message:   "context done before dispatch",
			Cause:     err,
			Method:    req.Method(),
			URL:       req.URL(),
			Timestamp: time.Now(),
		}
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	stubs := append([]Stub(nil), g.stubs...)
	g.mu.Unlock()

	for _, stub := range stubs {
		if !matches(stub, req) {
			continue
		}
		if stub.Err != nil {
			return nil, stub.Err
		}
		status := stub.Status
		if status == 0 {
			status = 200
		}
		body, err := stubBody(stub.Body)
		if err != nil {
			return nil, err
		}
		return NewResponse(req, status, stub.Headers, body), nil
	}

	return nil, &ClientError{
		Type:      ErrorTypeGateway,
		Message:   fmt.Sprintf("%s %s", req.Method(), req.URL()),
		Cause:     ErrNoStub,
		Method:    req.Method(),
		URL:       req.URL(),
		Timestamp: time.Now(),
	}
}

func matches(stub Stub, req *Request) bool {
	if stub.Method != "" && !strings.EqualFold(stub.Method, req.Method()) {
		return false
	}
	if stub.URL != "" {
		return stub.URL == req.URL()
	}
	if stub.Path != "" {
		resolved, _ := expandPath(req.Path(), req.Params())
		return stub.Path == resolved
	}
	// A stub with neither URL nor Path matches anything with the right verb.
	return true
}

func stubBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		var buffer bytes.Buffer
		encoder := json.NewEncoder(&buffer)
		if err := encoder.Encode(b); err != nil {
			return nil, err
		}
		return bytes.TrimRight(buffer.Bytes(), "\n"), nil
	}
}

package mappersmith

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const jsonContentType = "application/json;charset=utf-8"

// HTTPGateway dispatches requests over net/http. Non-reader bodies are
// JSON-encoded; the Request timeout becomes a context deadline; the
// "username"/"password" auth keys turn into basic auth. 4xx/5xx resolve
// normally, only transport-level failures reject.
//
// Recognized config keys: "client" (*http.Client override).
type HTTPGateway struct {
	client *http.Client
}

// NewHTTPGateway returns a gateway on a default http.Client. The client
// carries no global timeout; deadlines come from the Request or the caller's
// context.
func NewHTTPGateway() *HTTPGateway {
	return &HTTPGateway{client: &http.Client{}}
}

// NewHTTPGatewayWithClient returns a gateway on the supplied http.Client.
func NewHTTPGatewayWithClient(client *http.Client) *HTTPGateway {
	return &HTTPGateway{client: client}
}

// Call implements Gateway.
func (g *HTTPGateway) Call(ctx context.Context, req *Request, config GatewayConfig) (*Response, error) {
	start := time.Now()

	client := g.client
	if override, ok := config["client"].(*http.Client); ok && override != nil {
		client = override
	}

	if timeout := req.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, contentType, err := encodeBody(req.Body())
	if err != nil {
		return nil, g.wrap(ErrorTypeGateway, "encoding request body", err, req, start)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method(), req.URL(), body)
	if err != nil {
		return nil, g.wrap(ErrorTypeGateway, "building http request", err, req, start)
	}
	for name, value := range req.Headers() {
		httpReq.Header.Set(name, value)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if auth := req.Auth(); auth != nil {
		if username, ok := auth["username"]; ok {
			httpReq.SetBasicAuth(username, auth["password"])
		}
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		if IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, g.wrap(ErrorTypeTimeout, "request timed out", err, req, start)
		}
		// Caller cancellation is not a timeout; it classifies with the
		// other transport failures.
		return nil, g.wrap(ErrorTypeNetwork, "network request failed", err, req, start)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, g.wrap(ErrorTypeNetwork, "reading response body", err, req, start)
	}

	headers := make(Headers, len(httpResp.Header))
	for name := range httpResp.Header {
		headers[name] = httpResp.Header.Get(name)
	}
	return NewResponse(req, httpResp.StatusCode, headers, raw), nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return b, "", nil
	case string:
		return strings.NewReader(b), "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(encoded), jsonContentType, nil
	}
}

func (g *HTTPGateway) wrap(errorType, message string, cause error, req *Request, start time.Time) *ClientError {
	return &ClientError{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		Method:    req.Method(),
		URL:       req.URL(),
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
}

package mappersmith

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Error type constants used in ClientError.Type.
const (
	ErrorTypeConfiguration = "Configuration"
	ErrorTypeNetwork       = "Network"
	ErrorTypeTimeout       = "Timeout"
	ErrorTypeGateway       = "Gateway"
	ErrorTypeStackExceeded = "StackExceeded"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrStackExceeded is returned when middleware re-enters the pipeline
	// more times than MaxMiddlewareStackExecutions allows.
	ErrStackExceeded = errors.New("mappersmith: middleware stack executions exceeded")

	// ErrCircuitOpen is returned by the breaker middleware while the circuit
	// is open.
	ErrCircuitOpen = errors.New("mappersmith: circuit open")

	// ErrNoStub is returned by the test gateway when no stub matches a
	// dispatched request.
	ErrNoStub = errors.New("mappersmith: no stub matched")
)

// ClientError is the typed error produced by the client, gateways and
// built-in middleware. Type selects the taxonomy bucket; the remaining
// fields carry diagnostic context.
type ClientError struct {
	Type    string
	Message string
	Cause   error

	Resource   string
	MethodName string
	Method     string
	URL        string

	Executions    int
	MaxExecutions int
	StatusCode    int
	Timestamp     time.Time
	Duration      time.Duration
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Resource != "" {
		msg = fmt.Sprintf("%s (resource %s.%s)", msg, e.Resource, e.MethodName)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsTransient reports whether err represents a failure that might succeed on
// a later attempt: network errors, timeouts and the breaker/stub sentinels
// qualify, configuration and stack-guard errors never do.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ErrorTypeNetwork, ErrorTypeTimeout:
			return true
		default:
			return false
		}
	}
	return isTimeoutErr(err)
}

// IsTimeout reports whether err stems from a deadline or timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ErrorTypeTimeout {
		return true
	}
	return isTimeoutErr(err)
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func configError(format string, args ...any) *ClientError {
	return &ClientError{
		Type:      ErrorTypeConfiguration,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
	}
}

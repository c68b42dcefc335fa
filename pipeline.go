package mappersmith

import (
	"context"
	"fmt"
	"time"
)

// execution is the per-call pipeline state: the built Request, the ordered
// middleware stack, the resolved gateway and its merged config, and the
// re-entry counter. It lives for exactly one client call.
type execution struct {
	request       *Request
	stack         []Middleware
	gateway       Gateway
	config        GatewayConfig
	maxExecutions int
	executions    int

	resource   string
	methodName string
}

// run drives one pipeline cycle: request hooks in declared order, one
// gateway dispatch, then response hooks (success) or error hooks (failure),
// both in declared order. Middleware re-enters through renew, which calls
// run again and trips the stack guard past maxExecutions.
func (e *execution) run(ctx context.Context) (*Response, error) {
	e.executions++
	if e.executions > e.maxExecutions {
		return nil, &ClientError{
			Type:          ErrorTypeStackExceeded,
			Message:       fmt.Sprintf("pipeline restarted more than %d times, aborting", e.maxExecutions),
			Cause:         ErrStackExceeded,
			Resource:      e.resource,
			MethodName:    e.methodName,
			Method:        e.request.Method(),
			URL:           e.request.URL(),
			Executions:    e.executions,
			MaxExecutions: e.maxExecutions,
			Timestamp:     time.Now(),
		}
	}

	renew := func(ctx context.Context) (*Response, error) {
		return e.run(ctx)
	}

	req := e.request
	for _, m := range e.stack {
		if m.TransformRequest == nil {
			continue
		}
		next, err := m.TransformRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, e.hookBug(m, "request hook returned a nil request")
		}
		req = next
	}

	resp, err := e.gateway.Call(ctx, req, e.config)

	if err == nil {
		for _, m := range e.stack {
			if m.TransformResponse == nil {
				continue
			}
			resp, err = m.TransformResponse(ctx, resp, renew)
			if err != nil {
				break
			}
			if resp == nil {
				err = e.hookBug(m, "response hook returned a nil response")
				break
			}
		}
	}

	if err != nil {
		for _, m := range e.stack {
			if m.TransformError == nil {
				continue
			}
			recovered, nextErr := m.TransformError(ctx, err, renew)
			if nextErr == nil && recovered != nil {
				return recovered, nil
			}
			if nextErr != nil {
				err = nextErr
			}
		}
		return nil, err
	}

	return resp, nil
}

func (e *execution) hookBug(m Middleware, message string) *ClientError {
	name := m.Name
	if name == "" {
		name = "anonymous"
	}
	return &ClientError{
		Type:       ErrorTypeConfiguration,
		Message:    fmt.Sprintf("middleware %q: %s", name, message),
		Resource:   e.resource,
		MethodName: e.methodName,
		Timestamp:  time.Now(),
	}
}

package mappersmith

import (
	"context"
	"errors"
	"testing"
	"time"
)

func breakerClient(t *testing.T, gateway Gateway, config BreakerConfig) *Client {
	t.Helper()
	client, err := New(userManifest(),
		WithGateway(gateway),
		WithMiddleware(BreakerMiddleware(config)),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return client
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	gateway := &flakyGateway{failures: 100, err: &ClientError{Type: ErrorTypeNetwork, Message: "down"}}
	client := breakerClient(t, gateway, BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		if _, err := client.Call(context.Background(), "User", "all", Args{}); err == nil {
			t.Fatalf("Call %d should fail", i)
		}
	}
	if gateway.calls != 3 {
		t.Fatalf("Expected 3 dispatches before the circuit opens, got %d", gateway.calls)
	}

	_, err := client.Call(context.Background(), "User", "all", Args{})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Expected ErrCircuitOpen once open, got %v", err)
	}
	if gateway.calls != 3 {
		t.Errorf("Open circuit must fail fast without dispatching, got %d calls", gateway.calls)
	}
}

func TestBreakerCountsServerErrors(t *testing.T) {
	gateway := NewTestGateway(Stub{Status: 502})
	client := breakerClient(t, gateway, BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour})

	for i := 0; i < 2; i++ {
		resp, err := client.Call(context.Background(), "User", "all", Args{})
		if err != nil {
			t.Fatalf("5xx resolves, not rejects: %v", err)
		}
		if resp.Status() != 502 {
			t.Fatalf("Expected 502, got %d", resp.Status())
		}
	}

	if _, err := client.Call(context.Background(), "User", "all", Args{}); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("2 server errors should open a threshold-2 circuit, got %v", err)
	}
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	gateway := NewTestGateway(Stub{Status: 200})
	client := breakerClient(t, gateway, BreakerConfig{FailureThreshold: 2})

	for i := 0; i < 10; i++ {
		if _, err := client.Call(context.Background(), "User", "all", Args{}); err != nil {
			t.Fatalf("Call %d returned error: %v", i, err)
		}
	}
	if gateway.CallCount() != 10 {
		t.Errorf("Expected every call dispatched, got %d", gateway.CallCount())
	}
}

func TestBreakerRecovers(t *testing.T) {
	gateway := &flakyGateway{failures: 2, err: &ClientError{Type: ErrorTypeNetwork, Message: "down"}}
	client := breakerClient(t, gateway, BreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  20 * time.Millisecond,
		SuccessThreshold: 1,
	})

	// Trip the circuit.
	for i := 0; i < 2; i++ {
		client.Call(context.Background(), "User", "all", Args{})
	}
	if _, err := client.Call(context.Background(), "User", "all", Args{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Circuit should be open, got %v", err)
	}

	// After the recovery timeout a probe goes through, succeeds, and closes
	// the circuit again.
	time.Sleep(30 * time.Millisecond)
	resp, err := client.Call(context.Background(), "User", "all", Args{})
	if err != nil {
		t.Fatalf("Probe call returned error: %v", err)
	}
	if resp.Status() != 200 {
		t.Errorf("Probe should succeed, got %d", resp.Status())
	}

	resp, err = client.Call(context.Background(), "User", "all", Args{})
	if err != nil || resp.Status() != 200 {
		t.Errorf("Circuit should be closed again, got %v / %v", resp, err)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	gateway := &flakyGateway{failures: 100, err: &ClientError{Type: ErrorTypeNetwork, Message: "down"}}
	client := breakerClient(t, gateway, BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  20 * time.Millisecond,
	})

	client.Call(context.Background(), "User", "all", Args{})
	time.Sleep(30 * time.Millisecond)

	// The half-open probe fails, so the circuit snaps back open.
	if _, err := client.Call(context.Background(), "User", "all", Args{}); errors.Is(err, ErrCircuitOpen) {
		t.Fatal("The probe itself should dispatch")
	}
	if _, err := client.Call(context.Background(), "User", "all", Args{}); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("A failed probe should reopen the circuit, got %v", err)
	}
}

func TestBreakerSharedAcrossCalls(t *testing.T) {
	gateway := &flakyGateway{failures: 100, err: &ClientError{Type: ErrorTypeNetwork, Message: "down"}}
	client := breakerClient(t, gateway, BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour})

	// Failures on one method trip the breaker for every method.
	client.Call(context.Background(), "User", "all", Args{})
	client.Call(context.Background(), "User", "byId", Args{Params: Params{"id": 1}})

	if _, err := client.Call(context.Background(), "User", "create", Args{}); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("The breaker must be shared across methods, got %v", err)
	}
}

package circuit

import (
	"errors"
	"testing"
)

func TestBreaker_TripsAfterMinRequestsAndFailureRatio(t *testing.T) {
	cfg := BackendConfig("test")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	b := New(cfg)

	fail := func() (any, error) { return nil, errors.New("boom") }

	for i := 0; i < 2; i++ {
		if _, err := b.Execute(fail); err == nil {
			t.Fatal("expected failing call to return its own error")
		}
	}

	if !b.IsOpen() {
		t.Fatalf("expected breaker to be open after hitting failure threshold, state=%s", b.State())
	}

	if _, err := b.Execute(func() (any, error) { return "ok", nil }); err == nil {
		t.Fatal("expected the open breaker to reject the call without running fn")
	}
}

func TestBreaker_StaysClosedBelowMinRequests(t *testing.T) {
	cfg := SummarizerConfig("test2")
	cfg.MinRequests = 10
	b := New(cfg)

	for i := 0; i < 3; i++ {
		_, _ = b.Execute(func() (any, error) { return nil, errors.New("boom") })
	}

	if b.IsOpen() {
		t.Fatal("expected breaker to remain closed below MinRequests")
	}
}

func TestBreaker_NameAndSuccessPassthrough(t *testing.T) {
	b := New(BackendConfig("named"))
	if b.Name() != "named" {
		t.Fatalf("expected Name() to return configured name, got %q", b.Name())
	}
	out, err := b.Execute(func() (any, error) { return 42, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(int) != 42 {
		t.Fatalf("expected passthrough return value 42, got %v", out)
	}
}

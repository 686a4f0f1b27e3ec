package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/deepresearch/internal/search"
)

type stubAdapter struct {
	calls int32
	fn    func(q search.Query) search.BackendResponse
}

func (s *stubAdapter) Name() string           { return "stub" }
func (s *stubAdapter) Close() error           { return nil }
func (s *stubAdapter) CrawlsFullContent() bool { return false }
func (s *stubAdapter) Search(_ context.Context, q search.Query) search.BackendResponse {
	atomic.AddInt32(&s.calls, 1)
	return s.fn(q)
}

func TestDispatch_PacingHonoredBetweenQueries(t *testing.T) {
	stub := &stubAdapter{fn: func(q search.Query) search.BackendResponse {
		return search.BackendResponse{Query: q.Text}
	}}
	d := New(stub, 20*time.Millisecond)
	start := time.Now()
	queries := []search.Query{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	out := d.Dispatch(context.Background(), queries)
	elapsed := time.Since(start)

	if len(out) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(out))
	}
	if elapsed < 40*time.Millisecond {
		t.Fatalf("expected wall time >= (N-1)*delay = 40ms, got %s", elapsed)
	}
}

func TestDispatch_BackendErrorDoesNotAbortPipeline(t *testing.T) {
	stub := &stubAdapter{fn: func(q search.Query) search.BackendResponse {
		if q.Text == "bad" {
			return search.BackendResponse{Query: q.Text, Error: "boom"}
		}
		return search.BackendResponse{Query: q.Text}
	}}
	d := New(stub, time.Millisecond)
	out := d.Dispatch(context.Background(), []search.Query{{Text: "bad"}, {Text: "good"}})
	if len(out) != 2 {
		t.Fatalf("expected both responses retained, got %d", len(out))
	}
	if !out[0].Failed() {
		t.Fatal("expected first response to carry the error")
	}
	if out[1].Failed() {
		t.Fatal("expected second response to succeed")
	}
}

func TestDispatch_CancellationStopsFurtherQueries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := &stubAdapter{fn: func(q search.Query) search.BackendResponse {
		if q.Text == "a" {
			cancel()
		}
		return search.BackendResponse{Query: q.Text}
	}}
	d := New(stub, 50*time.Millisecond)
	out := d.Dispatch(ctx, []search.Query{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	if len(out) != 1 {
		t.Fatalf("expected dispatch to stop after cancellation, got %d responses", len(out))
	}
}

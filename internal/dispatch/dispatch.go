// Package dispatch fans a list of queries out to a single search backend
// with inter-query pacing, grounded on the Python original's
// tavily_search_async sequential-dispatch loop.
package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/deepresearch/internal/backend"
	"github.com/hyperifyio/deepresearch/internal/search"
)

// DefaultDelay is the inter-query pacing delay when none is configured
// (spec §4.2, §6).
const DefaultDelay = 5 * time.Second

// Dispatcher issues queries to a backend.Adapter sequentially, pacing
// between requests via a token-bucket limiter (one token per Delay,
// burst 1: the first query fires immediately, every later one waits for
// its token) instead of a bare time.Sleep.
type Dispatcher struct {
	Adapter backend.Adapter
	Delay   time.Duration

	limiter *rate.Limiter
}

// New builds a Dispatcher with the given pacing delay (0 uses DefaultDelay).
func New(adapter backend.Adapter, delay time.Duration) *Dispatcher {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Dispatcher{Adapter: adapter, Delay: delay, limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Dispatch runs every query in order. On backend error the failing response
// is retained with Error set; Dispatch never aborts early because of a
// backend error. Cancellation stops further queries from starting and is
// propagated to the active request; completed responses are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, queries []search.Query) []search.BackendResponse {
	delay := d.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	limiter := d.limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	out := make([]search.BackendResponse, 0, len(queries))
	for _, q := range queries {
		if err := limiter.Wait(ctx); err != nil {
			log.Debug().Msg("dispatch canceled before starting remaining queries")
			break
		}
		resp := d.Adapter.Search(ctx, q)
		out = append(out, resp)
		if resp.Failed() {
			log.Warn().Str("query", q.Text).Str("error", resp.Error).Msg("backend query failed, continuing")
		}
	}
	return out
}

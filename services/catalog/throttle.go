package catalog

import (
	"context"
	"sync"
	"time"
)

// gate enforces a minimum spacing between outbound requests, measured
// from the previous request's issue time. It is shared by every caller
// of a client, so the remote API sees a coarse global rate limit, not
// a per-user one. The lock is held across the pause on purpose: while
// one caller waits its turn, the next queues behind it.
type gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func (g *gate) wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	pause := g.interval - time.Since(g.last)
	if pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g.last = time.Now()
	return nil
}

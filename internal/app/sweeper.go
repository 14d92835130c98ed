package app

import (
	"context"
	"time"
)

// Sweeper expires calls that never left initiated: the callee never
// joined and nobody cancelled. Policy: a call older than TTL is missed,
// checked every Interval.
type Sweeper struct {
	Orch     *Orchestrator
	TTL      time.Duration
	Interval time.Duration
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Orch.ExpireStale(ctx, time.Now().Add(-s.TTL))
		}
	}
}

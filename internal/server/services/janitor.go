package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/clock"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// Pruner drops revocation entries that expired by now.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Janitor periodically prunes the revocation store.
type Janitor struct {
	store    Pruner
	clock    clock.Clock
	interval time.Duration
	log      logging.Logger
}

func NewJanitor(store Pruner, c clock.Clock, interval time.Duration, log logging.Logger) *Janitor {
	if log == nil {
		log = logging.Nop{}
	}
	return &Janitor{store: store, clock: c, interval: interval, log: log.With("module", "services.janitor")}
}

// RunOnce prunes a single time.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	removed, err := j.store.Prune(ctx, j.clock.Now())
	if err != nil {
		j.log.Error(ctx, "prune revoked tokens", "error", err)
		return 0, err
	}
	if removed > 0 {
		j.log.Info(ctx, "pruned revoked tokens", "removed", removed)
	}
	return removed, nil
}

// Run prunes every interval until ctx is cancelled. Prune failures are logged
// and retried on the next tick. A non-positive interval disables the loop.
func (j *Janitor) Run(ctx context.Context) error {
	if j.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = j.RunOnce(ctx)
		}
	}
}

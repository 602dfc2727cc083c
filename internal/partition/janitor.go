package partition

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically sweeps a Registry for partition-key cells that
// have sat free for longer than TTL, bounding the registry's memory
// growth. This resolves the "Lock-cell eviction" open question in
// spec §9: the source never evicts; this implementation adds a
// TTL-based sweep on a cron schedule rather than a fixed ticker,
// following the same scheduling idiom the teacher repo uses for its
// own periodic work (internal/scheduler.cronScheduler).
type Janitor struct {
	registry *Registry
	ttl      time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewJanitor creates a janitor that runs sweepExpr (a standard 6-field
// cron expression, e.g. "0 */1 * * * *", or a "@every 1m"-style
// descriptor) and evicts any cell that has been free for at least
// ttl.
func NewJanitor(registry *Registry, sweepExpr string, ttl time.Duration, logger *slog.Logger) (*Janitor, error) {
	c := cron.New(cron.WithSeconds())
	j := &Janitor{
		registry: registry,
		ttl:      ttl,
		cron:     c,
		logger:   logger.With("component", "partition-janitor"),
	}
	if _, err := c.AddFunc(sweepExpr, j.sweep); err != nil {
		return nil, err
	}
	return j, nil
}

// Start begins running the janitor's cron schedule in the background.
// It returns immediately; call Stop to halt it.
func (j *Janitor) Start() {
	j.logger.Info("partition janitor started")
	j.cron.Start()
}

// Stop halts the janitor's cron schedule and waits for any in-flight
// sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("partition janitor stopped")
}

func (j *Janitor) sweep() {
	evicted := j.registry.sweepFree(j.ttl)
	if evicted > 0 {
		j.logger.Debug("evicted idle partition lock cells", "count", evicted)
	}
}

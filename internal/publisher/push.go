package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// PushConfig configures a PushPublisher. It carries only
// PartitionKeyOf, Locker and ItemFilter; it has no BatchObserver,
// ContinueOnError or ErrorObserver fields like Config does.
type PushConfig[T any] struct {
	PartitionKeyOf PartitionKeyFunc[T]
	Locker         PartitionLocker
	ItemFilter     func(item T) bool
}

func (c *PushConfig[T]) setDefaults() {
	if c.ItemFilter == nil {
		c.ItemFilter = func(T) bool { return true }
	}
}

// PushPublisher adapts an externally driven push source (e.g. a
// subscription webhook) into the same Emission[T] stream shape a
// PollingPublisher produces. Unlike the polling publisher it is
// inherently hot: there is one production chain, fed by concurrent
// Offer calls, shared by whatever single consumer reads Subscribe's
// channel.
type PushPublisher[T any] struct {
	cfg    PushConfig[T]
	logger *slog.Logger
	tracer trace.Tracer
	out    chan Emission[T]
}

// NewPush constructs a PushPublisher. cfg.PartitionKeyOf and
// cfg.Locker are required.
func NewPush[T any](cfg PushConfig[T], logger *slog.Logger) (*PushPublisher[T], error) {
	if cfg.PartitionKeyOf == nil {
		return nil, fmt.Errorf("publisher: PartitionKeyOf is required")
	}
	if cfg.Locker == nil {
		return nil, fmt.Errorf("publisher: Locker is required")
	}
	cfg.setDefaults()
	return &PushPublisher[T]{
		cfg:    cfg,
		logger: logger.With("component", "push-publisher"),
		tracer: otel.Tracer("review-dispatch-publisher"),
		out:    make(chan Emission[T]),
	}, nil
}

// Subscribe returns the publisher's shared output channel.
func (p *PushPublisher[T]) Subscribe() <-chan Emission[T] {
	return p.out
}

// Offer delivers one externally decoded item into the pipeline. It
// returns true if the item cleared the partition gate and was handed
// to the consumer reading Subscribe's channel, false if it was gated
// out (filtered, or its partition already held) or if ctx was done
// before the consumer accepted it. A false return is the caller's cue
// to decide, on its own terms, whether to redeliver.
func (p *PushPublisher[T]) Offer(ctx context.Context, item T) bool {
	ctx, span := p.tracer.Start(ctx, "publisher.offer")
	defer span.End()

	if !p.cfg.ItemFilter(item) {
		return false
	}

	key := p.cfg.PartitionKeyOf(item)
	if !p.cfg.Locker.TryAcquire(key) {
		p.logger.Debug("push item gated out: partition busy", "key", key)
		return false
	}

	done := make(chan struct{})
	var once sync.Once
	complete := func(error) { once.Do(func() { close(done) }) }

	select {
	case p.out <- newEmission(item, complete):
	case <-ctx.Done():
		p.cfg.Locker.Release(key)
		return false
	}

	go func() {
		select {
		case <-done:
		case <-ctx.Done():
		}
		p.cfg.Locker.Release(key)
	}()

	return true
}

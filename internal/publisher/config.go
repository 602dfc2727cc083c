package publisher

import "time"

// Config configures a PollingPublisher. PartitionKeyOf and Locker are
// required; every other field has a usable zero value or is defaulted
// by setDefaults.
//
// ContinueOnError's zero value is false ("fail fast"), which differs
// from the spec's documented default of true; callers that want the
// spec default set it explicitly. The application wiring this
// publisher from configuration (internal/config) applies the
// polling.continueOnError default the same way it applies every other
// configuration default: via viper.SetDefault, not a struct zero
// value.
type Config[T any] struct {
	// PollInterval is the duration between successive fetch
	// invocations. Defaulted to 5s if zero or negative.
	PollInterval time.Duration

	// PartitionKeyOf derives the serialization key for an item.
	// Required.
	PartitionKeyOf PartitionKeyFunc[T]

	// Locker gates items sharing a partition key. Required.
	Locker PartitionLocker

	// BatchObserver is called with every non-empty batch returned by
	// fetch, before filtering or grouping.
	BatchObserver func(batch []T)

	// ItemFilter decides whether an item proceeds to the partition
	// gate. Defaulted to accept-all.
	ItemFilter func(item T) bool

	// ContinueOnError controls what happens when fetch returns an
	// error: true retries on the next tick, false terminates the
	// stream with that error.
	ContinueOnError bool

	// ErrorObserver is called with every error fetch produces,
	// regardless of ContinueOnError.
	ErrorObserver func(error)

	// BlockingExecutor runs fetch. Defaulted to an unbounded
	// goroutine-per-call ElasticExecutor.
	BlockingExecutor Executor
}

// PartitionLocker is the narrow slice of domain.PartitionLocker this
// package depends on, declared locally so publisher does not import
// domain just for one interface and so tests can supply fakes without
// constructing a full domain.PartitionLocker.
type PartitionLocker interface {
	TryAcquire(key string) bool
	Release(key string)
}

func (c *Config[T]) setDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.ItemFilter == nil {
		c.ItemFilter = func(T) bool { return true }
	}
	if c.BlockingExecutor == nil {
		c.BlockingExecutor = NewElasticExecutor(0)
	}
}

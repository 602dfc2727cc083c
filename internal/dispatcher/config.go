package dispatcher

import "context"

// Config configures a Dispatcher. AccountIDOf, IsDownload and Process
// are required; every other field has a usable zero value or is
// defaulted by the maxConcurrency and laneBuffer accessors.
type Config[T any] struct {
	// AccountIDOf extracts the account grouping key from an item.
	// Required.
	AccountIDOf func(item T) string

	// IsDownload reports whether an item belongs in its account's
	// serial download lane rather than its parallel lane. Required.
	IsDownload func(item T) bool

	// Process invokes the handler for one item. Required.
	Process func(ctx context.Context, item T) error

	// MaxConcurrency is the global cap on concurrently-running Process
	// invocations across every lane of every account. Defaulted to
	// 10.
	MaxConcurrency int

	// LaneBuffer bounds how many items may sit queued in one account
	// lane (download or parallel) before the merge loop blocks trying
	// to route a new item into it. It exists only to keep one
	// pathologically backed-up account from growing memory without
	// bound; it is not part of the spec's concurrency model. Defaulted
	// to 64.
	LaneBuffer int

	// PreObserver is called once an item is received, before it waits
	// for a concurrency permit.
	PreObserver func(item T)

	// SuccessObserver is called after Process returns nil.
	SuccessObserver func(item T)

	// ErrorObserver is called after Process returns a non-nil error,
	// including an unknown type tag reported by Process itself.
	ErrorObserver func(item T, err error)

	// ContinueOnError controls what happens after Process fails:
	// true swallows the error and keeps the dispatcher running; false
	// propagates it, cancelling the run.
	ContinueOnError bool
}

func (c *Config[T]) maxConcurrency() int {
	if c.MaxConcurrency <= 0 {
		return 10
	}
	return c.MaxConcurrency
}

func (c *Config[T]) laneBuffer() int {
	if c.LaneBuffer <= 0 {
		return 64
	}
	return c.LaneBuffer
}

package publisher

import "context"

// FetchFunc performs one blocking fetch of a batch of items. It must
// be idempotent with respect to its own invocations: the same
// unprocessed item may legally be returned across calls until the
// caller's own side effect (e.g. marking it processed) removes it from
// the underlying source. A nil or empty slice means "nothing to do
// this tick".
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// PartitionKeyFunc derives the serialization key for an item. Every
// adapter feeding a given PartitionLocker must agree on this function
// so that two differently-shaped items that are "the same" partition
// produce byte-identical keys.
type PartitionKeyFunc[T any] func(item T) string

package domain

import (
	"context"
	"errors"
)

// ErrQueueItemNotFound is returned when a queue item cannot be found
// by id.
var ErrQueueItemNotFound = errors.New("queue item not found")

// QueueRepository is the opaque "fetch next batch / mark processed"
// contract described in spec §6. It is the only collaborator the
// polling publisher talks to; everything about how items are stored
// (a database, in this repository's case etcd) is hidden behind it.
//
// FetchBatch must be idempotent with respect to its own invocations:
// the same unprocessed item may be returned across calls until
// MarkProcessed is called for it.
type QueueRepository interface {
	FetchBatch(ctx context.Context) ([]*WorkItem, error)
	MarkProcessed(ctx context.Context, id string) error
}

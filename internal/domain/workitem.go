// Package domain holds the types and interfaces shared by every
// component of the review dispatcher: the partition key model, the
// handler contract, and the repository/locker interfaces that the
// infra layer implements.
package domain

import (
	"fmt"
	"strings"
)

// Operation is a free-form tag on a WorkItem. The literal value
// "download" (case-insensitive) is distinguished: it is routed to the
// per-account serial lane instead of the parallel lane.
type Operation string

// IsDownload reports whether this operation is the distinguished
// "download" operation, compared case-insensitively.
func (o Operation) IsDownload() bool {
	return strings.EqualFold(string(o), "download")
}

// WorkItem is the unit of processing. It is produced by both the
// polling publisher (backed by the queue repository) and the push
// publisher (backed by the subscription webhook), and is handed to a
// handler chosen by TypeTag.
type WorkItem struct {
	ID        string
	ClientID  string
	AccountID string
	Operation Operation
	TypeTag   string
	Payload   []byte
}

// Validate checks that a WorkItem has every field required to compute
// a partition key and select a handler.
func (w *WorkItem) Validate() error {
	if w.ClientID == "" {
		return fmt.Errorf("work item %s: client id cannot be empty", w.ID)
	}
	if w.AccountID == "" {
		return fmt.Errorf("work item %s: account id cannot be empty", w.ID)
	}
	if w.Operation == "" {
		return fmt.Errorf("work item %s: operation cannot be empty", w.ID)
	}
	if w.TypeTag == "" {
		return fmt.Errorf("work item %s: type tag cannot be empty", w.ID)
	}
	return nil
}

// PartitionKey returns the composite serialization key for this item:
// clientID + ":" + accountID + ":" + operation, using the exact ASCII
// colon separator. Components are compared byte-for-byte (case
// sensitive); only the "download" discriminator elsewhere is
// case-insensitive.
func (w *WorkItem) PartitionKey() string {
	return PartitionKey(w.ClientID, w.AccountID, string(w.Operation))
}

// PartitionKey derives the composite partition key from its three
// components. Every source adapter that can produce a WorkItem must
// route through this function so that two wire-level representations
// of "the same" logical item (e.g. one read from the queue
// repository, one delivered over the push webhook) always agree on
// their key, byte for byte.
func PartitionKey(clientID, accountID, operation string) string {
	return clientID + ":" + accountID + ":" + operation
}

package domain

import (
	"context"
	"fmt"
)

// UnknownTypeError is returned by a HandlerRegistry when no handler is
// bound to the given type tag. It is never fatal to the dispatcher:
// it is reported to the error observer for that item only.
type UnknownTypeError struct {
	TypeTag string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("no handler registered for type tag %q", e.TypeTag)
}

// Handler processes the payload of a WorkItem whose TypeTag matches
// the value returned by TypeTag(). Handle runs on the dispatcher's
// compute pool; it is expected to enforce its own timeout via ctx
// where needed. It does not persist the "mark processed" flag: the
// dispatcher's Process function wired in cmd/dispatcherd does that
// after Handle returns nil.
type Handler interface {
	TypeTag() string
	Handle(ctx context.Context, payload []byte, clientID string) error
}

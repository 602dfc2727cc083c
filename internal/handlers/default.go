// Package handlers holds the concrete domain.Handler implementations
// bound into the handler registry at startup. It is grounded on the
// original source's DefaultReviewHandler/TypeAReviewHandler/
// TypeBReviewHandler, translated from reactive Mono-returning methods
// into plain synchronous Handle(ctx, payload, clientID) error calls,
// in the idiom of the teacher's own task executors (context-aware,
// error-wrapped, slog-logged).
package handlers

import (
	"context"
	"log/slog"
)

// DefaultHandler processes items tagged "DEFAULT". It is not a
// fallback: an item whose tag has no binding gets an UnknownTypeError
// from the registry. It performs no business logic beyond recording
// that the item passed through.
type DefaultHandler struct {
	logger *slog.Logger
}

// NewDefaultHandler constructs a DefaultHandler.
func NewDefaultHandler(logger *slog.Logger) *DefaultHandler {
	return &DefaultHandler{logger: logger.With("handler", "default")}
}

func (h *DefaultHandler) TypeTag() string { return "DEFAULT" }

func (h *DefaultHandler) Handle(ctx context.Context, payload []byte, clientID string) error {
	h.logger.Info("processing default review", "client_id", clientID, "payload_size", len(payload))
	return nil
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// TypeAHandler processes TYPE_A-tagged items. The payload is expected
// to be a JSON document; a payload that does not parse is a handler
// failure, propagated to the dispatcher's error observer like any
// other HandlerError.
type TypeAHandler struct {
	logger *slog.Logger
}

// NewTypeAHandler constructs a TypeAHandler.
func NewTypeAHandler(logger *slog.Logger) *TypeAHandler {
	return &TypeAHandler{logger: logger.With("handler", "type-a")}
}

func (h *TypeAHandler) TypeTag() string { return "TYPE_A" }

func (h *TypeAHandler) Handle(ctx context.Context, payload []byte, clientID string) error {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("type-a handler: invalid review payload for client %s: %w", clientID, err)
	}
	h.logger.Info("processing type-a review", "client_id", clientID, "fields", len(body))
	return nil
}

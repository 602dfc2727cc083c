package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// TypeBHandler processes TYPE_B-tagged items. Same payload contract
// and same processing as TypeAHandler, bound to its own type tag.
type TypeBHandler struct {
	logger *slog.Logger
}

// NewTypeBHandler constructs a TypeBHandler.
func NewTypeBHandler(logger *slog.Logger) *TypeBHandler {
	return &TypeBHandler{logger: logger.With("handler", "type-b")}
}

func (h *TypeBHandler) TypeTag() string { return "TYPE_B" }

func (h *TypeBHandler) Handle(ctx context.Context, payload []byte, clientID string) error {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("type-b handler: invalid review payload for client %s: %w", clientID, err)
	}
	h.logger.Info("processing type-b review", "client_id", clientID, "fields", len(body))
	return nil
}

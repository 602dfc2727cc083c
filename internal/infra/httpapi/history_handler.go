// internal/infra/httpapi/history_handler.go
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"review-dispatch/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HistoryHandler serves execution history for a client/account pair,
// grounded on the teacher's handleGetJobHistory but re-keyed by
// clientId/accountId instead of job name.
type HistoryHandler struct {
	repo   domain.ExecutionRepository
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHistoryHandler constructs a HistoryHandler.
func NewHistoryHandler(repo domain.ExecutionRepository, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		repo:   repo,
		logger: logger.With("component", "history-handler"),
		tracer: otel.Tracer("review-dispatch-api"),
	}
}

// RegisterRoutes registers the history route to the mux.
func (h *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/history/", instrument("/history/{clientId}/{accountId}", h.tracer, http.HandlerFunc(h.handleHistory)))
}

func (h *HistoryHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// /history/{clientId}/{accountId}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/history/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		http.Error(w, "expected /history/{clientId}/{accountId}", http.StatusBadRequest)
		return
	}
	clientID, accountID := parts[0], parts[1]

	ctx, span := h.tracer.Start(r.Context(), "handler.GetHistory")
	defer span.End()
	span.SetAttributes(
		attribute.String("client.id", clientID),
		attribute.String("account.id", accountID),
	)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	records, err := h.repo.ListByAccount(ctx, clientID, accountID, page, pageSize)
	if err != nil {
		h.logger.Error("error listing execution history", "client_id", clientID, "account_id", accountID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

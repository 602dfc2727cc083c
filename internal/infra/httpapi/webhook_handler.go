// internal/infra/httpapi/webhook_handler.go
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"review-dispatch/internal/domain"
	"review-dispatch/internal/publisher"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WebhookHandler accepts externally pushed work items and offers them
// to a push publisher, standing in for the original's "subscription
// webhook" ingest path.
type WebhookHandler struct {
	pub      *publisher.PushPublisher[*domain.WorkItem]
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
}

// NewWebhookHandler constructs a WebhookHandler around an already
// configured push publisher.
func NewWebhookHandler(pub *publisher.PushPublisher[*domain.WorkItem], logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		pub:      pub,
		logger:   logger.With("component", "webhook-handler"),
		validate: validator.New(),
		tracer:   otel.Tracer("review-dispatch-api"),
	}
}

// RegisterRoutes registers the webhook route to the mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/items", instrument("/items", h.tracer, http.HandlerFunc(h.handleSubmit)))
}

func (h *WebhookHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "handler.SubmitItem")
	defer span.End()

	var req SubmitItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "failed to decode request body")
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		span.RecordError(err)
		var details []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				details = append(details, "field '"+fe.Field()+"' failed on the '"+fe.Tag()+"' tag")
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	item := req.ToDomainItem()
	if err := item.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("item.id", item.ID),
		attribute.String("item.partition_key", item.PartitionKey()),
	)

	accepted := h.pub.Offer(ctx, item)
	if !accepted {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(SubmitItemResponse{Accepted: false, PartitionKey: item.PartitionKey()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(SubmitItemResponse{Accepted: true, PartitionKey: item.PartitionKey()})
}

// internal/infra/httpapi/stats_handler.go
package httpapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// sizer reports the number of entries currently tracked. Both
// partition.Registry and handlerregistry.Registry satisfy it.
type sizer interface {
	Size() int
}

// StatsHandler exposes partition lock and handler registry occupancy
// for operator introspection, standing in for the original's admin
// "/stats" surface.
type StatsHandler struct {
	partitions sizer
	handlers   sizer
	tracer     trace.Tracer
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(partitions, handlers sizer) *StatsHandler {
	return &StatsHandler{
		partitions: partitions,
		handlers:   handlers,
		tracer:     otel.Tracer("review-dispatch-api"),
	}
}

// RegisterRoutes registers the stats route to the mux.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/stats", instrument("/stats", h.tracer, http.HandlerFunc(h.handleStats)))
}

func (h *StatsHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StatsResponse{
		PartitionRegistrySize: h.partitions.Size(),
		HandlerRegistrySize:   h.handlers.Size(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

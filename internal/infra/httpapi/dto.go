// internal/infra/httpapi/dto.go
package httpapi

import (
	"encoding/json"

	"review-dispatch/internal/domain"

	"github.com/google/uuid"
)

// SubmitItemRequest is the wire shape accepted by the webhook endpoint.
// It mirrors domain.WorkItem but keeps the HTTP-facing validation tags
// separate from the domain model. ID is optional: a push source that
// has no natural id of its own leaves it blank and gets one assigned
// in ToDomainItem.
type SubmitItemRequest struct {
	ID        string          `json:"id"`
	ClientID  string          `json:"clientId" validate:"required"`
	AccountID string          `json:"accountId" validate:"required"`
	Operation string          `json:"operation" validate:"required"`
	TypeTag   string          `json:"typeTag" validate:"required"`
	Payload   json.RawMessage `json:"payload" validate:"required"`
}

// ToDomainItem converts a validated request into a domain.WorkItem,
// assigning a fresh id if the caller did not supply one.
func (r SubmitItemRequest) ToDomainItem() *domain.WorkItem {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &domain.WorkItem{
		ID:        id,
		ClientID:  r.ClientID,
		AccountID: r.AccountID,
		Operation: domain.Operation(r.Operation),
		TypeTag:   r.TypeTag,
		Payload:   []byte(r.Payload),
	}
}

// SubmitItemResponse is returned on a successful webhook submission.
type SubmitItemResponse struct {
	Accepted     bool   `json:"accepted"`
	PartitionKey string `json:"partitionKey"`
}

// StatsResponse reports current lock/handler registry occupancy for
// operator introspection.
type StatsResponse struct {
	PartitionRegistrySize int `json:"partitionRegistrySize"`
	HandlerRegistrySize   int `json:"handlerRegistrySize"`
}

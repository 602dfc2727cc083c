package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"review-dispatch/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ExecutionHistoryDir is the etcd key prefix under which execution
	// records live, keyed by clientId/accountId/executionId.
	ExecutionHistoryDir = "/review-dispatch/history/"
)

// ExecutionRepository implements domain.ExecutionRepository over
// etcd. It is grounded on the teacher's etcdExecutionRepository,
// adapted from a per-job history to a per-account history, since
// accountId (not job name) is this system's primary grouping key.
type ExecutionRepository struct {
	client *clientv3.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// NewExecutionRepository constructs an ExecutionRepository.
func NewExecutionRepository(client *clientv3.Client, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{
		client: client,
		logger: logger.With("component", "etcd-execution-repository"),
		tracer: otel.Tracer("review-dispatch-etcd-repo"),
	}
}

// Save persists a single execution record to etcd.
func (r *ExecutionRepository) Save(ctx context.Context, record *domain.ExecutionRecord) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.SaveExecution")
	defer span.End()

	if err := record.Validate(); err != nil {
		return err
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal execution record")
		return fmt.Errorf("failed to marshal execution record %s to JSON: %w", record.ID, err)
	}

	key := path.Join(ExecutionHistoryDir, record.ClientID, record.AccountID, record.ID)
	span.SetAttributes(
		attribute.String("execution.id", record.ID),
		attribute.String("account.id", record.AccountID),
		attribute.String("etcd.key", key),
	)

	if _, err := r.client.Put(ctx, key, string(recordJSON)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put execution record to etcd")
		return fmt.Errorf("failed to save execution record %s to etcd: %w", record.ID, err)
	}
	return nil
}

// ListByAccount retrieves historical execution records for one
// account, newest first, with pagination.
func (r *ExecutionRepository) ListByAccount(ctx context.Context, clientID, accountID string, page, pageSize int) ([]*domain.ExecutionRecord, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.ListExecutionsByAccount")
	defer span.End()
	span.SetAttributes(
		attribute.String("client.id", clientID),
		attribute.String("account.id", accountID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	prefix := path.Join(ExecutionHistoryDir, clientID, accountID) + "/"
	resp, err := r.client.Get(ctx, prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByCreateRevision, clientv3.SortDescend),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list execution records from etcd")
		return nil, fmt.Errorf("failed to list execution records for %s/%s from etcd: %w", clientID, accountID, err)
	}

	records := make([]*domain.ExecutionRecord, 0, pageSize)
	startIdx := (page - 1) * pageSize
	endIdx := startIdx + pageSize

	for i, kv := range resp.Kvs {
		if i < startIdx {
			continue
		}
		if i >= endIdx {
			break
		}
		var record domain.ExecutionRecord
		if err := json.Unmarshal(kv.Value, &record); err != nil {
			r.logger.Warn("failed to unmarshal execution record from etcd", "key", string(kv.Key), "error", err)
			continue
		}
		records = append(records, &record)
	}
	span.SetAttributes(attribute.Int("records_returned", len(records)))
	return records, nil
}

var _ domain.ExecutionRepository = (*ExecutionRepository)(nil)

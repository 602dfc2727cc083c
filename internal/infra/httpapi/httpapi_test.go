package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"review-dispatch/internal/domain"
	"review-dispatch/internal/publisher"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type alwaysGrantLocker struct{}

func (alwaysGrantLocker) TryAcquire(key string) bool { return true }
func (alwaysGrantLocker) Release(key string)         {}

func newTestWebhookHandler(t *testing.T) (*WebhookHandler, <-chan publisher.Emission[*domain.WorkItem]) {
	t.Helper()
	pub, err := publisher.NewPush(publisher.PushConfig[*domain.WorkItem]{
		PartitionKeyOf: func(it *domain.WorkItem) string { return it.PartitionKey() },
		Locker:         alwaysGrantLocker{},
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewPush: %v", err)
	}
	out := pub.Subscribe()
	go func() {
		for e := range out {
			e.Complete(nil)
		}
	}()
	return NewWebhookHandler(pub, discardLogger()), out
}

func TestWebhookHandlerAcceptsValidRequest(t *testing.T) {
	h, _ := newTestWebhookHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	body := `{"id":"1","clientId":"c1","accountId":"a1","operation":"download","typeTag":"DEFAULT","payload":{}}`
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookHandlerRejectsMissingFields(t *testing.T) {
	h, _ := newTestWebhookHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	body := `{"id":"1"}`
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhookHandlerRejectsMalformedJSON(t *testing.T) {
	h, _ := newTestWebhookHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

type fakeSizer struct{ n int }

func (f fakeSizer) Size() int { return f.n }

func TestStatsHandlerReportsRegistrySizes(t *testing.T) {
	h := NewStatsHandler(fakeSizer{n: 3}, fakeSizer{n: 2})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.PartitionRegistrySize != 3 || resp.HandlerRegistrySize != 2 {
		t.Fatalf("unexpected stats response: %+v", resp)
	}
}

type fakeExecutionRepo struct {
	records []*domain.ExecutionRecord
}

func (f *fakeExecutionRepo) Save(ctx context.Context, record *domain.ExecutionRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeExecutionRepo) ListByAccount(ctx context.Context, clientID, accountID string, page, pageSize int) ([]*domain.ExecutionRecord, error) {
	var out []*domain.ExecutionRecord
	for _, r := range f.records {
		if r.ClientID == clientID && r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestHistoryHandlerReturnsRecordsForAccount(t *testing.T) {
	repo := &fakeExecutionRepo{}
	repo.records = append(repo.records, &domain.ExecutionRecord{
		ID: "e1", ClientID: "c1", AccountID: "a1", Status: domain.ExecutionStatusSuccess,
	})
	h := NewHistoryHandler(repo, discardLogger())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/history/c1/a1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var records []*domain.ExecutionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(records) != 1 || records[0].ID != "e1" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestHistoryHandlerRejectsMalformedPath(t *testing.T) {
	h := NewHistoryHandler(&fakeExecutionRepo{}, discardLogger())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/history/onlyone", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

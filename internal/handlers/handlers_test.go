package handlers

import (
	"context"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestDefaultHandlerAcceptsAnyPayload(t *testing.T) {
	h := NewDefaultHandler(discardLogger())
	if h.TypeTag() != "DEFAULT" {
		t.Fatalf("expected type tag DEFAULT, got %s", h.TypeTag())
	}
	if err := h.Handle(context.Background(), []byte("not json at all"), "client-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTypeAHandlerRejectsInvalidJSON(t *testing.T) {
	h := NewTypeAHandler(discardLogger())
	if h.TypeTag() != "TYPE_A" {
		t.Fatalf("expected type tag TYPE_A, got %s", h.TypeTag())
	}
	if err := h.Handle(context.Background(), []byte("{not json"), "client-1"); err == nil {
		t.Fatal("expected an error for malformed JSON payload")
	}
}

func TestTypeAHandlerAcceptsValidJSON(t *testing.T) {
	h := NewTypeAHandler(discardLogger())
	if err := h.Handle(context.Background(), []byte(`{"field":"value"}`), "client-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTypeBHandlerRejectsInvalidJSON(t *testing.T) {
	h := NewTypeBHandler(discardLogger())
	if h.TypeTag() != "TYPE_B" {
		t.Fatalf("expected type tag TYPE_B, got %s", h.TypeTag())
	}
	if err := h.Handle(context.Background(), []byte("{not json"), "client-1"); err == nil {
		t.Fatal("expected an error for malformed JSON payload")
	}
}

package domain

import "testing"

func TestExecutionRecordValidate(t *testing.T) {
	valid := ExecutionRecord{ID: "1", AccountID: "a", Status: ExecutionStatusRunning}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missingID := ExecutionRecord{AccountID: "a", Status: ExecutionStatusRunning}
	if err := missingID.Validate(); err == nil {
		t.Fatal("expected an error for a missing id")
	}

	missingStatus := ExecutionRecord{ID: "1", AccountID: "a"}
	if err := missingStatus.Validate(); err == nil {
		t.Fatal("expected an error for a missing status")
	}
}

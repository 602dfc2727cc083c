package domain

import "testing"

func TestPartitionKeyFormat(t *testing.T) {
	got := PartitionKey("c", "a", "UPDATE")
	want := "c:a:UPDATE"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

// TestCompositeKeyEqualityAcrossSources is scenario 7: two
// differently-shaped items describing the same logical identity must
// produce the identical partition key string.
func TestCompositeKeyEqualityAcrossSources(t *testing.T) {
	fromQueue := &WorkItem{ClientID: "c", AccountID: "a", Operation: "UPDATE"}
	fromPush := &WorkItem{ClientID: "c", AccountID: "a", Operation: "UPDATE", TypeTag: "TYPE_A"}

	if fromQueue.PartitionKey() != fromPush.PartitionKey() {
		t.Fatalf("expected identical partition keys, got %q and %q", fromQueue.PartitionKey(), fromPush.PartitionKey())
	}
	if fromQueue.PartitionKey() != "c:a:UPDATE" {
		t.Fatalf("unexpected partition key %q", fromQueue.PartitionKey())
	}
}

func TestPartitionKeyIsCaseSensitiveExceptForDownload(t *testing.T) {
	lower := Operation("download")
	upper := Operation("DOWNLOAD")
	if !lower.IsDownload() || !upper.IsDownload() {
		t.Fatal("expected the download discriminator to be case-insensitive")
	}

	a := PartitionKey("c", "a", "update")
	b := PartitionKey("c", "a", "UPDATE")
	if a == b {
		t.Fatal("expected partition key components to compare case-sensitively")
	}
}

func TestWorkItemValidateRequiresCoreFields(t *testing.T) {
	cases := []struct {
		name string
		item WorkItem
	}{
		{"missing client id", WorkItem{AccountID: "a", Operation: "update", TypeTag: "DEFAULT"}},
		{"missing account id", WorkItem{ClientID: "c", Operation: "update", TypeTag: "DEFAULT"}},
		{"missing operation", WorkItem{ClientID: "c", AccountID: "a", TypeTag: "DEFAULT"}},
		{"missing type tag", WorkItem{ClientID: "c", AccountID: "a", Operation: "update"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.item.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestWorkItemValidateAcceptsCompleteItem(t *testing.T) {
	item := WorkItem{ID: "1", ClientID: "c", AccountID: "a", Operation: "update", TypeTag: "DEFAULT"}
	if err := item.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

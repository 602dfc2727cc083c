package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"review-dispatch/internal/publisher"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type workItem struct {
	id      string
	account string
	op      string
}

// sourceOf builds a source stream of publisher.Emission[workItem] by
// driving a real publisher.PushPublisher, since Emission's completion
// callback is private to that package. A testLocker that always grants
// keeps these tests focused on dispatcher behavior, not gating.
func sourceOf(items ...workItem) <-chan publisher.Emission[workItem] {
	p, err := publisher.NewPush(publisher.PushConfig[workItem]{
		PartitionKeyOf: func(w workItem) string { return w.id },
		Locker:         testLocker{},
	}, discardLogger())
	if err != nil {
		panic(err)
	}

	sub := p.Subscribe()
	out := make(chan publisher.Emission[workItem], len(items))

	go func() {
		for _, it := range items {
			p.Offer(context.Background(), it)
		}
	}()

	go func() {
		for range items {
			out <- <-sub
		}
		close(out)
	}()

	return out
}

type testLocker struct{}

func (testLocker) TryAcquire(string) bool { return true }
func (testLocker) Release(string)         {}

func collect(t *testing.T, results <-chan Result[workItem], n int, timeout time.Duration) []Result[workItem] {
	t.Helper()
	out := make([]Result[workItem], 0, n)
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case r, ok := <-results:
			if !ok {
				t.Fatalf("results channel closed early, got %d of %d", len(out), n)
			}
			out = append(out, r)
		case <-deadline:
			t.Fatalf("timed out waiting for results, got %d of %d", len(out), n)
		}
	}
	return out
}

func isDownload(w workItem) bool { return w.op == "download" }
func accountIDOf(w workItem) string { return w.account }

// TestDownloadSerializationWithinAccount is scenario 2: with a
// non-download item mixed in, the account's three download items
// start strictly in arrival order 1, 2, 4.
func TestDownloadSerializationWithinAccount(t *testing.T) {
	var mu sync.Mutex
	var starts []string
	sleepy := func(ctx context.Context, w workItem) error {
		mu.Lock()
		starts = append(starts, w.id)
		mu.Unlock()
		time.Sleep(80 * time.Millisecond)
		return nil
	}

	d, err := New(Config[workItem]{
		AccountIDOf:    accountIDOf,
		IsDownload:     isDownload,
		Process:        sleepy,
		MaxConcurrency: 10,
	}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src := sourceOf(
		workItem{id: "1", account: "A", op: "download"},
		workItem{id: "2", account: "A", op: "download"},
		workItem{id: "3", account: "A", op: "update"},
		workItem{id: "4", account: "A", op: "download"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := d.Start(ctx, src)

	got := collect(t, results, 4, 2*time.Second)
	if len(got) != 4 {
		t.Fatalf("expected 4 results, got %d", len(got))
	}

	mu.Lock()
	order := append([]string(nil), starts...)
	mu.Unlock()

	downloadOrder := make([]string, 0, 3)
	for _, id := range order {
		if id == "1" || id == "2" || id == "4" {
			downloadOrder = append(downloadOrder, id)
		}
	}
	if fmt.Sprint(downloadOrder) != fmt.Sprint([]string{"1", "2", "4"}) {
		t.Fatalf("expected downloads to start strictly in arrival order 1,2,4; got %v", downloadOrder)
	}
}

// TestAccountIndependence is scenario 3: two different accounts'
// download lanes run concurrently.
func TestAccountIndependence(t *testing.T) {
	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32

	process := func(ctx context.Context, w workItem) error {
		n := concurrent.Add(1)
		defer concurrent.Add(-1)
		for {
			m := maxConcurrent.Load()
			if n <= m || maxConcurrent.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(80 * time.Millisecond)
		return nil
	}

	d, err := New(Config[workItem]{
		AccountIDOf:    accountIDOf,
		IsDownload:     isDownload,
		Process:        process,
		MaxConcurrency: 10,
	}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src := sourceOf(
		workItem{id: "1", account: "A", op: "download"},
		workItem{id: "2", account: "B", op: "download"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := d.Start(ctx, src)
	collect(t, results, 2, 2*time.Second)

	if maxConcurrent.Load() < 2 {
		t.Fatalf("expected both accounts' downloads to run concurrently, max observed concurrency was %d", maxConcurrent.Load())
	}
}

// TestGlobalConcurrencyCap is P3.
func TestGlobalConcurrencyCap(t *testing.T) {
	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32

	process := func(ctx context.Context, w workItem) error {
		n := concurrent.Add(1)
		defer concurrent.Add(-1)
		for {
			m := maxConcurrent.Load()
			if n <= m {
				break
			}
			if maxConcurrent.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		return nil
	}

	const maxCap = 3
	d, err := New(Config[workItem]{
		AccountIDOf:    accountIDOf,
		IsDownload:     isDownload,
		Process:        process,
		MaxConcurrency: maxCap,
	}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := make([]workItem, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, workItem{id: fmt.Sprint(i), account: fmt.Sprintf("acct-%d", i), op: "update"})
	}
	src := sourceOf(items...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := d.Start(ctx, src)
	collect(t, results, len(items), 5*time.Second)

	if maxConcurrent.Load() > int32(maxCap) {
		t.Fatalf("expected concurrency never to exceed %d, observed %d", maxCap, maxConcurrent.Load())
	}
}

// TestUnknownTypeDoesNotStopDispatcher is scenario 4.
func TestUnknownTypeDoesNotStopDispatcher(t *testing.T) {
	var errs int32
	var successes int32

	process := func(ctx context.Context, w workItem) error {
		if w.op == "missing" {
			return errors.New(`no handler registered for type tag "MISSING"`)
		}
		return nil
	}

	d, err := New(Config[workItem]{
		AccountIDOf: accountIDOf,
		IsDownload:  isDownload,
		Process:     process,
		ErrorObserver: func(item workItem, err error) {
			atomic.AddInt32(&errs, 1)
		},
		SuccessObserver: func(item workItem) {
			atomic.AddInt32(&successes, 1)
		},
		ContinueOnError: true,
	}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src := sourceOf(
		workItem{id: "1", account: "X", op: "missing"},
		workItem{id: "2", account: "X", op: "update"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := d.Start(ctx, src)
	collect(t, results, 2, time.Second)

	if errs != 1 {
		t.Fatalf("expected exactly one error observer call, got %d", errs)
	}
	if successes != 1 {
		t.Fatalf("expected the second item to succeed, got %d successes", successes)
	}
}

// TestContinueOnErrorFalseStopsTheRun checks that a failure ends the
// run when continueOnError is false.
func TestContinueOnErrorFalseStopsTheRun(t *testing.T) {
	process := func(ctx context.Context, w workItem) error {
		return errors.New("boom")
	}

	d, err := New(Config[workItem]{
		AccountIDOf:     accountIDOf,
		IsDownload:      isDownload,
		Process:         process,
		ContinueOnError: false,
	}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src := sourceOf(workItem{id: "1", account: "X", op: "update"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := d.Start(ctx, src)

	got := collect(t, results, 1, time.Second)
	if got[0].Outcome != OutcomeFailed {
		t.Fatalf("expected the item to be reported failed, got %s", got[0].Outcome)
	}

	select {
	case _, ok := <-results:
		if ok {
			t.Fatal("expected the results channel to close after a terminal failure with continueOnError=false")
		}
	case <-time.After(time.Second):
		t.Fatal("expected the dispatcher to stop after a terminal failure")
	}
}

package dispatcher

import (
	"context"
	"sync"

	"review-dispatch/internal/publisher"
)

// lane holds the two sub-streams one account is split into: a strictly
// serial download lane and a bounded-parallel lane for everything
// else.
type lane[T any] struct {
	downloadCh chan publisher.Emission[T]
	parallelCh chan publisher.Emission[T]
}

// run is the state of one Start call: its own lanes, its own
// global-concurrency semaphore, its own cancellation.
type run[T any] struct {
	d      *Dispatcher[T]
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	lanes map[string]*lane[T]

	wg  sync.WaitGroup
	sem chan struct{}

	terminalOnce sync.Once
}

// pump reads the merged stream and routes each item into its
// account's lane until the stream closes or the run is cancelled.
func (r *run[T]) pump(merged <-chan publisher.Emission[T], results chan Result[T]) {
	for {
		select {
		case e, ok := <-merged:
			if !ok {
				return
			}
			r.route(e, results)
		case <-r.ctx.Done():
			return
		}
	}
}

// route sends e into the download or parallel lane of its account,
// creating that account's lane on first sight.
func (r *run[T]) route(e publisher.Emission[T], results chan Result[T]) {
	accountID := r.d.cfg.AccountIDOf(e.Item)
	ln := r.laneFor(accountID, results)

	ch := ln.parallelCh
	if r.d.cfg.IsDownload(e.Item) {
		ch = ln.downloadCh
	}

	select {
	case ch <- e:
	case <-r.ctx.Done():
		e.Complete(context.Canceled)
		tryEmit(results, Result[T]{Item: e.Item, Outcome: OutcomeCancelled, Err: context.Canceled})
	}
}

func (r *run[T]) laneFor(accountID string, results chan Result[T]) *lane[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ln, ok := r.lanes[accountID]; ok {
		return ln
	}

	ln := &lane[T]{
		downloadCh: make(chan publisher.Emission[T], r.d.cfg.laneBuffer()),
		parallelCh: make(chan publisher.Emission[T], r.d.cfg.laneBuffer()),
	}
	r.lanes[accountID] = ln

	r.wg.Add(2)
	go r.runDownloadLane(ln, results)
	go r.runParallelLane(ln, results)

	return ln
}

// runDownloadLane processes its account's download-operation items
// one goroutine at a time, which is what makes handler invocations for
// this account's downloads strictly sequential in arrival order (I5,
// P4): the next item is not even dequeued until processItem returns
// for the previous one.
func (r *run[T]) runDownloadLane(ln *lane[T], results chan Result[T]) {
	defer r.d.logger.Debug("download lane stopped")
	defer r.wg.Done()
	for {
		select {
		case e, ok := <-ln.downloadCh:
			if !ok {
				return
			}
			r.processItem(e, results)
		case <-r.ctx.Done():
			r.drainCancelled(ln.downloadCh, results)
			return
		}
	}
}

// runParallelLane dispatches each item to its own goroutine, so that
// distinct items for this account's parallel lane can be in flight
// concurrently; the global semaphore acquired inside processItem is
// what actually bounds total concurrency (P3), not this lane.
func (r *run[T]) runParallelLane(ln *lane[T], results chan Result[T]) {
	defer r.d.logger.Debug("parallel lane stopped")
	defer r.wg.Done()

	var inner sync.WaitGroup
	defer inner.Wait()

	for {
		select {
		case e, ok := <-ln.parallelCh:
			if !ok {
				return
			}
			inner.Add(1)
			go func(e publisher.Emission[T]) {
				defer inner.Done()
				r.processItem(e, results)
			}(e)
		case <-r.ctx.Done():
			r.drainCancelled(ln.parallelCh, results)
			return
		}
	}
}

// processItem runs the RECEIVED -> preObserver -> QUEUED -> permit
// acquired -> RUNNING -> terminal state machine for one item.
func (r *run[T]) processItem(e publisher.Emission[T], results chan Result[T]) {
	if r.d.cfg.PreObserver != nil {
		r.d.cfg.PreObserver(e.Item)
	}

	if !r.acquirePermit() {
		e.Complete(context.Canceled)
		tryEmit(results, Result[T]{Item: e.Item, Outcome: OutcomeCancelled, Err: context.Canceled})
		return
	}
	defer r.releasePermit()

	ctx, span := r.d.tracer.Start(r.ctx, "dispatcher.process")
	err := r.d.cfg.Process(ctx, e.Item)
	span.End()

	e.Complete(err)

	if err != nil {
		if r.d.cfg.ErrorObserver != nil {
			r.d.cfg.ErrorObserver(e.Item, err)
		}
		emitResult(r.ctx, results, Result[T]{Item: e.Item, Outcome: OutcomeFailed, Err: err})
		if !r.d.cfg.ContinueOnError {
			r.terminate()
		}
		return
	}

	if r.d.cfg.SuccessObserver != nil {
		r.d.cfg.SuccessObserver(e.Item)
	}
	emitResult(r.ctx, results, Result[T]{Item: e.Item, Outcome: OutcomeSuccess})
}

// acquirePermit blocks until a global concurrency permit is available
// or the run is cancelled first, in which case it returns false.
func (r *run[T]) acquirePermit() bool {
	select {
	case r.sem <- struct{}{}:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *run[T]) releasePermit() {
	<-r.sem
}

// terminate ends this run, as if its caller's context had been
// cancelled, because continueOnError is false and an item has just
// failed.
func (r *run[T]) terminate() {
	r.terminalOnce.Do(r.cancel)
}

// drainCancelled empties whatever is currently buffered in ch without
// blocking, completing and reporting each item as cancelled. It never
// creates new lock contention: it only unblocks items that were
// already queued when the run was cancelled.
func (r *run[T]) drainCancelled(ch chan publisher.Emission[T], results chan Result[T]) {
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			e.Complete(context.Canceled)
			tryEmit(results, Result[T]{Item: e.Item, Outcome: OutcomeCancelled, Err: context.Canceled})
		default:
			return
		}
	}
}

// emitResult sends r on results, giving up if ctx is done first so a
// cancelled run's goroutines never block forever waiting for a reader
// that has stopped listening.
func emitResult[T any](ctx context.Context, results chan Result[T], r Result[T]) {
	select {
	case results <- r:
	case <-ctx.Done():
	}
}

// tryEmit is a non-blocking best-effort send, used on paths that run
// after cancellation where a reader may already have walked away.
func tryEmit[T any](results chan Result[T], r Result[T]) {
	select {
	case results <- r:
	default:
	}
}

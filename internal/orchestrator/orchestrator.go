// Package orchestrator implements the Worker Pool, Lifecycle Controller,
// and Control Surface that make up the core of a batch download: the Queue,
// Progress Aggregator, Retry Policy, and a Downloader are wired together
// here into one coherent state machine per batch.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ytbatch/internal/constants"
	"ytbatch/internal/downloader"
	"ytbatch/internal/logger"
	"ytbatch/internal/progress"
	"ytbatch/internal/queue"
	"ytbatch/internal/retry"
	"ytbatch/internal/task"
)

// Orchestrator owns exactly one batch from construction through a terminal
// status. It is not reusable across batches; callers construct a new one
// per Add/Start cycle.
type Orchestrator struct {
	config      BatchConfig
	downloader  downloader.Downloader
	retryPolicy retry.Policy

	queue      *queue.Queue
	aggregator *progress.Aggregator
	idGen      task.IDGenerator

	gate *pauseGate

	ctx    context.Context
	cancel context.CancelFunc

	completionCh  chan completionEvent
	lifecycleStop chan struct{}
	done          chan struct{}
	doneOnce      sync.Once

	retryPending atomic.Int64

	statusMu sync.Mutex
	status   progress.Status
	started  bool

	settledMu sync.Mutex
	settled   []*task.Task

	admitMu    sync.Mutex
	activeURLs map[string]struct{}

	wg sync.WaitGroup
}

// New wires a Downloader into a fresh Orchestrator ready for Add/Start. The
// caller supplies the Downloader; everything else (Queue, Aggregator, Retry
// Policy) is built from cfg.
func New(cfg BatchConfig, dl downloader.Downloader) *Orchestrator {
	cfg = cfg.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		config:        cfg,
		downloader:    dl,
		retryPolicy:   cfg.retryPolicy(),
		queue:         queue.New(),
		aggregator:    progress.New(cfg.ProgressNotifyInterval),
		gate:          newPauseGate(),
		ctx:           ctx,
		cancel:        cancel,
		completionCh:  make(chan completionEvent, 64),
		lifecycleStop: make(chan struct{}),
		done:          make(chan struct{}),
		status:        progress.Idle,
		activeURLs:    make(map[string]struct{}),
	}
}

// admitURL reports whether url has no non-terminal task already in the
// batch, reserving it if so. Mirrors the duplicate-admission guard a
// caller backed by persistent storage would run against its active-jobs
// table, but as a plain in-memory set since the orchestrator core holds no
// database.
func (o *Orchestrator) admitURL(url string) bool {
	o.admitMu.Lock()
	defer o.admitMu.Unlock()
	if _, exists := o.activeURLs[url]; exists {
		return false
	}
	o.activeURLs[url] = struct{}{}
	return true
}

// releaseURL frees url for re-admission once its task has settled.
func (o *Orchestrator) releaseURL(url string) {
	o.admitMu.Lock()
	defer o.admitMu.Unlock()
	delete(o.activeURLs, url)
}

func (o *Orchestrator) isCancelled() bool {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	return o.status == progress.Cancelled
}

// checkTermination transitions Running -> Completed once the Queue is
// empty, no retry is pending, and nothing is active. It is called from
// every place that could be the last event of a batch (a normal
// completion, a retry exhausting, or a retry timer requeuing) and is safe
// to call redundantly; only the first caller to observe every condition
// performs the transition.
func (o *Orchestrator) checkTermination() {
	o.statusMu.Lock()
	if o.status != progress.Running {
		o.statusMu.Unlock()
		return
	}
	if o.queue.Size() != 0 || o.retryPending.Load() != 0 || o.aggregator.Snapshot().Active != 0 {
		o.statusMu.Unlock()
		return
	}
	o.status = progress.Completed
	o.statusMu.Unlock()

	o.aggregator.SetStatus(progress.Completed)
	o.teardown()
}

// cancelLocked is the shared body of Cancel() and the stop_on_first_error
// path. It never blocks waiting for the Lifecycle Controller or workers to
// drain, so it is safe to call from the Lifecycle Controller goroutine
// itself without deadlocking against its own teardown.
func (o *Orchestrator) cancelLocked() {
	o.statusMu.Lock()
	if o.status == progress.Cancelled || o.status == progress.Completed {
		o.statusMu.Unlock()
		return
	}
	o.status = progress.Cancelled
	o.statusMu.Unlock()

	o.aggregator.SetStatus(progress.Cancelled)

	o.queue.DrainInto(func(t *task.Task) {
		o.aggregator.TaskCancelled(t.ID, 0)
		o.recordSettled(t)
	})

	o.teardown() // cancels ctx, closes the queue, opens the gate
}

// teardown unblocks every goroutine that could still be parked (a worker in
// queue.Wait or the pause gate, the Lifecycle Controller's select) and
// closes done exactly once. Safe to call on both the normal-completion and
// the cancellation path.
func (o *Orchestrator) teardown() {
	o.doneOnce.Do(func() {
		o.cancel()
		o.queue.Close()
		o.gate.Open()
		close(o.done)
		close(o.lifecycleStop)
	})
}

// Done returns a channel that is closed once the batch has reached a
// terminal status (Completed or Cancelled).
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Wait blocks the caller until the batch reaches a terminal status, then
// joins every worker and the Lifecycle Controller goroutine so Wait never
// returns while a goroutine could still touch the Aggregator. A well-behaved
// batch joins almost immediately after done closes; ShutdownJoinTimeout only
// bounds how long Wait stays silent before logging that the join is taking
// longer than expected. It still waits for the join past that point rather
// than returning early.
func (o *Orchestrator) Wait() {
	<-o.done

	joined := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
		return
	case <-time.After(constants.ShutdownJoinTimeout):
	}
	logger.Log.Warn().Dur("timeout", constants.ShutdownJoinTimeout).Msg("orchestrator: Wait still joining goroutines past ShutdownJoinTimeout")
	<-joined
}

// Settled returns every task that has reached a terminal state so far, in
// settlement order. Safe to call at any point in the batch's life; callers
// that want the complete, final list should call it after Wait returns.
func (o *Orchestrator) Settled() []*task.Task {
	o.settledMu.Lock()
	defer o.settledMu.Unlock()
	out := make([]*task.Task, len(o.settled))
	copy(out, o.settled)
	return out
}

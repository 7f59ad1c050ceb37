// Package progress implements the Progress Aggregator: it folds per-task
// fractional progress and the Lifecycle Controller's terminal counters into
// a single BatchProgress snapshot, and debounces that snapshot out to
// subscribers.
package progress

import (
	"sync"
	"time"

	"github.com/samber/lo"

	"ytbatch/internal/logger"
)

// Status is the batch-wide state reported in every snapshot.
type Status string

const (
	Idle      Status = "idle"
	Running   Status = "running"
	Paused    Status = "paused"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
	Error     Status = "error"
)

// BatchProgress is the stable schema published to subscribers and returned
// by the Control Surface's Progress() query.
type BatchProgress struct {
	Status           Status   `json:"status"`
	Total            int      `json:"total"`
	CompletedCount   int      `json:"completed"`
	FailedCount      int      `json:"failed"`
	CancelledCount   int      `json:"cancelled"`
	Active           int      `json:"active"`
	QueueSize        int      `json:"queue_size"`
	OverallProgress  float64  `json:"overall_progress"`
	CurrentTitle     *string  `json:"current_title"`
	ETASeconds       *float64 `json:"eta_seconds"`
}

// BatchSummary is the stable schema returned by the Control Surface's
// Summary() query.
type BatchSummary struct {
	Status          Status  `json:"status"`
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	Cancelled       int     `json:"cancelled"`
	SuccessRate     float64 `json:"success_rate"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	AvgTaskSeconds  float64 `json:"avg_task_seconds"`
}

// Handle identifies a registered subscriber for Unsubscribe.
type Handle int64

type subscription struct {
	cb   func(BatchProgress)
	last time.Time
}

// Aggregator owns the per-task progress map and the counters it needs to
// compute an overall_progress snapshot. Counters are updated by whichever
// component the spec assigns ownership to (the Lifecycle Controller for
// terminal counts, the Queue for queue_size, the Worker Pool for active
// task progress) by calling the setter methods below; Aggregator itself
// only serializes those writes and the snapshot read behind one mutex.
type Aggregator struct {
	mu sync.Mutex

	total     int
	completed int
	failed    int
	cancelled int
	queueSize int

	status    Status
	startTime time.Time

	progress    map[string]float64
	titles      map[string]string
	activeOrder []string // insertion order of currently-active task_ids

	notifyInterval time.Duration
	subs           map[Handle]*subscription
	nextHandle     Handle

	taskElapsed []time.Duration // completed tasks' durations, for avg_task_seconds
}

// New builds an Aggregator. notifyInterval is the minimum gap between
// subscriber callbacks (BatchConfig.progress_notify_interval).
func New(notifyInterval time.Duration) *Aggregator {
	return &Aggregator{
		status:         Idle,
		progress:       make(map[string]float64),
		titles:         make(map[string]string),
		notifyInterval: notifyInterval,
		subs:           make(map[Handle]*subscription),
	}
}

// AddTotal increases the batch's total task count, called once per Add().
func (a *Aggregator) AddTotal(n int) {
	a.mu.Lock()
	a.total += n
	a.mu.Unlock()
	a.publish(false)
}

// SetQueueSize records the Queue's current size.
func (a *Aggregator) SetQueueSize(n int) {
	a.mu.Lock()
	a.queueSize = n
	a.mu.Unlock()
	a.publish(false)
}

// SetStatus transitions the reported status and always publishes
// immediately: status transitions bypass the debounce interval per §4.6.
func (a *Aggregator) SetStatus(s Status) {
	a.mu.Lock()
	a.status = s
	if s == Running && a.startTime.IsZero() {
		a.startTime = time.Now()
	}
	a.mu.Unlock()
	a.publish(true)
}

// TaskStarted installs a task on the Active set's progress map, ordered by
// insertion so current_title can report the oldest active task's title.
func (a *Aggregator) TaskStarted(taskID, title string) {
	a.mu.Lock()
	a.progress[taskID] = 0
	a.titles[taskID] = title
	a.activeOrder = append(a.activeOrder, taskID)
	a.mu.Unlock()
	a.publish(false)
}

// TaskProgress updates a single active task's fractional progress in [0,1].
func (a *Aggregator) TaskProgress(taskID string, fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	a.mu.Lock()
	if _, ok := a.progress[taskID]; ok {
		a.progress[taskID] = fraction
	}
	a.mu.Unlock()
	a.publish(false)
}

// ActiveRemove removes taskID from the Active set without touching any
// terminal counter. The Worker Pool calls this the instant Fetch returns, so
// that active never double-counts a task the Lifecycle Controller has not
// yet classified — removal from Active and the completion-event emission
// that follows it are two separate, ordered steps (§4.3's ordering
// guarantee), not one atomic transition.
func (a *Aggregator) ActiveRemove(taskID string) {
	a.mu.Lock()
	delete(a.progress, taskID)
	delete(a.titles, taskID)
	a.activeOrder = lo.Filter(a.activeOrder, func(id string, _ int) bool { return id != taskID })
	a.mu.Unlock()
	a.publish(false)
}

func (a *Aggregator) recordElapsed(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	a.mu.Lock()
	a.taskElapsed = append(a.taskElapsed, elapsed)
	a.mu.Unlock()
}

// TaskCompleted increments the terminal completed counter. The task must
// already have been removed from the Active set via ActiveRemove.
func (a *Aggregator) TaskCompleted(taskID string, elapsed time.Duration) {
	a.recordElapsed(elapsed)
	a.mu.Lock()
	a.completed++
	a.mu.Unlock()
	a.publish(false)
}

// TaskFailed increments the terminal failed counter.
func (a *Aggregator) TaskFailed(taskID string, elapsed time.Duration) {
	a.mu.Lock()
	a.failed++
	a.mu.Unlock()
	a.publish(false)
}

// TaskCancelled increments the terminal cancelled counter, whether taskID
// was dequeued and mid-flight (already removed via ActiveRemove) or drained
// straight from the Queue (never active in the first place).
func (a *Aggregator) TaskCancelled(taskID string, elapsed time.Duration) {
	a.mu.Lock()
	a.cancelled++
	a.mu.Unlock()
	a.publish(false)
}

// Snapshot computes the current BatchProgress. Cheap: a single short lock,
// no I/O, safe to call from any goroutine.
func (a *Aggregator) Snapshot() BatchProgress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() BatchProgress {
	terminal := float64(a.completed + a.failed + a.cancelled)
	inFlight := 0.0
	for _, p := range a.progress {
		inFlight += p
	}

	overall := 0.0
	if a.total > 0 {
		overall = (terminal + inFlight) / float64(a.total)
		if overall > 1.0 {
			overall = 1.0
		}
	}

	var currentTitle *string
	if len(a.activeOrder) > 0 {
		t := a.titles[a.activeOrder[0]]
		currentTitle = &t
	}

	var eta *float64
	if a.status == Running && overall > 0 && !a.startTime.IsZero() {
		elapsed := time.Since(a.startTime).Seconds()
		e := elapsed * (1 - overall) / overall
		eta = &e
	}

	return BatchProgress{
		Status:          a.status,
		Total:           a.total,
		CompletedCount:  a.completed,
		FailedCount:     a.failed,
		CancelledCount:  a.cancelled,
		Active:          len(a.progress),
		QueueSize:       a.queueSize,
		OverallProgress: overall,
		CurrentTitle:    currentTitle,
		ETASeconds:      eta,
	}
}

// Summary computes the BatchSummary over the batch's lifetime so far.
func (a *Aggregator) Summary() BatchSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := a.total
	successRate := 0.0
	if total > 0 {
		successRate = float64(a.completed) / float64(lo.Max([]int{1, total})) * 100
	}

	elapsed := 0.0
	if !a.startTime.IsZero() {
		elapsed = time.Since(a.startTime).Seconds()
	}

	avg := 0.0
	if len(a.taskElapsed) > 0 {
		var sum time.Duration
		for _, d := range a.taskElapsed {
			sum += d
		}
		avg = (sum / time.Duration(len(a.taskElapsed))).Seconds()
	}

	return BatchSummary{
		Status:         a.status,
		Total:          total,
		Completed:      a.completed,
		Failed:         a.failed,
		Cancelled:      a.cancelled,
		SuccessRate:    successRate,
		ElapsedSeconds: elapsed,
		AvgTaskSeconds: avg,
	}
}

// Subscribe registers cb for debounced BatchProgress notifications. cb must
// not block: it runs synchronously on whichever goroutine calls publish.
func (a *Aggregator) Subscribe(cb func(BatchProgress)) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextHandle++
	h := a.nextHandle
	a.subs[h] = &subscription{cb: cb}
	return h
}

// Unsubscribe removes a subscriber by handle. A no-op for an unknown handle.
func (a *Aggregator) Unsubscribe(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.subs, h)
}

// publish dispatches the current snapshot to every subscriber whose debounce
// interval has elapsed. force bypasses the interval for status transitions.
func (a *Aggregator) publish(force bool) {
	a.mu.Lock()
	snap := a.snapshotLocked()
	now := time.Now()
	var due []*subscription
	for _, sub := range a.subs {
		if force || now.Sub(sub.last) >= a.notifyInterval {
			sub.last = now
			due = append(due, sub)
		}
	}
	a.mu.Unlock()

	for _, sub := range due {
		a.dispatch(sub, snap)
	}
}

// dispatch invokes a single subscriber, recovering from any panic so a
// misbehaving callback can never interrupt progress flow for the others.
func (a *Aggregator) dispatch(sub *subscription, snap BatchProgress) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Warn().Interface("panic", r).Msg("progress subscriber callback panicked")
		}
	}()
	sub.cb(snap)
}

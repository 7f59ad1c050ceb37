package orchestrator

import (
	"time"

	apperr "ytbatch/internal/errors"
	"ytbatch/internal/logger"
	"ytbatch/internal/task"
)

// runLifecycleController is the single consumer of completionCh. Serializing
// every outcome through one goroutine is what makes the terminal counters,
// the retry budget, and the stop_on_first_error decision race-free without
// their own locks.
func (o *Orchestrator) runLifecycleController() {
	defer o.wg.Done()
	for {
		select {
		case ev, ok := <-o.completionCh:
			if !ok {
				return
			}
			o.handleCompletion(ev)
		case <-o.lifecycleStop:
			return
		}
	}
}

func (o *Orchestrator) handleCompletion(ev completionEvent) {
	t := ev.task
	result := ev.result
	elapsed := t.EndTime.Sub(t.StartTime)

	if result.Success {
		t.State = task.Completed
		o.aggregator.TaskCompleted(t.ID, elapsed)
		o.recordSettled(t)
		o.checkTermination()
		return
	}

	// A cancelled Fetch is never retried and never counts as a failure
	// against stop_on_first_error; it is simply the shape Cancel() takes
	// for an in-flight task.
	if result.ErrorKind == apperr.KindCancelled {
		t.State = task.Cancelled
		o.aggregator.TaskCancelled(t.ID, elapsed)
		o.recordSettled(t)
		o.checkTermination()
		return
	}

	decision := o.retryPolicy.ShouldRetry(result.ErrorKind, t.RetryCount)
	logger.Log.Info().
		Str("task_id", t.ID).
		Str("title", t.Ref.Title).
		Str("error_kind", string(result.ErrorKind)).
		Int("retry_count", t.RetryCount).
		Bool("retry", decision.Retry).
		Dur("delay", decision.Delay).
		Msg("orchestrator: retry decision")
	if decision.Retry {
		t.RetryCount++
		t.Progress = 0
		o.retryPending.Add(1)
		time.AfterFunc(decision.Delay, func() { o.requeueAfterBackoff(t) })
		return
	}

	t.State = task.Failed
	o.aggregator.TaskFailed(t.ID, elapsed)
	o.recordSettled(t)

	if o.config.StopOnFirstError {
		o.cancelLocked()
	}
	o.checkTermination()
}

// requeueAfterBackoff fires from a retry timer goroutine; it puts the task
// back on the Queue and clears the pending-retry count that was blocking
// termination.
func (o *Orchestrator) requeueAfterBackoff(t *task.Task) {
	o.retryPending.Add(-1)
	if o.isCancelled() {
		t.State = task.Cancelled
		o.aggregator.TaskCancelled(t.ID, 0)
		o.recordSettled(t)
		o.checkTermination()
		return
	}
	t.State = task.Waiting
	o.queue.Enqueue(t)
	o.aggregator.SetQueueSize(o.queue.Size())
	o.checkTermination()
}

func (o *Orchestrator) recordSettled(t *task.Task) {
	o.settledMu.Lock()
	o.settled = append(o.settled, t)
	o.settledMu.Unlock()
	o.releaseURL(t.Ref.URL)
}

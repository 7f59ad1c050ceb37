package orchestrator

import (
	"context"
	"time"

	"ytbatch/internal/constants"
	"ytbatch/internal/downloader"
	apperr "ytbatch/internal/errors"
	"ytbatch/internal/logger"
	"ytbatch/internal/task"
)

// runWorker is one logical worker of the bounded pool: wait for the pause
// gate, dequeue, Fetch, report the outcome, repeat. Exactly max_concurrent
// of these run for the life of a batch.
func (o *Orchestrator) runWorker(ctx context.Context) {
	defer o.wg.Done()
	for {
		if !o.gate.Wait(ctx) {
			return
		}
		if o.isCancelled() {
			return
		}

		t, ok := o.queue.TryDequeue()
		if !ok {
			o.queue.Wait()
			continue
		}
		o.aggregator.SetQueueSize(o.queue.Size())

		o.runOne(ctx, t)
	}
}

// runOne dispatches a single task through Fetch and posts the outcome to the
// Lifecycle Controller.
func (o *Orchestrator) runOne(ctx context.Context, t *task.Task) {
	t.State = task.Downloading
	t.StartTime = time.Now()
	o.aggregator.TaskStarted(t.ID, t.Ref.Title)

	sink := downloader.ProgressSinkFunc(func(e downloader.ProgressEvent) {
		fraction := 0.0
		if e.TotalBytes > 0 {
			fraction = float64(e.DownloadedBytes) / float64(e.TotalBytes)
		}
		t.Progress = fraction
		o.aggregator.TaskProgress(t.ID, fraction)
	})

	fetchDone := make(chan struct{})
	go o.watchFetchGracePeriod(ctx, t.ID, fetchDone)

	result := o.fetch(ctx, t, sink)
	close(fetchDone)
	t.EndTime = time.Now()
	t.Result = result

	// Removing from Active happens before the completion event is
	// observable, so no external snapshot ever double-counts this task as
	// both active and settled (§4.3's ordering guarantee).
	o.aggregator.ActiveRemove(t.ID)

	select {
	case o.completionCh <- completionEvent{task: t, result: result}:
	case <-o.done:
		// Batch already finished (e.g. a concurrent Cancel drained and
		// tore down the Controller); drop the event rather than block
		// forever on a channel nobody reads anymore.
	}
}

// watchFetchGracePeriod logs a warning if Fetch is still running
// FetchGracePeriod after ctx is cancelled, since a Downloader is expected to
// honor cancellation and return promptly. done is closed by the caller once
// Fetch actually returns, whichever happens first.
func (o *Orchestrator) watchFetchGracePeriod(ctx context.Context, taskID string, done <-chan struct{}) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}
	select {
	case <-done:
	case <-time.After(constants.FetchGracePeriod):
		logger.Log.Warn().Str("task_id", taskID).Msg("orchestrator: Fetch still running past FetchGracePeriod after cancellation")
	}
}

// fetch calls the Downloader, converting an unexpected panic into the
// Unknown-kind failure result §7 requires rather than letting a single bad
// implementation take down the whole worker pool.
func (o *Orchestrator) fetch(ctx context.Context, t *task.Task, sink downloader.ProgressSink) (result task.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = task.Result{
				Success:   false,
				Err:       apperr.NewWithKind("orchestrator.fetch", apperr.ErrDownloadFailed, apperr.KindUnknown),
				ErrorKind: apperr.KindUnknown,
			}
		}
	}()
	return o.downloader.Fetch(ctx, t.Ref.URL, t.Config, sink)
}

package orchestrator

import (
	"ytbatch/internal/logger"
	"ytbatch/internal/progress"
	"ytbatch/internal/task"
)

// Add admits refs into the batch: each becomes a Task in Waiting and is
// pushed onto the Queue. Legal in Idle or Running; a batch that is Paused,
// Cancelled, or Completed silently ignores the call (§4.7's "illegal
// transitions ... never throw").
func (o *Orchestrator) Add(refs []task.VideoRef, config task.TaskConfig) {
	o.statusMu.Lock()
	status := o.status
	o.statusMu.Unlock()

	if status != progress.Idle && status != progress.Running {
		logger.Log.Warn().Str("status", string(status)).Msg("orchestrator: Add ignored outside Idle/Running")
		return
	}

	admitted := make([]task.VideoRef, 0, len(refs))
	for _, ref := range refs {
		if !o.admitURL(ref.URL) {
			logger.Log.Warn().Str("url", ref.URL).Msg("orchestrator: Add skipped duplicate, already active in this batch")
			continue
		}
		admitted = append(admitted, ref)
	}

	o.aggregator.AddTotal(len(admitted))
	for _, ref := range admitted {
		id := o.idGen.Next(ref.VideoID)
		t := task.New(id, ref, config)
		o.queue.Enqueue(t)
	}
	o.aggregator.SetQueueSize(o.queue.Size())
}

// Start transitions Idle -> Running and spawns the worker pool and the
// Lifecycle Controller. No-op if already Running; illegal (and ignored)
// from Paused, Cancelled, or Completed.
func (o *Orchestrator) Start() {
	o.statusMu.Lock()
	if o.status == progress.Running {
		o.statusMu.Unlock()
		return
	}
	if o.status != progress.Idle {
		o.statusMu.Unlock()
		logger.Log.Warn().Str("status", string(o.status)).Msg("orchestrator: Start illegal outside Idle")
		return
	}
	o.status = progress.Running
	o.started = true
	o.statusMu.Unlock()

	o.aggregator.SetStatus(progress.Running)

	for i := 0; i < o.config.MaxConcurrent; i++ {
		o.wg.Add(1)
		go o.runWorker(o.ctx)
	}
	o.wg.Add(1)
	go o.runLifecycleController()

	// An empty batch (Add never called, or every ref already settled) is
	// trivially done; nobody else will ever call checkTermination for it.
	o.checkTermination()
}

// Pause closes the pause gate: in-flight Fetch calls run to completion, but
// no worker dequeues new work until Resume. Legal only from Running;
// otherwise silently ignored.
func (o *Orchestrator) Pause() {
	o.statusMu.Lock()
	if o.status != progress.Running {
		o.statusMu.Unlock()
		if o.status != progress.Paused {
			logger.Log.Warn().Str("status", string(o.status)).Msg("orchestrator: Pause illegal outside Running")
		}
		return
	}
	o.status = progress.Paused
	o.statusMu.Unlock()

	o.gate.Close()
	o.aggregator.SetStatus(progress.Paused)
}

// Resume opens the pause gate. Legal only from Paused; otherwise silently
// ignored.
func (o *Orchestrator) Resume() {
	o.statusMu.Lock()
	if o.status != progress.Paused {
		o.statusMu.Unlock()
		if o.status != progress.Running {
			logger.Log.Warn().Str("status", string(o.status)).Msg("orchestrator: Resume illegal outside Paused")
		}
		return
	}
	o.status = progress.Running
	o.statusMu.Unlock()

	o.gate.Open()
	o.aggregator.SetStatus(progress.Running)
}

// Cancel signals the shared cancel token, drains the Queue into the
// Cancelled bucket, and lets workers observe the token and return.
// Idempotent: a second call is a no-op (L1).
func (o *Orchestrator) Cancel() {
	o.cancelLocked()
}

// Progress returns a cheap snapshot of the batch's current state.
func (o *Orchestrator) Progress() progress.BatchProgress {
	return o.aggregator.Snapshot()
}

// Summary returns the final/current counters, success rate, and timing
// figures for the batch.
func (o *Orchestrator) Summary() progress.BatchSummary {
	return o.aggregator.Summary()
}

// Subscribe registers cb for every published BatchProgress snapshot.
func (o *Orchestrator) Subscribe(cb func(progress.BatchProgress)) progress.Handle {
	return o.aggregator.Subscribe(cb)
}

// Unsubscribe removes a previously registered callback. Safe to call more
// than once for the same handle.
func (o *Orchestrator) Unsubscribe(h progress.Handle) {
	o.aggregator.Unsubscribe(h)
}

package orchestrator_test

import (
	"testing"
	"time"

	"ytbatch/internal/downloader/downloadertest"
	apperr "ytbatch/internal/errors"
	"ytbatch/internal/orchestrator"
	"ytbatch/internal/progress"
	"ytbatch/internal/task"
)

func refs(n int) []task.VideoRef {
	out := make([]task.VideoRef, n)
	for i := range out {
		out[i] = task.VideoRef{VideoID: "video", URL: urlFor(i), Title: "Video"}
	}
	return out
}

func urlFor(i int) string {
	return "https://example.invalid/" + string(rune('a'+i))
}

func cfg() task.TaskConfig {
	return task.TaskConfig{Quality: "best", Format: "mp4"}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

// S4: a batch of tasks that all succeed immediately reaches Completed with
// every counter accounted for and no task left active or queued.
func TestOrchestrator_AllSucceed(t *testing.T) {
	mock := downloadertest.New()
	o := orchestrator.New(orchestrator.DefaultBatchConfig(), mock)

	o.Add(refs(5), cfg())
	o.Start()

	<-o.Done()
	o.Wait()

	snap := o.Progress()
	if snap.Status != progress.Completed {
		t.Fatalf("status = %v, want Completed", snap.Status)
	}
	if snap.CompletedCount != 5 {
		t.Fatalf("completed = %d, want 5", snap.CompletedCount)
	}
	if snap.Active != 0 || snap.QueueSize != 0 {
		t.Fatalf("active=%d queue_size=%d, want 0,0", snap.Active, snap.QueueSize)
	}
}

// P1/S6: stop_on_first_error cancels the whole batch the moment one task's
// retries are exhausted.
func TestOrchestrator_StopOnFirstError(t *testing.T) {
	mock := downloadertest.New()
	bad := urlFor(0)
	mock.Set(bad, downloadertest.Behavior{FailKind: apperr.KindYouTube, SucceedsAfter: 99})

	c := orchestrator.DefaultBatchConfig()
	c.MaxConcurrent = 2
	c.StopOnFirstError = true
	c.MaxRetries = 0
	o := orchestrator.New(c, mock)

	tasks := refs(5)
	tasks[0].URL = bad
	o.Add(tasks, cfg())
	o.Start()

	<-o.Done()
	o.Wait()

	sum := o.Summary()
	if sum.Status != progress.Cancelled {
		t.Fatalf("status = %v, want Cancelled", sum.Status)
	}
	if sum.Failed != 1 {
		t.Fatalf("failed = %d, want 1", sum.Failed)
	}
}

// P2: a task that fails with a retryable kind and then succeeds ends up
// Completed, and the attempt count reflects the retries.
func TestOrchestrator_RetrySucceedsEventually(t *testing.T) {
	mock := downloadertest.New()
	url := urlFor(0)
	mock.Set(url, downloadertest.Behavior{FailKind: apperr.KindNetwork, SucceedsAfter: 2})

	c := orchestrator.DefaultBatchConfig()
	c.MaxConcurrent = 1
	c.RetryBaseDelay = 5 * time.Millisecond
	o := orchestrator.New(c, mock)

	tasks := refs(1)
	tasks[0].URL = url
	o.Add(tasks, cfg())
	o.Start()

	<-o.Done()
	o.Wait()

	snap := o.Progress()
	if snap.CompletedCount != 1 || snap.FailedCount != 0 {
		t.Fatalf("completed=%d failed=%d, want 1,0", snap.CompletedCount, snap.FailedCount)
	}
	if mock.Calls(url) != 3 {
		t.Fatalf("calls = %d, want 3 (1 initial + 2 retries)", mock.Calls(url))
	}
}

// P3/L1: a non-retryable failure goes straight to Failed without consuming
// any retry budget.
func TestOrchestrator_NonRetryableFailsImmediately(t *testing.T) {
	mock := downloadertest.New()
	url := urlFor(0)
	mock.Set(url, downloadertest.Behavior{FailKind: apperr.KindInvalidInput, SucceedsAfter: 99})

	o := orchestrator.New(orchestrator.DefaultBatchConfig(), mock)
	tasks := refs(1)
	tasks[0].URL = url
	o.Add(tasks, cfg())
	o.Start()

	<-o.Done()
	o.Wait()

	if mock.Calls(url) != 1 {
		t.Fatalf("calls = %d, want 1 (no retry for invalid_input)", mock.Calls(url))
	}
	snap := o.Progress()
	if snap.FailedCount != 1 {
		t.Fatalf("failed = %d, want 1", snap.FailedCount)
	}
}

// S5 (shape of): Pause stops new dequeues but lets in-flight work finish;
// Resume lets the rest proceed to completion.
func TestOrchestrator_PauseResume(t *testing.T) {
	mock := downloadertest.New()
	tasks := refs(3)
	mock.Set(tasks[0].URL, downloadertest.Behavior{Delay: 40 * time.Millisecond})

	c := orchestrator.DefaultBatchConfig()
	c.MaxConcurrent = 1
	o := orchestrator.New(c, mock)
	o.Add(tasks, cfg())
	o.Start()

	time.Sleep(10 * time.Millisecond)
	o.Pause()

	waitFor(t, time.Second, func() bool { return o.Progress().CompletedCount == 1 })

	time.Sleep(20 * time.Millisecond)
	snap := o.Progress()
	if snap.CompletedCount != 1 {
		t.Fatalf("completed while paused = %d, want 1", snap.CompletedCount)
	}
	if snap.QueueSize != 2 {
		t.Fatalf("queue_size while paused = %d, want 2", snap.QueueSize)
	}

	o.Resume()
	<-o.Done()
	o.Wait()

	if o.Progress().CompletedCount != 3 {
		t.Fatalf("final completed = %d, want 3", o.Progress().CompletedCount)
	}
}

// P6/L1: Cancel drains the queue, is idempotent, and settles to active==0.
func TestOrchestrator_CancelDrainsQueueAndIsIdempotent(t *testing.T) {
	mock := downloadertest.New()
	tasks := refs(5)
	mock.Set(tasks[0].URL, downloadertest.Behavior{Delay: time.Second})

	c := orchestrator.DefaultBatchConfig()
	c.MaxConcurrent = 1
	o := orchestrator.New(c, mock)
	o.Add(tasks, cfg())
	o.Start()

	time.Sleep(10 * time.Millisecond)
	o.Cancel()
	o.Cancel() // idempotent, must not panic or double-count

	<-o.Done()
	o.Wait()

	snap := o.Progress()
	if snap.Status != progress.Cancelled {
		t.Fatalf("status = %v, want Cancelled", snap.Status)
	}
	if snap.Active != 0 {
		t.Fatalf("active = %d, want 0", snap.Active)
	}
	if snap.CancelledCount != 5 {
		t.Fatalf("cancelled = %d, want 5 (1 in flight + 4 queued)", snap.CancelledCount)
	}
}

// L2: Pause immediately followed by Resume with no other activity leaves
// counters unchanged and status back at Running.
func TestOrchestrator_PauseResumeNoOpLaw(t *testing.T) {
	mock := downloadertest.New()
	mock.Set(urlFor(0), downloadertest.Behavior{Delay: 100 * time.Millisecond})

	c := orchestrator.DefaultBatchConfig()
	c.MaxConcurrent = 1
	o := orchestrator.New(c, mock)
	tasks := refs(1)
	tasks[0].URL = urlFor(0)
	o.Add(tasks, cfg())
	o.Start()

	time.Sleep(5 * time.Millisecond)
	before := o.Progress()
	o.Pause()
	o.Resume()
	after := o.Progress()

	if before.CompletedCount != after.CompletedCount || before.FailedCount != after.FailedCount {
		t.Fatalf("counters changed across Pause;Resume: before=%+v after=%+v", before, after)
	}
	if after.Status != progress.Running {
		t.Fatalf("status after Pause;Resume = %v, want Running", after.Status)
	}

	<-o.Done()
	o.Wait()
}

// Illegal transitions are silently ignored rather than panicking.
func TestOrchestrator_IllegalTransitionsAreIgnored(t *testing.T) {
	mock := downloadertest.New()
	o := orchestrator.New(orchestrator.DefaultBatchConfig(), mock)

	o.Resume() // illegal before Start; must not panic
	o.Pause()  // illegal before Start; must not panic

	if o.Progress().Status != progress.Idle {
		t.Fatalf("status = %v, want Idle after illegal calls", o.Progress().Status)
	}

	o.Add(refs(1), cfg())
	o.Start()
	o.Start() // no-op, already Running

	<-o.Done()
	o.Wait()

	o.Start()  // illegal once Completed
	o.Resume() // illegal once Completed
	if o.Progress().Status != progress.Completed {
		t.Fatalf("status = %v, want Completed after post-terminal calls", o.Progress().Status)
	}
}

// Add after Start admits more work into the same running batch.
func TestOrchestrator_AddAfterStart(t *testing.T) {
	mock := downloadertest.New()
	mock.Set(urlFor(0), downloadertest.Behavior{Delay: 50 * time.Millisecond})
	c := orchestrator.DefaultBatchConfig()
	c.MaxConcurrent = 1
	o := orchestrator.New(c, mock)

	o.Add(refs(1), cfg())
	o.Start()
	o.Add(refs(2)[1:], cfg())

	<-o.Done()
	o.Wait()

	if o.Progress().Total != 2 || o.Progress().CompletedCount != 2 {
		t.Fatalf("progress = %+v, want total=2 completed=2", o.Progress())
	}
}

// Subscribers observe the final Completed snapshot.
func TestOrchestrator_SubscribeObservesCompletion(t *testing.T) {
	mock := downloadertest.New()
	o := orchestrator.New(orchestrator.DefaultBatchConfig(), mock)

	seen := make(chan progress.BatchProgress, 16)
	h := o.Subscribe(func(bp progress.BatchProgress) {
		select {
		case seen <- bp:
		default:
		}
	})
	defer o.Unsubscribe(h)

	o.Add(refs(2), cfg())
	o.Start()

	<-o.Done()
	o.Wait()

	var last progress.BatchProgress
	for {
		select {
		case bp := <-seen:
			last = bp
			continue
		default:
		}
		break
	}
	if last.Status != progress.Completed {
		t.Fatalf("last observed status = %v, want Completed", last.Status)
	}
}

// A VideoRef whose URL already has a non-terminal task in the batch is
// silently skipped by Add, the way a caller's duplicate-admission guard
// would reject a repeat submission.
func TestOrchestrator_Add_SkipsDuplicateURL(t *testing.T) {
	mock := downloadertest.New()
	o := orchestrator.New(orchestrator.DefaultBatchConfig(), mock)

	dup := task.VideoRef{VideoID: "video", URL: urlFor(0), Title: "Video"}
	o.Add([]task.VideoRef{dup, dup, refs(1)[0]}, cfg())

	if o.Progress().Total != 1 {
		t.Fatalf("Total after adding a duplicate URL twice = %d, want 1", o.Progress().Total)
	}

	o.Start()
	<-o.Done()
	o.Wait()

	if o.Progress().CompletedCount != 1 {
		t.Fatalf("CompletedCount = %d, want 1", o.Progress().CompletedCount)
	}
}

// Once a task settles, its URL is released and can be re-admitted in a
// later Add call on the same still-running batch.
func TestOrchestrator_Add_ReadmitsURLAfterSettling(t *testing.T) {
	mock := downloadertest.New()
	mock.Set(urlFor(1), downloadertest.Behavior{Delay: 200 * time.Millisecond})
	o := orchestrator.New(orchestrator.DefaultBatchConfig(), mock)

	first := task.VideoRef{VideoID: "video", URL: urlFor(0), Title: "Video"}
	slow := task.VideoRef{VideoID: "video2", URL: urlFor(1), Title: "Video2"}
	o.Add([]task.VideoRef{first, slow}, cfg())
	o.Start()

	// Wait for urlFor(0)'s quick task to settle while urlFor(1) is still
	// in flight, which releases urlFor(0) for re-admission.
	waitFor(t, time.Second, func() bool { return o.Progress().CompletedCount >= 1 })

	again := task.VideoRef{VideoID: "video", URL: urlFor(0), Title: "Video again"}
	o.Add([]task.VideoRef{again}, cfg())

	<-o.Done()
	o.Wait()

	if o.Progress().Total != 3 {
		t.Fatalf("Total = %d, want 3 (urlFor(0) re-admitted after settling)", o.Progress().Total)
	}
	if o.Progress().CompletedCount != 3 {
		t.Fatalf("CompletedCount = %d, want 3", o.Progress().CompletedCount)
	}
}

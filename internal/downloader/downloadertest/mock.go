// Package downloadertest provides a scriptable downloader.Downloader for
// exercising the orchestrator's scheduling, retry, and cancellation logic
// without shelling out to yt-dlp.
package downloadertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ytbatch/internal/downloader"
	apperr "ytbatch/internal/errors"
	"ytbatch/internal/task"
)

// Behavior scripts one URL's response to Fetch.
type Behavior struct {
	// Delay is how long Fetch waits before returning, unless ctx is
	// cancelled first.
	Delay time.Duration
	// ProgressAt, if non-zero, reports a single 0.5 progress event after
	// that much of Delay has elapsed (used by scenarios that assert
	// mid-flight progress).
	ProgressAt time.Duration
	// FailKind, if non-empty, makes calls fail with this ErrorKind until
	// SucceedsAfter prior attempts have happened.
	FailKind apperr.ErrorKind
	// SucceedsAfter is how many failing attempts happen before a call
	// succeeds. Ignored if FailKind is empty. With SucceedsAfter == 0 the
	// first call already succeeds; a large value (e.g. 99) makes every call
	// in a test fail.
	SucceedsAfter int
}

// Mock is a downloader.Downloader whose behavior is configured per URL.
type Mock struct {
	mu        sync.Mutex
	behaviors map[string]Behavior
	calls     map[string]int
}

// New builds a Mock with no configured behaviors; Fetch on an unconfigured
// URL succeeds immediately.
func New() *Mock {
	return &Mock{
		behaviors: make(map[string]Behavior),
		calls:     make(map[string]int),
	}
}

// Set configures how url responds to Fetch.
func (m *Mock) Set(url string, b Behavior) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.behaviors[url] = b
}

// Calls reports how many times Fetch has been invoked for url.
func (m *Mock) Calls(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

// Fetch implements downloader.Downloader.
func (m *Mock) Fetch(ctx context.Context, url string, config task.TaskConfig, sink downloader.ProgressSink) task.Result {
	m.mu.Lock()
	b, ok := m.behaviors[url]
	m.calls[url]++
	attempt := m.calls[url]
	m.mu.Unlock()

	if !ok {
		if sink != nil {
			sink.OnProgress(downloader.ProgressEvent{DownloadedBytes: 1, TotalBytes: 1})
		}
		return task.Result{Success: true, OutputPath: url, BytesWritten: 1}
	}

	delay := b.Delay
	if b.ProgressAt > 0 && b.ProgressAt < delay {
		select {
		case <-time.After(b.ProgressAt):
		case <-ctx.Done():
			return cancelledResult()
		}
		if sink != nil {
			sink.OnProgress(downloader.ProgressEvent{DownloadedBytes: 5, TotalBytes: 10})
		}
		delay -= b.ProgressAt
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return cancelledResult()
	}

	willSucceed := b.FailKind == "" || attempt > b.SucceedsAfter
	if !willSucceed {
		return task.Result{
			Success:   false,
			Err:       fmt.Errorf("mock: %s failure on attempt %d", b.FailKind, attempt),
			ErrorKind: b.FailKind,
		}
	}

	if sink != nil {
		sink.OnProgress(downloader.ProgressEvent{DownloadedBytes: 10, TotalBytes: 10})
	}
	return task.Result{Success: true, OutputPath: url, BytesWritten: 10}
}

func cancelledResult() task.Result {
	return task.Result{
		Success:   false,
		Err:       apperr.ErrCancelled,
		ErrorKind: apperr.KindCancelled,
	}
}

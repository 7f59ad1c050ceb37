// Package downloader defines the external contract the orchestrator depends
// on to fetch one video to disk. The concrete yt-dlp-backed implementation
// lives in internal/ytdlp; this package only holds the interface and the
// small supporting types every implementation and every caller shares —
// defined here, at the consumer, rather than beside any one implementation.
package downloader

import (
	"context"

	"ytbatch/internal/task"
)

// ProgressEvent is one update a Downloader reports while a Fetch is in
// flight. TotalBytes, SpeedBPS, and ETASeconds are optional: a Downloader
// that cannot determine them yet (or ever, for a live stream) leaves them
// at zero.
type ProgressEvent struct {
	DownloadedBytes int64
	TotalBytes      int64
	SpeedBPS        float64
	ETASeconds      float64
}

// ProgressSink accepts progress events from an in-flight Fetch. A Downloader
// must emit at least one terminal event with DownloadedBytes == TotalBytes
// on success.
type ProgressSink interface {
	OnProgress(ProgressEvent)
}

// ProgressSinkFunc adapts a plain function to a ProgressSink.
type ProgressSinkFunc func(ProgressEvent)

// OnProgress implements ProgressSink.
func (f ProgressSinkFunc) OnProgress(e ProgressEvent) { f(e) }

// Downloader fetches one URL to disk, reporting progress and honoring
// cancellation. Implementations must be safe for concurrent use by multiple
// workers on distinct URLs; the orchestrator calls Fetch concurrently and
// holds no lock across the call.
//
// ctx is the shared cancel token: the orchestrator signals it to request
// prompt termination, and Fetch must return within a bounded grace period
// with ErrorKind Cancelled once ctx is Done.
//
// Side effects: Fetch writes at most one output file on success; it may
// create and clean up its own temp files; it must classify every failure
// into exactly one of the ErrorKind values in internal/errors before
// returning — the orchestrator never re-classifies.
type Downloader interface {
	Fetch(ctx context.Context, url string, config task.TaskConfig, sink ProgressSink) task.Result
}

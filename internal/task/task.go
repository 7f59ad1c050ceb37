// Package task defines the Task model: the immutable descriptor and mutable
// lifecycle record for one video download inside a batch. Task itself holds
// no synchronization; callers that mutate a Task concurrently (the Worker
// Pool and Lifecycle Controller) are responsible for serializing access the
// way the orchestrator package does.
package task

import (
	"fmt"
	"sync/atomic"
	"time"

	apperr "ytbatch/internal/errors"
	"ytbatch/internal/validate"
)

// VideoRef is the immutable set of inputs identifying one download.
type VideoRef struct {
	VideoID string // opaque 11-character identifier
	URL     string // canonical target URL, derived from VideoID
	Title   string // display string, used only for reporting
}

// NewVideoRef validates id and derives the canonical URL, the only
// constructor path for a VideoRef: the URL is never accepted directly from
// untrusted input.
func NewVideoRef(id, title string) (VideoRef, error) {
	if err := validate.VideoID(id); err != nil {
		return VideoRef{}, err
	}
	return VideoRef{
		VideoID: id,
		URL:     validate.DeriveURL(id),
		Title:   title,
	}, nil
}

// Quality is the enumerated set of fetch resolutions a TaskConfig accepts.
var Quality = []string{"best", "worst", "720p", "1080p", "480p", "360p", "240p", "144p"}

// Format is the enumerated set of container formats a TaskConfig accepts.
var Format = []string{"mp4", "webm", "mkv"}

// TaskConfig is frozen after task creation: per-task fetch parameters handed
// unchanged to the Downloader for the lifetime of the task, including across
// retries.
type TaskConfig struct {
	Quality         string
	Format          string
	OutputDirectory string
	NamingPattern   string
}

// NewTaskConfig validates and normalizes a raw TaskConfig, defaulting Quality
// and Format to the first enumerated value when empty.
func NewTaskConfig(quality, format, outputDirectory, namingPattern string) (TaskConfig, error) {
	q, err := validate.Enum("quality", quality, Quality)
	if err != nil {
		return TaskConfig{}, err
	}
	f, err := validate.Enum("format", format, Format)
	if err != nil {
		return TaskConfig{}, err
	}
	dir, err := validate.DirectoryPath(outputDirectory)
	if err != nil {
		return TaskConfig{}, err
	}
	return TaskConfig{
		Quality:         q,
		Format:          f,
		OutputDirectory: dir,
		NamingPattern:   validate.Filename(namingPattern),
	}, nil
}

// State is one of the five lifecycle states a Task may occupy.
type State string

const (
	Waiting     State = "waiting"
	Downloading State = "downloading"
	Completed   State = "completed"
	Failed      State = "failed"
	Cancelled   State = "cancelled"
)

// Terminal reports whether s is one of the three sticky terminal states.
func (s State) Terminal() bool {
	switch s {
	case Completed, Failed, Cancelled:
		return true
	default:
		return false
	}
}

// Result is the outcome a Downloader returns from Fetch.
type Result struct {
	Success      bool
	OutputPath   string
	BytesWritten int64
	Err          error
	ErrorKind    apperr.ErrorKind
}

// Task is one unit of work: an immutable VideoRef and TaskConfig plus the
// mutable lifecycle fields the orchestrator advances over the task's life.
// A Task is owned by exactly one of {Queue, a Worker, Completed bucket,
// Failed bucket} at any instant; callers outside the owning component must
// only read fields, never mutate them.
type Task struct {
	ID    string
	Ref   VideoRef
	Config TaskConfig

	State      State
	RetryCount int
	Progress   float64
	StartTime  time.Time
	EndTime    time.Time
	Result     Result
}

// IDGenerator mints unique task_id values of the form <video_id>:<seq> within
// a single batch. The zero value is ready to use.
type IDGenerator struct {
	seq atomic.Int64
}

// Next returns the next task_id for videoID. Safe for concurrent use.
func (g *IDGenerator) Next(videoID string) string {
	n := g.seq.Add(1)
	return fmt.Sprintf("%s:%d", videoID, n)
}

// New creates a Task in its initial Waiting state. id should come from an
// IDGenerator shared by the batch that owns this task.
func New(id string, ref VideoRef, config TaskConfig) *Task {
	return &Task{
		ID:     id,
		Ref:    ref,
		Config: config,
		State:  Waiting,
	}
}

// Package constants centralizes the small set of fixed values shared
// across packages that otherwise have no natural owner: app metadata,
// default timeouts, and the bounds applied to history queries.
package constants

import "time"

// Application metadata.
const (
	AppName    = "ytbatch"
	AppID      = "dev.ytbatch.orchestrator"
	AppVersion = "1.0.0"
	ConfigFile = "settings.json"
	DBFile     = "ytbatch.db"
)

// Timeouts.
const (
	// MetadataTimeout bounds a single yt-dlp --dump-json title resolution.
	MetadataTimeout = 30 * time.Second

	// FetchGracePeriod is how long a Downloader gets to return after its
	// ctx is cancelled before the orchestrator considers it stuck.
	FetchGracePeriod = 10 * time.Second

	// ShutdownJoinTimeout bounds how long Orchestrator.Wait's underlying
	// goroutine join is expected to take for a well-behaved batch.
	ShutdownJoinTimeout = 5 * time.Minute
)

// History query bounds, consumed by internal/history.
const (
	// DefaultHistoryLimit is how many batch records a history query
	// returns when the caller doesn't specify a limit.
	DefaultHistoryLimit = 50

	// MaxHistoryLimit caps how many batch records a single history query
	// may request.
	MaxHistoryLimit = 500
)

// MaxFilenameLength bounds a naming_pattern's rendered output filename.
const MaxFilenameLength = 200

// Package notify sends a desktop toast notification when a batch reaches a
// terminal status (Completed or Cancelled), so a user running a long batch
// in the background finds out without watching the window.
package notify

import (
	"fmt"

	toast "git.sr.ht/~jackmordaunt/go-toast/v2"

	"ytbatch/internal/constants"
	"ytbatch/internal/logger"
	"ytbatch/internal/progress"
)

// Notifier fires a toast on a batch's terminal transitions. Constructed
// once per batch and wired in via Orchestrator.Subscribe.
type Notifier struct {
	iconPath   string
	lastStatus progress.Status
}

// New returns a Notifier. iconPath may be empty to use the OS default icon.
func New(iconPath string) *Notifier {
	return &Notifier{iconPath: iconPath}
}

// OnProgress is the callback to pass to Orchestrator.Subscribe.
func (n *Notifier) OnProgress(snapshot progress.BatchProgress) {
	if snapshot.Status == n.lastStatus {
		return
	}
	n.lastStatus = snapshot.Status

	switch snapshot.Status {
	case progress.Completed:
		n.push("Batch complete", fmt.Sprintf("%d of %d downloads finished, %d failed",
			snapshot.CompletedCount, snapshot.Total, snapshot.FailedCount))
	case progress.Cancelled:
		n.push("Batch cancelled", fmt.Sprintf("%d of %d downloads finished before cancellation",
			snapshot.CompletedCount, snapshot.Total))
	}
}

func (n *Notifier) push(title, body string) {
	note := toast.Notification{
		AppID: constants.AppName,
		Title: title,
		Body:  body,
		Icon:  n.iconPath,
	}

	if err := note.Push(); err != nil {
		logger.Log.Warn().Err(err).Str("title", title).Msg("notify: failed to push desktop notification")
	}
}

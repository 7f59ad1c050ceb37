package ytdlp

import (
	"context"
	"strings"

	apperr "ytbatch/internal/errors"
)

// classify maps yt-dlp's combined stdout/stderr text (and the process
// context's own error) to exactly one ErrorKind, per §4.2's requirement
// that the Downloader classify every failure before returning — the
// orchestrator never re-classifies.
func classify(ctx context.Context, output string, procErr error) apperr.ErrorKind {
	if ctx.Err() != nil {
		return apperr.KindCancelled
	}

	lower := strings.ToLower(output)

	switch {
	case containsAny(lower,
		"sign in", "cookies", "login required", "private video", "join this channel"):
		return classifyAuthOrYouTube(lower)
	case containsAny(lower,
		"video unavailable", "has been removed", "copyright", "age-restricted",
		"not available in your country", "this live event", "account associated"):
		return apperr.KindYouTube
	case containsAny(lower,
		"no space left", "permission denied", "read-only file system", "is a directory",
		"cannot create", "file name too long"):
		return apperr.KindFilesystem
	case containsAny(lower,
		"temporary failure in name resolution", "connection refused", "connection reset",
		"timed out", "timeout", "tls handshake", "http error 429", "http error 5",
		"network is unreachable", "no route to host"):
		return apperr.KindNetwork
	default:
		return apperr.KindUnknown
	}
}

// classifyAuthOrYouTube distinguishes a login wall (Authentication) from a
// membership/age restriction the operator cannot resolve by supplying
// credentials alone (YouTube).
func classifyAuthOrYouTube(lower string) apperr.ErrorKind {
	if containsAny(lower, "sign in", "cookies", "login required") {
		return apperr.KindAuthentication
	}
	return apperr.KindYouTube
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

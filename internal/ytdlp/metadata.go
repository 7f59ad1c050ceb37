package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Resolution handles yt-dlp's inconsistent null/string resolution field.
type Resolution string

// UnmarshalJSON accepts null or a string, falling back to empty on anything
// else rather than failing the whole VideoInfo parse over one field.
func (r *Resolution) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*r = ""
		return nil
	}
	*r = Resolution(s)
	return nil
}

// FlexibleInt accepts a JSON number that yt-dlp may emit as either an int or
// a float, depending on the extractor (duration in particular).
type FlexibleInt int64

// UnmarshalJSON accepts null, int, or float64.
func (f *FlexibleInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexibleInt(i)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleInt(int64(n))
		return nil
	}
	*f = 0
	return nil
}

// VideoInfo holds the subset of yt-dlp's --dump-json output this package
// needs to resolve a VideoRef's title before admission.
type VideoInfo struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Duration   FlexibleInt `json:"duration"` // 0 for a live stream; format-agnostic, not special-cased
	Resolution Resolution `json:"resolution"`
}

// FetchTitle resolves a video's display title via yt-dlp --dump-json,
// without downloading anything. Used to populate VideoRef.Title ahead of
// admission; failures here are non-fatal to the caller, which may fall back
// to the bare video_id as a title.
func (c *Client) FetchTitle(ctx context.Context, url string) (string, error) {
	args := []string{
		"--dump-json",
		"--no-playlist",
		"--no-check-formats",
		"--no-warnings",
		"--skip-download",
		"--socket-timeout", "10",
		url,
	}

	cmd := exec.CommandContext(ctx, c.ytDlpPath, args...)
	setSysProcAttr(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("yt-dlp metadata: %s", msg)
	}

	var info VideoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return "", fmt.Errorf("yt-dlp metadata: %w", err)
	}
	return info.Title, nil
}

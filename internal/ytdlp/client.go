// Package ytdlp implements internal/downloader's Downloader contract on top
// of the yt-dlp binary, the way the teacher's internal/youtube package wraps
// the same tool for a single-video GUI workflow.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ytbatch/internal/downloader"
	apperr "ytbatch/internal/errors"
	"ytbatch/internal/task"
)

const (
	// concurrentFragments controls how many fragments yt-dlp pulls in
	// parallel for one video.
	concurrentFragments = "4"
	bufferSize          = "16K"
)

var (
	// progressLine matches yt-dlp's default "[download]" progress line,
	// e.g. "[download]  45.2% of   10.00MiB at    1.21MiB/s ETA 00:05".
	progressLine = regexp.MustCompile(`\[download\]\s+([\d.]+)%(?:\s+of\s+~?\s*([\d.]+\w+))?(?:\s+at\s+([\d.]+\w+/s))?(?:\s+ETA\s+([\d:]+))?`)
	ansiCodes    = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// Client wraps yt-dlp process invocations. It implements
// downloader.Downloader and is safe for concurrent use across URLs: each
// Fetch spawns its own subprocess and holds no shared mutable state besides
// the configured paths.
type Client struct {
	ytDlpPath  string
	ffmpegPath string
	aria2cPath string
}

// NewClient builds a Client. ffmpegPath and aria2cPath may be empty: yt-dlp
// falls back to merging without a remux, and to its built-in downloader
// respectively.
func NewClient(ytDlpPath, ffmpegPath string) *Client {
	return &Client{ytDlpPath: ytDlpPath, ffmpegPath: ffmpegPath}
}

// SetAria2Path enables yt-dlp's aria2c external downloader for multi-
// connection fetches.
func (c *Client) SetAria2Path(path string) { c.aria2cPath = path }

var _ downloader.Downloader = (*Client)(nil)

// Fetch implements downloader.Downloader. It shells out to yt-dlp with
// arguments derived from config, streams progress off combined
// stdout/stderr, and classifies any failure into one ErrorKind before
// returning.
func (c *Client) Fetch(ctx context.Context, url string, config task.TaskConfig, sink downloader.ProgressSink) task.Result {
	args := c.buildArgs(url, config)

	cmd := exec.CommandContext(ctx, c.ytDlpPath, args...)
	setSysProcAttr(cmd)
	cmd.Env = append(cmd.Environ(),
		"PYTHONIOENCODING=utf-8",
		"PYTHONUTF8=1",
		"PYTHONUNBUFFERED=1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return task.Result{Success: false, Err: apperr.Wrap("ytdlp.Fetch", err), ErrorKind: apperr.KindUnknown}
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return task.Result{Success: false, Err: apperr.Wrap("ytdlp.Fetch", err), ErrorKind: apperr.KindUnknown}
	}

	var transcript bytes.Buffer
	var lastDownloaded, lastTotal int64

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := ansiCodes.ReplaceAllString(scanner.Text(), "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		transcript.WriteString(line)
		transcript.WriteByte('\n')

		if downloaded, total, speed, eta, ok := parseProgress(line); ok {
			lastDownloaded, lastTotal = downloaded, total
			if sink != nil {
				sink.OnProgress(downloader.ProgressEvent{
					DownloadedBytes: downloaded,
					TotalBytes:      total,
					SpeedBPS:        speed,
					ETASeconds:      eta,
				})
			}
		}
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		kind := classify(ctx, transcript.String(), waitErr)
		return task.Result{
			Success:   false,
			Err:       apperr.NewWithKind("ytdlp.Fetch", fmt.Errorf("yt-dlp: %w", waitErr), kind),
			ErrorKind: kind,
		}
	}

	total := lastTotal
	if total == 0 {
		total = lastDownloaded
	}
	if sink != nil {
		sink.OnProgress(downloader.ProgressEvent{DownloadedBytes: total, TotalBytes: total})
	}

	return task.Result{
		Success:      true,
		OutputPath:   outputTemplate(config),
		BytesWritten: total,
	}
}

// buildArgs translates a frozen TaskConfig into yt-dlp CLI flags.
func (c *Client) buildArgs(url string, config task.TaskConfig) []string {
	args := []string{
		"--newline",
		"-o", outputTemplate(config),
		"--no-playlist",
		"--no-check-certificate",
		"--no-warnings",
		"--concurrent-fragments", concurrentFragments,
		"--buffer-size", bufferSize,
		"--merge-output-format", config.Format,
	}

	if c.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", c.ffmpegPath)
	}

	if c.aria2cPath != "" {
		args = append(args,
			"--external-downloader", c.aria2cPath,
			"--external-downloader-args", "aria2c:-x 16 -s 16 -k 1M --file-allocation=none",
		)
	}

	args = append(args, "-f", formatSelector(config.Quality))
	args = append(args, url)
	return args
}

// formatSelector translates the enumerated Quality value into a yt-dlp
// format selector expression.
func formatSelector(quality string) string {
	switch quality {
	case "best", "":
		return "bestvideo+bestaudio/best"
	case "worst":
		return "worstvideo+worstaudio/worst"
	default: // "720p", "1080p", ...
		height := strings.TrimSuffix(quality, "p")
		return fmt.Sprintf("bestvideo[height<=%s]+bestaudio/best[height<=%s]", height, height)
	}
}

// outputTemplate builds yt-dlp's -o template from the TaskConfig, falling
// back to yt-dlp's own %(title)s when no naming_pattern was supplied.
func outputTemplate(config task.TaskConfig) string {
	pattern := config.NamingPattern
	if pattern == "" || pattern == "untitled" {
		pattern = "%(title)s"
	}
	ext := config.Format
	if ext == "" {
		ext = "%(ext)s"
	}
	return filepath.Join(config.OutputDirectory, fmt.Sprintf("%s.%s", pattern, ext))
}

// parseProgress extracts downloaded/total bytes, speed, and ETA from one
// yt-dlp "[download]" line. Size and speed tokens are parsed with
// humanize.ParseBytes so "10.00MiB"-style units become exact byte counts.
func parseProgress(line string) (downloaded, total int64, speedBPS, etaSeconds float64, ok bool) {
	m := progressLine.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, 0, 0, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, 0, 0, false
	}

	if m[2] != "" {
		if bytes, err := humanize.ParseBytes(m[2]); err == nil {
			total = int64(bytes)
			downloaded = int64(float64(total) * percent / 100)
		}
	}

	if m[3] != "" {
		speedStr := strings.TrimSuffix(m[3], "/s")
		if bytes, err := humanize.ParseBytes(speedStr); err == nil {
			speedBPS = float64(bytes)
		}
	}

	if m[4] != "" {
		etaSeconds = parseETA(m[4])
	}

	return downloaded, total, speedBPS, etaSeconds, true
}

// parseETA parses yt-dlp's "MM:SS" or "HH:MM:SS" ETA token into seconds.
func parseETA(s string) float64 {
	parts := strings.Split(s, ":")
	var d time.Duration
	mult := []time.Duration{time.Second, time.Minute, time.Hour}
	for i := 0; i < len(parts) && i < len(mult); i++ {
		n, err := strconv.Atoi(parts[len(parts)-1-i])
		if err != nil {
			return 0
		}
		d += time.Duration(n) * mult[i]
	}
	return d.Seconds()
}

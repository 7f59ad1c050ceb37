// Package validate provides input validation functions for the values that
// make up a Task: the video identifier, the output directory, and the
// enumerated TaskConfig fields. All public-facing inputs should be validated
// before a Task is admitted to the queue.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ytbatch/internal/constants"
	apperr "ytbatch/internal/errors"
)

// videoIDPattern matches an opaque 11-character YouTube video identifier.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// DangerousPathPatterns are patterns that could indicate path traversal attacks.
var DangerousPathPatterns = []string{
	"..",
	"~",
	"$",
	"%",
}

// filenameUnsafeChars matches characters not allowed in filenames.
var filenameUnsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// VideoID validates an opaque video identifier against the 11-character
// YouTube-style pattern. video_id is never derived from user-typed URLs here;
// callers resolve the ID upstream (out of scope, see spec's Non-goals).
func VideoID(id string) error {
	if !videoIDPattern.MatchString(id) {
		return apperr.NewWithMessage("validate.VideoID", apperr.ErrInvalidURL,
			fmt.Sprintf("video id %q does not match the expected 11-character pattern", id))
	}
	return nil
}

// DeriveURL builds the canonical watch URL for a validated video_id.
// The URL is derived, never accepted directly from untrusted input.
func DeriveURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// DirectoryPath validates a directory path.
// Returns the cleaned absolute path or an error.
func DirectoryPath(path string) (string, error) {
	if path == "" {
		return "", apperr.NewWithMessage("validate.DirectoryPath", apperr.ErrInvalidURL, "path must not be empty")
	}

	for _, pattern := range DangerousPathPatterns {
		if strings.Contains(path, pattern) {
			return "", apperr.NewWithMessage("validate.DirectoryPath", apperr.ErrPermissionDenied,
				"path contains disallowed characters")
		}
	}

	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return "", apperr.Wrap("validate.DirectoryPath", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Directory doesn't exist yet; caller may create it.
			return absPath, nil
		}
		return "", apperr.Wrap("validate.DirectoryPath", err)
	}

	if !info.IsDir() {
		return "", apperr.NewWithMessage("validate.DirectoryPath", apperr.ErrInvalidURL, "path is not a directory")
	}

	return absPath, nil
}

// Filename sanitizes a filename/naming pattern to be safe for the filesystem.
func Filename(name string) string {
	if name == "" {
		return "untitled"
	}

	safe := filenameUnsafeChars.ReplaceAllString(name, "_")
	safe = strings.Trim(safe, " .")

	if len(safe) > constants.MaxFilenameLength {
		safe = safe[:constants.MaxFilenameLength]
	}

	if safe == "" {
		return "untitled"
	}

	return safe
}

// Enum validates that value is one of allowed (case-insensitive), returning
// the canonical lowercase form, or the first allowed value when value is empty.
func Enum(field, value string, allowed []string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))

	if value == "" {
		return allowed[0], nil
	}

	for _, a := range allowed {
		if value == a {
			return value, nil
		}
	}

	return "", apperr.NewWithMessage("validate."+field, apperr.ErrInvalidURL,
		fmt.Sprintf("unsupported %s: %s", field, value))
}

// PositiveInt ensures an integer is positive, returning a default if not.
func PositiveInt(value, defaultValue int) int {
	if value <= 0 {
		return defaultValue
	}
	return value
}

package app

import (
	"os"
	"path/filepath"
	"runtime"
)

// DevMode is set at build time via ldflags to isolate dev environment from
// production. When true, uses "ytbatch-dev" directory instead of "ytbatch".
// Example: -ldflags "-X 'ytbatch/internal/app.DevMode=true'"
var DevMode string = "false"

func getAppDirName() string {
	if DevMode == "true" {
		return "ytbatch-dev"
	}
	return "ytbatch"
}

// Paths holds the application's filesystem layout: where config and
// downloaded sidecar binaries live, and where finished downloads land by
// default.
type Paths struct {
	AppData   string // %AppData%/ytbatch (config, downloaded deps)
	Bin       string // %AppData%/ytbatch/bin (yt-dlp, ffmpeg, aria2c) - fallback
	Downloads string // ~/Videos/ytbatch (default output_directory)
	ExeDir    string // directory of the running executable, for sidecar detection
}

// GetPaths returns the application paths based on OS.
func GetPaths() (*Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}

	appData := filepath.Join(configDir, getAppDirName())
	bin := filepath.Join(appData, "bin")

	exePath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	var downloads string
	switch runtime.GOOS {
	case "darwin":
		downloads = filepath.Join(homeDir, "Movies", "ytbatch")
	default:
		downloads = filepath.Join(homeDir, "Videos", "ytbatch")
	}

	return &Paths{
		AppData:   appData,
		Bin:       bin,
		Downloads: downloads,
		ExeDir:    exeDir,
	}, nil
}

// EnsureDirectories creates all required directories.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.AppData, p.Bin, p.Downloads} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// getSidecarPaths returns all possible sidecar locations for the current
// OS, in priority order (first match wins). Sidecar binaries are
// pre-bundled executables that ship alongside the installer:
//   - Windows NSIS: ExeDir/bin/
//   - macOS App Bundle: .app/Contents/Resources/bin/ (the executable lives
//     in .app/Contents/MacOS/, so we go up two levels to Resources)
//   - Linux AppImage: alongside the executable (usr/bin/)
func (p *Paths) getSidecarPaths(binaryName string) []string {
	var paths []string

	switch runtime.GOOS {
	case "windows":
		paths = append(paths, filepath.Join(p.ExeDir, "bin", binaryName))
	case "darwin":
		resourcesDir := filepath.Join(p.ExeDir, "..", "Resources", "bin")
		paths = append(paths, filepath.Join(resourcesDir, binaryName))
		paths = append(paths, filepath.Join(p.ExeDir, binaryName))
	default:
		paths = append(paths, filepath.Join(p.ExeDir, binaryName))
		paths = append(paths, filepath.Join(p.ExeDir, "bin", binaryName))
	}

	return paths
}

// getBinaryPath returns the path to a binary, checking sidecar locations
// before the AppData fallback.
func (p *Paths) getBinaryPath(binaryName string) string {
	for _, sidecarPath := range p.getSidecarPaths(binaryName) {
		if fileExists(sidecarPath) {
			return sidecarPath
		}
	}
	return filepath.Join(p.Bin, binaryName)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// YtDlpPath returns the full path to the yt-dlp executable.
func (p *Paths) YtDlpPath() string {
	if runtime.GOOS == "windows" {
		return p.getBinaryPath("yt-dlp.exe")
	}
	return p.getBinaryPath("yt-dlp")
}

// FFmpegPath returns the full path to the ffmpeg executable.
func (p *Paths) FFmpegPath() string {
	if runtime.GOOS == "windows" {
		return p.getBinaryPath("ffmpeg.exe")
	}
	return p.getBinaryPath("ffmpeg")
}

// Aria2cPath returns the full path to the optional aria2c executable,
// used by internal/ytdlp as an external downloader for faster fragment
// concurrency.
func (p *Paths) Aria2cPath() string {
	if runtime.GOOS == "windows" {
		return p.getBinaryPath("aria2c.exe")
	}
	return p.getBinaryPath("aria2c")
}

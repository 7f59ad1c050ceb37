//go:build windows

package ytdlp

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr hides the console window yt-dlp would otherwise spawn.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}

package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"spotafy/internal/config"
	"spotafy/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external tools for cfg. ffprobe is optional:
// without it durations come from the catalog only.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     deps.Resolve(cfg.Acquire.YtDlpBinary, "yt-dlp"),
			Description: "Required for audio downloads",
		},
		{
			Name:        "ffprobe",
			Command:     deps.Resolve(cfg.Acquire.FFprobeBinary, "ffprobe"),
			Description: "Measures downloaded audio duration",
			Optional:    true,
		},
	})
}

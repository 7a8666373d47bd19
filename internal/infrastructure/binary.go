package infrastructure

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/yourusername/ytdesk/internal/domain"
)

// ToolEnv is everything yt-dlp path resolution depends on
type ToolEnv struct {
	Configured   string // explicit path from config, wins when set
	Packaged     bool
	ResourcesDir string // bundle resources root, used when packaged
	WorkDir      string // checkout root, used in development
	GOOS         string
	Exists       func(path string) bool
	LookPath     func(file string) (string, error)
}

// NewToolEnv builds the resolution environment of the running process
func NewToolEnv(cfg domain.YTDLPConfig) ToolEnv {
	env := ToolEnv{
		Configured:   cfg.Binary,
		Packaged:     cfg.Packaged,
		ResourcesDir: cfg.ResourcesDir,
		WorkDir:      cfg.WorkDir,
		GOOS:         runtime.GOOS,
		Exists:       fileExists,
		LookPath:     exec.LookPath,
	}

	// Installed bundles keep resources next to the executable
	if env.Packaged && env.ResourcesDir == "" {
		if execPath, err := os.Executable(); err == nil {
			env.ResourcesDir = filepath.Dir(execPath)
		}
	}
	return env
}

// ytdlpExecutable returns the platform file name of yt-dlp
func ytdlpExecutable(goos string) string {
	if goos == "windows" {
		return "yt-dlp.exe"
	}
	return "yt-dlp"
}

// ResolveYTDLPBinary picks the yt-dlp executable to launch.
// Order: configured path, bundled copy (resources/bin), then PATH.
// When nothing is found the bare name is returned and the launch reports it.
func ResolveYTDLPBinary(env ToolEnv) string {
	if env.Configured != "" {
		return env.Configured
	}

	exe := ytdlpExecutable(env.GOOS)

	var bundled string
	if env.Packaged {
		bundled = filepath.Join(env.ResourcesDir, "bin", exe)
	} else {
		bundled = filepath.Join(env.WorkDir, "resources", "bin", exe)
	}
	if env.Exists != nil && env.Exists(bundled) {
		return bundled
	}

	if env.LookPath != nil {
		if path, err := env.LookPath(exe); err == nil {
			return path
		}
	}
	return exe
}

// fileExists checks if a regular file exists
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

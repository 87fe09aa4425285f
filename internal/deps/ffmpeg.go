package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"sermonmux/internal/services"
)

// Source records which lookup step resolved the engine.
type Source string

const (
	SourceOverride Source = "override"
	SourceBundled  Source = "bundled"
	SourcePath     Source = "path"
)

// FFmpeg describes a resolved engine binary.
type FFmpeg struct {
	Path   string
	Source Source
}

// executablePath is replaced in tests.
var executablePath = os.Executable

// LocateFFmpeg resolves the ffmpeg binary. Lookup order: the configured
// override, an ffmpeg binary next to the running executable, then PATH.
// An override that cannot be resolved is an error rather than a fall-through.
func LocateFFmpeg(override string) (FFmpeg, error) {
	if override = strings.TrimSpace(override); override != "" {
		resolved, err := exec.LookPath(override)
		if err != nil {
			return FFmpeg{}, services.Wrap(services.ErrEngineNotFound, "deps", "locate ffmpeg",
				fmt.Sprintf("configured binary %q not usable", override), err)
		}
		return FFmpeg{Path: resolved, Source: SourceOverride}, nil
	}

	if exe, err := executablePath(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		candidate := filepath.Join(filepath.Dir(exe), ffmpegName())
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			return FFmpeg{Path: candidate, Source: SourceBundled}, nil
		}
	}

	if resolved, err := exec.LookPath(ffmpegName()); err == nil {
		return FFmpeg{Path: resolved, Source: SourcePath}, nil
	}

	return FFmpeg{}, services.Wrap(services.ErrEngineNotFound, "deps", "locate ffmpeg",
		"install ffmpeg, place it next to sermonmux, or set ffmpeg.binary", nil)
}

// CheckFFmpeg reports engine availability as a Status.
func CheckFFmpeg(override string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Muxes video with original and mixed translation audio",
	}
	engine, err := LocateFFmpeg(override)
	if err != nil {
		result.Command = strings.TrimSpace(override)
		if result.Command == "" {
			result.Command = ffmpegName()
		}
		result.Detail = fmt.Sprintf("binary %q not found", result.Command)
		return result
	}
	result.Command = engine.Path
	result.Available = true
	result.Detail = string(engine.Source)
	return result
}

func ffmpegName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

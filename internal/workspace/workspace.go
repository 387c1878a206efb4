// Package workspace resolves the download root and its media subdirectories.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

const (
	videoSubdir = "video"
	audioSubdir = "audio"

	dirPerm = 0o755
)

// mobileDownloadDir is the shared external-storage download folder on Android.
var mobileDownloadDir = "/storage/emulated/0/Download"

// Workspace holds the resolved download directories.
type Workspace struct {
	base  string
	video string
	audio string
}

// New resolves base (explicit, or the platform default when empty) and makes
// sure the video and audio subdirectories exist. A failure to create them is
// logged and construction continues; the download itself will surface the error.
func New(log *slog.Logger, base string) (*Workspace, error) {
	log = log.With(slog.String("package", "workspace"))

	if base == "" {
		var err error

		base, err = DefaultBase()
		if err != nil {
			return nil, fmt.Errorf("default base: %w", err)
		}
	}

	ws := &Workspace{
		base:  base,
		video: filepath.Join(base, videoSubdir),
		audio: filepath.Join(base, audioSubdir),
	}

	for _, dir := range []string{ws.video, ws.audio} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			log.Error("create directory", slog.String("dir", dir), slog.Any("error", err))
		}
	}

	log.Info("workspace ready", slog.String("base", ws.base))

	return ws, nil
}

// DefaultBase returns the mobile shared download folder when running on a
// mobile device, otherwise ~/Downloads.
func DefaultBase() (string, error) {
	if isMobile() {
		return mobileDownloadDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("user home dir: %w", err)
	}

	return filepath.Join(home, "Downloads"), nil
}

func isMobile() bool {
	if runtime.GOOS == "android" || os.Getenv("ANDROID_DATA") != "" || os.Getenv("ANDROID_ROOT") != "" {
		return true
	}

	info, err := os.Stat(mobileDownloadDir)

	return err == nil && info.IsDir()
}

// Base returns the download root.
func (w *Workspace) Base() string { return w.base }

// VideoDir returns <base>/video.
func (w *Workspace) VideoDir() string { return w.video }

// AudioDir returns <base>/audio.
func (w *Workspace) AudioDir() string { return w.audio }

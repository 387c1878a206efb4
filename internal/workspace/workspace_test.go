//nolint:testpackage // overrides the mobile download path
package workspace

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_ExplicitBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "dl")

	ws, err := New(slog.Default(), base)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if ws.Base() != base {
		t.Errorf("got base %q, want %q", ws.Base(), base)
	}

	for _, dir := range []string{ws.VideoDir(), ws.AudioDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist: %v", dir, err)
		}
	}

	if ws.VideoDir() != filepath.Join(base, "video") || ws.AudioDir() != filepath.Join(base, "audio") {
		t.Errorf("unexpected subdirectories %s, %s", ws.VideoDir(), ws.AudioDir())
	}
}

func TestNew_CreateFailureIsLogged(t *testing.T) {
	// a regular file where the base directory should be
	base := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(base, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer

	log := slog.New(slog.NewJSONHandler(&buf, nil))

	ws, err := New(log, base)
	if err != nil {
		t.Fatalf("New() should tolerate creation failure, got %v", err)
	}

	if ws.VideoDir() != filepath.Join(base, "video") {
		t.Errorf("got video dir %s", ws.VideoDir())
	}

	if got := strings.Count(buf.String(), "create directory"); got != 2 {
		t.Errorf("expected 2 logged failures, got %d: %s", got, buf.String())
	}
}

func TestDefaultBase(t *testing.T) {
	orig := mobileDownloadDir
	t.Cleanup(func() { mobileDownloadDir = orig })

	t.Setenv("ANDROID_DATA", "")
	t.Setenv("ANDROID_ROOT", "")

	t.Run("mobile folder present", func(t *testing.T) {
		mobileDownloadDir = t.TempDir()

		got, err := DefaultBase()
		if err != nil {
			t.Fatalf("DefaultBase() failed: %v", err)
		}

		if got != mobileDownloadDir {
			t.Errorf("got %q, want %q", got, mobileDownloadDir)
		}
	})

	t.Run("desktop home downloads", func(t *testing.T) {
		mobileDownloadDir = filepath.Join(t.TempDir(), "missing")
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv("USERPROFILE", home)

		got, err := DefaultBase()
		if err != nil {
			t.Fatalf("DefaultBase() failed: %v", err)
		}

		if want := filepath.Join(home, "Downloads"); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

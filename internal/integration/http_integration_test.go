//go:build integration

package integration_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vidfetch/internal/consts"
	"vidfetch/internal/engine"
	"vidfetch/internal/entity"
	"vidfetch/internal/session"
)

func newMock(interval time.Duration) *engine.Mock {
	mock := engine.NewMock(slog.New(slog.NewTextHandler(io.Discard, nil)), &entity.VideoInfo{
		ID:        "vid-123",
		Title:     "Integration Clip",
		Thumbnail: "",
		Formats: []entity.Format{
			{FormatID: "137", Ext: "mp4", Height: 1080, VCodec: "avc1"},
			{FormatID: "18", Ext: "mp4", Height: 360, VCodec: "avc1", ACodec: "mp4a"},
		},
	})
	mock.Steps = engine.SimulatedSteps(10, 1000)
	mock.Interval = interval

	return mock
}

func TestHTTPCheckThenVideo(t *testing.T) {
	mock := newMock(5 * time.Millisecond)
	fx := newFixture(t, mock)

	code, _ := fx.post(t, "/v1/check", `{"url":"example.com/watch?v=vid-123"}`)
	if code != http.StatusAccepted {
		t.Fatalf("check: got status %d, want %d", code, http.StatusAccepted)
	}

	snap := fx.waitFor(t, "formats", func(s session.Snapshot) bool { return len(s.Formats) > 0 })

	if snap.Title != "Integration Clip" {
		t.Errorf("got title %q, want %q", snap.Title, "Integration Clip")
	}

	if snap.Status != consts.StatusVideoFound {
		t.Errorf("got status %q, want %q", snap.Status, consts.StatusVideoFound)
	}

	label := snap.Formats[0]
	body, _ := json.Marshal(map[string]string{"url": "https://example.com/watch?v=vid-123", "quality": label})

	code, _ = fx.post(t, "/v1/downloads/video", string(body))
	if code != http.StatusAccepted {
		t.Fatalf("video: got status %d, want %d", code, http.StatusAccepted)
	}

	snap = fx.waitFor(t, "video outcome", func(s session.Snapshot) bool {
		_, ok := s.Outcomes[entity.TaskVideo]

		return ok && len(s.Running) == 0
	})

	out := snap.Outcomes[entity.TaskVideo]
	if out.Kind != entity.OutcomeDone || out.Message != consts.ResultVideoDone {
		t.Fatalf("got outcome %+v, want done %q", out, consts.ResultVideoDone)
	}

	if filepath.Dir(out.Path) != fx.ws.VideoDir() {
		t.Errorf("got path %q, want it under %q", out.Path, fx.ws.VideoDir())
	}

	if _, err := os.Stat(out.Path); err != nil {
		t.Errorf("downloaded file: %v", err)
	}

	if len(snap.Progress) != 0 {
		t.Errorf("got progress %v after all tasks finished, want it cleared", snap.Progress)
	}

	calls := mock.Calls()
	if len(calls) != 1 || calls[0].Format != "137+bestaudio/best" {
		t.Errorf("got engine calls %+v, want one with format 137+bestaudio/best", calls)
	}
}

func TestHTTPRepeatedDownloadsGetDistinctNames(t *testing.T) {
	fx := newFixture(t, newMock(time.Millisecond))

	var paths []string

	for range 2 {
		code, _ := fx.post(t, "/v1/downloads/video", `{"url":"https://example.com/v"}`)
		if code != http.StatusAccepted {
			t.Fatalf("video: got status %d, want %d", code, http.StatusAccepted)
		}

		prev := len(paths)
		snap := fx.waitFor(t, "video outcome", func(s session.Snapshot) bool {
			out, ok := s.Outcomes[entity.TaskVideo]

			return ok && len(s.Running) == 0 && (prev == 0 || out.Path != paths[prev-1])
		})

		paths = append(paths, snap.Outcomes[entity.TaskVideo].Path)
	}

	want := []string{
		filepath.Join(fx.ws.VideoDir(), "Integration Clip.mp4"),
		filepath.Join(fx.ws.VideoDir(), "Integration Clip (1).mp4"),
	}

	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("download %d: got %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestHTTPConflictWhileRunning(t *testing.T) {
	fx := newFixture(t, newMock(100*time.Millisecond))

	code, _ := fx.post(t, "/v1/downloads/audio", `{"url":"https://example.com/v"}`)
	if code != http.StatusAccepted {
		t.Fatalf("first audio: got status %d, want %d", code, http.StatusAccepted)
	}

	code, env := fx.post(t, "/v1/downloads/audio", `{"url":"https://example.com/v"}`)
	if code != http.StatusConflict {
		t.Fatalf("second audio: got status %d, want %d", code, http.StatusConflict)
	}

	if env.Message != consts.RespTaskRunning {
		t.Errorf("got message %q, want %q", env.Message, consts.RespTaskRunning)
	}
}

func TestHTTPPauseResume(t *testing.T) {
	fx := newFixture(t, newMock(50*time.Millisecond))

	code, _ := fx.post(t, "/v1/downloads/video", `{"url":"https://example.com/v"}`)
	if code != http.StatusAccepted {
		t.Fatalf("video: got status %d, want %d", code, http.StatusAccepted)
	}

	fx.waitFor(t, "first progress", func(s session.Snapshot) bool { return s.Progress[entity.TaskVideo] > 0 })

	code, _ = fx.post(t, "/v1/pause", "")
	if code != http.StatusOK {
		t.Fatalf("pause: got status %d, want %d", code, http.StatusOK)
	}

	snap := fx.waitFor(t, "paused outcome", func(s session.Snapshot) bool {
		return s.Outcomes[entity.TaskVideo].Kind == entity.OutcomePaused
	})

	if snap.Status != consts.StatusPaused || !snap.Paused {
		t.Fatalf("got status %q paused %v, want %q paused", snap.Status, snap.Paused, consts.StatusPaused)
	}

	if snap.Outcomes[entity.TaskVideo].Message != consts.ResultPaused {
		t.Errorf("got message %q, want %q", snap.Outcomes[entity.TaskVideo].Message, consts.ResultPaused)
	}

	code, env := fx.post(t, "/v1/resume", "")
	if code != http.StatusOK {
		t.Fatalf("resume: got status %d, want %d", code, http.StatusOK)
	}

	var resumed []entity.TaskName
	if err := json.Unmarshal(env.Data, &resumed); err != nil {
		t.Fatalf("decode resumed tasks: %v", err)
	}

	if len(resumed) != 1 || resumed[0] != entity.TaskVideo {
		t.Fatalf("got resumed %v, want [video]", resumed)
	}

	fx.waitFor(t, "video done after resume", func(s session.Snapshot) bool {
		return s.Outcomes[entity.TaskVideo].Kind == entity.OutcomeDone && len(s.Running) == 0
	})

	code, _ = fx.post(t, "/v1/resume", "")
	if code != http.StatusConflict {
		t.Errorf("second resume: got status %d, want %d", code, http.StatusConflict)
	}
}

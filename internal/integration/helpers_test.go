//go:build integration

package integration_test

import (
	"context"
	_ "embed"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidfetch/internal/config"
	"vidfetch/internal/consts"
	"vidfetch/internal/depmanager"
	"vidfetch/internal/dispatch"
	"vidfetch/internal/downloader"
	"vidfetch/internal/engine"
	httprouter "vidfetch/internal/infrastructure/delivery/http"
	"vidfetch/internal/observability"
	"vidfetch/internal/session"
	"vidfetch/internal/workspace"

	"github.com/prometheus/client_golang/prometheus"
)

//go:embed testdata/fake-ytdlp.sh
var fakeYTdlpScript string

const waitTimeout = 10 * time.Second

type fixture struct {
	cfg  *config.Config
	ws   *workspace.Workspace
	srv  *httptest.Server
	sess *session.Session
}

// newFixture wires the whole stack around eng and serves it on an httptest server.
func newFixture(t *testing.T, eng engine.Engine) *fixture {
	t.Helper()

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config new: %v", err)
	}

	base := t.TempDir()
	cfg.Dir.Base = base
	cfg.Dir.Cache = filepath.Join(base, "cache")
	cfg.Dir.CookieFile = ""
	cfg.DepManager.BinsDir = filepath.Join(base, "bins")
	cfg.DepManager.AutoInstall = false
	cfg.Engine.ProgressFreq = 50 * time.Millisecond

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.New(prometheus.NewRegistry())

	ws, err := workspace.New(log, base)
	if err != nil {
		t.Fatalf("workspace new: %v", err)
	}

	depMgr := depmanager.New(log, cfg, metrics)
	dl := downloader.New(log, cfg, ws, eng, depMgr, nil, metrics)

	ctx, cancel := context.WithCancel(context.Background())

	loop := dispatch.NewLoop(log, consts.DefaultDispatchQueue)
	loop.Start(ctx)

	sess := session.New(log, dl, loop, metrics)
	sess.Start(ctx)

	srv := httptest.NewServer(httprouter.New(log, sess, metrics, time.Second))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		sess.Wait()
		loop.Wait()
	})

	return &fixture{cfg: cfg, ws: ws, srv: srv, sess: sess}
}

type envelope struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (fx *fixture) post(t *testing.T, path, body string) (int, envelope) {
	t.Helper()

	res, err := http.Post(fx.srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}

	return res.StatusCode, env
}

func (fx *fixture) status(t *testing.T) session.Snapshot {
	t.Helper()

	res, err := http.Get(fx.srv.URL + "/v1/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer res.Body.Close()

	var env struct {
		Data session.Snapshot `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode status: %v", err)
	}

	return env.Data
}

// waitFor polls the status endpoint until cond holds.
func (fx *fixture) waitFor(t *testing.T, what string, cond func(session.Snapshot) bool) session.Snapshot {
	t.Helper()

	deadline := time.Now().Add(waitTimeout)

	for {
		snap := fx.status(t)
		if cond(snap) {
			return snap
		}

		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot %+v", what, snap)
		}

		time.Sleep(20 * time.Millisecond)
	}
}

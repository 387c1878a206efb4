// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidfetch/internal/config"
	"vidfetch/internal/consts"
	"vidfetch/internal/depmanager"
	"vidfetch/internal/dispatch"
	"vidfetch/internal/downloader"
	"vidfetch/internal/engine"
	"vidfetch/internal/entity"
	httprouter "vidfetch/internal/infrastructure/delivery/http"
	"vidfetch/internal/observability"
	"vidfetch/internal/proxy"
	"vidfetch/internal/session"
	"vidfetch/internal/workspace"
	httpserver "vidfetch/pkg/http/server"
	"vidfetch/pkg/logger"
)

const goroutineSampleInterval = 15 * time.Second

// demoInfo is served by the mock engine.
var demoInfo = &entity.VideoInfo{
	ID:        "demo",
	Title:     "Demo Video",
	Thumbnail: "https://i.ytimg.com/vi/demo/maxresdefault.jpg",
	Formats: []entity.Format{
		{FormatID: "137", Ext: "mp4", Height: 1080, VCodec: "avc1"},
		{FormatID: "22", Ext: "mp4", Height: 720, VCodec: "avc1", ACodec: "mp4a"},
		{FormatID: "140", Ext: "m4a", VCodec: "none", ACodec: "mp4a"},
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	metrics := observability.New(nil)

	depMgr := depmanager.New(log, cfg, metrics)

	log.InfoContext(ctx, "checking if yt-dlp and ffmpeg are installed. it may take some time...")

	depMgr.Start(ctx)

	proxyMgr, err := proxy.New(log, cfg.Proxy, metrics)
	if err != nil {
		log.ErrorContext(ctx, "proxy new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	if proxyMgr.Count() > 0 {
		log.InfoContext(ctx, "proxy manager initialized", slog.Int("proxy_count", proxyMgr.Count()))
	}

	var eng engine.Engine

	switch cfg.App.Engine {
	case consts.EngineMock:
		eng = engine.NewMock(log, demoInfo)
	default:
		executable := cfg.Engine.Binary
		if executable == "" {
			executable = depMgr.Executable()
		}

		eng = engine.NewYTdlp(log, cfg, executable, proxyMgr)
	}

	ws, err := workspace.New(log, cfg.Dir.Base)
	if err != nil {
		log.ErrorContext(ctx, "workspace new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	dl := downloader.New(log, cfg, ws, eng, depMgr, proxyMgr.HTTPClient(cfg.Thumbnail.Timeout), metrics)

	loop := dispatch.NewLoop(log, consts.DefaultDispatchQueue)
	loop.Start(ctx)

	sess := session.New(log, dl, loop, metrics)
	sess.Subscribe(func(ev session.Event) {
		log.DebugContext(ctx, "session event",
			slog.String("kind", string(ev.Kind)),
			slog.String("task", string(ev.Task)),
			slog.Any("snapshot", ev.Snapshot))
	})
	sess.Start(ctx)

	router := httprouter.New(log, sess, metrics, cfg.HTTP.HandlerTimeout)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	go sampleGoroutines(ctx, metrics)

	log.InfoContext(ctx, "vidfetch started",
		slog.String("port", cfg.HTTP.Port),
		slog.String("engine", cfg.App.Engine))

	// Waiting for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		log.ErrorContext(ctx, "http server", slog.Any("error", err))
		stop()
	}

	err = httpSrv.Shutdown()
	if err != nil {
		log.Error(err.Error())
	}

	sess.Wait()
	loop.Wait()

	log.Info("vidfetch shut down gracefully")
}

func sampleGoroutines(ctx context.Context, metrics *observability.Metrics) {
	ticker := time.NewTicker(goroutineSampleInterval)
	defer ticker.Stop()

	for {
		metrics.SampleGoroutines()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

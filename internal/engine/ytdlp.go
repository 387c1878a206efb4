package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vidfetch/internal/config"
	"vidfetch/internal/consts"
	"vidfetch/internal/entity"
	"vidfetch/pkg/calc"

	"github.com/lrstanley/go-ytdlp"
)

const (
	defaultProgressFreq = 200 * time.Millisecond

	// changing this may break ParseFilepath().
	printAfterMove = "after_move:filepath"
)

// ProxyPicker hands out a proxy URL for one engine run. Empty means direct.
type ProxyPicker interface {
	GetProxy(ctx context.Context) (string, error)
}

// YTdlp drives the yt-dlp executable through go-ytdlp.
type YTdlp struct {
	log        *slog.Logger
	cfg        *config.Config
	executable string
	proxies    ProxyPicker
}

var _ Engine = (*YTdlp)(nil)

// NewYTdlp creates a yt-dlp engine. An empty executable lets go-ytdlp resolve it from PATH.
func NewYTdlp(log *slog.Logger, cfg *config.Config, executable string, proxies ProxyPicker) *YTdlp {
	return &YTdlp{
		log:        log.With(slog.String("package", "engine"), slog.String("engine", consts.EngineYTdlp)),
		cfg:        cfg,
		executable: executable,
		proxies:    proxies,
	}
}

// command returns a builder with the options shared by every run.
func (y *YTdlp) command(ctx context.Context) *ytdlp.Command {
	cmd := ytdlp.New().NoPlaylist()

	if y.executable != "" {
		cmd = cmd.SetExecutable(y.executable)
	}

	if y.cfg.Dir.Cache != "" {
		cmd = cmd.CacheDir(y.cfg.Dir.Cache)
	}

	if y.cfg.Dir.CookieFile != "" {
		cmd = cmd.Cookies(y.cfg.Dir.CookieFile)
	}

	if y.proxies != nil {
		proxyURL, err := y.proxies.GetProxy(ctx)
		if err != nil {
			y.log.WarnContext(ctx, "failed to get healthy proxy", slog.Any("error", err))
		} else if proxyURL != "" {
			y.log.DebugContext(ctx, "using proxy", slog.String("proxy", proxyURL))
			cmd = cmd.Proxy(proxyURL)
		}
	}

	return cmd
}

// Extract queries metadata without downloading.
func (y *YTdlp) Extract(ctx context.Context, url string) (*entity.VideoInfo, error) {
	log := y.log.With(slog.String("func", "Extract"), slog.String("url", url))

	res, err := y.command(ctx).
		SkipDownload().
		DumpJSON().
		NoWarnings().
		Run(ctx, url)
	if err != nil {
		log.ErrorContext(ctx, "ytdlp run", slog.Any("error", err), slog.Any("result", runResult{res}))

		return nil, fmt.Errorf("ytdlp extract: %w", err)
	}

	info, err := ParseInfoJSON(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("parse info json: %w", err)
	}

	log.DebugContext(ctx, "metadata extracted", slog.Any("info", info))

	return info, nil
}

// hookState records the first error returned by the hook.
type hookState struct {
	mu  sync.Mutex
	err error
}

func (h *hookState) set(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err == nil {
		h.err = err
	}
}

func (h *hookState) get() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.err
}

// Download runs yt-dlp with opts. When hook fails the run is killed through its
// context and the hook error is returned.
func (y *YTdlp) Download(ctx context.Context, url string, opts Options, hook Hook) (*Result, error) {
	log := y.log.With(slog.String("func", "Download"), slog.String("url", url))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var state hookState

	progressFn := func(update ytdlp.ProgressUpdate) {
		if runCtx.Err() != nil {
			return
		}

		log.DebugContext(ctx, "ytdlp progress", slog.Any("progress_update", progressUpdate{&update}))

		if err := hook(fromUpdate(update)); err != nil {
			state.set(err)
			cancel()
		}
	}

	freq := y.cfg.Engine.ProgressFreq
	if freq <= 0 {
		freq = defaultProgressFreq
	}

	cmd := y.command(ctx).
		Output(opts.Output).
		ProgressFunc(freq, progressFn).
		Print(printAfterMove)

	if opts.Format != "" {
		cmd = cmd.Format(opts.Format)
	}

	if opts.MergeOutputFormat != "" {
		cmd = cmd.MergeOutputFormat(opts.MergeOutputFormat)
	}

	if opts.FFmpegLocation != "" {
		cmd = cmd.FFmpegLocation(opts.FFmpegLocation)
	}

	if opts.ConcurrentFragments > 0 {
		cmd = cmd.ConcurrentFragments(opts.ConcurrentFragments)
	}

	if opts.ExtractAudio {
		cmd = cmd.ExtractAudio().AudioFormat(opts.AudioFormat).AudioQuality(opts.AudioQuality)
	}

	res, err := cmd.Run(runCtx, url)

	if hookErr := state.get(); hookErr != nil {
		log.InfoContext(ctx, "download aborted by hook", slog.Any("reason", hookErr))

		return nil, hookErr
	}

	if err != nil {
		log.ErrorContext(ctx, "ytdlp run", slog.Any("error", err), slog.Any("result", runResult{res}))

		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("ytdlp download: %w", ctx.Err())
		}

		return nil, fmt.Errorf("ytdlp download: %w", err)
	}

	out := &Result{Filepath: ParseFilepath(res.Stdout)}

	log.InfoContext(ctx, "done", slog.String("filepath", out.Filepath))

	return out, nil
}

// fromUpdate converts a go-ytdlp progress update into the engine payload.
// go-ytdlp reports byte counters only, so rate and remaining time are derived from the start time.
func fromUpdate(update ytdlp.ProgressUpdate) Progress {
	prog := Progress{
		Status:          Status(fmt.Sprint(update.Status)),
		Filename:        update.Filename,
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
		Speed:           calc.Speed(int64(update.DownloadedBytes), update.Started),
	}

	if eta, ok := calc.ETA(prog.DownloadedBytes, prog.TotalBytes, update.Started); ok {
		prog.ETASeconds = int64(eta.Round(time.Second) / time.Second)
		prog.HasETA = true
	}

	switch {
	case prog.TotalBytes > 0:
		prog.PercentStr = fmt.Sprintf("%.1f%%", calc.Fraction(prog.DownloadedBytes, prog.TotalBytes)*100)
	case update.FragmentCount > 0:
		prog.PercentStr = fmt.Sprintf("%.1f%%", float64(update.FragmentIndex)/float64(update.FragmentCount)*100)
	}

	return prog
}

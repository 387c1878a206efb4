// Package downloader orchestrates metadata lookup, collision-free naming,
// progress normalization and cooperative cancellation around the engine.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"vidfetch/internal/config"
	"vidfetch/internal/consts"
	"vidfetch/internal/engine"
	"vidfetch/internal/entity"
	"vidfetch/internal/errs"
	"vidfetch/internal/observability"
)

const (
	defaultVideoFormat = "bestvideo+bestaudio/best"
	audioFormat        = "bestaudio/best"
	videoContainer     = "mp4"
	audioCodec         = "mp3"
)

// nativeAudioExts are the containers bestaudio lands in when no encoder is available.
var nativeAudioExts = []string{"m4a", "webm", "opus", "ogg", "mp3", "aac"}

// ProgressFunc receives a fraction in [0, 1] and a human readable status line.
type ProgressFunc func(fraction float64, status string)

// CancelCheck is polled on every engine progress update.
type CancelCheck func() bool

// Dirs provides the output directories.
type Dirs interface {
	VideoDir() string
	AudioDir() string
}

// EncoderLocator finds the encoder binary. local is true when the binary sits
// at the application's own fixed location rather than on the search path.
type EncoderLocator interface {
	LocateEncoder() (path string, local bool, err error)
}

// Downloader runs video, audio and thumbnail downloads.
type Downloader struct {
	log      *slog.Logger
	cfg      *config.Config
	dirs     Dirs
	engine   engine.Engine
	encoders EncoderLocator
	client   *http.Client
	metrics  *observability.Metrics
}

// New creates a Downloader. client is used for thumbnail fetches.
func New(
	log *slog.Logger,
	cfg *config.Config,
	dirs Dirs,
	eng engine.Engine,
	encoders EncoderLocator,
	client *http.Client,
	metrics *observability.Metrics,
) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: cfg.Thumbnail.Timeout}
	}

	return &Downloader{
		log:      log.With(slog.String("package", "downloader")),
		cfg:      cfg,
		dirs:     dirs,
		engine:   eng,
		encoders: encoders,
		client:   client,
		metrics:  metrics,
	}
}

// GetVideoInfo queries the engine without downloading.
func (d *Downloader) GetVideoInfo(ctx context.Context, url string) (*entity.VideoInfo, error) {
	info, err := d.engine.Extract(ctx, url)
	if err != nil {
		d.log.ErrorContext(ctx, "error fetching info", slog.String("url", url), slog.Any("error", err))

		return nil, fmt.Errorf("%w: %w", errs.ErrNoMetadata, err)
	}

	if info == nil {
		return nil, errs.ErrNoMetadata
	}

	return info, nil
}

// DownloadVideo downloads formatID merged with the best audio into an mp4.
// An empty formatID picks the best video.
func (d *Downloader) DownloadVideo(
	ctx context.Context,
	url, formatID string,
	onProgress ProgressFunc,
	cancelled CancelCheck,
) entity.Outcome {
	opts := engine.Options{
		Format:            defaultVideoFormat,
		MergeOutputFormat: videoContainer,
	}

	if formatID != "" {
		opts.Format = formatID + "+bestaudio/best"
	}

	if path, local := d.encoder(ctx); local {
		opts.FFmpegLocation = path
	}

	res, err := d.run(ctx, entity.TaskVideo, url, d.dirs.VideoDir(), []string{videoContainer}, opts,
		onProgress, cancelled, consts.StatusProcessing)
	if err != nil {
		return d.outcome(ctx, entity.TaskVideo, err)
	}

	return d.done(ctx, entity.TaskVideo, consts.ResultVideoDone, res.Filepath)
}

// DownloadAudio downloads the best audio. With an encoder available it is
// transcoded to mp3, otherwise it stays in its native container.
func (d *Downloader) DownloadAudio(
	ctx context.Context,
	url string,
	onProgress ProgressFunc,
	cancelled CancelCheck,
) entity.Outcome {
	opts := engine.Options{
		Format:              audioFormat,
		ConcurrentFragments: d.cfg.Engine.ConcurrentFragments,
	}

	path, local := d.encoder(ctx)
	hasEncoder := path != ""

	exts, finishedLabel := nativeAudioExts, consts.StatusFinishing
	if hasEncoder {
		opts.ExtractAudio = true
		opts.AudioFormat = audioCodec
		opts.AudioQuality = d.cfg.Engine.AudioQuality
		exts, finishedLabel = []string{audioCodec}, consts.StatusConverting
	}

	if local {
		opts.FFmpegLocation = path
	}

	res, err := d.run(ctx, entity.TaskAudio, url, d.dirs.AudioDir(), exts, opts, onProgress, cancelled, finishedLabel)
	if err != nil {
		return d.outcome(ctx, entity.TaskAudio, err)
	}

	if hasEncoder {
		return d.done(ctx, entity.TaskAudio, consts.ResultAudioDoneMP3, res.Filepath)
	}

	ext := strings.TrimPrefix(filepath.Ext(res.Filepath), ".")
	if ext == "" {
		ext = "audio"
	}

	return d.done(ctx, entity.TaskAudio, fmt.Sprintf(consts.ResultAudioDoneNative, ext), res.Filepath)
}

// run resolves a collision-free name and drives the engine with a hook that
// polls cancelled before forwarding normalized progress.
func (d *Downloader) run(
	ctx context.Context,
	task entity.TaskName,
	url, dir string,
	exts []string,
	opts engine.Options,
	onProgress ProgressFunc,
	cancelled CancelCheck,
	finishedLabel string,
) (*engine.Result, error) {
	log := d.log.With(slog.String("task", string(task)), slog.String("url", url))

	info, err := d.engine.Extract(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("extract title: %w", err)
	}

	title := info.Title
	if title == "" {
		title = string(task)
	}

	name := UniqueName(dir, Sanitize(title, mediaNameRunes, string(task)), exts...)
	opts.Output = filepath.Join(dir, name+".%(ext)s")

	log.InfoContext(ctx, "download starting", slog.String("output", opts.Output), slog.String("format", opts.Format))

	var finished bool

	hook := func(p engine.Progress) error {
		if cancelled != nil && cancelled() {
			return errs.ErrDownloadCancelled
		}

		fraction, status, ok := Normalize(p, finishedLabel)
		if !ok {
			return nil
		}

		finished = finished || p.Status == engine.StatusFinished

		if onProgress != nil {
			onProgress(fraction, status)
		}

		return nil
	}

	res, err := d.engine.Download(ctx, url, opts, hook)
	if err != nil {
		return nil, err
	}

	if !finished && onProgress != nil {
		onProgress(1, finishedLabel)
	}

	if res.Filepath == "" {
		res.Filepath = written(dir, name, exts)
		log.DebugContext(ctx, "engine reported no path", slog.String("path", res.Filepath))
	}

	return res, nil
}

// written finds the file saved under name in one of exts, trying exts in
// order. It falls back to the first extension when none is on disk.
func written(dir, name string, exts []string) string {
	matches, err := filepath.Glob(filepath.Join(dir, name+".*"))
	if err == nil {
		for _, ext := range exts {
			if i := slices.Index(matches, filepath.Join(dir, name+"."+ext)); i >= 0 {
				return matches[i]
			}
		}
	}

	return filepath.Join(dir, name+"."+exts[0])
}

// encoder returns the encoder path, or "" when none can be found.
func (d *Downloader) encoder(ctx context.Context) (path string, local bool) {
	if d.encoders == nil {
		return "", false
	}

	path, local, err := d.encoders.LocateEncoder()
	if err != nil {
		d.log.DebugContext(ctx, "no encoder", slog.Any("error", err))

		return "", false
	}

	return path, local
}

func (d *Downloader) done(ctx context.Context, task entity.TaskName, message, path string) entity.Outcome {
	out := entity.Outcome{Kind: entity.OutcomeDone, Message: message, Path: path}

	d.log.InfoContext(ctx, "download finished", slog.String("task", string(task)), slog.Any("outcome", out))
	d.metrics.RecordDownload(string(task), string(out.Kind))

	return out
}

// outcome maps a failed attempt to its user facing result. Cancellation is the
// only distinguished case.
func (d *Downloader) outcome(ctx context.Context, task entity.TaskName, err error) entity.Outcome {
	out := entity.Outcome{Kind: entity.OutcomeFailed, Message: consts.ResultErrorPrefix + err.Error(), Err: err}

	if errors.Is(err, errs.ErrDownloadCancelled) {
		out = entity.Outcome{Kind: entity.OutcomePaused, Message: consts.ResultPaused, Err: err}
		d.log.InfoContext(ctx, "download paused", slog.String("task", string(task)))
	} else {
		d.log.ErrorContext(ctx, "download failed", slog.String("task", string(task)), slog.Any("error", err))
	}

	d.metrics.RecordDownload(string(task), string(out.Kind))

	return out
}

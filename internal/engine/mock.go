package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"vidfetch/internal/consts"
	"vidfetch/internal/entity"
)

const (
	mockSteps     = 10
	mockTotalSize = 10 * 1024 * 1024
)

// Mock is a scripted engine. It replays Steps through the hook and, when
// WriteFiles is set, creates the output file so naming can be observed.
type Mock struct {
	log *slog.Logger

	Info        *entity.VideoInfo
	ExtractErr  error
	Steps       []Progress
	Interval    time.Duration
	DownloadErr error
	// Ext replaces %(ext)s in the output template. Defaults to the merge or audio format.
	Ext        string
	WriteFiles bool
	// HidePath leaves Result.Filepath empty, as engines that cannot report the final file do.
	HidePath bool

	mu      sync.Mutex
	calls   []Options
	extract int
}

var _ Engine = (*Mock)(nil)

// NewMock returns a mock engine that simulates a download of info over
// consts.DefaultSimulateTime.
func NewMock(log *slog.Logger, info *entity.VideoInfo) *Mock {
	return &Mock{
		log:        log.With(slog.String("package", "engine"), slog.String("engine", consts.EngineMock)),
		Info:       info,
		Steps:      SimulatedSteps(mockSteps, mockTotalSize),
		Interval:   consts.DefaultSimulateTime / mockSteps,
		WriteFiles: true,
	}
}

// SimulatedSteps returns n evenly spaced downloading updates followed by a finished update.
func SimulatedSteps(n int, total int64) []Progress {
	steps := make([]Progress, 0, n+1)

	for step := 1; step <= n; step++ {
		done := total * int64(step) / int64(n)
		steps = append(steps, Progress{
			Status:          StatusDownloading,
			DownloadedBytes: done,
			TotalBytes:      total,
			Speed:           float64(total) / float64(n),
			ETASeconds:      int64(n - step),
			HasETA:          true,
		})
	}

	return append(steps, Progress{Status: StatusFinished, DownloadedBytes: total, TotalBytes: total, HasETA: true})
}

// Extract returns the scripted metadata.
func (m *Mock) Extract(ctx context.Context, url string) (*entity.VideoInfo, error) {
	m.mu.Lock()
	m.extract++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.ExtractErr != nil {
		return nil, m.ExtractErr
	}

	if m.Info == nil {
		return nil, fmt.Errorf("mock extract %s: no info scripted", url)
	}

	info := *m.Info

	return &info, nil
}

// Download replays the scripted steps.
func (m *Mock) Download(ctx context.Context, url string, opts Options, hook Hook) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, opts)
	m.mu.Unlock()

	var ticker *time.Ticker
	if m.Interval > 0 {
		ticker = time.NewTicker(m.Interval)
		defer ticker.Stop()
	}

	for _, step := range m.Steps {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			}
		}

		if err := hook(step); err != nil {
			if m.log != nil {
				m.log.InfoContext(ctx, "download aborted by hook", slog.String("url", url), slog.Any("reason", err))
			}

			return nil, err
		}
	}

	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}

	res := &Result{Filepath: strings.ReplaceAll(opts.Output, "%(ext)s", m.ext(opts))}

	if m.WriteFiles {
		if err := os.WriteFile(res.Filepath, []byte("mock media"), 0o644); err != nil { //nolint:gosec
			return nil, fmt.Errorf("write mock file: %w", err)
		}
	}

	if m.HidePath {
		res.Filepath = ""
	}

	return res, nil
}

func (m *Mock) ext(opts Options) string {
	switch {
	case m.Ext != "":
		return m.Ext
	case opts.ExtractAudio && opts.AudioFormat != "":
		return opts.AudioFormat
	case opts.MergeOutputFormat != "":
		return opts.MergeOutputFormat
	default:
		return "webm"
	}
}

// Calls returns the options of every Download call so far.
func (m *Mock) Calls() []Options {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Options(nil), m.calls...)
}

// ExtractCalls returns how many times Extract ran.
func (m *Mock) ExtractCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.extract
}

package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"vidfetch/pkg/calc"
	"vidfetch/pkg/shellquote"

	"github.com/lrstanley/go-ytdlp"
)

// runResult wraps ytdlp.Result for custom logging.
type runResult struct {
	*ytdlp.Result
}

// LogValue implements the slog.LogValuer interface for custom logging of runResult.
func (r runResult) LogValue() slog.Value {
	if r.Result == nil {
		return slog.GroupValue(slog.String("error", "nil result"))
	}

	var logs strings.Builder
	for _, line := range r.OutputLogs {
		fmt.Fprintf(&logs, "%v\n", line)
	}

	return slog.GroupValue(
		slog.String("command", shellquote.Join(r.Executable, r.Args)),
		slog.String("stderr", r.Stderr),
		slog.String("output_logs", logs.String()),
	)
}

// progressUpdate wraps ytdlp.ProgressUpdate for custom logging.
type progressUpdate struct {
	*ytdlp.ProgressUpdate
}

// LogValue implements the slog.LogValuer interface for custom logging of progressUpdate.
func (p progressUpdate) LogValue() slog.Value {
	if p.ProgressUpdate == nil {
		return slog.GroupValue(slog.String("error", "nil progress update"))
	}

	return slog.GroupValue(
		slog.String("filename", p.Filename),
		slog.String("status", fmt.Sprint(p.Status)),
		slog.Int("downloaded_bytes", p.DownloadedBytes),
		slog.Int("total_bytes", p.TotalBytes),
		slog.Int("fragment_index", p.FragmentIndex),
		slog.Int("fragment_count", p.FragmentCount),
		slog.Float64("fraction", calc.Fraction(int64(p.DownloadedBytes), int64(p.TotalBytes))),
		slog.Time("started", p.Started),
	)
}

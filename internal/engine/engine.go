// Package engine abstracts the external extraction and download engine.
package engine

import (
	"context"
	"log/slog"

	"vidfetch/internal/entity"
)

// Status is the state reported by a progress update.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
	StatusError       Status = "error"
)

// Progress mirrors the payload of an engine progress hook.
// Any field may be missing; numeric fields use 0 when unknown. ETASeconds only
// counts when HasETA is set.
type Progress struct {
	Status             Status
	Filename           string
	PercentStr         string
	DownloadedBytes    int64
	TotalBytes         int64
	TotalBytesEstimate int64
	TotalBytesStr      string
	Speed              float64 // bytes per second
	SpeedStr           string
	ETASeconds         int64
	HasETA             bool
	ETAStr             string
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (p Progress) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("status", string(p.Status)),
		slog.String("filename", p.Filename),
		slog.String("percent", p.PercentStr),
		slog.Int64("downloaded_bytes", p.DownloadedBytes),
		slog.Int64("total_bytes", p.TotalBytes),
		slog.Int64("total_bytes_estimate", p.TotalBytesEstimate),
		slog.Float64("speed", p.Speed),
		slog.Int64("eta", p.ETASeconds),
		slog.Bool("has_eta", p.HasETA),
	)
}

// Hook receives every progress update synchronously. A non-nil return aborts
// the download, and Download returns that error unchanged.
type Hook func(Progress) error

// Options drive a single download.
type Options struct {
	// Output is the path template, e.g. /dl/video/title.%(ext)s.
	Output string
	// Format is the format selector, e.g. 137+bestaudio/best.
	Format            string
	MergeOutputFormat string
	// FFmpegLocation points the engine at a local encoder. Empty means the engine's own lookup.
	FFmpegLocation      string
	ExtractAudio        bool
	AudioFormat         string
	AudioQuality        string
	ConcurrentFragments int
}

// Result describes a finished download.
type Result struct {
	// Filepath is the final file after post-processing, when the engine reports it.
	Filepath string
}

// Engine resolves metadata and performs downloads.
type Engine interface {
	Extract(ctx context.Context, url string) (*entity.VideoInfo, error)
	Download(ctx context.Context, url string, opts Options, hook Hook) (*Result, error)
}

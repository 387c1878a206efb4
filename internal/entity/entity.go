// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"slices"
	"strconv"
)

// TaskName identifies one of the user-initiated download tasks.
type TaskName string

const (
	// TaskVideo downloads merged video and audio.
	TaskVideo TaskName = "video"
	// TaskAudio downloads the best audio track.
	TaskAudio TaskName = "audio"
	// TaskThumbnail downloads the thumbnail image.
	TaskThumbnail TaskName = "thumbnail"
)

// Tasks lists every known task name.
var Tasks = []TaskName{TaskVideo, TaskAudio, TaskThumbnail}

// Valid reports whether t is a known task name.
func (t TaskName) Valid() bool {
	return slices.Contains(Tasks, t)
}

// Format is one encoded stream offered by the extraction engine.
type Format struct {
	FormatID string  `json:"format_id"`
	Ext      string  `json:"ext"`
	Height   int     `json:"height,omitempty"`
	Width    int     `json:"width,omitempty"`
	VCodec   string  `json:"vcodec,omitempty"`
	ACodec   string  `json:"acodec,omitempty"`
	Filesize int64   `json:"filesize,omitempty"`
	TBR      float64 `json:"tbr,omitempty"`
}

// HasVideo reports whether the format carries a video stream with a known height.
func (f Format) HasVideo() bool {
	return f.VCodec != "none" && f.Height > 0
}

// Label returns the human readable "<height>p - <ext>" label.
func (f Format) Label() string {
	return strconv.Itoa(f.Height) + "p - " + f.Ext
}

// VideoInfo is the structured metadata returned by a no-download query.
type VideoInfo struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Thumbnail  string   `json:"thumbnail,omitempty"`
	Ext        string   `json:"ext,omitempty"`
	Extractor  string   `json:"extractor,omitempty"`
	WebpageURL string   `json:"webpage_url,omitempty"`
	Duration   float64  `json:"duration,omitempty"`
	Formats    []Format `json:"formats,omitempty"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (v VideoInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", v.ID),
		slog.String("title", v.Title),
		slog.String("thumbnail", v.Thumbnail),
		slog.String("extractor", v.Extractor),
		slog.Int("formats", len(v.Formats)),
	)
}

// OutcomeKind classifies the end of one download attempt.
type OutcomeKind string

const (
	// OutcomeDone means the attempt finished and produced a file.
	OutcomeDone OutcomeKind = "done"
	// OutcomePaused means the attempt was cancelled through its cancel flag.
	OutcomePaused OutcomeKind = "paused"
	// OutcomeFailed means the attempt ended with an error.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the result of one download attempt.
// Message is the human readable result shown to the user.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Message string      `json:"message"`
	Path    string      `json:"path,omitempty"`
	Err     error       `json:"-"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (o Outcome) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", string(o.Kind)),
		slog.String("message", o.Message),
		slog.String("path", o.Path),
	}
	if o.Err != nil {
		attrs = append(attrs, slog.Any("error", o.Err))
	}

	return slog.GroupValue(attrs...)
}

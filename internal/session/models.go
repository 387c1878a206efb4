package session

import (
	"log/slog"

	"vidfetch/internal/entity"
)

// EventKind names what changed.
type EventKind string

// Event kinds.
const (
	EventStatus   EventKind = "status"
	EventInfo     EventKind = "info"
	EventStarted  EventKind = "started"
	EventProgress EventKind = "progress"
	EventPaused   EventKind = "paused"
	EventFinished EventKind = "finished"
	EventAllDone  EventKind = "all_done"
)

// Event is delivered to listeners on the dispatcher after the view changed.
type Event struct {
	Kind     EventKind
	Task     entity.TaskName
	Outcome  entity.Outcome
	Message  string
	Snapshot Snapshot
}

// Listener receives session events.
type Listener func(Event)

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	Status    string                             `json:"status"`
	Error     bool                               `json:"error"`
	Aggregate float64                            `json:"aggregate"`
	Progress  map[entity.TaskName]float64        `json:"progress"`
	Running   []entity.TaskName                  `json:"running"`
	Paused    bool                               `json:"paused"`
	Title     string                             `json:"title,omitempty"`
	Thumbnail string                             `json:"thumbnail,omitempty"`
	Formats   []string                           `json:"formats,omitempty"`
	Outcomes  map[entity.TaskName]entity.Outcome `json:"outcomes,omitempty"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("status", s.Status),
		slog.Bool("error", s.Error),
		slog.Float64("aggregate", s.Aggregate),
		slog.Any("running", s.Running),
		slog.Bool("paused", s.Paused),
	)
}

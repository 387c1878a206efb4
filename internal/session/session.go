// Package session tracks the user's downloads for one page of metadata: the
// per-task progress, cancel flags, pause state and the status text shown to
// listeners.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"vidfetch/internal/consts"
	"vidfetch/internal/dispatch"
	"vidfetch/internal/downloader"
	"vidfetch/internal/entity"
	"vidfetch/internal/errs"
	"vidfetch/internal/observability"
	"vidfetch/pkg/calc"
)

// Downloader is the part of the downloader the session drives.
type Downloader interface {
	GetVideoInfo(ctx context.Context, url string) (*entity.VideoInfo, error)
	DownloadVideo(ctx context.Context, url, formatID string,
		onProgress downloader.ProgressFunc, cancelled downloader.CancelCheck) entity.Outcome
	DownloadAudio(ctx context.Context, url string,
		onProgress downloader.ProgressFunc, cancelled downloader.CancelCheck) entity.Outcome
	DownloadThumbnail(ctx context.Context, url string) entity.Outcome
}

// request remembers what a task was started with so resume can replay it.
type request struct {
	url      string
	label    string
	formatID string
}

// Session is safe for concurrent use.
type Session struct {
	log        *slog.Logger
	dl         Downloader
	dispatcher dispatch.Dispatcher
	metrics    *observability.Metrics

	root context.Context //nolint:containedctx // lifetime of worker goroutines
	wg   sync.WaitGroup

	mu       sync.Mutex
	progress map[entity.TaskName]float64
	cancel   map[entity.TaskName]*atomic.Bool
	running  map[entity.TaskName]bool
	requests map[entity.TaskName]request
	outcomes map[entity.TaskName]entity.Outcome
	// resumed marks running tasks whose cancel flag Resume cleared.
	resumed  map[entity.TaskName]bool
	paused   bool
	checking bool
	catalog  entity.FormatCatalog
	seq      uint64

	// view is only written from dispatched callbacks.
	viewMu    sync.RWMutex
	view      view
	listeners []Listener
}

type view struct {
	status    string
	isError   bool
	seq       uint64
	aggregate float64
	progress  map[entity.TaskName]float64
	title     string
	thumbnail string
	formats   []string
}

// New creates a session. Workers run on context.Background until Start is called.
func New(
	log *slog.Logger,
	dl Downloader,
	dispatcher dispatch.Dispatcher,
	metrics *observability.Metrics,
) *Session {
	return &Session{
		log:        log.With(slog.String("package", "session")),
		dl:         dl,
		dispatcher: dispatcher,
		metrics:    metrics,
		root:       context.Background(),
		progress:   make(map[entity.TaskName]float64),
		cancel:     make(map[entity.TaskName]*atomic.Bool),
		running:    make(map[entity.TaskName]bool),
		requests:   make(map[entity.TaskName]request),
		outcomes:   make(map[entity.TaskName]entity.Outcome),
		resumed:    make(map[entity.TaskName]bool),
	}
}

// Start binds worker goroutines to ctx. Cancelling ctx aborts running engine calls.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	s.root = ctx
	s.mu.Unlock()
}

// Wait blocks until every worker goroutine has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Subscribe registers fn for every published event. fn runs on the dispatcher.
func (s *Session) Subscribe(fn Listener) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()

	s.listeners = append(s.listeners, fn)
}

// Check looks up metadata for url in the background and publishes the title
// and quality labels.
func (s *Session) Check(ctx context.Context, url string) error {
	s.mu.Lock()
	if s.checking {
		s.mu.Unlock()

		return fmt.Errorf("%w: check", errs.ErrTaskRunning)
	}

	s.checking = true
	root := s.root
	s.mu.Unlock()

	s.log.InfoContext(ctx, "check started", slog.String("url", url))
	s.publish(Event{Kind: EventStatus}, func(v *view) {
		v.status = consts.StatusChecking
		v.isError = false
	})

	s.wg.Go(func() {
		info, err := s.dl.GetVideoInfo(root, url)

		s.mu.Lock()
		s.checking = false

		if err != nil {
			s.mu.Unlock()
			s.log.ErrorContext(root, "check failed", slog.String("url", url), slog.Any("error", err))
			s.publish(Event{Kind: EventStatus}, func(v *view) {
				v.status = consts.StatusCheckFailed
				v.isError = true
			})

			return
		}

		s.catalog = entity.NewFormatCatalog(info.Formats)
		labels := s.catalog.Labels()
		s.mu.Unlock()

		title := info.Title
		if title == "" {
			title = consts.UnknownTitle
		}

		s.log.InfoContext(root, "check finished", slog.Any("info", info), slog.Int("labels", len(labels)))
		s.publish(Event{Kind: EventInfo}, func(v *view) {
			v.status = consts.StatusVideoFound
			v.isError = false
			v.title = title
			v.thumbnail = info.Thumbnail
			v.formats = labels
		})
	})

	return nil
}

// StartVideo downloads url in the quality named by label. An empty label
// means best available. resume keeps the tracked progress.
func (s *Session) StartVideo(ctx context.Context, url, label string, resume bool) error {
	req := request{url: url, label: label}

	if label != "" {
		s.mu.Lock()
		id, ok := s.catalog.Lookup(label)
		s.mu.Unlock()

		if !ok {
			return fmt.Errorf("%w: %q", errs.ErrUnknownQuality, label)
		}

		req.formatID = id
	}

	return s.start(ctx, entity.TaskVideo, req, resume)
}

// StartAudio downloads the best audio of url.
func (s *Session) StartAudio(ctx context.Context, url string, resume bool) error {
	return s.start(ctx, entity.TaskAudio, request{url: url}, resume)
}

// StartThumbnail saves the thumbnail of url.
func (s *Session) StartThumbnail(ctx context.Context, url string) error {
	return s.start(ctx, entity.TaskThumbnail, request{url: url}, false)
}

// Pause sets every known cancel flag. Running engine calls stop at their next
// progress update.
func (s *Session) Pause(ctx context.Context) {
	s.mu.Lock()
	s.paused = true

	for task, flag := range s.cancel {
		flag.Store(true)
		s.log.DebugContext(ctx, "cancel flag set", slog.String("task", string(task)))
	}
	s.mu.Unlock()

	s.log.InfoContext(ctx, "paused")
	s.publish(Event{Kind: EventStatus}, nil)
}

// Resume restarts video and audio tasks that did not reach 1.0. Downloads start
// over; no partial data is reused. A task whose engine call has not yet
// noticed the pause just has its cancel flag cleared.
func (s *Session) Resume(ctx context.Context) ([]entity.TaskName, error) {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()

		return nil, errs.ErrNothingToResume
	}

	s.paused = false

	var resumed, restart []entity.TaskName

	for _, task := range []entity.TaskName{entity.TaskVideo, entity.TaskAudio} {
		p, tracked := s.progress[task]
		if !tracked || p >= 1 {
			continue
		}

		resumed = append(resumed, task)

		if s.running[task] {
			if flag := s.cancel[task]; flag != nil {
				flag.Store(false)
			}

			s.resumed[task] = true

			continue
		}

		restart = append(restart, task)
	}
	s.mu.Unlock()

	s.log.InfoContext(ctx, "resuming", slog.Any("tasks", resumed))

	for _, task := range restart {
		if err := s.restart(ctx, task); err != nil {
			return resumed, err
		}
	}

	if len(restart) == 0 {
		s.publish(Event{Kind: EventStatus}, nil)
	}

	return resumed, nil
}

func (s *Session) restart(ctx context.Context, task entity.TaskName) error {
	s.mu.Lock()
	req := s.requests[task]
	s.mu.Unlock()

	err := s.start(ctx, task, req, true)
	if errors.Is(err, errs.ErrTaskRunning) {
		return nil
	}

	return err
}

func (s *Session) start(ctx context.Context, task entity.TaskName, req request, resume bool) error {
	s.mu.Lock()
	if s.running[task] {
		s.mu.Unlock()

		return fmt.Errorf("%w: %s", errs.ErrTaskRunning, task)
	}

	flag := new(atomic.Bool)

	s.running[task] = true
	s.requests[task] = req
	s.cancel[task] = flag
	delete(s.resumed, task)

	if !resume {
		s.progress[task] = 0
	}

	if !s.heldLocked() {
		s.paused = false
	}

	state := s.progressLocked()
	root := s.root
	s.mu.Unlock()

	s.log.InfoContext(ctx, "task started",
		slog.String("task", string(task)),
		slog.String("url", req.url),
		slog.String("label", req.label),
		slog.Bool("resume", resume))

	s.publish(Event{Kind: EventStarted, Task: task}, func(v *view) {
		if !resume {
			v.status = fmt.Sprintf(consts.StatusStartFormat, task)
			v.isError = false
		}

		v.apply(state)
	})

	s.wg.Go(func() {
		done := s.metrics.TaskTimer(string(task), resume)
		out := s.run(root, task, req, flag)
		done(string(out.Kind))
		s.finish(root, task, out)
	})

	return nil
}

func (s *Session) run(ctx context.Context, task entity.TaskName, req request, flag *atomic.Bool) entity.Outcome {
	switch task {
	case entity.TaskVideo:
		return s.dl.DownloadVideo(ctx, req.url, req.formatID, s.onProgress(task), flag.Load)
	case entity.TaskAudio:
		return s.dl.DownloadAudio(ctx, req.url, s.onProgress(task), flag.Load)
	case entity.TaskThumbnail:
		s.mu.Lock()
		s.progress[task] = thumbnailProgress
		state := s.progressLocked()
		s.mu.Unlock()

		s.publish(Event{Kind: EventProgress, Task: task}, func(v *view) {
			v.status = consts.StatusThumbnail
			v.apply(state)
		})

		return s.dl.DownloadThumbnail(ctx, req.url)
	}

	return entity.Outcome{Kind: entity.OutcomeFailed, Message: consts.ResultErrorPrefix + errs.ErrUnknownTask.Error()}
}

// thumbnailProgress is the token fraction shown while a thumbnail is fetched.
const thumbnailProgress = 0.1

func (s *Session) onProgress(task entity.TaskName) downloader.ProgressFunc {
	return func(fraction float64, status string) {
		s.mu.Lock()
		s.progress[task] = fraction
		state := s.progressLocked()
		s.mu.Unlock()

		text := StatusLine(task, status, state.aggregate)

		s.publish(Event{Kind: EventProgress, Task: task}, func(v *view) {
			if v.apply(state) {
				v.status = text
				v.isError = false
			}
		})
	}
}

// finish applies a task's outcome. A paused outcome keeps every piece of
// state for resume; anything else marks the task complete.
func (s *Session) finish(ctx context.Context, task entity.TaskName, out entity.Outcome) {
	log := s.log.With(slog.String("task", string(task)))

	s.mu.Lock()
	delete(s.running, task)
	s.outcomes[task] = out

	resumed := s.resumed[task]
	delete(s.resumed, task)

	if out.Kind == entity.OutcomePaused {
		s.mu.Unlock()

		// resume landed between the engine seeing the flag and now
		if resumed {
			log.InfoContext(ctx, "restarting task resumed during pause")

			if err := s.restart(ctx, task); err != nil {
				log.ErrorContext(ctx, "restart failed", slog.Any("error", err))
			}

			return
		}

		log.InfoContext(ctx, "task paused")
		s.publish(Event{Kind: EventPaused, Task: task, Outcome: out}, func(v *view) {
			v.status = consts.StatusPaused
		})

		return
	}

	s.progress[task] = 1
	state := s.progressLocked()

	allDone := state.aggregate >= consts.CompletionThreshold
	if allDone {
		clear(s.progress)
		clear(state.progress)
		// a task still running keeps its flag so pause can reach it
		maps.DeleteFunc(s.cancel, func(t entity.TaskName, _ *atomic.Bool) bool { return !s.running[t] })
	}
	s.mu.Unlock()

	log.InfoContext(ctx, "task finished", slog.Any("outcome", out), slog.Float64("aggregate", state.aggregate))

	status := fmt.Sprintf(consts.StatusTaskFormat, task, out.Message)
	update := func(v *view) {
		v.status = status
		v.isError = false
		v.apply(state)
	}

	s.publish(Event{Kind: EventFinished, Task: task, Outcome: out}, update)

	if allDone {
		log.InfoContext(ctx, "all tasks complete")
		s.publish(Event{Kind: EventAllDone, Task: task, Outcome: out, Message: consts.StatusAllDone}, nil)
	}
}

// heldLocked reports whether a video or audio task is still waiting on the
// pause: stopped with a paused outcome, or running with its flag set. s.mu
// must be held.
func (s *Session) heldLocked() bool {
	for _, task := range []entity.TaskName{entity.TaskVideo, entity.TaskAudio} {
		if p, tracked := s.progress[task]; !tracked || p >= 1 {
			continue
		}

		if s.running[task] {
			if flag := s.cancel[task]; flag != nil && flag.Load() {
				return true
			}

			continue
		}

		if s.outcomes[task].Kind == entity.OutcomePaused {
			return true
		}
	}

	return false
}

// progressState is the tracked progress at one point, numbered so that
// updates reaching the dispatcher out of order cannot roll the view back.
type progressState struct {
	seq       uint64
	aggregate float64
	progress  map[entity.TaskName]float64
}

// progressLocked returns the current progress state. s.mu must be held.
func (s *Session) progressLocked() progressState {
	s.seq++

	aggregate := calc.Mean(slices.Collect(maps.Values(s.progress)))
	s.metrics.SetAggregate(aggregate)

	return progressState{seq: s.seq, aggregate: aggregate, progress: maps.Clone(s.progress)}
}

// apply reports whether p was newer than what the view shows.
func (v *view) apply(p progressState) bool {
	if p.seq < v.seq {
		return false
	}

	v.seq = p.seq
	v.aggregate = p.aggregate
	v.progress = p.progress

	return true
}

// publish applies update to the view and notifies listeners, both on the dispatcher.
func (s *Session) publish(ev Event, update func(*view)) {
	s.dispatcher.Dispatch(func() {
		s.viewMu.Lock()
		if update != nil {
			update(&s.view)
		}

		listeners := slices.Clone(s.listeners)
		s.viewMu.Unlock()

		ev.Snapshot = s.Snapshot()

		for _, fn := range listeners {
			fn(ev)
		}
	})
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.viewMu.RLock()
	snap := Snapshot{
		Status:    s.view.status,
		Error:     s.view.isError,
		Aggregate: s.view.aggregate,
		Progress:  maps.Clone(s.view.progress),
		Title:     s.view.title,
		Thumbnail: s.view.thumbnail,
		Formats:   slices.Clone(s.view.formats),
	}
	s.viewMu.RUnlock()

	s.mu.Lock()
	snap.Paused = s.paused
	snap.Running = slices.Sorted(maps.Keys(s.running))
	snap.Outcomes = maps.Clone(s.outcomes)
	s.mu.Unlock()

	if snap.Progress == nil {
		snap.Progress = map[entity.TaskName]float64{}
	}

	return snap
}

// StatusLine renders the status text for a progress update: engine detail
// lines are tagged with the task, state words are shown as is and anything
// else becomes an overall percentage with msg as the remaining time.
func StatusLine(task entity.TaskName, msg string, aggregate float64) string {
	switch {
	case strings.Contains(msg, "[download]"):
		return fmt.Sprintf(consts.StatusDetailFormat, task, msg)
	case strings.Contains(msg, "...") || !strings.ContainsFunc(msg, unicode.IsDigit):
		return fmt.Sprintf(consts.StatusStateFormat, task, msg)
	default:
		return fmt.Sprintf(consts.StatusDownloadFormat, int(aggregate*100), msg)
	}
}

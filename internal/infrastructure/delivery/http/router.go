// Package httprouter serves the control API of the download session.
package httprouter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"vidfetch/internal/consts"
	"vidfetch/internal/entity"
	"vidfetch/internal/errs"
	"vidfetch/internal/infrastructure/delivery/http/middleware"
	"vidfetch/internal/infrastructure/delivery/http/request"
	"vidfetch/internal/infrastructure/delivery/http/response"
	"vidfetch/internal/observability"
	"vidfetch/internal/session"
)

// Session is the part of *session.Session the router drives.
type Session interface {
	Check(ctx context.Context, url string) error
	StartVideo(ctx context.Context, url, label string, resume bool) error
	StartAudio(ctx context.Context, url string, resume bool) error
	StartThumbnail(ctx context.Context, url string) error
	Pause(ctx context.Context)
	Resume(ctx context.Context) ([]entity.TaskName, error)
	Snapshot() session.Snapshot
}

type chain []func(http.Handler) http.Handler

func (c chain) then(h http.Handler) http.Handler {
	for _, mw := range slices.Backward(c) {
		h = mw(h)
	}

	return h
}

type Router struct {
	*http.ServeMux
	log            *slog.Logger
	globalChain    chain
	routeChain     chain
	isSubRouter    bool
	sess           Session
	metrics        *observability.Metrics
	handlerTimeout time.Duration
}

// New builds the router. handlerTimeout bounds every session call made by a handler.
func New(log *slog.Logger, sess Session, metrics *observability.Metrics, handlerTimeout time.Duration) *Router {
	if handlerTimeout <= 0 {
		handlerTimeout = consts.DefaultHandlerTimeout
	}

	r := &Router{
		ServeMux:       http.NewServeMux(),
		log:            log.With(slog.String("package", "httprouter")),
		sess:           sess,
		metrics:        metrics,
		handlerTimeout: handlerTimeout,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

func (r *Router) Use(middleware ...func(http.Handler) http.Handler) {
	if r.isSubRouter {
		r.routeChain = append(r.routeChain, middleware...)
	} else {
		r.globalChain = append(r.globalChain, middleware...)
	}
}

func (r *Router) Group(fn func(r *Router)) {
	subRouter := &Router{
		isSubRouter: true,
		routeChain:  slices.Clone(r.routeChain),
		ServeMux:    r.ServeMux,
	}

	fn(subRouter)
}

func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, h)
}

func (r *Router) Handle(pattern string, h http.Handler) {
	r.ServeMux.Handle(pattern, r.routeChain.then(h))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.globalChain.then(r.ServeMux).ServeHTTP(w, req)
}

func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
	)

	if r.metrics != nil {
		r.Use(middleware.Metrics(r.metrics, r.route))
	}
}

// route returns the pattern req matches, or "unmatched".
func (r *Router) route(req *http.Request) string {
	if _, pattern := r.ServeMux.Handler(req); pattern != "" {
		return pattern
	}

	return "unmatched"
}

func (r *Router) SetRoutes() {
	r.SetRoutesHealthcheck()
	r.SetRoutesSession()
	r.SetRoutesDownloads()

	if r.metrics != nil {
		r.Handle("GET /metrics", r.metrics.Handler())
	}
}

func (r *Router) SetRoutesHealthcheck() {
	r.HandleFunc("GET /v1/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func (ro *Router) SetRoutesSession() {
	ro.Group(func(r *Router) {
		r.HandleFunc("POST /v1/check", ro.Check)
		r.HandleFunc("POST /v1/pause", ro.Pause)
		r.HandleFunc("POST /v1/resume", ro.Resume)
		r.HandleFunc("GET /v1/status", ro.Status)
	})
}

func (ro *Router) SetRoutesDownloads() {
	downloadRouter := &Router{
		ServeMux: http.NewServeMux(),
	}
	downloadRouter.HandleFunc("POST /{task}", ro.StartDownload)

	ro.Handle("POST /v1/downloads/", http.StripPrefix("/v1/downloads", downloadRouter))
}

func (ro *Router) Check(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Check")

	ctx, cancel := context.WithTimeout(r.Context(), ro.handlerTimeout)
	defer cancel()

	var in request.Check
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, errs.ErrInvalidRequestBody)

		return
	}

	in.Normalize()

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	err := ro.sess.Check(ctx, in.URL)
	if errors.Is(err, errs.ErrTaskRunning) {
		log.DebugContext(ctx, consts.RespTaskRunning, slog.Any("error", err))
		response.Conflict(w, consts.RespTaskRunning, nil, err)

		return
	}

	if err != nil {
		log.ErrorContext(ctx, consts.RespDownloadStartFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespDownloadStartFail, nil, err)

		return
	}

	response.Accepted(w, consts.RespCheckStarted, nil, nil)
}

func (ro *Router) StartDownload(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "StartDownload")

	ctx, cancel := context.WithTimeout(r.Context(), ro.handlerTimeout)
	defer cancel()

	task := entity.TaskName(r.PathValue("task"))
	if !task.Valid() {
		log.DebugContext(ctx, "unknown task", slog.String("task", string(task)))
		response.NotFound(w, errs.ErrUnknownTask.Error(), errs.ErrUnknownTask)

		return
	}

	var in request.Download
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, errs.ErrInvalidRequestBody)

		return
	}

	in.Normalize()

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	var err error

	switch task {
	case entity.TaskVideo:
		err = ro.sess.StartVideo(ctx, in.URL, in.Quality, false)
	case entity.TaskAudio:
		err = ro.sess.StartAudio(ctx, in.URL, false)
	case entity.TaskThumbnail:
		err = ro.sess.StartThumbnail(ctx, in.URL)
	}

	switch {
	case errors.Is(err, errs.ErrTaskRunning):
		log.DebugContext(ctx, consts.RespTaskRunning, slog.Any("error", err))
		response.Conflict(w, consts.RespTaskRunning, nil, err)

		return
	case errors.Is(err, errs.ErrUnknownQuality):
		log.DebugContext(ctx, consts.RespUnknownQuality, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnknownQuality, err)

		return
	case err != nil:
		log.ErrorContext(ctx, consts.RespDownloadStartFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespDownloadStartFail, nil, err)

		return
	}

	log.InfoContext(ctx, consts.RespDownloadStarted, slog.String("task", string(task)), slog.String("url", in.URL))

	response.Accepted(w, consts.RespDownloadStarted, task, nil)
}

func (ro *Router) Pause(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ro.handlerTimeout)
	defer cancel()

	ro.sess.Pause(ctx)

	response.OK(w, consts.RespPaused, ro.sess.Snapshot(), nil)
}

func (ro *Router) Resume(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Resume")

	ctx, cancel := context.WithTimeout(r.Context(), ro.handlerTimeout)
	defer cancel()

	tasks, err := ro.sess.Resume(ctx)
	if errors.Is(err, errs.ErrNothingToResume) {
		log.DebugContext(ctx, "nothing to resume")
		response.Conflict(w, err.Error(), nil, err)

		return
	}

	if err != nil {
		log.ErrorContext(ctx, "resume failed", slog.Any("error", err))
		response.InternalServerError(w, "resume failed", tasks, err)

		return
	}

	response.OK(w, consts.RespResumed, tasks, nil)
}

func (ro *Router) Status(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, consts.RespStatusRetrieved, ro.sess.Snapshot(), nil)
}

package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jaminalder/perfect-tic-tac-toe/internal/app"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/logger"
)

const defaultHeartbeat = 15 * time.Second

type serverOptions struct {
	log       *logger.Logger
	heartbeat time.Duration
}

// Option customises NewServer.
type Option func(*serverOptions)

// WithLogger sets the request logger.
func WithLogger(l *logger.Logger) Option { return func(o *serverOptions) { o.log = l } }

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) Option { return func(o *serverOptions) { o.heartbeat = d } }

// NewServer wires routes and returns an http.Handler. It also installs the
// board fragment as the service's broadcast renderer.
func NewServer(s *app.Service, opts ...Option) http.Handler {
	o := serverOptions{heartbeat: defaultHeartbeat}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = &logger.Logger{Logger: slog.Default()}
	}

	h := &handlers{svc: s, tpl: loadTemplates(), heartbeat: o.heartbeat}
	s.SetRenderer(func(gs app.GameState) []byte { return h.renderBoard(gs, "") })

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.NewMiddleware(o.log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Get("/healthz", healthz)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/join", h.join)
		r.Post("/play", h.play)
		r.Post("/reset", h.reset)
		r.Get("/events", h.events)
	})
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/best-move", h.bestMove)
	})
	return r
}

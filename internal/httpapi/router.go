package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/csheth/repost/internal/settings"
	"github.com/csheth/repost/internal/workflow"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Session     *workflow.Session
	Settings    *settings.Store
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter creates the JSON API.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{session: deps.Session, settings: deps.Settings, log: log.Named("http")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors(deps.CORSOrigins))

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/document", h.document)
		r.Post("/fetch", h.fetch)
		r.Post("/active", h.selectSegment)
		r.Post("/next", h.next)
		r.Post("/previous", h.previous)
		r.Post("/segments/{index}/generate", h.generate)
		r.Put("/segments/active/caption", h.editCaption)
		r.Post("/publish", h.publish)
		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.putSettings)
	})
	return r
}

// Server runs the router until its context ends.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

// NewServer binds the router to addr.
func NewServer(addr string, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Serve listens on l and shuts down gracefully when ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(l)
	}()
	s.log.Info("http api listening", zap.String("addr", l.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// ListenAndServe is Serve on the configured address.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

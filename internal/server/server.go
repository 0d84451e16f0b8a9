// Package server expone los registros, el asistente de análisis, el tablero
// y los borradores de Jira sobre HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/PhelGc/sig-rca/internal/jira"
	"github.com/PhelGc/sig-rca/internal/logging"
	"github.com/PhelGc/sig-rca/internal/storage"
	"github.com/PhelGc/sig-rca/internal/wizard"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// DraftSource origen de borradores de captura (Jira)
type DraftSource interface {
	GetDrafts(ctx context.Context) ([]*jira.Draft, error)
	GetDraft(ctx context.Context, key string) (*jira.Draft, error)
}

// Config parámetros del servidor HTTP
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

// Server superficie HTTP de la aplicación
type Server struct {
	config   Config
	store    storage.Store
	sessions *wizard.Manager
	drafts   DraftSource
	logger   *zap.Logger
	now      func() time.Time

	// acciones duplicadas en vuelo sobre la misma sesión comparten resultado
	inflight singleflight.Group
	router   chi.Router
}

// New arma el servidor. drafts puede ser nil cuando Jira no está configurado.
func New(config Config, store storage.Store, sessions *wizard.Manager, drafts DraftSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:   config,
		store:    store,
		sessions: sessions,
		drafts:   drafts,
		logger:   logger,
		now:      time.Now,
	}
	s.router = s.routes()
	return s
}

// Handler devuelve el router
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/problems", func(r chi.Router) {
			r.Get("/", s.listProblems)
			r.Post("/", s.createProblem)
			r.Get("/{id}", s.getProblem)
			r.Get("/{id}/report", s.problemReport)
		})
		r.Get("/dashboard", s.dashboard)
		r.Get("/intake/jira", s.listDrafts)

		r.Route("/wizard", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Route("/{sid}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.deleteSession)

				r.Put("/intake", s.setIntake)
				r.Post("/impactos/{impacto}:toggle", s.toggleImpact)

				r.Post("/recommend", s.recommend)
				r.Post("/methodology", s.selectMethodology)
				r.Post("/back", s.back)
				r.Post("/analyze", s.analyze)
				r.Post("/save", s.save)
				r.Post("/finalize", s.finalize)

				r.Route("/ishikawa/categories", func(r chi.Router) {
					r.Post("/", s.addCategory)
					r.Delete("/{cat}", s.removeCategory)
					r.Post("/{cat}/causes", s.addCause)
					r.Put("/{cat}/causes/{i}", s.editCause)
					r.Delete("/{cat}/causes/{i}", s.removeCause)
				})

				r.Post("/whys", s.appendWhy)
				r.Put("/whys/{i}", s.editWhy)
				r.Delete("/whys/{i}", s.removeWhy)

				r.Post("/actions", s.addAction)
				r.Patch("/actions/{actionId}", s.updateAction)
				r.Delete("/actions/{actionId}", s.removeAction)
			})
		})
	})
	return r
}

// Run atiende peticiones hasta que se cancela ctx y luego cierra ordenadamente
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Servidor HTTP escuchando", zap.String("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Cerrando servidor HTTP...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger registra cada petición y deja un logger con el id de la
// petición en el contexto
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With(zap.String("requestId", middleware.GetReqID(r.Context())))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			reqLogger.Info("Petición atendida",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

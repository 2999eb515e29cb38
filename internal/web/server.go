// Package web serves the roster viewer over HTTP.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/roster/internal/audit"
	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/mail"
	mw "github.com/JonMunkholm/roster/internal/web/middleware"
)

// Deps are the services the handlers work on.
type Deps struct {
	Sessions *core.SessionManager
	Parser   *core.ParseLimiter
	Mail     *mail.Dispatcher
	Template mail.Template
	Audit    audit.Store
}

// Server is the HTTP front end.
type Server struct {
	cfg      *config.Config
	sessions *core.SessionManager
	parser   *core.ParseLimiter
	mail     *mail.Dispatcher
	tmpl     mail.Template
	audit    audit.Store

	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer wires routes and middleware. Missing optional deps get inert
// defaults: no mail relay and no audit log.
func NewServer(cfg *config.Config, d Deps) *Server {
	if d.Parser == nil {
		d.Parser = core.NewParseLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	}
	if d.Mail == nil {
		d.Mail = mail.NewDispatcher(nil, nil, mail.DispatcherConfig{})
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.Template.Subject == "" && d.Template.Message == "" {
		d.Template = mail.DefaultTemplate()
	}

	s := &Server{
		cfg:      cfg,
		sessions: d.Sessions,
		parser:   d.Parser,
		mail:     d.Mail,
		tmpl:     d.Template,
		audit:    d.Audit,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// limit returns a stricter per-route limiter, or a pass-through when rate
// limiting is off.
func (s *Server) limit(perMinute int) func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.newLimiter(perMinute).middleware
}

func (s *Server) newLimiter(perMinute int) *rateLimiter {
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		r.Post("/sessions", s.handleCreateSession)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.With(s.limit(s.cfg.Rate.UploadLimit)).Post("/upload", s.handleUpload)
			r.Get("/view", s.handleView)
			r.Get("/table", s.handleTable)
			r.Post("/events", s.handleEvent)
			r.Post("/rows/{rowID}/toggle", s.handleToggle)
			r.Post("/select-all", s.handleSelectAll)
			r.Get("/export", s.handleExport)
			r.With(s.limit(s.cfg.Rate.MailLimit)).Post("/mail", s.handleSendMail)
			r.Delete("/", s.handleDeleteSession)
		})

		r.Get("/mail", s.handleMailHistory)
		r.Get("/mail/{batchID}", s.handleMailStatus)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// the limiter janitors.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

const contentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"

func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", contentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Package web serves a local browser console over the reservation backend.
// Every page navigation goes through the same guard as the CLI.
package web

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/labres-dev/labres/internal/auth"
	"github.com/labres-dev/labres/internal/client"
	"github.com/labres-dev/labres/internal/config"
	"github.com/labres-dev/labres/internal/router"
	"github.com/labres-dev/labres/internal/session"
)

// Server represents the web console
type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  zerolog.Logger
	routes  *router.Table
	tokens  auth.TokenStore
	session *session.Store
	api     *client.Client
	guard   *router.Guard
	notices *noticeBoard
	version string
}

// New creates a console for the backend at cfg.API.URL
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	tokens, err := cfg.Credentials.TokenStore(cfg.API.URL)
	if err != nil {
		return nil, err
	}

	return NewWithTokens(cfg, zlog, version, tokens,
		client.WithTimeout(cfg.API.Timeout),
		client.WithRedirectDelay(cfg.API.RedirectDelay),
	), nil
}

// NewWithTokens creates a console around an existing token store
func NewWithTokens(cfg *config.Config, zlog zerolog.Logger, version string, tokens auth.TokenStore, opts ...client.Option) *Server {
	s := &Server{
		config:  cfg,
		logger:  zlog,
		routes:  router.NewTable(router.DefaultRoutes()),
		tokens:  tokens,
		session: session.NewStore(tokens),
		notices: &noticeBoard{},
		version: version,
	}

	base := []client.Option{
		client.WithSession(s.session),
		client.WithNavigator(&consoleNavigator{notices: s.notices, logger: zlog}),
		client.WithLogger(zlog),
		// The browser waits out the delay itself, see applyPendingRedirect
		client.WithScheduler(func(delay time.Duration, redirect func()) {
			s.notices.delayRedirect(delay)
			redirect()
		}),
	}
	s.api = client.New(cfg.API.URL, tokens, append(base, opts...)...)
	s.guard = router.NewGuard(s.routes, s.session, s.api, zlog)

	s.setupRouter()
	return s
}

// Handler exposes the gin engine, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Web.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no guard)
	s.router.GET("/health", s.healthCheck)

	s.router.POST(router.LoginPath, s.login)
	s.router.POST("/logout", s.logout)

	// Every route in the table, redirect-only ones included, is a guarded view
	views := s.router.Group("/")
	views.Use(s.guardMiddleware())
	for _, pattern := range s.routes.Patterns() {
		views.GET(pattern, s.showView)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "online",
		"timestamp":     time.Now().UTC(),
		"service":       "labres-web",
		"version":       s.version,
		"backend":       s.api.BaseURL(),
		"authenticated": s.session.IsAuthenticated(),
	})
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              s.config.Web.Addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.config.API.Timeout + 30*time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Str("backend", s.api.BaseURL()).Msg("Starting web console")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
	}
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down web console")
		return err
	}

	s.logger.Info().Msg("Web console shutdown complete")
	return nil
}

// noticeBoard holds the latest user-facing notice until a view shows it, and
// the login redirect scheduled by an expired session until a response
// carries it to the browser
type noticeBoard struct {
	mu       sync.Mutex
	message  string
	redirect string
	delay    time.Duration
}

func (b *noticeBoard) post(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.message = message
}

func (b *noticeBoard) take() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.message
	b.message = ""
	return m
}

func (b *noticeBoard) delayRedirect(delay time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = delay
}

func (b *noticeBoard) redirectTo(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.redirect = path
}

// takeRedirect returns and clears the pending redirect
func (b *noticeBoard) takeRedirect() (string, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	path, delay := b.redirect, b.delay
	b.redirect, b.delay = "", 0
	return path, delay
}

// consoleNavigator posts the expired-session notice and the login redirect.
// Both reach the browser with the response to the request that hit the 401.
type consoleNavigator struct {
	notices *noticeBoard
	logger  zerolog.Logger
}

func (n *consoleNavigator) Notify(message string) {
	n.logger.Warn().Msg(message)
	n.notices.post(message)
}

func (n *consoleNavigator) Redirect(path string) {
	n.logger.Info().Str("redirect", path).Msg("Session expired, sending browser to login")
	n.notices.redirectTo(path)
}

// Package api provides the REST API server for tonseq
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/tonseq/pkg/cache"
	"github.com/james-see/tonseq/pkg/export"
	"github.com/james-see/tonseq/pkg/sequence"
	"github.com/james-see/tonseq/pkg/tonnetz"
)

// @title tonseq API
// @version 1.0
// @description Evaluate note patterns and apply Tonnetz transformations
// @host localhost:8080
// @BasePath /api/v1

const (
	// DefaultSessionTTL is how long an idle session is kept
	DefaultSessionTTL = 30 * time.Minute
	// DefaultMaxSessions bounds the number of live sessions
	DefaultMaxSessions = 1024
)

// Server serves patterns from a shared cache. Sessions hold private clones
// so their cursors advance independently.
type Server struct {
	cache    *cache.Cache
	exporter *export.Exporter
	space    tonnetz.Space
	defaults sequence.Options
	logger   *slog.Logger

	sessionTTL  time.Duration
	maxSessions int
	now         func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

type session struct {
	mu         sync.Mutex
	engine     *sequence.Engine
	lastAccess time.Time
}

// Option configures a Server
type Option func(*Server)

// WithSpace sets the Tonnetz space used when a request names none
func WithSpace(s tonnetz.Space) Option {
	return func(srv *Server) {
		srv.space = s
	}
}

// WithDefaults sets the evaluation options requests start from
func WithDefaults(o sequence.Options) Option {
	return func(srv *Server) {
		srv.defaults = o
	}
}

// WithExporter sets the MIDI exporter
func WithExporter(x *export.Exporter) Option {
	return func(srv *Server) {
		srv.exporter = x
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) {
		srv.logger = l
	}
}

// WithSessionTTL sets how long an idle session survives. Zero keeps
// sessions until they are deleted or evicted.
func WithSessionTTL(d time.Duration) Option {
	return func(srv *Server) {
		srv.sessionTTL = d
	}
}

// WithMaxSessions bounds the number of live sessions. Creating one more
// evicts the least recently used.
func WithMaxSessions(n int) Option {
	return func(srv *Server) {
		if n > 0 {
			srv.maxSessions = n
		}
	}
}

// WithClock sets the time source for session expiry
func WithClock(now func() time.Time) Option {
	return func(srv *Server) {
		srv.now = now
	}
}

// NewServer creates a server backed by c
func NewServer(c *cache.Cache, opts ...Option) *Server {
	s := &Server{
		cache:       c,
		space:       tonnetz.DefaultSpace,
		logger:      slog.Default(),
		sessionTTL:  DefaultSessionTTL,
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
		sessions:    make(map[uuid.UUID]*session),
	}
	for _, o := range opts {
		o(s)
	}
	if s.exporter == nil {
		s.exporter = export.New(export.WithLogger(s.logger))
	}
	return s
}

// Router builds the gin engine wrapped in CORS handling
func (s *Server) Router() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/scales", listScales)
		v1.GET("/transformations", listTransformations)
		v1.POST("/pattern/evaluate", s.handleEvaluate)
		v1.POST("/pattern/midi", s.handleMIDI)
		v1.POST("/tonnetz/transform", s.handleTransform)
		v1.GET("/tonnetz/cycle", s.handleCycle)
		v1.POST("/sessions", s.handleCreateSession)
		v1.GET("/sessions/:id/next", s.handleSessionNext)
		v1.DELETE("/sessions/:id", s.handleDeleteSession)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "port", port)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) addSession(e *sequence.Engine) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.expireSessions(now)
	for len(s.sessions) >= s.maxSessions {
		s.evictOldestSession()
	}
	s.sessions[e.ID()] = &session{engine: e, lastAccess: now}
	return e.ID()
}

func (s *Server) session(id uuid.UUID) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.sessionExpired(sess, now) {
		delete(s.sessions, id)
		s.logger.Debug("session expired", "id", id)
		return nil, false
	}
	sess.lastAccess = now
	return sess, true
}

func (s *Server) sessionExpired(sess *session, now time.Time) bool {
	return s.sessionTTL > 0 && now.Sub(sess.lastAccess) > s.sessionTTL
}

// expireSessions drops idle sessions; callers hold s.mu
func (s *Server) expireSessions(now time.Time) {
	for id, sess := range s.sessions {
		if s.sessionExpired(sess, now) {
			delete(s.sessions, id)
			s.logger.Debug("session expired", "id", id)
		}
	}
}

// evictOldestSession drops the least recently used session; callers hold s.mu
func (s *Server) evictOldestSession() {
	var oldest *session
	var oldestID uuid.UUID
	for id, sess := range s.sessions {
		if oldest == nil || sess.lastAccess.Before(oldest.lastAccess) {
			oldest, oldestID = sess, id
		}
	}
	if oldest == nil {
		return
	}
	delete(s.sessions, oldestID)
	s.logger.Info("session evicted", "id", oldestID)
}

// SessionCount returns the number of live sessions
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) dropSession(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

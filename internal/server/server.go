// Package server exposes the scout to the browser extension over a local
// HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/scout"
)

const (
	DefaultAddr     = "127.0.0.1:8787"
	shutdownTimeout = 10 * time.Second
	// Model calls may back off for 90 seconds in total.
	writeTimeout = 3 * time.Minute
)

// DefaultAllowedOrigins admits browser extensions only.
var DefaultAllowedOrigins = []string{"chrome-extension://*", "moz-extension://*"}

type Config struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed-origins"`
}

type Server struct {
	cfg     Config
	session *scout.Session
	logger  *zap.Logger
	router  *gin.Engine
}

func New(cfg Config, session *scout.Session, log *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{cfg: cfg, session: session, logger: log}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), corsMiddleware(cfg.AllowedOrigins))

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(session.Metrics().Handler()))

	v1 := router.Group("/v1")
	v1.POST("/scan", s.scan)
	v1.POST("/anchors", s.anchors)
	v1.GET("/zones", s.zones)
	v1.POST("/profile", s.profile)
	v1.POST("/fit", s.fit)
	v1.POST("/outreach", s.outreach)

	s.router = router
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", s.cfg.Addr), zap.Strings("allowed_origins", s.cfg.AllowedOrigins))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:           origins,
		AllowMethods:           []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:           []string{"Content-Type", "Accept", "Origin"},
		ExposeHeaders:          []string{"Retry-After"},
		AllowWildcard:          true,
		AllowBrowserExtensions: true,
		MaxAge:                 12 * time.Hour,
	})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("api request", fields...)
			return
		}
		log.Debug("api request", fields...)
	}
}

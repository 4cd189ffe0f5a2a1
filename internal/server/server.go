// Package server exposes the cut planner over HTTP with gin.
package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/piwi3910/cutplan/internal/cache"
	"github.com/piwi3910/cutplan/internal/config"
)

// Server serves the cut endpoints. It holds no per-request state; every
// packing run builds its own tracker.
type Server struct {
	cfg     config.AppConfig
	cache   cache.Cache
	logger  *log.Logger
	router  *gin.Engine
	version string
}

// New builds a server with its routes registered. A nil cache disables
// caching.
func New(cfg config.AppConfig, c cache.Cache, logger *log.Logger, version string) *Server {
	if c == nil {
		c = cache.NewNullCache()
	}
	s := &Server{
		cfg:     cfg,
		cache:   c,
		logger:  logger,
		version: version,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), accessLog(s.logger), gin.Recovery(), cors.New(corsConfig(s.cfg.Server.AllowOrigins)))

	r.GET("/healthz", s.handleHealth)

	cut := r.Group("/furniture/cut")
	cut.POST("", s.handleCut)
	cut.POST("/export/:format", s.handleExport)
	cut.POST("/compare", s.handleCompare)
	cut.POST("/import", s.handleImport)

	// Pre-flight requests without an Origin header bypass the cors
	// middleware; accept them anyway.
	r.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"*"},
		ExposeHeaders: []string{headerRequestID, "Content-Disposition", headerCache},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Run listens on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", s.cfg.Server.Addr, "cache", s.cfg.Cache.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

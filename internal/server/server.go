// Package server exposes one loaded cohort dataset over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/cohortdash/internal/aggregate"
	"github.com/KaramelBytes/cohortdash/internal/cohort"
	"github.com/KaramelBytes/cohortdash/internal/filter"
	"github.com/KaramelBytes/cohortdash/internal/preset"
	"github.com/KaramelBytes/cohortdash/internal/render"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Aggregate aggregate.Options
	Charts    render.ChartOptions
	// Presets is optional; without it the preset routes answer 404.
	Presets *preset.Store
	Logger  *slog.Logger
	// AllowOrigins enables CORS for browser front ends; "*" allows any.
	AllowOrigins []string
}

// Server serves dashboard queries over an immutable dataset. Handlers share
// the dataset without locking.
type Server struct {
	ds       *cohort.Dataset
	voc      filter.Vocabulary
	opt      Options
	log      *slog.Logger
	registry *prometheus.Registry
	metrics  *Metrics
}

// New prepares a server for ds.
func New(ds *cohort.Dataset, opt Options) *Server {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		ds:       ds,
		voc:      filter.Vocabularies(ds),
		opt:      opt,
		log:      log,
		registry: reg,
		metrics:  NewMetrics(reg),
	}
	s.metrics.records.Set(float64(ds.Len()))
	s.metrics.subjects.Set(float64(aggregate.DistinctSubjects(ds.All())))
	for _, f := range s.voc.Ambiguous() {
		log.Warn("facet data contains the literal \"All\"; it cannot be selected over HTTP", "facet", f.Key())
	}
	return s
}

// Registry returns the server's Prometheus registry.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	if len(s.opt.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: s.opt.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	{
		v1.GET("/facets", s.facets)
		v1.GET("/dashboard", s.dashboard)
		v1.GET("/records", s.records)
		v1.GET("/charts/:chart", s.chart)

		presets := v1.Group("/presets")
		{
			presets.GET("", s.listPresets)
			presets.GET("/:name/dashboard", s.presetDashboard)
		}
	}
	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("serving cohort dashboard", "addr", addr, "dataset", s.ds.Name, "records", s.ds.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

// requestLogger logs each request through slog and counts it.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.requests.WithLabelValues(route, fmt.Sprint(status)).Inc()

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.log.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"duration", time.Since(start),
		)
	}
}

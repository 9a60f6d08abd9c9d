// Package server is the HTTP interface of the reconstruction engine.
//
// Routes:
//
//	GET  /health               liveness
//	GET  /metrics              Prometheus
//	POST /v1/reconstruct       one reconstruction plus samples
//	POST /v1/reconstruct/batch several, reconstructed concurrently
//	POST /v1/tool              tool call (see derivrecon.HandleToolCall)
//	GET  /v1/tool/schema       tool schema for agent registration
//
// Errors come back as {error, kind, request_id}: 400 for parse and request
// errors, 422 for integration and constraint failures, 429 when rate
// limited and 504 when a reconstruction runs past its budget.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/njchilds90/derivrecon"
	"github.com/njchilds90/derivrecon/internal/config"
	"github.com/njchilds90/derivrecon/internal/observability"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type Server struct {
	cfg     config.Config
	log     *slog.Logger
	metrics *observability.Metrics
	engine  *gin.Engine
}

// New builds the router. Metrics are registered on reg, which also backs
// GET /metrics.
func New(cfg config.Config, log *slog.Logger, reg *prometheus.Registry) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: observability.NewMetrics(reg),
		engine:  gin.New(),
	}

	var limiter *rate.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.Burst)
	}

	r := s.engine
	r.Use(gin.Recovery(), withRequestID(), withLogging(log), otelgin.Middleware(cfg.Trace.ServiceName))
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		c.Next()
	})

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1", withRateLimit(limiter))
	v1.POST("/reconstruct", s.reconstruct)
	v1.POST("/reconstruct/batch", s.batch)
	v1.POST("/tool", s.tool)
	v1.GET("/tool/schema", s.schema)
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on cfg.Server.Addr until ctx is done, then shuts down
// gracefully.
func Run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           New(cfg, log, reg).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Serve wires logging and tracing from cfg, then calls Run. Logs go to w.
func Serve(ctx context.Context, cfg config.Config, version string, w io.Writer) error {
	log := observability.NewLogger(w, cfg.Log)
	derivrecon.SetLogger(log)
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdown, err := observability.InitTracing(ctx, cfg.Trace, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warn("tracer shutdown", "err", err)
		}
	}()

	log.Info("starting derivrecon", "version", version, "trace_exporter", cfg.Trace.Exporter)
	return Run(ctx, cfg, log)
}

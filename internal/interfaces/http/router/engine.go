package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/transportops/backoffice/internal/infrastructure/config"
	"github.com/transportops/backoffice/internal/infrastructure/logger"
	"github.com/transportops/backoffice/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EngineOptions configures the middleware chain
type EngineOptions struct {
	Logger      *zap.Logger
	HTTP        config.HTTPConfig
	ServiceName string

	TracingEnabled bool
	TracerProvider trace.TracerProvider
	// Meter records HTTP metrics when set
	Meter            metric.Meter
	ProfilingEnabled bool
}

// Engine is the configured gin engine plus the resources it owns
type Engine struct {
	*gin.Engine
	limiter *middleware.RateLimiter
}

// Close stops background work started by the middleware chain
func (e *Engine) Close() {
	if e.limiter != nil {
		e.limiter.Stop()
	}
}

// NewEngine builds the gin engine with the full middleware chain and mounts
// /health plus the /api/v1 routes.
func NewEngine(opts EngineOptions, h Handlers) (*Engine, error) {
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	}

	cors := middleware.DefaultCORSConfig()
	if len(opts.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = opts.HTTP.CORSAllowOrigins
	}
	if len(opts.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = opts.HTTP.CORSAllowMethods
	}
	if len(opts.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = opts.HTTP.CORSAllowHeaders
	}

	engine.Use(
		logger.Recovery(opts.Logger),
		middleware.RequestID(),
		logger.GinMiddleware(opts.Logger),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
	)
	if opts.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	}
	engine.Use(
		middleware.Tracing(middleware.TracingConfig{
			ServiceName:    opts.ServiceName,
			Enabled:        opts.TracingEnabled,
			TracerProvider: opts.TracerProvider,
		}),
		middleware.SpanAttributes(),
	)
	if opts.Meter != nil {
		metrics, err := middleware.HTTPMetrics(opts.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}
	if opts.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}

	e := &Engine{Engine: engine}
	if opts.HTTP.RateLimit > 0 {
		window := opts.HTTP.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		e.limiter = middleware.NewRateLimiter(opts.HTTP.RateLimit, window)
		engine.Use(middleware.RateLimit(e.limiter))
	}

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}
	MountAPI(engine, APIVersion, Resources(h)...)
	return e, nil
}

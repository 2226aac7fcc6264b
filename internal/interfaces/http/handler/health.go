package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	appevent "github.com/transportops/backoffice/internal/application/event"
	"github.com/transportops/backoffice/internal/infrastructure/logger"
	"github.com/transportops/backoffice/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger checks a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// OutboxReporter reports the event outbox backlog
type OutboxReporter interface {
	Backlog(ctx context.Context) (*appevent.OutboxBacklog, error)
}

// HealthHandler reports liveness, database reachability and outbox backlog
type HealthHandler struct {
	BaseHandler
	db        Pinger
	outbox    OutboxReporter
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. outbox may be nil.
func NewHealthHandler(db Pinger, outbox OutboxReporter, version string) *HealthHandler {
	return &HealthHandler{db: db, outbox: outbox, version: version, startTime: time.Now()}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string                  `json:"status"`
	Database  string                  `json:"database"`
	Version   string                  `json:"version"`
	GoVersion string                  `json:"go_version"`
	Uptime    string                  `json:"uptime"`
	Outbox    *appevent.OutboxBacklog `json:"outbox,omitempty"`
}

// Health answers 200 when the database is reachable and 503 otherwise
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Database:  "ok",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	if err := h.db.Ping(ctx); err != nil {
		logger.L(ctx).Warn("health check: database unreachable", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "unreachable"
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
		return
	}

	if h.outbox != nil {
		backlog, err := h.outbox.Backlog(ctx)
		if err != nil {
			logger.L(ctx).Warn("health check: outbox backlog unavailable", zap.Error(err))
		} else {
			resp.Outbox = backlog
		}
	}

	h.Success(c, resp)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports dependency reachability.
type HealthHandler struct {
	rdb      *redis.Client
	db       *pgxpool.Pool
	sessions *service.SessionService
}

// NewHealthHandler creates a HealthHandler. db is nil when the archive is disabled.
func NewHealthHandler(rdb *redis.Client, db *pgxpool.Pool, sessions *service.SessionService) *HealthHandler {
	return &HealthHandler{rdb: rdb, db: db, sessions: sessions}
}

// Health godoc
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{"redis": "ok"}
	status := http.StatusOK

	if err := h.rdb.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.db != nil {
		checks["postgres"] = "ok"
		if err := h.db.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	response.Success(c, status, gin.H{
		"status":        state,
		"checks":        checks,
		"live_sessions": h.sessions.Count(),
	})
}

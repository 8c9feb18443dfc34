package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/response"
)

// SystemHandler reports process health and dependency status.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Pings PostgreSQL and Redis and reports the persistence queue depth.
// Returns 503 when either dependency is unreachable.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	dbStatus := "ok"
	if err := h.pool.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Postgres ping failed")
		dbStatus = "down"
		status = http.StatusServiceUnavailable
	}

	redisStatus := "ok"
	var queueDepth int64
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Redis ping failed")
		redisStatus = "down"
		status = http.StatusServiceUnavailable
	} else {
		queueDepth, _ = h.rdb.LLen(ctx, config.WorkerKey.PersistResultsQueue).Result()
	}

	body := gin.H{
		"status":        "ok",
		"postgres":      dbStatus,
		"redis":         redisStatus,
		"queue_results": queueDepth,
		"uptime":        time.Since(h.startTime).Round(time.Second).String(),
		"goroutines":    runtime.NumGoroutine(),
		"go_version":    runtime.Version(),
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}

	response.Success(c, status, body)
}

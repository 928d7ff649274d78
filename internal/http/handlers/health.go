package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

type HealthHandler struct {
	log              *logger.Logger
	db               *gorm.DB // nil when checkpointing is in-memory
	rdb              *goredis.Client
	checkpointDriver string
}

func NewHealthHandler(log *logger.Logger, db *gorm.DB, rdb *goredis.Client, checkpointDriver string) *HealthHandler {
	return &HealthHandler{
		log:              log.With("handler", "HealthHandler"),
		db:               db,
		rdb:              rdb,
		checkpointDriver: checkpointDriver,
	}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness checks the dependencies a turn actually needs. Redis being down is
// degraded, not unready: the thread lease falls back to the in-process lock.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := gin.H{
		"status":            "ok",
		"checkpoint_driver": h.checkpointDriver,
	}

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status = http.StatusServiceUnavailable
			out["status"] = "unready"
			out["database"] = err.Error()
		} else {
			out["database"] = "ok"
		}
	}

	if h.rdb != nil {
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			out["redis"] = "degraded: " + err.Error()
		} else {
			out["redis"] = "ok"
		}
	} else {
		out["redis"] = "disabled"
	}

	c.JSON(status, out)
}

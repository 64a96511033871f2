package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db  *gorm.DB
	rdb *redis.Client // optional
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Check reports 503 when the database is unreachable. Redis only degrades
// rate limiting and caching, so its state is reported but never fails the
// check.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbState := "connected"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbState = "disconnected"
	}

	body := gin.H{"dbState": dbState}
	if h.rdb != nil {
		redisState := "connected"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			redisState = "disconnected"
		}
		body["redisState"] = redisState
	}

	if dbState != "connected" {
		body["status"] = "ERROR"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "OK"
	c.JSON(http.StatusOK, body)
}

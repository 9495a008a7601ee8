// Package health exposes the liveness probe.
package health

import (
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db      *gorm.DB
	started time.Time
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, started: time.Now()}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
}

// GET /health
func (h *Handler) health(c *gin.Context) {
	dbOK := true
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		dbOK = false
	}
	response.OK(c, gin.H{
		"ok":     dbOK,
		"uptime": time.Since(h.started).Round(time.Second).String(),
		"db":     dbOK,
	})
}

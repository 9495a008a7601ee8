// Package user exposes the admin view of the anonymous user table.
package user

import (
	"errors"
	"strconv"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/JuanFRosales/MindsetGo/internal/modules/auth"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Service struct {
	db      *gorm.DB
	authSvc *auth.Service
	cfg     *config.AppConfig
}

func NewService(db *gorm.DB, authSvc *auth.Service, cfg *config.AppConfig) *Service {
	return &Service{db: db, authSvc: authSvc, cfg: cfg}
}

// Create mints a bare user without an invite. Admin escape hatch for
// provisioning and testing.
func (s *Service) Create() (*models.UserModel, error) {
	now := time.Now()
	user := models.UserModel{
		LastActiveAt: now,
		ExpiresAt:    now.Add(time.Duration(s.cfg.TTL.UserDays) * 24 * time.Hour),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) List(limit int) ([]models.UserModel, error) {
	var users []models.UserModel
	err := s.db.Order("created_at DESC").Limit(limit).Find(&users).Error
	return users, err
}

// Get returns a user and refreshes its activity timestamp.
func (s *Service) Get(id string) (*models.UserModel, error) {
	var user models.UserModel
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	err := s.db.Model(&models.UserModel{}).
		Where("id = ?", id).
		Update("last_active_at", now).Error
	if err != nil {
		return nil, err
	}
	user.LastActiveAt = now
	return &user, nil
}

// Delete removes the user with everything keyed to them.
func (s *Service) Delete(id string) error {
	var user models.UserModel
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return err
	}
	return s.authSvc.DeleteAccount(id)
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	g := rg.Group("/users", adminMW)
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
}

// POST /users
func (h *Handler) create(c *gin.Context) {
	user, err := h.svc.Create()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, user)
}

// GET /users
func (h *Handler) list(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "bad_request")
			return
		}
		limit = n
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	users, err := h.svc.List(limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, users)
}

// GET /users/:id
func (h *Handler) get(c *gin.Context) {
	user, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, user)
}

// DELETE /users/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

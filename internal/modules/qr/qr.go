// Package qr links physical QR identifiers to anonymous users and issues
// short-lived resolutions that feed the proof-based login exchange.
package qr

import (
	"errors"
	"strings"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/JuanFRosales/MindsetGo/internal/modules/auth"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ScanDTO struct {
	QrID       string `json:"qrId" binding:"required"`
	InviteCode string `json:"inviteCode"`
}

type scanResponse struct {
	UserID       string `json:"userId"`
	ResolutionID string `json:"resolutionId"`
	Linked       bool   `json:"linked"`
}

var errInviteRequired = errors.New("invite code required for new qr link")

type Service struct {
	db      *gorm.DB
	authSvc *auth.Service
	cfg     *config.AppConfig
}

func NewService(db *gorm.DB, authSvc *auth.Service, cfg *config.AppConfig) *Service {
	return &Service{db: db, authSvc: authSvc, cfg: cfg}
}

// Scan resolves a QR identifier to a user. A known QR is touched and gets a
// fresh resolution, so re-scanning is idempotent with respect to the link.
// An unknown QR requires a valid invite: the invite is redeemed into a new
// user and the QR is bound to it.
func (s *Service) Scan(qrID, inviteCode string) (*scanResponse, error) {
	now := time.Now()

	var link models.QrLinkModel
	err := s.db.Where("qr_id = ?", qrID).First(&link).Error
	if err == nil {
		s.db.Model(&models.QrLinkModel{}).
			Where("qr_id = ?", qrID).
			Update("last_seen_at", now)

		resolution, rerr := s.createResolution(qrID, link.UserID)
		if rerr != nil {
			return nil, rerr
		}
		return &scanResponse{UserID: link.UserID, ResolutionID: resolution.ID, Linked: true}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if inviteCode == "" {
		return nil, errInviteRequired
	}

	user, err := s.authSvc.RedeemInvite(inviteCode)
	if err != nil {
		return nil, err
	}

	newLink := models.QrLinkModel{
		QrID:       qrID,
		UserID:     user.ID,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.db.Create(&newLink).Error; err != nil {
		return nil, err
	}

	resolution, err := s.createResolution(qrID, user.ID)
	if err != nil {
		return nil, err
	}
	return &scanResponse{UserID: user.ID, ResolutionID: resolution.ID, Linked: false}, nil
}

func (s *Service) createResolution(qrID, userID string) (*models.QrResolutionModel, error) {
	resolution := models.QrResolutionModel{
		QrID:   qrID,
		UserID: userID,
		ExpiresAt: time.Now().
			Add(time.Duration(s.cfg.TTL.ResolutionMinutes) * time.Minute),
	}
	if err := s.db.Create(&resolution).Error; err != nil {
		return nil, err
	}
	return &resolution, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/qr/scan", h.scan)
}

// POST /qr/scan
func (h *Handler) scan(c *gin.Context) {
	var dto ScanDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "missing_qr_id")
		return
	}

	qrID := strings.TrimSpace(dto.QrID)
	inviteCode := strings.TrimSpace(dto.InviteCode)
	if qrID == "" {
		response.BadRequest(c, "missing_qr_id")
		return
	}

	out, err := h.svc.Scan(qrID, inviteCode)
	if err != nil {
		switch {
		case errors.Is(err, errInviteRequired):
			response.BadRequest(c, "missing_invite_code")
		case errors.Is(err, auth.ErrInvalidCode):
			response.BadRequest(c, "invalid_invite_code")
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, out)
}

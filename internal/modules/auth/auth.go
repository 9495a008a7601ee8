// Package auth implements invite minting, invite redemption and the proof
// based cross-device login exchange. Accounts are anonymous: a user row is
// just an ID plus activity and expiry timestamps.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/middleware"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/response"
	sessionpkg "github.com/JuanFRosales/MindsetGo/internal/pkg/session"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RedeemInviteDTO struct {
	Code string `json:"code" binding:"required"`
}

type IssueProofDTO struct {
	ResolutionID string `json:"resolutionId" binding:"required"`
}

type ExchangeProofDTO struct {
	ProofID string `json:"proofId" binding:"required"`
}

type sessionResponse struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

var (
	ErrInvalidCode      = errors.New("invalid invite code")
	errInvalidProof     = errors.New("invalid login proof")
	errProofAlreadyUsed = errors.New("login proof already used")
)

type Service struct {
	db  *gorm.DB
	cfg *config.AppConfig
}

func NewService(db *gorm.DB, cfg *config.AppConfig) *Service {
	return &Service{db: db, cfg: cfg}
}

// MintInvite creates a single-use invite code.
func (s *Service) MintInvite() (*models.InviteCodeModel, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	invite := models.InviteCodeModel{
		Code:      hex.EncodeToString(buf),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Duration(s.cfg.TTL.InviteHours) * time.Hour),
	}
	if err := s.db.Create(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// RedeemInvite creates a fresh anonymous user and consumes the invite.
// The consume is a conditional update on used_at so two concurrent redeems
// of the same code cannot both win; the loser's speculative user row is
// removed again.
func (s *Service) RedeemInvite(code string) (*models.UserModel, error) {
	now := time.Now()

	var invite models.InviteCodeModel
	err := s.db.
		Where("code = ? AND used_at IS NULL AND expires_at > ?", code, now).
		First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	user := models.UserModel{
		LastActiveAt: now,
		ExpiresAt:    now.Add(time.Duration(s.cfg.TTL.UserDays) * 24 * time.Hour),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	res := s.db.Model(&models.InviteCodeModel{}).
		Where("code = ? AND used_at IS NULL", code).
		Updates(map[string]interface{}{"used_at": now, "used_by_user_id": user.ID})
	if res.Error != nil {
		s.db.Delete(&models.UserModel{}, "id = ?", user.ID)
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		s.db.Delete(&models.UserModel{}, "id = ?", user.ID)
		return nil, ErrInvalidCode
	}

	return &user, nil
}

// IssueProof turns a live QR resolution into a short-lived login proof.
// The resolution stays in place until the proof is exchanged, so a lost
// response can be retried with a fresh proof.
func (s *Service) IssueProof(resolutionID string) (*models.LoginProofModel, error) {
	now := time.Now()

	var resolution models.QrResolutionModel
	err := s.db.
		Where("id = ? AND expires_at > ?", resolutionID, now).
		First(&resolution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidProof
		}
		return nil, err
	}

	proof := models.LoginProofModel{
		UserID:       resolution.UserID,
		ResolutionID: resolution.ID,
		ExpiresAt:    now.Add(time.Duration(s.cfg.TTL.ProofMinutes) * time.Minute),
	}
	if err := s.db.Create(&proof).Error; err != nil {
		return nil, err
	}
	return &proof, nil
}

// ExchangeProof consumes a login proof and issues a session. The proof's
// backing resolution must still be live and bound to the same user; that is
// checked before the proof is marked used, so a stale or cross-bound
// resolution does not burn the proof. The consume itself is a conditional
// update so it can succeed exactly once; a second exchange of the same proof
// reports errProofAlreadyUsed. The resolution is deleted only after the
// proof wins.
func (s *Service) ExchangeProof(proofID string) (token string, sess *models.SessionModel, err error) {
	now := time.Now()

	var proof models.LoginProofModel
	err = s.db.
		Where("id = ? AND expires_at > ?", proofID, now).
		First(&proof).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errInvalidProof
		}
		return "", nil, err
	}
	if proof.UsedAt != nil {
		return "", nil, errProofAlreadyUsed
	}

	var resolution models.QrResolutionModel
	err = s.db.
		Where("id = ? AND expires_at > ?", proof.ResolutionID, now).
		First(&resolution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errInvalidProof
		}
		return "", nil, err
	}
	if resolution.UserID != proof.UserID {
		return "", nil, errInvalidProof
	}

	res := s.db.Model(&models.LoginProofModel{}).
		Where("id = ? AND used_at IS NULL", proofID).
		Update("used_at", now)
	if res.Error != nil {
		return "", nil, res.Error
	}
	if res.RowsAffected == 0 {
		return "", nil, errProofAlreadyUsed
	}

	s.db.Delete(&models.QrResolutionModel{}, "id = ?", resolution.ID)

	return sessionpkg.Issue(s.db, proof.UserID, s.sessionTTL())
}

// IssueSession creates a session for an already-authenticated user.
func (s *Service) IssueSession(userID string) (string, *models.SessionModel, error) {
	return sessionpkg.Issue(s.db, userID, s.sessionTTL())
}

// DeleteAccount removes the user and everything keyed to them.
func (s *Service) DeleteAccount(userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, del := range []struct {
			model interface{}
			where string
		}{
			{&models.MessageModel{}, "user_id = ?"},
			{&models.ConversationSummaryModel{}, "user_id = ?"},
			{&models.ProfileStateModel{}, "user_id = ?"},
			{&models.LoginProofModel{}, "user_id = ?"},
			{&models.QrResolutionModel{}, "user_id = ?"},
			{&models.QrLinkModel{}, "user_id = ?"},
			{&models.WebauthnChallengeModel{}, "user_id = ?"},
			{&models.PasskeyModel{}, "user_id = ?"},
			{&models.SessionModel{}, "user_id = ?"},
		} {
			if err := tx.Delete(del.model, del.where, userID).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.UserModel{}, "id = ?", userID).Error
	})
}

func (s *Service) sessionTTL() time.Duration {
	return time.Duration(s.cfg.TTL.SessionMinutes) * time.Minute
}

type Handler struct {
	svc *Service
	cfg *config.AppConfig
}

func NewHandler(svc *Service, cfg *config.AppConfig) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	rg.POST("/invites", adminMW, h.mintInvite)

	g := rg.Group("/auth")
	g.POST("/qr", h.redeemInvite)
	g.POST("/proof", h.issueProof)
	g.POST("/session", h.exchangeProof)
	g.POST("/logout", h.logout)

	a := g.Group("", authMW)
	a.GET("/me", h.me)
	a.DELETE("/me", h.deleteMe)
}

// POST /invites
func (h *Handler) mintInvite(c *gin.Context) {
	invite, err := h.svc.MintInvite()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{
		"code":      invite.Code,
		"expiresAt": invite.ExpiresAt,
	})
}

// POST /auth/qr
func (h *Handler) redeemInvite(c *gin.Context) {
	var dto RedeemInviteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "missing_code")
		return
	}

	user, err := h.svc.RedeemInvite(dto.Code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			response.BadRequest(c, "invalid_code")
			return
		}
		response.InternalError(c, err)
		return
	}

	token, sess, err := h.svc.IssueSession(user.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	response.OK(c, sessionResponse{UserID: user.ID, ExpiresAt: sess.ExpiresAt})
}

// POST /auth/proof
func (h *Handler) issueProof(c *gin.Context) {
	var dto IssueProofDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "missing_resolution_id")
		return
	}

	proof, err := h.svc.IssueProof(dto.ResolutionID)
	if err != nil {
		if errors.Is(err, errInvalidProof) {
			response.Unauthorized(c)
			return
		}
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{
		"proofId":   proof.ID,
		"expiresAt": proof.ExpiresAt,
	})
}

// POST /auth/session
func (h *Handler) exchangeProof(c *gin.Context) {
	var dto ExchangeProofDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "missing_proof_id")
		return
	}

	token, sess, err := h.svc.ExchangeProof(dto.ProofID)
	if err != nil {
		switch {
		case errors.Is(err, errProofAlreadyUsed):
			response.Conflict(c, "proof_already_used")
		case errors.Is(err, errInvalidProof):
			response.Unauthorized(c)
		default:
			response.InternalError(c, err)
		}
		return
	}

	h.setSessionCookie(c, token)
	response.OK(c, sessionResponse{UserID: sess.UserID, ExpiresAt: sess.ExpiresAt})
}

// POST /auth/logout
func (h *Handler) logout(c *gin.Context) {
	if token, err := c.Cookie(h.cfg.CookieName); err == nil && token != "" {
		if sess, rerr := sessionpkg.Resolve(h.svc.db, token); rerr == nil {
			_ = sessionpkg.Revoke(h.svc.db, sess.ID)
		}
	}
	h.clearSessionCookie(c)
	response.NoContent(c)
}

// GET /auth/me
func (h *Handler) me(c *gin.Context) {
	response.OK(c, gin.H{"userId": middleware.CurrentUserID(c)})
}

// DELETE /auth/me
func (h *Handler) deleteMe(c *gin.Context) {
	if err := h.svc.DeleteAccount(middleware.CurrentUserID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	h.clearSessionCookie(c)
	response.NoContent(c)
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := h.cfg.TTL.SessionMinutes * 60
	c.SetCookie(h.cfg.CookieName, token, maxAge, "/", "", !h.cfg.IsDev(), true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, "", -1, "/", "", !h.cfg.IsDev(), true)
}

// Package retention physically deletes expired rows. Every table carries an
// expiry or inactivity column, so the whole privacy posture reduces to this
// sweep running on schedule.
package retention

import (
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/middleware"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SweepResult is the per-table deletion count of one sweep run. Counts are
// the only thing the sweep ever logs.
type SweepResult struct {
	Sessions           int64 `json:"deletedSessions"`
	InvitesExpired     int64 `json:"deletedInvitesExpired"`
	InvitesUsed        int64 `json:"deletedInvitesUsed"`
	ProofsExpired      int64 `json:"deletedProofsExpired"`
	ProofsUsed         int64 `json:"deletedProofsUsed"`
	Challenges         int64 `json:"deletedChallenges"`
	QrResolutions      int64 `json:"deletedQrResolutions"`
	QrLinks            int64 `json:"deletedQrLinks"`
	Messages           int64 `json:"deletedMessages"`
	Summaries          int64 `json:"deletedSummaries"`
	ProfileStates      int64 `json:"deletedProfileStates"`
	Users              int64 `json:"deletedUsers"`
	UserOwnedRows      int64 `json:"deletedUserOwnedRows"`
}

type Service struct {
	db  *gorm.DB
	cfg *config.AppConfig
	log *zap.Logger
}

func NewService(db *gorm.DB, cfg *config.AppConfig, log *zap.Logger) *Service {
	return &Service{db: db, cfg: cfg, log: log}
}

// Sweep deletes everything past its retention window. Short-lived artifacts
// go first, then content tables, then whole expired users with everything
// they still own.
func (s *Service) Sweep() (*SweepResult, error) {
	now := time.Now()
	res := &SweepResult{}

	inviteUsedCutoff := now.Add(-time.Duration(s.cfg.TTL.InviteUsedRetentionHour) * time.Hour)
	proofUsedCutoff := now.Add(-time.Duration(s.cfg.TTL.ProofUsedRetentionHour) * time.Hour)
	qrInactiveCutoff := now.Add(-time.Duration(s.cfg.TTL.QrInactiveDays) * 24 * time.Hour)

	steps := []struct {
		count *int64
		run   func() *gorm.DB
	}{
		{&res.ProofsExpired, func() *gorm.DB {
			return s.db.Delete(&models.LoginProofModel{}, "expires_at <= ?", now)
		}},
		{&res.ProofsUsed, func() *gorm.DB {
			return s.db.Delete(&models.LoginProofModel{}, "used_at IS NOT NULL AND used_at <= ?", proofUsedCutoff)
		}},
		{&res.Challenges, func() *gorm.DB {
			return s.db.Delete(&models.WebauthnChallengeModel{}, "expires_at <= ?", now)
		}},
		{&res.QrResolutions, func() *gorm.DB {
			return s.db.Delete(&models.QrResolutionModel{}, "expires_at <= ?", now)
		}},
		{&res.Sessions, func() *gorm.DB {
			return s.db.Delete(&models.SessionModel{}, "expires_at <= ?", now)
		}},
		{&res.InvitesExpired, func() *gorm.DB {
			return s.db.Delete(&models.InviteCodeModel{}, "expires_at <= ?", now)
		}},
		{&res.InvitesUsed, func() *gorm.DB {
			return s.db.Delete(&models.InviteCodeModel{}, "used_at IS NOT NULL AND used_at <= ?", inviteUsedCutoff)
		}},
		{&res.Messages, func() *gorm.DB {
			return s.db.Delete(&models.MessageModel{}, "expires_at <= ?", now)
		}},
		{&res.Summaries, func() *gorm.DB {
			return s.db.Delete(&models.ConversationSummaryModel{}, "expires_at <= ?", now)
		}},
		{&res.ProfileStates, func() *gorm.DB {
			return s.db.Delete(&models.ProfileStateModel{}, "expires_at <= ?", now)
		}},
		{&res.QrLinks, func() *gorm.DB {
			return s.db.Delete(&models.QrLinkModel{}, "last_seen_at <= ?", qrInactiveCutoff)
		}},
	}

	for _, step := range steps {
		tx := step.run()
		if tx.Error != nil {
			return res, tx.Error
		}
		*step.count += tx.RowsAffected
	}

	users, owned, err := s.sweepExpiredUsers(now)
	if err != nil {
		return res, err
	}
	res.Users = users
	res.UserOwnedRows = owned

	s.logResult(res)
	return res, nil
}

// sweepExpiredUsers removes users whose own TTL elapsed, including every
// row still keyed to them regardless of that row's own expiry.
func (s *Service) sweepExpiredUsers(now time.Time) (users int64, owned int64, err error) {
	var ids []string
	err = s.db.Model(&models.UserModel{}).
		Where("expires_at <= ?", now).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, 0, err
	}

	ownedModels := []interface{}{
		&models.MessageModel{},
		&models.ConversationSummaryModel{},
		&models.ProfileStateModel{},
		&models.LoginProofModel{},
		&models.QrResolutionModel{},
		&models.QrLinkModel{},
		&models.WebauthnChallengeModel{},
		&models.PasskeyModel{},
		&models.SessionModel{},
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range ownedModels {
			del := tx.Delete(m, "user_id IN ?", ids)
			if del.Error != nil {
				return del.Error
			}
			owned += del.RowsAffected
		}
		del := tx.Delete(&models.UserModel{}, "id IN ?", ids)
		if del.Error != nil {
			return del.Error
		}
		users = del.RowsAffected
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return users, owned, nil
}

func (s *Service) logResult(res *SweepResult) {
	s.log.Info("ttl cleanup done",
		zap.Int64("sessions", res.Sessions),
		zap.Int64("invitesExpired", res.InvitesExpired),
		zap.Int64("invitesUsed", res.InvitesUsed),
		zap.Int64("proofsExpired", res.ProofsExpired),
		zap.Int64("proofsUsed", res.ProofsUsed),
		zap.Int64("challenges", res.Challenges),
		zap.Int64("qrResolutions", res.QrResolutions),
		zap.Int64("qrLinks", res.QrLinks),
		zap.Int64("messages", res.Messages),
		zap.Int64("summaries", res.Summaries),
		zap.Int64("profileStates", res.ProfileStates),
		zap.Int64("users", res.Users),
		zap.Int64("userOwnedRows", res.UserOwnedRows),
	)
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminKey string) {
	rg.POST("/admin/cleanup", middleware.AdminKey(adminKey), h.cleanup)
}

// POST /admin/cleanup
func (h *Handler) cleanup(c *gin.Context) {
	res, err := h.svc.Sweep()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, res)
}

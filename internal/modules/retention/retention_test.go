package retention

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/database"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.AppConfig{}
	cfg.TTL.InviteUsedRetentionHour = 24
	cfg.TTL.ProofUsedRetentionHour = 1
	cfg.TTL.QrInactiveDays = 30

	return NewService(db, cfg, zap.NewNop()), db
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestSweepExpiredRows(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.NoError(t, db.Create(&models.SessionModel{UserID: "u1", ExpiresAt: past}).Error)
	require.NoError(t, db.Create(&models.SessionModel{UserID: "u1", ExpiresAt: future}).Error)
	require.NoError(t, db.Create(&models.InviteCodeModel{Code: "dead0000000000000000000000000000", ExpiresAt: past}).Error)
	require.NoError(t, db.Create(&models.InviteCodeModel{Code: "live0000000000000000000000000000", ExpiresAt: future}).Error)
	require.NoError(t, db.Create(&models.LoginProofModel{UserID: "u1", ResolutionID: "r1", ExpiresAt: past}).Error)
	require.NoError(t, db.Create(&models.QrResolutionModel{QrID: "q1", UserID: "u1", ExpiresAt: past}).Error)
	require.NoError(t, db.Create(&models.WebauthnChallengeModel{UserID: "u1", Kind: models.ChallengeLogin, Challenge: "c", ExpiresAt: past}).Error)
	require.NoError(t, db.Create(&models.MessageModel{UserID: "u1", ConversationID: "default", Role: models.RoleUser, Content: "old", ExpiresAt: past}).Error)
	require.NoError(t, db.Create(&models.MessageModel{UserID: "u1", ConversationID: "default", Role: models.RoleUser, Content: "new", ExpiresAt: future}).Error)
	require.NoError(t, db.Create(&models.ConversationSummaryModel{UserID: "u1", ConversationID: "default", SummaryText: "s", ExpiresAt: past}).Error)
	require.NoError(t, db.Create(&models.ProfileStateModel{UserID: "u1", StateJSON: "{}", ExpiresAt: past}).Error)

	res, err := svc.Sweep()
	require.NoError(t, err)

	assert.EqualValues(t, 1, res.Sessions)
	assert.EqualValues(t, 1, res.InvitesExpired)
	assert.EqualValues(t, 1, res.ProofsExpired)
	assert.EqualValues(t, 1, res.QrResolutions)
	assert.EqualValues(t, 1, res.Challenges)
	assert.EqualValues(t, 1, res.Messages)
	assert.EqualValues(t, 1, res.Summaries)
	assert.EqualValues(t, 1, res.ProfileStates)

	var sessions, invites, messages int64
	require.NoError(t, db.Model(&models.SessionModel{}).Count(&sessions).Error)
	require.NoError(t, db.Model(&models.InviteCodeModel{}).Count(&invites).Error)
	require.NoError(t, db.Model(&models.MessageModel{}).Count(&messages).Error)
	assert.EqualValues(t, 1, sessions)
	assert.EqualValues(t, 1, invites)
	assert.EqualValues(t, 1, messages)
}

func TestSweepUsedGraceWindows(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now()
	future := now.Add(time.Hour)

	// Used an hour ago, grace is 24h: kept.
	require.NoError(t, db.Create(&models.InviteCodeModel{
		Code: "used000000000000000000000000000a", ExpiresAt: future,
		UsedAt: ptrTime(now.Add(-time.Hour)),
	}).Error)
	// Used two days ago: gone.
	require.NoError(t, db.Create(&models.InviteCodeModel{
		Code: "used000000000000000000000000000b", ExpiresAt: future,
		UsedAt: ptrTime(now.Add(-48 * time.Hour)),
	}).Error)
	// Proof grace is 1h.
	require.NoError(t, db.Create(&models.LoginProofModel{
		UserID: "u1", ResolutionID: "r1", ExpiresAt: future,
		UsedAt: ptrTime(now.Add(-time.Minute)),
	}).Error)
	require.NoError(t, db.Create(&models.LoginProofModel{
		UserID: "u1", ResolutionID: "r2", ExpiresAt: future,
		UsedAt: ptrTime(now.Add(-2 * time.Hour)),
	}).Error)

	res, err := svc.Sweep()
	require.NoError(t, err)

	assert.EqualValues(t, 1, res.InvitesUsed)
	assert.EqualValues(t, 1, res.ProofsUsed)

	var invites, proofs int64
	require.NoError(t, db.Model(&models.InviteCodeModel{}).Count(&invites).Error)
	require.NoError(t, db.Model(&models.LoginProofModel{}).Count(&proofs).Error)
	assert.EqualValues(t, 1, invites)
	assert.EqualValues(t, 1, proofs)
}

func TestSweepInactiveQrLinks(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now()

	require.NoError(t, db.Create(&models.QrLinkModel{
		QrID: "stale", UserID: "u1", LastSeenAt: now.Add(-40 * 24 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.QrLinkModel{
		QrID: "fresh", UserID: "u1", LastSeenAt: now.Add(-time.Hour),
	}).Error)

	res, err := svc.Sweep()
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.QrLinks)

	var kept models.QrLinkModel
	require.NoError(t, db.First(&kept).Error)
	assert.Equal(t, "fresh", kept.QrID)
}

func TestSweepExpiredUserCascades(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now()
	future := now.Add(24 * time.Hour)

	expired := models.UserModel{LastActiveAt: now, ExpiresAt: now.Add(-time.Hour)}
	alive := models.UserModel{LastActiveAt: now, ExpiresAt: future}
	require.NoError(t, db.Create(&expired).Error)
	require.NoError(t, db.Create(&alive).Error)

	// Rows owned by the expired user are deleted even when not yet expired.
	require.NoError(t, db.Create(&models.MessageModel{UserID: expired.ID, ConversationID: "default", Role: models.RoleUser, Content: "x", ExpiresAt: future}).Error)
	require.NoError(t, db.Create(&models.SessionModel{UserID: expired.ID, ExpiresAt: future}).Error)
	require.NoError(t, db.Create(&models.PasskeyModel{UserID: expired.ID, CredentialID: "cid", PublicKey: "pk"}).Error)
	require.NoError(t, db.Create(&models.MessageModel{UserID: alive.ID, ConversationID: "default", Role: models.RoleUser, Content: "y", ExpiresAt: future}).Error)

	res, err := svc.Sweep()
	require.NoError(t, err)

	assert.EqualValues(t, 1, res.Users)
	assert.EqualValues(t, 3, res.UserOwnedRows)

	var users, messages int64
	require.NoError(t, db.Model(&models.UserModel{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.MessageModel{}).Count(&messages).Error)
	assert.EqualValues(t, 1, users)
	assert.EqualValues(t, 1, messages)

	var remaining models.MessageModel
	require.NoError(t, db.First(&remaining).Error)
	assert.Equal(t, alive.ID, remaining.UserID)
}

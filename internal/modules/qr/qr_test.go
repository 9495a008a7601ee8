package qr

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/database"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/JuanFRosales/MindsetGo/internal/modules/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *auth.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.AppConfig{AdminKey: "test-admin"}
	cfg.TTL.InviteHours = 24
	cfg.TTL.UserDays = 14
	cfg.TTL.SessionMinutes = 720
	cfg.TTL.ResolutionMinutes = 5

	authSvc := auth.NewService(db, cfg)
	return NewService(db, authSvc, cfg), authSvc, db
}

func TestScanNewQrRequiresInvite(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Scan("qr-new", "")
	assert.ErrorIs(t, err, errInviteRequired)
}

func TestScanNewQrWithInvite(t *testing.T) {
	svc, authSvc, db := newTestService(t)

	invite, err := authSvc.MintInvite()
	require.NoError(t, err)

	out, err := svc.Scan("qr-new", invite.Code)
	require.NoError(t, err)
	assert.False(t, out.Linked)
	assert.NotEmpty(t, out.UserID)
	assert.NotEmpty(t, out.ResolutionID)

	var link models.QrLinkModel
	require.NoError(t, db.First(&link, "qr_id = ?", "qr-new").Error)
	assert.Equal(t, out.UserID, link.UserID)
}

func TestScanExistingQrIsIdempotent(t *testing.T) {
	svc, authSvc, db := newTestService(t)

	invite, err := authSvc.MintInvite()
	require.NoError(t, err)
	first, err := svc.Scan("qr-1", invite.Code)
	require.NoError(t, err)

	before := time.Now()
	second, err := svc.Scan("qr-1", "")
	require.NoError(t, err)

	assert.True(t, second.Linked)
	assert.Equal(t, first.UserID, second.UserID)
	assert.NotEqual(t, first.ResolutionID, second.ResolutionID)

	var link models.QrLinkModel
	require.NoError(t, db.First(&link, "qr_id = ?", "qr-1").Error)
	assert.False(t, link.LastSeenAt.Before(before.Add(-time.Second)))

	// No second user was created.
	var users int64
	require.NoError(t, db.Model(&models.UserModel{}).Count(&users).Error)
	assert.EqualValues(t, 1, users)
}

func TestScanExistingQrIgnoresInvite(t *testing.T) {
	svc, authSvc, db := newTestService(t)

	invite, err := authSvc.MintInvite()
	require.NoError(t, err)
	first, err := svc.Scan("qr-1", invite.Code)
	require.NoError(t, err)

	spare, err := authSvc.MintInvite()
	require.NoError(t, err)

	out, err := svc.Scan("qr-1", spare.Code)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, out.UserID)

	// The spare invite stays unredeemed.
	var stored models.InviteCodeModel
	require.NoError(t, db.First(&stored, "code = ?", spare.Code).Error)
	assert.Nil(t, stored.UsedAt)
}

func TestScanInvalidInvite(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Scan("qr-x", "bogus-code")
	assert.ErrorIs(t, err, auth.ErrInvalidCode)
}

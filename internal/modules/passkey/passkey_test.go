package passkey

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/database"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	cfg.WebAuthn.RPName = "MindsetGo Test"
	cfg.WebAuthn.RPID = "localhost"
	cfg.WebAuthn.Origin = "http://localhost:8080"
	cfg.TTL.ChallengeMinutes = 5

	svc, err := NewService(db, cfg)
	require.NoError(t, err)
	return svc, db
}

func seedResolution(t *testing.T, db *gorm.DB, userID string, expiresAt time.Time) string {
	t.Helper()
	res := models.QrResolutionModel{QrID: "qr-1", UserID: userID, ExpiresAt: expiresAt}
	require.NoError(t, db.Create(&res).Error)
	return res.ID
}

func TestBeginRegistrationRequiresLiveResolution(t *testing.T) {
	svc, db := newTestService(t)

	_, _, err := svc.BeginRegistration("missing")
	assert.ErrorIs(t, err, errInvalidResolution)

	stale := seedResolution(t, db, "user-1", time.Now().Add(-time.Minute))
	_, _, err = svc.BeginRegistration(stale)
	assert.ErrorIs(t, err, errInvalidResolution)
}

func TestBeginRegistrationRejectsExistingPasskey(t *testing.T) {
	svc, db := newTestService(t)

	resID := seedResolution(t, db, "user-1", time.Now().Add(time.Minute))
	require.NoError(t, db.Create(&models.PasskeyModel{
		UserID: "user-1", CredentialID: "cid", PublicKey: "pk",
	}).Error)

	_, _, err := svc.BeginRegistration(resID)
	assert.ErrorIs(t, err, errPasskeyExists)
}

func TestBeginRegistrationStoresChallenge(t *testing.T) {
	svc, db := newTestService(t)

	resID := seedResolution(t, db, "user-1", time.Now().Add(time.Minute))
	chID, creation, err := svc.BeginRegistration(resID)
	require.NoError(t, err)
	require.NotNil(t, creation)

	var ch models.WebauthnChallengeModel
	require.NoError(t, db.First(&ch, "id = ?", chID).Error)
	assert.Equal(t, "user-1", ch.UserID)
	assert.Equal(t, models.ChallengeRegister, ch.Kind)
	assert.NotEmpty(t, ch.Challenge)
}

func TestBeginLoginWithoutPasskey(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.BeginLogin("user-1")
	assert.ErrorIs(t, err, errNoPasskey)
}

func TestConsumeChallengeSingleUse(t *testing.T) {
	svc, _ := newTestService(t)

	ch, err := svc.storeChallenge("user-1", models.ChallengeLogin, "nonce")
	require.NoError(t, err)

	got, err := svc.consumeChallenge(ch.ID, models.ChallengeLogin)
	require.NoError(t, err)
	assert.Equal(t, "nonce", got.Challenge)

	_, err = svc.consumeChallenge(ch.ID, models.ChallengeLogin)
	assert.ErrorIs(t, err, errInvalidChallenge)
}

func TestConsumeChallengeRejectsWrongKind(t *testing.T) {
	svc, db := newTestService(t)

	ch, err := svc.storeChallenge("user-1", models.ChallengeRegister, "nonce")
	require.NoError(t, err)

	_, err = svc.consumeChallenge(ch.ID, models.ChallengeLogin)
	assert.ErrorIs(t, err, errInvalidChallenge)

	// A kind mismatch must not burn the challenge.
	var count int64
	require.NoError(t, db.Model(&models.WebauthnChallengeModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFinishRegistrationRejectsUnknownChallenge(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.FinishRegistration("missing", []byte("{}"))
	assert.ErrorIs(t, err, errInvalidChallenge)
}

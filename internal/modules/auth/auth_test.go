package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/database"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	sessionpkg "github.com/JuanFRosales/MindsetGo/internal/pkg/session"
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

	cfg := &config.AppConfig{AdminKey: "test-admin"}
	cfg.TTL.InviteHours = 24
	cfg.TTL.UserDays = 14
	cfg.TTL.SessionMinutes = 720
	cfg.TTL.ProofMinutes = 5
	cfg.TTL.ResolutionMinutes = 5

	return NewService(db, cfg), db
}

func TestMintInvite(t *testing.T) {
	svc, _ := newTestService(t)

	invite, err := svc.MintInvite()
	require.NoError(t, err)
	assert.Len(t, invite.Code, 32)
	assert.True(t, invite.ExpiresAt.After(time.Now()))
	assert.Nil(t, invite.UsedAt)
}

func TestRedeemInviteCreatesUser(t *testing.T) {
	svc, db := newTestService(t)

	invite, err := svc.MintInvite()
	require.NoError(t, err)

	user, err := svc.RedeemInvite(invite.Code)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	var stored models.InviteCodeModel
	require.NoError(t, db.First(&stored, "code = ?", invite.Code).Error)
	require.NotNil(t, stored.UsedAt)
	require.NotNil(t, stored.UsedByUserID)
	assert.Equal(t, user.ID, *stored.UsedByUserID)
}

func TestRedeemInviteSingleUse(t *testing.T) {
	svc, db := newTestService(t)

	invite, err := svc.MintInvite()
	require.NoError(t, err)

	_, err = svc.RedeemInvite(invite.Code)
	require.NoError(t, err)

	_, err = svc.RedeemInvite(invite.Code)
	assert.ErrorIs(t, err, ErrInvalidCode)

	// Only the winning redeem's user survives.
	var count int64
	require.NoError(t, db.Model(&models.UserModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRedeemInviteRejectsUnknownAndExpired(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.RedeemInvite("no-such-code")
	assert.ErrorIs(t, err, ErrInvalidCode)

	expired := models.InviteCodeModel{
		Code:      "deadbeefdeadbeefdeadbeefdeadbeef",
		CreatedAt: time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}
	require.NoError(t, db.Create(&expired).Error)

	_, err = svc.RedeemInvite(expired.Code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func seedResolution(t *testing.T, db *gorm.DB, userID string, expires time.Time) *models.QrResolutionModel {
	t.Helper()
	res := models.QrResolutionModel{QrID: "qr-1", UserID: userID, ExpiresAt: expires}
	require.NoError(t, db.Create(&res).Error)
	return &res
}

func TestProofExchange(t *testing.T) {
	svc, db := newTestService(t)

	user := models.UserModel{}
	require.NoError(t, db.Create(&user).Error)
	res := seedResolution(t, db, user.ID, time.Now().Add(5*time.Minute))

	proof, err := svc.IssueProof(res.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, proof.UserID)

	token, sess, err := svc.ExchangeProof(proof.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, sess.UserID)

	// Resolution is consumed with the proof.
	var resCount int64
	require.NoError(t, db.Model(&models.QrResolutionModel{}).Count(&resCount).Error)
	assert.EqualValues(t, 0, resCount)

	// The issued token resolves back to the same session.
	resolved, err := sessionpkg.Resolve(db, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, resolved.ID)
}

func TestProofExchangeSecondUseConflicts(t *testing.T) {
	svc, db := newTestService(t)

	user := models.UserModel{}
	require.NoError(t, db.Create(&user).Error)
	res := seedResolution(t, db, user.ID, time.Now().Add(5*time.Minute))

	proof, err := svc.IssueProof(res.ID)
	require.NoError(t, err)

	_, _, err = svc.ExchangeProof(proof.ID)
	require.NoError(t, err)

	_, _, err = svc.ExchangeProof(proof.ID)
	assert.ErrorIs(t, err, errProofAlreadyUsed)
}

func TestProofExchangeRejectsExpiredProof(t *testing.T) {
	svc, db := newTestService(t)

	user := models.UserModel{}
	require.NoError(t, db.Create(&user).Error)

	proof := models.LoginProofModel{
		UserID:       user.ID,
		ResolutionID: "gone",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(&proof).Error)

	_, _, err := svc.ExchangeProof(proof.ID)
	assert.ErrorIs(t, err, errInvalidProof)
}

func TestIssueProofRejectsExpiredResolution(t *testing.T) {
	svc, db := newTestService(t)

	user := models.UserModel{}
	require.NoError(t, db.Create(&user).Error)
	res := seedResolution(t, db, user.ID, time.Now().Add(-time.Minute))

	_, err := svc.IssueProof(res.ID)
	assert.ErrorIs(t, err, errInvalidProof)
}

func TestProofExchangeRejectsCrossBoundResolution(t *testing.T) {
	svc, db := newTestService(t)

	alice := models.UserModel{}
	require.NoError(t, db.Create(&alice).Error)
	bob := models.UserModel{}
	require.NoError(t, db.Create(&bob).Error)

	res := seedResolution(t, db, alice.ID, time.Now().Add(5*time.Minute))
	proof := models.LoginProofModel{
		UserID:       bob.ID,
		ResolutionID: res.ID,
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, db.Create(&proof).Error)

	_, _, err := svc.ExchangeProof(proof.ID)
	assert.ErrorIs(t, err, errInvalidProof)

	// The mismatch is caught before the consume, so the proof is not burned.
	var stored models.LoginProofModel
	require.NoError(t, db.First(&stored, "id = ?", proof.ID).Error)
	assert.Nil(t, stored.UsedAt)
}

func TestProofExchangeRejectsExpiredResolution(t *testing.T) {
	svc, db := newTestService(t)

	user := models.UserModel{}
	require.NoError(t, db.Create(&user).Error)
	res := seedResolution(t, db, user.ID, time.Now().Add(-time.Minute))

	proof := models.LoginProofModel{
		UserID:       user.ID,
		ResolutionID: res.ID,
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, db.Create(&proof).Error)

	_, _, err := svc.ExchangeProof(proof.ID)
	assert.ErrorIs(t, err, errInvalidProof)

	// No session was minted and the proof stays unused.
	var sessions int64
	require.NoError(t, db.Model(&models.SessionModel{}).Count(&sessions).Error)
	assert.EqualValues(t, 0, sessions)

	var stored models.LoginProofModel
	require.NoError(t, db.First(&stored, "id = ?", proof.ID).Error)
	assert.Nil(t, stored.UsedAt)
}

func TestProofExchangeRejectsMissingResolution(t *testing.T) {
	svc, db := newTestService(t)

	user := models.UserModel{}
	require.NoError(t, db.Create(&user).Error)

	proof := models.LoginProofModel{
		UserID:       user.ID,
		ResolutionID: "already-swept",
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, db.Create(&proof).Error)

	_, _, err := svc.ExchangeProof(proof.ID)
	assert.ErrorIs(t, err, errInvalidProof)

	var sessions int64
	require.NoError(t, db.Model(&models.SessionModel{}).Count(&sessions).Error)
	assert.EqualValues(t, 0, sessions)
}

func TestDeleteAccountCascades(t *testing.T) {
	svc, db := newTestService(t)

	invite, err := svc.MintInvite()
	require.NoError(t, err)
	user, err := svc.RedeemInvite(invite.Code)
	require.NoError(t, err)

	_, _, err = svc.IssueSession(user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.MessageModel{
		UserID: user.ID, ConversationID: "default",
		Role: models.RoleUser, Content: "hi",
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.QrLinkModel{
		QrID: "qr-9", UserID: user.ID,
		CreatedAt: time.Now(), LastSeenAt: time.Now(),
	}).Error)

	require.NoError(t, svc.DeleteAccount(user.ID))

	for _, m := range []interface{}{
		&models.UserModel{}, &models.SessionModel{},
		&models.MessageModel{}, &models.QrLinkModel{},
	} {
		var count int64
		require.NoError(t, db.Model(m).Count(&count).Error)
		assert.EqualValues(t, 0, count)
	}
}

package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/database"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestIssueAndResolve(t *testing.T) {
	db := newTestDB(t)

	token, s, err := Issue(db, "user-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "user-1", s.UserID)

	got, err := Resolve(db, token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
}

func TestResolveRejectsGarbageToken(t *testing.T) {
	db := newTestDB(t)

	_, err := Resolve(db, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestResolveRejectsDeletedSession(t *testing.T) {
	db := newTestDB(t)

	token, s, err := Issue(db, "user-1", time.Hour)
	require.NoError(t, err)
	require.NoError(t, Revoke(db, s.ID))

	// The token signature is still valid; the missing row is what matters.
	_, err = Resolve(db, token)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestResolveRejectsExpiredRow(t *testing.T) {
	db := newTestDB(t)

	token, s, err := Issue(db, "user-1", time.Hour)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.SessionModel{}).
		Where("id = ?", s.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err = Resolve(db, token)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRevokeAllForUser(t *testing.T) {
	db := newTestDB(t)

	_, _, err := Issue(db, "user-1", time.Hour)
	require.NoError(t, err)
	_, _, err = Issue(db, "user-1", time.Hour)
	require.NoError(t, err)
	_, other, err := Issue(db, "user-2", time.Hour)
	require.NoError(t, err)

	require.NoError(t, RevokeAllForUser(db, "user-1"))

	var remaining []models.SessionModel
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, other.ID, remaining[0].ID)
}

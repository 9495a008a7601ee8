package session

import (
	"errors"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/models"
	jwtpkg "github.com/JuanFRosales/MindsetGo/internal/pkg/jwt"
	"gorm.io/gorm"
)

const DefaultTTL = 12 * time.Hour

var ErrInvalid = errors.New("session expired or unknown")

// Issue creates a DB session row and signs a cookie token bound to it.
func Issue(db *gorm.DB, userID string, ttl time.Duration) (string, *models.SessionModel, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &models.SessionModel{
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := db.Create(s).Error; err != nil {
		return "", nil, err
	}

	token, err := jwtpkg.Sign(userID, s.ID, ttl)
	if err != nil {
		_ = db.Delete(s).Error
		return "", nil, err
	}
	return token, s, nil
}

// Resolve validates a cookie token against the sessions table. The row is
// authoritative: a signed token whose session was deleted or expired is
// rejected, which is what makes the TTL sweep an effective logout.
func Resolve(db *gorm.DB, token string) (*models.SessionModel, error) {
	claims, err := jwtpkg.Parse(token)
	if err != nil {
		return nil, ErrInvalid
	}

	var s models.SessionModel
	err = db.Where("id = ? AND user_id = ? AND expires_at > ?", claims.SessionID, claims.UserID, time.Now()).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalid
		}
		return nil, err
	}
	return &s, nil
}

// Revoke deletes a session row (logout).
func Revoke(db *gorm.DB, sessionID string) error {
	return db.Delete(&models.SessionModel{}, "id = ?", sessionID).Error
}

// RevokeAllForUser deletes every session of a user (account deletion).
func RevokeAllForUser(db *gorm.DB, userID string) error {
	return db.Delete(&models.SessionModel{}, "user_id = ?", userID).Error
}

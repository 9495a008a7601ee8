// Package passkey implements WebAuthn registration and login for anonymous
// users. Each user has at most one passkey, and each ceremony is backed by a
// single-use challenge row that is removed whether verification wins or
// loses.
package passkey

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/JuanFRosales/MindsetGo/internal/modules/auth"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegisterOptionsDTO struct {
	ResolutionID string `json:"resolutionId" binding:"required"`
}

type LoginOptionsDTO struct {
	UserID string `json:"userId" binding:"required"`
}

type VerifyDTO struct {
	ChallengeID string          `json:"challengeId" binding:"required"`
	Response    json.RawMessage `json:"response"    binding:"required"`
}

var (
	errInvalidResolution = errors.New("invalid resolution")
	errInvalidChallenge  = errors.New("invalid challenge")
	errPasskeyExists     = errors.New("passkey already exists")
	errNoPasskey         = errors.New("no passkey for user")
	errNotVerified       = errors.New("credential not verified")
)

// webauthnUser adapts an anonymous user row plus its stored credential to
// the interface the webauthn library verifies against. The library-visible
// user handle is a hash of the user ID, so the raw ID never reaches the
// authenticator.
type webauthnUser struct {
	id         string
	credential *models.PasskeyModel
}

func (u *webauthnUser) WebAuthnID() []byte {
	sum := sha256.Sum256([]byte(u.id))
	return sum[:]
}

func (u *webauthnUser) WebAuthnName() string { return u.id }

func (u *webauthnUser) WebAuthnDisplayName() string { return u.id }

func (u *webauthnUser) WebAuthnCredentials() []webauthn.Credential {
	if u.credential == nil {
		return nil
	}
	cred, err := decodeCredential(u.credential)
	if err != nil {
		return nil
	}
	return []webauthn.Credential{*cred}
}

func decodeCredential(pk *models.PasskeyModel) (*webauthn.Credential, error) {
	id, err := base64.StdEncoding.DecodeString(pk.CredentialID)
	if err != nil {
		return nil, err
	}
	pub, err := base64.StdEncoding.DecodeString(pk.PublicKey)
	if err != nil {
		return nil, err
	}
	return &webauthn.Credential{
		ID:        id,
		PublicKey: pub,
		Authenticator: webauthn.Authenticator{
			SignCount: pk.Counter,
		},
	}, nil
}

type Service struct {
	db  *gorm.DB
	wa  *webauthn.WebAuthn
	cfg *config.AppConfig
}

func NewService(db *gorm.DB, cfg *config.AppConfig) (*Service, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.WebAuthn.RPName,
		RPID:          cfg.WebAuthn.RPID,
		RPOrigins:     []string{cfg.WebAuthn.Origin},
	})
	if err != nil {
		return nil, err
	}
	return &Service{db: db, wa: wa, cfg: cfg}, nil
}

// BeginRegistration starts the registration ceremony for the user behind a
// live QR resolution. Users with an existing passkey are rejected.
func (s *Service) BeginRegistration(resolutionID string) (string, *protocol.CredentialCreation, error) {
	now := time.Now()

	var resolution models.QrResolutionModel
	err := s.db.
		Where("id = ? AND expires_at > ?", resolutionID, now).
		First(&resolution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errInvalidResolution
		}
		return "", nil, err
	}

	var count int64
	if err := s.db.Model(&models.PasskeyModel{}).
		Where("user_id = ?", resolution.UserID).
		Count(&count).Error; err != nil {
		return "", nil, err
	}
	if count > 0 {
		return "", nil, errPasskeyExists
	}

	user := &webauthnUser{id: resolution.UserID}
	creation, sessionData, err := s.wa.BeginRegistration(
		user,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationPreferred,
		}),
		webauthn.WithConveyancePreference(protocol.PreferNoAttestation),
	)
	if err != nil {
		return "", nil, err
	}

	ch, err := s.storeChallenge(resolution.UserID, models.ChallengeRegister, sessionData.Challenge)
	if err != nil {
		return "", nil, err
	}
	return ch.ID, creation, nil
}

// FinishRegistration verifies the authenticator response and stores the
// user's single passkey. The challenge row is consumed either way.
func (s *Service) FinishRegistration(challengeID string, rawResponse []byte) (string, error) {
	ch, err := s.consumeChallenge(challengeID, models.ChallengeRegister)
	if err != nil {
		return "", err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(rawResponse))
	if err != nil {
		return "", errNotVerified
	}

	user := &webauthnUser{id: ch.UserID}
	sessionData := webauthn.SessionData{
		Challenge: ch.Challenge,
		UserID:    user.WebAuthnID(),
	}

	cred, err := s.wa.CreateCredential(user, sessionData, parsed)
	if err != nil {
		return "", errNotVerified
	}

	pk := models.PasskeyModel{
		UserID:       ch.UserID,
		CredentialID: base64.StdEncoding.EncodeToString(cred.ID),
		PublicKey:    base64.StdEncoding.EncodeToString(cred.PublicKey),
		Counter:      cred.Authenticator.SignCount,
		CreatedAt:    time.Now(),
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&pk).Error
	if err != nil {
		return "", err
	}
	return ch.UserID, nil
}

// BeginLogin starts the authentication ceremony for a user ID.
func (s *Service) BeginLogin(userID string) (string, *protocol.CredentialAssertion, error) {
	pk, err := s.passkeyFor(userID)
	if err != nil {
		return "", nil, err
	}

	user := &webauthnUser{id: userID, credential: pk}
	assertion, sessionData, err := s.wa.BeginLogin(user)
	if err != nil {
		return "", nil, err
	}

	ch, err := s.storeChallenge(userID, models.ChallengeLogin, sessionData.Challenge)
	if err != nil {
		return "", nil, err
	}
	return ch.ID, assertion, nil
}

// FinishLogin verifies the assertion against the stored passkey, persists
// the new signature counter and reports the authenticated user. A cloned
// authenticator signal fails the login.
func (s *Service) FinishLogin(challengeID string, rawResponse []byte) (string, error) {
	ch, err := s.consumeChallenge(challengeID, models.ChallengeLogin)
	if err != nil {
		return "", err
	}

	pk, err := s.passkeyFor(ch.UserID)
	if err != nil {
		return "", err
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(rawResponse))
	if err != nil {
		return "", errNotVerified
	}

	user := &webauthnUser{id: ch.UserID, credential: pk}
	storedCred, err := decodeCredential(pk)
	if err != nil {
		return "", err
	}
	sessionData := webauthn.SessionData{
		Challenge:            ch.Challenge,
		UserID:               user.WebAuthnID(),
		AllowedCredentialIDs: [][]byte{storedCred.ID},
	}

	cred, err := s.wa.ValidateLogin(user, sessionData, parsed)
	if err != nil {
		return "", errNotVerified
	}
	if cred.Authenticator.CloneWarning {
		return "", errNotVerified
	}

	err = s.db.Model(&models.PasskeyModel{}).
		Where("user_id = ?", ch.UserID).
		Update("counter", cred.Authenticator.SignCount).Error
	if err != nil {
		return "", err
	}
	return ch.UserID, nil
}

func (s *Service) passkeyFor(userID string) (*models.PasskeyModel, error) {
	var pk models.PasskeyModel
	err := s.db.Where("user_id = ?", userID).First(&pk).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNoPasskey
		}
		return nil, err
	}
	return &pk, nil
}

func (s *Service) storeChallenge(userID string, kind models.WebauthnChallengeKind, challenge string) (*models.WebauthnChallengeModel, error) {
	ch := models.WebauthnChallengeModel{
		UserID:    userID,
		Kind:      kind,
		Challenge: challenge,
		ExpiresAt: time.Now().Add(time.Duration(s.cfg.TTL.ChallengeMinutes) * time.Minute),
	}
	if err := s.db.Create(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// consumeChallenge loads a live challenge of the expected kind and deletes
// it so it can never back a second verification attempt.
func (s *Service) consumeChallenge(id string, kind models.WebauthnChallengeKind) (*models.WebauthnChallengeModel, error) {
	var ch models.WebauthnChallengeModel
	err := s.db.
		Where("id = ? AND kind = ? AND expires_at > ?", id, kind, time.Now()).
		First(&ch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidChallenge
		}
		return nil, err
	}
	if err := s.db.Delete(&models.WebauthnChallengeModel{}, "id = ?", ch.ID).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

type Handler struct {
	svc     *Service
	authSvc *auth.Service
	cfg     *config.AppConfig
}

func NewHandler(svc *Service, authSvc *auth.Service, cfg *config.AppConfig) *Handler {
	return &Handler{svc: svc, authSvc: authSvc, cfg: cfg}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/webauthn")
	g.POST("/register/options", h.registerOptions)
	g.POST("/register/verify", h.registerVerify)
	g.POST("/login/options", h.loginOptions)
	g.POST("/login/verify", h.loginVerify)
}

// POST /webauthn/register/options
func (h *Handler) registerOptions(c *gin.Context) {
	var dto RegisterOptionsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "missing_resolution_id")
		return
	}

	challengeID, options, err := h.svc.BeginRegistration(strings.TrimSpace(dto.ResolutionID))
	if err != nil {
		switch {
		case errors.Is(err, errInvalidResolution):
			response.BadRequest(c, "invalid_resolution_id")
		case errors.Is(err, errPasskeyExists):
			response.Conflict(c, "passkey_already_exists")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.OK(c, gin.H{"challengeId": challengeID, "options": options})
}

// POST /webauthn/register/verify
func (h *Handler) registerVerify(c *gin.Context) {
	var dto VerifyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "bad_request")
		return
	}

	userID, err := h.svc.FinishRegistration(strings.TrimSpace(dto.ChallengeID), dto.Response)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidChallenge):
			response.BadRequest(c, "invalid_challenge")
		case errors.Is(err, errNotVerified):
			response.BadRequest(c, "not_verified")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.OK(c, gin.H{"ok": true, "userId": userID})
}

// POST /webauthn/login/options
func (h *Handler) loginOptions(c *gin.Context) {
	var dto LoginOptionsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "missing_user_id")
		return
	}

	challengeID, options, err := h.svc.BeginLogin(strings.TrimSpace(dto.UserID))
	if err != nil {
		switch {
		case errors.Is(err, errNoPasskey):
			response.NotFoundMsg(c, "no_passkey")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.OK(c, gin.H{"challengeId": challengeID, "options": options})
}

// POST /webauthn/login/verify
func (h *Handler) loginVerify(c *gin.Context) {
	var dto VerifyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "bad_request")
		return
	}

	userID, err := h.svc.FinishLogin(strings.TrimSpace(dto.ChallengeID), dto.Response)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidChallenge):
			response.BadRequest(c, "invalid_challenge")
		case errors.Is(err, errNoPasskey):
			response.NotFoundMsg(c, "no_passkey")
		case errors.Is(err, errNotVerified):
			response.BadRequest(c, "not_verified")
		default:
			response.InternalError(c, err)
		}
		return
	}

	token, sess, err := h.authSvc.IssueSession(userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := h.cfg.TTL.SessionMinutes * 60
	c.SetCookie(h.cfg.CookieName, token, maxAge, "/", "", !h.cfg.IsDev(), true)

	response.OK(c, gin.H{"ok": true, "userId": userID, "expiresAt": sess.ExpiresAt})
}

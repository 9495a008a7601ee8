// Package chat stores scrubbed conversation turns and drives the async
// reply, summary and profile generation that follows each user message.
package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/middleware"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/JuanFRosales/MindsetGo/internal/modules/ai"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/response"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/scrub"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultConversationID = "default"
	historyLimit          = 50
	maxMessageLen         = 20000
	maxConversationIDLen  = 120
	summaryMaxLen         = 800
)

type PostMessageDTO struct {
	Message        string `json:"message"        binding:"required"`
	ConversationID string `json:"conversationId"`
}

type messageResponse struct {
	ID        string             `json:"id"`
	Role      models.MessageRole `json:"role"`
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"createdAt"`
}

func toMessageResponse(m *models.MessageModel) messageResponse {
	return messageResponse{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
}

type Service struct {
	db      *gorm.DB
	gen     ai.Generator
	taskSvc *taskqueue.Service
	cfg     *config.AppConfig
	log     *zap.Logger
}

func NewService(db *gorm.DB, gen ai.Generator, taskSvc *taskqueue.Service, cfg *config.AppConfig, log *zap.Logger) *Service {
	return &Service{db: db, gen: gen, taskSvc: taskSvc, cfg: cfg, log: log}
}

// PostMessage persists the scrubbed user message plus the assistant
// placeholder, then hands off to the background pipeline. The caller gets
// the placeholder ID back immediately and polls it for the real reply.
func (s *Service) PostMessage(userID, conversationID, raw string) (*models.MessageModel, error) {
	scrubbed := scrub.Text(raw)

	userMsg := s.newMessage(userID, conversationID, models.RoleUser, scrubbed)
	if err := s.db.Create(userMsg).Error; err != nil {
		return nil, err
	}

	placeholder := s.newMessage(userID, conversationID, models.RoleAssistant, models.MessagePlaceholder)
	if err := s.db.Create(placeholder).Error; err != nil {
		return nil, err
	}

	go s.runPipeline(placeholder.ID, userID, conversationID)

	return placeholder, nil
}

func (s *Service) newMessage(userID, conversationID string, role models.MessageRole, content string) *models.MessageModel {
	now := time.Now()
	return &models.MessageModel{
		UserID:         userID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		LastActiveAt:   now,
		ExpiresAt:      now.Add(s.messageTTL()),
	}
}

// ListRecent returns up to limit messages of a conversation in
// chronological order.
func (s *Service) ListRecent(userID, conversationID string, limit int) ([]models.MessageModel, error) {
	var rows []models.MessageModel
	err := s.db.
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (s *Service) GetMessage(userID, id string) (*models.MessageModel, error) {
	var m models.MessageModel
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) GetSummary(userID, conversationID string) (string, error) {
	var row models.ConversationSummaryModel
	err := s.db.
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return scrub.Text(row.SummaryText), nil
}

// GetProfile returns the stored profile state as a scrubbed object. Any
// unreadable state degrades to an empty object instead of an error.
func (s *Service) GetProfile(userID string) (map[string]interface{}, error) {
	empty := map[string]interface{}{}

	var row models.ProfileStateModel
	err := s.db.Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return empty, nil
		}
		return nil, err
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(row.StateJSON), &parsed); err != nil {
		return empty, nil
	}
	out, _ := scrub.Values(parsed).(map[string]interface{})
	if out == nil {
		return empty, nil
	}
	return out, nil
}

func (s *Service) upsertSummary(userID, conversationID, text string) error {
	now := time.Now()
	row := models.ConversationSummaryModel{
		UserID:         userID,
		ConversationID: conversationID,
		SummaryText:    text,
		LastActiveAt:   now,
		ExpiresAt:      now.Add(s.summaryTTL()),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "conversation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary_text", "last_active_at", "expires_at"}),
	}).Create(&row).Error
}

func (s *Service) upsertProfile(userID, stateJSON string) error {
	now := time.Now()
	row := models.ProfileStateModel{
		UserID:       userID,
		StateJSON:    stateJSON,
		LastActiveAt: now,
		ExpiresAt:    now.Add(s.profileTTL()),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state_json", "last_active_at", "expires_at"}),
	}).Create(&row).Error
}

func (s *Service) messageTTL() time.Duration {
	return time.Duration(s.cfg.TTL.MessageDays) * 24 * time.Hour
}

func (s *Service) summaryTTL() time.Duration {
	return time.Duration(s.cfg.TTL.SummaryDays) * 24 * time.Hour
}

func (s *Service) profileTTL() time.Duration {
	return time.Duration(s.cfg.TTL.ProfileDays) * 24 * time.Hour
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/chat", authMW)
	g.POST("/message", h.postMessage)
	g.GET("/history", h.history)
	g.GET("/message/:id", h.getMessage)
	g.GET("/summary", h.getSummary)

	rg.GET("/profile", authMW, h.getProfile)
}

// POST /chat/message
func (h *Handler) postMessage(c *gin.Context) {
	var dto PostMessageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "missing_message")
		return
	}
	if len(dto.Message) == 0 || len(dto.Message) > maxMessageLen {
		response.BadRequest(c, "invalid_message")
		return
	}
	if len(dto.ConversationID) > maxConversationIDLen {
		response.BadRequest(c, "invalid_conversation_id")
		return
	}

	conversationID := strings.TrimSpace(dto.ConversationID)
	if conversationID == "" {
		conversationID = defaultConversationID
	}

	placeholder, err := h.svc.PostMessage(middleware.CurrentUserID(c), conversationID, dto.Message)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{
		"assistantMessageId": placeholder.ID,
		"conversationId":     conversationID,
		"status":             "queued",
	})
}

// GET /chat/history
func (h *Handler) history(c *gin.Context) {
	conversationID := c.DefaultQuery("conversationId", defaultConversationID)

	rows, err := h.svc.ListRecent(middleware.CurrentUserID(c), conversationID, historyLimit)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	out := make([]messageResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toMessageResponse(&rows[i]))
	}
	response.OK(c, out)
}

// GET /chat/message/:id
func (h *Handler) getMessage(c *gin.Context) {
	m, err := h.svc.GetMessage(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, toMessageResponse(m))
}

// GET /chat/summary
func (h *Handler) getSummary(c *gin.Context) {
	conversationID := c.DefaultQuery("conversationId", defaultConversationID)

	summary, err := h.svc.GetSummary(middleware.CurrentUserID(c), conversationID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"summary": summary})
}

// GET /profile
func (h *Handler) getProfile(c *gin.Context) {
	state, err := h.svc.GetProfile(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.JSON(200, state)
}

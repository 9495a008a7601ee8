package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JuanFRosales/MindsetGo/internal/models"
	"github.com/JuanFRosales/MindsetGo/internal/modules/ai"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/scrub"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

const (
	TaskTypePipeline = "chat:pipeline"

	summaryContextMaxLen = 4000
	profileTurnMaxLen    = 2000
	profileSummaryMaxLen = 400
)

// runPipeline executes the three generation phases for one turn. It runs on
// a fresh context so a finished HTTP request cannot cancel it. The reply is
// the only hard dependency: if it fails the placeholder is overwritten with
// the failure sentinel and the turn ends. Summary and profile failures are
// logged and swallowed.
//
// Log fields carry the placeholder ID as correlation id plus latency and
// outcome. User IDs and message content never appear in logs.
func (s *Service) runPipeline(placeholderID, userID, conversationID string) {
	ctx := context.Background()

	var task *taskqueue.Task
	if s.taskSvc != nil {
		var err error
		task, err = s.taskSvc.Enqueue(ctx, TaskTypePipeline, map[string]string{
			"requestId": placeholderID,
		}, placeholderID)
		if err != nil {
			// The ledger is advisory; generation proceeds without it.
			s.log.Warn("task enqueue failed", zap.Error(err))
		}
	}

	if !s.runReply(ctx, placeholderID, userID, conversationID) {
		s.finishTask(ctx, task, fmt.Errorf("reply generation failed"))
		return
	}

	latest, err := s.ListRecent(userID, conversationID, s.cfg.Chat.ContextLimit)
	if err != nil {
		s.log.Error("context reload failed", zap.String("requestId", placeholderID), zap.Error(err))
		s.finishTask(ctx, task, err)
		return
	}

	summaryText := s.runSummary(ctx, placeholderID, userID, conversationID, latest)
	s.runProfile(ctx, placeholderID, userID, latest, summaryText)

	s.finishTask(ctx, task, nil)
}

// runReply generates the assistant reply and overwrites the placeholder.
// Returns false when the turn must stop.
func (s *Service) runReply(ctx context.Context, placeholderID, userID, conversationID string) bool {
	start := time.Now()

	recent, err := s.ListRecent(userID, conversationID, s.cfg.Chat.ContextLimit)
	if err == nil {
		var reply string
		reply, err = s.gen.Generate(ctx, ai.TaskReply, historyFromMessages(recent))
		if err == nil {
			err = s.updateMessageContent(placeholderID, scrub.Text(reply))
		}
	}

	s.logTask("reply", placeholderID, start, err)
	if err != nil {
		s.log.Error("reply generation failed", zap.String("requestId", placeholderID), zap.Error(err))
		if uerr := s.updateMessageContent(placeholderID, models.MessageReplyFailed); uerr != nil {
			s.log.Error("failure sentinel write failed", zap.String("requestId", placeholderID), zap.Error(uerr))
		}
		return false
	}
	return true
}

// runSummary condenses the conversation and replaces the stored summary.
// Soft failure: the turn continues without a summary.
func (s *Service) runSummary(ctx context.Context, placeholderID, userID, conversationID string, latest []models.MessageModel) string {
	requestID := placeholderID + ":summary"
	start := time.Now()

	contextText := buildContextText(latest)
	raw, err := s.gen.Generate(ctx, ai.TaskSummary, []ai.Message{
		{Role: ai.RoleUser, Content: contextText},
	})

	var summaryText string
	if err == nil {
		summaryText = clampRunes(scrub.Text(raw), summaryMaxLen)
		err = s.upsertSummary(userID, conversationID, summaryText)
	}

	s.logTask("summary", requestID, start, err)
	if err != nil {
		s.log.Error("summary generation failed", zap.String("requestId", requestID), zap.Error(err))
		return ""
	}
	return summaryText
}

// runProfile extracts the profile state from the latest turns. Soft failure;
// unusable model output degrades to "{}" rather than an error.
func (s *Service) runProfile(ctx context.Context, placeholderID, userID string, latest []models.MessageModel, summaryText string) {
	requestID := placeholderID + ":profile"
	start := time.Now()

	history := make([]ai.Message, 0, len(latest)+1)
	for i := range latest {
		if latest[i].Role != models.RoleUser {
			continue
		}
		history = append(history, ai.Message{
			Role:    ai.RoleUser,
			Content: clampRunes(scrub.Text(latest[i].Content), profileTurnMaxLen),
		})
	}

	summary := clampRunes(scrub.Text(summaryText), profileSummaryMaxLen)
	if summary == "" {
		summary = "None available."
	}
	history = append(history, ai.Message{
		Role:    ai.RoleUser,
		Content: "Current summary: " + summary,
	})

	raw, err := s.gen.Generate(ctx, ai.TaskProfile, history)
	if err == nil {
		err = s.upsertProfile(userID, buildProfileStateJSON(raw))
	}

	s.logTask("profile", requestID, start, err)
	if err != nil {
		s.log.Error("profile generation failed", zap.String("requestId", requestID), zap.Error(err))
	}
}

func (s *Service) updateMessageContent(id, content string) error {
	return s.db.Model(&models.MessageModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":        content,
			"last_active_at": time.Now(),
			"expires_at":     time.Now().Add(s.messageTTL()),
		}).Error
}

func (s *Service) finishTask(ctx context.Context, task *taskqueue.Task, err error) {
	if task == nil {
		return
	}
	if err != nil {
		_ = s.taskSvc.UpdateStatus(ctx, task.ID, taskqueue.TaskFailed, err.Error())
		return
	}
	_ = s.taskSvc.UpdateStatus(ctx, task.ID, taskqueue.TaskCompleted, "")
}

func (s *Service) logTask(task, requestID string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("requestId", requestID),
		zap.String("task", task),
		zap.Duration("latency", time.Since(start)),
		zap.Bool("ok", err == nil),
	}
	if err != nil {
		fields = append(fields, zap.String("errorName", err.Error()))
	}
	s.log.Info("ai_task_metrics", fields...)
}

func historyFromMessages(rows []models.MessageModel) []ai.Message {
	out := make([]ai.Message, 0, len(rows))
	for i := range rows {
		role := ai.RoleUser
		if rows[i].Role == models.RoleAssistant {
			role = ai.RoleAssistant
		}
		out = append(out, ai.Message{Role: role, Content: rows[i].Content})
	}
	return out
}

// buildContextText flattens a conversation into a "role: content" block for
// the summary prompt, scrubbed and clamped.
func buildContextText(rows []models.MessageModel) string {
	parts := make([]string, 0, len(rows))
	for i := range rows {
		parts = append(parts, fmt.Sprintf("%s: %s", rows[i].Role, rows[i].Content))
	}
	return clampRunes(scrub.Text(strings.Join(parts, "\n")), summaryContextMaxLen)
}

func clampRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Package ai wraps the configured language-model providers behind a single
// Generator interface so the chat pipeline never talks to a vendor SDK
// directly.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	appcfg "github.com/JuanFRosales/MindsetGo/internal/config"
)

// Task selects the prompt and model assignment for a generation call.
type Task string

const (
	TaskReply   Task = "reply"
	TaskSummary Task = "summary"
	TaskProfile Task = "profile"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation context passed to the model.
type Message struct {
	Role    string
	Content string
}

var (
	ErrNoProvider    = errors.New("no enabled AI provider configured")
	ErrEmptyResponse = errors.New("empty response from AI")
)

// Generator produces model output for a task given prior conversation turns.
// Implementations must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, task Task, history []Message) (string, error)
}

// New builds a Generator from config. Every call selects the provider
// assigned to its task, falling back to the first enabled provider.
func New(cfg appcfg.AIConfig, timeout time.Duration) Generator {
	return &providerGenerator{cfg: cfg, timeout: timeout}
}

type providerGenerator struct {
	cfg     appcfg.AIConfig
	timeout time.Duration
}

func (g *providerGenerator) Generate(ctx context.Context, task Task, history []Message) (string, error) {
	assignment := g.assignmentFor(task)
	provider := selectProvider(g.cfg, assignment)
	if provider == nil {
		return "", ErrNoProvider
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if isStubProviderType(provider.Type) {
		return stubResponse(task, history), nil
	}

	systemPrompt := systemPromptFor(task)
	maxTokens := maxTokensFor(task)

	if isOpenAICompatibleProviderType(provider.Type) {
		return callOpenAICompatibleChatCompletions(ctx, provider, systemPrompt, history, maxTokens)
	}
	return callLanguageModel(ctx, provider, systemPrompt, history, maxTokens)
}

func (g *providerGenerator) assignmentFor(task Task) *appcfg.AIModelAssignment {
	if g.cfg.Tasks == nil {
		return nil
	}
	if a, ok := g.cfg.Tasks[string(task)]; ok {
		return &a
	}
	return nil
}

func maxTokensFor(task Task) int {
	switch task {
	case TaskReply:
		return 1024
	default:
		return 300
	}
}

func selectProvider(cfg appcfg.AIConfig, assignment *appcfg.AIModelAssignment) *appcfg.AIProvider {
	var providerID string
	var overrideModel string
	if assignment != nil {
		providerID = strings.TrimSpace(assignment.ProviderID)
		overrideModel = strings.TrimSpace(assignment.Model)
	}

	pick := func(provider appcfg.AIProvider) *appcfg.AIProvider {
		selected := provider
		if overrideModel != "" {
			selected.DefaultModel = overrideModel
		}
		return &selected
	}

	if providerID != "" {
		for _, provider := range cfg.Providers {
			if !provider.Enabled {
				continue
			}
			if strings.TrimSpace(provider.ID) != providerID {
				continue
			}
			return pick(provider)
		}
	}

	for _, provider := range cfg.Providers {
		if !provider.Enabled {
			continue
		}
		return pick(provider)
	}

	return nil
}

func isStubProviderType(raw string) bool {
	return normalizeProviderType(raw) == "stub"
}

func isOpenAICompatibleProviderType(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "openai-compatible" || t == "openaicompatible"
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

// stubResponse is the deterministic offline provider used in development and
// tests.
func stubResponse(task Task, history []Message) string {
	switch task {
	case TaskSummary:
		return "Stub summary of the conversation so far."
	case TaskProfile:
		return "{}"
	default:
		last := ""
		for i := len(history) - 1; i >= 0; i-- {
			if history[i].Role == RoleUser {
				last = history[i].Content
				break
			}
		}
		return fmt.Sprintf("Stub reply to: %s", last)
	}
}

// DecodeJSON parses a model response that should contain a JSON document,
// tolerating markdown code fences and surrounding prose.
func DecodeJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}

	return errors.New("invalid JSON response from AI")
}

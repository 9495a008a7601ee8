package models

import "time"

// MessageRole is the speaker of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Assistant placeholder and failure sentinels. The placeholder row is created
// in the same request as the user message and overwritten exactly once by the
// background pipeline.
const (
	MessagePlaceholder = "processing"
	MessageReplyFailed = "error_generating_reply"
)

// MessageModel is one chat turn half. Content is always scrubbed before it
// reaches this table. Ordered by CreatedAt within (UserID, ConversationID);
// UUIDv7 ids preserve that order too.
type MessageModel struct {
	Base
	UserID         string      `json:"user_id"         gorm:"index:idx_messages_convo;not null"`
	ConversationID string      `json:"conversation_id" gorm:"index:idx_messages_convo;type:varchar(120);not null"`
	Role           MessageRole `json:"role"            gorm:"type:varchar(16);not null"`
	Content        string      `json:"content"         gorm:"type:text"`
	LastActiveAt   time.Time   `json:"last_active_at"`
	ExpiresAt      time.Time   `json:"expires_at"      gorm:"index;not null"`
}

func (MessageModel) TableName() string { return "messages" }

// ConversationSummaryModel holds at most one AI-generated summary per
// (user, conversation), replaced after each turn by the background pipeline.
type ConversationSummaryModel struct {
	Base
	UserID         string    `json:"user_id"         gorm:"uniqueIndex:idx_summary_convo;not null"`
	ConversationID string    `json:"conversation_id" gorm:"uniqueIndex:idx_summary_convo;type:varchar(120);not null"`
	SummaryText    string    `json:"summary_text"    gorm:"type:text"`
	LastActiveAt   time.Time `json:"last_active_at"`
	ExpiresAt      time.Time `json:"expires_at"      gorm:"index;not null"`
}

func (ConversationSummaryModel) TableName() string { return "conversation_summaries" }

// ProfileStateModel holds at most one extracted profile per user. StateJSON
// is a whitelisted and scrubbed object, or {} when the model output could
// not be salvaged. Each turn fully replaces the previous state.
type ProfileStateModel struct {
	Base
	UserID       string    `json:"user_id"    gorm:"uniqueIndex;not null"`
	StateJSON    string    `json:"state_json" gorm:"type:text;not null;default:'{}'"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"index;not null"`
}

func (ProfileStateModel) TableName() string { return "profile_states" }

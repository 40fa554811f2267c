package models

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationState is the per-session state threaded through one turn and
// persisted between turns. Summary and UserName default to empty.
type ConversationState struct {
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Context   string    `json:"context"`
	Response  string    `json:"response"`
	Messages  []Message `json:"messages"`
	Summary   string    `json:"summary"`
	UserName  string    `json:"user_name"`
}

// NewConversationState returns an empty state for sessionID.
func NewConversationState(sessionID string) *ConversationState {
	return &ConversationState{SessionID: sessionID, Messages: []Message{}}
}

// Clone returns a deep copy so callers can mutate without aliasing the stored value.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	return &c
}

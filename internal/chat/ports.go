package chat

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	ID        string
	TenantID  string
	SessionID string
	Role      Role
	Text      string
	CreatedAt int64
}

// Repo — persistence for the conversation audit trail (best effort)
type Repo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	GetHistory(ctx context.Context, sessionID string) ([]Message, error)
}

// Service — chat relay orchestration
type Service interface {
	Reply(ctx context.Context, tenantID, sessionID string, history []Message, latest Message) (string, error)
}

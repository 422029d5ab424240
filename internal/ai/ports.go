package ai

import "context"

// AI — the external model; knows nothing about tenants or the CRM
type AI interface {
	GetReply(ctx context.Context, history []Message) (string, error)
}

// Message — transport-neutral dialog format for the model
type Message struct {
	Role string // "user" | "assistant" | "system"
	Text string
}

package chat

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/anchorhub/ctm-chat-bridge/internal/ai"
)

type service struct {
	repo     Repo
	ai       ai.AI
	profiles map[string]Profile
}

func NewService(repo Repo, aiClient ai.AI, profiles map[string]Profile) Service {
	return &service{
		repo:     repo,
		ai:       aiClient,
		profiles: profiles,
	}
}

// Reply relays the conversation to the model and returns its text answer.
// Both sides of the exchange are written to the audit repo best effort;
// a storage failure never blocks the reply. When the widget sends no
// history (a reconnect loses its local state), the stored conversation
// is used instead.
func (s *service) Reply(ctx context.Context, tenantID, sessionID string, history []Message, latest Message) (string, error) {
	if len(history) == 0 && s.repo != nil {
		stored, err := s.repo.GetHistory(ctx, sessionID)
		if err != nil {
			log.Printf("[chat] history load failed sessionId=%s: %v", sessionID, err)
		} else {
			history = stored
		}
	}

	log.Printf("[chat] tenantId=%s sessionId=%s turns=%d", tenantID, sessionID, len(history)+1)

	aiHistory := make([]ai.Message, 0, len(history)+2)
	aiHistory = append(aiHistory, ai.Message{
		Role: string(RoleSystem),
		Text: systemPrompt(s.profiles[tenantID]),
	})
	for _, m := range history {
		aiHistory = append(aiHistory, ai.Message{Role: string(m.Role), Text: m.Text})
	}
	aiHistory = append(aiHistory, ai.Message{Role: string(latest.Role), Text: latest.Text})

	s.save(ctx, tenantID, sessionID, latest.Role, latest.Text)

	reply, err := s.ai.GetReply(ctx, aiHistory)
	if err != nil {
		return "", err
	}

	s.save(ctx, tenantID, sessionID, RoleAssistant, reply)
	return reply, nil
}

func (s *service) save(ctx context.Context, tenantID, sessionID string, role Role, text string) {
	if s.repo == nil || text == "" {
		return
	}
	err := s.repo.SaveMessage(ctx, &Message{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		SessionID: sessionID,
		Role:      role,
		Text:      text,
	})
	if err != nil {
		log.Printf("[chat] save failed sessionId=%s: %v", sessionID, err)
	}
}

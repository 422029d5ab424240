package chat

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/anchorhub/ctm-chat-bridge/internal/httpx"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HandleChat — one widget turn in, one model reply out.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ClientID      string        `json:"clientId"`
		SessionID     string        `json:"sessionId"`
		Messages      []wireMessage `json:"messages"`
		LatestMessage wireMessage   `json:"latestMessage"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if payload.SessionID == "" || payload.LatestMessage.Content == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing sessionId or latestMessage")
		return
	}

	history := make([]Message, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		history = append(history, Message{Role: Role(m.Role), Text: m.Content})
	}
	latest := Message{Role: RoleUser, Text: payload.LatestMessage.Content}

	reply, err := h.svc.Reply(r.Context(), payload.ClientID, payload.SessionID, history, latest)
	if err != nil {
		log.Printf("[chat] error clientId=%s sessionId=%s err=%v", payload.ClientID, payload.SessionID, err)
		httpx.WriteError(w, http.StatusInternalServerError, "Chat error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

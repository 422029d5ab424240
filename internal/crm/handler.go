package crm

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/anchorhub/ctm-chat-bridge/internal/httpx"
)

type Handler struct {
	svc  Service
	auth *httpx.ForwardAuth
}

func NewHandler(svc Service, auth *httpx.ForwardAuth) *Handler {
	return &Handler{svc: svc, auth: auth}
}

// HandleLead — inbound lead from the chat widget.
func (h *Handler) HandleLead(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token      string            `json:"token"`
		ClientID   string            `json:"clientId"`
		SessionID  string            `json:"sessionId"`
		Name       string            `json:"name"`
		Email      string            `json:"email"`
		Phone      string            `json:"phone"`
		Transcript string            `json:"transcript"`
		Meta       map[string]string `json:"meta"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if payload.ClientID == "" || payload.SessionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing clientId or sessionId")
		return
	}
	if payload.Name == "" || payload.Email == "" || payload.Phone == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing name, email, or phone")
		return
	}

	if !h.auth.Check(w, r, payload.Token) {
		return
	}

	token, err := h.svc.SubmitLead(r.Context(), LeadRequest{
		TenantID:   payload.ClientID,
		SessionID:  payload.SessionID,
		Name:       payload.Name,
		Email:      payload.Email,
		Phone:      payload.Phone,
		Transcript: payload.Transcript,
		Meta:       payload.Meta,
	})
	if err != nil {
		log.Printf("[lead] error clientId=%s sessionId=%s err=%v", payload.ClientID, payload.SessionID, err)
		httpx.WriteError(w, http.StatusInternalServerError, "Lead creation failed")
		return
	}

	resp := map[string]any{"ok": true, "callIdToken": nil}
	if token != "" {
		resp["callIdToken"] = token
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleTranscript — end-of-conversation transcript from the widget.
func (h *Handler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token       string     `json:"token"`
		ClientID    string     `json:"clientId"`
		CallIDToken string     `json:"callIdToken"`
		Transcript  Transcript `json:"transcript"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if payload.ClientID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing clientId or transcript")
		return
	}
	if payload.Transcript.SessionID == "" || len(payload.Transcript.Messages) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "Empty transcript")
		return
	}

	if !h.auth.Check(w, r, payload.Token) {
		return
	}

	text := FormatTranscript(payload.Transcript)
	err := h.svc.AttachTranscript(r.Context(), payload.ClientID, payload.Transcript.SessionID, text, payload.CallIDToken)
	if err != nil {
		log.Printf("[transcript] error clientId=%s sessionId=%s err=%v", payload.ClientID, payload.Transcript.SessionID, err)

		if errors.Is(err, ErrMissingCorrelationToken) || errors.Is(err, ErrRecordNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "No lead to attach transcript to")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "Transcript update failed")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

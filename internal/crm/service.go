package crm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

type service struct {
	prov  *Provisioner
	store *Store
	up    Upstream
	repo  Repo
}

func NewService(prov *Provisioner, store *Store, up Upstream, repo Repo) Service {
	return &service{
		prov:  prov,
		store: store,
		up:    up,
		repo:  repo,
	}
}

// SubmitLead pushes the caller fields to the tenant's capture endpoint and
// remembers the returned correlation token against the session. A response
// without a token is logged, not an error: the later attachment will fail
// explicitly with a missing-token error instead.
func (s *service) SubmitLead(ctx context.Context, req LeadRequest) (string, error) {
	tenant, err := s.prov.Ensure(ctx, req.TenantID)
	if err != nil {
		return "", err
	}

	fields := CaptureFields{
		CallerName: req.Name,
		Email:      req.Email,
		Phone:      normalizePhone(req.Phone),
		Transcript: req.Transcript,
		Meta:       req.Meta,
	}

	token, err := s.up.SubmitCapture(ctx, tenant.ID, tenant.CaptureEndpointID, fields)
	if err != nil {
		return "", fmt.Errorf("submit lead tenant=%s session=%s: %w", req.TenantID, req.SessionID, err)
	}

	if token == "" {
		log.Printf("[crm] no correlation token tenant=%s session=%s", req.TenantID, req.SessionID)
		return "", nil
	}

	s.store.Save(CorrelationEntry{
		SessionID: req.SessionID,
		TenantID:  req.TenantID,
		Token:     token,
		CreatedAt: time.Now(),
	})

	s.audit(ctx, req.TenantID, req.SessionID, "lead_submitted", token)
	return token, nil
}

// AttachTranscript writes the transcript text into the reserved custom
// field on the upstream record correlated with the session. The entry is
// cleared only after a successful write so a failed attempt can be retried.
func (s *service) AttachTranscript(ctx context.Context, tenantID, sessionID, text, tokenHint string) error {
	tenant, err := s.prov.Ensure(ctx, tenantID)
	if err != nil {
		return err
	}

	entry, hasEntry := s.store.Get(sessionID)

	token := tokenHint
	if token == "" && hasEntry {
		token = entry.Token
	}
	if token == "" {
		return fmt.Errorf("attach tenant=%s session=%s: %w", tenantID, sessionID, ErrMissingCorrelationToken)
	}

	recordID := ""
	if hasEntry && entry.Token == token {
		recordID = entry.RecordID
	}
	if recordID == "" {
		recordID, err = s.up.LookupRecord(ctx, tenant.ID, token)
		if err != nil {
			return fmt.Errorf("lookup record tenant=%s session=%s: %w", tenantID, sessionID, err)
		}
		if recordID == "" {
			// Lookup is eventually consistent upstream; a record created
			// seconds ago may not be queryable yet. Surfaced, not dropped.
			return fmt.Errorf("attach tenant=%s session=%s token=%s: %w", tenantID, sessionID, token, ErrRecordNotFound)
		}
	}

	if err := s.up.UpdateRecord(ctx, tenant.ID, recordID, TranscriptFieldKey, text); err != nil {
		return fmt.Errorf("update record tenant=%s session=%s record=%s: %w", tenantID, sessionID, recordID, err)
	}

	s.store.Clear(sessionID)
	s.audit(ctx, tenantID, sessionID, "transcript_attached", token)
	return nil
}

func (s *service) audit(ctx context.Context, tenantID, sessionID, kind, token string) {
	if s.repo == nil {
		return
	}
	ev := &LeadEvent{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		SessionID: sessionID,
		Kind:      kind,
		Token:     token,
	}
	if err := s.repo.SaveLeadEvent(ctx, ev); err != nil {
		log.Printf("[crm] audit save failed tenant=%s session=%s: %v", tenantID, sessionID, err)
	}
}

// normalizePhone strips everything but digits, the shape the capture
// endpoint expects.
func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatTranscript renders the turn sequence into the plain-text shape
// stored in the upstream custom field.
func FormatTranscript(t Transcript) string {
	var b strings.Builder
	for _, turn := range t.Messages {
		if !turn.Timestamp.IsZero() {
			b.WriteString(turn.Timestamp.Format("15:04:05"))
			b.WriteString(" ")
		}
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	return b.String()
}

package crm

import (
	"context"
	"errors"
	"time"
)

// Upstream resources created per tenant carry these reserved names so a
// later scan (or a second process) can find them instead of duplicating.
const (
	MarkerEndpointName  = "Ai Chat Lead"
	TranscriptFieldKey  = "ai_chat_transcript"
	TranscriptFieldName = "AI Chat Transcript"
)

var (
	ErrTenantNotConfigured     = errors.New("tenant not configured")
	ErrNoProvisionTarget       = errors.New("tenant has no number to attach a capture endpoint to")
	ErrMissingCorrelationToken = errors.New("missing correlation token")
	ErrRecordNotFound          = errors.New("record not found for correlation token")
)

// Tenant is one practice account, fully provisioned upstream.
type Tenant struct {
	ID                string
	DisplayName       string
	CaptureEndpointID string
}

// CorrelationEntry links a chat session to the upstream lead it created.
// Written by lead submission, consumed and cleared by transcript attachment.
type CorrelationEntry struct {
	SessionID string
	TenantID  string
	Token     string
	RecordID  string // resolved lazily, may be empty until attachment
	CreatedAt time.Time
}

type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is built by the chat front end; the core only serializes it
// into the upstream custom field.
type Transcript struct {
	SessionID string            `json:"sessionId"`
	StartedAt time.Time         `json:"startedAt"`
	EndedAt   time.Time         `json:"endedAt"`
	Messages  []Turn            `json:"messages"`
	Meta      map[string]string `json:"meta,omitempty"`
}

type LeadRequest struct {
	TenantID   string
	SessionID  string
	Name       string
	Email      string
	Phone      string
	Transcript string // optional inline transcript text
	Meta       map[string]string
}

type Account struct {
	ID     string
	Name   string
	Active bool
}

type CaptureEndpoint struct {
	ID   string
	Name string
}

type CustomField struct {
	ID   string
	Name string
	Key  string
}

type CaptureFields struct {
	CallerName string
	Email      string
	Phone      string
	Transcript string
	Meta       map[string]string
}

// Upstream is the call-tracking CRM API surface the core depends on.
// LookupRecord returns an empty record ID (and nil error) when the token
// matches nothing; transport failures are returned as errors.
type Upstream interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, tenantID string) (Account, error)

	ListCaptureEndpoints(ctx context.Context, tenantID, name string) ([]CaptureEndpoint, error)
	CreateCaptureEndpoint(ctx context.Context, tenantID, name, numberID string) (string, error)
	ListNumbers(ctx context.Context, tenantID string) ([]string, error)

	ListCustomFields(ctx context.Context, tenantID string) ([]CustomField, error)
	CreateCustomField(ctx context.Context, tenantID, name, key string) (string, error)

	SubmitCapture(ctx context.Context, tenantID, endpointID string, fields CaptureFields) (string, error)
	LookupRecord(ctx context.Context, tenantID, token string) (string, error)
	UpdateRecord(ctx context.Context, tenantID, recordID, fieldKey, text string) error
}

// Repo — persistence for the lead audit trail (best effort, optional)
type Repo interface {
	SaveLeadEvent(ctx context.Context, ev *LeadEvent) error
}

type LeadEvent struct {
	ID        string
	TenantID  string
	SessionID string
	Kind      string // "lead_submitted" | "transcript_attached"
	Token     string
}

// Service — orchestration of the lead/transcript flows
type Service interface {
	SubmitLead(ctx context.Context, req LeadRequest) (string, error)
	AttachTranscript(ctx context.Context, tenantID, sessionID, text, tokenHint string) error
}

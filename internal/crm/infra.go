package crm

import (
	"context"
	"database/sql"
)

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

func (r *repo) SaveLeadEvent(ctx context.Context, ev *LeadEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lead_events (id, tenant_id, session_id, kind, correlation_token)
		VALUES ($1, $2, $3, $4, $5)
	`,
		ev.ID,
		ev.TenantID,
		ev.SessionID,
		ev.Kind,
		ev.Token,
	)
	return err
}

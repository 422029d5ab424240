package chat

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

func (r *repo) SaveMessage(ctx context.Context, msg *Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, tenant_id, session_id, role, text)
		VALUES ($1, $2, $3, $4, $5)
	`,
		msg.ID,
		msg.TenantID,
		msg.SessionID,
		string(msg.Role),
		msg.Text,
	)
	return err
}

func (r *repo) GetHistory(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, session_id, role, text, extract(epoch from created_at)::bigint
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.SessionID,
			&role,
			&m.Text,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.Role = Role(role)
		out = append(out, m)
	}

	return out, rows.Err()
}

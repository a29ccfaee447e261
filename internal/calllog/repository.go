package calllog

import (
	"context"
	"database/sql"
)

// Repository is append-and-list only; call logs are immutable.
type Repository interface {
	Insert(ctx context.Context, l CallLog) error
	ListByAssistant(ctx context.Context, assistantID string) ([]CallLog, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, l CallLog) error {
	const q = `
INSERT INTO call_logs (
  id, call_id, assistant_id, start_time, end_time,
  duration_seconds, status, error_message, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := r.db.ExecContext(ctx, q,
		l.ID,
		l.CallID,
		l.AssistantID,
		l.StartTime,
		l.EndTime,
		l.DurationSeconds,
		l.Status,
		nullIfEmpty(l.ErrorMessage),
		l.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) ListByAssistant(ctx context.Context, assistantID string) ([]CallLog, error) {
	const q = `
SELECT id, call_id, assistant_id, start_time, end_time,
       duration_seconds, status, COALESCE(error_message, ''), created_at
FROM call_logs
WHERE assistant_id = $1
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, assistantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallLog, 0)
	for rows.Next() {
		var l CallLog
		if err := rows.Scan(
			&l.ID,
			&l.CallID,
			&l.AssistantID,
			&l.StartTime,
			&l.EndTime,
			&l.DurationSeconds,
			&l.Status,
			&l.ErrorMessage,
			&l.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package chat

import (
	"context"
	"database/sql"
	"errors"

	"receptionist-platform/pkg/utils"
)

// Repository abstracts the chat tables. Every method takes the owning user id;
// sessions belonging to other users behave as if they do not exist.
type Repository interface {
	InsertSession(ctx context.Context, s ChatSession) error
	ListSessions(ctx context.Context, userID string) ([]ChatSession, error)
	GetSession(ctx context.Context, userID, sessionID string) (ChatSession, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error

	// InsertMessage appends to the session and bumps its updated_at.
	InsertMessage(ctx context.Context, userID string, m ChatMessage) error
	ListMessages(ctx context.Context, userID, sessionID string) ([]ChatMessage, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) InsertSession(ctx context.Context, s ChatSession) error {
	const q = `
INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.UserID, s.Title, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PostgresRepository) ListSessions(ctx context.Context, userID string) ([]ChatSession, error) {
	const q = `
SELECT id, user_id, title, created_at, updated_at
FROM chat_sessions
WHERE user_id = $1
ORDER BY updated_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ChatSession, 0)
	for rows.Next() {
		var s ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetSession(ctx context.Context, userID, sessionID string) (ChatSession, error) {
	const q = `
SELECT id, user_id, title, created_at, updated_at
FROM chat_sessions
WHERE user_id = $1 AND id = $2
`
	var s ChatSession
	if err := r.db.QueryRowContext(ctx, q, userID, sessionID).Scan(
		&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ChatSession{}, ErrSessionNotFound
		}
		return ChatSession{}, err
	}
	return s, nil
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, userID, sessionID string) error {
	// Messages cascade via FK.
	const q = `DELETE FROM chat_sessions WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, userID, sessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) InsertMessage(ctx context.Context, userID string, m ChatMessage) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const bump = `
UPDATE chat_sessions SET updated_at = $3
WHERE user_id = $1 AND id = $2
`
		res, err := tx.ExecContext(ctx, bump, userID, m.SessionID, m.CreatedAt)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrSessionNotFound
		}

		const ins = `
INSERT INTO chat_messages (id, session_id, role, content, created_at)
VALUES ($1,$2,$3,$4,$5)
`
		_, err = tx.ExecContext(ctx, ins, m.ID, m.SessionID, m.Role, m.Content, m.CreatedAt)
		return err
	})
}

func (r *PostgresRepository) ListMessages(ctx context.Context, userID, sessionID string) ([]ChatMessage, error) {
	// Join through the session row so unowned sessions read as missing.
	const q = `
SELECT m.id, m.session_id, m.role, m.content, m.created_at
FROM chat_messages m
JOIN chat_sessions s ON s.id = m.session_id
WHERE s.user_id = $1 AND m.session_id = $2
ORDER BY m.created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ChatMessage, 0)
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

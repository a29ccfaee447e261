package assistant

import (
	"context"
	"database/sql"
	"errors"

	"receptionist-platform/pkg/utils"
)

// Repository abstracts the assistants table. All methods are user-scoped.
type Repository interface {
	// Replace removes every assistant owned by a.UserID and inserts a,
	// atomically, so the one-assistant-per-user invariant holds.
	Replace(ctx context.Context, a Assistant) (Assistant, error)

	// GetLatestByUser returns the newest assistant for the user.
	GetLatestByUser(ctx context.Context, userID string) (Assistant, error)

	Update(ctx context.Context, a Assistant) (Assistant, error)
	Delete(ctx context.Context, userID, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Replace(ctx context.Context, a Assistant) (Assistant, error) {
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const del = `DELETE FROM assistants WHERE user_id = $1`
		if _, err := tx.ExecContext(ctx, del, a.UserID); err != nil {
			return err
		}

		const ins = `
INSERT INTO assistants (
  id, user_id, assistant_id, name, first_message, system_prompt,
  language, voice_id, temperature, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
		_, err := tx.ExecContext(ctx, ins,
			a.ID,
			a.UserID,
			a.PlatformID,
			a.Name,
			a.FirstMessage,
			a.SystemPrompt,
			a.Language,
			a.VoiceID,
			a.Temperature,
			a.CreatedAt,
			a.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return Assistant{}, err
	}
	return a, nil
}

func (r *PostgresRepository) GetLatestByUser(ctx context.Context, userID string) (Assistant, error) {
	const q = `
SELECT id, user_id, assistant_id, name, first_message, system_prompt,
       language, voice_id, temperature, created_at, updated_at
FROM assistants
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1
`
	var a Assistant
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&a.ID,
		&a.UserID,
		&a.PlatformID,
		&a.Name,
		&a.FirstMessage,
		&a.SystemPrompt,
		&a.Language,
		&a.VoiceID,
		&a.Temperature,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assistant{}, ErrNotFound
		}
		return Assistant{}, err
	}
	return a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a Assistant) (Assistant, error) {
	const q = `
UPDATE assistants
SET name = $3, first_message = $4, system_prompt = $5, language = $6,
    voice_id = $7, temperature = $8, updated_at = $9
WHERE user_id = $1 AND id = $2
RETURNING id, user_id, assistant_id, name, first_message, system_prompt,
          language, voice_id, temperature, created_at, updated_at
`
	var out Assistant
	if err := r.db.QueryRowContext(ctx, q,
		a.UserID,
		a.ID,
		a.Name,
		a.FirstMessage,
		a.SystemPrompt,
		a.Language,
		a.VoiceID,
		a.Temperature,
		a.UpdatedAt,
	).Scan(
		&out.ID,
		&out.UserID,
		&out.PlatformID,
		&out.Name,
		&out.FirstMessage,
		&out.SystemPrompt,
		&out.Language,
		&out.VoiceID,
		&out.Temperature,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assistant{}, ErrNotFound
		}
		return Assistant{}, err
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	const q = `DELETE FROM assistants WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, userID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

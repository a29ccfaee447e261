package demo

import (
	"context"
	"database/sql"
	"sync"
)

type Repository interface {
	Insert(ctx context.Context, r Request) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, req Request) error {
	const q = `
INSERT INTO demo_requests (id, name, email, company, message, newsletter, demo_date, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q,
		req.ID, req.Name, req.Email, req.Company, req.Message, req.Newsletter, req.DemoDate, req.CreatedAt,
	)
	return err
}

// MemoryRepository backs unit tests.
type MemoryRepository struct {
	mu   sync.Mutex
	rows []Request
}

func NewMemoryRepository() *MemoryRepository { return &MemoryRepository{} }

func (r *MemoryRepository) Insert(ctx context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, req)
	return nil
}

// All is a test helper.
func (r *MemoryRepository) All() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.rows...)
}

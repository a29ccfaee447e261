package assistant

import (
	"context"
	"sync"
)

// MemoryRepository backs unit tests. It mirrors the Postgres semantics,
// including replace-on-create.
type MemoryRepository struct {
	mu   sync.Mutex
	rows []Assistant
}

func NewMemoryRepository() *MemoryRepository { return &MemoryRepository{} }

func (r *MemoryRepository) Replace(ctx context.Context, a Assistant) (Assistant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.UserID != a.UserID {
			kept = append(kept, row)
		}
	}
	r.rows = append(kept, a)
	return a, nil
}

func (r *MemoryRepository) GetLatestByUser(ctx context.Context, userID string) (Assistant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *Assistant
	for i := range r.rows {
		row := &r.rows[i]
		if row.UserID != userID {
			continue
		}
		if found == nil || row.CreatedAt.After(found.CreatedAt) {
			found = row
		}
	}
	if found == nil {
		return Assistant{}, ErrNotFound
	}
	return *found, nil
}

func (r *MemoryRepository) Update(ctx context.Context, a Assistant) (Assistant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].UserID == a.UserID && r.rows[i].ID == a.ID {
			a.PlatformID = r.rows[i].PlatformID
			a.CreatedAt = r.rows[i].CreatedAt
			r.rows[i] = a
			return a, nil
		}
	}
	return Assistant{}, ErrNotFound
}

func (r *MemoryRepository) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].UserID == userID && r.rows[i].ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// CountByUser is a test helper.
func (r *MemoryRepository) CountByUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.UserID == userID {
			n++
		}
	}
	return n
}

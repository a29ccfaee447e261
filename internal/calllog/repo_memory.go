package calllog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository backs unit tests.
type MemoryRepository struct {
	mu   sync.Mutex
	rows []CallLog

	// FailInserts makes Insert return an error, for fire-and-forget tests.
	FailInserts error
}

func NewMemoryRepository() *MemoryRepository { return &MemoryRepository{} }

func (r *MemoryRepository) Insert(ctx context.Context, l CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInserts != nil {
		return r.FailInserts
	}
	r.rows = append(r.rows, l)
	return nil
}

func (r *MemoryRepository) ListByAssistant(ctx context.Context, assistantID string) ([]CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallLog, 0)
	for _, l := range r.rows {
		if l.AssistantID == assistantID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// All is a test helper.
func (r *MemoryRepository) All() []CallLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CallLog(nil), r.rows...)
}

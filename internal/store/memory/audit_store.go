package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taisys/nftmarket/internal/domain"
)

// AuditStore implements domain.AuditStore with an append-only slice.
type AuditStore struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

// NewAuditStore creates an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Log appends a new audit entry.
func (s *AuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, domain.AuditEntry{
		ID:        uuid.New().String(),
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// List returns audit entries newest first.
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AuditEntry
	skipped := 0
	for i := len(s.entries) - 1; i >= 0; i-- {
		if skipped < opts.Offset {
			skipped++
			continue
		}
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.AuditStore = (*AuditStore)(nil)

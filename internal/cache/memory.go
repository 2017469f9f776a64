package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"triage-assistant/internal/core"
	"triage-assistant/pkg"
)

// MemoryStore keeps sessions in process memory.  Sessions are copied on the
// way in and out so callers never share maps with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*pkg.Session
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*pkg.Session)}
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*pkg.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrSessionNotFound)
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) SaveSession(_ context.Context, s *pkg.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *MemoryStore) ListCompleted(_ context.Context, limit int) ([]pkg.SessionPreview, error) {
	m.mu.RLock()
	var out []pkg.SessionPreview
	for _, s := range m.sessions {
		if !s.Complete || s.CompletedAt == nil {
			continue
		}
		out = append(out, preview(s))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func preview(s *pkg.Session) pkg.SessionPreview {
	return pkg.SessionPreview{
		SessionID:   s.ID,
		Excerpt:     core.Excerpt(s.Analysis, core.PreviewRunes),
		CompletedAt: *s.CompletedAt,
	}
}

func cloneSession(s *pkg.Session) *pkg.Session {
	c := *s
	c.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

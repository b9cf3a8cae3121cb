package session

import (
	"context"
	"sync"
	"time"

	"restopos/backend/internal/domain"
)

// Store keeps state that lives only as long as a working session: the open
// business day and the tokens revoked by logout.
type Store interface {
	GetDaySession(ctx context.Context) (*domain.DaySession, error)
	// StartDaySession stores candidate unless a session already exists. It
	// returns the session in effect and whether candidate was stored.
	StartDaySession(ctx context.Context, candidate domain.DaySession) (domain.DaySession, bool, error)
	ClearDaySession(ctx context.Context) error
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type MemoryStore struct {
	mu      sync.Mutex
	day     *domain.DaySession
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: map[string]time.Time{}, now: time.Now}
}

func (m *MemoryStore) GetDaySession(_ context.Context) (*domain.DaySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.day == nil {
		return nil, nil
	}
	dup := *m.day
	return &dup, nil
}

func (m *MemoryStore) StartDaySession(_ context.Context, candidate domain.DaySession) (domain.DaySession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.day != nil {
		return *m.day, false, nil
	}
	m.day = &candidate
	return candidate, true, nil
}

func (m *MemoryStore) ClearDaySession(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.day = nil
	return nil
}

func (m *MemoryStore) RevokeToken(_ context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, until := range m.revoked {
		if now.After(until) {
			delete(m.revoked, id)
		}
	}
	m.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (m *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[tokenID]
	return ok && !m.now().After(until), nil
}

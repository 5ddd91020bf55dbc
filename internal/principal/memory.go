package principal

import (
	"context"
	"sync"
	"time"

	"hailway.org/internal/ids"
)

// Memory implements Store with in-process concurrency safety. Used for tests
// and for running the API without a database.
type Memory struct {
	mu      sync.RWMutex
	byID    map[Kind]map[string]*Principal
	byEmail map[Kind]map[string]string // normalized email -> id
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		byID: map[Kind]map[string]*Principal{
			KindRider:   {},
			KindCaptain: {},
		},
		byEmail: map[Kind]map[string]string{
			KindRider:   {},
			KindCaptain: {},
		},
	}
}

func (m *Memory) Create(ctx context.Context, p *Principal) error {
	email := NormalizeEmail(p.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[p.Kind][email]; ok {
		return ErrAlreadyExists
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := time.Now().UTC()
	p.Email = email
	p.CreatedAt = now
	p.UpdatedAt = now

	stored := clone(p)
	m.byID[p.Kind][p.ID] = stored
	m.byEmail[p.Kind][email] = p.ID
	return nil
}

func (m *Memory) FindByEmail(ctx context.Context, kind Kind, email string) (*Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[kind][NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(m.byID[kind][id]), nil
}

func (m *Memory) FindByID(ctx context.Context, kind Kind, id string) (*Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.byID[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (m *Memory) UpdatePresence(ctx context.Context, kind Kind, id string, status Status, loc *Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byID[kind][id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	if loc != nil {
		l := *loc
		p.Location = &l
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// clone returns a deep copy so callers cannot mutate stored state.
func clone(p *Principal) *Principal {
	out := *p
	if p.Vehicle != nil {
		v := *p.Vehicle
		out.Vehicle = &v
	}
	if p.Location != nil {
		l := *p.Location
		out.Location = &l
	}
	return &out
}

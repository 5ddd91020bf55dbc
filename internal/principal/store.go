package principal

import "context"

// Store abstracts principal persistence. A single kind-parameterized interface
// serves both riders and captains; the storage layer enforces per-kind email
// uniqueness.
type Store interface {
	// Create persists a new principal. An empty ID is assigned by the store.
	// Returns ErrAlreadyExists when the (kind, email) pair is taken.
	Create(ctx context.Context, p *Principal) error

	// FindByEmail looks a principal up by normalized email within one kind.
	FindByEmail(ctx context.Context, kind Kind, email string) (*Principal, error)

	// FindByID looks a principal up by identifier within one kind.
	FindByID(ctx context.Context, kind Kind, id string) (*Principal, error)

	// UpdatePresence stores a captain's live status and optional location.
	UpdatePresence(ctx context.Context, kind Kind, id string, status Status, loc *Location) error
}

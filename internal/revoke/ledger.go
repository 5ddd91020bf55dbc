// Package revoke implements the revocation ledger: tokens surrendered on
// logout stay unacceptable for the remainder of their validity window, even
// though their signature and expiry would still verify.
package revoke

import (
	"context"
	"time"
)

// Ledger records revoked tokens and answers membership queries. A record must
// remain queryable at least until the token's own expiry; eviction earlier
// than that would let a logged-out token authenticate again. Implementations
// must support concurrent Revoke and IsRevoked with read-your-writes
// consistency for the same token value.
type Ledger interface {
	// Revoke inserts the token. Idempotent: revoking an already-revoked
	// token is a no-op. expiresAt is the token's embedded expiry and bounds
	// how long the record must be retained.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error

	// IsRevoked reports membership. A lookup failure must propagate so the
	// caller can fail the request closed.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

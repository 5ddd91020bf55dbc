package revoke

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PG implements Ledger on PostgreSQL. Eviction runs as a periodic sweep
// keyed off each record's stored expiry; a record that has not been swept yet
// only costs storage, never correctness.
type PG struct {
	db  *sql.DB
	now func() time.Time
}

var _ Ledger = (*PG)(nil)

// NewPG wraps an existing connection pool.
func NewPG(db *sql.DB) *PG {
	return &PG{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (p *PG) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return nil
	}
	retainUntil := expiresAt
	if min := p.now().Add(minRetention); retainUntil.Before(min) {
		retainUntil = min
	}
	_, err := p.db.ExecContext(ctx, `
		insert into revoked_tokens(token, revoked_at, expires_at)
		values ($1, $2, $3)
		on conflict (token) do nothing
	`, token, p.now(), retainUntil)
	return err
}

func (p *PG) IsRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	err := p.db.QueryRowContext(ctx,
		`select exists(select 1 from revoked_tokens where token=$1)`, token).Scan(&revoked)
	if err != nil {
		return false, err
	}
	return revoked, nil
}

// Sweep deletes records whose tokens have expired.
func (p *PG) Sweep(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `delete from revoked_tokens where expires_at < $1`, p.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartSweeper runs Sweep at the given interval until the returned stop
// function is called. Sweep failures are ignored here: the next tick retries,
// and unreclaimed rows are a storage cost only.
func (p *PG) StartSweeper(interval time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = p.Sweep(ctx)
			}
		}
	}()
	return cancel
}

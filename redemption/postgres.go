package redemption

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solgate/solgate/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS redemptions (
    signature   TEXT        PRIMARY KEY,
    redeemed_at TIMESTAMPTZ NOT NULL
);
`

// PostgresStore persists redemptions in a redemptions table whose primary
// key enforces uniqueness. Rows are never updated or deleted; removing one
// would reopen a replay window.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the redemptions table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("redemption: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsRedeemed(ctx context.Context, reference string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM redemptions WHERE signature = $1)`

	var redeemed bool
	if err := s.pool.QueryRow(ctx, q, reference).Scan(&redeemed); err != nil {
		return false, fmt.Errorf("redemption: query: %w", err)
	}
	return redeemed, nil
}

// TryRedeem is one atomic insert; the ON CONFLICT clause turns a duplicate
// into an affected-row count of zero rather than an error, so a lost race
// is distinguishable from a storage failure.
func (s *PostgresStore) TryRedeem(ctx context.Context, reference string, at time.Time) (bool, error) {
	const q = `
INSERT INTO redemptions (signature, redeemed_at)
VALUES ($1, $2)
ON CONFLICT (signature) DO NOTHING`

	tag, err := s.pool.Exec(ctx, q, reference, at.UTC())
	if err != nil {
		return false, fmt.Errorf("redemption: insert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Recent returns the most recently redeemed references, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]types.RedemptionRecord, error) {
	const q = `SELECT signature, redeemed_at FROM redemptions ORDER BY redeemed_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("redemption: list: %w", err)
	}
	defer rows.Close()

	var out []types.RedemptionRecord
	for rows.Next() {
		var rec types.RedemptionRecord
		if err := rows.Scan(&rec.Reference, &rec.RedeemedAt); err != nil {
			return nil, fmt.Errorf("redemption: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("redemption: list: %w", err)
	}
	return out, nil
}

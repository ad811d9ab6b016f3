package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresVerificationSource reads verification outcomes from the
// event_verifications table. Wire it only when the verification
// collaborator is deployed; the facade degrades to zero without it.
type PostgresVerificationSource struct {
	pool *pgxpool.Pool
}

// NewPostgresVerificationSource creates a verification source over the pool.
func NewPostgresVerificationSource(pool *pgxpool.Pool) *PostgresVerificationSource {
	return &PostgresVerificationSource{pool: pool}
}

// CountDistinctVerifiedHazards returns how many distinct hazards carry a
// verified verdict.
func (s *PostgresVerificationSource) CountDistinctVerifiedHazards(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(DISTINCT hazard_id)
		FROM event_verifications
		WHERE status = 'verified'
	`).Scan(&count)
	return count, err
}

// Ensure PostgresVerificationSource implements VerificationSource.
var _ VerificationSource = (*PostgresVerificationSource)(nil)

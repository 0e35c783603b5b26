package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/VaultGate/internal/model"
)

// AccessRepository persists access records in the access_log table.
type AccessRepository struct {
	pool *pgxpool.Pool
}

// NewAccessRepository constructs a repository.
func NewAccessRepository(pool *pgxpool.Pool) *AccessRepository {
	return &AccessRepository{pool: pool}
}

// Record inserts rec. Re-delivering the same record is a no-op, which keeps
// queue retries harmless.
func (r *AccessRepository) Record(ctx context.Context, rec model.AccessRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO access_log (id, occurred_at, remote_addr, path, key_version, outcome, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.Time.UTC(), rec.RemoteAddr, rec.Path, rec.Version, string(rec.Outcome), rec.Reason)
	if err != nil {
		return fmt.Errorf("insert access record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *AccessRepository) Recent(ctx context.Context, limit int) ([]model.AccessRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, occurred_at, remote_addr, path, key_version, outcome, reason
		FROM access_log
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select access records: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AccessRecord, error) {
		var rec model.AccessRecord
		var outcome string
		err := row.Scan(&rec.ID, &rec.Time, &rec.RemoteAddr, &rec.Path, &rec.Version, &outcome, &rec.Reason)
		rec.Outcome = model.Outcome(outcome)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan access records: %w", err)
	}
	return records, nil
}

// Package kvstore holds the TTL counter store backends used for rate limits and
// partner conversation state.
package kvstore

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/pgconv"
	"freshfold/internal/usecase/shared"
)

var _ shared.CounterStore = (*PostgresStore)(nil)

// PostgresStore keeps counters in the counters table. Expired rows are treated as
// absent and overwritten in place, Sweep removes the rest.
type PostgresStore struct {
	db     db.DBTX
	clock  clock.Clock
	logger *slog.Logger
}

func NewPostgresStore(dbtx db.DBTX, clock clock.Clock, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: dbtx, clock: clock, logger: logger}
}

func (s *PostgresStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.clock.Now()
	var value int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO counters (key, value, expires_at)
		VALUES ($1, 1, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = CASE WHEN counters.expires_at <= $2 THEN 1 ELSE counters.value + 1 END,
			data = CASE WHEN counters.expires_at <= $2 THEN '' ELSE counters.data END,
			expires_at = CASE WHEN counters.expires_at <= $2 THEN EXCLUDED.expires_at ELSE counters.expires_at END
		RETURNING value`,
		key, now, now.Add(ttl),
	).Scan(&value)
	if err != nil {
		return 0, infra.WrapRepoErr(s.logger, infra.KindFromPgError(err), "failed to increment counter", err)
	}
	return value, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var data string
	err := s.db.QueryRow(ctx,
		`SELECT data FROM counters WHERE key = $1 AND expires_at > $2`,
		key, s.clock.Now(),
	).Scan(&data)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return "", false, nil
		}
		return "", false, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to get counter", err)
	}
	return data, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO counters (key, value, data, expires_at)
		VALUES ($1, 0, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = 0, data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
		key, value, s.clock.Now().Add(ttl),
	)
	if err != nil {
		return infra.WrapRepoErr(s.logger, infra.KindFromPgError(err), "failed to put counter", err)
	}
	return nil
}

// Sweep deletes expired rows and reports how many were removed.
func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM counters WHERE expires_at <= $1`, s.clock.Now())
	if err != nil {
		return 0, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to sweep counters", err)
	}
	return tag.RowsAffected(), nil
}

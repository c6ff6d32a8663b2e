package repository

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/pkg/pgconv"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type IdempotencyRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewIdempotencyRepository(dbtx db.DBTX, logger *slog.Logger) *IdempotencyRepository {
	return &IdempotencyRepository{db: dbtx, logger: logger}
}

// TryInsert waits on a concurrent insert of the same key, so a duplicate request
// sees the committed outcome of the first one.
func (r *IdempotencyRepository) TryInsert(ctx context.Context, rec shared.IdempotencyRecord) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO idempotency_keys (key, scope, endpoint, request_hash, status, expires_at)
		VALUES ($1, $2, $3, $4, 'processing', $5)
		ON CONFLICT (key, scope) DO NOTHING`,
		rec.Key, rec.Scope, rec.Endpoint, rec.RequestHash, rec.ExpiresAt,
	)
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to try insert idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IdempotencyRepository) Get(ctx context.Context, key uuid.UUID, scope string) (*shared.IdempotencyRecord, error) {
	var (
		rec    shared.IdempotencyRecord
		result pgtype.UUID
	)
	err := r.db.QueryRow(ctx,
		`SELECT key, scope, endpoint, status, request_hash, result_order_id, expires_at
		FROM idempotency_keys WHERE key = $1 AND scope = $2`,
		key, scope,
	).Scan(&rec.Key, &rec.Scope, &rec.Endpoint, &rec.Status, &rec.RequestHash, &result, &rec.ExpiresAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "idempotency key not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to get idempotency key", err)
	}
	rec.ResultOrderID = pgconv.UUIDPtrFromPgtype(result)
	return &rec, nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, key uuid.UUID, scope string, responseHash string, resultOrderID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE idempotency_keys
		SET status = 'completed', response_body_hash = $3, result_order_id = $4, updated_at = now()
		WHERE key = $1 AND scope = $2`,
		key, scope, pgconv.StringToPgtype(responseHash), pgconv.UUIDToPgtype(resultOrderID),
	)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to update idempotency key status", err)
	}
	return nil
}

// ReclaimExpired takes over an expired record for a new request.
func (r *IdempotencyRepository) ReclaimExpired(ctx context.Context, rec shared.IdempotencyRecord, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE idempotency_keys
		SET status = 'processing', request_hash = $3, endpoint = $4, expires_at = $5,
			result_order_id = NULL, response_body_hash = NULL, updated_at = now()
		WHERE key = $1 AND scope = $2 AND expires_at < $6`,
		rec.Key, rec.Scope, rec.RequestHash, rec.Endpoint, rec.ExpiresAt, now,
	)
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to reclaim idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

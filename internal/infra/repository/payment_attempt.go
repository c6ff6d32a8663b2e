package repository

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/domain/payment"
	"freshfold/internal/infra"
	"freshfold/internal/infra/db"
	"freshfold/internal/infra/repository/converter"
	"freshfold/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const insertAttemptSQL = `INSERT INTO payment_attempts (` + converter.AttemptColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

const updateAttemptSQL = `UPDATE payment_attempts SET
	amount = $2, status = $3, provider_ref = $4, continuation_ref = $5, client_secret = $6,
	failure_code = $7, failure_message = $8, released_amount = $9, tries = $10,
	next_attempt_at = $11, updated_at = $12
WHERE id = $1`

type PaymentAttemptRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewPaymentAttemptRepository(dbtx db.DBTX, logger *slog.Logger) *PaymentAttemptRepository {
	return &PaymentAttemptRepository{db: dbtx, logger: logger}
}

func (r *PaymentAttemptRepository) Latest(ctx context.Context, orderID uuid.UUID, kind payment.Kind) (*payment.Attempt, error) {
	var row converter.AttemptRow
	err := r.db.QueryRow(ctx,
		`SELECT `+converter.AttemptColumns+` FROM payment_attempts
		WHERE order_id = $1 AND kind = $2 ORDER BY epoch DESC LIMIT 1`,
		orderID, string(kind),
	).Scan(row.ScanTargets()...)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, nil
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to load latest payment attempt", err)
	}
	return converter.AttemptToDomain(row), nil
}

func (r *PaymentAttemptRepository) Insert(ctx context.Context, a *payment.Attempt) error {
	if _, err := r.db.Exec(ctx, insertAttemptSQL, converter.AttemptArgs(a)...); err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to insert payment attempt", err)
	}
	return nil
}

func (r *PaymentAttemptRepository) Update(ctx context.Context, a *payment.Attempt) error {
	tag, err := r.db.Exec(ctx, updateAttemptSQL,
		a.ID, a.Amount, string(a.Status), a.ProviderRef, pgconv.StringPtrToPgtype(a.ContinuationRef), a.ClientSecret,
		a.FailureCode, a.FailureMessage, a.ReleasedAmount, a.Tries,
		pgconv.TimePtrToPgtype(a.NextAttemptAt), a.UpdatedAt,
	)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindFromPgError(err), "failed to update payment attempt", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "payment attempt not found", nil)
	}
	return nil
}

func (r *PaymentAttemptRepository) FindByContinuation(ctx context.Context, ref string) (*payment.Attempt, error) {
	var row converter.AttemptRow
	err := r.db.QueryRow(ctx,
		`SELECT `+converter.AttemptColumns+` FROM payment_attempts WHERE continuation_ref = $1`, ref,
	).Scan(row.ScanTargets()...)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "continuation reference not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to load payment attempt", err)
	}
	return converter.AttemptToDomain(row), nil
}

func (r *PaymentAttemptRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*payment.Attempt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+converter.AttemptColumns+` FROM payment_attempts
		WHERE status = 'scheduled' AND next_attempt_at <= $1
		ORDER BY next_attempt_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		now, limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to claim due payment attempts", err)
	}
	return r.collect(rows)
}

func (r *PaymentAttemptRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*payment.Attempt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+converter.AttemptColumns+` FROM payment_attempts WHERE order_id = $1 ORDER BY created_at, epoch`,
		orderID,
	)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to list payment attempts", err)
	}
	return r.collect(rows)
}

func (r *PaymentAttemptRepository) collect(rows pgx.Rows) ([]*payment.Attempt, error) {
	defer rows.Close()
	var out []*payment.Attempt
	for rows.Next() {
		var row converter.AttemptRow
		if err := rows.Scan(row.ScanTargets()...); err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan payment attempt", err)
		}
		out = append(out, converter.AttemptToDomain(row))
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to iterate payment attempts", err)
	}
	return out, nil
}

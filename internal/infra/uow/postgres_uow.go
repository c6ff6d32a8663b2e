package uow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"freshfold/internal/domain/order"
	"freshfold/internal/domain/payment"
	"freshfold/internal/domain/policy"
	"freshfold/internal/infra/db"
	"freshfold/internal/infra/repository"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
)

var (
	errTransactionBegin   = errs.New("failed to begin transaction")
	errTransactionCommit  = errs.New("failed to commit transaction")
	errMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

type PostgresUoW struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresUoW(pool *pgxpool.Pool, logger *slog.Logger) shared.UnitOfWork {
	return &PostgresUoW{
		pool:   pool,
		logger: logger,
	}
}

// ReadCommitted prevents dirty reads while allowing concurrent writes
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTxWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (u *PostgresUoW) CommandReads() shared.CommandReads {
	return &commandReads{dbtx: u.pool, logger: u.logger}
}

// Avoids defer accumulation in retry loops to prevent connection leaks
func (u *PostgresUoW) runInTxWithOptions(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	const maxRetries = 3
	base := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		pgxTx, err := u.pool.BeginTx(ctx, options)
		if err != nil {
			return errs.Mark(err, errTransactionBegin)
		}

		tx := &pgTx{
			dbtx:   pgxTx,
			logger: u.logger,
		}

		err = fn(ctx, tx)
		if err == nil {
			if err = pgxTx.Commit(ctx); err == nil {
				return nil
			}
			err = errs.Mark(err, errTransactionCommit)
		}

		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				u.logger.Warn("rollback failed", "attempt", attempt+1, "error", rollbackErr.Error())
			}
		}

		if !shouldRetry(err, attempt, maxRetries) {
			if attempt == maxRetries && isRetryableError(err) {
				u.logger.Error("transaction failed after max retries",
					"attempts", attempt+1,
					"error", err.Error())
				return errs.Mark(err, errMaxRetriesExceeded)
			}
			return err
		}

		waitTime := calculateBackoff(attempt, base)

		u.logger.Warn("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"wait_ms", waitTime.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return errMaxRetriesExceeded
}

func shouldRetry(err error, attempt, maxRetries int) bool {
	return isRetryableError(err) && attempt < maxRetries
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 5))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	// mask the sign bit before converting
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	// #nosec G115 -- Intentionally safe conversion after masking
	return int64(uval) % n
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected:
		return true
	default:
		return false
	}
}

type pgTx struct {
	dbtx   db.DBTX
	logger *slog.Logger

	// Lazy-initialized repositories
	orderRepo        shared.OrderRepository
	capacityRepo     shared.CapacityRepository
	policyRepo       shared.PolicyRepository
	attemptRepo      shared.PaymentAttemptRepository
	webhookRepo      shared.WebhookEventRepository
	idempotencyRepo  shared.IdempotencyRepository
	notificationRepo shared.NotificationRepository
	subscriptionRepo shared.SubscriptionRepository
	userRepo         shared.UserRepository
}

func (t *pgTx) Orders() shared.OrderRepository {
	if t.orderRepo == nil {
		t.orderRepo = repository.NewOrderRepository(t.dbtx, t.logger)
	}
	return t.orderRepo
}

func (t *pgTx) Capacity() shared.CapacityRepository {
	if t.capacityRepo == nil {
		t.capacityRepo = repository.NewCapacityRepository(t.dbtx, t.logger)
	}
	return t.capacityRepo
}

func (t *pgTx) Policies() shared.PolicyRepository {
	if t.policyRepo == nil {
		t.policyRepo = repository.NewPolicyRepository(t.dbtx, t.logger)
	}
	return t.policyRepo
}

func (t *pgTx) PaymentAttempts() shared.PaymentAttemptRepository {
	if t.attemptRepo == nil {
		t.attemptRepo = repository.NewPaymentAttemptRepository(t.dbtx, t.logger)
	}
	return t.attemptRepo
}

func (t *pgTx) WebhookEvents() shared.WebhookEventRepository {
	if t.webhookRepo == nil {
		t.webhookRepo = repository.NewWebhookEventRepository(t.dbtx, t.logger)
	}
	return t.webhookRepo
}

func (t *pgTx) Idempotency() shared.IdempotencyRepository {
	if t.idempotencyRepo == nil {
		t.idempotencyRepo = repository.NewIdempotencyRepository(t.dbtx, t.logger)
	}
	return t.idempotencyRepo
}

func (t *pgTx) Notifications() shared.NotificationRepository {
	if t.notificationRepo == nil {
		t.notificationRepo = repository.NewNotificationRepository(t.dbtx, t.logger)
	}
	return t.notificationRepo
}

func (t *pgTx) Subscriptions() shared.SubscriptionRepository {
	if t.subscriptionRepo == nil {
		t.subscriptionRepo = repository.NewSubscriptionRepository(t.dbtx, t.logger)
	}
	return t.subscriptionRepo
}

func (t *pgTx) Users() shared.UserRepository {
	if t.userRepo == nil {
		t.userRepo = repository.NewUserRepository(t.dbtx, t.logger)
	}
	return t.userRepo
}

type commandReads struct {
	dbtx   db.DBTX
	logger *slog.Logger
}

func (r *commandReads) OrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return repository.NewOrderRepository(r.dbtx, r.logger).Get(ctx, id)
}

func (r *commandReads) ActivePolicy(ctx context.Context, serviceType string) (*policy.CancellationPolicy, error) {
	return repository.NewPolicyRepository(r.dbtx, r.logger).Active(ctx, serviceType)
}

func (r *commandReads) AttemptByContinuation(ctx context.Context, ref string) (*payment.Attempt, error) {
	return repository.NewPaymentAttemptRepository(r.dbtx, r.logger).FindByContinuation(ctx, ref)
}

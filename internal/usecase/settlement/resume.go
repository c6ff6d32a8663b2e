package settlement

import (
	"context"
	"log/slog"

	"freshfold/internal/domain/order"
	"freshfold/internal/domain/payment"
	"freshfold/internal/infra"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
)

func (s *sagaImpl) Confirm(ctx context.Context, orderID uuid.UUID, continuationRef string) (*Outcome, error) {
	if continuationRef == "" {
		return nil, ErrUnknownContinuation
	}

	var attempt *payment.Attempt
	var snapshot *order.Order
	var rejected error
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		rejected = nil
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderErr(err)
		}
		a, err := tx.PaymentAttempts().FindByContinuation(ctx, continuationRef)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrUnknownContinuation
			}
			return errs.Wrap(err, "failed to load suspended attempt")
		}
		if err := a.Resumable(orderID); err != nil {
			return errs.Mark(err, ErrUnknownContinuation)
		}
		if err := recheck(o, a); err != nil {
			a.Fail("superseded", err.Error(), s.clock.Now())
			if err := tx.PaymentAttempts().Update(ctx, a); err != nil {
				return errs.Wrap(err, "failed to close suspended attempt")
			}
			rejected = err
			return nil
		}
		a.Begin(s.clock.Now())
		if err := tx.PaymentAttempts().Update(ctx, a); err != nil {
			return errs.Wrap(err, "failed to resume payment attempt")
		}
		attempt, snapshot = a, o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}

	req := s.requestFor(snapshot, attempt)
	req.ProviderRef = attempt.ProviderRef
	res, callErr := s.invoke(ctx, attempt, s.gateway.Confirm, req)
	return s.finish(ctx, attempt, res, callErr, s.applyFor(attempt.Kind))
}

// SettleCancellation moves the money a cancellation leaves behind: the unpaid
// remainder of a payment comes back, a hold is captured for the fee or voided,
// and a deferred order owing a fee gets a scheduled charge.
func (s *sagaImpl) SettleCancellation(ctx context.Context, orderID uuid.UUID, fee int64) (*Outcome, error) {
	if fee < 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.closeOpenAttempts(ctx, orderID); err != nil {
		return nil, err
	}
	o, err := s.uow.CommandReads().OrderByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderErr(err)
	}
	p := o.Payment()

	switch {
	case o.PaidAt() != nil:
		refundable := o.PaidAmount().Cents() - o.RefundedAmount().Cents() - fee
		if refundable <= 0 {
			return nil, nil
		}
		return s.Refund(ctx, orderID, refundable, "cancellation")
	case p.HasAuthorization() && p.AuthorizedAmount > 0:
		if fee > 0 {
			amount := min(fee, p.AuthorizedAmount)
			return s.Capture(ctx, orderID, &amount)
		}
		return s.void(ctx, orderID)
	case fee > 0:
		return s.scheduleFeeCharge(ctx, orderID, fee)
	default:
		return nil, nil
	}
}

// closeOpenAttempts fails the parked charges and suspended authorizations of a
// canceled order. Attempts already in flight settle through finish.
func (s *sagaImpl) closeOpenAttempts(ctx context.Context, orderID uuid.UUID) error {
	return s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderErr(err)
		}
		if o.Status() != order.StatusCanceled {
			return nil
		}
		attempts, err := tx.PaymentAttempts().ListByOrder(ctx, orderID)
		if err != nil {
			return errs.Wrap(err, "failed to load payment attempts")
		}
		now := s.clock.Now()
		for _, a := range attempts {
			if a.Kind != payment.KindCharge && a.Kind != payment.KindAuthorize {
				continue
			}
			if a.Status != payment.StatusScheduled && a.Status != payment.StatusRequiresAction {
				continue
			}
			a.Fail("superseded", "order canceled", now)
			if err := tx.PaymentAttempts().Update(ctx, a); err != nil {
				return errs.Wrap(err, "failed to close payment attempt")
			}
			s.logger.Info("Open payment attempt closed by cancellation",
				slog.String("order_id", orderID.String()),
				slog.String("idempotency_key", a.IdempotencyKey))
		}
		return nil
	})
}

func (s *sagaImpl) scheduleFeeCharge(ctx context.Context, orderID uuid.UUID, fee int64) (*Outcome, error) {
	var outcome *Outcome
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderErr(err)
		}
		now := s.clock.Now()
		if !o.Payment().HasPaymentMethod() {
			expected := o.Status()
			if err := s.requireManualPayment(ctx, tx, o, now); err != nil {
				return err
			}
			return tx.Orders().Update(ctx, o, expected)
		}
		latest, err := tx.PaymentAttempts().Latest(ctx, orderID, payment.KindCharge)
		if err != nil {
			return errs.Wrap(err, "failed to load latest payment attempt")
		}
		epoch, reuse := payment.NextEpoch(latest)
		if reuse {
			// The open charge was for the full total; its key cannot carry the fee.
			latest.Fail("superseded", "order canceled", now)
			if err := tx.PaymentAttempts().Update(ctx, latest); err != nil {
				return errs.Wrap(err, "failed to close open charge")
			}
			epoch = latest.Epoch + 1
		}
		a, err := payment.NewAttempt(orderID, payment.KindCharge, epoch, fee, now)
		if err != nil {
			return errs.Mark(err, ErrInvalidAmount)
		}
		a.Schedule(now, "cancellation fee", now)
		outcome = outcomeOf(a)
		return tx.PaymentAttempts().Insert(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		s.logger.Info("Cancellation fee charge scheduled",
			slog.String("order_id", orderID.String()),
			slog.Int64("fee", fee))
	}
	return outcome, nil
}

type dueAttempt struct {
	attempt *payment.Attempt
	order   *order.Order
}

// RetryDue claims due attempts in one short transaction, re-checks each against
// its locked order, then runs the survivors against the processor with the
// attempt's original idempotency key.
func (s *sagaImpl) RetryDue(ctx context.Context) (int, error) {
	var due []dueAttempt
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		due = due[:0]
		now := s.clock.Now()
		claimed, err := tx.PaymentAttempts().ClaimDue(ctx, now, s.cfg.BatchSize)
		if err != nil {
			return errs.Wrap(err, "failed to claim due payment attempts")
		}
		for _, a := range claimed {
			o, err := tx.Orders().GetForUpdate(ctx, a.OrderID)
			if err != nil {
				return errs.Wrap(mapOrderErr(err), "failed to lock order for payment retry")
			}
			if err := recheck(o, a); err != nil {
				a.Fail("superseded", err.Error(), now)
				s.logger.Info("Payment retry dropped",
					slog.String("order_id", a.OrderID.String()),
					slog.String("idempotency_key", a.IdempotencyKey),
					slog.String("status", o.Status().String()),
					slog.String("reason", err.Error()))
			} else {
				a.Begin(now)
				due = append(due, dueAttempt{attempt: a, order: o})
			}
			if err := tx.PaymentAttempts().Update(ctx, a); err != nil {
				return errs.Wrap(err, "failed to start payment retry")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, d := range due {
		if err := ctx.Err(); err != nil {
			return len(due), err
		}
		a := d.attempt
		if _, err := s.execute(ctx, a, d.order); err != nil {
			s.logger.Warn("Payment retry did not succeed",
				slog.String("order_id", a.OrderID.String()),
				slog.String("idempotency_key", a.IdempotencyKey),
				slog.String("error", err.Error()))
		}
	}
	return len(due), nil
}

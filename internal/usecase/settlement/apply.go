package settlement

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/domain/order"
	"freshfold/internal/domain/payment"
	"freshfold/internal/domain/subscription"
	"freshfold/internal/domain/webhook"
	"freshfold/internal/infra"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
)

// ApplyNotification folds one processor notification into the order inside the
// ingester's transaction. Every branch is idempotent against the saga's own writes.
// Notifications for unknown orders are logged and acknowledged.
func (s *sagaImpl) ApplyNotification(ctx context.Context, tx shared.Tx, n webhook.Notification) error {
	switch v := n.(type) {
	case webhook.PaymentAuthorized:
		return s.withOrder(ctx, tx, v.OrderID, v.Meta, func(o *order.Order, now time.Time) error {
			return s.onAuthorized(ctx, tx, o, v, now)
		})
	case webhook.PaymentCaptured:
		return s.withOrder(ctx, tx, v.OrderID, v.Meta, func(o *order.Order, now time.Time) error {
			return s.onCaptured(ctx, tx, o, v, now)
		})
	case webhook.PaymentFailed:
		return s.withOrder(ctx, tx, v.OrderID, v.Meta, func(o *order.Order, now time.Time) error {
			return s.onFailed(ctx, tx, o, v, now)
		})
	case webhook.PaymentCanceled:
		return s.withOrder(ctx, tx, v.OrderID, v.Meta, func(o *order.Order, now time.Time) error {
			return s.onCanceled(ctx, tx, o, v, now)
		})
	case webhook.RefundIssued:
		return s.withOrder(ctx, tx, v.OrderID, v.Meta, func(o *order.Order, now time.Time) error {
			if v.RefundedTotalCents > o.PaidAmount().Cents() {
				// Left failed so the redelivery applies it once the payment is recorded.
				return errs.Wrapf(ErrRefundAheadOfPayment, "refunded %d of paid %d", v.RefundedTotalCents, o.PaidAmount().Cents())
			}
			return recordRefundTotal(o, v.RefundedTotalCents, now)
		})
	case webhook.SubscriptionChanged:
		return s.onSubscription(ctx, tx, v)
	default:
		return errs.Mark(errs.Newf("no handler for %T", n), webhook.ErrUnsupportedEvent)
	}
}

func (s *sagaImpl) withOrder(ctx context.Context, tx shared.Tx, orderID uuid.UUID, meta webhook.Meta, fn func(o *order.Order, now time.Time) error) error {
	if orderID == uuid.Nil {
		s.logger.Warn("Webhook without order reference",
			slog.String("event_id", meta.EventID),
			slog.String("event_type", meta.EventType))
		return nil
	}
	o, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			s.logger.Warn("Webhook references unknown order",
				slog.String("event_id", meta.EventID),
				slog.String("order_id", orderID.String()))
			return nil
		}
		return errs.Wrap(err, "failed to load order")
	}
	expected := o.Status()
	if err := fn(o, s.clock.Now()); err != nil {
		return err
	}
	return tx.Orders().Update(ctx, o, expected)
}

// openAttempt finds the open attempt a notification settles. An attempt whose
// processor reference is not known yet matches any reference.
func openAttempt(ctx context.Context, tx shared.Tx, orderID uuid.UUID, ref string, kinds ...payment.Kind) (*payment.Attempt, error) {
	for _, kind := range kinds {
		a, err := tx.PaymentAttempts().Latest(ctx, orderID, kind)
		if err != nil {
			return nil, errs.Wrap(err, "failed to load payment attempt")
		}
		if a == nil || !a.Status.Open() {
			continue
		}
		if a.ProviderRef == "" || a.ProviderRef == ref {
			return a, nil
		}
	}
	return nil, nil
}

func (s *sagaImpl) onAuthorized(ctx context.Context, tx shared.Tx, o *order.Order, v webhook.PaymentAuthorized, now time.Time) error {
	a, err := openAttempt(ctx, tx, o.ID(), v.AuthorizationID, payment.KindAuthorize)
	if err != nil {
		return err
	}
	if a != nil {
		a.Succeed(v.AuthorizationID, now)
		if err := tx.PaymentAttempts().Update(ctx, a); err != nil {
			return errs.Wrap(err, "failed to settle authorize attempt")
		}
	}

	if o.Payment().AuthorizationID == v.AuthorizationID {
		return nil
	}
	if o.Status() == order.StatusCanceled {
		return s.releaseLateHold(ctx, tx, o, v, now)
	}
	if o.PaidAt() != nil {
		return nil
	}
	if o.Status().IsFinal() {
		s.logger.Warn("Authorization arrived for a closed order",
			slog.String("order_id", o.ID().String()),
			slog.String("status", o.Status().String()))
		return nil
	}
	o.AttachPaymentMethod(v.CustomerID, v.PaymentMethodID, string(v.Source))
	amount := v.AmountCents
	if amount <= 0 {
		amount = o.Pricing().Total().Cents()
	}
	o.AttachAuthorization(string(v.Source), v.AuthorizationID, order.MustMoney(amount), now)
	if o.ServiceType() == order.ServiceCleaning && o.Status() == order.StatusPending {
		return o.Transition(order.StatusAuthorized, now)
	}
	return nil
}

// releaseLateHold records a hold that landed after cancellation and parks a void
// for the retry worker, since no processor call runs inside the ingest transaction.
func (s *sagaImpl) releaseLateHold(ctx context.Context, tx shared.Tx, o *order.Order, v webhook.PaymentAuthorized, now time.Time) error {
	if p := o.Payment(); p.HasAuthorization() && p.AuthorizedAmount > 0 {
		s.logger.Error("Second hold on a canceled order needs manual release",
			slog.String("order_id", o.ID().String()),
			slog.String("authorization_id", v.AuthorizationID))
		return nil
	}
	amount := v.AmountCents
	if amount <= 0 {
		amount = o.Pricing().Total().Cents()
	}
	o.AttachAuthorization(string(v.Source), v.AuthorizationID, order.MustMoney(amount), now)

	latest, err := tx.PaymentAttempts().Latest(ctx, o.ID(), payment.KindVoid)
	if err != nil {
		return errs.Wrap(err, "failed to load void attempt")
	}
	epoch, reuse := payment.NextEpoch(latest)
	if reuse {
		return nil
	}
	a, err := payment.NewAttempt(o.ID(), payment.KindVoid, epoch, 0, now)
	if err != nil {
		return errs.Mark(err, errs.ErrFatal)
	}
	a.Schedule(now, "hold landed after cancellation", now)
	if err := tx.PaymentAttempts().Insert(ctx, a); err != nil {
		return errs.Wrap(err, "failed to schedule void")
	}
	s.logger.Warn("Void scheduled for a hold on a canceled order",
		slog.String("order_id", o.ID().String()),
		slog.String("authorization_id", v.AuthorizationID))
	return nil
}

func (s *sagaImpl) onCaptured(ctx context.Context, tx shared.Tx, o *order.Order, v webhook.PaymentCaptured, now time.Time) error {
	a, err := openAttempt(ctx, tx, o.ID(), v.PaymentIntentID, payment.KindCharge, payment.KindCapture)
	if err != nil {
		return err
	}
	if a != nil {
		if a.Kind == payment.KindCapture {
			if released := o.Payment().AuthorizedAmount - v.AmountCents; released > 0 {
				a.ReleasedAmount = released
			}
		}
		a.Succeed(v.PaymentIntentID, now)
		if err := tx.PaymentAttempts().Update(ctx, a); err != nil {
			return errs.Wrap(err, "failed to settle payment attempt")
		}
	}

	paidAt := v.Created
	if paidAt.IsZero() {
		paidAt = now
	}
	recorded, err := o.RecordPayment(order.MustMoney(v.AmountCents), v.ChargeID, v.ReceiptURL, paidAt)
	if err != nil {
		return errs.Mark(err, errs.ErrFatal)
	}
	if !recorded {
		return nil
	}
	if o.Payment().AuthorizationID == v.PaymentIntentID {
		o.ReleaseAuthorization(now)
	}
	if err := advanceAfterPayment(o, now); err != nil {
		return err
	}
	return shared.EnqueueOrderNotification(ctx, tx, shared.NotifyPaymentSucceeded, o.ID(), map[string]any{"amount": v.AmountCents}, now)
}

func (s *sagaImpl) onFailed(ctx context.Context, tx shared.Tx, o *order.Order, v webhook.PaymentFailed, now time.Time) error {
	a, err := openAttempt(ctx, tx, o.ID(), v.PaymentIntentID, payment.KindCharge, payment.KindAuthorize, payment.KindCapture)
	if err != nil {
		return err
	}
	if a == nil {
		return nil
	}
	code := v.FailureCode
	if code == "" {
		code = "declined"
	}
	a.Fail(code, v.FailureMessage, now)
	if a.Kind == payment.KindCharge && o.PaidAt() == nil {
		if err := s.afterChargeDecline(ctx, tx, o, a, now); err != nil {
			return err
		}
	}
	if err := tx.PaymentAttempts().Update(ctx, a); err != nil {
		return errs.Wrap(err, "failed to record payment failure")
	}
	return nil
}

func (s *sagaImpl) onCanceled(ctx context.Context, tx shared.Tx, o *order.Order, v webhook.PaymentCanceled, now time.Time) error {
	a, err := openAttempt(ctx, tx, o.ID(), v.PaymentIntentID, payment.KindVoid)
	if err != nil {
		return err
	}
	if a != nil {
		a.Succeed(v.PaymentIntentID, now)
		if err := tx.PaymentAttempts().Update(ctx, a); err != nil {
			return errs.Wrap(err, "failed to settle void attempt")
		}
	}

	if o.Payment().AuthorizationID != v.PaymentIntentID || o.Payment().AuthorizedAmount == 0 {
		return nil
	}
	if o.PaidAt() != nil || o.Status() == order.StatusCanceled || a != nil {
		o.ReleaseAuthorization(now)
		return nil
	}
	// The processor dropped a hold we still need.
	o.MarkReauthorizationRequired(now)
	return shared.EnqueueOrderNotification(ctx, tx, shared.NotifyReauthorizationRequired, o.ID(), map[string]any{"reason": v.Reason}, now)
}

func (s *sagaImpl) onSubscription(ctx context.Context, tx shared.Tx, v webhook.SubscriptionChanged) error {
	sub := subscription.Subscription{
		ID:               v.SubscriptionID,
		Provider:         string(v.Source),
		CustomerID:       v.CustomerID,
		UserID:           v.UserID,
		Status:           v.Status,
		PlanID:           v.PlanID,
		CurrentPeriodEnd: v.CurrentPeriodEnd,
		LastEventAt:      v.Created,
	}
	if v.Kind == webhook.SubscriptionCanceled {
		at := v.Created
		sub.CanceledAt = &at
	}
	applied, err := tx.Subscriptions().Upsert(ctx, sub)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Info("Stale subscription event ignored",
			slog.String("event_id", v.EventID),
			slog.String("subscription_id", v.SubscriptionID))
	}
	return nil
}

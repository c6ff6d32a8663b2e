package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"freshfold/internal/domain/order"
	"freshfold/internal/domain/payment"
	"freshfold/internal/domain/webhook"
	"freshfold/internal/infra"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/pkg/patch"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound           = errs.Class("order not found", errs.ErrNotFound)
	ErrAlreadyPaid             = errs.Class("order is already paid", errs.ErrConflict)
	ErrNotPayable              = errs.Class("order is not awaiting payment", errs.ErrConflict)
	ErrNoPaymentMethod         = errs.Class("order has no payment method on file", errs.ErrValidation)
	ErrNoAuthorization         = errs.Class("order has no active authorization", errs.ErrConflict)
	ErrAlreadyAuthorized       = errs.Class("order already holds an authorization", errs.ErrConflict)
	ErrNotAuthorizable         = errs.Class("order cannot be authorized in its current state", errs.ErrConflict)
	ErrInvalidAmount           = errs.Class("invalid settlement amount", errs.ErrValidation)
	ErrReauthorizationRequired = errs.Class("authorization expired, re-authorization required", errs.ErrConflict)
	ErrUnknownContinuation     = errs.Class("unknown or completed continuation reference", errs.ErrNotFound)
	ErrSettlementInProgress    = errs.Class("another settlement for this order is still open", errs.ErrConflict)
	ErrNothingToRefund         = errs.Class("order has nothing left to refund", errs.ErrConflict)
	ErrRefundAheadOfPayment    = errs.Class("refund reported before the payment it returns", errs.ErrTransient)
)

// inlineRetryDelay spaces the in-request retries of a transient processor failure.
const inlineRetryDelay = 200 * time.Millisecond

type Config struct {
	Currency          string
	Timeout           time.Duration
	MaxChargeAttempts int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	InlineRetries     int
	BatchSize         int
}

// Outcome is the state of the attempt a saga step left behind.
type Outcome struct {
	AttemptID       string
	Kind            payment.Kind
	Status          payment.Status
	Amount          int64
	ReleasedAmount  int64
	ContinuationRef string
	ClientSecret    string
	NextAttemptAt   *time.Time
}

type AuthorizeInput struct {
	CustomerID      string
	PaymentMethodID string
}

//go:generate mockgen -source=saga.go -destination=../../../tests/mock/settlement/mock_saga.go -package=settlementmock
type Saga interface {
	// Charge runs the deferred charge of the order's outstanding total.
	Charge(ctx context.Context, orderID uuid.UUID) (*Outcome, error)
	Authorize(ctx context.Context, orderID uuid.UUID, in AuthorizeInput) (*Outcome, error)
	// Confirm resumes an attempt suspended for customer authentication.
	Confirm(ctx context.Context, orderID uuid.UUID, continuationRef string) (*Outcome, error)
	// Capture settles the hold. A nil amount captures min(total, authorized).
	Capture(ctx context.Context, orderID uuid.UUID, amount *int64) (*Outcome, error)
	Refund(ctx context.Context, orderID uuid.UUID, amount int64, reason string) (*Outcome, error)
	SettleCancellation(ctx context.Context, orderID uuid.UUID, fee int64) (*Outcome, error)
	// RetryDue re-executes scheduled attempts that still apply and reports how many it ran.
	RetryDue(ctx context.Context) (int, error)
	ApplyNotification(ctx context.Context, tx shared.Tx, n webhook.Notification) error
}

type sagaImpl struct {
	uow     shared.UnitOfWork
	gateway Gateway
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger
}

func NewSaga(uow shared.UnitOfWork, gateway Gateway, clock clock.Clock, cfg Config, logger *slog.Logger) Saga {
	if cfg.MaxChargeAttempts < 1 {
		cfg.MaxChargeAttempts = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 20
	}
	return &sagaImpl{
		uow:     uow,
		gateway: gateway,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

type beginPlan struct {
	kind payment.Kind
	// check validates the locked order and returns the amount a new attempt moves.
	check func(o *order.Order) (int64, error)
	// mutate is optional and persisted together with the attempt.
	mutate func(o *order.Order, now time.Time)
}

// applyFunc folds a successful processor result into the locked order.
type applyFunc func(ctx context.Context, tx shared.Tx, o *order.Order, a *payment.Attempt, res Result, now time.Time) error

func (s *sagaImpl) Charge(ctx context.Context, orderID uuid.UUID) (*Outcome, error) {
	return s.run(ctx, orderID, beginPlan{kind: payment.KindCharge, check: chargeCheck})
}

func chargeCheck(o *order.Order) (int64, error) {
	if o.PaidAt() != nil {
		return 0, ErrAlreadyPaid
	}
	if !o.Payment().HasPaymentMethod() {
		return 0, ErrNoPaymentMethod
	}
	switch {
	case o.Status() == order.StatusAwaitingPayment:
	case o.ServiceType() == order.ServiceCleaning && o.Status() == order.StatusPending:
	default:
		return 0, ErrNotPayable
	}
	return o.Pricing().Total().Cents(), nil
}

func (s *sagaImpl) Authorize(ctx context.Context, orderID uuid.UUID, in AuthorizeInput) (*Outcome, error) {
	plan := beginPlan{
		kind: payment.KindAuthorize,
		check: func(o *order.Order) (int64, error) {
			if o.PaidAt() != nil {
				return 0, ErrAlreadyPaid
			}
			if o.Status().IsFinal() {
				return 0, ErrNotAuthorizable
			}
			if o.Payment().HasAuthorization() && !o.ReauthorizationRequired() {
				return 0, ErrAlreadyAuthorized
			}
			switch o.Status() {
			case order.StatusPending, order.StatusPendingPickup, order.StatusAtFacility, order.StatusAwaitingPayment:
			default:
				return 0, ErrNotAuthorizable
			}
			if in.PaymentMethodID == "" && !o.Payment().HasPaymentMethod() {
				return 0, ErrNoPaymentMethod
			}
			return o.Pricing().Total().Cents(), nil
		},
		mutate: func(o *order.Order, _ time.Time) {
			o.AttachPaymentMethod(in.CustomerID, in.PaymentMethodID, s.gateway.Name())
		},
	}
	return s.run(ctx, orderID, plan)
}

func (s *sagaImpl) Capture(ctx context.Context, orderID uuid.UUID, amount *int64) (*Outcome, error) {
	plan := beginPlan{
		kind: payment.KindCapture,
		check: func(o *order.Order) (int64, error) {
			return captureCheck(o, amount)
		},
	}
	return s.run(ctx, orderID, plan)
}

// captureCheck bounds a capture by the hold and by what the order may still
// collect, which for a canceled order is its cancellation fee.
func captureCheck(o *order.Order, amount *int64) (int64, error) {
	if o.ReauthorizationRequired() {
		return 0, ErrReauthorizationRequired
	}
	if o.PaidAt() != nil {
		return 0, ErrAlreadyPaid
	}
	p := o.Payment()
	if !p.HasAuthorization() || p.AuthorizedAmount <= 0 {
		return 0, ErrNoAuthorization
	}
	limit := o.CollectableAmount()
	if o.Status() == order.StatusRefunded || limit <= 0 {
		return 0, ErrNotPayable
	}
	want := patch.Coalesce(amount, min(limit, p.AuthorizedAmount))
	if want <= 0 || want > p.AuthorizedAmount || want > limit {
		return 0, ErrInvalidAmount
	}
	return want, nil
}

// recheck validates a parked or suspended attempt against the locked order
// before the processor is called again.
func recheck(o *order.Order, a *payment.Attempt) error {
	switch a.Kind {
	case payment.KindCharge:
		if o.Status() != order.StatusCanceled {
			if _, err := chargeCheck(o); err != nil {
				return err
			}
		} else if !o.Payment().HasPaymentMethod() {
			return ErrNoPaymentMethod
		}
		if a.Amount > o.CollectableAmount() {
			return ErrNotPayable
		}
	case payment.KindAuthorize:
		if o.PaidAt() != nil {
			return ErrAlreadyPaid
		}
		if o.Status().IsFinal() {
			return ErrNotAuthorizable
		}
	case payment.KindCapture:
		_, err := captureCheck(o, &a.Amount)
		return err
	case payment.KindVoid:
		if p := o.Payment(); !p.HasAuthorization() || p.AuthorizedAmount == 0 {
			return ErrNoAuthorization
		}
	case payment.KindRefund:
		if a.Amount > o.PaidAmount().Cents()-o.RefundedAmount().Cents() {
			return ErrNothingToRefund
		}
	}
	return nil
}

func (s *sagaImpl) Refund(ctx context.Context, orderID uuid.UUID, amount int64, reason string) (*Outcome, error) {
	plan := beginPlan{
		kind: payment.KindRefund,
		check: func(o *order.Order) (int64, error) {
			remaining := o.PaidAmount().Cents() - o.RefundedAmount().Cents()
			if remaining <= 0 {
				return 0, ErrNothingToRefund
			}
			if amount <= 0 || amount > remaining {
				return 0, ErrInvalidAmount
			}
			return amount, nil
		},
	}
	s.logger.Info("Refund requested",
		slog.String("order_id", orderID.String()),
		slog.Int64("amount", amount),
		slog.String("reason", reason))
	return s.run(ctx, orderID, plan)
}

// run is the three step saga: open the attempt, call the processor outside any
// transaction, then fold the result into the order.
func (s *sagaImpl) run(ctx context.Context, orderID uuid.UUID, plan beginPlan) (*Outcome, error) {
	a, o, err := s.begin(ctx, orderID, plan)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, a, o)
}

func (s *sagaImpl) begin(ctx context.Context, orderID uuid.UUID, plan beginPlan) (*payment.Attempt, *order.Order, error) {
	var attempt *payment.Attempt
	var snapshot *order.Order
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderErr(err)
		}
		amount, err := plan.check(o)
		if err != nil {
			return err
		}
		latest, err := tx.PaymentAttempts().Latest(ctx, orderID, plan.kind)
		if err != nil {
			return errs.Wrap(err, "failed to load latest payment attempt")
		}

		now := s.clock.Now()
		epoch, reuse := payment.NextEpoch(latest)
		if reuse {
			if latest.Amount != amount {
				return ErrSettlementInProgress
			}
			latest.Begin(now)
			if err := tx.PaymentAttempts().Update(ctx, latest); err != nil {
				return errs.Wrap(err, "failed to reopen payment attempt")
			}
			attempt = latest
		} else {
			a, err := payment.NewAttempt(orderID, plan.kind, epoch, amount, now)
			if err != nil {
				return errs.Mark(err, ErrInvalidAmount)
			}
			a.Begin(now)
			if err := tx.PaymentAttempts().Insert(ctx, a); err != nil {
				return errs.Wrap(err, "failed to record payment attempt")
			}
			attempt = a
		}

		if plan.mutate != nil {
			expected := o.Status()
			plan.mutate(o, now)
			if err := tx.Orders().Update(ctx, o, expected); err != nil {
				return err
			}
		}
		snapshot = o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("Payment attempt started",
		slog.String("order_id", orderID.String()),
		slog.String("attempt", attempt.ID),
		slog.String("idempotency_key", attempt.IdempotencyKey),
		slog.Int("tries", int(attempt.Tries)))
	return attempt, snapshot, nil
}

// execute calls the processor for an attempt that is already in flight.
func (s *sagaImpl) execute(ctx context.Context, a *payment.Attempt, o *order.Order) (*Outcome, error) {
	req := s.requestFor(o, a)
	res, callErr := s.invoke(ctx, a, s.callFor(a.Kind), req)
	return s.finish(ctx, a, res, callErr, s.applyFor(a.Kind))
}

func (s *sagaImpl) requestFor(o *order.Order, a *payment.Attempt) Request {
	p := o.Payment()
	req := Request{
		IdempotencyKey:  a.IdempotencyKey,
		OrderID:         o.ID(),
		Amount:          a.Amount,
		Currency:        s.cfg.Currency,
		CustomerID:      p.CustomerID,
		PaymentMethodID: p.PaymentMethodID,
	}
	switch a.Kind {
	case payment.KindCapture, payment.KindVoid:
		req.ProviderRef = p.AuthorizationID
	case payment.KindRefund:
		req.ProviderRef = p.ChargeID
		if req.ProviderRef == "" {
			req.ProviderRef = p.AuthorizationID
		}
	}
	return req
}

func (s *sagaImpl) callFor(kind payment.Kind) func(context.Context, Request) (Result, error) {
	switch kind {
	case payment.KindAuthorize:
		return s.gateway.Authorize
	case payment.KindCapture:
		return s.gateway.Capture
	case payment.KindRefund:
		return s.gateway.Refund
	case payment.KindVoid:
		return s.gateway.Void
	default:
		return s.gateway.Charge
	}
}

func (s *sagaImpl) applyFor(kind payment.Kind) applyFunc {
	switch kind {
	case payment.KindAuthorize:
		return s.applyAuthorization
	case payment.KindCapture:
		return s.applyCapture
	case payment.KindRefund:
		return s.applyRefund
	case payment.KindVoid:
		return s.applyVoid
	default:
		return s.applyCharge
	}
}

// invoke retries transient failures inline with the same idempotency key.
func (s *sagaImpl) invoke(ctx context.Context, a *payment.Attempt, call func(context.Context, Request) (Result, error), req Request) (Result, error) {
	var res Result
	var err error
	for i := 0; i <= s.cfg.InlineRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return Result{}, errs.Mark(ctx.Err(), ErrGatewayUnavailable)
			case <-time.After(inlineRetryDelay * time.Duration(i)):
			}
		}
		callCtx := ctx
		cancel := func() {}
		if s.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		}
		res, err = call(callCtx, req)
		cancel()
		if err == nil || !isTransient(err) {
			return res, err
		}
		s.logger.Warn("Payment processor unavailable",
			slog.String("order_id", a.OrderID.String()),
			slog.String("idempotency_key", a.IdempotencyKey),
			slog.Int("inline_try", i+1),
			slog.String("error", err.Error()))
	}
	return res, err
}

func isTransient(err error) bool {
	return errs.Is(err, ErrGatewayUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

// finish records the processor outcome on the attempt and the order in one transaction.
func (s *sagaImpl) finish(ctx context.Context, a *payment.Attempt, res Result, callErr error, apply applyFunc) (*Outcome, error) {
	var outcome *Outcome
	var settled *order.Order
	var resultErr error
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		resultErr = nil
		o, err := tx.Orders().GetForUpdate(ctx, a.OrderID)
		if err != nil {
			return mapOrderErr(err)
		}
		expected := o.Status()
		now := s.clock.Now()

		switch {
		case callErr == nil && res.Status == ResultRequiresAction:
			a.Suspend(res.ProviderRef, res.ClientSecret, now)
		case callErr == nil:
			a.Succeed(res.ProviderRef, now)
			if err := apply(ctx, tx, o, a, res, now); err != nil {
				return err
			}
		case isTransient(callErr):
			if err := s.deferRetry(ctx, tx, o, a, callErr, now); err != nil {
				return err
			}
			resultErr = errs.Mark(callErr, ErrGatewayUnavailable)
		case errs.Is(callErr, ErrAuthorizationExpired):
			a.Fail("authorization_expired", callErr.Error(), now)
			o.MarkReauthorizationRequired(now)
			if err := shared.EnqueueOrderNotification(ctx, tx, shared.NotifyReauthorizationRequired, o.ID(), nil, now); err != nil {
				return err
			}
			resultErr = ErrReauthorizationRequired
		case errs.Is(callErr, ErrPaymentDeclined):
			code, msg := declineDetails(callErr)
			a.Fail(code, msg, now)
			if a.Kind == payment.KindCharge {
				if err := s.afterChargeDecline(ctx, tx, o, a, now); err != nil {
					return err
				}
			}
			resultErr = callErr
		default:
			a.Fail("processor_error", callErr.Error(), now)
			resultErr = errs.Wrap(callErr, "payment processor rejected the request")
		}

		if err := tx.PaymentAttempts().Update(ctx, a); err != nil {
			return errs.Wrap(err, "failed to update payment attempt")
		}
		if err := tx.Orders().Update(ctx, o, expected); err != nil {
			return err
		}
		outcome = outcomeOf(a)
		settled = o
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record payment outcome",
			slog.String("order_id", a.OrderID.String()),
			slog.String("idempotency_key", a.IdempotencyKey),
			slog.String("error", err.Error()))
		return nil, err
	}

	logArgs := []any{
		slog.String("order_id", a.OrderID.String()),
		slog.String("attempt", a.ID),
		slog.String("kind", string(a.Kind)),
		slog.String("status", string(a.Status)),
	}
	if resultErr != nil {
		s.logger.Warn("Payment attempt did not succeed", append(logArgs, slog.String("error", resultErr.Error()))...)
	} else {
		s.logger.Info("Payment attempt finished", logArgs...)
	}
	if a.Status == payment.StatusSucceeded && a.Kind != payment.KindRefund && a.Kind != payment.KindVoid {
		s.reconcileCanceled(ctx, settled)
	}
	return outcome, resultErr
}

// reconcileCanceled gives back money that landed on an order after it was
// canceled: a late hold is voided and a payment above the fee is refunded.
func (s *sagaImpl) reconcileCanceled(ctx context.Context, o *order.Order) {
	if o == nil || o.Status() != order.StatusCanceled {
		return
	}
	var err error
	p := o.Payment()
	excess := o.PaidAmount().Cents() - o.RefundedAmount().Cents() - o.CancellationFee().Cents()
	switch {
	case p.HasAuthorization() && p.AuthorizedAmount > 0:
		_, err = s.void(ctx, o.ID())
	case excess > 0:
		_, err = s.Refund(ctx, o.ID(), excess, "cancellation")
	default:
		return
	}
	if err != nil {
		// Transient failures are parked for the retry worker.
		s.logger.Error("Failed to release money of a canceled order",
			slog.String("order_id", o.ID().String()),
			slog.String("error", err.Error()))
	}
}

func (s *sagaImpl) void(ctx context.Context, orderID uuid.UUID) (*Outcome, error) {
	return s.run(ctx, orderID, beginPlan{
		kind: payment.KindVoid,
		check: func(o *order.Order) (int64, error) {
			if p := o.Payment(); !p.HasAuthorization() || p.AuthorizedAmount == 0 {
				return 0, ErrNoAuthorization
			}
			return 0, nil
		},
	})
}

// deferRetry parks background kinds for the retry worker. An authorization keeps
// its open epoch so the customer's next call replays the same key.
func (s *sagaImpl) deferRetry(ctx context.Context, tx shared.Tx, o *order.Order, a *payment.Attempt, cause error, now time.Time) error {
	if a.Kind == payment.KindAuthorize {
		a.FailureMessage = cause.Error()
		a.UpdatedAt = now
		return nil
	}
	if a.Tries >= int32(s.cfg.MaxChargeAttempts) {
		a.Fail("retries_exhausted", cause.Error(), now)
		s.logger.Error("Payment retries exhausted",
			slog.String("order_id", o.ID().String()),
			slog.String("idempotency_key", a.IdempotencyKey))
		if a.Kind == payment.KindCharge {
			return s.requireManualPayment(ctx, tx, o, now)
		}
		return nil
	}
	at := now.Add(payment.Backoff(a.Tries, s.cfg.RetryBaseDelay, s.cfg.RetryMaxDelay))
	a.Schedule(at, cause.Error(), now)
	return nil
}

// afterChargeDecline schedules the next epoch or gives up once the attempt budget is spent.
func (s *sagaImpl) afterChargeDecline(ctx context.Context, tx shared.Tx, o *order.Order, a *payment.Attempt, now time.Time) error {
	if a.Epoch >= int32(s.cfg.MaxChargeAttempts) {
		return s.requireManualPayment(ctx, tx, o, now)
	}
	next, err := payment.NewAttempt(o.ID(), payment.KindCharge, a.Epoch+1, a.Amount, now)
	if err != nil {
		return errs.Mark(err, errs.ErrFatal)
	}
	next.Schedule(now.Add(payment.Backoff(a.Epoch, s.cfg.RetryBaseDelay, s.cfg.RetryMaxDelay)), "retry after decline", now)
	if err := tx.PaymentAttempts().Insert(ctx, next); err != nil {
		return errs.Wrap(err, "failed to schedule charge retry")
	}
	return nil
}

func (s *sagaImpl) requireManualPayment(ctx context.Context, tx shared.Tx, o *order.Order, now time.Time) error {
	if o.ManualPaymentRequired() {
		return nil
	}
	o.MarkManualPaymentRequired(now)
	s.logger.Warn("Manual payment required", slog.String("order_id", o.ID().String()))
	return shared.EnqueueOrderNotification(ctx, tx, shared.NotifyManualPaymentRequired, o.ID(), nil, now)
}

func (s *sagaImpl) applyCharge(ctx context.Context, tx shared.Tx, o *order.Order, a *payment.Attempt, res Result, now time.Time) error {
	amount := settledAmount(res, a)
	o.AttachPaymentMethod("", "", s.gateway.Name())
	recorded, err := o.RecordPayment(order.MustMoney(amount), res.ChargeID, res.ReceiptURL, now)
	if err != nil {
		return errs.Mark(err, errs.ErrFatal)
	}
	if err := advanceAfterPayment(o, now); err != nil {
		return err
	}
	if !recorded {
		return nil
	}
	return shared.EnqueueOrderNotification(ctx, tx, shared.NotifyPaymentSucceeded, o.ID(), map[string]any{"amount": amount}, now)
}

func (s *sagaImpl) applyAuthorization(_ context.Context, _ shared.Tx, o *order.Order, a *payment.Attempt, res Result, now time.Time) error {
	if o.Status() == order.StatusCanceled {
		// Canceled while the call was in flight. The hold is recorded and then voided by finish.
		s.logger.Warn("Authorization succeeded for a canceled order", slog.String("order_id", o.ID().String()))
	}
	o.AttachAuthorization(s.gateway.Name(), res.ProviderRef, order.MustMoney(settledAmount(res, a)), now)
	if o.ServiceType() == order.ServiceCleaning && o.Status() == order.StatusPending {
		return o.Transition(order.StatusAuthorized, now)
	}
	return nil
}

func (s *sagaImpl) applyCapture(ctx context.Context, tx shared.Tx, o *order.Order, a *payment.Attempt, res Result, now time.Time) error {
	captured := settledAmount(res, a)
	if released := o.Payment().AuthorizedAmount - captured; released > 0 {
		a.ReleasedAmount = released
	}
	recorded, err := o.RecordPayment(order.MustMoney(captured), res.ChargeID, res.ReceiptURL, now)
	if err != nil {
		return errs.Mark(err, errs.ErrFatal)
	}
	o.ReleaseAuthorization(now)
	if err := advanceAfterPayment(o, now); err != nil {
		return err
	}
	if !recorded {
		return nil
	}
	return shared.EnqueueOrderNotification(ctx, tx, shared.NotifyPaymentSucceeded, o.ID(), map[string]any{"amount": captured}, now)
}

func (s *sagaImpl) applyRefund(ctx context.Context, tx shared.Tx, o *order.Order, a *payment.Attempt, _ Result, now time.Time) error {
	attempts, err := tx.PaymentAttempts().ListByOrder(ctx, o.ID())
	if err != nil {
		return errs.Wrap(err, "failed to load refund attempts")
	}
	var cumulative int64
	for _, prev := range attempts {
		if prev.Kind == payment.KindRefund && prev.Status == payment.StatusSucceeded && prev.ID != a.ID {
			cumulative += prev.Amount
		}
	}
	cumulative += a.Amount
	return recordRefundTotal(o, cumulative, now)
}

func (s *sagaImpl) applyVoid(_ context.Context, _ shared.Tx, o *order.Order, _ *payment.Attempt, _ Result, now time.Time) error {
	o.ReleaseAuthorization(now)
	return nil
}

// recordRefundTotal applies a cumulative refunded total and closes the order when
// the whole payment came back and the order may still take the refund branch.
func recordRefundTotal(o *order.Order, cumulative int64, now time.Time) error {
	if _, err := o.RecordRefund(order.MustMoney(cumulative), now); err != nil {
		return errs.Mark(err, errs.ErrFatal)
	}
	if o.FullyRefunded() && o.Decide(order.StatusRefunded).Allowed {
		return o.Transition(order.StatusRefunded, now)
	}
	return nil
}

// advanceAfterPayment moves an order waiting on money into paid_processing.
func advanceAfterPayment(o *order.Order, now time.Time) error {
	if o.ServiceType() == order.ServiceCleaning && o.Status() == order.StatusPending {
		if err := o.Transition(order.StatusAwaitingPayment, now); err != nil {
			return err
		}
	}
	switch o.Status() {
	case order.StatusAwaitingPayment, order.StatusAuthorized:
		return o.Transition(order.StatusPaidProcessing, now)
	}
	return nil
}

func settledAmount(res Result, a *payment.Attempt) int64 {
	if res.Amount > 0 {
		return res.Amount
	}
	return a.Amount
}

func declineDetails(err error) (string, string) {
	var de *DeclineError
	if errs.As(err, &de) {
		return de.Code, de.Message
	}
	return "declined", err.Error()
}

func outcomeOf(a *payment.Attempt) *Outcome {
	out := &Outcome{
		AttemptID:      a.ID,
		Kind:           a.Kind,
		Status:         a.Status,
		Amount:         a.Amount,
		ReleasedAmount: a.ReleasedAmount,
		ClientSecret:   a.ClientSecret,
		NextAttemptAt:  a.NextAttemptAt,
	}
	if a.ContinuationRef != nil {
		out.ContinuationRef = *a.ContinuationRef
	}
	return out
}

func mapOrderErr(err error) error {
	if infra.IsKind(err, infra.KindNotFound) {
		return ErrOrderNotFound
	}
	return errs.Wrap(err, "failed to load order")
}

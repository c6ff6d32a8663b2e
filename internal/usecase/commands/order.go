package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/domain/order"
	"freshfold/internal/domain/policy"
	"freshfold/internal/domain/pricing"
	reqdto "freshfold/internal/handler/dto/request"
	"freshfold/internal/infra"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/settlement"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrSlotUnavailable      = errs.Class("slot is no longer available", errs.ErrConflict)
	ErrMissingContact       = errs.Class("contact details are missing or invalid", errs.ErrValidation)
	ErrInvalidAddress       = errs.Class("invalid address", errs.ErrValidation)
	ErrInvalidServiceParams = errs.Class("invalid service params", errs.ErrValidation)
	ErrInvalidSlot          = errs.Class("invalid slot", errs.ErrValidation)
	ErrInvalidStatus        = errs.Class("invalid order status", errs.ErrValidation)
	ErrCancelReasonRequired = errs.Class("cancellation reason is required", errs.ErrValidation)
	ErrOrderNotFound        = errs.Class("order not found", errs.ErrNotFound)
	ErrStaffOnly            = errs.Class("operator role required", errs.ErrForbidden)
	ErrTransitionDenied     = errs.Class("transition denied", errs.ErrConflict)
	ErrNotReschedulable     = errs.Class("order can no longer be rescheduled", errs.ErrConflict)
	ErrRepricingNotAllowed  = errs.Class("order can no longer be repriced", errs.ErrConflict)
	ErrDedicatedEndpoint    = errs.Class("use the cancel or refund operation for this status", errs.ErrValidation)
)

const (
	createOrderEndpoint = "POST /api/orders"
	idempotencyTTL      = 24 * time.Hour
	guestScope          = "guest"
	unitsPerOrder       = 1
)

type CreateOrderResult struct {
	OrderID    uuid.UUID
	Status     order.Status
	Pricing    order.Pricing
	IsReplayed bool
	// Payment is the authorization started after commit, nil when none was attempted.
	Payment    *settlement.Outcome
	PaymentErr error
}

//go:generate mockgen -source=order.go -destination=../../../tests/mock/commands/mock_order.go -package=commandsmock
type OrderCommands interface {
	Create(ctx context.Context, actor shared.Actor, req reqdto.CreateOrderRequest, idempotencyKey uuid.UUID) (*CreateOrderResult, error)
	Cancel(ctx context.Context, actor shared.Actor, orderID uuid.UUID, reason string) (*order.Order, error)
	Reschedule(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req reqdto.RescheduleRequest) (*order.Order, error)
	SetDeliverySlot(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req reqdto.DeliverySlotRequest) (*order.Order, error)
	// Advance is the operator's manual status change.
	Advance(ctx context.Context, actor shared.Actor, orderID uuid.UUID, status string) (*order.Order, error)

	Pay(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*settlement.Outcome, error)
	Authorize(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req reqdto.AuthorizePaymentRequest) (*settlement.Outcome, error)
	ConfirmPayment(ctx context.Context, actor shared.Actor, orderID uuid.UUID, continuationRef string) (*settlement.Outcome, error)
	Capture(ctx context.Context, actor shared.Actor, orderID uuid.UUID, amount *int64) (*settlement.Outcome, error)
	Refund(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req reqdto.RefundRequest) (*settlement.Outcome, error)
}

// PaymentModes picks the settlement mode per service type.
type PaymentModes struct {
	Laundry  order.PaymentMode
	Cleaning order.PaymentMode
}

func (m PaymentModes) For(st order.ServiceType) order.PaymentMode {
	mode := m.Cleaning
	if st == order.ServiceLaundry {
		mode = m.Laundry
	}
	if !mode.IsValid() {
		return order.DefaultPaymentMode(st)
	}
	return mode
}

type orderCommandsImpl struct {
	uow    shared.UnitOfWork
	saga   settlement.Saga
	engine *pricing.Engine
	modes  PaymentModes
	clock  clock.Clock
	logger *slog.Logger
}

func NewOrderCommands(
	uow shared.UnitOfWork,
	saga settlement.Saga,
	engine *pricing.Engine,
	modes PaymentModes,
	clock clock.Clock,
	logger *slog.Logger,
) OrderCommands {
	return &orderCommandsImpl{
		uow:    uow,
		saga:   saga,
		engine: engine,
		modes:  modes,
		clock:  clock,
		logger: logger,
	}
}

// Create books an order. Quote, policy snapshot, capacity reservation, insert and
// the idempotency record all commit together.
func (c *orderCommandsImpl) Create(
	ctx context.Context,
	actor shared.Actor,
	req reqdto.CreateOrderRequest,
	idempotencyKey uuid.UUID,
) (*CreateOrderResult, error) {
	if idempotencyKey == uuid.Nil {
		return nil, errs.ErrIdempotencyKeyRequired
	}
	data, err := req.ToDomain(actor.UserID)
	if err != nil {
		return nil, classifyInput(err)
	}

	now := c.clock.Now()
	rec := shared.IdempotencyRecord{
		Key:         idempotencyKey,
		Scope:       idempotencyScope(actor),
		Endpoint:    createOrderEndpoint,
		Status:      shared.IdempotencyProcessing,
		RequestHash: requestHash(req),
		ExpiresAt:   now.Add(idempotencyTTL),
	}
	mode := c.modes.For(data.ServiceType)

	var (
		created  *order.Order
		replayed *uuid.UUID
	)
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		created, replayed = nil, nil

		id, err := claimIdempotency(ctx, tx, rec, now)
		if err != nil {
			return err
		}
		if id != nil {
			replayed = id
			return nil
		}

		o, err := c.book(ctx, tx, data, mode, now)
		if err != nil {
			return err
		}
		if err := tx.Idempotency().Complete(ctx, rec.Key, rec.Scope, idHash(o.ID()), o.ID()); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed != nil {
		o, err := c.uow.CommandReads().OrderByID(ctx, *replayed)
		if err != nil {
			return nil, errs.Wrap(err, "failed to load replayed order")
		}
		c.logger.InfoContext(ctx, "Order creation replayed",
			slog.String("order_id", o.ID().String()),
			slog.String("idempotency_key", idempotencyKey.String()))
		return &CreateOrderResult{OrderID: o.ID(), Status: o.Status(), Pricing: o.Pricing(), IsReplayed: true}, nil
	}

	c.logger.InfoContext(ctx, "Order created",
		slog.String("order_id", created.ID().String()),
		slog.String("service_type", created.ServiceType().String()),
		slog.String("payment_mode", string(created.PaymentMode())),
		slog.Int64("total", created.Pricing().Total().Cents()))

	result := &CreateOrderResult{OrderID: created.ID(), Status: created.Status(), Pricing: created.Pricing()}
	if created.PaymentMode() == order.PaymentModePreauth && data.PaymentMethodID != "" {
		out, err := c.saga.Authorize(ctx, created.ID(), settlement.AuthorizeInput{
			CustomerID:      data.CustomerID,
			PaymentMethodID: data.PaymentMethodID,
		})
		// The booking stands even when the hold fails. The customer retries
		// through the authorize endpoint.
		result.Payment, result.PaymentErr = out, err
		if err != nil {
			c.logger.WarnContext(ctx, "Authorization after booking failed",
				slog.String("order_id", created.ID().String()),
				slog.String("error", err.Error()))
		}
		if latest, err := c.uow.CommandReads().OrderByID(ctx, created.ID()); err == nil {
			result.Status = latest.Status()
		}
	}
	return result, nil
}

func (c *orderCommandsImpl) book(ctx context.Context, tx shared.Tx, data reqdto.CreateOrderData, mode order.PaymentMode, now time.Time) (*order.Order, error) {
	quote, err := c.engine.Quote(data.Params)
	if err != nil {
		return nil, classifyInput(err)
	}
	prices, err := order.NewPricing(quote.Subtotal, quote.Tax, quote.DeliveryFee, quote.Total)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrFatal)
	}

	snapshot, err := activePolicy(ctx, tx, data.ServiceType)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		c.logger.WarnContext(ctx, "No active cancellation policy, booking without snapshot",
			slog.String("service_type", data.ServiceType.String()))
	}

	if _, err := tx.Capacity().Reserve(ctx, data.Slot.PartnerID, data.ServiceType.String(), data.Slot.Window, unitsPerOrder); err != nil {
		return nil, mapReserveErr(err)
	}

	var paymentMethod string
	if mode == order.PaymentModeDeferred {
		paymentMethod = data.PaymentMethodID
	}
	o, err := order.NewOrder(order.NewOrderParams{
		ServiceType:   data.ServiceType,
		Customer:      data.Customer,
		Slot:          data.Slot,
		DeliverySlot:  data.DeliverySlot,
		Address:       data.Address,
		ServiceParams: data.RawParams,
		Pricing:       prices,
		Policy:        snapshot,
		PaymentMode:   mode,
		PaymentMethod: paymentMethod,
		CustomerID:    data.CustomerID,
	}, now)
	if err != nil {
		return nil, classifyInput(err)
	}
	if err := tx.Orders().Insert(ctx, o); err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if err := shared.EnqueueOrderNotification(ctx, tx, shared.NotifyOrderCreated, o.ID(), map[string]any{
		"service_type": o.ServiceType().String(),
		"total":        o.Pricing().Total().Cents(),
	}, now); err != nil {
		return nil, err
	}
	return o, nil
}

// claimIdempotency returns the order id to replay, or nil when this request owns the key.
func claimIdempotency(ctx context.Context, tx shared.Tx, rec shared.IdempotencyRecord, now time.Time) (*uuid.UUID, error) {
	inserted, err := tx.Idempotency().TryInsert(ctx, rec)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrIdempotencyCheckFailed)
	}
	if inserted {
		return nil, nil
	}

	existing, err := tx.Idempotency().Get(ctx, rec.Key, rec.Scope)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrIdempotencyCheckFailed)
	}
	if existing.ExpiresAt.Before(now) {
		reclaimed, err := tx.Idempotency().ReclaimExpired(ctx, rec, now)
		if err != nil {
			return nil, errs.Mark(err, errs.ErrIdempotencyCheckFailed)
		}
		if reclaimed {
			return nil, nil
		}
	}

	if existing.RequestHash != rec.RequestHash {
		return nil, errs.ErrIdempotencyMismatch
	}
	switch existing.Status {
	case shared.IdempotencyCompleted:
		if existing.ResultOrderID == nil {
			return nil, errs.New("completed request missing result order ID")
		}
		return existing.ResultOrderID, nil
	case shared.IdempotencyProcessing:
		return nil, errs.ErrIdempotencyInProgress
	default:
		return nil, errs.Newf("invalid idempotency key status %q", existing.Status)
	}
}

func activePolicy(ctx context.Context, tx shared.Tx, st order.ServiceType) (*order.PolicyRef, error) {
	p, err := tx.Policies().Active(ctx, st.String())
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "failed to load active policy")
	}
	ref, err := order.NewPolicyRef(p.ID(), p.Version())
	if err != nil {
		return nil, errs.Mark(err, errs.ErrFatal)
	}
	return &ref, nil
}

func (c *orderCommandsImpl) Cancel(ctx context.Context, actor shared.Actor, orderID uuid.UUID, reason string) (*order.Order, error) {
	var (
		canceled *order.Order
		fee      int64
	)
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := loadForUpdate(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}
		now := c.clock.Now()
		from := o.Status()

		fee, err = cancellationFee(ctx, tx, o, now)
		if err != nil {
			return err
		}
		if err := o.Cancel(reason, order.MustMoney(fee), now); err != nil {
			return mapOrderErr(err)
		}
		if err := tx.Capacity().Release(ctx, o.Slot().Token()); err != nil {
			return errs.Wrap(err, "failed to release slot")
		}
		if err := tx.Orders().Update(ctx, o, from); err != nil {
			return err
		}
		if err := shared.EnqueueOrderNotification(ctx, tx, shared.NotifyOrderCanceled, o.ID(), map[string]any{
			"reason": o.CancelReason(),
			"fee":    fee,
		}, now); err != nil {
			return err
		}
		canceled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Order canceled",
		slog.String("order_id", orderID.String()),
		slog.Int64("fee", fee))

	if _, err := c.saga.SettleCancellation(ctx, orderID, fee); err != nil {
		// The cancellation stands. Scheduled attempts are picked up by the retry worker.
		c.logger.ErrorContext(ctx, "Cancellation settlement failed",
			slog.String("order_id", orderID.String()),
			slog.Int64("fee", fee),
			slog.String("error", err.Error()))
	}
	return canceled, nil
}

// cancellationFee prices the cancellation with the policy version frozen on the order.
func cancellationFee(ctx context.Context, tx shared.Tx, o *order.Order, now time.Time) (int64, error) {
	ref := o.Policy()
	if ref == nil {
		return 0, nil
	}
	p, err := tx.Policies().GetVersion(ctx, ref.ID, ref.Version)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return 0, errs.Mark(errs.Wrapf(err, "policy %s v%d referenced by order %s", ref.ID, ref.Version, o.ID()), errs.ErrFatal)
		}
		return 0, errs.Wrap(err, "failed to load policy snapshot")
	}
	return snapshotFee(p, o, now), nil
}

func snapshotFee(p *policy.CancellationPolicy, o *order.Order, now time.Time) int64 {
	return p.Snapshot().CancellationFee(o.Pricing().Total().Cents(), o.Slot().Window.Start(), now)
}

func (c *orderCommandsImpl) Reschedule(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req reqdto.RescheduleRequest) (*order.Order, error) {
	slot, err := req.ToDomain()
	if err != nil {
		return nil, classifyInput(err)
	}

	var updated *order.Order
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := loadForUpdate(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}
		now := c.clock.Now()
		from := o.Status()
		old := o.Slot()

		if err := o.Reschedule(slot, now); err != nil {
			return mapOrderErr(err)
		}
		if err := tx.Capacity().Release(ctx, old.Token()); err != nil {
			return errs.Wrap(err, "failed to release slot")
		}
		// A failed reserve rolls the release back with the transaction.
		if _, err := tx.Capacity().Reserve(ctx, slot.PartnerID, o.ServiceType().String(), slot.Window, unitsPerOrder); err != nil {
			return mapReserveErr(err)
		}
		if err := tx.Orders().Update(ctx, o, from); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "Order rescheduled",
		slog.String("order_id", orderID.String()),
		slog.Time("slot_start", slot.Window.Start()))
	return updated, nil
}

func (c *orderCommandsImpl) SetDeliverySlot(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req reqdto.DeliverySlotRequest) (*order.Order, error) {
	window, err := req.ToDomain()
	if err != nil {
		return nil, classifyInput(err)
	}

	var updated *order.Order
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := loadForUpdate(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}
		from := o.Status()
		if err := o.SetDeliverySlot(window, c.clock.Now()); err != nil {
			return mapOrderErr(err)
		}
		if err := tx.Orders().Update(ctx, o, from); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *orderCommandsImpl) Advance(ctx context.Context, actor shared.Actor, orderID uuid.UUID, status string) (*order.Order, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}
	to, err := order.NewStatus(status)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidStatus)
	}
	if to == order.StatusCanceled || to == order.StatusRefunded {
		return nil, ErrDedicatedEndpoint
	}

	var updated *order.Order
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := loadForUpdate(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}
		updated, err = transitionOrder(ctx, tx, o, to, c.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Order status advanced",
		slog.String("order_id", orderID.String()),
		slog.String("status", to.String()),
		slog.String("actor", actor.UserID.String()))
	triggerPayment(ctx, c.saga, c.logger, updated)
	return updated, nil
}

// transitionOrder moves a locked order one step and persists it.
func transitionOrder(ctx context.Context, tx shared.Tx, o *order.Order, to order.Status, now time.Time) (*order.Order, error) {
	from := o.Status()
	if err := o.Transition(to, now); err != nil {
		return nil, mapOrderErr(err)
	}
	if err := tx.Orders().Update(ctx, o, from); err != nil {
		return nil, err
	}
	if err := shared.EnqueueOrderNotification(ctx, tx, shared.NotifyStatusChanged, o.ID(), map[string]any{
		"from": from.String(),
		"to":   to.String(),
	}, now); err != nil {
		return nil, err
	}
	return o, nil
}

// triggerPayment settles a LAUNDRY order that just reached awaiting_payment:
// a deferred charge, or the capture of the hold taken at booking.
func triggerPayment(ctx context.Context, saga settlement.Saga, logger *slog.Logger, o *order.Order) {
	if o == nil || o.ServiceType() != order.ServiceLaundry || o.Status() != order.StatusAwaitingPayment || o.PaidAt() != nil {
		return
	}
	var err error
	switch {
	case o.PaymentMode() == order.PaymentModePreauth && o.Payment().HasAuthorization():
		_, err = saga.Capture(ctx, o.ID(), nil)
	case o.Payment().HasPaymentMethod():
		_, err = saga.Charge(ctx, o.ID())
	default:
		logger.WarnContext(ctx, "Order awaits payment without a payment method",
			slog.String("order_id", o.ID().String()))
		return
	}
	if err != nil {
		logger.WarnContext(ctx, "Automatic settlement did not complete",
			slog.String("order_id", o.ID().String()),
			slog.String("error", err.Error()))
	}
}

func (c *orderCommandsImpl) Pay(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*settlement.Outcome, error) {
	if err := c.checkAccess(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return c.saga.Charge(ctx, orderID)
}

func (c *orderCommandsImpl) Authorize(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req reqdto.AuthorizePaymentRequest) (*settlement.Outcome, error) {
	if err := c.checkAccess(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return c.saga.Authorize(ctx, orderID, settlement.AuthorizeInput{
		CustomerID:      req.CustomerID,
		PaymentMethodID: req.PaymentMethodID,
	})
}

func (c *orderCommandsImpl) ConfirmPayment(ctx context.Context, actor shared.Actor, orderID uuid.UUID, continuationRef string) (*settlement.Outcome, error) {
	if err := c.checkAccess(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return c.saga.Confirm(ctx, orderID, continuationRef)
}

func (c *orderCommandsImpl) Capture(ctx context.Context, actor shared.Actor, orderID uuid.UUID, amount *int64) (*settlement.Outcome, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}
	return c.saga.Capture(ctx, orderID, amount)
}

func (c *orderCommandsImpl) Refund(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req reqdto.RefundRequest) (*settlement.Outcome, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}
	return c.saga.Refund(ctx, orderID, req.Amount, req.Reason)
}

func (c *orderCommandsImpl) checkAccess(ctx context.Context, actor shared.Actor, orderID uuid.UUID) error {
	o, err := c.uow.CommandReads().OrderByID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return ErrOrderNotFound
		}
		return errs.Wrap(err, "failed to load order")
	}
	if !canAccess(actor, o) {
		return ErrOrderNotFound
	}
	return nil
}

func loadForUpdate(ctx context.Context, tx shared.Tx, actor shared.Actor, orderID uuid.UUID) (*order.Order, error) {
	o, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errs.Wrap(err, "failed to load order")
	}
	if !canAccess(actor, o) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// canAccess allows staff, the booking customer, and anyone holding the id of a
// guest order. Denials are reported as not found.
func canAccess(actor shared.Actor, o *order.Order) bool {
	owner := o.Customer().UserID()
	return owner == nil || actor.IsStaff() || actor.Owns(owner)
}

func idempotencyScope(actor shared.Actor) string {
	if actor.UserID == nil {
		return guestScope
	}
	return actor.UserID.String()
}

func requestHash(req reqdto.CreateOrderRequest) string {
	data, _ := json.Marshal(req)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func idHash(id uuid.UUID) string {
	hash := sha256.Sum256([]byte(id.String()))
	return hex.EncodeToString(hash[:])
}

// classifyInput marks domain validation errors with the sentinel the HTTP edge
// reports. The domain error stays in the chain for the detail code.
func classifyInput(err error) error {
	switch {
	case errs.Is(err, order.ErrMissingContact),
		errs.Is(err, order.ErrAmbiguousContact),
		errs.Is(err, order.ErrMissingGuestPhone),
		errs.Is(err, order.ErrMissingGuestName),
		errs.Is(err, order.ErrInvalidPhone),
		errs.Is(err, order.ErrInvalidEmail):
		return errs.Mark(err, ErrMissingContact)
	case errs.Is(err, order.ErrInvalidAddress):
		return errs.Mark(err, ErrInvalidAddress)
	case errs.Is(err, pricing.ErrInvalidServiceParams), errs.Is(err, order.ErrInvalidServiceType):
		return errs.Mark(err, ErrInvalidServiceParams)
	case errs.Is(err, capacity.ErrInvalidWindow),
		errs.Is(err, order.ErrInvalidSlotPartner),
		errs.Is(err, order.ErrDeliverySlotTooEarly),
		errs.Is(err, order.ErrDeliverySlotNotUsed),
		errs.Is(err, order.ErrSameSlot):
		return errs.Mark(err, ErrInvalidSlot)
	default:
		return err
	}
}

func mapReserveErr(err error) error {
	if infra.IsKind(err, infra.KindCapacityExceeded) || infra.IsKind(err, infra.KindNotFound) {
		return errs.Mark(err, ErrSlotUnavailable)
	}
	return errs.Wrap(err, "failed to reserve slot")
}

// mapOrderErr keeps the *order.TransitionError in the chain so the reason code survives.
func mapOrderErr(err error) error {
	var te *order.TransitionError
	switch {
	case errs.As(err, &te):
		return errs.Mark(err, ErrTransitionDenied)
	case errs.Is(err, order.ErrCancelReasonRequired):
		return errs.Mark(err, ErrCancelReasonRequired)
	case errs.Is(err, order.ErrNotReschedulable):
		return errs.Mark(err, ErrNotReschedulable)
	case errs.Is(err, order.ErrRepricingNotAllowed):
		return errs.Mark(err, ErrRepricingNotAllowed)
	default:
		return classifyInput(err)
	}
}

package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"freshfold/internal/domain/capacity"

	"github.com/google/uuid"
)

var (
	ErrTransitionDenied     = errors.New("transition denied")
	ErrCancelReasonRequired = errors.New("cancellation reason is required")
	ErrPaymentExceedsTotal  = errors.New("payment exceeds order total")
	ErrRefundExceedsPaid    = errors.New("refund exceeds paid amount")
	ErrInvariantViolation   = errors.New("order invariant violated")
	ErrNotReschedulable     = errors.New("order can no longer be rescheduled")
	ErrRepricingNotAllowed  = errors.New("order can no longer be repriced")
	ErrDeliverySlotNotUsed  = errors.New("delivery slots only apply to laundry orders")
	ErrDeliverySlotTooEarly = errors.New("delivery slot must start after the pickup slot")
	ErrSameSlot             = errors.New("new slot equals the current slot")
	ErrFeeExceedsTotal      = errors.New("cancellation fee exceeds order total")
)

// TransitionError carries the typed denial reason of a rejected transition.
type TransitionError struct {
	From   Status
	To     Status
	Reason Reason
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s denied: %s", e.From, e.To, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrTransitionDenied
}

type Order struct {
	id             uuid.UUID
	serviceType    ServiceType
	customer       CustomerRef
	status         Status
	slot           SlotRef
	deliverySlot   *capacity.TimeWindow
	address        Address
	serviceParams  json.RawMessage
	pricing        Pricing
	paidAmount     Money
	refundedAmount Money
	policy         *PolicyRef
	payment        PaymentRef
	paymentMode    PaymentMode
	cancelReason   string

	// cancellationFee is what a canceled order may still be charged.
	cancellationFee Money

	manualPaymentRequired   bool
	reauthorizationRequired bool

	createdAt  time.Time
	updatedAt  time.Time
	paidAt     *time.Time
	refundedAt *time.Time
	canceledAt *time.Time

	version int32
}

type NewOrderParams struct {
	ServiceType   ServiceType
	Customer      CustomerRef
	Slot          SlotRef
	DeliverySlot  *capacity.TimeWindow
	Address       Address
	ServiceParams json.RawMessage
	Pricing       Pricing
	Policy        *PolicyRef
	PaymentMode   PaymentMode
	PaymentMethod string
	CustomerID    string
}

func NewOrder(p NewOrderParams, now time.Time) (*Order, error) {
	if !p.ServiceType.IsValid() {
		return nil, ErrInvalidServiceType
	}
	if p.Customer.UserID() == nil && p.Customer.Guest() == nil {
		return nil, ErrMissingContact
	}
	if p.Slot.PartnerID == uuid.Nil || p.Slot.Window.IsZero() {
		return nil, ErrInvalidSlotPartner
	}
	mode := p.PaymentMode
	if !mode.IsValid() {
		mode = DefaultPaymentMode(p.ServiceType)
	}

	o := &Order{
		id:            uuid.New(),
		serviceType:   p.ServiceType,
		customer:      p.Customer,
		status:        InitialStatus(p.ServiceType),
		slot:          p.Slot,
		address:       p.Address,
		serviceParams: p.ServiceParams,
		pricing:       p.Pricing,
		policy:        p.Policy,
		paymentMode:   mode,
		payment: PaymentRef{
			PaymentMethodID: p.PaymentMethod,
			CustomerID:      p.CustomerID,
		},
		createdAt: now,
		updatedAt: now,
	}
	if p.DeliverySlot != nil {
		if err := o.SetDeliverySlot(*p.DeliverySlot, now); err != nil {
			return nil, err
		}
	}
	return o, nil
}

type ReconstructParams struct {
	ID                      uuid.UUID
	ServiceType             ServiceType
	Customer                CustomerRef
	Status                  Status
	Slot                    SlotRef
	DeliverySlot            *capacity.TimeWindow
	Address                 Address
	ServiceParams           json.RawMessage
	Pricing                 Pricing
	PaidAmount              Money
	RefundedAmount          Money
	Policy                  *PolicyRef
	Payment                 PaymentRef
	PaymentMode             PaymentMode
	CancelReason            string
	CancellationFee         Money
	ManualPaymentRequired   bool
	ReauthorizationRequired bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
	PaidAt                  *time.Time
	RefundedAt              *time.Time
	CanceledAt              *time.Time
	Version                 int32
}

func ReconstructOrder(p ReconstructParams) *Order {
	return &Order{
		id:                      p.ID,
		serviceType:             p.ServiceType,
		customer:                p.Customer,
		status:                  p.Status,
		slot:                    p.Slot,
		deliverySlot:            p.DeliverySlot,
		address:                 p.Address,
		serviceParams:           p.ServiceParams,
		pricing:                 p.Pricing,
		paidAmount:              p.PaidAmount,
		refundedAmount:          p.RefundedAmount,
		policy:                  p.Policy,
		payment:                 p.Payment,
		paymentMode:             p.PaymentMode,
		cancelReason:            p.CancelReason,
		cancellationFee:         p.CancellationFee,
		manualPaymentRequired:   p.ManualPaymentRequired,
		reauthorizationRequired: p.ReauthorizationRequired,
		createdAt:               p.CreatedAt,
		updatedAt:               p.UpdatedAt,
		paidAt:                  p.PaidAt,
		refundedAt:              p.RefundedAt,
		canceledAt:              p.CanceledAt,
		version:                 p.Version,
	}
}

func (o *Order) TransitionContext() TransitionContext {
	return TransitionContext{
		PaidAt:          o.paidAt,
		HasDeliverySlot: o.deliverySlot != nil,
	}
}

// Decide evaluates a transition against the persisted state without mutating it.
func (o *Order) Decide(to Status) Decision {
	return Decide(o.status, to, o.serviceType, o.TransitionContext())
}

// Transition moves the order to the target status when the state machine allows it.
func (o *Order) Transition(to Status, now time.Time) error {
	d := o.Decide(to)
	if !d.Allowed {
		return &TransitionError{From: o.status, To: to, Reason: d.Reason}
	}
	o.status = to
	switch to {
	case StatusCanceled:
		o.canceledAt = setOnce(o.canceledAt, o.clampToCreation(now))
	case StatusRefunded:
		o.refundedAt = setOnce(o.refundedAt, o.clampToCreation(now))
	}
	o.touch(now)
	return nil
}

// Cancel closes the order. fee is the amount the frozen policy still allows to be
// collected; every later charge or capture is bounded by it.
func (o *Order) Cancel(reason string, fee Money, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrCancelReasonRequired
	}
	if o.pricing.Total().LessThan(fee) {
		return ErrFeeExceedsTotal
	}
	if err := o.Transition(StatusCanceled, now); err != nil {
		return err
	}
	o.cancelReason = reason
	o.cancellationFee = fee
	return nil
}

// CollectableAmount is what may still be taken from the customer: the unpaid
// total while the order is live, the unpaid part of the fee once canceled.
func (o *Order) CollectableAmount() int64 {
	limit := o.pricing.Total()
	if o.status == StatusCanceled {
		limit = o.cancellationFee
	}
	if rest := limit.Cents() - o.paidAmount.Cents(); rest > 0 {
		return rest
	}
	return 0
}

// RecordPayment stores the settled amount. paid_at is written at most once and
// a repeated confirmation is a no-op that reports false.
func (o *Order) RecordPayment(amount Money, chargeID, receiptURL string, at time.Time) (bool, error) {
	if o.paidAt != nil {
		return false, nil
	}
	if o.pricing.Total().LessThan(amount) {
		return false, ErrPaymentExceedsTotal
	}
	paidAt := o.clampToCreation(at)
	o.paidAt = &paidAt
	o.paidAmount = amount
	if chargeID != "" {
		o.payment.ChargeID = chargeID
	}
	if receiptURL != "" {
		o.payment.ReceiptURL = receiptURL
	}
	o.manualPaymentRequired = false
	o.touch(at)
	return true, nil
}

// RecordRefund applies a cumulative refunded total. Totals lower than or equal to
// what is already recorded are ignored, so out-of-order deliveries never shrink it.
func (o *Order) RecordRefund(cumulative Money, at time.Time) (bool, error) {
	if o.paidAmount.LessThan(cumulative) {
		return false, ErrRefundExceedsPaid
	}
	if !o.refundedAmount.LessThan(cumulative) {
		return false, nil
	}
	o.refundedAmount = cumulative
	o.refundedAt = setOnce(o.refundedAt, o.clampToCreation(at))
	o.touch(at)
	return true, nil
}

func (o *Order) FullyRefunded() bool {
	return !o.paidAmount.IsZero() && o.refundedAmount == o.paidAmount
}

// ApplyFinalAmount replaces the quote with the facility-measured pricing before any money moved.
func (o *Order) ApplyFinalAmount(p Pricing, now time.Time) error {
	if o.paidAt != nil || o.status.IsFinal() {
		return ErrRepricingNotAllowed
	}
	switch o.status {
	case StatusPending, StatusPendingPickup, StatusAtFacility, StatusAwaitingPayment, StatusAuthorized:
	default:
		return ErrRepricingNotAllowed
	}
	o.pricing = p
	o.touch(now)
	return nil
}

func (o *Order) CanReschedule() bool {
	return o.Decide(StatusCanceled).Allowed
}

func (o *Order) Reschedule(slot SlotRef, now time.Time) error {
	if !o.CanReschedule() {
		return ErrNotReschedulable
	}
	if slot.PartnerID == o.slot.PartnerID && slot.Window.Equal(o.slot.Window) {
		return ErrSameSlot
	}
	o.slot = slot
	if o.deliverySlot != nil && !o.deliverySlot.Start().After(slot.Window.Start()) {
		o.deliverySlot = nil
	}
	o.touch(now)
	return nil
}

func (o *Order) SetDeliverySlot(w capacity.TimeWindow, now time.Time) error {
	if o.serviceType != ServiceLaundry {
		return ErrDeliverySlotNotUsed
	}
	if o.status.IsFinal() || o.status == StatusOutForDelivery {
		return &TransitionError{From: o.status, To: o.status, Reason: ReasonTerminalState}
	}
	if !w.Start().After(o.slot.Window.Start()) {
		return ErrDeliverySlotTooEarly
	}
	o.deliverySlot = &w
	o.touch(now)
	return nil
}

func (o *Order) AttachPaymentMethod(customerID, paymentMethodID, provider string) {
	if customerID != "" {
		o.payment.CustomerID = customerID
	}
	if paymentMethodID != "" {
		o.payment.PaymentMethodID = paymentMethodID
	}
	if provider != "" {
		o.payment.Provider = provider
	}
}

func (o *Order) AttachAuthorization(provider, authorizationID string, amount Money, now time.Time) {
	o.payment.Provider = provider
	o.payment.AuthorizationID = authorizationID
	o.payment.AuthorizedAmount = amount.Cents()
	o.reauthorizationRequired = false
	o.touch(now)
}

// ReleaseAuthorization clears the hold after a void or a capture.
func (o *Order) ReleaseAuthorization(now time.Time) {
	o.payment.AuthorizedAmount = 0
	o.touch(now)
}

func (o *Order) MarkManualPaymentRequired(now time.Time) {
	o.manualPaymentRequired = true
	o.touch(now)
}

func (o *Order) MarkReauthorizationRequired(now time.Time) {
	o.reauthorizationRequired = true
	o.payment.AuthorizationID = ""
	o.payment.AuthorizedAmount = 0
	o.touch(now)
}

// CheckInvariants guards every write. A violation means a bug, never user error.
func (o *Order) CheckInvariants() error {
	total := o.pricing.Total()
	if total.LessThan(o.paidAmount) {
		return fmt.Errorf("%w: paid %d exceeds total %d", ErrInvariantViolation, o.paidAmount.Cents(), total.Cents())
	}
	if o.paidAmount.LessThan(o.refundedAmount) {
		return fmt.Errorf("%w: refunded %d exceeds paid %d", ErrInvariantViolation, o.refundedAmount.Cents(), o.paidAmount.Cents())
	}
	if total.LessThan(o.cancellationFee) {
		return fmt.Errorf("%w: cancellation fee %d exceeds total %d", ErrInvariantViolation, o.cancellationFee.Cents(), total.Cents())
	}
	if (o.customer.UserID() == nil) == (o.customer.Guest() == nil) {
		return fmt.Errorf("%w: customer reference must have exactly one identity", ErrInvariantViolation)
	}
	for _, ts := range []*time.Time{o.paidAt, o.refundedAt, o.canceledAt} {
		if ts != nil && ts.Before(o.createdAt) {
			return fmt.Errorf("%w: timestamp before creation", ErrInvariantViolation)
		}
	}
	return nil
}

// IncrementVersion is called by the repository after a successful guarded write.
func (o *Order) IncrementVersion() {
	o.version++
}

func (o *Order) ID() uuid.UUID                      { return o.id }
func (o *Order) ServiceType() ServiceType           { return o.serviceType }
func (o *Order) Customer() CustomerRef              { return o.customer }
func (o *Order) Status() Status                     { return o.status }
func (o *Order) Slot() SlotRef                      { return o.slot }
func (o *Order) DeliverySlot() *capacity.TimeWindow { return o.deliverySlot }
func (o *Order) Address() Address                   { return o.address }
func (o *Order) ServiceParams() json.RawMessage     { return o.serviceParams }
func (o *Order) Pricing() Pricing                   { return o.pricing }
func (o *Order) PaidAmount() Money                  { return o.paidAmount }
func (o *Order) RefundedAmount() Money              { return o.refundedAmount }
func (o *Order) Policy() *PolicyRef                 { return o.policy }
func (o *Order) Payment() PaymentRef                { return o.payment }
func (o *Order) PaymentMode() PaymentMode           { return o.paymentMode }
func (o *Order) CancelReason() string               { return o.cancelReason }
func (o *Order) CancellationFee() Money             { return o.cancellationFee }
func (o *Order) ManualPaymentRequired() bool        { return o.manualPaymentRequired }
func (o *Order) ReauthorizationRequired() bool      { return o.reauthorizationRequired }
func (o *Order) CreatedAt() time.Time               { return o.createdAt }
func (o *Order) UpdatedAt() time.Time               { return o.updatedAt }
func (o *Order) PaidAt() *time.Time                 { return o.paidAt }
func (o *Order) RefundedAt() *time.Time             { return o.refundedAt }
func (o *Order) CanceledAt() *time.Time             { return o.canceledAt }
func (o *Order) Version() int32                     { return o.version }

func (o *Order) touch(now time.Time) {
	if now.After(o.updatedAt) {
		o.updatedAt = now
	}
}

func (o *Order) clampToCreation(t time.Time) time.Time {
	if t.Before(o.createdAt) {
		return o.createdAt
	}
	return t
}

func setOnce(current *time.Time, t time.Time) *time.Time {
	if current != nil {
		return current
	}
	return &t
}

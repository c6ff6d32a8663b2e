package order

import (
	"slices"
	"time"
)

type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonInvalidTransition      Reason = "invalid_transition"
	ReasonMissingPaymentEvidence Reason = "missing_payment_evidence"
	ReasonMissingDeliverySlot    Reason = "missing_delivery_slot"
	ReasonTerminalState          Reason = "terminal_state"
)

func (r Reason) String() string {
	return string(r)
}

// TransitionContext carries the persisted facts a transition may depend on.
// It is always built from the stored order, never from client input.
type TransitionContext struct {
	PaidAt          *time.Time
	HasDeliverySlot bool
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason Reason) Decision { return Decision{Reason: reason} }

var laundryTransitions = map[Status][]Status{
	StatusPending:         {StatusPendingPickup},
	StatusPendingPickup:   {StatusAtFacility},
	StatusAtFacility:      {StatusAwaitingPayment},
	StatusAwaitingPayment: {StatusPaidProcessing},
	StatusPaidProcessing:  {StatusInProgress},
	StatusInProgress:      {StatusOutForDelivery},
	StatusOutForDelivery:  {StatusDelivered},
}

var cleaningTransitions = map[Status][]Status{
	StatusPending:         {StatusAwaitingPayment, StatusAuthorized},
	StatusAwaitingPayment: {StatusPaidProcessing},
	StatusAuthorized:      {StatusPaidProcessing},
	StatusPaidProcessing:  {StatusPendingPickup},
	StatusPendingPickup:   {StatusInProgress},
	StatusInProgress:      {StatusCompleted},
}

var refundableStatuses = map[ServiceType][]Status{
	ServiceLaundry:  {StatusPaidProcessing, StatusDelivered},
	ServiceCleaning: {StatusPaidProcessing, StatusCompleted},
}

// Once work has started the order can no longer be canceled.
var nonCancellableStatuses = []Status{
	StatusInProgress,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCompleted,
}

func graphFor(st ServiceType) map[Status][]Status {
	switch st {
	case ServiceLaundry:
		return laundryTransitions
	case ServiceCleaning:
		return cleaningTransitions
	default:
		return nil
	}
}

// Decide is a pure decision over the transition graph of the service type.
func Decide(from, to Status, st ServiceType, ctx TransitionContext) Decision {
	graph := graphFor(st)
	if graph == nil || !belongsTo(from, st) || !belongsTo(to, st) {
		return deny(ReasonInvalidTransition)
	}

	switch to {
	case StatusCanceled:
		if from == StatusCanceled || from == StatusRefunded || slices.Contains(nonCancellableStatuses, from) {
			return deny(ReasonTerminalState)
		}
		return allow()
	case StatusRefunded:
		if slices.Contains(refundableStatuses[st], from) {
			return allow()
		}
		if from.IsFinal() {
			return deny(ReasonTerminalState)
		}
		return deny(ReasonInvalidTransition)
	}

	if from.IsFinal() {
		return deny(ReasonTerminalState)
	}

	if !slices.Contains(graph[from], to) {
		return deny(ReasonInvalidTransition)
	}

	if to == StatusPaidProcessing && ctx.PaidAt == nil {
		return deny(ReasonMissingPaymentEvidence)
	}
	if st == ServiceLaundry && to == StatusOutForDelivery && !ctx.HasDeliverySlot {
		return deny(ReasonMissingDeliverySlot)
	}

	return allow()
}

func CanTransition(from, to Status, st ServiceType, ctx TransitionContext) bool {
	return Decide(from, to, st, ctx).Allowed
}

// InitialStatus is the status every new order starts in.
func InitialStatus(ServiceType) Status {
	return StatusPending
}

func belongsTo(s Status, st ServiceType) bool {
	switch s {
	case StatusCanceled, StatusRefunded:
		return true
	}
	graph := graphFor(st)
	if _, ok := graph[s]; ok {
		return true
	}
	for _, next := range graph {
		if slices.Contains(next, s) {
			return true
		}
	}
	return false
}

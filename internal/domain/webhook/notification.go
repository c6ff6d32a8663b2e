package webhook

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the closed set of typed variants accepted at the ingestion boundary.
type Notification interface {
	EventMeta() Meta
	notification()
}

type Meta struct {
	EventID   string
	EventType string
	Source    Source
	Created   time.Time
}

func (m Meta) EventMeta() Meta { return m }
func (Meta) notification()    {}

type PaymentAuthorized struct {
	Meta
	OrderID         uuid.UUID
	AuthorizationID string
	AmountCents     int64
	CustomerID      string
	PaymentMethodID string
}

type PaymentCaptured struct {
	Meta
	OrderID         uuid.UUID
	PaymentIntentID string
	ChargeID        string
	AmountCents     int64
	ReceiptURL      string
}

type PaymentFailed struct {
	Meta
	OrderID         uuid.UUID
	PaymentIntentID string
	FailureCode     string
	FailureMessage  string
}

type PaymentCanceled struct {
	Meta
	OrderID         uuid.UUID
	PaymentIntentID string
	Reason          string
}

// RefundIssued carries the cumulative refunded total of the charge, not the delta.
type RefundIssued struct {
	Meta
	OrderID            uuid.UUID
	ChargeID           string
	RefundedTotalCents int64
	ChargeAmountCents  int64
	FullyRefunded      bool
}

type SubscriptionKind string

const (
	SubscriptionCreated  SubscriptionKind = "created"
	SubscriptionUpdated  SubscriptionKind = "updated"
	SubscriptionCanceled SubscriptionKind = "canceled"
)

type SubscriptionChanged struct {
	Meta
	Kind             SubscriptionKind
	SubscriptionID   string
	CustomerID       string
	Status           string
	PlanID           string
	CurrentPeriodEnd *time.Time
	UserID           *uuid.UUID
}

// PartnerMessage is an inbound message from a service partner's phone.
type PartnerMessage struct {
	Meta
	From   string
	Intent PartnerIntent
}

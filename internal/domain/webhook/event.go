package webhook

import (
	"errors"
	"time"
)

var (
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrUnsupportedEvent = errors.New("unsupported webhook event type")
	// ErrInvalidSignature covers a bad signature and a timestamp outside the tolerance.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type Source string

const (
	SourceStripe      Source = "stripe"
	SourceMercadoPago Source = "mercadopago"
	SourcePartner     Source = "partner"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailure:
		return true
	default:
		return false
	}
}

// Event is the durable record of one delivery, keyed by the sender's event id.
type Event struct {
	ID          string
	Source      Source
	Type        string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
	Status      Status
	Payload     []byte
	Error       string
	LatencyMs   int64
	Attempts    int32
}

// Outcome is what the ingester reports internally. The sender always sees 200.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeDeferredFailure Outcome = "deferred_failure"
)

type Result struct {
	EventID string
	Outcome Outcome
	Err     error
}

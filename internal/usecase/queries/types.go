package queries

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuthorizedUserView represents read-optimized user data with authorization info
type AuthorizedUserView struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
}

// OrderView is the customer and operator facing projection of an order.
type OrderView struct {
	ID                      uuid.UUID            `json:"id"`
	ServiceType             string               `json:"service_type"`
	Status                  string               `json:"status"`
	CustomerUserID          *uuid.UUID           `json:"customer_user_id,omitempty"`
	GuestName               *string              `json:"guest_name,omitempty"`
	GuestEmail              *string              `json:"guest_email,omitempty"`
	GuestPhone              *string              `json:"guest_phone,omitempty"`
	PartnerID               uuid.UUID            `json:"partner_id"`
	SlotStart               time.Time            `json:"slot_start"`
	SlotEnd                 time.Time            `json:"slot_end"`
	DeliverySlotStart       *time.Time           `json:"delivery_slot_start,omitempty"`
	DeliverySlotEnd         *time.Time           `json:"delivery_slot_end,omitempty"`
	AddressLine1            string               `json:"address_line1"`
	AddressLine2            string               `json:"address_line2"`
	AddressCity             string               `json:"address_city"`
	AddressPostalCode       string               `json:"address_postal_code"`
	ServiceParams           json.RawMessage      `json:"service_params"`
	Subtotal                int64                `json:"subtotal"`
	Tax                     int64                `json:"tax"`
	DeliveryFee             int64                `json:"delivery_fee"`
	Total                   int64                `json:"total"`
	PaidAmount              int64                `json:"paid_amount"`
	RefundedAmount          int64                `json:"refunded_amount"`
	AuthorizedAmount        int64                `json:"authorized_amount"`
	PolicyID                *uuid.UUID           `json:"policy_id,omitempty"`
	PolicyVersion           *int32               `json:"policy_version,omitempty"`
	PaymentMode             string               `json:"payment_mode"`
	PaymentProvider         string               `json:"payment_provider"`
	ChargeID                string               `json:"charge_id"`
	ReceiptURL              string               `json:"receipt_url"`
	CancelReason            string               `json:"cancel_reason"`
	CancellationFee         int64                `json:"cancellation_fee"`
	ManualPaymentRequired   bool                 `json:"manual_payment_required"`
	ReauthorizationRequired bool                 `json:"reauthorization_required"`
	CreatedAt               time.Time            `json:"created_at"`
	UpdatedAt               time.Time            `json:"updated_at"`
	PaidAt                  *time.Time           `json:"paid_at,omitempty"`
	RefundedAt              *time.Time           `json:"refunded_at,omitempty"`
	CanceledAt              *time.Time           `json:"canceled_at,omitempty"`
	Version                 int32                `json:"version"`
	PaymentAttempts         []PaymentAttemptView `json:"payment_attempts"`
}

type PaymentAttemptView struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	Epoch          int32      `json:"epoch"`
	Amount         int64      `json:"amount"`
	Status         string     `json:"status"`
	FailureCode    string     `json:"failure_code"`
	ReleasedAmount int64      `json:"released_amount"`
	Tries          int32      `json:"tries"`
	NextAttemptAt  *time.Time `json:"next_attempt_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type SlotView struct {
	PartnerID     uuid.UUID `json:"partner_id"`
	ServiceType   string    `json:"service_type"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	MaxUnits      int32     `json:"max_units"`
	ReservedUnits int32     `json:"reserved_units"`
	Available     int32     `json:"available"`
}

type PolicyView struct {
	ID          uuid.UUID `json:"id"`
	ServiceType string    `json:"service_type"`
	Version     int32     `json:"version"`
	NoticeHours int32     `json:"notice_hours"`
	FeePercent  int32     `json:"fee_percent"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type WebhookEventView struct {
	EventID     string     `json:"event_id"`
	Source      string     `json:"source"`
	EventType   string     `json:"event_type"`
	Status      string     `json:"status"`
	Error       string     `json:"error"`
	Attempts    int32      `json:"attempts"`
	LatencyMs   *int64     `json:"latency_ms,omitempty"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

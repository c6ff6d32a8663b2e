package order

import "errors"

var (
	ErrInvalidServiceType = errors.New("invalid service type")
	ErrInvalidStatus      = errors.New("invalid order status")
)

type ServiceType string

const (
	ServiceLaundry  ServiceType = "laundry"
	ServiceCleaning ServiceType = "cleaning"
)

func (s ServiceType) String() string {
	return string(s)
}

func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceLaundry, ServiceCleaning:
		return true
	default:
		return false
	}
}

func NewServiceType(s string) (ServiceType, error) {
	st := ServiceType(s)
	if !st.IsValid() {
		return "", ErrInvalidServiceType
	}
	return st, nil
}

type Status string

const (
	StatusPending         Status = "pending"
	StatusPendingPickup   Status = "pending_pickup"
	StatusAtFacility      Status = "at_facility"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusAuthorized      Status = "authorized"
	StatusPaidProcessing  Status = "paid_processing"
	StatusInProgress      Status = "in_progress"
	StatusOutForDelivery  Status = "out_for_delivery"
	StatusDelivered       Status = "delivered"
	StatusCompleted       Status = "completed"
	StatusCanceled        Status = "canceled"
	StatusRefunded        Status = "refunded"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPendingPickup, StatusAtFacility, StatusAwaitingPayment,
		StatusAuthorized, StatusPaidProcessing, StatusInProgress, StatusOutForDelivery,
		StatusDelivered, StatusCompleted, StatusCanceled, StatusRefunded:
		return true
	default:
		return false
	}
}

func NewStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// IsFinal reports statuses that only the refund branch may leave.
func (s Status) IsFinal() bool {
	switch s {
	case StatusCanceled, StatusRefunded, StatusDelivered, StatusCompleted:
		return true
	default:
		return false
	}
}

// PaymentMode selects how the settlement saga moves money for an order.
type PaymentMode string

const (
	PaymentModeDeferred PaymentMode = "deferred"
	PaymentModePreauth  PaymentMode = "preauth"
)

func (m PaymentMode) IsValid() bool {
	return m == PaymentModeDeferred || m == PaymentModePreauth
}

// DefaultPaymentMode returns the mode used when configuration does not override it.
func DefaultPaymentMode(st ServiceType) PaymentMode {
	if st == ServiceCleaning {
		return PaymentModePreauth
	}
	return PaymentModeDeferred
}

package request

import (
	"encoding/json"
	"strings"
	"time"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/domain/order"
	"freshfold/internal/domain/pricing"

	"github.com/google/uuid"
)

type AddressRequest struct {
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
}

type GuestContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CreateOrderRequest struct {
	ServiceType       string               `json:"service_type" binding:"required,oneof=laundry cleaning"`
	PartnerID         uuid.UUID            `json:"partner_id" binding:"required"`
	SlotStart         time.Time            `json:"slot_start" binding:"required"`
	SlotEnd           time.Time            `json:"slot_end" binding:"required"`
	DeliverySlotStart *time.Time           `json:"delivery_slot_start,omitempty"`
	DeliverySlotEnd   *time.Time           `json:"delivery_slot_end,omitempty"`
	Address           AddressRequest       `json:"address" binding:"required"`
	Guest             *GuestContactRequest `json:"guest,omitempty"`
	ServiceParams     json.RawMessage      `json:"service_params" swaggertype:"object"`
	PaymentMethodID   string               `json:"payment_method_id,omitempty"`
	CustomerID        string               `json:"customer_id,omitempty"`
}

// CreateOrderData is the validated form of a booking request.
type CreateOrderData struct {
	ServiceType     order.ServiceType
	Customer        order.CustomerRef
	Slot            order.SlotRef
	DeliverySlot    *capacity.TimeWindow
	Address         order.Address
	Params          pricing.Params
	RawParams       json.RawMessage
	PaymentMethodID string
	CustomerID      string
}

// ToDomain validates the request. userID is the authenticated customer, nil for guests.
func (r *CreateOrderRequest) ToDomain(userID *uuid.UUID) (CreateOrderData, error) {
	st, err := order.NewServiceType(r.ServiceType)
	if err != nil {
		return CreateOrderData{}, err
	}

	var guest *order.GuestContact
	if userID == nil && r.Guest != nil {
		g, err := order.NewGuestContact(r.Guest.Name, r.Guest.Email, r.Guest.Phone)
		if err != nil {
			return CreateOrderData{}, err
		}
		guest = &g
	}
	customer, err := order.NewCustomerRef(userID, guest)
	if err != nil {
		return CreateOrderData{}, err
	}

	address, err := order.NewAddress(r.Address.Line1, r.Address.Line2, r.Address.City, r.Address.PostalCode)
	if err != nil {
		return CreateOrderData{}, err
	}

	slot, err := order.NewSlotRef(r.PartnerID, r.SlotStart.UTC(), r.SlotEnd.UTC())
	if err != nil {
		return CreateOrderData{}, err
	}

	var delivery *capacity.TimeWindow
	if r.DeliverySlotStart != nil || r.DeliverySlotEnd != nil {
		if r.DeliverySlotStart == nil || r.DeliverySlotEnd == nil {
			return CreateOrderData{}, capacity.ErrInvalidWindow
		}
		w, err := capacity.NewTimeWindow(r.DeliverySlotStart.UTC(), r.DeliverySlotEnd.UTC())
		if err != nil {
			return CreateOrderData{}, err
		}
		delivery = &w
	}

	params, err := pricing.ParseParams(st.String(), r.ServiceParams)
	if err != nil {
		return CreateOrderData{}, err
	}

	return CreateOrderData{
		ServiceType:     st,
		Customer:        customer,
		Slot:            slot,
		DeliverySlot:    delivery,
		Address:         address,
		Params:          params,
		RawParams:       r.ServiceParams,
		PaymentMethodID: strings.TrimSpace(r.PaymentMethodID),
		CustomerID:      strings.TrimSpace(r.CustomerID),
	}, nil
}

type QuoteRequest struct {
	ServiceType   string          `json:"service_type" binding:"required,oneof=laundry cleaning"`
	ServiceParams json.RawMessage `json:"service_params" swaggertype:"object"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type RescheduleRequest struct {
	PartnerID uuid.UUID `json:"partner_id" binding:"required"`
	Start     time.Time `json:"start" binding:"required"`
	End       time.Time `json:"end" binding:"required"`
}

func (r *RescheduleRequest) ToDomain() (order.SlotRef, error) {
	return order.NewSlotRef(r.PartnerID, r.Start.UTC(), r.End.UTC())
}

type DeliverySlotRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

func (r *DeliverySlotRequest) ToDomain() (capacity.TimeWindow, error) {
	return capacity.NewTimeWindow(r.Start.UTC(), r.End.UTC())
}

type AuthorizePaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
	CustomerID      string `json:"customer_id"`
}

type ConfirmPaymentRequest struct {
	ContinuationRef string `json:"continuation_ref" binding:"required"`
}

type CaptureRequest struct {
	Amount *int64 `json:"amount,omitempty" binding:"omitempty,gt=0"`
}

type RefundRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"required"`
}

type AdvanceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type PublishPolicyRequest struct {
	ServiceType string `json:"service_type" binding:"required,oneof=laundry cleaning"`
	NoticeHours int32  `json:"notice_hours" binding:"gte=0,lte=720"`
	FeePercent  int32  `json:"fee_percent" binding:"gte=0,lte=100"`
}

type UpsertSlotRequest struct {
	PartnerID   uuid.UUID `json:"partner_id" binding:"required"`
	ServiceType string    `json:"service_type" binding:"required,oneof=laundry cleaning"`
	Start       time.Time `json:"start" binding:"required"`
	End         time.Time `json:"end" binding:"required"`
	MaxUnits    int32     `json:"max_units" binding:"gte=0"`
}

func (r *UpsertSlotRequest) ToDomain() (capacity.Slot, error) {
	w, err := capacity.NewTimeWindow(r.Start.UTC(), r.End.UTC())
	if err != nil {
		return capacity.Slot{}, err
	}
	return capacity.Slot{
		PartnerID:   r.PartnerID,
		ServiceType: r.ServiceType,
		Window:      w,
		MaxUnits:    r.MaxUnits,
	}, nil
}

type ListOrdersQuery struct {
	Status string `form:"status"`
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" binding:"omitempty,gte=1,lte=200"`
}

type ListSlotsQuery struct {
	PartnerID   string `form:"partner_id" binding:"omitempty,uuid"`
	ServiceType string `form:"service_type" binding:"required,oneof=laundry cleaning"`
	// YYYY-MM-DD in the service area's time zone
	Date string `form:"date" binding:"required"`
}

type PolicyQuery struct {
	ServiceType string `form:"service_type" binding:"required,oneof=laundry cleaning"`
}

type WebhookEventsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending success failure"`
	Limit  int    `form:"limit" binding:"omitempty,gte=1,lte=200"`
}

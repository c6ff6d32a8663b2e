//go:build unit || e2e

package builder

import (
	"encoding/json"
	"time"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/domain/order"

	"github.com/google/uuid"
)

var BaseTime = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

type OrderBuilder struct {
	ServiceType   order.ServiceType
	UserID        *uuid.UUID
	GuestName     string
	GuestEmail    string
	GuestPhone    string
	PartnerID     uuid.UUID
	SlotStart     time.Time
	SlotEnd       time.Time
	DeliveryStart *time.Time
	Line1         string
	City          string
	PostalCode    string
	Params        json.RawMessage
	Subtotal      int64
	Tax           int64
	DeliveryFee   int64
	Policy        *order.PolicyRef
	PaymentMode   order.PaymentMode
	PaymentMethod string
	CustomerID    string
	AuthID        string
	AuthAmount    int64
	Paid          int64
	Fee           int64
	Now           time.Time
}

func NewOrderBuilder() *OrderBuilder {
	return &OrderBuilder{
		ServiceType: order.ServiceLaundry,
		GuestName:   "Jamie Guest",
		GuestEmail:  "jamie@example.com",
		GuestPhone:  "+14155550123",
		PartnerID:   uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7"),
		SlotStart:   BaseTime.Add(48 * time.Hour),
		SlotEnd:     BaseTime.Add(50 * time.Hour),
		Line1:       "100 Market St",
		City:        "San Francisco",
		PostalCode:  "94105",
		Params:      json.RawMessage(`{"weight_lbs":20}`),
		Subtotal:    3500,
		Tax:         306,
		DeliveryFee: 500,
		Now:         BaseTime,
	}
}

func (b *OrderBuilder) With(mutate func(*OrderBuilder)) *OrderBuilder {
	mutate(b)
	return b
}

func (b *OrderBuilder) WithCleaning() *OrderBuilder {
	b.ServiceType = order.ServiceCleaning
	b.Params = json.RawMessage(`{"bedrooms":2,"bathrooms":1}`)
	b.Subtotal = 14000
	b.Tax = 1000
	b.DeliveryFee = 0
	return b
}

func (b *OrderBuilder) WithTotal(subtotal, tax, deliveryFee int64) *OrderBuilder {
	b.Subtotal = subtotal
	b.Tax = tax
	b.DeliveryFee = deliveryFee
	return b
}

func (b *OrderBuilder) WithUser(id uuid.UUID) *OrderBuilder {
	b.UserID = &id
	b.GuestName = ""
	b.GuestPhone = ""
	b.GuestEmail = ""
	return b
}

func (b *OrderBuilder) WithPolicy(id uuid.UUID, version int32) *OrderBuilder {
	b.Policy = &order.PolicyRef{ID: id, Version: version}
	return b
}

func (b *OrderBuilder) WithDeliveryAt(start time.Time) *OrderBuilder {
	b.DeliveryStart = &start
	return b
}

func (b *OrderBuilder) WithPaymentMethod(customerID, paymentMethodID string) *OrderBuilder {
	b.CustomerID = customerID
	b.PaymentMethod = paymentMethodID
	return b
}

func (b *OrderBuilder) WithAuthorization(id string, amount int64) *OrderBuilder {
	b.AuthID = id
	b.AuthAmount = amount
	return b
}

func (b *OrderBuilder) WithPaid(amount int64) *OrderBuilder {
	b.Paid = amount
	return b
}

// WithCancellationFee sets the fee a canceled order may still collect.
func (b *OrderBuilder) WithCancellationFee(fee int64) *OrderBuilder {
	b.Fee = fee
	return b
}

func (b *OrderBuilder) Customer() (order.CustomerRef, error) {
	if b.UserID != nil {
		return order.NewCustomerRef(b.UserID, nil)
	}
	if b.GuestName == "" && b.GuestPhone == "" {
		return order.NewCustomerRef(nil, nil)
	}
	guest, err := order.NewGuestContact(b.GuestName, b.GuestEmail, b.GuestPhone)
	if err != nil {
		return order.CustomerRef{}, err
	}
	return order.NewCustomerRef(nil, &guest)
}

func (b *OrderBuilder) BuildDomain() (*order.Order, error) {
	customer, err := b.Customer()
	if err != nil {
		return nil, err
	}
	slot, err := order.NewSlotRef(b.PartnerID, b.SlotStart, b.SlotEnd)
	if err != nil {
		return nil, err
	}
	addr, err := order.NewAddress(b.Line1, "", b.City, b.PostalCode)
	if err != nil {
		return nil, err
	}
	pricing, err := order.NewPricing(b.Subtotal, b.Tax, b.DeliveryFee, b.Subtotal+b.Tax+b.DeliveryFee)
	if err != nil {
		return nil, err
	}
	var delivery *capacity.TimeWindow
	if b.DeliveryStart != nil {
		w, err := capacity.NewTimeWindow(*b.DeliveryStart, b.DeliveryStart.Add(2*time.Hour))
		if err != nil {
			return nil, err
		}
		delivery = &w
	}
	return order.NewOrder(order.NewOrderParams{
		ServiceType:   b.ServiceType,
		Customer:      customer,
		Slot:          slot,
		DeliverySlot:  delivery,
		Address:       addr,
		ServiceParams: b.Params,
		Pricing:       pricing,
		Policy:        b.Policy,
		PaymentMode:   b.PaymentMode,
		PaymentMethod: b.PaymentMethod,
		CustomerID:    b.CustomerID,
	}, b.Now)
}

// MustBuildAt builds the order and forces it into status and the payment state
// set on the builder, bypassing the state machine.
func (b *OrderBuilder) MustBuildAt(status order.Status) *order.Order {
	o, err := b.BuildDomain()
	if err != nil {
		panic(err)
	}
	pay := o.Payment()
	if b.AuthID != "" {
		pay.Provider = "stripe"
		pay.AuthorizationID = b.AuthID
		pay.AuthorizedAmount = b.AuthAmount
	}
	var paidAt *time.Time
	if b.Paid > 0 {
		at := b.Now.Add(time.Hour)
		paidAt = &at
		pay.ChargeID = "ch_builder"
	}
	return order.ReconstructOrder(order.ReconstructParams{
		ID:              o.ID(),
		ServiceType:     o.ServiceType(),
		Customer:        o.Customer(),
		Status:          status,
		Slot:            o.Slot(),
		DeliverySlot:    o.DeliverySlot(),
		Address:         o.Address(),
		ServiceParams:   o.ServiceParams(),
		Pricing:         o.Pricing(),
		PaidAmount:      order.MustMoney(b.Paid),
		Policy:          o.Policy(),
		Payment:         pay,
		PaymentMode:     o.PaymentMode(),
		CancellationFee: order.MustMoney(b.Fee),
		CreatedAt:       o.CreatedAt(),
		UpdatedAt:       o.UpdatedAt(),
		PaidAt:          paidAt,
		Version:         o.Version(),
	})
}

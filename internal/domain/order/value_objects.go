package order

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"freshfold/internal/domain/capacity"

	"github.com/google/uuid"
)

var (
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrInvalidPricing     = errors.New("total must equal subtotal + tax + delivery fee")
	ErrMissingContact     = errors.New("order needs either a customer or a guest contact")
	ErrAmbiguousContact   = errors.New("order cannot have both a customer and a guest contact")
	ErrMissingGuestPhone  = errors.New("guest contact requires a phone number")
	ErrMissingGuestName   = errors.New("guest contact requires a name")
	ErrInvalidPhone       = errors.New("phone must be in E.164 format")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidPolicyRef   = errors.New("policy version must be positive")
	ErrInvalidSlotPartner = errors.New("slot partner is required")
)

var (
	e164Regex  = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	zipRegex   = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z \-]{2,9}$`)
)

// Money is an amount in minor currency units.
type Money struct {
	cents int64
}

func NewMoney(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{cents: cents}, nil
}

func MustMoney(cents int64) Money {
	m, err := NewMoney(cents)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Cents() int64          { return m.cents }
func (m Money) IsZero() bool          { return m.cents == 0 }
func (m Money) Add(o Money) Money     { return Money{cents: m.cents + o.cents} }
func (m Money) LessThan(o Money) bool { return m.cents < o.cents }

// Sub clamps at zero.
func (m Money) Sub(o Money) Money {
	if o.cents >= m.cents {
		return Money{}
	}
	return Money{cents: m.cents - o.cents}
}

type Pricing struct {
	subtotal    Money
	tax         Money
	deliveryFee Money
	total       Money
}

func NewPricing(subtotal, tax, deliveryFee, total int64) (Pricing, error) {
	parts := []int64{subtotal, tax, deliveryFee, total}
	for _, p := range parts {
		if p < 0 {
			return Pricing{}, ErrNegativeAmount
		}
	}
	if subtotal+tax+deliveryFee != total {
		return Pricing{}, ErrInvalidPricing
	}
	return Pricing{
		subtotal:    Money{cents: subtotal},
		tax:         Money{cents: tax},
		deliveryFee: Money{cents: deliveryFee},
		total:       Money{cents: total},
	}, nil
}

func (p Pricing) Subtotal() Money    { return p.subtotal }
func (p Pricing) Tax() Money         { return p.tax }
func (p Pricing) DeliveryFee() Money { return p.deliveryFee }
func (p Pricing) Total() Money       { return p.total }

type GuestContact struct {
	name  string
	email string
	phone string
}

func NewGuestContact(name, email, phone string) (GuestContact, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	if name == "" {
		return GuestContact{}, ErrMissingGuestName
	}
	if phone == "" {
		return GuestContact{}, ErrMissingGuestPhone
	}
	if !e164Regex.MatchString(phone) {
		return GuestContact{}, ErrInvalidPhone
	}
	if email != "" && !emailRegex.MatchString(email) {
		return GuestContact{}, ErrInvalidEmail
	}
	return GuestContact{name: name, email: email, phone: phone}, nil
}

func (g GuestContact) Name() string  { return g.name }
func (g GuestContact) Email() string { return g.email }
func (g GuestContact) Phone() string { return g.phone }

// CustomerRef holds exactly one identity: an authenticated user or a guest contact.
type CustomerRef struct {
	userID *uuid.UUID
	guest  *GuestContact
}

func NewCustomerRef(userID *uuid.UUID, guest *GuestContact) (CustomerRef, error) {
	if userID != nil && *userID == uuid.Nil {
		userID = nil
	}
	switch {
	case userID == nil && guest == nil:
		return CustomerRef{}, ErrMissingContact
	case userID != nil && guest != nil:
		return CustomerRef{}, ErrAmbiguousContact
	}
	return CustomerRef{userID: userID, guest: guest}, nil
}

func (c CustomerRef) UserID() *uuid.UUID   { return c.userID }
func (c CustomerRef) Guest() *GuestContact { return c.guest }
func (c CustomerRef) IsGuest() bool        { return c.guest != nil }

type Address struct {
	line1      string
	line2      string
	city       string
	postalCode string
}

func NewAddress(line1, line2, city, postalCode string) (Address, error) {
	line1 = strings.TrimSpace(line1)
	city = strings.TrimSpace(city)
	postalCode = strings.TrimSpace(postalCode)
	if line1 == "" || city == "" || !zipRegex.MatchString(postalCode) {
		return Address{}, ErrInvalidAddress
	}
	return Address{line1: line1, line2: strings.TrimSpace(line2), city: city, postalCode: postalCode}, nil
}

func (a Address) Line1() string      { return a.line1 }
func (a Address) Line2() string      { return a.line2 }
func (a Address) City() string       { return a.city }
func (a Address) PostalCode() string { return a.postalCode }

type SlotRef struct {
	PartnerID uuid.UUID
	Window    capacity.TimeWindow
}

func NewSlotRef(partnerID uuid.UUID, start, end time.Time) (SlotRef, error) {
	if partnerID == uuid.Nil {
		return SlotRef{}, ErrInvalidSlotPartner
	}
	w, err := capacity.NewTimeWindow(start, end)
	if err != nil {
		return SlotRef{}, err
	}
	return SlotRef{PartnerID: partnerID, Window: w}, nil
}

func (s SlotRef) Token() capacity.ReservationToken {
	return capacity.ReservationToken{PartnerID: s.PartnerID, Window: s.Window, Units: 1}
}

type PolicyRef struct {
	ID      uuid.UUID
	Version int32
}

func NewPolicyRef(id uuid.UUID, version int32) (PolicyRef, error) {
	if version <= 0 {
		return PolicyRef{}, ErrInvalidPolicyRef
	}
	return PolicyRef{ID: id, Version: version}, nil
}

// PaymentRef holds processor identifiers. Only the settlement saga writes it.
type PaymentRef struct {
	Provider         string
	CustomerID       string
	PaymentMethodID  string
	AuthorizationID  string
	ChargeID         string
	ReceiptURL       string
	AuthorizedAmount int64
}

func (p PaymentRef) HasAuthorization() bool {
	return p.AuthorizationID != ""
}

func (p PaymentRef) HasPaymentMethod() bool {
	return p.PaymentMethodID != ""
}

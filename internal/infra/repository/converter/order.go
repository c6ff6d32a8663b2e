package converter

import (
	"encoding/json"
	"fmt"

	"freshfold/internal/domain/capacity"
	"freshfold/internal/domain/order"
	"freshfold/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderColumns is the select list OrderRow.ScanTargets matches.
const OrderColumns = `id, service_type, status, customer_user_id, guest_name, guest_email, guest_phone,
	partner_id, slot_start, slot_end, delivery_slot_start, delivery_slot_end,
	address_line1, address_line2, address_city, address_postal_code, service_params,
	subtotal, tax, delivery_fee, total, paid_amount, refunded_amount,
	policy_id, policy_version, payment_mode, payment_provider, payment_customer_id, payment_method_id,
	authorization_id, authorized_amount, charge_id, receipt_url, cancel_reason, cancellation_fee,
	manual_payment_required, reauthorization_required,
	created_at, updated_at, paid_at, refunded_at, canceled_at, version`

type OrderRow struct {
	ID                      uuid.UUID
	ServiceType             string
	Status                  string
	CustomerUserID          pgtype.UUID
	GuestName               pgtype.Text
	GuestEmail              pgtype.Text
	GuestPhone              pgtype.Text
	PartnerID               uuid.UUID
	SlotStart               pgtype.Timestamptz
	SlotEnd                 pgtype.Timestamptz
	DeliverySlotStart       pgtype.Timestamptz
	DeliverySlotEnd         pgtype.Timestamptz
	AddressLine1            string
	AddressLine2            string
	AddressCity             string
	AddressPostalCode       string
	ServiceParams           []byte
	Subtotal                int64
	Tax                     int64
	DeliveryFee             int64
	Total                   int64
	PaidAmount              int64
	RefundedAmount          int64
	PolicyID                pgtype.UUID
	PolicyVersion           pgtype.Int4
	PaymentMode             string
	PaymentProvider         string
	PaymentCustomerID       string
	PaymentMethodID         string
	AuthorizationID         string
	AuthorizedAmount        int64
	ChargeID                string
	ReceiptURL              string
	CancelReason            string
	CancellationFee         int64
	ManualPaymentRequired   bool
	ReauthorizationRequired bool
	CreatedAt               pgtype.Timestamptz
	UpdatedAt               pgtype.Timestamptz
	PaidAt                  pgtype.Timestamptz
	RefundedAt              pgtype.Timestamptz
	CanceledAt              pgtype.Timestamptz
	Version                 int32
}

func (r *OrderRow) ScanTargets() []any {
	return []any{
		&r.ID, &r.ServiceType, &r.Status, &r.CustomerUserID, &r.GuestName, &r.GuestEmail, &r.GuestPhone,
		&r.PartnerID, &r.SlotStart, &r.SlotEnd, &r.DeliverySlotStart, &r.DeliverySlotEnd,
		&r.AddressLine1, &r.AddressLine2, &r.AddressCity, &r.AddressPostalCode, &r.ServiceParams,
		&r.Subtotal, &r.Tax, &r.DeliveryFee, &r.Total, &r.PaidAmount, &r.RefundedAmount,
		&r.PolicyID, &r.PolicyVersion, &r.PaymentMode, &r.PaymentProvider, &r.PaymentCustomerID, &r.PaymentMethodID,
		&r.AuthorizationID, &r.AuthorizedAmount, &r.ChargeID, &r.ReceiptURL, &r.CancelReason, &r.CancellationFee,
		&r.ManualPaymentRequired, &r.ReauthorizationRequired,
		&r.CreatedAt, &r.UpdatedAt, &r.PaidAt, &r.RefundedAt, &r.CanceledAt, &r.Version,
	}
}

// OrderToDomain rebuilds the aggregate. Rows are trusted, so guest contact and
// address are restored without re-running input validation.
func OrderToDomain(r OrderRow) (*order.Order, error) {
	var guest *order.GuestContact
	if r.GuestPhone.Valid {
		g, err := order.NewGuestContact(r.GuestName.String, r.GuestEmail.String, r.GuestPhone.String)
		if err != nil {
			return nil, fmt.Errorf("stored guest contact of order %s: %w", r.ID, err)
		}
		guest = &g
	}
	customer, err := order.NewCustomerRef(pgconv.UUIDPtrFromPgtype(r.CustomerUserID), guest)
	if err != nil {
		return nil, fmt.Errorf("stored customer of order %s: %w", r.ID, err)
	}

	slot, err := order.NewSlotRef(r.PartnerID, r.SlotStart.Time, r.SlotEnd.Time)
	if err != nil {
		return nil, fmt.Errorf("stored slot of order %s: %w", r.ID, err)
	}

	var delivery *capacity.TimeWindow
	if r.DeliverySlotStart.Valid && r.DeliverySlotEnd.Valid {
		w, err := capacity.NewTimeWindow(r.DeliverySlotStart.Time, r.DeliverySlotEnd.Time)
		if err != nil {
			return nil, fmt.Errorf("stored delivery slot of order %s: %w", r.ID, err)
		}
		delivery = &w
	}

	address, err := order.NewAddress(r.AddressLine1, r.AddressLine2, r.AddressCity, r.AddressPostalCode)
	if err != nil {
		return nil, fmt.Errorf("stored address of order %s: %w", r.ID, err)
	}

	pricing, err := order.NewPricing(r.Subtotal, r.Tax, r.DeliveryFee, r.Total)
	if err != nil {
		return nil, fmt.Errorf("stored pricing of order %s: %w", r.ID, err)
	}

	var policyRef *order.PolicyRef
	if r.PolicyID.Valid && r.PolicyVersion.Valid {
		policyRef = &order.PolicyRef{ID: uuid.UUID(r.PolicyID.Bytes), Version: r.PolicyVersion.Int32}
	}

	return order.ReconstructOrder(order.ReconstructParams{
		ID:             r.ID,
		ServiceType:    order.ServiceType(r.ServiceType),
		Customer:       customer,
		Status:         order.Status(r.Status),
		Slot:           slot,
		DeliverySlot:   delivery,
		Address:        address,
		ServiceParams:  json.RawMessage(r.ServiceParams),
		Pricing:        pricing,
		PaidAmount:     order.MustMoney(r.PaidAmount),
		RefundedAmount: order.MustMoney(r.RefundedAmount),
		Policy:         policyRef,
		Payment: order.PaymentRef{
			Provider:         r.PaymentProvider,
			CustomerID:       r.PaymentCustomerID,
			PaymentMethodID:  r.PaymentMethodID,
			AuthorizationID:  r.AuthorizationID,
			ChargeID:         r.ChargeID,
			ReceiptURL:       r.ReceiptURL,
			AuthorizedAmount: r.AuthorizedAmount,
		},
		PaymentMode:             order.PaymentMode(r.PaymentMode),
		CancelReason:            r.CancelReason,
		CancellationFee:         order.MustMoney(r.CancellationFee),
		ManualPaymentRequired:   r.ManualPaymentRequired,
		ReauthorizationRequired: r.ReauthorizationRequired,
		CreatedAt:               r.CreatedAt.Time,
		UpdatedAt:               r.UpdatedAt.Time,
		PaidAt:                  pgconv.TimePtrFromPgtype(r.PaidAt),
		RefundedAt:              pgconv.TimePtrFromPgtype(r.RefundedAt),
		CanceledAt:              pgconv.TimePtrFromPgtype(r.CanceledAt),
		Version:                 r.Version,
	}), nil
}

// OrderToRow flattens the aggregate for inserts and guarded updates.
func OrderToRow(o *order.Order) OrderRow {
	row := OrderRow{
		ID:                      o.ID(),
		ServiceType:             o.ServiceType().String(),
		Status:                  o.Status().String(),
		CustomerUserID:          pgconv.UUIDPtrToPgtype(o.Customer().UserID()),
		PartnerID:               o.Slot().PartnerID,
		SlotStart:               pgconv.TimeToPgtype(o.Slot().Window.Start()),
		SlotEnd:                 pgconv.TimeToPgtype(o.Slot().Window.End()),
		AddressLine1:            o.Address().Line1(),
		AddressLine2:            o.Address().Line2(),
		AddressCity:             o.Address().City(),
		AddressPostalCode:       o.Address().PostalCode(),
		ServiceParams:           o.ServiceParams(),
		Subtotal:                o.Pricing().Subtotal().Cents(),
		Tax:                     o.Pricing().Tax().Cents(),
		DeliveryFee:             o.Pricing().DeliveryFee().Cents(),
		Total:                   o.Pricing().Total().Cents(),
		PaidAmount:              o.PaidAmount().Cents(),
		RefundedAmount:          o.RefundedAmount().Cents(),
		PaymentMode:             string(o.PaymentMode()),
		PaymentProvider:         o.Payment().Provider,
		PaymentCustomerID:       o.Payment().CustomerID,
		PaymentMethodID:         o.Payment().PaymentMethodID,
		AuthorizationID:         o.Payment().AuthorizationID,
		AuthorizedAmount:        o.Payment().AuthorizedAmount,
		ChargeID:                o.Payment().ChargeID,
		ReceiptURL:              o.Payment().ReceiptURL,
		CancelReason:            o.CancelReason(),
		CancellationFee:         o.CancellationFee().Cents(),
		ManualPaymentRequired:   o.ManualPaymentRequired(),
		ReauthorizationRequired: o.ReauthorizationRequired(),
		CreatedAt:               pgconv.TimeToPgtype(o.CreatedAt()),
		UpdatedAt:               pgconv.TimeToPgtype(o.UpdatedAt()),
		PaidAt:                  pgconv.TimePtrToPgtype(o.PaidAt()),
		RefundedAt:              pgconv.TimePtrToPgtype(o.RefundedAt()),
		CanceledAt:              pgconv.TimePtrToPgtype(o.CanceledAt()),
		Version:                 o.Version(),
	}
	if len(row.ServiceParams) == 0 {
		row.ServiceParams = []byte("{}")
	}
	if g := o.Customer().Guest(); g != nil {
		row.GuestName = pgconv.StringToPgtype(g.Name())
		row.GuestEmail = pgtype.Text{String: g.Email(), Valid: g.Email() != ""}
		row.GuestPhone = pgconv.StringToPgtype(g.Phone())
	}
	if d := o.DeliverySlot(); d != nil {
		row.DeliverySlotStart = pgconv.TimeToPgtype(d.Start())
		row.DeliverySlotEnd = pgconv.TimeToPgtype(d.End())
	}
	if p := o.Policy(); p != nil {
		row.PolicyID = pgconv.UUIDToPgtype(p.ID)
		row.PolicyVersion = pgtype.Int4{Int32: p.Version, Valid: true}
	}
	return row
}


package response

import (
	"time"

	"freshfold/internal/domain/order"
	"freshfold/internal/domain/pricing"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/queries"
	"freshfold/internal/usecase/settlement"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type PricingResponse struct {
	Subtotal    int64 `json:"subtotal"`
	Tax         int64 `json:"tax"`
	DeliveryFee int64 `json:"delivery_fee"`
	Total       int64 `json:"total"`
}

func FromPricing(p order.Pricing) PricingResponse {
	return PricingResponse{
		Subtotal:    p.Subtotal().Cents(),
		Tax:         p.Tax().Cents(),
		DeliveryFee: p.DeliveryFee().Cents(),
		Total:       p.Total().Cents(),
	}
}

// PaymentActionResponse tells the client what the payment step left behind.
type PaymentActionResponse struct {
	AttemptID       string     `json:"attempt_id"`
	Kind            string     `json:"kind"`
	Status          string     `json:"status"`
	Amount          int64      `json:"amount"`
	ReleasedAmount  int64      `json:"released_amount,omitempty"`
	ContinuationRef string     `json:"continuation_ref,omitempty"`
	ClientSecret    string     `json:"client_secret,omitempty"`
	NextAttemptAt   *time.Time `json:"next_attempt_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

func FromOutcome(o *settlement.Outcome) (*PaymentActionResponse, error) {
	if o == nil {
		return nil, nil
	}
	res := &PaymentActionResponse{}
	if err := copier.Copy(res, o); err != nil {
		return nil, errs.Wrap(err, "failed to build payment action response")
	}
	res.Kind = string(o.Kind)
	res.Status = string(o.Status)
	return res, nil
}

type CreateOrderResponse struct {
	ID            uuid.UUID              `json:"id"`
	Status        string                 `json:"status"`
	Pricing       PricingResponse        `json:"pricing"`
	PaymentAction *PaymentActionResponse `json:"payment_action,omitempty"`
}

func FromCreateOrderResult(r *commands.CreateOrderResult) (*CreateOrderResponse, error) {
	action, err := FromOutcome(r.Payment)
	if err != nil {
		return nil, err
	}
	res := &CreateOrderResponse{
		ID:            r.OrderID,
		Status:        r.Status.String(),
		Pricing:       FromPricing(r.Pricing),
		PaymentAction: action,
	}
	// the booking stands even when the hold failed
	if r.PaymentErr != nil {
		if res.PaymentAction == nil {
			res.PaymentAction = &PaymentActionResponse{Kind: "authorize", Status: "failed"}
		}
		res.PaymentAction.Error = paymentErrorCode(r.PaymentErr)
	}
	return res, nil
}

func paymentErrorCode(err error) string {
	switch {
	case errs.Is(err, settlement.ErrPaymentDeclined):
		return "payment_declined"
	case errs.Is(err, settlement.ErrGatewayUnavailable):
		return "payment_unavailable"
	default:
		return "payment_failed"
	}
}

// OrderStatusResponse is returned by commands that change an order.
type OrderStatusResponse struct {
	ID                      uuid.UUID       `json:"id"`
	ServiceType             string          `json:"service_type"`
	Status                  string          `json:"status"`
	Pricing                 PricingResponse `json:"pricing"`
	PaidAmount              int64           `json:"paid_amount"`
	RefundedAmount          int64           `json:"refunded_amount"`
	SlotStart               time.Time       `json:"slot_start"`
	SlotEnd                 time.Time       `json:"slot_end"`
	DeliverySlotStart       *time.Time      `json:"delivery_slot_start,omitempty"`
	DeliverySlotEnd         *time.Time      `json:"delivery_slot_end,omitempty"`
	CancelReason            string          `json:"cancel_reason,omitempty"`
	CancellationFee         int64           `json:"cancellation_fee,omitempty"`
	ManualPaymentRequired   bool            `json:"manual_payment_required"`
	ReauthorizationRequired bool            `json:"reauthorization_required"`
	Version                 int32           `json:"version"`
}

func FromOrder(o *order.Order) *OrderStatusResponse {
	res := &OrderStatusResponse{
		ID:                      o.ID(),
		ServiceType:             o.ServiceType().String(),
		Status:                  o.Status().String(),
		Pricing:                 FromPricing(o.Pricing()),
		PaidAmount:              o.PaidAmount().Cents(),
		RefundedAmount:          o.RefundedAmount().Cents(),
		SlotStart:               o.Slot().Window.Start(),
		SlotEnd:                 o.Slot().Window.End(),
		CancelReason:            o.CancelReason(),
		CancellationFee:         o.CancellationFee().Cents(),
		ManualPaymentRequired:   o.ManualPaymentRequired(),
		ReauthorizationRequired: o.ReauthorizationRequired(),
		Version:                 o.Version(),
	}
	if d := o.DeliverySlot(); d != nil {
		start, end := d.Start(), d.End()
		res.DeliverySlotStart = &start
		res.DeliverySlotEnd = &end
	}
	return res
}

type OrderResponse struct {
	queries.OrderView
}

func FromOrderView(v *queries.OrderView) (*OrderResponse, error) {
	res := &OrderResponse{}
	if err := copier.CopyWithOption(&res.OrderView, v, copier.Option{DeepCopy: true}); err != nil {
		return nil, errs.Wrap(err, "failed to build order response")
	}
	return res, nil
}

type OrderListResponse struct {
	Orders     []*OrderResponse `json:"orders"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func FromOrderViews(views []*queries.OrderView, next *queries.Cursor) (*OrderListResponse, error) {
	res := &OrderListResponse{Orders: make([]*OrderResponse, len(views))}
	for i, v := range views {
		o, err := FromOrderView(v)
		if err != nil {
			return nil, err
		}
		res.Orders[i] = o
	}
	if next != nil {
		res.NextCursor = next.After
	}
	return res, nil
}

type QuoteResponse struct {
	LineItems   []pricing.LineItem `json:"line_items"`
	Subtotal    int64              `json:"subtotal"`
	Tax         int64              `json:"tax"`
	DeliveryFee int64              `json:"delivery_fee"`
	Total       int64              `json:"total"`
}

func FromQuote(q pricing.Quote) (*QuoteResponse, error) {
	res := &QuoteResponse{}
	if err := copier.Copy(res, &q); err != nil {
		return nil, errs.Wrap(err, "failed to build quote response")
	}
	if res.LineItems == nil {
		res.LineItems = []pricing.LineItem{}
	}
	return res, nil
}

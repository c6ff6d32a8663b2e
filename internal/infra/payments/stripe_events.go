package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"freshfold/internal/domain/webhook"
	"freshfold/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"
	stripewebhook "github.com/stripe/stripe-go/v78/webhook"
)

const stripeSignatureHeader = "Stripe-Signature"

// StripeEventDecoder verifies Stripe-Signature and turns the event into a typed
// notification.
type StripeEventDecoder struct {
	secret    string
	tolerance time.Duration
}

func NewStripeEventDecoder(secret string, tolerance time.Duration) *StripeEventDecoder {
	if tolerance <= 0 {
		tolerance = stripewebhook.DefaultTolerance
	}
	return &StripeEventDecoder{secret: secret, tolerance: tolerance}
}

func (d *StripeEventDecoder) Source() webhook.Source { return webhook.SourceStripe }

func (d *StripeEventDecoder) Decode(_ context.Context, payload []byte, header http.Header) (webhook.Notification, error) {
	if err := stripewebhook.ValidatePayloadWithTolerance(payload, header.Get(stripeSignatureHeader), d.secret, d.tolerance); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "stripe signature check failed"), webhook.ErrInvalidSignature)
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "failed to parse stripe event"), webhook.ErrMalformedPayload)
	}
	if event.ID == "" || event.Data == nil {
		return nil, errs.Mark(errs.New("stripe event without id or data"), webhook.ErrMalformedPayload)
	}
	return decodeStripeEvent(event)
}

func decodeStripeEvent(event stripe.Event) (webhook.Notification, error) {
	meta := webhook.Meta{
		EventID:   event.ID,
		EventType: string(event.Type),
		Source:    webhook.SourceStripe,
		Created:   time.Unix(event.Created, 0).UTC(),
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentAmountCapturableUpdated:
		var pi stripe.PaymentIntent
		if err := unmarshalObject(event, &pi); err != nil {
			return nil, err
		}
		n := webhook.PaymentAuthorized{
			Meta:            meta,
			OrderID:         orderIDFromMetadata(pi.Metadata),
			AuthorizationID: pi.ID,
			AmountCents:     pi.AmountCapturable,
		}
		if pi.Customer != nil {
			n.CustomerID = pi.Customer.ID
		}
		if pi.PaymentMethod != nil {
			n.PaymentMethodID = pi.PaymentMethod.ID
		}
		return n, nil

	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := unmarshalObject(event, &pi); err != nil {
			return nil, err
		}
		n := webhook.PaymentCaptured{
			Meta:            meta,
			OrderID:         orderIDFromMetadata(pi.Metadata),
			PaymentIntentID: pi.ID,
			AmountCents:     pi.AmountReceived,
		}
		if ch := pi.LatestCharge; ch != nil {
			n.ChargeID = ch.ID
			n.ReceiptURL = ch.ReceiptURL
		}
		return n, nil

	case stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := unmarshalObject(event, &pi); err != nil {
			return nil, err
		}
		n := webhook.PaymentFailed{
			Meta:            meta,
			OrderID:         orderIDFromMetadata(pi.Metadata),
			PaymentIntentID: pi.ID,
		}
		if e := pi.LastPaymentError; e != nil {
			n.FailureCode = declineCode(e)
			n.FailureMessage = e.Msg
		}
		return n, nil

	case stripe.EventTypePaymentIntentCanceled:
		var pi stripe.PaymentIntent
		if err := unmarshalObject(event, &pi); err != nil {
			return nil, err
		}
		return webhook.PaymentCanceled{
			Meta:            meta,
			OrderID:         orderIDFromMetadata(pi.Metadata),
			PaymentIntentID: pi.ID,
			Reason:          string(pi.CancellationReason),
		}, nil

	case stripe.EventTypeChargeRefunded:
		var ch stripe.Charge
		if err := unmarshalObject(event, &ch); err != nil {
			return nil, err
		}
		return webhook.RefundIssued{
			Meta:               meta,
			OrderID:            orderIDFromMetadata(ch.Metadata),
			ChargeID:           ch.ID,
			RefundedTotalCents: ch.AmountRefunded,
			ChargeAmountCents:  ch.Amount,
			FullyRefunded:      ch.Refunded,
		}, nil

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := unmarshalObject(event, &sub); err != nil {
			return nil, err
		}
		return subscriptionNotification(meta, event.Type, &sub), nil

	default:
		return nil, errs.Mark(errs.Newf("stripe event %s", event.Type), webhook.ErrUnsupportedEvent)
	}
}

func subscriptionNotification(meta webhook.Meta, typ stripe.EventType, sub *stripe.Subscription) webhook.SubscriptionChanged {
	n := webhook.SubscriptionChanged{
		Meta:           meta,
		Kind:           webhook.SubscriptionUpdated,
		SubscriptionID: sub.ID,
		Status:         string(sub.Status),
	}
	switch typ {
	case stripe.EventTypeCustomerSubscriptionCreated:
		n.Kind = webhook.SubscriptionCreated
	case stripe.EventTypeCustomerSubscriptionDeleted:
		n.Kind = webhook.SubscriptionCanceled
	}
	if sub.Customer != nil {
		n.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		n.CurrentPeriodEnd = &end
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		n.PlanID = sub.Items.Data[0].Price.ID
	}
	if raw, ok := sub.Metadata["user_id"]; ok {
		if id, err := uuid.Parse(raw); err == nil {
			n.UserID = &id
		}
	}
	return n
}

func unmarshalObject(event stripe.Event, v any) error {
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return errs.Mark(errs.Wrapf(err, "failed to decode %s", event.Type), webhook.ErrMalformedPayload)
	}
	return nil
}

// orderIDFromMetadata returns uuid.Nil when the object was not created by this
// service. The ingester acknowledges those with a warning.
func orderIDFromMetadata(md map[string]string) uuid.UUID {
	id, err := uuid.Parse(md["order_id"])
	if err != nil {
		return uuid.Nil
	}
	return id
}

package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"freshfold/internal/domain/webhook"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/mercadopago/sdk-go/pkg/payment"
)

const (
	mpSignatureHeader = "X-Signature"
	mpRequestIDHeader = "X-Request-Id"
)

// mpNotification is the body Mercado Pago posts. It only names the resource;
// the payment itself is fetched from the API.
type mpNotification struct {
	ID          json.Number `json:"id"`
	Type        string      `json:"type"`
	Action      string      `json:"action"`
	DateCreated string      `json:"date_created"`
	Data        struct {
		ID string `json:"id"`
	} `json:"data"`
}

// MercadoPagoEventDecoder checks x-signature and resolves payment notifications
// into typed notifications.
type MercadoPagoEventDecoder struct {
	secret    string
	tolerance time.Duration
	payments  mpPaymentAPI
	clock     clock.Clock
}

func NewMercadoPagoEventDecoder(secret string, tolerance time.Duration, gw *MercadoPagoGateway, clk clock.Clock) *MercadoPagoEventDecoder {
	return newMercadoPagoEventDecoder(secret, tolerance, gw.payments, clk)
}

func newMercadoPagoEventDecoder(secret string, tolerance time.Duration, payments mpPaymentAPI, clk clock.Clock) *MercadoPagoEventDecoder {
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &MercadoPagoEventDecoder{secret: secret, tolerance: tolerance, payments: payments, clock: clk}
}

func (d *MercadoPagoEventDecoder) Source() webhook.Source { return webhook.SourceMercadoPago }

func (d *MercadoPagoEventDecoder) Decode(ctx context.Context, payload []byte, header http.Header) (webhook.Notification, error) {
	var n mpNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "failed to decode mercadopago notification"), webhook.ErrMalformedPayload)
	}
	if n.Data.ID == "" || n.ID == "" {
		return nil, errs.Mark(errs.New("mercadopago notification without id"), webhook.ErrMalformedPayload)
	}
	if err := d.verify(n.Data.ID, header); err != nil {
		return nil, err
	}
	if n.Type != "payment" {
		return nil, errs.Mark(errs.Newf("mercadopago notification %s", n.Type), webhook.ErrUnsupportedEvent)
	}

	id, err := strconv.Atoi(n.Data.ID)
	if err != nil {
		return nil, errs.Mark(errs.Wrapf(err, "invalid payment id %q", n.Data.ID), webhook.ErrMalformedPayload)
	}
	p, err := d.payments.Get(ctx, id)
	if err != nil {
		return nil, errs.Wrapf(err, "failed to fetch mercadopago payment %d", id)
	}

	meta := webhook.Meta{
		EventID:   "mp_" + n.ID.String(),
		EventType: n.Action,
		Source:    webhook.SourceMercadoPago,
		Created:   d.clock.Now(),
	}
	if t, err := time.Parse(time.RFC3339, n.DateCreated); err == nil {
		meta.Created = t.UTC()
	}
	return notificationFromPayment(meta, p)
}

// verify checks the "ts=<unix>,v1=<hex>" header against the HMAC of
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
func (d *MercadoPagoEventDecoder) verify(dataID string, header http.Header) error {
	var ts, sig string
	for _, part := range strings.Split(header.Get(mpSignatureHeader), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return errs.Mark(errs.New("mercadopago signature header is incomplete"), webhook.ErrInvalidSignature)
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errs.Mark(errs.Wrap(err, "invalid mercadopago signature timestamp"), webhook.ErrInvalidSignature)
	}
	signedAt := time.Unix(unix, 0)
	if unix > 1e12 {
		signedAt = time.UnixMilli(unix)
	}
	if age := d.clock.Now().Sub(signedAt); age > d.tolerance || age < -d.tolerance {
		return errs.Mark(errs.Newf("mercadopago signature is %s old", age), webhook.ErrInvalidSignature)
	}

	manifest := "id:" + strings.ToLower(dataID) + ";request-id:" + header.Get(mpRequestIDHeader) + ";ts:" + ts + ";"
	mac := hmac.New(sha256.New, []byte(d.secret))
	mac.Write([]byte(manifest))
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(sig))) {
		return errs.Mark(errs.New("mercadopago signature mismatch"), webhook.ErrInvalidSignature)
	}
	return nil
}

func notificationFromPayment(meta webhook.Meta, p *payment.Response) (webhook.Notification, error) {
	ref := strconv.Itoa(p.ID)
	orderID := orderIDFromReference(p.ExternalReference)

	switch {
	case p.Status == mpStatusRefunded || (p.Status == mpStatusApproved && p.TransactionAmountRefunded > 0):
		refunded := toMinor(p.TransactionAmountRefunded)
		total := toMinor(p.TransactionAmount)
		return webhook.RefundIssued{
			Meta:               meta,
			OrderID:            orderID,
			ChargeID:           ref,
			RefundedTotalCents: refunded,
			ChargeAmountCents:  total,
			FullyRefunded:      p.Status == mpStatusRefunded || refunded >= total,
		}, nil
	case p.Status == mpStatusApproved:
		return webhook.PaymentCaptured{
			Meta:            meta,
			OrderID:         orderID,
			PaymentIntentID: ref,
			ChargeID:        ref,
			AmountCents:     toMinor(p.TransactionAmount),
		}, nil
	case p.Status == mpStatusAuthorized:
		return webhook.PaymentAuthorized{
			Meta:            meta,
			OrderID:         orderID,
			AuthorizationID: ref,
			AmountCents:     toMinor(p.TransactionAmount),
		}, nil
	case p.Status == mpStatusRejected:
		return webhook.PaymentFailed{
			Meta:            meta,
			OrderID:         orderID,
			PaymentIntentID: ref,
			FailureCode:     p.StatusDetail,
			FailureMessage:  "payment rejected",
		}, nil
	case p.Status == mpStatusCancelled:
		return webhook.PaymentCanceled{
			Meta:            meta,
			OrderID:         orderID,
			PaymentIntentID: ref,
			Reason:          p.StatusDetail,
		}, nil
	default:
		// Pending payments are redelivered by Mercado Pago until they settle.
		return nil, errs.Mark(errs.Newf("mercadopago payment %d is %s", p.ID, p.Status), webhook.ErrUnsupportedEvent)
	}
}

// orderIDFromReference reads the order id from an idempotency key
// ("<order-id>:<kind>:<epoch>").
func orderIDFromReference(ref string) uuid.UUID {
	head, _, _ := strings.Cut(ref, ":")
	id, err := uuid.Parse(head)
	if err != nil {
		return uuid.Nil
	}
	return id
}

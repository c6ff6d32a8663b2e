// Package payments adapts payment processors to the settlement gateway port.
package payments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/settlement"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

const ProviderStripe = "stripe"

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Capture(id string, params *stripe.PaymentIntentCaptureParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

var _ settlement.Gateway = (*StripeGateway)(nil)

// StripeGateway runs settlement calls against PaymentIntents. Every call carries
// the attempt's idempotency key, so a replay returns the first response.
type StripeGateway struct {
	intents stripeIntentAPI
	refunds stripeRefundAPI
	logger  *slog.Logger
}

func NewStripeGateway(secretKey string, logger *slog.Logger) (*StripeGateway, error) {
	key := strings.TrimSpace(secretKey)
	if key == "" {
		return nil, errs.New("stripe: secret key is required")
	}
	sc := client.New(key, nil)
	return newStripeGateway(sc.PaymentIntents, sc.Refunds, logger), nil
}

func newStripeGateway(intents stripeIntentAPI, refunds stripeRefundAPI, logger *slog.Logger) *StripeGateway {
	return &StripeGateway{intents: intents, refunds: refunds, logger: logger}
}

func (g *StripeGateway) Name() string { return ProviderStripe }

func (g *StripeGateway) Authorize(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	params := g.intentParams(ctx, req)
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := g.intents.New(params)
	if err != nil {
		return settlement.Result{}, classifyStripeErr(err)
	}
	g.log(ctx, "Stripe authorization created", req, pi)
	return resultFromIntent(pi)
}

// Charge confirms an off-session automatic-capture intent with the saved method.
func (g *StripeGateway) Charge(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	params := g.intentParams(ctx, req)
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic))
	params.OffSession = stripe.Bool(true)
	pi, err := g.intents.New(params)
	if err != nil {
		return settlement.Result{}, classifyStripeErr(err)
	}
	g.log(ctx, "Stripe charge created", req, pi)
	return resultFromIntent(pi)
}

func (g *StripeGateway) Capture(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	params := &stripe.PaymentIntentCaptureParams{
		AmountToCapture: stripe.Int64(req.Amount),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddExpand("latest_charge")
	pi, err := g.intents.Capture(req.ProviderRef, params)
	if err != nil {
		return settlement.Result{}, classifyStripeErr(err)
	}
	g.log(ctx, "Stripe authorization captured", req, pi)
	return resultFromIntent(pi)
}

func (g *StripeGateway) Refund(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	params := &stripe.RefundParams{
		Amount: stripe.Int64(req.Amount),
		Reason: stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if strings.HasPrefix(req.ProviderRef, "pi_") {
		params.PaymentIntent = stripe.String(req.ProviderRef)
	} else {
		params.Charge = stripe.String(req.ProviderRef)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("order_id", req.OrderID.String())
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}
	r, err := g.refunds.New(params)
	if err != nil {
		return settlement.Result{}, classifyStripeErr(err)
	}
	if r.Status == stripe.RefundStatusFailed || r.Status == stripe.RefundStatusCanceled {
		return settlement.Result{}, &settlement.DeclineError{Code: "refund_" + string(r.Status), Message: string(r.FailureReason)}
	}
	g.logger.InfoContext(ctx, "Stripe refund created",
		slog.String("order_id", req.OrderID.String()),
		slog.String("refund_id", r.ID),
		slog.String("idempotency_key", req.IdempotencyKey))
	return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: r.ID, Amount: r.Amount}, nil
}

func (g *StripeGateway) Void(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	pi, err := g.intents.Cancel(req.ProviderRef, params)
	if err != nil {
		return settlement.Result{}, classifyStripeErr(err)
	}
	g.log(ctx, "Stripe authorization voided", req, pi)
	return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: pi.ID}, nil
}

// Confirm reads the intent after the customer finished authentication client side.
func (g *StripeGateway) Confirm(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	pi, err := g.intents.Get(req.ProviderRef, params)
	if err != nil {
		return settlement.Result{}, classifyStripeErr(err)
	}
	g.log(ctx, "Stripe intent confirmed", req, pi)
	return resultFromIntent(pi)
}

func (g *StripeGateway) intentParams(ctx context.Context, req settlement.Request) *stripe.PaymentIntentParams {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod:      stripe.String(req.PaymentMethodID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("order_id", req.OrderID.String())
	params.AddExpand("latest_charge")
	return params
}

func (g *StripeGateway) log(ctx context.Context, msg string, req settlement.Request, pi *stripe.PaymentIntent) {
	g.logger.InfoContext(ctx, msg,
		slog.String("order_id", req.OrderID.String()),
		slog.String("payment_intent", pi.ID),
		slog.String("status", string(pi.Status)),
		slog.String("idempotency_key", req.IdempotencyKey))
}

func resultFromIntent(pi *stripe.PaymentIntent) (settlement.Result, error) {
	res := settlement.Result{ProviderRef: pi.ID}
	switch pi.Status {
	case stripe.PaymentIntentStatusRequiresCapture:
		res.Status = settlement.ResultSucceeded
		res.Amount = pi.AmountCapturable
	case stripe.PaymentIntentStatusSucceeded:
		res.Status = settlement.ResultSucceeded
		res.Amount = pi.AmountReceived
		if ch := pi.LatestCharge; ch != nil {
			res.ChargeID = ch.ID
			res.ReceiptURL = ch.ReceiptURL
		}
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		res.Status = settlement.ResultRequiresAction
		res.ClientSecret = pi.ClientSecret
	case stripe.PaymentIntentStatusProcessing:
		// The outcome arrives by webhook. Until then the attempt waits for a retry.
		return settlement.Result{}, errs.Mark(errs.Newf("payment intent %s is processing", pi.ID), settlement.ErrGatewayUnavailable)
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		code, msg := "declined", "payment method was not accepted"
		if e := pi.LastPaymentError; e != nil {
			code, msg = declineCode(e), e.Msg
		}
		return settlement.Result{}, &settlement.DeclineError{Code: code, Message: msg}
	default:
		return settlement.Result{}, errs.Newf("unexpected payment intent status %q", pi.Status)
	}
	return res, nil
}

// classifyStripeErr maps processor failures onto the settlement taxonomy. Errors
// without a Stripe body are network failures and safe to replay.
func classifyStripeErr(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return errs.Mark(errs.Wrap(err, "stripe request failed"), settlement.ErrGatewayUnavailable)
	}
	switch {
	case se.Code == stripe.ErrorCodeChargeExpiredForCapture:
		return errs.Mark(errs.Wrap(err, "stripe authorization expired"), settlement.ErrAuthorizationExpired)
	case se.Type == stripe.ErrorTypeCard:
		return &settlement.DeclineError{Code: declineCode(se), Message: se.Msg}
	case se.HTTPStatusCode == http.StatusTooManyRequests,
		se.HTTPStatusCode >= http.StatusInternalServerError,
		se.Type == stripe.ErrorTypeAPI:
		return errs.Mark(errs.Wrap(err, "stripe unavailable"), settlement.ErrGatewayUnavailable)
	default:
		return errs.Wrap(err, "stripe rejected the request")
	}
}

func declineCode(e *stripe.Error) string {
	if e.DeclineCode != "" {
		return string(e.DeclineCode)
	}
	if e.Code != "" {
		return string(e.Code)
	}
	return "declined"
}

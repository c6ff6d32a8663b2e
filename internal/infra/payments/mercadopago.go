package payments

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/settlement"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/refund"
)

const ProviderMercadoPago = "mercadopago"

const (
	mpStatusApproved   = "approved"
	mpStatusAuthorized = "authorized"
	mpStatusPending    = "pending"
	mpStatusInProcess  = "in_process"
	mpStatusRejected   = "rejected"
	mpStatusCancelled  = "cancelled"
	mpStatusRefunded   = "refunded"
)

type mpPaymentAPI interface {
	Create(ctx context.Context, request payment.Request) (*payment.Response, error)
	Search(ctx context.Context, request payment.SearchRequest) (*payment.SearchResponse, error)
	Get(ctx context.Context, id int) (*payment.Response, error)
	Cancel(ctx context.Context, id int) (*payment.Response, error)
	CaptureAmount(ctx context.Context, id int, amount float64) (*payment.Response, error)
}

type mpRefundAPI interface {
	CreatePartialRefund(ctx context.Context, paymentID int, amount float64) (*refund.Response, error)
}

var _ settlement.Gateway = (*MercadoPagoGateway)(nil)

// MercadoPagoGateway settles orders through the Mercado Pago payments API.
// Payments carry the attempt's idempotency key as external_reference, and a
// charge first searches for it so a replay never creates a second payment.
type MercadoPagoGateway struct {
	payments mpPaymentAPI
	refunds  mpRefundAPI
	logger   *slog.Logger
}

func NewMercadoPagoGateway(accessToken string, logger *slog.Logger) (*MercadoPagoGateway, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, errs.New("mercadopago: access token is required")
	}
	cfg, err := config.New(token)
	if err != nil {
		return nil, errs.Wrap(err, "mercadopago: failed to create sdk config")
	}
	return newMercadoPagoGateway(payment.NewClient(cfg), refund.NewClient(cfg), logger), nil
}

func newMercadoPagoGateway(payments mpPaymentAPI, refunds mpRefundAPI, logger *slog.Logger) *MercadoPagoGateway {
	return &MercadoPagoGateway{payments: payments, refunds: refunds, logger: logger}
}

func (g *MercadoPagoGateway) Name() string { return ProviderMercadoPago }

// Authorize is not offered: the SDK creates every card payment captured.
func (g *MercadoPagoGateway) Authorize(_ context.Context, req settlement.Request) (settlement.Result, error) {
	return settlement.Result{}, errs.Newf("mercadopago: authorization holds are not supported (order %s)", req.OrderID)
}

func (g *MercadoPagoGateway) Charge(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	existing, err := g.findByReference(ctx, req.IdempotencyKey)
	if err != nil {
		return settlement.Result{}, err
	}
	if existing != nil {
		g.log(ctx, "Mercado Pago payment replayed", req, existing)
		return resultFromPayment(existing)
	}

	p, err := g.payments.Create(ctx, payment.Request{
		TransactionAmount: toMajor(req.Amount),
		Token:             req.PaymentMethodID,
		Installments:      1,
		ExternalReference: req.IdempotencyKey,
		Description:       "order " + req.OrderID.String(),
		Payer:             &payment.PayerRequest{Type: "customer", ID: req.CustomerID},
		Metadata:          map[string]any{"order_id": req.OrderID.String()},
	})
	if err != nil {
		// The search above makes the replay safe.
		return settlement.Result{}, errs.Mark(errs.Wrap(err, "mercadopago payment request failed"), settlement.ErrGatewayUnavailable)
	}
	g.log(ctx, "Mercado Pago payment created", req, p)
	return resultFromPayment(p)
}

func (g *MercadoPagoGateway) Capture(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	id, err := paymentID(req.ProviderRef)
	if err != nil {
		return settlement.Result{}, err
	}
	p, err := g.payments.CaptureAmount(ctx, id, toMajor(req.Amount))
	if err != nil {
		return settlement.Result{}, errs.Mark(errs.Wrap(err, "mercadopago capture failed"), settlement.ErrGatewayUnavailable)
	}
	g.log(ctx, "Mercado Pago payment captured", req, p)
	return resultFromPayment(p)
}

// Refund is not replayed on failure: Mercado Pago refunds carry no caller key.
func (g *MercadoPagoGateway) Refund(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	id, err := paymentID(req.ProviderRef)
	if err != nil {
		return settlement.Result{}, err
	}
	r, err := g.refunds.CreatePartialRefund(ctx, id, toMajor(req.Amount))
	if err != nil {
		return settlement.Result{}, errs.Wrap(err, "mercadopago refund failed")
	}
	if r.Status == mpStatusRejected || r.Status == mpStatusCancelled {
		return settlement.Result{}, &settlement.DeclineError{Code: "refund_" + r.Status, Message: "refund was not accepted"}
	}
	g.logger.InfoContext(ctx, "Mercado Pago refund created",
		slog.String("order_id", req.OrderID.String()),
		slog.Int("refund_id", r.ID),
		slog.String("idempotency_key", req.IdempotencyKey))
	return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: strconv.Itoa(r.ID), Amount: toMinor(r.Amount)}, nil
}

func (g *MercadoPagoGateway) Void(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	id, err := paymentID(req.ProviderRef)
	if err != nil {
		return settlement.Result{}, err
	}
	p, err := g.payments.Cancel(ctx, id)
	if err != nil {
		return settlement.Result{}, errs.Mark(errs.Wrap(err, "mercadopago cancel failed"), settlement.ErrGatewayUnavailable)
	}
	g.log(ctx, "Mercado Pago payment cancelled", req, p)
	return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: strconv.Itoa(p.ID)}, nil
}

func (g *MercadoPagoGateway) Confirm(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	id, err := paymentID(req.ProviderRef)
	if err != nil {
		return settlement.Result{}, err
	}
	p, err := g.payments.Get(ctx, id)
	if err != nil {
		return settlement.Result{}, errs.Mark(errs.Wrap(err, "mercadopago lookup failed"), settlement.ErrGatewayUnavailable)
	}
	return resultFromPayment(p)
}

func (g *MercadoPagoGateway) findByReference(ctx context.Context, ref string) (*payment.Response, error) {
	res, err := g.payments.Search(ctx, payment.SearchRequest{
		Limit:   1,
		Filters: map[string]string{"external_reference": ref},
	})
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "mercadopago payment search failed"), settlement.ErrGatewayUnavailable)
	}
	if res == nil || len(res.Results) == 0 {
		return nil, nil
	}
	p := res.Results[0]
	return &p, nil
}

func (g *MercadoPagoGateway) log(ctx context.Context, msg string, req settlement.Request, p *payment.Response) {
	g.logger.InfoContext(ctx, msg,
		slog.String("order_id", req.OrderID.String()),
		slog.Int("payment_id", p.ID),
		slog.String("status", p.Status),
		slog.String("idempotency_key", req.IdempotencyKey))
}

func resultFromPayment(p *payment.Response) (settlement.Result, error) {
	ref := strconv.Itoa(p.ID)
	switch p.Status {
	case mpStatusApproved:
		return settlement.Result{
			Status:      settlement.ResultSucceeded,
			ProviderRef: ref,
			ChargeID:    ref,
			Amount:      toMinor(p.TransactionAmount),
		}, nil
	case mpStatusAuthorized:
		return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: ref, Amount: toMinor(p.TransactionAmount)}, nil
	case mpStatusPending, mpStatusInProcess:
		return settlement.Result{}, errs.Mark(errs.Newf("mercadopago payment %d is %s", p.ID, p.Status), settlement.ErrGatewayUnavailable)
	case mpStatusRejected, mpStatusCancelled:
		code := p.StatusDetail
		if code == "" {
			code = p.Status
		}
		return settlement.Result{}, &settlement.DeclineError{Code: code, Message: "payment " + p.Status}
	default:
		return settlement.Result{}, errs.Newf("unexpected mercadopago payment status %q", p.Status)
	}
}

func paymentID(ref string) (int, error) {
	id, err := strconv.Atoi(ref)
	if err != nil {
		return 0, errs.Wrapf(err, "invalid mercadopago payment reference %q", ref)
	}
	return id, nil
}

// Mercado Pago amounts are decimal major units.
func toMajor(cents int64) float64 { return float64(cents) / 100 }

func toMinor(amount float64) int64 { return int64(math.Round(amount * 100)) }

//go:build unit || e2e

package fakegateway

import (
	"context"
	"sync"

	"freshfold/internal/usecase/settlement"
)

// DeclinedMethod is the payment method id the fake always declines.
const DeclinedMethod = "pm_card_declined"

// Gateway is an in-process processor that settles everything except DeclinedMethod.
// Replayed idempotency keys return the first result.
type Gateway struct {
	mu      sync.Mutex
	results map[string]settlement.Result
	Calls   []Call
}

type Call struct {
	Op      string
	Request settlement.Request
}

func New() *Gateway {
	return &Gateway{results: make(map[string]settlement.Result)}
}

func (g *Gateway) Name() string { return "stripe" }

func (g *Gateway) Authorize(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	return g.do("authorize", req, "pi_")
}

func (g *Gateway) Capture(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	return g.do("capture", req, "pi_")
}

func (g *Gateway) Charge(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	return g.do("charge", req, "pi_")
}

func (g *Gateway) Refund(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	return g.do("refund", req, "re_")
}

func (g *Gateway) Void(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	return g.do("void", req, "pi_")
}

func (g *Gateway) Confirm(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	return g.do("confirm", req, "pi_")
}

// CallsOf returns the recorded calls for one operation.
func (g *Gateway) CallsOf(op string) []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Call
	for _, c := range g.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (g *Gateway) do(op string, req settlement.Request, prefix string) (settlement.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Calls = append(g.Calls, Call{Op: op, Request: req})
	if res, ok := g.results[req.IdempotencyKey]; ok {
		return res, nil
	}
	if req.PaymentMethodID == DeclinedMethod && op != "refund" && op != "void" {
		return settlement.Result{}, &settlement.DeclineError{Code: "card_declined", Message: "Your card was declined."}
	}

	ref := req.ProviderRef
	if ref == "" || op == "refund" {
		ref = prefix + req.IdempotencyKey
	}
	res := settlement.Result{
		Status:      settlement.ResultSucceeded,
		ProviderRef: ref,
		ChargeID:    "ch_" + req.IdempotencyKey,
		Amount:      req.Amount,
	}
	g.results[req.IdempotencyKey] = res
	return res, nil
}

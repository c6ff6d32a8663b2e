//go:build unit

package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"freshfold/internal/domain/webhook"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/settlement"

	"github.com/google/uuid"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/refund"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMPPayments struct {
	created  *payment.Request
	found    []payment.Response
	payment  *payment.Response
	err      error
	captured float64
}

func (f *fakeMPPayments) Create(_ context.Context, req payment.Request) (*payment.Response, error) {
	f.created = &req
	return f.payment, f.err
}

func (f *fakeMPPayments) Search(context.Context, payment.SearchRequest) (*payment.SearchResponse, error) {
	return &payment.SearchResponse{Results: f.found}, nil
}

func (f *fakeMPPayments) Get(context.Context, int) (*payment.Response, error) {
	return f.payment, f.err
}

func (f *fakeMPPayments) Cancel(context.Context, int) (*payment.Response, error) {
	return f.payment, f.err
}

func (f *fakeMPPayments) CaptureAmount(_ context.Context, _ int, amount float64) (*payment.Response, error) {
	f.captured = amount
	return f.payment, f.err
}

type fakeMPRefunds struct {
	amount float64
	resp   *refund.Response
	err    error
}

func (f *fakeMPRefunds) CreatePartialRefund(_ context.Context, _ int, amount float64) (*refund.Response, error) {
	f.amount = amount
	return f.resp, f.err
}

func TestMercadoPagoGateway_Charge(t *testing.T) {
	orderID := uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	req := settlement.Request{
		IdempotencyKey:  orderID.String() + ":charge:1",
		OrderID:         orderID,
		Amount:          4306,
		Currency:        "BRL",
		CustomerID:      "123-abc",
		PaymentMethodID: "card_token",
	}

	t.Run("approved", func(t *testing.T) {
		api := &fakeMPPayments{payment: &payment.Response{ID: 991, Status: "approved", TransactionAmount: 43.06}}
		g := newMercadoPagoGateway(api, &fakeMPRefunds{}, discard())

		got, err := g.Charge(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, api.created)
		assert.Equal(t, req.IdempotencyKey, api.created.ExternalReference)
		assert.InDelta(t, 43.06, api.created.TransactionAmount, 0.001)
		assert.Equal(t, settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "991", ChargeID: "991", Amount: 4306}, got)
	})

	t.Run("replay returns the existing payment", func(t *testing.T) {
		api := &fakeMPPayments{found: []payment.Response{{ID: 991, Status: "approved", TransactionAmount: 43.06}}}
		g := newMercadoPagoGateway(api, &fakeMPRefunds{}, discard())

		got, err := g.Charge(context.Background(), req)
		require.NoError(t, err)
		assert.Nil(t, api.created)
		assert.Equal(t, "991", got.ProviderRef)
	})

	t.Run("rejected is a decline", func(t *testing.T) {
		api := &fakeMPPayments{payment: &payment.Response{ID: 992, Status: "rejected", StatusDetail: "cc_rejected_insufficient_amount"}}
		g := newMercadoPagoGateway(api, &fakeMPRefunds{}, discard())

		_, err := g.Charge(context.Background(), req)
		var de *settlement.DeclineError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "cc_rejected_insufficient_amount", de.Code)
	})

	t.Run("in process is transient", func(t *testing.T) {
		api := &fakeMPPayments{payment: &payment.Response{ID: 993, Status: "in_process"}}
		g := newMercadoPagoGateway(api, &fakeMPRefunds{}, discard())

		_, err := g.Charge(context.Background(), req)
		assert.True(t, errs.Is(err, settlement.ErrGatewayUnavailable))
	})

	t.Run("transport failure is transient", func(t *testing.T) {
		api := &fakeMPPayments{err: errors.New("connection reset")}
		g := newMercadoPagoGateway(api, &fakeMPRefunds{}, discard())

		_, err := g.Charge(context.Background(), req)
		assert.True(t, errs.Is(err, settlement.ErrGatewayUnavailable))
	})
}

func TestMercadoPagoGateway_Refund(t *testing.T) {
	t.Run("partial refund", func(t *testing.T) {
		refunds := &fakeMPRefunds{resp: &refund.Response{ID: 55, Amount: 10, Status: "approved"}}
		g := newMercadoPagoGateway(&fakeMPPayments{}, refunds, discard())

		got, err := g.Refund(context.Background(), settlement.Request{ProviderRef: "991", Amount: 1000})
		require.NoError(t, err)
		assert.InDelta(t, 10.0, refunds.amount, 0.001)
		assert.Equal(t, settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "55", Amount: 1000}, got)
	})

	t.Run("failure is not replayed", func(t *testing.T) {
		g := newMercadoPagoGateway(&fakeMPPayments{}, &fakeMPRefunds{err: errors.New("timeout")}, discard())

		_, err := g.Refund(context.Background(), settlement.Request{ProviderRef: "991", Amount: 1000})
		require.Error(t, err)
		assert.False(t, errs.Is(err, settlement.ErrGatewayUnavailable))
	})

	t.Run("bad reference", func(t *testing.T) {
		g := newMercadoPagoGateway(&fakeMPPayments{}, &fakeMPRefunds{}, discard())

		_, err := g.Refund(context.Background(), settlement.Request{ProviderRef: "ch_1", Amount: 1000})
		assert.ErrorContains(t, err, "invalid mercadopago payment reference")
	})
}

func TestMercadoPagoGateway_AuthorizeUnsupported(t *testing.T) {
	g := newMercadoPagoGateway(&fakeMPPayments{}, &fakeMPRefunds{}, discard())
	_, err := g.Authorize(context.Background(), settlement.Request{})
	assert.ErrorContains(t, err, "not supported")
}

func TestMercadoPagoEventDecoder(t *testing.T) {
	const secret = "mp_secret"
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	orderID := uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	body := []byte(`{"id":12345,"type":"payment","action":"payment.updated","date_created":"2025-06-02T08:59:58Z","data":{"id":"991"}}`)

	sign := func(ts time.Time, secret string) http.Header {
		tsStr := strconv.FormatInt(ts.Unix(), 10)
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte("id:991;request-id:req-1;ts:" + tsStr + ";"))
		h := http.Header{}
		h.Set("X-Signature", "ts="+tsStr+",v1="+hex.EncodeToString(mac.Sum(nil)))
		h.Set("X-Request-Id", "req-1")
		return h
	}

	newDecoder := func(p *payment.Response) *MercadoPagoEventDecoder {
		return newMercadoPagoEventDecoder(secret, 5*time.Minute, &fakeMPPayments{payment: p}, clock.NewMockClock(now))
	}

	cases := []struct {
		name  string
		p     *payment.Response
		check func(t *testing.T, n webhook.Notification)
	}{
		{
			name: "approved payment is a capture",
			p:    &payment.Response{ID: 991, Status: "approved", TransactionAmount: 43.06, ExternalReference: orderID.String() + ":charge:1"},
			check: func(t *testing.T, n webhook.Notification) {
				c, ok := n.(webhook.PaymentCaptured)
				require.True(t, ok)
				assert.Equal(t, "mp_12345", c.EventID)
				assert.Equal(t, orderID, c.OrderID)
				assert.Equal(t, int64(4306), c.AmountCents)
				assert.Equal(t, now.Add(-2*time.Second), c.Created)
			},
		},
		{
			name: "partial refund carries the cumulative total",
			p:    &payment.Response{ID: 991, Status: "approved", TransactionAmount: 43.06, TransactionAmountRefunded: 20, ExternalReference: orderID.String() + ":charge:1"},
			check: func(t *testing.T, n webhook.Notification) {
				r, ok := n.(webhook.RefundIssued)
				require.True(t, ok)
				assert.Equal(t, int64(2000), r.RefundedTotalCents)
				assert.False(t, r.FullyRefunded)
			},
		},
		{
			name: "rejected payment",
			p:    &payment.Response{ID: 991, Status: "rejected", StatusDetail: "cc_rejected_other_reason", ExternalReference: orderID.String() + ":charge:2"},
			check: func(t *testing.T, n webhook.Notification) {
				f, ok := n.(webhook.PaymentFailed)
				require.True(t, ok)
				assert.Equal(t, "cc_rejected_other_reason", f.FailureCode)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := newDecoder(tc.p).Decode(context.Background(), body, sign(now, secret))
			require.NoError(t, err)
			tc.check(t, n)
		})
	}

	t.Run("wrong secret", func(t *testing.T) {
		_, err := newDecoder(nil).Decode(context.Background(), body, sign(now, "other"))
		assert.True(t, errs.Is(err, webhook.ErrInvalidSignature))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		_, err := newDecoder(nil).Decode(context.Background(), body, sign(now.Add(-10*time.Minute), secret))
		assert.True(t, errs.Is(err, webhook.ErrInvalidSignature))
	})

	t.Run("pending payment is not settled yet", func(t *testing.T) {
		_, err := newDecoder(&payment.Response{ID: 991, Status: "pending"}).Decode(context.Background(), body, sign(now, secret))
		assert.True(t, errs.Is(err, webhook.ErrUnsupportedEvent))
	})

	t.Run("garbage body", func(t *testing.T) {
		_, err := newDecoder(nil).Decode(context.Background(), []byte("{"), sign(now, secret))
		assert.True(t, errs.Is(err, webhook.ErrMalformedPayload))
	})
}

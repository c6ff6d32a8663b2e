//go:build unit

package settlement_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"freshfold/internal/domain/order"
	"freshfold/internal/domain/payment"
	"freshfold/internal/domain/webhook"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/usecase/settlement"
	"freshfold/internal/usecase/shared"
	"freshfold/tests/common/builder"
	"freshfold/tests/common/memstore"
	settlementmock "freshfold/tests/mock/settlement"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type SagaTestSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	gateway *settlementmock.MockGateway
	store   *memstore.Store
	clock   *clock.MockClock
	saga    settlement.Saga
}

func (s *SagaTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.gateway = settlementmock.NewMockGateway(s.ctrl)
	s.gateway.EXPECT().Name().Return("stripe").AnyTimes()
	s.store = memstore.New()
	s.clock = clock.NewMockClock(builder.BaseTime.Add(72 * time.Hour))
	s.saga = settlement.NewSaga(s.store, s.gateway, s.clock, settlement.Config{
		Currency:          "usd",
		Timeout:           time.Second,
		MaxChargeAttempts: 3,
		RetryBaseDelay:    time.Minute,
		RetryMaxDelay:     time.Hour,
		InlineRetries:     0,
		BatchSize:         10,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSagaSuite(t *testing.T) {
	suite.Run(t, new(SagaTestSuite))
}

func (s *SagaTestSuite) seed(o *order.Order) *order.Order {
	s.store.PutOrder(o)
	return o
}

func (s *SagaTestSuite) jobsOf(kind string) int {
	n := 0
	for _, j := range s.store.Jobs() {
		if j.Kind == kind {
			n++
		}
	}
	return n
}

func (s *SagaTestSuite) TestDeferredCharge() {
	s.Run("success moves the order to paid_processing", func() {
		o := s.seed(builder.NewOrderBuilder().
			WithPaymentMethod("cus_1", "pm_card").
			MustBuildAt(order.StatusAwaitingPayment))
		total := o.Pricing().Total().Cents()

		s.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
				s.Equal(payment.IdempotencyKey(o.ID(), payment.KindCharge, 1), req.IdempotencyKey)
				s.Equal(total, req.Amount)
				s.Equal("pm_card", req.PaymentMethodID)
				return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_1", ChargeID: "ch_1", Amount: total}, nil
			})

		out, err := s.saga.Charge(s.ctx, o.ID())
		s.Require().NoError(err)
		s.Equal(payment.StatusSucceeded, out.Status)

		stored := s.store.Order(o.ID())
		s.Equal(order.StatusPaidProcessing, stored.Status())
		s.Equal(total, stored.PaidAmount().Cents())
		s.NotNil(stored.PaidAt())
		s.Equal("ch_1", stored.Payment().ChargeID)
		s.Equal(1, s.jobsOf(shared.NotifyPaymentSucceeded))

		_, err = s.saga.Charge(s.ctx, o.ID())
		s.ErrorIs(err, settlement.ErrAlreadyPaid)
	})

	s.Run("declines advance the epoch until manual payment is required", func() {
		o := s.seed(builder.NewOrderBuilder().
			WithPaymentMethod("cus_1", "pm_declined").
			MustBuildAt(order.StatusAwaitingPayment))

		var keys []string
		s.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
				keys = append(keys, req.IdempotencyKey)
				return settlement.Result{}, &settlement.DeclineError{Code: "card_declined", Message: "insufficient funds"}
			}).Times(3)

		for i := 0; i < 3; i++ {
			_, err := s.saga.Charge(s.ctx, o.ID())
			s.Require().ErrorIs(err, settlement.ErrPaymentDeclined)
		}

		s.Equal([]string{
			payment.IdempotencyKey(o.ID(), payment.KindCharge, 1),
			payment.IdempotencyKey(o.ID(), payment.KindCharge, 2),
			payment.IdempotencyKey(o.ID(), payment.KindCharge, 3),
		}, keys)

		stored := s.store.Order(o.ID())
		s.True(stored.ManualPaymentRequired())
		s.Equal(order.StatusAwaitingPayment, stored.Status())
		s.Equal(1, s.jobsOf(shared.NotifyManualPaymentRequired))
		for _, a := range s.store.Attempts(o.ID()) {
			s.Equal(payment.StatusFailed, a.Status)
			s.Equal("card_declined", a.FailureCode)
		}
	})

	s.Run("transient failure is retried by the worker with the same key", func() {
		o := s.seed(builder.NewOrderBuilder().
			WithPaymentMethod("cus_1", "pm_card").
			MustBuildAt(order.StatusAwaitingPayment))
		key := payment.IdempotencyKey(o.ID(), payment.KindCharge, 1)

		gomock.InOrder(
			s.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
					s.Equal(key, req.IdempotencyKey)
					return settlement.Result{}, errs.Mark(errs.New("503 from processor"), settlement.ErrGatewayUnavailable)
				}),
			s.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
					s.Equal(key, req.IdempotencyKey)
					return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_2", ChargeID: "ch_2"}, nil
				}),
		)

		out, err := s.saga.Charge(s.ctx, o.ID())
		s.Require().True(errs.Is(err, settlement.ErrGatewayUnavailable))
		s.True(errs.IsTransient(err))
		s.Equal(payment.StatusScheduled, out.Status)
		s.Require().NotNil(out.NextAttemptAt)

		n, err := s.saga.RetryDue(s.ctx)
		s.Require().NoError(err)
		s.Equal(0, n, "nothing is due before the backoff elapses")

		s.clock.Add(2 * time.Minute)
		n, err = s.saga.RetryDue(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n)

		stored := s.store.Order(o.ID())
		s.Equal(order.StatusPaidProcessing, stored.Status())
		attempts := s.store.Attempts(o.ID())
		s.Require().Len(attempts, 1)
		s.Equal(int32(2), attempts[0].Tries)
	})

	s.Run("order without payment method is rejected before any processor call", func() {
		o := s.seed(builder.NewOrderBuilder().MustBuildAt(order.StatusAwaitingPayment))
		_, err := s.saga.Charge(s.ctx, o.ID())
		s.ErrorIs(err, settlement.ErrNoPaymentMethod)
		s.Empty(s.store.Attempts(o.ID()))
	})
}

func (s *SagaTestSuite) TestCapture() {
	s.Run("partial capture releases the remainder", func() {
		o := s.seed(builder.NewOrderBuilder().WithCleaning().
			WithTotal(15000, 0, 0).
			WithPaymentMethod("cus_1", "pm_card").
			WithAuthorization("pi_auth", 15000).
			MustBuildAt(order.StatusAuthorized))

		s.gateway.EXPECT().Capture(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
				s.Equal("pi_auth", req.ProviderRef)
				s.Equal(int64(12000), req.Amount)
				return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_auth", ChargeID: "ch_cap", Amount: 12000}, nil
			})

		amount := int64(12000)
		out, err := s.saga.Capture(s.ctx, o.ID(), &amount)
		s.Require().NoError(err)
		s.Equal(int64(3000), out.ReleasedAmount)

		stored := s.store.Order(o.ID())
		s.Equal(order.StatusPaidProcessing, stored.Status())
		s.Equal(int64(12000), stored.PaidAmount().Cents())
		s.Equal(int64(15000), stored.Pricing().Total().Cents())
		s.Zero(stored.Payment().AuthorizedAmount)
	})

	s.Run("capture above the hold is rejected", func() {
		o := s.seed(builder.NewOrderBuilder().WithCleaning().
			WithAuthorization("pi_auth", 10000).
			MustBuildAt(order.StatusAuthorized))
		amount := int64(10001)
		_, err := s.saga.Capture(s.ctx, o.ID(), &amount)
		s.ErrorIs(err, settlement.ErrInvalidAmount)
	})

	s.Run("expired authorization requires re-authorization", func() {
		o := s.seed(builder.NewOrderBuilder().WithCleaning().
			WithAuthorization("pi_old", 15000).
			MustBuildAt(order.StatusAuthorized))

		s.gateway.EXPECT().Capture(gomock.Any(), gomock.Any()).
			Return(settlement.Result{}, errs.Mark(errs.New("charge_expired_for_capture"), settlement.ErrAuthorizationExpired))

		_, err := s.saga.Capture(s.ctx, o.ID(), nil)
		s.Require().ErrorIs(err, settlement.ErrReauthorizationRequired)

		stored := s.store.Order(o.ID())
		s.True(stored.ReauthorizationRequired())
		s.False(stored.Payment().HasAuthorization())
		s.Nil(stored.PaidAt())
		s.Equal(1, s.jobsOf(shared.NotifyReauthorizationRequired))

		_, err = s.saga.Capture(s.ctx, o.ID(), nil)
		s.ErrorIs(err, settlement.ErrReauthorizationRequired)
	})
}

func (s *SagaTestSuite) TestAuthorizeWithCustomerAction() {
	o := s.seed(builder.NewOrderBuilder().WithCleaning().MustBuildAt(order.StatusPending))
	key := payment.IdempotencyKey(o.ID(), payment.KindAuthorize, 1)

	s.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
			s.Equal(key, req.IdempotencyKey)
			s.Equal("pm_3ds", req.PaymentMethodID)
			return settlement.Result{Status: settlement.ResultRequiresAction, ProviderRef: "pi_3ds", ClientSecret: "pi_3ds_secret"}, nil
		})

	out, err := s.saga.Authorize(s.ctx, o.ID(), settlement.AuthorizeInput{CustomerID: "cus_9", PaymentMethodID: "pm_3ds"})
	s.Require().NoError(err)
	s.Equal(payment.StatusRequiresAction, out.Status)
	s.NotEmpty(out.ContinuationRef)
	s.Equal("pi_3ds_secret", out.ClientSecret)
	s.Equal(order.StatusPending, s.store.Order(o.ID()).Status())

	_, err = s.saga.Confirm(s.ctx, o.ID(), "not-a-ref")
	s.ErrorIs(err, settlement.ErrUnknownContinuation)

	s.gateway.EXPECT().Confirm(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
			s.Equal(key, req.IdempotencyKey)
			s.Equal("pi_3ds", req.ProviderRef)
			return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_3ds", Amount: o.Pricing().Total().Cents()}, nil
		})

	out, err = s.saga.Confirm(s.ctx, o.ID(), out.ContinuationRef)
	s.Require().NoError(err)
	s.Equal(payment.StatusSucceeded, out.Status)
	s.Empty(out.ContinuationRef)

	stored := s.store.Order(o.ID())
	s.Equal(order.StatusAuthorized, stored.Status())
	s.Equal("pi_3ds", stored.Payment().AuthorizationID)
	s.Equal("pm_3ds", stored.Payment().PaymentMethodID)
}

func (s *SagaTestSuite) TestRefundIsCumulative() {
	o := s.seed(builder.NewOrderBuilder().
		WithPaid(4306).
		MustBuildAt(order.StatusDelivered))

	s.gateway.EXPECT().Refund(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
			s.Equal("ch_builder", req.ProviderRef)
			return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "re_x", Amount: req.Amount}, nil
		}).Times(2)

	_, err := s.saga.Refund(s.ctx, o.ID(), 1000, "stain not removed")
	s.Require().NoError(err)
	stored := s.store.Order(o.ID())
	s.Equal(int64(1000), stored.RefundedAmount().Cents())
	s.Equal(order.StatusDelivered, stored.Status())

	_, err = s.saga.Refund(s.ctx, o.ID(), 4000, "too much")
	s.ErrorIs(err, settlement.ErrInvalidAmount)

	_, err = s.saga.Refund(s.ctx, o.ID(), 3306, "remainder")
	s.Require().NoError(err)
	stored = s.store.Order(o.ID())
	s.Equal(int64(4306), stored.RefundedAmount().Cents())
	s.Equal(order.StatusRefunded, stored.Status())

	refunds := 0
	for _, a := range s.store.Attempts(o.ID()) {
		if a.Kind == payment.KindRefund {
			refunds++
		}
	}
	s.Equal(2, refunds)
}

func (s *SagaTestSuite) TestSettleCancellation() {
	s.Run("hold without fee is voided", func() {
		o := s.seed(builder.NewOrderBuilder().WithCleaning().
			WithAuthorization("pi_hold", 15000).
			MustBuildAt(order.StatusCanceled))
		s.gateway.EXPECT().Void(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
				s.Equal("pi_hold", req.ProviderRef)
				return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_hold"}, nil
			})

		out, err := s.saga.SettleCancellation(s.ctx, o.ID(), 0)
		s.Require().NoError(err)
		s.Equal(payment.KindVoid, out.Kind)
		s.Zero(s.store.Order(o.ID()).Payment().AuthorizedAmount)
	})

	s.Run("hold with fee captures only the fee", func() {
		o := s.seed(builder.NewOrderBuilder().WithCleaning().
			WithTotal(15000, 0, 0).
			WithAuthorization("pi_hold", 15000).
			WithCancellationFee(7500).
			MustBuildAt(order.StatusCanceled))
		s.gateway.EXPECT().Capture(gomock.Any(), gomock.Any()).
			Return(settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_hold", Amount: 7500}, nil)

		_, err := s.saga.SettleCancellation(s.ctx, o.ID(), 7500)
		s.Require().NoError(err)
		stored := s.store.Order(o.ID())
		s.Equal(order.StatusCanceled, stored.Status())
		s.Equal(int64(7500), stored.PaidAmount().Cents())
	})

	s.Run("paid order gets the amount above the fee back", func() {
		o := s.seed(builder.NewOrderBuilder().
			WithPaid(4306).
			WithCancellationFee(1000).
			MustBuildAt(order.StatusCanceled))
		s.gateway.EXPECT().Refund(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
				s.Equal(int64(4306-1000), req.Amount)
				return settlement.Result{Status: settlement.ResultSucceeded}, nil
			})

		_, err := s.saga.SettleCancellation(s.ctx, o.ID(), 1000)
		s.Require().NoError(err)
		s.Equal(int64(3306), s.store.Order(o.ID()).RefundedAmount().Cents())
	})

	s.Run("unpaid deferred order owing a fee gets a scheduled charge", func() {
		o := s.seed(builder.NewOrderBuilder().
			WithPaymentMethod("cus_1", "pm_card").
			WithCancellationFee(500).
			MustBuildAt(order.StatusCanceled))

		out, err := s.saga.SettleCancellation(s.ctx, o.ID(), 500)
		s.Require().NoError(err)
		s.Equal(payment.StatusScheduled, out.Status)
		s.Equal(int64(500), out.Amount)
	})
}

func (s *SagaTestSuite) TestApplyNotification() {
	s.Run("duplicate capture notifications settle the order once", func() {
		o := s.seed(builder.NewOrderBuilder().MustBuildAt(order.StatusAwaitingPayment))
		total := o.Pricing().Total().Cents()
		n := webhook.PaymentCaptured{
			Meta:            webhook.Meta{EventID: "evt_1", EventType: "payment_intent.succeeded", Source: webhook.SourceStripe, Created: s.clock.Now()},
			OrderID:         o.ID(),
			PaymentIntentID: "pi_hook",
			ChargeID:        "ch_hook",
			AmountCents:     total,
		}

		for i := 0; i < 2; i++ {
			err := s.store.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
				return s.saga.ApplyNotification(ctx, tx, n)
			})
			s.Require().NoError(err)
		}

		stored := s.store.Order(o.ID())
		s.Equal(order.StatusPaidProcessing, stored.Status())
		s.Equal(total, stored.PaidAmount().Cents())
		s.Equal(1, s.jobsOf(shared.NotifyPaymentSucceeded))
	})

	s.Run("refund totals never shrink", func() {
		o := s.seed(builder.NewOrderBuilder().WithPaid(4306).MustBuildAt(order.StatusPaidProcessing))
		apply := func(total int64) {
			err := s.store.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
				return s.saga.ApplyNotification(ctx, tx, webhook.RefundIssued{OrderID: o.ID(), RefundedTotalCents: total})
			})
			s.Require().NoError(err)
		}
		apply(2000)
		apply(1000)
		s.Equal(int64(2000), s.store.Order(o.ID()).RefundedAmount().Cents())
		apply(4306)
		stored := s.store.Order(o.ID())
		s.Equal(order.StatusRefunded, stored.Status())
		s.NotNil(stored.RefundedAt())
	})

	s.Run("unknown order is acknowledged", func() {
		err := s.store.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
			return s.saga.ApplyNotification(ctx, tx, webhook.PaymentCaptured{OrderID: builder.NewOrderBuilder().MustBuildAt(order.StatusPending).ID()})
		})
		s.NoError(err)
	})

	s.Run("out of order subscription events keep the newest", func() {
		newer := webhook.SubscriptionChanged{
			Meta:           webhook.Meta{EventID: "evt_sub_2", Source: webhook.SourceStripe, Created: s.clock.Now()},
			Kind:           webhook.SubscriptionUpdated,
			SubscriptionID: "sub_1",
			CustomerID:     "cus_1",
			Status:         "past_due",
		}
		older := newer
		older.Meta.Created = s.clock.Now().Add(-time.Hour)
		older.Status = "active"

		for _, n := range []webhook.SubscriptionChanged{newer, older} {
			err := s.store.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
				return s.saga.ApplyNotification(ctx, tx, n)
			})
			s.Require().NoError(err)
		}
		sub, ok := s.store.Subscription("sub_1")
		s.Require().True(ok)
		s.Equal("past_due", sub.Status)
	})
}

func (s *SagaTestSuite) cancelStored(id uuid.UUID, fee int64) {
	o := s.store.Order(id)
	s.Require().NoError(o.Cancel("plans changed", order.MustMoney(fee), s.clock.Now()))
	s.store.PutOrder(o)
}

func (s *SagaTestSuite) TestParkedChargeClosedByCancellation() {
	o := s.seed(builder.NewOrderBuilder().
		WithPaymentMethod("cus_1", "pm_card").
		MustBuildAt(order.StatusAwaitingPayment))

	s.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
		Return(settlement.Result{}, errs.Mark(errs.New("503 from processor"), settlement.ErrGatewayUnavailable)).
		Times(1)

	out, err := s.saga.Charge(s.ctx, o.ID())
	s.Require().Error(err)
	s.Require().Equal(payment.StatusScheduled, out.Status)

	s.cancelStored(o.ID(), 0)
	settled, err := s.saga.SettleCancellation(s.ctx, o.ID(), 0)
	s.Require().NoError(err)
	s.Nil(settled)

	s.clock.Add(2 * time.Hour)
	n, err := s.saga.RetryDue(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)

	attempts := s.store.Attempts(o.ID())
	s.Require().Len(attempts, 1)
	s.Equal(payment.StatusFailed, attempts[0].Status)
	s.Equal("superseded", attempts[0].FailureCode)
	stored := s.store.Order(o.ID())
	s.Equal(order.StatusCanceled, stored.Status())
	s.Zero(stored.PaidAmount().Cents())
}

func (s *SagaTestSuite) TestParkedChargeDroppedForCanceledOrder() {
	o := s.seed(builder.NewOrderBuilder().
		WithPaymentMethod("cus_1", "pm_card").
		MustBuildAt(order.StatusAwaitingPayment))

	s.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
		Return(settlement.Result{}, errs.Mark(errs.New("503 from processor"), settlement.ErrGatewayUnavailable)).
		Times(1)

	_, err := s.saga.Charge(s.ctx, o.ID())
	s.Require().Error(err)

	// canceled without settling; the retry worker still must not charge
	s.cancelStored(o.ID(), 0)
	s.clock.Add(2 * time.Hour)
	n, err := s.saga.RetryDue(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)

	attempts := s.store.Attempts(o.ID())
	s.Require().Len(attempts, 1)
	s.Equal(payment.StatusFailed, attempts[0].Status)
	s.Nil(s.store.Order(o.ID()).PaidAt())
}

func (s *SagaTestSuite) TestChargeLandingAfterCancellationRefundsAboveFee() {
	o := s.seed(builder.NewOrderBuilder().
		WithPaymentMethod("cus_1", "pm_card").
		MustBuildAt(order.StatusAwaitingPayment))

	s.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
			s.cancelStored(o.ID(), 430)
			return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_late", ChargeID: "ch_late", Amount: req.Amount}, nil
		})
	s.gateway.EXPECT().Refund(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
			s.Equal("ch_late", req.ProviderRef)
			s.Equal(int64(4306-430), req.Amount)
			return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "re_late", Amount: req.Amount}, nil
		})

	_, err := s.saga.Charge(s.ctx, o.ID())
	s.Require().NoError(err)

	stored := s.store.Order(o.ID())
	s.Equal(order.StatusCanceled, stored.Status())
	s.Equal(int64(4306), stored.PaidAmount().Cents())
	s.Equal(int64(3876), stored.RefundedAmount().Cents())
}

func (s *SagaTestSuite) TestHoldAfterCancellation() {
	authorize := func(o *order.Order) string {
		s.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
			Return(settlement.Result{Status: settlement.ResultRequiresAction, ProviderRef: "pi_3ds", ClientSecret: "pi_3ds_secret"}, nil)
		out, err := s.saga.Authorize(s.ctx, o.ID(), settlement.AuthorizeInput{CustomerID: "cus_9", PaymentMethodID: "pm_3ds"})
		s.Require().NoError(err)
		return out.ContinuationRef
	}

	s.Run("confirmation finishing after cancellation voids the hold", func() {
		o := s.seed(builder.NewOrderBuilder().WithCleaning().MustBuildAt(order.StatusPending))
		ref := authorize(o)

		s.gateway.EXPECT().Confirm(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
				s.cancelStored(o.ID(), 0)
				return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_3ds", Amount: 15000}, nil
			})
		s.gateway.EXPECT().Void(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
				s.Equal("pi_3ds", req.ProviderRef)
				return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_3ds"}, nil
			})

		_, err := s.saga.Confirm(s.ctx, o.ID(), ref)
		s.Require().NoError(err)

		stored := s.store.Order(o.ID())
		s.Equal(order.StatusCanceled, stored.Status())
		s.Zero(stored.Payment().AuthorizedAmount)
		s.Nil(stored.PaidAt())
	})

	s.Run("suspended authorization is closed when the cancellation settles", func() {
		o := s.seed(builder.NewOrderBuilder().WithCleaning().MustBuildAt(order.StatusPending))
		ref := authorize(o)

		s.cancelStored(o.ID(), 0)
		_, err := s.saga.SettleCancellation(s.ctx, o.ID(), 0)
		s.Require().NoError(err)

		_, err = s.saga.Confirm(s.ctx, o.ID(), ref)
		s.ErrorIs(err, settlement.ErrUnknownContinuation)
	})

	s.Run("confirmation of a canceled order is refused before any processor call", func() {
		o := s.seed(builder.NewOrderBuilder().WithCleaning().MustBuildAt(order.StatusPending))
		ref := authorize(o)

		s.cancelStored(o.ID(), 0)
		_, err := s.saga.Confirm(s.ctx, o.ID(), ref)
		s.ErrorIs(err, settlement.ErrNotAuthorizable)

		attempts := s.store.Attempts(o.ID())
		s.Require().Len(attempts, 1)
		s.Equal(payment.StatusFailed, attempts[0].Status)
		s.Zero(s.store.Order(o.ID()).Payment().AuthorizedAmount)
	})

	s.Run("capture of a canceled order is limited to the fee", func() {
		held := func(fee int64) *order.Order {
			return s.seed(builder.NewOrderBuilder().WithCleaning().
				WithAuthorization("pi_hold", 15000).
				WithCancellationFee(fee).
				MustBuildAt(order.StatusCanceled))
		}

		_, err := s.saga.Capture(s.ctx, held(0).ID(), nil)
		s.ErrorIs(err, settlement.ErrNotPayable)

		full := int64(15000)
		_, err = s.saga.Capture(s.ctx, held(1500).ID(), &full)
		s.ErrorIs(err, settlement.ErrInvalidAmount)

		o := held(1500)
		s.gateway.EXPECT().Capture(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
				s.Equal(int64(1500), req.Amount)
				return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_hold", Amount: 1500}, nil
			})
		out, err := s.saga.Capture(s.ctx, o.ID(), nil)
		s.Require().NoError(err)
		s.Equal(int64(13500), out.ReleasedAmount)

		stored := s.store.Order(o.ID())
		s.Equal(order.StatusCanceled, stored.Status())
		s.Equal(int64(1500), stored.PaidAmount().Cents())
		s.Zero(stored.Payment().AuthorizedAmount)
	})
}

func (s *SagaTestSuite) TestAuthorizationNotificationForCanceledOrder() {
	o := s.seed(builder.NewOrderBuilder().WithCleaning().MustBuildAt(order.StatusCanceled))
	n := webhook.PaymentAuthorized{
		Meta:            webhook.Meta{EventID: "evt_auth", EventType: "payment_intent.amount_capturable_updated", Source: webhook.SourceStripe, Created: s.clock.Now()},
		OrderID:         o.ID(),
		AuthorizationID: "pi_late",
		AmountCents:     15000,
		CustomerID:      "cus_1",
		PaymentMethodID: "pm_card",
	}
	err := s.store.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		return s.saga.ApplyNotification(ctx, tx, n)
	})
	s.Require().NoError(err)

	stored := s.store.Order(o.ID())
	s.Equal(order.StatusCanceled, stored.Status())
	s.Equal(int64(15000), stored.Payment().AuthorizedAmount)
	attempts := s.store.Attempts(o.ID())
	s.Require().Len(attempts, 1)
	s.Equal(payment.KindVoid, attempts[0].Kind)
	s.Equal(payment.StatusScheduled, attempts[0].Status)

	s.gateway.EXPECT().Void(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req settlement.Request) (settlement.Result, error) {
			s.Equal("pi_late", req.ProviderRef)
			return settlement.Result{Status: settlement.ResultSucceeded, ProviderRef: "pi_late"}, nil
		})

	s.clock.Add(time.Minute)
	count, err := s.saga.RetryDue(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
	s.Zero(s.store.Order(o.ID()).Payment().AuthorizedAmount)
}

func (s *SagaTestSuite) TestRefundNotificationBeforePayment() {
	o := s.seed(builder.NewOrderBuilder().
		WithPaymentMethod("cus_1", "pm_card").
		MustBuildAt(order.StatusAwaitingPayment))

	err := s.store.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		return s.saga.ApplyNotification(ctx, tx, webhook.RefundIssued{OrderID: o.ID(), RefundedTotalCents: 1000})
	})
	s.Require().ErrorIs(err, settlement.ErrRefundAheadOfPayment)
	s.True(errs.IsTransient(err))

	stored := s.store.Order(o.ID())
	s.Zero(stored.RefundedAmount().Cents())
	s.Nil(stored.RefundedAt())
	s.Equal(order.StatusAwaitingPayment, stored.Status())
}

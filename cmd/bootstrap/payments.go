package bootstrap

import (
	"fmt"
	"log/slog"

	"freshfold/internal/domain/webhook"
	"freshfold/internal/infra/partners"
	"freshfold/internal/infra/payments"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/config"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/settlement"

	"go.uber.org/fx"
)

var PaymentsModule = fx.Module("payments",
	fx.Provide(
		NewPayments,
	),
)

type PaymentsResult struct {
	fx.Out

	Gateway settlement.Gateway
	// Source is the webhook source the payments route is decoded as.
	Source   webhook.Source
	Decoders []commands.EventDecoder
}

// NewPayments selects the processor named by PAYMENTS_PROVIDER. Partner messages
// are decoded the same way regardless of the processor.
func NewPayments(cfg config.Config, clk clock.Clock, logger *slog.Logger) (PaymentsResult, error) {
	wh := cfg.Webhook
	partnerDecoder := partners.NewSMSDecoder(wh.PartnerSecret, wh.Tolerance, clk)

	switch cfg.Payments.Provider {
	case "stripe":
		gw, err := payments.NewStripeGateway(cfg.Payments.StripeSecretKey, logger)
		if err != nil {
			return PaymentsResult{}, err
		}
		return PaymentsResult{
			Gateway: gw,
			Source:  webhook.SourceStripe,
			Decoders: []commands.EventDecoder{
				payments.NewStripeEventDecoder(wh.StripeSecret, wh.Tolerance),
				partnerDecoder,
			},
		}, nil
	case "mercadopago":
		gw, err := payments.NewMercadoPagoGateway(cfg.Payments.MercadoPagoToken, logger)
		if err != nil {
			return PaymentsResult{}, err
		}
		return PaymentsResult{
			Gateway: gw,
			Source:  webhook.SourceMercadoPago,
			Decoders: []commands.EventDecoder{
				payments.NewMercadoPagoEventDecoder(wh.MercadoPagoSecret, wh.Tolerance, gw, clk),
				partnerDecoder,
			},
		}, nil
	default:
		return PaymentsResult{}, fmt.Errorf("unsupported PAYMENTS_PROVIDER %q", cfg.Payments.Provider)
	}
}

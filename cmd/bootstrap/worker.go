package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/pkg/config"
	"freshfold/internal/usecase/settlement"

	"go.uber.org/fx"
)

const counterSweepInterval = 10 * time.Minute

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewRetryWorker,
	),
	fx.Invoke(
		startRetryWorker,
		startCounterSweeper,
	),
)

func NewRetryWorker(saga settlement.Saga, cfg config.Config, logger *slog.Logger) *settlement.RetryWorker {
	return settlement.NewRetryWorker(saga, cfg.Worker.PollInterval, logger)
}

func startRetryWorker(lc fx.Lifecycle, w *settlement.RetryWorker, cfg config.Config, logger *slog.Logger) {
	if !cfg.Worker.Enabled {
		logger.Info("Payment retry worker disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w.Start(ctx)
			return nil
		},
		OnStop: w.Stop,
	})
}

// startCounterSweeper deletes expired counters for backends without native expiry.
func startCounterSweeper(lc fx.Lifecycle, sweeper Sweeper, logger *slog.Logger) {
	if sweeper == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(counterSweepInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						n, err := sweeper.Sweep(ctx)
						if err != nil {
							logger.Warn("Counter sweep failed", slog.String("error", err.Error()))
							continue
						}
						if n > 0 {
							logger.Debug("Expired counters removed", slog.Int64("count", n))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

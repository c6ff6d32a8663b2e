package settlement

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RetryWorker drains scheduled payment attempts on a fixed interval.
type RetryWorker struct {
	saga     Saga
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRetryWorker(saga Saga, interval time.Duration, logger *slog.Logger) *RetryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RetryWorker{saga: saga, interval: interval, logger: logger}
}

// Start launches the polling loop. It returns immediately.
func (w *RetryWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

func (w *RetryWorker) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *RetryWorker) loop(ctx context.Context) {
	w.logger.Info("支払いリトライワーカーを起動しました", slog.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("支払いリトライワーカーを停止しました")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one drain pass.
func (w *RetryWorker) Tick(ctx context.Context) {
	n, err := w.saga.RetryDue(ctx)
	if err != nil {
		w.logger.Error("Payment retry batch failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		w.logger.Info("Payment retry batch processed", slog.Int("attempts", n))
	}
}

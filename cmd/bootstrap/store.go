package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"freshfold/internal/infra/kvstore"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/config"
	"freshfold/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var StoreModule = fx.Module("store",
	fx.Provide(
		NewCounterStore,
	),
)

// Sweeper is implemented by backends that do not expire keys on their own.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type StoreResult struct {
	fx.Out

	Store shared.CounterStore
	// Sweeper is nil for backends with native expiry.
	Sweeper Sweeper
}

func NewCounterStore(cfg config.Config, pool *pgxpool.Pool, clk clock.Clock, logger *slog.Logger) (StoreResult, error) {
	if cfg.Store.Backend == "dynamodb" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := kvstore.NewDynamoClient(ctx, cfg.Store)
		if err != nil {
			return StoreResult{}, err
		}
		logger.Info("Counter store: DynamoDB", slog.String("table", cfg.Store.DynamoTable))
		return StoreResult{Store: kvstore.NewDynamoStore(client, cfg.Store.DynamoTable, clk, logger)}, nil
	}

	store := kvstore.NewPostgresStore(pool, clk, logger)
	return StoreResult{Store: store, Sweeper: store}, nil
}

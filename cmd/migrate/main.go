package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"freshfold/internal/handler/middleware"
	"freshfold/internal/pkg/config"

	"ariga.io/atlas-go-sdk/atlasexec"
)

// migrate applies migrations/ to DB_* declaratively through the atlas CLI.
func main() {
	dryRun := flag.Bool("dry-run", false, "print the planned changes without applying them")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("設定の読み込みに失敗しました", "error", err)
		os.Exit(1)
	}
	logger := middleware.NewLogger(cfg.Log).GetSlogLogger()

	dir, err := filepath.Abs(cfg.Migrate.Dir)
	if err != nil {
		logger.Error("マイグレーションディレクトリの解決に失敗しました", "dir", cfg.Migrate.Dir, "error", err)
		os.Exit(1)
	}

	client, err := atlasexec.NewClient(dir, "atlas")
	if err != nil {
		logger.Error("atlasクライアントの初期化に失敗しました", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := client.SchemaApply(ctx, &atlasexec.SchemaApplyParams{
		URL:         cfg.DB.BuildDSN(),
		To:          "file://" + dir,
		DevURL:      cfg.Migrate.DevURL,
		DryRun:      *dryRun,
		AutoApprove: true,
	})
	if err != nil {
		logger.Error("スキーマの適用に失敗しました", "error", err)
		os.Exit(1)
	}

	for _, stmt := range res.Changes.Pending {
		logger.Info("pending", "sql", stmt)
	}
	logger.Info("スキーマを適用しました",
		"applied", len(res.Changes.Applied),
		"pending", len(res.Changes.Pending),
		"dry_run", *dryRun)
}

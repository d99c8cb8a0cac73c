package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/cli"
	"github.com/yukikurage/timesheet-api/internal/config"
	"github.com/yukikurage/timesheet-api/internal/database"
	"github.com/yukikurage/timesheet-api/internal/logger"
	"github.com/yukikurage/timesheet-api/internal/policy"
	"github.com/yukikurage/timesheet-api/internal/repository"
	"github.com/yukikurage/timesheet-api/internal/services"
	"github.com/yukikurage/timesheet-api/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("TIMESHEET_CONFIG"))
	if err != nil {
		return err
	}

	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = zlog.Sync() }()

	if err := database.Connect(&cfg.Database, cfg.Log.Level, zlog); err != nil {
		return err
	}
	db := database.GetDB()

	ctx := context.Background()
	var archive storage.Archive
	if cfg.Storage.Enabled() {
		minioArchive, err := storage.NewMinioArchive(ctx, &cfg.Storage, zlog)
		if err != nil {
			zlog.Warn("Report archiving disabled", zap.Error(err))
		} else {
			archive = minioArchive
		}
	}

	repo := repository.New(db)
	resolver := policy.NewResolver()
	app := &cli.App{
		DB:     db,
		Export: services.NewExportService(repo, resolver, archive, zlog),
		Audit:  services.NewAuditService(repo, resolver, zlog),
		Log:    zlog,
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

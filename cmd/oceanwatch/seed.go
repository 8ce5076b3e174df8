package main

import (
	"context"
	"fmt"

	"oceanwatch/internal/db"
	"oceanwatch/internal/ingest"
	"oceanwatch/internal/observability"
	"oceanwatch/internal/seed"
	"oceanwatch/internal/storage"
	"oceanwatch/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with demo incident reports",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of demo reports to create",
			Value:   25,
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Delete previously seeded reports first",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		// Connect to database
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		media, err := storage.NewDiskStore(cfg.UploadDir)
		if err != nil {
			return err
		}

		ingester := ingest.New(
			store.NewReportRepository(pool),
			media,
			newLogger(cfg.LogLevel, false),
			observability.NewUnregisteredMetrics(),
		)

		logrus.Info("Seeding incident reports...")
		if err := seed.SeedFakeReports(ctx, pool, ingester, c.Int("count"), c.Bool("reset")); err != nil {
			return fmt.Errorf("failed to seed reports: %w", err)
		}

		return nil
	},
}

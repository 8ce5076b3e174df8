package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oceanwatch/internal/db"
	"oceanwatch/internal/events"
	"oceanwatch/internal/ingest"
	"oceanwatch/internal/observability"
	"oceanwatch/internal/server"
	"oceanwatch/internal/storage"
	"oceanwatch/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the ingestion HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger := newLogger(config.LogLevel, true)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	reportRepo := store.NewReportRepository(pool)
	userRepo := store.NewUserRepository(pool)

	metrics := observability.NewMetrics()

	var (
		media      storage.MediaStore
		serverOpts []server.Option
		ingestOpts []ingest.Option
	)

	needsAWS := config.MediaBucket != "" || config.CognitoClientID != ""
	if needsAWS {
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}

		if config.MediaBucket != "" {
			media = storage.NewS3Store(s3.NewFromConfig(awsConfig), config.MediaBucket)
			logger.WithField("bucket", config.MediaBucket).Info("storing attachments in s3")
		}

		if config.CognitoClientID != "" {
			serverOpts = append(serverOpts, server.WithAuth(cognitoidentityprovider.NewFromConfig(awsConfig), userRepo))
		}
	}

	if media == nil {
		disk, err := storage.NewDiskStore(config.UploadDir)
		if err != nil {
			return err
		}
		media = disk
		serverOpts = append(serverOpts, server.WithUploads(disk.Root()))
		logger.WithField("dir", disk.Root()).Info("storing attachments on disk")
	}

	if len(config.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(config.KafkaBrokers, config.KafkaTopic)
		defer publisher.Close()
		ingestOpts = append(ingestOpts, ingest.WithEvents(publisher))
		logger.WithField("topic", config.KafkaTopic).Info("publishing report events")
	}

	ingester := ingest.New(reportRepo, media, logger, metrics, ingestOpts...)

	srv := server.New(config, logger, metrics, ingester, serverOpts...)

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

package main

import (
	"fmt"

	"oceanwatch/internal/client"
	"oceanwatch/internal/connectivity"
	"oceanwatch/internal/coordinator"
	"oceanwatch/internal/queue"
	"oceanwatch/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serverFlag = &cli.StringFlag{
	Name:    "server",
	Aliases: []string{"s"},
	Usage:   "Ingestion server URL (overrides SERVER_URL)",
}

// fieldClient is the reporting client stack shared by the client commands.
type fieldClient struct {
	config      *types.ClientConfig
	logger      *logrus.Logger
	monitor     *connectivity.Monitor
	queue       *queue.Queue
	api         *client.Client
	coordinator *coordinator.Coordinator
}

func newFieldClient(cCtx *cli.Context) (*fieldClient, error) {
	config, err := loadClientConfig(cCtx)
	if err != nil {
		return nil, err
	}

	logger := newLogger(config.LogLevel, false)

	backend, err := queue.NewFileBackend(config.QueueDir, config.QueueNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to open offline queue: %w", err)
	}

	monitor := connectivity.NewMonitor(
		connectivity.NewHTTPProber(config.ServerURL, config.ProbeTimeout),
		logger,
		connectivity.WithInterval(config.ProbeInterval),
		connectivity.WithDebounce(config.ProbeDebounce),
	)

	q := queue.New(backend, logger)
	api := client.New(config.ServerURL, config.SubmitTimeout)

	return &fieldClient{
		config:      config,
		logger:      logger,
		monitor:     monitor,
		queue:       q,
		api:         api,
		coordinator: coordinator.New(monitor, q, api, logger, coordinator.WithSubmitTimeout(config.SubmitTimeout)),
	}, nil
}

func (f *fieldClient) deviceInfo() types.DeviceInfo {
	return types.DeviceInfo{
		UserAgent: f.config.DeviceUserAgent,
		Language:  f.config.DeviceLanguage,
	}
}

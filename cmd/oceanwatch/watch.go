package main

import (
	"os"
	"os/signal"
	"syscall"

	"oceanwatch/internal/connectivity"

	"github.com/urfave/cli/v2"
)

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "Monitor connectivity and sync saved reports whenever the server comes back",
	Flags: []cli.Flag{serverFlag},
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		fc, err := newFieldClient(c)
		if err != nil {
			return err
		}

		fc.monitor.Subscribe(func(state connectivity.State) {
			size, _ := fc.queue.Size()
			fc.logger.WithField("pending", size).Infof("server is %s", state)
		})

		fc.coordinator.Start(ctx)
		defer fc.coordinator.Close()

		fc.logger.WithField("server", fc.config.ServerURL).Info("watching connectivity")
		fc.monitor.Run(ctx)

		fc.logger.Info("shutdown signal received")
		return nil
	},
}

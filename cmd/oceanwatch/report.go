package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"oceanwatch/internal/connectivity"
	"oceanwatch/internal/coordinator"
	"oceanwatch/pkg/types"

	"github.com/urfave/cli/v2"
)

var reportCommand = &cli.Command{
	Name:  "report",
	Usage: "Submit and inspect incident reports",
	Flags: []cli.Flag{serverFlag},
	Subcommands: []*cli.Command{
		reportSubmitCommand,
		reportSyncCommand,
		reportListCommand,
	},
}

var reportSubmitCommand = &cli.Command{
	Name:  "submit",
	Usage: "Submit a report, or save it for sync when the server is unreachable",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "hazard", Usage: "Hazard type, e.g. \"Rip Current\""},
		&cli.StringFlag{Name: "severity", Usage: "Low, Medium, High or Extreme/Emergency", Value: string(types.SeverityMedium)},
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
		&cli.StringFlag{Name: "location", Aliases: []string{"l"}, Usage: "Location description"},
		&cli.StringFlag{Name: "lat", Usage: "Latitude in decimal degrees"},
		&cli.StringFlag{Name: "lng", Usage: "Longitude in decimal degrees"},
		&cli.StringFlag{Name: "observed", Usage: "Time of observation (RFC 3339); defaults to now"},
		&cli.PathFlag{Name: "media", Aliases: []string{"m"}, Usage: "Photo or video to attach"},
	},
	Action: func(c *cli.Context) error {
		fc, err := newFieldClient(c)
		if err != nil {
			return err
		}

		draft := types.NewReportDraft()
		draft.HazardType = types.HazardType(c.String("hazard"))
		draft.Severity = types.Severity(c.String("severity"))
		draft.Description = c.String("description")
		draft.LocationDescription = c.String("location")
		draft.Latitude = c.String("lat")
		draft.Longitude = c.String("lng")
		draft.TimeOfObservation = c.String("observed")
		if draft.TimeOfObservation == "" {
			draft.TimeOfObservation = time.Now().UTC().Format(time.RFC3339)
		}
		draft.DeviceInfo = fc.deviceInfo()

		if path := c.Path("media"); path != "" {
			media, err := readMedia(path)
			if err != nil {
				return err
			}
			draft.Media = media
		}

		ctx := c.Context
		fc.monitor.Check(ctx)

		res, err := fc.coordinator.Submit(ctx, draft)
		if err != nil {
			var verr *types.ValidationError
			if errors.As(err, &verr) {
				return cli.Exit(verr.Error(), 2)
			}
			return err
		}

		switch res.Outcome {
		case coordinator.OutcomeSubmitted:
			fmt.Printf("Report submitted (id %s)\n", res.Report.ID)
		case coordinator.OutcomeQueued:
			size, _ := fc.queue.Size()
			fmt.Printf("Saved offline, will sync when connected (%d pending)\n", size)
		}

		return nil
	},
}

var reportSyncCommand = &cli.Command{
	Name:  "sync",
	Usage: "Send reports saved while offline",
	Action: func(c *cli.Context) error {
		fc, err := newFieldClient(c)
		if err != nil {
			return err
		}

		ctx := c.Context
		if fc.monitor.Check(ctx) != connectivity.Online {
			size, _ := fc.queue.Size()
			fmt.Printf("Server unreachable, %d report(s) still pending\n", size)
			return nil
		}

		res, err := fc.coordinator.Sync(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Synced %d report(s), %d pending\n", res.Submitted, res.Remaining)
		if res.Failure != nil {
			fmt.Printf("Stopped at the oldest pending report: %v\n", res.Failure)
		}

		return nil
	},
}

var reportListCommand = &cli.Command{
	Name:  "list",
	Usage: "List reports stored on the server, newest first",
	Action: func(c *cli.Context) error {
		fc, err := newFieldClient(c)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Context, fc.config.SubmitTimeout)
		defer cancel()

		reports, err := fc.api.List(ctx)
		if err != nil {
			return err
		}

		for _, r := range reports {
			media := "-"
			if r.MediaType != nil {
				media = string(*r.MediaType)
			}
			fmt.Printf("%s  %-16s %-18s %-8s %-6s %s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				r.HazardType, r.Severity, r.Status, media, r.LocationDescription)
		}

		return nil
	},
}

func readMedia(path string) (*types.Media, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if info.Size() > types.MaxMediaBytes {
		return nil, &types.PayloadTooLargeError{Size: info.Size(), Limit: types.MaxMediaBytes}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &types.Media{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var queueCommand = &cli.Command{
	Name:  "queue",
	Usage: "Inspect the offline queue",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "Show reports waiting to be synced, oldest first",
			Action: func(c *cli.Context) error {
				fc, err := newFieldClient(c)
				if err != nil {
					return err
				}

				items, err := fc.queue.List()
				if err != nil {
					return err
				}

				if len(items) == 0 {
					fmt.Println("No pending reports")
					return nil
				}

				for i, item := range items {
					media := ""
					if item.Draft.Media != nil {
						media = " +" + item.Draft.Media.Filename
					}
					fmt.Printf("%d. %s  %s  %s (%s)%s\n",
						i+1, item.EnqueuedAt.Local().Format("2006-01-02 15:04:05"), item.ID,
						item.Draft.HazardType, item.Draft.LocationDescription, media)
				}

				return nil
			},
		},
		{
			Name:  "clear",
			Usage: "Discard every pending report",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm discarding reports"},
			},
			Action: func(c *cli.Context) error {
				if !c.Bool("yes") {
					return cli.Exit("refusing to discard pending reports without --yes", 1)
				}

				fc, err := newFieldClient(c)
				if err != nil {
					return err
				}

				size, err := fc.queue.Size()
				if err != nil {
					fc.logger.WithError(err).Warn("could not read queue, clearing anyway")
				}

				if err := fc.queue.Clear(); err != nil {
					return err
				}

				fmt.Printf("Discarded %d pending report(s)\n", size)
				return nil
			},
		},
	},
}

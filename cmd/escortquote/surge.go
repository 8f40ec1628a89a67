package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"escort-pricing/db/signals"
)

// =============================================================================
// SURGE COMMAND
// =============================================================================

func surgeCommand() *cli.Command {
	regionFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "region",
			Usage:    "Region the multiplier applies to",
			Required: true,
		}
	}

	return &cli.Command{
		Name:  "surge",
		Usage: "Inspect and publish regional surge multipliers",
		Subcommands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Show the current multiplier for a region",
				Flags:  []cli.Flag{regionFlag()},
				Action: runSurgeGet,
			},
			{
				Name:  "set",
				Usage: "Publish a multiplier for a region",
				Flags: []cli.Flag{
					regionFlag(),
					&cli.Float64Flag{
						Name:     "multiplier",
						Usage:    "Surge multiplier (1.0 means no surge)",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Expire the multiplier after this long (0 keeps it)",
					},
				},
				Action: runSurgeSet,
			},
			{
				Name:   "clear",
				Usage:  "Remove the multiplier for a region",
				Flags:  []cli.Flag{regionFlag()},
				Action: runSurgeClear,
			},
		},
	}
}

func surgeStore(c *cli.Context) (*signals.SurgeStore, func() error, error) {
	addr := c.String("redis-addr")
	if addr == "" {
		return nil, nil, fmt.Errorf("--redis-addr (ESCORT_REDIS_ADDR) is required")
	}
	client := signals.NewClient(addr)
	return signals.NewSurgeStore(client), client.Close, nil
}

func runSurgeGet(c *cli.Context) error {
	store, closeFn, err := surgeStore(c)
	if err != nil {
		return err
	}
	defer closeFn()

	m, err := store.Multiplier(c.Context, c.String("region"))
	if err != nil {
		return err
	}
	if m == nil {
		fmt.Fprintf(c.App.Writer, "%s: no surge\n", c.String("region"))
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s: x%.2f\n", c.String("region"), *m)
	return nil
}

func runSurgeSet(c *cli.Context) error {
	store, closeFn, err := surgeStore(c)
	if err != nil {
		return err
	}
	defer closeFn()

	region := c.String("region")
	if err := store.SetMultiplier(c.Context, region, c.Float64("multiplier"), c.Duration("ttl")); err != nil {
		return err
	}
	log.Info().Str("region", region).Float64("multiplier", c.Float64("multiplier")).Dur("ttl", c.Duration("ttl")).Msg("Surge multiplier published")
	return nil
}

func runSurgeClear(c *cli.Context) error {
	store, closeFn, err := surgeStore(c)
	if err != nil {
		return err
	}
	defer closeFn()

	return store.ClearMultiplier(c.Context, c.String("region"))
}

package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"escort-pricing/db/clickhouse"
	"escort-pricing/db/ingestion"
	"escort-pricing/decision/ratecard"
)

// =============================================================================
// RATECARD COMMAND
// =============================================================================

func fileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "file",
		Usage: "Path to a YAML rate card (defaults to the built-in card)",
	}
}

func aliasFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "alias",
		Value: clickhouse.DefaultAlias,
		Usage: "Snapshot alias",
	}
}

func ratecardCommand() *cli.Command {
	return &cli.Command{
		Name:  "ratecard",
		Usage: "Inspect and publish rate cards",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Validate a rate card file",
				Flags:  []cli.Flag{fileFlag()},
				Action: runRatecardValidate,
			},
			{
				Name:  "show",
				Usage: "Print the effective rate card",
				Flags: []cli.Flag{
					fileFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "yaml",
						Usage:   "Output format (yaml, json)",
					},
				},
				Action: runRatecardShow,
			},
			{
				Name:  "publish",
				Usage: "Store a rate card as a ClickHouse snapshot",
				Flags: []cli.Flag{
					fileFlag(),
					aliasFlag(),
					&cli.StringFlag{
						Name:  "card-version",
						Value: time.Now().UTC().Format("2006.01.02"),
						Usage: "Version label recorded on the snapshot",
					},
					&cli.BoolFlag{
						Name:  "activate",
						Usage: "Make the snapshot active for its alias",
					},
				},
				Action: runRatecardPublish,
			},
			{
				Name:  "activate",
				Usage: "Activate a stored snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Snapshot ID",
						Required: true,
					},
				},
				Action: runRatecardActivate,
			},
			{
				Name:   "list",
				Usage:  "List stored snapshots for an alias",
				Flags:  []cli.Flag{aliasFlag()},
				Action: runRatecardList,
			},
			{
				Name:  "migrate",
				Usage: "Create the snapshot tables",
				Action: func(c *cli.Context) error {
					store, err := clickhouse.NewStore(clickhouseConfig(c))
					if err != nil {
						return err
					}
					defer store.Close()
					if err := store.Migrate(c.Context); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "schema up to date")
					return nil
				},
			},
		},
	}
}

func cardFromFlag(c *cli.Context) (ratecard.Card, string, error) {
	path := c.String("file")
	if path == "" {
		return ratecard.Default(), "builtin", nil
	}
	card, err := ratecard.Load(path)
	return card, "file:" + path, err
}

func runRatecardValidate(c *cli.Context) error {
	card, source, err := cardFromFlag(c)
	if err != nil {
		return err
	}
	hash, _, err := clickhouse.HashCard(card)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "rate card %q from %s is valid (hash %s)\n", card.Name, source, hash[:16])
	return nil
}

func runRatecardShow(c *cli.Context) error {
	card, _, err := cardFromFlag(c)
	if err != nil {
		return err
	}
	if c.String("format") == "json" {
		return outputJSON(c.App.Writer, card)
	}
	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(card)
}

func runRatecardPublish(c *cli.Context) error {
	card, source, err := cardFromFlag(c)
	if err != nil {
		return err
	}

	store, err := clickhouse.NewStore(clickhouseConfig(c))
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := ingestion.NewClickHouseAdapter(store).Publish(c.Context, ingestion.PublishInput{
		Card:     card,
		Alias:    c.String("alias"),
		Source:   source,
		Version:  c.String("card-version"),
		Activate: c.Bool("activate"),
	})
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	log.Info().
		Str("snapshot_id", res.SnapshotID.String()).
		Bool("deduplicated", res.Deduplicated).
		Bool("activated", res.Activated).
		Dur("duration", res.Duration).
		Msg("Rate card published")
	return outputJSON(c.App.Writer, res)
}

func runRatecardActivate(c *cli.Context) error {
	id, err := uuid.Parse(c.String("id"))
	if err != nil {
		return fmt.Errorf("invalid snapshot id: %w", err)
	}

	store, err := clickhouse.NewStore(clickhouseConfig(c))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ActivateSnapshot(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "snapshot %s activated\n", id)
	return nil
}

func runRatecardList(c *cli.Context) error {
	store, err := clickhouse.NewStore(clickhouseConfig(c))
	if err != nil {
		return err
	}
	defer store.Close()

	snapshots, err := store.ListSnapshots(c.Context, c.String("alias"))
	if err != nil {
		return err
	}
	for _, s := range snapshots {
		active := " "
		if s.IsActive {
			active = "*"
		}
		rates, err := store.CountRates(c.Context, s.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s %s  %-12s %-20s %4d rates  %s\n",
			active, s.ID, s.Version, s.Name, rates, s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

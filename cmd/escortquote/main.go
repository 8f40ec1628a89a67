// escortquote - escort vehicle pricing CLI
//
// Usage:
//
//	escortquote score --input draft.json
//	escortquote estimate --input trip.json [--format table]
//	escortquote resolve --input rate.json
//	escortquote quote --input quote.json
//	escortquote serve --port 8080
//	escortquote ratecard validate|show|publish|activate|list|migrate
//	escortquote surge get|set|clear --region west
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"escort-pricing/api"
	"escort-pricing/db/clickhouse"
	"escort-pricing/db/contracts"
	"escort-pricing/db/signals"
	"escort-pricing/decision/quote"
	"escort-pricing/decision/ratecard"
	"escort-pricing/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "escortquote",
		Usage:   "Escort vehicle pricing: completeness, baseline estimates and rate resolution",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"ESCORT_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "pretty",
				Usage:   "Human readable log output",
				EnvVars: []string{"ESCORT_LOG_PRETTY"},
			},
			&cli.StringFlag{
				Name:    "ratecard",
				Usage:   "Path to a YAML rate card overlaid on the built-in defaults",
				EnvVars: []string{"ESCORT_RATECARD"},
			},
			&cli.StringFlag{
				Name:    "snapshot-alias",
				Usage:   "Load the active rate card snapshot for this alias from ClickHouse",
				EnvVars: []string{"ESCORT_SNAPSHOT_ALIAS"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "escort_pricing",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "contracts-dsn",
				Usage:   "PostgreSQL DSN for client contract lookup",
				EnvVars: []string{"ESCORT_CONTRACTS_DSN"},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for surge multiplier lookup",
				EnvVars: []string{"ESCORT_REDIS_ADDR"},
			},
		},

		Before: func(c *cli.Context) error {
			platform.InitLogger(c.String("log-level"), c.Bool("pretty"))
			return nil
		},

		Commands: []*cli.Command{
			scoreCommand(),
			estimateCommand(),
			resolveCommand(),
			quoteCommand(),
			serveCommand(),
			ratecardCommand(),
			surgeCommand(),
		},
	}
}

// =============================================================================
// SHARED SETUP
// =============================================================================

func clickhouseConfig(c *cli.Context) *clickhouse.Config {
	return &clickhouse.Config{
		Host:     c.String("clickhouse-host"),
		Port:     c.Int("clickhouse-port"),
		Database: c.String("clickhouse-database"),
		Username: c.String("clickhouse-user"),
		Password: c.String("clickhouse-password"),
	}
}

// loadCard resolves the rate card: a stored snapshot when an alias is given,
// otherwise the YAML file, otherwise the built-in defaults.
func loadCard(c *cli.Context) (ratecard.Card, error) {
	if alias := c.String("snapshot-alias"); alias != "" {
		store, err := clickhouse.NewStore(clickhouseConfig(c))
		if err != nil {
			return ratecard.Card{}, err
		}
		defer store.Close()

		card, snapshot, err := store.LoadActiveCard(c.Context, alias)
		if err != nil {
			return ratecard.Card{}, fmt.Errorf("failed to load rate card snapshot: %w", err)
		}
		log.Info().Str("snapshot_id", snapshot.ID.String()).Str("alias", alias).Msg("Loaded rate card snapshot")
		return card, nil
	}
	if path := c.String("ratecard"); path != "" {
		return ratecard.Load(path)
	}
	return ratecard.Default(), nil
}

// closer collects cleanup for optional collaborators.
type closer []func() error

func (cl closer) Close() {
	for _, fn := range cl {
		if err := fn(); err != nil {
			log.Warn().Err(err).Msg("Close failed")
		}
	}
}

// buildService wires the quote service with whichever collaborators are
// configured.
func buildService(c *cli.Context, card ratecard.Card) (*quote.Service, closer, error) {
	logger := log.Logger
	svc := quote.NewService(card, logger)
	var cleanup closer

	if dsn := c.String("contracts-dsn"); dsn != "" {
		ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
		defer cancel()
		store, err := contracts.Open(ctx, dsn)
		if err != nil {
			cleanup.Close()
			return nil, nil, err
		}
		svc.WithContracts(store)
		cleanup = append(cleanup, store.Close)
	}

	if addr := c.String("redis-addr"); addr != "" {
		client := signals.NewClient(addr)
		svc.WithSurge(signals.NewSurgeStore(client))
		cleanup = append(cleanup, client.Close)
	}

	logger.Debug().
		Bool("contracts", c.String("contracts-dsn") != "").
		Bool("surge", c.String("redis-addr") != "").
		Msg("Quote service ready")
	return svc, cleanup, nil
}

// =============================================================================
// SERVE COMMAND (API SERVER)
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the escort pricing API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "API server port",
				EnvVars: []string{"ESCORT_PORT"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Require this X-API-Key on /api/v1 routes",
				EnvVars: []string{"ESCORT_API_KEY"},
			},
			&cli.BoolFlag{
				Name:    "snapshots",
				Usage:   "Expose ClickHouse rate card snapshots",
				EnvVars: []string{"ESCORT_SERVE_SNAPSHOTS"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	card, err := loadCard(c)
	if err != nil {
		return err
	}

	svc, cleanup, err := buildService(c, card)
	if err != nil {
		return err
	}
	defer cleanup.Close()

	var snapshots api.SnapshotLister
	if c.Bool("snapshots") {
		store, err := clickhouse.NewStore(clickhouseConfig(c))
		if err != nil {
			return err
		}
		defer store.Close()
		snapshots = store
	}

	cfg := api.DefaultConfig()
	cfg.Port = c.Int("port")
	cfg.APIKey = c.String("api-key")
	cfg.Version = version

	logger := log.Logger.With().Str("ratecard", card.Name).Logger()
	return api.NewServer(svc, snapshots, logger, cfg).StartWithGracefulShutdown()
}

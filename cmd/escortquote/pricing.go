package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"escort-pricing/decision/baseline"
	"escort-pricing/decision/completeness"
	"escort-pricing/decision/policy"
	"escort-pricing/decision/quote"
	"escort-pricing/decision/resolution"
	pricing "escort-pricing/pkg/api"
	perrors "escort-pricing/pkg/errors"
)

// ExitPolicyDeny is returned by quote when dispatch policy denies the quote.
const ExitPolicyDeny = 2

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "Path to the JSON request ('-' for stdin)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "json",
			Usage:   "Output format (json, table)",
		},
	}
}

// readInput decodes the --input JSON document into v.
func readInput(c *cli.Context, v any) error {
	path := c.String("input")

	var r io.Reader
	if path == "-" {
		r = c.App.Reader
		if r == nil {
			r = os.Stdin
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return perrors.NewInvalidRequestError(fmt.Errorf("%s: %w", path, err))
	}
	return nil
}

// =============================================================================
// SCORE COMMAND
// =============================================================================

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Score how complete a quote request is",
		Flags: inputFlags(),
		Action: func(c *cli.Context) error {
			var draft pricing.QuoteDraft
			if err := readInput(c, &draft); err != nil {
				return err
			}
			report := completeness.New().Score(draft)
			if c.String("format") == "table" {
				return outputScoreTable(c.App.Writer, report)
			}
			return outputJSON(c.App.Writer, report)
		},
	}
}

// =============================================================================
// ESTIMATE COMMAND
// =============================================================================

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Estimate the cost range of an escorted trip",
		Flags: inputFlags(),
		Action: func(c *cli.Context) error {
			var trip pricing.TripRequest
			if err := readInput(c, &trip); err != nil {
				return err
			}
			card, err := loadCard(c)
			if err != nil {
				return err
			}
			est := baseline.New(card).Estimate(trip)
			if c.String("format") == "table" {
				return outputEstimateTable(c.App.Writer, est)
			}
			return outputJSON(c.App.Writer, est)
		},
	}
}

// =============================================================================
// RESOLVE COMMAND
// =============================================================================

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve the final rate for a trip",
		Flags: inputFlags(),
		Action: func(c *cli.Context) error {
			var req pricing.RateRequest
			if err := readInput(c, &req); err != nil {
				return err
			}
			card, err := loadCard(c)
			if err != nil {
				return err
			}
			d := resolution.New(card).Resolve(req)
			if c.String("format") == "table" {
				return outputDecisionTable(c.App.Writer, d)
			}
			return outputJSON(c.App.Writer, d)
		},
	}
}

// =============================================================================
// QUOTE COMMAND
// =============================================================================

func quoteCommand() *cli.Command {
	flags := append(inputFlags(),
		&cli.Float64Flag{
			Name:  "max-rate",
			Usage: "Deny quotes whose final rate exceeds this amount",
		},
	)
	return &cli.Command{
		Name:   "quote",
		Usage:  "Score, estimate, resolve and run dispatch policy in one pass",
		Flags:  flags,
		Action: runQuote,
	}
}

func runQuote(c *cli.Context) error {
	var req quote.Request
	if err := readInput(c, &req); err != nil {
		return err
	}
	card, err := loadCard(c)
	if err != nil {
		return err
	}

	svc, cleanup, err := buildService(c, card)
	if err != nil {
		return err
	}
	defer cleanup.Close()

	if limit := c.Float64("max-rate"); limit > 0 {
		svc.WithPolicyEngine(policy.NewEngine().WithMaxRate(limit))
	}

	q, err := svc.Quote(c.Context, &req)
	if err != nil {
		return err
	}

	if c.String("format") == "table" {
		err = outputQuoteTable(c.App.Writer, q)
	} else {
		err = outputJSON(c.App.Writer, q)
	}
	if err != nil {
		return err
	}

	if q.Policy != nil && q.Policy.Decision == policy.DecisionDeny {
		return cli.Exit("dispatch denied by policy", ExitPolicyDeny)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"escort-pricing/decision/policy"
	"escort-pricing/decision/quote"
	pricing "escort-pricing/pkg/api"
)

// =============================================================================
// OUTPUT FORMATTERS
// =============================================================================

const (
	boxTop = "╔══════════════════════════════════════════════════════════════╗"
	boxSep = "╠══════════════════════════════════════════════════════════════╣"
	boxEnd = "╚══════════════════════════════════════════════════════════════╝"
)

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func boxRow(w io.Writer, label, value string) {
	fmt.Fprintf(w, "║  %-22s %-37s ║\n", label, truncate(value, 37))
}

func boxLine(w io.Writer, text string) {
	fmt.Fprintf(w, "║  %-60s║\n", truncate(text, 60))
}

func boxTitle(w io.Writer, title string) {
	fmt.Fprintln(w, boxTop)
	boxLine(w, title)
	fmt.Fprintln(w, boxSep)
}

func outputScoreTable(w io.Writer, report pricing.ConfidenceReport) error {
	boxTitle(w, "REQUEST COMPLETENESS")
	boxRow(w, "Score:", fmt.Sprintf("%d / 100", report.Score))
	boxRow(w, "Label:", string(report.Label))
	if len(report.Deductions) > 0 {
		fmt.Fprintln(w, boxSep)
		for _, d := range report.Deductions {
			boxRow(w, d.Code, fmt.Sprintf("-%d", d.Points))
		}
	}
	if len(report.Suggestions) > 0 {
		fmt.Fprintln(w, boxSep)
		for _, s := range report.Suggestions {
			boxLine(w, "- "+s)
		}
	}
	fmt.Fprintln(w, boxEnd)
	return nil
}

func outputEstimateTable(w io.Writer, est pricing.CostEstimate) error {
	boxTitle(w, "BASELINE ESTIMATE")
	boxRow(w, "Total:", fmt.Sprintf("%s - %s %s", est.Total.Min.StringFixed(2), est.Total.Max.StringFixed(2), est.Currency))
	boxRow(w, "Billing:", string(est.BillingMode))
	boxRow(w, "Escort units:", fmt.Sprintf("%.1f", est.Units))
	fmt.Fprintln(w, boxSep)

	keys := make([]string, 0, len(est.LineItems))
	for k := range est.LineItems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		item := est.LineItems[k]
		boxRow(w, k, fmt.Sprintf("%s - %s", item.Min.StringFixed(2), item.Max.StringFixed(2)))
	}

	if len(est.Notes) > 0 {
		fmt.Fprintln(w, boxSep)
		for _, n := range est.Notes {
			boxLine(w, "* "+n)
		}
	}
	fmt.Fprintln(w, boxEnd)
	return nil
}

func outputDecisionTable(w io.Writer, d pricing.RateDecision) error {
	boxTitle(w, "RATE DECISION")
	writeDecision(w, d)
	fmt.Fprintln(w, boxEnd)
	return nil
}

func writeDecision(w io.Writer, d pricing.RateDecision) {
	boxRow(w, "Final rate:", d.FinalRate.StringFixed(2)+" "+d.Currency)
	boxRow(w, "Baseline:", d.Baseline.StringFixed(2))
	for _, c := range d.Components {
		label := c.Code
		if c.Actor != "" {
			label += " (" + c.Actor + ")"
		}
		boxRow(w, label, signed(c.Amount.StringFixed(2)))
	}
	if len(d.Holds) > 0 {
		fmt.Fprintln(w, boxSep)
		for _, h := range d.Holds {
			boxRow(w, "HOLD "+string(h.Code), h.Reason)
		}
	}
	fmt.Fprintln(w, boxSep)
	for _, r := range d.AppliedRules {
		mark := " "
		if r.Matched {
			mark = "x"
		}
		boxRow(w, fmt.Sprintf("[%s] P%d %s", mark, r.Priority, r.RuleID), r.Name)
	}
}

func outputQuoteTable(w io.Writer, q *quote.Quote) error {
	boxTitle(w, "ESCORT QUOTE "+q.ID.String())
	if q.Completeness != nil {
		boxRow(w, "Completeness:", fmt.Sprintf("%d (%s)", q.Completeness.Score, q.Completeness.Label))
	}
	boxRow(w, "Estimate:", fmt.Sprintf("%s - %s", q.Estimate.Total.Min.StringFixed(2), q.Estimate.Total.Max.StringFixed(2)))
	fmt.Fprintln(w, boxSep)
	writeDecision(w, q.Decision)

	if q.Policy != nil {
		fmt.Fprintln(w, boxSep)
		var result string
		switch q.Policy.Decision {
		case policy.DecisionPass:
			result = "PASS"
		case policy.DecisionWarn:
			result = "WARN"
		case policy.DecisionDeny:
			result = "DENY"
		}
		boxRow(w, "Policy result:", result)
		for _, v := range q.Policy.Violations {
			boxLine(w, "x "+v.Message)
		}
		for _, wn := range q.Policy.Warnings {
			boxLine(w, "! "+wn.Message)
		}
	}

	if len(q.Notes) > 0 {
		fmt.Fprintln(w, boxSep)
		for _, n := range q.Notes {
			boxLine(w, "* "+n)
		}
	}
	fmt.Fprintln(w, boxEnd)
	return nil
}

func signed(s string) string {
	if len(s) > 0 && s[0] != '-' {
		return "+" + s
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

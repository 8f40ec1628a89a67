package api

import "github.com/shopspring/decimal"

// HoldCode is a dispatch-blocking or escalating flag independent of price.
type HoldCode string

const (
	HoldNoGo           HoldCode = "NO_GO"
	HoldReview         HoldCode = "REVIEW"
	HoldPermitRequired HoldCode = "PERMIT_REQUIRED"
)

// Hold is a safety flag attached to an otherwise successful decision.
type Hold struct {
	Code   HoldCode `json:"code"`
	Reason string   `json:"reason"`
}

// Component is one signed monetary adjustment applied on top of the baseline.
type Component struct {
	Code     string          `json:"code"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason"`
	Priority int             `json:"priority"`
	Actor    string          `json:"actor,omitempty"`
}

// AppliedRule records whether a pipeline stage fired.
type AppliedRule struct {
	RuleID   string `json:"ruleId"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Matched  bool   `json:"matched"`
}

// RateDecision is the record of why a price is what it is.
// FinalRate always equals Baseline plus the sum of Components.
type RateDecision struct {
	FinalRate    decimal.Decimal `json:"finalRate"`
	Currency     string          `json:"currency"`
	Baseline     decimal.Decimal `json:"baseline"`
	Components   []Component     `json:"components"`
	AppliedRules []AppliedRule   `json:"appliedRules"`
	Holds        []Hold          `json:"holds"`
	Explanation  string          `json:"explanation"`
}

// HasHold reports whether a hold with the given code is present.
func (d *RateDecision) HasHold(code HoldCode) bool {
	for _, h := range d.Holds {
		if h.Code == code {
			return true
		}
	}
	return false
}

// Blocked reports whether dispatch must not proceed.
func (d *RateDecision) Blocked() bool {
	return d.HasHold(HoldNoGo)
}

// MatchedRules counts stages that fired.
func (d *RateDecision) MatchedRules() int {
	n := 0
	for _, r := range d.AppliedRules {
		if r.Matched {
			n++
		}
	}
	return n
}

// ComponentSum returns the signed sum of all component amounts.
func (d *RateDecision) ComponentSum() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range d.Components {
		sum = sum.Add(c.Amount)
	}
	return sum
}

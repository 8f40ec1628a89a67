package api

import "github.com/shopspring/decimal"

// Line item keys used in CostEstimate.LineItems.
const (
	LineBaseEscort = "baseEscort"
	LineNightOps   = "nightOps"
	LinePolice     = "police"
	LineSurvey     = "survey"
	LineStandby    = "standby"
	LineFees       = "fees"
)

// CostRange represents a cost with lower and upper bounds.
type CostRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Add returns the bound-wise sum of two ranges.
func (r CostRange) Add(o CostRange) CostRange {
	return CostRange{Min: r.Min.Add(o.Min), Max: r.Max.Add(o.Max)}
}

// LineItem is a single priced part of an estimate.
type LineItem struct {
	Min         decimal.Decimal `json:"min"`
	Max         decimal.Decimal `json:"max"`
	Description string          `json:"description"`
}

// Range returns the item's bounds as a CostRange.
func (l LineItem) Range() CostRange {
	return CostRange{Min: l.Min, Max: l.Max}
}

// CostEstimate is the output of the baseline calculator.
type CostEstimate struct {
	Total       CostRange           `json:"total"`
	LineItems   map[string]LineItem `json:"lineItems"`
	Units       float64             `json:"units"`
	BillingMode BillingMode         `json:"billingMode"`
	Currency    string              `json:"currency"`
	Notes       []string            `json:"notes,omitempty"`
	Disclaimer  string              `json:"disclaimer"`
}

// Package ratecard holds the read-only configuration every pricing stage is
// computed from: rate tables, thresholds, caps and the defaults used when a
// request leaves a value out.
//
// A Card is loaded once at process start (built-in defaults, optionally
// overlaid by a YAML file or a stored snapshot) and passed by value into the
// gate, the calculator and the pipeline. Nothing mutates it afterwards.
package ratecard

import (
	"fmt"

	"github.com/shopspring/decimal"

	"escort-pricing/pkg/api"
	perrors "escort-pricing/pkg/errors"
)

// Range is a low/high pair of rates.
type Range struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Decimal returns the range as a priced api.CostRange.
func (r Range) Decimal() api.CostRange {
	return api.CostRange{Min: decimal.NewFromFloat(r.Low), Max: decimal.NewFromFloat(r.High)}
}

// Card is the complete pricing configuration.
type Card struct {
	Name     string   `json:"name" yaml:"name"`
	Currency string   `json:"currency" yaml:"currency"`
	Baseline Baseline `json:"baseline" yaml:"baseline"`
	Pipeline Pipeline `json:"pipeline" yaml:"pipeline"`
}

// Baseline configures the units-based cost range calculator.
type Baseline struct {
	// PerMile is keyed by escort type, then region.
	PerMile         Table[Table[Range]] `json:"perMile" yaml:"perMile"`
	RegionalPerMile Table[Range]        `json:"regionalPerMile" yaml:"regionalPerMile"`
	DefaultPerMile  Range               `json:"defaultPerMile" yaml:"defaultPerMile"`

	DayRate        Range   `json:"dayRate" yaml:"dayRate"`
	DayLengthMiles float64 `json:"dayLengthMiles" yaml:"dayLengthMiles"`

	// Hourly is keyed by escort type; only types listed here bill hourly.
	Hourly          Table[Range] `json:"hourly" yaml:"hourly"`
	MinimumHours    float64      `json:"minimumHours" yaml:"minimumHours"`
	AfterHoursMult  float64      `json:"afterHoursMultiplier" yaml:"afterHoursMultiplier"`
	WeekendMult     Range        `json:"weekendMultiplier" yaml:"weekendMultiplier"`
	NightOpsPerMile Range        `json:"nightOpsPerMile" yaml:"nightOpsPerMile"`
	StandbyHourly   Range        `json:"standbyHourly" yaml:"standbyHourly"`

	UrbanCoordinationFee Range `json:"urbanCoordinationFee" yaml:"urbanCoordinationFee"`
	MultiAgencyFee       Range `json:"multiAgencyFee" yaml:"multiAgencyFee"`
	CoordinationFee      Range `json:"coordinationFee" yaml:"coordinationFee"`

	Police Police `json:"police" yaml:"police"`
	Survey Survey `json:"survey" yaml:"survey"`

	Disclaimer string `json:"disclaimer" yaml:"disclaimer"`
}

// Police configures police escort pricing.
type Police struct {
	FixedHourly     float64        `json:"fixedHourly" yaml:"fixedHourly"`
	FixedPerMile    float64        `json:"fixedPerMile" yaml:"fixedPerMile"`
	FixedCeilingPct float64        `json:"fixedCeilingPct" yaml:"fixedCeilingPct"`
	LocalHourly     Range          `json:"localHourly" yaml:"localHourly"`
	RegionalHourly  Table[Range]   `json:"regionalHourly" yaml:"regionalHourly"`
	DefaultRegional Range          `json:"defaultRegionalHourly" yaml:"defaultRegionalHourly"`
	DefaultHours    float64        `json:"defaultHours" yaml:"defaultHours"`
	DefaultMode     api.PoliceMode `json:"defaultMode" yaml:"defaultMode"`
}

// Survey configures route survey pricing.
type Survey struct {
	FlatDaily   Range          `json:"flatDaily" yaml:"flatDaily"`
	Tiers       []SurveyTier   `json:"tiers" yaml:"tiers"`
	DefaultMode api.SurveyMode `json:"defaultMode" yaml:"defaultMode"`
}

// SurveyTier prices surveys for trips up to MaxMiles. The last tier has
// MaxMiles 0 and covers everything longer.
type SurveyTier struct {
	MaxMiles float64 `json:"maxMiles" yaml:"maxMiles"`
	Price    Range   `json:"price" yaml:"price"`
}

// Pipeline configures the rate resolution pipeline.
type Pipeline struct {
	NoGoThreshold     float64 `json:"noGoThreshold" yaml:"noGoThreshold"`
	ReviewComplexity  float64 `json:"reviewComplexity" yaml:"reviewComplexity"`
	PermitTag         string  `json:"permitTag" yaml:"permitTag"`
	DetourPerMile     float64 `json:"detourPerMile" yaml:"detourPerMile"`
	DelayHourly       float64 `json:"delayHourly" yaml:"delayHourly"`
	SurgeCap          float64 `json:"surgeCap" yaml:"surgeCap"`
	RiskThreshold     float64 `json:"riskThreshold" yaml:"riskThreshold"`
	RiskCapPct        float64 `json:"riskCapPct" yaml:"riskCapPct"`
	RiskPointValue    float64 `json:"riskPointValue" yaml:"riskPointValue"`
	RiskTotalPct      float64 `json:"riskTotalPct" yaml:"riskTotalPct"`
	DefaultEscortType string  `json:"defaultEscortType" yaml:"defaultEscortType"`

	// Global is the simple per-escort-type baseline table used by the
	// pipeline. It is tuned independently of Baseline.PerMile.
	Global Table[GlobalRate] `json:"global" yaml:"global"`
}

// GlobalRate is one row of the pipeline's baseline table.
type GlobalRate struct {
	PerMile         float64 `json:"perMile" yaml:"perMile"`
	DeadheadPerMile float64 `json:"deadheadPerMile" yaml:"deadheadPerMile"`
	MinFloor        float64 `json:"minFloor" yaml:"minFloor"`
}

// CurrencyOr returns c when set, otherwise the card currency.
func (c Card) CurrencyOr(cur string) string {
	if cur != "" {
		return cur
	}
	if c.Currency != "" {
		return c.Currency
	}
	return DefaultCurrency
}

type rangeCheck struct {
	field string
	r     Range
}

// Validate reports the first unusable value in the card.
func (c Card) Validate() error {
	checks := []rangeCheck{
		{"baseline.defaultPerMile", c.Baseline.DefaultPerMile},
		{"baseline.dayRate", c.Baseline.DayRate},
		{"baseline.weekendMultiplier", c.Baseline.WeekendMult},
		{"baseline.nightOpsPerMile", c.Baseline.NightOpsPerMile},
		{"baseline.standbyHourly", c.Baseline.StandbyHourly},
		{"baseline.urbanCoordinationFee", c.Baseline.UrbanCoordinationFee},
		{"baseline.multiAgencyFee", c.Baseline.MultiAgencyFee},
		{"baseline.coordinationFee", c.Baseline.CoordinationFee},
		{"baseline.police.localHourly", c.Baseline.Police.LocalHourly},
		{"baseline.police.defaultRegionalHourly", c.Baseline.Police.DefaultRegional},
		{"baseline.survey.flatDaily", c.Baseline.Survey.FlatDaily},
	}
	for escort, regions := range c.Baseline.PerMile {
		for region, r := range regions {
			checks = append(checks, rangeCheck{fmt.Sprintf("baseline.perMile.%s.%s", escort, region), r})
		}
	}
	for region, r := range c.Baseline.RegionalPerMile {
		checks = append(checks, rangeCheck{"baseline.regionalPerMile." + region, r})
	}
	for escort, r := range c.Baseline.Hourly {
		checks = append(checks, rangeCheck{"baseline.hourly." + escort, r})
	}
	for region, r := range c.Baseline.Police.RegionalHourly {
		checks = append(checks, rangeCheck{"baseline.police.regionalHourly." + region, r})
	}
	for i, tier := range c.Baseline.Survey.Tiers {
		checks = append(checks, rangeCheck{fmt.Sprintf("baseline.survey.tiers[%d]", i), tier.Price})
	}
	for _, ch := range checks {
		if ch.r.Low < 0 || ch.r.High < 0 {
			return perrors.NewInvalidRateCardError(ch.field, "rates must not be negative")
		}
		if ch.r.Low > ch.r.High {
			return perrors.NewInvalidRateCardError(ch.field, "low bound exceeds high bound")
		}
	}

	if c.Baseline.DayLengthMiles <= 0 {
		return perrors.NewInvalidRateCardError("baseline.dayLengthMiles", "must be positive")
	}
	if c.Baseline.AfterHoursMult < 1 {
		return perrors.NewInvalidRateCardError("baseline.afterHoursMultiplier", "must be >= 1.0")
	}
	if c.Baseline.Police.DefaultHours <= 0 {
		return perrors.NewInvalidRateCardError("baseline.police.defaultHours", "must be positive")
	}

	p := c.Pipeline
	if p.NoGoThreshold < 0 || p.NoGoThreshold > 1 {
		return perrors.NewInvalidRateCardError("pipeline.noGoThreshold", "must be within [0, 1]")
	}
	if p.ReviewComplexity < 0 || p.ReviewComplexity > 1 {
		return perrors.NewInvalidRateCardError("pipeline.reviewComplexity", "must be within [0, 1]")
	}
	if p.SurgeCap < 1 {
		return perrors.NewInvalidRateCardError("pipeline.surgeCap", "must be >= 1.0")
	}
	if p.RiskCapPct < 0 || p.RiskTotalPct < 0 || p.RiskPointValue < 0 {
		return perrors.NewInvalidRateCardError("pipeline.risk", "risk premium settings must not be negative")
	}
	if _, ok := p.Global[p.DefaultEscortType]; !ok {
		return perrors.NewInvalidRateCardError("pipeline.defaultEscortType", "no global rate row for default escort type")
	}
	for escort, g := range p.Global {
		if g.PerMile < 0 || g.DeadheadPerMile < 0 || g.MinFloor < 0 {
			return perrors.NewInvalidRateCardError("pipeline.global."+escort, "rates must not be negative")
		}
	}
	return nil
}

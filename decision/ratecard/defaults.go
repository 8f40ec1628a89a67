package ratecard

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"escort-pricing/pkg/api"
)

// DefaultCurrency is used when neither the request nor the card names one.
const DefaultCurrency = "USD"

// DefaultDisclaimer is attached to every cost estimate.
const DefaultDisclaimer = "Estimate only. Final escort cost depends on the approved permit route, " +
	"jurisdiction requirements and on-the-day conditions."

// Default returns the built-in rate card. Every call returns fresh maps.
func Default() Card {
	return Card{
		Name:     "builtin",
		Currency: DefaultCurrency,
		Baseline: Baseline{
			PerMile: Table[Table[Range]]{
				string(api.EscortPilotCar): {
					"southeast": {1.65, 1.90},
					"midwest":   {1.75, 2.00},
					"northeast": {1.85, 2.15},
					"southwest": {1.70, 1.95},
					"west":      {2.00, 2.35},
				},
				string(api.EscortHighPole): {
					"southeast": {1.90, 2.25},
					"midwest":   {2.00, 2.35},
					"northeast": {2.15, 2.50},
					"southwest": {1.95, 2.30},
					"west":      {2.25, 2.65},
				},
			},
			RegionalPerMile: Table[Range]{
				"southeast": {1.65, 1.90},
				"midwest":   {1.75, 2.00},
				"northeast": {1.85, 2.15},
				"southwest": {1.70, 1.95},
				"west":      {2.00, 2.35},
			},
			DefaultPerMile: Range{1.75, 2.00},

			DayRate:        Range{450, 650},
			DayLengthMiles: 450,

			Hourly: Table[Range]{
				string(api.EscortBucketTruck): {150, 225},
			},
			MinimumHours:    8,
			AfterHoursMult:  1.25,
			WeekendMult:     Range{1.10, 1.50},
			NightOpsPerMile: Range{0.25, 0.50},
			StandbyHourly:   Range{40, 60},

			UrbanCoordinationFee: Range{150, 300},
			MultiAgencyFee:       Range{250, 500},
			CoordinationFee:      Range{75, 150},

			Police: Police{
				FixedHourly:     31,
				FixedPerMile:    0.044,
				FixedCeilingPct: 0.15,
				LocalHourly:     Range{65, 95},
				RegionalHourly: Table[Range]{
					"southeast": {70, 105},
					"midwest":   {75, 110},
					"northeast": {90, 140},
					"southwest": {70, 110},
					"west":      {95, 150},
				},
				DefaultRegional: Range{80, 120},
				DefaultHours:    4,
				DefaultMode:     api.PoliceFixed,
			},
			Survey: Survey{
				FlatDaily: Range{350, 550},
				Tiers: []SurveyTier{
					{MaxMiles: 100, Price: Range{250, 400}},
					{MaxMiles: 300, Price: Range{400, 650}},
					{MaxMiles: 500, Price: Range{650, 950}},
					{MaxMiles: 0, Price: Range{950, 1400}},
				},
				DefaultMode: api.SurveyTiered,
			},

			Disclaimer: DefaultDisclaimer,
		},
		Pipeline: Pipeline{
			NoGoThreshold:     0.60,
			ReviewComplexity:  0.80,
			PermitTag:         "permit_required",
			DetourPerMile:     2.00,
			DelayHourly:       75,
			SurgeCap:          2.5,
			RiskThreshold:     0.5,
			RiskCapPct:        0.25,
			RiskPointValue:    100,
			RiskTotalPct:      0.15,
			DefaultEscortType: string(api.EscortPilotCar),
			Global: Table[GlobalRate]{
				string(api.EscortPilotCar): {PerMile: 1.85, DeadheadPerMile: 0.95, MinFloor: 350},
				string(api.EscortHighPole): {PerMile: 2.25, DeadheadPerMile: 1.10, MinFloor: 450},
				string(api.EscortPolice):   {PerMile: 3.50, DeadheadPerMile: 1.50, MinFloor: 600},
			},
		},
	}
}

// Load overlays the YAML file at path on the built-in card. Sections, table
// rows and row fields absent from the file keep their defaults.
func Load(path string) (Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Card{}, fmt.Errorf("failed to read rate card: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML overlays YAML data on the built-in card and validates the result.
func ParseYAML(data []byte) (Card, error) {
	card := Default()
	if err := yaml.Unmarshal(data, &card); err != nil {
		return Card{}, fmt.Errorf("failed to parse rate card: %w", err)
	}
	if err := card.Validate(); err != nil {
		return Card{}, err
	}
	return card, nil
}

// ParseJSON overlays a JSON payload, such as a stored snapshot, on the
// built-in card and validates the result.
func ParseJSON(data []byte) (Card, error) {
	card := Default()
	if err := json.Unmarshal(data, &card); err != nil {
		return Card{}, fmt.Errorf("failed to decode rate card: %w", err)
	}
	if err := card.Validate(); err != nil {
		return Card{}, err
	}
	return card, nil
}

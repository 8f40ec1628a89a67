package clickhouse

import (
	"sort"

	"escort-pricing/decision/ratecard"
	"escort-pricing/pkg/units"
)

// RateRow is one flattened range of a rate card, stored for analytics.
type RateRow struct {
	Section    string
	EscortType string
	Region     string
	Unit       string
	Low        float64
	High       float64
}

// FlattenCard turns a card's range tables into rows in a stable order.
func FlattenCard(card ratecard.Card) []RateRow {
	b := card.Baseline
	rows := make([]RateRow, 0, 64)

	for _, escort := range sortedKeys(b.PerMile) {
		regions := b.PerMile[escort]
		for _, region := range sortedKeys(regions) {
			rows = append(rows, row("per_mile", escort, region, units.UnitMile, regions[region]))
		}
	}
	for _, region := range sortedKeys(b.RegionalPerMile) {
		rows = append(rows, row("regional_per_mile", "", region, units.UnitMile, b.RegionalPerMile[region]))
	}
	rows = append(rows,
		row("default_per_mile", "", "", units.UnitMile, b.DefaultPerMile),
		row("day_rate", "", "", units.UnitDay, b.DayRate),
	)
	for _, escort := range sortedKeys(b.Hourly) {
		rows = append(rows, row("hourly", escort, "", units.UnitHour, b.Hourly[escort]))
	}
	rows = append(rows,
		row("night_ops", "", "", units.UnitMile, b.NightOpsPerMile),
		row("standby", "", "", units.UnitHour, b.StandbyHourly),
		row("fee_urban_coordination", "", "", units.UnitFlat, b.UrbanCoordinationFee),
		row("fee_multi_agency", "", "", units.UnitFlat, b.MultiAgencyFee),
		row("fee_coordination", "", "", units.UnitFlat, b.CoordinationFee),
		row("police_local", "", "", units.UnitHour, b.Police.LocalHourly),
		row("police_regional_default", "", "", units.UnitHour, b.Police.DefaultRegional),
	)
	for _, region := range sortedKeys(b.Police.RegionalHourly) {
		rows = append(rows, row("police_regional", "", region, units.UnitHour, b.Police.RegionalHourly[region]))
	}
	rows = append(rows, row("survey_flat", "", "", units.UnitDay, b.Survey.FlatDaily))
	for _, tier := range b.Survey.Tiers {
		rows = append(rows, RateRow{
			Section: "survey_tier",
			Unit:    string(units.UnitFlat),
			Low:     tier.Price.Low,
			High:    tier.Price.High,
		})
	}

	for _, escort := range sortedKeys(card.Pipeline.Global) {
		g := card.Pipeline.Global[escort]
		rows = append(rows,
			RateRow{Section: "global_per_mile", EscortType: escort, Unit: string(units.UnitMile), Low: g.PerMile, High: g.PerMile},
			RateRow{Section: "global_deadhead", EscortType: escort, Unit: string(units.UnitMile), Low: g.DeadheadPerMile, High: g.DeadheadPerMile},
			RateRow{Section: "global_floor", EscortType: escort, Unit: string(units.UnitFlat), Low: g.MinFloor, High: g.MinFloor},
		)
	}
	return rows
}

func row(section, escort, region string, unit units.Unit, r ratecard.Range) RateRow {
	return RateRow{
		Section:    section,
		EscortType: escort,
		Region:     region,
		Unit:       string(unit),
		Low:        r.Low,
		High:       r.High,
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

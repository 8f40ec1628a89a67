// Package baseline provides the units-based escort cost range calculator.
// It turns trip parameters into a defensible min/max price with one line item
// per priced concern. Missing inputs fall back to rate card defaults and are
// never fatal.
package baseline

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"escort-pricing/decision/ratecard"
	"escort-pricing/pkg/api"
	"escort-pricing/pkg/units"
)

// Calculator is the cost baseline calculator.
type Calculator struct {
	rates    ratecard.Baseline
	currency string
}

// New creates a calculator bound to a rate card.
func New(card ratecard.Card) *Calculator {
	return &Calculator{
		rates:    card.Baseline,
		currency: card.Currency,
	}
}

// estimate accumulates line items while a request is priced.
type estimate struct {
	items map[string]api.LineItem
	notes []string
}

func (e *estimate) add(key string, r api.CostRange, description string) {
	e.items[key] = api.LineItem{
		Min:         r.Min.Round(2),
		Max:         r.Max.Round(2),
		Description: description,
	}
}

func (e *estimate) note(format string, args ...any) {
	e.notes = append(e.notes, fmt.Sprintf(format, args...))
}

// Estimate prices a trip. Negative quantities are treated as zero.
func (c *Calculator) Estimate(req api.TripRequest) api.CostEstimate {
	est := &estimate{items: make(map[string]api.LineItem)}

	escortUnits := units.EscortUnits(req.Positions)
	if escortUnits == 0 {
		escortUnits = 1
		est.note("No escort positions given; priced as one escort unit")
	}
	miles := math.Max(req.MilesLoaded, 0)

	mode := c.baseEscort(est, req, escortUnits, miles)
	c.nightOps(est, req, escortUnits, miles)
	c.standby(est, req)
	c.fees(est, req)
	c.police(est, req, miles)
	c.survey(est, req, miles)

	total := api.CostRange{Min: decimal.Zero, Max: decimal.Zero}
	for _, item := range est.items {
		total = total.Add(item.Range())
	}

	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}
	if currency == "" {
		currency = ratecard.DefaultCurrency
	}

	disclaimer := c.rates.Disclaimer
	if disclaimer == "" {
		disclaimer = ratecard.DefaultDisclaimer
	}

	return api.CostEstimate{
		Total:       total,
		LineItems:   est.items,
		Units:       escortUnits,
		BillingMode: mode,
		Currency:    currency,
		Notes:       est.notes,
		Disclaimer:  disclaimer,
	}
}

// baseEscort prices the escorts themselves and returns the billing mode
// actually used.
func (c *Calculator) baseEscort(est *estimate, req api.TripRequest, escortUnits, miles float64) api.BillingMode {
	mode := req.BillingMode
	if mode == "" {
		mode = api.BillingPerMile
	}

	var base api.CostRange
	var description string

	switch mode {
	case api.BillingDayRate:
		days := units.DaysForMiles(miles, c.rates.DayLengthMiles)
		base = scale(c.rates.DayRate.Decimal(), float64(days)*escortUnits)
		description = fmt.Sprintf("%d day(s) x %.2f units @ %s/day", days, escortUnits, rangeString(c.rates.DayRate))

	case api.BillingHourly:
		rate, ok := c.rates.Hourly[string(req.EscortType)]
		if !ok {
			est.note("Hourly billing is not offered for %q; priced per mile", req.EscortType)
			mode = api.BillingPerMile
			base, description = c.perMile(est, req, escortUnits, miles)
			break
		}
		hours := units.BillableHours(req.Hours, c.rates.MinimumHours)
		base = scale(rate.Decimal(), hours*escortUnits)
		description = fmt.Sprintf("%.1f hr x %.2f units @ %s/hr", hours, escortUnits, rangeString(rate))

	case api.BillingPerMile:
		base, description = c.perMile(est, req, escortUnits, miles)

	default:
		est.note("Unknown billing mode %q; priced per mile", mode)
		mode = api.BillingPerMile
		base, description = c.perMile(est, req, escortUnits, miles)
	}

	if req.AfterHours {
		base = scale(base, c.rates.AfterHoursMult)
		description += fmt.Sprintf(", after-hours x%.2f", c.rates.AfterHoursMult)
	}
	if req.Weekend {
		base = api.CostRange{
			Min: base.Min.Mul(decimal.NewFromFloat(c.rates.WeekendMult.Low)),
			Max: base.Max.Mul(decimal.NewFromFloat(c.rates.WeekendMult.High)),
		}
		description += fmt.Sprintf(", weekend x%.2f-%.2f", c.rates.WeekendMult.Low, c.rates.WeekendMult.High)
	}

	est.add(api.LineBaseEscort, base, description)
	return mode
}

func (c *Calculator) perMile(est *estimate, req api.TripRequest, escortUnits, miles float64) (api.CostRange, string) {
	rate := c.perMileRate(est, req.EscortType, req.Region)
	return scale(rate.Decimal(), escortUnits*miles),
		fmt.Sprintf("%.2f units x %.0f mi @ %s/mi", escortUnits, miles, rangeString(rate))
}

// perMileRate looks up escort type and region, then region alone, then the
// card default.
func (c *Calculator) perMileRate(est *estimate, escort api.EscortType, region string) ratecard.Range {
	region = strings.ToLower(region)
	if byRegion, ok := c.rates.PerMile[string(escort)]; ok {
		if r, ok := byRegion[region]; ok {
			return r
		}
	}
	if r, ok := c.rates.RegionalPerMile[region]; ok {
		return r
	}
	est.note("No per-mile rate for region %q; used the default range", region)
	return c.rates.DefaultPerMile
}

func (c *Calculator) nightOps(est *estimate, req api.TripRequest, escortUnits, miles float64) {
	if !req.NightOps {
		return
	}
	est.add(api.LineNightOps,
		scale(c.rates.NightOpsPerMile.Decimal(), miles*escortUnits),
		fmt.Sprintf("Night operations %s/mi x %.0f mi x %.2f units", rangeString(c.rates.NightOpsPerMile), miles, escortUnits))
}

func (c *Calculator) standby(est *estimate, req api.TripRequest) {
	if req.StandbyHours <= 0 {
		return
	}
	est.add(api.LineStandby,
		scale(c.rates.StandbyHourly.Decimal(), req.StandbyHours),
		fmt.Sprintf("Standby %.1f hr @ %s/hr", req.StandbyHours, rangeString(c.rates.StandbyHourly)))
}

func (c *Calculator) fees(est *estimate, req api.TripRequest) {
	total := api.CostRange{Min: decimal.Zero, Max: decimal.Zero}
	var names []string

	if req.UrbanCoordination {
		total = total.Add(c.rates.UrbanCoordinationFee.Decimal())
		names = append(names, "urban coordination")
	}
	if req.MultiAgency {
		total = total.Add(c.rates.MultiAgencyFee.Decimal())
		names = append(names, "multi-agency")
	}
	if req.CoordinationFee {
		total = total.Add(c.rates.CoordinationFee.Decimal())
		names = append(names, "coordination")
	}
	if len(names) == 0 {
		return
	}
	est.add(api.LineFees, total, "Fees: "+strings.Join(names, ", "))
}

func (c *Calculator) police(est *estimate, req api.TripRequest, miles float64) {
	if !req.PoliceEscort {
		return
	}
	cfg := c.rates.Police

	hours := req.PoliceHours
	if hours <= 0 {
		hours = cfg.DefaultHours
		est.note("No police hours given; assumed %.0f", hours)
	}

	mode := req.PoliceMode
	if mode == "" {
		mode = cfg.DefaultMode
	}

	switch mode {
	case api.PoliceLocal:
		est.add(api.LinePolice,
			scale(cfg.LocalHourly.Decimal(), hours),
			fmt.Sprintf("Local police %.1f hr @ %s/hr", hours, rangeString(cfg.LocalHourly)))

	case api.PoliceRegional:
		rate, ok := cfg.RegionalHourly[strings.ToLower(req.Region)]
		if !ok {
			rate = cfg.DefaultRegional
		}
		est.add(api.LinePolice,
			scale(rate.Decimal(), hours),
			fmt.Sprintf("Regional police %.1f hr @ %s/hr", hours, rangeString(rate)))

	default:
		// fixed per-jurisdiction formula with a safety ceiling
		amount := decimal.NewFromFloat(cfg.FixedHourly).Mul(decimal.NewFromFloat(hours)).
			Add(decimal.NewFromFloat(cfg.FixedPerMile).Mul(decimal.NewFromFloat(miles)))
		ceiling := amount.Mul(decimal.NewFromFloat(1 + cfg.FixedCeilingPct))
		est.add(api.LinePolice,
			api.CostRange{Min: amount, Max: ceiling},
			fmt.Sprintf("Police %.0f x %.1f hr + %.3f x %.0f mi, +%.0f%% ceiling",
				cfg.FixedHourly, hours, cfg.FixedPerMile, miles, cfg.FixedCeilingPct*100))
	}
}

func (c *Calculator) survey(est *estimate, req api.TripRequest, miles float64) {
	if !req.RouteSurvey {
		return
	}
	cfg := c.rates.Survey

	mode := req.SurveyMode
	if mode == "" {
		mode = cfg.DefaultMode
	}
	if mode == api.SurveyTiered && len(cfg.Tiers) == 0 {
		est.note("No survey tiers configured; priced at the flat daily rate")
		mode = api.SurveyFlat
	}

	if mode != api.SurveyTiered {
		days := math.Max(req.SurveyDays, 1)
		est.add(api.LineSurvey,
			scale(cfg.FlatDaily.Decimal(), days),
			fmt.Sprintf("Route survey %.0f day(s) @ %s/day", days, rangeString(cfg.FlatDaily)))
		return
	}

	bounds := make([]float64, 0, len(cfg.Tiers))
	for _, tier := range cfg.Tiers {
		if tier.MaxMiles > 0 {
			bounds = append(bounds, tier.MaxMiles)
		}
	}
	idx := units.MileBucket(miles, bounds)
	if idx >= len(cfg.Tiers) {
		idx = len(cfg.Tiers) - 1
	}
	tier := cfg.Tiers[idx]
	est.add(api.LineSurvey, tier.Price.Decimal(), fmt.Sprintf("Route survey, %s", tierLabel(cfg.Tiers, idx)))
}

func tierLabel(tiers []ratecard.SurveyTier, idx int) string {
	lo := 0.0
	if idx > 0 {
		lo = tiers[idx-1].MaxMiles
	}
	if tiers[idx].MaxMiles <= 0 {
		return fmt.Sprintf("over %.0f mi", lo)
	}
	return fmt.Sprintf("%.0f-%.0f mi", lo, tiers[idx].MaxMiles)
}

func scale(r api.CostRange, factor float64) api.CostRange {
	f := decimal.NewFromFloat(factor)
	return api.CostRange{Min: r.Min.Mul(f), Max: r.Max.Mul(f)}
}

func rangeString(r ratecard.Range) string {
	return fmt.Sprintf("$%.2f-$%.2f", r.Low, r.High)
}

package resolution

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"escort-pricing/pkg/api"
	"escort-pricing/pkg/confidence"
)

// Rule identifiers recorded in RateDecision.AppliedRules.
const (
	RuleSafetyHolds    = "safety_holds"
	RuleBaseline       = "baseline"
	RuleCorridor       = "corridor_overrides"
	RuleSurge          = "surge"
	RuleRiskPremium    = "risk_premium"
	RuleClientContract = "client_contract"
	RuleManualOverride = "manual_override"
)

// Priority tiers. These are audit labels; stages run in slice order.
const (
	PrioritySafety   = 0
	PriorityContract = 1
	PriorityOverride = 2
	PriorityCorridor = 3
	PrioritySurge    = 4
	PriorityRisk     = 5
	PriorityBaseline = 6
)

// Component codes.
const (
	CodeDetour         = "DETOUR"
	CodeDelay          = "DELAY"
	CodeCurfew         = "CURFEW"
	CodeSurge          = "SURGE"
	CodeRiskPremium    = "RISK_PREMIUM"
	CodeContractFixed  = "CONTRACT_FIXED"
	CodeContractFloor  = "CONTRACT_FLOOR"
	CodeContractCap    = "CONTRACT_CAP"
	CodeManualOverride = "MANUAL_OVERRIDE"
)

// Stage is one step of the pipeline. apply reports whether the stage matched.
type Stage struct {
	RuleID   string
	Name     string
	Priority int
	apply    func(p *Pipeline, r *run) bool
}

func defaultStages() []Stage {
	return []Stage{
		{RuleSafetyHolds, "Safety holds", PrioritySafety, (*Pipeline).safetyHolds},
		{RuleBaseline, "Global baseline", PriorityBaseline, (*Pipeline).baseline},
		{RuleCorridor, "Corridor overrides", PriorityCorridor, (*Pipeline).corridor},
		{RuleSurge, "Demand surge", PrioritySurge, (*Pipeline).surge},
		{RuleRiskPremium, "Risk and complexity premium", PriorityRisk, (*Pipeline).riskPremium},
		{RuleClientContract, "Client contract clamp", PriorityContract, (*Pipeline).contract},
		{RuleManualOverride, "Manual override", PriorityOverride, (*Pipeline).manualOverride},
	}
}

// safetyHolds never touches the running total.
func (p *Pipeline) safetyHolds(r *run) bool {
	req := r.req
	before := len(r.holds)

	// Absent confidence skips the no-go check.
	if req.CorridorConfidence != nil {
		c := confidence.Clamp01(*req.CorridorConfidence)
		if c < p.cfg.NoGoThreshold {
			r.hold(api.HoldNoGo, fmt.Sprintf("Corridor confidence %.2f is below the no-go threshold %.2f", c, p.cfg.NoGoThreshold))
		}
	}

	complexity := confidence.Clamp01(req.Risk.ComplexityScore)
	if req.Risk.BridgeRisk && complexity > p.cfg.ReviewComplexity {
		r.hold(api.HoldReview, fmt.Sprintf("Bridge risk with complexity %.2f above %.2f", complexity, p.cfg.ReviewComplexity))
	}

	if p.cfg.PermitTag != "" && req.HasCorridorTag(p.cfg.PermitTag) {
		r.hold(api.HoldPermitRequired, fmt.Sprintf("Corridor tagged %q", p.cfg.PermitTag))
	}

	return len(r.holds) > before
}

// baseline seeds the running total from the global per-escort-type table.
func (p *Pipeline) baseline(r *run) bool {
	escort := string(r.req.EscortType)
	row, ok := p.cfg.Global[escort]
	if !ok {
		escort = p.cfg.DefaultEscortType
		row = p.cfg.Global[escort]
	}

	loaded := decimal.NewFromFloat(math.Max(r.req.MilesLoaded, 0)).Mul(decimal.NewFromFloat(row.PerMile))
	deadhead := decimal.NewFromFloat(math.Max(r.req.MilesDeadhead, 0)).Mul(decimal.NewFromFloat(row.DeadheadPerMile))
	amount := decimal.Max(decimal.NewFromFloat(row.MinFloor), loaded.Add(deadhead)).Round(2)

	r.baseline = amount
	r.total = amount
	return true
}

func (p *Pipeline) corridor(r *run) bool {
	matched := false

	if miles := r.req.DetourMiles; miles > 0 {
		amount := decimal.NewFromFloat(miles).Mul(decimal.NewFromFloat(p.cfg.DetourPerMile))
		r.apply(CodeDetour, amount, fmt.Sprintf("Detour %.1f mi @ %.2f/mi", miles, p.cfg.DetourPerMile), PriorityCorridor, "")
		matched = true
	}
	if hours := r.req.DelayHours; hours > 0 {
		amount := decimal.NewFromFloat(hours).Mul(decimal.NewFromFloat(p.cfg.DelayHourly))
		r.apply(CodeDelay, amount, fmt.Sprintf("Delay %.1f hr @ %.2f/hr", hours, p.cfg.DelayHourly), PriorityCorridor, "")
		matched = true
	}
	if r.req.CurfewPenalty.IsPositive() {
		r.apply(CodeCurfew, r.req.CurfewPenalty, "Curfew penalty", PriorityCorridor, "")
		matched = true
	}
	return matched
}

// surge records the delta the multiplier introduces, not the new total.
func (p *Pipeline) surge(r *run) bool {
	if r.req.SurgeMultiplier == nil || *r.req.SurgeMultiplier <= 1 {
		return false
	}
	requested := *r.req.SurgeMultiplier
	applied := math.Min(requested, p.cfg.SurgeCap)

	reason := fmt.Sprintf("Surge x%.2f", applied)
	if applied < requested {
		reason += fmt.Sprintf(" (requested x%.2f, capped)", requested)
	}
	delta := r.total.Mul(decimal.NewFromFloat(applied)).Sub(r.total)
	r.apply(CodeSurge, delta, reason, PrioritySurge, "")
	return true
}

// riskPremium is bounded by a share of the running total before the stage.
func (p *Pipeline) riskPremium(r *run) bool {
	score := confidence.Clamp01(r.req.Risk.ComplexityScore)
	if score <= p.cfg.RiskThreshold {
		return false
	}

	capped := r.total.Mul(decimal.NewFromFloat(p.cfg.RiskCapPct))
	scored := decimal.NewFromFloat(score * p.cfg.RiskPointValue).
		Add(r.total.Mul(decimal.NewFromFloat(p.cfg.RiskTotalPct)))
	amount := decimal.Min(capped, scored)

	r.apply(CodeRiskPremium, amount, fmt.Sprintf("Complexity %.2f premium", score), PriorityRisk, "")
	return true
}

// contract acts on at most one of fixed rate, floor and cap, in that order.
func (p *Pipeline) contract(r *run) bool {
	c := r.req.Contract
	if c == nil {
		return false
	}
	label := "Client contract"
	if c.ID != "" {
		label += " " + c.ID
	}

	switch {
	case c.FixedRate != nil:
		target := c.FixedRate.Round(2)
		r.apply(CodeContractFixed, target.Sub(r.total), label+" fixed rate "+target.StringFixed(2), PriorityContract, "")
		return true

	case c.Floor != nil && r.total.LessThan(c.Floor.Round(2)):
		target := c.Floor.Round(2)
		r.apply(CodeContractFloor, target.Sub(r.total), label+" floor "+target.StringFixed(2), PriorityContract, "")
		return true

	case c.Cap != nil && r.total.GreaterThan(c.Cap.Round(2)):
		target := c.Cap.Round(2)
		r.apply(CodeContractCap, target.Sub(r.total), label+" cap "+target.StringFixed(2), PriorityContract, "")
		return true
	}
	return false
}

// manualOverride always runs last and always wins.
func (p *Pipeline) manualOverride(r *run) bool {
	o := r.req.Override
	if o == nil {
		return false
	}
	target := o.Amount.Round(2)
	r.apply(CodeManualOverride, target.Sub(r.total), o.Reason, PriorityOverride, o.Operator)
	return true
}

// Package resolution reconciles a baseline price against corridor, surge,
// risk, contract and manual override signals.
//
// The pipeline is a single linear pass over a fixed stage list. Each stage
// may append components, holds or both; the final rate is only known once
// the last stage has run. Stage order is the slice order. The priority number
// on each stage is an audit label and is never used to sort: the manual
// override is labelled priority 2 but always runs after the priority 1
// contract clamp.
package resolution

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"escort-pricing/decision/ratecard"
	"escort-pricing/pkg/api"
)

// Pipeline is the rate resolution pipeline.
type Pipeline struct {
	cfg      ratecard.Pipeline
	currency string
	stages   []Stage
}

// New creates a pipeline bound to a rate card.
func New(card ratecard.Card) *Pipeline {
	return &Pipeline{
		cfg:      card.Pipeline,
		currency: card.CurrencyOr(""),
		stages:   defaultStages(),
	}
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// run is the mutable state of one resolution.
type run struct {
	req        api.RateRequest
	baseline   decimal.Decimal
	total      decimal.Decimal
	components []api.Component
	holds      []api.Hold
}

// apply appends a component and moves the running total by the same
// rounded amount.
func (r *run) apply(code string, amount decimal.Decimal, reason string, priority int, actor string) {
	amount = amount.Round(2)
	r.total = r.total.Add(amount)
	r.components = append(r.components, api.Component{
		Code:     code,
		Amount:   amount,
		Reason:   reason,
		Priority: priority,
		Actor:    actor,
	})
}

func (r *run) hold(code api.HoldCode, reason string) {
	r.holds = append(r.holds, api.Hold{Code: code, Reason: reason})
}

// Resolve runs every stage in order and returns the decision. It never fails
// and has no side effects.
func (p *Pipeline) Resolve(req api.RateRequest) api.RateDecision {
	r := &run{
		req:        req,
		baseline:   decimal.Zero,
		total:      decimal.Zero,
		components: make([]api.Component, 0),
		holds:      make([]api.Hold, 0),
	}

	rules := make([]api.AppliedRule, 0, len(p.stages))
	for _, stage := range p.stages {
		matched := stage.apply(p, r)
		rules = append(rules, api.AppliedRule{
			RuleID:   stage.RuleID,
			Name:     stage.Name,
			Priority: stage.Priority,
			Matched:  matched,
		})
	}

	currency := req.Currency
	if currency == "" {
		currency = p.currency
	}

	decision := api.RateDecision{
		FinalRate:    r.total.Round(2),
		Currency:     currency,
		Baseline:     r.baseline,
		Components:   r.components,
		AppliedRules: rules,
		Holds:        r.holds,
	}
	decision.Explanation = explain(&decision)
	return decision
}

func explain(d *api.RateDecision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resolved final rate %s %s: %d of %d rules matched.",
		d.FinalRate.StringFixed(2), d.Currency, d.MatchedRules(), len(d.AppliedRules))

	if len(d.Holds) == 0 {
		b.WriteString(" Ready for dispatch.")
		return b.String()
	}

	codes := make([]string, 0, len(d.Holds))
	for _, h := range d.Holds {
		codes = append(codes, string(h.Code))
	}
	fmt.Fprintf(&b, " Warning: %d safety hold(s) present (%s).", len(d.Holds), strings.Join(codes, ", "))
	if d.Blocked() {
		b.WriteString(" Dispatch blocked.")
	}
	return b.String()
}

// Package policy provides the dispatch policy engine.
// Evaluates dispatch rules against a resolved rate decision and its
// completeness report. Policies never change a price; they decide whether a
// quote may be dispatched as is.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"escort-pricing/decision/resolution"
	"escort-pricing/pkg/api"
	"escort-pricing/pkg/confidence"
)

// PolicyType defines the type of policy
type PolicyType string

const (
	PolicyTypeHold                  PolicyType = "hold"
	PolicyTypeCompletenessThreshold PolicyType = "completeness_threshold"
	PolicyTypeMaxRate               PolicyType = "max_rate"
	PolicyTypeOverrideActor         PolicyType = "override_actor"
)

// Severity defines policy violation severity
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Decision is the policy evaluation outcome
type Decision string

const (
	DecisionPass Decision = "pass"
	DecisionWarn Decision = "warn"
	DecisionDeny Decision = "deny"
)

// Policy defines a dispatch rule
type Policy struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Type        PolicyType   `json:"type"`
	Severity    Severity     `json:"severity"`
	Hold        api.HoldCode `json:"hold,omitempty"` // hold policies only
	Threshold   float64      `json:"threshold"`
	Enabled     bool         `json:"enabled"`
}

// Violation represents a policy violation
type Violation struct {
	PolicyID   string `json:"policyId"`
	PolicyName string `json:"policyName"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
}

// Warning represents a policy warning
type Warning struct {
	PolicyID string `json:"policyId"`
	Message  string `json:"message"`
}

// EvaluationRequest contains the input for policy evaluation
type EvaluationRequest struct {
	Decision       *api.RateDecision
	Completeness   *api.ConfidenceReport // optional
	CustomPolicies []Policy
}

// EvaluationResult contains the policy evaluation outcome
type EvaluationResult struct {
	Decision    Decision    `json:"decision"`
	Violations  []Violation `json:"violations"`
	Warnings    []Warning   `json:"warnings"`
	PoliciesRan int         `json:"policiesRan"`
	EvaluatedAt time.Time   `json:"evaluatedAt"`
}

// ErrNoDecision is returned when there is nothing to evaluate.
var ErrNoDecision = errors.New("policy: no rate decision to evaluate")

// Engine evaluates policies against rate decisions
type Engine struct {
	policies []Policy
	now      func() time.Time
}

// NewEngine creates a new policy engine
func NewEngine() *Engine {
	return &Engine{
		policies: defaultPolicies(),
		now:      time.Now,
	}
}

// WithClock replaces the evaluation timestamp source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// MaxRatePolicy denies dispatch for final rates above limit.
func MaxRatePolicy(limit float64) Policy {
	return Policy{
		ID:          "max-rate",
		Name:        "Maximum Rate",
		Description: fmt.Sprintf("Block quotes above %.2f", limit),
		Type:        PolicyTypeMaxRate,
		Severity:    SeverityError,
		Threshold:   limit,
		Enabled:     true,
	}
}

// WithMaxRate adds MaxRatePolicy(limit) to the engine.
func (e *Engine) WithMaxRate(limit float64) *Engine {
	e.policies = append(e.policies, MaxRatePolicy(limit))
	return e
}

// AddPolicy adds a custom policy
func (e *Engine) AddPolicy(p Policy) {
	e.policies = append(e.policies, p)
}

// Policies returns the configured policies.
func (e *Engine) Policies() []Policy {
	out := make([]Policy, len(e.policies))
	copy(out, e.policies)
	return out
}

// Evaluate runs all policies against the decision
func (e *Engine) Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error) {
	if req.Decision == nil {
		return nil, ErrNoDecision
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &EvaluationResult{
		Decision:    DecisionPass,
		Violations:  make([]Violation, 0),
		Warnings:    make([]Warning, 0),
		EvaluatedAt: e.now(),
	}

	// Combine built-in and custom policies
	allPolicies := make([]Policy, 0, len(e.policies)+len(req.CustomPolicies))
	allPolicies = append(allPolicies, e.policies...)
	allPolicies = append(allPolicies, req.CustomPolicies...)

	for _, policy := range allPolicies {
		if !policy.Enabled {
			continue
		}

		result.PoliciesRan++
		violation, warning := e.evaluatePolicy(policy, req.Decision, req.Completeness)

		if violation != nil {
			result.Violations = append(result.Violations, *violation)
			if policy.Severity == SeverityError {
				result.Decision = DecisionDeny
			} else if result.Decision != DecisionDeny {
				result.Decision = DecisionWarn
			}
		}

		if warning != nil {
			result.Warnings = append(result.Warnings, *warning)
			if result.Decision == DecisionPass {
				result.Decision = DecisionWarn
			}
		}
	}

	return result, nil
}

func (e *Engine) evaluatePolicy(p Policy, d *api.RateDecision, report *api.ConfidenceReport) (*Violation, *Warning) {
	switch p.Type {
	case PolicyTypeHold:
		for _, h := range d.Holds {
			if h.Code != p.Hold {
				continue
			}
			if p.Severity == SeverityInfo {
				return nil, &Warning{PolicyID: p.ID, Message: h.Reason}
			}
			return &Violation{
				PolicyID:   p.ID,
				PolicyName: p.Name,
				Message:    fmt.Sprintf("%s hold: %s", h.Code, h.Reason),
				Severity:   string(p.Severity),
			}, nil
		}

	case PolicyTypeCompletenessThreshold:
		if report == nil || confidence.AboveThreshold(float64(report.Score), p.Threshold) {
			return nil, nil
		}
		if p.Severity == SeverityError {
			return &Violation{
				PolicyID:   p.ID,
				PolicyName: p.Name,
				Message:    fmt.Sprintf("Request completeness (%d) below threshold (%.0f)", report.Score, p.Threshold),
				Severity:   string(p.Severity),
			}, nil
		}
		return nil, &Warning{
			PolicyID: p.ID,
			Message:  fmt.Sprintf("Request completeness (%d, %s) below recommended (%.0f)", report.Score, report.Label, p.Threshold),
		}

	case PolicyTypeMaxRate:
		limit := decimal.NewFromFloat(p.Threshold)
		if d.FinalRate.GreaterThan(limit) {
			return &Violation{
				PolicyID:   p.ID,
				PolicyName: p.Name,
				Message:    fmt.Sprintf("Final rate (%s) exceeds limit (%s)", d.FinalRate.StringFixed(2), limit.StringFixed(2)),
				Severity:   string(p.Severity),
			}, nil
		}

	case PolicyTypeOverrideActor:
		for _, c := range d.Components {
			if c.Code == resolution.CodeManualOverride && c.Actor == "" {
				return &Violation{
					PolicyID:   p.ID,
					PolicyName: p.Name,
					Message:    "Manual override has no operator identity",
					Severity:   string(p.Severity),
				}, nil
			}
		}
	}

	return nil, nil
}

func defaultPolicies() []Policy {
	return []Policy{
		{
			ID:          "hold-no-go",
			Name:        "No-Go Hold",
			Description: "Block dispatch when a NO_GO hold is present",
			Type:        PolicyTypeHold,
			Severity:    SeverityError,
			Hold:        api.HoldNoGo,
			Enabled:     true,
		},
		{
			ID:          "hold-review",
			Name:        "Review Hold",
			Description: "Escalate quotes carrying a REVIEW hold",
			Type:        PolicyTypeHold,
			Severity:    SeverityWarning,
			Hold:        api.HoldReview,
			Enabled:     true,
		},
		{
			ID:          "hold-permit",
			Name:        "Permit Required",
			Description: "Escalate quotes on corridors that need a permit",
			Type:        PolicyTypeHold,
			Severity:    SeverityWarning,
			Hold:        api.HoldPermitRequired,
			Enabled:     true,
		},
		{
			ID:          "low-completeness",
			Name:        "Minimum Completeness",
			Description: "Warn when request completeness is rated Low",
			Type:        PolicyTypeCompletenessThreshold,
			Severity:    SeverityWarning,
			Threshold:   confidence.MediumThreshold,
			Enabled:     true,
		},
		{
			ID:          "override-actor",
			Name:        "Attributed Overrides",
			Description: "Block manual overrides without an operator",
			Type:        PolicyTypeOverrideActor,
			Severity:    SeverityError,
			Enabled:     true,
		},
	}
}

// Package completeness scores how trustworthy a raw quote request is.
//
// The gate walks a fixed, ordered list of checks. Each failing check subtracts
// its points from 100 and contributes one suggestion. The result is advisory:
// the gate never errors and never blocks pricing.
package completeness

import (
	"fmt"
	"strings"

	"escort-pricing/pkg/api"
	"escort-pricing/pkg/confidence"
)

// Deduction codes, in evaluation order.
const (
	CodeMissingDistance    = "MISSING_DISTANCE"
	CodeMissingDimensions  = "MISSING_DIMENSIONS"
	CodeMissingSchedule    = "MISSING_SCHEDULE"
	CodeMissingPositions   = "MISSING_POSITIONS"
	CodeUnknownPermitRoute = "UNKNOWN_PERMIT_ROUTE"
	CodeUnexplainedFlags   = "UNEXPLAINED_FLAGS"
	CodeMissingPoliceHours = "MISSING_POLICE_HOURS"
	CodeMissingSurveyMode  = "MISSING_SURVEY_METHOD"
	CodeVagueLocation      = "VAGUE_LOCATION"
	CodeMissingDestState   = "MISSING_DESTINATION_STATE"
)

const (
	perDimensionPoints = 10
	maxDimensionPoints = 30
	longHaulMiles      = 500
	maxSuggestions     = 3
)

// Check inspects a draft and reports a deduction when something is missing.
type Check func(d api.QuoteDraft) (api.Deduction, bool)

// Gate is the request completeness scorer.
type Gate struct {
	checks []Check
}

// New returns a gate with the standard checks.
func New() *Gate {
	return &Gate{checks: DefaultChecks()}
}

// DefaultChecks returns the standard checks in evaluation order.
func DefaultChecks() []Check {
	return []Check{
		checkDistance,
		checkDimensions,
		checkSchedule,
		checkPositions,
		checkPermitRoute,
		checkFlagNotes,
		checkPoliceHours,
		checkSurveyMethod,
		checkLocations,
		checkLongHaulDestination,
	}
}

// Score evaluates the draft. Suggestions keep evaluation order and are not
// sorted by points.
func (g *Gate) Score(d api.QuoteDraft) api.ConfidenceReport {
	score := confidence.MaxScore
	deductions := make([]api.Deduction, 0, len(g.checks))

	for _, check := range g.checks {
		ded, ok := check(d)
		if !ok {
			continue
		}
		score -= ded.Points
		deductions = append(deductions, ded)
	}

	suggestions := make([]string, 0, maxSuggestions)
	for _, ded := range deductions {
		if len(suggestions) == maxSuggestions {
			break
		}
		suggestions = append(suggestions, ded.Suggestion)
	}

	score = confidence.ClampScore(score)
	return api.ConfidenceReport{
		Score:       score,
		Label:       confidence.Label(score),
		Suggestions: suggestions,
		Deductions:  deductions,
	}
}

func checkDistance(d api.QuoteDraft) (api.Deduction, bool) {
	if d.TripMiles != nil && *d.TripMiles > 0 {
		return api.Deduction{}, false
	}
	return api.Deduction{
		Code:       CodeMissingDistance,
		Points:     15,
		Suggestion: "Add the total trip distance in miles.",
	}, true
}

func checkDimensions(d api.QuoteDraft) (api.Deduction, bool) {
	var missing []string
	if !known(d.Dimensions.Width) {
		missing = append(missing, "width")
	}
	if !known(d.Dimensions.Height) {
		missing = append(missing, "height")
	}
	if !known(d.Dimensions.Length) {
		missing = append(missing, "length")
	}
	if len(missing) == 0 {
		return api.Deduction{}, false
	}

	points := len(missing) * perDimensionPoints
	if points > maxDimensionPoints {
		points = maxDimensionPoints
	}
	return api.Deduction{
		Code:       CodeMissingDimensions,
		Points:     points,
		Suggestion: fmt.Sprintf("Provide load dimensions (%s).", strings.Join(missing, ", ")),
	}, true
}

func checkSchedule(d api.QuoteDraft) (api.Deduction, bool) {
	if blank(d.ShipDate) && blank(d.TravelWindow) {
		return api.Deduction{
			Code:       CodeMissingSchedule,
			Points:     10,
			Suggestion: "Add a ship date or travel window.",
		}, true
	}
	return api.Deduction{}, false
}

func checkPositions(d api.QuoteDraft) (api.Deduction, bool) {
	if d.Positions.Total() > 0 {
		return api.Deduction{}, false
	}
	return api.Deduction{
		Code:       CodeMissingPositions,
		Points:     15,
		Suggestion: "Specify the escort positions required (lead, chase, high pole, steer).",
	}, true
}

func checkPermitRoute(d api.QuoteDraft) (api.Deduction, bool) {
	route := strings.ToLower(strings.TrimSpace(d.PermitRoute))
	if route != "" && route != "unknown" {
		return api.Deduction{}, false
	}
	return api.Deduction{
		Code:       CodeUnknownPermitRoute,
		Points:     10,
		Suggestion: "Attach the permitted route or permit number.",
	}, true
}

func checkFlagNotes(d api.QuoteDraft) (api.Deduction, bool) {
	if !(d.NightOps || d.Weekend || d.AfterHours) || !blank(d.Notes) {
		return api.Deduction{}, false
	}
	return api.Deduction{
		Code:       CodeUnexplainedFlags,
		Points:     5,
		Suggestion: "Add notes explaining the night, weekend or after-hours requirement.",
	}, true
}

func checkPoliceHours(d api.QuoteDraft) (api.Deduction, bool) {
	if !d.PoliceRequired || known(d.PoliceHours) {
		return api.Deduction{}, false
	}
	return api.Deduction{
		Code:       CodeMissingPoliceHours,
		Points:     5,
		Suggestion: "Estimate the police escort hours.",
	}, true
}

func checkSurveyMethod(d api.QuoteDraft) (api.Deduction, bool) {
	if !d.RouteSurveyRequired || !blank(d.SurveyMethod) {
		return api.Deduction{}, false
	}
	return api.Deduction{
		Code:       CodeMissingSurveyMode,
		Points:     5,
		Suggestion: "Choose a route survey method.",
	}, true
}

// checkLocations deducts once even when both ends are vague.
func checkLocations(d api.QuoteDraft) (api.Deduction, bool) {
	if !vague(d.Origin) && !vague(d.Destination) {
		return api.Deduction{}, false
	}
	return api.Deduction{
		Code:       CodeVagueLocation,
		Points:     5,
		Suggestion: "Add a city or zip code to the origin and destination.",
	}, true
}

func checkLongHaulDestination(d api.QuoteDraft) (api.Deduction, bool) {
	if d.TripMiles == nil || *d.TripMiles <= longHaulMiles || !d.MultiState || !blank(d.Destination.State) {
		return api.Deduction{}, false
	}
	return api.Deduction{
		Code:       CodeMissingDestState,
		Points:     5,
		Suggestion: "Add the destination state for this multi-state move.",
	}, true
}

func known(v *float64) bool {
	return v != nil && *v > 0
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// vague reports a location that names a state but nothing more precise.
func vague(l api.Location) bool {
	return !blank(l.State) && blank(l.City) && blank(l.Zip)
}

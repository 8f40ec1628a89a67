package completeness

import (
	"testing"

	"escort-pricing/pkg/api"
	"escort-pricing/pkg/confidence"
	"escort-pricing/pkg/units"
)

func ptr(v float64) *float64 { return &v }

func completeDraft() api.QuoteDraft {
	return api.QuoteDraft{
		TripMiles: ptr(320),
		Dimensions: api.Dimensions{
			Width:  ptr(14),
			Height: ptr(15.5),
			Length: ptr(95),
		},
		ShipDate:    "2026-11-03",
		Positions:   units.Positions{Lead: 1, Chase: 1},
		PermitRoute: "GA-2026-118842",
		Origin:      api.Location{City: "Macon", State: "GA"},
		Destination: api.Location{City: "Mobile", State: "AL", Zip: "36602"},
		MultiState:  true,
	}
}

func TestScoreCompleteDraft(t *testing.T) {
	report := New().Score(completeDraft())

	if report.Score != 100 {
		t.Errorf("Score = %d, want 100", report.Score)
	}
	if report.Label != confidence.LevelHigh {
		t.Errorf("Label = %q, want High", report.Label)
	}
	if len(report.Suggestions) != 0 || len(report.Deductions) != 0 {
		t.Errorf("expected no deductions, got %+v", report.Deductions)
	}
}

func TestScoreIndividualDeductions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *api.QuoteDraft)
		code   string
		points int
	}{
		{"missing distance", func(d *api.QuoteDraft) { d.TripMiles = nil }, CodeMissingDistance, 15},
		{"zero distance", func(d *api.QuoteDraft) { d.TripMiles = ptr(0) }, CodeMissingDistance, 15},
		{"one dimension", func(d *api.QuoteDraft) { d.Dimensions.Height = nil }, CodeMissingDimensions, 10},
		{"two dimensions", func(d *api.QuoteDraft) {
			d.Dimensions.Height = nil
			d.Dimensions.Length = nil
		}, CodeMissingDimensions, 20},
		{"all dimensions", func(d *api.QuoteDraft) { d.Dimensions = api.Dimensions{} }, CodeMissingDimensions, 30},
		{"no schedule", func(d *api.QuoteDraft) { d.ShipDate = "" }, CodeMissingSchedule, 10},
		{"no positions", func(d *api.QuoteDraft) { d.Positions = units.Positions{} }, CodeMissingPositions, 15},
		{"unknown route", func(d *api.QuoteDraft) { d.PermitRoute = "Unknown" }, CodeUnknownPermitRoute, 10},
		{"night without notes", func(d *api.QuoteDraft) { d.NightOps = true }, CodeUnexplainedFlags, 5},
		{"police without hours", func(d *api.QuoteDraft) { d.PoliceRequired = true }, CodeMissingPoliceHours, 5},
		{"survey without method", func(d *api.QuoteDraft) { d.RouteSurveyRequired = true }, CodeMissingSurveyMode, 5},
		{"state only origin", func(d *api.QuoteDraft) { d.Origin = api.Location{State: "GA"} }, CodeVagueLocation, 5},
		{"long haul no destination state", func(d *api.QuoteDraft) {
			d.TripMiles = ptr(780)
			d.Destination.State = ""
		}, CodeMissingDestState, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := completeDraft()
			tt.mutate(&d)
			report := New().Score(d)

			if len(report.Deductions) != 1 {
				t.Fatalf("expected exactly one deduction, got %+v", report.Deductions)
			}
			got := report.Deductions[0]
			if got.Code != tt.code || got.Points != tt.points {
				t.Errorf("deduction = %s/%d, want %s/%d", got.Code, got.Points, tt.code, tt.points)
			}
			if report.Score != 100-tt.points {
				t.Errorf("Score = %d, want %d", report.Score, 100-tt.points)
			}
		})
	}
}

func TestFlagsWithNotesAreNotPenalized(t *testing.T) {
	d := completeDraft()
	d.Weekend = true
	d.AfterHours = true
	d.Notes = "Saturday curfew window on I-10"

	if report := New().Score(d); report.Score != 100 {
		t.Errorf("Score = %d, want 100", report.Score)
	}
}

func TestVagueLocationDeductsOnce(t *testing.T) {
	d := completeDraft()
	d.Origin = api.Location{State: "GA"}
	d.Destination = api.Location{State: "AL"}

	report := New().Score(d)
	if report.Score != 95 {
		t.Errorf("Score = %d, want 95", report.Score)
	}
}

func TestShortHaulMissingStateIsFine(t *testing.T) {
	d := completeDraft()
	d.TripMiles = ptr(500)
	d.Destination = api.Location{City: "Mobile"}

	if report := New().Score(d); report.Score != 100 {
		t.Errorf("Score = %d, want 100 (500 miles is not long haul)", report.Score)
	}
}

func TestScoreClampsAtFloor(t *testing.T) {
	d := api.QuoteDraft{
		NightOps:            true,
		PoliceRequired:      true,
		RouteSurveyRequired: true,
		Origin:              api.Location{State: "TX"},
	}
	report := New().Score(d)

	// 100 - 15 - 30 - 10 - 15 - 10 - 5 - 5 - 5 - 5 = 0
	if report.Score != confidence.MinScore {
		t.Errorf("Score = %d, want %d", report.Score, confidence.MinScore)
	}
	if report.Label != confidence.LevelLow {
		t.Errorf("Label = %q, want Low", report.Label)
	}
	if len(report.Deductions) != 9 {
		t.Errorf("expected 9 deductions, got %d", len(report.Deductions))
	}
}

func TestSuggestionsKeepEvaluationOrder(t *testing.T) {
	d := completeDraft()
	d.ShipDate = ""                 // -10, evaluated third
	d.PermitRoute = ""              // -10, fifth
	d.Positions = units.Positions{} // -15, fourth
	d.Dimensions.Width = nil        // -10, second
	d.RouteSurveyRequired = true    // -5, eighth

	report := New().Score(d)

	want := []string{CodeMissingDimensions, CodeMissingSchedule, CodeMissingPositions}
	if len(report.Suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(report.Suggestions))
	}
	for i, code := range want {
		if report.Deductions[i].Code != code {
			t.Errorf("deduction[%d] = %s, want %s", i, report.Deductions[i].Code, code)
		}
		if report.Suggestions[i] != report.Deductions[i].Suggestion {
			t.Errorf("suggestion[%d] does not follow deduction order", i)
		}
	}
	// the -15 positions deduction is not promoted ahead of earlier -10s
	if report.Suggestions[0] == report.Deductions[2].Suggestion {
		t.Error("suggestions were sorted by magnitude")
	}
}

func TestLabelThresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *api.QuoteDraft)
		score  int
		label  confidence.Level
	}{
		{"85 is high", func(d *api.QuoteDraft) { d.TripMiles = nil }, 85, confidence.LevelHigh},
		{"80 is medium", func(d *api.QuoteDraft) {
			d.TripMiles = nil
			d.NightOps = true
		}, 80, confidence.LevelMedium},
		{"50 is low", func(d *api.QuoteDraft) {
			d.Positions = units.Positions{}
			d.Dimensions = api.Dimensions{}
			d.Origin = api.Location{State: "GA"}
		}, 50, confidence.LevelLow},
		{"exactly 65", func(d *api.QuoteDraft) {
			d.Positions = units.Positions{}
			d.ShipDate = ""
			d.PermitRoute = ""
		}, 65, confidence.LevelMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := completeDraft()
			tt.mutate(&d)
			report := New().Score(d)
			if report.Score != tt.score || report.Label != tt.label {
				t.Errorf("got %d/%s, want %d/%s", report.Score, report.Label, tt.score, tt.label)
			}
		})
	}
}

package api

import (
	"escort-pricing/pkg/confidence"
	"escort-pricing/pkg/units"
)

// Location is a loosely populated place reference.
type Location struct {
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
	Zip   string `json:"zip,omitempty"`
}

// Dimensions of the load in feet. Nil means unknown.
type Dimensions struct {
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Length *float64 `json:"length,omitempty"`
}

// QuoteDraft is a raw quote request as submitted. Any field may be absent.
type QuoteDraft struct {
	TripMiles    *float64        `json:"tripMiles,omitempty"`
	Dimensions   Dimensions      `json:"dimensions"`
	ShipDate     string          `json:"shipDate,omitempty"`
	TravelWindow string          `json:"travelWindow,omitempty"`
	Positions    units.Positions `json:"positions"`
	PermitRoute  string          `json:"permitRoute,omitempty"`

	NightOps   bool   `json:"nightOps,omitempty"`
	Weekend    bool   `json:"weekend,omitempty"`
	AfterHours bool   `json:"afterHours,omitempty"`
	Notes      string `json:"notes,omitempty"`

	PoliceRequired      bool     `json:"policeRequired,omitempty"`
	PoliceHours         *float64 `json:"policeHours,omitempty"`
	RouteSurveyRequired bool     `json:"routeSurveyRequired,omitempty"`
	SurveyMethod        string   `json:"surveyMethod,omitempty"`

	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`
	MultiState  bool     `json:"multiState,omitempty"`
}

// Deduction is one completeness penalty, in evaluation order.
type Deduction struct {
	Code       string `json:"code"`
	Points     int    `json:"points"`
	Suggestion string `json:"suggestion"`
}

// ConfidenceReport is the advisory output of the completeness gate.
type ConfidenceReport struct {
	Score       int              `json:"score"`
	Label       confidence.Level `json:"label"`
	Suggestions []string         `json:"suggestions"`
	Deductions  []Deduction      `json:"deductions"`
}

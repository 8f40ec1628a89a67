// Package api defines the request and result contracts shared by the
// completeness gate, the baseline calculator and the resolution pipeline.
package api

import "escort-pricing/pkg/units"

// EscortType selects the rate table row used to price a move.
type EscortType string

const (
	EscortPilotCar    EscortType = "pilot_car"
	EscortHighPole    EscortType = "high_pole"
	EscortBucketTruck EscortType = "bucket_truck"
	EscortPolice      EscortType = "police"
)

// BillingMode defines how the base escort amount is computed.
type BillingMode string

const (
	BillingPerMile BillingMode = "per_mile"
	BillingDayRate BillingMode = "day_rate"
	BillingHourly  BillingMode = "hourly"
)

// PoliceMode selects the police escort pricing formula.
type PoliceMode string

const (
	PoliceFixed    PoliceMode = "fixed"    // per-jurisdiction formula
	PoliceLocal    PoliceMode = "local"    // flat local hourly range
	PoliceRegional PoliceMode = "regional" // regional hourly range
)

// SurveyMode selects the route survey pricing formula.
type SurveyMode string

const (
	SurveyFlat   SurveyMode = "flat"
	SurveyTiered SurveyMode = "tiered"
)

// TripRequest describes a move to be escorted. It is never mutated once built.
type TripRequest struct {
	MilesLoaded   float64         `json:"milesLoaded"`
	MilesDeadhead float64         `json:"milesDeadhead"`
	EscortType    EscortType      `json:"escortType"`
	Positions     units.Positions `json:"positions"`
	Region        string          `json:"region"`
	BillingMode   BillingMode     `json:"billingMode,omitempty"`
	Hours         float64         `json:"hours,omitempty"` // hourly billing only
	Currency      string          `json:"currency,omitempty"`

	AfterHours   bool    `json:"afterHours,omitempty"`
	Weekend      bool    `json:"weekend,omitempty"`
	NightOps     bool    `json:"nightOps,omitempty"`
	StandbyHours float64 `json:"standbyHours,omitempty"`

	UrbanCoordination bool `json:"urbanCoordination,omitempty"`
	MultiAgency       bool `json:"multiAgency,omitempty"`
	CoordinationFee   bool `json:"coordinationFee,omitempty"`

	PoliceEscort bool       `json:"policeEscort,omitempty"`
	PoliceMode   PoliceMode `json:"policeMode,omitempty"`
	PoliceHours  float64    `json:"policeHours,omitempty"`

	RouteSurvey bool       `json:"routeSurvey,omitempty"`
	SurveyMode  SurveyMode `json:"surveyMode,omitempty"`
	SurveyDays  float64    `json:"surveyDays,omitempty"`
}

package api

import "github.com/shopspring/decimal"

// RiskFlags describes route risk indicators.
type RiskFlags struct {
	BridgeRisk      bool    `json:"bridgeRisk,omitempty"`
	EnforcementRisk bool    `json:"enforcementRisk,omitempty"`
	ComplexityScore float64 `json:"complexityScore"` // 0.0-1.0
}

// ClientContract carries the commercial constraints of a stored client
// contract. At most one of the three is acted on per resolution.
type ClientContract struct {
	ID        string           `json:"id,omitempty"`
	Floor     *decimal.Decimal `json:"floor,omitempty"`
	Cap       *decimal.Decimal `json:"cap,omitempty"`
	FixedRate *decimal.Decimal `json:"fixedRate,omitempty"`
}

// ManualOverride is an operator-entered final price.
type ManualOverride struct {
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason"`
	Operator string          `json:"operator"`
}

// RateRequest is a TripRequest plus everything the resolution pipeline
// reconciles against the baseline.
type RateRequest struct {
	TripRequest

	ClientID           string          `json:"clientId,omitempty"`
	CorridorTags       []string        `json:"corridorTags,omitempty"`
	DetourMiles        float64         `json:"detourMiles,omitempty"`
	DelayHours         float64         `json:"delayHours,omitempty"`
	CurfewPenalty      decimal.Decimal `json:"curfewPenalty"`
	CorridorConfidence *float64        `json:"corridorConfidence,omitempty"`
	Risk               RiskFlags       `json:"risk"`
	SurgeMultiplier    *float64        `json:"surgeMultiplier,omitempty"`
	Contract           *ClientContract `json:"clientContract,omitempty"`
	Override           *ManualOverride `json:"manualOverride,omitempty"`
}

// HasCorridorTag reports whether tag is present on the request.
func (r RateRequest) HasCorridorTag(tag string) bool {
	for _, t := range r.CorridorTags {
		if t == tag {
			return true
		}
	}
	return false
}

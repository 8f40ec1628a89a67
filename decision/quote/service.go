// Package quote runs a full quote: completeness scoring, baseline estimate,
// collaborator lookups, rate resolution and dispatch policy.
//
// The pricing core stays pure. Everything stateful (ids, clocks, stores)
// lives here, and collaborator failures never fail a quote: the signal is
// dropped, a warning is logged and a note is added to the quote.
package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"escort-pricing/decision/baseline"
	"escort-pricing/decision/completeness"
	"escort-pricing/decision/policy"
	"escort-pricing/decision/ratecard"
	"escort-pricing/decision/resolution"
	"escort-pricing/pkg/api"
)

// ContractSource looks up the contract in force for a client.
type ContractSource interface {
	ActiveContract(ctx context.Context, clientID string) (*api.ClientContract, error)
}

// SurgeSource looks up the current surge multiplier for a region.
type SurgeSource interface {
	Multiplier(ctx context.Context, region string) (*float64, error)
}

// ErrNilRequest is returned when Quote is called without a request.
var ErrNilRequest = errors.New("quote: nil request")

// Request is the input to a combined quote.
type Request struct {
	Draft          *api.QuoteDraft `json:"draft,omitempty"`
	Rate           api.RateRequest `json:"rate"`
	CustomPolicies []policy.Policy `json:"customPolicies,omitempty"`
}

// Quote is the audited envelope around one resolution.
type Quote struct {
	ID           uuid.UUID                `json:"id"`
	ResolvedAt   time.Time                `json:"resolvedAt"`
	Completeness *api.ConfidenceReport    `json:"completeness,omitempty"`
	Estimate     api.CostEstimate         `json:"estimate"`
	Decision     api.RateDecision         `json:"decision"`
	Policy       *policy.EvaluationResult `json:"policy,omitempty"`
	Notes        []string                 `json:"notes"`
}

// Service wires the pricing components to their collaborators.
type Service struct {
	gate       *completeness.Gate
	calculator *baseline.Calculator
	pipeline   *resolution.Pipeline
	policies   *policy.Engine

	contracts ContractSource
	surge     SurgeSource

	logger zerolog.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

// NewService builds a service for card. Collaborators are optional and added
// with the With* methods.
func NewService(card ratecard.Card, logger zerolog.Logger) *Service {
	return &Service{
		gate:       completeness.New(),
		calculator: baseline.New(card),
		pipeline:   resolution.New(card),
		policies:   policy.NewEngine(),
		logger:     logger.With().Str("component", "quote").Logger(),
		now:        time.Now,
		newID:      uuid.New,
	}
}

// WithContracts enables contract lookup by client id.
func (s *Service) WithContracts(src ContractSource) *Service {
	s.contracts = src
	return s
}

// WithSurge enables surge lookup by region.
func (s *Service) WithSurge(src SurgeSource) *Service {
	s.surge = src
	return s
}

// WithPolicyEngine replaces the default dispatch policy engine.
func (s *Service) WithPolicyEngine(e *policy.Engine) *Service {
	s.policies = e
	return s
}

// WithClock replaces the timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Gate returns the completeness gate.
func (s *Service) Gate() *completeness.Gate { return s.gate }

// Calculator returns the baseline calculator.
func (s *Service) Calculator() *baseline.Calculator { return s.calculator }

// Pipeline returns the resolution pipeline.
func (s *Service) Pipeline() *resolution.Pipeline { return s.pipeline }

// Quote scores, estimates and resolves one request. Values supplied on the
// request always win over collaborator lookups.
func (s *Service) Quote(ctx context.Context, req *Request) (*Quote, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	q := &Quote{
		ID:         s.newID(),
		ResolvedAt: s.now().UTC(),
		Notes:      make([]string, 0),
	}
	logger := s.logger.With().Str("quote_id", q.ID.String()).Logger()

	if req.Draft != nil {
		report := s.gate.Score(*req.Draft)
		q.Completeness = &report
	}

	rate := req.Rate
	q.Estimate = s.calculator.Estimate(rate.TripRequest)

	if rate.Contract == nil && rate.ClientID != "" && s.contracts != nil {
		contract, err := s.contracts.ActiveContract(ctx, rate.ClientID)
		if err != nil {
			logger.Warn().Err(err).Str("client_id", rate.ClientID).Msg("Contract lookup failed, pricing without contract")
			q.Notes = append(q.Notes, fmt.Sprintf("contract lookup failed for client %s; no contract applied", rate.ClientID))
		} else if contract != nil {
			rate.Contract = contract
			q.Notes = append(q.Notes, fmt.Sprintf("applied stored contract %s", contract.ID))
		}
	}

	if rate.SurgeMultiplier == nil && rate.Region != "" && s.surge != nil {
		m, err := s.surge.Multiplier(ctx, rate.Region)
		if err != nil {
			logger.Warn().Err(err).Str("region", rate.Region).Msg("Surge lookup failed, pricing without surge")
			q.Notes = append(q.Notes, fmt.Sprintf("surge lookup failed for region %s; no surge applied", rate.Region))
		} else if m != nil {
			rate.SurgeMultiplier = m
			q.Notes = append(q.Notes, fmt.Sprintf("applied %s surge multiplier %.2f", rate.Region, *m))
		}
	}

	q.Decision = s.pipeline.Resolve(rate)

	result, err := s.policies.Evaluate(ctx, policy.EvaluationRequest{
		Decision:       &q.Decision,
		Completeness:   q.Completeness,
		CustomPolicies: req.CustomPolicies,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Policy evaluation failed")
		q.Notes = append(q.Notes, fmt.Sprintf("policy evaluation skipped: %v", err))
	} else {
		q.Policy = result
	}

	event := logger.Info().
		Str("final_rate", q.Decision.FinalRate.StringFixed(2)).
		Str("currency", q.Decision.Currency).
		Int("holds", len(q.Decision.Holds))
	if q.Completeness != nil {
		event = event.Str("completeness", string(q.Completeness.Label))
	}
	if q.Policy != nil {
		event = event.Str("policy", string(q.Policy.Decision))
	}
	event.Msg("Quote resolved")

	return q, nil
}

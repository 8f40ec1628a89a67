// Package ingestion publishes rate cards into the snapshot store.
// A card is validated, hashed, written once per distinct hash together with
// its flattened rate rows, and optionally activated.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"escort-pricing/db/clickhouse"
	"escort-pricing/decision/ratecard"
)

// SnapshotStore is the subset of the ClickHouse store the publisher needs.
type SnapshotStore interface {
	FindSnapshotByHash(ctx context.Context, alias, hash string) (*clickhouse.RateCardSnapshot, error)
	CreateSnapshot(ctx context.Context, snapshot *clickhouse.RateCardSnapshot) error
	BulkCreateRates(ctx context.Context, snapshotID uuid.UUID, rows []clickhouse.RateRow) error
	CountRates(ctx context.Context, snapshotID uuid.UUID) (int, error)
	ActivateSnapshot(ctx context.Context, id uuid.UUID) error
}

// ClickHouseAdapter publishes rate cards to ClickHouse
type ClickHouseAdapter struct {
	store SnapshotStore
}

// NewClickHouseAdapter creates a new ClickHouse adapter
func NewClickHouseAdapter(store SnapshotStore) *ClickHouseAdapter {
	return &ClickHouseAdapter{store: store}
}

// PublishInput describes a rate card to publish
type PublishInput struct {
	Card     ratecard.Card
	Alias    string
	Source   string
	Version  string
	Activate bool
}

// PublishResult tracks the result of a publication
type PublishResult struct {
	SnapshotID   uuid.UUID     `json:"snapshotId"`
	Alias        string        `json:"alias"`
	Hash         string        `json:"hash"`
	RateCount    int           `json:"rateCount"`
	Deduplicated bool          `json:"deduplicated"`
	Activated    bool          `json:"activated"`
	Duration     time.Duration `json:"duration"`
	Success      bool          `json:"success"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

// Publish stores the card as a snapshot. Publishing a card whose hash already
// exists reuses that snapshot instead of writing a new one, and writes its
// rate rows if an earlier attempt never did.
func (a *ClickHouseAdapter) Publish(ctx context.Context, input PublishInput) (*PublishResult, error) {
	startTime := time.Now()
	alias := input.Alias
	if alias == "" {
		alias = clickhouse.DefaultAlias
	}
	result := &PublishResult{Alias: alias}

	if err := input.Card.Validate(); err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}

	hash, payload, err := clickhouse.HashCard(input.Card)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}
	result.Hash = hash

	existing, err := a.store.FindSnapshotByHash(ctx, alias, hash)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("failed to look up snapshot: %v", err)
		return result, err
	}

	rows := clickhouse.FlattenCard(input.Card)

	if existing != nil {
		result.SnapshotID = existing.ID
		result.Deduplicated = true

		// A snapshot left behind by a failed row write has no rows; fill them in.
		count, err := a.store.CountRates(ctx, existing.ID)
		if err != nil {
			result.ErrorMessage = fmt.Sprintf("failed to count rate rows: %v", err)
			return result, err
		}
		if count == 0 {
			if err := a.store.BulkCreateRates(ctx, existing.ID, rows); err != nil {
				result.ErrorMessage = fmt.Sprintf("failed to insert rate rows: %v", err)
				return result, err
			}
			count = len(rows)
		}
		result.RateCount = count
	} else {
		snapshot := &clickhouse.RateCardSnapshot{
			ID:       uuid.New(),
			Alias:    alias,
			Name:     input.Card.Name,
			Source:   input.Source,
			Hash:     hash,
			Version:  input.Version,
			Payload:  string(payload),
			IsActive: false, // activated after rows are written
		}
		if err := a.store.CreateSnapshot(ctx, snapshot); err != nil {
			result.ErrorMessage = fmt.Sprintf("failed to create snapshot: %v", err)
			return result, err
		}
		result.SnapshotID = snapshot.ID

		if err := a.store.BulkCreateRates(ctx, snapshot.ID, rows); err != nil {
			result.ErrorMessage = fmt.Sprintf("failed to insert rate rows: %v", err)
			return result, err
		}
		result.RateCount = len(rows)
	}

	if input.Activate && (existing == nil || !existing.IsActive) {
		if err := a.store.ActivateSnapshot(ctx, result.SnapshotID); err != nil {
			result.ErrorMessage = fmt.Sprintf("failed to activate snapshot: %v", err)
			return result, err
		}
		result.Activated = true
	}

	result.Success = true
	result.Duration = time.Since(startTime)
	return result, nil
}

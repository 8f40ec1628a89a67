package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"escort-pricing/db/clickhouse"
	"escort-pricing/decision/ratecard"
	perrors "escort-pricing/pkg/errors"
)

type memoryStore struct {
	snapshots map[uuid.UUID]*clickhouse.RateCardSnapshot
	rows      map[uuid.UUID]int
	failRows  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		snapshots: make(map[uuid.UUID]*clickhouse.RateCardSnapshot),
		rows:      make(map[uuid.UUID]int),
	}
}

func (m *memoryStore) FindSnapshotByHash(_ context.Context, alias, hash string) (*clickhouse.RateCardSnapshot, error) {
	for _, s := range m.snapshots {
		if s.Alias == alias && s.Hash == hash {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) CreateSnapshot(_ context.Context, s *clickhouse.RateCardSnapshot) error {
	m.snapshots[s.ID] = s
	return nil
}

func (m *memoryStore) BulkCreateRates(_ context.Context, id uuid.UUID, rows []clickhouse.RateRow) error {
	if m.failRows != nil {
		return m.failRows
	}
	m.rows[id] += len(rows)
	return nil
}

func (m *memoryStore) CountRates(_ context.Context, id uuid.UUID) (int, error) {
	return m.rows[id], nil
}

func (m *memoryStore) ActivateSnapshot(_ context.Context, id uuid.UUID) error {
	target, ok := m.snapshots[id]
	if !ok {
		return perrors.NewSnapshotNotFoundError(id.String())
	}
	for _, s := range m.snapshots {
		if s.Alias == target.Alias {
			s.IsActive = s.ID == id
		}
	}
	return nil
}

func TestPublishCreatesAndActivates(t *testing.T) {
	store := newMemoryStore()
	adapter := NewClickHouseAdapter(store)

	res, err := adapter.Publish(context.Background(), PublishInput{
		Card: ratecard.Default(), Source: "file", Version: "2026.10", Activate: true,
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !res.Success || !res.Activated || res.Deduplicated {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Alias != clickhouse.DefaultAlias {
		t.Errorf("Alias = %q, want default", res.Alias)
	}
	snap := store.snapshots[res.SnapshotID]
	if snap == nil || !snap.IsActive {
		t.Fatal("snapshot not stored as active")
	}
	if store.rows[res.SnapshotID] != res.RateCount || res.RateCount == 0 {
		t.Errorf("rate rows = %d, result says %d", store.rows[res.SnapshotID], res.RateCount)
	}
}

func TestPublishDeduplicatesByHash(t *testing.T) {
	store := newMemoryStore()
	adapter := NewClickHouseAdapter(store)
	ctx := context.Background()

	first, err := adapter.Publish(ctx, PublishInput{Card: ratecard.Default()})
	if err != nil {
		t.Fatal(err)
	}
	second, err := adapter.Publish(ctx, PublishInput{Card: ratecard.Default(), Activate: true})
	if err != nil {
		t.Fatal(err)
	}

	if !second.Deduplicated || second.SnapshotID != first.SnapshotID {
		t.Errorf("expected reuse of %s, got %+v", first.SnapshotID, second)
	}
	if len(store.snapshots) != 1 {
		t.Errorf("snapshots = %d, want 1", len(store.snapshots))
	}
	if !second.Activated || !store.snapshots[first.SnapshotID].IsActive {
		t.Error("expected existing snapshot to be activated")
	}

	third, _ := adapter.Publish(ctx, PublishInput{Card: ratecard.Default(), Activate: true})
	if third.Activated {
		t.Error("already active snapshot should not be re-activated")
	}
}

func TestPublishSwitchesActiveSnapshot(t *testing.T) {
	store := newMemoryStore()
	adapter := NewClickHouseAdapter(store)
	ctx := context.Background()

	old, _ := adapter.Publish(ctx, PublishInput{Card: ratecard.Default(), Activate: true})

	card := ratecard.Default()
	card.Pipeline.DelayHourly = 95
	next, err := adapter.Publish(ctx, PublishInput{Card: card, Activate: true})
	if err != nil {
		t.Fatal(err)
	}
	if store.snapshots[old.SnapshotID].IsActive || !store.snapshots[next.SnapshotID].IsActive {
		t.Error("activation did not move to the new snapshot")
	}
}

func TestPublishRejectsInvalidCard(t *testing.T) {
	card := ratecard.Default()
	card.Pipeline.SurgeCap = 0

	res, err := NewClickHouseAdapter(newMemoryStore()).Publish(context.Background(), PublishInput{Card: card})
	if perrors.CodeOf(err) != perrors.ErrCodeInvalidRateCard {
		t.Fatalf("expected INVALID_RATE_CARD, got %v", err)
	}
	if res.Success || res.ErrorMessage == "" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestPublishReportsRowFailure(t *testing.T) {
	store := newMemoryStore()
	store.failRows = errors.New("batch rejected")

	res, err := NewClickHouseAdapter(store).Publish(context.Background(), PublishInput{Card: ratecard.Default(), Activate: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Activated {
		t.Error("snapshot must not be activated when rows failed")
	}
}

func TestRepublishRepairsMissingRows(t *testing.T) {
	store := newMemoryStore()
	adapter := NewClickHouseAdapter(store)
	ctx := context.Background()

	store.failRows = errors.New("batch rejected")
	failed, err := adapter.Publish(ctx, PublishInput{Card: ratecard.Default(), Activate: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if store.rows[failed.SnapshotID] != 0 {
		t.Fatalf("rows written despite failure: %d", store.rows[failed.SnapshotID])
	}

	store.failRows = nil
	retry, err := adapter.Publish(ctx, PublishInput{Card: ratecard.Default(), Activate: true})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !retry.Deduplicated || retry.SnapshotID != failed.SnapshotID {
		t.Errorf("expected reuse of %s, got %+v", failed.SnapshotID, retry)
	}
	want := len(clickhouse.FlattenCard(ratecard.Default()))
	if store.rows[retry.SnapshotID] != want || retry.RateCount != want {
		t.Errorf("rate rows = %d (result %d), want %d", store.rows[retry.SnapshotID], retry.RateCount, want)
	}
	if !retry.Activated {
		t.Error("expected the repaired snapshot to be activated")
	}

	again, err := adapter.Publish(ctx, PublishInput{Card: ratecard.Default()})
	if err != nil {
		t.Fatal(err)
	}
	if store.rows[again.SnapshotID] != want {
		t.Errorf("complete snapshot was rewritten: %d rows", store.rows[again.SnapshotID])
	}
}

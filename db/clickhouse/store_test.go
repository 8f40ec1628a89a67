package clickhouse

import (
	"testing"

	"escort-pricing/decision/ratecard"
	"escort-pricing/pkg/units"
)

func TestHashCardIsDeterministic(t *testing.T) {
	h1, p1, err := HashCard(ratecard.Default())
	if err != nil {
		t.Fatal(err)
	}
	h2, _, err := HashCard(ratecard.Default())
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("equal cards hashed differently: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}

	changed := ratecard.Default()
	changed.Pipeline.SurgeCap = 2.0
	h3, _, _ := HashCard(changed)
	if h3 == h1 {
		t.Error("different cards produced the same hash")
	}

	snap := &RateCardSnapshot{Payload: string(p1)}
	card, err := snap.Card()
	if err != nil {
		t.Fatalf("Card() error = %v", err)
	}
	if h4, _, _ := HashCard(card); h4 != h1 {
		t.Error("payload did not round trip to the same card")
	}
}

func TestSnapshotCardRejectsInvalidPayload(t *testing.T) {
	snap := &RateCardSnapshot{Payload: `{"pipeline":{"surgeCap":0.1}}`}
	if _, err := snap.Card(); err == nil {
		t.Error("expected validation error")
	}
}

func TestFlattenCard(t *testing.T) {
	rows := FlattenCard(ratecard.Default())

	sections := map[string]int{}
	for _, r := range rows {
		sections[r.Section]++
		if r.Low > r.High {
			t.Errorf("row %+v has low above high", r)
		}
	}

	want := map[string]int{
		"per_mile":          10,
		"regional_per_mile": 5,
		"hourly":            1,
		"police_regional":   5,
		"survey_tier":       4,
		"global_floor":      3,
	}
	for section, n := range want {
		if sections[section] != n {
			t.Errorf("%s rows = %d, want %d", section, sections[section], n)
		}
	}

	unitOf := map[string]units.Unit{
		"per_mile":     units.UnitMile,
		"day_rate":     units.UnitDay,
		"hourly":       units.UnitHour,
		"global_floor": units.UnitFlat,
	}
	for _, r := range rows {
		if u, ok := unitOf[r.Section]; ok && r.Unit != string(u) {
			t.Errorf("%s unit = %q, want %q", r.Section, r.Unit, u)
		}
	}

	again := FlattenCard(ratecard.Default())
	for i := range rows {
		if rows[i] != again[i] {
			t.Fatalf("row %d differs between runs: %+v vs %+v", i, rows[i], again[i])
		}
	}
}

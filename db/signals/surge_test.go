package signals

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	perrors "escort-pricing/pkg/errors"
)

func newTestStore(t *testing.T) (*SurgeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewClient(mr.Addr())
	t.Cleanup(func() { client.Close() })
	return NewSurgeStore(client), mr
}

func TestSurgeKey(t *testing.T) {
	tests := []struct {
		region string
		want   string
	}{
		{"southeast", "surge:southeast"},
		{"  West ", "surge:west"},
		{"MIDWEST", "surge:midwest"},
	}
	for _, tt := range tests {
		if got := surgeKey(tt.region); got != tt.want {
			t.Errorf("surgeKey(%q) = %q, want %q", tt.region, got, tt.want)
		}
	}
}

func TestParseMultiplier(t *testing.T) {
	tests := []struct {
		name    string
		val     string
		want    float64
		wantErr bool
	}{
		{"plain", "1.35", 1.35, false},
		{"padded", " 2 ", 2, false},
		{"below one is still valid", "0.9", 0.9, false},
		{"zero", "0", 0, true},
		{"negative", "-1.2", 0, true},
		{"garbage", "high", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMultiplier(tt.val)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMultiplier(%q) error = %v, wantErr %v", tt.val, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseMultiplier(%q) = %v, want %v", tt.val, got, tt.want)
			}
		})
	}
}

func TestFormatMultiplierRoundTrips(t *testing.T) {
	for _, m := range []float64{1, 1.25, 2.5, 1.0375} {
		got, err := parseMultiplier(formatMultiplier(m))
		if err != nil || got != m {
			t.Errorf("round trip of %v = %v, %v", m, got, err)
		}
	}
}

func TestMultiplierEmptyRegionSkipsLookup(t *testing.T) {
	// A nil client would panic if the lookup ran.
	store := NewSurgeStore(nil)
	m, err := store.Multiplier(context.Background(), "")
	if m != nil || err != nil {
		t.Fatalf("Multiplier(\"\") = %v, %v; want nil, nil", m, err)
	}
}

func TestSetMultiplierRejectsNonPositive(t *testing.T) {
	store := NewSurgeStore(nil)
	if err := store.SetMultiplier(context.Background(), "west", 0, 0); err == nil {
		t.Fatal("expected error for zero multiplier")
	}
}

func TestMultiplierMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	m, err := store.Multiplier(context.Background(), "west")
	if m != nil || err != nil {
		t.Fatalf("Multiplier() = %v, %v; want nil, nil", m, err)
	}
}

func TestSetMultiplierWithTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.SetMultiplier(ctx, " West ", 1.4, 10*time.Minute); err != nil {
		t.Fatalf("SetMultiplier() error = %v", err)
	}
	if got, _ := mr.Get("surge:west"); got != "1.4" {
		t.Errorf("stored value = %q, want 1.4", got)
	}
	if ttl := mr.TTL("surge:west"); ttl != 10*time.Minute {
		t.Errorf("ttl = %v, want 10m", ttl)
	}

	m, err := store.Multiplier(ctx, "WEST")
	if err != nil || m == nil || *m != 1.4 {
		t.Fatalf("Multiplier() = %v, %v; want 1.4", m, err)
	}

	mr.FastForward(11 * time.Minute)
	if m, err := store.Multiplier(ctx, "west"); m != nil || err != nil {
		t.Errorf("after expiry Multiplier() = %v, %v; want nil, nil", m, err)
	}
}

func TestSetMultiplierWithoutTTL(t *testing.T) {
	store, mr := newTestStore(t)

	if err := store.SetMultiplier(context.Background(), "midwest", 2, 0); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("surge:midwest"); ttl != 0 {
		t.Errorf("ttl = %v, want none", ttl)
	}
}

func TestClearMultiplier(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.Set("surge:southeast", "1.2")
	if err := store.ClearMultiplier(ctx, "southeast"); err != nil {
		t.Fatalf("ClearMultiplier() error = %v", err)
	}
	if mr.Exists("surge:southeast") {
		t.Error("key still present after clear")
	}
	if err := store.ClearMultiplier(ctx, "southeast"); err != nil {
		t.Errorf("clearing a missing key = %v, want nil", err)
	}
}

func TestMultiplierErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(mr *miniredis.Miniredis)
	}{
		{"malformed value", func(mr *miniredis.Miniredis) { mr.Set("surge:west", "high") }},
		{"non-positive value", func(mr *miniredis.Miniredis) { mr.Set("surge:west", "0") }},
		{"server error", func(mr *miniredis.Miniredis) { mr.SetError("ERR surge feed unavailable") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mr := newTestStore(t)
			tt.setup(mr)

			m, err := store.Multiplier(context.Background(), "west")
			if m != nil {
				t.Errorf("Multiplier() = %v, want nil", *m)
			}
			if perrors.CodeOf(err) != perrors.ErrCodeSurgeLookup {
				t.Errorf("error = %v, want %s", err, perrors.ErrCodeSurgeLookup)
			}
		})
	}
}

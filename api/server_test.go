package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"escort-pricing/db/clickhouse"
	"escort-pricing/decision/policy"
	"escort-pricing/decision/quote"
	"escort-pricing/decision/ratecard"
	pricing "escort-pricing/pkg/api"
	perrors "escort-pricing/pkg/errors"
)

type fakeSnapshots struct {
	snapshots []*clickhouse.RateCardSnapshot
	pingErr   error
}

func (f *fakeSnapshots) Ping(context.Context) error { return f.pingErr }

func (f *fakeSnapshots) ListSnapshots(_ context.Context, alias string) ([]*clickhouse.RateCardSnapshot, error) {
	var out []*clickhouse.RateCardSnapshot
	for _, s := range f.snapshots {
		if s.Alias == alias {
			out = append(out, s)
		}
	}
	return out, nil
}

func newTestServer(apiKey string, snapshots SnapshotLister) http.Handler {
	cfg := DefaultConfig()
	cfg.APIKey = apiKey
	svc := quote.NewService(ratecard.Default(), zerolog.Nop())
	return NewServer(svc, snapshots, zerolog.Nop(), cfg).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndVersion(t *testing.T) {
	h := newTestServer("", nil)

	for _, path := range []string{"/health", "/version", "/ready"} {
		w := do(t, h, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("GET %s Content-Type = %q", path, ct)
		}
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	h := newTestServer("", &fakeSnapshots{pingErr: errors.New("dial tcp: refused")})
	if w := do(t, h, http.MethodGet, "/ready", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /ready = %d, want 503", w.Code)
	}
}

func TestResolveEndpoint(t *testing.T) {
	h := newTestServer("", nil)
	body := `{
		"milesLoaded": 100,
		"escortType": "pilot_car",
		"corridorConfidence": 1.0,
		"risk": {"complexityScore": 0.2},
		"surgeMultiplier": 2.0,
		"clientContract": {"id": "C-118", "cap": "250.00"}
	}`

	w := do(t, h, http.MethodPost, "/api/v1/resolve", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var d pricing.RateDecision
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := d.FinalRate.StringFixed(2); got != "250.00" {
		t.Errorf("finalRate = %s, want 250.00", got)
	}
	if len(d.AppliedRules) != 7 {
		t.Errorf("appliedRules = %d, want 7", len(d.AppliedRules))
	}
}

func TestEstimateEndpoint(t *testing.T) {
	h := newTestServer("", nil)
	body := `{"milesLoaded": 250, "escortType": "pilot_car", "region": "midwest", "positions": {"lead": 1, "chase": 1}}`

	w := do(t, h, http.MethodPost, "/api/v1/estimate", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var est pricing.CostEstimate
	if err := json.Unmarshal(w.Body.Bytes(), &est); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := est.LineItems[pricing.LineBaseEscort]; !ok {
		t.Errorf("missing base escort line item: %+v", est.LineItems)
	}
	if est.Total.Max.LessThan(est.Total.Min) {
		t.Errorf("total max %s < min %s", est.Total.Max, est.Total.Min)
	}
}

func TestCompletenessEndpoint(t *testing.T) {
	h := newTestServer("", nil)

	w := do(t, h, http.MethodPost, "/api/v1/completeness", `{}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var report pricing.ConfidenceReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Score >= 100 || len(report.Suggestions) == 0 {
		t.Errorf("empty draft scored %d with suggestions %v", report.Score, report.Suggestions)
	}
}

func TestQuoteEndpoint(t *testing.T) {
	h := newTestServer("", nil)
	body := `{
		"draft": {},
		"rate": {"milesLoaded": 100, "escortType": "pilot_car", "corridorConfidence": 0.4}
	}`

	w := do(t, h, http.MethodPost, "/api/v1/quote", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var q quote.Quote
	if err := json.Unmarshal(w.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.ID == uuid.Nil {
		t.Error("expected a quote id")
	}
	if !q.Decision.Blocked() {
		t.Error("expected NO_GO for confidence 0.4")
	}
	if q.Policy == nil || q.Policy.Decision != "deny" {
		t.Errorf("policy = %+v, want deny", q.Policy)
	}
}

func TestQuoteEndpointMaxRate(t *testing.T) {
	body := `{"rate": {"milesLoaded": 100, "escortType": "pilot_car", "corridorConfidence": 1.0}}`

	tests := []struct {
		name    string
		maxRate float64
		want    policy.Decision
	}{
		{"no limit", 0, policy.DecisionPass},
		{"rate under limit", 500, policy.DecisionPass},
		{"rate over limit", 300, policy.DecisionDeny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.APIKey = ""
			cfg.MaxRate = tt.maxRate
			h := NewServer(quote.NewService(ratecard.Default(), zerolog.Nop()), nil, zerolog.Nop(), cfg).Handler()

			w := do(t, h, http.MethodPost, "/api/v1/quote", body, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			var q quote.Quote
			if err := json.Unmarshal(w.Body.Bytes(), &q); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if q.Policy == nil || q.Policy.Decision != tt.want {
				t.Errorf("policy = %+v, want %s", q.Policy, tt.want)
			}
		})
	}
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("ESCORT_PORT", "9090")
	t.Setenv("ESCORT_MAX_RATE", "1200.50")
	t.Setenv("ESCORT_ACCESS_LOG", "false")

	cfg := DefaultConfig()
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.MaxRate != 1200.50 {
		t.Errorf("MaxRate = %v, want 1200.50", cfg.MaxRate)
	}
	if cfg.AccessLog {
		t.Error("AccessLog = true, want false")
	}

	h := NewServer(quote.NewService(ratecard.Default(), zerolog.Nop()), nil, zerolog.Nop(), cfg).Handler()
	if w := do(t, h, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("GET /health without access log = %d", w.Code)
	}
}

func TestBadBodyReturns400(t *testing.T) {
	h := newTestServer("", nil)

	for _, path := range []string{"/api/v1/completeness", "/api/v1/estimate", "/api/v1/resolve", "/api/v1/quote"} {
		w := do(t, h, http.MethodPost, path, `{"milesLoaded": "far"`, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("POST %s = %d, want 400", path, w.Code)
			continue
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		if body["error"] != perrors.ErrCodeInvalidRequest || body["message"] == "" {
			t.Errorf("POST %s error body = %v", path, body)
		}
	}
}

func TestAPIKeyRequired(t *testing.T) {
	h := newTestServer("s3cret", nil)

	if w := do(t, h, http.MethodPost, "/api/v1/completeness", `{}`, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("without key = %d, want 401", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/v1/completeness", `{}`, map[string]string{"X-API-Key": "s3cret"}); w.Code != http.StatusOK {
		t.Errorf("with key = %d, want 200", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health must stay open, got %d", w.Code)
	}
}

func TestListSnapshots(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	store := &fakeSnapshots{snapshots: []*clickhouse.RateCardSnapshot{
		{ID: uuid.New(), Alias: "default", Name: "fall-2026", Hash: strings.Repeat("ab", 32), IsActive: true, CreatedAt: created},
		{ID: uuid.New(), Alias: "canada", Name: "ca-2026", Hash: "short", CreatedAt: created},
	}}
	h := newTestServer("", store)

	w := do(t, h, http.MethodGet, "/api/v1/ratecard/snapshots", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp []SnapshotResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != 1 || resp[0].Name != "fall-2026" || !resp[0].IsActive {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp[0].Hash) != 19 {
		t.Errorf("hash = %q, want truncated", resp[0].Hash)
	}

	w = do(t, h, http.MethodGet, "/api/v1/ratecard/snapshots?alias=canada", "", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != 1 || resp[0].Hash != "short" {
		t.Errorf("canada resp = %+v", resp)
	}
}

func TestListSnapshotsWithoutStore(t *testing.T) {
	h := newTestServer("", nil)
	if w := do(t, h, http.MethodGet, "/api/v1/ratecard/snapshots", "", nil); w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

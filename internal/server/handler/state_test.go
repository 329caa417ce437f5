package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
	"github.com/alanyoungcy/spikebot/internal/publisher"
)

type staticSource struct {
	snap publisher.Snapshot
}

func (s *staticSource) Build(now time.Time) publisher.Snapshot { return s.snap }

func testSnapshot() publisher.Snapshot {
	return publisher.Snapshot{
		At:       time.Now(),
		DryRun:   true,
		Strategy: "spike",
		Feed:     domain.FeedStatus{Price: 97012.5, Live: true},
		Positions: []domain.Position{
			{ID: "pos-1", EntryPrice: 0.51, Shares: 196},
		},
		Stats: domain.StatsSnapshot{Trades: 4, TotalPnL: 18.42},
	}
}

func TestHealth(t *testing.T) {
	h := NewStateHandler(&staticSource{snap: testSnapshot()}, "dry-run", "spike", time.Now())

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestStatusReportsGauges(t *testing.T) {
	started := time.Now().Add(-90 * time.Second)
	h := NewStateHandler(&staticSource{snap: testSnapshot()}, "dry-run", "spike", started)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Mode          string  `json:"mode"`
		Strategy      string  `json:"strategy"`
		UptimeSeconds int64   `json:"uptime_seconds"`
		FeedLive      bool    `json:"feed_live"`
		SpotPrice     float64 `json:"spot_price"`
		OpenPositions int     `json:"open_positions"`
		TotalPnL      float64 `json:"total_pnl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Mode != "dry-run" || body.Strategy != "spike" {
		t.Errorf("identity = (%q, %q), want (dry-run, spike)", body.Mode, body.Strategy)
	}
	if body.UptimeSeconds < 89 {
		t.Errorf("uptime_seconds = %d, want >= 89", body.UptimeSeconds)
	}
	if !body.FeedLive || body.SpotPrice != 97012.5 {
		t.Errorf("feed gauges = (%v, %v)", body.FeedLive, body.SpotPrice)
	}
	if body.OpenPositions != 1 || body.TotalPnL != 18.42 {
		t.Errorf("book gauges = (%d, %v)", body.OpenPositions, body.TotalPnL)
	}
}

func TestStateReturnsFullSnapshot(t *testing.T) {
	h := NewStateHandler(&staticSource{snap: testSnapshot()}, "dry-run", "spike", time.Now())

	rec := httptest.NewRecorder()
	h.State(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	var snap publisher.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Strategy != "spike" || len(snap.Positions) != 1 {
		t.Errorf("snapshot = strategy %q, %d positions", snap.Strategy, len(snap.Positions))
	}
	if snap.Positions[0].ID != "pos-1" {
		t.Errorf("position id = %q", snap.Positions[0].ID)
	}
}

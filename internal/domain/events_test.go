package domain

import (
	"fmt"
	"testing"
	"time"
)

func TestEventLogAppendAndSnapshot(t *testing.T) {
	l := NewEventLog()
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	l.AppendAt(base, EventSignal, "spike up 22.0")
	l.AppendAt(base.Add(time.Second), EventBuy, "bought 196 @ 0.51")

	got := l.Snapshot()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Kind != EventSignal || got[1].Kind != EventBuy {
		t.Errorf("order wrong: %v", got)
	}
}

func TestEventLogBounded(t *testing.T) {
	l := NewEventLog()
	for i := 0; i < eventLogCap+25; i++ {
		l.Append(EventInfo, fmt.Sprintf("msg %d", i))
	}
	if l.Len() != eventLogCap {
		t.Fatalf("Len = %d, want %d", l.Len(), eventLogCap)
	}
	got := l.Snapshot()
	if got[0].Message != "msg 25" {
		t.Errorf("oldest = %q, want msg 25", got[0].Message)
	}
	if got[len(got)-1].Message != fmt.Sprintf("msg %d", eventLogCap+24) {
		t.Errorf("newest = %q", got[len(got)-1].Message)
	}
}

func TestMarketDescriptorResolved(t *testing.T) {
	tests := []struct {
		up, down float64
		wantSide Side
		wantOK   bool
	}{
		{0.96, 0.04, SideUp, true},
		{0.03, 0.97, SideDown, true},
		{0.95, 0.05, SideUp, true}, // inclusive thresholds
		{0.80, 0.20, "", false},
		{0.96, 0.10, "", false}, // one side pinned is not enough
	}
	for _, tc := range tests {
		m := &MarketDescriptor{UpPrice: tc.up, DownPrice: tc.down}
		side, ok := m.Resolved()
		if side != tc.wantSide || ok != tc.wantOK {
			t.Errorf("Resolved(%.2f/%.2f) = %q,%v want %q,%v",
				tc.up, tc.down, side, ok, tc.wantSide, tc.wantOK)
		}
	}
}

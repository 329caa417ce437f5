package domain

import (
	"testing"
	"time"
)

func TestWindowPhase(t *testing.T) {
	end := time.Date(2026, 8, 24, 15, 5, 0, 0, time.UTC)
	settle := 10 * time.Second
	closing := 30 * time.Second

	tests := []struct {
		name    string
		now     time.Time
		openSet bool
		want    WindowPhase
	}{
		{"before start", end.Add(-301 * time.Second), false, PhaseWaiting},
		{"at start", end.Add(-300 * time.Second), false, PhaseSettling},
		{"inside settle period", end.Add(-295 * time.Second), false, PhaseSettling},
		{"settle elapsed but no tick yet", end.Add(-280 * time.Second), false, PhaseSettling},
		{"open price latched", end.Add(-280 * time.Second), true, PhaseActive},
		{"just above closing cutoff", end.Add(-31 * time.Second), true, PhaseActive},
		{"at closing cutoff", end.Add(-30 * time.Second), true, PhaseClosing},
		{"closing without open price", end.Add(-10 * time.Second), false, PhaseClosing},
		{"at end", end, true, PhaseEnded},
		{"past end", end.Add(time.Minute), true, PhaseEnded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := &Window{Slug: "btc-updown-1505", EndTime: end}
			if tc.openSet {
				w.OpenPrice = 97000
				w.OpenPriceSet = true
			}
			if got := w.Phase(tc.now, settle, closing); got != tc.want {
				t.Errorf("Phase(%s) = %q, want %q", tc.now.Format(time.TimeOnly), got, tc.want)
			}
		})
	}
}

func TestWindowStartTime(t *testing.T) {
	end := time.Date(2026, 8, 24, 15, 5, 0, 0, time.UTC)
	w := &Window{EndTime: end}
	want := end.Add(-300 * time.Second)
	if got := w.StartTime(); !got.Equal(want) {
		t.Errorf("StartTime() = %s, want %s", got, want)
	}
}

func TestWindowTokenID(t *testing.T) {
	w := &Window{UpTokenID: "tok-up", DownTokenID: "tok-down"}
	if got := w.TokenID(SideUp); got != "tok-up" {
		t.Errorf("TokenID(Up) = %q", got)
	}
	if got := w.TokenID(SideDown); got != "tok-down" {
		t.Errorf("TokenID(Down) = %q", got)
	}
}

func TestSideOpposite(t *testing.T) {
	if SideUp.Opposite() != SideDown || SideDown.Opposite() != SideUp {
		t.Error("Opposite() did not flip sides")
	}
}

func TestWindowRefSnapshot(t *testing.T) {
	end := time.Now().Add(2 * time.Minute)
	w := &Window{Slug: "s", EndTime: end, UpTokenID: "u", DownTokenID: "d"}
	ref := w.Ref()

	// Mutating the window afterwards must not affect the snapshot.
	w.UpTokenID = "changed"
	if ref.UpTokenID != "u" || ref.Slug != "s" || !ref.EndTime.Equal(end) {
		t.Errorf("Ref() = %+v, want original identity", ref)
	}
}

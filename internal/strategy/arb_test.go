package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

func TestArbEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		upAsk    float64
		downAsk  float64
		wantFire bool
	}{
		{"cheap both sides", 0.47, 0.48, true},
		{"sum at threshold", 0.49, 0.49, false},
		{"fairly priced", 0.52, 0.50, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books := &scriptedBooks{books: map[string]domain.BookSnapshot{
				"tok-up":   book("tok-up", tt.upAsk-0.02, tt.upAsk),
				"tok-down": book("tok-down", tt.downAsk-0.02, tt.downAsk),
			}}
			a := NewArb(ArbConfig{MaxSum: 0.98}, books)
			now := time.Now()

			sig, ok := a.Evaluate(context.Background(), lateWindow(now.Add(3*time.Minute)), now)
			if ok != tt.wantFire {
				t.Fatalf("fire = %v, want %v", ok, tt.wantFire)
			}
			if !ok {
				return
			}
			if sig.Kind != domain.SignalBothSides {
				t.Errorf("kind = %s", sig.Kind)
			}
			if got := sig.Metadata["ask_sum"].(float64); got != tt.upAsk+tt.downAsk {
				t.Errorf("ask_sum = %v", got)
			}
		})
	}
}

func TestArbNeedsBothBooks(t *testing.T) {
	books := &scriptedBooks{books: map[string]domain.BookSnapshot{
		"tok-up": book("tok-up", 0.45, 0.47),
	}}
	a := NewArb(ArbConfig{MaxSum: 0.98}, books)
	now := time.Now()
	if _, ok := a.Evaluate(context.Background(), lateWindow(now.Add(3*time.Minute)), now); ok {
		t.Error("missing book must not fire")
	}
}

package notify

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

type recordingSender struct {
	got chan string
	err error
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	s.got <- title + "\n" + message
	return s.err
}

func (s *recordingSender) Name() string { return "recording" }

func TestPositionClosedFormatsTrade(t *testing.T) {
	sender := &recordingSender{got: make(chan string, 1)}
	n := New([]Sender{sender}, slog.Default())

	n.PositionClosed(domain.ClosedTrade{
		WindowSlug: "btc-updown-5m-1700000000",
		Side:       domain.SideUp,
		Kind:       domain.SignalSpike,
		Entry:      0.52,
		Exit:       0.58,
		Shares:     190,
		PnL:        11.17,
		PnLPct:     11.5,
		Status:     domain.ExitTakeProfit,
	})

	select {
	case msg := <-sender.got:
		if !strings.Contains(msg, "Trade closed (win)") {
			t.Errorf("title missing win marker: %q", msg)
		}
		if !strings.Contains(msg, "btc-updown-5m-1700000000") {
			t.Errorf("message missing window slug: %q", msg)
		}
		if !strings.Contains(msg, "+11.17 USDC") {
			t.Errorf("message missing pnl: %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestFailingSenderDoesNotBlockOthers(t *testing.T) {
	failing := &recordingSender{got: make(chan string, 1), err: context.DeadlineExceeded}
	healthy := &recordingSender{got: make(chan string, 1)}
	n := New([]Sender{failing, healthy}, slog.Default())

	n.Alert("venue unreachable, positions held")

	select {
	case msg := <-healthy.got:
		if !strings.Contains(msg, "Alert") {
			t.Errorf("expected alert title, got %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second sender never received the alert")
	}
}

func TestNoSendersIsNoOp(t *testing.T) {
	n := New(nil, slog.Default())

	// Must not panic or spawn anything.
	n.Alert("ignored")
	n.PositionClosed(domain.ClosedTrade{})
}

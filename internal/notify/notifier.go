// Package notify pushes trade closes and operational alerts to external
// channels (Telegram, Discord). Delivery is asynchronous and best-effort so a
// slow or failing channel never blocks the trading loops.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spikebot/internal/domain"
)

// sendTimeout bounds a single delivery attempt across all senders.
const sendTimeout = 15 * time.Second

// Sender is a single notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel for logging (e.g. "telegram").
	Name() string
}

// Notifier fans notifications out to all configured senders. With no senders
// every call is a no-op.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// New creates a Notifier delivering to the given senders.
func New(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// PositionClosed reports a settled trade with its realized P&L.
func (n *Notifier) PositionClosed(t domain.ClosedTrade) {
	title := "Trade closed"
	if t.PnL >= 0 {
		title = "Trade closed (win)"
	}
	message := fmt.Sprintf("%s %s %s\nentry %.3f exit %.3f shares %.0f\npnl %+.2f USDC (%+.1f%%) [%s]",
		t.WindowSlug, t.Side, t.Kind, t.Entry, t.Exit, t.Shares, t.PnL, t.PnLPct, t.Status)
	n.send(title, message)
}

// Alert reports an operational problem that needs operator attention.
func (n *Notifier) Alert(msg string) {
	n.send("Alert", msg)
}

// send dispatches to every sender in the background. A failing sender is
// logged and does not prevent delivery to the rest.
func (n *Notifier) send(title, message string) {
	if len(n.senders) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		for _, s := range n.senders {
			if err := s.Send(ctx, title, message); err != nil {
				n.logger.Error("sender failed",
					slog.String("sender", s.Name()),
					slog.String("error", err.Error()),
				)
				continue
			}
			n.logger.Debug("notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}()
}

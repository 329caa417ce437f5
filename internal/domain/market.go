package domain

import "time"

// MarketDescriptor is the strongly-typed view of one venue market, parsed at
// the venue-client boundary. Markets missing required fields never become
// descriptors; they are filtered out upstream.
type MarketDescriptor struct {
	Slug          string
	Question      string
	UpTokenID     string
	DownTokenID   string
	EndTime       time.Time
	UpPrice       float64 // venue outcome price for the Up token
	DownPrice     float64
	Closed        bool
	AcceptingOrds bool
}

// Resolution thresholds. A market is considered resolved once one outcome
// price pins near 1 and the other near 0.
const (
	ResolvedHigh = 0.95
	ResolvedLow  = 0.05
)

// Resolved reports the winning side once outcome prices have pinned.
// The second return is false while the market is still in play.
func (m *MarketDescriptor) Resolved() (Side, bool) {
	switch {
	case m.UpPrice >= ResolvedHigh && m.DownPrice <= ResolvedLow:
		return SideUp, true
	case m.DownPrice >= ResolvedHigh && m.UpPrice <= ResolvedLow:
		return SideDown, true
	}
	return "", false
}

// Window converts the descriptor into a registry window.
func (m *MarketDescriptor) Window(refPrice float64) *Window {
	return &Window{
		Slug:           m.Slug,
		Question:       m.Question,
		UpTokenID:      m.UpTokenID,
		DownTokenID:    m.DownTokenID,
		EndTime:        m.EndTime,
		ReferencePrice: refPrice,
	}
}

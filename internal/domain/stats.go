package domain

import (
	"sync"
	"time"
)

// eastern is the venue's bookkeeping timezone. Hourly P&L buckets and the
// daily reset both follow it.
var eastern = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// HourKey formats an instant as its Eastern-time hour bucket, e.g. "14:00".
func HourKey(t time.Time) string {
	return t.In(eastern).Format("15:00")
}

// DateKey formats an instant as its Eastern-time date, e.g. "2026-08-24".
func DateKey(t time.Time) string {
	return t.In(eastern).Format("2006-01-02")
}

// Stats is the derived projection over closed trades plus signal counters.
// It is never authoritative; the trade history is.
type Stats struct {
	mu sync.RWMutex

	signals int
	trades  int
	wins    int
	losses  int

	totalPnL float64
	sumWins  float64
	sumLoss  float64
	best     float64
	worst    float64

	hourly  map[string]float64
	curDate string
}

// NewStats returns an empty Stats projection.
func NewStats() *Stats {
	return &Stats{hourly: make(map[string]float64)}
}

// RecordSignal counts a fired entry signal.
func (s *Stats) RecordSignal() {
	s.mu.Lock()
	s.signals++
	s.mu.Unlock()
}

// RecordTrade folds one closed trade into the projection. The trade's close
// time selects the Eastern hourly bucket; a date rollover clears the map
// first.
func (s *Stats) RecordTrade(t ClosedTrade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollOverLocked(t.ClosedAt)

	s.trades++
	s.totalPnL += t.PnL
	if t.PnL > 0 {
		s.wins++
		s.sumWins += t.PnL
	} else {
		s.losses++
		s.sumLoss += t.PnL
	}
	if s.trades == 1 {
		s.best, s.worst = t.PnL, t.PnL
	} else {
		if t.PnL > s.best {
			s.best = t.PnL
		}
		if t.PnL < s.worst {
			s.worst = t.PnL
		}
	}
	s.hourly[HourKey(t.ClosedAt)] += t.PnL
}

// rollOverLocked resets hourly buckets when the Eastern date changes.
func (s *Stats) rollOverLocked(now time.Time) {
	dk := DateKey(now)
	if s.curDate != "" && s.curDate != dk {
		s.hourly = make(map[string]float64)
	}
	s.curDate = dk
}

// DailyPnL sums the hourly buckets for the current Eastern date.
func (s *Stats) DailyPnL(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollOverLocked(now)
	var sum float64
	for _, v := range s.hourly {
		sum += v
	}
	return sum
}

// HourPnL returns the bucket for the hour containing t, zero if empty.
func (s *Stats) HourPnL(t time.Time) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hourly[HourKey(t)]
}

// StatsSnapshot is the serializable view published to observers.
type StatsSnapshot struct {
	Signals   int                `json:"signals"`
	Trades    int                `json:"trades"`
	Wins      int                `json:"wins"`
	Losses    int                `json:"losses"`
	WinRate   float64            `json:"win_rate"`
	TotalPnL  float64            `json:"total_pnl"`
	AvgWin    float64            `json:"avg_win"`
	AvgLoss   float64            `json:"avg_loss"`
	Best      float64            `json:"best"`
	Worst     float64            `json:"worst"`
	HourlyPnL map[string]float64 `json:"hourly_pnl"`
}

// Snapshot copies the projection for publication.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatsSnapshot{
		Signals:  s.signals,
		Trades:   s.trades,
		Wins:     s.wins,
		Losses:   s.losses,
		TotalPnL: s.totalPnL,
		Best:     s.best,
		Worst:    s.worst,
	}
	if s.trades > 0 {
		snap.WinRate = float64(s.wins) / float64(s.trades) * 100
	}
	if s.wins > 0 {
		snap.AvgWin = s.sumWins / float64(s.wins)
	}
	if s.losses > 0 {
		snap.AvgLoss = s.sumLoss / float64(s.losses)
	}
	snap.HourlyPnL = make(map[string]float64, len(s.hourly))
	for k, v := range s.hourly {
		snap.HourlyPnL[k] = v
	}
	return snap
}

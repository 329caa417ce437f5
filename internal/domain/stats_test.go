package domain

import (
	"testing"
	"time"
)

func trade(pnl float64, closedAt time.Time) ClosedTrade {
	status := ExitTakeProfit
	if pnl <= 0 {
		status = ExitHardStop
	}
	return ClosedTrade{PnL: pnl, Status: status, ClosedAt: closedAt}
}

func TestStatsAggregates(t *testing.T) {
	at := time.Date(2026, 8, 24, 18, 30, 0, 0, time.UTC) // 14:30 Eastern
	s := NewStats()
	s.RecordSignal()
	s.RecordSignal()
	s.RecordTrade(trade(10, at))
	s.RecordTrade(trade(-4, at.Add(time.Minute)))
	s.RecordTrade(trade(6, at.Add(2*time.Minute)))

	snap := s.Snapshot()
	if snap.Signals != 2 || snap.Trades != 3 || snap.Wins != 2 || snap.Losses != 1 {
		t.Fatalf("counters = %+v", snap)
	}
	if !almostEqual(snap.TotalPnL, 12) {
		t.Errorf("TotalPnL = %.2f, want 12", snap.TotalPnL)
	}
	if !almostEqual(snap.WinRate, 200.0/3) {
		t.Errorf("WinRate = %.4f", snap.WinRate)
	}
	if !almostEqual(snap.AvgWin, 8) || !almostEqual(snap.AvgLoss, -4) {
		t.Errorf("AvgWin/AvgLoss = %.2f/%.2f", snap.AvgWin, snap.AvgLoss)
	}
	if !almostEqual(snap.Best, 10) || !almostEqual(snap.Worst, -4) {
		t.Errorf("Best/Worst = %.2f/%.2f", snap.Best, snap.Worst)
	}
}

func TestStatsHourlyBucketsEastern(t *testing.T) {
	// 18:30 UTC on Aug 24 is 14:30 in New York (EDT).
	at := time.Date(2026, 8, 24, 18, 30, 0, 0, time.UTC)
	s := NewStats()
	s.RecordTrade(trade(5, at))
	s.RecordTrade(trade(3, at.Add(10*time.Minute))) // same hour
	s.RecordTrade(trade(2, at.Add(40*time.Minute))) // next hour, 15:10 Eastern

	if got := s.HourPnL(at); !almostEqual(got, 8) {
		t.Errorf("HourPnL(14:00) = %.2f, want 8", got)
	}
	if got := s.HourPnL(at.Add(40 * time.Minute)); !almostEqual(got, 2) {
		t.Errorf("HourPnL(15:00) = %.2f, want 2", got)
	}
	if got := s.DailyPnL(at.Add(time.Hour)); !almostEqual(got, 10) {
		t.Errorf("DailyPnL = %.2f, want 10", got)
	}
}

func TestStatsDailyRollover(t *testing.T) {
	// 23:30 Eastern, then 00:30 the next Eastern day.
	day1 := time.Date(2026, 8, 25, 3, 30, 0, 0, time.UTC)
	day2 := day1.Add(time.Hour)
	if DateKey(day1) == DateKey(day2) {
		t.Fatal("test times must straddle an Eastern midnight")
	}

	s := NewStats()
	s.RecordTrade(trade(7, day1))
	s.RecordTrade(trade(2, day2))

	snap := s.Snapshot()
	// Totals survive the rollover, hourly buckets do not.
	if !almostEqual(snap.TotalPnL, 9) {
		t.Errorf("TotalPnL = %.2f, want 9", snap.TotalPnL)
	}
	if len(snap.HourlyPnL) != 1 {
		t.Errorf("HourlyPnL = %v, want single bucket after reset", snap.HourlyPnL)
	}
	if got := s.DailyPnL(day2); !almostEqual(got, 2) {
		t.Errorf("DailyPnL = %.2f, want 2", got)
	}
}

func TestHourKeyFormat(t *testing.T) {
	at := time.Date(2026, 8, 24, 18, 5, 0, 0, time.UTC)
	if got := HourKey(at); got != "14:00" {
		t.Errorf("HourKey = %q, want 14:00", got)
	}
	if got := DateKey(at); got != "2026-08-24" {
		t.Errorf("DateKey = %q, want 2026-08-24", got)
	}
}

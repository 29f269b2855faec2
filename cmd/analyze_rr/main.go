package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"roostoo-trading-bot/config"
	"roostoo-trading-bot/internal/database"
	"roostoo-trading-bot/internal/risk"
)

// ClosedTrade pairs an exit with the planned risk-reward of its entry
type ClosedTrade struct {
	Instrument  string
	RiskReward  float64
	RealizedPnL float64 // exit PnL less entry and exit commission
	Reason      string
	EntryTime   time.Time
	Side        string
}

// RRBucket aggregates closed trades whose planned risk-reward falls in [MinRR, MaxRR)
type RRBucket struct {
	MinRR         float64
	MaxRR         float64
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	TotalPnL      float64
	AvgPnL        float64
	WinRate       float64
}

// ThresholdResult splits closed trades at a minimum risk-reward
type ThresholdResult struct {
	Threshold   float64
	Included    int
	Excluded    int
	IncludedPnL float64
	ExcludedPnL float64
	IncludedWin float64 // win rate in percent
	ExcludedWin float64
}

var thresholds = []float64{2.0, 2.5, 3.0, 4.0}

func main() {
	file := flag.String("file", "", "read the JSON trade log instead of PostgreSQL")
	flag.Parse()

	trades, source, err := loadTrades(*file)
	if err != nil {
		fmt.Printf("Failed to load trades: %v\n", err)
		os.Exit(1)
	}

	line := strings.Repeat("=", 80)
	fmt.Println(line)
	fmt.Println("🧪 RISK-REWARD THRESHOLD ANALYSIS")
	fmt.Println(line)
	fmt.Printf("   Source: %s\n", source)

	closed := pairTrades(trades)
	if len(closed) == 0 {
		entries, exits := 0, 0
		for _, t := range trades {
			if t.Action == risk.ActionExit {
				exits++
			} else {
				entries++
			}
		}
		fmt.Println("\n❌ No closed trades found.")
		fmt.Printf("\n   Entries: %d\n", entries)
		fmt.Printf("   Exits: %d\n", exits)
		return
	}

	fmt.Printf("\n📊 Analyzing %d closed trades...\n\n", len(closed))

	fmt.Println("┌─────────────────┬────────┬─────────┬─────────┬──────────────┬──────────────┬──────────┐")
	fmt.Println("│ Planned R:R     │ Trades │ Winners │ Losers  │ Total PnL    │ Avg PnL      │ Win Rate │")
	fmt.Println("├─────────────────┼────────┼─────────┼─────────┼──────────────┼──────────────┼──────────┤")
	for _, b := range bucketize(closed) {
		upper := fmt.Sprintf("%5.1f", b.MaxRR)
		if math.IsInf(b.MaxRR, 1) {
			upper = "  inf"
		}
		fmt.Printf("│ %5.1f - %s   │ %6d │ %7d │ %7d │ %+12.2f │ %+12.2f │ %7.1f%% │\n",
			b.MinRR, upper,
			b.TotalTrades, b.WinningTrades, b.LosingTrades,
			b.TotalPnL, b.AvgPnL, b.WinRate)
	}
	fmt.Println("└─────────────────┴────────┴─────────┴─────────┴──────────────┴──────────────┴──────────┘")

	fmt.Println("\n" + line)
	fmt.Println("📈 THRESHOLD COMPARISON ANALYSIS")
	fmt.Println(line)

	for _, r := range compareThresholds(closed, thresholds) {
		fmt.Printf("\n🎯 Min R:R: %.1f\n", r.Threshold)
		fmt.Printf("   ├── INCLUDED (≥%.1f): %d trades, PnL: $%.2f, Win Rate: %.1f%%\n",
			r.Threshold, r.Included, r.IncludedPnL, r.IncludedWin)
		fmt.Printf("   └── EXCLUDED (<%.1f): %d trades, PnL: $%.2f, Win Rate: %.1f%%\n",
			r.Threshold, r.Excluded, r.ExcludedPnL, r.ExcludedWin)

		if r.ExcludedPnL < 0 {
			fmt.Printf("   💰 AVOIDED LOSS: $%.2f with min_rr_ratio %.1f\n", -r.ExcludedPnL, r.Threshold)
		} else if r.ExcludedPnL > 0 {
			fmt.Printf("   ⚠️  MISSED PROFIT: $%.2f with min_rr_ratio %.1f\n", r.ExcludedPnL, r.Threshold)
		}
	}

	fmt.Println("\n" + line)
	fmt.Println("🏆 RECOMMENDATION")
	fmt.Println(line)

	if best, avoided := bestThreshold(closed, thresholds); avoided > 0 {
		fmt.Printf("\n✅ Suggested min_rr_ratio: %.1f (would have avoided $%.2f in losses)\n", best, avoided)
	} else {
		fmt.Println("\n⚠️  No clear threshold - planned R:R doesn't correlate with outcomes.")
	}

	fmt.Println("\n" + line)
	fmt.Println("📉 LARGEST LOSSES")
	fmt.Println(line)
	shown := 0
	for _, t := range closed {
		if t.RealizedPnL < -10 && shown < 10 {
			fmt.Printf("   %s | R:R %.2f | PnL: $%.2f | %s | %s | %s\n",
				t.Instrument, t.RiskReward, t.RealizedPnL, t.Side, t.Reason, t.EntryTime.Format("2006-01-02 15:04"))
			shown++
		}
	}
}

// loadTrades reads the JSON trade log when file is set, otherwise the
// PostgreSQL journal configured through config.Load
func loadTrades(file string) ([]risk.TradeRecord, string, error) {
	if file != "" {
		trades, err := database.ReadTradeLog(file)
		return trades, file, err
	}

	cfg, err := config.Load("")
	if err != nil {
		return nil, "", err
	}
	dc := cfg.DatabaseConfig

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewDB(ctx, database.Config{
		Host:     dc.Host,
		Port:     dc.Port,
		User:     dc.User,
		Password: dc.Password,
		Database: dc.Database,
		SSLMode:  dc.SSLMode,
		MaxConns: 2,
	})
	if err != nil {
		return nil, "", err
	}
	journal := database.NewPostgresJournal(db)
	defer journal.Close()

	trades, err := journal.ReadTrades(ctx)
	return trades, fmt.Sprintf("postgres %s@%s/%s", dc.User, dc.Host, dc.Database), err
}

// pairTrades matches each exit with the latest open entry of its instrument.
// Exits without an entry are dropped.
func pairTrades(trades []risk.TradeRecord) []ClosedTrade {
	open := make(map[string]risk.TradeRecord)
	var closed []ClosedTrade
	for _, t := range trades {
		if t.Action != risk.ActionExit {
			open[t.Instrument] = t
			continue
		}
		entry, ok := open[t.Instrument]
		if !ok {
			continue
		}
		delete(open, t.Instrument)
		closed = append(closed, ClosedTrade{
			Instrument:  t.Instrument,
			RiskReward:  entry.RiskRewardRatio,
			RealizedPnL: t.PnL - entry.Commission - t.Commission,
			Reason:      t.Reason,
			EntryTime:   entry.Timestamp,
			Side:        entry.Side,
		})
	}
	return closed
}

func bucketize(closed []ClosedTrade) []RRBucket {
	buckets := []RRBucket{
		{MinRR: 0, MaxRR: 2},
		{MinRR: 2, MaxRR: 2.5},
		{MinRR: 2.5, MaxRR: 3},
		{MinRR: 3, MaxRR: 4},
		{MinRR: 4, MaxRR: math.Inf(1)},
	}

	for _, t := range closed {
		for i := range buckets {
			b := &buckets[i]
			if t.RiskReward < b.MinRR || t.RiskReward >= b.MaxRR {
				continue
			}
			b.TotalTrades++
			b.TotalPnL += t.RealizedPnL
			if t.RealizedPnL > 0 {
				b.WinningTrades++
			} else if t.RealizedPnL < 0 {
				b.LosingTrades++
			}
			break
		}
	}

	for i := range buckets {
		if buckets[i].TotalTrades > 0 {
			buckets[i].AvgPnL = buckets[i].TotalPnL / float64(buckets[i].TotalTrades)
			buckets[i].WinRate = float64(buckets[i].WinningTrades) / float64(buckets[i].TotalTrades) * 100
		}
	}
	return buckets
}

func compareThresholds(closed []ClosedTrade, levels []float64) []ThresholdResult {
	out := make([]ThresholdResult, 0, len(levels))
	for _, level := range levels {
		r := ThresholdResult{Threshold: level}
		var includedWins, excludedWins int
		for _, t := range closed {
			if t.RiskReward >= level {
				r.Included++
				r.IncludedPnL += t.RealizedPnL
				if t.RealizedPnL > 0 {
					includedWins++
				}
			} else {
				r.Excluded++
				r.ExcludedPnL += t.RealizedPnL
				if t.RealizedPnL > 0 {
					excludedWins++
				}
			}
		}
		if r.Included > 0 {
			r.IncludedWin = float64(includedWins) / float64(r.Included) * 100
		}
		if r.Excluded > 0 {
			r.ExcludedWin = float64(excludedWins) / float64(r.Excluded) * 100
		}
		out = append(out, r)
	}
	return out
}

// bestThreshold returns the level whose excluded trades lost the most, and
// that loss as a positive amount. avoided is 0 when no level avoids a loss.
func bestThreshold(closed []ClosedTrade, levels []float64) (best, avoided float64) {
	best = levels[0]
	for _, r := range compareThresholds(closed, levels) {
		if -r.ExcludedPnL > avoided {
			avoided = -r.ExcludedPnL
			best = r.Threshold
		}
	}
	return best, avoided
}

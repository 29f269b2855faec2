package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"roostoo-trading-bot/internal/database"
	"roostoo-trading-bot/internal/risk"
)

// InstrumentStats aggregates the closed trades of one instrument
type InstrumentStats struct {
	Instrument    string
	Entries       int
	TotalTrades   int // exits
	WinningTrades int
	LosingTrades  int
	TotalPnL      float64
	TotalWins     float64
	TotalLosses   float64
	Commission    float64
	WinRate       float64
	AvgPnL        float64
	ExitReasons   map[string]int
}

// NetPnL is gross exit PnL less every commission paid on the instrument
func (s *InstrumentStats) NetPnL() float64 {
	return s.TotalPnL - s.Commission
}

func main() {
	godotenv.Load()

	path := flag.String("file", getEnv("TRADE_LOG_FILE", "trades.json"), "trade log written by the bot")
	flag.Parse()

	trades, err := database.ReadTradeLog(*path)
	if err != nil {
		fmt.Printf("❌ Failed to read trade log: %v\n", err)
		os.Exit(1)
	}

	line := strings.Repeat("=", 80)
	fmt.Println(line)
	fmt.Println("📊 ROOSTOO TRADE LOG ANALYSIS")
	fmt.Println(line)
	fmt.Printf("   Source: %s (%d records)\n", *path, len(trades))

	stats := analyze(trades)
	if len(stats) == 0 {
		fmt.Println("\n❌ No closed trades found")
		return
	}

	fmt.Println("\n" + line)
	fmt.Println("📈 TRADE PERFORMANCE BY INSTRUMENT")
	fmt.Println(line)

	fmt.Println("┌──────────────┬────────┬─────────┬─────────┬──────────────┬──────────────┬──────────┐")
	fmt.Println("│ Instrument   │ Trades │ Winners │ Losers  │ Total PnL    │ Avg PnL      │ Win Rate │")
	fmt.Println("├──────────────┼────────┼─────────┼─────────┼──────────────┼──────────────┼──────────┤")

	total := totals(stats)
	for _, s := range stats {
		emoji := "🟢"
		if s.TotalPnL < 0 {
			emoji = "🔴"
		}
		fmt.Printf("│ %s %-10s │ %6d │ %7d │ %7d │ %+12.2f │ %+12.2f │ %7.1f%% │\n",
			emoji, truncate(s.Instrument, 10),
			s.TotalTrades, s.WinningTrades, s.LosingTrades,
			s.TotalPnL, s.AvgPnL, s.WinRate)
	}

	fmt.Println("├──────────────┼────────┼─────────┼─────────┼──────────────┼──────────────┼──────────┤")
	fmt.Printf("│ 📊 TOTAL     │ %6d │ %7d │ %7d │ %+12.2f │ %+12.2f │ %7.1f%% │\n",
		total.TotalTrades, total.WinningTrades, total.LosingTrades,
		total.TotalPnL, total.AvgPnL, total.WinRate)
	fmt.Println("└──────────────┴────────┴─────────┴─────────┴──────────────┴──────────────┴──────────┘")

	fmt.Printf("\n💸 Total Commission Paid: $%.2f\n", total.Commission)
	fmt.Printf("📊 Net PnL (after commission): $%.2f\n", total.NetPnL())

	fmt.Println("\n" + line)
	fmt.Println("🎯 EXIT REASONS")
	fmt.Println(line)
	reasons := make([]string, 0, len(total.ExitReasons))
	for r := range total.ExitReasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("   %-14s %d\n", r, total.ExitReasons[r])
	}

	fmt.Println("\n" + line)
	fmt.Println("🔴 WORST PERFORMING INSTRUMENTS")
	fmt.Println(line)
	shown := 0
	for i := len(stats) - 1; i >= 0 && shown < 5; i-- {
		s := stats[i]
		if s.TotalPnL >= 0 {
			continue
		}
		avgLoss := 0.0
		if s.LosingTrades > 0 {
			avgLoss = s.TotalLosses / float64(s.LosingTrades)
		}
		fmt.Printf("   🔴 %s: $%.2f total loss | %d losses | Avg loss: $%.2f | Win rate: %.1f%%\n",
			s.Instrument, s.TotalPnL, s.LosingTrades, avgLoss, s.WinRate)
		shown++
	}

	fmt.Println("\n" + line)
	fmt.Println("🟢 BEST PERFORMING INSTRUMENTS")
	fmt.Println(line)
	shown = 0
	for _, s := range stats {
		if s.TotalPnL <= 0 || shown >= 5 {
			continue
		}
		avgWin := 0.0
		if s.WinningTrades > 0 {
			avgWin = s.TotalWins / float64(s.WinningTrades)
		}
		fmt.Printf("   🟢 %s: $%.2f total profit | %d wins | Avg win: $%.2f | Win rate: %.1f%%\n",
			s.Instrument, s.TotalPnL, s.WinningTrades, avgWin, s.WinRate)
		shown++
	}

	fmt.Println("\n" + line)
	fmt.Println("💡 INSIGHTS")
	fmt.Println(line)
	if total.WinRate < 50 {
		fmt.Printf("\n   ⚠️  Overall win rate is %.1f%% - BELOW 50%%\n", total.WinRate)
		fmt.Println("   → Consider raising min_setup_confidence or min_rr_ratio")
	} else {
		fmt.Printf("\n   ✅ Overall win rate is %.1f%% - above 50%%\n", total.WinRate)
	}

	fmt.Println("\n   🚫 EXCLUSION CANDIDATES (negative PnL + low win rate):")
	excluded := 0
	for i := len(stats) - 1; i >= 0; i-- {
		s := stats[i]
		if s.TotalPnL < -20 && s.WinRate < 45 && s.TotalTrades >= 3 {
			fmt.Printf("      - %s (PnL: $%.2f, Win rate: %.1f%%, Trades: %d)\n",
				s.Instrument, s.TotalPnL, s.WinRate, s.TotalTrades)
			excluded++
		}
	}
	if excluded == 0 {
		fmt.Println("      None identified")
	}
}

// analyze groups the log by instrument, sorted by total PnL descending.
// Instruments without an exit are omitted.
func analyze(trades []risk.TradeRecord) []*InstrumentStats {
	byInstrument := make(map[string]*InstrumentStats)
	for _, t := range trades {
		s, ok := byInstrument[t.Instrument]
		if !ok {
			s = &InstrumentStats{Instrument: t.Instrument, ExitReasons: make(map[string]int)}
			byInstrument[t.Instrument] = s
		}
		s.Commission += t.Commission

		if t.Action != risk.ActionExit {
			s.Entries++
			continue
		}
		s.TotalTrades++
		s.TotalPnL += t.PnL
		s.ExitReasons[t.Reason]++
		if t.PnL > 0 {
			s.WinningTrades++
			s.TotalWins += t.PnL
		} else if t.PnL < 0 {
			s.LosingTrades++
			s.TotalLosses += t.PnL
		}
	}

	var out []*InstrumentStats
	for _, s := range byInstrument {
		if s.TotalTrades == 0 {
			continue
		}
		finish(s)
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPnL != out[j].TotalPnL {
			return out[i].TotalPnL > out[j].TotalPnL
		}
		return out[i].Instrument < out[j].Instrument
	})
	return out
}

// totals folds per-instrument stats into one row
func totals(stats []*InstrumentStats) *InstrumentStats {
	t := &InstrumentStats{Instrument: "TOTAL", ExitReasons: make(map[string]int)}
	for _, s := range stats {
		t.Entries += s.Entries
		t.TotalTrades += s.TotalTrades
		t.WinningTrades += s.WinningTrades
		t.LosingTrades += s.LosingTrades
		t.TotalPnL += s.TotalPnL
		t.TotalWins += s.TotalWins
		t.TotalLosses += s.TotalLosses
		t.Commission += s.Commission
		for r, n := range s.ExitReasons {
			t.ExitReasons[r] += n
		}
	}
	finish(t)
	return t
}

func finish(s *InstrumentStats) {
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
		s.AvgPnL = s.TotalPnL / float64(s.TotalTrades)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

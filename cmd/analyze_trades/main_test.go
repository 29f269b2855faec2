package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roostoo-trading-bot/internal/risk"
)

func TestAnalyze(t *testing.T) {
	trades := []risk.TradeRecord{
		{Instrument: "BTC/USD", Action: risk.ActionEntry, Commission: 1},
		{Instrument: "BTC/USD", Action: risk.ActionExit, PnL: 100, Commission: 1, Reason: "PROFIT_TAKEN"},
		{Instrument: "ETH/USD", Action: risk.ActionEntry, Commission: 0.5},
		{Instrument: "ETH/USD", Action: risk.ActionExit, PnL: -40, Commission: 0.5, Reason: "STOPPED_OUT"},
		{Instrument: "BTC/USD", Action: risk.ActionEntry, Commission: 1},
		{Instrument: "BTC/USD", Action: risk.ActionExit, PnL: -20, Commission: 1, Reason: "STOPPED_OUT"},
		{Instrument: "SOL/USD", Action: risk.ActionEntry, Commission: 0.2},
	}

	stats := analyze(trades)
	require.Len(t, stats, 2, "instruments without an exit are omitted")

	btc := stats[0]
	assert.Equal(t, "BTC/USD", btc.Instrument)
	assert.Equal(t, 2, btc.Entries)
	assert.Equal(t, 2, btc.TotalTrades)
	assert.Equal(t, 1, btc.WinningTrades)
	assert.Equal(t, 1, btc.LosingTrades)
	assert.InDelta(t, 80, btc.TotalPnL, 1e-9)
	assert.InDelta(t, 76, btc.NetPnL(), 1e-9)
	assert.InDelta(t, 50, btc.WinRate, 1e-9)
	assert.InDelta(t, 40, btc.AvgPnL, 1e-9)

	eth := stats[1]
	assert.Equal(t, "ETH/USD", eth.Instrument)
	assert.InDelta(t, -40, eth.TotalLosses, 1e-9)

	total := totals(stats)
	assert.Equal(t, 3, total.TotalTrades)
	assert.Equal(t, 2, total.ExitReasons["STOPPED_OUT"])
	assert.Equal(t, 1, total.ExitReasons["PROFIT_TAKEN"])
	assert.InDelta(t, 40, total.TotalPnL, 1e-9)
	assert.InDelta(t, 100.0/3, total.WinRate, 1e-9)
}

func TestAnalyze_Empty(t *testing.T) {
	assert.Empty(t, analyze(nil))
	assert.Zero(t, totals(nil).WinRate)
}

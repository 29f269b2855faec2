package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"roostoo-trading-bot/internal/risk"
)

// Journal is a write-only audit trail of trades and metrics snapshots
type Journal interface {
	RecordTrade(ctx context.Context, trade risk.TradeRecord) error
	RecordMetrics(ctx context.Context, metrics risk.Metrics) error
	Close() error
}

// FileJournal keeps the trade log as a JSON array and the latest metrics
// snapshot as a JSON object
type FileJournal struct {
	tradesPath  string
	metricsPath string
	trades      []risk.TradeRecord
	loaded      bool
	mu          sync.Mutex
}

// NewFileJournal creates a journal writing to the given files
func NewFileJournal(tradesPath, metricsPath string) *FileJournal {
	return &FileJournal{tradesPath: tradesPath, metricsPath: metricsPath}
}

// RecordTrade appends a trade to the log file
func (j *FileJournal) RecordTrade(ctx context.Context, trade risk.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	// Load records from earlier runs on first write
	if !j.loaded {
		existing, err := ReadTradeLog(j.tradesPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		j.trades = existing
		j.loaded = true
	}

	j.trades = append(j.trades, trade)
	return writeJSON(j.tradesPath, j.trades)
}

// RecordMetrics overwrites the metrics snapshot file
func (j *FileJournal) RecordMetrics(ctx context.Context, metrics risk.Metrics) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return writeJSON(j.metricsPath, metrics)
}

// Close is a no-op; every write is flushed immediately
func (j *FileJournal) Close() error { return nil }

// ReadTradeLog loads a trade log file written by FileJournal
func ReadTradeLog(path string) ([]risk.TradeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var trades []risk.TradeRecord
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("error parsing trade log %s: %w", path, err)
	}
	return trades, nil
}

// writeJSON replaces path atomically via a temp file in the same directory
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// MultiJournal fans records out to several journals. A failing journal is
// logged and does not stop the others.
type MultiJournal struct {
	journals []Journal
	logger   zerolog.Logger
}

// NewMultiJournal combines journals
func NewMultiJournal(logger zerolog.Logger, journals ...Journal) *MultiJournal {
	return &MultiJournal{
		journals: journals,
		logger:   logger.With().Str("component", "journal").Logger(),
	}
}

// RecordTrade writes the trade to every journal
func (m *MultiJournal) RecordTrade(ctx context.Context, trade risk.TradeRecord) error {
	var errs []error
	for _, j := range m.journals {
		if err := j.RecordTrade(ctx, trade); err != nil {
			m.logger.Error().Err(err).Str("instrument", trade.Instrument).Msg("Failed to journal trade")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordMetrics writes the snapshot to every journal
func (m *MultiJournal) RecordMetrics(ctx context.Context, metrics risk.Metrics) error {
	var errs []error
	for _, j := range m.journals {
		if err := j.RecordMetrics(ctx, metrics); err != nil {
			m.logger.Error().Err(err).Msg("Failed to journal metrics")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every journal
func (m *MultiJournal) Close() error {
	var errs []error
	for _, j := range m.journals {
		errs = append(errs, j.Close())
	}
	return errors.Join(errs...)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"roostoo-trading-bot/config"
	"roostoo-trading-bot/internal/auth"
	"roostoo-trading-bot/internal/database"
	"roostoo-trading-bot/internal/report"
	"roostoo-trading-bot/internal/risk"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [trades.json]",
	Short: "Score a trade log or value series offline",
	Long: `Verify replays a persisted trade log into a portfolio value series and
prints the Sharpe, Sortino, Calmar and composite scores.

With --values, the file is instead read as a JSON array of portfolio values.

Example:
  roostoo-bot verify trades.json
  INITIAL_CAPITAL=10000 roostoo-bot verify
  roostoo-bot verify --values values.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

var verifyValues bool

var sampleConfigCmd = &cobra.Command{
	Use:   "sample-config [file]",
	Short: "Write a sample configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.sample.json"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.GenerateSampleConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", path)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print the bcrypt hash for AUTH_OPERATOR_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0], bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd, sampleConfigCmd, hashPasswordCmd)
	verifyCmd.Flags().BoolVar(&verifyValues, "values", false, "read the file as a JSON array of portfolio values")
}

func runVerify(cmd *cobra.Command, args []string) error {
	path := config.Default().JournalConfig.TradeLogFile
	if len(args) == 1 {
		path = args[0]
	}

	var m risk.Metrics
	if verifyValues {
		values, err := readValues(path)
		if err != nil {
			return err
		}
		m = risk.ComputeMetrics(values)
	} else {
		trades, err := database.ReadTradeLog(path)
		if err != nil {
			return err
		}
		m = risk.ReplayTradeLog(initialCapital(), trades)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Format(m))
	return nil
}

// initialCapital reads INITIAL_CAPITAL, falling back to the configured default
func initialCapital() float64 {
	if v := os.Getenv("INITIAL_CAPITAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return config.Default().RiskConfig.InitialCapital
}

func readValues(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s holds no values", path)
	}
	return values, nil
}

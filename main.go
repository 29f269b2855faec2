package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "roostoo-bot",
	Short: "Market-structure trading bot for the Roostoo mock exchange",
	Long: `Roostoo bot scans a universe of crypto pairs for fair value gap and
change of character setups, sizes entries by risk, and manages each position
until its stop loss or target is hit.

It also serves a read-only reporting API and writes a JSON trade log that the
verify command can score offline.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (JSON or YAML, default $CONFIG_FILE or config.json)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

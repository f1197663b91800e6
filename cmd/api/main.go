package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "api",
		Short:         "Campaign escrow webhook service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to config.yaml (default: ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(replayCmd())

	return rootCmd
}

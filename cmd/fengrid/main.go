package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "fengrid",
	Short:        "Renders FEN positions as a grid of chess boards in one PNG",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "TOML config file (defaults to $FENGRID_CONFIG)")
	rootCmd.AddCommand(renderCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

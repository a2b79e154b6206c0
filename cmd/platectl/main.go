package main

import (
	"os"

	"github.com/spf13/cobra"

	"plate-reader/internal/logging"
)

var logLevel = "info"

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "platectl",
		Short: "platectl reads well colors off a photographed 48-well plate",
		Long: `platectl reads well colors off a photographed 48-well plate.

Give it the photo, the centers of wells A1 and H6, and two reference
spots: one showing the empty color and one showing the saturated color.
Every well is scored between the two and printed as JSON.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return logging.Setup(logLevel)
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")

	cmd.AddCommand(NewAnalyzeCommand())

	return cmd
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var debugLogging bool

func main() {
	root := &cobra.Command{
		Use:   "skyvis",
		Short: "All-sky camera star visibility analysis",
		Long: `skyvis detects catalog stars in all-sky camera images and derives
per-star atmospheric visibility estimates by comparing detected to
catalog brightness.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debugLogging {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")

	root.AddCommand(detectCommand())
	root.AddCommand(cameraCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

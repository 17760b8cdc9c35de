package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rbxcache/internal/config"
	"rbxcache/internal/constants"
	"rbxcache/internal/logger"
	"rbxcache/internal/version"
)

func main() {
	log := logger.NewLogger(constants.DefaultLogLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to load config: %v\n", constants.AppName, err)
		os.Exit(1)
	}
	cfg.LogEffectiveValues(log)

	root := newRootCommand(cfg, log)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config, log *logger.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   constants.AppName,
		Short: fmt.Sprintf("%s extracts assets from the Roblox client cache", constants.AppDisplayName),
		Long: fmt.Sprintf("%s %s locates the Roblox client's cache (SQLite-indexed or flat-file),\n"+
			"identifies cached payloads by format, and extracts them into a categorized\noutput tree.",
			constants.AppDisplayName, version.Version),
		SilenceUsage: true,
	}

	root.AddCommand(newExtractCommand(cfg, log))
	root.AddCommand(newHistoryCommand(cfg, log))
	root.AddCommand(newVersionCommand())

	return root
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rbxcache/internal/config"
	"rbxcache/internal/constants"
	"rbxcache/internal/history"
	"rbxcache/internal/logger"
)

func newHistoryCommand(cfg *config.Config, log *logger.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "inspect or reset the cross-run dedup history",
	}

	cmd.AddCommand(newHistoryShowCommand(cfg, log))
	cmd.AddCommand(newHistoryClearCommand(cfg, log))
	return cmd
}

func newHistoryShowCommand(cfg *config.Config, log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "print the number of identities recorded per kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := history.Load(cfg.HistoryPath)
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}
			for _, kind := range historyKinds {
				fmt.Printf("%-12s %d\n", kind, h.Size(kind))
			}
			fmt.Printf("%-12s %d\n", "total", h.Size(""))
			return nil
		},
	}
}

func newHistoryClearCommand(cfg *config.Config, log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [kind]",
		Short: "wipe one kind's history, or all kinds if none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := history.Load(cfg.HistoryPath)
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}

			kind := ""
			if len(args) == 1 {
				kind = args[0]
			}
			if err := h.Clear(kind); err != nil {
				return fmt.Errorf("clearing history: %w", err)
			}

			if kind == "" {
				fmt.Println("cleared all history")
			} else {
				fmt.Printf("cleared history for %s\n", kind)
			}
			return nil
		},
	}
}

var historyKinds = []string{
	constants.KindAudio,
	constants.KindFont,
	constants.KindImage,
	constants.KindTexture,
	constants.KindModel,
	constants.KindTranslation,
	constants.KindVideo,
	constants.KindOther,
}

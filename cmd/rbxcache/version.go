package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rbxcache/internal/constants"
	"rbxcache/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%s %s\n", constants.AppDisplayName, version.Version)
			return nil
		},
	}
}

// Package main provides the entry point for the ownergraph CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ownergraph.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ownergraph",
		Short: "Ownership portfolio builder for NYC residential buildings",
		Long: `ownergraph maps the ownership network around a NYC residential building.

Starting from a tax parcel (borough-block-lot), it crawls housing
registration and contact records outward, links buildings through shared
officers, agents, and mailing addresses, and reports the connected
portfolio: every building, person, entity, and shared address reachable
from the seed parcel.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewBuildCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

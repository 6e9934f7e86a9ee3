// Package main provides the entry point for the gophermirror CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for gophermirror.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gophermirror",
		Short: "Recursive mirroring tool for Gopher servers",
		Long: `gophermirror downloads Gopher menus and files into a local directory
tree that mirrors the server's selector hierarchy. Menus are saved as
"gophermap" files so the mirror can be re-served by a Gopher daemon.

By default the crawl stays on the starting host, never walks above the
starting selector, and waits one second between requests.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewMirrorCmd())
	cmd.AddCommand(NewHistoryCmd())
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

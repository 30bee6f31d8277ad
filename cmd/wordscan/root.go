package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for wordscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wordscan",
		Short: "Crawl a website and report its most frequent words",
		Long: `wordscan crawls a website starting from a seed URL and counts the words
of every HTML page it reaches on the same domain.

Pages are visited in breadth-first order up to a page limit. Non-HTML
resources are detected with a HEAD request and skipped. Failed requests
are retried with exponential backoff; a request that still fails ends
the crawl. Results are printed and kept in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
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

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/productscan/internal/log"
)

// NewRootCmd creates the root command for productscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "productscan",
		Short: "Product URL crawler for e-commerce sites",
		Long: `productscan discovers product detail page URLs on e-commerce sites.

Each configured site is crawled with a headless browser, starting from its
seed URLs and staying inside the site's registrable domain. Discovered links
are classified as product, category or other using per-site URL patterns and
a generic heuristic. The product URLs of every site are written to a JSON
file keyed by the site's base URL.

Sites are read from a .productscan file (see 'productscan init'). Without a
configuration file a built-in list of fashion storefronts is crawled.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
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

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the stderr logger. Attribute values that look like
// credentials are masked before they are written.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

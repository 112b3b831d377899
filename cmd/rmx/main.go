package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rmx",
		Short: "Server-driven UI runtime for Go",
		Long: `rmx renders component trees on the server and keeps them live
in the browser.

  • Streaming SSR with out-of-order async frames
  • Hydration of server markup without re-creating the DOM
  • Live sessions shipping binary DOM patches over WebSocket
  • Error boundaries and scheduled batched re-renders`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

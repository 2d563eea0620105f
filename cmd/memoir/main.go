package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomworks/memoir/internal/cli"
	"github.com/loomworks/memoir/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "memoir",
		Short: "Memoir CLI - multi-channel memory for customer interactions",
		Long: `Memoir CLI ingests and searches customer interaction memory.

Environment variables:
  MEMOIR_API_KEY      API key for authentication (omit if the server runs without auth)
  MEMOIR_API_URL      API base URL (default: http://localhost:8080)
  MEMOIR_CUSTOMER_ID  Default customer id for ingest and search`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.TimelineCmd())
	rootCmd.AddCommand(client.DeleteCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

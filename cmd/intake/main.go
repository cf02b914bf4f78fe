package main

import (
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Employee information intake server",
	Long: `intake collects employee submissions over HTTP and offers listing,
aggregate stats and CSV export.

  intake api     start the API-only server (default port 3000)
  intake serve   start the static site + API server (default port 8080)
  intake mcp     serve the same operations as MCP tools over stdio`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("server", "", "base URL of a running intake server (default: local API server)")

	rootCmd.AddCommand(apiCmd, serveCmd, mcpCmd, statusCmd)
	rootCmd.AddCommand(submitCmd, listCmd, statsCmd, exportCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

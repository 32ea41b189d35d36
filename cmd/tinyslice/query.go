package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nicktill/tinyslice/pkg/client"
	"github.com/nicktill/tinyslice/pkg/config"
)

var queryServer string

var queryCmd = &cobra.Command{
	Use:   "query <query-string>",
	Short: "Run a data query against a running server",
	Long: `Send a query to /v1/data and stream the response to stdout.

  tinyslice query 'metrics=clicks&dimensions=country&grain=hour&format=csv'`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&queryServer, "server", "http://localhost:"+config.DefaultPort, "Server base URL")
}

func runQuery(cmd *cobra.Command, args []string) error {
	q, err := url.ParseQuery(strings.TrimPrefix(args[0], "?"))
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), config.DataTimeout)
	defer cancel()
	return client.New(queryServer).Data(ctx, q, cmd.OutOrStdout())
}

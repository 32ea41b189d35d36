package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/data"
	"github.com/nicktill/tinyslice/pkg/ingest"
	"github.com/nicktill/tinyslice/pkg/server"
	"github.com/nicktill/tinyslice/pkg/storage"
	"github.com/nicktill/tinyslice/pkg/storage/memory"
)

var (
	renderPoints     string
	renderDimensions string
	renderQuery      string
	renderOutput     string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a slice of a points file without a server",
	Long: `Load points from a JSON file ({"points":[...]} or a bare array), run one
data query against them and write the response to stdout or a file.

  tinyslice render --points points.json --dimensions dims.yaml \
    --query 'metrics=clicks&dimensions=country|id,name&grain=day&format=csv'`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&renderPoints, "points", "", "JSON file with points (required)")
	renderCmd.Flags().StringVar(&renderDimensions, "dimensions", "", "Dimension dictionary YAML file")
	renderCmd.Flags().StringVarP(&renderQuery, "query", "q", "", "Data query string, as sent to /v1/data (required)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write to this file instead of stdout")
	_ = renderCmd.MarkFlagRequired("points")
	_ = renderCmd.MarkFlagRequired("query")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if renderDimensions != "" {
		cfg.DimensionsFile = renderDimensions
	}

	points, err := readPoints(renderPoints)
	if err != nil {
		return err
	}
	for i, p := range points {
		if err := ingest.ValidatePoint(p); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}

	store := memory.New()
	defer store.Close()
	ctx := context.Background()
	if err := store.Write(ctx, points); err != nil {
		return err
	}

	dict, err := server.LoadDictionary(cfg.DimensionsFile)
	if err != nil {
		return err
	}
	sel, err := server.NewSelector(cfg.DefaultFormat)
	if err != nil {
		return err
	}

	h := data.NewHandler(data.NewBuilder(store, dict, 0), data.Options{
		Selector:    sel,
		PartialData: cfg.PartialData,
		MaxPerPage:  cfg.MaxPerPage,
	})

	q, err := url.ParseQuery(strings.TrimPrefix(renderQuery, "?"))
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	req, err := h.Parse(q)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, config.DataTimeout)
	defer cancel()
	resp, err := h.Prepare(ctx, req, &url.URL{Path: "/v1/data", RawQuery: q.Encode()})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if renderOutput != "" {
		f, err := os.Create(renderOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	if err := resp.Write(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if renderOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", resp.RowsWritten(), renderOutput)
	}
	return nil
}

// readPoints accepts {"points":[...]} or a bare JSON array
func readPoints(path string) ([]storage.Point, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapped ingest.IngestRequest
	if err := json.Unmarshal(b, &wrapped); err == nil && wrapped.Points != nil {
		return wrapped.Points, nil
	}
	var points []storage.Point
	if err := json.Unmarshal(b, &points); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return points, nil
}

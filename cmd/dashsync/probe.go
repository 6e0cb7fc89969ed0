package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/models"
	"github.com/persistorai/dashsync/internal/query"
)

type probeResult struct {
	URL       string         `json:"url"`
	Reachable bool           `json:"reachable"`
	WarmupMS  int64          `json:"warmup_ms"`
	FetchMS   int64          `json:"fetch_ms,omitempty"`
	Query     string         `json:"query"`
	Records   int            `json:"records"`
	Filters   map[string]int `json:"filters,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func (r probeResult) table() ([]string, [][]string) {
	rows := [][]string{
		{"url", r.URL},
		{"reachable", strconv.FormatBool(r.Reachable)},
		{"warmup_ms", strconv.FormatInt(r.WarmupMS, 10)},
		{"fetch_ms", strconv.FormatInt(r.FetchMS, 10)},
		{"query", r.Query},
		{"records", strconv.Itoa(r.Records)},
	}
	for _, f := range query.Facets() {
		if n, ok := r.Filters[string(f)]; ok {
			rows = append(rows, []string{"filters." + string(f), strconv.Itoa(n)})
		}
	}
	if r.Error != "" {
		rows = append(rows, []string{"error", r.Error})
	}

	return []string{"CHECK", "RESULT"}, rows
}

func newProbeCmd() *cobra.Command {
	var (
		rawQuery string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Warm the backend up and fetch one dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := query.Decode(rawQuery)
			if err != nil {
				return fmt.Errorf("invalid --query: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res := runProbe(ctx, client.New(apiURL()), sel)
			if err := output(cmd.OutOrStdout(), res, strconv.FormatBool(res.Reachable)); err != nil {
				return err
			}

			if res.Error != "" {
				return fmt.Errorf("probe failed: %s", res.Error)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&rawQuery, "query", "", "Encoded selection to fetch (e.g. topics=oil&end_year=2030)")
	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Second, "Overall probe timeout")

	return cmd
}

func runProbe(ctx context.Context, c *client.Client, sel query.Selection) probeResult {
	res := probeResult{URL: c.BaseURL(), Query: query.Encode(sel)}

	start := time.Now()
	err := c.Warmup(ctx)
	res.WarmupMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Reachable = true

	start = time.Now()
	data, err := c.Data.Fetch(ctx, res.Query)
	res.FetchMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Records = len(data.Data)
	res.Filters = filterCounts(data.Filters)

	return res
}

func filterCounts(f models.FilterOptions) map[string]int {
	return map[string]int{
		string(query.EndYear):   len(f.EndYears),
		string(query.Topics):    len(f.Topics),
		string(query.Sectors):   len(f.Sectors),
		string(query.Regions):   len(f.Regions),
		string(query.Pestles):   len(f.Pestles),
		string(query.Sources):   len(f.Sources),
		string(query.Countries): len(f.Countries),
	}
}

// Package report persists benchmark timings and renders them for reading.
//
// Results are written as a single-row CSV keyed "<scenario>_<query>" and
// rendered as a query-by-scenario comparison table with per-scenario totals,
// followed by speedup figures against the CSV uncached baseline.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Save writes all timings to path as a single-row CSV. Columns are ordered
// scenario-major so related measurements sit together. The parent directory
// is created if needed.
func Save(path string, results map[string]float64, scenarios, queries []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = f.Close() }()

	header := make([]string, 0, len(scenarios)*len(queries))
	row := make([]string, 0, len(scenarios)*len(queries))
	for _, scenario := range scenarios {
		for _, query := range queries {
			key := scenario + "_" + query
			header = append(header, key)
			row = append(row, strconv.FormatFloat(results[key], 'f', -1, 64))
		}
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush results: %w", err)
	}

	return f.Sync()
}

// WriteComparison renders the query-by-scenario timing table with a TOTAL
// footer summing each scenario.
func WriteComparison(w io.Writer, results map[string]float64, scenarios, queries []string) {
	fmt.Fprintf(w, "\nPERFORMANCE COMPARISON (seconds)\n")

	table := tablewriter.NewWriter(w)

	header := make([]string, 0, len(scenarios)+1)
	header = append(header, "query")
	header = append(header, scenarios...)
	table.SetHeader(header)

	for _, query := range queries {
		row := make([]string, 0, len(scenarios)+1)
		row = append(row, query)
		for _, scenario := range scenarios {
			row = append(row, fmt.Sprintf("%.3f", results[scenario+"_"+query]))
		}
		table.Append(row)
	}

	footer := make([]string, 0, len(scenarios)+1)
	footer = append(footer, "TOTAL")
	for _, scenario := range scenarios {
		footer = append(footer, fmt.Sprintf("%.3f", scenarioTotal(results, scenario, queries)))
	}
	table.SetFooter(footer)

	table.Render()
}

// WriteInsights prints speedup ratios against the CSV uncached baseline.
// A ratio is skipped when its denominator is not positive, which happens
// when a scenario was too fast to measure or did not run.
func WriteInsights(w io.Writer, results map[string]float64, queries []string) {
	baseline := scenarioTotal(results, "csv_uncached", queries)

	fmt.Fprintf(w, "\nINSIGHTS\n")

	if cached := scenarioTotal(results, "csv_cached", queries); cached > 0 {
		fmt.Fprintf(w, "  CSV caching speedup: %.1fx faster\n", baseline/cached)
	}
	if parquet := scenarioTotal(results, "parquet_uncached", queries); parquet > 0 {
		fmt.Fprintf(w, "  Parquet speedup: %.1fx faster than CSV\n", baseline/parquet)
	}
	if best := scenarioTotal(results, "parquet_cached", queries); best > 0 {
		fmt.Fprintf(w, "  Best case (parquet + cache): %.1fx faster than baseline\n", baseline/best)
	}
}

// scenarioTotal sums a scenario's timings across the query catalog
func scenarioTotal(results map[string]float64, scenario string, queries []string) float64 {
	total := 0.0
	for _, query := range queries {
		total += results[scenario+"_"+query]
	}
	return total
}

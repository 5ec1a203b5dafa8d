package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

var (
	testScenarios = []string{"csv_uncached", "csv_cached", "parquet_uncached", "parquet_cached"}
	testQueries   = []string{
		"avg_price_4bed_by_year",
		"avg_price_3bed_3bath_by_year",
		"avg_price_luxury_homes",
		"avg_price_by_view_rating",
	}
)

func fullResults() map[string]float64 {
	results := make(map[string]float64)
	value := 0.1
	for _, scenario := range testScenarios {
		for _, query := range testQueries {
			results[scenario+"_"+query] = value
			value += 0.1
		}
	}
	return results
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "benchmarks.csv")
	results := fullResults()

	if err := Save(path, results, testScenarios, testQueries); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open saved report: %v", err)
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse saved report: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d CSV rows, want header + one data row", len(records))
	}
	if len(records[0]) != 16 {
		t.Fatalf("got %d columns, want 16", len(records[0]))
	}

	// Columns are scenario-major
	if records[0][0] != "csv_uncached_avg_price_4bed_by_year" {
		t.Errorf("first column: got %q", records[0][0])
	}
	if records[0][4] != "csv_cached_avg_price_4bed_by_year" {
		t.Errorf("fifth column: got %q", records[0][4])
	}

	for i, key := range records[0] {
		got, err := strconv.ParseFloat(records[1][i], 64)
		if err != nil {
			t.Fatalf("column %s: value %q is not numeric", key, records[1][i])
		}
		if got != results[key] {
			t.Errorf("column %s: got %v, want %v", key, got, results[key])
		}
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deeply", "nested", "out.csv")
	if err := Save(path, fullResults(), testScenarios, testQueries); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("report file missing: %v", err)
	}
}

func TestWriteComparison(t *testing.T) {
	var buf bytes.Buffer
	WriteComparison(&buf, fullResults(), testScenarios, testQueries)
	out := buf.String()

	for _, query := range testQueries {
		if !strings.Contains(out, query) {
			t.Errorf("comparison table missing query %s", query)
		}
	}
	for _, scenario := range testScenarios {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(scenario)) {
			t.Errorf("comparison table missing scenario %s", scenario)
		}
	}
	if !strings.Contains(out, "TOTAL") {
		t.Error("comparison table missing TOTAL footer")
	}

	// csv_uncached total: 0.1+0.2+0.3+0.4 = 1.0
	if !strings.Contains(out, "1.000") {
		t.Errorf("expected csv_uncached total 1.000 in output:\n%s", out)
	}
}

func TestWriteInsights(t *testing.T) {
	results := map[string]float64{}
	for _, query := range testQueries {
		results["csv_uncached_"+query] = 1.0
		results["csv_cached_"+query] = 0.5
		results["parquet_uncached_"+query] = 0.25
		results["parquet_cached_"+query] = 0.125
	}

	var buf bytes.Buffer
	WriteInsights(&buf, results, testQueries)
	out := buf.String()

	if !strings.Contains(out, "2.0x") {
		t.Errorf("expected caching speedup 2.0x in output:\n%s", out)
	}
	if !strings.Contains(out, "4.0x") {
		t.Errorf("expected parquet speedup 4.0x in output:\n%s", out)
	}
	if !strings.Contains(out, "8.0x") {
		t.Errorf("expected best case speedup 8.0x in output:\n%s", out)
	}
}

func TestWriteInsightsSkipsZeroDenominators(t *testing.T) {
	results := map[string]float64{}
	for _, query := range testQueries {
		results["csv_uncached_"+query] = 1.0
	}

	var buf bytes.Buffer
	WriteInsights(&buf, results, testQueries)
	out := buf.String()

	if strings.Contains(out, "x faster") {
		t.Errorf("speedup printed with zero denominators:\n%s", out)
	}
}

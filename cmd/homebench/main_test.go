package main

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/Geo222222/HomeSalesAnalysisSparkSQL/bench"
	"github.com/Geo222222/HomeSalesAnalysisSparkSQL/locate"
)

const fixtureCSV = `id,date_built,price,bedrooms,bathrooms,floors,sqft_living,view
h1,2015,450000,4,2,1,1800,10
h2,2016,320000,3,3,2,2100,5
h3,2015,600000,3,3,2,2600,80
h4,2017,180000,2,1,1,900,0
h5,2016,400000,4,3,2,2400,15
`

// chdir stands in for t.Chdir, which needs Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("chdir back: %v", err)
		}
	})
}

func TestRunEndToEnd(t *testing.T) {
	chdir(t, t.TempDir())

	dataPath := filepath.Join(t.TempDir(), "home_sales_revised.csv")
	if err := os.WriteFile(dataPath, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	t.Setenv(locate.EnvVar, dataPath)

	if code := run(); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}

	// Results file holds one row with the full 4x4 timing matrix
	f, err := os.Open(filepath.Join("reports", "benchmarks.csv"))
	if err != nil {
		t.Fatalf("results file missing: %v", err)
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse results: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d CSV rows, want header + one data row", len(records))
	}
	if len(records[0]) != 16 {
		t.Fatalf("got %d columns, want 16", len(records[0]))
	}

	seen := make(map[string]bool)
	for i, key := range records[0] {
		seen[key] = true
		value, err := strconv.ParseFloat(records[1][i], 64)
		if err != nil {
			t.Errorf("column %s: value %q is not numeric", key, records[1][i])
		}
		if value < 0 {
			t.Errorf("column %s: negative timing %v", key, value)
		}
	}
	for _, scenario := range bench.ScenarioNames() {
		for _, query := range bench.QueryNames() {
			if !seen[scenario+"_"+query] {
				t.Errorf("results missing column %s_%s", scenario, query)
			}
		}
	}

	// The materialized parquet directory stays on disk by default
	if info, err := os.Stat(bench.ParquetDir); err != nil || !info.IsDir() {
		t.Errorf("parquet cache missing after run: %v", err)
	}
}

func TestRunCleanFlagRemovesParquetDir(t *testing.T) {
	chdir(t, t.TempDir())

	dataPath := filepath.Join(t.TempDir(), "home_sales_revised.csv")
	if err := os.WriteFile(dataPath, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	t.Setenv(locate.EnvVar, dataPath)

	*cleanFlag = true
	defer func() { *cleanFlag = false }()

	if code := run(); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
	if _, err := os.Stat(bench.ParquetDir); !os.IsNotExist(err) {
		t.Errorf("parquet cache not removed with -clean: %v", err)
	}
}

func TestRunFailsWithoutDataset(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(locate.EnvVar, filepath.Join(t.TempDir(), "missing.csv"))

	// No local candidates and the download fails, so every strategy is
	// exhausted
	original := fetchDataset
	fetchDataset = func(url string) (string, error) {
		return "", errors.New("network unavailable")
	}
	defer func() { fetchDataset = original }()

	if code := run(); code == 0 {
		t.Error("run() succeeded with a missing dataset")
	}
}

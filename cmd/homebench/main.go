package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Geo222222/HomeSalesAnalysisSparkSQL/bench"
	"github.com/Geo222222/HomeSalesAnalysisSparkSQL/engine"
	"github.com/Geo222222/HomeSalesAnalysisSparkSQL/locate"
	"github.com/Geo222222/HomeSalesAnalysisSparkSQL/report"
)

var (
	outputFlag   = flag.String("o", "reports/benchmarks.csv", "Results file path")
	adaptiveFlag = flag.Bool("adaptive", true, "Reorder conjunctive WHERE predicates, equality first")
	coalesceFlag = flag.Bool("coalesce", true, "Write one parquet part file per partition")
	cleanFlag    = flag.Bool("clean", false, "Remove the materialized parquet directory after the run")
)

// fetchDataset downloads the dataset when no local copy exists
var fetchDataset locate.Fetcher = locate.FetchRemote

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Benchmarks home-sales query latency across CSV/parquet and cached/uncached storage.\n\n")
		fmt.Fprintf(os.Stderr, "The dataset is located via the %s environment variable, conventional\n", locate.EnvVar)
		fmt.Fprintf(os.Stderr, "local paths, or a download from the public source URL, in that order.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	os.Exit(run())
}

func run() int {
	fmt.Println("HOME SALES QUERY BENCHMARK")
	fmt.Println("==========================")

	dataPath, err := locate.FindWith(os.Stdout, fetchDataset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	session := engine.NewSession(engine.Options{
		AdaptiveExecution:  *adaptiveFlag,
		CoalescePartitions: *coalesceFlag,
	})
	defer cleanup(session, *cleanFlag)

	if err := session.CreateOrReplaceView(bench.TableName, engine.NewCSVSource(dataPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering view: %v\n", err)
		return 1
	}

	rows, err := session.Collect("SELECT COUNT(*) AS n FROM home_sales")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading dataset: %v\n", err)
		fmt.Fprintf(os.Stderr, "Please check that %s is a valid CSV file with a header row.\n", dataPath)
		return 1
	}
	if len(rows) == 1 {
		fmt.Printf("Loaded home_sales: %v rows\n", rows[0]["n"])
	}

	results, err := bench.RunAll(session, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running benchmark: %v\n", err)
		return 1
	}

	scenarios := bench.ScenarioNames()
	queries := bench.QueryNames()

	if err := report.Save(*outputFlag, results, scenarios, queries); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving results: %v\n", err)
		return 1
	}
	fmt.Printf("\nResults saved to %s\n", *outputFlag)

	report.WriteComparison(os.Stdout, results, scenarios, queries)
	report.WriteInsights(os.Stdout, results, queries)

	fmt.Println("\nBenchmark complete")
	return 0
}

// cleanup tears down the session. The materialized parquet directory is an
// intermediate artifact that is overwritten on each run, so it stays on disk
// unless -clean was given. Errors are ignored: cleanup must not mask a
// benchmark result.
func cleanup(session *engine.Session, clean bool) {
	_ = session.Uncache(bench.TableName)
	session.Stop()
	if clean {
		_ = os.RemoveAll(bench.ParquetDir)
	}
}

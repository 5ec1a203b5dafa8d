// Package bench runs the home-sales query catalog across storage scenarios
// and records per-query wall-clock timings.
//
// Four scenarios are measured: CSV uncached, CSV cached, parquet uncached,
// and parquet cached. Each scenario runs the same four analytical queries;
// timings are keyed "<scenario>_<query>" so a single flat map captures the
// whole matrix.
package bench

import (
	"fmt"
	"io"
	"time"
)

const (
	// TableName is the view every catalog query reads from
	TableName = "home_sales"
	// ParquetDir is where the materialized parquet copy is written
	ParquetDir = "_parquet_cache/home_sales_partitioned"
	// PartitionColumn partitions the parquet copy by construction year
	PartitionColumn = "date_built"
)

// countQuery forces a full scan after caching so the cache is actually
// populated before timed queries run.
const countQuery = "SELECT COUNT(*) FROM home_sales"

// Query is a named catalog entry
type Query struct {
	Name string
	SQL  string
}

// Catalog returns the analytical queries in benchmark order
func Catalog() []Query {
	return []Query{
		{
			Name: "avg_price_4bed_by_year",
			SQL: `SELECT date_built, ROUND(AVG(price), 2) AS avg_price
			      FROM home_sales
			      WHERE bedrooms = 4
			      GROUP BY date_built
			      ORDER BY date_built`,
		},
		{
			Name: "avg_price_3bed_3bath_by_year",
			SQL: `SELECT date_built, ROUND(AVG(price), 2) AS avg_price
			      FROM home_sales
			      WHERE bedrooms = 3 AND bathrooms = 3
			      GROUP BY date_built
			      ORDER BY date_built`,
		},
		{
			Name: "avg_price_luxury_homes",
			SQL: `SELECT date_built, ROUND(AVG(price), 2) AS avg_price
			      FROM home_sales
			      WHERE bedrooms = 3 AND bathrooms = 3 AND floors = 2 AND sqft_living >= 2000
			      GROUP BY date_built
			      ORDER BY date_built`,
		},
		{
			Name: "avg_price_by_view_rating",
			SQL: `SELECT view, ROUND(AVG(price), 2) AS avg_price
			      FROM home_sales
			      WHERE price >= 350000
			      GROUP BY view
			      ORDER BY view DESC`,
		},
	}
}

// ScenarioNames returns the scenario identifiers in benchmark order
func ScenarioNames() []string {
	return []string{"csv_uncached", "csv_cached", "parquet_uncached", "parquet_cached"}
}

// QueryNames returns the catalog query names in benchmark order
func QueryNames() []string {
	catalog := Catalog()
	names := make([]string, len(catalog))
	for i, q := range catalog {
		names[i] = q.Name
	}
	return names
}

// Engine is the query surface the benchmark drives. It matches the session
// API so a stub can stand in for tests.
type Engine interface {
	Collect(sql string) ([]map[string]interface{}, error)
	Cache(table string) error
	Uncache(table string) error
	Materialize(table, dir, partitionBy string) error
}

// Scenario pairs a name with the untimed setup that prepares its storage
type Scenario struct {
	Name  string
	Setup func(Engine) error
}

// Run executes the catalog under one scenario and returns its timings.
// Setup runs before the clock starts; only query execution is measured.
func Run(e Engine, s Scenario, w io.Writer) (map[string]float64, error) {
	fmt.Fprintf(w, "\n=== Scenario: %s ===\n", s.Name)

	if s.Setup != nil {
		if err := s.Setup(e); err != nil {
			return nil, fmt.Errorf("scenario %s setup: %w", s.Name, err)
		}
	}

	results := make(map[string]float64)
	for _, q := range Catalog() {
		fmt.Fprintf(w, "Running %s...\n", q.Name)

		start := time.Now()
		if _, err := e.Collect(q.SQL); err != nil {
			return nil, fmt.Errorf("scenario %s query %s: %w", s.Name, q.Name, err)
		}
		elapsed := time.Since(start).Seconds()

		results[s.Name+"_"+q.Name] = elapsed
		fmt.Fprintf(w, "  %.3f seconds\n", elapsed)
	}

	return results, nil
}

// RunAll runs all four scenarios in their fixed order and merges the
// timings. The cache is explicitly dropped between the CSV and parquet
// scenarios so parquet_uncached measures cold storage reads.
func RunAll(e Engine, w io.Writer) (map[string]float64, error) {
	scenarios := []Scenario{
		{Name: "csv_uncached"},
		{
			Name: "csv_cached",
			Setup: func(e Engine) error {
				if err := e.Cache(TableName); err != nil {
					return err
				}
				_, err := e.Collect(countQuery)
				return err
			},
		},
		{
			Name: "parquet_uncached",
			Setup: func(e Engine) error {
				return e.Materialize(TableName, ParquetDir, PartitionColumn)
			},
		},
		{
			Name: "parquet_cached",
			Setup: func(e Engine) error {
				if err := e.Materialize(TableName, ParquetDir, PartitionColumn); err != nil {
					return err
				}
				if err := e.Cache(TableName); err != nil {
					return err
				}
				_, err := e.Collect(countQuery)
				return err
			},
		},
	}

	all := make(map[string]float64)
	for i, s := range scenarios {
		// Drop the CSV cache before switching to parquet storage
		if i == 2 {
			if err := e.Uncache(TableName); err != nil {
				return nil, fmt.Errorf("failed to uncache %s: %w", TableName, err)
			}
		}

		results, err := Run(e, s, w)
		if err != nil {
			return nil, err
		}
		for key, value := range results {
			all[key] = value
		}
	}

	return all, nil
}

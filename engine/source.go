package engine

import (
	"fmt"

	"github.com/Geo222222/HomeSalesAnalysisSparkSQL/reader"
)

// DataSource loads the rows backing a registered view.
//
// Load is called once per query for uncached views, so the cost of hitting
// the underlying storage shows up in every measurement until the view is
// pinned with Cache.
type DataSource interface {
	// Load reads all rows from the backing storage
	Load() ([]map[string]interface{}, error)
	// Describe returns a short human-readable description of the source
	Describe() string
}

// csvSource reads rows from a single CSV file with type inference
type csvSource struct {
	path string
}

// NewCSVSource creates a data source backed by a CSV file
func NewCSVSource(path string) DataSource {
	return &csvSource{path: path}
}

func (s *csvSource) Load() ([]map[string]interface{}, error) {
	rows, err := reader.ReadCSV(s.path)
	if err != nil {
		return nil, fmt.Errorf("csv source %s: %w", s.path, err)
	}
	return rows, nil
}

func (s *csvSource) Describe() string {
	return "csv:" + s.path
}

// parquetSource reads rows from a partitioned parquet directory
type parquetSource struct {
	dir string
}

// NewParquetSource creates a data source backed by a partitioned parquet
// directory written with Materialize.
func NewParquetSource(dir string) DataSource {
	return &parquetSource{dir: dir}
}

func (s *parquetSource) Load() ([]map[string]interface{}, error) {
	rows, err := reader.ReadPartitioned(s.dir)
	if err != nil {
		return nil, fmt.Errorf("parquet source %s: %w", s.dir, err)
	}
	return rows, nil
}

func (s *parquetSource) Describe() string {
	return "parquet:" + s.dir
}

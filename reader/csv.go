// Package reader loads the benchmark dataset from CSV and parquet storage.
//
// CSV files are read with a header row and per-value type inference, so the
// same queries work against the dataset regardless of which format currently
// backs it. Parquet files are read with the parquet-go library and returned
// as rows in map form.
package reader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadCSV reads a comma-separated file with a header row into rows.
//
// Column types are inferred per value: int64 first, then float64, then bool,
// falling back to string. Empty fields become nil.
func ReadCSV(path string) ([]map[string]interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	r := csv.NewReader(file)
	r.ReuseRecord = false

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	rows := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		row := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = inferValue(record[i])
			} else {
				row[col] = nil
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// inferValue converts a raw text field to its most specific Go type
func inferValue(s string) interface{} {
	if s == "" {
		return nil
	}
	if intVal, err := strconv.ParseInt(s, 10, 64); err == nil {
		return intVal
	}
	if floatVal, err := strconv.ParseFloat(s, 64); err == nil {
		return floatVal
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

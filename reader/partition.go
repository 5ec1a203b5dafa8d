package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// maxPartFileRows is the chunk size for part files when partition
// coalescing is disabled.
const maxPartFileRows = 8192

// WritePartitioned writes rows as a partitioned parquet directory.
//
// The layout follows the <column>=<value> directory convention: one
// subdirectory per distinct value of the partition column, with the
// partition column itself dropped from the part files. The target directory
// is replaced on every call. When coalesce is true each partition is written
// as a single part file; otherwise rows are chunked into files of at most
// maxPartFileRows rows.
func WritePartitioned(rows []map[string]interface{}, dir, column string, coalesce bool) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear partition directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create partition directory: %w", err)
	}

	// One type per column across the whole relation, so every part file
	// shares a schema
	kinds, err := resolveColumnKinds(rows, column)
	if err != nil {
		return err
	}

	// Group rows by partition value, preserving first-seen order
	partitions := make(map[string][]map[string]interface{})
	var order []string
	for _, row := range rows {
		value, exists := row[column]
		if !exists {
			return fmt.Errorf("partition column %q not found in row", column)
		}
		key := formatPartitionValue(value)
		if _, seen := partitions[key]; !seen {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], row)
	}

	for _, key := range order {
		partDir := filepath.Join(dir, column+"="+key)
		if err := os.MkdirAll(partDir, 0o755); err != nil {
			return fmt.Errorf("failed to create partition %s: %w", key, err)
		}

		partRows := partitions[key]
		chunk := len(partRows)
		if !coalesce && chunk > maxPartFileRows {
			chunk = maxPartFileRows
		}

		for i, n := 0, 0; i < len(partRows); i, n = i+chunk, n+1 {
			end := i + chunk
			if end > len(partRows) {
				end = len(partRows)
			}
			path := filepath.Join(partDir, fmt.Sprintf("part-%05d.parquet", n))
			if err := writePartFile(path, partRows[i:end], column, kinds); err != nil {
				return fmt.Errorf("failed to write partition %s: %w", key, err)
			}
		}
	}

	return nil
}

// ReadPartitioned reads back a partitioned parquet directory.
//
// The partition column is reconstructed from the directory names and
// re-inferred with the same rules used for CSV input, so a numeric partition
// key round-trips as a number. A directory that exists but holds no part
// files is an empty relation, not an error.
func ReadPartitioned(dir string) ([]map[string]interface{}, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*", "*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("invalid partition pattern: %w", err)
	}
	if len(matches) == 0 {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return []map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("no parquet files found under %s", dir)
	}
	sort.Strings(matches)

	var allRows []map[string]interface{}
	for _, path := range matches {
		column, value, err := parsePartitionDir(filepath.Base(filepath.Dir(path)))
		if err != nil {
			return nil, err
		}

		r, err := NewReader(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		rows, readErr := r.ReadAll()
		closeErr := r.Close()

		if readErr != nil {
			return nil, fmt.Errorf("failed to read rows from %s: %w", path, readErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("failed to close %s: %w", path, closeErr)
		}

		for i := range rows {
			rows[i][column] = value
		}

		allRows = append(allRows, rows...)
	}

	return allRows, nil
}

// parsePartitionDir splits a "<column>=<value>" directory name
func parsePartitionDir(name string) (string, interface{}, error) {
	column, raw, found := strings.Cut(name, "=")
	if !found || column == "" {
		return "", nil, fmt.Errorf("malformed partition directory %q", name)
	}
	return column, inferValue(raw), nil
}

// formatPartitionValue renders a partition value as a directory name segment
func formatPartitionValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "__NULL__"
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// columnKind is the resolved storage type of a column
type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindBool
	kindString
)

func (k columnKind) String() string {
	switch k {
	case kindInt:
		return "int64"
	case kindFloat:
		return "float64"
	case kindBool:
		return "bool"
	default:
		return "string"
	}
}

// resolveColumnKinds derives one kind per column across all rows.
//
// Type inference on delimited input is per-value, so a numeric column can
// hold both int64 and float64; such columns widen to float64. Columns that
// are nil throughout are written as optional strings. Any other type mix is
// an error.
func resolveColumnKinds(rows []map[string]interface{}, exclude string) (map[string]columnKind, error) {
	kinds := make(map[string]columnKind)
	seen := make(map[string]bool)

	for _, row := range rows {
		for col, val := range row {
			if col == exclude {
				continue
			}
			seen[col] = true
			if val == nil {
				continue
			}

			var k columnKind
			switch val.(type) {
			case int64:
				k = kindInt
			case float64:
				k = kindFloat
			case bool:
				k = kindBool
			case string:
				k = kindString
			default:
				return nil, fmt.Errorf("unsupported column type %T for %q", val, col)
			}

			existing, resolved := kinds[col]
			if !resolved {
				kinds[col] = k
				continue
			}
			if existing == k {
				continue
			}
			if (existing == kindInt && k == kindFloat) || (existing == kindFloat && k == kindInt) {
				kinds[col] = kindFloat
				continue
			}
			return nil, fmt.Errorf("mixed types in column %q: cannot store both %v and %T", col, existing, val)
		}
	}

	for col := range seen {
		if _, resolved := kinds[col]; !resolved {
			kinds[col] = kindString
		}
	}

	return kinds, nil
}

// writePartFile writes one parquet part file, dropping the partition column
// and widening int64 values to float64 where the column resolved to float.
func writePartFile(path string, rows []map[string]interface{}, exclude string, kinds map[string]columnKind) error {
	schema, err := schemaForKinds(kinds)
	if err != nil {
		return err
	}

	stripped := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out := make(map[string]interface{}, len(row)-1)
		for col, val := range row {
			if col == exclude {
				continue
			}
			if intVal, ok := val.(int64); ok && kinds[col] == kindFloat {
				val = float64(intVal)
			}
			out[col] = val
		}
		stripped[i] = out
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create part file: %w", err)
	}

	writer := parquet.NewGenericWriter[map[string]interface{}](f, schema)
	if _, err := writer.Write(stripped); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to close writer: %w", err)
	}

	return f.Close()
}

// schemaForKinds builds a parquet schema from resolved column kinds. All
// fields are optional so nil values round-trip as nulls.
func schemaForKinds(kinds map[string]columnKind) (*parquet.Schema, error) {
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no columns to write")
	}

	group := parquet.Group{}
	for col, k := range kinds {
		switch k {
		case kindInt:
			group[col] = parquet.Optional(parquet.Int(64))
		case kindFloat:
			group[col] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		case kindBool:
			group[col] = parquet.Optional(parquet.Leaf(parquet.BooleanType))
		case kindString:
			group[col] = parquet.Optional(parquet.String())
		}
	}

	return parquet.NewSchema("part", group), nil
}

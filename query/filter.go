package query

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// compare compares two values using the given operator
func compare(left interface{}, operator TokenType, right interface{}) (bool, error) {
	// Handle nil values
	if left == nil || right == nil {
		if operator == TokenEqual {
			return left == right, nil
		}
		if operator == TokenNotEqual {
			return left != right, nil
		}
		return false, nil
	}

	// Try numeric comparison
	leftNum, leftIsNum := toFloat64(left)
	rightNum, rightIsNum := toFloat64(right)

	if leftIsNum && rightIsNum {
		return compareNumbers(leftNum, operator, rightNum), nil
	}

	// Try string comparison
	leftStr, leftIsStr := toString(left)
	rightStr, rightIsStr := toString(right)

	if leftIsStr && rightIsStr {
		return compareStrings(leftStr, operator, rightStr), nil
	}

	// Try boolean comparison
	leftBool, leftIsBool := toBool(left)
	rightBool, rightIsBool := toBool(right)

	if leftIsBool && rightIsBool {
		return compareBools(leftBool, operator, rightBool), nil
	}

	return false, fmt.Errorf("cannot compare %T with %T", left, right)
}

// toFloat64 converts a value to float64 if possible
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// toString converts a value to string if possible
func toString(v interface{}) (string, bool) {
	if str, ok := v.(string); ok {
		return str, true
	}
	return "", false
}

// toBool converts a value to bool if possible
func toBool(v interface{}) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	return false, false
}

// compareNumbers compares two numbers
func compareNumbers(left float64, operator TokenType, right float64) bool {
	const epsilon = 1e-9
	switch operator {
	case TokenEqual:
		// Relative epsilon for large numbers, absolute for small
		diff := math.Abs(left - right)
		threshold := epsilon * math.Max(1.0, math.Max(math.Abs(left), math.Abs(right)))
		return diff < threshold
	case TokenNotEqual:
		diff := math.Abs(left - right)
		threshold := epsilon * math.Max(1.0, math.Max(math.Abs(left), math.Abs(right)))
		return diff >= threshold
	case TokenLess:
		return left < right
	case TokenGreater:
		return left > right
	case TokenLessEqual:
		return left <= right
	case TokenGreaterEqual:
		return left >= right
	default:
		return false
	}
}

// compareStrings compares two strings (case-sensitive)
func compareStrings(left string, operator TokenType, right string) bool {
	switch operator {
	case TokenEqual:
		return left == right
	case TokenNotEqual:
		return left != right
	case TokenLess:
		return left < right
	case TokenGreater:
		return left > right
	case TokenLessEqual:
		return left <= right
	case TokenGreaterEqual:
		return left >= right
	default:
		return false
	}
}

// compareBools compares two booleans
func compareBools(left bool, operator TokenType, right bool) bool {
	switch operator {
	case TokenEqual:
		return left == right
	case TokenNotEqual:
		return left != right
	default:
		return false
	}
}

// ApplyFilter applies a filter to rows
func ApplyFilter(rows []map[string]interface{}, filter Expression) ([]map[string]interface{}, error) {
	if filter == nil {
		return rows, nil
	}

	filtered := make([]map[string]interface{}, 0)
	for _, row := range rows {
		match, err := filter.Evaluate(row)
		if err != nil {
			return nil, err
		}
		if match {
			filtered = append(filtered, row)
		}
	}

	return filtered, nil
}

// GetColumnNames returns all unique column names from rows
func GetColumnNames(rows []map[string]interface{}) []string {
	if len(rows) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	columns := make([]string, 0)

	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}

	return columns
}

// ApplySelectList applies column projection to rows based on the SELECT list
func ApplySelectList(rows []map[string]interface{}, selectList []SelectItem) ([]map[string]interface{}, error) {
	if len(rows) == 0 {
		return rows, nil
	}

	if len(selectList) == 0 {
		return rows, nil
	}

	// Check if it's just SELECT *
	if len(selectList) == 1 {
		if colRef, ok := selectList[0].Expr.(*ColumnRef); ok && colRef.Column == "*" {
			return rows, nil
		}
	}

	projected := make([]map[string]interface{}, 0, len(rows))

	for _, row := range rows {
		newRow := make(map[string]interface{})

		for _, item := range selectList {
			// SELECT * in a mixed select list expands all columns
			if colRef, ok := item.Expr.(*ColumnRef); ok && colRef.Column == "*" {
				for col, val := range row {
					newRow[col] = val
				}
				continue
			}

			value, err := item.Expr.EvaluateSelect(row)
			if err != nil {
				return nil, err
			}

			newRow[resultColumnName(item, len(newRow))] = value
		}

		projected = append(projected, newRow)
	}

	return projected, nil
}

// resultColumnName determines the output column name for a SELECT item
func resultColumnName(item SelectItem, position int) string {
	if item.Alias != "" {
		return item.Alias
	}

	switch expr := item.Expr.(type) {
	case *ColumnRef:
		return expr.Column
	case *AggregateExpr:
		return strings.ToLower(expr.Function)
	case *FunctionCall:
		return strings.ToLower(expr.Name)
	default:
		return fmt.Sprintf("col_%d", position)
	}
}

// ApplyOrderBy sorts rows based on ORDER BY clause
func ApplyOrderBy(rows []map[string]interface{}, orderBy []OrderByItem) ([]map[string]interface{}, error) {
	if len(rows) == 0 || len(orderBy) == 0 {
		return rows, nil
	}

	// Copy to avoid modifying the original slice
	sorted := make([]map[string]interface{}, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		for _, item := range orderBy {
			valI, existsI := sorted[i][item.Column]
			valJ, existsJ := sorted[j][item.Column]

			// Missing columns sort as NULL, which sorts first
			if !existsI && !existsJ {
				continue
			}
			if !existsI {
				return !item.Desc
			}
			if !existsJ {
				return item.Desc
			}

			cmp := compareValues(valI, valJ)
			if cmp != 0 {
				if item.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})

	return sorted, nil
}

// compareValues compares two values and returns -1, 0, or +1
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)
	if aIsNum && bIsNum {
		if aNum < bNum {
			return -1
		}
		if aNum > bNum {
			return 1
		}
		return 0
	}

	aStr, aIsStr := toString(a)
	bStr, bIsStr := toString(b)
	if aIsStr && bIsStr {
		if aStr < bStr {
			return -1
		}
		if aStr > bStr {
			return 1
		}
		return 0
	}

	aBool, aIsBool := toBool(a)
	bBool, bIsBool := toBool(b)
	if aIsBool && bIsBool {
		if !aBool && bBool {
			return -1
		}
		if aBool && !bBool {
			return 1
		}
		return 0
	}

	// Type mismatch or unsupported types - treat as equal
	return 0
}

// ApplyLimitOffset applies LIMIT and OFFSET to rows
func ApplyLimitOffset(rows []map[string]interface{}, limit *int64, offset *int64) ([]map[string]interface{}, error) {
	if len(rows) == 0 {
		return rows, nil
	}

	start := int64(0)
	if offset != nil && *offset > 0 {
		start = *offset
	}

	if start >= int64(len(rows)) {
		return []map[string]interface{}{}, nil
	}

	end := int64(len(rows))
	if limit != nil {
		if *limit == 0 {
			return []map[string]interface{}{}, nil
		}
		if *limit > 0 {
			end = start + *limit
			if end > int64(len(rows)) {
				end = int64(len(rows))
			}
		}
	}

	return rows[start:end], nil
}

package query

import (
	"fmt"
	"strings"
)

// Group represents a group of rows for aggregation
type Group struct {
	Key    string                   // Hash key for the group
	Values map[string]interface{}   // Column values for GROUP BY columns
	Rows   []map[string]interface{} // All rows in the group
}

// ApplyGroupByAndAggregate applies GROUP BY and aggregation to rows
func ApplyGroupByAndAggregate(rows []map[string]interface{}, groupByColumns []string, selectList []SelectItem) ([]map[string]interface{}, error) {
	if err := validateSelectListWithGroupBy(selectList, groupByColumns); err != nil {
		return nil, err
	}

	// If no GROUP BY, treat all rows as one group. This returns one aggregate
	// row even when input is empty (e.g. COUNT(*) = 0).
	if len(groupByColumns) == 0 {
		return aggregateWithoutGroupBy(rows, selectList)
	}

	// For GROUP BY queries, empty input returns empty output
	if len(rows) == 0 {
		return rows, nil
	}

	// Hash-based grouping
	groups := make(map[string]*Group)
	order := make([]string, 0)

	for _, row := range rows {
		key, groupValues, err := computeGroupKey(row, groupByColumns)
		if err != nil {
			return nil, err
		}

		if group, exists := groups[key]; exists {
			group.Rows = append(group.Rows, row)
		} else {
			groups[key] = &Group{
				Key:    key,
				Values: groupValues,
				Rows:   []map[string]interface{}{row},
			}
			order = append(order, key)
		}
	}

	// Compute aggregates for each group, preserving first-seen order
	result := make([]map[string]interface{}, 0, len(groups))
	for _, key := range order {
		aggregatedRow, err := computeAggregates(groups[key], selectList)
		if err != nil {
			return nil, err
		}
		result = append(result, aggregatedRow)
	}

	return result, nil
}

// computeGroupKey computes a hash key for a group based on GROUP BY columns
func computeGroupKey(row map[string]interface{}, groupByColumns []string) (string, map[string]interface{}, error) {
	var keyBuilder strings.Builder
	groupValues := make(map[string]interface{})

	for i, col := range groupByColumns {
		value, exists := row[col]
		if !exists {
			return "", nil, fmt.Errorf("GROUP BY column %q not found in row", col)
		}

		if i > 0 {
			keyBuilder.WriteString("\x00||\x00") // Unlikely separator to avoid collisions
		}
		// Include column name in key to prevent cross-column collisions
		keyBuilder.WriteString(col)
		keyBuilder.WriteString("\x00:\x00")
		keyBuilder.WriteString(fmt.Sprintf("%#v", value)) // %#v for better type differentiation
		groupValues[col] = value
	}

	return keyBuilder.String(), groupValues, nil
}

// aggregateWithoutGroupBy handles aggregation without GROUP BY (all rows as one group)
func aggregateWithoutGroupBy(rows []map[string]interface{}, selectList []SelectItem) ([]map[string]interface{}, error) {
	group := &Group{
		Key:    "",
		Values: make(map[string]interface{}),
		Rows:   rows,
	}

	aggregatedRow, err := computeAggregates(group, selectList)
	if err != nil {
		return nil, err
	}

	return []map[string]interface{}{aggregatedRow}, nil
}

// computeAggregates computes the SELECT list for a group
func computeAggregates(group *Group, selectList []SelectItem) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	for _, item := range selectList {
		value, err := evaluateGroupExpression(item.Expr, group)
		if err != nil {
			return nil, err
		}

		result[resultColumnName(item, len(result))] = value
	}

	return result, nil
}

// evaluateGroupExpression evaluates a SELECT expression over a group of rows.
// Aggregates collapse the group; scalar functions may wrap aggregates
// (e.g. ROUND(AVG(price), 2)), so evaluation recurses through arguments.
func evaluateGroupExpression(expr SelectExpression, group *Group) (interface{}, error) {
	switch e := expr.(type) {
	case *AggregateExpr:
		return evaluateAggregate(e, group.Rows)
	case *ColumnRef:
		// Non-aggregate columns take the value from the first row in the
		// group; validation guarantees they are GROUP BY columns.
		if len(group.Rows) == 0 {
			return nil, fmt.Errorf("column %q not found in empty group", e.Column)
		}
		value, exists := group.Rows[0][e.Column]
		if !exists {
			return nil, fmt.Errorf("column %q not found", e.Column)
		}
		return value, nil
	case *LiteralExpr:
		return e.Value, nil
	case *FunctionCall:
		registry := GetGlobalRegistry()
		fn, exists := registry.Get(e.Name)
		if !exists {
			return nil, fmt.Errorf("unknown function: %s", e.Name)
		}

		args := make([]interface{}, len(e.Args))
		for i, arg := range e.Args {
			val, err := evaluateGroupExpression(arg, group)
			if err != nil {
				return nil, fmt.Errorf("function %s: argument %d: %w", e.Name, i+1, err)
			}
			args[i] = val
		}

		if err := checkArity(fn, len(args)); err != nil {
			return nil, err
		}

		return fn.Evaluate(args)
	default:
		return nil, fmt.Errorf("unsupported expression in SELECT with GROUP BY")
	}
}

// evaluateAggregate evaluates an aggregate function over a set of rows
func evaluateAggregate(aggExpr *AggregateExpr, rows []map[string]interface{}) (interface{}, error) {
	switch aggExpr.Function {
	case "COUNT":
		return evaluateCount(aggExpr, rows)
	case "SUM":
		return evaluateSum(aggExpr, rows)
	case "AVG":
		return evaluateAvg(aggExpr, rows)
	case "MIN":
		return evaluateMin(aggExpr, rows)
	case "MAX":
		return evaluateMax(aggExpr, rows)
	default:
		return nil, fmt.Errorf("unknown aggregate function: %s", aggExpr.Function)
	}
}

// evaluateCount evaluates COUNT aggregate
func evaluateCount(aggExpr *AggregateExpr, rows []map[string]interface{}) (interface{}, error) {
	// COUNT(*) counts all rows
	if aggExpr.Arg == nil {
		return int64(len(rows)), nil
	}

	// COUNT(column) counts non-null values
	count := int64(0)
	for _, row := range rows {
		value, err := aggExpr.Arg.EvaluateSelect(row)
		if err != nil {
			// Skip rows where column doesn't exist or errors
			continue
		}
		if value != nil {
			count++
		}
	}

	return count, nil
}

// evaluateSum evaluates SUM aggregate
func evaluateSum(aggExpr *AggregateExpr, rows []map[string]interface{}) (interface{}, error) {
	if aggExpr.Arg == nil {
		return nil, fmt.Errorf("SUM requires an argument")
	}

	sum := 0.0
	hasValues := false

	for _, row := range rows {
		value, err := aggExpr.Arg.EvaluateSelect(row)
		if err != nil {
			continue
		}
		if value == nil {
			continue
		}

		num, err := valueToNumber(value)
		if err != nil {
			return nil, fmt.Errorf("SUM: %w", err)
		}

		sum += num
		hasValues = true
	}

	if !hasValues {
		return nil, nil // NULL if no values
	}

	return sum, nil
}

// evaluateAvg evaluates AVG aggregate
func evaluateAvg(aggExpr *AggregateExpr, rows []map[string]interface{}) (interface{}, error) {
	if aggExpr.Arg == nil {
		return nil, fmt.Errorf("AVG requires an argument")
	}

	sum := 0.0
	count := int64(0)

	for _, row := range rows {
		value, err := aggExpr.Arg.EvaluateSelect(row)
		if err != nil {
			continue
		}
		if value == nil {
			continue
		}

		num, err := valueToNumber(value)
		if err != nil {
			return nil, fmt.Errorf("AVG: %w", err)
		}

		sum += num
		count++
	}

	if count == 0 {
		return nil, nil // NULL if no values
	}

	return sum / float64(count), nil
}

// evaluateMin evaluates MIN aggregate
func evaluateMin(aggExpr *AggregateExpr, rows []map[string]interface{}) (interface{}, error) {
	if aggExpr.Arg == nil {
		return nil, fmt.Errorf("MIN requires an argument")
	}

	var min *float64

	for _, row := range rows {
		value, err := aggExpr.Arg.EvaluateSelect(row)
		if err != nil {
			continue
		}
		if value == nil {
			continue
		}

		num, err := valueToNumber(value)
		if err != nil {
			return nil, fmt.Errorf("MIN: %w", err)
		}

		if min == nil || num < *min {
			min = &num
		}
	}

	if min == nil {
		return nil, nil
	}

	return *min, nil
}

// evaluateMax evaluates MAX aggregate
func evaluateMax(aggExpr *AggregateExpr, rows []map[string]interface{}) (interface{}, error) {
	if aggExpr.Arg == nil {
		return nil, fmt.Errorf("MAX requires an argument")
	}

	var max *float64

	for _, row := range rows {
		value, err := aggExpr.Arg.EvaluateSelect(row)
		if err != nil {
			continue
		}
		if value == nil {
			continue
		}

		num, err := valueToNumber(value)
		if err != nil {
			return nil, fmt.Errorf("MAX: %w", err)
		}

		if max == nil || num > *max {
			max = &num
		}
	}

	if max == nil {
		return nil, nil
	}

	return *max, nil
}

// HasAggregateFunction checks if the SELECT list contains any aggregate
// functions, including aggregates nested in scalar function arguments.
func HasAggregateFunction(selectList []SelectItem) bool {
	for _, item := range selectList {
		if exprContainsAggregate(item.Expr) {
			return true
		}
	}
	return false
}

// exprContainsAggregate reports whether an expression contains an aggregate
func exprContainsAggregate(expr SelectExpression) bool {
	switch e := expr.(type) {
	case *AggregateExpr:
		return true
	case *FunctionCall:
		for _, arg := range e.Args {
			if exprContainsAggregate(arg) {
				return true
			}
		}
	}
	return false
}

// validateSelectListWithGroupBy validates that non-aggregate columns in SELECT are in GROUP BY
func validateSelectListWithGroupBy(selectList []SelectItem, groupByColumns []string) error {
	groupByMap := make(map[string]bool)
	for _, col := range groupByColumns {
		groupByMap[col] = true
	}

	hasAggregates := HasAggregateFunction(selectList)

	var check func(expr SelectExpression) error
	check = func(expr SelectExpression) error {
		switch e := expr.(type) {
		case *ColumnRef:
			// With aggregates but no GROUP BY, naked columns are not allowed
			if hasAggregates && len(groupByColumns) == 0 {
				return fmt.Errorf("column %q must appear in GROUP BY clause or be used in an aggregate function", e.Column)
			}
			if len(groupByColumns) > 0 && !groupByMap[e.Column] {
				return fmt.Errorf("column %q must appear in GROUP BY clause or be used in an aggregate function", e.Column)
			}
		case *FunctionCall:
			for _, arg := range e.Args {
				// Columns inside aggregate arguments are always valid
				if exprContainsAggregate(arg) {
					continue
				}
				if err := check(arg); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, item := range selectList {
		if _, ok := item.Expr.(*AggregateExpr); ok {
			continue
		}
		if err := check(item.Expr); err != nil {
			return err
		}
	}

	return nil
}

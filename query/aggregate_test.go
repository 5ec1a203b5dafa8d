package query

import (
	"math"
	"testing"
)

func TestAggregateCount(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		rows     []map[string]interface{}
		expected []map[string]interface{}
	}{
		{
			name:  "COUNT(*) without GROUP BY",
			query: "SELECT COUNT(*) FROM home_sales",
			rows: []map[string]interface{}{
				{"price": float64(100000)},
				{"price": float64(200000)},
				{"price": float64(300000)},
			},
			expected: []map[string]interface{}{
				{"count": int64(3)},
			},
		},
		{
			name:     "COUNT(*) over empty input",
			query:    "SELECT COUNT(*) FROM home_sales",
			rows:     []map[string]interface{}{},
			expected: []map[string]interface{}{
				{"count": int64(0)},
			},
		},
		{
			name:  "COUNT(column) skips nulls",
			query: "SELECT COUNT(view) FROM home_sales",
			rows: []map[string]interface{}{
				{"view": int64(10)},
				{"view": nil},
				{"view": int64(80)},
			},
			expected: []map[string]interface{}{
				{"count": int64(2)},
			},
		},
		{
			name:  "COUNT(*) with GROUP BY",
			query: "SELECT date_built, COUNT(*) FROM home_sales GROUP BY date_built",
			rows: []map[string]interface{}{
				{"date_built": int64(2015), "price": float64(100000)},
				{"date_built": int64(2016), "price": float64(200000)},
				{"date_built": int64(2015), "price": float64(300000)},
			},
			expected: []map[string]interface{}{
				{"date_built": int64(2015), "count": int64(2)},
				{"date_built": int64(2016), "count": int64(1)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			result, err := ApplyGroupByAndAggregate(tt.rows, q.GroupBy, q.SelectList)
			if err != nil {
				t.Fatalf("ApplyGroupByAndAggregate() error = %v", err)
			}

			if len(result) != len(tt.expected) {
				t.Fatalf("got %d rows, want %d", len(result), len(tt.expected))
			}
			for i, want := range tt.expected {
				for col, val := range want {
					if result[i][col] != val {
						t.Errorf("row %d column %s: got %v, want %v", i, col, result[i][col], val)
					}
				}
			}
		})
	}
}

func TestAggregateAvgMinMaxSum(t *testing.T) {
	rows := []map[string]interface{}{
		{"price": float64(100000)},
		{"price": float64(200000)},
		{"price": nil},
		{"price": float64(300000)},
	}

	q, err := Parse("SELECT AVG(price) AS a, MIN(price) AS lo, MAX(price) AS hi, SUM(price) AS s FROM home_sales")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	result, err := ApplyGroupByAndAggregate(rows, q.GroupBy, q.SelectList)
	if err != nil {
		t.Fatalf("ApplyGroupByAndAggregate() error = %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("got %d rows, want 1", len(result))
	}

	row := result[0]
	if row["a"] != float64(200000) {
		t.Errorf("AVG: got %v, want 200000", row["a"])
	}
	if row["lo"] != float64(100000) {
		t.Errorf("MIN: got %v, want 100000", row["lo"])
	}
	if row["hi"] != float64(300000) {
		t.Errorf("MAX: got %v, want 300000", row["hi"])
	}
	if row["s"] != float64(600000) {
		t.Errorf("SUM: got %v, want 600000", row["s"])
	}
}

func TestAggregateNullOnNoValues(t *testing.T) {
	rows := []map[string]interface{}{
		{"price": nil},
		{"price": nil},
	}

	q, err := Parse("SELECT AVG(price) AS a, SUM(price) AS s FROM home_sales")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	result, err := ApplyGroupByAndAggregate(rows, q.GroupBy, q.SelectList)
	if err != nil {
		t.Fatalf("ApplyGroupByAndAggregate() error = %v", err)
	}
	if result[0]["a"] != nil {
		t.Errorf("AVG over nulls: got %v, want nil", result[0]["a"])
	}
	if result[0]["s"] != nil {
		t.Errorf("SUM over nulls: got %v, want nil", result[0]["s"])
	}
}

func TestAggregateNestedInScalarFunction(t *testing.T) {
	rows := []map[string]interface{}{
		{"date_built": int64(2015), "price": float64(300000)},
		{"date_built": int64(2015), "price": float64(300005)},
		{"date_built": int64(2016), "price": float64(450000)},
	}

	q, err := Parse("SELECT date_built, ROUND(AVG(price), 2) AS avg_price FROM home_sales GROUP BY date_built ORDER BY date_built")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	result, err := ApplyGroupByAndAggregate(rows, q.GroupBy, q.SelectList)
	if err != nil {
		t.Fatalf("ApplyGroupByAndAggregate() error = %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("got %d rows, want 2", len(result))
	}

	avg, ok := result[0]["avg_price"].(float64)
	if !ok {
		t.Fatalf("got %T, want float64", result[0]["avg_price"])
	}
	if math.Abs(avg-300002.5) > 1e-9 {
		t.Errorf("got %v, want 300002.5", avg)
	}
	if result[1]["avg_price"] != float64(450000) {
		t.Errorf("got %v, want 450000", result[1]["avg_price"])
	}
}

func TestGroupByPreservesFirstSeenOrder(t *testing.T) {
	rows := []map[string]interface{}{
		{"date_built": int64(2017), "price": float64(1)},
		{"date_built": int64(2015), "price": float64(2)},
		{"date_built": int64(2017), "price": float64(3)},
		{"date_built": int64(2016), "price": float64(4)},
	}

	q, err := Parse("SELECT date_built, COUNT(*) FROM home_sales GROUP BY date_built")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	result, err := ApplyGroupByAndAggregate(rows, q.GroupBy, q.SelectList)
	if err != nil {
		t.Fatalf("ApplyGroupByAndAggregate() error = %v", err)
	}

	want := []int64{2017, 2015, 2016}
	if len(result) != len(want) {
		t.Fatalf("got %d groups, want %d", len(result), len(want))
	}
	for i, year := range want {
		if result[i]["date_built"] != year {
			t.Errorf("group %d: got %v, want %v", i, result[i]["date_built"], year)
		}
	}
}

func TestGroupByValidation(t *testing.T) {
	rows := []map[string]interface{}{
		{"date_built": int64(2015), "price": float64(1)},
	}

	tests := []struct {
		name  string
		query string
	}{
		{
			name:  "naked column not in GROUP BY",
			query: "SELECT price, COUNT(*) FROM home_sales GROUP BY date_built",
		},
		{
			name:  "naked column with aggregate but no GROUP BY",
			query: "SELECT price, COUNT(*) FROM home_sales",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if _, err := ApplyGroupByAndAggregate(rows, q.GroupBy, q.SelectList); err == nil {
				t.Errorf("expected validation error for %q", tt.query)
			}
		})
	}
}

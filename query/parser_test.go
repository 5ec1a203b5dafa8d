package query

import (
	"strings"
	"testing"
)

func TestParseBasicQuery(t *testing.T) {
	q, err := Parse("SELECT price FROM home_sales")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if q.TableName != "home_sales" {
		t.Errorf("got table %q, want %q", q.TableName, "home_sales")
	}
	if len(q.SelectList) != 1 {
		t.Fatalf("got %d select items, want 1", len(q.SelectList))
	}
	colRef, ok := q.SelectList[0].Expr.(*ColumnRef)
	if !ok || colRef.Column != "price" {
		t.Errorf("got select item %#v, want column ref 'price'", q.SelectList[0].Expr)
	}
}

func TestParseCatalogQueries(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantGroupBy []string
		wantOrderBy []OrderByItem
	}{
		{
			name: "avg price by year built",
			query: `SELECT date_built, ROUND(AVG(price), 2) AS avg_price
			        FROM home_sales WHERE bedrooms = 4
			        GROUP BY date_built ORDER BY date_built`,
			wantGroupBy: []string{"date_built"},
			wantOrderBy: []OrderByItem{{Column: "date_built", Desc: false}},
		},
		{
			name: "multi-predicate filter",
			query: `SELECT date_built, ROUND(AVG(price), 2) AS avg_price
			        FROM home_sales
			        WHERE bedrooms = 3 AND bathrooms = 3 AND floors = 2 AND sqft_living >= 2000
			        GROUP BY date_built ORDER BY date_built`,
			wantGroupBy: []string{"date_built"},
			wantOrderBy: []OrderByItem{{Column: "date_built", Desc: false}},
		},
		{
			name: "descending order",
			query: `SELECT view, ROUND(AVG(price), 2) AS avg_price
			        FROM home_sales WHERE price >= 350000
			        GROUP BY view ORDER BY view DESC`,
			wantGroupBy: []string{"view"},
			wantOrderBy: []OrderByItem{{Column: "view", Desc: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			if len(q.GroupBy) != len(tt.wantGroupBy) {
				t.Fatalf("got %d GROUP BY columns, want %d", len(q.GroupBy), len(tt.wantGroupBy))
			}
			for i, col := range tt.wantGroupBy {
				if q.GroupBy[i] != col {
					t.Errorf("GROUP BY[%d]: got %q, want %q", i, q.GroupBy[i], col)
				}
			}

			if len(q.OrderBy) != len(tt.wantOrderBy) {
				t.Fatalf("got %d ORDER BY items, want %d", len(q.OrderBy), len(tt.wantOrderBy))
			}
			for i, item := range tt.wantOrderBy {
				if q.OrderBy[i] != item {
					t.Errorf("ORDER BY[%d]: got %+v, want %+v", i, q.OrderBy[i], item)
				}
			}

			if len(q.SelectList) != 2 {
				t.Fatalf("got %d select items, want 2", len(q.SelectList))
			}
			if q.SelectList[1].Alias != "avg_price" {
				t.Errorf("got alias %q, want %q", q.SelectList[1].Alias, "avg_price")
			}

			// Second item must be a scalar call wrapping an aggregate
			fn, ok := q.SelectList[1].Expr.(*FunctionCall)
			if !ok {
				t.Fatalf("got select expr %#v, want FunctionCall", q.SelectList[1].Expr)
			}
			if !strings.EqualFold(fn.Name, "ROUND") {
				t.Errorf("got function %q, want ROUND", fn.Name)
			}
			if len(fn.Args) != 2 {
				t.Fatalf("got %d args, want 2", len(fn.Args))
			}
			agg, ok := fn.Args[0].(*AggregateExpr)
			if !ok || agg.Function != "AVG" {
				t.Errorf("got first arg %#v, want AVG aggregate", fn.Args[0])
			}
		})
	}
}

func TestParseCountStar(t *testing.T) {
	q, err := Parse("SELECT COUNT(*) FROM home_sales")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	agg, ok := q.SelectList[0].Expr.(*AggregateExpr)
	if !ok {
		t.Fatalf("got %#v, want AggregateExpr", q.SelectList[0].Expr)
	}
	if agg.Function != "COUNT" || agg.Arg != nil {
		t.Errorf("got %s with arg %v, want COUNT(*)", agg.Function, agg.Arg)
	}
}

func TestParseWhereClause(t *testing.T) {
	q, err := Parse("SELECT * FROM home_sales WHERE bedrooms = 3 AND bathrooms = 3")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	binary, ok := q.Filter.(*BinaryExpr)
	if !ok {
		t.Fatalf("got filter %#v, want BinaryExpr", q.Filter)
	}
	if binary.Operator != TokenAnd {
		t.Errorf("got operator %v, want AND", binary.Operator)
	}

	left, ok := binary.Left.(*ComparisonExpr)
	if !ok || left.Column != "bedrooms" || left.Operator != TokenEqual {
		t.Errorf("got left %#v, want bedrooms = 3", binary.Left)
	}
	if left != nil {
		if v, ok := left.Value.(int64); !ok || v != 3 {
			t.Errorf("got value %#v, want int64(3)", left.Value)
		}
	}
}

func TestParseLimitOffset(t *testing.T) {
	q, err := Parse("SELECT * FROM home_sales LIMIT 10 OFFSET 5")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if q.Limit == nil || *q.Limit != 10 {
		t.Errorf("got limit %v, want 10", q.Limit)
	}
	if q.Offset == nil || *q.Offset != 5 {
		t.Errorf("got offset %v, want 5", q.Offset)
	}
}

func TestParseInAndBetween(t *testing.T) {
	q, err := Parse("SELECT * FROM home_sales WHERE bedrooms IN (3, 4) AND price BETWEEN 100000 AND 500000")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	binary, ok := q.Filter.(*BinaryExpr)
	if !ok {
		t.Fatalf("got filter %#v, want BinaryExpr", q.Filter)
	}

	in, ok := binary.Left.(*InExpr)
	if !ok {
		t.Fatalf("got left %#v, want InExpr", binary.Left)
	}
	if in.Column != "bedrooms" || len(in.Values) != 2 || in.Negate {
		t.Errorf("got %+v, want bedrooms IN (3, 4)", in)
	}

	between, ok := binary.Right.(*BetweenExpr)
	if !ok {
		t.Fatalf("got right %#v, want BetweenExpr", binary.Right)
	}
	if between.Column != "price" || between.Negate {
		t.Errorf("got %+v, want price BETWEEN 100000 AND 500000", between)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "empty query", query: ""},
		{name: "missing FROM", query: "SELECT price"},
		{name: "missing table", query: "SELECT price FROM"},
		{name: "missing select list", query: "SELECT FROM home_sales"},
		{name: "incomplete WHERE", query: "SELECT * FROM home_sales WHERE"},
		{name: "trailing tokens", query: "SELECT * FROM home_sales extra"},
		{name: "unclosed paren", query: "SELECT ROUND(price FROM home_sales"},
		{name: "bad GROUP BY", query: "SELECT * FROM home_sales GROUP date_built"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.query); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.query)
			}
		})
	}
}

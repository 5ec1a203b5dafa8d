// Package query implements the SQL dialect the benchmark engine executes.
//
// It supports the subset of SQL the home-sales query catalog needs: SELECT
// lists with columns, scalar functions and aggregates, WHERE clauses with
// AND/OR and comparison operators, GROUP BY, ORDER BY, LIMIT and OFFSET.
// The package includes a lexer for tokenization, a parser for building ASTs,
// and evaluators for filtering, projecting and aggregating data rows.
//
// Example usage:
//
//	q, err := Parse("select date_built, round(avg(price), 2) as avg_price from home_sales group by date_built")
//	if err != nil {
//	    log.Fatal(err)
//	}
package query

import "fmt"

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenSelect TokenType = iota
	TokenFrom
	TokenWhere
	TokenAnd
	TokenOr
	TokenAs
	TokenGroup
	TokenBy
	TokenOrder
	TokenAsc
	TokenDesc
	TokenLimit
	TokenOffset
	TokenIn
	TokenBetween
	TokenNot

	// Operators
	TokenEqual        // =
	TokenNotEqual     // !=
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=

	// Literals
	TokenString
	TokenNumber
	TokenIdent
	TokenBool

	// Delimiters
	TokenComma      // ,
	TokenLeftParen  // (
	TokenRightParen // )

	// Special
	TokenEOF
	TokenError
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
}

// Query represents a parsed SQL query
type Query struct {
	TableName  string // Relation the query reads from
	SelectList []SelectItem
	Filter     Expression
	GroupBy    []string      // Column names to group by
	OrderBy    []OrderByItem // Sort specification
	Limit      *int64        // Row limit
	Offset     *int64        // Row offset
}

// OrderByItem represents a column to sort by
type OrderByItem struct {
	Column string // Column name or alias
	Desc   bool   // DESC vs ASC (default)
}

// SelectItem represents a column or expression in the SELECT list
type SelectItem struct {
	Expr  SelectExpression // Column, function, or expression
	Alias string           // Optional alias (AS name)
}

// SelectExpression is an expression that can appear in a SELECT list
type SelectExpression interface {
	EvaluateSelect(row map[string]interface{}) (interface{}, error)
}

// ColumnRef references a column (or * for all columns)
type ColumnRef struct {
	Column string // Column name or "*"
}

// FunctionCall represents a scalar function invocation
type FunctionCall struct {
	Name string
	Args []SelectExpression
}

// LiteralExpr represents a literal value (number, string, bool)
type LiteralExpr struct {
	Value interface{}
}

// AggregateExpr represents an aggregate function (COUNT, SUM, AVG, MIN, MAX)
type AggregateExpr struct {
	Function string           // COUNT, SUM, AVG, MIN, MAX
	Arg      SelectExpression // Argument expression (nil for COUNT(*))
}

// Expression represents a boolean expression in the WHERE clause
type Expression interface {
	Evaluate(row map[string]interface{}) (bool, error)
}

// BinaryExpr represents a binary expression (AND/OR)
type BinaryExpr struct {
	Left     Expression
	Operator TokenType // TokenAnd or TokenOr
	Right    Expression
}

// ComparisonExpr represents a comparison expression (column op literal)
type ComparisonExpr struct {
	Column   string
	Operator TokenType
	Value    interface{}
}

// InExpr represents an IN expression (col IN (val1, val2, ...))
type InExpr struct {
	Column string
	Values []interface{}
	Negate bool // NOT IN
}

// BetweenExpr represents a BETWEEN expression (col BETWEEN lower AND upper)
type BetweenExpr struct {
	Column string
	Lower  interface{}
	Upper  interface{}
	Negate bool // NOT BETWEEN
}

// Evaluate evaluates a binary expression
func (b *BinaryExpr) Evaluate(row map[string]interface{}) (bool, error) {
	left, err := b.Left.Evaluate(row)
	if err != nil {
		return false, err
	}

	right, err := b.Right.Evaluate(row)
	if err != nil {
		return false, err
	}

	switch b.Operator {
	case TokenAnd:
		return left && right, nil
	case TokenOr:
		return left || right, nil
	default:
		return false, fmt.Errorf("unsupported binary operator: %v", b.Operator)
	}
}

// Evaluate evaluates a comparison expression
func (c *ComparisonExpr) Evaluate(row map[string]interface{}) (bool, error) {
	value, exists := row[c.Column]
	if !exists {
		return false, fmt.Errorf("column %q not found", c.Column)
	}

	return compare(value, c.Operator, c.Value)
}

// Evaluate evaluates an IN expression
func (i *InExpr) Evaluate(row map[string]interface{}) (bool, error) {
	value, exists := row[i.Column]
	if !exists {
		return false, fmt.Errorf("column %q not found", i.Column)
	}

	found := false
	for _, listValue := range i.Values {
		match, err := compare(value, TokenEqual, listValue)
		if err != nil {
			return false, err
		}
		if match {
			found = true
			break
		}
	}

	if i.Negate {
		return !found, nil
	}
	return found, nil
}

// Evaluate evaluates a BETWEEN expression
func (b *BetweenExpr) Evaluate(row map[string]interface{}) (bool, error) {
	value, exists := row[b.Column]
	if !exists {
		return false, fmt.Errorf("column %q not found", b.Column)
	}

	lowerMatch, err := compare(value, TokenGreaterEqual, b.Lower)
	if err != nil {
		return false, err
	}

	upperMatch, err := compare(value, TokenLessEqual, b.Upper)
	if err != nil {
		return false, err
	}

	between := lowerMatch && upperMatch

	if b.Negate {
		return !between, nil
	}
	return between, nil
}

// EvaluateSelect evaluates a column reference
func (c *ColumnRef) EvaluateSelect(row map[string]interface{}) (interface{}, error) {
	// Special case: * means all columns
	if c.Column == "*" {
		return row, nil
	}

	value, exists := row[c.Column]
	if !exists {
		return nil, fmt.Errorf("column %q not found", c.Column)
	}
	return value, nil
}

// EvaluateSelect evaluates a function call
func (f *FunctionCall) EvaluateSelect(row map[string]interface{}) (interface{}, error) {
	registry := GetGlobalRegistry()
	fn, exists := registry.Get(f.Name)
	if !exists {
		return nil, fmt.Errorf("unknown function: %s", f.Name)
	}

	// Evaluate all arguments
	args := make([]interface{}, len(f.Args))
	for i, arg := range f.Args {
		val, err := arg.EvaluateSelect(row)
		if err != nil {
			return nil, fmt.Errorf("function %s: argument %d: %w", f.Name, i+1, err)
		}
		args[i] = val
	}

	if err := checkArity(fn, len(args)); err != nil {
		return nil, err
	}

	return fn.Evaluate(args)
}

// EvaluateSelect evaluates a literal expression
func (l *LiteralExpr) EvaluateSelect(row map[string]interface{}) (interface{}, error) {
	return l.Value, nil
}

// EvaluateSelect for AggregateExpr is handled in the aggregation logic.
// This method should not be called directly on raw rows.
func (a *AggregateExpr) EvaluateSelect(row map[string]interface{}) (interface{}, error) {
	return nil, fmt.Errorf("aggregate function %s cannot be evaluated on individual rows", a.Function)
}

// checkArity validates the argument count against a function's declared arity
func checkArity(fn Function, argCount int) error {
	minArity := fn.MinArity()
	maxArity := fn.MaxArity()

	if minArity >= 0 && argCount < minArity {
		return fmt.Errorf("function %s: expected at least %d arguments, got %d", fn.Name(), minArity, argCount)
	}
	if maxArity >= 0 && argCount > maxArity {
		return fmt.Errorf("function %s: expected at most %d arguments, got %d", fn.Name(), maxArity, argCount)
	}
	return nil
}

package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser builds a Query AST from a token stream
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens, pos: 0}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) error {
	if p.current().Type != tokType {
		return fmt.Errorf("expected %v, got %v", tokType, p.current().Type)
	}
	p.advance()
	return nil
}

// Parse parses a SQL query
func Parse(query string) (*Query, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}

	tokens := Tokenize(query)

	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}

	parser := NewParser(tokens)
	q, err := parser.parseQuery()
	if err != nil {
		return nil, err
	}

	// Validate that we consumed all tokens (should be at EOF)
	if parser.current().Type == TokenError {
		return nil, fmt.Errorf("invalid character in query: %s", parser.current().Value)
	}
	if parser.current().Type != TokenEOF {
		return nil, fmt.Errorf("unexpected trailing tokens after query: %s", parser.current().Value)
	}

	return q, nil
}

// parseQuery parses: SELECT col1, col2, ... FROM table [WHERE expr] [GROUP BY ...] [ORDER BY ...] [LIMIT n] [OFFSET n]
func (p *Parser) parseQuery() (*Query, error) {
	// Parse SELECT
	if err := p.expect(TokenSelect); err != nil {
		return nil, fmt.Errorf("query must start with SELECT: %w", err)
	}

	// Parse SELECT list
	selectList, err := p.parseSelectList()
	if err != nil {
		return nil, fmt.Errorf("failed to parse SELECT list: %w", err)
	}

	// Parse FROM
	if err := p.expect(TokenFrom); err != nil {
		return nil, fmt.Errorf("expected FROM after SELECT list: %w", err)
	}

	q := &Query{SelectList: selectList}

	// Parse relation name
	tableName := p.current().Value
	if p.current().Type != TokenIdent && p.current().Type != TokenString {
		return nil, fmt.Errorf("expected table name after FROM")
	}
	p.advance()

	if err := ValidateTableName(tableName); err != nil {
		return nil, err
	}
	q.TableName = tableName

	// Parse WHERE clause (optional)
	if p.current().Type == TokenWhere {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		q.Filter = expr
	}

	// Parse GROUP BY clause (optional)
	if p.current().Type == TokenGroup {
		groupBy, err := p.parseGroupBy()
		if err != nil {
			return nil, err
		}
		q.GroupBy = groupBy
	}

	// Parse ORDER BY clause (optional)
	if p.current().Type == TokenOrder {
		orderBy, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		q.OrderBy = orderBy
	}

	// Parse LIMIT clause (optional)
	if p.current().Type == TokenLimit {
		limit, err := p.parseLimit()
		if err != nil {
			return nil, err
		}
		q.Limit = limit
	}

	// Parse OFFSET clause (optional)
	if p.current().Type == TokenOffset {
		offset, err := p.parseOffset()
		if err != nil {
			return nil, err
		}
		q.Offset = offset
	}

	return q, nil
}

// parseSelectList parses the comma-separated SELECT list
func (p *Parser) parseSelectList() ([]SelectItem, error) {
	var items []SelectItem

	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		// Check for comma (more items)
		if p.current().Type == TokenComma {
			p.advance()
			continue
		}

		break
	}

	return items, nil
}

// parseSelectItem parses a single SELECT item (column, function, or expression with optional alias)
func (p *Parser) parseSelectItem() (SelectItem, error) {
	var item SelectItem

	expr, err := p.parseSelectExpression()
	if err != nil {
		return item, err
	}
	item.Expr = expr

	// Check for AS alias
	if p.current().Type == TokenAs {
		p.advance()
		if p.current().Type != TokenIdent {
			return item, fmt.Errorf("expected alias name after AS")
		}
		item.Alias = p.current().Value
		p.advance()
	} else if p.current().Type == TokenIdent && p.current().Value != "*" {
		// Implicit alias (column name without AS)
		item.Alias = p.current().Value
		p.advance()
	}

	return item, nil
}

// parseSelectExpression parses a select expression (column reference, function call, or literal)
func (p *Parser) parseSelectExpression() (SelectExpression, error) {
	// Check for aggregate or regular function call (identifier followed by left paren)
	if p.current().Type == TokenIdent && p.peek().Type == TokenLeftParen {
		funcName := strings.ToUpper(p.current().Value)
		if isAggregateFunction(funcName) {
			return p.parseAggregateFunction()
		}
		return p.parseFunctionCall()
	}

	// Check for literals (numbers, strings, bools)
	switch p.current().Type {
	case TokenNumber:
		numStr := p.current().Value
		p.advance()
		value, err := parseNumber(numStr)
		if err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: value}, nil
	case TokenString:
		str := p.current().Value
		p.advance()
		return &LiteralExpr{Value: str}, nil
	case TokenBool:
		b := strings.EqualFold(p.current().Value, "true")
		p.advance()
		return &LiteralExpr{Value: b}, nil
	}

	// Otherwise, it's a column reference
	if p.current().Type != TokenIdent {
		return nil, fmt.Errorf("expected column name, literal, or function call, got %v", p.current().Type)
	}

	column := p.current().Value
	if err := ValidateColumnName(column); err != nil {
		return nil, err
	}
	p.advance()

	return &ColumnRef{Column: column}, nil
}

// parseFunctionCall parses a scalar function call
func (p *Parser) parseFunctionCall() (SelectExpression, error) {
	funcName := p.current().Value
	p.advance() // skip function name

	if err := p.expect(TokenLeftParen); err != nil {
		return nil, fmt.Errorf("expected '(' after function name: %w", err)
	}

	var args []SelectExpression

	// Check for empty argument list
	if p.current().Type == TokenRightParen {
		p.advance()
		return &FunctionCall{Name: funcName, Args: args}, nil
	}

	for {
		arg, err := p.parseSelectExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.current().Type == TokenComma {
			p.advance()
			continue
		}

		break
	}

	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ')' after function arguments: %w", err)
	}

	return &FunctionCall{Name: funcName, Args: args}, nil
}

// isAggregateFunction checks if a function name is an aggregate function
func isAggregateFunction(name string) bool {
	aggregates := map[string]bool{
		"COUNT": true,
		"SUM":   true,
		"AVG":   true,
		"MIN":   true,
		"MAX":   true,
	}
	return aggregates[strings.ToUpper(name)]
}

// parseAggregateFunction parses an aggregate function call
func (p *Parser) parseAggregateFunction() (SelectExpression, error) {
	funcName := strings.ToUpper(p.current().Value)
	p.advance() // skip function name

	if err := p.expect(TokenLeftParen); err != nil {
		return nil, fmt.Errorf("expected '(' after aggregate function: %w", err)
	}

	var arg SelectExpression

	// Check for COUNT(*)
	if funcName == "COUNT" && p.current().Type == TokenIdent && p.current().Value == "*" {
		p.advance()
		arg = nil // COUNT(*) has no argument
	} else {
		argExpr, err := p.parseSelectExpression()
		if err != nil {
			return nil, fmt.Errorf("failed to parse aggregate function argument: %w", err)
		}
		arg = argExpr
	}

	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ')' after aggregate function argument: %w", err)
	}

	return &AggregateExpr{Function: funcName, Arg: arg}, nil
}

// parseOr parses OR expressions (lowest precedence)
func (p *Parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenOr, Right: right}
	}

	return left, nil
}

// parseAnd parses AND expressions
func (p *Parser) parseAnd() (Expression, error) {
	left, err := p.parseCondition()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenAnd, Right: right}
	}

	return left, nil
}

// parseCondition parses a parenthesized expression or a comparison
func (p *Parser) parseCondition() (Expression, error) {
	if p.current().Type == TokenLeftParen {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, fmt.Errorf("expected ')' after expression: %w", err)
		}
		return expr, nil
	}

	return p.parseComparison()
}

// parseComparison parses comparison expressions (including IN and BETWEEN)
func (p *Parser) parseComparison() (Expression, error) {
	// Parse column name
	if p.current().Type != TokenIdent {
		return nil, fmt.Errorf("expected column name, got %v", p.current().Type)
	}
	column := p.current().Value

	if err := ValidateColumnName(column); err != nil {
		return nil, err
	}

	p.advance()

	// Check for special operators first
	switch p.current().Type {
	case TokenIn:
		return p.parseInExpr(column)
	case TokenBetween:
		return p.parseBetweenExpr(column)
	case TokenNot:
		p.advance()
		switch p.current().Type {
		case TokenIn:
			expr, err := p.parseInExpr(column)
			if err != nil {
				return nil, err
			}
			expr.(*InExpr).Negate = true
			return expr, nil
		case TokenBetween:
			expr, err := p.parseBetweenExpr(column)
			if err != nil {
				return nil, err
			}
			expr.(*BetweenExpr).Negate = true
			return expr, nil
		default:
			return nil, fmt.Errorf("expected IN or BETWEEN after NOT, got %v", p.current().Type)
		}
	}

	// Parse standard comparison operator
	operator := p.current().Type
	switch operator {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual:
		p.advance()
	default:
		return nil, fmt.Errorf("expected comparison operator, got %v", operator)
	}

	value, err := p.parseLiteralValue()
	if err != nil {
		return nil, err
	}

	return &ComparisonExpr{Column: column, Operator: operator, Value: value}, nil
}

// parseInExpr parses an IN expression: column IN (val1, val2, ...)
func (p *Parser) parseInExpr(column string) (Expression, error) {
	if err := p.expect(TokenIn); err != nil {
		return nil, err
	}

	if err := p.expect(TokenLeftParen); err != nil {
		return nil, fmt.Errorf("expected '(' after IN: %w", err)
	}

	var values []interface{}
	for {
		value, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		values = append(values, value)

		if p.current().Type == TokenComma {
			p.advance()
			continue
		}

		break
	}

	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ')' after IN list: %w", err)
	}

	return &InExpr{Column: column, Values: values}, nil
}

// parseBetweenExpr parses a BETWEEN expression: column BETWEEN lower AND upper
func (p *Parser) parseBetweenExpr(column string) (Expression, error) {
	if err := p.expect(TokenBetween); err != nil {
		return nil, err
	}

	lower, err := p.parseLiteralValue()
	if err != nil {
		return nil, fmt.Errorf("failed to parse BETWEEN lower bound: %w", err)
	}

	if err := p.expect(TokenAnd); err != nil {
		return nil, fmt.Errorf("expected AND in BETWEEN expression: %w", err)
	}

	upper, err := p.parseLiteralValue()
	if err != nil {
		return nil, fmt.Errorf("failed to parse BETWEEN upper bound: %w", err)
	}

	return &BetweenExpr{Column: column, Lower: lower, Upper: upper}, nil
}

// parseLiteralValue parses a literal (string, number, or bool)
func (p *Parser) parseLiteralValue() (interface{}, error) {
	switch p.current().Type {
	case TokenString:
		value := p.current().Value
		p.advance()
		return value, nil
	case TokenNumber:
		numStr := p.current().Value
		value, err := parseNumber(numStr)
		if err != nil {
			return nil, err
		}
		p.advance()
		return value, nil
	case TokenBool:
		value := strings.EqualFold(p.current().Value, "true")
		p.advance()
		return value, nil
	default:
		return nil, fmt.Errorf("expected value (string, number, bool), got %v", p.current().Type)
	}
}

// parseNumber parses a numeric literal, preferring int64 over float64
func parseNumber(numStr string) (interface{}, error) {
	if intVal, err := strconv.ParseInt(numStr, 10, 64); err == nil {
		return intVal, nil
	}
	if floatVal, err := strconv.ParseFloat(numStr, 64); err == nil {
		return floatVal, nil
	}
	return nil, fmt.Errorf("invalid number: %s", numStr)
}

// parseGroupBy parses the GROUP BY clause
func (p *Parser) parseGroupBy() ([]string, error) {
	if err := p.expect(TokenGroup); err != nil {
		return nil, err
	}

	if err := p.expect(TokenBy); err != nil {
		return nil, fmt.Errorf("expected BY after GROUP: %w", err)
	}

	var columns []string

	for {
		if p.current().Type != TokenIdent {
			return nil, fmt.Errorf("expected column name in GROUP BY, got %v", p.current().Type)
		}

		column := p.current().Value
		if err := ValidateColumnName(column); err != nil {
			return nil, err
		}

		columns = append(columns, column)
		p.advance()

		if p.current().Type == TokenComma {
			p.advance()
			continue
		}

		break
	}

	return columns, nil
}

// parseOrderBy parses the ORDER BY clause
func (p *Parser) parseOrderBy() ([]OrderByItem, error) {
	if err := p.expect(TokenOrder); err != nil {
		return nil, err
	}

	if err := p.expect(TokenBy); err != nil {
		return nil, fmt.Errorf("expected BY after ORDER: %w", err)
	}

	var items []OrderByItem

	for {
		if p.current().Type != TokenIdent {
			return nil, fmt.Errorf("expected column name in ORDER BY, got %v", p.current().Type)
		}

		column := p.current().Value
		if err := ValidateColumnName(column); err != nil {
			return nil, err
		}

		item := OrderByItem{Column: column}
		p.advance()

		// Check for ASC/DESC modifier
		if p.current().Type == TokenAsc {
			p.advance()
		} else if p.current().Type == TokenDesc {
			item.Desc = true
			p.advance()
		}

		items = append(items, item)

		if p.current().Type == TokenComma {
			p.advance()
			continue
		}

		break
	}

	return items, nil
}

// parseLimit parses the LIMIT clause
func (p *Parser) parseLimit() (*int64, error) {
	if err := p.expect(TokenLimit); err != nil {
		return nil, err
	}

	if p.current().Type != TokenNumber {
		return nil, fmt.Errorf("expected number after LIMIT, got %v", p.current().Type)
	}

	numStr := p.current().Value
	limit, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LIMIT value: %s", numStr)
	}

	if limit < 0 {
		return nil, fmt.Errorf("LIMIT must be non-negative, got %d", limit)
	}

	p.advance()
	return &limit, nil
}

// parseOffset parses the OFFSET clause
func (p *Parser) parseOffset() (*int64, error) {
	if err := p.expect(TokenOffset); err != nil {
		return nil, err
	}

	if p.current().Type != TokenNumber {
		return nil, fmt.Errorf("expected number after OFFSET, got %v", p.current().Type)
	}

	numStr := p.current().Value
	offset, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OFFSET value: %s", numStr)
	}

	if offset < 0 {
		return nil, fmt.Errorf("OFFSET must be non-negative, got %d", offset)
	}

	p.advance()
	return &offset, nil
}

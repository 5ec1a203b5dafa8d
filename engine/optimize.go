package engine

import "github.com/Geo222222/HomeSalesAnalysisSparkSQL/query"

// optimizeFilter rewrites a WHERE expression so cheaper, more selective
// predicates run first. AND chains are flattened and reordered: equality
// comparisons move to the front so most rows are rejected before the
// remaining conditions are evaluated. OR expressions and single predicates
// pass through unchanged.
func optimizeFilter(expr query.Expression) query.Expression {
	if expr == nil {
		return nil
	}

	binary, ok := expr.(*query.BinaryExpr)
	if !ok || binary.Operator != query.TokenAnd {
		return expr
	}

	terms := flattenAnd(binary)
	if len(terms) < 2 {
		return expr
	}

	reordered := make([]query.Expression, 0, len(terms))
	var rest []query.Expression
	for _, term := range terms {
		if isEqualityPredicate(term) {
			reordered = append(reordered, term)
		} else {
			rest = append(rest, term)
		}
	}
	reordered = append(reordered, rest...)

	// Rebuild the left-leaning AND chain
	result := reordered[0]
	for _, term := range reordered[1:] {
		result = &query.BinaryExpr{
			Left:     result,
			Operator: query.TokenAnd,
			Right:    term,
		}
	}

	return result
}

// flattenAnd collects the terms of a nested AND chain in evaluation order
func flattenAnd(expr query.Expression) []query.Expression {
	binary, ok := expr.(*query.BinaryExpr)
	if !ok || binary.Operator != query.TokenAnd {
		return []query.Expression{expr}
	}
	return append(flattenAnd(binary.Left), flattenAnd(binary.Right)...)
}

// isEqualityPredicate reports whether a term is a plain equality comparison
func isEqualityPredicate(expr query.Expression) bool {
	cmp, ok := expr.(*query.ComparisonExpr)
	return ok && cmp.Operator == query.TokenEqual
}

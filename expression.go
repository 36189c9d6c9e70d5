package kwsearch

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

// Expression represents a composable filter expression over result fields.
// All Expressions are SearchOptions, but not all SearchOptions are Expressions.
type Expression interface {
	SearchOption
	// expr is a marker method to distinguish expressions from other options.
	expr()
}

// baseExpr provides the expr marker method for all expression types.
type baseExpr struct{}

func (baseExpr) expr() {}

// AndExpr represents an AND combination of expressions.
type AndExpr struct {
	baseExpr
	Exprs []Expression
}

// Apply implements the SearchOption interface for AndExpr.
func (a AndExpr) Apply(cfg *SearchConfig) {
	cfg.Filters = append(cfg.Filters, a)
}

// And creates an AND expression combining multiple expressions.
func And(exprs ...Expression) Expression {
	return AndExpr{Exprs: exprs}
}

// OrExpr represents an OR combination of expressions.
type OrExpr struct {
	baseExpr
	Exprs []Expression
}

// Apply implements the SearchOption interface for OrExpr.
func (o OrExpr) Apply(cfg *SearchConfig) {
	cfg.Filters = append(cfg.Filters, o)
}

// Or creates an OR expression combining multiple expressions.
func Or(exprs ...Expression) Expression {
	return OrExpr{Exprs: exprs}
}

// NotExpr represents a NOT negation of an expression.
type NotExpr struct {
	baseExpr
	Inner Expression
}

// Apply implements the SearchOption interface for NotExpr.
func (n NotExpr) Apply(cfg *SearchConfig) {
	cfg.Filters = append(cfg.Filters, n)
}

// Not creates a NOT expression negating the given expression.
func Not(expr Expression) Expression {
	return NotExpr{Inner: expr}
}

// CompareExpr compares a result field against a value.
type CompareExpr struct {
	baseExpr
	Op    Operator
	Field string
	Value interface{}
}

// Apply implements the SearchOption interface for CompareExpr.
func (c CompareExpr) Apply(cfg *SearchConfig) {
	cfg.Filters = append(cfg.Filters, c)
}

// Eq creates an equality comparison expression.
func Eq(field string, value interface{}) Expression {
	return CompareExpr{Op: OpEq, Field: field, Value: value}
}

// Ne creates a not-equal comparison expression.
func Ne(field string, value interface{}) Expression {
	return CompareExpr{Op: OpNe, Field: field, Value: value}
}

// Contains matches fields containing value, ignoring case.
func Contains(field, value string) Expression {
	return CompareExpr{Op: OpContains, Field: field, Value: value}
}

// Gt creates a greater-than comparison expression.
func Gt(field string, value interface{}) Expression {
	return CompareExpr{Op: OpGt, Field: field, Value: value}
}

// Gte creates a greater-than-or-equal comparison expression.
func Gte(field string, value interface{}) Expression {
	return CompareExpr{Op: OpGte, Field: field, Value: value}
}

// Lt creates a less-than comparison expression.
func Lt(field string, value interface{}) Expression {
	return CompareExpr{Op: OpLt, Field: field, Value: value}
}

// Lte creates a less-than-or-equal comparison expression.
func Lte(field string, value interface{}) Expression {
	return CompareExpr{Op: OpLte, Field: field, Value: value}
}

// InExpr matches fields equal to any of Values.
type InExpr struct {
	baseExpr
	Field  string
	Values []string
}

// Apply implements the SearchOption interface for InExpr.
func (i InExpr) Apply(cfg *SearchConfig) {
	cfg.Filters = append(cfg.Filters, i)
}

// In creates a set membership expression. Comparison ignores case.
func In(field string, values ...string) Expression {
	return InExpr{Field: field, Values: values}
}

// MatchesExpr matches fields against a case-insensitive regular expression.
type MatchesExpr struct {
	baseExpr
	Field   string
	Pattern string
	re      *regexp.Regexp
	err     error
}

// Apply implements the SearchOption interface for MatchesExpr.
func (m MatchesExpr) Apply(cfg *SearchConfig) {
	cfg.Filters = append(cfg.Filters, m)
}

// Matches creates a regular expression match. An invalid pattern never
// matches and is reported by ValidateExpression.
func Matches(field, pattern string) Expression {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		err = errors.WithSecondaryError(ErrInvalidExpression, errors.Wrapf(err, "pattern %q", pattern))
	}
	return MatchesExpr{Field: field, Pattern: pattern, re: re, err: err}
}

// RangeExpr represents a range comparison expression.
type RangeExpr struct {
	baseExpr
	Field string
	// Min is the inclusive lower bound, nil for none.
	Min interface{}
	// Max is the inclusive upper bound, nil for none.
	Max interface{}
}

// Apply implements the SearchOption interface for RangeExpr.
func (r RangeExpr) Apply(cfg *SearchConfig) {
	cfg.Filters = append(cfg.Filters, r)
}

// Range creates a range comparison expression.
func Range(field string, min, max interface{}) Expression {
	return RangeExpr{Field: field, Min: min, Max: max}
}

// ExistsExpr represents a field existence check expression.
type ExistsExpr struct {
	baseExpr
	Field string
}

// Apply implements the SearchOption interface for ExistsExpr.
func (e ExistsExpr) Apply(cfg *SearchConfig) {
	cfg.Filters = append(cfg.Filters, e)
}

// Exists matches results whose field is present and non-empty.
func Exists(field string) Expression {
	return ExistsExpr{Field: field}
}

package kwsearch

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Field names understood by filter expressions.
const (
	FieldTitle        = "title"
	FieldURL          = "url"
	FieldSnippet      = "snippet"
	FieldDomain       = "domain"
	FieldQuery        = "query"
	FieldDisplayLink  = "display_link"
	FieldFormattedURL = "formatted_url"
	FieldRank         = "rank"
)

// Field returns the value of a named field. Empty string fields are reported
// as absent.
func (r Result) Field(name string) (interface{}, bool) {
	var s string
	switch name {
	case FieldRank:
		return r.Rank, true
	case FieldTitle:
		s = r.Title
	case FieldURL:
		s = r.URL
	case FieldSnippet:
		s = r.Snippet
	case FieldDomain:
		s = r.Domain()
	case FieldQuery:
		s = r.Query
	case FieldDisplayLink:
		s = r.DisplayLink
	case FieldFormattedURL:
		s = r.FormattedURL
	default:
		return nil, false
	}
	return s, s != ""
}

// DefaultFilter drops advertising hosts and sponsored titles.
func DefaultFilter() Expression {
	return And(
		Not(In(FieldDomain,
			"ads.google.com",
			"googleadservices.com",
			"doubleclick.net",
			"googletagmanager.com",
		)),
		Not(Matches(FieldTitle, `^(ads?|sponsored|pr|広告)\s`)),
	)
}

// MatchesAll reports whether r satisfies every filter.
func MatchesAll(r Result, filters []Expression) bool {
	for _, filter := range filters {
		if !Evaluate(filter, r) {
			return false
		}
	}
	return true
}

// Evaluate evaluates a single expression against a result.
func Evaluate(expr Expression, r Result) bool {
	switch e := expr.(type) {
	case AndExpr:
		for _, inner := range e.Exprs {
			if !Evaluate(inner, r) {
				return false
			}
		}
		return true
	case OrExpr:
		for _, inner := range e.Exprs {
			if Evaluate(inner, r) {
				return true
			}
		}
		return false
	case NotExpr:
		return !Evaluate(e.Inner, r)
	case CompareExpr:
		return evaluateCompare(e, r)
	case InExpr:
		v, ok := r.Field(e.Field)
		if !ok {
			return false
		}
		s := fmt.Sprintf("%v", v)
		for _, candidate := range e.Values {
			if strings.EqualFold(s, candidate) {
				return true
			}
		}
		return false
	case MatchesExpr:
		if e.re == nil {
			return false
		}
		v, ok := r.Field(e.Field)
		if !ok {
			return false
		}
		return e.re.MatchString(fmt.Sprintf("%v", v))
	case RangeExpr:
		v, ok := r.Field(e.Field)
		if !ok {
			return false
		}
		if e.Min != nil && compareValues(v, e.Min) < 0 {
			return false
		}
		if e.Max != nil && compareValues(v, e.Max) > 0 {
			return false
		}
		return true
	case ExistsExpr:
		_, ok := r.Field(e.Field)
		return ok
	default:
		// Unknown expression type, return true to not filter out
		return true
	}
}

func evaluateCompare(e CompareExpr, r Result) bool {
	v, ok := r.Field(e.Field)
	switch e.Op {
	case OpEq:
		if !ok {
			return e.Value == nil || e.Value == ""
		}
		return compareEqual(v, e.Value)
	case OpNe:
		if !ok {
			return e.Value != nil && e.Value != ""
		}
		return !compareEqual(v, e.Value)
	case OpContains:
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(fmt.Sprintf("%v", v)), strings.ToLower(fmt.Sprintf("%v", e.Value)))
	case OpGt:
		return ok && compareValues(v, e.Value) > 0
	case OpGte:
		return ok && compareValues(v, e.Value) >= 0
	case OpLt:
		return ok && compareValues(v, e.Value) < 0
	case OpLte:
		return ok && compareValues(v, e.Value) <= 0
	default:
		return false
	}
}

// ValidateExpression checks field names and patterns of an expression tree.
func ValidateExpression(expr Expression) error {
	switch e := expr.(type) {
	case AndExpr:
		return validateAll(e.Exprs)
	case OrExpr:
		return validateAll(e.Exprs)
	case NotExpr:
		if e.Inner == nil {
			return errors.WithSecondaryError(ErrInvalidExpression, errors.New("not: missing inner expression"))
		}
		return ValidateExpression(e.Inner)
	case CompareExpr:
		return validateField(e.Field)
	case InExpr:
		return validateField(e.Field)
	case MatchesExpr:
		if e.err != nil {
			return e.err
		}
		return validateField(e.Field)
	case RangeExpr:
		return validateField(e.Field)
	case ExistsExpr:
		return validateField(e.Field)
	case nil:
		return errors.WithSecondaryError(ErrInvalidExpression, errors.New("nil expression"))
	default:
		return nil
	}
}

func validateAll(exprs []Expression) error {
	for _, e := range exprs {
		if err := ValidateExpression(e); err != nil {
			return err
		}
	}
	return nil
}

func validateField(name string) error {
	switch name {
	case FieldTitle, FieldURL, FieldSnippet, FieldDomain, FieldQuery,
		FieldDisplayLink, FieldFormattedURL, FieldRank:
		return nil
	default:
		return errors.WithSecondaryError(ErrInvalidExpression, errors.Newf("unknown field %q", name))
	}
}

// compareEqual checks if two values are equal.
func compareEqual(v1, v2 interface{}) bool {
	if v1 == nil || v2 == nil {
		return v1 == v2
	}

	if f1, ok1 := toFloat64(v1); ok1 {
		if f2, ok2 := toFloat64(v2); ok2 {
			return f1 == f2
		}
	}

	return fmt.Sprintf("%v", v1) == fmt.Sprintf("%v", v2)
}

// compareValues orders two values numerically when both are numbers and
// lexically otherwise.
func compareValues(v1, v2 interface{}) int {
	if f1, ok1 := toFloat64(v1); ok1 {
		if f2, ok2 := toFloat64(v2); ok2 {
			switch {
			case f1 < f2:
				return -1
			case f1 > f2:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprintf("%v", v1), fmt.Sprintf("%v", v2))
}

// toFloat64 attempts to convert a value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

package kwsearch

import "github.com/cockroachdb/errors"

// Operator represents comparison operators.
type Operator string

const (
	// OpEq represents equality operator.
	OpEq Operator = "eq"
	// OpNe represents not-equal operator.
	OpNe Operator = "ne"
	// OpContains represents case-insensitive substring match.
	OpContains Operator = "contains"
	// OpMatches represents case-insensitive regular expression match.
	OpMatches Operator = "matches"
	// OpIn represents membership in a set of values.
	OpIn Operator = "in"
	// OpGt represents greater-than operator.
	OpGt Operator = "gt"
	// OpGte represents greater-than-or-equal operator.
	OpGte Operator = "gte"
	// OpLt represents less-than operator.
	OpLt Operator = "lt"
	// OpLte represents less-than-or-equal operator.
	OpLte Operator = "lte"
	// OpExists represents field existence check.
	OpExists Operator = "exists"
)

// ErrorCode represents specific error codes for search operations.
type ErrorCode int

const (
	// ErrCodeEmptyQuery is returned when an empty query is provided.
	ErrCodeEmptyQuery ErrorCode = iota + 1000

	// ErrCodeInvalidOption is returned when an invalid option is provided.
	ErrCodeInvalidOption

	// ErrCodeInvalidExpression is returned when an invalid expression is provided.
	ErrCodeInvalidExpression

	// ErrCodeTimeout is returned when a search operation times out.
	ErrCodeTimeout

	// ErrCodeCanceled is returned when a search operation is canceled.
	ErrCodeCanceled

	// ErrCodeNotImplemented is returned when a feature is not implemented.
	ErrCodeNotImplemented

	// ErrCodeBackendUnavailable is returned when the search backend is unavailable.
	ErrCodeBackendUnavailable

	// ErrCodeRateLimited is returned when the backend throttles requests.
	ErrCodeRateLimited

	// ErrCodeQuotaExceeded is returned when the daily API quota is used up.
	ErrCodeQuotaExceeded

	// ErrCodeUnauthorized is returned when credentials are missing or rejected.
	ErrCodeUnauthorized

	// ErrCodeBadRequest is returned when the backend rejects request parameters.
	ErrCodeBadRequest
)

// String returns the human-readable string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeEmptyQuery:
		return "empty query"
	case ErrCodeInvalidOption:
		return "invalid option"
	case ErrCodeInvalidExpression:
		return "invalid expression"
	case ErrCodeTimeout:
		return "operation timed out"
	case ErrCodeCanceled:
		return "operation canceled"
	case ErrCodeNotImplemented:
		return "not implemented"
	case ErrCodeBackendUnavailable:
		return "backend unavailable"
	case ErrCodeRateLimited:
		return "rate limited"
	case ErrCodeQuotaExceeded:
		return "quota exceeded"
	case ErrCodeUnauthorized:
		return "unauthorized"
	case ErrCodeBadRequest:
		return "bad request"
	default:
		return "unknown error"
	}
}

// newErrorWithCode creates a new error with a code and message.
func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

// Common errors that can be returned by search operations.
var (
	ErrEmptyQuery         = newErrorWithCode(ErrCodeEmptyQuery, "kwsearch: empty query")
	ErrInvalidOption      = newErrorWithCode(ErrCodeInvalidOption, "kwsearch: invalid option")
	ErrInvalidExpression  = newErrorWithCode(ErrCodeInvalidExpression, "kwsearch: invalid expression")
	ErrTimeout            = newErrorWithCode(ErrCodeTimeout, "kwsearch: operation timed out")
	ErrCanceled           = newErrorWithCode(ErrCodeCanceled, "kwsearch: operation canceled")
	ErrNotImplemented     = newErrorWithCode(ErrCodeNotImplemented, "kwsearch: not implemented")
	ErrBackendUnavailable = newErrorWithCode(ErrCodeBackendUnavailable, "kwsearch: backend unavailable")
	ErrRateLimited        = newErrorWithCode(ErrCodeRateLimited, "kwsearch: rate limited")
	ErrQuotaExceeded      = newErrorWithCode(ErrCodeQuotaExceeded, "kwsearch: quota exceeded")
	ErrUnauthorized       = newErrorWithCode(ErrCodeUnauthorized, "kwsearch: unauthorized")
	ErrBadRequest         = newErrorWithCode(ErrCodeBadRequest, "kwsearch: bad request")
)

// IsPermanent reports whether retrying the same request cannot succeed.
func IsPermanent(err error) bool {
	return errors.IsAny(err,
		ErrEmptyQuery, ErrInvalidOption, ErrInvalidExpression,
		ErrQuotaExceeded, ErrRateLimited, ErrUnauthorized, ErrBadRequest,
	)
}

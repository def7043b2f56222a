// Package clearingerrors defines the typed error taxonomy surfaced by the
// funding and margin engines. It follows the plain sentinel-error style used
// throughout this module's sibling packages, with a thin Kind wrapper so
// callers can branch on the kind of failure (spec.md §6, §7) instead of
// matching error strings.
package clearingerrors

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a clearing-house error.
type Kind int

const (
	// KindMath covers checked-arithmetic overflow, underflow, and
	// division-by-zero failures from pkg/fixedpoint.
	KindMath Kind = iota
	// KindInvalidFundingProfitability is the defensive check in the
	// funding split: the capped distribution would still drain the fee
	// pool below its reserved floor.
	KindInvalidFundingProfitability
	// KindOracleNonPositive means an oracle returned a zero or negative
	// price.
	KindOracleNonPositive
	// KindOracleStale means an oracle's delay exceeded the caller's
	// tolerance.
	KindOracleStale
	// KindMarketNotFound means a lookup into a PerpMarketMap/SpotMarketMap
	// missed.
	KindMarketNotFound
)

func (k Kind) String() string {
	switch k {
	case KindMath:
		return "math_error"
	case KindInvalidFundingProfitability:
		return "invalid_funding_profitability"
	case KindOracleNonPositive:
		return "oracle_non_positive"
	case KindOracleStale:
		return "oracle_stale"
	case KindMarketNotFound:
		return "market_not_found"
	default:
		return "unknown"
	}
}

// Sentinel errors each Kind wraps. Callers that only care about the
// category can compare with errors.Is against these instead of the Kind
// enum.
var (
	ErrMath                        = errors.New("math error")
	ErrInvalidFundingProfitability = errors.New("invalid funding profitability")
	ErrOracleNonPositive           = errors.New("oracle price non-positive")
	ErrOracleStale                 = errors.New("oracle price stale")
	ErrMarketNotFound              = errors.New("market not found")
)

// Error is the concrete error type returned by this module's core
// packages. Op identifies the operation that failed (e.g.
// "funding.position_payment"), aiding diagnosis without embedding numeric
// details in the error type itself (spec.md §7: "numeric details are
// logged but not embedded in the error type").
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func sentinelFor(k Kind) error {
	switch k {
	case KindMath:
		return ErrMath
	case KindInvalidFundingProfitability:
		return ErrInvalidFundingProfitability
	case KindOracleNonPositive:
		return ErrOracleNonPositive
	case KindOracleStale:
		return ErrOracleStale
	case KindMarketNotFound:
		return ErrMarketNotFound
	default:
		return errors.New("unknown error")
	}
}

func wrap(k Kind, op string, cause error) error {
	return &Error{Kind: k, Op: op, Err: fmt.Errorf("%w: %v", sentinelFor(k), cause)}
}

// Mathf builds a KindMath error for checked-arithmetic failures.
func Mathf(op string, cause error) error { return wrap(KindMath, op, cause) }

// InvalidFundingProfitabilityf builds a KindInvalidFundingProfitability
// error.
func InvalidFundingProfitabilityf(op string, cause error) error {
	return wrap(KindInvalidFundingProfitability, op, cause)
}

// OracleNonPositivef builds a KindOracleNonPositive error.
func OracleNonPositivef(op string, cause error) error {
	return wrap(KindOracleNonPositive, op, cause)
}

// OracleStalef builds a KindOracleStale error.
func OracleStalef(op string, cause error) error { return wrap(KindOracleStale, op, cause) }

// MarketNotFoundf builds a KindMarketNotFound error.
func MarketNotFoundf(op string, cause error) error { return wrap(KindMarketNotFound, op, cause) }

// As reports whether err (or one it wraps) is a *Error, returning it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

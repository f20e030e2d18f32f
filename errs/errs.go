// Package errs defines the error kinds shared by the screener packages.
//
// Every error produced by a component is either one of the sentinels below or
// an *Error wrapping one of them, so callers can branch with errors.Is:
//
//	if errors.Is(err, errs.ErrDataUnavailable) { ... skip symbol ... }
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means price history or a score could not be obtained
	// after provider retries. Fatal for one symbol only.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrRateLimited means a provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidOrder means sizing or order inputs violate the position or
	// bracket invariants. Raised before any external call.
	ErrInvalidOrder = errors.New("invalid order parameters")

	// ErrCacheUnavailable means the persistent score store failed. Treated as
	// a miss or no-op, never as a run failure.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrSimulationData means the simulator was handed an empty or malformed
	// price series.
	ErrSimulationData = errors.New("simulation data error")
)

// Error carries the operation and symbol a failure belongs to.
type Error struct {
	Kind   error  // one of the sentinels above
	Op     string // e.g. "scores.get", "risk.size"
	Symbol string // empty for run-level failures
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Symbol != "" {
		msg += " " + e.Symbol
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an *Error of the given kind.
func New(kind error, op, symbol string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Symbol: symbol, Err: cause}
}

// Invalid is shorthand for an ErrInvalidOrder with a formatted message.
func Invalid(op, format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidOrder, Op: op, Err: fmt.Errorf(format, args...)}
}

// Simulation is shorthand for an ErrSimulationData with a formatted message.
func Simulation(op, format string, args ...any) *Error {
	return &Error{Kind: ErrSimulationData, Op: op, Err: fmt.Errorf(format, args...)}
}

// Unavailable wraps cause as ErrDataUnavailable for symbol.
func Unavailable(op, symbol string, cause error) *Error {
	return &Error{Kind: ErrDataUnavailable, Op: op, Symbol: symbol, Err: cause}
}

// Cache wraps cause as ErrCacheUnavailable.
func Cache(op string, cause error) *Error {
	return &Error{Kind: ErrCacheUnavailable, Op: op, Err: cause}
}

// KindOf returns the sentinel kind of err, or nil if err is not classified.
func KindOf(err error) error {
	for _, k := range []error{ErrDataUnavailable, ErrRateLimited, ErrInvalidOrder, ErrCacheUnavailable, ErrSimulationData} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

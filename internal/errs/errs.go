// Package errs defines the small closed set of error kinds shared by the
// cache, archive, state, and install packages. Components wrap their own
// errors with a Kind so callers can classify a failure without knowing the
// concrete type that produced it.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

const (
	KindOther Kind = iota
	// KindNotFound covers cache misses, unknown asset ids, and missing mappings.
	KindNotFound
	// KindStructural means an archive lacks the addons marker.
	KindStructural
	// KindIO covers filesystem and network failures.
	KindIO
	// KindConflict means a duplicate registration was attempted.
	KindConflict
	// KindConcurrency means the state gate could not be acquired.
	KindConcurrency
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindStructural:
		return "structural"
	case KindIO:
		return "io"
	case KindConflict:
		return "conflict"
	case KindConcurrency:
		return "concurrency"
	default:
		return "other"
	}
}

// Error carries a Kind, the operation that failed, and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with kind and op. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the outermost Kind found in err's chain, or KindOther.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

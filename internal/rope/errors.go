package rope

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Errors returned by rope operations. Every error a rope operation returns
// is an *Error that matches exactly one of these (ErrIndex also matches
// ErrParameter).
var (
	// ErrParameter indicates an invalid index, range, text, or a misuse of
	// ownership preconditions.
	ErrParameter = errors.New("invalid parameter")

	// ErrIndex indicates a positional lookup past the end of the content.
	ErrIndex = errors.New("index out of range")

	// ErrAllocation indicates a node or buffer could not be obtained.
	ErrAllocation = errors.New("allocation failed")

	// ErrInternal indicates a broken tree invariant.
	ErrInternal = errors.New("internal invariant violated")
)

// errPoolExhausted is the cause recorded when a NodePool hits its limit.
var errPoolExhausted = errors.New("node pool exhausted")

// Kind categorizes a rope error.
type Kind uint8

const (
	// KindParameter is a caller error.
	KindParameter Kind = iota + 1
	// KindIndex is an out-of-range position.
	KindIndex
	// KindAllocation is resource exhaustion.
	KindAllocation
	// KindInternal is a programming defect in invariant maintenance.
	KindInternal
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindParameter:
		return "parameter"
	case KindIndex:
		return "index"
	case KindAllocation:
		return "allocation"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindParameter:
		return ErrParameter
	case KindIndex:
		return ErrIndex
	case KindAllocation:
		return ErrAllocation
	default:
		return ErrInternal
	}
}

// Error describes a failed rope operation.
type Error struct {
	Op   string // Operation name (e.g., "insert", "split")
	Kind Kind
	Err  error // Detail
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("rope %s: %v", e.Op, e.Kind.sentinel())
	}
	return fmt.Sprintf("rope %s: %v: %v", e.Op, e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrParameter:
		return e.Kind == KindParameter || e.Kind == KindIndex
	case ErrIndex:
		return e.Kind == KindIndex
	case ErrAllocation:
		return e.Kind == KindAllocation
	case ErrInternal:
		return e.Kind == KindInternal
	}
	return false
}

// KindOf returns the kind of a rope error, or 0 if err is not one.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

func paramError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindParameter, Err: errors.Newf(format, args...)}
}

func indexError(op string, k, length int) error {
	return &Error{Op: op, Kind: KindIndex, Err: errors.Newf("index %d, length %d", k, length)}
}

func allocError(op string, cause error) error {
	return &Error{Op: op, Kind: KindAllocation, Err: cause}
}

func internalError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindInternal, Err: errors.AssertionFailedf(format, args...)}
}

// errConsumed is returned for any use of a handle whose tree has moved.
func errConsumed(op string) error {
	return paramError(op, "rope consumed")
}

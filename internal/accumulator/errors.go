package accumulator

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected submission.
type Kind int

const (
	KindValueTooLarge Kind = iota + 1
	KindOverflow
)

func (k Kind) String() string {
	switch k {
	case KindValueTooLarge:
		return "value_too_large"
	case KindOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

var (
	// ErrValueTooLarge matches submissions above the ceiling.
	ErrValueTooLarge = errors.New("value exceeds max value")
	// ErrOverflow matches submissions whose sum would not fit in a uint32.
	ErrOverflow = errors.New("total would overflow")
)

// SubmitError describes a rejected submission. No state changed.
type SubmitError struct {
	Kind  Kind
	Value uint32
	Max   uint32
	// Total is the stored total at rejection time (overflow only).
	Total uint32
}

func (e *SubmitError) Error() string {
	switch e.Kind {
	case KindValueTooLarge:
		return fmt.Sprintf("value %d exceeds max value %d", e.Value, e.Max)
	case KindOverflow:
		return fmt.Sprintf("adding %d to total %d would overflow", e.Value, e.Total)
	default:
		return "submission rejected"
	}
}

// Is lets errors.Is match the sentinel for the error's kind.
func (e *SubmitError) Is(target error) bool {
	switch e.Kind {
	case KindValueTooLarge:
		return target == ErrValueTooLarge
	case KindOverflow:
		return target == ErrOverflow
	}
	return false
}

// KindOf returns the Kind of err, or 0 if err is not a SubmitError.
func KindOf(err error) Kind {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

package lookup

import (
	"context"
	"errors"

	"github.com/entrhq/postal-lookup/pkg/browser"
)

// Kind represents the category of a lookup failure.
type Kind int

const (
	// KindUnknownFault is any engine failure without a more specific kind.
	KindUnknownFault Kind = iota
	// KindInvalidArguments indicates incomplete input.
	KindInvalidArguments
	// KindSelectionFailed indicates an autocomplete value was never confirmed.
	KindSelectionFailed
	// KindFillMismatch indicates a plain input did not echo its value.
	KindFillMismatch
	// KindTimeout indicates a navigation, wait or poll bound was exceeded.
	KindTimeout
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalidArguments:
		return "InvalidArguments"
	case KindSelectionFailed:
		return "SelectionFailed"
	case KindFillMismatch:
		return "FillMismatch"
	case KindTimeout:
		return "Timeout"
	default:
		return "UnknownFault"
	}
}

// Error is a lookup failure with a Kind.
type Error struct {
	Kind    Kind
	Label   string // field the failure relates to (optional)
	Message string
	Err     error // underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Typed errors keep their kind; browser and context
// deadlines are timeouts; everything else is an unknown fault.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, browser.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknownFault
}

package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Run matches exactly one of these via
// errors.Is.
var (
	ErrConnect = errors.New("connect error")
	ErrRead    = errors.New("read error")
	ErrDecode  = errors.New("decode error")
	ErrCompute = errors.New("compute error")
	ErrWrite   = errors.New("write error")
)

var kinds = []error{ErrConnect, ErrRead, ErrDecode, ErrCompute, ErrWrite}

// StageError attaches an error kind to the failure of a pipeline stage.
type StageError struct {
	Kind error
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Fail wraps err as a StageError of the given kind.
func Fail(kind, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: kind, Err: err}
}

// KindOf returns a short label for the kind of err ("connect", "read",
// "decode", "compute", "write"), or "unknown".
func KindOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		for _, k := range kinds {
			if se.Kind == k {
				return label(k)
			}
		}
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return label(k)
		}
	}
	return "unknown"
}

func label(kind error) string {
	switch kind {
	case ErrConnect:
		return "connect"
	case ErrRead:
		return "read"
	case ErrDecode:
		return "decode"
	case ErrCompute:
		return "compute"
	case ErrWrite:
		return "write"
	default:
		return "unknown"
	}
}

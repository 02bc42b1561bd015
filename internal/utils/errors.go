package utils

import "fmt"

// AlignError wraps a failed alignment operation with the clock side it concerns.
type AlignError struct {
	Op   string
	Side string
	Msg  string
	Err  error
}

func (e *AlignError) Error() string {
	prefix := e.Op
	if e.Side != "" {
		prefix = fmt.Sprintf("%s [%s]", e.Op, e.Side)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
}

func (e *AlignError) Unwrap() error {
	return e.Err
}

// NewAlignError constructs an AlignError.
func NewAlignError(op, side, msg string, err error) error {
	return &AlignError{Op: op, Side: side, Msg: msg, Err: err}
}

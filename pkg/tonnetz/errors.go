package tonnetz

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes transformation errors
type ErrorCode string

const (
	// CodeInvalidOperator: unrecognized letter or malformed qualifier
	CodeInvalidOperator ErrorCode = "INVALID_OPERATOR"

	// CodeInvalidChord: quality cannot be derived from the chord
	CodeInvalidChord ErrorCode = "INVALID_CHORD"

	// CodeCycleDidNotClose: cycle generation exceeded MaxCycleSteps
	CodeCycleDidNotClose ErrorCode = "CYCLE_DID_NOT_CLOSE"

	// CodeInvalidSpace: lattice steps out of range
	CodeInvalidSpace ErrorCode = "INVALID_SPACE"
)

// Error is returned by every failing operation in this package
type Error struct {
	Code    ErrorCode
	Message string
	Ops     string // operator string being evaluated, if any
	Chord   []int  // offending chord, if any
}

// Sentinels for errors.Is
var (
	ErrInvalidOperator  = &Error{Code: CodeInvalidOperator}
	ErrInvalidChord     = &Error{Code: CodeInvalidChord}
	ErrCycleDidNotClose = &Error{Code: CodeCycleDidNotClose}
	ErrInvalidSpace     = &Error{Code: CodeInvalidSpace}
)

func newError(code ErrorCode, msg, ops string, chord []int) *Error {
	var c []int
	if chord != nil {
		c = append(c, chord...)
	}
	return &Error{Code: code, Message: msg, Ops: ops, Chord: c}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Ops != "" && e.Chord != nil:
		return fmt.Sprintf("%s: %s (ops=%q, chord=%v)", e.Code, e.Message, e.Ops, e.Chord)
	case e.Ops != "":
		return fmt.Sprintf("%s: %s (ops=%q)", e.Code, e.Message, e.Ops)
	case e.Chord != nil:
		return fmt.Sprintf("%s: %s (chord=%v)", e.Code, e.Message, e.Chord)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// IsInvalidOperator reports whether err is an invalid operator error.
func IsInvalidOperator(err error) bool {
	return errors.Is(err, ErrInvalidOperator)
}

// IsInvalidChord reports whether err is an invalid chord error.
func IsInvalidChord(err error) bool {
	return errors.Is(err, ErrInvalidChord)
}

// IsCycleDidNotClose reports whether err is a cycle closure error.
func IsCycleDidNotClose(err error) bool {
	return errors.Is(err, ErrCycleDidNotClose)
}

package sigfile

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned for a type expression naming nothing known.
	ErrUnknownType = errors.New("unknown type")
	// ErrSyntax is returned for a malformed type expression.
	ErrSyntax = errors.New("syntax error")
	// ErrDuplicate is returned when a record, enum or signature name repeats.
	ErrDuplicate = errors.New("duplicate name")
	// ErrInvalidName is returned for names that cannot appear in the output.
	ErrInvalidName = errors.New("invalid name")
	// ErrTargetMissing is returned when neither the file nor the caller sets a triple.
	ErrTargetMissing = errors.New("missing [target].triple")
)

// Error locates a problem inside a signature file.
type Error struct {
	Path  string
	Where string // e.g. `signature "f" param 2`
	Err   error
}

func (e *Error) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Where, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

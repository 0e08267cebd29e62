package abi

import "fmt"

// InvariantError reports a broken internal consistency rule. It is raised
// with panic and means the lowering itself is wrong, not its input.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "abi invariant violated: " + e.Msg
}

func invariant(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}

// Fatal raises an InvariantError. Marshallers in other packages use it for
// the same class of failure.
func Fatal(format string, args ...any) {
	invariant(format, args...)
}

// RecoverInvariant converts a panicking InvariantError into an error stored
// in *err. Other panics are re-raised. Use as `defer abi.RecoverInvariant(&err)`.
func RecoverInvariant(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*InvariantError); ok {
		*err = ie
		return
	}
	panic(r)
}

package predicate

import "errors"

// CompileError reports malformed criteria: an unresolvable field reference,
// an unknown operator, or a value whose shape does not fit its operator. It
// is raised synchronously, before any execution attempt.
type CompileError struct {
	Message string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Err != nil {
		return "compile: " + e.Message + ": " + e.Err.Error()
	}
	return "compile: " + e.Message
}

func (e *CompileError) Unwrap() error { return e.Err }

// IsCompileErr returns true if err is or wraps a CompileError.
func IsCompileErr(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

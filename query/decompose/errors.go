package decompose

import "errors"

// DecompositionError reports rows that cannot be folded back into a tree,
// such as an origin row with a null primary key.
type DecompositionError struct {
	Message string
	Err     error
}

func (e *DecompositionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DecompositionError) Unwrap() error { return e.Err }

// IsDecompositionErr reports whether err is a DecompositionError.
func IsDecompositionErr(err error) bool {
	var de *DecompositionError
	return errors.As(err, &de)
}

package keys

import "errors"

// KeyError reports a field reference that cannot be tokenized or resolved
// against its source.
type KeyError struct {
	Key     string
	Message string
}

func (e *KeyError) Error() string {
	return "key " + e.Key + ": " + e.Message
}

// IsKeyErr returns true if err is or wraps a KeyError.
func IsKeyErr(err error) bool {
	var ke *KeyError
	return errors.As(err, &ke)
}

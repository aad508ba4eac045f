package statement

import "errors"

// ConfigurationError reports statement options that contradict each other or
// the target relation, such as keyset pagination without an order or writes
// against a view.
type ConfigurationError struct {
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsConfigurationErr reports whether err is a ConfigurationError.
func IsConfigurationErr(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

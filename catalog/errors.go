package catalog

import "errors"

// SchemaError reports a reference the catalog cannot satisfy: an unknown
// relation or alias, a missing or ambiguous foreign key, or a missing primary
// key where one is required.
type SchemaError struct {
	Message string
	Err     error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return "schema: " + e.Message + ": " + e.Err.Error()
	}
	return "schema: " + e.Message
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsSchemaErr returns true if err is or wraps a SchemaError.
func IsSchemaErr(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

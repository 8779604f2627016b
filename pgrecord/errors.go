package pgrecord

import "fmt"

// ArgumentError reports a caller-supplied argument that fails validation
// before any database interaction takes place.
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Name, e.Reason)
}

// ConstraintError reports table metadata that cannot support the requested
// operation, such as a delete against a table with no primary key. It is
// raised before any SQL is sent.
type ConstraintError struct {
	Schema string
	Table  string
	Reason string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Schema, e.Table, e.Reason)
}

// KeyNotFoundError reports a record missing a column key that the operation
// required a value for.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("record has no value for key %q", e.Key)
}

func validateName(name, value string) error {
	if value == "" {
		return &ArgumentError{Name: name, Reason: "must not be empty"}
	}
	return nil
}

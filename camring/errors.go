package camring

import "fmt"

// ConfigurationError is returned when ring parameters cannot describe a ring of cameras.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid camera ring %s %v: %s", e.Field, e.Value, e.Reason)
}

func newConfigurationError(field string, value interface{}, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

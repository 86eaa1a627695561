package classfile

import "fmt"

// MalformedInputError reports bytes that are not a valid class, or class data
// whose structure cannot be followed (for example a cyclic superclass chain).
type MalformedInputError struct {
	Class string // may be empty when the name could not be read
	Err   error
}

func (e *MalformedInputError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("malformed class: %v", e.Err)
	}
	return fmt.Sprintf("malformed class %s: %v", e.Class, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

func malformed(class string, format string, args ...any) error {
	return &MalformedInputError{Class: class, Err: fmt.Errorf(format, args...)}
}

package record

import (
	"errors"
	"fmt"
)

var ErrMalformedRow = errors.New("malformed row")

// ParseError describes a row that could not be turned into an event.
type ParseError struct {
	Line  int
	Field string
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
	}
	return fmt.Sprintf("line %d: field %s: %v: %q", e.Line, e.Field, e.Err, e.Text)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedRow, e.Err}
}

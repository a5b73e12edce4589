package ir

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is the sentinel matched by errors.Is for detection
// failures.
var ErrUnsupportedFormat = errors.New("unsupported format")

// UnsupportedFormatError reports that no format signature matched the input.
// Fatal: surfaced to the caller verbatim.
type UnsupportedFormatError struct {
	Hint string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Hint == "" {
		return "unsupported format: no known signature matched"
	}
	return fmt.Sprintf("unsupported format: %s", e.Hint)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// ErrMalformedSpec is the sentinel matched by errors.Is for parse-stage
// structural failures.
var ErrMalformedSpec = errors.New("malformed spec")

// MalformedSpecError wraps the underlying parser's failure. Fatal: a
// malformed document cannot partially succeed.
type MalformedSpecError struct {
	Format Format
	Cause  error
}

func (e *MalformedSpecError) Error() string {
	return fmt.Sprintf("malformed %s spec: %v", e.Format, e.Cause)
}

func (e *MalformedSpecError) Unwrap() error { return ErrMalformedSpec }

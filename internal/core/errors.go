package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile         = errors.New("empty file")
	ErrInvalidEncoding   = errors.New("encoding error: file is not valid UTF-8")
	ErrUnknownCleaningOp = errors.New("unknown cleaning operation")
	ErrNoFile            = errors.New("no file provided")
)

// Request-level failures raised by the transports. They carry no detail of
// their own and are wrapped with the specifics.
var (
	ErrFileTooLarge = errors.New("file too large")
	ErrTooManyFiles = errors.New("too many files")
	ErrBadRequest   = errors.New("invalid request")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// UnsupportedFormatError is returned for file extensions or export formats
// the codec does not handle.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return "unsupported format: file has no extension"
	}
	return fmt.Sprintf("unsupported format %q", e.Extension)
}

// DecodeError is returned when a file's bytes cannot be parsed as the
// format its extension declares.
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError is returned when a dataset cannot be serialized.
type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// EmptyNumericColumnError reports a column that has no values to average.
type EmptyNumericColumnError struct {
	Column string
}

func (e *EmptyNumericColumnError) Error() string {
	return fmt.Sprintf("empty numeric column %q: no values to compute a mean from", e.Column)
}

// UnknownColumnError reports a projection request naming a column the
// dataset does not have.
type UnknownColumnError struct {
	Name string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Name)
}

// InvalidTransitionError is returned when a pipeline operation is not
// allowed from the unit's current stage.
type InvalidTransitionError struct {
	From   Stage
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid pipeline transition: cannot %s from stage %s", e.Action, e.From)
}

// EmptyColumns returns the names of every EmptyNumericColumnError in err,
// including errors joined with errors.Join.
func EmptyColumns(err error) []string {
	var names []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if e, ok := err.(*EmptyNumericColumnError); ok {
			names = append(names, e.Column)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return names
}

// IsWarning reports whether err only carries empty numeric column errors,
// which leave the dataset usable.
func IsWarning(err error) bool {
	if err == nil {
		return false
	}
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range u.Unwrap() {
			if !IsWarning(inner) {
				return false
			}
		}
		return true
	}
	var empty *EmptyNumericColumnError
	return errors.As(err, &empty)
}

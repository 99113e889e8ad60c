package types

import (
	"errors"
	"fmt"
)

var (
	ErrDataNotFound  = errors.New("data not found")
	ErrInvalidFormat = errors.New("invalid format")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// SourceError wraps a failure inside one source parser. Parsers never
// return these for per-record problems (those are skipped); only a
// whole-source failure that the caller may want to report carries one.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// LoaderError wraps a file-level read failure with its path.
type LoaderError struct {
	Path string
	Err  error
}

func (e LoaderError) Error() string {
	return fmt.Sprintf("failed to load from %s: %v", e.Path, e.Err)
}

func (e LoaderError) Unwrap() error {
	return e.Err
}

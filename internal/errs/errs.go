// Package errs defines the error domain type shared across rtx's core
// pipeline.
package errs

import (
	"errors"
	"strings"
)

// Error is the rtx error domain type.
//
// Errors coming from rtx components should be able to be inspected as
// ([errors.As]) an *Error at some point in the error chain. Components
// should create an Error at the system boundary (a failed HTTP call, a
// malformed manifest) and intermediate layers should prefer fmt.Errorf
// with a "%w" verb over wrapping in another Error, except to add
// additional [ErrorKind] information.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrManifestNotFound, ErrAdvisoryService, ErrReportRendering, ErrUsage, ErrManifestParse:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is].
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents a class of error produced by the core pipeline.
type ErrorKind string

// Defined error kinds, one per taxonomy entry.
var (
	// ErrManifestNotFound means no scanner produced a dependency (CLI exit 3).
	ErrManifestNotFound = ErrorKind("manifest not found")
	// ErrAdvisoryService means the advisory lookup infrastructure failed.
	ErrAdvisoryService = ErrorKind("advisory service")
	// ErrReportRendering means a renderer was misconfigured or a template failed.
	ErrReportRendering = ErrorKind("report rendering")
	// ErrUsage means the caller named an unknown manager (CLI usage error).
	ErrUsage = ErrorKind("usage")
	// ErrManifestParse means a scanner failed to parse one manifest; the
	// manifest is skipped and this is logged, never propagated past the
	// scanner boundary.
	ErrManifestParse = ErrorKind("manifest parse")
)

// Error implements error.
func (e ErrorKind) Error() string {
	return string(e)
}

// Package errors defines the failure taxonomy shared by the converter, its
// input readers, the ledger and the CLI.
//
// Every typed error unwraps to one of four sentinels, so callers can branch
// on the class of failure with Is and still recover details with As:
//
//	ErrInvalidInput   the manifest or a path cannot be used as given
//	ErrNotFound       a ledger record or archived manifest is missing
//	ErrNotConverted   a save was requested before a conversion succeeded
//	ErrUnsupported    an input encoding the reader does not handle
//
// IOError is the exception: it unwraps to the operating system error.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotConverted = errors.New("no converted manifest")
	ErrUnsupported  = errors.New("unsupported")
)

// NotFoundError names a missing ledger record, archive blob or database.
type NotFoundError struct {
	Resource string // "conversion", "ledger", ...
	ID       string // digest or path that was looked up
	Err      error
}

// NewNotFound returns a NotFoundError that unwraps to ErrNotFound.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError rejects a value before any work is done on it: an
// oversized manifest, a ledger record without digests, colliding batch
// outputs.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

// NewValidation returns a ValidationError that unwraps to ErrInvalidInput.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// TypeError reports a JSON value of the wrong kind, such as a manifest
// whose top level is an array.
type TypeError struct {
	Subject  string
	Expected string
	Got      string
}

// NewType returns a TypeError. It always unwraps to ErrInvalidInput.
func NewType(subject, expected, got string) *TypeError {
	return &TypeError{Subject: subject, Expected: expected, Got: got}
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s must be a JSON %s, got %s", e.Subject, e.Expected, e.Got)
}

func (e *TypeError) Unwrap() error {
	return ErrInvalidInput
}

// IOError wraps a filesystem failure with the step that hit it
// ("open", "read", "create", "replace", ...).
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError reports bytes that are not valid in their declared encoding:
// malformed JSON, a corrupt xz or gzip stream, or content that matches no
// known manifest encoding.
type ParseError struct {
	Format  string // "JSON", "manifest", "xz", "gzip"
	Path    string
	Message string
	Err     error
}

// NewParse returns a ParseError that unwraps to ErrInvalidInput.
func NewParse(format, path, message string) *ParseError {
	return &ParseError{Format: format, Path: path, Message: message}
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// UnsupportedError reports a manifest encoding the reader recognizes but
// cannot decode.
type UnsupportedError struct {
	Feature string
	Reason  string
	Err     error
}

func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Wrap prefixes err with message, keeping it matchable. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is and As re-export the standard library functions so callers importing
// this package under the name errors need no second import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the error taxonomy shared by the domain packages.
// Packages declare their own sentinels wrapping ErrNotFound or ErrConflict
// so callers can branch with errors.Is at either granularity.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every "X not found" sentinel.
	ErrNotFound = errors.New("not found")

	// ErrConflict is wrapped by errors caused by the current state of an
	// entity rather than by the request itself.
	ErrConflict = errors.New("conflict")
)

// ValidationError rejects input before any state changes.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid returns a ValidationError for field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

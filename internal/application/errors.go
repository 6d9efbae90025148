package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a reservation, period or equipment item does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrSlotExpired is returned when a slot start has already passed.
	ErrSlotExpired = errors.New("application: slot expired")
	// ErrSetupRequired is returned when an operation needs a configured store sheet.
	ErrSetupRequired = errors.New("application: setup required")
	// ErrInvalidCredentials is returned when a login attempt is rejected locally.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSnapshotUnavailable is returned before any snapshot has been loaded.
	ErrSnapshotUnavailable = errors.New("application: snapshot unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// errOrNil returns v as an error only when it has recorded issues.
func (v *ValidationError) errOrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create would duplicate an existing resource.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when password verification fails.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSelfGrant is returned when a user tries to grant or request access to their own calendar.
	ErrSelfGrant = errors.New("application: cannot grant access to yourself")
	// ErrPersonalDomain is returned when a domain grant targets a consumer email provider.
	ErrPersonalDomain = errors.New("application: personal email domains cannot be granted")
	// ErrRequestClosed is returned when acting on a request that is no longer pending.
	ErrRequestClosed = errors.New("application: request is no longer pending")
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
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

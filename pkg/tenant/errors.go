package tenant

import (
	"errors"
	"fmt"
	"strings"
)

// ErrContextMissing indicates no organization or user could be resolved for
// the current request.
var ErrContextMissing = errors.New("tenant context missing")

// PermissionDeniedError indicates a capability check failed.
type PermissionDeniedError struct {
	Capability string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Capability)
}

// IsPermissionDenied reports whether err is a permission failure.
func IsPermissionDenied(err error) bool {
	var pd *PermissionDeniedError
	return errors.As(err, &pd)
}

// NotFoundError indicates a requested entity does not exist within the
// caller's partition.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsNotFound reports whether err is a missing-entity failure.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError indicates malformed or policy-violating input. The
// messages are safe to surface to end users.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ExternalError wraps a downstream network failure (integration probe,
// webhook delivery, sync). The wrapped error carries retry detail; Error()
// stays free of internals so it can be shown to users.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// IsExternal reports whether err is a downstream failure.
func IsExternal(err error) bool {
	var ee *ExternalError
	return errors.As(err, &ee)
}

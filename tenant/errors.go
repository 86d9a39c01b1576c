package tenant

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input. It is raised before any storage
// access takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports that a unique tenant attribute is already taken.
// The catalog is left unchanged.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("tenant with %s %q already exists", e.Field, e.Value)
}

// NotFoundError reports an unknown tenant.
type NotFoundError struct {
	Key   string
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tenant with %s %q not found", e.Key, e.Value)
}

// ProvisioningError reports a failure while building a tenant. When it is
// returned nothing of the tenant remains: no catalog row and no schema.
type ProvisioningError struct {
	Subdomain string
	Step      string
	Err       error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning tenant %q failed at %s: %v", e.Subdomain, e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// PermissionError reports an attempt to change a privileged field without
// elevated access.
type PermissionError struct {
	Field string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("changing %s requires elevated access", e.Field)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsProvisioning(err error) bool {
	var target *ProvisioningError
	return errors.As(err, &target)
}

func IsPermission(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

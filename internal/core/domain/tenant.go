package domain

import (
	"fmt"
	"strings"
)

// TenantID scopes every tracking store read and write.
type TenantID string

// DefaultTenant is used by the CLI when no tenant is configured.
const DefaultTenant TenantID = "default"

// Validate returns ErrTenantRequired for an empty or blank tenant.
func (t TenantID) Validate() error {
	if strings.TrimSpace(string(t)) == "" {
		return ErrTenantRequired
	}
	if strings.ContainsAny(string(t), " \t\n") {
		return fmt.Errorf("%w: tenant %q contains whitespace", ErrInvalidInput, string(t))
	}
	return nil
}

// String returns the string representation.
func (t TenantID) String() string {
	return string(t)
}

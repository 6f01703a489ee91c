// Package repository loads route guard policies.
package repository

import (
	"context"

	"mis-dashboard/backend/internal/policy/domain"
)

// Repository supplies the route guard's Rego modules.
type Repository interface {
	// EnabledPolicies returns the enabled modules. An empty result means "use the built-in policy".
	EnabledPolicies(ctx context.Context) ([]*domain.Policy, error)
}

package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleTechnician Role = "TECHNICIAN"
	RoleClient     Role = "CLIENT"
	RoleFinance    Role = "FINANCE"
	RoleHR         Role = "HR"
)

// ParseRole accepts a role token in any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician, RoleClient, RoleFinance, RoleHR:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// IsStaff reports whether r belongs to the admin/manager pool.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager
}

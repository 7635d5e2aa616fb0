package enums

import "fmt"

// Role is the caller role supplied by the external identity provider.
// The engine never verifies identity itself; it only gates privileged
// operations on the role claim.
type Role string

const (
	RoleUser       Role = "user"
	RoleSupport    Role = "support"
	RoleSuperadmin Role = "superadmin"
)

var validRoles = []Role{
	RoleUser,
	RoleSupport,
	RoleSuperadmin,
}

// IsValid reports whether the role is recognized.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the role may decide deposits and withdrawals.
func (r Role) IsPrivileged() bool {
	return r == RoleSupport || r == RoleSuperadmin
}

// ParseRole converts raw input into Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

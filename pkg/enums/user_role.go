package enums

// UserRole is carried in access tokens. Only the admin role unlocks the
// catalog and order management routes.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

func (r UserRole) String() string { return string(r) }

// RoleFor maps the users.is_admin column onto a role.
func RoleFor(isAdmin bool) UserRole {
	if isAdmin {
		return UserRoleAdmin
	}
	return UserRoleCustomer
}

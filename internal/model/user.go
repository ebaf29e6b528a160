package model

// Role is decided at authentication time and immutable for the session.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// CanOrderAnyItem reports whether the role may order items that are not in
// the currently-available set.
func (r Role) CanOrderAnyItem() bool { return r == RoleAdmin }

// CanManageCatalog reports whether the role may set authoritative prices and
// availability.
func (r Role) CanManageCatalog() bool { return r == RoleAdmin }

// SeesAllOrders reports whether the role bypasses ownership filters when
// listing orders.
func (r Role) SeesAllOrders() bool { return r == RoleAdmin }

// UserProfile identifies the caller of an ingestion or ledger operation.
// Address, when set, is the member's default delivery address.
type UserProfile struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Address  string `json:"address,omitempty"`
}

// User is the stored account record. The password hash is a bcrypt digest
// for registered members; the admin account is configured, not stored.
type User struct {
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	Address      string `json:"address,omitempty"`
	PasswordHash []byte `json:"passwordHash"`
}

// Profile returns the session-facing view of the account.
func (u User) Profile() UserProfile {
	return UserProfile{Username: u.Username, Role: u.Role, Address: u.Address}
}

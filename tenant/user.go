package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Role is the role of a user inside a tenant schema.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEditor   Role = "editor"
	RoleAuthor   Role = "author"
	RoleReviewer Role = "reviewer"
)

// Roles returns all roles accepted by the users table.
func Roles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleAuthor, RoleReviewer}
}

// UserStatus is the account status of a tenant user.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

// User is a row of a tenant's users table.
type User struct {
	ID        int64      `db:"id" json:"id"`
	TenantID  uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	Email     string     `db:"email" json:"email"`
	Name      string     `db:"name" json:"name"`
	Role      Role       `db:"role" json:"role"`
	Status    UserStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

package models

import "os"

// AuthorizationPolicy decides whether an authenticated identity may perform
// privileged journal operations (edit, delete, renumber trigger). The
// production policy is a single admin-email equality check, injected once at
// startup instead of repeating the comparison at every boundary.
type AuthorizationPolicy interface {
	IsAdmin(email string) bool
}

type adminEmailPolicy struct {
	admin string
}

func (p adminEmailPolicy) IsAdmin(email string) bool {
	return email != "" && email == p.admin
}

// NewAdminEmailPolicy builds the single-admin policy.
func NewAdminEmailPolicy(adminEmail string) AuthorizationPolicy {
	return adminEmailPolicy{admin: adminEmail}
}

// PolicyFromEnv reads ADMIN_EMAIL, defaulting to the account the legacy
// system shipped with.
func PolicyFromEnv() AuthorizationPolicy {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@gmail.com"
	}
	return NewAdminEmailPolicy(email)
}

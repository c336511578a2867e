package model

import "time"

// Platform roles gate what an operator may do in the portal.
const (
	PlatformRoleAdmin = "admin"
	PlatformRoleQC    = "qc"
	PlatformRoleQA    = "qa"
)

// PlatformUser is an operator account of the portal itself, distinct
// from the Account directory of managed-host logins.
type PlatformUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ValidPlatformRole(role string) bool {
	return role == PlatformRoleAdmin || role == PlatformRoleQC || role == PlatformRoleQA
}

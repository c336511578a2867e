package model

import "time"

// Role is a named workstation role from the catalog. Names are unique
// case-insensitively; roles are created on demand by name.
type Role struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

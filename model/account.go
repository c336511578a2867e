package model

import "time"

// Account is the canonical identity record for a person's login,
// independent of any specific system. Accounts are created lazily the
// first time a login name is referenced and are never deleted by the
// disable flows.
type Account struct {
	ID          string    `json:"id"`
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AccountSearchCriteria struct {
	Login       string `json:"login,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

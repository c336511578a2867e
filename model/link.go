package model

import "time"

// LinkKind discriminates the two access-link variants. A computer link
// carries a free-text role label; a workstation link references a Role
// from the catalog.
type LinkKind string

const (
	LinkKindComputer    LinkKind = "computer"
	LinkKindWorkstation LinkKind = "workstation"
)

func (k LinkKind) Valid() bool {
	return k == LinkKindComputer || k == LinkKindWorkstation
}

// AccessLink grants a role to an Account on a specific System. The two
// kinds share the same lifecycle; Role holds the free-text label for
// computer links and the catalog role's name for workstation links,
// where RoleID additionally points at the catalog entry.
type AccessLink struct {
	ID        string    `json:"id"`
	Kind      LinkKind  `json:"kind"`
	SystemID  string    `json:"system_id"`
	AccountID string    `json:"account_id"`
	Role      string    `json:"role"`
	RoleID    string    `json:"role_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LinkDetail is the read view joined with the account and system names,
// used by listings and by the partial-disable snapshot builder.
type LinkDetail struct {
	AccessLink
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	SystemName  string `json:"system_name"`
}

// ImportSkip reports a batch-import line that was not applied.
type ImportSkip struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResult summarises a batch import: how many links were created
// and which lines were skipped, by line number.
type ImportResult struct {
	Created int          `json:"created"`
	Skipped []ImportSkip `json:"skipped,omitempty"`
}

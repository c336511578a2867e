package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// RequestKind tags the five change-request variants.
type RequestKind string

const (
	RequestKindAddAccount     RequestKind = "add_account"
	RequestKindDisableAccount RequestKind = "disable_account"
	RequestKindPartialDisable RequestKind = "partial_disable"
	RequestKindRoleChange     RequestKind = "role_change"
	RequestKindACSDeletion    RequestKind = "acs_deletion"
)

func (k RequestKind) Valid() bool {
	switch k {
	case RequestKindAddAccount, RequestKindDisableAccount, RequestKindPartialDisable,
		RequestKindRoleChange, RequestKindACSDeletion:
		return true
	}
	return false
}

// RequestStatus is the shared request lifecycle. A request is created
// pending and transitions exactly once to a terminal state.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusFailed    RequestStatus = "failed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusFailed || s == RequestStatusCancelled
}

// AddAccountPayload asks for a new account grant on one system. Either
// role field may be empty; each set field yields one link of that kind.
type AddAccountPayload struct {
	SystemID        string `json:"system_id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ComputerRole    string `json:"computer_role,omitempty"`
	WorkstationRole string `json:"workstation_role,omitempty"`
}

// DisableAccountPayload disables every link the account owns, on every
// system. Login and display name are carried for operator review.
type DisableAccountPayload struct {
	AccountID   string `json:"account_id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// LinkSnapshot is a point-in-time capture of one link at submission
// time, so approval acts on what the requester saw even if the live
// link has since changed.
type LinkSnapshot struct {
	LinkID     string   `json:"link_id"`
	Kind       LinkKind `json:"kind"`
	SystemName string   `json:"system_name"`
	Role       string   `json:"role"`
}

// PartialDisablePayload disables an explicit snapshot of links.
type PartialDisablePayload struct {
	DisplayName string         `json:"display_name"`
	Links       []LinkSnapshot `json:"links"`
}

// RoleChangePayload rewrites the role of one live link, matched by
// (system, account, kind, current role) at approval time.
type RoleChangePayload struct {
	SystemID    string   `json:"system_id"`
	AccountID   string   `json:"account_id"`
	Kind        LinkKind `json:"kind"`
	CurrentRole string   `json:"current_role"`
	NewRole     string   `json:"new_role"`
}

// ACSDeletionPayload removes a person from the external access-control
// system. It carries no local link data.
type ACSDeletionPayload struct {
	TargetID    string `json:"target_id"`
	DisplayName string `json:"display_name"`
}

// Request is the shared envelope for all five variants. Exactly one of
// the payload pointers is set, matching Kind.
type Request struct {
	ID            string        `json:"id"`
	Kind          RequestKind   `json:"kind"`
	Status        RequestStatus `json:"status"`
	RequestedBy   string        `json:"requested_by"`
	Reason        string        `json:"reason,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	DecidedBy     string        `json:"decided_by,omitempty"`
	DecidedAt     *time.Time    `json:"decided_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	AddAccount     *AddAccountPayload     `json:"add_account,omitempty"`
	DisableAccount *DisableAccountPayload `json:"disable_account,omitempty"`
	PartialDisable *PartialDisablePayload `json:"partial_disable,omitempty"`
	RoleChange     *RoleChangePayload     `json:"role_change,omitempty"`
	ACSDeletion    *ACSDeletionPayload    `json:"acs_deletion,omitempty"`
}

// EncodePayload serialises the variant payload matching the request kind.
func (r *Request) EncodePayload() (string, error) {
	var payload interface{}
	switch r.Kind {
	case RequestKindAddAccount:
		payload = r.AddAccount
	case RequestKindDisableAccount:
		payload = r.DisableAccount
	case RequestKindPartialDisable:
		payload = r.PartialDisable
	case RequestKindRoleChange:
		payload = r.RoleChange
	case RequestKindACSDeletion:
		payload = r.ACSDeletion
	default:
		return "", fmt.Errorf("unknown request kind: %s", r.Kind)
	}
	if payload == nil {
		return "", fmt.Errorf("missing payload for request kind %s", r.Kind)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodePayload populates the variant payload field from its serialised
// form, dispatching on the request kind.
func (r *Request) DecodePayload(raw string) error {
	switch r.Kind {
	case RequestKindAddAccount:
		r.AddAccount = &AddAccountPayload{}
		return json.Unmarshal([]byte(raw), r.AddAccount)
	case RequestKindDisableAccount:
		r.DisableAccount = &DisableAccountPayload{}
		return json.Unmarshal([]byte(raw), r.DisableAccount)
	case RequestKindPartialDisable:
		r.PartialDisable = &PartialDisablePayload{}
		return json.Unmarshal([]byte(raw), r.PartialDisable)
	case RequestKindRoleChange:
		r.RoleChange = &RoleChangePayload{}
		return json.Unmarshal([]byte(raw), r.RoleChange)
	case RequestKindACSDeletion:
		r.ACSDeletion = &ACSDeletionPayload{}
		return json.Unmarshal([]byte(raw), r.ACSDeletion)
	}
	return fmt.Errorf("unknown request kind: %s", r.Kind)
}

// DisableSubmission reports the outcome of a disable-by-display-name
// fan-out: one request per matched account, minus accounts that already
// had one pending.
type DisableSubmission struct {
	Created    int      `json:"created"`
	Skipped    int      `json:"skipped"`
	RequestIDs []string `json:"request_ids,omitempty"`
}

type RequestSearchCriteria struct {
	Kind        RequestKind   `json:"kind,omitempty"`
	Status      RequestStatus `json:"status,omitempty"`
	RequestedBy string        `json:"requested_by,omitempty"`
	Limit       int           `json:"limit,omitempty"`
	Offset      int           `json:"offset,omitempty"`
}

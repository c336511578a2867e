// api/util/validation_util.go

package util

import (
	"fmt"
	"strings"

	"github.com/labops/labportal/api/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateAccount(account model.Account) error {
	if strings.TrimSpace(account.Login) == "" {
		return fmt.Errorf("account login cannot be empty")
	}
	if strings.TrimSpace(account.DisplayName) == "" {
		return fmt.Errorf("account display name cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateSystem(system model.System) error {
	if strings.TrimSpace(system.Code) == "" {
		return fmt.Errorf("system code cannot be empty")
	}
	if strings.TrimSpace(system.Name) == "" {
		return fmt.Errorf("system name cannot be empty")
	}
	if system.CheckIntervalDays < 0 {
		return fmt.Errorf("check interval cannot be negative")
	}
	if system.QACheckIntervalDays < 0 {
		return fmt.Errorf("QA check interval cannot be negative")
	}
	return nil
}

func (v *ValidationUtil) ValidateLink(link model.AccessLink) error {
	if !link.Kind.Valid() {
		return fmt.Errorf("link kind must be computer or workstation")
	}
	if link.SystemID == "" {
		return fmt.Errorf("link system ID cannot be empty")
	}
	if link.AccountID == "" {
		return fmt.Errorf("link account ID cannot be empty")
	}
	if strings.TrimSpace(link.Role) == "" {
		return fmt.Errorf("link role cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateRequest(request model.Request) error {
	if !request.Kind.Valid() {
		return fmt.Errorf("unknown request kind")
	}
	if request.RequestedBy == "" {
		return fmt.Errorf("request requester cannot be empty")
	}
	switch request.Kind {
	case model.RequestKindAddAccount:
		p := request.AddAccount
		if p == nil {
			return fmt.Errorf("add-account payload is required")
		}
		if strings.TrimSpace(p.Login) == "" {
			return fmt.Errorf("login cannot be empty")
		}
		if strings.TrimSpace(p.DisplayName) == "" {
			return fmt.Errorf("display name cannot be empty")
		}
		if p.SystemID == "" {
			return fmt.Errorf("target system is required")
		}
	case model.RequestKindDisableAccount:
		p := request.DisableAccount
		if p == nil {
			return fmt.Errorf("disable-account payload is required")
		}
		if p.AccountID == "" {
			return fmt.Errorf("target account is required")
		}
	case model.RequestKindPartialDisable:
		p := request.PartialDisable
		if p == nil {
			return fmt.Errorf("partial-disable payload is required")
		}
		if len(p.Links) == 0 {
			return fmt.Errorf("at least one link must be selected")
		}
	case model.RequestKindRoleChange:
		p := request.RoleChange
		if p == nil {
			return fmt.Errorf("role-change payload is required")
		}
		if p.SystemID == "" || p.AccountID == "" {
			return fmt.Errorf("target system and account are required")
		}
		if !p.Kind.Valid() {
			return fmt.Errorf("link kind must be computer or workstation")
		}
		if strings.TrimSpace(p.CurrentRole) == "" || strings.TrimSpace(p.NewRole) == "" {
			return fmt.Errorf("current and new role are required")
		}
	case model.RequestKindACSDeletion:
		p := request.ACSDeletion
		if p == nil {
			return fmt.Errorf("acs-deletion payload is required")
		}
		if strings.TrimSpace(p.TargetID) == "" {
			return fmt.Errorf("target ID is required")
		}
	}
	return nil
}

func (v *ValidationUtil) ValidateScript(script model.Script) error {
	if strings.TrimSpace(script.Name) == "" {
		return fmt.Errorf("script name cannot be empty")
	}
	if strings.TrimSpace(script.Body) == "" {
		return fmt.Errorf("script body cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateJob(job model.Job) error {
	if job.SystemID == "" {
		return fmt.Errorf("job system ID cannot be empty")
	}
	if job.ScriptID == "" {
		return fmt.Errorf("job script ID cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidatePlatformUser(user model.PlatformUser) error {
	if strings.TrimSpace(user.Username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if strings.TrimSpace(user.DisplayName) == "" {
		return fmt.Errorf("display name cannot be empty")
	}
	if !model.ValidPlatformRole(user.Role) {
		return fmt.Errorf("role must be one of admin, qc, qa")
	}
	return nil
}

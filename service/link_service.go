// api/service/link_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/util"
)

// ILinkService defines the interface for access-link operations
type ILinkService interface {
	CreateLink(ctx context.Context, link model.AccessLink, creatorID string) (*model.AccessLink, error)
	SetLinkActive(ctx context.Context, linkID string, active bool, updaterID string) error
	ListLinksBySystem(ctx context.Context, systemID string) ([]*model.LinkDetail, error)
	ListLinksByAccount(ctx context.Context, accountID string) ([]*model.LinkDetail, error)
	ImportLinks(ctx context.Context, systemID string, kind model.LinkKind, lines []string, importerID string) (*model.ImportResult, error)
}

// LinkService handles business logic for access links: the grants
// binding an account to a system under a role.
type LinkService struct {
	links           linkStore
	accounts        accountStore
	roles           roleStore
	systems         systemStore
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ ILinkService = &LinkService{}

// NewLinkService creates a new instance of LinkService
func NewLinkService(links linkStore, accounts accountStore, roles roleStore, systems systemStore, validationUtil *util.ValidationUtil, notificationSvc *util.NotificationService, eventBus *util.EventBus) *LinkService {
	return &LinkService{
		links:           links,
		accounts:        accounts,
		roles:           roles,
		systems:         systems,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}
}

// CreateLink grants one role to an account on a system. A link with the
// same (system, account, kind, role) key is rejected as a duplicate,
// whether it is currently active or not.
func (s *LinkService) CreateLink(ctx context.Context, link model.AccessLink, creatorID string) (*model.AccessLink, error) {
	if err := s.validationUtil.ValidateLink(link); err != nil {
		return nil, fmt.Errorf("invalid link: %w", err)
	}

	exists, err := s.links.DuplicateLinkExists(ctx, link.SystemID, link.AccountID, link.Kind, link.Role)
	if err != nil {
		logger.Error("Error checking for duplicate link", zap.Error(err), zap.String("systemID", link.SystemID))
		return nil, err
	}
	if exists {
		return nil, portal_errors.ErrDuplicateLink
	}

	if link.Kind == model.LinkKindWorkstation {
		role, err := s.roles.FindOrCreateRoleByName(ctx, link.Role)
		if err != nil {
			return nil, err
		}
		link.RoleID = role.ID
		link.Role = role.Name
	}

	linkID, err := s.links.CreateLink(ctx, link)
	if err != nil {
		logger.Error("Error creating link", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	link.ID = linkID
	link.Active = true

	logger.Info("Link created successfully",
		zap.String("linkID", linkID),
		zap.String("kind", string(link.Kind)),
		zap.String("creatorID", creatorID))
	return &link, nil
}

// SetLinkActive toggles one link on or off
func (s *LinkService) SetLinkActive(ctx context.Context, linkID string, active bool, updaterID string) error {
	updated, err := s.links.SetLinksActive(ctx, []string{linkID}, active)
	if err != nil {
		logger.Error("Error updating link", zap.Error(err), zap.String("linkID", linkID))
		return err
	}
	if updated == 0 {
		return portal_errors.ErrLinkNotFound
	}

	logger.Info("Link state changed",
		zap.String("linkID", linkID),
		zap.Bool("active", active),
		zap.String("updaterID", updaterID))
	return nil
}

// ListLinksBySystem returns the joined link view for one system
func (s *LinkService) ListLinksBySystem(ctx context.Context, systemID string) ([]*model.LinkDetail, error) {
	if _, err := s.systems.GetSystem(ctx, systemID); err != nil {
		return nil, err
	}
	return s.links.ListLinksBySystem(ctx, systemID)
}

// ListLinksByAccount returns the joined link view for one account
func (s *LinkService) ListLinksByAccount(ctx context.Context, accountID string) ([]*model.LinkDetail, error) {
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.links.ListLinksByAccount(ctx, accountID)
}

// ImportLinks applies a pasted batch of "login,display_name,role" lines
// against one system. Each well-formed line resolves its account and
// role through find-or-create and yields one link; malformed lines and
// duplicates are skipped and reported by line number. One bad line
// never aborts the rest of the batch.
func (s *LinkService) ImportLinks(ctx context.Context, systemID string, kind model.LinkKind, lines []string, importerID string) (*model.ImportResult, error) {
	if !kind.Valid() {
		return nil, portal_errors.ErrInvalidLinkData
	}
	if _, err := s.systems.GetSystem(ctx, systemID); err != nil {
		return nil, err
	}

	result := &model.ImportResult{}
	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		parts := strings.Split(trimmed, ",")
		if len(parts) != 3 {
			result.Skipped = append(result.Skipped, model.ImportSkip{
				Line:   lineNo,
				Reason: "expected 3 fields: login,display_name,role",
			})
			continue
		}

		login := strings.TrimSpace(parts[0])
		displayName := strings.TrimSpace(parts[1])
		roleName := strings.TrimSpace(parts[2])
		if login == "" || displayName == "" || roleName == "" {
			result.Skipped = append(result.Skipped, model.ImportSkip{
				Line:   lineNo,
				Reason: "empty field",
			})
			continue
		}

		account, err := s.accounts.FindOrCreateAccount(ctx, login, displayName)
		if err != nil {
			result.Skipped = append(result.Skipped, model.ImportSkip{
				Line:   lineNo,
				Reason: fmt.Sprintf("failed to resolve account: %v", err),
			})
			continue
		}

		exists, err := s.links.DuplicateLinkExists(ctx, systemID, account.ID, kind, roleName)
		if err != nil {
			result.Skipped = append(result.Skipped, model.ImportSkip{
				Line:   lineNo,
				Reason: fmt.Sprintf("failed to check for duplicate: %v", err),
			})
			continue
		}
		if exists {
			result.Skipped = append(result.Skipped, model.ImportSkip{
				Line:   lineNo,
				Reason: "link already exists",
			})
			continue
		}

		link := model.AccessLink{
			Kind:      kind,
			SystemID:  systemID,
			AccountID: account.ID,
			Role:      roleName,
		}
		if kind == model.LinkKindWorkstation {
			role, err := s.roles.FindOrCreateRoleByName(ctx, roleName)
			if err != nil {
				result.Skipped = append(result.Skipped, model.ImportSkip{
					Line:   lineNo,
					Reason: fmt.Sprintf("failed to resolve role: %v", err),
				})
				continue
			}
			link.RoleID = role.ID
			link.Role = role.Name
		}

		if _, err := s.links.CreateLink(ctx, link); err != nil {
			result.Skipped = append(result.Skipped, model.ImportSkip{
				Line:   lineNo,
				Reason: fmt.Sprintf("failed to create link: %v", err),
			})
			continue
		}
		result.Created++
	}

	logger.Info("Link import finished",
		zap.String("systemID", systemID),
		zap.String("kind", string(kind)),
		zap.Int("created", result.Created),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("importerID", importerID))
	return result, nil
}

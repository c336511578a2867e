// api/service/directory_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/util"
)

// IDirectoryService defines the interface for the account and role
// directory
type IDirectoryService interface {
	FindOrCreateAccount(ctx context.Context, login, displayName string) (*model.Account, error)
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (*model.Account, error)
	FindAccountsByDisplayName(ctx context.Context, displayName string) ([]*model.Account, error)
	ListAccounts(ctx context.Context, limit int, offset int) ([]*model.Account, error)
	SearchAccounts(ctx context.Context, criteria model.AccountSearchCriteria) ([]*model.Account, error)
	DeleteAccount(ctx context.Context, accountID string, deleterID string) error
	FindOrCreateRole(ctx context.Context, name string) (*model.Role, error)
	GetRole(ctx context.Context, roleID string) (*model.Role, error)
	ListRoles(ctx context.Context, limit int, offset int) ([]*model.Role, error)
}

// DirectoryService handles business logic for the shared identity
// directory: managed-host accounts and the workstation role catalog.
type DirectoryService struct {
	accounts        accountStore
	roles           roleStore
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IDirectoryService = &DirectoryService{}

// NewDirectoryService creates a new instance of DirectoryService
func NewDirectoryService(accounts accountStore, roles roleStore, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *DirectoryService {
	service := &DirectoryService{
		accounts:        accounts,
		roles:           roles,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("account.resolved", service.handleAccountResolved)
	eventBus.Subscribe("account.deleted", service.handleAccountDeleted)

	return service
}

func (s *DirectoryService) handleAccountResolved(ctx context.Context, event util.Event) error {
	account := event.Payload.(model.Account)
	logger.Info("Account resolved event received", zap.String("accountID", account.ID))

	if err := s.notificationSvc.NotifyAccountChange(ctx, "resolved", account); err != nil {
		logger.Warn("Failed to send account notification", zap.Error(err), zap.String("accountID", account.ID))
	}

	return nil
}

func (s *DirectoryService) handleAccountDeleted(ctx context.Context, event util.Event) error {
	accountID := event.Payload.(string)
	logger.Info("Account deleted event received", zap.String("accountID", accountID))

	if err := s.notificationSvc.NotifyAccountChange(ctx, "deleted", model.Account{ID: accountID}); err != nil {
		logger.Warn("Failed to send account notification", zap.Error(err), zap.String("accountID", accountID))
	}

	return nil
}

// FindOrCreateAccount resolves a login to its account, creating the
// account on first sight. The lookup is case-insensitive and an
// existing account keeps its original display name.
func (s *DirectoryService) FindOrCreateAccount(ctx context.Context, login, displayName string) (*model.Account, error) {
	if err := s.validationUtil.ValidateAccount(model.Account{Login: login, DisplayName: displayName}); err != nil {
		return nil, fmt.Errorf("invalid account: %w", err)
	}

	account, err := s.accounts.FindOrCreateAccount(ctx, login, displayName)
	if err != nil {
		logger.Error("Error resolving account", zap.Error(err), zap.String("login", login))
		return nil, err
	}

	// Update cache
	if err := s.cacheService.SetAccount(ctx, *account); err != nil {
		logger.Warn("Failed to cache account", zap.Error(err), zap.String("accountID", account.ID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "account.resolved", *account)

	return account, nil
}

// GetAccount retrieves an account by its ID
func (s *DirectoryService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	// Try to get from cache first
	cachedAccount, err := s.cacheService.GetAccount(ctx, accountID)
	if err == nil && cachedAccount != nil {
		return cachedAccount, nil
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrAccountNotFound) {
			return nil, portal_errors.ErrAccountNotFound
		}
		logger.Error("Error retrieving account", zap.Error(err), zap.String("accountID", accountID))
		return nil, portal_errors.ErrInternalServer
	}

	// Update cache
	if err := s.cacheService.SetAccount(ctx, *account); err != nil {
		logger.Warn("Failed to cache account", zap.Error(err), zap.String("accountID", accountID))
	}

	return account, nil
}

// GetAccountByLogin retrieves an account by login, case-insensitively
func (s *DirectoryService) GetAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	return s.accounts.GetAccountByLogin(ctx, login)
}

// FindAccountsByDisplayName returns every account matching a display
// name; names are not unique across the directory.
func (s *DirectoryService) FindAccountsByDisplayName(ctx context.Context, displayName string) ([]*model.Account, error) {
	return s.accounts.FindAccountsByDisplayName(ctx, displayName)
}

// ListAccounts retrieves all accounts, possibly with pagination
func (s *DirectoryService) ListAccounts(ctx context.Context, limit int, offset int) ([]*model.Account, error) {
	accounts, err := s.accounts.ListAccounts(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing accounts", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accounts, nil
}

// SearchAccounts searches for accounts by login or display name
func (s *DirectoryService) SearchAccounts(ctx context.Context, criteria model.AccountSearchCriteria) ([]*model.Account, error) {
	accounts, err := s.accounts.SearchAccounts(ctx, criteria)
	if err != nil {
		logger.Error("Error searching accounts", zap.Error(err))
		return nil, fmt.Errorf("failed to search accounts: %w", err)
	}

	return accounts, nil
}

// DeleteAccount handles the deletion of an account and its links
func (s *DirectoryService) DeleteAccount(ctx context.Context, accountID string, deleterID string) error {
	err := s.accounts.DeleteAccount(ctx, accountID)
	if err != nil {
		logger.Error("Error deleting account", zap.Error(err), zap.String("accountID", accountID), zap.String("deleterID", deleterID))
		return err
	}

	// Remove from cache
	if err := s.cacheService.DeleteAccount(ctx, accountID); err != nil {
		logger.Warn("Failed to delete account from cache", zap.Error(err), zap.String("accountID", accountID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "account.deleted", accountID)

	logger.Info("Account deleted successfully", zap.String("accountID", accountID), zap.String("deleterID", deleterID))
	return nil
}

// FindOrCreateRole resolves a workstation role name in the catalog,
// case-insensitively, creating it on first use.
func (s *DirectoryService) FindOrCreateRole(ctx context.Context, name string) (*model.Role, error) {
	role, err := s.roles.FindOrCreateRoleByName(ctx, name)
	if err != nil {
		logger.Error("Error resolving role", zap.Error(err), zap.String("name", name))
		return nil, err
	}

	return role, nil
}

// GetRole retrieves a role by its ID
func (s *DirectoryService) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	role, err := s.roles.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrRoleNotFound) {
			return nil, portal_errors.ErrRoleNotFound
		}
		logger.Error("Error retrieving role", zap.Error(err), zap.String("roleID", roleID))
		return nil, portal_errors.ErrInternalServer
	}

	return role, nil
}

// ListRoles retrieves the role catalog, possibly with pagination
func (s *DirectoryService) ListRoles(ctx context.Context, limit int, offset int) ([]*model.Role, error) {
	roles, err := s.roles.ListRoles(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing roles", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return roles, nil
}

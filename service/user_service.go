// api/service/user_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/util"
)

// IUserService defines the interface for portal operator management and
// authentication
type IUserService interface {
	CreateUser(ctx context.Context, user model.PlatformUser, password string, creatorID string) (*model.PlatformUser, error)
	UpdateUser(ctx context.Context, user model.PlatformUser, updaterID string) (*model.PlatformUser, error)
	ChangePassword(ctx context.Context, userID, newPassword string, changerID string) error
	DeleteUser(ctx context.Context, userID string, deleterID string) error
	GetUser(ctx context.Context, userID string) (*model.PlatformUser, error)
	ListUsers(ctx context.Context, limit int, offset int) ([]*model.PlatformUser, error)
	Authenticate(ctx context.Context, username, password string) (*model.PlatformUser, error)
}

// UserService handles business logic for the portal's own operator
// accounts, distinct from the managed-host account directory.
type UserService struct {
	users           platformUserStore
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IUserService = &UserService{}

// NewUserService creates a new instance of UserService
func NewUserService(users platformUserStore, validationUtil *util.ValidationUtil, notificationSvc *util.NotificationService, eventBus *util.EventBus) *UserService {
	service := &UserService{
		users:           users,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("platform_user.created", service.handleUserCreated)

	return service
}

func (s *UserService) handleUserCreated(ctx context.Context, event util.Event) error {
	user := event.Payload.(model.PlatformUser)
	logger.Info("Platform user created event received", zap.String("userID", user.ID))

	if err := s.notificationSvc.NotifyPlatformUserChange(ctx, "created", user); err != nil {
		logger.Warn("Failed to send platform user notification", zap.Error(err), zap.String("userID", user.ID))
	}

	return nil
}

// CreateUser registers a new operator with a hashed password
func (s *UserService) CreateUser(ctx context.Context, user model.PlatformUser, password string, creatorID string) (*model.PlatformUser, error) {
	if err := s.validationUtil.ValidatePlatformUser(user); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", portal_errors.ErrInvalidPlatformUserData)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Error hashing password", zap.Error(err))
		return nil, portal_errors.ErrInternalServer
	}
	user.PasswordHash = string(hash)
	user.Active = true

	userID, err := s.users.CreatePlatformUser(ctx, user)
	if err != nil {
		logger.Error("Error creating platform user", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	user.ID = userID
	user.PasswordHash = ""

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "platform_user.created", user)

	logger.Info("Platform user created successfully", zap.String("userID", userID), zap.String("creatorID", creatorID))
	return &user, nil
}

// UpdateUser updates an operator's profile, role or active flag. The
// store refuses to demote or deactivate the last active admin.
func (s *UserService) UpdateUser(ctx context.Context, user model.PlatformUser, updaterID string) (*model.PlatformUser, error) {
	if err := s.validationUtil.ValidatePlatformUser(user); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	updatedUser, err := s.users.UpdatePlatformUser(ctx, user)
	if err != nil {
		logger.Error("Error updating platform user", zap.Error(err), zap.String("userID", user.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	logger.Info("Platform user updated successfully", zap.String("userID", user.ID), zap.String("updaterID", updaterID))
	return updatedUser, nil
}

// ChangePassword replaces an operator's password
func (s *UserService) ChangePassword(ctx context.Context, userID, newPassword string, changerID string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", portal_errors.ErrInvalidPlatformUserData)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Error hashing password", zap.Error(err))
		return portal_errors.ErrInternalServer
	}

	if err := s.users.SetPassword(ctx, userID, string(hash)); err != nil {
		logger.Error("Error setting password", zap.Error(err), zap.String("userID", userID))
		return err
	}

	logger.Info("Platform user password changed", zap.String("userID", userID), zap.String("changerID", changerID))
	return nil
}

// DeleteUser removes an operator, unless doing so would strip the last
// active admin
func (s *UserService) DeleteUser(ctx context.Context, userID string, deleterID string) error {
	if err := s.users.DeletePlatformUser(ctx, userID); err != nil {
		logger.Error("Error deleting platform user", zap.Error(err), zap.String("userID", userID), zap.String("deleterID", deleterID))
		return err
	}

	logger.Info("Platform user deleted successfully", zap.String("userID", userID), zap.String("deleterID", deleterID))
	return nil
}

// GetUser retrieves an operator by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*model.PlatformUser, error) {
	user, err := s.users.GetPlatformUser(ctx, userID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrPlatformUserNotFound) {
			return nil, portal_errors.ErrPlatformUserNotFound
		}
		logger.Error("Error retrieving platform user", zap.Error(err), zap.String("userID", userID))
		return nil, portal_errors.ErrInternalServer
	}

	return user, nil
}

// ListUsers retrieves all operators
func (s *UserService) ListUsers(ctx context.Context, limit int, offset int) ([]*model.PlatformUser, error) {
	users, err := s.users.ListPlatformUsers(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing platform users", zap.Error(err))
		return nil, fmt.Errorf("failed to list platform users: %w", err)
	}

	return users, nil
}

// Authenticate verifies an operator's credentials. A wrong password, an
// unknown username and a deactivated account all look identical to the
// caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.PlatformUser, error) {
	user, err := s.users.GetPlatformUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, portal_errors.ErrPlatformUserNotFound) {
			return nil, portal_errors.ErrUnauthorized
		}
		logger.Error("Error retrieving platform user for login", zap.Error(err), zap.String("username", username))
		return nil, portal_errors.ErrInternalServer
	}
	if !user.Active {
		return nil, portal_errors.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Warn("Failed login attempt", zap.String("username", username))
		return nil, portal_errors.ErrUnauthorized
	}

	user.PasswordHash = ""
	return user, nil
}

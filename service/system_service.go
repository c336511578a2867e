// api/service/system_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/util"
)

// ISystemService defines the interface for managed-system operations
type ISystemService interface {
	CreateSystem(ctx context.Context, system model.System, creatorID string) (*model.System, error)
	UpdateSystem(ctx context.Context, system model.System, updaterID string) (*model.System, error)
	DeleteSystem(ctx context.Context, systemID string, deleterID string) error
	GetSystem(ctx context.Context, systemID string) (*model.System, error)
	ListSystems(ctx context.Context, limit int, offset int) ([]*model.System, error)
	RecordCheck(ctx context.Context, systemID string, qa bool, checkedAt time.Time, checkerID string) error
}

// SystemService handles business logic for the managed-system registry
type SystemService struct {
	systems         systemStore
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ ISystemService = &SystemService{}

// NewSystemService creates a new instance of SystemService
func NewSystemService(systems systemStore, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *SystemService {
	service := &SystemService{
		systems:         systems,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("system.created", service.handleSystemCreated)
	eventBus.Subscribe("system.updated", service.handleSystemUpdated)
	eventBus.Subscribe("system.deleted", service.handleSystemDeleted)

	return service
}

func (s *SystemService) handleSystemCreated(ctx context.Context, event util.Event) error {
	system := event.Payload.(model.System)
	logger.Info("System created event received", zap.String("systemID", system.ID))

	if err := s.notificationSvc.NotifySystemChange(ctx, "created", system); err != nil {
		logger.Warn("Failed to send system creation notification", zap.Error(err), zap.String("systemID", system.ID))
	}

	return nil
}

func (s *SystemService) handleSystemUpdated(ctx context.Context, event util.Event) error {
	system := event.Payload.(model.System)
	logger.Info("System updated event received", zap.String("systemID", system.ID))

	if err := s.notificationSvc.NotifySystemChange(ctx, "updated", system); err != nil {
		logger.Warn("Failed to send system update notification", zap.Error(err), zap.String("systemID", system.ID))
	}

	return nil
}

func (s *SystemService) handleSystemDeleted(ctx context.Context, event util.Event) error {
	systemID := event.Payload.(string)
	logger.Info("System deleted event received", zap.String("systemID", systemID))

	if err := s.notificationSvc.NotifySystemChange(ctx, "deleted", model.System{ID: systemID}); err != nil {
		logger.Warn("Failed to send system deletion notification", zap.Error(err), zap.String("systemID", systemID))
	}

	return nil
}

// CreateSystem handles the registration of a new managed system
func (s *SystemService) CreateSystem(ctx context.Context, system model.System, creatorID string) (*model.System, error) {
	if err := s.validationUtil.ValidateSystem(system); err != nil {
		return nil, fmt.Errorf("invalid system: %w", err)
	}

	system.CreatedAt = time.Now()
	system.UpdatedAt = time.Now()

	systemID, err := s.systems.CreateSystem(ctx, system)
	if err != nil {
		logger.Error("Error creating system", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	system.ID = systemID

	// Update cache
	if err := s.cacheService.SetSystem(ctx, system); err != nil {
		logger.Warn("Failed to cache system", zap.Error(err), zap.String("systemID", systemID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "system.created", system)

	logger.Info("System created successfully", zap.String("systemID", systemID), zap.String("creatorID", creatorID))
	return &system, nil
}

// UpdateSystem handles updates to an existing system
func (s *SystemService) UpdateSystem(ctx context.Context, system model.System, updaterID string) (*model.System, error) {
	if err := s.validationUtil.ValidateSystem(system); err != nil {
		return nil, fmt.Errorf("invalid system: %w", err)
	}

	updatedSystem, err := s.systems.UpdateSystem(ctx, system)
	if err != nil {
		logger.Error("Error updating system", zap.Error(err), zap.String("systemID", system.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	// Update cache
	if err := s.cacheService.SetSystem(ctx, *updatedSystem); err != nil {
		logger.Warn("Failed to update system in cache", zap.Error(err), zap.String("systemID", system.ID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "system.updated", *updatedSystem)

	logger.Info("System updated successfully", zap.String("systemID", system.ID), zap.String("updaterID", updaterID))
	return updatedSystem, nil
}

// DeleteSystem handles the removal of a system. Deletion is refused
// while access links or job history still reference it.
func (s *SystemService) DeleteSystem(ctx context.Context, systemID string, deleterID string) error {
	err := s.systems.DeleteSystem(ctx, systemID)
	if err != nil {
		logger.Error("Error deleting system", zap.Error(err), zap.String("systemID", systemID), zap.String("deleterID", deleterID))
		return err
	}

	// Remove from cache
	if err := s.cacheService.DeleteSystem(ctx, systemID); err != nil {
		logger.Warn("Failed to delete system from cache", zap.Error(err), zap.String("systemID", systemID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "system.deleted", systemID)

	logger.Info("System deleted successfully", zap.String("systemID", systemID), zap.String("deleterID", deleterID))
	return nil
}

// GetSystem retrieves a system by its ID
func (s *SystemService) GetSystem(ctx context.Context, systemID string) (*model.System, error) {
	// Try to get from cache first
	cachedSystem, err := s.cacheService.GetSystem(ctx, systemID)
	if err == nil && cachedSystem != nil {
		return cachedSystem, nil
	}

	system, err := s.systems.GetSystem(ctx, systemID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrSystemNotFound) {
			return nil, portal_errors.ErrSystemNotFound
		}
		logger.Error("Error retrieving system", zap.Error(err), zap.String("systemID", systemID))
		return nil, portal_errors.ErrInternalServer
	}

	// Update cache
	if err := s.cacheService.SetSystem(ctx, *system); err != nil {
		logger.Warn("Failed to cache system", zap.Error(err), zap.String("systemID", systemID))
	}

	return system, nil
}

// ListSystems retrieves the system registry, possibly with pagination
func (s *SystemService) ListSystems(ctx context.Context, limit int, offset int) ([]*model.System, error) {
	systems, err := s.systems.ListSystems(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing systems", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list systems: %w", err)
	}

	return systems, nil
}

// RecordCheck stamps a completed periodic or QA check on a system
func (s *SystemService) RecordCheck(ctx context.Context, systemID string, qa bool, checkedAt time.Time, checkerID string) error {
	if checkedAt.After(time.Now()) {
		return fmt.Errorf("check date cannot be in the future")
	}

	if err := s.systems.RecordCheck(ctx, systemID, qa, checkedAt); err != nil {
		logger.Error("Error recording check", zap.Error(err), zap.String("systemID", systemID), zap.Bool("qa", qa))
		return err
	}

	// The cached copy is stale once a check lands
	if err := s.cacheService.DeleteSystem(ctx, systemID); err != nil {
		logger.Warn("Failed to invalidate system cache", zap.Error(err), zap.String("systemID", systemID))
	}

	logger.Info("Check recorded",
		zap.String("systemID", systemID),
		zap.Bool("qa", qa),
		zap.String("checkerID", checkerID))
	return nil
}

// api/service/request_service.go
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

// IRequestService defines the interface for change-request submission
// and the read side of the request ledger
type IRequestService interface {
	SubmitAddAccount(ctx context.Context, payload model.AddAccountPayload, requesterID, reason string) (*model.Request, error)
	SubmitDisableByDisplayName(ctx context.Context, displayName, requesterID, reason string) (*model.DisableSubmission, error)
	SubmitPartialDisable(ctx context.Context, accountID string, linkIDs []string, requesterID, reason string) (*model.Request, error)
	SubmitRoleChange(ctx context.Context, payload model.RoleChangePayload, requesterID, reason string) (*model.Request, error)
	SubmitACSDeletion(ctx context.Context, payload model.ACSDeletionPayload, requesterID, reason string) (*model.Request, error)
	CancelRequest(ctx context.Context, requestID, cancellerID, cancellerRole string) error
	GetRequest(ctx context.Context, requestID string) (*model.Request, error)
	ListRequests(ctx context.Context, criteria model.RequestSearchCriteria) ([]*model.Request, error)
}

// RequestService handles business logic for submitting and reading
// change requests. Approval lives in the reconciliation service.
type RequestService struct {
	requests        requestStore
	accounts        accountStore
	systems         systemStore
	links           linkStore
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IRequestService = &RequestService{}

// NewRequestService creates a new instance of RequestService
func NewRequestService(requests requestStore, accounts accountStore, systems systemStore, links linkStore, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *RequestService {
	service := &RequestService{
		requests:        requests,
		accounts:        accounts,
		systems:         systems,
		links:           links,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("request.submitted", service.handleRequestSubmitted)

	return service
}

func (s *RequestService) handleRequestSubmitted(ctx context.Context, event util.Event) error {
	request := event.Payload.(model.Request)
	logger.Info("Request submitted event received", zap.String("requestID", request.ID))

	if err := s.notificationSvc.NotifyRequestChange(ctx, "submitted", request); err != nil {
		logger.Warn("Failed to send request notification", zap.Error(err), zap.String("requestID", request.ID))
	}

	return nil
}

// SubmitAddAccount queues an add-account request. A second pending
// request for the same login (case-insensitive) on the same system is
// rejected as a duplicate.
func (s *RequestService) SubmitAddAccount(ctx context.Context, payload model.AddAccountPayload, requesterID, reason string) (*model.Request, error) {
	request := model.Request{
		Kind:        model.RequestKindAddAccount,
		RequestedBy: requesterID,
		Reason:      reason,
		AddAccount:  &payload,
	}
	if err := s.validationUtil.ValidateRequest(request); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	if _, err := s.systems.GetSystem(ctx, payload.SystemID); err != nil {
		return nil, err
	}

	exists, err := s.requests.PendingAddAccountExists(ctx, payload.Login, payload.SystemID)
	if err != nil {
		logger.Error("Error checking for pending add-account request", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, portal_errors.ErrDuplicateRequest
	}

	return s.submit(ctx, request)
}

// SubmitDisableByDisplayName fans one disable intent out across every
// account carrying the display name: one request per account, skipping
// accounts that already have one pending. Matching zero accounts is an
// error; the requester almost certainly mistyped the name.
func (s *RequestService) SubmitDisableByDisplayName(ctx context.Context, displayName, requesterID, reason string) (*model.DisableSubmission, error) {
	accounts, err := s.accounts.FindAccountsByDisplayName(ctx, displayName)
	if err != nil {
		logger.Error("Error finding accounts by display name", zap.Error(err), zap.String("displayName", displayName))
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, portal_errors.ErrAccountNotFound
	}

	submission := &model.DisableSubmission{}
	seen := map[string]bool{}
	for _, account := range accounts {
		if seen[account.ID] {
			continue
		}
		seen[account.ID] = true

		pending, err := s.requests.PendingDisableExists(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		if pending {
			submission.Skipped++
			continue
		}

		request := model.Request{
			Kind:        model.RequestKindDisableAccount,
			RequestedBy: requesterID,
			Reason:      reason,
			DisableAccount: &model.DisableAccountPayload{
				AccountID:   account.ID,
				Login:       account.Login,
				DisplayName: account.DisplayName,
			},
		}
		created, err := s.submit(ctx, request)
		if err != nil {
			return nil, err
		}
		submission.Created++
		submission.RequestIDs = append(submission.RequestIDs, created.ID)
	}

	logger.Info("Disable requests submitted",
		zap.String("displayName", displayName),
		zap.Int("created", submission.Created),
		zap.Int("skipped", submission.Skipped),
		zap.String("requesterID", requesterID))
	return submission, nil
}

// SubmitPartialDisable snapshots the selected links at submission time
// so approval acts on exactly what the requester saw.
func (s *RequestService) SubmitPartialDisable(ctx context.Context, accountID string, linkIDs []string, requesterID, reason string) (*model.Request, error) {
	if len(linkIDs) == 0 {
		return nil, portal_errors.ErrInvalidRequestData
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	details, err := s.links.ListLinksByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	selected := map[string]bool{}
	for _, id := range linkIDs {
		selected[id] = true
	}

	var snapshots []model.LinkSnapshot
	for _, detail := range details {
		if !selected[detail.ID] {
			continue
		}
		snapshots = append(snapshots, model.LinkSnapshot{
			LinkID:     detail.ID,
			Kind:       detail.Kind,
			SystemName: detail.SystemName,
			Role:       detail.Role,
		})
	}
	if len(snapshots) == 0 {
		return nil, portal_errors.ErrLinkNotFound
	}

	request := model.Request{
		Kind:        model.RequestKindPartialDisable,
		RequestedBy: requesterID,
		Reason:      reason,
		PartialDisable: &model.PartialDisablePayload{
			DisplayName: account.DisplayName,
			Links:       snapshots,
		},
	}
	if err := s.validationUtil.ValidateRequest(request); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	return s.submit(ctx, request)
}

// SubmitRoleChange queues a role rewrite on one live link. The link is
// resolved again at approval time, not now.
func (s *RequestService) SubmitRoleChange(ctx context.Context, payload model.RoleChangePayload, requesterID, reason string) (*model.Request, error) {
	request := model.Request{
		Kind:        model.RequestKindRoleChange,
		RequestedBy: requesterID,
		Reason:      reason,
		RoleChange:  &payload,
	}
	if err := s.validationUtil.ValidateRequest(request); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	if _, err := s.systems.GetSystem(ctx, payload.SystemID); err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetAccount(ctx, payload.AccountID); err != nil {
		return nil, err
	}

	return s.submit(ctx, request)
}

// SubmitACSDeletion queues the removal of a person from the external
// access-control system.
func (s *RequestService) SubmitACSDeletion(ctx context.Context, payload model.ACSDeletionPayload, requesterID, reason string) (*model.Request, error) {
	request := model.Request{
		Kind:        model.RequestKindACSDeletion,
		RequestedBy: requesterID,
		Reason:      reason,
		ACSDeletion: &payload,
	}
	if err := s.validationUtil.ValidateRequest(request); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	return s.submit(ctx, request)
}

func (s *RequestService) submit(ctx context.Context, request model.Request) (*model.Request, error) {
	requestID, err := s.requests.CreateRequest(ctx, request)
	if err != nil {
		logger.Error("Error creating request", zap.Error(err), zap.String("kind", string(request.Kind)))
		return nil, err
	}

	request.ID = requestID
	request.Status = model.RequestStatusPending

	// Update cache
	if err := s.cacheService.SetRequest(ctx, request); err != nil {
		logger.Warn("Failed to cache request", zap.Error(err), zap.String("requestID", requestID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "request.submitted", request)

	logger.Info("Request submitted",
		zap.String("requestID", requestID),
		zap.String("kind", string(request.Kind)),
		zap.String("requestedBy", request.RequestedBy))
	return &request, nil
}

// CancelRequest withdraws a pending request. Only the original
// requester or an administrator may withdraw it. The row is kept with
// status cancelled; a request already decided cannot be cancelled.
func (s *RequestService) CancelRequest(ctx context.Context, requestID, cancellerID, cancellerRole string) error {
	request, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrRequestNotFound) {
			return portal_errors.ErrRequestNotFound
		}
		logger.Error("Error loading request for cancellation", zap.Error(err), zap.String("requestID", requestID))
		return portal_errors.ErrInternalServer
	}
	if request.RequestedBy != cancellerID && cancellerRole != model.PlatformRoleAdmin {
		logger.Warn("Cancellation denied",
			zap.String("requestID", requestID),
			zap.String("requestedBy", request.RequestedBy),
			zap.String("cancellerID", cancellerID))
		return portal_errors.ErrCancelNotAllowed
	}

	transitioned, err := s.requests.MarkStatus(ctx, requestID, model.RequestStatusPending, model.RequestStatusCancelled, "", cancellerID)
	if err != nil {
		logger.Error("Error cancelling request", zap.Error(err), zap.String("requestID", requestID))
		return err
	}
	if !transitioned {
		return portal_errors.ErrRequestAlreadyProcessed
	}

	// The cached copy is stale
	if err := s.cacheService.DeleteRequest(ctx, requestID); err != nil {
		logger.Warn("Failed to invalidate request cache", zap.Error(err), zap.String("requestID", requestID))
	}

	if request, err := s.requests.GetRequest(ctx, requestID); err == nil {
		if err := s.notificationSvc.NotifyRequestChange(ctx, "cancelled", *request); err != nil {
			logger.Warn("Failed to send cancellation notification", zap.Error(err), zap.String("requestID", requestID))
		}
	}

	logger.Info("Request cancelled", zap.String("requestID", requestID), zap.String("cancellerID", cancellerID))
	return nil
}

// GetRequest retrieves a request by its ID
func (s *RequestService) GetRequest(ctx context.Context, requestID string) (*model.Request, error) {
	// Try to get from cache first
	cachedRequest, err := s.cacheService.GetRequest(ctx, requestID)
	if err == nil && cachedRequest != nil {
		return cachedRequest, nil
	}

	request, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrRequestNotFound) {
			return nil, portal_errors.ErrRequestNotFound
		}
		logger.Error("Error retrieving request", zap.Error(err), zap.String("requestID", requestID))
		return nil, portal_errors.ErrInternalServer
	}

	return request, nil
}

// ListRequests retrieves requests matching the given criteria
func (s *RequestService) ListRequests(ctx context.Context, criteria model.RequestSearchCriteria) ([]*model.Request, error) {
	requests, err := s.requests.ListRequests(ctx, criteria)
	if err != nil {
		logger.Error("Error listing requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	return requests, nil
}

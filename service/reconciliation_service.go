// api/service/reconciliation_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/labops/labportal/api/acs"
	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/util"
)

// decisionLockTTL bounds how long a crashed approval can hold a request.
const decisionLockTTL = 30 * time.Second

// IReconciliationService defines the interface for deciding pending
// requests and reconciling their intent against the live data
type IReconciliationService interface {
	Approve(ctx context.Context, requestID, deciderID string) (*model.Request, error)
}

// ReconciliationService applies approved requests to the directory and
// link data. Mutations are written first and the status transition is a
// single conditional update, so a request observed in a terminal state
// has had its effect applied exactly once.
type ReconciliationService struct {
	requests        requestStore
	accounts        accountStore
	roles           roleStore
	links           linkStore
	acsClient       acsGateway
	locker          resourceLocker
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IReconciliationService = &ReconciliationService{}

// NewReconciliationService creates a new instance of ReconciliationService
func NewReconciliationService(requests requestStore, accounts accountStore, roles roleStore, links linkStore, acsClient acsGateway, locker resourceLocker, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *ReconciliationService {
	return &ReconciliationService{
		requests:        requests,
		accounts:        accounts,
		roles:           roles,
		links:           links,
		acsClient:       acsClient,
		locker:          locker,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}
}

// Approve decides one pending request. The request is locked for the
// duration of the decision; a request already in a terminal state is
// reported as processed, never decided twice.
func (s *ReconciliationService) Approve(ctx context.Context, requestID, deciderID string) (*model.Request, error) {
	locked, err := s.locker.Lock(ctx, "request:"+requestID, decisionLockTTL)
	if err != nil {
		logger.Error("Error acquiring decision lock", zap.Error(err), zap.String("requestID", requestID))
		return nil, portal_errors.ErrInternalServer
	}
	if !locked {
		return nil, portal_errors.ErrRequestAlreadyProcessed
	}
	defer func() {
		if err := s.locker.Unlock(ctx, "request:"+requestID); err != nil {
			logger.Warn("Failed to release decision lock", zap.Error(err), zap.String("requestID", requestID))
		}
	}()

	request, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status.Terminal() {
		return nil, portal_errors.ErrRequestAlreadyProcessed
	}

	start := time.Now()
	outcome, failureReason, err := s.apply(ctx, request)
	if err != nil {
		logger.Error("Error applying request",
			zap.Error(err),
			zap.String("requestID", requestID),
			zap.String("kind", string(request.Kind)))
		return nil, err
	}

	transitioned, err := s.requests.MarkStatus(ctx, requestID, model.RequestStatusPending, outcome, failureReason, deciderID)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		// A concurrent decision won the status write. The mutations
		// above are idempotent, so nothing was applied twice.
		return nil, portal_errors.ErrRequestAlreadyProcessed
	}

	// The cached copy is stale
	if err := s.cacheService.DeleteRequest(ctx, requestID); err != nil {
		logger.Warn("Failed to invalidate request cache", zap.Error(err), zap.String("requestID", requestID))
	}

	decided, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	changeType := "completed"
	if outcome == model.RequestStatusFailed {
		changeType = "failed"
	}
	if err := s.notificationSvc.NotifyRequestChange(ctx, changeType, *decided); err != nil {
		logger.Warn("Failed to send decision notification", zap.Error(err), zap.String("requestID", requestID))
	}
	s.eventBus.Publish(ctx, "request.decided", *decided)

	logger.Info("Request decided",
		zap.String("requestID", requestID),
		zap.String("kind", string(request.Kind)),
		zap.String("outcome", string(outcome)),
		zap.String("deciderID", deciderID),
		zap.Duration("duration", time.Since(start)))
	return decided, nil
}

// apply runs the variant-specific reconciliation and reports the
// terminal status the request should land in. A nil error with a failed
// status is an expected business outcome; an error means the decision
// itself could not run and the request stays pending.
func (s *ReconciliationService) apply(ctx context.Context, request *model.Request) (model.RequestStatus, string, error) {
	switch request.Kind {
	case model.RequestKindAddAccount:
		return s.applyAddAccount(ctx, request.AddAccount)
	case model.RequestKindDisableAccount:
		return s.applyDisableAccount(ctx, request.DisableAccount)
	case model.RequestKindPartialDisable:
		return s.applyPartialDisable(ctx, request.PartialDisable)
	case model.RequestKindRoleChange:
		return s.applyRoleChange(ctx, request.RoleChange)
	case model.RequestKindACSDeletion:
		return s.applyACSDeletion(ctx, request.ACSDeletion)
	}
	return "", "", fmt.Errorf("unknown request kind: %s", request.Kind)
}

// applyAddAccount resolves the account and grants each requested role.
// A link that already exists counts as success: the desired state is
// already there.
func (s *ReconciliationService) applyAddAccount(ctx context.Context, payload *model.AddAccountPayload) (model.RequestStatus, string, error) {
	account, err := s.accounts.FindOrCreateAccount(ctx, payload.Login, payload.DisplayName)
	if err != nil {
		return "", "", err
	}

	if payload.ComputerRole != "" {
		exists, err := s.links.DuplicateLinkExists(ctx, payload.SystemID, account.ID, model.LinkKindComputer, payload.ComputerRole)
		if err != nil {
			return "", "", err
		}
		if !exists {
			link := model.AccessLink{
				Kind:      model.LinkKindComputer,
				SystemID:  payload.SystemID,
				AccountID: account.ID,
				Role:      payload.ComputerRole,
			}
			if _, err := s.links.CreateLink(ctx, link); err != nil {
				return "", "", err
			}
		}
	}

	if payload.WorkstationRole != "" {
		exists, err := s.links.DuplicateLinkExists(ctx, payload.SystemID, account.ID, model.LinkKindWorkstation, payload.WorkstationRole)
		if err != nil {
			return "", "", err
		}
		if !exists {
			role, err := s.roles.FindOrCreateRoleByName(ctx, payload.WorkstationRole)
			if err != nil {
				return "", "", err
			}
			link := model.AccessLink{
				Kind:      model.LinkKindWorkstation,
				SystemID:  payload.SystemID,
				AccountID: account.ID,
				Role:      role.Name,
				RoleID:    role.ID,
			}
			if _, err := s.links.CreateLink(ctx, link); err != nil {
				return "", "", err
			}
		}
	}

	return model.RequestStatusCompleted, "", nil
}

// applyDisableAccount deactivates every active link the account owns,
// on every system. An account with nothing left to disable still
// completes.
func (s *ReconciliationService) applyDisableAccount(ctx context.Context, payload *model.DisableAccountPayload) (model.RequestStatus, string, error) {
	disabled, err := s.links.DisableLinksForAccount(ctx, payload.AccountID)
	if err != nil {
		return "", "", err
	}

	logger.Info("Account links disabled",
		zap.String("accountID", payload.AccountID),
		zap.Int("disabled", disabled))
	return model.RequestStatusCompleted, "", nil
}

// applyPartialDisable deactivates the links snapshotted at submission
// time. Links deleted since then are silently skipped.
func (s *ReconciliationService) applyPartialDisable(ctx context.Context, payload *model.PartialDisablePayload) (model.RequestStatus, string, error) {
	linkIDs := make([]string, 0, len(payload.Links))
	for _, snapshot := range payload.Links {
		linkIDs = append(linkIDs, snapshot.LinkID)
	}

	disabled, err := s.links.SetLinksActive(ctx, linkIDs, false)
	if err != nil {
		return "", "", err
	}

	logger.Info("Snapshot links disabled",
		zap.Int("requested", len(linkIDs)),
		zap.Int("disabled", disabled))
	return model.RequestStatusCompleted, "", nil
}

// applyRoleChange rewrites the role on the live link matching the
// request. The match is exact; if the link has been changed or disabled
// since submission the request fails with a persisted reason.
func (s *ReconciliationService) applyRoleChange(ctx context.Context, payload *model.RoleChangePayload) (model.RequestStatus, string, error) {
	link, err := s.links.FindActiveLink(ctx, payload.SystemID, payload.AccountID, payload.Kind, payload.CurrentRole)
	if err != nil {
		if errors.Is(err, portal_errors.ErrLinkNotFound) {
			reason := fmt.Sprintf("no active %s link with role %q", payload.Kind, payload.CurrentRole)
			return model.RequestStatusFailed, reason, nil
		}
		return "", "", err
	}

	if payload.Kind == model.LinkKindComputer {
		if err := s.links.SetComputerLinkRole(ctx, link.ID, payload.NewRole); err != nil {
			return "", "", err
		}
	} else {
		role, err := s.roles.FindOrCreateRoleByName(ctx, payload.NewRole)
		if err != nil {
			return "", "", err
		}
		if err := s.links.SetWorkstationLinkRole(ctx, link.ID, role.ID); err != nil {
			return "", "", err
		}
	}

	return model.RequestStatusCompleted, "", nil
}

// applyACSDeletion deletes the person from the external access-control
// database and maps the stored procedure's return status onto the
// request outcome. Any non-zero status fails the request with the
// vendor's message; an unreachable server is its own distinct failure.
func (s *ReconciliationService) applyACSDeletion(ctx context.Context, payload *model.ACSDeletionPayload) (model.RequestStatus, string, error) {
	code, err := s.acsClient.DeleteConsumer(ctx, payload.TargetID)
	if err != nil {
		logger.Error("Access-control deletion errored",
			zap.Error(err),
			zap.String("targetID", payload.TargetID),
			zap.Int("code", code))
		return model.RequestStatusFailed, acs.StatusMessage(code), nil
	}
	if code != acs.CodeOK {
		return model.RequestStatusFailed, acs.StatusMessage(code), nil
	}

	return model.RequestStatusCompleted, "", nil
}

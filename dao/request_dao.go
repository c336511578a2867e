// api/dao/request_dao.go
package dao

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/labops/labportal/api/audit"
	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
	portal_neo4j "github.com/labops/labportal/api/model/neo4j"
	helper_util "github.com/labops/labportal/api/util/helper"
)

type RequestDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewRequestDAO(driver neo4j.Driver, auditService audit.Service) *RequestDAO {
	dao := &RequestDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Request", zap.Error(err))
	}
	return dao
}

func (dao *RequestDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on Request")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `CREATE CONSTRAINT unique_request_id IF NOT EXISTS
		FOR (q:` + portal_neo4j.LabelRequest + `) REQUIRE q.id IS UNIQUE`
		if _, err := transaction.Run(query, nil); err != nil {
			return nil, err
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on Request", zap.Error(err))
		return err
	}

	return nil
}

func (dao *RequestDAO) CreateRequest(ctx context.Context, request model.Request) (string, error) {
	start := time.Now()
	logger.Info("Creating request", zap.String("kind", string(request.Kind)))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	payload, err := request.EncodePayload()
	if err != nil {
		logger.Error("Failed to encode request payload", zap.Error(err))
		return "", portal_errors.ErrInvalidRequestData
	}

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		CREATE (q:` + portal_neo4j.LabelRequest + ` {
			id: $id,
			kind: $kind,
			status: $status,
			requestedBy: $requestedBy,
			reason: $reason,
			payload: $payload,
			createdAt: $now,
			updatedAt: $now
		})
		`
		params := map[string]interface{}{
			"id":          request.ID,
			"kind":        string(request.Kind),
			"status":      string(model.RequestStatusPending),
			"requestedBy": request.RequestedBy,
			"reason":      request.Reason,
			"payload":     payload,
			"now":         time.Now().Format(time.RFC3339),
		}
		if _, err := transaction.Run(query, params); err != nil {
			logger.Error("Failed to execute create request query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create request",
			zap.Error(err),
			zap.String("kind", string(request.Kind)),
			zap.Duration("duration", duration))
		return "", err
	}

	logger.Info("Request created successfully",
		zap.String("requestID", request.ID),
		zap.String("kind", string(request.Kind)),
		zap.Duration("duration", duration))

	// Audit trail
	details, _ := json.Marshal(map[string]interface{}{"action": "submitted", "kind": request.Kind})
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "SUBMIT_REQUEST",
		ResourceID:    request.ID,
		Success:       true,
		RequestID:     request.ID,
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return request.ID, nil
}

func (dao *RequestDAO) GetRequest(ctx context.Context, requestID string) (*model.Request, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (q:` + portal_neo4j.LabelRequest + ` {id: $id})
	RETURN q
	`
	result, err := session.Run(query, map[string]interface{}{"id": requestID})
	if err != nil {
		logger.Error("Failed to execute get request query",
			zap.Error(err),
			zap.String("requestID", requestID))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToRequest(node)
	}

	return nil, portal_errors.ErrRequestNotFound
}

func (dao *RequestDAO) ListRequests(ctx context.Context, criteria model.RequestSearchCriteria) ([]*model.Request, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `MATCH (q:` + portal_neo4j.LabelRequest + `) WHERE 1=1`
	params := map[string]interface{}{}
	if criteria.Kind != "" {
		query += ` AND q.kind = $kind`
		params["kind"] = string(criteria.Kind)
	}
	if criteria.Status != "" {
		query += ` AND q.status = $status`
		params["status"] = string(criteria.Status)
	}
	if criteria.RequestedBy != "" {
		query += ` AND q.requestedBy = $requestedBy`
		params["requestedBy"] = criteria.RequestedBy
	}
	query += ` RETURN q ORDER BY q.createdAt DESC`
	if criteria.Limit > 0 {
		query += ` SKIP $offset LIMIT $limit`
		params["offset"] = criteria.Offset
		params["limit"] = criteria.Limit
	}

	result, err := session.Run(query, params)
	if err != nil {
		logger.Error("Failed to execute list requests query", zap.Error(err))
		return nil, portal_errors.ErrDatabaseOperation
	}

	var requests []*model.Request
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		request, err := mapNodeToRequest(node)
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		requests = append(requests, request)
	}

	return requests, nil
}

// PendingAddAccountExists reports whether a pending add-account request
// already targets the same login (case-insensitive) on the same system.
func (dao *RequestDAO) PendingAddAccountExists(ctx context.Context, login, systemID string) (bool, error) {
	pending, err := dao.pendingByKind(ctx, model.RequestKindAddAccount)
	if err != nil {
		return false, err
	}
	for _, request := range pending {
		if request.AddAccount == nil {
			continue
		}
		if request.AddAccount.SystemID == systemID &&
			strings.EqualFold(request.AddAccount.Login, login) {
			return true, nil
		}
	}
	return false, nil
}

// PendingDisableExists reports whether the account already has a
// pending disable-account request.
func (dao *RequestDAO) PendingDisableExists(ctx context.Context, accountID string) (bool, error) {
	pending, err := dao.pendingByKind(ctx, model.RequestKindDisableAccount)
	if err != nil {
		return false, err
	}
	for _, request := range pending {
		if request.DisableAccount != nil && request.DisableAccount.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

// Payloads live as opaque JSON on the node, so duplicate guards scan the
// pending set of one kind and inspect payloads in Go.
func (dao *RequestDAO) pendingByKind(ctx context.Context, kind model.RequestKind) ([]*model.Request, error) {
	return dao.ListRequests(ctx, model.RequestSearchCriteria{
		Kind:   kind,
		Status: model.RequestStatusPending,
	})
}

// MarkStatus flips a request from one status to another in a single
// conditional write. It returns false, without error, when the request
// was not in the expected source status, which makes concurrent
// decisions race-safe: exactly one caller observes true.
func (dao *RequestDAO) MarkStatus(ctx context.Context, requestID string, from, to model.RequestStatus, failureReason, decidedBy string) (bool, error) {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (q:` + portal_neo4j.LabelRequest + ` {id: $id})
		WITH q, q.status = $from AS transitioned
		SET q.status = CASE WHEN transitioned THEN $to ELSE q.status END,
			q.failureReason = CASE WHEN transitioned THEN $failureReason ELSE q.failureReason END,
			q.decidedBy = CASE WHEN transitioned THEN $decidedBy ELSE q.decidedBy END,
			q.decidedAt = CASE WHEN transitioned THEN $now ELSE q.decidedAt END,
			q.updatedAt = CASE WHEN transitioned THEN $now ELSE q.updatedAt END
		RETURN transitioned
		`
		params := map[string]interface{}{
			"id":            requestID,
			"from":          string(from),
			"to":            string(to),
			"failureReason": failureReason,
			"decidedBy":     decidedBy,
			"now":           time.Now().Format(time.RFC3339),
		}
		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute mark status query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return result.Record().Values[0].(bool), nil
		}
		return nil, portal_errors.ErrRequestNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to mark request status",
			zap.Error(err),
			zap.String("requestID", requestID),
			zap.Duration("duration", duration))
		return false, err
	}

	transitioned := result.(bool)
	logger.Info("Request status transition attempted",
		zap.String("requestID", requestID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Bool("transitioned", transitioned),
		zap.Duration("duration", duration))

	if transitioned {
		// Audit trail
		details, _ := json.Marshal(map[string]interface{}{
			"from": from, "to": to, "failure_reason": failureReason,
		})
		auditLog := audit.AuditLog{
			Timestamp:     time.Now(),
			UserID:        requestingUserID(ctx),
			Action:        "DECIDE_REQUEST",
			ResourceID:    requestID,
			Success:       true,
			RequestID:     requestID,
			ChangeDetails: details,
		}
		if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
			logger.Error("Failed to create audit log", zap.Error(err))
		}
	}

	return transitioned, nil
}

// Helper function to map Neo4j Node to Request struct
func mapNodeToRequest(node neo4j.Node) (*model.Request, error) {
	props := node.Props
	request := &model.Request{}

	request.ID = props["id"].(string)
	request.Kind = model.RequestKind(props["kind"].(string))
	request.Status = model.RequestStatus(props["status"].(string))
	request.RequestedBy = props["requestedBy"].(string)
	if reason, ok := props["reason"].(string); ok {
		request.Reason = reason
	}
	if failureReason, ok := props["failureReason"].(string); ok {
		request.FailureReason = failureReason
	}
	if decidedBy, ok := props["decidedBy"].(string); ok {
		request.DecidedBy = decidedBy
	}

	var err error
	if request.DecidedAt, err = helper_util.ParseNullableTime(props["decidedAt"]); err != nil {
		return nil, portal_errors.ErrInternalServer
	}
	if request.CreatedAt, err = helper_util.ParseTime(props["createdAt"].(string)); err != nil {
		return nil, portal_errors.ErrInternalServer
	}
	if request.UpdatedAt, err = helper_util.ParseTime(props["updatedAt"].(string)); err != nil {
		return nil, portal_errors.ErrInternalServer
	}

	if payload, ok := props["payload"].(string); ok && payload != "" {
		if err := request.DecodePayload(payload); err != nil {
			logger.Error("Failed to decode request payload",
				zap.Error(err),
				zap.String("requestID", request.ID))
			return nil, portal_errors.ErrInternalServer
		}
	}

	return request, nil
}

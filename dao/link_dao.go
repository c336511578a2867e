// api/dao/link_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
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

type LinkDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewLinkDAO(driver neo4j.Driver, auditService audit.Service) *LinkDAO {
	dao := &LinkDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for access links", zap.Error(err))
	}
	return dao
}

func (dao *LinkDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on access links")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		queries := []string{
			`CREATE CONSTRAINT unique_computer_link_id IF NOT EXISTS
			FOR (l:` + portal_neo4j.LabelComputerLink + `) REQUIRE l.id IS UNIQUE`,
			`CREATE CONSTRAINT unique_workstation_link_id IF NOT EXISTS
			FOR (l:` + portal_neo4j.LabelWorkstationLink + `) REQUIRE l.id IS UNIQUE`,
		}
		for _, query := range queries {
			if _, err := transaction.Run(query, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraints on access links", zap.Error(err))
		return err
	}

	return nil
}

func linkLabel(kind model.LinkKind) string {
	if kind == model.LinkKindWorkstation {
		return portal_neo4j.LabelWorkstationLink
	}
	return portal_neo4j.LabelComputerLink
}

// CreateLink persists a new access link. Duplicate checks belong to the
// caller; the store does not re-check.
func (dao *LinkDAO) CreateLink(ctx context.Context, link model.AccessLink) (string, error) {
	start := time.Now()
	logger.Info("Creating access link",
		zap.String("kind", string(link.Kind)),
		zap.String("systemID", link.SystemID),
		zap.String("accountID", link.AccountID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if link.ID == "" {
		link.ID = uuid.New().String()
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $systemID})
		MATCH (a:` + portal_neo4j.LabelAccount + ` {id: $accountID})
		CREATE (l:` + linkLabel(link.Kind) + ` {
			id: $id,
			active: true,
			createdAt: $now,
			updatedAt: $now
		})
		MERGE (s)-[:` + portal_neo4j.RelHasLink + `]->(l)
		MERGE (a)-[:` + portal_neo4j.RelOwns + `]->(l)
		`

		if link.Kind == model.LinkKindComputer {
			query += `
			SET l.role = $role
			`
		} else {
			query += `
			WITH l
			MATCH (r:` + portal_neo4j.LabelRole + ` {id: $roleID})
			MERGE (l)-[:` + portal_neo4j.RelWithRole + `]->(r)
			`
		}

		query += `
		RETURN l.id AS id
		`

		params := map[string]interface{}{
			"id":        link.ID,
			"systemID":  link.SystemID,
			"accountID": link.AccountID,
			"now":       time.Now().Format(time.RFC3339),
		}
		if link.Kind == model.LinkKindComputer {
			params["role"] = link.Role
		} else {
			params["roleID"] = link.RoleID
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute create link query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		// No row back means system, account or role did not match
		return nil, portal_errors.ErrLinkNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create access link",
			zap.Error(err),
			zap.String("systemID", link.SystemID),
			zap.Duration("duration", duration))
		return "", err
	}

	linkID := fmt.Sprintf("%v", result)
	logger.Info("Access link created successfully",
		zap.String("linkID", linkID),
		zap.Duration("duration", duration))

	// Audit trail
	details, _ := json.Marshal(map[string]interface{}{
		"action":     "created",
		"kind":       link.Kind,
		"system_id":  link.SystemID,
		"account_id": link.AccountID,
		"role":       link.Role,
	})
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "CREATE_LINK",
		ResourceID:    linkID,
		Success:       true,
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return linkID, nil
}

// DuplicateLinkExists reports whether any link, active or not, already
// carries the same (system, account, kind, role) key. Role labels are
// compared case-insensitively for both kinds.
func (dao *LinkDAO) DuplicateLinkExists(ctx context.Context, systemID, accountID string, kind model.LinkKind, role string) (bool, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	var query string
	if kind == model.LinkKindComputer {
		query = `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $systemID})-[:` + portal_neo4j.RelHasLink + `]->(l:` + portal_neo4j.LabelComputerLink + `)<-[:` + portal_neo4j.RelOwns + `]-(a:` + portal_neo4j.LabelAccount + ` {id: $accountID})
		WHERE toLower(l.role) = toLower($role)
		RETURN count(l) > 0 AS exists
		`
	} else {
		query = `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $systemID})-[:` + portal_neo4j.RelHasLink + `]->(l:` + portal_neo4j.LabelWorkstationLink + `)<-[:` + portal_neo4j.RelOwns + `]-(a:` + portal_neo4j.LabelAccount + ` {id: $accountID})
		MATCH (l)-[:` + portal_neo4j.RelWithRole + `]->(r:` + portal_neo4j.LabelRole + `)
		WHERE toLower(r.name) = toLower($role)
		RETURN count(l) > 0 AS exists
		`
	}

	result, err := session.Run(query, map[string]interface{}{
		"systemID":  systemID,
		"accountID": accountID,
		"role":      role,
	})
	if err != nil {
		logger.Error("Failed to execute duplicate link query", zap.Error(err))
		return false, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		return result.Record().Values[0].(bool), nil
	}

	return false, nil
}

// FindActiveLink locates the live link a role-change request refers to,
// matched on the exact role string (computer kind) or the exact catalog
// role name (workstation kind). Absence is reported as ErrLinkNotFound
// since the requested role may be stale.
func (dao *LinkDAO) FindActiveLink(ctx context.Context, systemID, accountID string, kind model.LinkKind, role string) (*model.AccessLink, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	var query string
	if kind == model.LinkKindComputer {
		query = `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $systemID})-[:` + portal_neo4j.RelHasLink + `]->(l:` + portal_neo4j.LabelComputerLink + `)<-[:` + portal_neo4j.RelOwns + `]-(a:` + portal_neo4j.LabelAccount + ` {id: $accountID})
		WHERE l.active = true AND l.role = $role
		RETURN l, '' AS roleID, l.role AS roleName
		`
	} else {
		query = `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $systemID})-[:` + portal_neo4j.RelHasLink + `]->(l:` + portal_neo4j.LabelWorkstationLink + `)<-[:` + portal_neo4j.RelOwns + `]-(a:` + portal_neo4j.LabelAccount + ` {id: $accountID})
		MATCH (l)-[:` + portal_neo4j.RelWithRole + `]->(r:` + portal_neo4j.LabelRole + `)
		WHERE l.active = true AND r.name = $role
		RETURN l, r.id AS roleID, r.name AS roleName
		`
	}

	result, err := session.Run(query, map[string]interface{}{
		"systemID":  systemID,
		"accountID": accountID,
		"role":      role,
	})
	if err != nil {
		logger.Error("Failed to execute find active link query", zap.Error(err))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		record := result.Record()
		node := record.Values[0].(neo4j.Node)
		link, err := mapNodeToLink(node, kind)
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		link.SystemID = systemID
		link.AccountID = accountID
		link.RoleID, _ = record.Values[1].(string)
		link.Role, _ = record.Values[2].(string)
		return link, nil
	}

	return nil, portal_errors.ErrLinkNotFound
}

// SetLinksActive bulk-updates the active flag on the given link ids of
// either kind. Missing ids are silently skipped; the count of matched
// links is returned.
func (dao *LinkDAO) SetLinksActive(ctx context.Context, linkIDs []string, active bool) (int, error) {
	if len(linkIDs) == 0 {
		return 0, nil
	}

	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (l)
		WHERE (l:` + portal_neo4j.LabelComputerLink + ` OR l:` + portal_neo4j.LabelWorkstationLink + `)
		  AND l.id IN $ids
		SET l.active = $active, l.updatedAt = $now
		RETURN count(l) AS updated
		`
		result, err := transaction.Run(query, map[string]interface{}{
			"ids":    linkIDs,
			"active": active,
			"now":    time.Now().Format(time.RFC3339),
		})
		if err != nil {
			logger.Error("Failed to execute bulk link update query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return int64(0), nil
	})

	if err != nil {
		logger.Error("Failed to bulk-update links",
			zap.Error(err),
			zap.Int("requested", len(linkIDs)),
			zap.Duration("duration", time.Since(start)))
		return 0, err
	}

	updated := int(result.(int64))
	logger.Info("Bulk link update applied",
		zap.Int("requested", len(linkIDs)),
		zap.Int("updated", updated),
		zap.Bool("active", active),
		zap.Duration("duration", time.Since(start)))

	return updated, nil
}

// DisableLinksForAccount deactivates every active link the account owns
// across all systems and returns the number affected.
func (dao *LinkDAO) DisableLinksForAccount(ctx context.Context, accountID string) (int, error) {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (a:` + portal_neo4j.LabelAccount + ` {id: $accountID})-[:` + portal_neo4j.RelOwns + `]->(l)
		WHERE l.active = true
		SET l.active = false, l.updatedAt = $now
		RETURN count(l) AS disabled
		`
		result, err := transaction.Run(query, map[string]interface{}{
			"accountID": accountID,
			"now":       time.Now().Format(time.RFC3339),
		})
		if err != nil {
			logger.Error("Failed to execute disable links query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return int64(0), nil
	})

	if err != nil {
		logger.Error("Failed to disable links for account",
			zap.Error(err),
			zap.String("accountID", accountID),
			zap.Duration("duration", time.Since(start)))
		return 0, err
	}

	disabled := int(result.(int64))
	logger.Info("Disabled links for account",
		zap.String("accountID", accountID),
		zap.Int("disabled", disabled),
		zap.Duration("duration", time.Since(start)))

	// Audit trail
	details, _ := json.Marshal(map[string]interface{}{"action": "disabled_all", "count": disabled})
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "DISABLE_ACCOUNT_LINKS",
		ResourceID:    accountID,
		Success:       true,
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return disabled, nil
}

// SetComputerLinkRole overwrites the free-text role label on a computer
// link.
func (dao *LinkDAO) SetComputerLinkRole(ctx context.Context, linkID, newRole string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (l:` + portal_neo4j.LabelComputerLink + ` {id: $id})
		SET l.role = $role, l.updatedAt = $now
		RETURN count(l) AS updated
		`
		result, err := transaction.Run(query, map[string]interface{}{
			"id":   linkID,
			"role": newRole,
			"now":  time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		if result.Next() && result.Record().Values[0].(int64) > 0 {
			return nil, nil
		}
		return nil, portal_errors.ErrLinkNotFound
	})

	return err
}

// SetWorkstationLinkRole repoints a workstation link at another catalog
// role.
func (dao *LinkDAO) SetWorkstationLinkRole(ctx context.Context, linkID, roleID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (l:` + portal_neo4j.LabelWorkstationLink + ` {id: $id})
		OPTIONAL MATCH (l)-[oldRel:` + portal_neo4j.RelWithRole + `]->(:` + portal_neo4j.LabelRole + `)
		DELETE oldRel
		WITH l
		MATCH (r:` + portal_neo4j.LabelRole + ` {id: $roleID})
		MERGE (l)-[:` + portal_neo4j.RelWithRole + `]->(r)
		SET l.updatedAt = $now
		RETURN count(l) AS updated
		`
		result, err := transaction.Run(query, map[string]interface{}{
			"id":     linkID,
			"roleID": roleID,
			"now":    time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		if result.Next() && result.Record().Values[0].(int64) > 0 {
			return nil, nil
		}
		return nil, portal_errors.ErrLinkNotFound
	})

	return err
}

// ListLinksBySystem returns the joined link view for one system.
func (dao *LinkDAO) ListLinksBySystem(ctx context.Context, systemID string) ([]*model.LinkDetail, error) {
	query := `
	MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $id})-[:` + portal_neo4j.RelHasLink + `]->(l)<-[:` + portal_neo4j.RelOwns + `]-(a:` + portal_neo4j.LabelAccount + `)
	OPTIONAL MATCH (l)-[:` + portal_neo4j.RelWithRole + `]->(r:` + portal_neo4j.LabelRole + `)
	RETURN l, labels(l) AS kinds, a, s, r
	ORDER BY a.login
	`
	return dao.queryLinkDetails(ctx, query, map[string]interface{}{"id": systemID})
}

// ListLinksByAccount returns the joined link view for one account,
// across all systems.
func (dao *LinkDAO) ListLinksByAccount(ctx context.Context, accountID string) ([]*model.LinkDetail, error) {
	query := `
	MATCH (s:` + portal_neo4j.LabelSystem + `)-[:` + portal_neo4j.RelHasLink + `]->(l)<-[:` + portal_neo4j.RelOwns + `]-(a:` + portal_neo4j.LabelAccount + ` {id: $id})
	OPTIONAL MATCH (l)-[:` + portal_neo4j.RelWithRole + `]->(r:` + portal_neo4j.LabelRole + `)
	RETURN l, labels(l) AS kinds, a, s, r
	ORDER BY s.name
	`
	return dao.queryLinkDetails(ctx, query, map[string]interface{}{"id": accountID})
}

func (dao *LinkDAO) queryLinkDetails(ctx context.Context, query string, params map[string]interface{}) ([]*model.LinkDetail, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.Run(query, params)
	if err != nil {
		logger.Error("Failed to execute link detail query", zap.Error(err))
		return nil, portal_errors.ErrDatabaseOperation
	}

	var details []*model.LinkDetail
	for result.Next() {
		record := result.Record()
		linkNode := record.Values[0].(neo4j.Node)
		kinds := record.Values[1].([]interface{})
		accountNode := record.Values[2].(neo4j.Node)
		systemNode := record.Values[3].(neo4j.Node)

		kind := model.LinkKindComputer
		for _, label := range kinds {
			if label.(string) == portal_neo4j.LabelWorkstationLink {
				kind = model.LinkKindWorkstation
			}
		}

		link, err := mapNodeToLink(linkNode, kind)
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		link.SystemID = systemNode.Props["id"].(string)
		link.AccountID = accountNode.Props["id"].(string)

		if kind == model.LinkKindWorkstation {
			if roleNode, ok := record.Values[4].(neo4j.Node); ok {
				link.RoleID = roleNode.Props["id"].(string)
				link.Role = roleNode.Props["name"].(string)
			}
		}

		details = append(details, &model.LinkDetail{
			AccessLink:  *link,
			Login:       accountNode.Props["login"].(string),
			DisplayName: accountNode.Props["display_name"].(string),
			SystemName:  systemNode.Props["name"].(string),
		})
	}

	return details, nil
}

// Helper function to map a link node of the given kind. Relationship
// endpoints and the catalog role are filled in by the callers.
func mapNodeToLink(node neo4j.Node, kind model.LinkKind) (*model.AccessLink, error) {
	props := node.Props
	link := &model.AccessLink{Kind: kind}

	link.ID = props["id"].(string)
	link.Active = props["active"].(bool)
	if role, ok := props["role"].(string); ok {
		link.Role = role
	}

	var err error
	if link.CreatedAt, err = helper_util.ParseTime(props["createdAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse link createdAt: %w", err)
	}
	if link.UpdatedAt, err = helper_util.ParseTime(props["updatedAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse link updatedAt: %w", err)
	}

	return link, nil
}

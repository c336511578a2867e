// api/dao/role_dao.go
package dao

import (
	"context"
	"fmt"
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

type RoleDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewRoleDAO(driver neo4j.Driver, auditService audit.Service) *RoleDAO {
	dao := &RoleDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Role", zap.Error(err))
	}
	return dao
}

func (dao *RoleDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on Role")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		queries := []string{
			`CREATE CONSTRAINT unique_role_id IF NOT EXISTS
			FOR (r:` + portal_neo4j.LabelRole + `) REQUIRE r.id IS UNIQUE`,
			`CREATE CONSTRAINT unique_role_name IF NOT EXISTS
			FOR (r:` + portal_neo4j.LabelRole + `) REQUIRE r.name_lower IS UNIQUE`,
		}
		for _, query := range queries {
			if _, err := transaction.Run(query, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraints on Role", zap.Error(err))
		return err
	}

	return nil
}

// FindOrCreateRoleByName matches a catalog role by name,
// case-insensitively, creating it when absent.
func (dao *RoleDAO) FindOrCreateRoleByName(ctx context.Context, name string) (*model.Role, error) {
	start := time.Now()
	logger.Debug("Finding or creating role", zap.String("name", name))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MERGE (r:` + portal_neo4j.LabelRole + ` {name_lower: toLower($name)})
		ON CREATE SET
			r.id = $id,
			r.name = $name,
			r.createdAt = $now,
			r.updatedAt = $now
		RETURN r
		`
		params := map[string]interface{}{
			"id":   uuid.New().String(),
			"name": strings.TrimSpace(name),
			"now":  time.Now().Format(time.RFC3339),
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute find-or-create role query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToRole(node)
		}

		return nil, portal_errors.ErrInternalServer
	})

	if err != nil {
		logger.Error("Failed to find or create role",
			zap.Error(err),
			zap.String("name", name),
			zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	return result.(*model.Role), nil
}

func (dao *RoleDAO) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (r:` + portal_neo4j.LabelRole + ` {id: $id})
	RETURN r
	`
	result, err := session.Run(query, map[string]interface{}{"id": roleID})
	if err != nil {
		logger.Error("Failed to execute get role query",
			zap.Error(err),
			zap.String("roleID", roleID))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToRole(node)
	}

	return nil, portal_errors.ErrRoleNotFound
}

func (dao *RoleDAO) ListRoles(ctx context.Context, limit int, offset int) ([]*model.Role, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (r:` + portal_neo4j.LabelRole + `)
	RETURN r
	ORDER BY r.name_lower
	SKIP $offset
	LIMIT $limit
	`
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list roles query", zap.Error(err))
		return nil, portal_errors.ErrDatabaseOperation
	}

	var roles []*model.Role
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		role, err := mapNodeToRole(node)
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		roles = append(roles, role)
	}

	return roles, nil
}

// Helper function to map Neo4j Node to Role struct
func mapNodeToRole(node neo4j.Node) (*model.Role, error) {
	props := node.Props
	role := &model.Role{}

	role.ID = props["id"].(string)
	role.Name = props["name"].(string)

	var err error
	if role.CreatedAt, err = helper_util.ParseTime(props["createdAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse role createdAt: %w", err)
	}
	if role.UpdatedAt, err = helper_util.ParseTime(props["updatedAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse role updatedAt: %w", err)
	}

	return role, nil
}

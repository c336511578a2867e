// api/dao/script_dao.go
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

type ScriptDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewScriptDAO(driver neo4j.Driver, auditService audit.Service) *ScriptDAO {
	dao := &ScriptDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Script", zap.Error(err))
	}
	return dao
}

func (dao *ScriptDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on Script")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `CREATE CONSTRAINT unique_script_id IF NOT EXISTS
		FOR (sc:` + portal_neo4j.LabelScript + `) REQUIRE sc.id IS UNIQUE`
		if _, err := transaction.Run(query, nil); err != nil {
			return nil, err
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on Script", zap.Error(err))
		return err
	}

	return nil
}

func (dao *ScriptDAO) CreateScript(ctx context.Context, script model.Script) (string, error) {
	start := time.Now()
	logger.Info("Creating script", zap.String("name", script.Name))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if script.ID == "" {
		script.ID = uuid.New().String()
	}

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		CREATE (sc:` + portal_neo4j.LabelScript + ` {
			id: $id,
			name: $name,
			description: $description,
			body: $body,
			createdAt: $now,
			updatedAt: $now
		})
		`
		params := map[string]interface{}{
			"id":          script.ID,
			"name":        script.Name,
			"description": script.Description,
			"body":        script.Body,
			"now":         time.Now().Format(time.RFC3339),
		}
		if _, err := transaction.Run(query, params); err != nil {
			logger.Error("Failed to execute create script query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create script",
			zap.Error(err),
			zap.String("name", script.Name),
			zap.Duration("duration", duration))
		return "", err
	}

	logger.Info("Script created successfully",
		zap.String("scriptID", script.ID),
		zap.Duration("duration", duration))

	// Audit trail
	details, _ := json.Marshal(map[string]interface{}{"action": "created", "name": script.Name})
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "CREATE_SCRIPT",
		ResourceID:    script.ID,
		Success:       true,
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return script.ID, nil
}

func (dao *ScriptDAO) UpdateScript(ctx context.Context, script model.Script) (*model.Script, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (sc:` + portal_neo4j.LabelScript + ` {id: $id})
		SET sc.name = $name,
			sc.description = $description,
			sc.body = $body,
			sc.updatedAt = $now
		RETURN sc
		`
		params := map[string]interface{}{
			"id":          script.ID,
			"name":        script.Name,
			"description": script.Description,
			"body":        script.Body,
			"now":         time.Now().Format(time.RFC3339),
		}
		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute update script query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}
		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToScript(node)
		}
		return nil, portal_errors.ErrScriptNotFound
	})

	if err != nil {
		logger.Error("Failed to update script",
			zap.Error(err),
			zap.String("scriptID", script.ID))
		return nil, err
	}

	return result.(*model.Script), nil
}

func (dao *ScriptDAO) DeleteScript(ctx context.Context, scriptID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		guardQuery := `
		MATCH (j:` + portal_neo4j.LabelJob + `)-[:` + portal_neo4j.RelExecutes + `]->(sc:` + portal_neo4j.LabelScript + ` {id: $id})
		RETURN count(j) AS jobs
		`
		guardResult, err := transaction.Run(guardQuery, map[string]interface{}{"id": scriptID})
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		if guardResult.Next() && guardResult.Record().Values[0].(int64) > 0 {
			return nil, portal_errors.ErrInvalidScriptData
		}

		query := `
		MATCH (sc:` + portal_neo4j.LabelScript + ` {id: $id})
		DETACH DELETE sc
		`
		result, err := transaction.Run(query, map[string]interface{}{"id": scriptID})
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, portal_errors.ErrScriptNotFound
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to delete script",
			zap.Error(err),
			zap.String("scriptID", scriptID))
		return err
	}

	// Audit trail
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "DELETE_SCRIPT",
		ResourceID:    scriptID,
		Success:       true,
		ChangeDetails: json.RawMessage(`{"action":"deleted"}`),
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

func (dao *ScriptDAO) GetScript(ctx context.Context, scriptID string) (*model.Script, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (sc:` + portal_neo4j.LabelScript + ` {id: $id})
	RETURN sc
	`
	result, err := session.Run(query, map[string]interface{}{"id": scriptID})
	if err != nil {
		logger.Error("Failed to execute get script query",
			zap.Error(err),
			zap.String("scriptID", scriptID))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToScript(node)
	}

	return nil, portal_errors.ErrScriptNotFound
}

func (dao *ScriptDAO) ListScripts(ctx context.Context, limit int, offset int) ([]*model.Script, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (sc:` + portal_neo4j.LabelScript + `)
	RETURN sc
	ORDER BY sc.name
	SKIP $offset
	LIMIT $limit
	`
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list scripts query", zap.Error(err))
		return nil, portal_errors.ErrDatabaseOperation
	}

	var scripts []*model.Script
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		script, err := mapNodeToScript(node)
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		scripts = append(scripts, script)
	}

	return scripts, nil
}

// Helper function to map Neo4j Node to Script struct
func mapNodeToScript(node neo4j.Node) (*model.Script, error) {
	props := node.Props
	script := &model.Script{}

	script.ID = props["id"].(string)
	script.Name = props["name"].(string)
	if description, ok := props["description"].(string); ok {
		script.Description = description
	}
	script.Body = props["body"].(string)

	var err error
	if script.CreatedAt, err = helper_util.ParseTime(props["createdAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse script createdAt: %w", err)
	}
	if script.UpdatedAt, err = helper_util.ParseTime(props["updatedAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse script updatedAt: %w", err)
	}

	return script, nil
}

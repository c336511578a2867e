// api/dao/system_dao.go
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

type SystemDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewSystemDAO(driver neo4j.Driver, auditService audit.Service) *SystemDAO {
	dao := &SystemDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for System", zap.Error(err))
	}
	return dao
}

func (dao *SystemDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on System")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		queries := []string{
			`CREATE CONSTRAINT unique_system_id IF NOT EXISTS
			FOR (s:` + portal_neo4j.LabelSystem + `) REQUIRE s.id IS UNIQUE`,
			`CREATE CONSTRAINT unique_system_code IF NOT EXISTS
			FOR (s:` + portal_neo4j.LabelSystem + `) REQUIRE s.code_lower IS UNIQUE`,
		}
		for _, query := range queries {
			if _, err := transaction.Run(query, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraints on System", zap.Error(err))
		return err
	}

	return nil
}

func (dao *SystemDAO) CreateSystem(ctx context.Context, system model.System) (string, error) {
	start := time.Now()
	logger.Info("Creating system", zap.String("code", system.Code))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if system.ID == "" {
		system.ID = uuid.New().String()
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		existsQuery := `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {code_lower: toLower($code)})
		RETURN count(s) > 0 AS exists
		`
		existsResult, err := transaction.Run(existsQuery, map[string]interface{}{"code": system.Code})
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		if existsResult.Next() && existsResult.Record().Values[0].(bool) {
			return nil, portal_errors.ErrSystemConflict
		}

		query := `
		CREATE (s:` + portal_neo4j.LabelSystem + ` {
			id: $id,
			code: $code,
			code_lower: toLower($code),
			name: $name,
			hostname: $hostname,
			ip: $ip,
			location: $location,
			checkIntervalDays: $checkIntervalDays,
			lastCheckedAt: $lastCheckedAt,
			qaCheckIntervalDays: $qaCheckIntervalDays,
			lastQACheckedAt: $lastQACheckedAt,
			backupPath: $backupPath,
			restorePath: $restorePath,
			createdAt: $now,
			updatedAt: $now
		})
		RETURN s.id AS id
		`
		result, err := transaction.Run(query, systemParams(system))
		if err != nil {
			logger.Error("Failed to execute create system query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, portal_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create system",
			zap.Error(err),
			zap.String("code", system.Code),
			zap.Duration("duration", duration))
		return "", err
	}

	systemID := fmt.Sprintf("%v", result)
	logger.Info("System created successfully",
		zap.String("systemID", systemID),
		zap.Duration("duration", duration))

	// Audit trail
	details, _ := json.Marshal(map[string]interface{}{"action": "created", "code": system.Code, "name": system.Name})
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "CREATE_SYSTEM",
		ResourceID:    systemID,
		Success:       true,
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return systemID, nil
}

func (dao *SystemDAO) UpdateSystem(ctx context.Context, system model.System) (*model.System, error) {
	start := time.Now()
	logger.Info("Updating system", zap.String("systemID", system.ID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $id})
		SET s.code = $code,
			s.code_lower = toLower($code),
			s.name = $name,
			s.hostname = $hostname,
			s.ip = $ip,
			s.location = $location,
			s.checkIntervalDays = $checkIntervalDays,
			s.lastCheckedAt = $lastCheckedAt,
			s.qaCheckIntervalDays = $qaCheckIntervalDays,
			s.lastQACheckedAt = $lastQACheckedAt,
			s.backupPath = $backupPath,
			s.restorePath = $restorePath,
			s.updatedAt = $now
		RETURN s
		`
		result, err := transaction.Run(query, systemParams(system))
		if err != nil {
			logger.Error("Failed to execute update system query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToSystem(node)
		}

		return nil, portal_errors.ErrSystemNotFound
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update system",
			zap.Error(err),
			zap.String("systemID", system.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	updatedSystem := result.(*model.System)
	logger.Info("System updated successfully",
		zap.String("systemID", system.ID),
		zap.Duration("duration", duration))

	// Audit trail
	details, _ := json.Marshal(map[string]interface{}{"action": "updated", "code": updatedSystem.Code})
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "UPDATE_SYSTEM",
		ResourceID:    system.ID,
		Success:       true,
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return updatedSystem, nil
}

// DeleteSystem removes a system only when nothing references it: the
// referential guard rejects deletion while any access link or job
// history remains. Check and delete run in one transaction.
func (dao *SystemDAO) DeleteSystem(ctx context.Context, systemID string) error {
	start := time.Now()
	logger.Info("Deleting system", zap.String("systemID", systemID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		guardQuery := `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $id})
		OPTIONAL MATCH (s)-[:` + portal_neo4j.RelHasLink + `]->(l)
		OPTIONAL MATCH (j:` + portal_neo4j.LabelJob + `)-[:` + portal_neo4j.RelRunsOn + `]->(s)
		RETURN count(s) AS found, count(l) AS links, count(j) AS jobs
		`
		guardResult, err := transaction.Run(guardQuery, map[string]interface{}{"id": systemID})
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		if !guardResult.Next() {
			return nil, portal_errors.ErrSystemNotFound
		}
		record := guardResult.Record()
		if record.Values[0].(int64) == 0 {
			return nil, portal_errors.ErrSystemNotFound
		}
		if record.Values[1].(int64) > 0 || record.Values[2].(int64) > 0 {
			return nil, portal_errors.ErrSystemInUse
		}

		query := `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $id})
		DETACH DELETE s
		`
		if _, err := transaction.Run(query, map[string]interface{}{"id": systemID}); err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete system",
			zap.Error(err),
			zap.String("systemID", systemID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("System deleted successfully",
		zap.String("systemID", systemID),
		zap.Duration("duration", duration))

	// Audit trail
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "DELETE_SYSTEM",
		ResourceID:    systemID,
		Success:       true,
		ChangeDetails: json.RawMessage(`{"action":"deleted"}`),
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

func (dao *SystemDAO) GetSystem(ctx context.Context, systemID string) (*model.System, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $id})
	RETURN s
	`
	result, err := session.Run(query, map[string]interface{}{"id": systemID})
	if err != nil {
		logger.Error("Failed to execute get system query",
			zap.Error(err),
			zap.String("systemID", systemID))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToSystem(node)
	}

	return nil, portal_errors.ErrSystemNotFound
}

func (dao *SystemDAO) GetSystemByHostname(ctx context.Context, hostname string) (*model.System, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (s:` + portal_neo4j.LabelSystem + ` {hostname: $hostname})
	RETURN s
	`
	result, err := session.Run(query, map[string]interface{}{"hostname": hostname})
	if err != nil {
		logger.Error("Failed to execute get system by hostname query",
			zap.Error(err),
			zap.String("hostname", hostname))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToSystem(node)
	}

	return nil, portal_errors.ErrSystemNotFound
}

func (dao *SystemDAO) ListSystems(ctx context.Context, limit int, offset int) ([]*model.System, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (s:` + portal_neo4j.LabelSystem + `)
	RETURN s
	ORDER BY s.code_lower
	SKIP $offset
	LIMIT $limit
	`
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list systems query", zap.Error(err))
		return nil, portal_errors.ErrDatabaseOperation
	}

	var systems []*model.System
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		system, err := mapNodeToSystem(node)
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		systems = append(systems, system)
	}

	return systems, nil
}

// RecordCheck stamps one of the two periodic-check cadences with the
// given date. The two cadences are independent.
func (dao *SystemDAO) RecordCheck(ctx context.Context, systemID string, qa bool, checkedAt time.Time) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	field := "lastCheckedAt"
	action := "RECORD_CHECK"
	if qa {
		field = "lastQACheckedAt"
		action = "RECORD_QA_CHECK"
	}

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $id})
		SET s.` + field + ` = $checkedAt, s.updatedAt = $now
		RETURN count(s) AS updated
		`
		result, err := transaction.Run(query, map[string]interface{}{
			"id":        systemID,
			"checkedAt": checkedAt.Format(time.RFC3339),
			"now":       time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		if result.Next() && result.Record().Values[0].(int64) > 0 {
			return nil, nil
		}
		return nil, portal_errors.ErrSystemNotFound
	})

	if err != nil {
		logger.Error("Failed to record check",
			zap.Error(err),
			zap.String("systemID", systemID),
			zap.Bool("qa", qa))
		return err
	}

	// Audit trail
	details, _ := json.Marshal(map[string]interface{}{"checked_at": checkedAt.Format(time.RFC3339)})
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        action,
		ResourceID:    systemID,
		Success:       true,
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

func systemParams(system model.System) map[string]interface{} {
	return map[string]interface{}{
		"id":                  system.ID,
		"code":                system.Code,
		"name":                system.Name,
		"hostname":            system.Hostname,
		"ip":                  system.IP,
		"location":            system.Location,
		"checkIntervalDays":   system.CheckIntervalDays,
		"lastCheckedAt":       helper_util.FormatNullableTime(system.LastCheckedAt),
		"qaCheckIntervalDays": system.QACheckIntervalDays,
		"lastQACheckedAt":     helper_util.FormatNullableTime(system.LastQACheckedAt),
		"backupPath":          system.BackupPath,
		"restorePath":         system.RestorePath,
		"now":                 time.Now().Format(time.RFC3339),
	}
}

// Helper function to map Neo4j Node to System struct
func mapNodeToSystem(node neo4j.Node) (*model.System, error) {
	props := node.Props
	system := &model.System{}

	system.ID = props["id"].(string)
	system.Code = props["code"].(string)
	system.Name = props["name"].(string)
	if hostname, ok := props["hostname"].(string); ok {
		system.Hostname = hostname
	}
	if ip, ok := props["ip"].(string); ok {
		system.IP = ip
	}
	if location, ok := props["location"].(string); ok {
		system.Location = location
	}
	if interval, ok := props["checkIntervalDays"].(int64); ok {
		system.CheckIntervalDays = int(interval)
	}
	if interval, ok := props["qaCheckIntervalDays"].(int64); ok {
		system.QACheckIntervalDays = int(interval)
	}
	if backupPath, ok := props["backupPath"].(string); ok {
		system.BackupPath = backupPath
	}
	if restorePath, ok := props["restorePath"].(string); ok {
		system.RestorePath = restorePath
	}

	var err error
	if system.LastCheckedAt, err = helper_util.ParseNullableTime(props["lastCheckedAt"]); err != nil {
		return nil, fmt.Errorf("failed to parse system lastCheckedAt: %w", err)
	}
	if system.LastQACheckedAt, err = helper_util.ParseNullableTime(props["lastQACheckedAt"]); err != nil {
		return nil, fmt.Errorf("failed to parse system lastQACheckedAt: %w", err)
	}
	if system.CreatedAt, err = helper_util.ParseTime(props["createdAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse system createdAt: %w", err)
	}
	if system.UpdatedAt, err = helper_util.ParseTime(props["updatedAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse system updatedAt: %w", err)
	}

	return system, nil
}

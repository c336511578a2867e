// api/dao/platform_user_dao.go
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

type PlatformUserDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewPlatformUserDAO(driver neo4j.Driver, auditService audit.Service) *PlatformUserDAO {
	dao := &PlatformUserDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for PlatformUser", zap.Error(err))
	}
	return dao
}

func (dao *PlatformUserDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on PlatformUser")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		queries := []string{
			`CREATE CONSTRAINT unique_platform_user_id IF NOT EXISTS
			FOR (u:` + portal_neo4j.LabelPlatformUser + `) REQUIRE u.id IS UNIQUE`,
			`CREATE CONSTRAINT unique_platform_user_username IF NOT EXISTS
			FOR (u:` + portal_neo4j.LabelPlatformUser + `) REQUIRE u.username_lower IS UNIQUE`,
		}
		for _, query := range queries {
			if _, err := transaction.Run(query, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraints on PlatformUser", zap.Error(err))
		return err
	}

	return nil
}

func (dao *PlatformUserDAO) CreatePlatformUser(ctx context.Context, user model.PlatformUser) (string, error) {
	start := time.Now()
	logger.Info("Creating platform user", zap.String("username", user.Username))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		existsQuery := `
		MATCH (u:` + portal_neo4j.LabelPlatformUser + ` {username_lower: toLower($username)})
		RETURN count(u) > 0 AS exists
		`
		existsResult, err := transaction.Run(existsQuery, map[string]interface{}{"username": user.Username})
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		if existsResult.Next() && existsResult.Record().Values[0].(bool) {
			return nil, portal_errors.ErrPlatformUserConflict
		}

		query := `
		CREATE (u:` + portal_neo4j.LabelPlatformUser + ` {
			id: $id,
			username: $username,
			username_lower: toLower($username),
			display_name: $displayName,
			role: $role,
			active: true,
			passwordHash: $passwordHash,
			createdAt: $now,
			updatedAt: $now
		})
		`
		params := map[string]interface{}{
			"id":           user.ID,
			"username":     user.Username,
			"displayName":  user.DisplayName,
			"role":         user.Role,
			"passwordHash": user.PasswordHash,
			"now":          time.Now().Format(time.RFC3339),
		}
		if _, err := transaction.Run(query, params); err != nil {
			logger.Error("Failed to execute create platform user query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create platform user",
			zap.Error(err),
			zap.String("username", user.Username),
			zap.Duration("duration", duration))
		return "", err
	}

	logger.Info("Platform user created successfully",
		zap.String("userID", user.ID),
		zap.Duration("duration", duration))

	// Audit trail
	details, _ := json.Marshal(map[string]interface{}{"action": "created", "username": user.Username, "role": user.Role})
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "CREATE_PLATFORM_USER",
		ResourceID:    user.ID,
		Success:       true,
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return user.ID, nil
}

func (dao *PlatformUserDAO) UpdatePlatformUser(ctx context.Context, user model.PlatformUser) (*model.PlatformUser, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		// Demoting or deactivating the last active admin would lock
		// everyone out of user administration.
		if user.Role != model.PlatformRoleAdmin || !user.Active {
			last, err := dao.isLastActiveAdmin(transaction, user.ID)
			if err != nil {
				return nil, err
			}
			if last {
				return nil, portal_errors.ErrLastActiveAdmin
			}
		}

		query := `
		MATCH (u:` + portal_neo4j.LabelPlatformUser + ` {id: $id})
		SET u.display_name = $displayName,
			u.role = $role,
			u.active = $active,
			u.updatedAt = $now
		RETURN u
		`
		params := map[string]interface{}{
			"id":          user.ID,
			"displayName": user.DisplayName,
			"role":        user.Role,
			"active":      user.Active,
			"now":         time.Now().Format(time.RFC3339),
		}
		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute update platform user query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}
		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToPlatformUser(node)
		}
		return nil, portal_errors.ErrPlatformUserNotFound
	})

	if err != nil {
		logger.Error("Failed to update platform user",
			zap.Error(err),
			zap.String("userID", user.ID))
		return nil, err
	}

	updated := result.(*model.PlatformUser)

	// Audit trail
	details, _ := json.Marshal(map[string]interface{}{"action": "updated", "role": updated.Role, "active": updated.Active})
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "UPDATE_PLATFORM_USER",
		ResourceID:    user.ID,
		Success:       true,
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return updated, nil
}

func (dao *PlatformUserDAO) SetPassword(ctx context.Context, userID, passwordHash string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (u:` + portal_neo4j.LabelPlatformUser + ` {id: $id})
		SET u.passwordHash = $passwordHash, u.updatedAt = $now
		RETURN count(u) AS updated
		`
		params := map[string]interface{}{
			"id":           userID,
			"passwordHash": passwordHash,
			"now":          time.Now().Format(time.RFC3339),
		}
		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		if result.Next() && result.Record().Values[0].(int64) > 0 {
			return nil, nil
		}
		return nil, portal_errors.ErrPlatformUserNotFound
	})

	if err != nil {
		logger.Error("Failed to set platform user password",
			zap.Error(err),
			zap.String("userID", userID))
		return err
	}

	// Audit trail
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "SET_PLATFORM_USER_PASSWORD",
		ResourceID:    userID,
		Success:       true,
		ChangeDetails: json.RawMessage(`{"action":"password_changed"}`),
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

// DeletePlatformUser removes an operator. The last-admin guard and the
// delete run in one transaction so concurrent deletions cannot strip
// the final admin.
func (dao *PlatformUserDAO) DeletePlatformUser(ctx context.Context, userID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		last, err := dao.isLastActiveAdmin(transaction, userID)
		if err != nil {
			return nil, err
		}
		if last {
			return nil, portal_errors.ErrLastActiveAdmin
		}

		query := `
		MATCH (u:` + portal_neo4j.LabelPlatformUser + ` {id: $id})
		DETACH DELETE u
		`
		result, err := transaction.Run(query, map[string]interface{}{"id": userID})
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		summary, err := result.Consume()
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}
		if summary.Counters().NodesDeleted() == 0 {
			return nil, portal_errors.ErrPlatformUserNotFound
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to delete platform user",
			zap.Error(err),
			zap.String("userID", userID))
		return err
	}

	// Audit trail
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "DELETE_PLATFORM_USER",
		ResourceID:    userID,
		Success:       true,
		ChangeDetails: json.RawMessage(`{"action":"deleted"}`),
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

// isLastActiveAdmin reports whether the given user is an active admin
// and no other active admin exists.
func (dao *PlatformUserDAO) isLastActiveAdmin(transaction neo4j.Transaction, userID string) (bool, error) {
	query := `
	MATCH (u:` + portal_neo4j.LabelPlatformUser + ` {role: $admin, active: true})
	RETURN count(u) AS admins,
	       count(CASE WHEN u.id = $id THEN 1 END) AS target
	`
	result, err := transaction.Run(query, map[string]interface{}{
		"admin": model.PlatformRoleAdmin,
		"id":    userID,
	})
	if err != nil {
		return false, portal_errors.ErrDatabaseOperation
	}
	if result.Next() {
		record := result.Record()
		admins := record.Values[0].(int64)
		target := record.Values[1].(int64)
		return target > 0 && admins == 1, nil
	}
	return false, nil
}

func (dao *PlatformUserDAO) GetPlatformUser(ctx context.Context, userID string) (*model.PlatformUser, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (u:` + portal_neo4j.LabelPlatformUser + ` {id: $id})
	RETURN u
	`
	result, err := session.Run(query, map[string]interface{}{"id": userID})
	if err != nil {
		logger.Error("Failed to execute get platform user query",
			zap.Error(err),
			zap.String("userID", userID))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToPlatformUser(node)
	}

	return nil, portal_errors.ErrPlatformUserNotFound
}

func (dao *PlatformUserDAO) GetPlatformUserByUsername(ctx context.Context, username string) (*model.PlatformUser, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (u:` + portal_neo4j.LabelPlatformUser + ` {username_lower: toLower($username)})
	RETURN u
	`
	result, err := session.Run(query, map[string]interface{}{"username": username})
	if err != nil {
		logger.Error("Failed to execute get platform user by username query",
			zap.Error(err),
			zap.String("username", username))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToPlatformUser(node)
	}

	return nil, portal_errors.ErrPlatformUserNotFound
}

func (dao *PlatformUserDAO) ListPlatformUsers(ctx context.Context, limit int, offset int) ([]*model.PlatformUser, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (u:` + portal_neo4j.LabelPlatformUser + `)
	RETURN u
	ORDER BY u.username_lower
	SKIP $offset
	LIMIT $limit
	`
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list platform users query", zap.Error(err))
		return nil, portal_errors.ErrDatabaseOperation
	}

	var users []*model.PlatformUser
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		user, err := mapNodeToPlatformUser(node)
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		users = append(users, user)
	}

	return users, nil
}

// Helper function to map Neo4j Node to PlatformUser struct
func mapNodeToPlatformUser(node neo4j.Node) (*model.PlatformUser, error) {
	props := node.Props
	user := &model.PlatformUser{}

	user.ID = props["id"].(string)
	user.Username = props["username"].(string)
	if displayName, ok := props["display_name"].(string); ok {
		user.DisplayName = displayName
	}
	user.Role = props["role"].(string)
	if active, ok := props["active"].(bool); ok {
		user.Active = active
	}
	if passwordHash, ok := props["passwordHash"].(string); ok {
		user.PasswordHash = passwordHash
	}

	var err error
	if user.CreatedAt, err = helper_util.ParseTime(props["createdAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse platform user createdAt: %w", err)
	}
	if user.UpdatedAt, err = helper_util.ParseTime(props["updatedAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse platform user updatedAt: %w", err)
	}

	return user, nil
}

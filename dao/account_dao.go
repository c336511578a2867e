// api/dao/account_dao.go
package dao

import (
	"context"
	"encoding/json"
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

type AccountDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewAccountDAO(driver neo4j.Driver, auditService audit.Service) *AccountDAO {
	dao := &AccountDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Account", zap.Error(err))
	}
	return dao
}

func (dao *AccountDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on Account")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		queries := []string{
			`CREATE CONSTRAINT unique_account_id IF NOT EXISTS
			FOR (a:` + portal_neo4j.LabelAccount + `) REQUIRE a.id IS UNIQUE`,
			`CREATE CONSTRAINT unique_account_login IF NOT EXISTS
			FOR (a:` + portal_neo4j.LabelAccount + `) REQUIRE a.login_lower IS UNIQUE`,
		}
		for _, query := range queries {
			if _, err := transaction.Run(query, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraints on Account", zap.Error(err))
		return err
	}

	return nil
}

// FindOrCreateAccount looks an account up by login, case-insensitively,
// and creates it when absent. The display name is only written at
// creation; later calls never overwrite it.
func (dao *AccountDAO) FindOrCreateAccount(ctx context.Context, login, displayName string) (*model.Account, error) {
	start := time.Now()
	logger.Debug("Finding or creating account", zap.String("login", login))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MERGE (a:` + portal_neo4j.LabelAccount + ` {login_lower: toLower($login)})
		ON CREATE SET
			a.id = $id,
			a.login = $login,
			a.display_name = $displayName,
			a.createdAt = $now,
			a.updatedAt = $now
		RETURN a
		`
		params := map[string]interface{}{
			"id":          uuid.New().String(),
			"login":       strings.TrimSpace(login),
			"displayName": displayName,
			"now":         time.Now().Format(time.RFC3339),
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute find-or-create account query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return mapNodeToAccount(node)
		}

		return nil, portal_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to find or create account",
			zap.Error(err),
			zap.String("login", login),
			zap.Duration("duration", duration))
		return nil, err
	}

	account := result.(*model.Account)
	logger.Info("Account resolved",
		zap.String("accountID", account.ID),
		zap.String("login", account.Login),
		zap.Duration("duration", duration))

	return account, nil
}

func (dao *AccountDAO) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (a:` + portal_neo4j.LabelAccount + ` {id: $id})
	RETURN a
	`
	result, err := session.Run(query, map[string]interface{}{"id": accountID})
	if err != nil {
		logger.Error("Failed to execute get account query",
			zap.Error(err),
			zap.String("accountID", accountID))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToAccount(node)
	}

	return nil, portal_errors.ErrAccountNotFound
}

func (dao *AccountDAO) GetAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (a:` + portal_neo4j.LabelAccount + ` {login_lower: toLower($login)})
	RETURN a
	`
	result, err := session.Run(query, map[string]interface{}{"login": login})
	if err != nil {
		logger.Error("Failed to execute get account by login query",
			zap.Error(err),
			zap.String("login", login))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		return mapNodeToAccount(node)
	}

	return nil, portal_errors.ErrAccountNotFound
}

// FindAccountsByDisplayName returns every account carrying the given
// display name. A display name may map to zero, one or several accounts.
func (dao *AccountDAO) FindAccountsByDisplayName(ctx context.Context, displayName string) ([]*model.Account, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (a:` + portal_neo4j.LabelAccount + ` {display_name: $displayName})
	RETURN a
	ORDER BY a.login
	`
	result, err := session.Run(query, map[string]interface{}{"displayName": displayName})
	if err != nil {
		logger.Error("Failed to execute find accounts by display name query",
			zap.Error(err),
			zap.String("displayName", displayName))
		return nil, portal_errors.ErrDatabaseOperation
	}

	var accounts []*model.Account
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		account, err := mapNodeToAccount(node)
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func (dao *AccountDAO) ListAccounts(ctx context.Context, limit int, offset int) ([]*model.Account, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (a:` + portal_neo4j.LabelAccount + `)
	RETURN a
	ORDER BY a.login
	SKIP $offset
	LIMIT $limit
	`
	result, err := session.Run(query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		logger.Error("Failed to execute list accounts query", zap.Error(err))
		return nil, portal_errors.ErrDatabaseOperation
	}

	var accounts []*model.Account
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		account, err := mapNodeToAccount(node)
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func (dao *AccountDAO) SearchAccounts(ctx context.Context, criteria model.AccountSearchCriteria) ([]*model.Account, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `MATCH (a:` + portal_neo4j.LabelAccount + `) WHERE 1=1`
	params := map[string]interface{}{}
	if criteria.Login != "" {
		query += ` AND a.login_lower CONTAINS toLower($login)`
		params["login"] = criteria.Login
	}
	if criteria.DisplayName != "" {
		query += ` AND a.display_name CONTAINS $displayName`
		params["displayName"] = criteria.DisplayName
	}
	query += ` RETURN a ORDER BY a.login`
	if criteria.Limit > 0 {
		query += ` SKIP $offset LIMIT $limit`
		params["offset"] = criteria.Offset
		params["limit"] = criteria.Limit
	}

	result, err := session.Run(query, params)
	if err != nil {
		logger.Error("Failed to execute search accounts query", zap.Error(err))
		return nil, portal_errors.ErrDatabaseOperation
	}

	var accounts []*model.Account
	for result.Next() {
		node := result.Record().Values[0].(neo4j.Node)
		account, err := mapNodeToAccount(node)
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

// DeleteAccount removes an account and, children first, every link it
// owns on any system.
func (dao *AccountDAO) DeleteAccount(ctx context.Context, accountID string) error {
	start := time.Now()
	logger.Info("Deleting account", zap.String("accountID", accountID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (a:` + portal_neo4j.LabelAccount + ` {id: $id})
		OPTIONAL MATCH (a)-[:` + portal_neo4j.RelOwns + `]->(l)
		DETACH DELETE l
		WITH a
		DETACH DELETE a
		RETURN count(a)
		`
		result, err := transaction.Run(query, map[string]interface{}{"id": accountID})
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}

		summary, err := result.Consume()
		if err != nil {
			return nil, portal_errors.ErrDatabaseOperation
		}

		if summary.Counters().NodesDeleted() == 0 {
			return nil, portal_errors.ErrAccountNotFound
		}

		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to delete account",
			zap.Error(err),
			zap.String("accountID", accountID),
			zap.Duration("duration", duration))
		return err
	}

	logger.Info("Account deleted successfully",
		zap.String("accountID", accountID),
		zap.Duration("duration", duration))

	// Audit trail
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "DELETE_ACCOUNT",
		ResourceID:    accountID,
		Success:       true,
		ChangeDetails: json.RawMessage(`{"action":"deleted"}`),
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return nil
}

// Helper function to map Neo4j Node to Account struct
func mapNodeToAccount(node neo4j.Node) (*model.Account, error) {
	props := node.Props
	account := &model.Account{}

	account.ID = props["id"].(string)
	account.Login = props["login"].(string)
	account.DisplayName = props["display_name"].(string)

	var err error
	if account.CreatedAt, err = helper_util.ParseTime(props["createdAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse account createdAt: %w", err)
	}
	if account.UpdatedAt, err = helper_util.ParseTime(props["updatedAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse account updatedAt: %w", err)
	}

	return account, nil
}

// requestingUserID pulls the acting operator from the context; DAO
// audit entries fall back to "system" for background work.
func requestingUserID(ctx context.Context) string {
	if userID, ok := ctx.Value("requestingUserID").(string); ok && userID != "" {
		return userID
	}
	return "system"
}

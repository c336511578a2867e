// api/dao/account_dao_test.go
package dao

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/labops/labportal/api/model"
	portal_mock "github.com/labops/labportal/api/test/mock"
)

func newMockedAccountDAO() (*AccountDAO, *daoMocks) {
	m := newDAOMocks()
	return &AccountDAO{Driver: m.driver, AuditService: m.audit}, m
}

// The account upsert matches on the lowercased login and writes the
// display name under ON CREATE only, so a login seen again with a
// different display name keeps the one it was created with.
func TestFindOrCreateAccountWritesDisplayNameOnCreateOnly(t *testing.T) {
	dao, m := newMockedAccountDAO()
	m.runWriteTransactions(&model.Account{ID: "account-1", Login: "zhangsan", DisplayName: "张三"})

	node := neo4j.Node{
		Labels: []string{"Account"},
		Props: map[string]interface{}{
			"id":           "account-1",
			"login":        "zhangsan",
			"display_name": "张三",
			"createdAt":    "2026-08-01T09:00:00Z",
			"updatedAt":    "2026-08-01T09:00:00Z",
		},
	}
	result := new(portal_mock.MockResult)
	result.On("Next").Return(true).Once()
	result.On("Record").Return(&neo4j.Record{Keys: []string{"a"}, Values: []interface{}{node}})

	var cypher string
	var params map[string]interface{}
	m.tx.On("Run", mock.MatchedBy(func(query string) bool {
		return strings.Contains(query, "MERGE (a:Account")
	}), mock.Anything).
		Return(result, nil).
		Run(func(args mock.Arguments) {
			cypher = args.Get(0).(string)
			params = args.Get(1).(map[string]interface{})
		})

	account, err := dao.FindOrCreateAccount(context.Background(), "ZhangSan", "张三（新）")
	require.NoError(t, err)
	assert.Equal(t, "account-1", account.ID)
	assert.Equal(t, "张三", account.DisplayName)

	require.NotEmpty(t, cypher)
	assert.Contains(t, cypher, "login_lower: toLower($login)")
	assert.Contains(t, cypher, "ON CREATE SET")
	assert.NotContains(t, cypher, "ON MATCH")
	assert.Equal(t, "ZhangSan", params["login"])
	assert.Equal(t, "张三（新）", params["displayName"])
}

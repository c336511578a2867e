// api/dao/request_dao_test.go
package dao

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labops/labportal/api/audit"
	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
	portal_mock "github.com/labops/labportal/api/test/mock"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type daoMocks struct {
	driver  *portal_mock.MockDriver
	session *portal_mock.MockSession
	tx      *portal_mock.MockTransaction
	audit   *portal_mock.MockAuditService
}

func newDAOMocks() *daoMocks {
	m := &daoMocks{
		driver:  new(portal_mock.MockDriver),
		session: new(portal_mock.MockSession),
		tx:      new(portal_mock.MockTransaction),
		audit:   new(portal_mock.MockAuditService),
	}
	m.driver.On("NewSession", mock.Anything).Return(m.session)
	m.session.On("Close").Return(nil)
	return m
}

func newMockedRequestDAO() (*RequestDAO, *daoMocks) {
	m := newDAOMocks()
	return &RequestDAO{Driver: m.driver, AuditService: m.audit}, m
}

// runWriteTransactions makes the session mock execute each transaction
// function against the transaction mock, so the Cypher a write issues is
// visible to the transaction's expectations.
func (m *daoMocks) runWriteTransactions(result interface{}) {
	m.session.On("WriteTransaction", mock.Anything, mock.Anything).
		Return(result, nil).
		Run(func(args mock.Arguments) {
			work := args.Get(0).(neo4j.TransactionWork)
			work(m.tx)
		})
}

func TestEnsureUniqueConstraint(t *testing.T) {
	dao, m := newMockedRequestDAO()
	m.runWriteTransactions(nil)
	m.tx.On("Run", mock.MatchedBy(func(cypher string) bool {
		return strings.Contains(cypher, "unique_request_id")
	}), mock.Anything).Return(nil, nil)

	require.NoError(t, dao.EnsureUniqueConstraint(context.Background()))
	m.tx.AssertExpectations(t)
}

func TestCreateRequestPersistsEnvelopeAndPayload(t *testing.T) {
	dao, m := newMockedRequestDAO()
	m.runWriteTransactions(nil)

	var params map[string]interface{}
	m.tx.On("Run", mock.MatchedBy(func(cypher string) bool {
		return strings.Contains(cypher, "CREATE (q:Request")
	}), mock.Anything).
		Return(nil, nil).
		Run(func(args mock.Arguments) {
			params = args.Get(1).(map[string]interface{})
		})
	m.audit.On("LogAction", mock.Anything, mock.MatchedBy(func(log audit.AuditLog) bool {
		return log.Action == "SUBMIT_REQUEST"
	})).Return(nil)

	id, err := dao.CreateRequest(context.Background(), model.Request{
		Kind:        model.RequestKindAddAccount,
		RequestedBy: "operator-1",
		Reason:      "new hire",
		AddAccount: &model.AddAccountPayload{
			SystemID:     "system-1",
			Login:        "zhangsan",
			DisplayName:  "张三",
			ComputerRole: "User",
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NotNil(t, params)
	assert.Equal(t, id, params["id"])
	assert.Equal(t, "add_account", params["kind"])
	assert.Equal(t, "pending", params["status"])
	assert.Equal(t, "operator-1", params["requestedBy"])
	assert.Contains(t, params["payload"], `"login":"zhangsan"`)
	m.audit.AssertExpectations(t)
}

func TestCreateRequestRejectsMissingPayload(t *testing.T) {
	dao, _ := newMockedRequestDAO()

	_, err := dao.CreateRequest(context.Background(), model.Request{
		Kind:        model.RequestKindAddAccount,
		RequestedBy: "operator-1",
	})
	assert.ErrorIs(t, err, portal_errors.ErrInvalidRequestData)
}

func TestGetRequestMapsNodeProperties(t *testing.T) {
	dao, m := newMockedRequestDAO()

	node := neo4j.Node{
		Labels: []string{"Request"},
		Props: map[string]interface{}{
			"id":          "request-1",
			"kind":        "add_account",
			"status":      "pending",
			"requestedBy": "operator-1",
			"reason":      "new hire",
			"payload":     `{"system_id":"system-1","login":"zhangsan","display_name":"张三","computer_role":"User"}`,
			"createdAt":   "2026-08-01T09:00:00Z",
			"updatedAt":   "2026-08-01T09:00:00Z",
		},
	}
	result := new(portal_mock.MockResult)
	result.On("Next").Return(true).Once()
	result.On("Record").Return(&neo4j.Record{Keys: []string{"q"}, Values: []interface{}{node}})
	m.session.On("Run", mock.Anything, map[string]interface{}{"id": "request-1"}, mock.Anything).
		Return(result, nil)

	request, err := dao.GetRequest(context.Background(), "request-1")
	require.NoError(t, err)
	assert.Equal(t, "request-1", request.ID)
	assert.Equal(t, model.RequestKindAddAccount, request.Kind)
	assert.Equal(t, model.RequestStatusPending, request.Status)
	assert.Equal(t, "new hire", request.Reason)
	require.NotNil(t, request.AddAccount)
	assert.Equal(t, "zhangsan", request.AddAccount.Login)
	assert.Equal(t, "张三", request.AddAccount.DisplayName)
	assert.Nil(t, request.DecidedAt)
}

func TestGetRequestNotFound(t *testing.T) {
	dao, m := newMockedRequestDAO()

	result := new(portal_mock.MockResult)
	result.On("Next").Return(false)
	m.session.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(result, nil)

	_, err := dao.GetRequest(context.Background(), "request-missing")
	assert.ErrorIs(t, err, portal_errors.ErrRequestNotFound)
}

func TestMarkStatusReportsTransitionOutcome(t *testing.T) {
	dao, m := newMockedRequestDAO()
	m.runWriteTransactions(true)

	result := new(portal_mock.MockResult)
	result.On("Next").Return(true).Once()
	result.On("Record").Return(&neo4j.Record{Keys: []string{"transitioned"}, Values: []interface{}{true}})
	m.tx.On("Run", mock.MatchedBy(func(cypher string) bool {
		return strings.Contains(cypher, "q.status = $from AS transitioned")
	}), mock.MatchedBy(func(params map[string]interface{}) bool {
		return params["id"] == "request-1" &&
			params["from"] == "pending" &&
			params["to"] == "completed"
	})).Return(result, nil)
	m.audit.On("LogAction", mock.Anything, mock.MatchedBy(func(log audit.AuditLog) bool {
		return log.Action == "DECIDE_REQUEST" && log.RequestID == "request-1"
	})).Return(nil)

	transitioned, err := dao.MarkStatus(context.Background(), "request-1",
		model.RequestStatusPending, model.RequestStatusCompleted, "", "admin-1")
	require.NoError(t, err)
	assert.True(t, transitioned)
	m.audit.AssertExpectations(t)
}

func TestMarkStatusLosingRaceDoesNotAudit(t *testing.T) {
	dao, m := newMockedRequestDAO()
	m.runWriteTransactions(false)

	result := new(portal_mock.MockResult)
	result.On("Next").Return(true).Once()
	result.On("Record").Return(&neo4j.Record{Keys: []string{"transitioned"}, Values: []interface{}{false}})
	m.tx.On("Run", mock.Anything, mock.Anything).Return(result, nil)

	transitioned, err := dao.MarkStatus(context.Background(), "request-1",
		model.RequestStatusPending, model.RequestStatusCancelled, "", "operator-1")
	require.NoError(t, err)
	assert.False(t, transitioned)
	m.audit.AssertNotCalled(t, "LogAction", mock.Anything, mock.Anything)
}

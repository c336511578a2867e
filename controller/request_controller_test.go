// api/controller/request_controller_test.go
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type mockRequestService struct {
	mock.Mock
}

func (m *mockRequestService) SubmitAddAccount(ctx context.Context, payload model.AddAccountPayload, requesterID, reason string) (*model.Request, error) {
	args := m.Called(ctx, payload, requesterID, reason)
	request, _ := args.Get(0).(*model.Request)
	return request, args.Error(1)
}

func (m *mockRequestService) SubmitDisableByDisplayName(ctx context.Context, displayName, requesterID, reason string) (*model.DisableSubmission, error) {
	args := m.Called(ctx, displayName, requesterID, reason)
	submission, _ := args.Get(0).(*model.DisableSubmission)
	return submission, args.Error(1)
}

func (m *mockRequestService) SubmitPartialDisable(ctx context.Context, accountID string, linkIDs []string, requesterID, reason string) (*model.Request, error) {
	args := m.Called(ctx, accountID, linkIDs, requesterID, reason)
	request, _ := args.Get(0).(*model.Request)
	return request, args.Error(1)
}

func (m *mockRequestService) SubmitRoleChange(ctx context.Context, payload model.RoleChangePayload, requesterID, reason string) (*model.Request, error) {
	args := m.Called(ctx, payload, requesterID, reason)
	request, _ := args.Get(0).(*model.Request)
	return request, args.Error(1)
}

func (m *mockRequestService) SubmitACSDeletion(ctx context.Context, payload model.ACSDeletionPayload, requesterID, reason string) (*model.Request, error) {
	args := m.Called(ctx, payload, requesterID, reason)
	request, _ := args.Get(0).(*model.Request)
	return request, args.Error(1)
}

func (m *mockRequestService) CancelRequest(ctx context.Context, requestID, cancellerID, cancellerRole string) error {
	args := m.Called(ctx, requestID, cancellerID, cancellerRole)
	return args.Error(0)
}

func (m *mockRequestService) GetRequest(ctx context.Context, requestID string) (*model.Request, error) {
	args := m.Called(ctx, requestID)
	request, _ := args.Get(0).(*model.Request)
	return request, args.Error(1)
}

func (m *mockRequestService) ListRequests(ctx context.Context, criteria model.RequestSearchCriteria) ([]*model.Request, error) {
	args := m.Called(ctx, criteria)
	requests, _ := args.Get(0).([]*model.Request)
	return requests, args.Error(1)
}

type mockReconciliationService struct {
	mock.Mock
}

func (m *mockReconciliationService) Approve(ctx context.Context, requestID, deciderID string) (*model.Request, error) {
	args := m.Called(ctx, requestID, deciderID)
	request, _ := args.Get(0).(*model.Request)
	return request, args.Error(1)
}

// newRequestRouter wires the controller behind a stub auth layer that
// injects the requesting operator.
func newRequestRouter(requestSvc *mockRequestService, reconSvc *mockReconciliationService, userID string) *gin.Engine {
	router := gin.New()
	controller := NewRequestController(requestSvc, reconSvc)
	group := router.Group("/api/v1")
	if userID != "" {
		group.Use(func(c *gin.Context) {
			c.Set("requestingUserID", userID)
			c.Set("requestingUserRole", model.PlatformRoleQC)
			c.Next()
		})
	}
	controller.RegisterRoutes(group)
	controller.RegisterAdminRoutes(group)
	return router
}

func perform(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestSubmitAddAccountEndpoint(t *testing.T) {
	requestSvc := new(mockRequestService)
	reconSvc := new(mockReconciliationService)
	router := newRequestRouter(requestSvc, reconSvc, "operator-1")

	payload := model.AddAccountPayload{
		SystemID:     "system-1",
		Login:        "zhangsan",
		DisplayName:  "张三",
		ComputerRole: "User",
	}
	requestSvc.On("SubmitAddAccount", mock.Anything, payload, "operator-1", "new hire").
		Return(&model.Request{ID: "request-1", Kind: model.RequestKindAddAccount, Status: model.RequestStatusPending}, nil)

	recorder := perform(router, http.MethodPost, "/api/v1/requests/add-account", gin.H{
		"system_id":     "system-1",
		"login":         "zhangsan",
		"display_name":  "张三",
		"computer_role": "User",
		"reason":        "new hire",
	})

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"id":"request-1"`)
	requestSvc.AssertExpectations(t)
}

func TestSubmitAddAccountDuplicateConflicts(t *testing.T) {
	requestSvc := new(mockRequestService)
	router := newRequestRouter(requestSvc, new(mockReconciliationService), "operator-1")

	requestSvc.On("SubmitAddAccount", mock.Anything, mock.Anything, "operator-1", "").
		Return(nil, portal_errors.ErrDuplicateRequest)

	recorder := perform(router, http.MethodPost, "/api/v1/requests/add-account", gin.H{
		"system_id":     "system-1",
		"login":         "zhangsan",
		"display_name":  "张三",
		"computer_role": "User",
	})

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestSubmitRequestWithoutAuthContext(t *testing.T) {
	router := newRequestRouter(new(mockRequestService), new(mockReconciliationService), "")

	recorder := perform(router, http.MethodPost, "/api/v1/requests/add-account", gin.H{
		"system_id":     "system-1",
		"login":         "zhangsan",
		"display_name":  "张三",
		"computer_role": "User",
	})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestSubmitDisableAccountRequiresDisplayName(t *testing.T) {
	router := newRequestRouter(new(mockRequestService), new(mockReconciliationService), "operator-1")

	recorder := perform(router, http.MethodPost, "/api/v1/requests/disable-account", gin.H{
		"reason": "left the lab",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSubmitDisableAccountReportsFanOut(t *testing.T) {
	requestSvc := new(mockRequestService)
	router := newRequestRouter(requestSvc, new(mockReconciliationService), "operator-1")

	requestSvc.On("SubmitDisableByDisplayName", mock.Anything, "张三", "operator-1", "left the lab").
		Return(&model.DisableSubmission{Created: 2, Skipped: 1, RequestIDs: []string{"request-1", "request-2"}}, nil)

	recorder := perform(router, http.MethodPost, "/api/v1/requests/disable-account", gin.H{
		"display_name": "张三",
		"reason":       "left the lab",
	})

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"created":2`)
	assert.Contains(t, recorder.Body.String(), `"skipped":1`)
}

func TestApproveRequestEndpoint(t *testing.T) {
	reconSvc := new(mockReconciliationService)
	router := newRequestRouter(new(mockRequestService), reconSvc, "admin-1")

	reconSvc.On("Approve", mock.Anything, "request-1", "admin-1").
		Return(&model.Request{ID: "request-1", Status: model.RequestStatusCompleted}, nil)

	recorder := perform(router, http.MethodPost, "/api/v1/requests/request-1/approve", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"completed"`)
	reconSvc.AssertExpectations(t)
}

func TestApproveAlreadyProcessedConflicts(t *testing.T) {
	reconSvc := new(mockReconciliationService)
	router := newRequestRouter(new(mockRequestService), reconSvc, "admin-1")

	reconSvc.On("Approve", mock.Anything, "request-1", "admin-1").
		Return(nil, portal_errors.ErrRequestAlreadyProcessed)

	recorder := perform(router, http.MethodPost, "/api/v1/requests/request-1/approve", nil)

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestCancelRequestEndpoint(t *testing.T) {
	requestSvc := new(mockRequestService)
	router := newRequestRouter(requestSvc, new(mockReconciliationService), "operator-1")

	requestSvc.On("CancelRequest", mock.Anything, "request-1", "operator-1", model.PlatformRoleQC).Return(nil)

	recorder := perform(router, http.MethodPost, "/api/v1/requests/request-1/cancel", nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestCancelRequestForbiddenForOtherOperator(t *testing.T) {
	requestSvc := new(mockRequestService)
	router := newRequestRouter(requestSvc, new(mockReconciliationService), "operator-2")

	requestSvc.On("CancelRequest", mock.Anything, "request-1", "operator-2", model.PlatformRoleQC).
		Return(portal_errors.ErrCancelNotAllowed)

	recorder := perform(router, http.MethodPost, "/api/v1/requests/request-1/cancel", nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestListRequestsPassesFilters(t *testing.T) {
	requestSvc := new(mockRequestService)
	router := newRequestRouter(requestSvc, new(mockReconciliationService), "operator-1")

	requestSvc.On("ListRequests", mock.Anything, model.RequestSearchCriteria{
		Kind:   model.RequestKindAddAccount,
		Status: model.RequestStatusPending,
		Limit:  10,
		Offset: 0,
	}).Return([]*model.Request{}, nil)

	recorder := perform(router, http.MethodGet, "/api/v1/requests?kind=add_account&status=pending&limit=10", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	requestSvc.AssertExpectations(t)
}

// api/controller/system_controller_test.go
package controller_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/labops/labportal/api/controller"
	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/model"
	mock_service "github.com/labops/labportal/api/test/service_mock"
)

func setupSystemRouter(systemService *mock_service.MockISystemService) *gin.Engine {
	router := gin.New()
	systemController := controller.NewSystemController(systemService)
	api := router.Group("/")
	api.Use(func(c *gin.Context) {
		c.Set("requestingUserID", "admin-1")
		c.Next()
	})
	systemController.RegisterRoutes(api)
	systemController.RegisterAdminRoutes(api)
	return router
}

func TestSystemController(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSystemService := mock_service.NewMockISystemService(ctrl)
	router := setupSystemRouter(mockSystemService)

	t.Run("CreateSystem_Success", func(t *testing.T) {
		mockSystemService.EXPECT().
			CreateSystem(gomock.Any(), gomock.Any(), "admin-1").
			Return(&model.System{ID: "system-1", Code: "HPLC-01", Name: "Agilent 1260"}, nil)

		body := strings.NewReader(`{"code":"HPLC-01","name":"Agilent 1260","hostname":"lab-hplc-01"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/systems", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("CreateSystem_DuplicateCode", func(t *testing.T) {
		mockSystemService.EXPECT().
			CreateSystem(gomock.Any(), gomock.Any(), "admin-1").
			Return(nil, portal_errors.ErrSystemConflict)

		body := strings.NewReader(`{"code":"HPLC-01","name":"Agilent 1260"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/systems", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("GetSystem_NotFound", func(t *testing.T) {
		mockSystemService.EXPECT().
			GetSystem(gomock.Any(), "system-missing").
			Return(nil, portal_errors.ErrSystemNotFound)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/systems/system-missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListSystems_Success", func(t *testing.T) {
		mockSystemService.EXPECT().
			ListSystems(gomock.Any(), 10, 0).
			Return([]*model.System{{ID: "system-1", Code: "HPLC-01"}}, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/systems", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"HPLC-01"`)
	})

	t.Run("RecordCheck_Success", func(t *testing.T) {
		mockSystemService.EXPECT().
			RecordCheck(gomock.Any(), "system-1", true, gomock.Any(), "admin-1").
			Return(nil)

		body := strings.NewReader(`{"qa":true,"checked_at":"2026-08-30T10:00:00Z"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/systems/system-1/checks", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("DeleteSystem_StillInUse", func(t *testing.T) {
		mockSystemService.EXPECT().
			DeleteSystem(gomock.Any(), "system-1", "admin-1").
			Return(portal_errors.ErrSystemInUse)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/systems/system-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("DeleteSystem_Success", func(t *testing.T) {
		mockSystemService.EXPECT().
			DeleteSystem(gomock.Any(), "system-1", "admin-1").
			Return(nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/systems/system-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

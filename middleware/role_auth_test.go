// api/middleware/role_auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()
	viper.Set("auth.jwt_secret", "test-signing-secret")
	os.Exit(m.Run())
}

func newGatedRouter(allowedRoles ...string) *gin.Engine {
	router := gin.New()
	router.GET("/probe", RoleAuthMiddleware(allowedRoles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("requestingUserID"),
			"role":    c.GetString("requestingUserRole"),
		})
	})
	return router
}

func probe(t *testing.T, router *gin.Engine, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := IssueToken(model.PlatformUser{
		ID:          "user-1",
		Username:    "qc1",
		DisplayName: "质检员",
		Role:        model.PlatformRoleQC,
	})
	require.NoError(t, err)

	recorder := probe(t, newGatedRouter(), token)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"user_id":"user-1"`)
	assert.Contains(t, recorder.Body.String(), `"role":"qc"`)
}

func TestMissingAndInvalidTokens(t *testing.T) {
	router := newGatedRouter()

	recorder := probe(t, router, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = probe(t, router, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestTokenSignedWithWrongSecret(t *testing.T) {
	viper.Set("auth.jwt_secret", "other-secret")
	token, err := IssueToken(model.PlatformUser{ID: "user-1", Username: "qc1", Role: model.PlatformRoleQC})
	require.NoError(t, err)
	viper.Set("auth.jwt_secret", "test-signing-secret")

	recorder := probe(t, newGatedRouter(), token)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRoleGate(t *testing.T) {
	qcToken, err := IssueToken(model.PlatformUser{ID: "user-1", Username: "qc1", Role: model.PlatformRoleQC})
	require.NoError(t, err)
	adminToken, err := IssueToken(model.PlatformUser{ID: "user-2", Username: "admin", Role: model.PlatformRoleAdmin})
	require.NoError(t, err)

	adminOnly := newGatedRouter(model.PlatformRoleAdmin)

	recorder := probe(t, adminOnly, qcToken)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = probe(t, adminOnly, adminToken)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// Admins pass gates scoped to other roles too.
	qaOnly := newGatedRouter(model.PlatformRoleQA)
	recorder = probe(t, qaOnly, adminToken)
	assert.Equal(t, http.StatusOK, recorder.Code)
	recorder = probe(t, qaOnly, qcToken)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labops/labportal/api/config"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
)

// tokenTTL is how long an issued session token stays valid.
const tokenTTL = 12 * time.Hour

type PortalClaims struct {
	jwt.StandardClaims
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// IssueToken signs a session token for an authenticated operator.
func IssueToken(user model.PlatformUser) (string, error) {
	now := time.Now()
	claims := PortalClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(tokenTTL).Unix(),
		},
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.GetString("auth.jwt_secret")))
	if err != nil {
		logger.Error("Failed to sign token", zap.Error(err), zap.String("username", user.Username))
		return "", err
	}
	return signed, nil
}

// RoleAuthMiddleware verifies the bearer token and gates the route on
// the operator's platform role. An empty allowedRoles list admits any
// authenticated operator.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			logger.Warn("No Authorization token provided", zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		claims, err := parseToken(tokenString)
		if err != nil {
			logger.Warn("Rejected invalid token", zap.Error(err), zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		if !roleAllowed(claims.Role, allowedRoles) {
			logger.Warn("Operator role not allowed for route",
				zap.String("username", claims.Username),
				zap.String("role", claims.Role),
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			c.Abort()
			return
		}

		c.Set("requestingUserID", claims.Subject)
		c.Set("requestingUser", claims.Username)
		c.Set("requestingUserRole", claims.Role)

		c.Next()
	}
}

func parseToken(tokenString string) (*PortalClaims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &PortalClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.GetString("auth.jwt_secret")), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*PortalClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token or wrong claims type")
}

func roleAllowed(role string, allowedRoles []string) bool {
	if len(allowedRoles) == 0 {
		return true
	}
	// Admins pass every role gate
	if role == model.PlatformRoleAdmin {
		return true
	}
	for _, allowed := range allowedRoles {
		if role == allowed {
			return true
		}
	}
	return false
}

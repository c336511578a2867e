// api/router/router.go

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labops/labportal/api/controller"
	"github.com/labops/labportal/api/db"
	"github.com/labops/labportal/api/middleware"
	"github.com/labops/labportal/api/model"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func SetupRouter(
	controllers *controller.Controllers,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))

	router.GET("/healthz", healthCheck)

	api := router.Group("/api/v1")

	// Login and the agent endpoints sit outside the token gate. The
	// agent authenticates by hostname claim only; it runs on the lab
	// network and never crosses it.
	controllers.User.RegisterAuthRoutes(api)
	controllers.Job.RegisterAgentRoutes(api)

	// Any active operator, regardless of role.
	authed := api.Group("")
	authed.Use(middleware.RoleAuthMiddleware())

	controllers.Account.RegisterRoutes(authed)
	controllers.System.RegisterRoutes(authed)
	controllers.Link.RegisterRoutes(authed)
	controllers.Request.RegisterRoutes(authed)
	controllers.Job.RegisterRoutes(authed)
	controllers.ACS.RegisterRoutes(authed)

	// Approvals, destructive deletes and operator administration.
	admin := api.Group("")
	admin.Use(middleware.RoleAuthMiddleware(model.PlatformRoleAdmin))

	controllers.Request.RegisterAdminRoutes(admin)
	controllers.System.RegisterAdminRoutes(admin)
	controllers.Account.RegisterAdminRoutes(admin)
	controllers.ACS.RegisterAdminRoutes(admin)
	controllers.User.RegisterRoutes(admin)

	return router
}

// healthCheck probes both stores so the portal reports unhealthy as
// soon as either backend is unreachable.
func healthCheck(c *gin.Context) {
	if _, err := db.ExecuteReadTransaction(c, func(tx neo4j.Transaction) (interface{}, error) {
		result, err := tx.Run("RETURN 1", nil)
		if err != nil {
			return nil, err
		}
		_, err = result.Consume()
		return nil, err
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "neo4j": err.Error()})
		return
	}

	if err := db.RedisClient.Ping(c).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "redis": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

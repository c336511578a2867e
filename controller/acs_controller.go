// api/controller/acs_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labops/labportal/api/acs"
	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/util"
)

// ACSController exposes the read side of the external access-control
// database so operators can pick deletion targets.
type ACSController struct {
	client *acs.Client
}

func NewACSController(client *acs.Client) *ACSController {
	return &ACSController{
		client: client,
	}
}

// RegisterRoutes registers the API routes for access-control lookups
func (cc *ACSController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/acs/consumers", cc.ListConsumers)
}

// RegisterAdminRoutes registers the direct deletion endpoint. It
// bypasses the request workflow, so it stays admin-only.
func (cc *ACSController) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.DELETE("/acs/consumers/:number", cc.DeleteConsumer)
}

// ListConsumers endpoint
func (cc *ACSController) ListConsumers(c *gin.Context) {
	consumers, err := cc.client.ListConsumers(c, c.Query("name"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadGateway, "Access-control database unavailable", portal_errors.ErrACSUnavailable)
		return
	}

	c.JSON(http.StatusOK, consumers)
}

// DeleteConsumer endpoint
func (cc *ACSController) DeleteConsumer(c *gin.Context) {
	code, err := cc.client.DeleteConsumer(c, c.Param("number"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadGateway, acs.StatusMessage(code), portal_errors.ErrACSUnavailable)
		return
	}
	if code != acs.CodeOK {
		util.RespondWithError(c, http.StatusUnprocessableEntity, acs.StatusMessage(code), portal_errors.ErrACSOperationFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": acs.StatusMessage(code)})
}

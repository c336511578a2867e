// api/controller/request_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/service"
	"github.com/labops/labportal/api/util"
	helper_util "github.com/labops/labportal/api/util/helper"
)

type RequestController struct {
	requestService        service.IRequestService
	reconciliationService service.IReconciliationService
}

func NewRequestController(requestService service.IRequestService, reconciliationService service.IReconciliationService) *RequestController {
	return &RequestController{
		requestService:        requestService,
		reconciliationService: reconciliationService,
	}
}

// RegisterRoutes registers the API routes for change requests
func (rc *RequestController) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/requests")
	{
		requests.POST("/add-account", rc.SubmitAddAccount)
		requests.POST("/disable-account", rc.SubmitDisableAccount)
		requests.POST("/partial-disable", rc.SubmitPartialDisable)
		requests.POST("/role-change", rc.SubmitRoleChange)
		requests.POST("/acs-deletion", rc.SubmitACSDeletion)
		requests.GET("/:id", rc.GetRequest)
		requests.GET("", rc.ListRequests)
		requests.POST("/:id/cancel", rc.CancelRequest)
	}
}

// RegisterAdminRoutes registers the approval endpoint, which only
// admins may call.
func (rc *RequestController) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/requests/:id/approve", rc.ApproveRequest)
}

// SubmitAddAccount endpoint
func (rc *RequestController) SubmitAddAccount(c *gin.Context) {
	var body struct {
		model.AddAccountPayload
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", portal_errors.ErrInvalidRequestData)
		return
	}
	requesterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", portal_errors.ErrUnauthorized)
		return
	}

	request, err := rc.requestService.SubmitAddAccount(c, body.AddAccountPayload, requesterID, body.Reason)
	if err != nil {
		rc.respondSubmitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// SubmitDisableAccount endpoint fans out by display name
func (rc *RequestController) SubmitDisableAccount(c *gin.Context) {
	var body struct {
		DisplayName string `json:"display_name"`
		Reason      string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.DisplayName == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", portal_errors.ErrInvalidRequestData)
		return
	}
	requesterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	submission, err := rc.requestService.SubmitDisableByDisplayName(c, body.DisplayName, requesterID, body.Reason)
	if err != nil {
		if errors.Is(err, portal_errors.ErrAccountNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "No account carries that display name", err)
		} else {
			rc.respondSubmitError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, submission)
}

// SubmitPartialDisable endpoint
func (rc *RequestController) SubmitPartialDisable(c *gin.Context) {
	var body struct {
		AccountID string   `json:"account_id"`
		LinkIDs   []string `json:"link_ids"`
		Reason    string   `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", portal_errors.ErrInvalidRequestData)
		return
	}
	requesterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	request, err := rc.requestService.SubmitPartialDisable(c, body.AccountID, body.LinkIDs, requesterID, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrAccountNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Account not found", err)
		case errors.Is(err, portal_errors.ErrLinkNotFound):
			util.RespondWithError(c, http.StatusBadRequest, "No selected link belongs to the account", err)
		default:
			rc.respondSubmitError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, request)
}

// SubmitRoleChange endpoint
func (rc *RequestController) SubmitRoleChange(c *gin.Context) {
	var body struct {
		model.RoleChangePayload
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", portal_errors.ErrInvalidRequestData)
		return
	}
	requesterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	request, err := rc.requestService.SubmitRoleChange(c, body.RoleChangePayload, requesterID, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrSystemNotFound):
			util.RespondWithError(c, http.StatusNotFound, "System not found", err)
		case errors.Is(err, portal_errors.ErrAccountNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Account not found", err)
		default:
			rc.respondSubmitError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, request)
}

// SubmitACSDeletion endpoint
func (rc *RequestController) SubmitACSDeletion(c *gin.Context) {
	var body struct {
		model.ACSDeletionPayload
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", portal_errors.ErrInvalidRequestData)
		return
	}
	requesterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	request, err := rc.requestService.SubmitACSDeletion(c, body.ACSDeletionPayload, requesterID, body.Reason)
	if err != nil {
		rc.respondSubmitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// GetRequest endpoint
func (rc *RequestController) GetRequest(c *gin.Context) {
	requestID := c.Param("id")

	request, err := rc.requestService.GetRequest(c, requestID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrRequestNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Request not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve request", err)
		}
		return
	}

	c.JSON(http.StatusOK, request)
}

// ListRequests endpoint
func (rc *RequestController) ListRequests(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	criteria := model.RequestSearchCriteria{
		Kind:        model.RequestKind(c.Query("kind")),
		Status:      model.RequestStatus(c.Query("status")),
		RequestedBy: c.Query("requested_by"),
		Limit:       limit,
		Offset:      offset,
	}

	requests, err := rc.requestService.ListRequests(c, criteria)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// CancelRequest endpoint withdraws a pending request
func (rc *RequestController) CancelRequest(c *gin.Context) {
	requestID := c.Param("id")
	cancellerID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	cancellerRole, err := util.GetUserRoleFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := rc.requestService.CancelRequest(c, requestID, cancellerID, cancellerRole); err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrRequestNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Request not found", err)
		case errors.Is(err, portal_errors.ErrCancelNotAllowed):
			util.RespondWithError(c, http.StatusForbidden, "Only the requester or an administrator may cancel", err)
		case errors.Is(err, portal_errors.ErrRequestAlreadyProcessed):
			util.RespondWithError(c, http.StatusConflict, "Request already decided", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel request", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// ApproveRequest endpoint decides a pending request
func (rc *RequestController) ApproveRequest(c *gin.Context) {
	requestID := c.Param("id")
	deciderID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	decided, err := rc.reconciliationService.Approve(c, requestID, deciderID)
	if err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrRequestNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Request not found", err)
		case errors.Is(err, portal_errors.ErrRequestAlreadyProcessed):
			util.RespondWithError(c, http.StatusConflict, "Request already decided", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to approve request", err)
		}
		return
	}

	c.JSON(http.StatusOK, decided)
}

func (rc *RequestController) respondSubmitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, portal_errors.ErrDuplicateRequest):
		util.RespondWithError(c, http.StatusConflict, "A matching request is already pending", err)
	case errors.Is(err, portal_errors.ErrSystemNotFound):
		util.RespondWithError(c, http.StatusNotFound, "System not found", err)
	case errors.Is(err, portal_errors.ErrDatabaseOperation):
		util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
	default:
		util.RespondWithError(c, http.StatusBadRequest, "Failed to submit request", err)
	}
}

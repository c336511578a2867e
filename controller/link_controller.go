// api/controller/link_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/service"
	"github.com/labops/labportal/api/util"
)

type LinkController struct {
	linkService service.ILinkService
}

func NewLinkController(linkService service.ILinkService) *LinkController {
	return &LinkController{
		linkService: linkService,
	}
}

// RegisterRoutes registers the API routes for access links
func (lc *LinkController) RegisterRoutes(r *gin.RouterGroup) {
	links := r.Group("/links")
	{
		links.POST("", lc.CreateLink)
		links.PUT("/:id/active", lc.SetLinkActive)
		links.POST("/import", lc.ImportLinks)
	}
	r.GET("/systems/:id/links", lc.ListLinksBySystem)
	r.GET("/accounts/:id/links", lc.ListLinksByAccount)
}

// CreateLink endpoint
func (lc *LinkController) CreateLink(c *gin.Context) {
	var link model.AccessLink
	if err := c.ShouldBindJSON(&link); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid link data", portal_errors.ErrInvalidLinkData)
		return
	}
	creatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", portal_errors.ErrUnauthorized)
		return
	}

	createdLink, err := lc.linkService.CreateLink(c, link, creatorID)
	if err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrDuplicateLink):
			util.RespondWithError(c, http.StatusConflict, "Link already exists", err)
		case errors.Is(err, portal_errors.ErrLinkNotFound):
			util.RespondWithError(c, http.StatusNotFound, "System or account not found", err)
		case errors.Is(err, portal_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to create link", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdLink)
}

// SetLinkActive endpoint toggles one link
func (lc *LinkController) SetLinkActive(c *gin.Context) {
	linkID := c.Param("id")
	var body struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid link data", err)
		return
	}
	updaterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := lc.linkService.SetLinkActive(c, linkID, body.Active, updaterID); err != nil {
		if errors.Is(err, portal_errors.ErrLinkNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Link not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update link", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// ImportLinks endpoint applies a pasted batch of links to one system
func (lc *LinkController) ImportLinks(c *gin.Context) {
	var body struct {
		SystemID string         `json:"system_id"`
		Kind     model.LinkKind `json:"kind"`
		Lines    []string       `json:"lines"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid import data", portal_errors.ErrInvalidLinkData)
		return
	}
	importerID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	result, err := lc.linkService.ImportLinks(c, body.SystemID, body.Kind, body.Lines, importerID)
	if err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrSystemNotFound):
			util.RespondWithError(c, http.StatusNotFound, "System not found", err)
		case errors.Is(err, portal_errors.ErrInvalidLinkData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid import data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to import links", err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListLinksBySystem endpoint
func (lc *LinkController) ListLinksBySystem(c *gin.Context) {
	systemID := c.Param("id")

	links, err := lc.linkService.ListLinksBySystem(c, systemID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrSystemNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "System not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to list links", err)
		}
		return
	}

	c.JSON(http.StatusOK, links)
}

// ListLinksByAccount endpoint
func (lc *LinkController) ListLinksByAccount(c *gin.Context) {
	accountID := c.Param("id")

	links, err := lc.linkService.ListLinksByAccount(c, accountID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrAccountNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Account not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to list links", err)
		}
		return
	}

	c.JSON(http.StatusOK, links)
}

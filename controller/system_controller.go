// api/controller/system_controller.go
package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/service"
	"github.com/labops/labportal/api/util"
	helper_util "github.com/labops/labportal/api/util/helper"
)

type SystemController struct {
	systemService service.ISystemService
}

func NewSystemController(systemService service.ISystemService) *SystemController {
	return &SystemController{
		systemService: systemService,
	}
}

// RegisterRoutes registers the API routes for managed systems
func (sc *SystemController) RegisterRoutes(r *gin.RouterGroup) {
	systems := r.Group("/systems")
	{
		systems.POST("", sc.CreateSystem)
		systems.PUT("/:id", sc.UpdateSystem)
		systems.GET("/:id", sc.GetSystem)
		systems.GET("", sc.ListSystems)
		systems.POST("/:id/checks", sc.RecordCheck)
	}
}

// RegisterAdminRoutes registers the destructive system endpoints
func (sc *SystemController) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.DELETE("/systems/:id", sc.DeleteSystem)
}

// CreateSystem endpoint
func (sc *SystemController) CreateSystem(c *gin.Context) {
	var system model.System
	if err := c.ShouldBindJSON(&system); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid system data", portal_errors.ErrInvalidSystemData)
		return
	}
	creatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", portal_errors.ErrUnauthorized)
		return
	}

	createdSystem, err := sc.systemService.CreateSystem(c, system, creatorID)
	if err != nil {
		switch err {
		case portal_errors.ErrSystemConflict:
			util.RespondWithError(c, http.StatusConflict, "System code already registered", err)
		case portal_errors.ErrDatabaseOperation:
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to create system", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdSystem)
}

// UpdateSystem endpoint
func (sc *SystemController) UpdateSystem(c *gin.Context) {
	systemID := c.Param("id")
	var system model.System
	if err := c.ShouldBindJSON(&system); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid system data", err)
		return
	}
	system.ID = systemID
	updaterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedSystem, err := sc.systemService.UpdateSystem(c, system, updaterID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrSystemNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "System not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update system", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedSystem)
}

// DeleteSystem endpoint
func (sc *SystemController) DeleteSystem(c *gin.Context) {
	systemID := c.Param("id")
	deleterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := sc.systemService.DeleteSystem(c, systemID, deleterID); err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrSystemNotFound):
			util.RespondWithError(c, http.StatusNotFound, "System not found", err)
		case errors.Is(err, portal_errors.ErrSystemInUse):
			util.RespondWithError(c, http.StatusConflict, "System still has links or job history", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete system", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSystem endpoint
func (sc *SystemController) GetSystem(c *gin.Context) {
	systemID := c.Param("id")

	system, err := sc.systemService.GetSystem(c, systemID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrSystemNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "System not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve system", err)
		}
		return
	}

	c.JSON(http.StatusOK, system)
}

// ListSystems endpoint
func (sc *SystemController) ListSystems(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	systems, err := sc.systemService.ListSystems(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list systems", err)
		return
	}

	c.JSON(http.StatusOK, systems)
}

// RecordCheck endpoint stamps a completed periodic or QA check
func (sc *SystemController) RecordCheck(c *gin.Context) {
	systemID := c.Param("id")
	var body struct {
		QA        bool   `json:"qa"`
		CheckedAt string `json:"checked_at"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid check data", err)
		return
	}
	checkerID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	checkedAt := time.Now()
	if body.CheckedAt != "" {
		if checkedAt, err = helper_util.ParseTime(body.CheckedAt); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid check date", err)
			return
		}
	}

	if err := sc.systemService.RecordCheck(c, systemID, body.QA, checkedAt, checkerID); err != nil {
		if errors.Is(err, portal_errors.ErrSystemNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "System not found", err)
		} else {
			util.RespondWithError(c, http.StatusBadRequest, "Failed to record check", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

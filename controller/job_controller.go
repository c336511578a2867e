// api/controller/job_controller.go
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

type JobController struct {
	jobService service.IJobService
}

func NewJobController(jobService service.IJobService) *JobController {
	return &JobController{
		jobService: jobService,
	}
}

// RegisterRoutes registers the API routes for scripts and jobs
func (jc *JobController) RegisterRoutes(r *gin.RouterGroup) {
	scripts := r.Group("/scripts")
	{
		scripts.POST("", jc.CreateScript)
		scripts.PUT("/:id", jc.UpdateScript)
		scripts.DELETE("/:id", jc.DeleteScript)
		scripts.GET("/:id", jc.GetScript)
		scripts.GET("", jc.ListScripts)
	}
	jobs := r.Group("/jobs")
	{
		jobs.POST("", jc.QueueJob)
		jobs.GET("/:id", jc.GetJob)
		jobs.GET("", jc.ListJobs)
	}
	r.GET("/systems/:id/jobs", jc.ListJobsBySystem)
}

// RegisterAgentRoutes registers the endpoints the polling agent calls.
// They sit outside the operator auth scope.
func (jc *JobController) RegisterAgentRoutes(r *gin.RouterGroup) {
	agent := r.Group("/agent")
	{
		agent.GET("/jobs", jc.PollJobs)
		agent.POST("/jobs/:id/report", jc.ReportJob)
	}
}

// CreateScript endpoint
func (jc *JobController) CreateScript(c *gin.Context) {
	var script model.Script
	if err := c.ShouldBindJSON(&script); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid script data", portal_errors.ErrInvalidScriptData)
		return
	}
	creatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", portal_errors.ErrUnauthorized)
		return
	}

	createdScript, err := jc.jobService.CreateScript(c, script, creatorID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrDatabaseOperation) {
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		} else {
			util.RespondWithError(c, http.StatusBadRequest, "Failed to create script", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdScript)
}

// UpdateScript endpoint
func (jc *JobController) UpdateScript(c *gin.Context) {
	scriptID := c.Param("id")
	var script model.Script
	if err := c.ShouldBindJSON(&script); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid script data", err)
		return
	}
	script.ID = scriptID
	updaterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedScript, err := jc.jobService.UpdateScript(c, script, updaterID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrScriptNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Script not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update script", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedScript)
}

// DeleteScript endpoint
func (jc *JobController) DeleteScript(c *gin.Context) {
	scriptID := c.Param("id")
	deleterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := jc.jobService.DeleteScript(c, scriptID, deleterID); err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrScriptNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Script not found", err)
		case errors.Is(err, portal_errors.ErrInvalidScriptData):
			util.RespondWithError(c, http.StatusConflict, "Script has job history", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete script", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetScript endpoint
func (jc *JobController) GetScript(c *gin.Context) {
	scriptID := c.Param("id")

	script, err := jc.jobService.GetScript(c, scriptID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrScriptNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Script not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve script", err)
		}
		return
	}

	c.JSON(http.StatusOK, script)
}

// ListScripts endpoint
func (jc *JobController) ListScripts(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	scripts, err := jc.jobService.ListScripts(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list scripts", err)
		return
	}

	c.JSON(http.StatusOK, scripts)
}

// QueueJob endpoint
func (jc *JobController) QueueJob(c *gin.Context) {
	var body struct {
		SystemID string `json:"system_id"`
		ScriptID string `json:"script_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid job data", portal_errors.ErrInvalidJobData)
		return
	}
	requesterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	job, err := jc.jobService.QueueJob(c, body.SystemID, body.ScriptID, requesterID)
	if err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrSystemNotFound):
			util.RespondWithError(c, http.StatusNotFound, "System not found", err)
		case errors.Is(err, portal_errors.ErrScriptNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Script not found", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to queue job", err)
		}
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob endpoint
func (jc *JobController) GetJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := jc.jobService.GetJob(c, jobID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrJobNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Job not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve job", err)
		}
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs endpoint
func (jc *JobController) ListJobs(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	jobs, err := jc.jobService.ListJobs(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list jobs", err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// ListJobsBySystem endpoint
func (jc *JobController) ListJobsBySystem(c *gin.Context) {
	systemID := c.Param("id")
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	jobs, err := jc.jobService.ListJobsBySystem(c, systemID, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list jobs", err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// PollJobs endpoint hands the agent its pending jobs
func (jc *JobController) PollJobs(c *gin.Context) {
	hostname := c.Query("hostname")

	jobs, err := jc.jobService.PollJobs(c, hostname)
	if err != nil {
		if errors.Is(err, portal_errors.ErrInvalidJobData) {
			util.RespondWithError(c, http.StatusBadRequest, "Hostname is required", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to poll jobs", err)
		}
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// ReportJob endpoint records the agent's terminal outcome
func (jc *JobController) ReportJob(c *gin.Context) {
	jobID := c.Param("id")
	var report model.JobReport
	if err := c.ShouldBindJSON(&report); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid report data", portal_errors.ErrInvalidJobData)
		return
	}

	if err := jc.jobService.ReportJob(c, jobID, report); err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrJobNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Job not found", err)
		case errors.Is(err, portal_errors.ErrInvalidJobData):
			util.RespondWithError(c, http.StatusConflict, "Job is not awaiting a report", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to report job", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

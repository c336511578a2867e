// api/service/job_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/util"
)

// IJobService defines the interface for the script catalog, the job
// queue and the agent-facing poll and report operations
type IJobService interface {
	CreateScript(ctx context.Context, script model.Script, creatorID string) (*model.Script, error)
	UpdateScript(ctx context.Context, script model.Script, updaterID string) (*model.Script, error)
	DeleteScript(ctx context.Context, scriptID string, deleterID string) error
	GetScript(ctx context.Context, scriptID string) (*model.Script, error)
	ListScripts(ctx context.Context, limit int, offset int) ([]*model.Script, error)

	QueueJob(ctx context.Context, systemID, scriptID, requesterID string) (*model.Job, error)
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error)
	ListJobsBySystem(ctx context.Context, systemID string, limit, offset int) ([]*model.Job, error)

	PollJobs(ctx context.Context, hostname string) ([]model.AgentJob, error)
	ReportJob(ctx context.Context, jobID string, report model.JobReport) error
}

// JobService handles business logic for maintenance scripts and their
// execution on managed hosts through the polling agent.
type JobService struct {
	jobs            jobStore
	scripts         scriptStore
	systems         systemStore
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IJobService = &JobService{}

// NewJobService creates a new instance of JobService
func NewJobService(jobs jobStore, scripts scriptStore, systems systemStore, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *JobService {
	service := &JobService{
		jobs:            jobs,
		scripts:         scripts,
		systems:         systems,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("job.reported", service.handleJobReported)

	return service
}

func (s *JobService) handleJobReported(ctx context.Context, event util.Event) error {
	job := event.Payload.(model.Job)
	logger.Info("Job reported event received", zap.String("jobID", job.ID))

	if err := s.notificationSvc.NotifyJobChange(ctx, "reported", job); err != nil {
		logger.Warn("Failed to send job notification", zap.Error(err), zap.String("jobID", job.ID))
	}

	return nil
}

// CreateScript adds a script to the catalog
func (s *JobService) CreateScript(ctx context.Context, script model.Script, creatorID string) (*model.Script, error) {
	if err := s.validationUtil.ValidateScript(script); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}

	scriptID, err := s.scripts.CreateScript(ctx, script)
	if err != nil {
		logger.Error("Error creating script", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	script.ID = scriptID

	// Update cache
	if err := s.cacheService.SetScript(ctx, script); err != nil {
		logger.Warn("Failed to cache script", zap.Error(err), zap.String("scriptID", scriptID))
	}

	logger.Info("Script created successfully", zap.String("scriptID", scriptID), zap.String("creatorID", creatorID))
	return &script, nil
}

// UpdateScript updates an existing catalog script
func (s *JobService) UpdateScript(ctx context.Context, script model.Script, updaterID string) (*model.Script, error) {
	if err := s.validationUtil.ValidateScript(script); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}

	updatedScript, err := s.scripts.UpdateScript(ctx, script)
	if err != nil {
		logger.Error("Error updating script", zap.Error(err), zap.String("scriptID", script.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	// Update cache
	if err := s.cacheService.SetScript(ctx, *updatedScript); err != nil {
		logger.Warn("Failed to update script in cache", zap.Error(err), zap.String("scriptID", script.ID))
	}

	return updatedScript, nil
}

// DeleteScript removes a script that has never been run
func (s *JobService) DeleteScript(ctx context.Context, scriptID string, deleterID string) error {
	if err := s.scripts.DeleteScript(ctx, scriptID); err != nil {
		logger.Error("Error deleting script", zap.Error(err), zap.String("scriptID", scriptID), zap.String("deleterID", deleterID))
		return err
	}

	// Remove from cache
	if err := s.cacheService.DeleteScript(ctx, scriptID); err != nil {
		logger.Warn("Failed to delete script from cache", zap.Error(err), zap.String("scriptID", scriptID))
	}

	logger.Info("Script deleted successfully", zap.String("scriptID", scriptID), zap.String("deleterID", deleterID))
	return nil
}

// GetScript retrieves a script by its ID
func (s *JobService) GetScript(ctx context.Context, scriptID string) (*model.Script, error) {
	// Try to get from cache first
	cachedScript, err := s.cacheService.GetScript(ctx, scriptID)
	if err == nil && cachedScript != nil {
		return cachedScript, nil
	}

	script, err := s.scripts.GetScript(ctx, scriptID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrScriptNotFound) {
			return nil, portal_errors.ErrScriptNotFound
		}
		logger.Error("Error retrieving script", zap.Error(err), zap.String("scriptID", scriptID))
		return nil, portal_errors.ErrInternalServer
	}

	// Update cache
	if err := s.cacheService.SetScript(ctx, *script); err != nil {
		logger.Warn("Failed to cache script", zap.Error(err), zap.String("scriptID", scriptID))
	}

	return script, nil
}

// ListScripts retrieves the script catalog
func (s *JobService) ListScripts(ctx context.Context, limit int, offset int) ([]*model.Script, error) {
	scripts, err := s.scripts.ListScripts(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing scripts", zap.Error(err))
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}

	return scripts, nil
}

// QueueJob queues a script run on one system. The job starts pending
// and is picked up on the agent's next poll.
func (s *JobService) QueueJob(ctx context.Context, systemID, scriptID, requesterID string) (*model.Job, error) {
	job := model.Job{
		SystemID:    systemID,
		ScriptID:    scriptID,
		RequestedBy: requesterID,
	}
	if err := s.validationUtil.ValidateJob(job); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}

	system, err := s.systems.GetSystem(ctx, systemID)
	if err != nil {
		return nil, err
	}
	if system.Hostname == "" {
		return nil, fmt.Errorf("system %s has no hostname, no agent can reach it: %w", system.Code, portal_errors.ErrInvalidJobData)
	}
	if _, err := s.scripts.GetScript(ctx, scriptID); err != nil {
		return nil, err
	}

	jobID, err := s.jobs.CreateJob(ctx, job)
	if err != nil {
		logger.Error("Error queuing job", zap.Error(err), zap.String("systemID", systemID))
		return nil, err
	}

	job.ID = jobID
	job.Status = model.JobStatusPending

	logger.Info("Job queued",
		zap.String("jobID", jobID),
		zap.String("systemID", systemID),
		zap.String("scriptID", scriptID),
		zap.String("requesterID", requesterID))
	return &job, nil
}

// GetJob retrieves a job by its ID
func (s *JobService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrJobNotFound) {
			return nil, portal_errors.ErrJobNotFound
		}
		logger.Error("Error retrieving job", zap.Error(err), zap.String("jobID", jobID))
		return nil, portal_errors.ErrInternalServer
	}

	return job, nil
}

// ListJobs retrieves job history, newest first
func (s *JobService) ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error) {
	return s.jobs.ListJobs(ctx, limit, offset)
}

// ListJobsBySystem retrieves job history for one system
func (s *JobService) ListJobsBySystem(ctx context.Context, systemID string, limit, offset int) ([]*model.Job, error) {
	return s.jobs.ListJobsBySystem(ctx, systemID, limit, offset)
}

// PollJobs hands the agent every pending job for its hostname, flipping
// them to running in the same write. Polling again returns nothing
// until new jobs are queued.
func (s *JobService) PollJobs(ctx context.Context, hostname string) ([]model.AgentJob, error) {
	if hostname == "" {
		return nil, portal_errors.ErrInvalidJobData
	}

	claimed, err := s.jobs.ClaimPendingJobs(ctx, hostname)
	if err != nil {
		logger.Error("Error claiming jobs for agent", zap.Error(err), zap.String("hostname", hostname))
		return nil, err
	}

	return claimed, nil
}

// ReportJob records the agent's terminal outcome for one job. A second
// report for the same job is rejected.
func (s *JobService) ReportJob(ctx context.Context, jobID string, report model.JobReport) error {
	if !report.Status.Terminal() {
		return portal_errors.ErrInvalidJobData
	}

	transitioned, err := s.jobs.ReportJob(ctx, jobID, report.Status, report.Output)
	if err != nil {
		logger.Error("Error reporting job", zap.Error(err), zap.String("jobID", jobID))
		return err
	}
	if !transitioned {
		return portal_errors.ErrInvalidJobData
	}

	if job, err := s.jobs.GetJob(ctx, jobID); err == nil {
		s.eventBus.Publish(ctx, "job.reported", *job)
	}

	return nil
}

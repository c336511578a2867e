// api/dao/job_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/labops/labportal/api/audit"
	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
	portal_neo4j "github.com/labops/labportal/api/model/neo4j"
	helper_util "github.com/labops/labportal/api/util/helper"
)

type JobDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewJobDAO(driver neo4j.Driver, auditService audit.Service) *JobDAO {
	dao := &JobDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Job", zap.Error(err))
	}
	return dao
}

func (dao *JobDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on Job")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `CREATE CONSTRAINT unique_job_id IF NOT EXISTS
		FOR (j:` + portal_neo4j.LabelJob + `) REQUIRE j.id IS UNIQUE`
		if _, err := transaction.Run(query, nil); err != nil {
			return nil, err
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on Job", zap.Error(err))
		return err
	}

	return nil
}

// CreateJob queues a script run on one system. The job is linked to
// both the system it runs on and the script it executes.
func (dao *JobDAO) CreateJob(ctx context.Context, job model.Job) (string, error) {
	start := time.Now()
	logger.Info("Creating job",
		zap.String("systemID", job.SystemID),
		zap.String("scriptID", job.ScriptID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (s:` + portal_neo4j.LabelSystem + ` {id: $systemID})
		MATCH (sc:` + portal_neo4j.LabelScript + ` {id: $scriptID})
		CREATE (j:` + portal_neo4j.LabelJob + ` {
			id: $id,
			requestedBy: $requestedBy,
			status: $status,
			output: '',
			createdAt: $now
		})
		MERGE (j)-[:` + portal_neo4j.RelRunsOn + `]->(s)
		MERGE (j)-[:` + portal_neo4j.RelExecutes + `]->(sc)
		RETURN j.id AS id
		`
		params := map[string]interface{}{
			"id":          job.ID,
			"systemID":    job.SystemID,
			"scriptID":    job.ScriptID,
			"requestedBy": job.RequestedBy,
			"status":      string(model.JobStatusPending),
			"now":         time.Now().Format(time.RFC3339),
		}
		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute create job query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return result.Record().Values[0], nil
		}
		// Either endpoint missing means no job row was produced.
		return nil, portal_errors.ErrInvalidJobData
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create job",
			zap.Error(err),
			zap.String("systemID", job.SystemID),
			zap.Duration("duration", duration))
		return "", err
	}

	logger.Info("Job created successfully",
		zap.String("jobID", job.ID),
		zap.Duration("duration", duration))

	// Audit trail
	details, _ := json.Marshal(map[string]interface{}{
		"action": "queued", "system_id": job.SystemID, "script_id": job.ScriptID,
	})
	auditLog := audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        requestingUserID(ctx),
		Action:        "CREATE_JOB",
		ResourceID:    job.ID,
		Success:       true,
		ChangeDetails: details,
	}
	if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err))
	}

	return job.ID, nil
}

func (dao *JobDAO) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
	MATCH (j:` + portal_neo4j.LabelJob + ` {id: $id})-[:` + portal_neo4j.RelRunsOn + `]->(s:` + portal_neo4j.LabelSystem + `)
	MATCH (j)-[:` + portal_neo4j.RelExecutes + `]->(sc:` + portal_neo4j.LabelScript + `)
	RETURN j, s.id, sc.id
	`
	result, err := session.Run(query, map[string]interface{}{"id": jobID})
	if err != nil {
		logger.Error("Failed to execute get job query",
			zap.Error(err),
			zap.String("jobID", jobID))
		return nil, portal_errors.ErrDatabaseOperation
	}

	if result.Next() {
		values := result.Record().Values
		return mapRecordToJob(values[0].(neo4j.Node), values[1].(string), values[2].(string))
	}

	return nil, portal_errors.ErrJobNotFound
}

func (dao *JobDAO) ListJobsBySystem(ctx context.Context, systemID string, limit, offset int) ([]*model.Job, error) {
	return dao.listJobs(ctx, `
	MATCH (j:`+portal_neo4j.LabelJob+`)-[:`+portal_neo4j.RelRunsOn+`]->(s:`+portal_neo4j.LabelSystem+` {id: $systemID})
	MATCH (j)-[:`+portal_neo4j.RelExecutes+`]->(sc:`+portal_neo4j.LabelScript+`)
	RETURN j, s.id, sc.id
	ORDER BY j.createdAt DESC
	SKIP $offset
	LIMIT $limit
	`, map[string]interface{}{"systemID": systemID, "limit": limit, "offset": offset})
}

func (dao *JobDAO) ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error) {
	return dao.listJobs(ctx, `
	MATCH (j:`+portal_neo4j.LabelJob+`)-[:`+portal_neo4j.RelRunsOn+`]->(s:`+portal_neo4j.LabelSystem+`)
	MATCH (j)-[:`+portal_neo4j.RelExecutes+`]->(sc:`+portal_neo4j.LabelScript+`)
	RETURN j, s.id, sc.id
	ORDER BY j.createdAt DESC
	SKIP $offset
	LIMIT $limit
	`, map[string]interface{}{"limit": limit, "offset": offset})
}

func (dao *JobDAO) listJobs(ctx context.Context, query string, params map[string]interface{}) ([]*model.Job, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.Run(query, params)
	if err != nil {
		logger.Error("Failed to execute list jobs query", zap.Error(err))
		return nil, portal_errors.ErrDatabaseOperation
	}

	var jobs []*model.Job
	for result.Next() {
		values := result.Record().Values
		job, err := mapRecordToJob(values[0].(neo4j.Node), values[1].(string), values[2].(string))
		if err != nil {
			return nil, portal_errors.ErrInternalServer
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// ClaimPendingJobs hands every pending job for the given agent hostname
// to that agent, flipping them to running in the same write so a second
// poll cannot claim them again.
func (dao *JobDAO) ClaimPendingJobs(ctx context.Context, hostname string) ([]model.AgentJob, error) {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (j:` + portal_neo4j.LabelJob + ` {status: $pending})-[:` + portal_neo4j.RelRunsOn + `]->(s:` + portal_neo4j.LabelSystem + ` {hostname: $hostname})
		MATCH (j)-[:` + portal_neo4j.RelExecutes + `]->(sc:` + portal_neo4j.LabelScript + `)
		SET j.status = $running, j.startedAt = $now
		RETURN j.id, s.code, sc.name, sc.body
		ORDER BY j.createdAt ASC
		`
		params := map[string]interface{}{
			"hostname": hostname,
			"pending":  string(model.JobStatusPending),
			"running":  string(model.JobStatusRunning),
			"now":      time.Now().Format(time.RFC3339),
		}
		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute claim pending jobs query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}

		var claimed []model.AgentJob
		for result.Next() {
			values := result.Record().Values
			claimed = append(claimed, model.AgentJob{
				JobID:      values[0].(string),
				SystemCode: values[1].(string),
				ScriptName: values[2].(string),
				ScriptBody: values[3].(string),
			})
		}
		return claimed, nil
	})

	if err != nil {
		logger.Error("Failed to claim pending jobs",
			zap.Error(err),
			zap.String("hostname", hostname),
			zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	claimed := result.([]model.AgentJob)
	if len(claimed) > 0 {
		logger.Info("Pending jobs claimed",
			zap.String("hostname", hostname),
			zap.Int("count", len(claimed)),
			zap.Duration("duration", time.Since(start)))
	}

	return claimed, nil
}

// ReportJob records the agent's terminal outcome. The write only lands
// while the job is still running; a duplicate report returns false.
func (dao *JobDAO) ReportJob(ctx context.Context, jobID string, status model.JobStatus, output string) (bool, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
		MATCH (j:` + portal_neo4j.LabelJob + ` {id: $id})
		WITH j, j.status = $running AS transitioned
		SET j.status = CASE WHEN transitioned THEN $status ELSE j.status END,
			j.output = CASE WHEN transitioned THEN $output ELSE j.output END,
			j.completedAt = CASE WHEN transitioned THEN $now ELSE j.completedAt END
		RETURN transitioned
		`
		params := map[string]interface{}{
			"id":      jobID,
			"running": string(model.JobStatusRunning),
			"status":  string(status),
			"output":  output,
			"now":     time.Now().Format(time.RFC3339),
		}
		result, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute report job query", zap.Error(err))
			return nil, portal_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return result.Record().Values[0].(bool), nil
		}
		return nil, portal_errors.ErrJobNotFound
	})

	if err != nil {
		logger.Error("Failed to report job outcome",
			zap.Error(err),
			zap.String("jobID", jobID))
		return false, err
	}

	transitioned := result.(bool)
	logger.Info("Job outcome reported",
		zap.String("jobID", jobID),
		zap.String("status", string(status)),
		zap.Bool("transitioned", transitioned))

	if transitioned {
		// Audit trail
		details, _ := json.Marshal(map[string]interface{}{"status": status})
		auditLog := audit.AuditLog{
			Timestamp:     time.Now(),
			UserID:        "agent",
			Action:        "REPORT_JOB",
			ResourceID:    jobID,
			Success:       true,
			ChangeDetails: details,
		}
		if err := dao.AuditService.LogAction(ctx, auditLog); err != nil {
			logger.Error("Failed to create audit log", zap.Error(err))
		}
	}

	return transitioned, nil
}

// Helper function to map a Neo4j record to a Job struct
func mapRecordToJob(node neo4j.Node, systemID, scriptID string) (*model.Job, error) {
	props := node.Props
	job := &model.Job{
		SystemID: systemID,
		ScriptID: scriptID,
	}

	job.ID = props["id"].(string)
	job.RequestedBy = props["requestedBy"].(string)
	job.Status = model.JobStatus(props["status"].(string))
	if output, ok := props["output"].(string); ok {
		job.Output = output
	}

	var err error
	if job.CreatedAt, err = helper_util.ParseTime(props["createdAt"].(string)); err != nil {
		return nil, fmt.Errorf("failed to parse job createdAt: %w", err)
	}
	if job.StartedAt, err = helper_util.ParseNullableTime(props["startedAt"]); err != nil {
		return nil, fmt.Errorf("failed to parse job startedAt: %w", err)
	}
	if job.CompletedAt, err = helper_util.ParseNullableTime(props["completedAt"]); err != nil {
		return nil, fmt.Errorf("failed to parse job completedAt: %w", err)
	}

	return job, nil
}

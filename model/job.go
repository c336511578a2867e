package model

import "time"

// JobStatus is the execution-job lifecycle driven by the remote agent.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Script is a stored maintenance script executed on managed hosts.
type Script struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Job queues a script run on one system. The agent polls pending jobs
// for its own hostname, flips them to running and reports the outcome.
type Job struct {
	ID          string     `json:"id"`
	SystemID    string     `json:"system_id"`
	ScriptID    string     `json:"script_id"`
	RequestedBy string     `json:"requested_by"`
	Status      JobStatus  `json:"status"`
	Output      string     `json:"output,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AgentJob is the wire form handed to the polling agent: the job id
// plus the script to run.
type AgentJob struct {
	JobID      string `json:"job_id"`
	SystemCode string `json:"system_code"`
	ScriptName string `json:"script_name"`
	ScriptBody string `json:"script_body"`
}

// JobReport is the agent's terminal result for one job.
type JobReport struct {
	Status JobStatus `json:"status"`
	Output string    `json:"output,omitempty"`
}

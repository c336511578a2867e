// api/service/job_service_test.go
package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/util"
)

type jobEnv struct {
	systems *fakeSystemStore
	scripts *fakeScriptStore
	jobs    *fakeJobStore
	svc     *JobService
}

func newJobEnv() *jobEnv {
	env := &jobEnv{
		systems: newFakeSystemStore(),
		scripts: newFakeScriptStore(),
	}
	env.jobs = newFakeJobStore(env.systems, env.scripts)
	env.svc = NewJobService(env.jobs, env.scripts, env.systems,
		util.NewValidationUtil(), util.NewCacheService(), util.NewNotificationService(), util.NewEventBus())
	return env
}

func (e *jobEnv) addScript(t *testing.T, name, body string) *model.Script {
	t.Helper()
	script, err := e.svc.CreateScript(context.Background(), model.Script{Name: name, Body: body}, "admin-1")
	require.NoError(t, err)
	return script
}

func TestQueueJobRequiresReachableSystem(t *testing.T) {
	ctx := context.Background()
	env := newJobEnv()
	script := env.addScript(t, "cleanup", "Remove-Item C:\\Temp\\* -Recurse")

	_, err := env.svc.QueueJob(ctx, "system-missing", script.ID, "operator-1")
	assert.ErrorIs(t, err, portal_errors.ErrSystemNotFound)

	// A system without a hostname has no agent to pick the job up.
	offline := env.systems.addSystem("BAL-01", "Balance", "")
	_, err = env.svc.QueueJob(ctx, offline.ID, script.ID, "operator-1")
	assert.ErrorIs(t, err, portal_errors.ErrInvalidJobData)
}

func TestQueueAndPollLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newJobEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")
	script := env.addScript(t, "backup", "Copy-Item D:\\Data E:\\Backup -Recurse")

	queued, err := env.svc.QueueJob(ctx, system.ID, script.ID, "operator-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, queued.Status)

	claimed, err := env.svc.PollJobs(ctx, "lab-hplc-01")
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, queued.ID, claimed[0].JobID)
	assert.Equal(t, "HPLC-01", claimed[0].SystemCode)
	assert.Equal(t, script.Body, claimed[0].ScriptBody)

	// Claimed jobs are not handed out twice.
	again, err := env.svc.PollJobs(ctx, "lab-hplc-01")
	require.NoError(t, err)
	assert.Empty(t, again)

	err = env.svc.ReportJob(ctx, queued.ID, model.JobReport{
		Status: model.JobStatusCompleted,
		Output: "backup finished",
	})
	require.NoError(t, err)

	job, err := env.svc.GetJob(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, "backup finished", job.Output)
	assert.NotNil(t, job.CompletedAt)
}

func TestPollJobsRequiresHostname(t *testing.T) {
	ctx := context.Background()
	env := newJobEnv()

	_, err := env.svc.PollJobs(ctx, "")
	assert.ErrorIs(t, err, portal_errors.ErrInvalidJobData)
}

func TestReportJobRejectsNonTerminalStatus(t *testing.T) {
	ctx := context.Background()
	env := newJobEnv()

	err := env.svc.ReportJob(ctx, "job-1", model.JobReport{Status: model.JobStatusRunning})
	assert.ErrorIs(t, err, portal_errors.ErrInvalidJobData)
}

func TestReportJobRejectsSecondReport(t *testing.T) {
	ctx := context.Background()
	env := newJobEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")
	script := env.addScript(t, "restart", "Restart-Service ChemStation")

	queued, err := env.svc.QueueJob(ctx, system.ID, script.ID, "operator-1")
	require.NoError(t, err)
	_, err = env.svc.PollJobs(ctx, "lab-hplc-01")
	require.NoError(t, err)

	require.NoError(t, env.svc.ReportJob(ctx, queued.ID, model.JobReport{Status: model.JobStatusFailed, Output: "timeout"}))

	err = env.svc.ReportJob(ctx, queued.ID, model.JobReport{Status: model.JobStatusCompleted})
	assert.ErrorIs(t, err, portal_errors.ErrInvalidJobData)

	job, err := env.svc.GetJob(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status, "the first report wins")
}

func TestReportJobBeforeClaimIsRejected(t *testing.T) {
	ctx := context.Background()
	env := newJobEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")
	script := env.addScript(t, "noop", "Write-Output ok")

	queued, err := env.svc.QueueJob(ctx, system.ID, script.ID, "operator-1")
	require.NoError(t, err)

	err = env.svc.ReportJob(ctx, queued.ID, model.JobReport{Status: model.JobStatusCompleted})
	assert.ErrorIs(t, err, portal_errors.ErrInvalidJobData)
}

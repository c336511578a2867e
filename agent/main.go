// The portal agent runs on each managed host. It polls the portal for
// pending execution jobs addressed to its own hostname, runs the
// script bodies through PowerShell and reports the terminal outcome
// back.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/labops/labportal/api/model"
)

type agent struct {
	portalURL     string
	hostname      string
	pollInterval  time.Duration
	scriptTimeout time.Duration
	client        *http.Client
	log           *zap.Logger
}

func main() {
	viper.SetConfigName("agent")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetDefault("portal.url", "http://localhost:8080")
	viper.SetDefault("agent.poll_interval", 20*time.Second)
	viper.SetDefault("agent.script_timeout", 5*time.Minute)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Failed to read agent config: %v", err)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	hostname := viper.GetString("agent.hostname")
	if hostname == "" {
		hostname, err = os.Hostname()
		if err != nil {
			logger.Fatal("Failed to determine hostname", zap.Error(err))
		}
	}

	a := &agent{
		portalURL:     viper.GetString("portal.url"),
		hostname:      hostname,
		pollInterval:  viper.GetDuration("agent.poll_interval"),
		scriptTimeout: viper.GetDuration("agent.script_timeout"),
		client:        &http.Client{Timeout: 30 * time.Second},
		log:           logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	logger.Info("Agent starting",
		zap.String("portal", a.portalURL),
		zap.String("hostname", a.hostname))
	a.run(ctx)
	logger.Info("Agent exiting")
}

func (a *agent) run(ctx context.Context) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		a.pollOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *agent) pollOnce(ctx context.Context) {
	jobs, err := a.fetchJobs(ctx)
	if err != nil {
		a.log.Warn("Failed to poll jobs", zap.Error(err))
		return
	}

	for _, job := range jobs {
		report := a.execute(ctx, job)
		if err := a.report(ctx, job.JobID, report); err != nil {
			a.log.Error("Failed to report job outcome",
				zap.Error(err), zap.String("jobID", job.JobID))
		}
	}
}

func (a *agent) fetchJobs(ctx context.Context) ([]model.AgentJob, error) {
	endpoint := fmt.Sprintf("%s/api/v1/agent/jobs?hostname=%s",
		a.portalURL, url.QueryEscape(a.hostname))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portal returned %s", resp.Status)
	}

	var jobs []model.AgentJob
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// execute runs one script and always produces a terminal report. A
// timed-out or failed run is reported as failed with whatever output
// the script produced.
func (a *agent) execute(ctx context.Context, job model.AgentJob) model.JobReport {
	a.log.Info("Running job",
		zap.String("jobID", job.JobID),
		zap.String("script", job.ScriptName))

	runCtx, cancel := context.WithTimeout(ctx, a.scriptTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "powershell.exe",
		"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass",
		"-Command", job.ScriptBody)
	output, err := cmd.CombinedOutput()

	report := model.JobReport{
		Status: model.JobStatusCompleted,
		Output: string(output),
	}
	if err != nil {
		report.Status = model.JobStatusFailed
		if runCtx.Err() == context.DeadlineExceeded {
			report.Output = fmt.Sprintf("%s\nscript timed out after %s", output, a.scriptTimeout)
		} else {
			report.Output = fmt.Sprintf("%s\n%v", output, err)
		}
		a.log.Warn("Job failed",
			zap.String("jobID", job.JobID), zap.Error(err))
	}
	return report
}

func (a *agent) report(ctx context.Context, jobID string, report model.JobReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/api/v1/agent/jobs/%s/report", a.portalURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("portal returned %s", resp.Status)
	}
	return nil
}

package model

import "time"

// System is a managed instrument or workstation. It carries two
// independent periodic-check cadences (general compliance and QA) and
// the backup/restore locations used by maintenance scripts.
type System struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Hostname string `json:"hostname,omitempty"`
	IP       string `json:"ip,omitempty"`
	Location string `json:"location,omitempty"`

	CheckIntervalDays   int        `json:"check_interval_days"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	QACheckIntervalDays int        `json:"qa_check_interval_days"`
	LastQACheckedAt     *time.Time `json:"last_qa_checked_at,omitempty"`

	BackupPath  string `json:"backup_path,omitempty"`
	RestorePath string `json:"restore_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NextCheckDue returns when the next general compliance check is due.
// Zero time means the cadence is not configured or no check was recorded.
func (s *System) NextCheckDue() time.Time {
	if s.LastCheckedAt == nil || s.CheckIntervalDays <= 0 {
		return time.Time{}
	}
	return s.LastCheckedAt.AddDate(0, 0, s.CheckIntervalDays)
}

// NextQACheckDue returns when the next QA check is due.
func (s *System) NextQACheckDue() time.Time {
	if s.LastQACheckedAt == nil || s.QACheckIntervalDays <= 0 {
		return time.Time{}
	}
	return s.LastQACheckedAt.AddDate(0, 0, s.QACheckIntervalDays)
}

type SystemSearchCriteria struct {
	Code     string `json:"code,omitempty"`
	Name     string `json:"name,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

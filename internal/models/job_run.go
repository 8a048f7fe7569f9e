package models

import "time"

const (
	JobStateIdle            = "idle"
	JobStateRunning         = "running"
	JobStateCompleted       = "completed"
	JobStatePartiallyFailed = "partially_failed"
	JobStateFailed          = "failed"
)

// JobRun records the outcome of the latest snapshot job execution. One row
// per job name; it is bookkeeping, not part of the historical record.
type JobRun struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(50);not null;uniqueIndex"`

	State        string     `gorm:"type:varchar(20);not null;default:'idle'"`
	LastRunAt    *time.Time `gorm:"type:timestamptz"`
	LastDate     *time.Time `gorm:"type:date"`
	FailureCount int        `gorm:"not null;default:0"`
	Detail       string     `gorm:"type:text"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (JobRun) TableName() string {
	return "job_runs"
}

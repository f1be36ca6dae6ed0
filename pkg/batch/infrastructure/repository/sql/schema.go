package sql

import (
	"time"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
)

// Table names of the batch metadata schema.
const (
	jobInstanceTable   = "batch_job_instance"
	jobExecutionTable  = "batch_job_execution"
	stepExecutionTable = "batch_step_execution"
	jobClaimTable      = "batch_job_claim"
)

// JobInstanceEntity is a schema model used for persistence.
type JobInstanceEntity struct {
	ID             string `gorm:"primaryKey"`
	JobName        string
	Parameters     model.JobParameters
	ParametersHash string
	CreateTime     time.Time
}

func (JobInstanceEntity) TableName() string {
	return jobInstanceTable
}

// JobExecutionEntity is a schema model used for persistence.
type JobExecutionEntity struct {
	ID            string `gorm:"primaryKey"`
	JobInstanceID string
	JobName       string
	Parameters    model.JobParameters
	StartTime     time.Time
	EndTime       *time.Time
	Status        model.JobStatus
	ExitStatus    model.ExitStatus
	Failures      model.FailureList
	CreateTime    time.Time
	LastUpdated   time.Time
}

func (JobExecutionEntity) TableName() string {
	return jobExecutionTable
}

// StepExecutionEntity is a schema model used for persistence.
type StepExecutionEntity struct {
	ID             string `gorm:"primaryKey"`
	JobExecutionID string
	StepName       string
	StartTime      time.Time
	EndTime        *time.Time
	Status         model.JobStatus
	ExitStatus     model.ExitStatus
	Failures       model.FailureList
	ReadCount      int
	WriteCount     int
	FilterCount    int
	CommitCount    int
	RollbackCount  int
	LastUpdated    time.Time
}

func (StepExecutionEntity) TableName() string {
	return stepExecutionTable
}

// JobClaimEntity is the launch guard row: one per (job name, parameters hash), holding the
// status of the latest execution of that identity.
type JobClaimEntity struct {
	JobName        string `gorm:"primaryKey"`
	ParametersHash string `gorm:"primaryKey"`
	JobInstanceID  string
	JobExecutionID string
	Status         model.JobStatus
	LastUpdated    time.Time
}

func (JobClaimEntity) TableName() string {
	return jobClaimTable
}

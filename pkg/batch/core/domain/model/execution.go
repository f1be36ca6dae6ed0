package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// FailureList holds failure messages recorded on an execution.
type FailureList []string

// Value implements driver.Valuer.
func (fl FailureList) Value() (driver.Value, error) {
	if fl == nil {
		return "[]", nil
	}
	b, err := json.Marshal(fl)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (fl *FailureList) Scan(value interface{}) error {
	*fl = FailureList{}
	var b []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for FailureList: %T", value)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, fl); err != nil {
		return fmt.Errorf("failed to unmarshal FailureList JSON: %w", err)
	}
	return nil
}

func (fl *FailureList) add(err error) {
	msg := err.Error()
	for _, existing := range *fl {
		if existing == msg {
			return
		}
	}
	*fl = append(*fl, msg)
}

// JobInstance is the logical run identity: one per distinct (job name, parameters).
type JobInstance struct {
	ID             string
	JobName        string
	Parameters     JobParameters
	ParametersHash string
	CreateTime     time.Time
}

// NewJobInstance creates a JobInstance, computing the parameters hash.
func NewJobInstance(jobName string, params JobParameters) (*JobInstance, error) {
	hash, err := params.Hash()
	if err != nil {
		return nil, err
	}
	return &JobInstance{
		ID:             NewID(),
		JobName:        jobName,
		Parameters:     params,
		ParametersHash: hash,
		CreateTime:     time.Now(),
	}, nil
}

// JobExecution records one launch attempt of a job.
type JobExecution struct {
	ID             string
	JobInstanceID  string
	JobName        string
	Parameters     JobParameters
	StartTime      time.Time
	EndTime        *time.Time
	Status         JobStatus
	ExitStatus     ExitStatus
	Failures       FailureList
	CreateTime     time.Time
	LastUpdated    time.Time
	StepExecutions []*StepExecution
}

// NewJobExecution creates an execution in STARTING status.
func NewJobExecution(jobInstanceID string, jobName string, params JobParameters) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:             NewID(),
		JobInstanceID:  jobInstanceID,
		JobName:        jobName,
		Parameters:     params,
		StartTime:      now,
		Status:         BatchStatusStarting,
		ExitStatus:     ExitStatusUnknown,
		Failures:       FailureList{},
		CreateTime:     now,
		LastUpdated:    now,
		StepExecutions: make([]*StepExecution, 0),
	}
}

// TransitionTo moves the execution to newStatus if the transition is legal.
func (je *JobExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidTransition(je.Status, newStatus) {
		return fmt.Errorf("JobExecution (ID: %s): invalid state transition: %s -> %s", je.ID, je.Status, newStatus)
	}
	je.Status = newStatus
	je.LastUpdated = time.Now()
	return nil
}

func (je *JobExecution) forceTo(status JobStatus) {
	if err := je.TransitionTo(status); err != nil {
		logger.Warnf("%v; forcing %s", err, status)
		je.Status = status
		je.LastUpdated = time.Now()
	}
}

// MarkAsStarted sets status STARTED and resets the start time.
func (je *JobExecution) MarkAsStarted() {
	je.forceTo(BatchStatusStarted)
	je.StartTime = time.Now()
}

// MarkAsCompleted sets status COMPLETED and the end time.
func (je *JobExecution) MarkAsCompleted() {
	je.forceTo(BatchStatusCompleted)
	je.ExitStatus = ExitStatusCompleted
	now := time.Now()
	je.EndTime = &now
}

// MarkAsFailed sets status FAILED, the end time, and records err.
func (je *JobExecution) MarkAsFailed(err error) {
	je.forceTo(BatchStatusFailed)
	je.ExitStatus = ExitStatusFailed
	now := time.Now()
	je.EndTime = &now
	je.AddFailureException(err)
}

// MarkAsAbandoned sets status ABANDONED.
func (je *JobExecution) MarkAsAbandoned() {
	je.forceTo(BatchStatusAbandoned)
	now := time.Now()
	je.EndTime = &now
}

// AddFailureException records err once.
func (je *JobExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	je.Failures.add(err)
	je.LastUpdated = time.Now()
}

// AddStepExecution appends se.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// Duration returns the elapsed time, up to now when the execution has not ended.
func (je *JobExecution) Duration() time.Duration {
	if je.EndTime == nil {
		return time.Since(je.StartTime)
	}
	return je.EndTime.Sub(je.StartTime)
}

// StepExecution records one execution of a step within a job execution.
type StepExecution struct {
	ID             string
	StepName       string
	JobExecution   *JobExecution
	JobExecutionID string
	StartTime      time.Time
	EndTime        *time.Time
	Status         JobStatus
	ExitStatus     ExitStatus
	Failures       FailureList
	ReadCount      int
	WriteCount     int
	FilterCount    int
	CommitCount    int
	RollbackCount  int
	LastUpdated    time.Time
}

// NewStepExecution creates a step execution in STARTING status and attaches it to jobExecution.
func NewStepExecution(jobExecution *JobExecution, stepName string) *StepExecution {
	now := time.Now()
	se := &StepExecution{
		ID:             NewID(),
		StepName:       stepName,
		JobExecution:   jobExecution,
		JobExecutionID: jobExecution.ID,
		StartTime:      now,
		Status:         BatchStatusStarting,
		ExitStatus:     ExitStatusUnknown,
		Failures:       FailureList{},
		LastUpdated:    now,
	}
	jobExecution.AddStepExecution(se)
	return se
}

// TransitionTo moves the step execution to newStatus if the transition is legal.
func (se *StepExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidTransition(se.Status, newStatus) {
		return fmt.Errorf("StepExecution (ID: %s): invalid state transition: %s -> %s", se.ID, se.Status, newStatus)
	}
	se.Status = newStatus
	se.LastUpdated = time.Now()
	return nil
}

func (se *StepExecution) forceTo(status JobStatus) {
	if err := se.TransitionTo(status); err != nil {
		logger.Warnf("%v; forcing %s", err, status)
		se.Status = status
		se.LastUpdated = time.Now()
	}
}

// MarkAsStarted sets status STARTED.
func (se *StepExecution) MarkAsStarted() {
	se.forceTo(BatchStatusStarted)
	se.StartTime = time.Now()
}

// MarkAsCompleted sets status COMPLETED and the end time.
func (se *StepExecution) MarkAsCompleted() {
	se.forceTo(BatchStatusCompleted)
	se.ExitStatus = ExitStatusCompleted
	now := time.Now()
	se.EndTime = &now
}

// MarkAsFailed sets status FAILED, the end time, and records err.
func (se *StepExecution) MarkAsFailed(err error) {
	se.forceTo(BatchStatusFailed)
	se.ExitStatus = ExitStatusFailed
	now := time.Now()
	se.EndTime = &now
	se.AddFailureException(err)
}

// AddFailureException records err once.
func (se *StepExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	se.Failures.add(err)
	se.LastUpdated = time.Now()
}

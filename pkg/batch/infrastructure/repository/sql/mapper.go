package sql

import (
	"github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
)

// --- Mapper functions ---

func fromDomainJobInstance(ji *model.JobInstance) *JobInstanceEntity {
	if ji == nil {
		return nil
	}
	return &JobInstanceEntity{
		ID:             ji.ID,
		JobName:        ji.JobName,
		Parameters:     ji.Parameters,
		ParametersHash: ji.ParametersHash,
		CreateTime:     ji.CreateTime,
	}
}

func toDomainJobInstance(entity *JobInstanceEntity) *model.JobInstance {
	if entity == nil {
		return nil
	}
	return &model.JobInstance{
		ID:             entity.ID,
		JobName:        entity.JobName,
		Parameters:     entity.Parameters,
		ParametersHash: entity.ParametersHash,
		CreateTime:     entity.CreateTime,
	}
}

func fromDomainJobExecution(je *model.JobExecution) *JobExecutionEntity {
	if je == nil {
		return nil
	}
	return &JobExecutionEntity{
		ID:            je.ID,
		JobInstanceID: je.JobInstanceID,
		JobName:       je.JobName,
		Parameters:    je.Parameters,
		StartTime:     je.StartTime,
		EndTime:       je.EndTime,
		Status:        je.Status,
		ExitStatus:    je.ExitStatus,
		Failures:      je.Failures,
		CreateTime:    je.CreateTime,
		LastUpdated:   je.LastUpdated,
	}
}

func toDomainJobExecution(entity *JobExecutionEntity) *model.JobExecution {
	if entity == nil {
		return nil
	}
	return &model.JobExecution{
		ID:             entity.ID,
		JobInstanceID:  entity.JobInstanceID,
		JobName:        entity.JobName,
		Parameters:     entity.Parameters,
		StartTime:      entity.StartTime,
		EndTime:        entity.EndTime,
		Status:         entity.Status,
		ExitStatus:     entity.ExitStatus,
		Failures:       entity.Failures,
		CreateTime:     entity.CreateTime,
		LastUpdated:    entity.LastUpdated,
		StepExecutions: make([]*model.StepExecution, 0),
	}
}

// jobExecutionColumns lists the mutable columns of an execution. A map is used so that
// zero values such as a nil end time are written too.
func jobExecutionColumns(je *model.JobExecution) map[string]interface{} {
	return map[string]interface{}{
		"start_time":   je.StartTime,
		"end_time":     je.EndTime,
		"status":       je.Status,
		"exit_status":  je.ExitStatus,
		"failures":     je.Failures,
		"last_updated": je.LastUpdated,
	}
}

func fromDomainStepExecution(se *model.StepExecution) *StepExecutionEntity {
	if se == nil {
		return nil
	}
	return &StepExecutionEntity{
		ID:             se.ID,
		JobExecutionID: se.JobExecutionID,
		StepName:       se.StepName,
		StartTime:      se.StartTime,
		EndTime:        se.EndTime,
		Status:         se.Status,
		ExitStatus:     se.ExitStatus,
		Failures:       se.Failures,
		ReadCount:      se.ReadCount,
		WriteCount:     se.WriteCount,
		FilterCount:    se.FilterCount,
		CommitCount:    se.CommitCount,
		RollbackCount:  se.RollbackCount,
		LastUpdated:    se.LastUpdated,
	}
}

func toDomainStepExecution(entity *StepExecutionEntity) *model.StepExecution {
	if entity == nil {
		return nil
	}
	return &model.StepExecution{
		ID:             entity.ID,
		StepName:       entity.StepName,
		JobExecutionID: entity.JobExecutionID,
		StartTime:      entity.StartTime,
		EndTime:        entity.EndTime,
		Status:         entity.Status,
		ExitStatus:     entity.ExitStatus,
		Failures:       entity.Failures,
		ReadCount:      entity.ReadCount,
		WriteCount:     entity.WriteCount,
		FilterCount:    entity.FilterCount,
		CommitCount:    entity.CommitCount,
		RollbackCount:  entity.RollbackCount,
		LastUpdated:    entity.LastUpdated,
	}
}

func stepExecutionColumns(se *model.StepExecution) map[string]interface{} {
	return map[string]interface{}{
		"start_time":     se.StartTime,
		"end_time":       se.EndTime,
		"status":         se.Status,
		"exit_status":    se.ExitStatus,
		"failures":       se.Failures,
		"read_count":     se.ReadCount,
		"write_count":    se.WriteCount,
		"filter_count":   se.FilterCount,
		"commit_count":   se.CommitCount,
		"rollback_count": se.RollbackCount,
		"last_updated":   se.LastUpdated,
	}
}

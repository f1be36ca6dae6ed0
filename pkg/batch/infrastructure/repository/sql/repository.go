// Package sql provides a JobRepository backed by a relational database through the GORM adapter.
package sql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	tx "github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// relaunchableStatuses are the claim statuses a new execution may take over.
var relaunchableStatuses = []string{
	string(model.BatchStatusFailed),
	string(model.BatchStatusAbandoned),
	string(model.BatchStatusUnknown),
}

// SQLJobRepository implements the repository.JobRepository interface.
type SQLJobRepository struct {
	dbResolver database.DBConnectionResolver
	// TxManager is the transaction manager for the metadata database.
	TxManager tx.TransactionManager
	// dbName is the name of the connection holding the metadata tables (e.g., "coffee").
	dbName string
}

// NewSQLJobRepository creates a new instance of SQLJobRepository.
//
// Parameters:
//
//	dbResolver: The database connection resolver.
//	txManager: The transaction manager for the database.
//	dbName: The name of the database connection to be used by this repository.
func NewSQLJobRepository(
	dbResolver database.DBConnectionResolver,
	txManager tx.TransactionManager,
	dbName string,
) *SQLJobRepository {
	return &SQLJobRepository{
		dbResolver: dbResolver,
		TxManager:  txManager,
		dbName:     dbName,
	}
}

// Close is a no-op; the connection belongs to the resolver.
func (r *SQLJobRepository) Close() error {
	return nil
}

// getDBConnection resolves the connection used for reads and autocommitted writes.
func (r *SQLJobRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError("SQLJobRepository", fmt.Sprintf("Failed to resolve DB connection '%s'", r.dbName), err, false, false)
	}
	return conn, nil
}

// getTxExecutor returns the transaction carried by ctx, or the connection when there is none.
func (r *SQLJobRepository) getTxExecutor(ctx context.Context) (tx.TxExecutor, error) {
	if t, ok := tx.TxFromContext(ctx); ok {
		return t, nil
	}
	return r.getDBConnection(ctx)
}

// --- JobInstance implementation ---

func (r *SQLJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	const op = "SQLJobRepository.FindJobInstanceByJobNameAndParameters"
	hash, err := params.Hash()
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to calculate JobParameters hash", err, false, false)
	}

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []JobInstanceEntity
	if err := conn.ExecuteQuery(ctx, &entities, map[string]interface{}{"job_name": jobName, "parameters_hash": hash}); err != nil {
		if conn.IsTableNotExistError(err) {
			return nil, repository.ErrJobInstanceNotFound
		}
		return nil, exception.NewBatchError(op, "failed to find JobInstance", err, true, false)
	}
	if len(entities) == 0 {
		return nil, repository.ErrJobInstanceNotFound
	}
	return toDomainJobInstance(&entities[0]), nil
}

// --- JobExecution implementation ---

// errClaimRaced means the claim row appeared between the instance lookup and the claim transaction.
var errClaimRaced = errors.New("claim raced with a concurrent launch")

// ClaimJobExecution runs the launch guard in one transaction. The claim row keyed by
// (job name, parameters hash) is inserted if absent, or taken over only while its status allows a
// relaunch; the database serializes concurrent claims on that key, so at most one caller wins.
// No read is issued while the transaction is open, so a small pool cannot starve the claim.
func (r *SQLJobRepository) ClaimJobExecution(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	je, err := r.claimOnce(ctx, jobName, params)
	if errors.Is(err, errClaimRaced) {
		logger.Debugf("SQLJobRepository.ClaimJobExecution: %v; retrying job '%s'.", err, jobName)
		je, err = r.claimOnce(ctx, jobName, params)
	}
	return je, err
}

func (r *SQLJobRepository) claimOnce(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	const op = "SQLJobRepository.ClaimJobExecution"
	instance, err := r.FindJobInstanceByJobNameAndParameters(ctx, jobName, params)
	newInstance := errors.Is(err, repository.ErrJobInstanceNotFound)
	switch {
	case newInstance:
		if instance, err = model.NewJobInstance(jobName, params.Copy()); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	je := model.NewJobExecution(instance.ID, jobName, params.Copy())
	je.MarkAsStarted()

	t, err := r.TxManager.Begin(ctx)
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to begin claim transaction", err, true, false)
	}
	finished := false
	rollback := func() {
		finished = true
		if rbErr := r.TxManager.Rollback(t); rbErr != nil {
			logger.Warnf("%s: rollback failed: %v", op, rbErr)
		}
	}
	defer func() {
		if !finished {
			rollback()
		}
	}()

	claim := &JobClaimEntity{
		JobName:        jobName,
		ParametersHash: instance.ParametersHash,
		JobInstanceID:  instance.ID,
		JobExecutionID: je.ID,
		Status:         model.BatchStatusStarted,
		LastUpdated:    je.LastUpdated,
	}
	inserted, err := t.ExecuteUpsert(ctx, claim, jobClaimTable, []string{"job_name", "parameters_hash"}, nil)
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to claim job '%s'", jobName), err, true, false)
	}

	switch {
	case inserted > 0 && newInstance:
		if _, err := t.ExecuteUpdate(ctx, fromDomainJobInstance(instance), tx.OperationCreate, jobInstanceTable, nil); err != nil {
			return nil, exception.NewBatchError(op, fmt.Sprintf("failed to save JobInstance (ID: %s)", instance.ID), err, true, false)
		}
	case inserted == 0:
		taken, err := t.ExecuteUpdate(ctx,
			map[string]interface{}{"status": model.BatchStatusStarted, "job_execution_id": je.ID, "last_updated": je.LastUpdated},
			tx.OperationUpdate,
			jobClaimTable,
			map[string]interface{}{"job_name": jobName, "parameters_hash": instance.ParametersHash, "status": relaunchableStatuses},
		)
		if err != nil {
			return nil, exception.NewBatchError(op, fmt.Sprintf("failed to take over claim of job '%s'", jobName), err, true, false)
		}
		if taken == 0 {
			rollback()
			return nil, exception.NewDuplicateRunError(jobName, r.currentClaimStatus(ctx, jobName, instance.ParametersHash))
		}
		if newInstance {
			// The claim was created and released after our lookup; its instance id is unknown here.
			return nil, errClaimRaced
		}
	}

	if _, err := t.ExecuteUpdate(ctx, fromDomainJobExecution(je), tx.OperationCreate, jobExecutionTable, nil); err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to save JobExecution (ID: %s)", je.ID), err, true, false)
	}
	finished = true
	if err := r.TxManager.Commit(t); err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to commit claim of job '%s'", jobName), err, true, false)
	}

	logger.Debugf("%s: claimed JobExecution %s (instance %s) for job '%s'.", op, je.ID, je.JobInstanceID, jobName)
	return je, nil
}

// currentClaimStatus reads the blocking status for the duplicate-run message. A read failure
// only degrades the message.
func (r *SQLJobRepository) currentClaimStatus(ctx context.Context, jobName, hash string) string {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return string(model.BatchStatusStarted)
	}
	var claims []JobClaimEntity
	if err := conn.ExecuteQuery(ctx, &claims, map[string]interface{}{"job_name": jobName, "parameters_hash": hash}); err != nil || len(claims) == 0 {
		return string(model.BatchStatusStarted)
	}
	return claims[0].Status.String()
}

// UpdateJobExecution stores the execution and mirrors its status onto the claim row, atomically.
func (r *SQLJobRepository) UpdateJobExecution(ctx context.Context, je *model.JobExecution) error {
	const op = "SQLJobRepository.UpdateJobExecution"
	je.LastUpdated = time.Now()

	t, err := r.TxManager.Begin(ctx)
	if err != nil {
		return exception.NewBatchError(op, "failed to begin transaction", err, true, false)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := r.TxManager.Rollback(t); rbErr != nil {
				logger.Warnf("%s: rollback failed: %v", op, rbErr)
			}
		}
	}()

	n, err := t.ExecuteUpdate(ctx, jobExecutionColumns(je), tx.OperationUpdate, jobExecutionTable, map[string]interface{}{"id": je.ID})
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to update JobExecution (ID: %s)", je.ID), err, true, false)
	}
	if n == 0 {
		return fmt.Errorf("JobExecution %s: %w", je.ID, repository.ErrJobExecutionNotFound)
	}
	// Only the claim's current holder mirrors its status.
	if _, err := t.ExecuteUpdate(ctx,
		map[string]interface{}{"status": je.Status, "last_updated": je.LastUpdated},
		tx.OperationUpdate,
		jobClaimTable,
		map[string]interface{}{"job_execution_id": je.ID},
	); err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to update claim of JobExecution (ID: %s)", je.ID), err, true, false)
	}

	if err := r.TxManager.Commit(t); err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to commit JobExecution (ID: %s)", je.ID), err, true, false)
	}
	committed = true
	return nil
}

func (r *SQLJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	const op = "SQLJobRepository.FindJobExecutionByID"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []JobExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"id": executionID}, "", 1); err != nil {
		if conn.IsTableNotExistError(err) {
			return nil, repository.ErrJobExecutionNotFound
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find JobExecution by ID: %s", executionID), err, true, false)
	}
	if len(entities) == 0 {
		return nil, repository.ErrJobExecutionNotFound
	}
	je := toDomainJobExecution(&entities[0])

	var steps []StepExecutionEntity
	if err := conn.ExecuteQuery(ctx, &steps, map[string]interface{}{"job_execution_id": executionID}); err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to load StepExecutions of JobExecution %s", executionID), err, true, false)
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].StartTime.Before(steps[j].StartTime) })
	for i := range steps {
		se := toDomainStepExecution(&steps[i])
		se.JobExecution = je
		je.AddStepExecution(se)
	}
	return je, nil
}

func (r *SQLJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error) {
	const op = "SQLJobRepository.FindJobExecutionsByJobInstance"
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []JobExecutionEntity
	if err := conn.ExecuteQuery(ctx, &entities, map[string]interface{}{"job_instance_id": instance.ID}); err != nil {
		if conn.IsTableNotExistError(err) {
			return []*model.JobExecution{}, nil
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find JobExecutions of JobInstance %s", instance.ID), err, true, false)
	}
	sort.SliceStable(entities, func(i, j int) bool { return entities[i].CreateTime.Before(entities[j].CreateTime) })

	executions := make([]*model.JobExecution, 0, len(entities))
	for i := range entities {
		executions = append(executions, toDomainJobExecution(&entities[i]))
	}
	return executions, nil
}

// --- StepExecution implementation ---

func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, se *model.StepExecution) error {
	const op = "SQLJobRepository.SaveStepExecution"
	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return err
	}
	if _, err := executor.ExecuteUpdate(ctx, fromDomainStepExecution(se), tx.OperationCreate, stepExecutionTable, nil); err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save StepExecution (ID: %s)", se.ID), err, true, false)
	}
	return nil
}

func (r *SQLJobRepository) UpdateStepExecution(ctx context.Context, se *model.StepExecution) error {
	const op = "SQLJobRepository.UpdateStepExecution"
	se.LastUpdated = time.Now()
	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return err
	}
	n, err := executor.ExecuteUpdate(ctx, stepExecutionColumns(se), tx.OperationUpdate, stepExecutionTable, map[string]interface{}{"id": se.ID})
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to update StepExecution (ID: %s)", se.ID), err, true, false)
	}
	if n == 0 {
		return fmt.Errorf("StepExecution %s: %w", se.ID, errStepExecutionNotFound)
	}
	return nil
}

var errStepExecutionNotFound = errors.New("step execution not found")

var _ repository.JobRepository = (*SQLJobRepository)(nil)

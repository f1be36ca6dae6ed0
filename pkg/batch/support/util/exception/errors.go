package exception

import (
	"context"
	"errors"
)

// Error type names, usable with IsErrorOfType.
const (
	MalformedRecordError    = "MalformedRecordError"
	NullFieldError          = "NullFieldError"
	WriteConflictError      = "WriteConflictError"
	StorageUnavailableError = "StorageUnavailableError"
	UnknownJobError         = "UnknownJobError"
	DuplicateRunError       = "DuplicateRunError"
)

var (
	// ErrMalformedRecord marks an input row whose field count does not match the layout.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrNullField marks a record missing a field a transform requires.
	ErrNullField = errors.New("null field")
	// ErrWriteConflict marks a constraint violation while writing a chunk.
	ErrWriteConflict = errors.New("write conflict")
	// ErrStorageUnavailable marks a storage connection failure.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrUnknownJob marks a job name absent from the registry.
	ErrUnknownJob = errors.New("unknown job")
	// ErrDuplicateRun marks a launch whose (job name, parameters) is already running or completed.
	ErrDuplicateRun = errors.New("duplicate run")
)

func init() {
	RegisterErrorType(MalformedRecordError, ErrMalformedRecord)
	RegisterErrorType(NullFieldError, ErrNullField)
	RegisterErrorType(WriteConflictError, ErrWriteConflict)
	RegisterErrorType(StorageUnavailableError, ErrStorageUnavailable)
	RegisterErrorType(UnknownJobError, ErrUnknownJob)
	RegisterErrorType(DuplicateRunError, ErrDuplicateRun)

	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
}

// NewUnknownJobError reports that jobName is not registered.
func NewUnknownJobError(jobName string) *BatchError {
	return NewBatchErrorf("job_registry", "job '%s' is not registered", jobName, ErrUnknownJob)
}

// NewDuplicateRunError reports that a run with identical identity is active or completed.
func NewDuplicateRunError(jobName string, status string) *BatchError {
	return NewBatchErrorf("launcher", "job '%s' with identical parameters is already %s", jobName, status, ErrDuplicateRun)
}

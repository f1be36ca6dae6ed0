package model

// JobStatus is the batch status of a job or step execution.
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
	BatchStatusUnknown   JobStatus = "UNKNOWN"
)

// String returns the status as a string.
func (s JobStatus) String() string {
	return string(s)
}

// IsFinished reports whether s is terminal.
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// BlocksRelaunch reports whether an execution in status s prevents a new launch with the same identity.
// A running execution and a completed one both block; a failed or abandoned one does not.
func (s JobStatus) BlocksRelaunch() bool {
	switch s {
	case BatchStatusStarting, BatchStatusStarted, BatchStatusCompleted:
		return true
	default:
		return false
	}
}

// ExitStatus is the detailed outcome recorded when an execution ends.
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusNoOp      ExitStatus = "NO_OP"
)

// String returns the exit status as a string.
func (s ExitStatus) String() string {
	return string(s)
}

func isValidTransition(current, next JobStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed || next == BatchStatusAbandoned
	case BatchStatusStarted:
		return next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusAbandoned
	default:
		return false
	}
}

// Package batch contains the scheduled ranking pipeline: jobs that read
// metric tables, score products, and publish rankings, plus the launcher
// and cron scheduler that run them.
package batch

import (
	"context"
	"time"
)

// Status is the lifecycle state of one job execution.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Params carries the temporal inputs of one execution. BaseDate is the KST
// calendar date the job ranks; BaseDateTime pins the exact hour for the
// hourly job; Timestamp is when the execution was launched.
type Params struct {
	BaseDate     time.Time
	BaseDateTime time.Time
	Timestamp    time.Time
}

// Execution is the record of one job run, returned to admin callers and
// kept by the launcher for the status endpoint.
type Execution struct {
	JobName         string    `json:"jobName"`
	BaseDate        string    `json:"baseDate"`
	Status          Status    `json:"status"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	ReadCount       int64     `json:"readCount"`
	WriteCount      int64     `json:"writeCount"`
	ExitDescription string    `json:"exitDescription,omitempty"`
}

// newExecution builds the CREATED record for a launch; the launcher moves
// it through RUNNING to a terminal status.
func newExecution(jobName string, params Params) Execution {
	return Execution{
		JobName:  jobName,
		BaseDate: params.BaseDate.Format(baseDateLayout),
		Status:   StatusCreated,
	}
}

// Job is one runnable pipeline step. Run returns how many rows it read and
// wrote so executions are auditable without log archaeology.
type Job interface {
	Name() string
	Run(ctx context.Context, params Params) (read, written int64, err error)
}

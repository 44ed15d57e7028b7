package models

import "time"

// SolveJobStatus tracks the lifecycle of one asynchronous annealing run.
type SolveJobStatus string

const (
	SolveJobStatusQueued    SolveJobStatus = "queued"
	SolveJobStatusRunning   SolveJobStatus = "running"
	SolveJobStatusSucceeded SolveJobStatus = "succeeded"
	SolveJobStatusFailed    SolveJobStatus = "failed"
	SolveJobStatusCancelled SolveJobStatus = "cancelled"
)

// SolveJob is the in-memory record of one background optimization run,
// keyed by job id.
type SolveJob struct {
	ID                  string
	TermID              string
	Status              SolveJobStatus
	NodesExplored       int
	InitialCost         float64
	BestCost            float64
	IterationsCompleted int
	IterationsTotal     int
	Error               string
	StartedAt           time.Time
	FinishedAt          *time.Time
}

package pipeline

import (
	"context"
	"time"

	"github.com/satriahrh/lingua/domain/entities"
)

// State represents the current state of a pipeline execution
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// StepState represents the state of an individual step
type StepState string

const (
	StepStatePending   StepState = "pending"
	StepStateRunning   StepState = "running"
	StepStateCompleted StepState = "completed"
	StepStateFailed    StepState = "failed"
)

// Payload is what flows from one step to the next
type Payload struct {
	Text  string
	Audio *entities.AudioResource
}

// Step is a single stage of a pipeline. A returned error stops the pipeline
// and its message is reported unchanged.
type Step interface {
	Stage() entities.Stage
	Execute(ctx context.Context, in Payload) (Payload, error)
}

// Execution is the record of one pipeline invocation
type Execution struct {
	ID          string            `json:"id"`
	Mode        entities.Mode     `json:"mode"`
	State       State             `json:"state"`
	Steps       []StepExecution   `json:"steps"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Failure     *entities.Failure `json:"failure,omitempty"`
	Output      Payload           `json:"-"`
}

// StepExecution represents the execution state of a step
type StepExecution struct {
	Stage       entities.Stage `json:"stage"`
	State       StepState      `json:"state"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Duration returns how long the step ran, or zero if it never started
func (s StepExecution) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}

// Result converts a finished execution into an OperationResult
func (e *Execution) Result() entities.OperationResult {
	if e.Failure != nil {
		return entities.FailedResult(e.Failure.Stage, e.Failure.Message)
	}
	if e.Output.Audio != nil {
		return entities.AudioResult(e.Output.Audio)
	}
	return entities.TextResult(e.Output.Text)
}

// Observer is notified as executions progress. Implementations must be
// safe for concurrent use.
type Observer interface {
	StepFinished(exec *Execution, step StepExecution)
	ExecutionFinished(exec *Execution)
}

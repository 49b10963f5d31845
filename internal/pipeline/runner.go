package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/entities"
)

// Runner executes steps in order and stops at the first failure. It holds no
// per-execution state, so one Runner serves concurrent invocations.
type Runner struct {
	logger    *zap.Logger
	observers []Observer
}

// NewRunner creates a new pipeline runner
func NewRunner(logger *zap.Logger, observers ...Observer) *Runner {
	return &Runner{
		logger:    logger,
		observers: observers,
	}
}

// Run executes steps sequentially, feeding each step the previous output.
// A failing or panicking step ends the execution in StateFailed; later steps
// stay pending and are never invoked.
func (r *Runner) Run(ctx context.Context, id string, mode entities.Mode, steps []Step, in Payload) *Execution {
	exec := &Execution{
		ID:        id,
		Mode:      mode,
		State:     StatePending,
		Steps:     make([]StepExecution, len(steps)),
		StartedAt: time.Now(),
	}
	for i, step := range steps {
		exec.Steps[i] = StepExecution{
			Stage: step.Stage(),
			State: StepStatePending,
		}
	}

	exec.State = StateRunning
	payload := in

	for i, step := range steps {
		out, err := r.executeStep(ctx, exec, i, step, payload)
		if err != nil {
			r.logger.Error("Stage failed",
				zap.String("invocationID", id),
				zap.String("mode", string(mode)),
				zap.String("stage", string(step.Stage())),
				zap.Error(err))

			exec.State = StateFailed
			exec.Failure = &entities.Failure{Stage: step.Stage(), Message: err.Error()}
			r.finish(exec)
			return exec
		}
		payload = out
	}

	exec.State = StateSucceeded
	exec.Output = payload
	r.finish(exec)

	r.logger.Info("Pipeline completed",
		zap.String("invocationID", id),
		zap.String("mode", string(mode)),
		zap.Duration("elapsed", exec.CompletedAt.Sub(exec.StartedAt)))

	return exec
}

// executeStep executes a single step, converting a panic into an error
func (r *Runner) executeStep(ctx context.Context, exec *Execution, index int, step Step, in Payload) (out Payload, err error) {
	started := time.Now()
	exec.Steps[index].State = StepStateRunning
	exec.Steps[index].StartedAt = &started

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Stage panicked",
				zap.String("invocationID", exec.ID),
				zap.String("stage", string(step.Stage())),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			out = Payload{}
			err = fmt.Errorf("%v", rec)
		}

		completed := time.Now()
		exec.Steps[index].CompletedAt = &completed
		if err != nil {
			exec.Steps[index].State = StepStateFailed
			exec.Steps[index].Error = err.Error()
		} else {
			exec.Steps[index].State = StepStateCompleted
		}

		for _, o := range r.observers {
			o.StepFinished(exec, exec.Steps[index])
		}
	}()

	r.logger.Debug("Stage started",
		zap.String("invocationID", exec.ID),
		zap.String("stage", string(step.Stage())))

	return step.Execute(ctx, in)
}

func (r *Runner) finish(exec *Execution) {
	now := time.Now()
	exec.CompletedAt = &now
	for _, o := range r.observers {
		o.ExecutionFinished(exec)
	}
}

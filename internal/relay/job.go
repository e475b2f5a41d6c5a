package relay

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Job adapts a Runner to the scheduler's job contract.
type Job struct {
	runner *Runner
	ctx    context.Context
	log    zerolog.Logger
}

// NewJob creates a Job whose runs use ctx. ctx should outlive any single
// trigger so runs are not bound to a request.
func NewJob(ctx context.Context, runner *Runner, log zerolog.Logger) *Job {
	return &Job{
		runner: runner,
		ctx:    ctx,
		log:    log.With().Str("job", "relay_statements").Logger(),
	}
}

// Name returns the job name
func (j *Job) Name() string {
	return "relay_statements"
}

// Run executes one relay run. An overlapping trigger is logged and dropped.
func (j *Job) Run() error {
	_, err := j.runner.Run(j.ctx)
	if errors.Is(err, ErrRunInProgress) {
		j.log.Info().Msg("Previous run still in progress, skipping")
		return nil
	}
	return err
}

package di

import (
	"fmt"

	"github.com/aristath/extrato-relay/internal/config"
	"github.com/aristath/extrato-relay/internal/relay"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the scheduled jobs and adds them to the scheduler.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{
		Relay: relay.NewJob(container.RunContext, container.Runner, log),
	}

	if err := container.Scheduler.AddJob(cfg.CronSpec, jobs.Relay); err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", jobs.Relay.Name(), err)
	}

	return jobs, nil
}

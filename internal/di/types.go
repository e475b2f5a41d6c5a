package di

import (
	"context"

	"github.com/aristath/extrato-relay/internal/delivery"
	"github.com/aristath/extrato-relay/internal/events"
	"github.com/aristath/extrato-relay/internal/relay"
	"github.com/aristath/extrato-relay/internal/scheduler"
	"github.com/aristath/extrato-relay/internal/server"
	"github.com/aristath/extrato-relay/internal/source"
	"github.com/aristath/extrato-relay/internal/statement"
)

// Container holds every wired component of the relay.
type Container struct {
	// Pipeline
	Events     *events.Manager
	Lister     *source.Lister
	Parser     *statement.Parser
	Client     *delivery.Client
	Dispatcher *delivery.Dispatcher
	Runner     *relay.Runner

	// Runtime
	Scheduler *scheduler.Scheduler
	Server    *server.Server // nil when the status server is disabled

	// RunContext outlives any trigger; cancelled by Close
	RunContext context.Context
	cancel     context.CancelFunc
}

// JobInstances holds the registered jobs.
type JobInstances struct {
	Relay scheduler.Job
}

// Close cancels the run context. In-flight deliveries stop at the next
// request boundary.
func (c *Container) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

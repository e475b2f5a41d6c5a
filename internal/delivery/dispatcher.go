package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aristath/extrato-relay/internal/domain"
	"github.com/aristath/extrato-relay/internal/events"
	"github.com/rs/zerolog"
)

const module = "delivery"

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Outcome is the result of one (batch, destination) attempt.
type Outcome struct {
	BatchIndex       int             `json:"batchIndex"`
	DestinationIndex int             `json:"destinationIndex"`
	URL              string          `json:"url"`
	StatementsSent   int             `json:"arquivosEnviados"`
	Response         json.RawMessage `json:"serverResponse"`
}

// Result collects every attempt of a run, in attempt order.
type Result struct {
	Successes []Outcome `json:"responses"`
	Failures  []Outcome `json:"errorResponses"`
}

// Attempts is the total number of recorded attempts.
func (r Result) Attempts() int {
	return len(r.Successes) + len(r.Failures)
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Destinations         []string
	DelayBetweenServices time.Duration
	DelayBetweenBatches  time.Duration
}

// Dispatcher sends every batch to every destination, strictly one request at
// a time, pausing between destinations and between batches so recipients are
// not flooded.
type Dispatcher struct {
	sender       Sender
	destinations []string
	serviceDelay time.Duration
	batchDelay   time.Duration
	sleep        Sleeper
	events       events.Emitter
	log          zerolog.Logger
}

// NewDispatcher creates a Dispatcher. A nil emitter disables progress events.
func NewDispatcher(cfg DispatcherConfig, sender Sender, emitter events.Emitter, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:       sender,
		destinations: append([]string(nil), cfg.Destinations...),
		serviceDelay: cfg.DelayBetweenServices,
		batchDelay:   cfg.DelayBetweenBatches,
		sleep:        SleepContext,
		events:       emitter,
		log:          log.With().Str("component", "dispatcher").Logger(),
	}
}

// SetSleeper replaces the pacing wait.
func (d *Dispatcher) SetSleeper(s Sleeper) {
	if s != nil {
		d.sleep = s
	}
}

// Destinations returns the configured destinations in order.
func (d *Dispatcher) Destinations() []string {
	return append([]string(nil), d.destinations...)
}

// Dispatch attempts every batch against every destination and records one
// outcome per attempt. A failed attempt never stops the remaining ones.
func (d *Dispatcher) Dispatch(ctx context.Context, batches [][]*domain.Statement) Result {
	result := Result{
		Successes: []Outcome{},
		Failures:  []Outcome{},
	}

	for bi, batch := range batches {
		d.emit(events.BatchStarted, map[string]interface{}{
			"batch":      bi + 1,
			"total":      len(batches),
			"statements": len(batch),
		})
		d.log.Info().
			Int("batch", bi+1).
			Int("total", len(batches)).
			Int("statements", len(batch)).
			Msg("Dispatching batch")

		for di, url := range d.destinations {
			d.emit(events.DeliveryAttempt, map[string]interface{}{
				"batch": bi + 1,
				"url":   url,
			})

			outcome := Outcome{
				BatchIndex:       bi,
				DestinationIndex: di,
				URL:              url,
				StatementsSent:   len(batch),
			}

			resp, err := d.sender.Send(ctx, url, batch)
			if err != nil {
				outcome.Response = failureDetail(err)
				result.Failures = append(result.Failures, outcome)
				d.log.Warn().Err(err).Int("batch", bi+1).Str("url", url).Msg("Delivery failed")
				d.emit(events.DeliveryFailed, map[string]interface{}{
					"batch": bi + 1,
					"url":   url,
					"error": err.Error(),
				})
			} else {
				outcome.Response = resp
				result.Successes = append(result.Successes, outcome)
				d.log.Info().Int("batch", bi+1).Str("url", url).Msg("Delivery succeeded")
				d.emit(events.DeliverySucceeded, map[string]interface{}{
					"batch": bi + 1,
					"url":   url,
				})
			}

			if di < len(d.destinations)-1 {
				d.wait(ctx, d.serviceDelay)
			}
		}

		if bi < len(batches)-1 {
			d.wait(ctx, d.batchDelay)
		}
	}

	return result
}

func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	if err := d.sleep(ctx, delay); err != nil {
		d.log.Debug().Err(err).Dur("delay", delay).Msg("Pacing wait interrupted")
	}
}

func (d *Dispatcher) emit(t events.EventType, data map[string]interface{}) {
	if d.events != nil {
		d.events.Emit(t, module, data)
	}
}

// failureDetail prefers the structured response body carried by a
// DeliveryError and falls back to the error text.
func failureDetail(err error) json.RawMessage {
	var deliveryErr *domain.DeliveryError
	if errors.As(err, &deliveryErr) && len(deliveryErr.Detail) > 0 {
		return deliveryErr.Detail
	}
	return quote(err.Error())
}

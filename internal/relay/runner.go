// Package relay runs one delivery cycle end to end: list the due files, parse
// them, plan batches and hand them to the dispatcher.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/extrato-relay/internal/batch"
	"github.com/aristath/extrato-relay/internal/delivery"
	"github.com/aristath/extrato-relay/internal/domain"
	"github.com/aristath/extrato-relay/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const module = "relay"

// ErrRunInProgress is returned by Run while another run holds the slot.
var ErrRunInProgress = errors.New("a relay run is already in progress")

// Lister finds and reads the files due for delivery.
type Lister interface {
	List(now time.Time) ([]string, error)
	Read(name string) ([]byte, error)
}

// Parser decodes one file into a statement.
type Parser interface {
	Parse(filename string, content []byte) (*domain.Statement, error)
}

// Dispatcher delivers planned batches.
type Dispatcher interface {
	Dispatch(ctx context.Context, batches [][]*domain.Statement) delivery.Result
}

// FileWarning records a file left out of the run.
type FileWarning struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Summary describes one run.
type Summary struct {
	RunID        string          `json:"runId"`
	StartedAt    time.Time       `json:"startedAt"`
	FinishedAt   time.Time       `json:"finishedAt"`
	FilesListed  int             `json:"filesListed"`
	FilesParsed  int             `json:"filesParsed"`
	Transactions int             `json:"transactions"`
	Issues       int             `json:"issues"`
	Batches      int             `json:"batches"`
	Warnings     []FileWarning   `json:"warnings"`
	Result       delivery.Result `json:"result"`
	Error        string          `json:"error,omitempty"`
}

// Runner executes relay runs, at most one at a time.
type Runner struct {
	lister     Lister
	parser     Parser
	dispatcher Dispatcher
	events     events.Emitter
	batchSize  int
	now        func() time.Time
	log        zerolog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	last    *Summary
}

// NewRunner creates a Runner. A batch size below 1 falls back to
// batch.DefaultSize. A nil emitter disables progress events.
func NewRunner(lister Lister, parser Parser, dispatcher Dispatcher, emitter events.Emitter, batchSize int, log zerolog.Logger) *Runner {
	if batchSize < 1 {
		batchSize = batch.DefaultSize
	}
	return &Runner{
		lister:     lister,
		parser:     parser,
		dispatcher: dispatcher,
		events:     emitter,
		batchSize:  batchSize,
		now:        time.Now,
		log:        log.With().Str("component", "relay").Logger(),
	}
}

// SetClock replaces the time source.
func (r *Runner) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Busy reports whether a run is in flight.
func (r *Runner) Busy() bool {
	return r.running.Load()
}

// Last returns the summary of the most recent finished run, or nil.
func (r *Runner) Last() *Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run performs one full cycle. It fails fast with ErrRunInProgress when
// another run is active and with a *domain.DirectoryAccessError when the
// source directory cannot be listed. Per-file problems only produce
// warnings. Delivery failures are reported in Summary.Result, never as an
// error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	summary := &Summary{
		RunID:     uuid.New().String(),
		StartedAt: r.now(),
		Warnings:  []FileWarning{},
		Result: delivery.Result{
			Successes: []delivery.Outcome{},
			Failures:  []delivery.Outcome{},
		},
	}
	log := r.log.With().Str("run_id", summary.RunID).Logger()

	r.emit(events.RunStarted, map[string]interface{}{"run_id": summary.RunID})
	log.Info().Msg("Relay run started")

	err := r.run(ctx, log, summary)
	summary.FinishedAt = r.now()

	if err != nil {
		summary.Error = err.Error()
		r.emit(events.RunFailed, map[string]interface{}{
			"run_id": summary.RunID,
			"error":  err.Error(),
		})
		log.Error().Err(err).Msg("Relay run failed")
	} else {
		r.emit(events.RunCompleted, map[string]interface{}{
			"run_id":    summary.RunID,
			"files":     summary.FilesParsed,
			"batches":   summary.Batches,
			"successes": len(summary.Result.Successes),
			"failures":  len(summary.Result.Failures),
		})
		log.Info().
			Int("files_listed", summary.FilesListed).
			Int("files_parsed", summary.FilesParsed).
			Int("batches", summary.Batches).
			Int("successes", len(summary.Result.Successes)).
			Int("failures", len(summary.Result.Failures)).
			Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
			Msg("Relay run completed")
	}

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()

	return summary, err
}

func (r *Runner) run(ctx context.Context, log zerolog.Logger, summary *Summary) error {
	names, err := r.lister.List(summary.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to list statement files: %w", err)
	}
	summary.FilesListed = len(names)

	statements := make([]*domain.Statement, 0, len(names))
	for _, name := range names {
		stmt, err := r.load(name)
		if err != nil {
			summary.Warnings = append(summary.Warnings, FileWarning{Filename: name, Error: err.Error()})
			r.emit(events.FileSkipped, map[string]interface{}{"file": name, "error": err.Error()})
			log.Warn().Err(err).Str("file", name).Msg("File skipped")
			continue
		}
		summary.Transactions += len(stmt.Transactions)
		summary.Issues += len(stmt.Issues)
		r.emit(events.FileParsed, map[string]interface{}{
			"file":         stmt.Filename,
			"transactions": len(stmt.Transactions),
			"issues":       len(stmt.Issues),
		})
		statements = append(statements, stmt)
	}
	summary.FilesParsed = len(statements)

	batches, err := batch.Plan(statements, r.batchSize)
	if err != nil {
		return err
	}
	summary.Batches = len(batches)

	if len(batches) == 0 {
		log.Info().Msg("No statements to deliver")
		return nil
	}

	summary.Result = r.dispatcher.Dispatch(ctx, batches)
	return nil
}

func (r *Runner) load(name string) (*domain.Statement, error) {
	content, err := r.lister.Read(name)
	if err != nil {
		return nil, err
	}
	return r.parser.Parse(name, content)
}

func (r *Runner) emit(t events.EventType, data map[string]interface{}) {
	if r.events != nil {
		r.events.Emit(t, module, data)
	}
}

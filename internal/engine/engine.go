// Package engine runs the fetch → transform → load loop shared by every
// sync pipeline. The engine is generic over the source's raw item type and
// the canonical record type, so pipelines differ only in the three functions
// they plug in.
//
// Error handling follows a strict taxonomy: a fetch error aborts the run
// (the source is unreachable or misconfigured), while transform and load
// errors are counted per item and the loop continues. One malformed record
// never costs the rest of the batch.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/civicsync/civicsync/pkg/errors"
	"github.com/civicsync/civicsync/pkg/logging"
	"github.com/civicsync/civicsync/pkg/store"
)

// State tracks an engine run through its lifecycle. Transitions only move
// forward: not_started → connected → streaming → completed or failed.
type State string

// Engine states.
const (
	StateNotStarted State = "not_started"
	StateConnected  State = "connected"
	StateStreaming  State = "streaming"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// FetchFunc streams raw items from a source, invoking emit once per item.
// Returning an error aborts the run; an error returned by emit must be
// propagated unchanged (it signals cancellation).
type FetchFunc[R any] func(ctx context.Context, emit func(R) error) error

// TransformFunc converts one raw source item into a canonical record.
type TransformFunc[R, T any] func(ctx context.Context, raw R) (T, error)

// LoadFunc writes one canonical record to the store.
type LoadFunc[T any] func(ctx context.Context, record T) (store.Result, error)

// Stats summarizes one engine run.
type Stats struct {
	Pipeline    string    `json:"pipeline"`
	Processed   int       `json:"processed"`
	Inserted    int       `json:"inserted"`
	Updated     int       `json:"updated"`
	Skipped     int       `json:"skipped"`
	Errors      int       `json:"errors"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration returns the wall-clock time of the run.
func (s Stats) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}

// Summary returns a one-line human-readable account of the run.
func (s Stats) Summary() string {
	return fmt.Sprintf("%s: %d processed, %d inserted, %d updated, %d skipped, %d errors (took %v)",
		s.Pipeline, s.Processed, s.Inserted, s.Updated, s.Skipped, s.Errors, s.Duration().Round(time.Millisecond))
}

// Engine wires a fetcher, a transformer, and a loader over a store. An
// Engine runs exactly once; construct a fresh one per run.
type Engine[R, T any] struct {
	name      string
	store     store.Store
	fetch     FetchFunc[R]
	transform TransformFunc[R, T]
	load      LoadFunc[T]

	state State
	stats Stats
}

// New creates an engine for the named pipeline.
func New[R, T any](name string, st store.Store, fetch FetchFunc[R], transform TransformFunc[R, T], load LoadFunc[T]) *Engine[R, T] {
	return &Engine[R, T]{
		name:      name,
		store:     st,
		fetch:     fetch,
		transform: transform,
		load:      load,
		state:     StateNotStarted,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine[R, T]) State() State { return e.state }

// Stats returns the run statistics accumulated so far.
func (e *Engine[R, T]) Stats() Stats { return e.stats }

// Run executes the pipeline to completion. The store connection is opened
// before streaming begins and released on every exit path. The returned
// stats are valid even when err is non-nil: they describe the portion of
// the run that finished before the abort.
func (e *Engine[R, T]) Run(ctx context.Context) (Stats, error) {
	if e.state != StateNotStarted {
		return e.stats, fmt.Errorf("engine %s already ran (state %s)", e.name, e.state)
	}

	log := logging.Ctx(ctx)
	e.stats = Stats{Pipeline: e.name, StartedAt: time.Now().UTC()}

	if err := e.store.Connect(ctx); err != nil {
		e.fail()
		return e.stats, errors.NewPipelineError(e.name, err)
	}
	e.state = StateConnected
	defer func() {
		if err := e.store.Close(ctx); err != nil {
			log.Warn().Err(err).Str("pipeline", e.name).Msg("closing store")
		}
	}()

	log.Info().Str("pipeline", e.name).Msg("sync started")
	e.state = StateStreaming

	err := e.fetch(ctx, func(raw R) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.ErrCanceled
		}
		e.processItem(ctx, raw)
		return nil
	})

	e.stats.CompletedAt = time.Now().UTC()
	if err != nil {
		e.state = StateFailed
		log.Error().Err(err).Str("pipeline", e.name).
			Int("processed", e.stats.Processed).
			Msg("fetch aborted")
		return e.stats, errors.NewPipelineError(e.name, err)
	}

	e.state = StateCompleted
	log.Info().
		Str("pipeline", e.name).
		Int("processed", e.stats.Processed).
		Int("inserted", e.stats.Inserted).
		Int("updated", e.stats.Updated).
		Int("skipped", e.stats.Skipped).
		Int("errors", e.stats.Errors).
		Dur("duration", e.stats.Duration()).
		Msg("sync completed")
	return e.stats, nil
}

// processItem handles one raw item. Transform and load failures increment
// the error counter and return; they never abort the stream.
func (e *Engine[R, T]) processItem(ctx context.Context, raw R) {
	e.stats.Processed++
	log := logging.Ctx(ctx)

	record, err := e.transform(ctx, raw)
	if err != nil {
		e.stats.Errors++
		log.Warn().Err(err).Str("pipeline", e.name).Msg("transform failed, skipping item")
		return
	}

	result, err := e.load(ctx, record)
	if err != nil {
		e.stats.Errors++
		log.Warn().Err(err).Str("pipeline", e.name).Msg("load failed, skipping item")
		return
	}

	switch result {
	case store.ResultInserted:
		e.stats.Inserted++
	case store.ResultUpdated:
		e.stats.Updated++
	case store.ResultSkipped:
		e.stats.Skipped++
	}
}

func (e *Engine[R, T]) fail() {
	e.state = StateFailed
	e.stats.CompletedAt = time.Now().UTC()
}

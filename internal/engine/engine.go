// Package engine wires the bar store, the indicator graph, the compiled
// strategies and the signal queue into one single-writer streaming engine.
// A bar mutation runs its full cascade (store -> indicators -> strategies ->
// queue) to completion before returning, so observers never see partially
// updated state. Callers must serialize mutations and reads on one engine.
package engine

import (
	"go.uber.org/zap"

	"github.com/rxtech-lab/streamquant/internal/indicator"
	"github.com/rxtech-lab/streamquant/internal/logger"
	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/strategy"
	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

type registeredStrategy struct {
	id       int
	compiled *strategy.Strategy
}

// Engine owns one symbol's bar history, indicators and strategies.
type Engine struct {
	bars       *series.BarBuffer
	graph      *indicator.Graph
	queue      *SignalQueue
	strategies []registeredStrategy
	nextID     int
	log        *logger.Logger
}

// NewEngine creates an engine with a fixed bar capacity.
func NewEngine(capacity int, log *logger.Logger) (*Engine, error) {
	if capacity <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidCapacity, "capacity must be positive, got %d", capacity)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Engine{
		bars:   series.NewBarBuffer(capacity),
		graph:  indicator.NewGraph(capacity),
		queue:  NewSignalQueue(),
		nextID: 1,
		log:    log,
	}, nil
}

// AddIndicator registers an indicator and returns its stable id. Registering
// the same spec twice returns the same id.
func (e *Engine) AddIndicator(spec indicator.Spec) (int, error) {
	return e.graph.Add(spec)
}

// AddStrategy compiles a rule script and registers it under the given name,
// returning a stable strategy id independent of indicator ids. A parse
// failure leaves existing strategies and indicators untouched.
func (e *Engine) AddStrategy(name, script string) (int, error) {
	compiled, err := strategy.Compile(name, script, e.graph)
	if err != nil {
		return 0, err
	}

	id := e.nextID
	e.nextID++
	e.strategies = append(e.strategies, registeredStrategy{id: id, compiled: compiled})

	e.log.Info("strategy registered",
		zap.String("name", name),
		zap.Int("strategy_id", id),
		zap.Int("indicators", e.graph.Len()),
	)

	return id, nil
}

// Push appends a new bar and runs the full cascade. Pushing past capacity
// evicts the oldest bar; it is never an error.
func (e *Engine) Push(bar types.Bar) {
	e.bars.Push(bar)
	e.graph.OnPush(e.bars)
	e.evaluate(strategy.EventPush, bar.Timestamp)
}

// UpdateLast revises the most recent bar in place and runs the full cascade
// as a revision event. Revising an empty store is an error.
func (e *Engine) UpdateLast(bar types.Bar) error {
	oldBar, ok := e.bars.UpdateLast(bar)
	if !ok {
		return errors.New(errors.ErrCodeEmptyStore, "update_last on an empty store")
	}

	e.graph.OnUpdateLast(oldBar, bar, e.bars)
	e.evaluate(strategy.EventUpdateLast, bar.Timestamp)

	return nil
}

func (e *Engine) evaluate(event strategy.EventKind, timestamp int64) {
	for _, s := range e.strategies {
		action, fired := s.compiled.Evaluate(event, e.bars, e.graph)
		if !fired {
			continue
		}

		e.queue.Push(types.Signal{
			StrategyID: s.id,
			Action:     action,
			Timestamp:  timestamp,
		})
		e.log.Debug("signal emitted",
			zap.String("strategy", s.compiled.Name()),
			zap.Int("strategy_id", s.id),
			zap.String("action", string(action)),
			zap.Int64("timestamp", timestamp),
		)
	}
}

// StrategyName returns the name a strategy id was registered under.
func (e *Engine) StrategyName(id int) (string, error) {
	for _, s := range e.strategies {
		if s.id == id {
			return s.compiled.Name(), nil
		}
	}

	return "", errors.Newf(errors.ErrCodeStrategyNotFound, "strategy id %d not registered", id)
}

// IndicatorLast returns the latest value of a registered indicator.
func (e *Engine) IndicatorLast(id int) (types.IndicatorValue, error) {
	return e.graph.LastValue(id)
}

// Signals returns the queue of emitted signals for draining.
func (e *Engine) Signals() *SignalQueue {
	return e.queue
}

// Len returns the number of bars currently stored.
func (e *Engine) Len() int {
	return e.bars.Len()
}

// Capacity returns the fixed bar capacity.
func (e *Engine) Capacity() int {
	return e.bars.Capacity()
}

// Column returns the read-only circular column of one bar field.
func (e *Engine) Column(field types.Field) *series.CircularColumn[float64] {
	return e.bars.Column(field)
}

// Timestamps returns the read-only circular timestamp column.
func (e *Engine) Timestamps() *series.CircularColumn[int64] {
	return e.bars.Timestamps()
}

// LastBar returns the most recent bar.
func (e *Engine) LastBar() (types.Bar, bool) {
	return e.bars.Last()
}

// Bar returns the i-th oldest stored bar.
func (e *Engine) Bar(i int) (types.Bar, bool) {
	return e.bars.Get(i)
}

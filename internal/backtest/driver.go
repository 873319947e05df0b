package backtest

import (
	"time"

	"tradesim/internal/clock"
	"tradesim/internal/core"
	"tradesim/internal/execution"
	"tradesim/internal/model"
	"tradesim/internal/simulation"
	"tradesim/pkg/apperrors"
)

// Driver owns the simulated clock and runs the backtest loop: it feeds ticks
// in timestamp order, fires due timer events before each tick, and drives the
// matching engine, data client and strategies. Behavior is a pure function of
// the tick stream, the command stream and the fill-model seed.
type Driver struct {
	wallClock *clock.WallClock
	testClock *clock.TestClock

	source core.IDataSource
	data   *DataClient
	venue  *simulation.Venue
	engine *execution.Engine
	db     core.IExecutionDatabase
	logger core.ILogger

	strategies     []core.IStrategy
	strategyClocks map[model.StrategyID]*clock.TestClock
}

// NewDriver assembles a driver over pre-wired components. The venue must
// already route its events into the engine.
func NewDriver(
	source core.IDataSource,
	data *DataClient,
	venue *simulation.Venue,
	engine *execution.Engine,
	db core.IExecutionDatabase,
	logger core.ILogger,
) *Driver {
	return &Driver{
		wallClock:      clock.NewWallClock(),
		testClock:      clock.NewTestClock(time.Time{}),
		source:         source,
		data:           data,
		venue:          venue,
		engine:         engine,
		db:             db,
		logger:         logger.WithField("component", "backtest"),
		strategyClocks: make(map[model.StrategyID]*clock.TestClock),
	}
}

// Clock returns the driver's simulation clock.
func (d *Driver) Clock() *clock.TestClock {
	return d.testClock
}

// RegisterStrategy adds a strategy with its own test clock to the run.
func (d *Driver) RegisterStrategy(strategy core.IStrategy, strategyClock *clock.TestClock) error {
	if strategy == nil || strategyClock == nil {
		return apperrors.Invalid("strategy and clock are required")
	}
	if err := d.engine.RegisterStrategy(strategy); err != nil {
		return err
	}
	d.strategies = append(d.strategies, strategy)
	d.strategyClocks[strategy.ID()] = strategyClock
	d.data.RegisterStrategy(strategy)
	return nil
}

// Run executes the backtest over [start, stop].
func (d *Driver) Run(start, stop time.Time) error {
	if stop.Before(start) {
		return apperrors.Invalid("stop %s is before start %s", stop, start)
	}
	runStarted := d.wallClock.TimeNow()
	d.logger.Info("backtest starting",
		"start", start.UTC().Format(time.RFC3339),
		"stop", stop.UTC().Format(time.RFC3339))

	d.engine.Reset()
	d.venue.Reset()
	d.source.Reset()
	d.data.Reset()
	d.testClock.SetTime(start)
	for _, strategy := range d.strategies {
		d.strategyClocks[strategy.ID()].SetTime(start)
		strategy.Reset()
	}
	for _, strategy := range d.strategies {
		strategy.Start()
	}

	ticks := 0
	for {
		tick, ok := d.source.Peek()
		if !ok || tick.Timestamp.After(stop) {
			break
		}
		d.source.Next()

		// Timer events due in (prev_tick, tick] run before the tick, each
		// with its strategy clock set to the event time.
		for _, strategy := range d.strategies {
			strategyClock := d.strategyClocks[strategy.ID()]
			for _, invocation := range strategyClock.AdvanceTime(tick.Timestamp) {
				strategyClock.SetTime(invocation.Event.Timestamp)
				invocation.Handler(invocation.Event)
			}
			strategyClock.SetTime(tick.Timestamp)
		}

		d.testClock.SetTime(tick.Timestamp)
		d.venue.ProcessTick(tick)
		d.data.ProcessTick(tick)
		ticks++
	}

	for _, strategy := range d.strategies {
		strategy.Stop()
	}
	d.engine.CheckResiduals()

	elapsed := d.wallClock.TimeNow().Sub(runStarted)
	d.logger.Info("backtest complete",
		"ticks", ticks,
		"commands", d.engine.CommandCount(),
		"events", d.engine.EventCount(),
		"elapsed", elapsed.String())
	return nil
}

// Package backtest provides the virtual-clock driver loop and the tick data
// plumbing for deterministic simulations.
package backtest

import (
	"tradesim/internal/core"
	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
)

// TickSource replays a pre-sorted tick slice.
type TickSource struct {
	ticks  []model.QuoteTick
	cursor int
}

// NewTickSource creates a source from ticks in non-decreasing timestamp
// order.
func NewTickSource(ticks []model.QuoteTick) (*TickSource, error) {
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Timestamp.Before(ticks[i-1].Timestamp) {
			return nil, apperrors.Invalid("ticks out of order at index %d", i)
		}
	}
	return &TickSource{ticks: ticks}, nil
}

// Peek returns the next tick without consuming it.
func (s *TickSource) Peek() (model.QuoteTick, bool) {
	if s.cursor >= len(s.ticks) {
		return model.QuoteTick{}, false
	}
	return s.ticks[s.cursor], true
}

// Next consumes and returns the next tick.
func (s *TickSource) Next() (model.QuoteTick, bool) {
	tick, ok := s.Peek()
	if ok {
		s.cursor++
	}
	return tick, ok
}

// Reset rewinds to the first tick.
func (s *TickSource) Reset() {
	s.cursor = 0
}

// DataClient maintains the bounded tick cache and fans ticks out to
// strategies in registration order.
type DataClient struct {
	tickCapacity int
	cache        map[model.Symbol][]model.QuoteTick
	strategies   []core.IStrategy
	logger       core.ILogger
	tickCount    int
}

// NewDataClient creates a data client with the given cache capacity.
func NewDataClient(tickCapacity int, logger core.ILogger) (*DataClient, error) {
	if tickCapacity <= 0 {
		return nil, apperrors.Invalid("tick capacity must be positive (was %d)", tickCapacity)
	}
	return &DataClient{
		tickCapacity: tickCapacity,
		cache:        make(map[model.Symbol][]model.QuoteTick),
		logger:       logger.WithField("component", "data_client"),
	}, nil
}

// RegisterStrategy adds a strategy to the tick fan-out.
func (c *DataClient) RegisterStrategy(strategy core.IStrategy) {
	c.strategies = append(c.strategies, strategy)
}

// ProcessTick caches the tick and invokes each strategy's tick handler.
func (c *DataClient) ProcessTick(tick model.QuoteTick) {
	ticks := append(c.cache[tick.Symbol], tick)
	if len(ticks) > c.tickCapacity {
		ticks = ticks[len(ticks)-c.tickCapacity:]
	}
	c.cache[tick.Symbol] = ticks
	c.tickCount++

	for _, strategy := range c.strategies {
		strategy.HandleTick(tick)
	}
}

// LastTick returns the most recent tick for the symbol.
func (c *DataClient) LastTick(symbol model.Symbol) (model.QuoteTick, bool) {
	ticks := c.cache[symbol]
	if len(ticks) == 0 {
		return model.QuoteTick{}, false
	}
	return ticks[len(ticks)-1], true
}

// TickCount returns the number of ticks processed.
func (c *DataClient) TickCount() int {
	return c.tickCount
}

// Reset clears the cache and counters. Registered strategies are kept.
func (c *DataClient) Reset() {
	c.cache = make(map[model.Symbol][]model.QuoteTick)
	c.tickCount = 0
}

package execution

import (
	"tradesim/internal/core"
	"tradesim/internal/model"
)

// Portfolio tracks the base currency and the open/closed position ids across
// all registered strategies. It observes derived position events from the
// engine; it never mutates the database.
type Portfolio struct {
	logger       core.ILogger
	baseCurrency model.Currency

	registered      map[model.StrategyID]struct{}
	positionsOpen   map[model.PositionID]struct{}
	positionsClosed map[model.PositionID]struct{}
}

// NewPortfolio creates an empty portfolio.
func NewPortfolio(logger core.ILogger) *Portfolio {
	p := &Portfolio{logger: logger.WithField("component", "portfolio")}
	p.Reset()
	return p
}

// Reset clears all tracked state. The base currency is kept.
func (p *Portfolio) Reset() {
	p.registered = make(map[model.StrategyID]struct{})
	p.positionsOpen = make(map[model.PositionID]struct{})
	p.positionsClosed = make(map[model.PositionID]struct{})
}

// SetBaseCurrency sets the currency PnL aggregates are expressed in.
func (p *Portfolio) SetBaseCurrency(currency model.Currency) {
	p.baseCurrency = currency
}

// BaseCurrency returns the portfolio currency.
func (p *Portfolio) BaseCurrency() model.Currency {
	return p.baseCurrency
}

// RegisterStrategy adds a strategy to the portfolio.
func (p *Portfolio) RegisterStrategy(strategyID model.StrategyID) {
	p.registered[strategyID] = struct{}{}
}

// DeregisterStrategy removes a strategy from the portfolio.
func (p *Portfolio) DeregisterStrategy(strategyID model.StrategyID) {
	delete(p.registered, strategyID)
}

// OpenPositionIDs returns the ids of currently open positions.
func (p *Portfolio) OpenPositionIDs() []model.PositionID {
	ids := make([]model.PositionID, 0, len(p.positionsOpen))
	for id := range p.positionsOpen {
		ids = append(ids, id)
	}
	return ids
}

// ClosedPositionCount returns the number of closed positions seen.
func (p *Portfolio) ClosedPositionCount() int {
	return len(p.positionsClosed)
}

// HandlePositionEvent folds a derived position event into the sets.
func (p *Portfolio) HandlePositionEvent(event model.Event) {
	switch e := event.(type) {
	case model.PositionOpened:
		p.positionsOpen[e.Position.ID] = struct{}{}
	case model.PositionModified:
		p.positionsOpen[e.Position.ID] = struct{}{}
	case model.PositionClosed:
		delete(p.positionsOpen, e.Position.ID)
		p.positionsClosed[e.Position.ID] = struct{}{}
	}
}

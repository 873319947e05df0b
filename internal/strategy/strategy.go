// Package strategy provides the trading strategy base: the lifecycle and
// handler surface the engine and the backtest driver call into, plus helpers
// for order submission and timers.
package strategy

import (
	"time"

	"tradesim/internal/clock"
	"tradesim/internal/core"
	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
)

// Config controls stop-time behavior.
type Config struct {
	CancelAllOrdersOnStop bool
	FlattenOnStop         bool
}

// TradingStrategy is the base every strategy composes. Behavior is supplied
// through the On* hooks; the base wires identity, clock, generators and the
// command path.
type TradingStrategy struct {
	id     model.StrategyID
	cfg    Config
	logger core.ILogger

	traderID    model.TraderID
	accountID   model.AccountID
	clock       clock.Clock
	uuidFactory model.UUIDFactory
	orderIDs    *model.OrderIDGenerator
	positionIDs *model.PositionIDGenerator

	router core.ICommandRouter
	db     core.IExecutionDatabase

	running bool

	// Hooks. Each is optional.
	OnStart func()
	OnStop  func()
	OnReset func()
	OnTick  func(tick model.QuoteTick)
	OnEvent func(event model.Event)
}

// NewTradingStrategy creates a strategy base with the given id.
func NewTradingStrategy(id model.StrategyID, cfg Config, logger core.ILogger) *TradingStrategy {
	return &TradingStrategy{
		id:     id,
		cfg:    cfg,
		logger: logger.WithField("strategy_id", string(id)),
	}
}

// RegisterTrader binds trader identity, the per-strategy clock and the id
// generators. Must be called before Start.
func (s *TradingStrategy) RegisterTrader(
	traderID model.TraderID,
	accountID model.AccountID,
	traderTag, strategyTag string,
	clk clock.Clock,
	uuidFactory model.UUIDFactory,
) {
	s.traderID = traderID
	s.accountID = accountID
	s.clock = clk
	s.uuidFactory = uuidFactory
	s.orderIDs = model.NewOrderIDGenerator(traderTag, strategyTag, clk.TimeNow)
	s.positionIDs = model.NewPositionIDGenerator(traderTag, strategyTag, clk.TimeNow)
}

// RegisterExecution binds the command router and the database read API.
func (s *TradingStrategy) RegisterExecution(router core.ICommandRouter, db core.IExecutionDatabase) {
	s.router = router
	s.db = db
}

func (s *TradingStrategy) ID() model.StrategyID  { return s.id }
func (s *TradingStrategy) IsRunning() bool       { return s.running }
func (s *TradingStrategy) Clock() clock.Clock    { return s.clock }
func (s *TradingStrategy) Logger() core.ILogger  { return s.logger }
func (s *TradingStrategy) TimeNow() time.Time    { return s.clock.TimeNow() }
func (s *TradingStrategy) AccountID() model.AccountID { return s.accountID }

// Database exposes the read-only view of the execution database.
func (s *TradingStrategy) Database() core.IExecutionDatabase { return s.db }

// GenerateOrderID returns the next order id for this strategy.
func (s *TradingStrategy) GenerateOrderID() model.OrderID { return s.orderIDs.Generate() }

// GeneratePositionID returns the next position id for this strategy.
func (s *TradingStrategy) GeneratePositionID() model.PositionID { return s.positionIDs.Generate() }

// Start begins the strategy lifecycle.
func (s *TradingStrategy) Start() {
	if s.running {
		return
	}
	s.running = true
	s.logger.Info("strategy starting")
	if s.OnStart != nil {
		s.OnStart()
	}
}

// Stop ends the strategy lifecycle, optionally cancelling working orders and
// flattening open positions first.
func (s *TradingStrategy) Stop() {
	if !s.running {
		return
	}
	if s.cfg.CancelAllOrdersOnStop {
		s.cancelAllOrders()
	}
	if s.cfg.FlattenOnStop {
		s.flattenAllPositions()
	}
	if s.OnStop != nil {
		s.OnStop()
	}
	s.clock.CancelAllTimers()
	s.running = false
	s.logger.Info("strategy stopped")
}

// Reset rewinds the strategy to a pre-start state.
func (s *TradingStrategy) Reset() {
	s.orderIDs.Reset()
	s.positionIDs.Reset()
	if s.OnReset != nil {
		s.OnReset()
	}
	s.logger.Info("strategy reset")
}

// HandleTick forwards a tick to the strategy hook.
func (s *TradingStrategy) HandleTick(tick model.QuoteTick) {
	if !s.running {
		return
	}
	if s.OnTick != nil {
		s.OnTick(tick)
	}
}

// HandleEvent forwards an event to the strategy hook.
func (s *TradingStrategy) HandleEvent(event model.Event) {
	if s.OnEvent != nil {
		s.OnEvent(event)
	}
}

// SubmitOrder routes a submit command for the order under the position id.
func (s *TradingStrategy) SubmitOrder(order *model.Order, positionID model.PositionID) error {
	if s.router == nil {
		return apperrors.Invalid("strategy %s has no execution registered", s.id)
	}
	return s.router.Execute(&model.SubmitOrder{
		TraderID:    s.traderID,
		AccountID:   s.accountID,
		StrategyID:  s.id,
		PositionID:  positionID,
		Order:       order,
		CommandMeta: model.CommandMeta{ID: s.uuidFactory.Generate(), Timestamp: s.TimeNow()},
	})
}

// SubmitBracketOrder routes a bracket submit; all legs share the position id.
func (s *TradingStrategy) SubmitBracketOrder(bracket *model.BracketOrder, positionID model.PositionID) error {
	if s.router == nil {
		return apperrors.Invalid("strategy %s has no execution registered", s.id)
	}
	return s.router.Execute(&model.SubmitBracketOrder{
		TraderID:    s.traderID,
		AccountID:   s.accountID,
		StrategyID:  s.id,
		PositionID:  positionID,
		Bracket:     bracket,
		CommandMeta: model.CommandMeta{ID: s.uuidFactory.Generate(), Timestamp: s.TimeNow()},
	})
}

// ModifyOrder routes a modify command.
func (s *TradingStrategy) ModifyOrder(orderID model.OrderID, quantity model.Quantity, price model.Price) error {
	if s.router == nil {
		return apperrors.Invalid("strategy %s has no execution registered", s.id)
	}
	return s.router.Execute(&model.ModifyOrder{
		TraderID:         s.traderID,
		AccountID:        s.accountID,
		OrderID:          orderID,
		ModifiedQuantity: quantity,
		ModifiedPrice:    price,
		CommandMeta:      model.CommandMeta{ID: s.uuidFactory.Generate(), Timestamp: s.TimeNow()},
	})
}

// CancelOrder routes a cancel command.
func (s *TradingStrategy) CancelOrder(orderID model.OrderID, reason string) error {
	if s.router == nil {
		return apperrors.Invalid("strategy %s has no execution registered", s.id)
	}
	return s.router.Execute(&model.CancelOrder{
		TraderID:     s.traderID,
		AccountID:    s.accountID,
		OrderID:      orderID,
		CancelReason: reason,
		CommandMeta:  model.CommandMeta{ID: s.uuidFactory.Generate(), Timestamp: s.TimeNow()},
	})
}

// AccountInquiry requests a fresh account state from the venue.
func (s *TradingStrategy) AccountInquiry() error {
	if s.router == nil {
		return apperrors.Invalid("strategy %s has no execution registered", s.id)
	}
	return s.router.Execute(&model.AccountInquiry{
		TraderID:    s.traderID,
		AccountID:   s.accountID,
		CommandMeta: model.CommandMeta{ID: s.uuidFactory.Generate(), Timestamp: s.TimeNow()},
	})
}

// SetTimeAlert registers a one-shot alert on the strategy clock.
func (s *TradingStrategy) SetTimeAlert(name string, at time.Time, handler clock.TimeEventHandler) error {
	return s.clock.SetTimeAlert(name, at, handler)
}

// SetTimer registers a recurring timer on the strategy clock.
func (s *TradingStrategy) SetTimer(name string, interval time.Duration, start, stop *time.Time, handler clock.TimeEventHandler) error {
	return s.clock.SetTimer(name, interval, start, stop, handler)
}

func (s *TradingStrategy) cancelAllOrders() {
	if s.db == nil {
		return
	}
	for orderID := range s.db.GetOrdersWorkingForStrategy(s.id) {
		if err := s.CancelOrder(orderID, "strategy stopping"); err != nil {
			s.logger.Warn("cancel on stop failed", "order_id", string(orderID), "error", err.Error())
		}
	}
}

func (s *TradingStrategy) flattenAllPositions() {
	if s.db == nil {
		return
	}
	for positionID, position := range s.db.GetPositionsOpenForStrategy(s.id) {
		side := model.Sell
		if position.MarketPosition() == model.Short {
			side = model.Buy
		}
		order, err := model.NewMarketOrder(
			s.GenerateOrderID(),
			position.Symbol,
			side,
			position.Quantity(),
			model.DAY,
			s.uuidFactory.Generate(),
			s.TimeNow(),
		)
		if err != nil {
			s.logger.Warn("flatten on stop failed", "position_id", string(positionID), "error", err.Error())
			continue
		}
		if err := s.SubmitOrder(order, positionID); err != nil {
			s.logger.Warn("flatten on stop failed", "position_id", string(positionID), "error", err.Error())
		}
	}
}

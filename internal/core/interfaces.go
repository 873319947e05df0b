// Package core defines the interfaces shared across the trading core.
package core

import (
	"tradesim/internal/model"
)

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}

// IExecutionClient defines the interface for venue adapters: the simulated
// matching engine in backtests, a broker gateway in live trading.
type IExecutionClient interface {
	Connect() error
	Disconnect() error
	Reset()
	AccountInquiry(cmd *model.AccountInquiry) error
	SubmitOrder(cmd *model.SubmitOrder) error
	SubmitBracketOrder(cmd *model.SubmitBracketOrder) error
	ModifyOrder(cmd *model.ModifyOrder) error
	CancelOrder(cmd *model.CancelOrder) error
}

// ICommandRouter defines the command surface strategies submit through.
type ICommandRouter interface {
	Execute(cmd model.Command) error
}

// IEventHandler consumes events emitted by a venue adapter.
type IEventHandler interface {
	HandleEvent(evt model.Event)
}

// IStrategy defines the lifecycle and handler surface the engine and the
// backtest driver call into.
type IStrategy interface {
	ID() model.StrategyID
	Start()
	Stop()
	Reset()
	HandleTick(tick model.QuoteTick)
	HandleEvent(evt model.Event)
}

// IDataSource supplies ticks in non-decreasing timestamp order.
type IDataSource interface {
	// Peek returns the next tick without consuming it.
	Peek() (model.QuoteTick, bool)
	// Next consumes and returns the next tick.
	Next() (model.QuoteTick, bool)
	// Reset rewinds the source to the beginning.
	Reset()
}

// IKeyValueStore defines the pluggable store behind the external-KV execution
// database backend. Keys are namespaced by bucket.
type IKeyValueStore interface {
	Put(bucket, key string, value []byte) error
	Get(bucket, key string) ([]byte, bool, error)
	Delete(bucket, key string) error
	Keys(bucket string) ([]string, error)
	Close() error
}

// IExecutionDatabase defines the indexed cache of accounts, orders and
// positions. Only the execution engine mutates it; strategies observe through
// the read API.
type IExecutionDatabase interface {
	// Writes.
	AddAccount(account *model.Account) error
	AddOrder(order *model.Order, strategyID model.StrategyID, positionID model.PositionID) error
	AddPosition(position *model.Position, strategyID model.StrategyID) error
	UpdateAccount(account *model.Account) error
	UpdateOrder(order *model.Order) error
	UpdatePosition(position *model.Position) error
	UpdateStrategyState(strategyID model.StrategyID, state map[string]string) error
	DeleteStrategy(strategyID model.StrategyID) error

	// Reads.
	GetAccount(id model.AccountID) (*model.Account, bool)
	GetOrder(id model.OrderID) (*model.Order, bool)
	GetPosition(id model.PositionID) (*model.Position, bool)
	GetPositionForOrder(orderID model.OrderID) (*model.Position, bool)
	GetPositionID(orderID model.OrderID) (model.PositionID, bool)
	GetPositionIDForBroker(brokerID model.PositionIDBroker) (model.PositionID, bool)
	GetStrategyForOrder(orderID model.OrderID) (model.StrategyID, bool)
	GetStrategyForPosition(positionID model.PositionID) (model.StrategyID, bool)
	GetStrategyState(strategyID model.StrategyID) (map[string]string, bool)

	GetOrderIDs() []model.OrderID
	GetOrders() map[model.OrderID]*model.Order
	GetOrdersWorking() map[model.OrderID]*model.Order
	GetOrdersCompleted() map[model.OrderID]*model.Order
	GetOrdersForStrategy(strategyID model.StrategyID) map[model.OrderID]*model.Order
	GetOrdersWorkingForStrategy(strategyID model.StrategyID) map[model.OrderID]*model.Order
	GetOrdersCompletedForStrategy(strategyID model.StrategyID) map[model.OrderID]*model.Order

	GetPositionIDs() []model.PositionID
	GetPositions() map[model.PositionID]*model.Position
	GetPositionsOpen() map[model.PositionID]*model.Position
	GetPositionsClosed() map[model.PositionID]*model.Position
	GetPositionsForStrategy(strategyID model.StrategyID) map[model.PositionID]*model.Position
	GetPositionsOpenForStrategy(strategyID model.StrategyID) map[model.PositionID]*model.Position
	GetPositionsClosedForStrategy(strategyID model.StrategyID) map[model.PositionID]*model.Position

	OrderExists(id model.OrderID) bool
	IsOrderWorking(id model.OrderID) bool
	IsOrderCompleted(id model.OrderID) bool
	PositionExists(id model.PositionID) bool
	PositionExistsForOrder(orderID model.OrderID) bool
	IsPositionOpen(id model.PositionID) bool
	IsPositionClosed(id model.PositionID) bool

	CountOrdersTotal() int
	CountOrdersWorking() int
	CountOrdersCompleted() int
	CountPositionsTotal() int
	CountPositionsOpen() int
	CountPositionsClosed() int

	// CheckResiduals logs a warning for every still-working order and
	// still-open position. It never fails.
	CheckResiduals()

	// Reset clears cached state, keeping persistent storage intact.
	Reset()
}

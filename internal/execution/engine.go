package execution

import (
	"errors"
	"fmt"

	"tradesim/internal/core"
	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
	"tradesim/pkg/telemetry"
)

// Engine routes commands from strategies to the bound venue adapter and
// dispatches venue events back to orders, positions and strategies. It is the
// only component that mutates the execution database, and it never crashes on
// a single malformed event.
type Engine struct {
	traderID  model.TraderID
	accountID model.AccountID

	db          core.IExecutionDatabase
	portfolio   *Portfolio
	client      core.IExecutionClient
	strategies  map[model.StrategyID]core.IStrategy
	logger      core.ILogger
	uuidFactory model.UUIDFactory
	metrics     *telemetry.EngineMetrics

	account      *model.Account
	commandCount int
	eventCount   int
	wasReset     bool
}

// NewEngine creates an execution engine bound to a database and portfolio.
func NewEngine(
	traderID model.TraderID,
	accountID model.AccountID,
	db core.IExecutionDatabase,
	portfolio *Portfolio,
	uuidFactory model.UUIDFactory,
	logger core.ILogger,
	metrics *telemetry.EngineMetrics,
) *Engine {
	return &Engine{
		traderID:    traderID,
		accountID:   accountID,
		db:          db,
		portfolio:   portfolio,
		strategies:  make(map[model.StrategyID]core.IStrategy),
		logger:      logger.WithField("component", "exec_engine"),
		uuidFactory: uuidFactory,
		metrics:     metrics,
	}
}

// RegisterVenue binds the venue adapter commands are forwarded to.
func (e *Engine) RegisterVenue(client core.IExecutionClient) error {
	if client == nil {
		return apperrors.Invalid("execution client is nil")
	}
	if e.client != nil {
		return fmt.Errorf("%w: execution client already registered", apperrors.ErrDuplicateKey)
	}
	e.client = client
	return nil
}

// RegisterStrategy adds a strategy to the engine and portfolio.
func (e *Engine) RegisterStrategy(strategy core.IStrategy) error {
	if strategy == nil {
		return apperrors.Invalid("strategy is nil")
	}
	if _, ok := e.strategies[strategy.ID()]; ok {
		return fmt.Errorf("%w: strategy %s", apperrors.ErrDuplicateKey, strategy.ID())
	}
	e.strategies[strategy.ID()] = strategy
	e.portfolio.RegisterStrategy(strategy.ID())
	return nil
}

// DeregisterStrategy removes a strategy from the engine and portfolio.
func (e *Engine) DeregisterStrategy(strategy core.IStrategy) error {
	if strategy == nil {
		return apperrors.Invalid("strategy is nil")
	}
	if _, ok := e.strategies[strategy.ID()]; !ok {
		return fmt.Errorf("%w: strategy %s", apperrors.ErrNotFound, strategy.ID())
	}
	delete(e.strategies, strategy.ID())
	e.portfolio.DeregisterStrategy(strategy.ID())
	return nil
}

// RegisteredStrategies returns the ids of registered strategies.
func (e *Engine) RegisteredStrategies() []model.StrategyID {
	ids := make([]model.StrategyID, 0, len(e.strategies))
	for id := range e.strategies {
		ids = append(ids, id)
	}
	return ids
}

func (e *Engine) CommandCount() int { return e.commandCount }
func (e *Engine) EventCount() int   { return e.eventCount }

// Account returns the engine's account, if one was created yet.
func (e *Engine) Account() (*model.Account, bool) {
	return e.account, e.account != nil
}

// Execute routes a command to the venue. Orders are stored in the database
// before forwarding so reply events never find a missing order.
func (e *Engine) Execute(cmd model.Command) error {
	if e.client == nil {
		return apperrors.Invalid("no execution client registered")
	}
	e.commandCount++
	e.wasReset = false
	if e.metrics != nil {
		e.metrics.CommandsExecuted.Inc()
	}

	switch c := cmd.(type) {
	case *model.AccountInquiry:
		return e.client.AccountInquiry(c)
	case *model.SubmitOrder:
		if err := e.db.AddOrder(c.Order, c.StrategyID, c.PositionID); err != nil {
			return err
		}
		return e.client.SubmitOrder(c)
	case *model.SubmitBracketOrder:
		if err := e.db.AddOrder(c.Bracket.Entry, c.StrategyID, c.PositionID); err != nil {
			return err
		}
		if err := e.db.AddOrder(c.Bracket.StopLoss, c.StrategyID, c.PositionID); err != nil {
			return err
		}
		if c.Bracket.TakeProfit != nil {
			if err := e.db.AddOrder(c.Bracket.TakeProfit, c.StrategyID, c.PositionID); err != nil {
				return err
			}
		}
		return e.client.SubmitBracketOrder(c)
	case *model.ModifyOrder:
		return e.client.ModifyOrder(c)
	case *model.CancelOrder:
		return e.client.CancelOrder(c)
	default:
		e.logger.Warn("unrecognized command dropped", "command", fmt.Sprintf("%T", cmd))
		return nil
	}
}

// HandleEvent dispatches an event by variant. Unresolvable or ill-sequenced
// events are logged and dropped.
func (e *Engine) HandleEvent(event model.Event) {
	e.eventCount++
	e.wasReset = false
	if e.metrics != nil {
		e.metrics.EventsHandled.Inc()
	}

	switch evt := event.(type) {
	case model.OrderCancelReject:
		e.handleCancelReject(evt)
	case model.AccountStateEvent:
		e.handleAccountState(evt)
	case model.PositionOpened:
		e.portfolio.HandlePositionEvent(evt)
		e.deliverToStrategy(evt.StrategyID, evt)
	case model.PositionModified:
		e.portfolio.HandlePositionEvent(evt)
		e.deliverToStrategy(evt.StrategyID, evt)
	case model.PositionClosed:
		e.portfolio.HandlePositionEvent(evt)
		e.deliverToStrategy(evt.StrategyID, evt)
	case model.OrderEvent:
		e.handleOrderEvent(evt)
	default:
		e.drop("unrecognized event", "event", fmt.Sprintf("%T", event))
	}
}

// handleCancelReject delivers the reject to the owning strategy without
// touching the order state machine.
func (e *Engine) handleCancelReject(event model.OrderCancelReject) {
	strategyID, ok := e.db.GetStrategyForOrder(event.OrderID)
	if !ok {
		e.drop("cancel reject for unknown order", "order_id", string(event.OrderID))
		return
	}
	e.deliverToStrategy(strategyID, event)
}

func (e *Engine) handleOrderEvent(event model.OrderEvent) {
	order, ok := e.db.GetOrder(event.EventOrderID())
	if !ok {
		e.drop("event for unknown order", "order_id", string(event.EventOrderID()), "event", event.Kind().String())
		return
	}

	if err := order.Apply(event); err != nil {
		if errors.Is(err, apperrors.ErrInvalidStateTrigger) {
			e.drop("invalid state trigger", "order_id", string(order.ID), "event", event.Kind().String(), "state", order.State().String())
			return
		}
		e.drop("cannot apply order event", "order_id", string(order.ID), "error", err.Error())
		return
	}

	if err := e.db.UpdateOrder(order); err != nil {
		e.drop("cannot persist order", "order_id", string(order.ID), "error", err.Error())
		return
	}

	if strategyID, ok := e.db.GetStrategyForOrder(order.ID); ok {
		e.deliverToStrategy(strategyID, event)
	}

	if fill, ok := event.(model.OrderFillEvent); ok {
		e.handleFill(fill)
	}
}

// handleFill resolves the position for a fill and emits the derived position
// event through HandleEvent so strategies receive it uniformly.
func (e *Engine) handleFill(fill model.OrderFillEvent) {
	positionID, ok := e.db.GetPositionID(fill.EventOrderID())
	if !ok {
		positionID, ok = e.db.GetPositionIDForBroker(fill.FillPositionIDBroker())
	}
	if !ok {
		e.drop("fill with unresolvable position id", "order_id", string(fill.EventOrderID()))
		return
	}

	strategyID, ok := e.db.GetStrategyForPosition(positionID)
	if !ok {
		strategyID, ok = e.db.GetStrategyForOrder(fill.EventOrderID())
	}
	if !ok {
		e.drop("fill with unresolvable strategy", "order_id", string(fill.EventOrderID()), "position_id", string(positionID))
		return
	}

	position, exists := e.db.GetPosition(positionID)
	if !exists {
		position = model.NewPosition(positionID, fill)
		if err := e.db.AddPosition(position, strategyID); err != nil {
			e.drop("cannot store position", "position_id", string(positionID), "error", err.Error())
			return
		}
		e.HandleEvent(model.PositionOpened{
			Position:   position,
			StrategyID: strategyID,
			Fill:       fill,
			EventMeta:  model.EventMeta{ID: e.uuidFactory.Generate(), Timestamp: fill.FillTime()},
		})
		return
	}

	position.Apply(fill)
	if err := e.db.UpdatePosition(position); err != nil {
		e.drop("cannot persist position", "position_id", string(positionID), "error", err.Error())
		return
	}
	meta := model.EventMeta{ID: e.uuidFactory.Generate(), Timestamp: fill.FillTime()}
	if position.IsClosed() {
		e.HandleEvent(model.PositionClosed{Position: position, StrategyID: strategyID, Fill: fill, EventMeta: meta})
	} else {
		e.HandleEvent(model.PositionModified{Position: position, StrategyID: strategyID, Fill: fill, EventMeta: meta})
	}
}

func (e *Engine) handleAccountState(event model.AccountStateEvent) {
	if e.account == nil {
		if event.AccountID != e.accountID {
			e.logger.Warn("account event for unknown account dropped",
				"account_id", string(event.AccountID), "expected", string(e.accountID))
			return
		}
		account, err := model.NewAccount(event)
		if err != nil {
			e.drop("cannot create account", "account_id", string(event.AccountID), "error", err.Error())
			return
		}
		if err := e.db.AddAccount(account); err != nil {
			e.drop("cannot store account", "account_id", string(event.AccountID), "error", err.Error())
			return
		}
		e.account = account
		e.portfolio.SetBaseCurrency(event.Currency)
		return
	}

	if event.AccountID == e.account.ID {
		e.account.Apply(event)
		if err := e.db.UpdateAccount(e.account); err != nil {
			e.drop("cannot persist account", "account_id", string(event.AccountID), "error", err.Error())
		}
		return
	}

	e.logger.Warn("account event for unknown account dropped", "account_id", string(event.AccountID))
}

func (e *Engine) deliverToStrategy(strategyID model.StrategyID, event model.Event) {
	strategy, ok := e.strategies[strategyID]
	if !ok {
		e.logger.Warn("event for unregistered strategy dropped", "strategy_id", string(strategyID))
		return
	}
	strategy.HandleEvent(event)
}

func (e *Engine) drop(msg string, fields ...interface{}) {
	if e.metrics != nil {
		e.metrics.EventsDropped.Inc()
	}
	e.logger.Error(msg, fields...)
}

// CheckResiduals reports still-working orders and still-open positions.
func (e *Engine) CheckResiduals() {
	e.db.CheckResiduals()
}

// Reset clears counters, account and database cache. A repeated reset with
// nothing in between is a no-op.
func (e *Engine) Reset() {
	if e.wasReset {
		e.logger.Debug("engine already reset")
		return
	}
	e.commandCount = 0
	e.eventCount = 0
	e.account = nil
	e.db.Reset()
	e.portfolio.Reset()
	e.wasReset = true
}

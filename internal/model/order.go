package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradesim/pkg/apperrors"
)

type orderTransition struct {
	from OrderState
	kind OrderEventKind
}

// orderTransitions is the full state machine. Any (state, event) pair absent
// from this table fails with ErrInvalidStateTrigger, except the duplicate
// REJECTED -> REJECTED case handled in Apply.
var orderTransitions = map[orderTransition]OrderState{
	{OrderStateInitialized, KindOrderInvalid}:   OrderStateInvalid,
	{OrderStateInitialized, KindOrderDenied}:    OrderStateDenied,
	{OrderStateInitialized, KindOrderCancelled}: OrderStateCancelled,
	{OrderStateInitialized, KindOrderSubmitted}: OrderStateSubmitted,

	{OrderStateSubmitted, KindOrderRejected}:  OrderStateRejected,
	{OrderStateSubmitted, KindOrderAccepted}:  OrderStateAccepted,
	{OrderStateSubmitted, KindOrderWorking}:   OrderStateWorking,
	{OrderStateSubmitted, KindOrderCancelled}: OrderStateCancelled,

	{OrderStateAccepted, KindOrderWorking}:         OrderStateWorking,
	{OrderStateAccepted, KindOrderCancelled}:       OrderStateCancelled,
	{OrderStateAccepted, KindOrderPartiallyFilled}: OrderStatePartiallyFilled,
	{OrderStateAccepted, KindOrderFilled}:          OrderStateFilled,

	{OrderStateWorking, KindOrderModified}:        OrderStateWorking,
	{OrderStateWorking, KindOrderCancelled}:       OrderStateCancelled,
	{OrderStateWorking, KindOrderExpired}:         OrderStateExpired,
	{OrderStateWorking, KindOrderPartiallyFilled}: OrderStatePartiallyFilled,
	{OrderStateWorking, KindOrderFilled}:          OrderStateFilled,

	{OrderStatePartiallyFilled, KindOrderPartiallyFilled}: OrderStatePartiallyFilled,
	{OrderStatePartiallyFilled, KindOrderFilled}:          OrderStateFilled,
	{OrderStatePartiallyFilled, KindOrderCancelled}:       OrderStatePartiallyFilled,
}

// Order is a single order with immutable identifying attributes and a mutable
// state machine driven by applied events. The order owns its event log.
type Order struct {
	ID          OrderID
	Symbol      Symbol
	Side        OrderSide
	OrderType   OrderType
	Quantity    Quantity
	TimeInForce TimeInForce
	Price       *Price     // passive orders only
	ExpireTime  *time.Time // present iff TimeInForce is GTD
	InitID      uuid.UUID
	Timestamp   time.Time

	state            OrderState
	idBroker         OrderIDBroker
	accountID        AccountID
	positionIDBroker PositionIDBroker
	executionIDs     []ExecutionID
	filledQuantity   Quantity
	filledTimestamp  *time.Time
	averagePrice     *Price
	slippage         Decimal64
	events           []OrderEvent
}

// NewMarketOrder creates a MARKET order. Market orders carry no price and the
// time in force must be DAY, IOC or FOC.
func NewMarketOrder(
	id OrderID,
	symbol Symbol,
	side OrderSide,
	quantity Quantity,
	timeInForce TimeInForce,
	initID uuid.UUID,
	timestamp time.Time,
) (*Order, error) {
	switch timeInForce {
	case DAY, IOC, FOC:
	default:
		return nil, apperrors.Invalid("market orders cannot have time in force %s", timeInForce)
	}
	return newOrder(id, symbol, side, Market, quantity, timeInForce, nil, nil, initID, timestamp)
}

// NewLimitOrder creates a LIMIT order resting at the given price.
func NewLimitOrder(
	id OrderID,
	symbol Symbol,
	side OrderSide,
	quantity Quantity,
	price Price,
	timeInForce TimeInForce,
	expireTime *time.Time,
	initID uuid.UUID,
	timestamp time.Time,
) (*Order, error) {
	return newOrder(id, symbol, side, Limit, quantity, timeInForce, &price, expireTime, initID, timestamp)
}

// NewStopOrder creates a STOP order triggering at the given price.
func NewStopOrder(
	id OrderID,
	symbol Symbol,
	side OrderSide,
	quantity Quantity,
	price Price,
	timeInForce TimeInForce,
	expireTime *time.Time,
	initID uuid.UUID,
	timestamp time.Time,
) (*Order, error) {
	return newOrder(id, symbol, side, Stop, quantity, timeInForce, &price, expireTime, initID, timestamp)
}

func newOrder(
	id OrderID,
	symbol Symbol,
	side OrderSide,
	orderType OrderType,
	quantity Quantity,
	timeInForce TimeInForce,
	price *Price,
	expireTime *time.Time,
	initID uuid.UUID,
	timestamp time.Time,
) (*Order, error) {
	if err := apperrors.NotEmpty(string(id), "order id"); err != nil {
		return nil, err
	}
	if side == OrderSideUndefined {
		return nil, apperrors.Invalid("order side is undefined")
	}
	if timeInForce == TimeInForceUndefined {
		return nil, apperrors.Invalid("order time in force is undefined")
	}
	if !quantity.Dec().IsPositive() {
		return nil, apperrors.Invalid("order quantity must be positive (was %s)", quantity)
	}
	if timeInForce == GTD && expireTime == nil {
		return nil, apperrors.Invalid("GTD orders require an expire time")
	}
	if timeInForce != GTD && expireTime != nil {
		return nil, apperrors.Invalid("%s orders cannot have an expire time", timeInForce)
	}
	if orderType.IsPassive() && price == nil {
		return nil, apperrors.Invalid("%s orders require a price", orderType)
	}
	if !orderType.IsPassive() && price != nil {
		return nil, apperrors.Invalid("%s orders cannot have a price", orderType)
	}
	return &Order{
		ID:             id,
		Symbol:         symbol,
		Side:           side,
		OrderType:      orderType,
		Quantity:       quantity,
		TimeInForce:    timeInForce,
		Price:          price,
		ExpireTime:     expireTime,
		InitID:         initID,
		Timestamp:      timestamp,
		state:          OrderStateInitialized,
		filledQuantity: QuantityZero(),
	}, nil
}

func (o *Order) State() OrderState                  { return o.state }
func (o *Order) IDBroker() OrderIDBroker            { return o.idBroker }
func (o *Order) AccountID() AccountID               { return o.accountID }
func (o *Order) PositionIDBroker() PositionIDBroker { return o.positionIDBroker }
func (o *Order) FilledQuantity() Quantity           { return o.filledQuantity }
func (o *Order) FilledTimestamp() *time.Time        { return o.filledTimestamp }
func (o *Order) AveragePrice() *Price               { return o.averagePrice }
func (o *Order) Slippage() Decimal64                { return o.slippage }
func (o *Order) Events() []OrderEvent               { return o.events }
func (o *Order) EventCount() int                    { return len(o.events) }

// ExecutionIDs returns the execution ids collected from fills, oldest first.
func (o *Order) ExecutionIDs() []ExecutionID { return o.executionIDs }

// LastExecutionID returns the most recent execution id, if any.
func (o *Order) LastExecutionID() (ExecutionID, bool) {
	if len(o.executionIDs) == 0 {
		return "", false
	}
	return o.executionIDs[len(o.executionIDs)-1], true
}

// LeavesQuantity returns the remaining unfilled quantity.
func (o *Order) LeavesQuantity() Quantity {
	leaves, err := o.Quantity.SubQty(o.filledQuantity)
	if err != nil {
		return QuantityZero()
	}
	return leaves
}

// IsWorking reports whether the order is resting on the venue.
func (o *Order) IsWorking() bool {
	return o.state == OrderStateWorking
}

// IsCompleted reports whether the order reached a terminal state.
func (o *Order) IsCompleted() bool {
	return o.state.IsCompleted()
}

func (o *Order) String() string {
	if o.Price != nil {
		return fmt.Sprintf("Order(%s %s %s %s @ %s %s)", o.ID, o.Side, o.Quantity, o.Symbol, *o.Price, o.TimeInForce)
	}
	return fmt.Sprintf("Order(%s %s %s %s %s %s)", o.ID, o.Side, o.Quantity, o.Symbol, o.OrderType, o.TimeInForce)
}

// Apply drives the state machine with the given event. The event is appended
// to the order's history, the state updated, and mutable fields set per the
// event semantics. A duplicate reject is the only idempotent application;
// every other unmatched (state, event) pair fails with ErrInvalidStateTrigger
// and leaves the order untouched.
func (o *Order) Apply(event OrderEvent) error {
	if event.EventOrderID() != o.ID {
		return apperrors.Invalid("event order id %s does not match order %s", event.EventOrderID(), o.ID)
	}
	kind := event.Kind()
	if kind == KindOrderCancelReject {
		return fmt.Errorf("%w: %s in state %s", apperrors.ErrInvalidStateTrigger, kind, o.state)
	}

	next, ok := orderTransitions[orderTransition{o.state, kind}]
	if !ok {
		if o.state == OrderStateRejected && kind == KindOrderRejected {
			// Duplicate reject from the venue. Record it, state unchanged.
			o.events = append(o.events, event)
			return nil
		}
		return fmt.Errorf("%w: %s in state %s", apperrors.ErrInvalidStateTrigger, kind, o.state)
	}

	switch evt := event.(type) {
	case OrderSubmitted:
		o.accountID = evt.AccountID
	case OrderAccepted:
		o.accountID = evt.AccountID
	case OrderWorking:
		o.idBroker = evt.OrderIDBroker
	case OrderModified:
		o.idBroker = evt.OrderIDBroker
		o.Quantity = evt.ModifiedQuantity
		if o.Price != nil {
			price := evt.ModifiedPrice
			o.Price = &price
		}
	case OrderPartiallyFilled:
		if err := o.applyFill(evt); err != nil {
			return err
		}
	case OrderFilled:
		if err := o.applyFill(evt); err != nil {
			return err
		}
	}

	o.events = append(o.events, event)
	o.state = next
	return nil
}

func (o *Order) applyFill(fill OrderFillEvent) error {
	filled := o.filledQuantity.AddQty(fill.FillQuantity())
	if filled.Cmp(o.Quantity.Decimal64) > 0 {
		return apperrors.Invalid("filled quantity %s exceeds order quantity %s", filled, o.Quantity)
	}
	o.filledQuantity = filled
	o.positionIDBroker = fill.FillPositionIDBroker()
	o.executionIDs = append(o.executionIDs, fill.FillExecutionID())
	avg := fill.FillAveragePrice()
	o.averagePrice = &avg
	ts := fill.FillTime()
	o.filledTimestamp = &ts
	o.setSlippage()
	return nil
}

// setSlippage computes signed slippage at the average-price precision:
// (avg - price) for buys, negated for sells. Market orders have none.
func (o *Order) setSlippage() {
	if o.Price == nil || o.averagePrice == nil {
		return
	}
	diff := o.averagePrice.Decimal64.Sub(o.Price.Decimal64)
	if o.Side == Sell {
		diff = Decimal64{value: diff.value.Neg(), precision: diff.precision}
	}
	o.slippage = Decimal64{value: diff.value, precision: o.averagePrice.Precision()}
}

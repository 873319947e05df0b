package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is the common surface of everything dispatched through the execution
// engine.
type Event interface {
	EventID() uuid.UUID
	EventTimestamp() time.Time
}

// EventMeta carries the identity attached to every event.
type EventMeta struct {
	ID        uuid.UUID
	Timestamp time.Time
}

// NewEventMeta creates event metadata with a fresh id.
func NewEventMeta(timestamp time.Time) EventMeta {
	return EventMeta{ID: uuid.New(), Timestamp: timestamp}
}

func (m EventMeta) EventID() uuid.UUID        { return m.ID }
func (m EventMeta) EventTimestamp() time.Time { return m.Timestamp }

// OrderEventKind tags an order event variant for state machine dispatch.
type OrderEventKind uint8

const (
	KindOrderInvalid OrderEventKind = iota
	KindOrderDenied
	KindOrderSubmitted
	KindOrderAccepted
	KindOrderRejected
	KindOrderWorking
	KindOrderCancelled
	KindOrderCancelReject
	KindOrderExpired
	KindOrderModified
	KindOrderPartiallyFilled
	KindOrderFilled
)

func (k OrderEventKind) String() string {
	switch k {
	case KindOrderInvalid:
		return "OrderInvalid"
	case KindOrderDenied:
		return "OrderDenied"
	case KindOrderSubmitted:
		return "OrderSubmitted"
	case KindOrderAccepted:
		return "OrderAccepted"
	case KindOrderRejected:
		return "OrderRejected"
	case KindOrderWorking:
		return "OrderWorking"
	case KindOrderCancelled:
		return "OrderCancelled"
	case KindOrderCancelReject:
		return "OrderCancelReject"
	case KindOrderExpired:
		return "OrderExpired"
	case KindOrderModified:
		return "OrderModified"
	case KindOrderPartiallyFilled:
		return "OrderPartiallyFilled"
	case KindOrderFilled:
		return "OrderFilled"
	default:
		return "Unknown"
	}
}

// OrderEvent is implemented by all order lifecycle events.
type OrderEvent interface {
	Event
	EventOrderID() OrderID
	Kind() OrderEventKind
}

// OrderInvalid marks an order that failed pre-submission validation.
type OrderInvalid struct {
	OrderID       OrderID
	InvalidReason string
	EventMeta
}

func (e OrderInvalid) EventOrderID() OrderID { return e.OrderID }
func (e OrderInvalid) Kind() OrderEventKind  { return KindOrderInvalid }

// OrderDenied marks an order denied by pre-trade risk.
type OrderDenied struct {
	OrderID      OrderID
	DeniedReason string
	EventMeta
}

func (e OrderDenied) EventOrderID() OrderID { return e.OrderID }
func (e OrderDenied) Kind() OrderEventKind  { return KindOrderDenied }

// OrderSubmitted marks an order sent to the venue.
type OrderSubmitted struct {
	AccountID     AccountID
	OrderID       OrderID
	SubmittedTime time.Time
	EventMeta
}

func (e OrderSubmitted) EventOrderID() OrderID { return e.OrderID }
func (e OrderSubmitted) Kind() OrderEventKind  { return KindOrderSubmitted }

// OrderAccepted marks an order acknowledged by the venue.
type OrderAccepted struct {
	AccountID    AccountID
	OrderID      OrderID
	AcceptedTime time.Time
	EventMeta
}

func (e OrderAccepted) EventOrderID() OrderID { return e.OrderID }
func (e OrderAccepted) Kind() OrderEventKind  { return KindOrderAccepted }

// OrderRejected marks an order rejected by the venue.
type OrderRejected struct {
	AccountID      AccountID
	OrderID        OrderID
	RejectedTime   time.Time
	RejectedReason string
	EventMeta
}

func (e OrderRejected) EventOrderID() OrderID { return e.OrderID }
func (e OrderRejected) Kind() OrderEventKind  { return KindOrderRejected }

// OrderWorking marks an order resting on the venue, eligible to fill.
type OrderWorking struct {
	AccountID     AccountID
	OrderID       OrderID
	OrderIDBroker OrderIDBroker
	Symbol        Symbol
	Side          OrderSide
	OrderType     OrderType
	Quantity      Quantity
	Price         Price
	TimeInForce   TimeInForce
	ExpireTime    *time.Time
	WorkingTime   time.Time
	EventMeta
}

func (e OrderWorking) EventOrderID() OrderID { return e.OrderID }
func (e OrderWorking) Kind() OrderEventKind  { return KindOrderWorking }

// OrderCancelled marks an order cancelled at the venue.
type OrderCancelled struct {
	AccountID     AccountID
	OrderID       OrderID
	CancelledTime time.Time
	EventMeta
}

func (e OrderCancelled) EventOrderID() OrderID { return e.OrderID }
func (e OrderCancelled) Kind() OrderEventKind  { return KindOrderCancelled }

// OrderCancelReject marks a cancel or modify request the venue refused. It
// never mutates the order state machine.
type OrderCancelReject struct {
	AccountID          AccountID
	OrderID            OrderID
	RejectedTime       time.Time
	RejectedResponseTo string
	RejectedReason     string
	EventMeta
}

func (e OrderCancelReject) EventOrderID() OrderID { return e.OrderID }
func (e OrderCancelReject) Kind() OrderEventKind  { return KindOrderCancelReject }

// OrderExpired marks a GTD order whose expire time passed.
type OrderExpired struct {
	AccountID   AccountID
	OrderID     OrderID
	ExpiredTime time.Time
	EventMeta
}

func (e OrderExpired) EventOrderID() OrderID { return e.OrderID }
func (e OrderExpired) Kind() OrderEventKind  { return KindOrderExpired }

// OrderModified marks a working order whose price or quantity changed.
type OrderModified struct {
	AccountID        AccountID
	OrderID          OrderID
	OrderIDBroker    OrderIDBroker
	ModifiedQuantity Quantity
	ModifiedPrice    Price
	ModifiedTime     time.Time
	EventMeta
}

func (e OrderModified) EventOrderID() OrderID { return e.OrderID }
func (e OrderModified) Kind() OrderEventKind  { return KindOrderModified }

// OrderPartiallyFilled marks a partial execution.
type OrderPartiallyFilled struct {
	AccountID        AccountID
	OrderID          OrderID
	ExecutionID      ExecutionID
	PositionIDBroker PositionIDBroker
	Symbol           Symbol
	Side             OrderSide
	FilledQuantity   Quantity
	LeavesQuantity   Quantity
	AveragePrice     Price
	Currency         Currency
	ExecutionTime    time.Time
	EventMeta
}

func (e OrderPartiallyFilled) EventOrderID() OrderID { return e.OrderID }
func (e OrderPartiallyFilled) Kind() OrderEventKind  { return KindOrderPartiallyFilled }

// OrderFilled marks a complete execution.
type OrderFilled struct {
	AccountID        AccountID
	OrderID          OrderID
	ExecutionID      ExecutionID
	PositionIDBroker PositionIDBroker
	Symbol           Symbol
	Side             OrderSide
	FilledQuantity   Quantity
	AveragePrice     Price
	Currency         Currency
	ExecutionTime    time.Time
	EventMeta
}

func (e OrderFilled) EventOrderID() OrderID { return e.OrderID }
func (e OrderFilled) Kind() OrderEventKind  { return KindOrderFilled }

// OrderFillEvent is the shared view of OrderFilled and OrderPartiallyFilled
// consumed by the position aggregator.
type OrderFillEvent interface {
	OrderEvent
	FillAccountID() AccountID
	FillExecutionID() ExecutionID
	FillPositionIDBroker() PositionIDBroker
	FillSymbol() Symbol
	FillSide() OrderSide
	FillQuantity() Quantity
	FillAveragePrice() Price
	FillCurrency() Currency
	FillTime() time.Time
}

func (e OrderFilled) FillAccountID() AccountID               { return e.AccountID }
func (e OrderFilled) FillExecutionID() ExecutionID           { return e.ExecutionID }
func (e OrderFilled) FillPositionIDBroker() PositionIDBroker { return e.PositionIDBroker }
func (e OrderFilled) FillSymbol() Symbol                     { return e.Symbol }
func (e OrderFilled) FillSide() OrderSide                    { return e.Side }
func (e OrderFilled) FillQuantity() Quantity                 { return e.FilledQuantity }
func (e OrderFilled) FillAveragePrice() Price                { return e.AveragePrice }
func (e OrderFilled) FillCurrency() Currency                 { return e.Currency }
func (e OrderFilled) FillTime() time.Time                    { return e.ExecutionTime }

func (e OrderPartiallyFilled) FillAccountID() AccountID               { return e.AccountID }
func (e OrderPartiallyFilled) FillExecutionID() ExecutionID           { return e.ExecutionID }
func (e OrderPartiallyFilled) FillPositionIDBroker() PositionIDBroker { return e.PositionIDBroker }
func (e OrderPartiallyFilled) FillSymbol() Symbol                     { return e.Symbol }
func (e OrderPartiallyFilled) FillSide() OrderSide                    { return e.Side }
func (e OrderPartiallyFilled) FillQuantity() Quantity                 { return e.FilledQuantity }
func (e OrderPartiallyFilled) FillAveragePrice() Price                { return e.AveragePrice }
func (e OrderPartiallyFilled) FillCurrency() Currency                 { return e.Currency }
func (e OrderPartiallyFilled) FillTime() time.Time                    { return e.ExecutionTime }

// AccountStateEvent reports account balances and margin.
type AccountStateEvent struct {
	AccountID             AccountID
	Currency              Currency
	CashBalance           Money
	CashStartDay          Money
	CashActivityDay       Money
	MarginUsedLiquidation Money
	MarginUsedMaintenance Money
	MarginRatio           Decimal64
	MarginCallStatus      string
	EventMeta
}

// PositionOpened is derived by the engine from the first fill on a fresh
// position id.
type PositionOpened struct {
	Position   *Position
	StrategyID StrategyID
	Fill       OrderFillEvent
	EventMeta
}

// PositionModified is derived by the engine from a fill that changed an open
// position without closing it.
type PositionModified struct {
	Position   *Position
	StrategyID StrategyID
	Fill       OrderFillEvent
	EventMeta
}

// PositionClosed is derived by the engine from the fill that returned a
// position's net quantity to zero.
type PositionClosed struct {
	Position   *Position
	StrategyID StrategyID
	Fill       OrderFillEvent
	EventMeta
}

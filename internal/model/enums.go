package model

import "tradesim/pkg/apperrors"

// OrderSide is the direction of an order.
type OrderSide uint8

const (
	OrderSideUndefined OrderSide = iota
	Buy
	Sell
)

func (s OrderSide) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNDEFINED"
	}
}

// ParseOrderSide parses the upper-snake form produced by String.
func ParseOrderSide(s string) (OrderSide, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return OrderSideUndefined, apperrors.Invalid("unknown order side %q", s)
	}
}

// OrderType is the execution style of an order.
type OrderType uint8

const (
	OrderTypeUndefined OrderType = iota
	Market
	Limit
	Stop
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case Stop:
		return "STOP"
	default:
		return "UNDEFINED"
	}
}

// ParseOrderType parses the upper-snake form produced by String.
func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "MARKET":
		return Market, nil
	case "LIMIT":
		return Limit, nil
	case "STOP":
		return Stop, nil
	default:
		return OrderTypeUndefined, apperrors.Invalid("unknown order type %q", s)
	}
}

// IsPassive reports whether orders of this type rest at a price.
func (t OrderType) IsPassive() bool {
	return t == Limit || t == Stop
}

// TimeInForce controls how long an order stays eligible to fill.
type TimeInForce uint8

const (
	TimeInForceUndefined TimeInForce = iota
	DAY
	GTC
	IOC
	FOC
	GTD
)

func (t TimeInForce) String() string {
	switch t {
	case DAY:
		return "DAY"
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOC:
		return "FOC"
	case GTD:
		return "GTD"
	default:
		return "UNDEFINED"
	}
}

// ParseTimeInForce parses the upper-snake form produced by String.
func ParseTimeInForce(s string) (TimeInForce, error) {
	switch s {
	case "DAY":
		return DAY, nil
	case "GTC":
		return GTC, nil
	case "IOC":
		return IOC, nil
	case "FOC":
		return FOC, nil
	case "GTD":
		return GTD, nil
	default:
		return TimeInForceUndefined, apperrors.Invalid("unknown time in force %q", s)
	}
}

// OrderState is a state of the order lifecycle machine.
type OrderState uint8

const (
	OrderStateInitialized OrderState = iota
	OrderStateInvalid
	OrderStateDenied
	OrderStateSubmitted
	OrderStateAccepted
	OrderStateRejected
	OrderStateWorking
	OrderStateCancelled
	OrderStateExpired
	OrderStatePartiallyFilled
	OrderStateFilled
)

func (s OrderState) String() string {
	switch s {
	case OrderStateInitialized:
		return "INITIALIZED"
	case OrderStateInvalid:
		return "INVALID"
	case OrderStateDenied:
		return "DENIED"
	case OrderStateSubmitted:
		return "SUBMITTED"
	case OrderStateAccepted:
		return "ACCEPTED"
	case OrderStateRejected:
		return "REJECTED"
	case OrderStateWorking:
		return "WORKING"
	case OrderStateCancelled:
		return "CANCELLED"
	case OrderStateExpired:
		return "EXPIRED"
	case OrderStatePartiallyFilled:
		return "PARTIALLY_FILLED"
	case OrderStateFilled:
		return "FILLED"
	default:
		return "UNDEFINED"
	}
}

// IsCompleted reports whether the state is terminal.
func (s OrderState) IsCompleted() bool {
	switch s {
	case OrderStateInvalid, OrderStateDenied, OrderStateRejected, OrderStateCancelled, OrderStateExpired, OrderStateFilled:
		return true
	default:
		return false
	}
}

// MarketPosition is the direction of net inventory.
type MarketPosition uint8

const (
	Flat MarketPosition = iota
	Long
	Short
)

func (p MarketPosition) String() string {
	switch p {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Shared fixtures for model tests.

var unixEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func audusd() Symbol {
	symbol, _ := NewSymbol("AUDUSD", "FXCM")
	return symbol
}

func gbpusd() Symbol {
	symbol, _ := NewSymbol("GBPUSD", "FXCM")
	return symbol
}

func qty(s string) Quantity {
	quantity, err := NewQuantityFromString(s)
	if err != nil {
		panic(err)
	}
	return quantity
}

func price(s string) Price {
	p, err := NewPriceFromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

func testAccount() AccountID {
	return AccountID("FXCM-02851908")
}

func marketOrder(id string, side OrderSide, quantity Quantity) *Order {
	order, err := NewMarketOrder(OrderID(id), audusd(), side, quantity, DAY, uuid.New(), unixEpoch)
	if err != nil {
		panic(err)
	}
	return order
}

func limitOrder(id string, side OrderSide, quantity Quantity, p Price) *Order {
	order, err := NewLimitOrder(OrderID(id), audusd(), side, quantity, p, GTC, nil, uuid.New(), unixEpoch)
	if err != nil {
		panic(err)
	}
	return order
}

func eventSubmitted(order *Order) OrderSubmitted {
	return OrderSubmitted{
		AccountID:     testAccount(),
		OrderID:       order.ID,
		SubmittedTime: unixEpoch,
		EventMeta:     NewEventMeta(unixEpoch),
	}
}

func eventAccepted(order *Order) OrderAccepted {
	return OrderAccepted{
		AccountID:    testAccount(),
		OrderID:      order.ID,
		AcceptedTime: unixEpoch,
		EventMeta:    NewEventMeta(unixEpoch),
	}
}

func eventWorking(order *Order) OrderWorking {
	p := price("1.00000")
	if order.Price != nil {
		p = *order.Price
	}
	return OrderWorking{
		AccountID:     testAccount(),
		OrderID:       order.ID,
		OrderIDBroker: OrderIDBroker("B-" + string(order.ID)),
		Symbol:        order.Symbol,
		Side:          order.Side,
		OrderType:     order.OrderType,
		Quantity:      order.Quantity,
		Price:         p,
		TimeInForce:   order.TimeInForce,
		ExpireTime:    order.ExpireTime,
		WorkingTime:   unixEpoch,
		EventMeta:     NewEventMeta(unixEpoch),
	}
}

func eventFilled(order *Order, fillPrice Price) OrderFilled {
	return OrderFilled{
		AccountID:        testAccount(),
		OrderID:          order.ID,
		ExecutionID:      ExecutionID("E-" + string(order.ID)),
		PositionIDBroker: PositionIDBroker("T-" + string(order.ID)),
		Symbol:           order.Symbol,
		Side:             order.Side,
		FilledQuantity:   order.Quantity,
		AveragePrice:     fillPrice,
		Currency:         USD,
		ExecutionTime:    unixEpoch,
		EventMeta:        NewEventMeta(unixEpoch),
	}
}

func eventFilledQty(order *Order, side OrderSide, quantity Quantity, fillPrice Price) OrderFilled {
	return OrderFilled{
		AccountID:        testAccount(),
		OrderID:          order.ID,
		ExecutionID:      ExecutionID("E-" + string(order.ID)),
		PositionIDBroker: PositionIDBroker("T-" + string(order.ID)),
		Symbol:           order.Symbol,
		Side:             side,
		FilledQuantity:   quantity,
		AveragePrice:     fillPrice,
		Currency:         USD,
		ExecutionTime:    unixEpoch,
		EventMeta:        NewEventMeta(unixEpoch),
	}
}

func eventPartiallyFilled(order *Order, filled, leaves Quantity, fillPrice Price) OrderPartiallyFilled {
	return OrderPartiallyFilled{
		AccountID:        testAccount(),
		OrderID:          order.ID,
		ExecutionID:      ExecutionID("E-" + string(order.ID)),
		PositionIDBroker: PositionIDBroker("T-" + string(order.ID)),
		Symbol:           order.Symbol,
		Side:             order.Side,
		FilledQuantity:   filled,
		LeavesQuantity:   leaves,
		AveragePrice:     fillPrice,
		Currency:         USD,
		ExecutionTime:    unixEpoch,
		EventMeta:        NewEventMeta(unixEpoch),
	}
}

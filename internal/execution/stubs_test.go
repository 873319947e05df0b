package execution

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tradesim/internal/model"
)

// Shared fixtures for the execution package tests.

var stubEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func stubSymbol() model.Symbol {
	symbol, _ := model.NewSymbol("AUDUSD", "FXCM")
	return symbol
}

func mustQty(s string) model.Quantity {
	quantity, err := model.NewQuantityFromString(s)
	if err != nil {
		panic(err)
	}
	return quantity
}

func mustPrice(s string) model.Price {
	price, err := model.NewPriceFromString(s)
	if err != nil {
		panic(err)
	}
	return price
}

func stubMarketOrder(id string, side model.OrderSide, quantity string) *model.Order {
	order, err := model.NewMarketOrder(
		model.OrderID(id), stubSymbol(), side, mustQty(quantity), model.DAY, uuid.New(), stubEpoch)
	if err != nil {
		panic(err)
	}
	return order
}

func stubLimitOrder(id string, side model.OrderSide, quantity, price string) *model.Order {
	order, err := model.NewLimitOrder(
		model.OrderID(id), stubSymbol(), side, mustQty(quantity), mustPrice(price), model.GTC, nil, uuid.New(), stubEpoch)
	if err != nil {
		panic(err)
	}
	return order
}

func stubFill(order *model.Order, side model.OrderSide, quantity, price string) model.OrderFilled {
	return model.OrderFilled{
		AccountID:        model.AccountID("FXCM-02851908"),
		OrderID:          order.ID,
		ExecutionID:      model.ExecutionID("E-" + string(order.ID)),
		PositionIDBroker: model.PositionIDBroker("T-" + string(order.ID)),
		Symbol:           order.Symbol,
		Side:             side,
		FilledQuantity:   mustQty(quantity),
		AveragePrice:     mustPrice(price),
		Currency:         model.USD,
		ExecutionTime:    stubEpoch,
		EventMeta:        model.NewEventMeta(stubEpoch),
	}
}

func stubOpenPosition(id model.PositionID, order *model.Order) *model.Position {
	return model.NewPosition(id, stubFill(order, order.Side, order.Quantity.String(), "1.00000"))
}

func stubAccountState(id string) model.AccountStateEvent {
	balance, _ := model.NewMoneyFromString("100000.00", model.USD)
	ratio, _ := model.NewDecimal64FromString("0.00")
	return model.AccountStateEvent{
		AccountID:             model.AccountID(id),
		Currency:              model.USD,
		CashBalance:           balance,
		CashStartDay:          balance,
		CashActivityDay:       model.MoneyZero(model.USD),
		MarginUsedLiquidation: model.MoneyZero(model.USD),
		MarginUsedMaintenance: model.MoneyZero(model.USD),
		MarginRatio:           ratio,
		MarginCallStatus:      "NONE",
		EventMeta:             model.NewEventMeta(stubEpoch),
	}
}

func stubAccount(id string) *model.Account {
	account, err := model.NewAccount(stubAccountState(id))
	if err != nil {
		panic(err)
	}
	return account
}

func stubStopOrder(id string, side model.OrderSide, quantity, price string) *model.Order {
	order, err := model.NewStopOrder(
		model.OrderID(id), stubSymbol(), side, mustQty(quantity), mustPrice(price), model.GTC, nil, uuid.New(), stubEpoch)
	if err != nil {
		panic(err)
	}
	return order
}

func stubLimitTP(id string, side model.OrderSide, quantity, price string) *model.Order {
	return stubLimitOrder(id, side, quantity, price)
}

func stubSubmitted(order *model.Order) model.OrderSubmitted {
	return model.OrderSubmitted{
		AccountID:     model.AccountID("FXCM-02851908"),
		OrderID:       order.ID,
		SubmittedTime: stubEpoch,
		EventMeta:     model.NewEventMeta(stubEpoch),
	}
}

func stubAccepted(order *model.Order) model.OrderAccepted {
	return model.OrderAccepted{
		AccountID:    model.AccountID("FXCM-02851908"),
		OrderID:      order.ID,
		AcceptedTime: stubEpoch,
		EventMeta:    model.NewEventMeta(stubEpoch),
	}
}

func stubWorking(order *model.Order) model.OrderWorking {
	price := mustPrice("1.00000")
	if order.Price != nil {
		price = *order.Price
	}
	return model.OrderWorking{
		AccountID:     model.AccountID("FXCM-02851908"),
		OrderID:       order.ID,
		OrderIDBroker: model.OrderIDBroker("B-" + string(order.ID)),
		Symbol:        order.Symbol,
		Side:          order.Side,
		OrderType:     order.OrderType,
		Quantity:      order.Quantity,
		Price:         price,
		TimeInForce:   order.TimeInForce,
		ExpireTime:    order.ExpireTime,
		WorkingTime:   stubEpoch,
		EventMeta:     model.NewEventMeta(stubEpoch),
	}
}

func applyUntilWorking(t *testing.T, order *model.Order) {
	t.Helper()
	account := model.AccountID("FXCM-02851908")
	require.NoError(t, order.Apply(model.OrderSubmitted{
		AccountID: account, OrderID: order.ID, SubmittedTime: stubEpoch, EventMeta: model.NewEventMeta(stubEpoch)}))
	require.NoError(t, order.Apply(model.OrderAccepted{
		AccountID: account, OrderID: order.ID, AcceptedTime: stubEpoch, EventMeta: model.NewEventMeta(stubEpoch)}))
	price := mustPrice("1.00000")
	if order.Price != nil {
		price = *order.Price
	}
	require.NoError(t, order.Apply(model.OrderWorking{
		AccountID:     account,
		OrderID:       order.ID,
		OrderIDBroker: model.OrderIDBroker("B-" + string(order.ID)),
		Symbol:        order.Symbol,
		Side:          order.Side,
		OrderType:     order.OrderType,
		Quantity:      order.Quantity,
		Price:         price,
		TimeInForce:   order.TimeInForce,
		ExpireTime:    order.ExpireTime,
		WorkingTime:   stubEpoch,
		EventMeta:     model.NewEventMeta(stubEpoch),
	}))
}

func applyFilled(t *testing.T, order *model.Order, price string) {
	t.Helper()
	require.NoError(t, order.Apply(stubFill(order, order.Side, order.LeavesQuantity().String(), price)))
}

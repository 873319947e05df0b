package simulation

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/logging"
	"tradesim/internal/model"
	"tradesim/internal/serialization"
)

var (
	t0 = time.Date(2020, 1, 2, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Second)
	t2 = t0.Add(2 * time.Second)
	t3 = t0.Add(3 * time.Second)
)

const venueAccount = model.AccountID("SIM-001")

func simSymbol() model.Symbol {
	symbol, _ := model.NewSymbol("AUDUSD", "SIM")
	return symbol
}

func simQty(s string) model.Quantity {
	quantity, err := model.NewQuantityFromString(s)
	if err != nil {
		panic(err)
	}
	return quantity
}

func simPrice(s string) model.Price {
	price, err := model.NewPriceFromString(s)
	if err != nil {
		panic(err)
	}
	return price
}

func simTick(bidStr, askStr string, at time.Time) model.QuoteTick {
	return model.QuoteTick{
		Symbol:    simSymbol(),
		Bid:       simPrice(bidStr),
		Ask:       simPrice(askStr),
		BidSize:   simQty("1000000"),
		AskSize:   simQty("1000000"),
		Timestamp: at,
	}
}

func newTestVenue(t *testing.T, fillModel *FillModel) (*Venue, *[]model.Event) {
	t.Helper()
	venue, err := NewVenue(VenueConfig{
		Name:            "SIM",
		TraderID:        model.TraderID("TESTER-000"),
		AccountID:       venueAccount,
		Currency:        model.USD,
		StartingCapital: decimal.NewFromInt(100000),
	}, fillModel, model.NewDeterministicUUIDFactory(7), logging.NewTestLogger(), nil)
	require.NoError(t, err)

	events := &[]model.Event{}
	venue.RegisterEventHandler(func(event model.Event) {
		*events = append(*events, event)
	})
	return venue, events
}

func submitOrder(t *testing.T, venue *Venue, order *model.Order, at time.Time) {
	t.Helper()
	require.NoError(t, venue.SubmitOrder(&model.SubmitOrder{
		TraderID:    model.TraderID("TESTER-000"),
		AccountID:   venueAccount,
		StrategyID:  model.StrategyID("S-001"),
		PositionID:  model.PositionID("P-1"),
		Order:       order,
		CommandMeta: model.NewCommandMeta(at),
	}))
}

func kinds(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, event := range events {
		switch e := event.(type) {
		case model.OrderEvent:
			out = append(out, e.Kind().String())
		case model.AccountStateEvent:
			out = append(out, "AccountStateEvent")
		default:
			out = append(out, fmt.Sprintf("%T", event))
		}
	}
	return out
}

// Scenario: accepted limit order fills at its resting price.
func TestVenue_AcceptedLimitFill(t *testing.T) {
	venue, events := newTestVenue(t, NewDeterministicFillModel())

	venue.ProcessTick(simTick("1.2008", "1.2010", t0))

	order, err := model.NewLimitOrder(
		model.OrderID("O-1"), simSymbol(), model.Buy, simQty("100"), simPrice("1.2000"),
		model.GTC, nil, uuid.New(), t0)
	require.NoError(t, err)
	submitOrder(t, venue, order, t0)

	venue.ProcessTick(simTick("1.1998", "1.2000", t1))
	venue.ProcessTick(simTick("1.1993", "1.1995", t2))

	assert.Equal(t, []string{"OrderSubmitted", "OrderAccepted", "OrderWorking", "OrderFilled"}, kinds(*events))

	submitted := (*events)[0].(model.OrderSubmitted)
	assert.Equal(t, t0, submitted.SubmittedTime)

	working := (*events)[2].(model.OrderWorking)
	assert.Equal(t, t0, working.WorkingTime)

	filled := (*events)[3].(model.OrderFilled)
	assert.Equal(t, t1, filled.ExecutionTime)
	assert.Equal(t, "1.2000", filled.AveragePrice.String())
	assert.Equal(t, "100", filled.FilledQuantity.String())

	// Slippage on the order itself is zero at the limit price.
	require.NoError(t, order.Apply(submitted))
	require.NoError(t, order.Apply((*events)[1].(model.OrderAccepted)))
	require.NoError(t, order.Apply(working))
	require.NoError(t, order.Apply(filled))
	assert.True(t, order.Slippage().IsZero())
	assert.Equal(t, 0, venue.WorkingOrderCount())
}

// Scenario: partial fill then expiry of the GTD remainder.
func TestVenue_PartialFillThenExpiry(t *testing.T) {
	fillModel := NewDeterministicFillModel()
	fillModel.QueuePartialFill(simQty("40"))
	venue, events := newTestVenue(t, fillModel)

	venue.ProcessTick(simTick("1.2008", "1.2010", t0))

	expire := t2
	order, err := model.NewLimitOrder(
		model.OrderID("O-1"), simSymbol(), model.Buy, simQty("100"), simPrice("1.2000"),
		model.GTD, &expire, uuid.New(), t0)
	require.NoError(t, err)
	submitOrder(t, venue, order, t0)

	venue.ProcessTick(simTick("1.1998", "1.2000", t1))
	venue.ProcessTick(simTick("1.1998", "1.2000", t2))

	assert.Equal(t,
		[]string{"OrderSubmitted", "OrderAccepted", "OrderWorking", "OrderPartiallyFilled", "OrderExpired"},
		kinds(*events))

	partial := (*events)[3].(model.OrderPartiallyFilled)
	assert.Equal(t, "40", partial.FilledQuantity.String())
	assert.Equal(t, "60", partial.LeavesQuantity.String())
	assert.Equal(t, t1, partial.ExecutionTime)

	expired := (*events)[4].(model.OrderExpired)
	assert.Equal(t, t2, expired.ExpiredTime)
	assert.Equal(t, 0, venue.WorkingOrderCount())
}

// An order whose expire time precedes the first tick expires on that tick.
func TestVenue_ExpireTimeBeforeStartFiresOnFirstTick(t *testing.T) {
	venue, events := newTestVenue(t, NewDeterministicFillModel())

	expire := t0.Add(-time.Hour)
	order, err := model.NewLimitOrder(
		model.OrderID("O-1"), simSymbol(), model.Buy, simQty("100"), simPrice("1.0000"),
		model.GTD, &expire, uuid.New(), expire.Add(-time.Second))
	require.NoError(t, err)
	submitOrder(t, venue, order, expire.Add(-time.Second))

	venue.ProcessTick(simTick("1.2008", "1.2010", t0))

	assert.Equal(t, []string{"OrderSubmitted", "OrderAccepted", "OrderWorking", "OrderExpired"}, kinds(*events))
}

// Scenario: bracket flow; entry fills, take-profit fills, stop-loss OCO
// cancelled.
func TestVenue_BracketFlow(t *testing.T) {
	venue, events := newTestVenue(t, NewDeterministicFillModel())

	venue.ProcessTick(simTick("0.9999", "1.0000", t0))

	entry, err := model.NewMarketOrder(
		model.OrderID("O-1"), simSymbol(), model.Buy, simQty("10"), model.DAY, uuid.New(), t0)
	require.NoError(t, err)
	stopLoss, err := model.NewStopOrder(
		model.OrderID("O-2"), simSymbol(), model.Sell, simQty("10"), simPrice("0.9900"),
		model.GTC, nil, uuid.New(), t0)
	require.NoError(t, err)
	takeProfit, err := model.NewLimitOrder(
		model.OrderID("O-3"), simSymbol(), model.Sell, simQty("10"), simPrice("1.0500"),
		model.GTC, nil, uuid.New(), t0)
	require.NoError(t, err)
	bracket, err := model.NewBracketOrder(entry, stopLoss, takeProfit)
	require.NoError(t, err)

	require.NoError(t, venue.SubmitBracketOrder(&model.SubmitBracketOrder{
		TraderID:    model.TraderID("TESTER-000"),
		AccountID:   venueAccount,
		StrategyID:  model.StrategyID("S-001"),
		PositionID:  model.PositionID("P-1"),
		Bracket:     bracket,
		CommandMeta: model.NewCommandMeta(t0),
	}))

	// The entry filled at the ask on submission and both children are working;
	// this tick reaches the take-profit.
	venue.ProcessTick(simTick("1.0500", "1.0502", t1))

	var fills []model.OrderFilled
	var cancelled []model.OrderCancelled
	for _, event := range *events {
		switch e := event.(type) {
		case model.OrderFilled:
			fills = append(fills, e)
		case model.OrderCancelled:
			cancelled = append(cancelled, e)
		}
	}

	require.Len(t, fills, 2)
	assert.Equal(t, model.OrderID("O-1"), fills[0].OrderID)
	assert.Equal(t, "1.0000", fills[0].AveragePrice.String())
	assert.Equal(t, model.OrderID("O-3"), fills[1].OrderID)
	assert.Equal(t, "1.0500", fills[1].AveragePrice.String())

	require.Len(t, cancelled, 1)
	assert.Equal(t, model.OrderID("O-2"), cancelled[0].OrderID, "stop-loss OCO cancelled")
	assert.Equal(t, 0, venue.WorkingOrderCount())
}

// Scenario: modify while working, then fill at the new price and quantity.
func TestVenue_ModifyWhileWorking(t *testing.T) {
	venue, events := newTestVenue(t, NewDeterministicFillModel())

	venue.ProcessTick(simTick("1.2008", "1.2010", t0))

	order, err := model.NewLimitOrder(
		model.OrderID("O-1"), simSymbol(), model.Buy, simQty("10"), simPrice("1.20"),
		model.GTC, nil, uuid.New(), t0)
	require.NoError(t, err)
	submitOrder(t, venue, order, t0)

	require.NoError(t, venue.ModifyOrder(&model.ModifyOrder{
		TraderID:         model.TraderID("TESTER-000"),
		AccountID:        venueAccount,
		OrderID:          order.ID,
		ModifiedQuantity: simQty("8"),
		ModifiedPrice:    simPrice("1.19"),
		CommandMeta:      model.NewCommandMeta(t0),
	}))

	venue.ProcessTick(simTick("1.1888", "1.1900", t1))

	assert.Equal(t,
		[]string{"OrderSubmitted", "OrderAccepted", "OrderWorking", "OrderModified", "OrderFilled"},
		kinds(*events))

	modified := (*events)[3].(model.OrderModified)
	assert.Equal(t, "8", modified.ModifiedQuantity.String())
	assert.Equal(t, "1.19", modified.ModifiedPrice.String())

	filled := (*events)[4].(model.OrderFilled)
	assert.Equal(t, "8", filled.FilledQuantity.String())
	assert.Equal(t, "1.19", filled.AveragePrice.String())
}

func TestVenue_ModifyUnknownOrderRejects(t *testing.T) {
	venue, events := newTestVenue(t, NewDeterministicFillModel())
	venue.ProcessTick(simTick("1.2008", "1.2010", t0))

	require.NoError(t, venue.ModifyOrder(&model.ModifyOrder{
		TraderID:         model.TraderID("TESTER-000"),
		AccountID:        venueAccount,
		OrderID:          model.OrderID("O-404"),
		ModifiedQuantity: simQty("8"),
		ModifiedPrice:    simPrice("1.19"),
		CommandMeta:      model.NewCommandMeta(t0),
	}))

	require.Len(t, *events, 1)
	reject, ok := (*events)[0].(model.OrderCancelReject)
	require.True(t, ok)
	assert.Equal(t, "ModifyOrder", reject.RejectedResponseTo)
}

func TestVenue_CancelWorkingOrder(t *testing.T) {
	venue, events := newTestVenue(t, NewDeterministicFillModel())
	venue.ProcessTick(simTick("1.2008", "1.2010", t0))

	order, err := model.NewLimitOrder(
		model.OrderID("O-1"), simSymbol(), model.Buy, simQty("10"), simPrice("1.20"),
		model.GTC, nil, uuid.New(), t0)
	require.NoError(t, err)
	submitOrder(t, venue, order, t0)

	require.NoError(t, venue.CancelOrder(&model.CancelOrder{
		TraderID:     model.TraderID("TESTER-000"),
		AccountID:    venueAccount,
		OrderID:      order.ID,
		CancelReason: "strategy stopping",
		CommandMeta:  model.NewCommandMeta(t0),
	}))

	last := (*events)[len(*events)-1]
	_, ok := last.(model.OrderCancelled)
	assert.True(t, ok)
	assert.Equal(t, 0, venue.WorkingOrderCount())

	// A second cancel is rejected.
	require.NoError(t, venue.CancelOrder(&model.CancelOrder{
		TraderID:     model.TraderID("TESTER-000"),
		AccountID:    venueAccount,
		OrderID:      order.ID,
		CancelReason: "again",
		CommandMeta:  model.NewCommandMeta(t0),
	}))
	_, ok = (*events)[len(*events)-1].(model.OrderCancelReject)
	assert.True(t, ok)
}

func TestVenue_MarketOrderWithoutBookRejected(t *testing.T) {
	venue, events := newTestVenue(t, NewDeterministicFillModel())

	order, err := model.NewMarketOrder(
		model.OrderID("O-1"), simSymbol(), model.Buy, simQty("10"), model.DAY, uuid.New(), t0)
	require.NoError(t, err)
	submitOrder(t, venue, order, t0)

	assert.Equal(t, []string{"OrderSubmitted", "OrderRejected"}, kinds(*events))
}

func TestVenue_CommissionChargedPerFill(t *testing.T) {
	fillModel := NewDeterministicFillModel()
	venue, err := NewVenue(VenueConfig{
		TraderID:         model.TraderID("TESTER-000"),
		AccountID:        venueAccount,
		Currency:         model.USD,
		StartingCapital:  decimal.NewFromInt(100000),
		CommissionRateBp: decimal.NewFromInt(2),
	}, fillModel, model.NewDeterministicUUIDFactory(7), logging.NewTestLogger(), nil)
	require.NoError(t, err)
	var events []model.Event
	venue.RegisterEventHandler(func(event model.Event) { events = append(events, event) })

	venue.ProcessTick(simTick("0.9999", "1.0000", t0))
	order, err := model.NewMarketOrder(
		model.OrderID("O-1"), simSymbol(), model.Buy, simQty("100000"), model.DAY, uuid.New(), t0)
	require.NoError(t, err)
	submitOrder(t, venue, order, t0)

	// notional 100000 * 1.0000 at 2bp = 20.
	assert.Equal(t, "20", venue.CommissionAccrued().String())
	assert.Equal(t, "99980", venue.Balance().String())

	state, ok := events[len(events)-1].(model.AccountStateEvent)
	require.True(t, ok, "account state emitted after commission")
	assert.Equal(t, "99980.00 USD", state.CashBalance.String())
}

func TestVenue_FrozenAccountSkipsBalanceUpdates(t *testing.T) {
	fillModel := NewDeterministicFillModel()
	venue, err := NewVenue(VenueConfig{
		TraderID:         model.TraderID("TESTER-000"),
		AccountID:        venueAccount,
		Currency:         model.USD,
		StartingCapital:  decimal.NewFromInt(100000),
		CommissionRateBp: decimal.NewFromInt(2),
		FrozenAccount:    true,
	}, fillModel, model.NewDeterministicUUIDFactory(7), logging.NewTestLogger(), nil)
	require.NoError(t, err)
	venue.RegisterEventHandler(func(model.Event) {})

	venue.ProcessTick(simTick("0.9999", "1.0000", t0))
	order, err := model.NewMarketOrder(
		model.OrderID("O-1"), simSymbol(), model.Buy, simQty("100000"), model.DAY, uuid.New(), t0)
	require.NoError(t, err)
	submitOrder(t, venue, order, t0)

	assert.Equal(t, "100000", venue.Balance().String(), "frozen account takes no PnL application")
}

// Scenario: deterministic replay. Identical seed, tick stream and command
// stream produce byte-identical serialized event streams.
func TestVenue_DeterministicReplay(t *testing.T) {
	run := func() [][]byte {
		fillModel, err := NewFillModel(0.5, 0.5, 42)
		require.NoError(t, err)
		venue, events := newTestVenue(t, fillModel)

		venue.ProcessTick(simTick("1.2008", "1.2010", t0))
		for i := 0; i < 5; i++ {
			order, err := model.NewLimitOrder(
				model.OrderID(fmt.Sprintf("O-%d", i+1)), simSymbol(), model.Buy,
				simQty("100"), simPrice("1.2000"), model.GTC, nil, uuid.Nil, t0)
			require.NoError(t, err)
			submitOrder(t, venue, order, t0)
		}
		venue.ProcessTick(simTick("1.1998", "1.2000", t1))
		venue.ProcessTick(simTick("1.1995", "1.1998", t2))
		venue.ProcessTick(simTick("1.1990", "1.1993", t3))

		serializer := serialization.NewEventSerializer()
		out := make([][]byte, 0, len(*events))
		for _, event := range *events {
			data, err := serializer.Serialize(event)
			require.NoError(t, err)
			out = append(out, data)
		}
		return out
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i], "event %d differs between replays", i)
	}
}

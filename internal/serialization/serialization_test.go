package serialization

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/model"
)

var wireEpoch = time.Date(2020, 1, 2, 9, 30, 15, 123000000, time.UTC)

func wireSymbol() model.Symbol {
	symbol, _ := model.NewSymbol("AUDUSD", "FXCM")
	return symbol
}

func wireQty(s string) model.Quantity {
	quantity, err := model.NewQuantityFromString(s)
	if err != nil {
		panic(err)
	}
	return quantity
}

func wirePrice(s string) model.Price {
	price, err := model.NewPriceFromString(s)
	if err != nil {
		panic(err)
	}
	return price
}

func TestEncodeMap_RoundTrip(t *testing.T) {
	entries := map[string][]byte{
		"Type":   []byte("SubmitOrder"),
		"Symbol": []byte("AUDUSD.FXCM"),
		"Empty":  {},
	}
	decoded, err := DecodeMap(EncodeMap(entries))
	require.NoError(t, err)
	assert.Equal(t, "SubmitOrder", string(decoded["Type"]))
	assert.Equal(t, "AUDUSD.FXCM", string(decoded["Symbol"]))
	assert.Len(t, decoded, 3)
}

func TestEncodeMap_Deterministic(t *testing.T) {
	entries := map[string][]byte{"B": []byte("2"), "A": []byte("1"), "C": []byte("3")}
	first := EncodeMap(entries)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, EncodeMap(entries), "encoding must not depend on map order")
	}
}

func TestDecodeMap_RejectsTruncated(t *testing.T) {
	data := EncodeMap(map[string][]byte{"Key": []byte("value")})
	_, err := DecodeMap(data[:len(data)-2])
	assert.Error(t, err)
}

func TestTimestamp_MillisecondRoundTrip(t *testing.T) {
	formatted := FormatTimestamp(wireEpoch)
	assert.Equal(t, "2020-01-02T09:30:15.123Z", formatted)

	parsed, err := ParseTimestamp(formatted)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(wireEpoch))
}

func TestTimestamp_MicrosecondRoundTrip(t *testing.T) {
	micro := time.Date(2020, 1, 2, 9, 30, 15, 123456000, time.UTC)
	formatted := FormatTimestamp(micro)
	assert.Equal(t, "2020-01-02T09:30:15.123456Z", formatted)

	parsed, err := ParseTimestamp(formatted)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(micro))
}

func TestOrderSerializer_RoundTrip(t *testing.T) {
	serializer := OrderSerializer{}
	expire := wireEpoch.Add(time.Hour)

	orders := []*model.Order{
		mustOrder(model.NewMarketOrder(
			model.OrderID("O-1"), wireSymbol(), model.Buy, wireQty("100000"), model.DAY, uuid.New(), wireEpoch)),
		mustOrder(model.NewLimitOrder(
			model.OrderID("O-2"), wireSymbol(), model.Sell, wireQty("50000"), wirePrice("1.20000"),
			model.GTC, nil, uuid.New(), wireEpoch)),
		mustOrder(model.NewStopOrder(
			model.OrderID("O-3"), wireSymbol(), model.Buy, wireQty("1"), wirePrice("0.99"),
			model.GTD, &expire, uuid.New(), wireEpoch)),
	}

	for _, order := range orders {
		data, err := serializer.Serialize(order)
		require.NoError(t, err)
		decoded, err := serializer.Deserialize(data)
		require.NoError(t, err, order.ID)

		assert.Equal(t, order.ID, decoded.ID)
		assert.Equal(t, order.Symbol, decoded.Symbol)
		assert.Equal(t, order.Side, decoded.Side)
		assert.Equal(t, order.OrderType, decoded.OrderType)
		assert.True(t, order.Quantity.Eq(decoded.Quantity))
		assert.Equal(t, order.TimeInForce, decoded.TimeInForce)
		assert.Equal(t, order.InitID, decoded.InitID)
		assert.True(t, order.Timestamp.Equal(decoded.Timestamp))
		if order.Price != nil {
			require.NotNil(t, decoded.Price)
			assert.True(t, order.Price.Eq(*decoded.Price))
		} else {
			assert.Nil(t, decoded.Price)
		}
		if order.ExpireTime != nil {
			require.NotNil(t, decoded.ExpireTime)
			assert.True(t, order.ExpireTime.Equal(*decoded.ExpireTime))
		}
	}
}

func TestOrderSide_WireFormIsCamelCase(t *testing.T) {
	serializer := OrderSerializer{}
	order := mustOrder(model.NewMarketOrder(
		model.OrderID("O-1"), wireSymbol(), model.Buy, wireQty("100"), model.DAY, uuid.New(), wireEpoch))
	data, err := serializer.Serialize(order)
	require.NoError(t, err)

	decoded, err := DecodeMap(data)
	require.NoError(t, err)
	assert.Equal(t, "Buy", string(decoded[LabelOrderSide]))
	assert.Equal(t, "Market", string(decoded[LabelOrderType]))
	assert.Equal(t, "DAY", string(decoded[LabelTimeInForce]))
}

func TestCommandSerializer_RoundTrip(t *testing.T) {
	serializer := NewCommandSerializer()
	order := mustOrder(model.NewLimitOrder(
		model.OrderID("O-1"), wireSymbol(), model.Buy, wireQty("100"), wirePrice("1.2000"),
		model.GTC, nil, uuid.New(), wireEpoch))
	stopLoss := mustOrder(model.NewStopOrder(
		model.OrderID("O-2"), wireSymbol(), model.Sell, wireQty("100"), wirePrice("0.9900"),
		model.GTC, nil, uuid.New(), wireEpoch))
	bracket, err := model.NewBracketOrder(order, stopLoss, nil)
	require.NoError(t, err)

	commands := []model.Command{
		&model.AccountInquiry{
			TraderID:    model.TraderID("TESTER-000"),
			AccountID:   model.AccountID("FXCM-02851908"),
			CommandMeta: model.CommandMeta{ID: uuid.New(), Timestamp: wireEpoch},
		},
		&model.SubmitOrder{
			TraderID:    model.TraderID("TESTER-000"),
			AccountID:   model.AccountID("FXCM-02851908"),
			StrategyID:  model.StrategyID("S-001"),
			PositionID:  model.PositionID("P-1"),
			Order:       order,
			CommandMeta: model.CommandMeta{ID: uuid.New(), Timestamp: wireEpoch},
		},
		&model.SubmitBracketOrder{
			TraderID:    model.TraderID("TESTER-000"),
			AccountID:   model.AccountID("FXCM-02851908"),
			StrategyID:  model.StrategyID("S-001"),
			PositionID:  model.PositionID("P-1"),
			Bracket:     bracket,
			CommandMeta: model.CommandMeta{ID: uuid.New(), Timestamp: wireEpoch},
		},
		&model.ModifyOrder{
			TraderID:         model.TraderID("TESTER-000"),
			AccountID:        model.AccountID("FXCM-02851908"),
			OrderID:          model.OrderID("O-1"),
			ModifiedQuantity: wireQty("80"),
			ModifiedPrice:    wirePrice("1.1900"),
			CommandMeta:      model.CommandMeta{ID: uuid.New(), Timestamp: wireEpoch},
		},
		&model.CancelOrder{
			TraderID:     model.TraderID("TESTER-000"),
			AccountID:    model.AccountID("FXCM-02851908"),
			OrderID:      model.OrderID("O-1"),
			CancelReason: "expired strategy",
			CommandMeta:  model.CommandMeta{ID: uuid.New(), Timestamp: wireEpoch},
		},
	}

	for _, cmd := range commands {
		data, err := serializer.Serialize(cmd)
		require.NoError(t, err)
		decoded, err := serializer.Deserialize(data)
		require.NoError(t, err)
		assert.Equal(t, cmd.CommandID(), decoded.CommandID())
		assert.IsType(t, cmd, decoded)
	}
}

func TestEventSerializer_RoundTrip(t *testing.T) {
	serializer := NewEventSerializer()
	expire := wireEpoch.Add(time.Hour)
	balance, _ := model.NewMoneyFromString("100000.00", model.USD)
	ratio, _ := model.NewDecimal64FromString("0.05")

	meta := model.EventMeta{ID: uuid.New(), Timestamp: wireEpoch}
	account := model.AccountID("FXCM-02851908")

	events := []model.Event{
		model.OrderInvalid{OrderID: "O-1", InvalidReason: "quantity zero", EventMeta: meta},
		model.OrderDenied{OrderID: "O-1", DeniedReason: "risk limits", EventMeta: meta},
		model.OrderSubmitted{AccountID: account, OrderID: "O-1", SubmittedTime: wireEpoch, EventMeta: meta},
		model.OrderAccepted{AccountID: account, OrderID: "O-1", AcceptedTime: wireEpoch, EventMeta: meta},
		model.OrderRejected{AccountID: account, OrderID: "O-1", RejectedTime: wireEpoch, RejectedReason: "margin", EventMeta: meta},
		model.OrderWorking{
			AccountID: account, OrderID: "O-1", OrderIDBroker: "B-1", Symbol: wireSymbol(),
			Side: model.Buy, OrderType: model.Limit, Quantity: wireQty("100"), Price: wirePrice("1.2000"),
			TimeInForce: model.GTD, ExpireTime: &expire, WorkingTime: wireEpoch, EventMeta: meta,
		},
		model.OrderCancelled{AccountID: account, OrderID: "O-1", CancelledTime: wireEpoch, EventMeta: meta},
		model.OrderCancelReject{
			AccountID: account, OrderID: "O-1", RejectedTime: wireEpoch,
			RejectedResponseTo: "CancelOrder", RejectedReason: "not found", EventMeta: meta,
		},
		model.OrderExpired{AccountID: account, OrderID: "O-1", ExpiredTime: wireEpoch, EventMeta: meta},
		model.OrderModified{
			AccountID: account, OrderID: "O-1", OrderIDBroker: "B-1",
			ModifiedQuantity: wireQty("80"), ModifiedPrice: wirePrice("1.1900"),
			ModifiedTime: wireEpoch, EventMeta: meta,
		},
		model.OrderPartiallyFilled{
			AccountID: account, OrderID: "O-1", ExecutionID: "E-1", PositionIDBroker: "T-1",
			Symbol: wireSymbol(), Side: model.Buy, FilledQuantity: wireQty("40"),
			LeavesQuantity: wireQty("60"), AveragePrice: wirePrice("1.2000"), Currency: model.USD,
			ExecutionTime: wireEpoch, EventMeta: meta,
		},
		model.OrderFilled{
			AccountID: account, OrderID: "O-1", ExecutionID: "E-1", PositionIDBroker: "T-1",
			Symbol: wireSymbol(), Side: model.Sell, FilledQuantity: wireQty("100"),
			AveragePrice: wirePrice("1.2000"), Currency: model.USD,
			ExecutionTime: wireEpoch, EventMeta: meta,
		},
		model.AccountStateEvent{
			AccountID: account, Currency: model.USD, CashBalance: balance, CashStartDay: balance,
			CashActivityDay: model.MoneyZero(model.USD),
			MarginUsedLiquidation: model.MoneyZero(model.USD),
			MarginUsedMaintenance: model.MoneyZero(model.USD),
			MarginRatio: ratio, MarginCallStatus: "NONE", EventMeta: meta,
		},
	}

	for _, event := range events {
		data, err := serializer.Serialize(event)
		require.NoError(t, err, "%T", event)
		decoded, err := serializer.Deserialize(data)
		require.NoError(t, err, "%T", event)
		assert.IsType(t, event, decoded, "%T", event)
		assert.Equal(t, event.EventID(), decoded.EventID())
		assert.True(t, event.EventTimestamp().Equal(decoded.EventTimestamp()))

		// Canonical form is stable: re-serializing the decoded event yields
		// the identical bytes.
		reserialized, err := serializer.Serialize(decoded)
		require.NoError(t, err, "%T", event)
		assert.Equal(t, data, reserialized, "%T", event)
	}
}

func TestCompressors_RoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeatedly and compressibly: " +
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	for name, compressor := range map[string]Compressor{
		"bypass": BypassCompressor{},
		"lz4":    LZ4Compressor{},
	} {
		compressed, err := compressor.Compress(payload)
		require.NoError(t, err, name)
		restored, err := compressor.Decompress(compressed)
		require.NoError(t, err, name)
		assert.Equal(t, payload, restored, name)
	}
}

func mustOrder(order *model.Order, err error) *model.Order {
	if err != nil {
		panic(err)
	}
	return order
}

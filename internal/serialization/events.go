package serialization

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
)

// EventSerializer encodes order and account events to the binary map
// envelope. Derived position events stay in-process and are not serialized.
type EventSerializer struct{}

// NewEventSerializer creates an event serializer.
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{}
}

// Serialize encodes the event.
func (s *EventSerializer) Serialize(event model.Event) ([]byte, error) {
	switch e := event.(type) {
	case model.OrderInvalid:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelOrderID, string(e.OrderID)).
			PutString(LabelInvalidReason, e.InvalidReason).
			Bytes(), nil
	case model.OrderDenied:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelOrderID, string(e.OrderID)).
			PutString(LabelDeniedReason, e.DeniedReason).
			Bytes(), nil
	case model.OrderSubmitted:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelOrderID, string(e.OrderID)).
			PutTime(LabelSubmittedTime, e.SubmittedTime).
			Bytes(), nil
	case model.OrderAccepted:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelOrderID, string(e.OrderID)).
			PutTime(LabelAcceptedTime, e.AcceptedTime).
			Bytes(), nil
	case model.OrderRejected:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelOrderID, string(e.OrderID)).
			PutTime(LabelRejectedTime, e.RejectedTime).
			PutString(LabelRejectedReason, e.RejectedReason).
			Bytes(), nil
	case model.OrderWorking:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelOrderID, string(e.OrderID)).
			PutString(LabelOrderIDBroker, string(e.OrderIDBroker)).
			PutString(LabelSymbol, e.Symbol.String()).
			PutString(LabelOrderSide, sideToWire(e.Side)).
			PutString(LabelOrderType, typeToWire(e.OrderType)).
			PutString(LabelQuantity, e.Quantity.String()).
			PutString(LabelPrice, e.Price.String()).
			PutString(LabelTimeInForce, e.TimeInForce.String()).
			PutOptionalTime(LabelExpireTime, e.ExpireTime).
			PutTime(LabelWorkingTime, e.WorkingTime).
			Bytes(), nil
	case model.OrderCancelled:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelOrderID, string(e.OrderID)).
			PutTime(LabelCancelledTime, e.CancelledTime).
			Bytes(), nil
	case model.OrderCancelReject:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelOrderID, string(e.OrderID)).
			PutTime(LabelRejectedTime, e.RejectedTime).
			PutString(LabelRejectedResponseTo, e.RejectedResponseTo).
			PutString(LabelRejectedReason, e.RejectedReason).
			Bytes(), nil
	case model.OrderExpired:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelOrderID, string(e.OrderID)).
			PutTime(LabelExpiredTime, e.ExpiredTime).
			Bytes(), nil
	case model.OrderModified:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelOrderID, string(e.OrderID)).
			PutString(LabelOrderIDBroker, string(e.OrderIDBroker)).
			PutString(LabelModifiedQuantity, e.ModifiedQuantity.String()).
			PutString(LabelModifiedPrice, e.ModifiedPrice.String()).
			PutTime(LabelModifiedTime, e.ModifiedTime).
			Bytes(), nil
	case model.OrderPartiallyFilled:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelOrderID, string(e.OrderID)).
			PutString(LabelExecutionID, string(e.ExecutionID)).
			PutString(LabelPositionIDBroker, string(e.PositionIDBroker)).
			PutString(LabelSymbol, e.Symbol.String()).
			PutString(LabelOrderSide, sideToWire(e.Side)).
			PutString(LabelFilledQuantity, e.FilledQuantity.String()).
			PutString(LabelLeavesQuantity, e.LeavesQuantity.String()).
			PutString(LabelAveragePrice, e.AveragePrice.String()).
			PutString(LabelCurrency, e.Currency.String()).
			PutTime(LabelExecutionTime, e.ExecutionTime).
			Bytes(), nil
	case model.OrderFilled:
		return eventWriter(e.Kind().String(), e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelOrderID, string(e.OrderID)).
			PutString(LabelExecutionID, string(e.ExecutionID)).
			PutString(LabelPositionIDBroker, string(e.PositionIDBroker)).
			PutString(LabelSymbol, e.Symbol.String()).
			PutString(LabelOrderSide, sideToWire(e.Side)).
			PutString(LabelFilledQuantity, e.FilledQuantity.String()).
			PutString(LabelAveragePrice, e.AveragePrice.String()).
			PutString(LabelCurrency, e.Currency.String()).
			PutTime(LabelExecutionTime, e.ExecutionTime).
			Bytes(), nil
	case model.AccountStateEvent:
		return eventWriter("AccountStateEvent", e.EventMeta).
			PutString(LabelAccountID, string(e.AccountID)).
			PutString(LabelCurrency, e.Currency.String()).
			PutString(LabelCashBalance, e.CashBalance.Dec().String()).
			PutString(LabelCashStartDay, e.CashStartDay.Dec().String()).
			PutString(LabelCashActivityDay, e.CashActivityDay.Dec().String()).
			PutString(LabelMarginUsedLiquidation, e.MarginUsedLiquidation.Dec().String()).
			PutString(LabelMarginUsedMaintenance, e.MarginUsedMaintenance.Dec().String()).
			PutString(LabelMarginRatio, e.MarginRatio.String()).
			PutString(LabelMarginCallStatus, e.MarginCallStatus).
			Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unknown event %T", apperrors.ErrSerialization, event)
	}
}

// Deserialize decodes an event.
func (s *EventSerializer) Deserialize(data []byte) (model.Event, error) {
	r, err := NewMapReader(data)
	if err != nil {
		return nil, err
	}
	typeName, err := r.String(LabelType)
	if err != nil {
		return nil, err
	}
	meta, err := readEventMeta(r)
	if err != nil {
		return nil, err
	}

	switch typeName {
	case "OrderInvalid":
		orderID, reason, err := readIDAndString(r, LabelInvalidReason)
		if err != nil {
			return nil, err
		}
		return model.OrderInvalid{OrderID: orderID, InvalidReason: reason, EventMeta: meta}, nil
	case "OrderDenied":
		orderID, reason, err := readIDAndString(r, LabelDeniedReason)
		if err != nil {
			return nil, err
		}
		return model.OrderDenied{OrderID: orderID, DeniedReason: reason, EventMeta: meta}, nil
	case "OrderSubmitted":
		accountID, orderID, err := readAccountAndOrder(r)
		if err != nil {
			return nil, err
		}
		ts, err := r.Time(LabelSubmittedTime)
		if err != nil {
			return nil, err
		}
		return model.OrderSubmitted{AccountID: accountID, OrderID: orderID, SubmittedTime: ts, EventMeta: meta}, nil
	case "OrderAccepted":
		accountID, orderID, err := readAccountAndOrder(r)
		if err != nil {
			return nil, err
		}
		ts, err := r.Time(LabelAcceptedTime)
		if err != nil {
			return nil, err
		}
		return model.OrderAccepted{AccountID: accountID, OrderID: orderID, AcceptedTime: ts, EventMeta: meta}, nil
	case "OrderRejected":
		accountID, orderID, err := readAccountAndOrder(r)
		if err != nil {
			return nil, err
		}
		ts, err := r.Time(LabelRejectedTime)
		if err != nil {
			return nil, err
		}
		reason, err := r.String(LabelRejectedReason)
		if err != nil {
			return nil, err
		}
		return model.OrderRejected{AccountID: accountID, OrderID: orderID, RejectedTime: ts, RejectedReason: reason, EventMeta: meta}, nil
	case "OrderWorking":
		return s.deserializeWorking(r, meta)
	case "OrderCancelled":
		accountID, orderID, err := readAccountAndOrder(r)
		if err != nil {
			return nil, err
		}
		ts, err := r.Time(LabelCancelledTime)
		if err != nil {
			return nil, err
		}
		return model.OrderCancelled{AccountID: accountID, OrderID: orderID, CancelledTime: ts, EventMeta: meta}, nil
	case "OrderCancelReject":
		accountID, orderID, err := readAccountAndOrder(r)
		if err != nil {
			return nil, err
		}
		ts, err := r.Time(LabelRejectedTime)
		if err != nil {
			return nil, err
		}
		responseTo, err := r.String(LabelRejectedResponseTo)
		if err != nil {
			return nil, err
		}
		reason, err := r.String(LabelRejectedReason)
		if err != nil {
			return nil, err
		}
		return model.OrderCancelReject{
			AccountID:          accountID,
			OrderID:            orderID,
			RejectedTime:       ts,
			RejectedResponseTo: responseTo,
			RejectedReason:     reason,
			EventMeta:          meta,
		}, nil
	case "OrderExpired":
		accountID, orderID, err := readAccountAndOrder(r)
		if err != nil {
			return nil, err
		}
		ts, err := r.Time(LabelExpiredTime)
		if err != nil {
			return nil, err
		}
		return model.OrderExpired{AccountID: accountID, OrderID: orderID, ExpiredTime: ts, EventMeta: meta}, nil
	case "OrderModified":
		accountID, orderID, err := readAccountAndOrder(r)
		if err != nil {
			return nil, err
		}
		broker, err := r.String(LabelOrderIDBroker)
		if err != nil {
			return nil, err
		}
		quantity, err := readQuantity(r, LabelModifiedQuantity)
		if err != nil {
			return nil, err
		}
		price, err := readPrice(r, LabelModifiedPrice)
		if err != nil {
			return nil, err
		}
		ts, err := r.Time(LabelModifiedTime)
		if err != nil {
			return nil, err
		}
		return model.OrderModified{
			AccountID:        accountID,
			OrderID:          orderID,
			OrderIDBroker:    model.OrderIDBroker(broker),
			ModifiedQuantity: quantity,
			ModifiedPrice:    price,
			ModifiedTime:     ts,
			EventMeta:        meta,
		}, nil
	case "OrderPartiallyFilled":
		base, err := s.readFill(r)
		if err != nil {
			return nil, err
		}
		leaves, err := readQuantity(r, LabelLeavesQuantity)
		if err != nil {
			return nil, err
		}
		return model.OrderPartiallyFilled{
			AccountID:        base.accountID,
			OrderID:          base.orderID,
			ExecutionID:      base.executionID,
			PositionIDBroker: base.positionIDBroker,
			Symbol:           base.symbol,
			Side:             base.side,
			FilledQuantity:   base.filledQuantity,
			LeavesQuantity:   leaves,
			AveragePrice:     base.averagePrice,
			Currency:         base.currency,
			ExecutionTime:    base.executionTime,
			EventMeta:        meta,
		}, nil
	case "OrderFilled":
		base, err := s.readFill(r)
		if err != nil {
			return nil, err
		}
		return model.OrderFilled{
			AccountID:        base.accountID,
			OrderID:          base.orderID,
			ExecutionID:      base.executionID,
			PositionIDBroker: base.positionIDBroker,
			Symbol:           base.symbol,
			Side:             base.side,
			FilledQuantity:   base.filledQuantity,
			AveragePrice:     base.averagePrice,
			Currency:         base.currency,
			ExecutionTime:    base.executionTime,
			EventMeta:        meta,
		}, nil
	case "AccountStateEvent":
		return s.deserializeAccountState(r, meta)
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", apperrors.ErrSerialization, typeName)
	}
}

func (s *EventSerializer) deserializeWorking(r *MapReader, meta model.EventMeta) (model.Event, error) {
	accountID, orderID, err := readAccountAndOrder(r)
	if err != nil {
		return nil, err
	}
	broker, err := r.String(LabelOrderIDBroker)
	if err != nil {
		return nil, err
	}
	symbolValue, err := r.String(LabelSymbol)
	if err != nil {
		return nil, err
	}
	symbol, err := model.ParseSymbol(symbolValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
	}
	sideValue, err := r.String(LabelOrderSide)
	if err != nil {
		return nil, err
	}
	side, err := sideFromWire(sideValue)
	if err != nil {
		return nil, err
	}
	typeValue, err := r.String(LabelOrderType)
	if err != nil {
		return nil, err
	}
	orderType, err := typeFromWire(typeValue)
	if err != nil {
		return nil, err
	}
	quantity, err := readQuantity(r, LabelQuantity)
	if err != nil {
		return nil, err
	}
	price, err := readPrice(r, LabelPrice)
	if err != nil {
		return nil, err
	}
	tifValue, err := r.String(LabelTimeInForce)
	if err != nil {
		return nil, err
	}
	tif, err := model.ParseTimeInForce(tifValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
	}
	expireTime, err := r.OptionalTime(LabelExpireTime)
	if err != nil {
		return nil, err
	}
	workingTime, err := r.Time(LabelWorkingTime)
	if err != nil {
		return nil, err
	}
	return model.OrderWorking{
		AccountID:     accountID,
		OrderID:       orderID,
		OrderIDBroker: model.OrderIDBroker(broker),
		Symbol:        symbol,
		Side:          side,
		OrderType:     orderType,
		Quantity:      quantity,
		Price:         price,
		TimeInForce:   tif,
		ExpireTime:    expireTime,
		WorkingTime:   workingTime,
		EventMeta:     meta,
	}, nil
}

func (s *EventSerializer) deserializeAccountState(r *MapReader, meta model.EventMeta) (model.Event, error) {
	accountValue, err := r.String(LabelAccountID)
	if err != nil {
		return nil, err
	}
	currencyValue, err := r.String(LabelCurrency)
	if err != nil {
		return nil, err
	}
	currency, err := model.ParseCurrency(currencyValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
	}
	readMoney := func(label string) (model.Money, error) {
		value, err := r.String(label)
		if err != nil {
			return model.Money{}, err
		}
		money, err := model.NewMoneyFromString(value, currency)
		if err != nil {
			return model.Money{}, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
		}
		return money, nil
	}
	cashBalance, err := readMoney(LabelCashBalance)
	if err != nil {
		return nil, err
	}
	cashStartDay, err := readMoney(LabelCashStartDay)
	if err != nil {
		return nil, err
	}
	cashActivityDay, err := readMoney(LabelCashActivityDay)
	if err != nil {
		return nil, err
	}
	marginLiquidation, err := readMoney(LabelMarginUsedLiquidation)
	if err != nil {
		return nil, err
	}
	marginMaintenance, err := readMoney(LabelMarginUsedMaintenance)
	if err != nil {
		return nil, err
	}
	ratioValue, err := r.String(LabelMarginRatio)
	if err != nil {
		return nil, err
	}
	ratio, err := model.NewDecimal64FromString(ratioValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
	}
	callStatus, err := r.String(LabelMarginCallStatus)
	if err != nil {
		return nil, err
	}
	return model.AccountStateEvent{
		AccountID:             model.AccountID(accountValue),
		Currency:              currency,
		CashBalance:           cashBalance,
		CashStartDay:          cashStartDay,
		CashActivityDay:       cashActivityDay,
		MarginUsedLiquidation: marginLiquidation,
		MarginUsedMaintenance: marginMaintenance,
		MarginRatio:           ratio,
		MarginCallStatus:      callStatus,
		EventMeta:             meta,
	}, nil
}

type fillFields struct {
	accountID        model.AccountID
	orderID          model.OrderID
	executionID      model.ExecutionID
	positionIDBroker model.PositionIDBroker
	symbol           model.Symbol
	side             model.OrderSide
	filledQuantity   model.Quantity
	averagePrice     model.Price
	currency         model.Currency
	executionTime    time.Time
}

func (s *EventSerializer) readFill(r *MapReader) (fillFields, error) {
	var out fillFields
	accountID, orderID, err := readAccountAndOrder(r)
	if err != nil {
		return out, err
	}
	executionID, err := r.String(LabelExecutionID)
	if err != nil {
		return out, err
	}
	broker, err := r.String(LabelPositionIDBroker)
	if err != nil {
		return out, err
	}
	symbolValue, err := r.String(LabelSymbol)
	if err != nil {
		return out, err
	}
	symbol, err := model.ParseSymbol(symbolValue)
	if err != nil {
		return out, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
	}
	sideValue, err := r.String(LabelOrderSide)
	if err != nil {
		return out, err
	}
	side, err := sideFromWire(sideValue)
	if err != nil {
		return out, err
	}
	filled, err := readQuantity(r, LabelFilledQuantity)
	if err != nil {
		return out, err
	}
	avgPrice, err := readPrice(r, LabelAveragePrice)
	if err != nil {
		return out, err
	}
	currencyValue, err := r.String(LabelCurrency)
	if err != nil {
		return out, err
	}
	currency, err := model.ParseCurrency(currencyValue)
	if err != nil {
		return out, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
	}
	executionTime, err := r.Time(LabelExecutionTime)
	if err != nil {
		return out, err
	}
	out = fillFields{
		accountID:        accountID,
		orderID:          orderID,
		executionID:      model.ExecutionID(executionID),
		positionIDBroker: model.PositionIDBroker(broker),
		symbol:           symbol,
		side:             side,
		filledQuantity:   filled,
		averagePrice:     avgPrice,
		currency:         currency,
		executionTime:    executionTime,
	}
	return out, nil
}

func eventWriter(typeName string, meta model.EventMeta) *MapWriter {
	return NewMapWriter().
		PutString(LabelType, typeName).
		PutString(LabelID, meta.ID.String()).
		PutTime(LabelTimestamp, meta.Timestamp)
}

func readEventMeta(r *MapReader) (model.EventMeta, error) {
	idValue, err := r.String(LabelID)
	if err != nil {
		return model.EventMeta{}, err
	}
	id, err := uuid.Parse(idValue)
	if err != nil {
		return model.EventMeta{}, fmt.Errorf("%w: bad event id %q", apperrors.ErrSerialization, idValue)
	}
	timestamp, err := r.Time(LabelTimestamp)
	if err != nil {
		return model.EventMeta{}, err
	}
	return model.EventMeta{ID: id, Timestamp: timestamp}, nil
}

func readAccountAndOrder(r *MapReader) (model.AccountID, model.OrderID, error) {
	accountValue, err := r.String(LabelAccountID)
	if err != nil {
		return "", "", err
	}
	orderValue, err := r.String(LabelOrderID)
	if err != nil {
		return "", "", err
	}
	return model.AccountID(accountValue), model.OrderID(orderValue), nil
}

func readIDAndString(r *MapReader, label string) (model.OrderID, string, error) {
	orderValue, err := r.String(LabelOrderID)
	if err != nil {
		return "", "", err
	}
	value, err := r.String(label)
	if err != nil {
		return "", "", err
	}
	return model.OrderID(orderValue), value, nil
}

func readQuantity(r *MapReader, label string) (model.Quantity, error) {
	value, err := r.String(label)
	if err != nil {
		return model.Quantity{}, err
	}
	quantity, err := model.NewQuantityFromString(value)
	if err != nil {
		return model.Quantity{}, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
	}
	return quantity, nil
}

func readPrice(r *MapReader, label string) (model.Price, error) {
	value, err := r.String(label)
	if err != nil {
		return model.Price{}, err
	}
	price, err := model.NewPriceFromString(value)
	if err != nil {
		return model.Price{}, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
	}
	return price, nil
}

package serialization

import (
	"fmt"

	"github.com/google/uuid"

	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
)

// OrderSerializer encodes order definitions to the binary map envelope.
type OrderSerializer struct{}

// Serialize encodes the order's immutable definition.
func (OrderSerializer) Serialize(order *model.Order) ([]byte, error) {
	if order == nil {
		return nil, fmt.Errorf("%w: nil order", apperrors.ErrSerialization)
	}
	w := NewMapWriter().
		PutString(LabelID, string(order.ID)).
		PutString(LabelSymbol, order.Symbol.String()).
		PutString(LabelOrderSide, sideToWire(order.Side)).
		PutString(LabelOrderType, typeToWire(order.OrderType)).
		PutString(LabelQuantity, order.Quantity.String()).
		PutString(LabelTimeInForce, order.TimeInForce.String()).
		PutOptionalTime(LabelExpireTime, order.ExpireTime).
		PutString(LabelInitID, order.InitID.String()).
		PutTime(LabelTimestamp, order.Timestamp)
	if order.Price != nil {
		w.PutString(LabelPrice, order.Price.String())
	} else {
		w.PutString(LabelPrice, None)
	}
	return w.Bytes(), nil
}

// Deserialize reconstructs an order definition in INITIALIZED state.
func (OrderSerializer) Deserialize(data []byte) (*model.Order, error) {
	r, err := NewMapReader(data)
	if err != nil {
		return nil, err
	}

	idValue, err := r.String(LabelID)
	if err != nil {
		return nil, err
	}
	id, err := model.NewOrderID(idValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
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

	qtyValue, err := r.String(LabelQuantity)
	if err != nil {
		return nil, err
	}
	quantity, err := model.NewQuantityFromString(qtyValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
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

	initValue, err := r.String(LabelInitID)
	if err != nil {
		return nil, err
	}
	initID, err := uuid.Parse(initValue)
	if err != nil {
		return nil, fmt.Errorf("%w: bad init id %q", apperrors.ErrSerialization, initValue)
	}

	timestamp, err := r.Time(LabelTimestamp)
	if err != nil {
		return nil, err
	}

	priceValue, err := r.String(LabelPrice)
	if err != nil {
		return nil, err
	}

	switch orderType {
	case model.Market:
		order, err := model.NewMarketOrder(id, symbol, side, quantity, tif, initID, timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
		}
		return order, nil
	case model.Limit, model.Stop:
		if priceValue == None {
			return nil, fmt.Errorf("%w: passive order missing price", apperrors.ErrSerialization)
		}
		price, err := model.NewPriceFromString(priceValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
		}
		var order *model.Order
		if orderType == model.Limit {
			order, err = model.NewLimitOrder(id, symbol, side, quantity, price, tif, expireTime, initID, timestamp)
		} else {
			order, err = model.NewStopOrder(id, symbol, side, quantity, price, tif, expireTime, initID, timestamp)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
		}
		return order, nil
	default:
		return nil, fmt.Errorf("%w: unknown order type", apperrors.ErrSerialization)
	}
}

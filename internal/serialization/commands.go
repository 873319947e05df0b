package serialization

import (
	"fmt"

	"github.com/google/uuid"

	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
)

// Command type names carried under the Type label.
const (
	typeAccountInquiry     = "AccountInquiry"
	typeSubmitOrder        = "SubmitOrder"
	typeSubmitBracketOrder = "SubmitBracketOrder"
	typeModifyOrder        = "ModifyOrder"
	typeCancelOrder        = "CancelOrder"
)

// CommandSerializer encodes commands to the binary map envelope.
type CommandSerializer struct {
	orders OrderSerializer
}

// NewCommandSerializer creates a command serializer.
func NewCommandSerializer() *CommandSerializer {
	return &CommandSerializer{}
}

// Serialize encodes the command.
func (s *CommandSerializer) Serialize(cmd model.Command) ([]byte, error) {
	switch c := cmd.(type) {
	case *model.AccountInquiry:
		return NewMapWriter().
			PutString(LabelType, typeAccountInquiry).
			PutString(LabelID, c.ID.String()).
			PutTime(LabelTimestamp, c.Timestamp).
			PutString(LabelTraderID, string(c.TraderID)).
			PutString(LabelAccountID, string(c.AccountID)).
			Bytes(), nil
	case *model.SubmitOrder:
		orderBytes, err := s.orders.Serialize(c.Order)
		if err != nil {
			return nil, err
		}
		return NewMapWriter().
			PutString(LabelType, typeSubmitOrder).
			PutString(LabelID, c.ID.String()).
			PutTime(LabelTimestamp, c.Timestamp).
			PutString(LabelTraderID, string(c.TraderID)).
			PutString(LabelAccountID, string(c.AccountID)).
			PutString(LabelStrategyID, string(c.StrategyID)).
			PutString(LabelPositionID, string(c.PositionID)).
			PutBytes(LabelOrder, orderBytes).
			Bytes(), nil
	case *model.SubmitBracketOrder:
		entryBytes, err := s.orders.Serialize(c.Bracket.Entry)
		if err != nil {
			return nil, err
		}
		stopLossBytes, err := s.orders.Serialize(c.Bracket.StopLoss)
		if err != nil {
			return nil, err
		}
		w := NewMapWriter().
			PutString(LabelType, typeSubmitBracketOrder).
			PutString(LabelID, c.ID.String()).
			PutTime(LabelTimestamp, c.Timestamp).
			PutString(LabelTraderID, string(c.TraderID)).
			PutString(LabelAccountID, string(c.AccountID)).
			PutString(LabelStrategyID, string(c.StrategyID)).
			PutString(LabelPositionID, string(c.PositionID)).
			PutBytes(LabelEntry, entryBytes).
			PutBytes(LabelStopLoss, stopLossBytes)
		if c.Bracket.TakeProfit != nil {
			takeProfitBytes, err := s.orders.Serialize(c.Bracket.TakeProfit)
			if err != nil {
				return nil, err
			}
			w.PutBytes(LabelTakeProfit, takeProfitBytes)
		} else {
			w.PutString(LabelTakeProfit, None)
		}
		return w.Bytes(), nil
	case *model.ModifyOrder:
		return NewMapWriter().
			PutString(LabelType, typeModifyOrder).
			PutString(LabelID, c.ID.String()).
			PutTime(LabelTimestamp, c.Timestamp).
			PutString(LabelTraderID, string(c.TraderID)).
			PutString(LabelAccountID, string(c.AccountID)).
			PutString(LabelOrderID, string(c.OrderID)).
			PutString(LabelModifiedQuantity, c.ModifiedQuantity.String()).
			PutString(LabelModifiedPrice, c.ModifiedPrice.String()).
			Bytes(), nil
	case *model.CancelOrder:
		return NewMapWriter().
			PutString(LabelType, typeCancelOrder).
			PutString(LabelID, c.ID.String()).
			PutTime(LabelTimestamp, c.Timestamp).
			PutString(LabelTraderID, string(c.TraderID)).
			PutString(LabelAccountID, string(c.AccountID)).
			PutString(LabelOrderID, string(c.OrderID)).
			PutString(LabelCancelReason, c.CancelReason).
			Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unknown command %T", apperrors.ErrSerialization, cmd)
	}
}

// Deserialize decodes a command.
func (s *CommandSerializer) Deserialize(data []byte) (model.Command, error) {
	r, err := NewMapReader(data)
	if err != nil {
		return nil, err
	}
	typeName, err := r.String(LabelType)
	if err != nil {
		return nil, err
	}
	meta, err := readCommandMeta(r)
	if err != nil {
		return nil, err
	}
	traderID, err := r.String(LabelTraderID)
	if err != nil {
		return nil, err
	}
	accountID, err := r.String(LabelAccountID)
	if err != nil {
		return nil, err
	}

	switch typeName {
	case typeAccountInquiry:
		return &model.AccountInquiry{
			TraderID:    model.TraderID(traderID),
			AccountID:   model.AccountID(accountID),
			CommandMeta: meta,
		}, nil
	case typeSubmitOrder:
		strategyID, err := r.String(LabelStrategyID)
		if err != nil {
			return nil, err
		}
		positionID, err := r.String(LabelPositionID)
		if err != nil {
			return nil, err
		}
		orderBytes, err := r.Bytes(LabelOrder)
		if err != nil {
			return nil, err
		}
		order, err := s.orders.Deserialize(orderBytes)
		if err != nil {
			return nil, err
		}
		return &model.SubmitOrder{
			TraderID:    model.TraderID(traderID),
			AccountID:   model.AccountID(accountID),
			StrategyID:  model.StrategyID(strategyID),
			PositionID:  model.PositionID(positionID),
			Order:       order,
			CommandMeta: meta,
		}, nil
	case typeSubmitBracketOrder:
		strategyID, err := r.String(LabelStrategyID)
		if err != nil {
			return nil, err
		}
		positionID, err := r.String(LabelPositionID)
		if err != nil {
			return nil, err
		}
		entryBytes, err := r.Bytes(LabelEntry)
		if err != nil {
			return nil, err
		}
		entry, err := s.orders.Deserialize(entryBytes)
		if err != nil {
			return nil, err
		}
		stopLossBytes, err := r.Bytes(LabelStopLoss)
		if err != nil {
			return nil, err
		}
		stopLoss, err := s.orders.Deserialize(stopLossBytes)
		if err != nil {
			return nil, err
		}
		var takeProfit *model.Order
		takeProfitBytes, err := r.Bytes(LabelTakeProfit)
		if err != nil {
			return nil, err
		}
		if string(takeProfitBytes) != None {
			takeProfit, err = s.orders.Deserialize(takeProfitBytes)
			if err != nil {
				return nil, err
			}
		}
		bracket, err := model.NewBracketOrder(entry, stopLoss, takeProfit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
		}
		return &model.SubmitBracketOrder{
			TraderID:    model.TraderID(traderID),
			AccountID:   model.AccountID(accountID),
			StrategyID:  model.StrategyID(strategyID),
			PositionID:  model.PositionID(positionID),
			Bracket:     bracket,
			CommandMeta: meta,
		}, nil
	case typeModifyOrder:
		orderID, err := r.String(LabelOrderID)
		if err != nil {
			return nil, err
		}
		qtyValue, err := r.String(LabelModifiedQuantity)
		if err != nil {
			return nil, err
		}
		quantity, err := model.NewQuantityFromString(qtyValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
		}
		priceValue, err := r.String(LabelModifiedPrice)
		if err != nil {
			return nil, err
		}
		price, err := model.NewPriceFromString(priceValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSerialization, err)
		}
		return &model.ModifyOrder{
			TraderID:         model.TraderID(traderID),
			AccountID:        model.AccountID(accountID),
			OrderID:          model.OrderID(orderID),
			ModifiedQuantity: quantity,
			ModifiedPrice:    price,
			CommandMeta:      meta,
		}, nil
	case typeCancelOrder:
		orderID, err := r.String(LabelOrderID)
		if err != nil {
			return nil, err
		}
		reason, err := r.String(LabelCancelReason)
		if err != nil {
			return nil, err
		}
		return &model.CancelOrder{
			TraderID:     model.TraderID(traderID),
			AccountID:    model.AccountID(accountID),
			OrderID:      model.OrderID(orderID),
			CancelReason: reason,
			CommandMeta:  meta,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown command type %q", apperrors.ErrSerialization, typeName)
	}
}

func readCommandMeta(r *MapReader) (model.CommandMeta, error) {
	idValue, err := r.String(LabelID)
	if err != nil {
		return model.CommandMeta{}, err
	}
	id, err := uuid.Parse(idValue)
	if err != nil {
		return model.CommandMeta{}, fmt.Errorf("%w: bad command id %q", apperrors.ErrSerialization, idValue)
	}
	timestamp, err := r.Time(LabelTimestamp)
	if err != nil {
		return model.CommandMeta{}, err
	}
	return model.CommandMeta{ID: id, Timestamp: timestamp}, nil
}

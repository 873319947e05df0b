package model

import (
	"tradesim/pkg/apperrors"
)

// BracketOrder is a parent entry order with OCO children: a stop-loss and an
// optional take-profit. Its id is the entry id prefixed with "B".
type BracketOrder struct {
	ID         OrderID
	Entry      *Order
	StopLoss   *Order
	TakeProfit *Order
}

// NewBracketOrder assembles a bracket from its legs.
func NewBracketOrder(entry, stopLoss, takeProfit *Order) (*BracketOrder, error) {
	if entry == nil {
		return nil, apperrors.Invalid("bracket entry order is nil")
	}
	if stopLoss == nil {
		return nil, apperrors.Invalid("bracket stop-loss order is nil")
	}
	if stopLoss.OrderType != Stop {
		return nil, apperrors.Invalid("bracket stop-loss must be a STOP order (was %s)", stopLoss.OrderType)
	}
	if takeProfit != nil && takeProfit.OrderType != Limit {
		return nil, apperrors.Invalid("bracket take-profit must be a LIMIT order (was %s)", takeProfit.OrderType)
	}
	return &BracketOrder{
		ID:         OrderID("B" + string(entry.ID)),
		Entry:      entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}, nil
}

// HasTakeProfit reports whether the optional take-profit leg is present.
func (b *BracketOrder) HasTakeProfit() bool {
	return b.TakeProfit != nil
}

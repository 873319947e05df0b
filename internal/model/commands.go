package model

import (
	"time"

	"github.com/google/uuid"
)

// Command is the common surface of requests routed through the execution
// engine to a venue.
type Command interface {
	CommandID() uuid.UUID
	CommandTimestamp() time.Time
}

// CommandMeta carries the identity attached to every command.
type CommandMeta struct {
	ID        uuid.UUID
	Timestamp time.Time
}

// NewCommandMeta creates command metadata with a fresh id.
func NewCommandMeta(timestamp time.Time) CommandMeta {
	return CommandMeta{ID: uuid.New(), Timestamp: timestamp}
}

func (m CommandMeta) CommandID() uuid.UUID          { return m.ID }
func (m CommandMeta) CommandTimestamp() time.Time   { return m.Timestamp }

// AccountInquiry requests a fresh account state event from the venue.
type AccountInquiry struct {
	TraderID  TraderID
	AccountID AccountID
	CommandMeta
}

// SubmitOrder submits a single order under a position id.
type SubmitOrder struct {
	TraderID   TraderID
	AccountID  AccountID
	StrategyID StrategyID
	PositionID PositionID
	Order      *Order
	CommandMeta
}

// SubmitBracketOrder submits a bracket; all legs share the position id.
type SubmitBracketOrder struct {
	TraderID   TraderID
	AccountID  AccountID
	StrategyID StrategyID
	PositionID PositionID
	Bracket    *BracketOrder
	CommandMeta
}

// ModifyOrder requests a price and quantity change on a working order.
type ModifyOrder struct {
	TraderID         TraderID
	AccountID        AccountID
	OrderID          OrderID
	ModifiedQuantity Quantity
	ModifiedPrice    Price
	CommandMeta
}

// CancelOrder requests cancellation of an order.
type CancelOrder struct {
	TraderID     TraderID
	AccountID    AccountID
	OrderID      OrderID
	CancelReason string
	CommandMeta
}

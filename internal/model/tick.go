package model

import (
	"time"
)

// QuoteTick is a snapshot of top-of-book for a symbol at a timestamp.
type QuoteTick struct {
	Symbol    Symbol
	Bid       Price
	Ask       Price
	BidSize   Quantity
	AskSize   Quantity
	Timestamp time.Time
}

func (t QuoteTick) String() string {
	return t.Symbol.String() + "," + t.Bid.String() + "," + t.Ask.String() + "," + t.Timestamp.UTC().Format(time.RFC3339Nano)
}

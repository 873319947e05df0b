package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is net inventory keyed by a logical position id, folded from fill
// events. It is created by the first fill, updated by subsequent fills on the
// same id, and closed when net quantity returns to zero. A closed position
// never re-opens.
type Position struct {
	ID             PositionID
	IDBroker       PositionIDBroker
	Symbol         Symbol
	FromOrderID    OrderID
	EntryDirection OrderSide

	quantity          Quantity
	peakQuantity      Quantity
	relativeQuantity  decimal.Decimal // signed net
	cumulativeVolume  Quantity
	marketPosition    MarketPosition
	averageOpenPrice  decimal.Decimal
	averageClosePrice decimal.Decimal
	realizedPnl       Money
	realizedPoints    decimal.Decimal
	openedTime        time.Time
	closedTime        *time.Time
	closedQuantity    decimal.Decimal

	orderIDs     []OrderID
	executionIDs []ExecutionID
	events       []OrderFillEvent
}

// NewPosition creates a position from its opening fill.
func NewPosition(id PositionID, fill OrderFillEvent) *Position {
	p := &Position{
		ID:             id,
		IDBroker:       fill.FillPositionIDBroker(),
		Symbol:         fill.FillSymbol(),
		FromOrderID:    fill.EventOrderID(),
		EntryDirection: fill.FillSide(),
		quantity:       QuantityZero(),
		peakQuantity:   QuantityZero(),
		realizedPnl:    MoneyZero(fill.FillCurrency()),
		openedTime:     fill.FillTime(),
	}
	p.Apply(fill)
	return p
}

func (p *Position) Quantity() Quantity         { return p.quantity }
func (p *Position) PeakQuantity() Quantity     { return p.peakQuantity }
func (p *Position) CumulativeVolume() Quantity { return p.cumulativeVolume }
func (p *Position) MarketPosition() MarketPosition {
	return p.marketPosition
}
func (p *Position) AverageOpenPrice() decimal.Decimal  { return p.averageOpenPrice }
func (p *Position) AverageClosePrice() decimal.Decimal { return p.averageClosePrice }
func (p *Position) RealizedPnl() Money                 { return p.realizedPnl }
func (p *Position) RealizedPoints() decimal.Decimal    { return p.realizedPoints }
func (p *Position) OpenedTime() time.Time              { return p.openedTime }
func (p *Position) ClosedTime() *time.Time             { return p.closedTime }
func (p *Position) EventCount() int                    { return len(p.events) }
func (p *Position) Events() []OrderFillEvent           { return p.events }
func (p *Position) OrderIDs() []OrderID                { return p.orderIDs }
func (p *Position) ExecutionIDs() []ExecutionID        { return p.executionIDs }

// RealizedReturn is the realized points over the average open price.
func (p *Position) RealizedReturn() float64 {
	if p.averageOpenPrice.IsZero() {
		return 0
	}
	f, _ := p.realizedPoints.Div(p.averageOpenPrice).Float64()
	return f
}

func (p *Position) IsLong() bool   { return p.marketPosition == Long }
func (p *Position) IsShort() bool  { return p.marketPosition == Short }
func (p *Position) IsClosed() bool { return p.closedTime != nil }

// LastExecutionID returns the most recent execution id.
func (p *Position) LastExecutionID() (ExecutionID, bool) {
	if len(p.executionIDs) == 0 {
		return "", false
	}
	return p.executionIDs[len(p.executionIDs)-1], true
}

// Apply folds a fill into the position. Fills in the entry direction increase
// exposure and re-weight the average open price; fills against it reduce
// exposure and realize PnL on the reduced quantity. When the signed net
// quantity returns to zero the position is closed and timestamped.
func (p *Position) Apply(fill OrderFillEvent) {
	p.events = append(p.events, fill)
	p.executionIDs = append(p.executionIDs, fill.FillExecutionID())
	p.appendOrderID(fill.EventOrderID())
	if broker := fill.FillPositionIDBroker(); broker != "" {
		p.IDBroker = broker
	}

	qty := fill.FillQuantity().Dec()
	price := fill.FillAveragePrice().Dec()
	signed := qty
	if fill.FillSide() == Sell {
		signed = qty.Neg()
	}

	sameDirection := p.relativeQuantity.IsZero() ||
		(p.relativeQuantity.IsPositive() == signed.IsPositive())

	if sameDirection {
		// Increasing exposure: re-weight the average open price.
		oldAbs := p.relativeQuantity.Abs()
		newAbs := oldAbs.Add(qty)
		if newAbs.IsPositive() {
			p.averageOpenPrice = p.averageOpenPrice.Mul(oldAbs).Add(price.Mul(qty)).Div(newAbs)
		}
		p.relativeQuantity = p.relativeQuantity.Add(signed)
	} else {
		reduced := decimal.Min(qty, p.relativeQuantity.Abs())
		sign := decimal.NewFromInt(1)
		if p.relativeQuantity.IsNegative() {
			sign = decimal.NewFromInt(-1)
		}
		points := price.Sub(p.averageOpenPrice).Mul(sign)
		p.realizedPoints = p.realizedPoints.Add(points)
		pnl, err := NewMoney(points.Mul(reduced).Add(p.realizedPnl.Dec()), p.realizedPnl.Currency())
		if err == nil {
			p.realizedPnl = pnl
		}

		oldClosed := p.closedQuantity
		p.closedQuantity = oldClosed.Add(reduced)
		if p.closedQuantity.IsPositive() {
			p.averageClosePrice = p.averageClosePrice.Mul(oldClosed).Add(price.Mul(reduced)).Div(p.closedQuantity)
		}

		p.relativeQuantity = p.relativeQuantity.Add(signed)
		if !p.relativeQuantity.IsZero() && p.relativeQuantity.IsPositive() != sign.IsPositive() {
			// Over-reduction flipped the direction. The remainder opens at
			// the fill price.
			p.averageOpenPrice = price
		}
	}

	p.cumulativeVolume = Quantity{Decimal64{value: p.cumulativeVolume.Dec().Add(qty), precision: maxPrecision(p.cumulativeVolume.Precision(), fill.FillQuantity().Precision())}}
	p.quantity = Quantity{Decimal64{value: p.relativeQuantity.Abs(), precision: fill.FillQuantity().Precision()}}
	if p.quantity.Cmp(p.peakQuantity.Decimal64) > 0 {
		p.peakQuantity = p.quantity
	}

	switch {
	case p.relativeQuantity.IsPositive():
		p.marketPosition = Long
	case p.relativeQuantity.IsNegative():
		p.marketPosition = Short
	default:
		p.marketPosition = Flat
		ts := fill.FillTime()
		p.closedTime = &ts
	}
}

// UnrealizedPoints returns the per-unit mark-out against the last quote.
// Longs mark against the bid, shorts against the ask.
func (p *Position) UnrealizedPoints(last QuoteTick) decimal.Decimal {
	switch p.marketPosition {
	case Long:
		return last.Bid.Dec().Sub(p.averageOpenPrice)
	case Short:
		return p.averageOpenPrice.Sub(last.Ask.Dec())
	default:
		return decimal.Zero
	}
}

// UnrealizedPnl returns the open PnL against the last quote, in the position's
// realized-PnL currency.
func (p *Position) UnrealizedPnl(last QuoteTick) Money {
	points := p.UnrealizedPoints(last)
	pnl, err := NewMoney(points.Mul(p.quantity.Dec()), p.realizedPnl.Currency())
	if err != nil {
		return MoneyZero(p.realizedPnl.Currency())
	}
	return pnl
}

// TotalPnl returns realized plus unrealized PnL against the last quote.
func (p *Position) TotalPnl(last QuoteTick) Money {
	total, err := p.realizedPnl.Add(p.UnrealizedPnl(last))
	if err != nil {
		return p.realizedPnl
	}
	return total
}

func (p *Position) appendOrderID(id OrderID) {
	for _, existing := range p.orderIDs {
		if existing == id {
			return
		}
	}
	p.orderIDs = append(p.orderIDs, id)
}

func (p *Position) String() string {
	return "Position(" + string(p.ID) + " " + p.marketPosition.String() + " " + p.quantity.String() + " " + p.Symbol.String() + ")"
}

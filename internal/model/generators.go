package model

import (
	"fmt"
	"time"
)

// identifierGenerator produces ids of the form
// <prefix>-<YYYYMMDD>-<HHMMSS>-<trader_tag>-<strategy_tag>-<n> where n is a
// monotonic per-generator counter.
type identifierGenerator struct {
	prefix      string
	traderTag   string
	strategyTag string
	now         func() time.Time
	count       int
}

func (g *identifierGenerator) next() string {
	g.count++
	ts := g.now().UTC()
	return fmt.Sprintf("%s-%s-%s-%s-%s-%d",
		g.prefix,
		ts.Format("20060102"),
		ts.Format("150405"),
		g.traderTag,
		g.strategyTag,
		g.count)
}

func (g *identifierGenerator) reset() {
	g.count = 0
}

// OrderIDGenerator generates order ids with the "O" prefix.
type OrderIDGenerator struct {
	gen identifierGenerator
}

// NewOrderIDGenerator creates a generator bound to trader and strategy tags.
// The now function supplies timestamps; pass the clock's TimeNow.
func NewOrderIDGenerator(traderTag, strategyTag string, now func() time.Time) *OrderIDGenerator {
	return &OrderIDGenerator{gen: identifierGenerator{
		prefix:      "O",
		traderTag:   traderTag,
		strategyTag: strategyTag,
		now:         now,
	}}
}

// Generate returns the next order id.
func (g *OrderIDGenerator) Generate() OrderID {
	return OrderID(g.gen.next())
}

// Reset brings the counter back to 0.
func (g *OrderIDGenerator) Reset() { g.gen.reset() }

// PositionIDGenerator generates position ids with the "P" prefix.
type PositionIDGenerator struct {
	gen identifierGenerator
}

// NewPositionIDGenerator creates a generator bound to trader and strategy tags.
func NewPositionIDGenerator(traderTag, strategyTag string, now func() time.Time) *PositionIDGenerator {
	return &PositionIDGenerator{gen: identifierGenerator{
		prefix:      "P",
		traderTag:   traderTag,
		strategyTag: strategyTag,
		now:         now,
	}}
}

// Generate returns the next position id.
func (g *PositionIDGenerator) Generate() PositionID {
	return PositionID(g.gen.next())
}

// Reset brings the counter back to 0.
func (g *PositionIDGenerator) Reset() { g.gen.reset() }

package model

import (
	"github.com/shopspring/decimal"

	"tradesim/pkg/apperrors"
)

// MaxDecimalPrecision is the maximum number of fractional digits carried by a
// Decimal64.
const MaxDecimalPrecision = 15

// Decimal64 is a fixed-precision decimal. Equality is exact on the pair
// (value, precision); addition and subtraction are lossless, with the result
// carrying the wider of the two precisions.
type Decimal64 struct {
	value     decimal.Decimal
	precision int32
}

// NewDecimal64 creates a decimal banker-rounded to the target precision.
func NewDecimal64(value decimal.Decimal, precision int32) (Decimal64, error) {
	if precision < 0 || precision > MaxDecimalPrecision {
		return Decimal64{}, apperrors.Invalid("precision must be in [0, %d] (was %d)", MaxDecimalPrecision, precision)
	}
	return Decimal64{value: value.RoundBank(precision), precision: precision}, nil
}

// NewDecimal64FromString parses a decimal string, inferring the precision from
// the number of fractional digits.
func NewDecimal64FromString(s string) (Decimal64, error) {
	if err := apperrors.NotEmpty(s, "decimal string"); err != nil {
		return Decimal64{}, err
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal64{}, apperrors.Invalid("cannot parse decimal %q", s)
	}
	precision := int32(0)
	if exp := value.Exponent(); exp < 0 {
		precision = -exp
	}
	return NewDecimal64(value, precision)
}

// NewDecimal64FromFloat creates a decimal from a float at the given precision.
func NewDecimal64FromFloat(value float64, precision int32) (Decimal64, error) {
	return NewDecimal64(decimal.NewFromFloat(value), precision)
}

func (d Decimal64) Dec() decimal.Decimal { return d.value }
func (d Decimal64) Precision() int32     { return d.precision }
func (d Decimal64) IsZero() bool         { return d.value.IsZero() }
func (d Decimal64) Float64() float64     { f, _ := d.value.Float64(); return f }

// Eq reports exact equality on both value and precision.
func (d Decimal64) Eq(other Decimal64) bool {
	return d.precision == other.precision && d.value.Equal(other.value)
}

// Cmp compares values, ignoring precision.
func (d Decimal64) Cmp(other Decimal64) int {
	return d.value.Cmp(other.value)
}

// Add returns d + other at the wider precision.
func (d Decimal64) Add(other Decimal64) Decimal64 {
	return Decimal64{value: d.value.Add(other.value), precision: maxPrecision(d.precision, other.precision)}
}

// Sub returns d - other at the wider precision.
func (d Decimal64) Sub(other Decimal64) Decimal64 {
	return Decimal64{value: d.value.Sub(other.value), precision: maxPrecision(d.precision, other.precision)}
}

func (d Decimal64) String() string {
	return d.value.StringFixed(d.precision)
}

func maxPrecision(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Price is a non-negative decimal price.
type Price struct {
	Decimal64
}

// NewPrice creates a price banker-rounded to the target precision.
func NewPrice(value decimal.Decimal, precision int32) (Price, error) {
	d, err := NewDecimal64(value, precision)
	if err != nil {
		return Price{}, err
	}
	if d.value.IsNegative() {
		return Price{}, apperrors.Invalid("price cannot be negative (was %s)", d)
	}
	return Price{d}, nil
}

// NewPriceFromString parses a price string, inferring precision.
func NewPriceFromString(s string) (Price, error) {
	d, err := NewDecimal64FromString(s)
	if err != nil {
		return Price{}, err
	}
	if d.value.IsNegative() {
		return Price{}, apperrors.Invalid("price cannot be negative (was %s)", s)
	}
	return Price{d}, nil
}

// NewPriceFromFloat creates a price from a float at the given precision.
func NewPriceFromFloat(value float64, precision int32) (Price, error) {
	return NewPrice(decimal.NewFromFloat(value), precision)
}

// Eq reports exact equality on both value and precision.
func (p Price) Eq(other Price) bool { return p.Decimal64.Eq(other.Decimal64) }

// AddDelta returns the price shifted by delta at the price's precision.
func (p Price) AddDelta(delta decimal.Decimal) (Price, error) {
	return NewPrice(p.value.Add(delta), p.precision)
}

// Quantity is a non-negative decimal amount.
type Quantity struct {
	Decimal64
}

// NewQuantity creates a quantity banker-rounded to the target precision.
func NewQuantity(value decimal.Decimal, precision int32) (Quantity, error) {
	d, err := NewDecimal64(value, precision)
	if err != nil {
		return Quantity{}, err
	}
	if d.value.IsNegative() {
		return Quantity{}, apperrors.Invalid("quantity cannot be negative (was %s)", d)
	}
	return Quantity{d}, nil
}

// NewQuantityFromString parses a quantity string, inferring precision.
func NewQuantityFromString(s string) (Quantity, error) {
	d, err := NewDecimal64FromString(s)
	if err != nil {
		return Quantity{}, err
	}
	if d.value.IsNegative() {
		return Quantity{}, apperrors.Invalid("quantity cannot be negative (was %s)", s)
	}
	return Quantity{d}, nil
}

// QuantityZero returns a zero quantity at precision 0.
func QuantityZero() Quantity {
	return Quantity{Decimal64{value: decimal.Zero}}
}

// Eq reports exact equality on both value and precision.
func (q Quantity) Eq(other Quantity) bool { return q.Decimal64.Eq(other.Decimal64) }

// AddQty returns q + other.
func (q Quantity) AddQty(other Quantity) Quantity {
	return Quantity{q.Decimal64.Add(other.Decimal64)}
}

// SubQty returns q - other. The result must be non-negative.
func (q Quantity) SubQty(other Quantity) (Quantity, error) {
	d := q.Decimal64.Sub(other.Decimal64)
	if d.value.IsNegative() {
		return Quantity{}, apperrors.Invalid("quantity subtraction went negative (%s - %s)", q, other)
	}
	return Quantity{d}, nil
}

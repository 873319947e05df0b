package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal64_FromStringRoundTrip(t *testing.T) {
	cases := []string{"0.00", "1.2000", "1.00001", "100000", "0.001"}
	for _, s := range cases {
		d, err := NewDecimal64FromString(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, d.String(), "string form at the same precision must match")
	}
}

func TestDecimal64_PrecisionInferred(t *testing.T) {
	d, err := NewDecimal64FromString("1.20500")
	require.NoError(t, err)
	assert.Equal(t, int32(5), d.Precision())

	whole, err := NewDecimal64FromString("42")
	require.NoError(t, err)
	assert.Equal(t, int32(0), whole.Precision())
}

func TestDecimal64_PrecisionBounds(t *testing.T) {
	_, err := NewDecimal64(decimal.NewFromInt(1), 16)
	assert.Error(t, err)

	_, err = NewDecimal64(decimal.NewFromInt(1), -1)
	assert.Error(t, err)
}

func TestDecimal64_BankerRoundingOnConstruction(t *testing.T) {
	d, err := NewDecimal64(decimal.RequireFromString("1.25"), 1)
	require.NoError(t, err)
	assert.Equal(t, "1.2", d.String())

	d, err = NewDecimal64(decimal.RequireFromString("1.35"), 1)
	require.NoError(t, err)
	assert.Equal(t, "1.4", d.String())
}

func TestDecimal64_EqualityIsExactOnValueAndPrecision(t *testing.T) {
	a, _ := NewDecimal64FromString("1.20")
	b, _ := NewDecimal64FromString("1.2")
	assert.False(t, a.Eq(b), "same value at different precision is not equal")
	assert.Equal(t, 0, a.Cmp(b), "comparison ignores precision")

	c, _ := NewDecimal64FromString("1.20")
	assert.True(t, a.Eq(c))
}

func TestDecimal64_AddSubCarryWiderPrecision(t *testing.T) {
	a, _ := NewDecimal64FromString("1.2")
	b, _ := NewDecimal64FromString("0.05")
	sum := a.Add(b)
	assert.Equal(t, "1.25", sum.String())
	assert.Equal(t, int32(2), sum.Precision())

	diff := sum.Sub(b)
	assert.Equal(t, "1.20", diff.String())
}

func TestPrice_RejectsNegative(t *testing.T) {
	_, err := NewPriceFromString("-1.20")
	assert.Error(t, err)

	_, err = NewPrice(decimal.NewFromFloat(-0.5), 2)
	assert.Error(t, err)
}

func TestQuantity_RejectsNegative(t *testing.T) {
	_, err := NewQuantityFromString("-100")
	assert.Error(t, err)
}

func TestQuantity_SubQty(t *testing.T) {
	a, _ := NewQuantityFromString("100")
	b, _ := NewQuantityFromString("40")
	leaves, err := a.SubQty(b)
	require.NoError(t, err)
	assert.Equal(t, "60", leaves.String())

	_, err = b.SubQty(a)
	assert.Error(t, err, "negative quantities are rejected")
}

func TestMoney_CurrencyTagAndPrecision(t *testing.T) {
	m, err := NewMoneyFromString("1234.56", USD)
	require.NoError(t, err)
	assert.Equal(t, USD, m.Currency())
	assert.Equal(t, "1234.56 USD", m.String())

	yen, err := NewMoneyFromString("1000", JPY)
	require.NoError(t, err)
	assert.Equal(t, "1000 JPY", yen.String())
}

func TestMoney_ArithmeticAssertsCurrency(t *testing.T) {
	usd, _ := NewMoneyFromString("10.00", USD)
	aud, _ := NewMoneyFromString("10.00", AUD)

	_, err := usd.Add(aud)
	assert.Error(t, err)

	sum, err := usd.Add(usd)
	require.NoError(t, err)
	assert.Equal(t, "20.00 USD", sum.String())
}

func TestCurrency_ParseRoundTrip(t *testing.T) {
	for _, c := range []Currency{AUD, CAD, CHF, EUR, GBP, JPY, NZD, USD} {
		parsed, err := ParseCurrency(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err := ParseCurrency("XXX")
	assert.Error(t, err)
}

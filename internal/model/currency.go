package model

import (
	"github.com/shopspring/decimal"

	"tradesim/pkg/apperrors"
)

// Currency is an ISO-4217 currency code.
type Currency uint8

const (
	CurrencyUndefined Currency = iota
	AUD
	CAD
	CHF
	EUR
	GBP
	JPY
	NZD
	USD
)

var currencyNames = map[Currency]string{
	AUD: "AUD",
	CAD: "CAD",
	CHF: "CHF",
	EUR: "EUR",
	GBP: "GBP",
	JPY: "JPY",
	NZD: "NZD",
	USD: "USD",
}

func (c Currency) String() string {
	if name, ok := currencyNames[c]; ok {
		return name
	}
	return "UNDEFINED"
}

// Precision returns the number of fractional digits carried by money amounts
// in this currency.
func (c Currency) Precision() int32 {
	if c == JPY {
		return 0
	}
	return 2
}

// ParseCurrency parses an uppercase currency name.
func ParseCurrency(s string) (Currency, error) {
	for c, name := range currencyNames {
		if name == s {
			return c, nil
		}
	}
	return CurrencyUndefined, apperrors.Invalid("unknown currency %q", s)
}

// Money is a decimal amount tagged with a currency. Amounts are banker-rounded
// to the currency precision on construction.
type Money struct {
	value    Decimal64
	currency Currency
}

// NewMoney creates a money amount in the given currency.
func NewMoney(value decimal.Decimal, currency Currency) (Money, error) {
	if currency == CurrencyUndefined {
		return Money{}, apperrors.Invalid("money currency is undefined")
	}
	d, err := NewDecimal64(value, currency.Precision())
	if err != nil {
		return Money{}, err
	}
	return Money{value: d, currency: currency}, nil
}

// NewMoneyFromString parses a money amount at the currency precision.
func NewMoneyFromString(s string, currency Currency) (Money, error) {
	value, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, apperrors.Invalid("cannot parse money %q", s)
	}
	return NewMoney(value, currency)
}

// MoneyZero returns a zero amount in the given currency.
func MoneyZero(currency Currency) Money {
	m, _ := NewMoney(decimal.Zero, currency)
	return m
}

func (m Money) Dec() decimal.Decimal { return m.value.Dec() }
func (m Money) Currency() Currency   { return m.currency }
func (m Money) IsZero() bool         { return m.value.IsZero() }

// Eq reports equality of amount and currency.
func (m Money) Eq(other Money) bool {
	return m.currency == other.currency && m.value.Eq(other.value)
}

// Add returns m + other. The currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, apperrors.Invalid("currency mismatch (%s vs %s)", m.currency, other.currency)
	}
	return NewMoney(m.value.Dec().Add(other.value.Dec()), m.currency)
}

// Sub returns m - other. The currencies must match.
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, apperrors.Invalid("currency mismatch (%s vs %s)", m.currency, other.currency)
	}
	return NewMoney(m.value.Dec().Sub(other.value.Dec()), m.currency)
}

func (m Money) String() string {
	return m.value.String() + " " + m.currency.String()
}

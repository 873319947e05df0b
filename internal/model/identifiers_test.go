package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifiers_RejectEmpty(t *testing.T) {
	_, err := NewTraderID("")
	assert.Error(t, err)
	_, err = NewStrategyID("")
	assert.Error(t, err)
	_, err = NewOrderID("")
	assert.Error(t, err)
	_, err = NewPositionID("")
	assert.Error(t, err)
	_, err = NewAccountID("")
	assert.Error(t, err)
	_, err = NewExecutionID("")
	assert.Error(t, err)
}

func TestIdentifiers_ValueEquality(t *testing.T) {
	a, err := NewOrderID("O-1")
	require.NoError(t, err)
	b, err := NewOrderID("O-1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, a == b)
}

func TestSymbol_String(t *testing.T) {
	symbol, err := NewSymbol("AUDUSD", "FXCM")
	require.NoError(t, err)
	assert.Equal(t, "AUDUSD.FXCM", symbol.String())
}

func TestSymbol_ParseRoundTrip(t *testing.T) {
	symbol, err := NewSymbol("gbpusd", "fxcm")
	require.NoError(t, err)
	assert.Equal(t, "GBPUSD.FXCM", symbol.String())

	parsed, err := ParseSymbol(symbol.String())
	require.NoError(t, err)
	assert.Equal(t, symbol, parsed)
}

func TestSymbol_ParseRejectsBadForm(t *testing.T) {
	_, err := ParseSymbol("AUDUSD")
	assert.Error(t, err)

	_, err = NewSymbol("", "FXCM")
	assert.Error(t, err)
}

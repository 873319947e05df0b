package model

import (
	"strings"

	"tradesim/pkg/apperrors"
)

// Identifier types are value-compared typed strings. Construction through the
// New* functions guarantees a non-empty value; the insertion-time string is
// preserved for serialization round-trips.

type (
	TraderID         string
	StrategyID       string
	AccountID        string
	OrderID          string
	OrderIDBroker    string
	PositionID       string
	PositionIDBroker string
	ExecutionID      string
	ClientID         string
	ServerID         string
	SessionID        string
)

func NewTraderID(value string) (TraderID, error) {
	if err := apperrors.NotEmpty(value, "trader id"); err != nil {
		return "", err
	}
	return TraderID(value), nil
}

func NewStrategyID(value string) (StrategyID, error) {
	if err := apperrors.NotEmpty(value, "strategy id"); err != nil {
		return "", err
	}
	return StrategyID(value), nil
}

func NewAccountID(value string) (AccountID, error) {
	if err := apperrors.NotEmpty(value, "account id"); err != nil {
		return "", err
	}
	return AccountID(value), nil
}

func NewOrderID(value string) (OrderID, error) {
	if err := apperrors.NotEmpty(value, "order id"); err != nil {
		return "", err
	}
	return OrderID(value), nil
}

func NewOrderIDBroker(value string) (OrderIDBroker, error) {
	if err := apperrors.NotEmpty(value, "broker order id"); err != nil {
		return "", err
	}
	return OrderIDBroker(value), nil
}

func NewPositionID(value string) (PositionID, error) {
	if err := apperrors.NotEmpty(value, "position id"); err != nil {
		return "", err
	}
	return PositionID(value), nil
}

func NewPositionIDBroker(value string) (PositionIDBroker, error) {
	if err := apperrors.NotEmpty(value, "broker position id"); err != nil {
		return "", err
	}
	return PositionIDBroker(value), nil
}

func NewExecutionID(value string) (ExecutionID, error) {
	if err := apperrors.NotEmpty(value, "execution id"); err != nil {
		return "", err
	}
	return ExecutionID(value), nil
}

func NewClientID(value string) (ClientID, error) {
	if err := apperrors.NotEmpty(value, "client id"); err != nil {
		return "", err
	}
	return ClientID(value), nil
}

func NewServerID(value string) (ServerID, error) {
	if err := apperrors.NotEmpty(value, "server id"); err != nil {
		return "", err
	}
	return ServerID(value), nil
}

func NewSessionID(value string) (SessionID, error) {
	if err := apperrors.NotEmpty(value, "session id"); err != nil {
		return "", err
	}
	return SessionID(value), nil
}

// Symbol identifies a tradable instrument on a venue.
type Symbol struct {
	Code  string
	Venue string
}

// NewSymbol creates a symbol from an instrument code and a venue name.
func NewSymbol(code, venue string) (Symbol, error) {
	if err := apperrors.NotEmpty(code, "symbol code"); err != nil {
		return Symbol{}, err
	}
	if err := apperrors.NotEmpty(venue, "symbol venue"); err != nil {
		return Symbol{}, err
	}
	return Symbol{Code: strings.ToUpper(code), Venue: strings.ToUpper(venue)}, nil
}

// ParseSymbol parses the "CODE.VENUE" form produced by String.
func ParseSymbol(value string) (Symbol, error) {
	code, venue, ok := strings.Cut(value, ".")
	if !ok {
		return Symbol{}, apperrors.Invalid("symbol must be CODE.VENUE (was %q)", value)
	}
	return NewSymbol(code, venue)
}

func (s Symbol) String() string {
	return s.Code + "." + s.Venue
}

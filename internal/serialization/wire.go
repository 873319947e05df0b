package serialization

import (
	"fmt"

	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
)

// Order side and type are carried CamelCase on the wire, upper-snake
// internally.

func sideToWire(side model.OrderSide) string {
	switch side {
	case model.Buy:
		return "Buy"
	case model.Sell:
		return "Sell"
	default:
		return "Undefined"
	}
}

func sideFromWire(value string) (model.OrderSide, error) {
	switch value {
	case "Buy":
		return model.Buy, nil
	case "Sell":
		return model.Sell, nil
	default:
		return model.OrderSideUndefined, fmt.Errorf("%w: unknown order side %q", apperrors.ErrSerialization, value)
	}
}

func typeToWire(orderType model.OrderType) string {
	switch orderType {
	case model.Market:
		return "Market"
	case model.Limit:
		return "Limit"
	case model.Stop:
		return "Stop"
	default:
		return "Undefined"
	}
}

func typeFromWire(value string) (model.OrderType, error) {
	switch value {
	case "Market":
		return model.Market, nil
	case "Limit":
		return model.Limit, nil
	case "Stop":
		return model.Stop, nil
	default:
		return model.OrderTypeUndefined, fmt.Errorf("%w: unknown order type %q", apperrors.ErrSerialization, value)
	}
}

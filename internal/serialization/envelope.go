// Package serialization implements the wire envelope: a binary map format
// with string keys and UTF-8 byte values, plus the command, event and order
// serializers and the frame compressors.
package serialization

// Message envelope labels. Every serialized object is a map keyed by this
// fixed label set.
const (
	LabelType                  = "Type"
	LabelID                    = "Id"
	LabelTimestamp             = "Timestamp"
	LabelCorrelationID         = "CorrelationId"
	LabelTraderID              = "TraderId"
	LabelAccountID             = "AccountId"
	LabelStrategyID            = "StrategyId"
	LabelPositionID            = "PositionId"
	LabelOrderID               = "OrderId"
	LabelOrderIDBroker         = "OrderIdBroker"
	LabelPositionIDBroker      = "PositionIdBroker"
	LabelExecutionID           = "ExecutionId"
	LabelSymbol                = "Symbol"
	LabelOrderSide             = "OrderSide"
	LabelOrderType             = "OrderType"
	LabelQuantity              = "Quantity"
	LabelPrice                 = "Price"
	LabelTimeInForce           = "TimeInForce"
	LabelExpireTime            = "ExpireTime"
	LabelInitID                = "InitId"
	LabelOrder                 = "Order"
	LabelEntry                 = "Entry"
	LabelStopLoss              = "StopLoss"
	LabelTakeProfit            = "TakeProfit"
	LabelModifiedQuantity      = "ModifiedQuantity"
	LabelModifiedPrice         = "ModifiedPrice"
	LabelCurrency              = "Currency"
	LabelCashBalance           = "CashBalance"
	LabelCashStartDay          = "CashStartDay"
	LabelCashActivityDay       = "CashActivityDay"
	LabelMarginUsedLiquidation = "MarginUsedLiquidation"
	LabelMarginUsedMaintenance = "MarginUsedMaintenance"
	LabelMarginRatio           = "MarginRatio"
	LabelMarginCallStatus      = "MarginCallStatus"
	LabelSubmittedTime         = "SubmittedTime"
	LabelAcceptedTime          = "AcceptedTime"
	LabelRejectedTime          = "RejectedTime"
	LabelRejectedReason        = "RejectedReason"
	LabelRejectedResponseTo    = "RejectedResponseTo"
	LabelDeniedReason          = "DeniedReason"
	LabelInvalidReason         = "InvalidReason"
	LabelWorkingTime           = "WorkingTime"
	LabelCancelledTime         = "CancelledTime"
	LabelExpiredTime           = "ExpiredTime"
	LabelModifiedTime          = "ModifiedTime"
	LabelFilledQuantity        = "FilledQuantity"
	LabelLeavesQuantity        = "LeavesQuantity"
	LabelAveragePrice          = "AveragePrice"
	LabelExecutionTime         = "ExecutionTime"
	LabelClientID              = "ClientId"
	LabelServerID              = "ServerId"
	LabelSessionID             = "SessionId"
	LabelAuthentication        = "Authentication"
	LabelQuery                 = "Query"
	LabelData                  = "Data"
	LabelDataType              = "DataType"
	LabelDataEncoding          = "DataEncoding"
	LabelMessage               = "Message"
	LabelReceivedType          = "ReceivedType"
	LabelLogLevel              = "LogLevel"
	LabelLogText               = "LogText"
	LabelThreadID              = "ThreadId"
	LabelCancelReason          = "CancelReason"
)

// Header labels for the framed transport.
const (
	LabelMessageType = "MessageType"
)

// MessageType values carried in frame headers.
const (
	MessageTypeString   = "String"
	MessageTypeRequest  = "Request"
	MessageTypeResponse = "Response"
)

// None marks an absent optional value on the wire.
const None = "NONE"

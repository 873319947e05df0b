package live

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradesim/internal/model"
	"tradesim/internal/serialization"
	"tradesim/pkg/apperrors"
)

// Session handshake messages.

// Connect is sent by the client to open a session.
type Connect struct {
	ClientID       model.ClientID
	Authentication string
	ID             uuid.UUID
	Timestamp      time.Time
}

// Connected is the server reply; CorrelationID echoes the Connect id.
type Connected struct {
	Message       string
	ServerID      model.ServerID
	SessionID     model.SessionID
	CorrelationID uuid.UUID
	ID            uuid.UUID
	Timestamp     time.Time
}

// Disconnect is sent by the client to close a session.
type Disconnect struct {
	ClientID  model.ClientID
	SessionID model.SessionID
	ID        uuid.UUID
	Timestamp time.Time
}

// Disconnected is the server reply to a Disconnect.
type Disconnected struct {
	Message       string
	ServerID      model.ServerID
	SessionID     model.SessionID
	CorrelationID uuid.UUID
	ID            uuid.UUID
	Timestamp     time.Time
}

// Message type names.
const (
	typeConnect      = "Connect"
	typeConnected    = "Connected"
	typeDisconnect   = "Disconnect"
	typeDisconnected = "Disconnected"
)

// SerializeConnect encodes a Connect request.
func SerializeConnect(msg Connect) []byte {
	return serialization.NewMapWriter().
		PutString(serialization.LabelType, typeConnect).
		PutString(serialization.LabelClientID, string(msg.ClientID)).
		PutString(serialization.LabelAuthentication, msg.Authentication).
		PutString(serialization.LabelID, msg.ID.String()).
		PutTime(serialization.LabelTimestamp, msg.Timestamp).
		Bytes()
}

// DeserializeConnected decodes a Connected response.
func DeserializeConnected(data []byte) (Connected, error) {
	r, err := serialization.NewMapReader(data)
	if err != nil {
		return Connected{}, err
	}
	typeName, err := r.String(serialization.LabelType)
	if err != nil {
		return Connected{}, err
	}
	if typeName != typeConnected {
		return Connected{}, fmt.Errorf("%w: expected Connected (was %s)", apperrors.ErrSerialization, typeName)
	}
	message, err := r.String(serialization.LabelMessage)
	if err != nil {
		return Connected{}, err
	}
	serverID, err := r.String(serialization.LabelServerID)
	if err != nil {
		return Connected{}, err
	}
	sessionID, err := r.String(serialization.LabelSessionID)
	if err != nil {
		return Connected{}, err
	}
	correlation, err := readUUID(r, serialization.LabelCorrelationID)
	if err != nil {
		return Connected{}, err
	}
	id, err := readUUID(r, serialization.LabelID)
	if err != nil {
		return Connected{}, err
	}
	timestamp, err := r.Time(serialization.LabelTimestamp)
	if err != nil {
		return Connected{}, err
	}
	return Connected{
		Message:       message,
		ServerID:      model.ServerID(serverID),
		SessionID:     model.SessionID(sessionID),
		CorrelationID: correlation,
		ID:            id,
		Timestamp:     timestamp,
	}, nil
}

// SerializeConnected encodes a Connected response (used by test servers).
func SerializeConnected(msg Connected) []byte {
	return serialization.NewMapWriter().
		PutString(serialization.LabelType, typeConnected).
		PutString(serialization.LabelMessage, msg.Message).
		PutString(serialization.LabelServerID, string(msg.ServerID)).
		PutString(serialization.LabelSessionID, string(msg.SessionID)).
		PutString(serialization.LabelCorrelationID, msg.CorrelationID.String()).
		PutString(serialization.LabelID, msg.ID.String()).
		PutTime(serialization.LabelTimestamp, msg.Timestamp).
		Bytes()
}

// SerializeDisconnect encodes a Disconnect request.
func SerializeDisconnect(msg Disconnect) []byte {
	return serialization.NewMapWriter().
		PutString(serialization.LabelType, typeDisconnect).
		PutString(serialization.LabelClientID, string(msg.ClientID)).
		PutString(serialization.LabelSessionID, string(msg.SessionID)).
		PutString(serialization.LabelID, msg.ID.String()).
		PutTime(serialization.LabelTimestamp, msg.Timestamp).
		Bytes()
}

// DeserializeDisconnected decodes a Disconnected response.
func DeserializeDisconnected(data []byte) (Disconnected, error) {
	r, err := serialization.NewMapReader(data)
	if err != nil {
		return Disconnected{}, err
	}
	typeName, err := r.String(serialization.LabelType)
	if err != nil {
		return Disconnected{}, err
	}
	if typeName != typeDisconnected {
		return Disconnected{}, fmt.Errorf("%w: expected Disconnected (was %s)", apperrors.ErrSerialization, typeName)
	}
	message, err := r.String(serialization.LabelMessage)
	if err != nil {
		return Disconnected{}, err
	}
	serverID, err := r.String(serialization.LabelServerID)
	if err != nil {
		return Disconnected{}, err
	}
	sessionID, err := r.String(serialization.LabelSessionID)
	if err != nil {
		return Disconnected{}, err
	}
	correlation, err := readUUID(r, serialization.LabelCorrelationID)
	if err != nil {
		return Disconnected{}, err
	}
	id, err := readUUID(r, serialization.LabelID)
	if err != nil {
		return Disconnected{}, err
	}
	timestamp, err := r.Time(serialization.LabelTimestamp)
	if err != nil {
		return Disconnected{}, err
	}
	return Disconnected{
		Message:       message,
		ServerID:      model.ServerID(serverID),
		SessionID:     model.SessionID(sessionID),
		CorrelationID: correlation,
		ID:            id,
		Timestamp:     timestamp,
	}, nil
}

func readUUID(r *serialization.MapReader, label string) (uuid.UUID, error) {
	value, err := r.String(label)
	if err != nil {
		return uuid.UUID{}, err
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("%w: bad uuid under %s", apperrors.ErrSerialization, label)
	}
	return id, nil
}

// Frame packing: a message is [header, body], both compressed individually
// and length-prefixed.

// EncodeFrame packs a compressed header and body into one transport frame.
func EncodeFrame(header, body []byte) []byte {
	buf := binary.AppendUvarint(nil, uint64(len(header)))
	buf = append(buf, header...)
	buf = binary.AppendUvarint(buf, uint64(len(body)))
	buf = append(buf, body...)
	return buf
}

// DecodeFrame unpacks a transport frame into header and body.
func DecodeFrame(data []byte) (header, body []byte, err error) {
	headerLen, n := binary.Uvarint(data)
	if n <= 0 || int(headerLen)+n > len(data) {
		return nil, nil, fmt.Errorf("%w: bad frame header", apperrors.ErrSerialization)
	}
	header = data[n : n+int(headerLen)]
	rest := data[n+int(headerLen):]
	bodyLen, m := binary.Uvarint(rest)
	if m <= 0 || int(bodyLen)+m > len(rest) {
		return nil, nil, fmt.Errorf("%w: bad frame body", apperrors.ErrSerialization)
	}
	body = rest[m : m+int(bodyLen)]
	return header, body, nil
}

package serialization

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"tradesim/pkg/apperrors"
)

// EncodeMap encodes a string-keyed map as length-prefixed UTF-8 entries.
// Keys are written in sorted order so equal maps encode byte-identically.
func EncodeMap(entries map[string][]byte) []byte {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buf := binary.AppendUvarint(nil, uint64(len(entries)))
	for _, key := range keys {
		buf = binary.AppendUvarint(buf, uint64(len(key)))
		buf = append(buf, key...)
		value := entries[key]
		buf = binary.AppendUvarint(buf, uint64(len(value)))
		buf = append(buf, value...)
	}
	return buf
}

// DecodeMap decodes data produced by EncodeMap.
func DecodeMap(data []byte) (map[string][]byte, error) {
	count, offset := binary.Uvarint(data)
	if offset <= 0 {
		return nil, fmt.Errorf("%w: bad map header", apperrors.ErrSerialization)
	}
	entries := make(map[string][]byte, count)
	for i := uint64(0); i < count; i++ {
		key, next, err := readChunk(data, offset)
		if err != nil {
			return nil, err
		}
		value, after, err := readChunk(data, next)
		if err != nil {
			return nil, err
		}
		entries[string(key)] = value
		offset = after
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", apperrors.ErrSerialization, len(data)-offset)
	}
	return entries, nil
}

func readChunk(data []byte, offset int) ([]byte, int, error) {
	if offset >= len(data) {
		return nil, 0, fmt.Errorf("%w: truncated map", apperrors.ErrSerialization)
	}
	length, n := binary.Uvarint(data[offset:])
	if n <= 0 {
		return nil, 0, fmt.Errorf("%w: bad length prefix", apperrors.ErrSerialization)
	}
	start := offset + n
	end := start + int(length)
	if end > len(data) {
		return nil, 0, fmt.Errorf("%w: truncated value", apperrors.ErrSerialization)
	}
	return data[start:end], end, nil
}

// MapWriter accumulates envelope entries.
type MapWriter struct {
	entries map[string][]byte
}

// NewMapWriter creates an empty writer.
func NewMapWriter() *MapWriter {
	return &MapWriter{entries: make(map[string][]byte)}
}

// PutString stores a string value under the label.
func (w *MapWriter) PutString(label, value string) *MapWriter {
	w.entries[label] = []byte(value)
	return w
}

// PutBytes stores a raw value under the label.
func (w *MapWriter) PutBytes(label string, value []byte) *MapWriter {
	w.entries[label] = value
	return w
}

// PutTime stores a formatted timestamp under the label.
func (w *MapWriter) PutTime(label string, value time.Time) *MapWriter {
	return w.PutString(label, FormatTimestamp(value))
}

// PutOptionalTime stores a timestamp, or NONE when absent.
func (w *MapWriter) PutOptionalTime(label string, value *time.Time) *MapWriter {
	if value == nil {
		return w.PutString(label, None)
	}
	return w.PutTime(label, *value)
}

// Bytes encodes the accumulated entries.
func (w *MapWriter) Bytes() []byte {
	return EncodeMap(w.entries)
}

// MapReader reads envelope entries with presence checks.
type MapReader struct {
	entries map[string][]byte
}

// NewMapReader decodes data into a reader.
func NewMapReader(data []byte) (*MapReader, error) {
	entries, err := DecodeMap(data)
	if err != nil {
		return nil, err
	}
	return &MapReader{entries: entries}, nil
}

// String returns the value under the label.
func (r *MapReader) String(label string) (string, error) {
	value, ok := r.entries[label]
	if !ok {
		return "", fmt.Errorf("%w: missing label %s", apperrors.ErrSerialization, label)
	}
	return string(value), nil
}

// Bytes returns the raw value under the label.
func (r *MapReader) Bytes(label string) ([]byte, error) {
	value, ok := r.entries[label]
	if !ok {
		return nil, fmt.Errorf("%w: missing label %s", apperrors.ErrSerialization, label)
	}
	return value, nil
}

// Time parses the timestamp under the label.
func (r *MapReader) Time(label string) (time.Time, error) {
	value, err := r.String(label)
	if err != nil {
		return time.Time{}, err
	}
	return ParseTimestamp(value)
}

// OptionalTime parses the timestamp under the label, or nil for NONE.
func (r *MapReader) OptionalTime(label string) (*time.Time, error) {
	value, err := r.String(label)
	if err != nil {
		return nil, err
	}
	if value == None {
		return nil, nil
	}
	ts, err := ParseTimestamp(value)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// FormatTimestamp renders an ISO-8601 UTC timestamp. Millisecond form is used
// unless the value carries sub-millisecond precision, which keeps microsecond
// timestamps round-trippable.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()%int(time.Millisecond) == 0 {
		return t.Format("2006-01-02T15:04:05.000Z")
	}
	return t.Format("2006-01-02T15:04:05.000000Z")
}

// ParseTimestamp parses the forms produced by FormatTimestamp.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", apperrors.ErrSerialization, value)
	}
	return t.UTC(), nil
}

package serialization

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"tradesim/pkg/apperrors"
)

// Compressor compresses wire frames. Both frames of a message are compressed
// individually.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// BypassCompressor passes frames through unchanged.
type BypassCompressor struct{}

func (BypassCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (BypassCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

// LZ4Compressor compresses frames with the LZ4 frame format.
type LZ4Compressor struct{}

func (LZ4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: lz4 compress: %v", apperrors.ErrSerialization, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: lz4 close: %v", apperrors.ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

func (LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decompress: %v", apperrors.ErrSerialization, err)
	}
	return out, nil
}

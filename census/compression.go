package census

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how a census body is stored.
type Compression uint8

const (
	// CompressionNone stores the body as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// blockHeaderSize covers [uncompressed uint32][stored uint32].
const blockHeaderSize = 8

// compressBlock returns data framed with a block header. The body is stored raw when
// compression is off or does not save at least 10%.
func compressBlock(data []byte, c Compression) ([]byte, error) {
	var compressed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}

	stored := data
	if len(compressed) > 0 && float64(len(compressed)) <= float64(len(data))*0.9 {
		stored = compressed
	} else {
		compressed = nil
	}

	out := make([]byte, blockHeaderSize+len(stored))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[blockHeaderSize:], stored)
	return out, nil
}

// decompressBlock reverses compressBlock.
func decompressBlock(block []byte, c Compression) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, fmt.Errorf("%w: block too small for header", ErrInvalidFormat)
	}
	size := binary.LittleEndian.Uint32(block[0:])
	stored := binary.LittleEndian.Uint32(block[4:])
	body := block[blockHeaderSize:]

	if stored == 0 {
		if uint32(len(body)) != size {
			return nil, fmt.Errorf("%w: body is %d bytes, header says %d", ErrInvalidFormat, len(body), size)
		}
		return body, nil
	}
	if uint32(len(body)) != stored {
		return nil, fmt.Errorf("%w: compressed body is %d bytes, header says %d", ErrInvalidFormat, len(body), stored)
	}

	out := make([]byte, size)
	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		out = out[:n]
	case CompressionZSTD:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(body, out[:0])
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		out = decoded
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}

	if uint32(len(out)) != size {
		return nil, errors.New("census: decompressed size mismatch")
	}
	return out, nil
}

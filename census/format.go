package census

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/cyclegc/codec"
	"github.com/hupe1980/cyclegc/resource"
)

const (
	magic   = "CGCS"
	version = 1
)

// Option configures Write.
type Option func(*writeOptions)

type writeOptions struct {
	compression Compression
	codec       codec.Codec
	controller  *resource.Controller
}

// WithCompression selects the body compression. The default is zstd.
func WithCompression(c Compression) Option {
	return func(o *writeOptions) {
		o.compression = c
	}
}

// WithCodec selects the body codec. The default is codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *writeOptions) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithController makes Write take a background slot from rc for its duration and
// throttle its output to rc's IO limit.
func WithController(rc *resource.Controller) Option {
	return func(o *writeOptions) {
		o.controller = rc
	}
}

// Write encodes cen to w.
func Write(ctx context.Context, w io.Writer, cen *Census, opts ...Option) error {
	o := writeOptions{
		compression: CompressionZSTD,
		codec:       codec.Default,
	}
	for _, opt := range opts {
		opt(&o)
	}

	name := o.codec.Name()
	if len(name) > 255 {
		return fmt.Errorf("census: codec name %q too long", name)
	}

	body, err := o.codec.Marshal(cen)
	if err != nil {
		return fmt.Errorf("census: encode with %s: %w", name, err)
	}
	block, err := compressBlock(body, o.compression)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Grow(len(magic) + 3 + len(name) + len(block))
	buf.WriteString(magic)
	buf.WriteByte(version)
	buf.WriteByte(byte(o.compression))
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.Write(block)

	if o.controller != nil {
		if err := o.controller.AcquireBackground(ctx); err != nil {
			return err
		}
		defer o.controller.ReleaseBackground()
		w = resource.NewRateLimitedWriter(ctx, w, o.controller)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("census: write: %w", err)
	}
	return nil
}

// Read decodes a census written by Write.
func Read(r io.Reader) (*Census, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("census: read: %w", err)
	}

	const fixed = len(magic) + 3
	if len(data) < fixed || string(data[:len(magic)]) != magic {
		return nil, ErrInvalidFormat
	}
	if v := data[len(magic)]; v != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	compression := Compression(data[len(magic)+1])
	if compression > CompressionZSTD {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, compression)
	}
	nameLen := int(data[len(magic)+2])
	if len(data) < fixed+nameLen {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidFormat)
	}
	name := string(data[fixed : fixed+nameLen])
	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}

	body, err := decompressBlock(data[fixed+nameLen:], compression)
	if err != nil {
		return nil, err
	}

	cen := &Census{}
	if err := c.Unmarshal(body, cen); err != nil {
		return nil, fmt.Errorf("census: decode with %s: %w", name, err)
	}
	return cen, nil
}

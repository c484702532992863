package census

import "errors"

var (
	// ErrInvalidFormat is returned for input that is not a census.
	ErrInvalidFormat = errors.New("census: invalid format")
	// ErrUnsupportedVersion is returned for a census written by a newer format version.
	ErrUnsupportedVersion = errors.New("census: unsupported version")
	// ErrUnknownCodec is returned when the codec named in the header is not built in.
	ErrUnknownCodec = errors.New("census: unknown codec")
	// ErrUnknownCompression is returned for an unknown compression byte.
	ErrUnknownCompression = errors.New("census: unknown compression")
)

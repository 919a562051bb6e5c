package streamseg

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrUnsupportedLanguage indicates no rule set matches the language code.
	ErrUnsupportedLanguage = errors.New("streamseg: unsupported language")

	// ErrInvalidOptions indicates a lookahead or buffer size out of range.
	ErrInvalidOptions = errors.New("streamseg: invalid options")

	// ErrBufferOverflow indicates a chunk would grow the buffer past its
	// maximum size. The buffer is left unchanged.
	ErrBufferOverflow = errors.New("streamseg: buffer overflow")

	// ErrDecoding indicates a chunk is not valid UTF-8.
	ErrDecoding = errors.New("streamseg: invalid UTF-8")

	// ErrIO indicates reading the source failed. Streams stop on it.
	ErrIO = errors.New("streamseg: read failed")

	// ErrSegmentation indicates the language rules failed to decide a
	// boundary.
	ErrSegmentation = errors.New("streamseg: segmentation failed")
)

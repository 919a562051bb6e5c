package streamseg

import (
	"log/slog"

	"github.com/jamesainslie/go-streamseg/rules"
)

const (
	// DefaultLookahead is the number of characters that must follow a
	// boundary before it is trusted.
	DefaultLookahead = 10

	// DefaultMaxBuffer is the largest number of characters held while
	// waiting for a boundary.
	DefaultMaxBuffer = 8192

	// DefaultLanguage is the language code used when none is given.
	DefaultLanguage = "en"

	// DefaultChunkSize is the number of bytes a Stream reads at a time.
	DefaultChunkSize = 4096
)

// Options are the resolved segmentation parameters.
type Options struct {
	// Lookahead is the minimum number of characters required after a
	// boundary before it is emitted. Zero emits boundaries immediately.
	Lookahead int
	// MaxBuffer caps the number of buffered characters.
	MaxBuffer int
	// Language selects the rule set.
	Language string
}

// DefaultOptions returns the default parameters.
func DefaultOptions() Options {
	return Options{
		Lookahead: DefaultLookahead,
		MaxBuffer: DefaultMaxBuffer,
		Language:  DefaultLanguage,
	}
}

// Option configures a Segmenter and the streams it drives.
type Option func(*config)

type config struct {
	Options
	provider rules.Provider
	logger   *slog.Logger
	stream   []StreamOption
}

func defaultConfig() config {
	return config{
		Options:  DefaultOptions(),
		provider: rules.Builtin(),
		logger:   slog.Default(),
	}
}

// WithLookahead sets the lookahead in characters (default: 10).
func WithLookahead(n int) Option {
	return func(c *config) {
		c.Lookahead = n
	}
}

// WithMaxBuffer sets the buffer cap in characters (default: 8192).
func WithMaxBuffer(n int) Option {
	return func(c *config) {
		c.MaxBuffer = n
	}
}

// WithLanguage sets the language code (default: "en").
func WithLanguage(code string) Option {
	return func(c *config) {
		c.Language = code
	}
}

// WithOptions replaces all segmentation parameters at once.
func WithOptions(o Options) Option {
	return func(c *config) {
		c.Options = o
	}
}

// WithProvider sets the language rule provider (default: rules.Builtin()).
func WithProvider(p rules.Provider) Option {
	return func(c *config) {
		if p != nil {
			c.provider = p
		}
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStream sets the StreamOptions used by Sentences. New ignores them.
func WithStream(opts ...StreamOption) Option {
	return func(c *config) {
		c.stream = append(c.stream, opts...)
	}
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithChunkSize sets how many bytes a Stream reads at a time (default: 4096).
func WithChunkSize(n int) StreamOption {
	return func(st *Stream) {
		if n > 0 {
			st.chunkSize = n
		}
	}
}

// WithRuneCarry makes a Stream hold back a multi-byte character split
// across two reads instead of reporting ErrDecoding for both chunks
// (default: false).
func WithRuneCarry(on bool) StreamOption {
	return func(st *Stream) {
		st.runeCarry = on
	}
}

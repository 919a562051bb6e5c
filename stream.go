package streamseg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"unicode/utf8"
)

// result is one queued item of a Stream: a sentence or an error.
type result struct {
	sentence string
	err      error
}

// Stream drives a Segmenter from a byte source. Each call to Next performs
// at most one read.
//
// Read failures end the stream without flushing. Invalid UTF-8, buffer
// overflows and segmentation failures are returned for the chunk that
// caused them, and the stream moves on to the next chunk.
type Stream struct {
	seg       *Segmenter
	r         io.Reader
	chunk     []byte
	chunkSize int
	runeCarry bool

	carry  []byte // incomplete trailing character, with rune carry enabled
	queue  []result
	chunks int   // chunks read so far
	read   int64 // bytes read so far
	done   bool
}

// NewStream returns a Stream feeding seg from r.
func NewStream(r io.Reader, seg *Segmenter, opts ...StreamOption) *Stream {
	st := &Stream{
		seg:       seg,
		r:         r,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(st)
	}
	st.chunk = make([]byte, st.chunkSize)
	return st
}

// Next returns the next sentence, or an error for the current chunk. It
// returns io.EOF once the source is exhausted and the final sentence has
// been returned.
func (st *Stream) Next(ctx context.Context) (string, error) {
	for {
		if len(st.queue) > 0 {
			res := st.queue[0]
			st.queue = st.queue[1:]
			return res.sentence, res.err
		}
		if st.done {
			return "", io.EOF
		}
		if err := ctx.Err(); err != nil {
			st.done = true
			return "", err
		}
		st.fill()
	}
}

// All returns the remaining sentences as a single-use sequence. Breaking
// out of the loop abandons the stream.
func (st *Stream) All(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			sentence, err := st.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(sentence, err) {
				return
			}
		}
	}
}

// Sentences segments r with a new Segmenter built from opts. Stream
// settings are passed with WithStream. If the Segmenter cannot be created,
// the error is the only item of the sequence.
func Sentences(ctx context.Context, r io.Reader, opts ...Option) iter.Seq2[string, error] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	seg, err := newFromConfig(cfg)
	if err != nil {
		return func(yield func(string, error) bool) {
			yield("", err)
		}
	}
	return NewStream(r, seg, cfg.stream...).All(ctx)
}

// fill performs one read and queues what it produced.
func (st *Stream) fill() {
	n, err := st.r.Read(st.chunk)
	if n > 0 {
		st.process(st.chunk[:n])
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		st.finish()
	default:
		st.seg.logger.Debug("stream read failed", "chunks", st.chunks, "bytes", st.read, "error", err)
		st.push(result{err: fmt.Errorf("%w: %w", ErrIO, err)})
		st.done = true
	}
}

// process validates and feeds one chunk.
func (st *Stream) process(b []byte) {
	st.chunks++
	start := st.read - int64(len(st.carry))
	st.read += int64(len(b))

	data := b
	if len(st.carry) > 0 {
		data = append(st.carry, b...)
		st.carry = nil
	}
	if st.runeCarry {
		if cut := incompleteSuffix(data); cut > 0 {
			st.carry = append([]byte(nil), data[len(data)-cut:]...)
			data = data[:len(data)-cut]
		}
	}
	if len(data) == 0 {
		return
	}

	if !utf8.Valid(data) {
		st.push(result{err: fmt.Errorf("%w: chunk %d at byte %d",
			ErrDecoding, st.chunks, start+int64(firstInvalid(data)))})
		return
	}

	sentences, err := st.seg.Feed(string(data))
	for _, s := range sentences {
		st.push(result{sentence: s})
	}
	if err != nil {
		st.push(result{err: fmt.Errorf("chunk %d: %w", st.chunks, err)})
	}
}

// finish handles end of input.
func (st *Stream) finish() {
	if len(st.carry) > 0 {
		st.push(result{err: fmt.Errorf("%w: incomplete character at byte %d",
			ErrDecoding, st.read-int64(len(st.carry)))})
		st.carry = nil
	}
	if last, ok := st.seg.Flush(); ok {
		st.push(result{sentence: last})
	}
	st.done = true
}

func (st *Stream) push(r result) {
	st.queue = append(st.queue, r)
}

// incompleteSuffix returns the length of a truncated multi-byte sequence at
// the end of b, or 0.
func incompleteSuffix(b []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(b); i++ {
		if !utf8.RuneStart(b[len(b)-i]) {
			continue
		}
		if utf8.FullRune(b[len(b)-i:]) {
			return 0
		}
		return i
	}
	return 0
}

// firstInvalid returns the index of the first byte of b that does not
// start a valid UTF-8 sequence.
func firstInvalid(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(b)
}

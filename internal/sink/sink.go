// Package sink writes segmented sentences to an output in one of several
// formats.
package sink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ErrUnknownFormat indicates an unsupported output format name.
var ErrUnknownFormat = errors.New("sink: unknown format")

// Format selects how sentences are encoded.
type Format string

const (
	// FormatText writes one sentence per line.
	FormatText Format = "text"
	// FormatJSONL writes one JSON object per line.
	FormatJSONL Format = "jsonl"
	// FormatProto writes length-delimited google.protobuf.StringValue
	// messages.
	FormatProto Format = "proto"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSONL, FormatProto}
}

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatJSONL, FormatProto:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Encoder writes sentences. Every sentence reaches the underlying writer
// before Encode returns.
type Encoder interface {
	Encode(sentence string) error
	Close() error
}

// Record is the JSON Lines representation of a sentence.
type Record struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// New returns an Encoder for format writing to w. Close flushes pending
// output but does not close w.
func New(w io.Writer, format Format) (Encoder, error) {
	base := encoder{w: bufio.NewWriter(w)}

	switch format {
	case FormatText, "":
		return &textEncoder{base}, nil
	case FormatJSONL:
		e := &jsonEncoder{encoder: base}
		e.enc = json.NewEncoder(e.w)
		e.enc.SetEscapeHTML(false)
		return e, nil
	case FormatProto:
		return &protoEncoder{base}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// encoder holds the buffered writer shared by all formats.
type encoder struct {
	w *bufio.Writer
}

func (e *encoder) Close() error {
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}

type textEncoder struct {
	encoder
}

func (e *textEncoder) Encode(sentence string) error {
	if _, err := e.w.WriteString(sentence); err != nil {
		return fmt.Errorf("writing sentence: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing sentence: %w", err)
	}
	return e.w.Flush()
}

type jsonEncoder struct {
	encoder
	enc   *json.Encoder
	index int
}

func (e *jsonEncoder) Encode(sentence string) error {
	if err := e.enc.Encode(Record{Index: e.index, Text: sentence}); err != nil {
		return fmt.Errorf("encoding sentence %d: %w", e.index, err)
	}
	e.index++
	return e.w.Flush()
}

type protoEncoder struct {
	encoder
}

func (e *protoEncoder) Encode(sentence string) error {
	if _, err := protodelim.MarshalTo(e.w, wrapperspb.String(sentence)); err != nil {
		return fmt.Errorf("encoding sentence: %w", err)
	}
	return e.w.Flush()
}

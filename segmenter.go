package streamseg

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jamesainslie/go-streamseg/rules"
)

// step is the outcome of one boundary search over the buffer.
type step int

const (
	// stepProgressed means a boundary was accepted and can be drained.
	stepProgressed step = iota
	// stepBlocked means a boundary was found but lacks trailing context.
	stepBlocked
	// stepNoCandidate means no candidate in the buffer ends a sentence.
	stepNoCandidate
)

func (s step) String() string {
	switch s {
	case stepProgressed:
		return "progressed"
	case stepBlocked:
		return "blocked"
	case stepNoCandidate:
		return "no-candidate"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Segmenter incrementally splits text into sentences. Text is supplied in
// arbitrary chunks with Feed; a sentence is returned once its boundary is
// confirmed by enough following text. Flush returns whatever remains at end
// of input.
//
// A Segmenter is not safe for concurrent use.
type Segmenter struct {
	rules  rules.RuleSet
	opts   Options
	logger *slog.Logger

	buf   string
	runes int // characters in buf
}

// New creates a Segmenter.
func New(opts ...Option) (*Segmenter, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newFromConfig(cfg)
}

func newFromConfig(cfg config) (*Segmenter, error) {
	if cfg.Lookahead < 0 {
		return nil, fmt.Errorf("%w: negative lookahead %d", ErrInvalidOptions, cfg.Lookahead)
	}
	if cfg.MaxBuffer <= 0 {
		return nil, fmt.Errorf("%w: max buffer must be positive, got %d", ErrInvalidOptions, cfg.MaxBuffer)
	}

	rs, err := cfg.provider.Resolve(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnsupportedLanguage, cfg.Language, err)
	}
	if rs == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, cfg.Language)
	}

	return &Segmenter{
		rules:  rs,
		opts:   cfg.Options,
		logger: cfg.logger,
	}, nil
}

// Options returns the parameters the Segmenter was built with.
func (s *Segmenter) Options() Options {
	return s.opts
}

// Len returns the number of buffered characters.
func (s *Segmenter) Len() int {
	return s.runes
}

// Feed appends chunk to the buffer and returns every sentence that can be
// confirmed. If the chunk would overflow the buffer, Feed returns
// ErrBufferOverflow and the buffer is unchanged.
//
// On ErrSegmentation the sentences completed before the failure are
// returned along with the error, and the undecided text stays buffered.
func (s *Segmenter) Feed(chunk string) ([]string, error) {
	n := utf8.RuneCountInString(chunk)
	if s.runes+n > s.opts.MaxBuffer {
		s.logger.Debug("chunk rejected", "buffered", s.runes, "chunk", n, "max", s.opts.MaxBuffer)
		return nil, fmt.Errorf("%w: %d buffered + %d new characters exceeds %d",
			ErrBufferOverflow, s.runes, n, s.opts.MaxBuffer)
	}
	s.buf += chunk
	s.runes += n

	var sentences []string
	for {
		end, st, err := s.scan()
		if err != nil {
			return sentences, err
		}
		if st != stepProgressed {
			if st == stepBlocked {
				s.logger.Debug("boundary awaiting lookahead", "offset", end, "lookahead", s.opts.Lookahead)
			}
			return sentences, nil
		}
		// Offsets are relative to the buffer, so every drain restarts the
		// scan from the new start.
		if sentence := s.drain(end); sentence != "" {
			sentences = append(sentences, sentence)
		}
	}
}

// Flush empties the buffer and returns its trimmed content. It reports
// false if nothing but whitespace remained. Lookahead does not apply.
func (s *Segmenter) Flush() (string, bool) {
	if s.buf == "" {
		return "", false
	}
	rest := strings.TrimSpace(s.buf)
	s.Reset()
	return rest, rest != ""
}

// Reset discards buffered text without returning it.
func (s *Segmenter) Reset() {
	s.buf = ""
	s.runes = 0
}

// scan looks for the first acceptable boundary in the buffer.
func (s *Segmenter) scan() (int, step, error) {
	text := s.buf
	if text == "" {
		return 0, stepNoCandidate, nil
	}

	skips := s.rules.SkipRanges(text)
	for _, sk := range skips {
		if !validSpan(text, sk) {
			return 0, stepNoCandidate, fmt.Errorf("%w: %s returned skip range [%d,%d) in %d bytes",
				ErrSegmentation, s.rules.Language(), sk.Start, sk.End, len(text))
		}
	}
	var cur *rules.Cursor

	for m := range s.rules.Candidates(text) {
		if !validSpan(text, m) {
			return 0, stepNoCandidate, fmt.Errorf("%w: %s returned candidate [%d,%d) in %d bytes",
				ErrSegmentation, s.rules.Language(), m.Start, m.End, len(text))
		}
		if skip, ok := enclosing(skips, m); ok {
			if m.End != skip.End {
				continue
			}
			// Punctuation closing a quotation ends the sentence at once.
			if s.rules.PunctuationClosesSkip() {
				return s.gate(text, rules.Boundary{End: skip.End, Exempt: true})
			}
		}

		if cur == nil {
			cur = rules.NewCursor(text)
		}
		b, ok, err := s.rules.DecideBoundary(text, cur, m, skips)
		if err != nil {
			return 0, stepNoCandidate, fmt.Errorf("%w: %w", ErrSegmentation, err)
		}
		if !ok {
			continue
		}
		if b.End <= 0 || b.End > len(text) || (b.End < len(text) && !utf8.RuneStart(text[b.End])) {
			return 0, stepNoCandidate, fmt.Errorf("%w: %s returned offset %d for candidate [%d,%d) in %d bytes",
				ErrSegmentation, s.rules.Language(), b.End, m.Start, m.End, len(text))
		}
		return s.gate(text, b)
	}

	return 0, stepNoCandidate, nil
}

// gate applies the lookahead requirement to a decided boundary.
func (s *Segmenter) gate(text string, b rules.Boundary) (int, step, error) {
	if b.Exempt || atLeastRunes(text[b.End:], s.opts.Lookahead) {
		return b.End, stepProgressed, nil
	}
	return b.End, stepBlocked, nil
}

// drain removes the first end bytes of the buffer and returns them trimmed.
func (s *Segmenter) drain(end int) string {
	prefix := s.buf[:end]
	s.buf = s.buf[end:]
	s.runes -= utf8.RuneCountInString(prefix)

	sentence := strings.TrimSpace(prefix)
	if sentence != "" {
		s.logger.Debug("sentence emitted", "chars", utf8.RuneCountInString(sentence), "buffered", s.runes)
	}
	return sentence
}

// validSpan reports whether sp is a non-empty range of text that starts and
// ends on character boundaries.
func validSpan(text string, sp rules.Span) bool {
	if sp.Start < 0 || sp.Start >= sp.End || sp.End > len(text) {
		return false
	}
	if !utf8.RuneStart(text[sp.Start]) {
		return false
	}
	return sp.End == len(text) || utf8.RuneStart(text[sp.End])
}

// enclosing returns the first skip range containing m.
func enclosing(skips []rules.Span, m rules.Span) (rules.Span, bool) {
	for _, sk := range skips {
		if sk.Start > m.Start {
			break
		}
		if sk.Contains(m) {
			return sk, true
		}
	}
	return rules.Span{}, false
}

// atLeastRunes reports whether s holds n or more characters.
func atLeastRunes(s string, n int) bool {
	if n <= 0 {
		return true
	}
	if len(s) < n {
		return false
	}
	count := 0
	for range s {
		count++
		if count >= n {
			return true
		}
	}
	return false
}

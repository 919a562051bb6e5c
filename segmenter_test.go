package streamseg

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jamesainslie/go-streamseg/rules"
)

// feedAll feeds chunks in order and appends the flushed remainder.
func feedAll(t *testing.T, seg *Segmenter, chunks ...string) []string {
	t.Helper()
	var out []string
	for _, c := range chunks {
		got, err := seg.Feed(c)
		if err != nil {
			t.Fatalf("Feed(%q) failed: %v", c, err)
		}
		out = append(out, got...)
	}
	if last, ok := seg.Flush(); ok {
		out = append(out, last)
	}
	return out
}

func newSegmenter(t *testing.T, opts ...Option) *Segmenter {
	t.Helper()
	seg, err := New(opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return seg
}

func TestNew(t *testing.T) {
	seg := newSegmenter(t)

	if got := seg.Options(); got != DefaultOptions() {
		t.Errorf("Options() = %+v, want %+v", got, DefaultOptions())
	}
	if seg.rules == nil {
		t.Error("expected non-nil rule set")
	}
	if seg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", seg.Len())
	}
}

func TestNew_UnsupportedLanguage(t *testing.T) {
	_, err := New(WithLanguage("tlh"))
	if err == nil {
		t.Fatal("expected error for unknown language")
	}
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got: %v", err)
	}
	if !errors.Is(err, rules.ErrUnknownLanguage) {
		t.Errorf("expected wrapped rules.ErrUnknownLanguage, got: %v", err)
	}
}

func TestNew_NilRuleSet(t *testing.T) {
	nilProvider := rules.ProviderFunc(func(string) (rules.RuleSet, error) { return nil, nil })

	_, err := New(WithProvider(nilProvider))
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got: %v", err)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"negative lookahead", []Option{WithLookahead(-1)}},
		{"zero max buffer", []Option{WithMaxBuffer(0)}},
		{"negative max buffer", []Option{WithOptions(Options{Lookahead: 1, MaxBuffer: -4, Language: "en"})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("expected ErrInvalidOptions, got: %v", err)
			}
		})
	}
}

func TestNew_WithOptions(t *testing.T) {
	want := Options{Lookahead: 3, MaxBuffer: 64, Language: "de"}
	seg := newSegmenter(t, WithOptions(want), WithStream(WithChunkSize(16)))

	if got := seg.Options(); got != want {
		t.Errorf("Options() = %+v, want %+v", got, want)
	}
	if seg.rules.Language() != "de" {
		t.Errorf("rule set language = %q, want de", seg.rules.Language())
	}
}

func TestNew_RegionalVariant(t *testing.T) {
	seg := newSegmenter(t, WithLanguage("en-GB"))
	if seg.rules.Language() != "en" {
		t.Errorf("rule set language = %q, want en", seg.rules.Language())
	}
}

func TestSegmenter_Feed(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		chunks []string
		want   []string
	}{
		{
			name:   "abbreviation across chunks",
			chunks: []string{"Hello Mr. Smith", ". How are", " you today? Good!"},
			want:   []string{"Hello Mr. Smith.", "How are you today?", "Good!"},
		},
		{
			name:   "lookahead withholds boundary",
			opts:   []Option{WithLookahead(5)},
			chunks: []string{"Hello Mr. Smith.", " How are you?"},
			want:   []string{"Hello Mr. Smith.", "How are you?"},
		},
		{
			name:   "no trailing punctuation",
			chunks: []string{"First sentence.", " Second sentence has no end"},
			want:   []string{"First sentence.", "Second sentence has no end"},
		},
		{
			name:   "zero lookahead drains every boundary",
			opts:   []Option{WithLookahead(0)},
			chunks: []string{"A b. C d. E f."},
			want:   []string{"A b.", "C d.", "E f."},
		},
		{
			name:   "decimal number",
			opts:   []Option{WithLookahead(0)},
			chunks: []string{"Pi is 3.14 today. Yes"},
			want:   []string{"Pi is 3.14 today.", "Yes"},
		},
		{
			name:   "punctuation inside quotes",
			opts:   []Option{WithLookahead(0)},
			chunks: []string{`He said "Stop." Then he left.`},
			want:   []string{`He said "Stop."`, "Then he left."},
		},
		{
			name:   "lower case continues sentence",
			opts:   []Option{WithLookahead(0)},
			chunks: []string{"It was late... and dark. End"},
			want:   []string{"It was late... and dark.", "End"},
		},
		{
			name:   "initials",
			opts:   []Option{WithLookahead(0)},
			chunks: []string{"J. R. Tolkien wrote it. Really"},
			want:   []string{"J. R. Tolkien wrote it.", "Really"},
		},
		{
			name:   "url",
			opts:   []Option{WithLookahead(0)},
			chunks: []string{"See https://example.com/a.B for more. Thanks"},
			want:   []string{"See https://example.com/a.B for more.", "Thanks"},
		},
		{
			name:   "german quotes",
			opts:   []Option{WithLookahead(0), WithLanguage("de")},
			chunks: []string{"Er sagte „Halt.“ Dann ging er z.B. heim. Ende"},
			want:   []string{"Er sagte „Halt.“", "Dann ging er z.B. heim.", "Ende"},
		},
		{
			name:   "multibyte text",
			opts:   []Option{WithLookahead(2)},
			chunks: []string{"Ça va? Très", " bien. Merci"},
			want:   []string{"Ça va?", "Très bien.", "Merci"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := newSegmenter(t, tt.opts...)
			got := feedAll(t, seg, tt.chunks...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("sentences = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSegmenter_Feed_LookaheadGate(t *testing.T) {
	seg := newSegmenter(t, WithLookahead(5))

	got, err := seg.Feed("Hello Mr. Smith. How")
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected boundary to be withheld with 4 trailing characters, got %q", got)
	}

	got, err = seg.Feed(" ")
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if want := []string{"Hello Mr. Smith."}; !reflect.DeepEqual(got, want) {
		t.Errorf("sentences = %q, want %q", got, want)
	}
	if seg.Len() != 5 {
		t.Errorf("Len() = %d, want 5", seg.Len())
	}
}

func TestSegmenter_Feed_ExemptBoundary(t *testing.T) {
	seg := newSegmenter(t, WithLookahead(1000))

	got, err := seg.Feed("As shown earlier.[1][2] Next")
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if want := []string{"As shown earlier.[1][2]"}; !reflect.DeepEqual(got, want) {
		t.Errorf("sentences = %q, want %q", got, want)
	}
}

func TestSegmenter_Feed_Overflow(t *testing.T) {
	tests := []struct {
		name     string
		max      int
		buffered string
		chunk    string
	}{
		{"ascii", 10, "0123456", "7890"},
		{"empty buffer", 3, "", "abcd"},
		{"multibyte", 4, "äöü", "ßx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := newSegmenter(t, WithMaxBuffer(tt.max))
			if _, err := seg.Feed(tt.buffered); err != nil {
				t.Fatalf("Feed(%q) failed: %v", tt.buffered, err)
			}
			before := seg.Len()

			got, err := seg.Feed(tt.chunk)
			if !errors.Is(err, ErrBufferOverflow) {
				t.Fatalf("expected ErrBufferOverflow, got: %v", err)
			}
			if got != nil {
				t.Errorf("expected no sentences, got %q", got)
			}
			if seg.Len() != before {
				t.Errorf("Len() = %d after overflow, want %d", seg.Len(), before)
			}
			if seg.buf != tt.buffered {
				t.Errorf("buffer = %q after overflow, want %q", seg.buf, tt.buffered)
			}
		})
	}
}

func TestSegmenter_Feed_CountsCharacters(t *testing.T) {
	seg := newSegmenter(t, WithMaxBuffer(4))

	if _, err := seg.Feed("日本語だ"); err != nil {
		t.Fatalf("four characters should fit a four character buffer: %v", err)
	}
	if seg.Len() != 4 {
		t.Errorf("Len() = %d, want 4", seg.Len())
	}
}

func TestSegmenter_Feed_Empty(t *testing.T) {
	seg := newSegmenter(t)

	if _, err := seg.Feed("Incomplete thought"); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	before := seg.Len()

	for i := 0; i < 3; i++ {
		got, err := seg.Feed("")
		if err != nil {
			t.Fatalf("Feed(\"\") failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Feed(\"\") emitted %q", got)
		}
		if seg.Len() != before {
			t.Errorf("Len() = %d, want %d", seg.Len(), before)
		}
	}
}

func TestSegmenter_Flush(t *testing.T) {
	seg := newSegmenter(t)

	if _, ok := seg.Flush(); ok {
		t.Error("Flush() on empty buffer reported a sentence")
	}

	if _, err := seg.Feed("  \n "); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if s, ok := seg.Flush(); ok {
		t.Errorf("Flush() of whitespace = %q, want none", s)
	}
	if seg.Len() != 0 {
		t.Errorf("Len() = %d after Flush, want 0", seg.Len())
	}

	if _, err := seg.Feed(" trailing words "); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	s, ok := seg.Flush()
	if !ok || s != "trailing words" {
		t.Errorf("Flush() = (%q, %v), want (%q, true)", s, ok, "trailing words")
	}
	if _, ok := seg.Flush(); ok {
		t.Error("second Flush() reported a sentence")
	}
}

func TestSegmenter_Reset(t *testing.T) {
	seg := newSegmenter(t)
	if _, err := seg.Feed("Dropped text"); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	seg.Reset()

	if seg.Len() != 0 {
		t.Errorf("Len() = %d after Reset, want 0", seg.Len())
	}
	if got := feedAll(t, seg, "Kept."); !reflect.DeepEqual(got, []string{"Kept."}) {
		t.Errorf("sentences after Reset = %q", got)
	}
}

func TestSegmenter_FlushCompleteness(t *testing.T) {
	text := "Dr. Watson arrived at 10.30 a.m. on Monday. \"Is it you?\" he asked. " +
		"The U.S. office (see fig. 2) was closed! Nobody knew why... " +
		"Visit www.example.org/docs.html or mail info@example.org. " +
		"Ça marche très bien. Der Zug kommt um 5.15 Uhr an. Fin"

	for _, size := range []int{1, 2, 3, 5, 7, 16, 64, len(text)} {
		for _, lookahead := range []int{0, 1, 10, 40} {
			t.Run(fmt.Sprintf("chunk=%d/lookahead=%d", size, lookahead), func(t *testing.T) {
				seg := newSegmenter(t, WithLookahead(lookahead))
				got := feedAll(t, seg, splitBytes(text, size)...)

				// A boundary accepted at the end of the buffer may split a
				// word, so only the non-space characters must survive intact.
				joined := strings.Join(got, " ")
				if squash(joined) != squash(text) {
					t.Errorf("characters lost or duplicated:\n got: %q\nwant: %q", joined, text)
				}
				if lookahead >= 1 && strings.Join(strings.Fields(joined), " ") != strings.Join(strings.Fields(text), " ") {
					t.Errorf("reconstruction mismatch:\n got: %q\nwant: %q", joined, text)
				}
				for _, s := range got {
					if s == "" || s != strings.TrimSpace(s) {
						t.Errorf("sentence %q is empty or untrimmed", s)
					}
				}
			})
		}
	}
}

// squash removes all whitespace from s.
func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// splitBytes splits s into pieces of at most size bytes without breaking
// characters.
func splitBytes(s string, size int) []string {
	var out []string
	for len(s) > 0 {
		n := size
		if n >= len(s) {
			out = append(out, s)
			break
		}
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		if n == 0 {
			_, n = utf8.DecodeRuneInString(s)
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}

// fakeRules treats every '.' as a candidate and delegates the rest to
// test-supplied functions.
type fakeRules struct {
	skips   func(text string) []rules.Span
	closes  bool
	decide  func(text string, m rules.Span) (rules.Boundary, bool, error)
	decided []string
}

func (f *fakeRules) Language() string { return "fake" }

func (f *fakeRules) Candidates(text string) iter.Seq[rules.Span] {
	return func(yield func(rules.Span) bool) {
		for i := 0; i < len(text); i++ {
			if text[i] == '.' && !yield(rules.Span{Start: i, End: i + 1}) {
				return
			}
		}
	}
}

func (f *fakeRules) SkipRanges(text string) []rules.Span {
	if f.skips == nil {
		return nil
	}
	return f.skips(text)
}

func (f *fakeRules) DecideBoundary(text string, _ *rules.Cursor, m rules.Span, _ []rules.Span) (rules.Boundary, bool, error) {
	f.decided = append(f.decided, text[:m.End])
	if f.decide == nil {
		return rules.Boundary{End: m.End}, true, nil
	}
	return f.decide(text, m)
}

func (f *fakeRules) PunctuationClosesSkip() bool { return f.closes }

func withFake(f *fakeRules) Option {
	return WithProvider(rules.ProviderFunc(func(string) (rules.RuleSet, error) { return f, nil }))
}

// angleSkip protects "<...>" spans.
func angleSkip(text string) []rules.Span {
	start, end := strings.Index(text, "<"), strings.Index(text, ">")
	if start < 0 || end < start {
		return nil
	}
	return []rules.Span{{Start: start, End: end + 1}}
}

// closingSkip protects "<" through the first period after it.
func closingSkip(text string) []rules.Span {
	start := strings.Index(text, "<")
	if start < 0 {
		return nil
	}
	dot := strings.Index(text[start:], ".")
	if dot < 0 {
		return nil
	}
	return []rules.Span{{Start: start, End: start + dot + 1}}
}

func TestSegmenter_SkipRanges(t *testing.T) {
	t.Run("inside range is never decided", func(t *testing.T) {
		fake := &fakeRules{skips: angleSkip}
		seg := newSegmenter(t, withFake(fake), WithLookahead(0))

		got := feedAll(t, seg, "a <b. c> d. e")
		if want := []string{"a <b. c> d.", "e"}; !reflect.DeepEqual(got, want) {
			t.Errorf("sentences = %q, want %q", got, want)
		}
		if want := []string{"a <b. c> d."}; !reflect.DeepEqual(fake.decided, want) {
			t.Errorf("decided = %q, want %q", fake.decided, want)
		}
	})

	t.Run("closing edge ends sentence", func(t *testing.T) {
		fake := &fakeRules{skips: closingSkip, closes: true}
		seg := newSegmenter(t, withFake(fake), WithLookahead(0))

		got := feedAll(t, seg, "a <b. c.")
		if want := []string{"a <b.", "c."}; !reflect.DeepEqual(got, want) {
			t.Errorf("sentences = %q, want %q", got, want)
		}
		if want := []string{" c."}; !reflect.DeepEqual(fake.decided, want) {
			t.Errorf("decided = %q, want %q", fake.decided, want)
		}
	})

	t.Run("closing edge is decided when not significant", func(t *testing.T) {
		fake := &fakeRules{
			skips: closingSkip,
			decide: func(text string, m rules.Span) (rules.Boundary, bool, error) {
				return rules.Boundary{End: m.End}, !strings.HasSuffix(text[:m.End], "b."), nil
			},
		}
		seg := newSegmenter(t, withFake(fake), WithLookahead(0))

		got := feedAll(t, seg, "a <b. c.")
		if want := []string{"a <b. c."}; !reflect.DeepEqual(got, want) {
			t.Errorf("sentences = %q, want %q", got, want)
		}
		if len(fake.decided) != 2 {
			t.Errorf("decided %d candidates, want 2: %q", len(fake.decided), fake.decided)
		}
	})

	t.Run("closing edge skips lookahead", func(t *testing.T) {
		fake := &fakeRules{skips: closingSkip, closes: true}
		seg := newSegmenter(t, withFake(fake), WithLookahead(3))

		got, err := seg.Feed("a <b.")
		if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
		if want := []string{"a <b."}; !reflect.DeepEqual(got, want) {
			t.Errorf("sentences = %q, want %q", got, want)
		}
		if len(fake.decided) != 0 {
			t.Errorf("closing edge should not be decided, got %q", fake.decided)
		}
	})
}

func TestSegmenter_Feed_QuoteEndsImmediately(t *testing.T) {
	seg := newSegmenter(t)

	got, err := seg.Feed(`He said "Stop." Then`)
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if want := []string{`He said "Stop."`}; !reflect.DeepEqual(got, want) {
		t.Errorf("sentences = %q, want %q", got, want)
	}
	if want := utf8.RuneCountInString(" Then"); seg.Len() != want {
		t.Errorf("Len() = %d, want %d", seg.Len(), want)
	}
}

func TestSegmenter_InvalidSpans(t *testing.T) {
	tests := []struct {
		name  string
		skips func(text string) []rules.Span
	}{
		{"skip past end", func(text string) []rules.Span { return []rules.Span{{Start: 0, End: len(text) + 3}} }},
		{"empty skip", func(string) []rules.Span { return []rules.Span{{Start: 0, End: 0}} }},
		{"negative skip", func(string) []rules.Span { return []rules.Span{{Start: -2, End: 4}} }},
		{"skip inside character", func(text string) []rules.Span {
			return []rules.Span{{Start: 0, End: strings.Index(text, "é") + 1}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeRules{skips: tt.skips, closes: true}
			seg := newSegmenter(t, withFake(fake), WithLookahead(0))

			got, err := seg.Feed("café. more")
			if !errors.Is(err, ErrSegmentation) {
				t.Errorf("expected ErrSegmentation, got: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no sentences, got %q", got)
			}
		})
	}
}

func TestValidSpan(t *testing.T) {
	text := "añb"
	tests := []struct {
		span rules.Span
		want bool
	}{
		{rules.Span{Start: 0, End: 1}, true},
		{rules.Span{Start: 1, End: 3}, true},
		{rules.Span{Start: 0, End: len(text)}, true},
		{rules.Span{Start: 1, End: 2}, false},
		{rules.Span{Start: 2, End: 3}, false},
		{rules.Span{Start: 1, End: 1}, false},
		{rules.Span{Start: 0, End: len(text) + 1}, false},
		{rules.Span{Start: -1, End: 1}, false},
	}
	for _, tt := range tests {
		if got := validSpan(text, tt.span); got != tt.want {
			t.Errorf("validSpan(%q, %+v) = %v, want %v", text, tt.span, got, tt.want)
		}
	}
}

func TestSegmenter_SegmentationFailure(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeRules{
		decide: func(text string, m rules.Span) (rules.Boundary, bool, error) {
			if strings.HasSuffix(text[:m.Start], "two") {
				return rules.Boundary{}, false, boom
			}
			return rules.Boundary{End: m.End}, true, nil
		},
	}
	seg := newSegmenter(t, withFake(fake), WithLookahead(0))

	got, err := seg.Feed("one. two. three")
	if !errors.Is(err, ErrSegmentation) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrSegmentation wrapping boom, got: %v", err)
	}
	if want := []string{"one."}; !reflect.DeepEqual(got, want) {
		t.Errorf("sentences before failure = %q, want %q", got, want)
	}
	if want := utf8.RuneCountInString(" two. three"); seg.Len() != want {
		t.Errorf("Len() = %d, want %d", seg.Len(), want)
	}
}

func TestSegmenter_InvalidDecision(t *testing.T) {
	tests := []struct {
		name string
		end  func(text string) int
	}{
		{"past end", func(text string) int { return len(text) + 5 }},
		{"zero", func(string) int { return 0 }},
		{"inside character", func(text string) int { return strings.Index(text, "é") + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeRules{
				decide: func(text string, _ rules.Span) (rules.Boundary, bool, error) {
					return rules.Boundary{End: tt.end(text)}, true, nil
				},
			}
			seg := newSegmenter(t, withFake(fake), WithLookahead(0))

			_, err := seg.Feed("café. more")
			if !errors.Is(err, ErrSegmentation) {
				t.Errorf("expected ErrSegmentation, got: %v", err)
			}
		})
	}
}

func TestStep_String(t *testing.T) {
	tests := []struct {
		step step
		want string
	}{
		{stepProgressed, "progressed"},
		{stepBlocked, "blocked"},
		{stepNoCandidate, "no-candidate"},
		{step(9), "step(9)"},
	}
	for _, tt := range tests {
		if got := tt.step.String(); got != tt.want {
			t.Errorf("step(%d).String() = %q, want %q", int(tt.step), got, tt.want)
		}
	}
}

func TestAtLeastRunes(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want bool
	}{
		{"", 0, true},
		{"", 1, false},
		{"abc", 3, true},
		{"abc", 4, false},
		{"äö", 2, true},
		{"äö", 3, false},
	}
	for _, tt := range tests {
		if got := atLeastRunes(tt.s, tt.n); got != tt.want {
			t.Errorf("atLeastRunes(%q, %d) = %v, want %v", tt.s, tt.n, got, tt.want)
		}
	}
}

// Package rules provides per-language sentence boundary rules.
//
// A RuleSet locates candidate sentence-ending punctuation, reports spans of
// text that must not be split (quotations, URLs, numbers), and decides
// whether a candidate really ends a sentence. Rule sets are immutable and
// safe to share between goroutines.
package rules

import (
	"errors"
	"iter"
)

// ErrUnknownLanguage indicates no rule set is registered for a language code.
var ErrUnknownLanguage = errors.New("rules: unknown language")

// Span is a half-open byte range [Start, End) within a text.
type Span struct {
	Start int
	End   int
}

// Contains reports whether s lies entirely within r.
func (r Span) Contains(s Span) bool {
	return s.Start >= r.Start && s.End <= r.End
}

// Boundary is a confirmed sentence end.
type Boundary struct {
	// End is the byte offset, relative to the decided text, where the
	// sentence ends.
	End int
	// Exempt marks boundaries that are certain enough to skip the
	// lookahead requirement.
	Exempt bool
}

// RuleSet supplies the language-specific parts of boundary detection.
type RuleSet interface {
	// Language returns the canonical language code.
	Language() string

	// Candidates yields punctuation matches that might end a sentence,
	// left to right.
	Candidates(text string) iter.Seq[Span]

	// SkipRanges returns spans inside which boundaries are suppressed,
	// sorted by start offset.
	SkipRanges(text string) []Span

	// DecideBoundary reports whether candidate m ends a sentence. The
	// returned bool is false when m is not a boundary.
	DecideBoundary(text string, cur *Cursor, m Span, skips []Span) (Boundary, bool, error)

	// PunctuationClosesSkip reports whether a candidate that closes a skip
	// range (for example a period before a closing quote) ends the
	// sentence at the range end.
	PunctuationClosesSkip() bool
}

// Provider resolves language codes to rule sets.
type Provider interface {
	Resolve(code string) (RuleSet, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(code string) (RuleSet, error)

// Resolve calls f(code).
func (f ProviderFunc) Resolve(code string) (RuleSet, error) {
	return f(code)
}

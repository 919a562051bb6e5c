package rules

import (
	"fmt"
	"iter"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
)

const (
	// maxQuoteLen bounds how far a quotation may reach. A stray quote mark
	// must not swallow the rest of a large buffer.
	maxQuoteLen = 400

	// abbreviationWindow is how many bytes before a period are inspected
	// for the preceding word.
	abbreviationWindow = 48
)

var (
	urlPattern         = regexp.MustCompile(`(?:https?://|www\.)\S*[^\s.,;:!?)"'\]]`)
	emailPattern       = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)*\.\w+`)
	decimalPattern     = regexp.MustCompile(`\d+(?:[.,]\d+)+`)
	numberedRefPattern = regexp.MustCompile(`^(?:\[\d+\])+`)
)

// ruleSet is a RuleSet compiled from a Definition.
type ruleSet struct {
	code          string
	candidate     *regexp.Regexp
	skips         []*regexp.Regexp
	abbreviations map[string]struct{}
	closesSkip    bool
}

var _ RuleSet = (*ruleSet)(nil)

// compile builds a rule set from a fully merged definition.
func compile(d Definition) (*ruleSet, error) {
	if d.Terminators == "" {
		return nil, fmt.Errorf("rules %q: no terminators", d.Code)
	}

	candidate, err := regexp.Compile("[" + regexp.QuoteMeta(d.Terminators) + "]+" + closerClass(d.Closers))
	if err != nil {
		return nil, fmt.Errorf("rules %q: candidate pattern: %w", d.Code, err)
	}

	skips := []*regexp.Regexp{urlPattern, emailPattern, decimalPattern}
	for _, q := range d.Quotes {
		if q.Open == "" || q.Close == "" {
			return nil, fmt.Errorf("rules %q: empty quote delimiter", d.Code)
		}
		open, cls := regexp.QuoteMeta(q.Open), regexp.QuoteMeta(q.Close)
		re, err := regexp.Compile(fmt.Sprintf(`%s[^%s\n]{0,%d}%s`, open, cls, maxQuoteLen, cls))
		if err != nil {
			return nil, fmt.Errorf("rules %q: quote %s%s: %w", d.Code, q.Open, q.Close, err)
		}
		skips = append(skips, re)
	}

	abbrevs := make(map[string]struct{}, len(d.Abbreviations))
	for _, a := range d.Abbreviations {
		abbrevs[strings.ToLower(strings.TrimSuffix(a, "."))] = struct{}{}
	}

	return &ruleSet{
		code:          d.Code,
		candidate:     candidate,
		skips:         skips,
		abbreviations: abbrevs,
		closesSkip:    d.PunctuationInsideQuotes != nil && *d.PunctuationInsideQuotes,
	}, nil
}

func closerClass(closers string) string {
	if closers == "" {
		return ""
	}
	return "[" + regexp.QuoteMeta(closers) + "]*"
}

func (rs *ruleSet) Language() string { return rs.code }

func (rs *ruleSet) PunctuationClosesSkip() bool { return rs.closesSkip }

func (rs *ruleSet) Candidates(text string) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		for pos := 0; pos < len(text); {
			loc := rs.candidate.FindStringIndex(text[pos:])
			if loc == nil {
				return
			}
			if !yield(Span{Start: pos + loc[0], End: pos + loc[1]}) {
				return
			}
			pos += loc[1]
		}
	}
}

// SkipRanges returns the protected spans sorted by start. Spans nested in
// an earlier, wider span are dropped.
func (rs *ruleSet) SkipRanges(text string) []Span {
	var all []Span
	for _, re := range rs.skips {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			all = append(all, Span{Start: loc[0], End: loc[1]})
		}
	}
	if len(all) == 0 {
		return nil
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End > all[j].End
	})

	out := all[:1]
	for _, s := range all[1:] {
		if out[len(out)-1].Contains(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (rs *ruleSet) DecideBoundary(text string, cur *Cursor, m Span, _ []Span) (Boundary, bool, error) {
	if m.Start < 0 || m.End > len(text) || m.Start >= m.End {
		return Boundary{}, false, fmt.Errorf("rules %q: candidate [%d,%d) outside text of length %d",
			rs.code, m.Start, m.End, len(text))
	}

	punct := text[m.Start:m.End]
	tail := text[m.End:]

	// Trailing clause punctuation: "Why?, she asked".
	if r, _ := utf8.DecodeRuneInString(tail); r == ',' || r == ';' || r == ':' {
		return Boundary{}, false, nil
	}

	if ref := numberedRefPattern.FindString(tail); ref != "" {
		return Boundary{End: m.End + len(ref), Exempt: true}, true, nil
	}

	next, spaced := nextAfterSpace(tail)
	if next != utf8.RuneError {
		if unicode.IsLower(next) || unicode.IsDigit(next) {
			return Boundary{}, false, nil
		}
		// Glued to the following word: "Node.JS", "U.S".
		if !spaced && unicode.IsLetter(next) {
			return Boundary{}, false, nil
		}
	}

	question := strings.ContainsAny(punct, "?!")
	if !question && strings.Contains(punct, ".") && rs.isAbbreviation(text[:m.Start], cur) {
		return Boundary{}, false, nil
	}

	if question && spaced && unicode.IsLetter(next) && !unicode.IsLower(next) {
		return Boundary{End: m.End, Exempt: true}, true, nil
	}

	return Boundary{End: m.End}, true, nil
}

// nextAfterSpace returns the first non-space rune of s, and whether any
// whitespace preceded it. It returns utf8.RuneError if s is blank.
func nextAfterSpace(s string) (rune, bool) {
	spaced := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			spaced = true
			continue
		}
		return r, spaced
	}
	return utf8.RuneError, spaced
}

// isAbbreviation reports whether head ends in a known abbreviation or a
// single-letter initial.
func (rs *ruleSet) isAbbreviation(head string, cur *Cursor) bool {
	start := len(head) - abbreviationWindow
	if start < 0 {
		start = 0
	}
	for start > 0 && !cur.IsBoundary(start) {
		start--
	}

	var last string
	tokens := words.FromString(head[start:])
	for tokens.Next() {
		last = tokens.Value()
	}
	if last == "" {
		return false
	}

	first, _ := utf8.DecodeRuneInString(last)
	if !unicode.IsLetter(first) {
		return false
	}
	if utf8.RuneCountInString(last) == 1 && unicode.IsUpper(first) {
		return true
	}

	_, ok := rs.abbreviations[strings.ToLower(last)]
	return ok
}

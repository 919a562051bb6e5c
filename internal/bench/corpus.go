// Package bench measures how accurately and how quickly a streaming
// segmenter recovers sentence boundaries from transcripts.
package bench

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gobwas/glob"
)

// DefaultPattern selects transcript files when no pattern is given.
const DefaultPattern = "*.txt"

// Header contains metadata parsed from transcript file header.
type Header struct {
	Source  string
	Speaker string
	Title   string
}

// ParseHeader extracts metadata from transcript header comments.
// Returns the header, remaining text after header, and any error.
func ParseHeader(text string) (Header, string, error) {
	var h Header
	scanner := bufio.NewScanner(strings.NewReader(text))
	var bodyStart, lineEnd int

	for scanner.Scan() {
		line := scanner.Text()
		lineEnd += len(line) + 1

		if !strings.HasPrefix(line, "#") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			bodyStart = lineEnd - len(line) - 1
			break
		}

		key, value, ok := strings.Cut(strings.TrimPrefix(line, "#"), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Source":
			h.Source = value
		case "Speaker":
			h.Speaker = value
		case "Title":
			h.Title = value
		}
	}

	if err := scanner.Err(); err != nil {
		return Header{}, "", fmt.Errorf("scan header: %w", err)
	}

	if h.Source == "" {
		return Header{}, "", errors.New("missing Source in header")
	}

	return h, strings.TrimSpace(text[bodyStart:]), nil
}

// Sentence is a reference sentence with byte offsets into the talk body.
type Sentence struct {
	Text  string
	Start int
	End   int
}

// Common abbreviations that shouldn't end sentences
var abbreviations = regexp.MustCompile(`(?i)\b(Mr|Mrs|Ms|Dr|Prof|Sr|Jr|St|vs|etc|i\.e|e\.g|U\.S|U\.K)\.$`)

// ParseSentences splits text into reference sentences at terminal
// punctuation followed by whitespace. Closing quotes and brackets after the
// punctuation stay with the sentence.
func ParseSentences(text string) []Sentence {
	if text == "" {
		return nil
	}

	var sentences []Sentence
	start := 0

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '?' && r != '!' && r != '…' {
			continue
		}

		end := i
		for end < len(text) {
			c, n := utf8.DecodeRuneInString(text[end:])
			if !strings.ContainsRune(`.?!…"')]”’`, c) {
				break
			}
			end += n
		}
		if next, _ := utf8.DecodeRuneInString(text[end:]); end < len(text) && !unicode.IsSpace(next) {
			i = end
			continue
		}
		if r == '.' && abbreviations.MatchString(text[start:i]) {
			continue
		}

		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, Sentence{
				Text:  s,
				Start: start + strings.Index(text[start:end], s),
				End:   end,
			})
		}
		start, i = end, end
	}

	if remaining := strings.TrimSpace(text[start:]); remaining != "" {
		sentences = append(sentences, Sentence{
			Text:  remaining,
			Start: start + strings.Index(text[start:], remaining),
			End:   len(strings.TrimRightFunc(text, unicode.IsSpace)),
		})
	}

	return sentences
}

// Boundaries returns the end offsets of the reference sentences.
func (t *Talk) Boundaries() []int {
	ends := make([]int, len(t.Sentences))
	for i, s := range t.Sentences {
		ends[i] = s.End
	}
	return ends
}

// Talk represents a loaded transcript with parsed sentences.
type Talk struct {
	ID        string // filename without extension
	Source    string
	Speaker   string
	Title     string
	RawText   string // body text
	Sentences []Sentence
}

// LoadTalk loads and parses a transcript file.
func LoadTalk(path string) (*Talk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	header, body, err := ParseHeader(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	base := filepath.Base(path)

	return &Talk{
		ID:        strings.TrimSuffix(base, filepath.Ext(base)),
		Source:    header.Source,
		Speaker:   header.Speaker,
		Title:     header.Title,
		RawText:   body,
		Sentences: ParseSentences(body),
	}, nil
}

// LoadCorpus loads the transcript files in dir whose names match the glob
// pattern (DefaultPattern if empty).
func LoadCorpus(dir, pattern string) ([]*Talk, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var talks []*Talk
	for _, entry := range entries {
		if entry.IsDir() || !g.Match(entry.Name()) {
			continue
		}

		talk, err := LoadTalk(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", entry.Name(), err)
		}
		talks = append(talks, talk)
	}

	return talks, nil
}

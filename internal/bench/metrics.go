package bench

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	streamseg "github.com/jamesainslie/go-streamseg"
)

// Config holds evaluation parameters.
type Config struct {
	Lookahead       int
	MaxBuffer       int
	ChunkSize       int // bytes fed per read
	Language        string
	Tolerance       int // byte match tolerance
	PrecisionWeight float64
	RecallWeight    float64
	Workers         int // concurrent sweep evaluations, 0 for GOMAXPROCS
}

// DefaultConfig returns default evaluation configuration.
func DefaultConfig() Config {
	return Config{
		Lookahead:       streamseg.DefaultLookahead,
		MaxBuffer:       streamseg.DefaultMaxBuffer,
		ChunkSize:       64,
		Language:        streamseg.DefaultLanguage,
		Tolerance:       3,
		PrecisionWeight: 1.0,
		RecallWeight:    1.0,
	}
}

// Metrics holds evaluation results.
type Metrics struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	F1             float64
	WeightedScore  float64

	// Emitted counts sentences returned before the final flush.
	Emitted int
	// TotalDelay sums, over emitted sentences, the characters read past
	// the sentence end before it was returned.
	TotalDelay int
	MeanDelay  float64
}

// Evaluate compares predicted boundaries against ground truth.
// Uses greedy left-to-right matching within tolerance.
func Evaluate(predicted, truth []int, cfg Config) Metrics {
	matched := make([]bool, len(truth))
	tp := 0

	for _, p := range predicted {
		for i, t := range truth {
			if matched[i] {
				continue
			}
			if abs(p-t) <= cfg.Tolerance {
				matched[i] = true
				tp++
				break
			}
		}
	}

	m := Metrics{
		TruePositives:  tp,
		FalsePositives: len(predicted) - tp,
		FalseNegatives: len(truth) - tp,
	}
	m.score(cfg)
	return m
}

// Aggregate sums counts across talks and recomputes the derived scores.
func Aggregate(ms []Metrics, cfg Config) Metrics {
	var agg Metrics
	for _, m := range ms {
		agg.TruePositives += m.TruePositives
		agg.FalsePositives += m.FalsePositives
		agg.FalseNegatives += m.FalseNegatives
		agg.Emitted += m.Emitted
		agg.TotalDelay += m.TotalDelay
	}
	agg.score(cfg)
	return agg
}

// score fills the ratios from the counts.
func (m *Metrics) score(cfg Config) {
	tp, fp, fn := m.TruePositives, m.FalsePositives, m.FalseNegatives

	m.Precision, m.Recall, m.F1, m.WeightedScore, m.MeanDelay = 0, 0, 0, 0, 0
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	wp := cfg.PrecisionWeight
	wr := cfg.RecallWeight
	if wp+wr > 0 {
		m.WeightedScore = (wp*m.Precision + wr*m.Recall) / (wp + wr)
	}
	if m.Emitted > 0 {
		m.MeanDelay = float64(m.TotalDelay) / float64(m.Emitted)
	}
}

// countingReader tracks how many bytes have been handed to the stream.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// EvaluateTalk streams a talk through a segmenter in chunks of
// cfg.ChunkSize bytes and scores the emitted sentences against the
// reference sentences.
func EvaluateTalk(ctx context.Context, talk *Talk, cfg Config) (Metrics, error) {
	seg, err := streamseg.New(
		streamseg.WithLookahead(cfg.Lookahead),
		streamseg.WithMaxBuffer(cfg.MaxBuffer),
		streamseg.WithLanguage(cfg.Language),
	)
	if err != nil {
		return Metrics{}, err
	}

	text := talk.RawText
	src := &countingReader{r: strings.NewReader(text)}

	var (
		predicted []int
		emitted   int
		delay     int
		pos       int
	)
	for sentence, err := range streamseg.NewStream(src, seg,
		streamseg.WithChunkSize(cfg.ChunkSize),
		streamseg.WithRuneCarry(true),
	).All(ctx) {
		if err != nil {
			return Metrics{}, fmt.Errorf("talk %s: %w", talk.ID, err)
		}
		idx := strings.Index(text[pos:], sentence)
		if idx < 0 {
			return Metrics{}, fmt.Errorf("talk %s: sentence %q not found after byte %d", talk.ID, sentence, pos)
		}
		end := pos + idx + len(sentence)
		predicted = append(predicted, end)
		pos = end

		// The last sentence comes from the flush once the reader is drained.
		if src.n < len(text) || end < len(text) {
			emitted++
			delay += utf8.RuneCountInString(text[end:src.n])
		}
	}

	m := Evaluate(predicted, talk.Boundaries(), cfg)
	m.Emitted = emitted
	m.TotalDelay = delay
	m.score(cfg)
	return m, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

package rules

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	defaultTerminators = ".!?…"
	defaultClosers     = "\"'”“’»«)]"
)

// QuotePair is an opening and closing delimiter whose enclosed text is
// never split.
type QuotePair struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// Definition describes a rule set. Empty fields are inherited from the
// definition named by Extends.
type Definition struct {
	Code          string      `yaml:"code"`
	Extends       string      `yaml:"extends,omitempty"`
	Terminators   string      `yaml:"terminators,omitempty"`
	Closers       string      `yaml:"closers,omitempty"`
	Abbreviations []string    `yaml:"abbreviations,omitempty"`
	Quotes        []QuotePair `yaml:"quotes,omitempty"`

	// PunctuationInsideQuotes makes a terminator directly before a closing
	// quote end the sentence at the quote.
	PunctuationInsideQuotes *bool `yaml:"punctuation_inside_quotes,omitempty"`
}

// merge returns d with unset fields taken from base. Abbreviations
// accumulate.
func (d Definition) merge(base Definition) Definition {
	out := d
	if out.Terminators == "" {
		out.Terminators = base.Terminators
	}
	if out.Closers == "" {
		out.Closers = base.Closers
	}
	if len(out.Quotes) == 0 {
		out.Quotes = base.Quotes
	}
	if out.PunctuationInsideQuotes == nil {
		out.PunctuationInsideQuotes = base.PunctuationInsideQuotes
	}
	out.Abbreviations = lo.Uniq(append(append([]string{}, base.Abbreviations...), d.Abbreviations...))
	return out
}

// file is the on-disk layout of a rules file.
type file struct {
	Languages []Definition `yaml:"languages"`
}

// Load parses rule definitions from YAML.
//
//	languages:
//	  - code: en-legal
//	    extends: en
//	    abbreviations: [cf, para, sec]
func Load(r io.Reader) ([]Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding rules: %w", err)
	}

	for i, d := range f.Languages {
		if strings.TrimSpace(d.Code) == "" {
			return nil, fmt.Errorf("rules entry %d: missing code", i)
		}
	}
	return f.Languages, nil
}

// LoadFile parses rule definitions from a YAML file.
func LoadFile(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules file: %w", err)
	}
	defer func() { _ = f.Close() }()

	defs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Builtin definitions. Everything but English extends English for the
// terminators and closers and adds its own quotes and abbreviations.
var builtinDefinitions = []Definition{
	{
		Code:        "en",
		Terminators: defaultTerminators,
		Closers:     defaultClosers,
		Quotes: []QuotePair{
			{Open: `"`, Close: `"`},
			{Open: "“", Close: "”"},
			{Open: "(", Close: ")"},
			{Open: "[", Close: "]"},
		},
		PunctuationInsideQuotes: lo.ToPtr(true),
		Abbreviations: []string{
			"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "vs", "etc",
			"e.g", "i.e", "u.s", "u.k", "inc", "ltd", "corp", "co", "dept",
			"jan", "feb", "apr", "jun", "jul", "aug", "sep", "sept", "oct",
			"nov", "dec", "fig", "vol", "approx", "gen", "gov", "sen", "rep",
			"mt", "ave", "rd", "blvd", "a.m", "p.m", "cf", "al",
		},
	},
	{
		Code:    "de",
		Extends: "en",
		Quotes: []QuotePair{
			{Open: "„", Close: "“"},
			{Open: "»", Close: "«"},
			{Open: `"`, Close: `"`},
			{Open: "(", Close: ")"},
			{Open: "[", Close: "]"},
		},
		PunctuationInsideQuotes: lo.ToPtr(false),
		Abbreviations: []string{
			"bzw", "usw", "z.b", "d.h", "u.a", "ca", "nr", "str", "hr", "fr",
			"vgl", "ggf", "evtl", "inkl", "z.t", "s.o", "s.u", "abs", "bd",
		},
	},
	{
		Code:    "es",
		Extends: "en",
		Quotes: []QuotePair{
			{Open: "«", Close: "»"},
			{Open: "“", Close: "”"},
			{Open: `"`, Close: `"`},
			{Open: "(", Close: ")"},
		},
		PunctuationInsideQuotes: lo.ToPtr(false),
		Abbreviations: []string{
			"sra", "srta", "dra", "ud", "uds", "p.ej", "pág", "núm", "av",
			"admón", "cía", "dto",
		},
	},
	{
		Code:    "fr",
		Extends: "en",
		Quotes: []QuotePair{
			{Open: "«", Close: "»"},
			{Open: `"`, Close: `"`},
			{Open: "(", Close: ")"},
		},
		PunctuationInsideQuotes: lo.ToPtr(false),
		Abbreviations: []string{
			"m", "mme", "mlle", "p.ex", "av", "env", "boul", "chap", "éd",
		},
	},
	{
		Code:    "it",
		Extends: "en",
		Quotes: []QuotePair{
			{Open: "«", Close: "»"},
			{Open: `"`, Close: `"`},
			{Open: "(", Close: ")"},
		},
		PunctuationInsideQuotes: lo.ToPtr(false),
		Abbreviations: []string{
			"sig", "sigg", "sigra", "dott", "ecc", "pag", "avv", "ing",
		},
	},
	{
		Code:    "pt",
		Extends: "en",
		Quotes: []QuotePair{
			{Open: "«", Close: "»"},
			{Open: "“", Close: "”"},
			{Open: `"`, Close: `"`},
			{Open: "(", Close: ")"},
		},
		PunctuationInsideQuotes: lo.ToPtr(false),
		Abbreviations: []string{
			"sra", "dra", "pág", "av", "exmo", "ltda",
		},
	},
	{
		Code:    "nl",
		Extends: "en",
		Quotes: []QuotePair{
			{Open: "„", Close: "”"},
			{Open: "“", Close: "”"},
			{Open: `"`, Close: `"`},
			{Open: "(", Close: ")"},
		},
		PunctuationInsideQuotes: lo.ToPtr(false),
		Abbreviations: []string{
			"dhr", "mevr", "bijv", "enz", "o.a", "d.w.z", "blz", "nr", "ca",
		},
	},
}

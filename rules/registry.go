package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/text/language"
)

// Registry maps language codes to compiled rule sets. It is immutable
// after construction and implements Provider.
type Registry struct {
	sets map[string]RuleSet
}

var _ Provider = (*Registry)(nil)

var builtin = sync.OnceValue(func() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(fmt.Sprintf("rules: builtin definitions: %v", err))
	}
	return r
})

// Builtin returns the registry of built-in languages.
func Builtin() *Registry {
	return builtin()
}

// NewRegistry compiles the built-in definitions followed by defs. A
// definition whose code matches an existing one replaces it; use Extends to
// build on it instead.
func NewRegistry(defs ...Definition) (*Registry, error) {
	byCode := make(map[string]Definition, len(builtinDefinitions)+len(defs))
	for _, d := range builtinDefinitions {
		byCode[normalizeCode(d.Code)] = d
	}
	for _, d := range defs {
		code := normalizeCode(d.Code)
		if code == "" {
			return nil, errors.New("rules: definition without code")
		}
		if normalizeCode(d.Extends) == code {
			// Extending a builtin of the same code layers on top of it.
			base, ok := byCode[code]
			if !ok {
				return nil, fmt.Errorf("rules %q: extends itself", d.Code)
			}
			merged, err := resolve(base, byCode, nil)
			if err != nil {
				return nil, err
			}
			d.Extends = ""
			d = d.merge(merged)
		}
		d.Code = code
		byCode[code] = d
	}

	sets := make(map[string]RuleSet, len(byCode))
	for code, d := range byCode {
		merged, err := resolve(d, byCode, nil)
		if err != nil {
			return nil, err
		}
		merged.Code = code
		rs, err := compile(merged)
		if err != nil {
			return nil, err
		}
		sets[code] = rs
	}

	return &Registry{sets: sets}, nil
}

// resolve flattens the Extends chain of d.
func resolve(d Definition, byCode map[string]Definition, seen []string) (Definition, error) {
	parent := normalizeCode(d.Extends)
	if parent == "" {
		return d, nil
	}
	if lo.Contains(seen, parent) {
		return Definition{}, fmt.Errorf("rules %q: extends cycle through %q", d.Code, parent)
	}
	base, ok := byCode[parent]
	if !ok {
		return Definition{}, fmt.Errorf("rules %q: extends %w %q", d.Code, ErrUnknownLanguage, d.Extends)
	}
	resolved, err := resolve(base, byCode, append(seen, parent))
	if err != nil {
		return Definition{}, err
	}
	return d.merge(resolved), nil
}

// Resolve returns the rule set for code. Codes are matched exactly first,
// then by their base language ("en-GB" resolves to "en").
func (r *Registry) Resolve(code string) (RuleSet, error) {
	key := normalizeCode(code)
	if rs, ok := r.sets[key]; ok {
		return rs, nil
	}

	if tag, err := language.Parse(key); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			if rs, ok := r.sets[base.String()]; ok {
				return rs, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
}

// Languages returns the registered codes in sorted order.
func (r *Registry) Languages() []string {
	codes := lo.Keys(r.sets)
	sort.Strings(codes)
	return codes
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

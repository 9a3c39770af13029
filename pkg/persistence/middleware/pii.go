package middleware

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/aretw0/lattice/pkg/ports"
)

// Mask replaces the value of every masked field.
const Mask = "***"

type piiMiddleware struct {
	next     ports.KeyValueStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks JSON fields whose names match the patterns.
// Values that are not JSON are stored unchanged. Masking is one-way: reads return the masked data.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.KeyValueStore) ports.KeyValueStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Set(ctx context.Context, key string, value []byte) error {
	var doc any
	if err := json.Unmarshal(value, &doc); err != nil {
		return m.next.Set(ctx, key, value)
	}

	if !mask(doc, m.patterns) {
		return m.next.Set(ctx, key, value)
	}
	masked, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return m.next.Set(ctx, key, masked)
}

func (m *piiMiddleware) Get(ctx context.Context, key string) ([]byte, error) {
	return m.next.Get(ctx, key)
}

func (m *piiMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *piiMiddleware) Keys(ctx context.Context) ([]string, error) {
	return m.next.Keys(ctx)
}

// mask walks a decoded JSON document in place and reports whether anything changed.
func mask(v any, patterns []*regexp.Regexp) bool {
	changed := false
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if matchesAny(k, patterns) {
				t[k] = Mask
				changed = true
				continue
			}
			if mask(child, patterns) {
				changed = true
			}
		}
	case []any:
		for _, child := range t {
			if mask(child, patterns) {
				changed = true
			}
		}
	}
	return changed
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

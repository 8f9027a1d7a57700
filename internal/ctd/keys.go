package ctd

import (
	"strings"
	"unicode"
)

// KeyResolver maps header column names to field positions. Names are compared
// after NormalizeKey, so " CTDPRS", "CTDPRS " and "ctdprs" all resolve to the
// same column.
type KeyResolver struct {
	index map[string]int
}

// NewKeyResolver builds a resolver for a header row. When two columns
// normalize to the same key, the first one wins.
func NewKeyResolver(header []string) *KeyResolver {
	r := &KeyResolver{index: make(map[string]int, len(header))}
	for i, name := range header {
		key := NormalizeKey(name)
		if key == "" {
			continue
		}
		if _, dup := r.index[key]; !dup {
			r.index[key] = i
		}
	}
	return r
}

// NormalizeKey drops whitespace and byte-order marks and upper-cases the rest.
func NormalizeKey(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\ufeff' {
			return -1
		}
		return unicode.ToUpper(r)
	}, name)
}

// Index returns the position of name in the header.
func (r *KeyResolver) Index(name string) (int, bool) {
	i, ok := r.index[NormalizeKey(name)]
	return i, ok
}

// Lookup returns the value of column name in row. A row shorter than the
// header reports the value as missing.
func (r *KeyResolver) Lookup(row []string, name string) (string, bool) {
	i, ok := r.Index(name)
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}

// Package schema resolves loosely-specified logical field names onto the
// actual column headers of an input table.
//
// Headers coming from upstream exports vary in casing, punctuation,
// whitespace and diacritics (both cedilla and comma-below forms of the
// Romanian Ș/Ț appear in the wild). Resolution normalizes both sides,
// tries an exact match in candidate priority order, then falls back to
// substring containment in either direction.
package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"astob-order-generator/pkg/errors"
)

// stripMarks decomposes to NFD and removes combining marks, which strips
// diacritics from Latin letters.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// cedillaFixer maps the legacy cedilla forms of Romanian letters onto the
// comma-below forms so both decompose to the same base letter.
var cedillaFixer = strings.NewReplacer(
	"Ş", "Ș", "ş", "ș",
	"Ţ", "Ț", "ţ", "ț",
)

// punctToSpace collapses the punctuation commonly found in headers.
var punctToSpace = strings.NewReplacer(
	".", " ", ",", " ", "/", " ", "_", " ", "-", " ",
)

// Normalize canonicalizes a header or candidate name for comparison:
// diacritics stripped, punctuation and repeated whitespace collapsed to
// single spaces, uppercased and trimmed.
func Normalize(s string) string {
	s = cedillaFixer.Replace(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	s = punctToSpace.Replace(s)
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Resolver matches logical field names against a fixed set of table headers.
type Resolver struct {
	headers    []string
	normalized []string          // normalized form, parallel to headers
	byNorm     map[string]string // normalized -> original, first occurrence wins
}

// NewResolver builds a Resolver over the given table headers.
func NewResolver(headers []string) *Resolver {
	r := &Resolver{
		headers:    append([]string(nil), headers...),
		normalized: make([]string, len(headers)),
		byNorm:     make(map[string]string, len(headers)),
	}
	for i, h := range headers {
		n := Normalize(h)
		r.normalized[i] = n
		if _, exists := r.byNorm[n]; !exists {
			r.byNorm[n] = h
		}
	}
	return r
}

// Resolve returns the actual header matching one of the candidate names for
// the given logical field. Candidates are tried in order: an exact
// normalized match wins first; failing that, substring containment in
// either direction is accepted. Containment is a deliberate fuzziness and
// may pick an unintended header when several are substring-compatible.
func (r *Resolver) Resolve(field string, candidates []string) (string, error) {
	for _, cand := range candidates {
		if orig, ok := r.byNorm[Normalize(cand)]; ok {
			return orig, nil
		}
	}
	for i, headerNorm := range r.normalized {
		if headerNorm == "" {
			continue
		}
		for _, cand := range candidates {
			candNorm := Normalize(cand)
			if candNorm == "" {
				continue
			}
			if strings.Contains(headerNorm, candNorm) || strings.Contains(candNorm, headerNorm) {
				return r.headers[i], nil
			}
		}
	}
	return "", errors.SchemaError(field, candidates, r.headers)
}

// ResolveAll resolves every field of the alias set, returning a map from
// logical field name to actual header. Fields listed in optional may be
// absent; they are omitted from the result instead of failing.
func (r *Resolver) ResolveAll(aliases FieldAliases, optional ...string) (map[string]string, error) {
	opt := make(map[string]bool, len(optional))
	for _, f := range optional {
		opt[f] = true
	}

	resolved := make(map[string]string, len(aliases))
	for field, candidates := range aliases {
		header, err := r.Resolve(field, candidates)
		if err != nil {
			if opt[field] {
				continue
			}
			return nil, err
		}
		resolved[field] = header
	}
	return resolved, nil
}

// Package normalize canonicalizes raw company-name strings for cache keys
// and fallback-ID hashing.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// EmptySentinel replaces names that normalize to nothing so downstream
// hashing never sees zero-length input.
const EmptySentinel = "__empty__"

// statusMarkers lists non-identifying annotations that upstream systems
// append to company names. Matching runs after width folding, bracket
// unification, and lower-casing, so one lower-case ASCII-bracket spelling
// per marker covers the full-width, exotic-bracket, and mixed-case
// variants too. Catalog data, not behavior: extend freely.
var statusMarkers = []string{
	"(已终止)", "已终止",
	"(已注销)", "已注销",
	"(已吊销)", "已吊销",
	"(已撤销)", "已撤销",
	"(已作废)", "已作废",
	"(已合并)", "已合并",
	"(待转移)", "待转移",
	"(待迁出)", "待迁出",
	"(停用)", "(作废)", "(勿用)",
	"(terminated)", "(inactive)", "(closed)", "(defunct)",
	"(duplicate)", "(donotuse)", "(old)", "(obsolete)",
	"(pendingtransfer)", "(merged)",
	"-terminated", "-inactive", "-duplicate",
}

// bracketReplacer maps the bracket styles seen in ingested names to one
// canonical ASCII pair. Full-width （） fold to () before this runs.
var bracketReplacer = strings.NewReplacer(
	"【", "(", "】", ")",
	"〔", "(", "〕", ")",
	"〖", "(", "〗", ")",
	"「", "(", "」", ")",
	"『", "(", "』", ")",
	"《", "(", "》", ")",
	"〈", "(", "〉", ")",
	"[", "(", "]", ")",
	"{", "(", "}", ")",
)

const trailingPunct = ".,;:、。；：·・-~～!！?？/\\|"

// Normalize converts a raw company name into its canonical form. The
// transformation is pure and total: every input yields a non-empty output,
// and Normalize(Normalize(s)) == Normalize(s). Steps run in fixed order:
//  1. Remove all whitespace (including ideographic space)
//  2. Fold full-width characters to half-width
//  3. Unify bracket styles to ()
//  4. Lower-case for hash stability
//  5. Remove known status/suffix markers
//  6. Trim trailing punctuation
//
// Names that normalize to nothing map to EmptySentinel.
func Normalize(raw string) string {
	s := stripWhitespace(raw)
	s = width.Fold.String(s)
	s = bracketReplacer.Replace(s)
	s = strings.ToLower(s)
	s = stripMarkers(s)
	s = strings.TrimRight(s, trailingPunct)

	if s == "" {
		return EmptySentinel
	}
	return s
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripMarkers removes catalog markers from the lower-cased name until none
// remain. Iterating to a fixed point keeps the removal order-independent:
// deleting one marker can butt two halves of another together, and that
// occurrence must not survive.
func stripMarkers(s string) string {
	for {
		out := s
		for _, marker := range statusMarkers {
			out = strings.ReplaceAll(out, marker, "")
		}
		if out == s {
			return s
		}
		s = out
	}
}

// Package codes turns pasted or scanned text into candidate master codes.
//
// Parse is pure: it splits free text into tokens, reduces scanned tracking
// URLs to their final path component, folds Unicode compatibility forms, and
// reports duplicate and invalid counts while keeping every occurrence in
// submission order. Downstream classification emits one outcome per
// occurrence, so duplicates are counted, never dropped.
package codes

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const trackSegment = "/track/"

// ParsedInput is the result of splitting one raw submission.
type ParsedInput struct {
	RawTokens        []string
	NormalizedTokens []string
	UniqueCount      int
	DuplicateCount   int
	InvalidCount     int
}

// Parse splits raw text on line breaks and then on tab, comma, and semicolon.
// Blank pieces are dropped silently; non-blank pieces that normalize to an
// empty code are counted as invalid and excluded from both token lists.
func Parse(raw string) ParsedInput {
	var out ParsedInput
	seen := make(map[string]struct{})

	for _, piece := range split(raw) {
		trimmed := strings.TrimSpace(piece)
		if trimmed == "" {
			continue
		}
		code := Normalize(trimmed)
		if code == "" {
			out.InvalidCount++
			continue
		}
		out.RawTokens = append(out.RawTokens, trimmed)
		out.NormalizedTokens = append(out.NormalizedTokens, code)
		if _, dup := seen[code]; dup {
			out.DuplicateCount++
			continue
		}
		seen[code] = struct{}{}
		out.UniqueCount++
	}
	return out
}

// Normalize reduces a single token to its canonical code form. It returns an
// empty string when nothing usable remains.
func Normalize(token string) string {
	folded := fold(token)
	folded = strings.TrimSpace(folded)
	if folded == "" {
		return ""
	}
	if idx := strings.LastIndex(folded, trackSegment); idx >= 0 {
		folded = lastPathComponent(folded[idx+len(trackSegment):])
	}
	return strings.TrimSpace(folded)
}

func split(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	var pieces []string
	for _, line := range strings.Split(raw, "\n") {
		pieces = append(pieces, strings.FieldsFunc(line, isSeparator)...)
	}
	return pieces
}

func isSeparator(r rune) bool {
	return r == '\t' || r == ',' || r == ';'
}

func lastPathComponent(tail string) string {
	if i := strings.IndexAny(tail, "?#"); i >= 0 {
		tail = tail[:i]
	}
	tail = strings.Trim(tail, "/")
	if i := strings.LastIndex(tail, "/"); i >= 0 {
		tail = tail[i+1:]
	}
	return tail
}

// fold applies NFKC so full-width scanner output becomes ASCII and removes
// format runes such as zero-width spaces and byte-order marks.
func fold(value string) string {
	t := transform.Chain(norm.NFKC, runes.Remove(runes.In(unicode.Cf)))
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// decorationReplacer removes marks that routinely differ between storefront
// and catalog titles without affecting identity.
var decorationReplacer = strings.NewReplacer(
	"\u2122", "", // ™
	"\u00ae", "", // ®
	"\u00a9", "", // ©
	"\u2120", "", // ℠
	"\u2013", "-", // en dash
	"\u2014", "-", // em dash
	"\u2018", "'",
	"\u2019", "'",
	"\u201c", "\"",
	"\u201d", "\"",
)

// Sanitize strips trademark/registration glyphs and decorative punctuation
// from a storefront title and collapses runs of whitespace.
func Sanitize(name string) string {
	name = norm.NFKC.String(name)
	name = decorationReplacer.Replace(name)
	var b strings.Builder
	b.Grow(len(name))
	prevSpace := false
	for _, r := range name {
		if unicode.IsSpace(r) {
			if !prevSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// suffixQualifiers are edition markers stripped by Simplify. Longer phrases
// come first so that compound qualifiers are removed whole.
var suffixQualifiers = []string{
	"game of the year edition",
	"enhanced edition",
	"definitive edition",
	"complete edition",
	"deluxe edition",
	"ultimate edition",
	"anniversary edition",
	"collector's edition",
	"legendary edition",
	"special edition",
	"digital edition",
	"standard edition",
	"director's cut",
	"remastered",
	"remaster",
	"remake",
	"redux",
	"hd",
	"goty",
}

var (
	trailingYear      = regexp.MustCompile(`\s*\((?:19|20)\d{2}\)\s*$`)
	trailingSeparator = regexp.MustCompile(`[\s:\-]+$`)

	// Catches subtitle-style qualifiers the fixed list cannot enumerate,
	// e.g. "Dark Souls: Prepare to Die Edition".
	trailingEditionClause = regexp.MustCompile(`(?i)\s*[:\-]\s*[^:]*\bedition\s*$`)
)

// Simplify strips edition and suffix qualifiers from a sanitized title.
// It must only be applied to Sanitize output; the result is never longer
// than its input.
func Simplify(sanitized string) string {
	out := trailingYear.ReplaceAllString(sanitized, "")
	lower := strings.ToLower(out)
	for _, qualifier := range suffixQualifiers {
		if !strings.HasSuffix(lower, qualifier) {
			continue
		}
		// Word boundary: "Zygote" must not lose a trailing "goty".
		if idx := len(out) - len(qualifier); idx > 0 {
			switch out[idx-1] {
			case ' ', ':', '-':
			default:
				continue
			}
		}
		out = strings.TrimSpace(out[:len(out)-len(qualifier)])
		out = trailingSeparator.ReplaceAllString(out, "")
		lower = strings.ToLower(out)
	}
	out = trailingEditionClause.ReplaceAllString(out, "")
	out = trailingSeparator.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	if out == "" {
		return sanitized
	}
	return out
}

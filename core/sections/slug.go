package sections

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fallbackSlug replaces a heading that has no letters or digits at all.
const fallbackSlug = "section"

// Slugify folds diacritics on Latin letters, lowercases, replaces every run
// of characters that are neither letters nor digits (in any script) with one
// hyphen and trims hyphens from both ends.
//
//	"Café Society!"  -> "cafe-society"
//	"日本の歴史"        -> "日本の歴史"
//	"  --  "         -> "section"
func Slugify(name string) string {
	folded := strings.ToLower(foldLatin(name))

	var sb strings.Builder
	hyphen := false
	kept := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if hyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			hyphen = false
			kept = true
			sb.WriteRune(r)
		case unicode.IsMark(r) && kept && !hyphen:
			// vowel signs and other marks belong to the preceding letter
			sb.WriteRune(r)
		default:
			hyphen = true
			kept = false
		}
	}
	if sb.Len() == 0 {
		return fallbackSlug
	}
	return sb.String()
}

// foldLatin drops the combining marks that follow a Latin letter, so "é"
// becomes "e" while marks in other scripts are kept.
func foldLatin(s string) string {
	var sb strings.Builder
	latin := false
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			if latin {
				continue
			}
		} else {
			latin = unicode.Is(unicode.Latin, r)
		}
		sb.WriteRune(r)
	}
	return norm.NFC.String(sb.String())
}

// unique returns base, or base-N with the smallest N >= 2 not yet taken,
// and records the result as taken.
func unique(base string, taken map[string]bool) string {
	slug := base
	for n := 2; taken[slug]; n++ {
		slug = base + "-" + strconv.Itoa(n)
	}
	taken[slug] = true
	return slug
}

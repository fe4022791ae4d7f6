package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugInvalid    = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	slugUnderscore = regexp.MustCompile(`_+`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// StripDiacritics decomposes s and drops every non-ASCII rune, so "Čapek"
// becomes "Capek" and characters without an ASCII base disappear.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SanitizeFileName makes name usable as a single path component while keeping
// its Unicode text. Separators and colons become dashes, other reserved
// characters and control runes are dropped, whitespace runs collapse, and
// trailing dots are trimmed.
func SanitizeFileName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.TrimRight(strings.Join(strings.Fields(mapped), " "), ". ")
}

// Slug converts s into a filesystem-safe ASCII token. Returns "Unknown" when
// nothing survives.
func Slug(s string) string {
	s = StripDiacritics(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = slugInvalid.ReplaceAllString(s, "_")
	s = strings.Trim(slugUnderscore.ReplaceAllString(s, "_"), "_")
	if s == "" {
		return "Unknown"
	}
	return s
}

// FoldKey returns the NFKC-normalized, case-folded form of s used for
// case-insensitive comparisons and ordering.
func FoldKey(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

// NormalizeName tidies a display name: NFKC, underscores to spaces, collapsed
// whitespace, and title case except for acronyms and words containing digits.
func NormalizeName(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))

	titler := cases.Title(language.Und)
	words := strings.Split(s, " ")
	for i, w := range words {
		if isUpperWord(w) || strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			continue
		}
		words[i] = titler.String(w)
	}
	return strings.Join(words, " ")
}

func isUpperWord(w string) bool {
	cased := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// GuessAuthorTitle splits "Given Surname - Title" into ("Surname.Given", "Title").
// Names without the " - " separator yield an empty author and the trimmed name.
func GuessAuthorTitle(name string) (string, string) {
	s := strings.TrimSpace(name)
	left, right, ok := strings.Cut(s, " - ")
	if !ok {
		return "", s
	}
	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)
	if left == "" || right == "" {
		return "", s
	}
	parts := strings.Fields(left)
	if len(parts) >= 2 {
		surname := parts[len(parts)-1]
		return surname + "." + strings.Join(parts[:len(parts)-1], ""), right
	}
	return left, right
}

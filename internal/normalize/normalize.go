// Package normalize canonicalizes free-text company, contact, and address
// fields into comparable keys. Every function is pure: matching stays
// reproducible and testable in isolation.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var legalSuffixes = regexp.MustCompile(
	`(?i)\s*,?\s*(LLC|L\.?L\.?C\.?|INC\.?|INCORPORATED|CORP\.?|CORPORATION|` +
		`CO\.?|COMPANY|LTD\.?|LIMITED|L\.?P\.?|LLP|L\.?L\.?P\.?|` +
		`PLLC|P\.?L\.?L\.?C\.?|P\.?C\.?|DBA|D/B/A)\s*\.?\s*$`)

var (
	multiSpace = regexp.MustCompile(`\s{2,}`)
	nonDigits  = regexp.MustCompile(`\D`)
	punct      = regexp.MustCompile(`[^\p{L}\p{N}\s&-]`)
)

// accentFolder strips combining marks: "Café Résumé" -> "Cafe Resume".
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents removes diacritics from s.
func FoldAccents(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return out
}

// CompanyName canonicalizes a company name: lowercase, accents folded,
// punctuation and legal suffixes ("inc", "llc", "corp", "co", ...) stripped,
// whitespace collapsed.
func CompanyName(raw string) string {
	n := strings.TrimSpace(raw)
	// Suffixes stack ("Best Buy Co., Inc."), so strip until stable. A name
	// that is nothing but a suffix keeps its last non-empty form.
	for {
		stripped := legalSuffixes.ReplaceAllString(n, "")
		if stripped == n || strings.TrimSpace(stripped) == "" {
			break
		}
		n = stripped
	}
	n = FoldAccents(n)
	n = strings.ToLower(n)
	n = punct.ReplaceAllString(n, " ")
	n = multiSpace.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// Domain reduces a website or domain field to the registrable domain:
// protocol, www prefix, path, query, and port are stripped.
func Domain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.IndexByte(d, ':'); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	if !strings.Contains(d, ".") {
		return ""
	}
	return d
}

// PersonName collapses a contact name to "first last" with accents folded.
func PersonName(first, last string) string {
	full := strings.TrimSpace(first + " " + last)
	return FullName(full)
}

// FullName canonicalizes an already-joined person name.
func FullName(raw string) string {
	n := FoldAccents(strings.TrimSpace(raw))
	n = strings.ToLower(n)
	n = multiSpace.ReplaceAllString(n, " ")
	return n
}

// Phone strips everything but digits from a phone number.
func Phone(raw string) string {
	return nonDigits.ReplaceAllString(raw, "")
}

// Email lowercases and trims an email address.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// AddressKey builds the canonical cache key for an address. The geocode cache
// and its idempotent upserts are keyed on this string.
func AddressKey(street, city, state, zip string) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(street)),
		strings.ToLower(strings.TrimSpace(city)),
		strings.ToLower(strings.TrimSpace(state)),
		strings.TrimSpace(zip),
	}
	return strings.Join(parts, "|")
}

// Tokens splits a normalized name into its word set for token-overlap scoring.
func Tokens(normalized string) []string {
	fields := strings.Fields(normalized)
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

package pool

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrMalformedCounterparty is returned when a counterparty name has no
// usable characters once normalized.
var ErrMalformedCounterparty = errors.New("malformed counterparty")

// legalSuffixes are trailing tokens dropped from counterparty names so that
// "ACME SRL" and "Acme S.r.l." share a key.
var legalSuffixes = map[string]bool{
	"srl":          true,
	"srls":         true,
	"spa":          true,
	"sapa":         true,
	"sas":          true,
	"snc":          true,
	"ss":           true,
	"scarl":        true,
	"scrl":         true,
	"coop":         true,
	"unipersonale": true,
	"ltd":          true,
	"llc":          true,
	"inc":          true,
	"gmbh":         true,
	"sa":           true,
	"sarl":         true,
	"bv":           true,
	"ag":           true,
	"plc":          true,
	"co":           true,
	"corp":         true,
}

// maxSuffixTokens bounds how many spaced-out tokens ("s p a") may form a suffix.
const maxSuffixTokens = 4

// NormalizeCounterparty turns a counterparty name into its grouping key:
// case-folded, accents removed, punctuation-insensitive, whitespace collapsed
// and with trailing legal-entity suffixes stripped.
func NormalizeCounterparty(name string) (string, error) {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripAccents, name)
	if err != nil {
		return "", errors.Join(ErrMalformedCounterparty, err)
	}
	plain = cases.Fold().String(plain)

	var b strings.Builder
	for _, r := range plain {
		switch {
		case r == '.' || r == '\'' || r == '’':
			// "s.r.l." -> "srl", "dell'acqua" -> "dellacqua"
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	if len(tokens) == 0 {
		return "", ErrMalformedCounterparty
	}

	tokens = stripLegalSuffixes(tokens)
	return strings.Join(tokens, " "), nil
}

// stripLegalSuffixes removes trailing suffix tokens, repeatedly, never
// reducing the name to nothing.
func stripLegalSuffixes(tokens []string) []string {
	for {
		n := suffixLength(tokens)
		if n == 0 || n == len(tokens) {
			return tokens
		}
		tokens = tokens[:len(tokens)-n]
	}
}

// suffixLength returns how many trailing tokens spell a legal suffix, or 0.
// Multi-token suffixes are only accepted when every token is a single letter
// ("s r l") so that real name words are never merged.
func suffixLength(tokens []string) int {
	last := tokens[len(tokens)-1]
	if legalSuffixes[last] {
		return 1
	}

	joined := ""
	for n := 1; n <= maxSuffixTokens && n <= len(tokens); n++ {
		tok := tokens[len(tokens)-n]
		if len([]rune(tok)) != 1 {
			return 0
		}
		joined = tok + joined
		if n > 1 && legalSuffixes[joined] {
			return n
		}
	}
	return 0
}

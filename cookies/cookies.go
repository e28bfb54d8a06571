// Package cookies implements the permissive cookie-header codec used for
// session correlation. Parsing is deliberately forgiving: the inbound header
// is split on the literal list separator "; ", a token without an "=" is
// dropped without error, and everything after the first "=" of a token is the
// value verbatim (it may itself contain further "=" characters).
package cookies

import "strings"

const (
	listSep = "; "
	pairSep = "="
)

// Pair is a single name/value cookie extracted from a header value. Names
// and values are opaque; duplicates across pairs are legal and ordered.
type Pair struct {
	Name  string
	Value string
}

// ParseCookieHeader splits a single cookie header value into its ordered
// pairs. Malformed tokens (no "=") are skipped silently.
func ParseCookieHeader(s string) []Pair {
	var pairs []Pair
	for _, tok := range strings.Split(s, listSep) {
		name, value, ok := strings.Cut(tok, pairSep)
		if !ok {
			// Somewhat malformed; ignore the token and keep parsing.
			continue
		}
		pairs = append(pairs, Pair{Name: name, Value: value})
	}
	return pairs
}

// FormatSessionCookie renders a response cookie value. No escaping is
// performed; the identifier must not contain "=" or ";".
func FormatSessionCookie(name, identifier string) string {
	return name + pairSep + identifier
}

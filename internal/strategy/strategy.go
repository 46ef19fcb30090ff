// Package strategy implements one query strategy per browser family (spec
// §4.7, §9 "Ownership over classes": a tagged set of variants implementing
// the same capability set, not a class hierarchy).
package strategy

import (
	"context"
	"regexp"
	"strings"

	"github.com/kyupark/get-cookie/internal/model"
)

// Strategy is the capability set spec §9 calls out: "queryCookies(name,
// domain) → [ExportedCookie]; browserName". Implementations never
// reference their caller (spec §9 "Cyclic references").
type Strategy interface {
	BrowserName() string
	QueryCookies(ctx context.Context, name, domain string) ([]model.ExportedCookie, error)
}

// regexpFromGlob turns the %/_ SQL wildcard characters (or a bare % or *)
// into an anchored, case-sensitive regexp, used as an in-memory filter
// after a LIKE-based SQL query over-matches (spec §4.7 step 3).
func regexpFromGlob(pattern string) string {
	if pattern == "%" || pattern == "*" {
		return "^.*$"
	}
	var b []byte
	b = append(b, '^')
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '%':
			b = append(b, '.', '*')
		case '_':
			b = append(b, '.')
		case '.', '+', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			b = append(b, '\\', c)
		default:
			b = append(b, c)
		}
	}
	b = append(b, '$')
	return string(b)
}

// domainMatches implements the same wildcard/subdomain semantics as
// internal/sqlquery's domainPredicate (spec §4.3), applied in-memory to
// prune rows a LIKE query over-matched (spec §4.7 step 3).
func domainMatches(host, domain string) bool {
	if domain == "%" || domain == "*" {
		return true
	}
	if strings.HasPrefix(domain, ".") {
		return strings.HasSuffix(host, domain)
	}
	return host == domain || host == "."+domain || strings.HasSuffix(host, "."+domain)
}

// nameMatches implements spec §4.3's name-matching rule: a bare wildcard
// matches everything, a pattern containing % or _ is a LIKE-style glob,
// otherwise an exact match is required.
func nameMatches(rowName, pattern string) bool {
	if pattern == "%" || pattern == "*" {
		return true
	}
	if !strings.ContainsAny(pattern, "%_") {
		return rowName == pattern
	}
	re, err := regexp.Compile(regexpFromGlob(pattern))
	if err != nil {
		return rowName == pattern
	}
	return re.MatchString(rowName)
}

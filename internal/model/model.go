// Package model holds the value types shared across every layer of the
// cookie-extraction pipeline, so that internal/strategy, internal/composite,
// internal/batch, and the public root package can all depend on it without
// an import cycle back to the root package.
package model

import (
	"strings"
	"time"
)

// CookieSpec identifies the cookies a caller wants. Either field may be the
// wildcard "%" or "*", matching every value.
type CookieSpec struct {
	Name   string
	Domain string
}

// IsWildcardName reports whether s.Name matches every cookie name.
func (s CookieSpec) IsWildcardName() bool { return isWildcard(s.Name) }

// IsWildcardDomain reports whether s.Domain matches every cookie domain.
func (s CookieSpec) IsWildcardDomain() bool { return isWildcard(s.Domain) }

func isWildcard(v string) bool {
	return v == "%" || v == "*"
}

// Validate trims whitespace and rejects empty fields. It does not check for
// SQL metacharacters — that check lives in internal/sqlquery, which is the
// only place user input reaches a query string, and only as a bound
// parameter.
func (s CookieSpec) Validate() (CookieSpec, error) {
	s.Name = strings.TrimSpace(s.Name)
	s.Domain = strings.TrimSpace(s.Domain)
	if s.Name == "" {
		return s, errEmptyName
	}
	if s.Domain == "" {
		return s, errEmptyDomain
	}
	return s, nil
}

var (
	errEmptyName   = invalidSpecError("empty name")
	errEmptyDomain = invalidSpecError("empty domain")
)

// invalidSpecError is a small sentinel-compatible error type; the root
// package wraps these with its exported ErrInvalidSpec in cookie.go's
// validateSpec, so callers can test for it with errors.Is.
type invalidSpecError string

func (e invalidSpecError) Error() string { return "invalid cookie spec: " + string(e) }

// IsInvalidSpecError reports whether err originated from Validate.
func IsInvalidSpecError(err error) bool {
	_, ok := err.(invalidSpecError)
	return ok
}

// CookieMeta carries provenance and browser-reported flags for a cookie.
// It is never mutated after the record is produced.
type CookieMeta struct {
	Browser   string
	File      string
	Path      string
	Secure    bool
	HttpOnly  bool
	SameSite  string
	Decrypted bool
}

// ExportedCookie is the public, immutable result of a cookie query. Value is
// always valid UTF-8: if decryption failed, Value holds the best-effort
// UTF-8 interpretation of the raw ciphertext and Meta.Decrypted is false.
type ExportedCookie struct {
	Name      string
	Domain    string
	Value     string
	Expiry    *time.Time // nil means IsSession is authoritative
	IsSession bool       // true => renders as "Infinity" / absent expiry
	Meta      CookieMeta
}

// ExpiryMillis returns the expiry as a signed 64-bit Unix-millisecond
// integer, or -1 for a session cookie.
func (c ExportedCookie) ExpiryMillis() int64 {
	if c.IsSession || c.Expiry == nil {
		return -1
	}
	return c.Expiry.UnixMilli()
}

// Fingerprint is the stable dedup key used to merge results from multiple
// strategies: name, domain, value, expiry and source file together
// identify a unique cookie occurrence.
func (c ExportedCookie) Fingerprint() string {
	var expiry string
	if c.IsSession || c.Expiry == nil {
		expiry = "inf"
	} else {
		expiry = c.Expiry.UTC().Format(time.RFC3339Nano)
	}
	return strings.Join([]string{c.Name, c.Domain, c.Value, expiry, c.Meta.File}, "\x00")
}

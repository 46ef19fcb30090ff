// Package sqlquery builds parameterized SELECT and meta queries for each
// supported SQLite cookie schema (Chromium family, Firefox), per spec §4.3.
// Every builder returns bound parameters only; no user-controlled string is
// ever interpolated into the SQL text.
package sqlquery

import (
	"fmt"
	"strings"
)

// Dialect names a cookie-store SQL schema.
type Dialect int

const (
	Chromium Dialect = iota
	Firefox
)

// schema holds the column names for one dialect, per spec §3 BrowserSchema.
type schema struct {
	table         string
	colName       string
	colValue      string
	colEncValue   string // "" for Firefox, which has none
	colHost       string
	colExpiry     string
	colPath       string
	colSecure     string
	colHTTPOnly   string
	colSameSite   string // "" when the dialect doesn't expose SameSite
	expiryIsUnixS bool   // Firefox: seconds; Chromium: microseconds since 1601
}

var schemas = map[Dialect]schema{
	Chromium: {
		table: "cookies", colName: "name", colValue: "value", colEncValue: "encrypted_value",
		colHost: "host_key", colExpiry: "expires_utc", colPath: "path",
		colSecure: "is_secure", colHTTPOnly: "is_httponly", colSameSite: "samesite",
		expiryIsUnixS: false,
	},
	Firefox: {
		table: "moz_cookies", colName: "name", colValue: "value", colEncValue: "",
		colHost: "host", colExpiry: "expiry", colPath: "path",
		colSecure: "isSecure", colHTTPOnly: "isHttpOnly", expiryIsUnixS: true,
	},
}

// Query is a parameterized statement ready for (*sql.DB).Query.
type Query struct {
	SQL    string
	Params []any
}

// Options controls predicate generation shared by all builders.
type Options struct {
	ExactDomain    bool
	IncludeExpired bool
	Limit          int // 0 means unlimited
}

var sqlKeywordDenylist = []string{
	"select", "insert", "update", "delete", "drop", "create", "alter", "--", ";",
}

// ValidateQueryParams rejects empty name/domain, SQL-keyword injection
// attempts, and out-of-range limits, per spec §4.3. It is defence in depth,
// not the primary guarantee — every value it validates is also passed as a
// bound parameter, never interpolated.
func ValidateQueryParams(name, domain string, limit int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("sqlquery: empty name")
	}
	if strings.TrimSpace(domain) == "" {
		return fmt.Errorf("sqlquery: empty domain")
	}
	lower := strings.ToLower(name + " " + domain)
	for _, kw := range sqlKeywordDenylist {
		if strings.Contains(lower, kw) {
			return fmt.Errorf("sqlquery: disallowed token %q in spec", kw)
		}
	}
	if limit != 0 && (limit < 1 || limit > 10000) {
		return fmt.Errorf("sqlquery: limit %d out of range [1, 10000]", limit)
	}
	return nil
}

// namePredicate returns the WHERE fragment and params for matching name.
func namePredicate(col, name string) (string, []any) {
	if name == "%" || name == "*" {
		return "", nil
	}
	if strings.ContainsAny(name, "%_") {
		return col + " LIKE ?", []any{name}
	}
	return col + " = ?", []any{name}
}

// domainPredicate implements spec §4.3's three-way domain matching rule.
func domainPredicate(col, domain string, opts Options) (string, []any) {
	if domain == "%" || domain == "*" {
		return "", nil
	}
	if opts.ExactDomain {
		return col + " = ?", []any{domain}
	}
	if strings.HasPrefix(domain, ".") {
		return col + " LIKE ?", []any{"%" + domain}
	}
	return fmt.Sprintf("(%s = ? OR %s = ? OR %s LIKE ?)", col, col, col),
		[]any{domain, "." + domain, "%." + domain}
}

// expiryPredicate implements spec §4.3's per-dialect expiry predicate.
func expiryPredicate(d Dialect, s schema, opts Options) string {
	if opts.IncludeExpired {
		return ""
	}
	if s.expiryIsUnixS {
		return s.colExpiry + " > strftime('%s','now')"
	}
	return s.colExpiry + " > 0"
}

func selectColumns(s schema) string {
	value := s.colValue + " AS value"
	if s.colEncValue != "" {
		value = fmt.Sprintf("%s AS value, %s AS encrypted_value", s.colValue, s.colEncValue)
	}
	cols := fmt.Sprintf("%s AS name, %s AS domain, %s, %s AS expiry, %s AS path, %s AS is_secure, %s AS is_httponly",
		s.colName, s.colHost, value, s.colExpiry, s.colPath, s.colSecure, s.colHTTPOnly)
	if s.colSameSite != "" {
		cols += fmt.Sprintf(", %s AS samesite", s.colSameSite)
	}
	return cols
}

// HasSameSite reports whether d's schema exposes a SameSite column, so
// callers know whether to scan an extra result column.
func HasSameSite(d Dialect) bool {
	return schemas[d].colSameSite != ""
}

// BuildSelect builds the per-browser SELECT for one CookieSpec.
func BuildSelect(d Dialect, name, domain string, opts Options) (Query, error) {
	s, ok := schemas[d]
	if !ok {
		return Query{}, fmt.Errorf("sqlquery: unknown dialect %d", d)
	}

	var where []string
	var params []any

	if np, na := namePredicate(s.colName, name); np != "" {
		where = append(where, np)
		params = append(params, na...)
	}
	if dp, da := domainPredicate(s.colHost, domain, opts); dp != "" {
		where = append(where, dp)
		params = append(params, da...)
	}
	if ep := expiryPredicate(d, s, opts); ep != "" {
		where = append(where, ep)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", selectColumns(s), s.table)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY %s DESC", s.colExpiry)
	if opts.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, opts.Limit)
	}

	return Query{SQL: sql, Params: params}, nil
}

// Spec is one (name, domain) pair for batch-select.
type Spec struct {
	Name   string
	Domain string
	Limit  int // per-spec limit, 0 = unlimited
}

// BuildBatchSelect combines N spec WHERE clauses with OR, per spec §4.3.
// LIMIT = min(per-spec limit) × N if any spec sets a limit. Throws on an
// empty batch.
func BuildBatchSelect(d Dialect, specs []Spec, opts Options) (Query, error) {
	if len(specs) == 0 {
		return Query{}, fmt.Errorf("sqlquery: empty batch")
	}
	s, ok := schemas[d]
	if !ok {
		return Query{}, fmt.Errorf("sqlquery: unknown dialect %d", d)
	}

	var clauses []string
	var params []any
	minLimit := 0
	for _, spec := range specs {
		var sub []string
		if np, na := namePredicate(s.colName, spec.Name); np != "" {
			sub = append(sub, np)
			params = append(params, na...)
		}
		if dp, da := domainPredicate(s.colHost, spec.Domain, opts); dp != "" {
			sub = append(sub, dp)
			params = append(params, da...)
		}
		if len(sub) == 0 {
			clauses = append(clauses, "1=1")
		} else {
			clauses = append(clauses, "("+strings.Join(sub, " AND ")+")")
		}
		if spec.Limit > 0 && (minLimit == 0 || spec.Limit < minLimit) {
			minLimit = spec.Limit
		}
	}

	where := []string{"(" + strings.Join(clauses, " OR ") + ")"}
	if ep := expiryPredicate(d, s, opts); ep != "" {
		where = append(where, ep)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s DESC",
		selectColumns(s), s.table, strings.Join(where, " AND "), s.colExpiry)
	if minLimit > 0 {
		sql += " LIMIT ?"
		params = append(params, minLimit*len(specs))
	}

	return Query{SQL: sql, Params: params}, nil
}

// BuildTableExists returns a query whose single row's single column is
// non-zero iff table exists in the opened database.
func BuildTableExists(table string) Query {
	return Query{
		SQL:    "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
		Params: []any{table},
	}
}

// BuildMeta returns the Chromium-only meta version lookup, a cheap query
// for checking that a Cookies file is readable. The strategies and the
// batch service do not run it.
func BuildMeta() Query {
	return Query{SQL: "SELECT value FROM meta WHERE key = 'version'"}
}

package strategy

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	"github.com/kyupark/get-cookie/internal/decrypt"
	"github.com/kyupark/get-cookie/internal/model"
	"github.com/kyupark/get-cookie/internal/platform"
	"github.com/kyupark/get-cookie/internal/querymon"
	"github.com/kyupark/get-cookie/internal/sqlitepool"
	"github.com/kyupark/get-cookie/internal/sqlquery"
)

// chromeEpochOffsetSeconds is 1601-01-01 to 1970-01-01, in seconds.
const chromeEpochOffsetSeconds int64 = 11_644_473_600

// farFutureMillis marks an expiry so far out it's treated as a session
// cookie (spec §4.7 step 6: "absurdly-far-future values become Infinity").
const farFutureMillis = int64(1) << 52

// ChromiumStrategy implements spec §4.7's "Chrome-family strategy" for one
// browser in the Chromium family (Chrome, Chromium, Edge, Brave).
type ChromiumStrategy struct {
	Browser   platform.Browser
	Home      string
	Pool      *sqlitepool.Pool
	Monitor   *querymon.Monitor
	Decryptor *decrypt.Decryptor
}

func (s *ChromiumStrategy) BrowserName() string { return s.Browser.String() }

// QueryCookies implements spec §4.7: discover files, query, filter,
// decrypt, and transform into uniform records. An unsupported OS fails
// with a platform error rather than silently returning empty, per spec
// §9 "except when the caller explicitly demanded that browser."
func (s *ChromiumStrategy) QueryCookies(ctx context.Context, name, domain string) ([]model.ExportedCookie, error) {
	if runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("strategy: %s unsupported on %s", s.Browser, runtime.GOOS)
	}

	files := platform.CookieFiles(s.Browser, s.Home)

	var out []model.ExportedCookie
	for _, file := range files {
		rows, err := s.queryFile(ctx, file, name, domain)
		if err != nil {
			continue // per-file errors are recorded by the query monitor (when set), never fatal here
		}
		for _, r := range rows {
			if !nameMatches(r.name, name) || !domainMatches(r.domain, domain) {
				continue
			}
			out = append(out, s.transform(r, file))
		}
	}
	return out, nil
}

type rawRow struct {
	name, domain, value string
	encValue            []byte
	expiresUTC          int64
	path                string
	secure, httpOnly    bool
	sameSite            int
}

func (s *ChromiumStrategy) queryFile(ctx context.Context, file, name, domain string) ([]rawRow, error) {
	q, err := sqlquery.BuildSelect(sqlquery.Chromium, name, domain, sqlquery.Options{})
	if err != nil {
		return nil, err
	}

	var rows []rawRow
	_, err = s.Pool.ExecuteQuery(ctx, file, "select chromium cookies", func(db *sql.DB) (int, error) {
		var scanErr error
		rows, scanErr = scanChromiumRows(db, q)
		return len(rows), scanErr
	})
	if s.Monitor != nil {
		s.Monitor.Record(querymon.Execution{SQL: q.SQL, Params: q.Params, Start: time.Now(), End: time.Now(), RowCount: len(rows), Err: err, Filepath: file})
	}
	return rows, err
}

func scanChromiumRows(db *sql.DB, q sqlquery.Query) ([]rawRow, error) {
	sqlRows, err := db.Query(q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	var out []rawRow
	for sqlRows.Next() {
		var r rawRow
		var isSecure, isHTTPOnly int
		var value, encValue []byte
		if err := sqlRows.Scan(&r.name, &r.domain, &value, &encValue, &r.expiresUTC, &r.path, &isSecure, &isHTTPOnly, &r.sameSite); err != nil {
			return nil, err
		}
		r.value = string(value)
		r.encValue = encValue
		r.secure = isSecure != 0
		r.httpOnly = isHTTPOnly != 0
		if r.value == "" && len(r.encValue) == 0 {
			continue // spec §4.7 step 4: filter out rows whose value is empty
		}
		out = append(out, r)
	}
	return out, sqlRows.Err()
}

// chromeSameSite maps Chromium's cookies.samesite integer (-1 unspecified,
// 0 none, 1 lax, 2 strict) to the same string vocabulary Safari's bit-flags
// decode to, per SameSite policy being a natural sibling of secure/httpOnly.
func chromeSameSite(v int) string {
	switch v {
	case 0:
		return "None"
	case 1:
		return "Lax"
	case 2:
		return "Strict"
	default:
		return ""
	}
}

func (s *ChromiumStrategy) transform(r rawRow, file string) model.ExportedCookie {
	value := r.value
	decrypted := false
	if len(r.encValue) > 0 {
		service := safeStorageServiceName(s.Browser)
		v, ok := s.Decryptor.DecryptOrFallback(service, "", r.encValue)
		value, decrypted = v, ok
	}

	expiry, isSession := chromeExpiryToUnixMillis(r.expiresUTC)

	return model.ExportedCookie{
		Name:      r.name,
		Domain:    r.domain,
		Value:     value,
		Expiry:    expiry,
		IsSession: isSession,
		Meta: model.CookieMeta{
			Browser:   s.Browser.String(),
			File:      file,
			Path:      r.path,
			Secure:    r.secure,
			HttpOnly:  r.httpOnly,
			SameSite:  chromeSameSite(r.sameSite),
			Decrypted: decrypted || len(r.encValue) == 0,
		},
	}
}

// chromeExpiryToUnixMillis converts spec §4.7 step 6's
// microseconds-since-1601 to Unix milliseconds, treating non-positive or
// absurdly-far-future values as a session cookie.
func chromeExpiryToUnixMillis(expiresUTC int64) (*time.Time, bool) {
	if expiresUTC <= 0 {
		return nil, true
	}
	millis := (expiresUTC/1_000_000 - chromeEpochOffsetSeconds) * 1000
	if millis > farFutureMillis {
		return nil, true
	}
	t := time.UnixMilli(millis).UTC()
	return &t, false
}

func safeStorageServiceName(b platform.Browser) string {
	return decrypt.SafeStorageService(b.String())
}

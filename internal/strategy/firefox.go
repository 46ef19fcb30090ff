package strategy

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	"github.com/kyupark/get-cookie/internal/model"
	"github.com/kyupark/get-cookie/internal/platform"
	"github.com/kyupark/get-cookie/internal/querymon"
	"github.com/kyupark/get-cookie/internal/sqlitepool"
	"github.com/kyupark/get-cookie/internal/sqlquery"
)

// FirefoxStrategy implements spec §4.7's Firefox strategy: same shape as
// ChromiumStrategy but reads moz_cookies, uses Unix-seconds expiry, and
// never decrypts (Firefox does not encrypt cookie values).
type FirefoxStrategy struct {
	Home    string
	Pool    *sqlitepool.Pool
	Monitor *querymon.Monitor
}

func (s *FirefoxStrategy) BrowserName() string { return "Firefox" }

func (s *FirefoxStrategy) QueryCookies(ctx context.Context, name, domain string) ([]model.ExportedCookie, error) {
	if runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("strategy: Firefox unsupported on %s", runtime.GOOS)
	}

	files := platform.CookieFiles(platform.Firefox, s.Home)

	var out []model.ExportedCookie
	for _, file := range files {
		rows, err := s.queryFile(ctx, file, name, domain)
		if err != nil {
			continue
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

func (s *FirefoxStrategy) queryFile(ctx context.Context, file, name, domain string) ([]rawFirefoxRow, error) {
	q, err := sqlquery.BuildSelect(sqlquery.Firefox, name, domain, sqlquery.Options{})
	if err != nil {
		return nil, err
	}

	var rows []rawFirefoxRow
	_, err = s.Pool.ExecuteQuery(ctx, file, "select firefox cookies", func(db *sql.DB) (int, error) {
		var scanErr error
		rows, scanErr = scanFirefoxRows(db, q)
		return len(rows), scanErr
	})
	if s.Monitor != nil {
		s.Monitor.Record(querymon.Execution{SQL: q.SQL, Params: q.Params, Start: time.Now(), End: time.Now(), RowCount: len(rows), Err: err, Filepath: file})
	}
	return rows, err
}

type rawFirefoxRow struct {
	name, domain, value, path string
	expirySeconds             int64
	secure, httpOnly          bool
}

func scanFirefoxRows(db *sql.DB, q sqlquery.Query) ([]rawFirefoxRow, error) {
	sqlRows, err := db.Query(q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	var out []rawFirefoxRow
	for sqlRows.Next() {
		var r rawFirefoxRow
		var isSecure, isHTTPOnly int
		if err := sqlRows.Scan(&r.name, &r.domain, &r.value, &r.expirySeconds, &r.path, &isSecure, &isHTTPOnly); err != nil {
			return nil, err
		}
		r.secure = isSecure != 0
		r.httpOnly = isHTTPOnly != 0
		if r.value == "" {
			continue
		}
		out = append(out, r)
	}
	return out, sqlRows.Err()
}

func (s *FirefoxStrategy) transform(r rawFirefoxRow, file string) model.ExportedCookie {
	var expiry *time.Time
	isSession := r.expirySeconds <= 0
	if !isSession {
		t := time.Unix(r.expirySeconds, 0).UTC()
		expiry = &t
	}
	return model.ExportedCookie{
		Name:      r.name,
		Domain:    r.domain,
		Value:     r.value,
		Expiry:    expiry,
		IsSession: isSession,
		Meta: model.CookieMeta{
			Browser:   "Firefox",
			File:      file,
			Path:      r.path,
			Secure:    r.secure,
			HttpOnly:  r.httpOnly,
			Decrypted: true, // never encrypted to begin with
		},
	}
}

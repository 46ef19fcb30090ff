// Package batch implements a batch query service: given many CookieSpecs at
// once, issue one compound SQL query per cookie file instead of one query
// per spec, dedupe the combined result, and fall back to per-spec retries
// when a batch query itself fails.
package batch

import (
	"context"
	"database/sql"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kyupark/get-cookie/internal/decrypt"
	"github.com/kyupark/get-cookie/internal/model"
	"github.com/kyupark/get-cookie/internal/platform"
	"github.com/kyupark/get-cookie/internal/querymon"
	"github.com/kyupark/get-cookie/internal/sqlitepool"
	"github.com/kyupark/get-cookie/internal/sqlquery"
)

const (
	cacheTTL      = 5 * time.Second
	cacheMaxAge   = time.Hour
	evictInterval = 30 * time.Second
	maxWorkers    = 8
)

// Options controls batch behavior.
type Options struct {
	// ContinueOnError retries each spec individually when its file's batch
	// query fails outright, rather than dropping the whole file's results.
	// The zero value is false; the root package's Service.BatchGetCookies
	// always sets it to true.
	ContinueOnError bool
	IncludeExpired  bool
}

// Service runs batched cookie lookups across every Chromium-family browser
// plus Firefox, backed by a shared sqlitepool.Pool.
type Service struct {
	Home      string
	Pool      *sqlitepool.Pool
	Monitor   *querymon.Monitor
	Decryptor *decrypt.Decryptor

	mu        sync.Mutex
	cache     map[string]cacheEntry
	lastEvict time.Time
}

type cacheEntry struct {
	data      []model.ExportedCookie
	timestamp time.Time
}

// New creates a batch Service.
func New(home string, pool *sqlitepool.Pool, monitor *querymon.Monitor, decryptor *decrypt.Decryptor) *Service {
	return &Service{
		Home:      home,
		Pool:      pool,
		Monitor:   monitor,
		Decryptor: decryptor,
		cache:     make(map[string]cacheEntry),
	}
}

var chromiumBrowsers = []platform.Browser{platform.Chrome, platform.Chromium, platform.Edge, platform.Brave}

// fileJob is one cookie-store file to run a batch query against.
type fileJob struct {
	browser platform.Browser
	dialect sqlquery.Dialect
	path    string
}

// BatchGetCookies runs specs against every discoverable cookie file,
// concurrently (bounded worker pool), merges, dedupes by (name, domain)
// keeping the longest value, and caches the combined result.
func (s *Service) BatchGetCookies(ctx context.Context, specs []model.CookieSpec, opts Options) ([]model.ExportedCookie, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	key := batchCacheKey(specs, opts)
	if cached, ok := s.lookupCache(key); ok {
		return cached, nil
	}

	jobs := s.discoverJobs()
	results := s.runJobs(ctx, jobs, specs, opts)

	merged := dedupeLongestValue(results)
	s.storeCache(key, merged)
	return merged, nil
}

func (s *Service) discoverJobs() []fileJob {
	var jobs []fileJob
	for _, b := range chromiumBrowsers {
		for _, f := range platform.CookieFiles(b, s.Home) {
			jobs = append(jobs, fileJob{browser: b, dialect: sqlquery.Chromium, path: f})
		}
	}
	for _, f := range platform.CookieFiles(platform.Firefox, s.Home) {
		jobs = append(jobs, fileJob{browser: platform.Firefox, dialect: sqlquery.Firefox, path: f})
	}
	return jobs
}

// runJobs fans file jobs out across a bounded worker pool, running every
// discovered file but never more than maxWorkers at once.
func (s *Service) runJobs(ctx context.Context, jobs []fileJob, specs []model.CookieSpec, opts Options) [][]model.ExportedCookie {
	results := make([][]model.ExportedCookie, len(jobs))

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for i, j := range jobs {
		sem <- struct{}{}
		go func(i int, j fileJob) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.runFile(ctx, j, specs, opts)
		}(i, j)
	}
	wg.Wait()

	return results
}

func (s *Service) runFile(ctx context.Context, j fileJob, specs []model.CookieSpec, opts Options) []model.ExportedCookie {
	if runtime.GOOS != "darwin" {
		return nil
	}

	qSpecs := make([]sqlquery.Spec, len(specs))
	for i, sp := range specs {
		qSpecs[i] = sqlquery.Spec{Name: sp.Name, Domain: sp.Domain}
	}
	q, err := sqlquery.BuildBatchSelect(j.dialect, qSpecs, sqlquery.Options{IncludeExpired: opts.IncludeExpired})
	if err != nil {
		log.Warn().Err(err).Str("file", j.path).Msg("batch: could not build query")
		return nil
	}

	rows, err := s.execBatch(ctx, j, q)
	if err != nil {
		log.Warn().Err(err).Str("file", j.path).Msg("batch: query failed")
		if opts.ContinueOnError {
			return s.retryPerSpec(ctx, j, specs, opts)
		}
		return nil
	}
	return rows
}

// retryPerSpec falls back to one query per spec when the batch query for a
// file failed outright.
func (s *Service) retryPerSpec(ctx context.Context, j fileJob, specs []model.CookieSpec, opts Options) []model.ExportedCookie {
	var out []model.ExportedCookie
	for _, sp := range specs {
		q, err := sqlquery.BuildSelect(j.dialect, sp.Name, sp.Domain, sqlquery.Options{IncludeExpired: opts.IncludeExpired})
		if err != nil {
			continue
		}
		rows, err := s.execBatch(ctx, j, q)
		if err != nil {
			continue
		}
		out = append(out, rows...)
	}
	return out
}

func (s *Service) execBatch(ctx context.Context, j fileJob, q sqlquery.Query) ([]model.ExportedCookie, error) {
	start := time.Now()
	var rows []model.ExportedCookie
	_, err := s.Pool.ExecuteQuery(ctx, j.path, "batch select", func(db *sql.DB) (int, error) {
		var scanErr error
		rows, scanErr = s.scanAndTransform(db, q, j)
		return len(rows), scanErr
	})
	if s.Monitor != nil {
		s.Monitor.Record(querymon.Execution{SQL: q.SQL, Params: q.Params, Start: start, End: time.Now(), RowCount: len(rows), Err: err, Filepath: j.path})
	}
	return rows, err
}

func (s *Service) scanAndTransform(db *sql.DB, q sqlquery.Query, j fileJob) ([]model.ExportedCookie, error) {
	sqlRows, err := db.Query(q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	var out []model.ExportedCookie
	if j.dialect == sqlquery.Chromium {
		for sqlRows.Next() {
			var name, domain, path string
			var value, encValue []byte
			var expiresUTC int64
			var isSecure, isHTTPOnly, sameSite int
			if err := sqlRows.Scan(&name, &domain, &value, &encValue, &expiresUTC, &path, &isSecure, &isHTTPOnly, &sameSite); err != nil {
				return nil, err
			}
			if len(value) == 0 && len(encValue) == 0 {
				continue
			}
			out = append(out, s.transformChromium(j, name, domain, path, value, encValue, expiresUTC, isSecure != 0, isHTTPOnly != 0, sameSite))
		}
	} else {
		for sqlRows.Next() {
			var name, domain, value, path string
			var expirySeconds int64
			var isSecure, isHTTPOnly int
			if err := sqlRows.Scan(&name, &domain, &value, &expirySeconds, &path, &isSecure, &isHTTPOnly); err != nil {
				return nil, err
			}
			if value == "" {
				continue
			}
			out = append(out, transformFirefox(j, name, domain, path, value, expirySeconds, isSecure != 0, isHTTPOnly != 0))
		}
	}
	return out, sqlRows.Err()
}

const chromeEpochOffsetSeconds int64 = 11_644_473_600
const farFutureMillis = int64(1) << 52

func (s *Service) transformChromium(j fileJob, name, domain, path string, value, encValue []byte, expiresUTC int64, secure, httpOnly bool, sameSite int) model.ExportedCookie {
	v := string(value)
	decrypted := len(encValue) == 0
	if len(encValue) > 0 {
		service := decrypt.SafeStorageService(j.browser.String())
		got, ok := s.Decryptor.DecryptOrFallback(service, "", encValue)
		v, decrypted = got, ok
	}

	var expiry *time.Time
	isSession := expiresUTC <= 0
	if !isSession {
		millis := (expiresUTC/1_000_000 - chromeEpochOffsetSeconds) * 1000
		if millis > farFutureMillis {
			isSession = true
		} else {
			t := time.UnixMilli(millis).UTC()
			expiry = &t
		}
	}

	return model.ExportedCookie{
		Name: name, Domain: domain, Value: v, Expiry: expiry, IsSession: isSession,
		Meta: model.CookieMeta{Browser: j.browser.String(), File: j.path, Path: path, Secure: secure, HttpOnly: httpOnly, SameSite: chromeSameSiteLabel(sameSite), Decrypted: decrypted},
	}
}

// chromeSameSiteLabel mirrors internal/strategy's chrome.go mapping of
// Chromium's cookies.samesite integer to a SameSite string.
func chromeSameSiteLabel(v int) string {
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

func transformFirefox(j fileJob, name, domain, path, value string, expirySeconds int64, secure, httpOnly bool) model.ExportedCookie {
	var expiry *time.Time
	isSession := expirySeconds <= 0
	if !isSession {
		t := time.Unix(expirySeconds, 0).UTC()
		expiry = &t
	}
	return model.ExportedCookie{
		Name: name, Domain: domain, Value: value, Expiry: expiry, IsSession: isSession,
		Meta: model.CookieMeta{Browser: "Firefox", File: j.path, Path: path, Secure: secure, HttpOnly: httpOnly, Decrypted: true},
	}
}

// dedupeLongestValue merges every file's rows, keeping the longest value
// for each (name, domain) pair.
func dedupeLongestValue(results [][]model.ExportedCookie) []model.ExportedCookie {
	type key struct{ name, domain string }
	best := make(map[key]model.ExportedCookie)
	var order []key
	for _, rows := range results {
		for _, r := range rows {
			k := key{r.Name, r.Domain}
			existing, ok := best[k]
			if !ok {
				order = append(order, k)
				best[k] = r
				continue
			}
			if len(r.Value) > len(existing.Value) {
				best[k] = r
			}
		}
	}
	out := make([]model.ExportedCookie, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

func batchCacheKey(specs []model.CookieSpec, opts Options) string {
	var b []byte
	for _, s := range specs {
		b = append(b, s.Name...)
		b = append(b, ':')
		b = append(b, s.Domain...)
		b = append(b, ',')
	}
	if opts.IncludeExpired {
		b = append(b, 'x')
	}
	return string(b)
}

func (s *Service) lookupCache(key string) ([]model.ExportedCookie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictStaleLocked()
	e, ok := s.cache[key]
	if !ok || time.Since(e.timestamp) > cacheTTL {
		return nil, false
	}
	return e.data, true
}

func (s *Service) storeCache(key string, data []model.ExportedCookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{data: data, timestamp: time.Now()}
}

// evictStaleLocked drops entries older than cacheMaxAge, checked lazily at
// most once per evictInterval. Caller holds s.mu.
func (s *Service) evictStaleLocked() {
	if time.Since(s.lastEvict) < evictInterval {
		return
	}
	s.lastEvict = time.Now()
	for k, e := range s.cache {
		if time.Since(e.timestamp) > cacheMaxAge {
			delete(s.cache, k)
		}
	}
}

// ClearCache empties the batch result cache.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cacheEntry)
}

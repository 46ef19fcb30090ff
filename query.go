package getcookie

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kyupark/get-cookie/internal/batch"
	"github.com/kyupark/get-cookie/internal/composite"
	"github.com/kyupark/get-cookie/internal/decrypt"
	"github.com/kyupark/get-cookie/internal/model"
	"github.com/kyupark/get-cookie/internal/platform"
	"github.com/kyupark/get-cookie/internal/querymon"
	"github.com/kyupark/get-cookie/internal/sqlitepool"
	"github.com/kyupark/get-cookie/internal/strategy"
)

// Options is the effective query configuration for QueryCookies and
// BatchGetCookies (spec §4.10's "builds the effective options, merging
// defaults").
type Options struct {
	ChromeOnly     bool
	FirefoxOnly    bool
	ExactDomain    bool
	IncludeExpired bool
	RemoveExpired  bool
	Limit          int
	RequireJWT     bool
	Single         bool
}

// Service is the root orchestration object (C10): it owns the process-wide
// pool, monitor, decryptor, and composite/batch strategies, and is the
// entry point library consumers construct once per process.
type Service struct {
	home string

	pool      *sqlitepool.Pool
	monitor   *querymon.Monitor
	decryptor *decrypt.Decryptor

	composite *composite.Strategy
	batch     *batch.Service
}

// New builds a Service rooted at home (typically os.UserHomeDir()), wiring
// the Chrome-family, Firefox, and Safari strategies behind a composite
// cache (spec §4.8) and a batch service (spec §4.9).
func New(home string) *Service {
	if home == "" {
		home, _ = os.UserHomeDir()
	}

	pool := sqlitepool.New(sqlitepool.Config{}, nil)
	monitor := querymon.New(querymon.Config{}, nil)
	decryptor := decrypt.New(decrypt.DefaultPasswordSource())

	strategies := []strategy.Strategy{
		&strategy.ChromiumStrategy{Browser: platform.Chrome, Home: home, Pool: pool, Monitor: monitor, Decryptor: decryptor},
		&strategy.ChromiumStrategy{Browser: platform.Chromium, Home: home, Pool: pool, Monitor: monitor, Decryptor: decryptor},
		&strategy.ChromiumStrategy{Browser: platform.Edge, Home: home, Pool: pool, Monitor: monitor, Decryptor: decryptor},
		&strategy.ChromiumStrategy{Browser: platform.Brave, Home: home, Pool: pool, Monitor: monitor, Decryptor: decryptor},
		&strategy.FirefoxStrategy{Home: home, Pool: pool, Monitor: monitor},
		&strategy.SafariStrategy{Home: home},
	}

	return &Service{
		home:      home,
		pool:      pool,
		monitor:   monitor,
		decryptor: decryptor,
		composite: composite.New(strategies...),
		batch:     batch.New(home, pool, monitor, decryptor),
	}
}

// Close releases the Service's pooled SQLite handles (spec §4.4 "closeAll
// ... must be invoked at process exit").
func (svc *Service) Close() { svc.pool.CloseAll() }

// PoolStats exposes the underlying connection pool's statistics (spec §4.4).
func (svc *Service) PoolStats() sqlitepool.Stats { return svc.pool.Stats() }

// MonitorStats exposes the query monitor's derived statistics (spec §4.5).
func (svc *Service) MonitorStats() querymon.Stats { return svc.monitor.Stats() }

// scopedStrategy is a Chrome-only or Firefox-only view for --browser.
func (svc *Service) scopedStrategy(opts Options) strategy.Strategy {
	if opts.ChromeOnly {
		return &strategy.ChromiumStrategy{Browser: platform.Chrome, Home: svc.home, Pool: svc.pool, Monitor: svc.monitor, Decryptor: svc.decryptor}
	}
	if opts.FirefoxOnly {
		return &strategy.FirefoxStrategy{Home: svc.home, Pool: svc.pool, Monitor: svc.monitor}
	}
	return svc.composite
}

// QueryCookies implements spec §4.10: validate the spec, delegate to the
// chosen strategy (composite by default, or a single restricted strategy
// under --browser), and apply post-filters.
func (svc *Service) QueryCookies(ctx context.Context, spec CookieSpec, opts Options) ([]ExportedCookie, error) {
	spec, err := validateSpec(spec)
	if err != nil {
		return nil, err
	}

	rows, err := svc.scopedStrategy(opts).QueryCookies(ctx, spec.Name, spec.Domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlatformUnsupported, err)
	}

	return applyFilters(rows, opts), nil
}

// GetCookie returns the first matching cookie or ErrNotFound (spec §4.10).
func (svc *Service) GetCookie(ctx context.Context, spec CookieSpec) (ExportedCookie, error) {
	rows, err := svc.QueryCookies(ctx, spec, Options{Single: true})
	if err != nil {
		return ExportedCookie{}, err
	}
	if len(rows) == 0 {
		return ExportedCookie{}, ErrNotFound
	}
	return rows[0], nil
}

// BatchGetCookies returns the flattened, deduplicated union across specs
// (spec §4.10/§4.9).
func (svc *Service) BatchGetCookies(ctx context.Context, specs []CookieSpec, opts Options) ([]ExportedCookie, error) {
	valid := make([]model.CookieSpec, 0, len(specs))
	for _, s := range specs {
		v, err := validateSpec(s)
		if err != nil {
			return nil, err
		}
		valid = append(valid, v)
	}

	rows, err := svc.batch.BatchGetCookies(ctx, valid, batch.Options{IncludeExpired: opts.IncludeExpired, ContinueOnError: true})
	if err != nil {
		return nil, err
	}
	return applyFilters(rows, opts), nil
}

// SpecResult is one spec's outcome within BatchGetCookiesWithResults (spec
// §4.10's "per-spec {spec, cookies, error?}").
type SpecResult struct {
	Spec    CookieSpec
	Cookies []ExportedCookie
	Err     error
}

// BatchGetCookiesWithResults runs each spec individually through the
// composite and reports its own error, rather than failing the whole batch
// (spec §4.10).
func (svc *Service) BatchGetCookiesWithResults(ctx context.Context, specs []CookieSpec, opts Options) []SpecResult {
	out := make([]SpecResult, len(specs))
	for i, s := range specs {
		rows, err := svc.QueryCookies(ctx, s, opts)
		out[i] = SpecResult{Spec: s, Cookies: rows, Err: err}
	}
	return out
}

// applyFilters implements spec §4.8's post-filters, which the composite
// itself never applies: removeExpired, limit, requireJwt, single.
func applyFilters(rows []ExportedCookie, opts Options) []ExportedCookie {
	out := rows
	if opts.RemoveExpired {
		out = filterExpired(out)
	}
	if opts.RequireJWT {
		out = filterJWT(out)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if opts.Single && len(out) > 1 {
		out = out[:1]
	}
	return out
}

func filterExpired(rows []ExportedCookie) []ExportedCookie {
	now := time.Now()
	out := make([]ExportedCookie, 0, len(rows))
	for _, r := range rows {
		if !r.IsSession && r.Expiry != nil && r.Expiry.Before(now) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// filterJWT keeps only cookies whose value parses as a compact JWT with no
// exp claim, or an exp claim in the future (spec §4.8). The token is parsed
// unverified: this process doesn't hold the issuer's signing key, it is
// only inspecting the claim.
func filterJWT(rows []ExportedCookie) []ExportedCookie {
	out := make([]ExportedCookie, 0, len(rows))
	for _, r := range rows {
		if jwtIsLiveOrAbsent(r.Value) {
			out = append(out, r)
		}
	}
	return out
}

func jwtIsLiveOrAbsent(value string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	_, _, err := parser.ParseUnverified(value, claims)
	if err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(time.Now())
}

package composite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kyupark/get-cookie/internal/model"
	"github.com/kyupark/get-cookie/internal/strategy"
)

func TestQueryCookiesMergesInStrategyOrder(t *testing.T) {
	chrome := &strategy.MockStrategy{Name: "Chrome", Cookies: []model.ExportedCookie{
		{Name: "sid", Domain: "example.com", Value: "chrome-val"},
	}}
	firefox := &strategy.MockStrategy{Name: "Firefox", Cookies: []model.ExportedCookie{
		{Name: "sid", Domain: "example.com", Value: "firefox-val"},
	}}
	c := New(chrome, firefox)

	rows, err := c.QueryCookies(context.Background(), "sid", "example.com")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "chrome-val", rows[0].Value)
	require.Equal(t, "Chrome", rows[0].Meta.Browser)
	require.Equal(t, "firefox-val", rows[1].Value)
	require.Equal(t, "Firefox", rows[1].Meta.Browser)
}

func TestQueryCookiesFailingStrategyTreatedAsEmpty(t *testing.T) {
	ok := &strategy.MockStrategy{Name: "Chrome", Cookies: []model.ExportedCookie{
		{Name: "sid", Domain: "example.com", Value: "v"},
	}}
	bad := &strategy.MockStrategy{Name: "Firefox", Err: errors.New("db locked")}
	c := New(ok, bad)

	rows, err := c.QueryCookies(context.Background(), "sid", "example.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Chrome", rows[0].Meta.Browser)
}

func TestQueryCookiesDedupesIdenticalFingerprints(t *testing.T) {
	row := model.ExportedCookie{Name: "sid", Domain: "example.com", Value: "v"}
	a := &strategy.MockStrategy{Name: "A", Cookies: []model.ExportedCookie{row}}
	b := &strategy.MockStrategy{Name: "B", Cookies: []model.ExportedCookie{row}}
	c := New(a, b)

	rows, err := c.QueryCookies(context.Background(), "sid", "example.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestQueryCookiesCachesWithinTTL(t *testing.T) {
	counting := &countingStrategy{name: "Chrome"}
	c := New(counting)

	_, err := c.QueryCookies(context.Background(), "sid", "example.com")
	require.NoError(t, err)
	_, err = c.QueryCookies(context.Background(), "sid", "example.com")
	require.NoError(t, err)

	require.Equal(t, 1, counting.calls)
}

func TestClearCacheForcesRefetch(t *testing.T) {
	counting := &countingStrategy{name: "Chrome"}
	c := New(counting)

	_, err := c.QueryCookies(context.Background(), "sid", "example.com")
	require.NoError(t, err)
	c.ClearCache()
	_, err = c.QueryCookies(context.Background(), "sid", "example.com")
	require.NoError(t, err)

	require.Equal(t, 2, counting.calls)
}

func TestEvictOverCapacity(t *testing.T) {
	counting := &countingStrategy{name: "Chrome"}
	c := New(counting)

	for i := 0; i < cacheCapacity+5; i++ {
		_, err := c.QueryCookies(context.Background(), "sid", fmt.Sprintf("domain%d.com", i))
		require.NoError(t, err)
	}

	c.mu.Lock()
	size := len(c.cache)
	c.mu.Unlock()
	require.LessOrEqual(t, size, cacheCapacity)
}

func TestBrowserName(t *testing.T) {
	require.Equal(t, "Composite", New().BrowserName())
}

type countingStrategy struct {
	name  string
	calls int
}

func (s *countingStrategy) BrowserName() string { return s.name }

func (s *countingStrategy) QueryCookies(ctx context.Context, name, domain string) ([]model.ExportedCookie, error) {
	s.calls++
	return []model.ExportedCookie{{Name: name, Domain: domain, Value: "v"}}, nil
}

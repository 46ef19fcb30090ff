package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyupark/get-cookie/internal/model"
)

func TestDomainMatches(t *testing.T) {
	cases := []struct {
		host, domain string
		want         bool
	}{
		{"github.com", "%", true},
		{"github.com", "*", true},
		{"www.github.com", ".github.com", true},
		{"github.com", ".github.com", false},
		{"github.com", "github.com", true},
		{".github.com", "github.com", true},
		{"www.github.com", "github.com", true},
		{"evilgithub.com", "github.com", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, domainMatches(c.host, c.domain), "%s vs %s", c.host, c.domain)
	}
}

func TestNameMatches(t *testing.T) {
	cases := []struct {
		row, pattern string
		want         bool
	}{
		{"sid", "%", true},
		{"sid", "*", true},
		{"session_id", "sess%", true},
		{"other", "sess%", false},
		{"sid", "sid", true},
		{"sid", "sess", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, nameMatches(c.row, c.pattern), "%s vs %s", c.row, c.pattern)
	}
}

func TestMockStrategyFiltersAndErrors(t *testing.T) {
	s := &MockStrategy{
		Cookies: []model.ExportedCookie{
			{Name: "sid", Domain: "example.com"},
			{Name: "csrf", Domain: "other.com"},
		},
	}
	assert.Equal(t, "Mock", s.BrowserName())

	out, err := s.QueryCookies(context.Background(), "sid", "example.com")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "sid", out[0].Name)

	errStrategy := &MockStrategy{Err: errors.New("boom")}
	_, err = errStrategy.QueryCookies(context.Background(), "%", "%")
	require.Error(t, err)
}

func TestMockStrategyCustomName(t *testing.T) {
	s := &MockStrategy{Name: "Chrome"}
	assert.Equal(t, "Chrome", s.BrowserName())
}

func TestInMemoryStrategyPutAndQuery(t *testing.T) {
	s := NewInMemoryStrategy()
	assert.Equal(t, "InMemory", s.BrowserName())

	s.Put(model.ExportedCookie{Name: "sid", Domain: "example.com", Value: "v1"})
	s.Put(model.ExportedCookie{Name: "sid", Domain: "example.com", Value: "v2"})

	out, err := s.QueryCookies(context.Background(), "%", "%")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "v2", out[0].Value)
}

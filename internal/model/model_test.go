package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieSpecValidate(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		s, err := CookieSpec{Name: " sid ", Domain: " example.com "}.Validate()
		require.NoError(t, err)
		assert.Equal(t, "sid", s.Name)
		assert.Equal(t, "example.com", s.Domain)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := CookieSpec{Name: "  ", Domain: "example.com"}.Validate()
		require.Error(t, err)
		assert.True(t, IsInvalidSpecError(err))
	})

	t.Run("rejects empty domain", func(t *testing.T) {
		_, err := CookieSpec{Name: "sid", Domain: ""}.Validate()
		require.Error(t, err)
		assert.True(t, IsInvalidSpecError(err))
	})
}

func TestCookieSpecWildcards(t *testing.T) {
	assert.True(t, CookieSpec{Name: "%"}.IsWildcardName())
	assert.True(t, CookieSpec{Name: "*"}.IsWildcardName())
	assert.False(t, CookieSpec{Name: "sid"}.IsWildcardName())
	assert.True(t, CookieSpec{Domain: "%"}.IsWildcardDomain())
	assert.False(t, CookieSpec{Domain: "example.com"}.IsWildcardDomain())
}

func TestExpiryMillis(t *testing.T) {
	t.Run("session cookie is -1", func(t *testing.T) {
		c := ExportedCookie{IsSession: true}
		assert.Equal(t, int64(-1), c.ExpiryMillis())
	})

	t.Run("concrete expiry round-trips to millis", func(t *testing.T) {
		ts := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
		c := ExportedCookie{Expiry: &ts}
		assert.Equal(t, ts.UnixMilli(), c.ExpiryMillis())
	})
}

func TestFingerprintDedup(t *testing.T) {
	ts := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	a := ExportedCookie{Name: "sid", Domain: "example.com", Value: "abc", Expiry: &ts, Meta: CookieMeta{File: "a"}}
	b := a
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := a
	c.Value = "xyz"
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	d := a
	d.Meta.File = "b"
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())

	session := a
	session.IsSession = true
	session.Expiry = nil
	assert.NotEqual(t, a.Fingerprint(), session.Fingerprint())
}

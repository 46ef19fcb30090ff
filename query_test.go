package getcookie

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestApplyFiltersRemoveExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	rows := []ExportedCookie{
		{Name: "expired", Expiry: &past},
		{Name: "live", Expiry: &future},
		{Name: "session", IsSession: true},
	}
	out := applyFilters(rows, Options{RemoveExpired: true})
	require.Len(t, out, 2)
}

func TestApplyFiltersLimitAndSingle(t *testing.T) {
	rows := []ExportedCookie{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	limited := applyFilters(rows, Options{Limit: 2})
	require.Len(t, limited, 2)

	single := applyFilters(rows, Options{Single: true})
	require.Len(t, single, 1)
	require.Equal(t, "a", single[0].Name)
}

func TestJWTIsLiveOrAbsent(t *testing.T) {
	t.Run("non-jwt value is not live", func(t *testing.T) {
		require.False(t, jwtIsLiveOrAbsent("not-a-jwt"))
	})

	t.Run("jwt without exp claim is live", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user"})
		signed, err := tok.SignedString([]byte("secret"))
		require.NoError(t, err)
		require.True(t, jwtIsLiveOrAbsent(signed))
	})

	t.Run("expired jwt is not live", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		signed, err := tok.SignedString([]byte("secret"))
		require.NoError(t, err)
		require.False(t, jwtIsLiveOrAbsent(signed))
	})

	t.Run("future jwt is live", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := tok.SignedString([]byte("secret"))
		require.NoError(t, err)
		require.True(t, jwtIsLiveOrAbsent(signed))
	})
}

func TestFilterJWT(t *testing.T) {
	liveTok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	liveSigned, err := liveTok.SignedString([]byte("secret"))
	require.NoError(t, err)

	rows := []ExportedCookie{
		{Name: "session", Value: liveSigned},
		{Name: "garbage", Value: "not-a-jwt"},
	}
	out := filterJWT(rows)
	require.Len(t, out, 1)
	require.Equal(t, "session", out[0].Name)
}

func TestServiceQueryCookiesInvalidSpec(t *testing.T) {
	svc := New(t.TempDir())
	defer svc.Close()

	_, err := svc.QueryCookies(context.Background(), CookieSpec{Name: "", Domain: "example.com"}, Options{})
	require.True(t, errors.Is(err, ErrInvalidSpec))
}

func TestServiceGetCookieNotFoundOnEmptyHome(t *testing.T) {
	svc := New(t.TempDir())
	defer svc.Close()

	_, err := svc.GetCookie(context.Background(), CookieSpec{Name: "sid", Domain: "example.com"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceQueryCookiesEmptyHomeYieldsEmptyNotError(t *testing.T) {
	svc := New(t.TempDir())
	defer svc.Close()

	rows, err := svc.QueryCookies(context.Background(), CookieSpec{Name: "%", Domain: "%"}, Options{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestServiceBatchGetCookiesWithResultsPerSpecError(t *testing.T) {
	svc := New(t.TempDir())
	defer svc.Close()

	results := svc.BatchGetCookiesWithResults(context.Background(), []CookieSpec{
		{Name: "sid", Domain: "example.com"},
		{Name: "", Domain: "example.com"},
	}, Options{})

	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
}

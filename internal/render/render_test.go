package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kyupark/get-cookie/internal/model"
)

func TestHeaderSortsAndDedupesByLastExpiry(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	cookies := []model.ExportedCookie{
		{Name: "b", Value: "b1", Expiry: &early},
		{Name: "a", Value: "a1", Expiry: &early},
		{Name: "b", Value: "b2", Expiry: &late},
	}

	require.Equal(t, "a=a1; b=b2", Header(cookies))
}

func TestHeaderSessionCookieOutranksConcreteDate(t *testing.T) {
	future := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	cookies := []model.ExportedCookie{
		{Name: "sid", Value: "dated", Expiry: &future},
		{Name: "sid", Value: "session", IsSession: true},
	}
	require.Equal(t, "sid=session", Header(cookies))
}

func TestHeaderEmpty(t *testing.T) {
	require.Equal(t, "", Header(nil))
}

func TestGroupedByFile(t *testing.T) {
	cookies := []model.ExportedCookie{
		{Name: "a", Value: "1", Meta: model.CookieMeta{File: "fileA"}},
		{Name: "b", Value: "2", Meta: model.CookieMeta{File: "fileB"}},
		{Name: "a", Value: "3", Meta: model.CookieMeta{File: "fileA"}},
	}
	grouped := Grouped(cookies)
	require.Len(t, grouped, 2)
	require.Equal(t, "a=3", grouped["fileA"])
	require.Equal(t, "b=2", grouped["fileB"])
}

func TestDumpGroupedPreservesAllRecords(t *testing.T) {
	cookies := []model.ExportedCookie{
		{Name: "a", Value: "1", Meta: model.CookieMeta{File: "fileA"}},
		{Name: "a", Value: "2", Meta: model.CookieMeta{File: "fileA"}},
	}
	dumped := DumpGrouped(cookies)
	require.Len(t, dumped["fileA"], 2)
}

func TestLaterExpiryNilExpiryTreatedAsSession(t *testing.T) {
	a := model.ExportedCookie{Expiry: nil}
	b := model.ExportedCookie{Expiry: &time.Time{}}
	require.True(t, laterExpiry(a, b))
	require.False(t, laterExpiry(b, a))
}

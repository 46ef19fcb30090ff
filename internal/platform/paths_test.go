package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCookieFilesEmptyHome(t *testing.T) {
	home := t.TempDir()
	for _, b := range []Browser{Chrome, Chromium, Edge, Brave, Firefox, Safari} {
		require.Empty(t, CookieFiles(b, home), b.String())
	}
}

func TestCookieFilesUnknownBrowser(t *testing.T) {
	require.Nil(t, CookieFiles(Browser(99), t.TempDir()))
}

func TestChromiumFilesFindsNestedCookieFile(t *testing.T) {
	home := t.TempDir()
	profile := filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default")
	require.NoError(t, os.MkdirAll(profile, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(profile, "Cookies"), []byte("x"), 0o600))

	files := CookieFiles(Chrome, home)
	require.Len(t, files, 1)
	require.Contains(t, files[0], "Default")
}

func TestChromiumFilesRespectsMaxDepth(t *testing.T) {
	home := t.TempDir()
	tooDeep := filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "a", "b", "c")
	require.NoError(t, os.MkdirAll(tooDeep, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tooDeep, "Cookies"), []byte("x"), 0o600))

	require.Empty(t, CookieFiles(Chrome, home))
}

func TestFirefoxFilesParsesProfilesIni(t *testing.T) {
	home := t.TempDir()
	ffRoot := filepath.Join(home, "Library", "Application Support", "Firefox")
	require.NoError(t, os.MkdirAll(ffRoot, 0o755))

	profileDir := filepath.Join(ffRoot, "Profiles", "abc.default")
	require.NoError(t, os.MkdirAll(profileDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(profileDir, "cookies.sqlite"), []byte("x"), 0o600))

	ini := "[Profile0]\nName=default\nIsRelative=1\nPath=Profiles/abc.default\nDefault=1\n"
	require.NoError(t, os.WriteFile(filepath.Join(ffRoot, "profiles.ini"), []byte(ini), 0o600))

	files := CookieFiles(Firefox, home)
	require.Len(t, files, 1)
	require.Contains(t, files[0], "abc.default")
}

func TestFirefoxFilesFallsBackToGlobWithoutIni(t *testing.T) {
	home := t.TempDir()
	profileDir := filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles", "xyz.default-release")
	require.NoError(t, os.MkdirAll(profileDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(profileDir, "cookies.sqlite"), []byte("x"), 0o600))

	files := CookieFiles(Firefox, home)
	require.Len(t, files, 1)
}

func TestSafariFilesChecksBothCandidates(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "Library", "Cookies", "Cookies.binarycookies")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("cook"), 0o600))

	files := CookieFiles(Safari, home)
	require.Equal(t, []string{path}, files)
}

func TestBrowserStringUnknown(t *testing.T) {
	require.Equal(t, "Unknown", Browser(99).String())
}

// Package platform resolves the on-disk locations of browser cookie stores
// for the current OS. Discovery is permissive: a missing root or an
// unreadable subdirectory yields an empty list, never an error.
package platform

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Browser names a browser family whose cookie store layout is known.
type Browser int

const (
	Chrome Browser = iota
	Chromium
	Edge
	Brave
	Firefox
	Safari
)

func (b Browser) String() string {
	switch b {
	case Chrome:
		return "Chrome"
	case Chromium:
		return "Chromium"
	case Edge:
		return "Edge"
	case Brave:
		return "Brave"
	case Firefox:
		return "Firefox"
	case Safari:
		return "Safari"
	default:
		return "Unknown"
	}
}

// maxGlobDepth bounds the profile-directory search.
const maxGlobDepth = 2

// CookieFiles returns every candidate cookie-file path for browser under
// home, ordered by profile then filename. A browser unsupported on the
// current OS, or with no installed profiles, yields an empty slice.
func CookieFiles(b Browser, home string) []string {
	switch b {
	case Chrome, Chromium, Edge, Brave:
		return chromiumFiles(b, home)
	case Firefox:
		return firefoxFiles(home)
	case Safari:
		return safariFiles(home)
	default:
		return nil
	}
}

func chromiumFiles(b Browser, home string) []string {
	root := chromiumRoot(b, home)
	if root == "" {
		return nil
	}
	return globFiles(root, "Cookies", maxGlobDepth)
}

// chromiumRoot returns the per-browser "User Data"-equivalent root. Only
// macOS layouts are known: the macOS path under home is returned on every
// OS, and a non-Chromium browser yields "".
func chromiumRoot(b Browser, home string) string {
	base := filepath.Join(home, "Library", "Application Support")
	switch b {
	case Chrome:
		return filepath.Join(base, "Google", "Chrome")
	case Chromium:
		return filepath.Join(base, "Chromium")
	case Edge:
		return filepath.Join(base, "Microsoft Edge")
	case Brave:
		return filepath.Join(base, "BraveSoftware", "Brave-Browser")
	default:
		return ""
	}
}

func firefoxFiles(home string) []string {
	root := filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
	iniPath := filepath.Join(home, "Library", "Application Support", "Firefox", "profiles.ini")
	var files []string
	for _, dir := range profileDirs(iniPath, root) {
		cookiePath := filepath.Join(dir, "cookies.sqlite")
		if fileExists(cookiePath) {
			files = append(files, cookiePath)
		}
	}
	if len(files) == 0 {
		// profiles.ini missing or unparsable: fall back to a bounded glob,
		// same tolerance as the Chromium path.
		files = globFiles(root, "cookies.sqlite", maxGlobDepth)
	}
	return files
}

func safariFiles(home string) []string {
	candidates := []string{
		filepath.Join(home, "Library", "Containers", "com.apple.Safari", "Data", "Library", "Cookies", "Cookies.binarycookies"),
		filepath.Join(home, "Library", "Cookies", "Cookies.binarycookies"),
	}
	var files []string
	for _, c := range candidates {
		if fileExists(c) {
			files = append(files, c)
		}
	}
	return files
}

// profileDirs parses a Firefox-style profiles.ini, honoring [Install*]
// Default= first and falling back to a [Profile*] section with Default=1.
// Grounded on other_examples/5109846a_warpdl-warpdl__internal-cookies-paths.go.go's
// parseProfilesIni (warpdl's internal/cookies/paths.go, a standalone
// retrieved file — warpdl-warpdl has no full repo in the pack).
func profileDirs(iniPath, profilesRoot string) []string {
	f, err := os.Open(iniPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	iniDir := filepath.Dir(iniPath)

	var installDefault, profileDefault string
	var inInstall, inProfile bool
	var curPath string
	var curIsDefault bool

	flushProfile := func() {
		if inProfile && curIsDefault && profileDefault == "" {
			profileDefault = curPath
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			flushProfile()
			section := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			inInstall = strings.HasPrefix(section, "Install")
			inProfile = strings.HasPrefix(section, "Profile")
			curPath, curIsDefault = "", false
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, val := strings.TrimSpace(k), strings.TrimSpace(v)
		if inInstall && key == "Default" && installDefault == "" {
			installDefault = filepath.Join(iniDir, filepath.FromSlash(val))
		}
		if inProfile {
			if key == "Path" {
				curPath = filepath.Join(iniDir, filepath.FromSlash(val))
			}
			if key == "Default" && val == "1" {
				curIsDefault = true
			}
		}
	}
	flushProfile()

	var dirs []string
	if installDefault != "" {
		dirs = append(dirs, installDefault)
	}
	if profileDefault != "" && profileDefault != installDefault {
		dirs = append(dirs, profileDefault)
	}
	if len(dirs) == 0 {
		// No identifiable default: every profile directory under the root.
		entries, err := os.ReadDir(profilesRoot)
		if err != nil {
			return nil
		}
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, filepath.Join(profilesRoot, e.Name()))
			}
		}
	}
	return dirs
}

// globFiles walks root up to depth levels looking for name, tolerating
// unreadable subdirectories by logging and continuing.
func globFiles(root, name string, depth int) []string {
	var out []string
	var walk func(dir string, level int)
	walk = func(dir string, level int) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("dir", dir).Msg("cookie path unreadable, skipping")
			}
			return
		}
		for _, e := range entries {
			full := filepath.Join(dir, e.Name())
			if e.IsDir() {
				if level < depth {
					walk(full, level+1)
				}
				continue
			}
			if e.Name() == name {
				out = append(out, full)
			}
		}
	}
	walk(root, 0)
	return out
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

package strategy

import (
	"context"
	"runtime"
	"time"

	"github.com/kyupark/get-cookie/internal/model"
	"github.com/kyupark/get-cookie/internal/platform"
	"github.com/kyupark/get-cookie/internal/safaricookie"
)

// SafariStrategy implements spec §4.7's Safari strategy: C2 only, no SQL.
type SafariStrategy struct {
	Home string
}

func (s *SafariStrategy) BrowserName() string { return "Safari" }

func (s *SafariStrategy) QueryCookies(ctx context.Context, name, domain string) ([]model.ExportedCookie, error) {
	if runtime.GOOS != "darwin" {
		return nil, errPlatformSafari
	}

	files := platform.CookieFiles(platform.Safari, s.Home)

	var out []model.ExportedCookie
	for _, file := range files {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}
		cookies, err := safaricookie.DecodeFile(file)
		if err != nil {
			continue // malformed file: skipped, the error is not logged
		}
		for _, c := range cookies {
			// Safari strategy filters by exact name (or a bare wildcard)
			// and applies the same equality/subdomain domain matching as
			// the other strategies; it does not match domain substrings.
			if name != "%" && name != "*" && c.Name != name {
				continue
			}
			if !domainMatches(c.URL, domain) {
				continue
			}
			out = append(out, transformSafari(c, file))
		}
	}
	return out, nil
}

var errPlatformSafari = platformUnsupportedError("Safari")

type platformUnsupportedError string

func (e platformUnsupportedError) Error() string {
	return "strategy: " + string(e) + " unsupported on this platform"
}

func transformSafari(c safaricookie.Cookie, file string) model.ExportedCookie {
	isSession := c.Expiry.IsZero() || c.Expiry.Unix() <= 0
	var expiry *time.Time
	if !isSession {
		t := c.Expiry
		expiry = &t
	}
	return model.ExportedCookie{
		Name:      c.Name,
		Domain:    c.URL,
		Value:     c.Value,
		Expiry:    expiry,
		IsSession: isSession,
		Meta: model.CookieMeta{
			Browser:   "Safari",
			File:      file,
			Path:      c.Path,
			Secure:    c.Secure,
			HttpOnly:  c.HTTPOnly,
			SameSite:  c.SameSite,
			Decrypted: true, // Safari's store is plain, never encrypted (spec §1 Non-goals)
		},
	}
}

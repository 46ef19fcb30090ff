// Package render turns a set of cookies into the "name=value; …" header
// strings the CLI's -r/-R flags print (spec §6).
package render

import (
	"sort"
	"strings"

	"github.com/kyupark/get-cookie/internal/model"
)

// Header renders cookies as a single "name=value; name2=value2" string,
// keeping the last-expiring record for each name (spec §6 "-r, --render /
// --render-merged: last-expiry-wins dedup by name").
func Header(cookies []model.ExportedCookie) string {
	byName := dedupeByNameLastExpiryWins(cookies)

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+"="+byName[n].Value)
	}
	return strings.Join(parts, "; ")
}

// Grouped renders one header string per source file (spec §6 "-R,
// --render-grouped: render once per source file"), keyed by Meta.File.
func Grouped(cookies []model.ExportedCookie) map[string]string {
	byFile := make(map[string][]model.ExportedCookie)
	for _, c := range cookies {
		byFile[c.Meta.File] = append(byFile[c.Meta.File], c)
	}

	out := make(map[string]string, len(byFile))
	for file, rows := range byFile {
		out[file] = Header(rows)
	}
	return out
}

// DumpGrouped groups the raw cookie records by source file (spec §6 "-D,
// --dump-grouped: emit results grouped by source file (JSON)") without
// collapsing duplicate names — unlike Header/Grouped, this preserves every
// record for inspection.
func DumpGrouped(cookies []model.ExportedCookie) map[string][]model.ExportedCookie {
	out := make(map[string][]model.ExportedCookie)
	for _, c := range cookies {
		out[c.Meta.File] = append(out[c.Meta.File], c)
	}
	return out
}

// dedupeByNameLastExpiryWins keeps, for each cookie name, the record with
// the latest expiry (a session cookie — expiry absent — outranks any
// concrete date, since "Infinity" is later than any date).
func dedupeByNameLastExpiryWins(cookies []model.ExportedCookie) map[string]model.ExportedCookie {
	best := make(map[string]model.ExportedCookie, len(cookies))
	for _, c := range cookies {
		existing, ok := best[c.Name]
		if !ok || laterExpiry(c, existing) {
			best[c.Name] = c
		}
	}
	return best
}

func laterExpiry(a, b model.ExportedCookie) bool {
	if a.IsSession != b.IsSession {
		return a.IsSession
	}
	if a.IsSession {
		return false
	}
	if a.Expiry == nil || b.Expiry == nil {
		return a.Expiry == nil
	}
	return a.Expiry.After(*b.Expiry)
}

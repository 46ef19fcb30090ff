// Package jar implements spec §6's optional file-backed cookie jar: a JSON
// index of cookie records grouped by domain/path/key, guarded by an
// advisory file lock so concurrent CLI invocations don't corrupt it.
// Grounded on sammcj-mcp-devtools's internal/tools/memory.Storage, which
// locks a ".lock" sibling file around JSON load/save with gofrs/flock.
package jar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/kyupark/get-cookie/internal/model"
)

// Entry is one persisted cookie record, keyed by domain/path/name.
type Entry struct {
	Domain string               `json:"domain"`
	Path   string               `json:"path"`
	Name   string               `json:"name"`
	Cookie model.ExportedCookie `json:"cookie"`
}

// Jar is a file-backed index of cookie records.
type Jar struct {
	path string
}

// New returns a Jar backed by path (typically under the CLI's state
// directory). The file is created lazily on first Save.
func New(path string) *Jar {
	return &Jar{path: path}
}

func (j *Jar) lockPath() string { return j.path + ".lock" }

// Load reads the jar's contents, returning an empty slice if the file
// doesn't exist yet.
func (j *Jar) Load() ([]Entry, error) {
	lock := flock.New(j.lockPath())
	locked, err := lock.TryRLock()
	if err != nil {
		return nil, fmt.Errorf("jar: acquire read lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("jar: could not acquire read lock on %s", j.path)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jar: read %s: %w", j.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("jar: decode %s: %w", j.path, err)
	}
	return entries, nil
}

// Save writes entries to the jar atomically under an exclusive lock.
func (j *Jar) Save(entries []Entry) error {
	lock := flock.New(j.lockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("jar: acquire write lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("jar: could not acquire write lock on %s", j.path)
	}
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("jar: create dir: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("jar: encode: %w", err)
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("jar: write temp file: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("jar: rename temp file: %w", err)
	}
	return nil
}

// Put upserts cookies into the jar, keyed by (domain, path, name), and
// persists the result.
func (j *Jar) Put(cookies []model.ExportedCookie) error {
	entries, err := j.Load()
	if err != nil {
		return err
	}

	byKey := make(map[string]int, len(entries))
	for i, e := range entries {
		byKey[e.Domain+"\x00"+e.Path+"\x00"+e.Name] = i
	}

	for _, c := range cookies {
		key := c.Domain + "\x00" + c.Meta.Path + "\x00" + c.Name
		entry := Entry{Domain: c.Domain, Path: c.Meta.Path, Name: c.Name, Cookie: c}
		if i, ok := byKey[key]; ok {
			entries[i] = entry
		} else {
			byKey[key] = len(entries)
			entries = append(entries, entry)
		}
	}

	return j.Save(entries)
}

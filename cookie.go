// Package getcookie extracts cookies from installed browser profiles on the
// local machine and renders them for use against an HTTP API.
//
// A CookieSpec names a (name, domain) pair, either of which may be a
// wildcard. QueryCookies runs every supported browser strategy
// concurrently, merges their results, and returns a de-duplicated,
// filtered list of ExportedCookie values.
package getcookie

import (
	"errors"
	"fmt"

	"github.com/kyupark/get-cookie/internal/model"
)

// ErrNotFound is returned by GetCookie when no cookie matches the spec.
var ErrNotFound = errors.New("get-cookie: no matching cookie found")

// ErrInvalidSpec is returned when a CookieSpec fails validation.
var ErrInvalidSpec = errors.New("get-cookie: invalid cookie spec")

// ErrPlatformUnsupported is returned when a strategy is explicitly requested
// on an OS it doesn't support.
var ErrPlatformUnsupported = errors.New("get-cookie: platform unsupported for requested browser")

// CookieSpec, CookieMeta, and ExportedCookie are defined in internal/model
// so every internal layer (strategy, composite, batch) can share them
// without importing this root package. They are aliased here so library
// consumers only ever see the root import path.
type (
	CookieSpec     = model.CookieSpec
	CookieMeta     = model.CookieMeta
	ExportedCookie = model.ExportedCookie
)

// validateSpec wraps model.CookieSpec.Validate, translating its sentinel
// into the exported ErrInvalidSpec.
func validateSpec(s CookieSpec) (CookieSpec, error) {
	v, err := s.Validate()
	if err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return v, nil
}

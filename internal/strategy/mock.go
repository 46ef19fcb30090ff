package strategy

import (
	"context"

	"github.com/kyupark/get-cookie/internal/model"
)

// MockStrategy returns a fixed list of cookies regardless of file-system
// state, for tests exercising composite/batch/query-layer behavior without
// touching real browser stores (spec §4.7 "mock strategies").
type MockStrategy struct {
	Name    string
	Cookies []model.ExportedCookie
	Err     error
}

func (s *MockStrategy) BrowserName() string {
	if s.Name == "" {
		return "Mock"
	}
	return s.Name
}

func (s *MockStrategy) QueryCookies(ctx context.Context, name, domain string) ([]model.ExportedCookie, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.ExportedCookie
	for _, c := range s.Cookies {
		if !nameMatches(c.Name, name) || !domainMatches(c.Domain, domain) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

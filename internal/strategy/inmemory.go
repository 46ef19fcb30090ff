package strategy

import (
	"context"
	"sync"

	"github.com/kyupark/get-cookie/internal/model"
)

// InMemoryStrategy backs cookies set programmatically through Put (spec
// §4.7); nothing else in this module adds cookies to it. Safe for
// concurrent use.
type InMemoryStrategy struct {
	mu      sync.RWMutex
	cookies []model.ExportedCookie
}

func NewInMemoryStrategy() *InMemoryStrategy {
	return &InMemoryStrategy{}
}

func (s *InMemoryStrategy) BrowserName() string { return "InMemory" }

// Put appends or replaces a cookie by (name, domain).
func (s *InMemoryStrategy) Put(c model.ExportedCookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.cookies {
		if existing.Name == c.Name && existing.Domain == c.Domain {
			s.cookies[i] = c
			return
		}
	}
	s.cookies = append(s.cookies, c)
}

func (s *InMemoryStrategy) QueryCookies(ctx context.Context, name, domain string) ([]model.ExportedCookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ExportedCookie
	for _, c := range s.cookies {
		if !nameMatches(c.Name, name) || !domainMatches(c.Domain, domain) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

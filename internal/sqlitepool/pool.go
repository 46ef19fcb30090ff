// Package sqlitepool is a bounded, idle-evicting SQLite connection manager
// with retry-on-lock, modeled on spec §4.4. It is the only place *sql.DB
// handles to cookie store files are opened.
package sqlitepool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Config controls pool behavior; zero values take the defaults in spec §4.4.
type Config struct {
	MaxConnections    int
	IdleTimeout       time.Duration
	QueryTimeout      time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	EnableMonitoring  bool
}

func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = 5
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 3 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 100 * time.Millisecond
	}
	return c
}

// Event is emitted for pool observability per spec §4.4
// ("connection:created", "connection:closed", "query:executed").
type Event struct {
	Kind     string
	Filepath string
	At       time.Time
}

// entry is the pool's ConnectionMetadata (spec §3).
type entry struct {
	db             *sql.DB
	filepath       string
	inUse          bool
	lastAccessed   time.Time
	queryCount     int64
	totalQueryTime time.Duration
	created        time.Time
}

// Pool is a process-wide singleton in production use, but callers may
// construct independent instances for tests (spec §9 "tests must be able
// to reset them").
type Pool struct {
	cfg Config

	mu      sync.Mutex
	cond    *sync.Cond
	entries map[string]*entry

	onEvent func(Event)
}

// New creates a connection pool. onEvent may be nil.
func New(cfg Config, onEvent func(Event)) *Pool {
	p := &Pool{
		cfg:     cfg.withDefaults(),
		entries: make(map[string]*entry),
		onEvent: onEvent,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *Pool) emit(kind, filepath string) {
	if p.onEvent != nil {
		p.onEvent(Event{Kind: kind, Filepath: filepath, At: time.Now()})
	}
}

// isLockErr reports whether err matches spec §4.4's retry predicate.
func isLockErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// getConnection implements spec §4.4's acquisition algorithm: reuse an idle
// entry, evict the LRU idle entry if full, or open a new read-only handle
// with exponential-backoff retry on lock errors.
func (p *Pool) getConnection(ctx context.Context, filepath string) (*entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		p.evictIdleLocked()

		if e, ok := p.entries[filepath]; ok {
			if !e.inUse {
				e.inUse = true
				e.lastAccessed = time.Now()
				return e, nil
			}
			// Same file in use elsewhere: wait for it to free, or open a
			// second handle if the pool isn't full.
		}

		if len(p.entries) < p.cfg.MaxConnections {
			p.mu.Unlock()
			db, err := p.openWithRetry(ctx, filepath)
			p.mu.Lock()
			if err != nil {
				return nil, err
			}
			e := &entry{db: db, filepath: filepath, inUse: true, lastAccessed: time.Now(), created: time.Now()}
			p.entries[filepath] = e
			p.emit("connection:created", filepath)
			return e, nil
		}

		// Pool full: evict the LRU idle entry, or wait and retry.
		if victim := p.lruIdleLocked(); victim != "" {
			p.closeEntryLocked(victim)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		waitDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				p.mu.Lock()
				p.cond.Broadcast()
				p.mu.Unlock()
			case <-time.After(p.cfg.RetryDelay):
				p.mu.Lock()
				p.cond.Broadcast()
				p.mu.Unlock()
			}
			close(waitDone)
		}()
		p.cond.Wait()
		// The waker goroutine needs p.mu to finish; don't hold it while
		// waiting for it.
		p.mu.Unlock()
		<-waitDone
		p.mu.Lock()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) evictIdleLocked() {
	for path, e := range p.entries {
		if !e.inUse && time.Since(e.lastAccessed) > p.cfg.IdleTimeout {
			p.closeEntryLocked(path)
		}
	}
}

func (p *Pool) lruIdleLocked() string {
	var oldestPath string
	var oldest time.Time
	for path, e := range p.entries {
		if e.inUse {
			continue
		}
		if oldestPath == "" || e.lastAccessed.Before(oldest) {
			oldestPath, oldest = path, e.lastAccessed
		}
	}
	return oldestPath
}

func (p *Pool) closeEntryLocked(path string) {
	e, ok := p.entries[path]
	if !ok {
		return
	}
	delete(p.entries, path)
	if err := e.db.Close(); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("sqlitepool: close failed, swallowed")
	}
	p.emit("connection:closed", path)
}

func (p *Pool) openWithRetry(ctx context.Context, filepath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1&_busy_timeout=%d", filepath, p.cfg.QueryTimeout.Milliseconds())
	var lastErr error
	for attempt := 0; attempt < p.cfg.RetryAttempts; attempt++ {
		db, err := sql.Open("sqlite3", dsn)
		if err == nil {
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}
		lastErr = err
		if !isLockErr(err) {
			return nil, err
		}
		backoff := p.cfg.RetryDelay * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("sqlitepool: open %s: %w", filepath, lastErr)
}

func (p *Pool) release(e *entry) {
	p.mu.Lock()
	e.inUse = false
	e.lastAccessed = time.Now()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// ExecuteQuery acquires a connection for filepath, runs fn, records
// latency, and releases the connection on every exit path. The release is
// deferred, so it also runs if fn panics; the panic is not recovered.
func (p *Pool) ExecuteQuery(ctx context.Context, filepath, description string, fn func(*sql.DB) (int, error)) (rowCount int, err error) {
	e, acquireErr := p.getConnection(ctx, filepath)
	if acquireErr != nil {
		return 0, acquireErr
	}
	start := time.Now()
	defer func() {
		dur := time.Since(start)
		p.mu.Lock()
		e.queryCount++
		e.totalQueryTime += dur
		p.mu.Unlock()
		p.release(e)
		p.emit("query:executed", filepath)
	}()

	rowCount, err = fn(e.db)
	if err != nil {
		return rowCount, fmt.Errorf("sqlitepool: %s: %w", description, err)
	}
	return rowCount, nil
}

// Stats is a read-only snapshot of pool-wide statistics (spec §4.4).
type Stats struct {
	TotalConnections  int
	ActiveConnections int
	IdleConnections   int
	TotalQueries      int64
	AverageQueryTime  time.Duration
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s Stats
	var totalTime time.Duration
	for _, e := range p.entries {
		s.TotalConnections++
		if e.inUse {
			s.ActiveConnections++
		} else {
			s.IdleConnections++
		}
		s.TotalQueries += e.queryCount
		totalTime += e.totalQueryTime
	}
	if s.TotalQueries > 0 {
		s.AverageQueryTime = totalTime / time.Duration(s.TotalQueries)
	}
	return s
}

// CloseAll closes every open connection. Idempotent, per spec §4.4; safe to
// call from a process-exit hook.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for path := range p.entries {
		p.closeEntryLocked(path)
	}
	p.cond.Broadcast()
}

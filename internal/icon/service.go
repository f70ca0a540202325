package icon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nikbrunner/bmicon/internal/logging"
	"github.com/nikbrunner/bmicon/internal/storage"
)

// Defaults for Options fields left zero.
const (
	DefaultTTL           = 14 * 24 * time.Hour
	DefaultGraceWindow   = time.Hour
	DefaultMaxEntries    = 2000
	DefaultProbeTimeout  = 3 * time.Second
	DefaultMaxConcurrent = 8
	DefaultFlushDelay    = time.Second
)

// Prober validates that a candidate icon URL loads as a real image.
// A nil error means the candidate is usable.
type Prober interface {
	Probe(ctx context.Context, iconURL string) error
}

// ProbeFunc adapts a function to Prober.
type ProbeFunc func(ctx context.Context, iconURL string) error

// Probe calls f.
func (f ProbeFunc) Probe(ctx context.Context, iconURL string) error {
	return f(ctx, iconURL)
}

// Store is the durable key-value store the cache is persisted to.
// Get returns storage.ErrNotFound for missing keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Options configures a Service.
type Options struct {
	TTL           time.Duration // entries older than this are expired
	GraceWindow   time.Duration // a default icon younger than this is not retried
	MaxEntries    int
	ProbeTimeout  time.Duration // per candidate
	MaxConcurrent int           // resolutions in flight during batch operations
	FlushDelay    time.Duration // debounce window for persistence
	LookupHost    string        // third-party favicon service host

	Prober Prober // required
	Store  Store  // nil keeps the cache in memory only
	Logger *slog.Logger
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.GraceWindow < 0 {
		o.GraceWindow = 0
	} else if o.GraceWindow == 0 {
		o.GraceWindow = DefaultGraceWindow
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.FlushDelay <= 0 {
		o.FlushDelay = DefaultFlushDelay
	}
	if o.LookupHost == "" {
		o.LookupHost = DefaultLookupHost
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Stats summarizes the cache contents.
type Stats struct {
	Total   int
	Valid   int
	Expired int
	Default int
	Pending int
}

// Service resolves and caches icons. It is safe for concurrent use.
type Service struct {
	opts    Options
	log     *slog.Logger
	flusher *flusher

	mu    sync.Mutex
	cache *entries
	group *singleflight.Group

	inflight atomic.Int64
	bg       sync.WaitGroup
}

// New creates a Service. Call Load to restore persisted entries.
func New(opts Options) *Service {
	opts = opts.withDefaults()
	s := &Service{
		opts:  opts,
		log:   opts.Logger,
		cache: newEntries(opts.MaxEntries),
		group: &singleflight.Group{},
	}
	if opts.Store != nil {
		s.flusher = newFlusher(opts.FlushDelay, s.save, s.log)
	}
	return s
}

// Get returns the icon for rawURL, resolving it if the cache has nothing
// usable. Concurrent calls for the same URL share one resolution.
// It never fails; the worst case is Default.
func (s *Service) Get(ctx context.Context, rawURL string) Ref {
	key := normalizeKey(rawURL)
	if key == "" {
		return Default
	}

	s.mu.Lock()
	ref, ok := s.lookup(key)
	group := s.group
	s.mu.Unlock()
	if ok {
		return ref
	}

	// The resolution outlives a caller that gives up, so other waiters and
	// the cache still get its result.
	detached := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		s.inflight.Add(1)
		defer s.inflight.Add(-1)

		// A resolution that settled between our lookup and DoChan already
		// filled the cache.
		s.mu.Lock()
		ref, ok := s.lookup(key)
		s.mu.Unlock()
		if ok {
			return ref, nil
		}
		return s.resolve(detached, key), nil
	})

	select {
	case res := <-ch:
		if ref, ok := res.Val.(Ref); ok && ref != "" {
			return ref
		}
		return Default
	case <-ctx.Done():
		return Default
	}
}

// Refresh drops any cached or in-flight state for rawURL and resolves it again.
func (s *Service) Refresh(ctx context.Context, rawURL string) Ref {
	key := normalizeKey(rawURL)
	if key == "" {
		return Default
	}

	s.mu.Lock()
	s.cache.delete(key)
	group := s.group
	s.mu.Unlock()
	group.Forget(key)

	s.log.Debug("forcing icon refresh", "url", key)
	return s.Get(ctx, key)
}

// GetBatch returns an icon for every URL in urls. Cached icons are answered
// directly; the rest are resolved concurrently, at most MaxConcurrent at a time.
func (s *Service) GetBatch(ctx context.Context, urls []string) map[string]Ref {
	results := make(map[string]Ref, len(urls))
	var todo []string

	s.mu.Lock()
	for _, u := range urls {
		if _, seen := results[u]; seen {
			continue
		}
		key := normalizeKey(u)
		if key == "" {
			results[u] = Default
			continue
		}
		if ref, ok := s.lookup(key); ok {
			results[u] = ref
			continue
		}
		// placeholder so duplicates are skipped, overwritten below
		results[u] = Default
		todo = append(todo, u)
	}
	s.mu.Unlock()

	s.fanOut(ctx, todo, results, s.Get)
	return results
}

// RefreshBatch refreshes every URL in urls, at most MaxConcurrent at a time.
func (s *Service) RefreshBatch(ctx context.Context, urls []string) map[string]Ref {
	results := make(map[string]Ref, len(urls))
	var todo []string
	for _, u := range urls {
		if _, seen := results[u]; seen {
			continue
		}
		results[u] = Default
		todo = append(todo, u)
	}

	s.log.Debug("refreshing icons", "count", len(todo))
	s.fanOut(ctx, todo, results, s.Refresh)
	return results
}

func (s *Service) fanOut(ctx context.Context, urls []string, results map[string]Ref, fn func(context.Context, string) Ref) {
	if len(urls) == 0 {
		return
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrent)
	for _, u := range urls {
		g.Go(func() error {
			ref := fn(ctx, u)
			mu.Lock()
			results[u] = ref
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

// Preload resolves urls in the background. Close waits for it to finish.
func (s *Service) Preload(urls []string) {
	if len(urls) == 0 {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.GetBatch(context.Background(), urls)
	}()
}

// lookup returns a cached icon usable without resolving. Caller holds s.mu.
func (s *Service) lookup(key string) (Ref, bool) {
	e, ok := s.cache.get(key)
	if !ok {
		return "", false
	}

	now := s.opts.Now()
	if s.expired(e, now) {
		return "", false
	}
	if IsDefault(e.Icon) && now.Sub(e.ResolvedAt) >= s.opts.GraceWindow {
		return "", false
	}

	e.LastAccessed = now
	return e.Icon, true
}

func (s *Service) expired(e *Entry, now time.Time) bool {
	return now.Sub(e.ResolvedAt) > s.opts.TTL
}

// resolve probes the candidates for key in order and caches the outcome.
func (s *Service) resolve(ctx context.Context, key string) Ref {
	candidates, err := Candidates(key, s.opts.LookupHost)
	if err != nil {
		s.log.Debug("no icon candidates", "url", key, "err", err)
		s.store(key, Default)
		return Default
	}

	// An expired entry is kept as a fallback until this attempt settles.
	var prior *Entry
	s.mu.Lock()
	if e, ok := s.cache.get(key); ok {
		cp := *e
		prior = &cp
	}
	s.mu.Unlock()

	for i, candidate := range candidates {
		if err := s.probe(ctx, candidate); err != nil {
			s.log.Debug("icon candidate failed",
				"url", key, "strategy", i+1, "candidate", candidate, "err", err)
			continue
		}
		s.log.Debug("icon resolved", "url", key, "strategy", i+1, "icon", candidate)
		s.store(key, Ref(candidate))
		return Ref(candidate)
	}

	if prior != nil && !IsDefault(prior.Icon) && s.expired(prior, s.opts.Now()) {
		s.log.Debug("all icon candidates failed, extending cached icon", "url", key)
		s.store(key, prior.Icon)
		return prior.Icon
	}

	s.log.Debug("all icon candidates failed, using default", "url", key)
	s.store(key, Default)
	return Default
}

func (s *Service) probe(ctx context.Context, candidate string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()

	if err := s.opts.Prober.Probe(ctx, candidate); err != nil {
		return err
	}
	// A prober that ignores its context must not win after the deadline.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ctx.Err()
	}
	return nil
}

// store writes a fresh entry for key and schedules persistence.
func (s *Service) store(key string, ref Ref) {
	now := s.opts.Now()
	s.mu.Lock()
	evicted := s.cache.put(Entry{Key: key, Icon: ref, ResolvedAt: now, LastAccessed: now})
	s.mu.Unlock()

	if evicted > 0 {
		s.log.Debug("icon cache evicted entries", "count", evicted)
	}
	s.flusher.mark()
}

// Stats reports counts over the current entries.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	st := Stats{Total: s.cache.size(), Pending: int(s.inflight.Load())}
	for _, e := range s.cache.items {
		if s.expired(e, now) {
			st.Expired++
		} else {
			st.Valid++
		}
		if IsDefault(e.Icon) {
			st.Default++
		}
	}
	return st
}

// Entries returns a copy of every cached entry, ordered by key.
func (s *Service) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.snapshot()
}

// Clear drops every entry, forgets in-flight resolutions and removes the
// persisted copy. The in-memory cache is cleared even if the store fails.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cache.reset()
	s.group = &singleflight.Group{}
	s.mu.Unlock()

	if s.opts.Store == nil {
		return nil
	}
	s.flusher.discard()
	if err := s.opts.Store.Delete(ctx, StorageKey); err != nil {
		s.log.Warn("clearing persisted icon cache failed", "err", err)
		return fmt.Errorf("clearing icon cache: %w", err)
	}
	return nil
}

// Load restores persisted entries, skipping those already expired.
// A missing or unreadable store leaves the cache empty and working.
func (s *Service) Load(ctx context.Context) error {
	if s.opts.Store == nil {
		return nil
	}

	data, err := s.opts.Store.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.Warn("loading icon cache failed", "err", err)
		return fmt.Errorf("loading icon cache: %w", err)
	}

	list, err := decodeEntries(data)
	if err != nil {
		s.log.Warn("loading icon cache failed", "err", err)
		return err
	}

	now := s.opts.Now()
	loaded := 0
	s.mu.Lock()
	for i := range list {
		e := &list[i]
		if s.expired(e, now) {
			continue
		}
		if cur, ok := s.cache.get(e.Key); ok && !cur.ResolvedAt.Before(e.ResolvedAt) {
			continue
		}
		s.cache.put(*e)
		loaded++
	}
	s.mu.Unlock()

	s.log.Debug("icon cache loaded", "entries", loaded, "stored", len(list))
	return nil
}

// Flush writes pending changes to the store immediately.
func (s *Service) Flush(ctx context.Context) error {
	return s.flusher.flush(ctx)
}

// Close waits for background preloads and writes pending changes.
func (s *Service) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return s.Flush(ctx)
}

func (s *Service) save(ctx context.Context) error {
	s.mu.Lock()
	list := s.cache.snapshot()
	s.mu.Unlock()

	data, err := encodeEntries(list)
	if err != nil {
		return err
	}
	if err := s.opts.Store.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("saving icon cache: %w", err)
	}
	s.log.Debug("icon cache saved", "entries", len(list))
	return nil
}

func normalizeKey(rawURL string) string {
	return strings.TrimSpace(rawURL)
}

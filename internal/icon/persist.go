package icon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// StorageKey is the namespace key the entry set is persisted under.
const StorageKey = "FavouriteEdge_IconCache"

// record is the persisted form of an Entry. Timestamps are unix milliseconds.
type record struct {
	Icon      string `json:"icon"`
	Timestamp int64  `json:"timestamp"`
	Accessed  int64  `json:"accessed"`
}

func encodeEntries(list []Entry) ([]byte, error) {
	out := make(map[string]record, len(list))
	for _, e := range list {
		out[e.Key] = record{
			Icon:      string(e.Icon),
			Timestamp: e.ResolvedAt.UnixMilli(),
			Accessed:  e.LastAccessed.UnixMilli(),
		}
	}
	return json.Marshal(out)
}

// decodeEntries parses a persisted entry set, ordered by access time (oldest first).
func decodeEntries(data []byte) ([]Entry, error) {
	var in map[string]record
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decoding icon cache: %w", err)
	}

	list := make([]Entry, 0, len(in))
	for key, r := range in {
		if key == "" || r.Icon == "" {
			continue
		}
		accessed := r.Accessed
		if accessed == 0 {
			accessed = r.Timestamp
		}
		list = append(list, Entry{
			Key:          key,
			Icon:         Ref(r.Icon),
			ResolvedAt:   time.UnixMilli(r.Timestamp),
			LastAccessed: time.UnixMilli(accessed),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].LastAccessed.Equal(list[j].LastAccessed) {
			return list[i].Key < list[j].Key
		}
		return list[i].LastAccessed.Before(list[j].LastAccessed)
	})
	return list, nil
}

// flusher debounces writes: every mark re-arms a timer, and one write
// happens once marks stop arriving for delay.
type flusher struct {
	delay time.Duration
	write func(ctx context.Context) error
	log   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	dirty bool

	// writeMu keeps snapshots landing in the order they were taken.
	writeMu sync.Mutex
}

func newFlusher(delay time.Duration, write func(ctx context.Context) error, log *slog.Logger) *flusher {
	return &flusher{delay: delay, write: write, log: log}
}

// mark records a mutation and schedules a write.
func (f *flusher) mark() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dirty = true
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.delay, func() {
		if err := f.flush(context.Background()); err != nil {
			f.log.Warn("saving icon cache failed", "err", err)
		}
	})
}

// flush writes now if anything changed since the last write.
// A failed write leaves the flusher dirty so the next cycle retries.
func (f *flusher) flush(ctx context.Context) error {
	if f == nil {
		return nil
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	if !f.dirty {
		f.mu.Unlock()
		return nil
	}
	f.dirty = false
	f.mu.Unlock()

	if err := f.write(ctx); err != nil {
		f.mu.Lock()
		f.dirty = true
		f.mu.Unlock()
		return err
	}
	return nil
}

// discard drops pending changes without writing them.
func (f *flusher) discard() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.dirty = false
}

func (f *flusher) pending() bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

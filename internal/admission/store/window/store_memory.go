// Package window implements precise sliding-window request counting.
//
// Counts reflect the trailing window of exact duration regardless of
// alignment: on every check, timestamps older than now-window are dropped
// before the remaining count is compared against the limit. Denied requests
// never record a timestamp, so denials do not consume quota.
package window

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"gatekeeper/internal/admission/models"
	"gatekeeper/pkg/requestcontext"
)

// shardCount trades memory for lock granularity. Distinct identities hash
// to independent shards so unrelated traffic does not serialize.
const shardCount = 64

// MemoryStore is an in-memory sharded sliding-window store.
type MemoryStore struct {
	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*state
}

// state tracks one identity's admissions currently in window.
type state struct {
	timestamps []time.Time
	window     time.Duration
	lastSeen   time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i].windows = make(map[string]*state)
	}
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.shards[h.Sum32()%shardCount]
}

// Allow performs the atomic check-and-record for one request.
func (s *MemoryStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.QuotaResult, error) {
	now := requestcontext.Now(ctx)

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st := sh.windows[key]
	if st == nil {
		st = &state{window: window}
		sh.windows[key] = st
	}
	st.window = window
	st.lastSeen = now
	st.prune(now)

	if len(st.timestamps) < limit {
		st.timestamps = append(st.timestamps, now)
		return &models.QuotaResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - len(st.timestamps),
			ResetAt:   st.timestamps[0].Add(window),
		}, nil
	}

	// Full window: the next slot frees when the oldest admission expires.
	resetAt := st.timestamps[0].Add(window)
	return &models.QuotaResult{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(now, resetAt),
	}, nil
}

// Reset clears the counter for a key.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.windows, key)
	return nil
}

// CurrentCount returns the number of admissions currently in window.
func (s *MemoryStore) CurrentCount(ctx context.Context, key string) (int, error) {
	now := requestcontext.Now(ctx)

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st := sh.windows[key]
	if st == nil {
		return 0, nil
	}
	st.prune(now)
	return len(st.timestamps), nil
}

// Evict removes identities idle past their window and returns how many
// entries were purged. Eviction runs under the shard lock, so it can never
// lose a concurrently recorded timestamp.
func (s *MemoryStore) Evict(now time.Time) int {
	evicted := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for key, st := range sh.windows {
			if now.Sub(st.lastSeen) > st.window {
				delete(sh.windows, key)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

// Len returns the number of tracked identities across all shards.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.windows)
		sh.mu.Unlock()
	}
	return n
}

// StartSweeper evicts idle identities on an interval until ctx is done,
// bounding memory under identity churn. After each sweep onSweep, when
// non-nil, receives the remaining tracked identity count.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration, onSweep func(tracked int)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Evict(now)
				if onSweep != nil {
					onSweep(s.Len())
				}
			}
		}
	}()
}

// prune drops timestamps that fell out of the trailing window.
// Must be called while holding the shard lock.
func (st *state) prune(now time.Time) {
	cutoff := now.Add(-st.window)
	i := 0
	for ; i < len(st.timestamps); i++ {
		if st.timestamps[i].After(cutoff) {
			break
		}
	}
	st.timestamps = st.timestamps[i:]
}

func retryAfterSeconds(now, resetAt time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

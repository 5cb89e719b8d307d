// Package ratelimit limits how often a client may ask questions.
package ratelimit

import (
	"sort"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	Reset      time.Time     // when the oldest counted request leaves the window
	RetryAfter time.Duration // zero when allowed
}

type bucket struct {
	mu         sync.Mutex
	hits       []time.Time // ascending
	lastAccess time.Time
}

// SlidingWindow allows at most limit requests per client in any window.
type SlidingWindow struct {
	buckets sync.Map // client -> *bucket
	window  time.Duration
	limit   int
	now     func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSlidingWindow creates a limiter and starts its bucket sweeper. A
// cleanupInterval of 0 disables sweeping.
func NewSlidingWindow(window time.Duration, limit int, cleanupInterval time.Duration) *SlidingWindow {
	sw := &SlidingWindow{
		window: window,
		limit:  limit,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	if cleanupInterval > 0 {
		sw.wg.Add(1)
		go sw.sweepLoop(cleanupInterval)
	}
	return sw
}

// Allow records a request from client if it fits in the window.
func (sw *SlidingWindow) Allow(client string) Decision {
	now := sw.now()
	v, _ := sw.buckets.LoadOrStore(client, &bucket{})
	b := v.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now
	cutoff := now.Add(-sw.window)
	expired := sort.Search(len(b.hits), func(i int) bool { return b.hits[i].After(cutoff) })
	if expired > 0 {
		b.hits = append([]time.Time(nil), b.hits[expired:]...)
	}

	if len(b.hits) >= sw.limit {
		reset := now.Add(sw.window)
		if len(b.hits) > 0 {
			reset = b.hits[0].Add(sw.window)
		}
		retry := reset.Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return Decision{Allowed: false, Remaining: 0, Reset: reset, RetryAfter: retry}
	}

	b.hits = append(b.hits, now)
	return Decision{
		Allowed:   true,
		Remaining: sw.limit - len(b.hits),
		Reset:     b.hits[0].Add(sw.window),
	}
}

// Limit returns the per-window request limit.
func (sw *SlidingWindow) Limit() int { return sw.limit }

func (sw *SlidingWindow) sweepLoop(interval time.Duration) {
	defer sw.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.sweep()
		case <-sw.stop:
			return
		}
	}
}

// sweep drops buckets idle for more than two windows.
func (sw *SlidingWindow) sweep() int {
	cutoff := sw.now().Add(-2 * sw.window)
	removed := 0
	sw.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		idle := b.lastAccess.Before(cutoff)
		b.mu.Unlock()
		if idle {
			sw.buckets.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Stop ends the sweeper. It is safe to call more than once.
func (sw *SlidingWindow) Stop() {
	select {
	case <-sw.stop:
	default:
		close(sw.stop)
	}
	sw.wg.Wait()
}

// Stats summarizes limiter state.
type Stats struct {
	ActiveClients int           `json:"active_clients"`
	TrackedHits   int           `json:"tracked_hits"`
	Window        time.Duration `json:"window"`
	Limit         int           `json:"limit"`
}

func (sw *SlidingWindow) Stats() Stats {
	s := Stats{Window: sw.window, Limit: sw.limit}
	sw.buckets.Range(func(_, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		s.ActiveClients++
		s.TrackedHits += len(b.hits)
		b.mu.Unlock()
		return true
	})
	return s
}

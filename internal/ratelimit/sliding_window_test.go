package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestWindow(t *testing.T, window time.Duration, limit int) (*SlidingWindow, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	sw := NewSlidingWindow(window, limit, 0)
	sw.now = clock.Now
	t.Cleanup(sw.Stop)
	return sw, clock
}

func TestAllow_UpToLimit(t *testing.T) {
	sw, _ := newTestWindow(t, time.Minute, 3)

	for i := 0; i < 3; i++ {
		d := sw.Allow("1.2.3.4")
		require.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d := sw.Allow("1.2.3.4")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Minute, d.RetryAfter)
}

func TestAllow_ClientsAreIndependent(t *testing.T) {
	sw, _ := newTestWindow(t, time.Minute, 1)

	assert.True(t, sw.Allow("a").Allowed)
	assert.False(t, sw.Allow("a").Allowed)
	assert.True(t, sw.Allow("b").Allowed)
}

func TestAllow_WindowSlides(t *testing.T) {
	sw, clock := newTestWindow(t, time.Minute, 2)

	require.True(t, sw.Allow("c").Allowed)
	clock.Advance(30 * time.Second)
	require.True(t, sw.Allow("c").Allowed)
	require.False(t, sw.Allow("c").Allowed)

	// First hit expires; one slot frees up.
	clock.Advance(31 * time.Second)
	d := sw.Allow("c")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.False(t, sw.Allow("c").Allowed)
}

func TestSweep_RemovesIdleClients(t *testing.T) {
	sw, clock := newTestWindow(t, time.Minute, 5)

	sw.Allow("idle")
	clock.Advance(90 * time.Second)
	sw.Allow("active")
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, sw.sweep())
	stats := sw.Stats()
	assert.Equal(t, 1, stats.ActiveClients)
	assert.Equal(t, 1, stats.TrackedHits)
}

func TestAllow_Concurrent(t *testing.T) {
	sw, _ := newTestWindow(t, time.Minute, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sw.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestStop_Idempotent(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, 1, 10*time.Millisecond)
	sw.Stop()
	sw.Stop()
}

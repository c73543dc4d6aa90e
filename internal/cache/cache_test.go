package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance cache time explicitly
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func newTestCache(opts Options) (*Cache, *fakeClock) {
	c := New(opts)
	clock := newFakeClock()
	c.now = clock.Now
	return c, clock
}

func TestPutAndGet(t *testing.T) {
	c, _ := newTestCache(Options{})

	bufs := map[string][]byte{
		"a": []byte("alpha contents"),
		"b": []byte("beta contents"),
		"c": {},
	}
	for key, buf := range bufs {
		c.Put(key, buf)
	}

	for key, want := range bufs {
		got, ok := c.Get(key)
		require.True(t, ok, "expected hit for %q", key)
		assert.Equal(t, want, got)
	}
}

func TestGetMissingKey(t *testing.T) {
	c, _ := newTestCache(Options{})

	buf, ok := c.Get("never-inserted")
	assert.False(t, ok)
	assert.Nil(t, buf)
	assert.False(t, c.Contains("never-inserted"))
}

func TestPutReplacesExistingKey(t *testing.T) {
	c, _ := newTestCache(Options{MaxEntries: 2})

	c.Put("a", []byte("first"))
	c.Put("b", []byte("other"))
	c.Put("a", []byte("second"))

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("second"), got)

	// Replacement does not evict: both keys still fit
	_, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Stats().Count)
}

func TestCapacityEviction(t *testing.T) {
	c, clock := newTestCache(Options{MaxEntries: 3})

	c.Put("a", []byte("a"))
	clock.Advance(time.Millisecond)
	c.Put("b", []byte("b"))
	clock.Advance(time.Millisecond)
	c.Put("c", []byte("c"))
	clock.Advance(time.Millisecond)

	// "a" has the smallest lastAccessedAt, so it goes first
	c.Put("d", []byte("d"))

	assert.Equal(t, 3, c.Stats().Count)
	assert.False(t, c.Contains("a"))
	for _, key := range []string{"b", "c", "d"} {
		assert.True(t, c.Contains(key), "expected %q to survive", key)
	}
}

func TestGetProtectsFromEviction(t *testing.T) {
	c, clock := newTestCache(Options{MaxEntries: 2})

	c.Put("a", []byte("bufA")) // t=0
	clock.Advance(time.Millisecond)
	c.Put("b", []byte("bufB")) // t=1
	clock.Advance(time.Millisecond)

	// Reading "a" at t=2 makes "b" the eviction candidate
	_, ok := c.Get("a")
	require.True(t, ok)
	clock.Advance(time.Millisecond)

	c.Put("c", []byte("bufC")) // t=3

	assert.True(t, c.Contains("a"))
	assert.True(t, c.Contains("c"))
	assert.False(t, c.Contains("b"))
}

func TestContainsDoesNotTouchAccessTime(t *testing.T) {
	c, clock := newTestCache(Options{MaxEntries: 2})

	c.Put("a", []byte("a"))
	clock.Advance(time.Millisecond)
	c.Put("b", []byte("b"))
	clock.Advance(time.Millisecond)

	// Contains is not a read hit: "a" stays least recently used
	require.True(t, c.Contains("a"))
	clock.Advance(time.Millisecond)

	c.Put("c", []byte("c"))
	assert.False(t, c.Contains("a"))
	assert.True(t, c.Contains("b"))
}

func TestExpiry(t *testing.T) {
	c, clock := newTestCache(Options{MaxAge: time.Second})

	c.Put("x", []byte("x"))

	clock.Advance(500 * time.Millisecond)
	assert.True(t, c.Contains("x"))

	clock.Advance(time.Second)
	assert.False(t, c.Contains("x"))
	assert.Equal(t, 0, c.Stats().Count, "expired entry should be removed by the Contains check")
}

func TestGetRemovesExpiredEntry(t *testing.T) {
	c, clock := newTestCache(Options{MaxAge: time.Second})

	c.Put("x", []byte("x"))
	clock.Advance(time.Second + time.Millisecond)

	buf, ok := c.Get("x")
	assert.False(t, ok)
	assert.Nil(t, buf)
	assert.Equal(t, 0, c.Stats().Count)
}

func TestSweepExpired(t *testing.T) {
	c, clock := newTestCache(Options{MaxAge: time.Minute})

	assert.Equal(t, 0, c.SweepExpired(), "sweeping an empty cache returns 0")

	c.Put("old1", []byte("1"))
	c.Put("old2", []byte("2"))
	clock.Advance(30 * time.Second)
	c.Put("fresh", []byte("3"))
	clock.Advance(45 * time.Second)

	assert.Equal(t, 2, c.SweepExpired())
	assert.False(t, c.Contains("old1"))
	assert.False(t, c.Contains("old2"))
	assert.True(t, c.Contains("fresh"))
}

func TestPutSweepsBeforeEvicting(t *testing.T) {
	c, clock := newTestCache(Options{MaxEntries: 2, MaxAge: time.Minute})

	c.Put("stale", []byte("stale"))
	clock.Advance(2 * time.Minute)
	c.Put("a", []byte("a"))
	clock.Advance(time.Millisecond)

	// "stale" is expired, so inserting "b" needs no eviction
	c.Put("b", []byte("b"))

	assert.True(t, c.Contains("a"))
	assert.True(t, c.Contains("b"))
	assert.Equal(t, 2, c.Stats().Count)
}

func TestRemove(t *testing.T) {
	c, _ := newTestCache(Options{})

	c.Put("a", []byte("a"))
	c.Remove("a")
	assert.False(t, c.Contains("a"))

	// Removing an absent key is a no-op
	c.Remove("missing")
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(Options{})

	c.Put("a", []byte("a"))
	c.Put("b", []byte("b"))
	c.Clear()

	st := c.Stats()
	assert.Equal(t, 0, st.Count)
	assert.Equal(t, int64(0), st.TotalBytes)

	// Clearing twice is fine
	c.Clear()
	assert.Equal(t, 0, c.Stats().Count)
}

func TestStats(t *testing.T) {
	c, clock := newTestCache(Options{})

	st := c.Stats()
	assert.Equal(t, 0, st.Count)
	assert.True(t, st.Oldest.IsZero())
	assert.True(t, st.Newest.IsZero())

	first := clock.Now()
	c.Put("a", make([]byte, 100))
	clock.Advance(time.Second)
	second := clock.Now()
	c.Put("b", make([]byte, 50))

	st = c.Stats()
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, int64(150), st.TotalBytes)
	assert.Equal(t, first, st.Oldest)
	assert.Equal(t, second, st.Newest)
}

func TestDefaultOptions(t *testing.T) {
	c := New(Options{})

	assert.Equal(t, 5, c.opts.MaxEntries)
	assert.Equal(t, 24*time.Hour, c.opts.MaxAge)
	assert.Equal(t, 10*time.Second, c.opts.PreloadTimeout)
}

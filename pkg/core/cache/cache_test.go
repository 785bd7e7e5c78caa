package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, cfg Config) (*Cache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	c := New[string](cfg)
	c.now = clock.Now
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache_GetSet(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() on empty cache returned ok")
	}

	c.Set("a", "1")
	got, ok := c.Get("a")
	if !ok || got != "1" {
		t.Errorf("Get() = %q, %v; want 1, true", got, ok)
	}

	c.Set("a", "2")
	if got, _ := c.Get("a"); got != "2" {
		t.Errorf("Get() after overwrite = %q, want 2", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestCache_Expiration(t *testing.T) {
	c, clock := newTestCache(t, Config{TTL: time.Minute})

	c.Set("a", "1")
	c.SetWithTTL("forever", "2", 0)

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Error("entry expired too early")
	}

	clock.Advance(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("entry should have expired")
	}
	if _, ok := c.Get("forever"); !ok {
		t.Error("entry without TTL should never expire")
	}
}

func TestCache_Cleanup(t *testing.T) {
	c, clock := newTestCache(t, Config{TTL: time.Second})

	c.Set("a", "1")
	c.Set("b", "2")
	clock.Advance(2 * time.Second)
	c.cleanup()

	if c.Size() != 0 {
		t.Errorf("Size() = %d after cleanup, want 0", c.Size())
	}
}

func TestCache_Eviction(t *testing.T) {
	c, clock := newTestCache(t, Config{MaxItems: 2})

	c.Set("first", "1")
	clock.Advance(time.Millisecond)
	c.Set("second", "2")
	clock.Advance(time.Millisecond)
	c.Set("third", "3")

	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
	if _, ok := c.Get("first"); ok {
		t.Error("oldest entry should have been evicted")
	}

	// Overwriting an existing key does not evict
	c.Set("third", "3b")
	if _, ok := c.Get("second"); !ok {
		t.Error("overwrite evicted another entry")
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
}

func TestCache_Stats(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())

	c.Set("a", "1")
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	if s.Hits != 3 || s.Misses != 1 || s.Size != 1 {
		t.Errorf("Stats() = %+v", s)
	}
	if s.HitRate != 75 {
		t.Errorf("HitRate = %v, want 75", s.HitRate)
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size() after Clear = %d", c.Size())
	}
}

func TestCache_GetOrSet(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())

	calls := 0
	fn := func() (string, error) {
		calls++
		return "computed", nil
	}

	v, hit, err := c.GetOrSet("k", fn)
	if err != nil || hit || v != "computed" {
		t.Errorf("first GetOrSet() = %q, %v, %v", v, hit, err)
	}
	v, hit, err = c.GetOrSet("k", fn)
	if err != nil || !hit || v != "computed" {
		t.Errorf("second GetOrSet() = %q, %v, %v", v, hit, err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}

	failure := errors.New("boom")
	if _, _, err := c.GetOrSet("bad", func() (string, error) { return "", failure }); !errors.Is(err, failure) {
		t.Errorf("GetOrSet() error = %v, want %v", err, failure)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("failed computation should not be stored")
	}
}

func TestCache_Concurrent(t *testing.T) {
	c, _ := newTestCache(t, Config{MaxItems: 16})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := Key("t", string(rune('a'+n)), string(rune('a'+j%20)))
				c.Set(key, "v")
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Size() > 16 {
		t.Errorf("Size() = %d exceeds MaxItems", c.Size())
	}
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New[int](DefaultConfig())
	c.Close()
	c.Close()
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Error("cache should remain usable after Close")
	}
}

func TestKey(t *testing.T) {
	a := Key("parse", "expression", "", "'a'")
	b := Key("parse", "expression", "", "'a'")
	c := Key("parse", "expression", "'a'", "")

	if a != b {
		t.Error("Key() is not deterministic")
	}
	if a == c {
		t.Error("Key() must separate parts")
	}
	if len(a) != len("parse:")+32 {
		t.Errorf("Key() length = %d", len(a))
	}
}

package notify

import "testing"

func cached(id string) *Notification {
	n := New("t-"+id, "m")
	n.id = id
	n.state = stateDelivered
	return n
}

// checkInvariants verifies that the ordered collection and the identifier
// index describe exactly the same set of notifications.
func checkInvariants(t *testing.T, c *cache) {
	t.Helper()
	seen := map[string]bool{}
	for _, n := range c.order {
		if n.id == "" {
			continue
		}
		got, ok := c.index[n.id]
		if !ok {
			t.Fatalf("identifier %q in order but not indexed", n.id)
		}
		if got != n {
			t.Fatalf("identifier %q indexed to a different notification", n.id)
		}
		seen[n.id] = true
	}
	for id := range c.index {
		if !seen[id] {
			t.Fatalf("identifier %q indexed but not in order", id)
		}
	}
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	c := newCache(2)

	a, b, x := cached("1"), cached("2"), cached("3")
	c.record(a)
	if got := c.evictOldest(); got != nil {
		t.Fatalf("evicted %v under capacity", got)
	}
	c.record(b)

	got := c.evictOldest()
	if got != a {
		t.Fatalf("evictOldest() = %v, want oldest %v", got, a)
	}
	c.record(x)

	snap := c.snapshot()
	if len(snap) != 2 || snap[0] != b || snap[1] != x {
		t.Fatalf("unexpected order after eviction: %v", snap)
	}
	if _, ok := c.lookup("1"); ok {
		t.Fatal("evicted identifier still indexed")
	}
	checkInvariants(t, c)
}

func TestCacheUnboundedNeverEvicts(t *testing.T) {
	c := newCache(0)
	for i := 0; i < 100; i++ {
		c.record(cached(string(rune('a' + i%26))))
		if got := c.evictOldest(); got != nil {
			t.Fatalf("unbounded cache evicted %v", got)
		}
	}
	if c.size() != 100 {
		t.Fatalf("size = %d, want 100", c.size())
	}
}

func TestCacheRestoreUndoesEviction(t *testing.T) {
	c := newCache(2)
	a, b := cached("1"), cached("2")
	c.record(a)
	c.record(b)

	evicted := c.evictOldest()
	c.restore(evicted)

	snap := c.snapshot()
	if len(snap) != 2 || snap[0] != a || snap[1] != b {
		t.Fatalf("restore did not reinstate order: %v", snap)
	}
	if got, ok := c.lookup("1"); !ok || got != a {
		t.Fatal("restore did not reinstate index entry")
	}
	checkInvariants(t, c)
}

func TestCacheForgetIsIdempotent(t *testing.T) {
	c := newCache(0)
	a, b := cached("1"), cached("2")
	c.record(a)
	c.record(b)

	c.forget(a)
	after := c.snapshot()

	c.forget(a)                  // second forget of same notification
	c.forget(cached("never"))    // never recorded
	c.forget(New("unsent", "m")) // no identifier at all

	snap := c.snapshot()
	if len(snap) != len(after) || snap[0] != b {
		t.Fatalf("forget not idempotent: %v", snap)
	}
	checkInvariants(t, c)
}

func TestCacheSnapshotIsACopy(t *testing.T) {
	c := newCache(0)
	c.record(cached("1"))

	snap := c.snapshot()
	snap[0] = nil

	if got := c.snapshot(); got[0] == nil {
		t.Fatal("mutating a snapshot leaked into the cache")
	}
}

func TestCacheClear(t *testing.T) {
	c := newCache(0)
	c.record(cached("1"))
	c.record(cached("2"))
	c.clear()

	if c.size() != 0 {
		t.Fatalf("size = %d after clear", c.size())
	}
	if _, ok := c.lookup("1"); ok {
		t.Fatal("identifier survived clear")
	}
	checkInvariants(t, c)
}

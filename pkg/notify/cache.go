package notify

// cache tracks currently-displayed notifications, oldest first, paired with
// a lookup index keyed by platform identifier.
//
// Both structures are mutated together and only here; that is what keeps
// them consistent. Callers (the Notifier) serialize access externally.
type cache struct {
	limit int // 0 = unbounded
	order []*Notification
	index map[string]*Notification
}

func newCache(limit int) *cache {
	if limit < 0 {
		limit = 0
	}
	return &cache{
		limit: limit,
		index: make(map[string]*Notification),
	}
}

func (c *cache) size() int { return len(c.order) }

// record appends n and indexes it by identifier. Callers must not record
// the same notification twice.
func (c *cache) record(n *Notification) {
	c.order = append(c.order, n)
	if n.id != "" {
		c.index[n.id] = n
	}
}

// evictOldest removes and returns the head entry, but only when the cache
// is at capacity. Unbounded or under-capacity caches evict nothing.
func (c *cache) evictOldest() *Notification {
	if c.limit == 0 || len(c.order) < c.limit {
		return nil
	}
	n := c.order[0]
	c.order = append(c.order[:0], c.order[1:]...)
	if n.id != "" {
		delete(c.index, n.id)
	}
	return n
}

// restore undoes an eviction: n goes back to the head, keeping its original
// position relative to everything still cached.
func (c *cache) restore(n *Notification) {
	c.order = append([]*Notification{n}, c.order...)
	if n.id != "" {
		c.index[n.id] = n
	}
}

// forget removes n from both structures. Absence is not an error.
func (c *cache) forget(n *Notification) {
	for i, cur := range c.order {
		if cur == n {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if n.id != "" {
		delete(c.index, n.id)
	}
}

func (c *cache) lookup(id string) (*Notification, bool) {
	if id == "" {
		return nil, false
	}
	n, ok := c.index[id]
	return n, ok
}

// snapshot returns a defensive copy of the display order.
func (c *cache) snapshot() []*Notification {
	return append([]*Notification(nil), c.order...)
}

func (c *cache) clear() {
	c.order = nil
	c.index = make(map[string]*Notification)
}

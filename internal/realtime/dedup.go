package realtime

// dedupRing remembers the last capacity event IDs. add reports whether
// the ID was new. Oldest entries are evicted first, which is enough for
// feed redelivery: duplicates arrive close to the original.
type dedupRing struct {
	capacity int
	order    []string
	next     int
	seen     map[string]struct{}
}

func newDedupRing(capacity int) *dedupRing {
	return &dedupRing{
		capacity: capacity,
		order:    make([]string, capacity),
		seen:     make(map[string]struct{}, capacity),
	}
}

func (d *dedupRing) add(id string) bool {
	if id == "" {
		return true
	}
	if _, dup := d.seen[id]; dup {
		return false
	}

	if old := d.order[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.order[d.next] = id
	d.next = (d.next + 1) % d.capacity
	d.seen[id] = struct{}{}
	return true
}

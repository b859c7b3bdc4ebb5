package crawler

import "container/heap"

// Class is the priority class of a frontier entry. Lower classes are
// dequeued first.
type Class int

// Frontier classes.
const (
	ClassHomepage Class = iota
	ClassSitemap
	ClassLink
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassHomepage:
		return "homepage"
	case ClassSitemap:
		return "sitemap"
	case ClassLink:
		return "link"
	default:
		return "unknown"
	}
}

type entry struct {
	url   string
	key   string
	depth int
	class Class
	order int
}

// entryHeap orders entries by (class, order).
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].class != h[j].class {
		return h[i].class < h[j].class
	}
	return h[i].order < h[j].order
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// frontier is the queue of URLs waiting to be fetched. Every URL is
// admitted at most once, keyed by its normalized form. It is not safe for
// concurrent use; the job guards it with its mutex.
type frontier struct {
	heap  entryHeap
	seen  map[string]struct{}
	order int
}

func newFrontier() *frontier {
	return &frontier{seen: make(map[string]struct{})}
}

// push admits url unless its key was admitted before. It reports whether
// the entry was added.
func (f *frontier) push(url, key string, depth int, class Class) bool {
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	heap.Push(&f.heap, entry{url: url, key: key, depth: depth, class: class, order: f.order})
	f.order++
	return true
}

// promote moves a queued entry into a better class, behind the entries
// already waiting in that class. Entries already popped, or queued in the
// same or a better class, are left alone. It reports whether the entry
// moved.
func (f *frontier) promote(key string, depth int, class Class) bool {
	for i := range f.heap {
		e := &f.heap[i]
		if e.key != key {
			continue
		}
		if class >= e.class {
			return false
		}
		e.class = class
		e.depth = min(e.depth, depth)
		e.order = f.order
		f.order++
		heap.Fix(&f.heap, i)
		return true
	}
	return false
}

func (f *frontier) has(key string) bool {
	_, ok := f.seen[key]
	return ok
}

// markSeen admits a key without queueing it, e.g. the final URL of a
// redirect.
func (f *frontier) markSeen(key string) {
	f.seen[key] = struct{}{}
}

func (f *frontier) pop() (entry, bool) {
	if len(f.heap) == 0 {
		return entry{}, false
	}
	return heap.Pop(&f.heap).(entry), true
}

func (f *frontier) len() int {
	return len(f.heap)
}

func (f *frontier) seenCount() int {
	return len(f.seen)
}

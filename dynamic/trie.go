package dynamic

import (
	"sync"
	"sync/atomic"
)

// trie memoizes values under a path of comparable keys, one level per
// argument. It keeps two generations: once the head generation has taken
// maxSize stores, the older one is dropped and the roles swap. Loads take no
// lock; stores are serialized by mu.
type trie[O any] struct {
	mu      sync.Mutex
	memos   [2]atomic.Pointer[sync.Map]
	headIdx atomic.Uint32
	size    atomic.Uint32
	maxSize uint32
}

func newTrie[O any](maxSize uint32) *trie[O] {
	if maxSize == 0 {
		panic("maxSize should be greater than 0")
	}
	t := &trie[O]{maxSize: maxSize}
	t.memos[0].Store(&sync.Map{})
	t.memos[1].Store(&sync.Map{})
	return t
}

func (t *trie[O]) load(keys []any) (O, bool) {
	headIdx := t.headIdx.Load()
	for _, idx := range [2]uint32{headIdx, 1 - headIdx} {
		if m, k, ok := t.find(t.memos[idx].Load(), keys); ok {
			if v, ok := m.Load(k); ok {
				return v.(O), true
			}
		}
	}
	var zero O
	return zero, false
}

func (t *trie[O]) store(keys []any, value O) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.size.Load() >= t.maxSize {
		next := 1 - t.headIdx.Load()
		t.memos[next].Store(&sync.Map{})
		t.headIdx.Store(next)
		t.size.Store(0)
	}
	m, k := t.traverse(t.memos[t.headIdx.Load()].Load(), keys)
	m.Store(k, value)
	t.size.Add(1)
}

// find walks keys without creating levels.
func (t *trie[O]) find(m *sync.Map, keys []any) (*sync.Map, any, bool) {
	last := len(keys) - 1
	if last < 0 {
		panic("trie: empty keys")
	}
	for _, k := range keys[:last] {
		v, ok := m.Load(k)
		if !ok {
			return nil, nil, false
		}
		m = v.(*sync.Map)
	}
	return m, keys[last], true
}

func (t *trie[O]) traverse(m *sync.Map, keys []any) (*sync.Map, any) {
	last := len(keys) - 1
	if last < 0 {
		panic("trie: empty keys")
	}
	for _, k := range keys[:last] {
		v, _ := m.LoadOrStore(k, &sync.Map{})
		m = v.(*sync.Map)
	}
	return m, keys[last]
}

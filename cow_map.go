package grove

import (
	"sync"
	"sync/atomic"
)

// cowMap is an append-only map with lock-free reads. Writers copy the
// whole map, so it suits small sets that stop growing once warm.
type cowMap[K comparable, V any] struct {
	mutex sync.Mutex
	value atomic.Pointer[map[K]V]
}

func newCowMap[K comparable, V any]() *cowMap[K, V] {
	m := make(map[K]V)
	ret := new(cowMap[K, V])
	ret.value.Store(&m)
	return ret
}

func (c *cowMap[K, V]) Get(k K) (v V, ok bool) {
	ptr := c.value.Load()
	v, ok = (*ptr)[k]
	return
}

// LoadOrStore returns the existing value for k if present. Otherwise it
// stores v and returns it.
func (c *cowMap[K, V]) LoadOrStore(k K, v V) (actual V, loaded bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ptr := c.value.Load()
	if existing, ok := (*ptr)[k]; ok {
		return existing, true
	}
	newMap := make(map[K]V, len(*ptr)+1)
	for k, v := range *ptr {
		newMap[k] = v
	}
	newMap[k] = v
	c.value.Store(&newMap)
	return v, false
}

func (c *cowMap[K, V]) Len() int {
	return len(*c.value.Load())
}
